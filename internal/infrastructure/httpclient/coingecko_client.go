package httpclient

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"token_portfolio/internal/app/port"
	"token_portfolio/internal/domain/entity"
	"token_portfolio/internal/pkg/metrics"
	"token_portfolio/internal/pkg/utils"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	DefaultBaseURL       = "https://api.coingecko.com/api/v3"
	defaultVsCurrency    = "usd"
	defaultTimeout       = 10 * time.Second
	defaultMaxIDsPerCall = 250
	maxErrorBodyLen      = 512
)

// Options configures a CoinGeckoClient. Zero values fall back to the public API defaults.
type Options struct {
	BaseURL          string
	VsCurrency       string
	APIKey           string
	APIKeyHeader     string
	Timeout          time.Duration
	MaxIDsPerRequest int
	// HTTPClient overrides the transport, e.g. with an in-memory dialer in tests.
	HTTPClient *fasthttp.Client
}

// CoinGeckoClient is a stateless wrapper over the CoinGecko REST API.
type CoinGeckoClient struct {
	client       *fasthttp.Client
	baseURL      string
	vsCurrency   string
	apiKey       string
	apiKeyHeader string
	timeout      time.Duration
	maxIDs       int
	logger       *zap.Logger
}

// NewCoinGeckoClient creates a new CoinGecko API client.
func NewCoinGeckoClient(opts Options, logger *zap.Logger) *CoinGeckoClient {
	c := &CoinGeckoClient{
		client:       opts.HTTPClient,
		baseURL:      strings.TrimRight(opts.BaseURL, "/"),
		vsCurrency:   strings.ToLower(opts.VsCurrency),
		apiKey:       opts.APIKey,
		apiKeyHeader: opts.APIKeyHeader,
		timeout:      opts.Timeout,
		maxIDs:       opts.MaxIDsPerRequest,
		logger:       logger.Named("CoinGeckoClient"),
	}
	if c.client == nil {
		c.client = &fasthttp.Client{Name: "token-portfolio"}
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.vsCurrency == "" {
		c.vsCurrency = defaultVsCurrency
	}
	if c.apiKey != "" && c.apiKeyHeader == "" {
		c.apiKeyHeader = "x-cg-demo-api-key"
	}
	if c.timeout <= 0 {
		c.timeout = defaultTimeout
	}
	if c.maxIDs <= 0 {
		c.maxIDs = defaultMaxIDsPerCall
	}
	return c
}

// get performs a GET on baseURL+path and decodes a 2xx JSON body into out.
func (c *CoinGeckoClient) get(ctx context.Context, op, path string, args *fasthttp.Args, out any) error {
	requestURL := c.baseURL + path
	if args != nil && args.Len() > 0 {
		requestURL += "?" + args.String()
	}

	if err := ctx.Err(); err != nil {
		return &entity.FetchError{Op: op, URL: requestURL, Err: err}
	}

	c.logger.Debug("Requesting CoinGecko", zap.String("op", op), zap.String("url", requestURL))

	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	req.SetRequestURI(requestURL)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set(c.apiKeyHeader, c.apiKey)
	}

	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	var err error
	if deadline, ok := ctx.Deadline(); ok {
		err = c.client.DoDeadline(req, resp, deadline)
	} else {
		err = c.client.DoTimeout(req, resp, c.timeout)
	}
	if err != nil {
		metrics.MarketRequests.WithLabelValues(op, "error").Inc()
		c.logger.Error("Failed to execute request to CoinGecko", zap.String("url", requestURL), zap.Error(err))
		return &entity.FetchError{Op: op, URL: requestURL, Err: err}
	}

	status := resp.StatusCode()
	metrics.MarketRequests.WithLabelValues(op, strconv.Itoa(status/100)+"xx").Inc()
	body := resp.Body()

	if status < 200 || status >= 300 {
		snippet := string(body)
		if len(snippet) > maxErrorBodyLen {
			snippet = snippet[:maxErrorBodyLen]
		}
		c.logger.Error("CoinGecko API request failed",
			zap.String("url", requestURL),
			zap.Int("statusCode", status),
			zap.String("responseBody", snippet),
		)
		return &entity.FetchError{Op: op, URL: requestURL, StatusCode: status, Err: fmt.Errorf("unexpected response: %s", snippet)}
	}

	if err := json.Unmarshal(body, out); err != nil {
		c.logger.Error("Failed to unmarshal CoinGecko response", zap.String("url", requestURL), zap.Error(err))
		return &entity.FetchError{Op: op, URL: requestURL, StatusCode: status, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// GetMarketData fetches market snapshots for ids, batched by the API page limit.
// Results keep the API's market cap ordering within each batch.
func (c *CoinGeckoClient) GetMarketData(ctx context.Context, ids []string, includeSparkline bool) ([]entity.Token, error) {
	ids = utils.UniqueStrings(ids)
	tokens := make([]entity.Token, 0, len(ids))
	if len(ids) == 0 {
		return tokens, nil
	}

	for _, batch := range utils.BatchStrings(ids, c.maxIDs) {
		args := fasthttp.AcquireArgs()
		args.Add("vs_currency", c.vsCurrency)
		args.Add("ids", strings.Join(batch, ","))
		args.Add("order", "market_cap_desc")
		args.Add("per_page", strconv.Itoa(len(batch)))
		args.Add("page", "1")
		args.Add("sparkline", strconv.FormatBool(includeSparkline))
		args.Add("price_change_percentage", "24h")

		var markets []cgMarket
		err := c.get(ctx, "markets", "/coins/markets", args, &markets)
		fasthttp.ReleaseArgs(args)
		if err != nil {
			return nil, err
		}
		for _, m := range markets {
			tokens = append(tokens, toToken(m))
		}
	}

	c.logger.Debug("Fetched market data", zap.Int("requested", len(ids)), zap.Int("received", len(tokens)))
	return tokens, nil
}

// GetTrending fetches the trending coins, hottest first.
func (c *CoinGeckoClient) GetTrending(ctx context.Context) ([]entity.TrendingToken, error) {
	var resp cgTrendingResponse
	if err := c.get(ctx, "trending", "/search/trending", nil, &resp); err != nil {
		return nil, err
	}
	out := make([]entity.TrendingToken, 0, len(resp.Coins))
	for _, coin := range resp.Coins {
		out = append(out, toTrendingToken(coin.Item))
	}
	return out, nil
}

// Search runs a free-text search. A blank query returns no results without a request.
func (c *CoinGeckoClient) Search(ctx context.Context, query string) ([]entity.SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []entity.SearchResult{}, nil
	}

	args := fasthttp.AcquireArgs()
	defer fasthttp.ReleaseArgs(args)
	args.Add("query", query)

	var resp cgSearchResponse
	if err := c.get(ctx, "search", "/search", args, &resp); err != nil {
		return nil, err
	}
	out := make([]entity.SearchResult, 0, len(resp.Coins))
	for _, coin := range resp.Coins {
		out = append(out, toSearchResult(coin))
	}
	return out, nil
}

// GetPriceHistory fetches hourly samples for days <= 1 and daily samples otherwise.
func (c *CoinGeckoClient) GetPriceHistory(ctx context.Context, id string, days int) ([]entity.PricePoint, error) {
	if strings.TrimSpace(id) == "" {
		return nil, &entity.FetchError{Op: "market_chart", URL: c.baseURL, Err: errors.New("token id is required")}
	}
	if days <= 0 {
		days = 1
	}
	interval := "daily"
	if days <= 1 {
		interval = "hourly"
	}

	args := fasthttp.AcquireArgs()
	defer fasthttp.ReleaseArgs(args)
	args.Add("vs_currency", c.vsCurrency)
	args.Add("days", strconv.Itoa(days))
	args.Add("interval", interval)

	var chart cgMarketChart
	if err := c.get(ctx, "market_chart", "/coins/"+url.PathEscape(id)+"/market_chart", args, &chart); err != nil {
		return nil, err
	}
	return toPricePoints(chart), nil
}

// GetCurrentPrices fetches lightweight quotes keyed by token id. Unknown ids are absent.
func (c *CoinGeckoClient) GetCurrentPrices(ctx context.Context, ids []string) (map[string]entity.CurrentPrice, error) {
	ids = utils.UniqueStrings(ids)
	out := make(map[string]entity.CurrentPrice, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	args := fasthttp.AcquireArgs()
	defer fasthttp.ReleaseArgs(args)
	args.Add("ids", strings.Join(ids, ","))
	args.Add("vs_currencies", c.vsCurrency)
	args.Add("include_24hr_change", "true")

	var resp cgSimplePrice
	if err := c.get(ctx, "simple_price", "/simple/price", args, &resp); err != nil {
		return nil, err
	}
	for id, quote := range resp {
		out[id] = entity.CurrentPrice{
			Price:     deref(quote[c.vsCurrency]),
			Change24h: deref(quote[c.vsCurrency+"_24h_change"]),
		}
	}
	return out, nil
}

var _ port.MarketDataClient = (*CoinGeckoClient)(nil)

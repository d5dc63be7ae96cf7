package httpclient

import (
	"context"
	"errors"
	"net"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"
	"go.uber.org/zap"

	"token_portfolio/internal/domain/entity"
)

const testBaseURL = "http://coingecko.test/api/v3"

func newTestClient(t *testing.T, opts Options, handler fasthttp.RequestHandler) *CoinGeckoClient {
	t.Helper()
	ln := fasthttputil.NewInmemoryListener()
	srv := &fasthttp.Server{Handler: handler}
	go srv.Serve(ln) //nolint:errcheck
	t.Cleanup(func() { ln.Close() })

	opts.BaseURL = testBaseURL
	opts.HTTPClient = &fasthttp.Client{
		Dial: func(string) (net.Conn, error) { return ln.Dial() },
	}
	return NewCoinGeckoClient(opts, zap.NewNop())
}

func jsonResponse(ctx *fasthttp.RequestCtx, status int, body string) {
	ctx.SetStatusCode(status)
	ctx.SetContentType("application/json")
	ctx.SetBodyString(body)
}

func TestGetMarketData_QueryAndNormalization(t *testing.T) {
	var gotPath, gotIDs, gotSparkline, gotOrder, gotKey string
	client := newTestClient(t, Options{APIKey: "secret"}, func(ctx *fasthttp.RequestCtx) {
		gotPath = string(ctx.Path())
		args := ctx.QueryArgs()
		gotIDs = string(args.Peek("ids"))
		gotSparkline = string(args.Peek("sparkline"))
		gotOrder = string(args.Peek("order"))
		gotKey = string(ctx.Request.Header.Peek("x-cg-demo-api-key"))
		jsonResponse(ctx, fasthttp.StatusOK, `[
			{"id":"bitcoin","symbol":"btc","name":"Bitcoin","image":"b.png","current_price":43250.5,
			 "market_cap_rank":1,"price_change_percentage_24h":2.5,"sparkline_in_7d":{"price":[1,2,3]}},
			{"id":"newcoin","symbol":"new","name":"New","image":"n.png","current_price":null,
			 "market_cap_rank":null,"price_change_percentage_24h":null}
		]`)
	})

	tokens, err := client.GetMarketData(context.Background(), []string{"bitcoin", "newcoin", "bitcoin"}, true)
	require.NoError(t, err)

	assert.Equal(t, "/api/v3/coins/markets", gotPath)
	assert.Equal(t, "bitcoin,newcoin", gotIDs)
	assert.Equal(t, "true", gotSparkline)
	assert.Equal(t, "market_cap_desc", gotOrder)
	assert.Equal(t, "secret", gotKey)

	require.Len(t, tokens, 2)
	assert.Equal(t, entity.Token{
		ID: "bitcoin", Symbol: "BTC", Name: "Bitcoin", Image: "b.png",
		CurrentPrice: 43250.5, PriceChangePercentage24h: 2.5, Sparkline7d: []float64{1, 2, 3}, MarketCapRank: 1,
	}, tokens[0])
	assert.Equal(t, "NEW", tokens[1].Symbol)
	assert.Zero(t, tokens[1].CurrentPrice)
	assert.Zero(t, tokens[1].MarketCapRank)
	assert.NotNil(t, tokens[1].Sparkline7d)
	assert.Empty(t, tokens[1].Sparkline7d)
}

func TestGetMarketData_Batches(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, Options{MaxIDsPerRequest: 2}, func(ctx *fasthttp.RequestCtx) {
		calls.Add(1)
		ids := strings.Split(string(ctx.QueryArgs().Peek("ids")), ",")
		assert.LessOrEqual(t, len(ids), 2)
		var sb strings.Builder
		sb.WriteString("[")
		for i, id := range ids {
			if i > 0 {
				sb.WriteString(",")
			}
			sb.WriteString(`{"id":"` + id + `","symbol":"` + id + `","current_price":1}`)
		}
		sb.WriteString("]")
		jsonResponse(ctx, fasthttp.StatusOK, sb.String())
	})

	tokens, err := client.GetMarketData(context.Background(), []string{"a", "b", "c", "d", "e"}, false)
	require.NoError(t, err)
	assert.EqualValues(t, 3, calls.Load())
	ids := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		ids = append(ids, tok.ID)
	}
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, ids)
}

func TestGetMarketData_EmptyIDsMakesNoCall(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, Options{}, func(ctx *fasthttp.RequestCtx) {
		calls.Add(1)
		jsonResponse(ctx, fasthttp.StatusOK, `[]`)
	})

	tokens, err := client.GetMarketData(context.Background(), nil, true)
	require.NoError(t, err)
	assert.Empty(t, tokens)
	assert.Zero(t, calls.Load())
}

func TestClient_FetchErrors(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantStatus int
	}{
		{name: "rate limited", status: fasthttp.StatusTooManyRequests, body: `{"error":"slow down"}`, wantStatus: 429},
		{name: "server error", status: fasthttp.StatusInternalServerError, body: `oops`, wantStatus: 500},
		{name: "malformed body", status: fasthttp.StatusOK, body: `{"coins":`, wantStatus: 200},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, Options{}, func(ctx *fasthttp.RequestCtx) {
				jsonResponse(ctx, tt.status, tt.body)
			})

			_, err := client.GetTrending(context.Background())
			require.Error(t, err)
			var fetchErr *entity.FetchError
			require.True(t, errors.As(err, &fetchErr))
			assert.Equal(t, tt.wantStatus, fetchErr.StatusCode)
			assert.Equal(t, "trending", fetchErr.Op)
			assert.Contains(t, fetchErr.URL, "/search/trending")
		})
	}
}

func TestClient_TransportError(t *testing.T) {
	client := NewCoinGeckoClient(Options{
		BaseURL: testBaseURL,
		Timeout: time.Second,
		HTTPClient: &fasthttp.Client{
			Dial: func(string) (net.Conn, error) { return nil, errors.New("connection refused") },
		},
	}, zap.NewNop())

	_, err := client.GetMarketData(context.Background(), []string{"bitcoin"}, false)
	var fetchErr *entity.FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Zero(t, fetchErr.StatusCode)
}

func TestClient_CancelledContext(t *testing.T) {
	client := newTestClient(t, Options{}, func(ctx *fasthttp.RequestCtx) {
		t.Error("no request expected")
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.GetTrending(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGetTrending(t *testing.T) {
	client := newTestClient(t, Options{}, func(ctx *fasthttp.RequestCtx) {
		assert.Equal(t, "/api/v3/search/trending", string(ctx.Path()))
		jsonResponse(ctx, fasthttp.StatusOK, `{"coins":[
			{"item":{"id":"pepe","name":"Pepe","symbol":"pepe","market_cap_rank":30,"thumb":"t.png","large":"l.png","score":0}},
			{"item":{"id":"wif","name":"dogwifhat","symbol":"wif","market_cap_rank":null,"small":"s.png","score":1}}
		]}`)
	})

	trending, err := client.GetTrending(context.Background())
	require.NoError(t, err)
	require.Len(t, trending, 2)
	assert.Equal(t, entity.TrendingToken{ID: "pepe", Symbol: "PEPE", Name: "Pepe", Image: "l.png", MarketCapRank: 30, Score: 0}, trending[0])
	assert.Equal(t, "s.png", trending[1].Image)
	assert.Zero(t, trending[1].MarketCapRank)
	assert.Equal(t, 1, trending[1].Score)
}

func TestSearch(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, Options{}, func(ctx *fasthttp.RequestCtx) {
		calls.Add(1)
		assert.Equal(t, "doge coin", string(ctx.QueryArgs().Peek("query")))
		jsonResponse(ctx, fasthttp.StatusOK, `{"coins":[{"id":"dogecoin","name":"Dogecoin","symbol":"doge","market_cap_rank":9,"thumb":"t.png","large":"l.png"}]}`)
	})

	results, err := client.Search(context.Background(), "   ")
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Zero(t, calls.Load())

	results, err = client.Search(context.Background(), "  doge coin ")
	require.NoError(t, err)
	assert.Equal(t, []entity.SearchResult{{ID: "dogecoin", Symbol: "DOGE", Name: "Dogecoin", Image: "l.png", MarketCapRank: 9}}, results)
	assert.EqualValues(t, 1, calls.Load())
}

func TestGetPriceHistory_Interval(t *testing.T) {
	tests := []struct {
		days     int
		interval string
	}{
		{days: 1, interval: "hourly"},
		{days: 0, interval: "hourly"},
		{days: 7, interval: "daily"},
		{days: 30, interval: "daily"},
	}
	for _, tt := range tests {
		t.Run(tt.interval, func(t *testing.T) {
			client := newTestClient(t, Options{}, func(ctx *fasthttp.RequestCtx) {
				assert.Equal(t, "/api/v3/coins/bitcoin/market_chart", string(ctx.Path()))
				assert.Equal(t, tt.interval, string(ctx.QueryArgs().Peek("interval")))
				assert.Equal(t, "usd", string(ctx.QueryArgs().Peek("vs_currency")))
				jsonResponse(ctx, fasthttp.StatusOK, `{"prices":[[1700000000000,42000.5],[1700003600000,42100],[1]]}`)
			})

			points, err := client.GetPriceHistory(context.Background(), "bitcoin", tt.days)
			require.NoError(t, err)
			assert.Equal(t, []entity.PricePoint{
				{TimestampMs: 1700000000000, Price: 42000.5},
				{TimestampMs: 1700003600000, Price: 42100},
			}, points)
		})
	}
}

func TestGetCurrentPrices(t *testing.T) {
	client := newTestClient(t, Options{VsCurrency: "EUR"}, func(ctx *fasthttp.RequestCtx) {
		assert.Equal(t, "/api/v3/simple/price", string(ctx.Path()))
		assert.Equal(t, "eur", string(ctx.QueryArgs().Peek("vs_currencies")))
		assert.Equal(t, "true", string(ctx.QueryArgs().Peek("include_24hr_change")))
		jsonResponse(ctx, fasthttp.StatusOK, `{"bitcoin":{"eur":40000,"eur_24h_change":-1.25},"stellar":{"eur":0.1,"eur_24h_change":null}}`)
	})

	prices, err := client.GetCurrentPrices(context.Background(), []string{"bitcoin", "stellar", "ghost"})
	require.NoError(t, err)
	assert.Equal(t, map[string]entity.CurrentPrice{
		"bitcoin": {Price: 40000, Change24h: -1.25},
		"stellar": {Price: 0.1},
	}, prices)
}

package restapi

import (
	"context"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"token_portfolio/internal/app/port"
	"token_portfolio/internal/app/service"
	"token_portfolio/internal/domain/entity"
	"token_portfolio/internal/infrastructure/configloader"
	"token_portfolio/internal/infrastructure/storage"
	"token_portfolio/internal/pkg/logger"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type stubMarket struct {
	fail bool
}

func (m *stubMarket) GetMarketData(_ context.Context, ids []string, _ bool) ([]entity.Token, error) {
	if m.fail {
		return nil, &entity.FetchError{Op: "markets", URL: "http://coingecko.test", StatusCode: 503, Err: errors.New("unavailable")}
	}
	tokens := make([]entity.Token, 0, len(ids))
	for _, id := range ids {
		tokens = append(tokens, entity.Token{ID: id, Symbol: strings.ToUpper(id), Name: id, CurrentPrice: 10, Sparkline7d: []float64{}})
	}
	return tokens, nil
}

func (m *stubMarket) GetTrending(context.Context) ([]entity.TrendingToken, error) {
	return []entity.TrendingToken{{ID: "pepe"}, {ID: "wif", Score: 1}}, nil
}

func (m *stubMarket) Search(_ context.Context, query string) ([]entity.SearchResult, error) {
	return []entity.SearchResult{{ID: query}}, nil
}

func (m *stubMarket) GetPriceHistory(context.Context, string, int) ([]entity.PricePoint, error) {
	return []entity.PricePoint{{TimestampMs: 1, Price: 2}}, nil
}

func (m *stubMarket) GetCurrentPrices(context.Context, []string) (map[string]entity.CurrentPrice, error) {
	return map[string]entity.CurrentPrice{}, nil
}

type testEnv struct {
	router    *gin.Engine
	portfolio port.PortfolioService
	market    *stubMarket
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := configloader.Default()
	cfg.Swagger.Enabled = false
	store := storage.NewAdapter(storage.NewMemoryBackend(), "", logger.Nop{})
	market := &stubMarket{}
	portfolio := service.NewPortfolioService(store, logger.Nop{}, nil)
	refresh := service.NewRefreshService(portfolio, market, logger.Nop{}, time.Hour, time.Second)
	search := service.NewTokenSearchService(market, portfolio, logger.Nop{}, cfg)
	wallet := service.NewWalletService(store, portfolio, logger.Nop{})

	h := NewPortfolioHandler(portfolio, refresh, search, wallet, logger.Nop{})
	return &testEnv{
		router:    SetupRouter(h, cfg, zap.NewNop()),
		portfolio: portfolio,
		market:    market,
	}
}

func (e *testEnv) do(t *testing.T, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)

	var decoded map[string]any
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded))
	}
	return rec, decoded
}

func TestGetPortfolio(t *testing.T) {
	env := newTestEnv(t)
	rec, body := env.do(t, http.MethodGet, "/api/v1/portfolio", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	data := body["data"].(map[string]any)
	assert.Len(t, data["watchlist"], 6)
	assert.InDelta(t, env.portfolio.Snapshot().PortfolioTotal, data["portfolio_total"], 1e-9)
}

func TestWatchlistPaging(t *testing.T) {
	env := newTestEnv(t)
	rec, body := env.do(t, http.MethodGet, "/api/v1/watchlist?page=2&perPage=4", "")

	require.Equal(t, http.StatusOK, rec.Code)
	data := body["data"].(map[string]any)
	assert.Len(t, data["items"], 2)
	assert.EqualValues(t, 5, data["start_item"])
	assert.EqualValues(t, 6, data["end_item"])
	assert.EqualValues(t, 2, data["total_pages"])
}

func TestAddAndRemoveTokens(t *testing.T) {
	env := newTestEnv(t)

	rec, body := env.do(t, http.MethodPost, "/api/v1/watchlist", `{"ids":["cardano","bitcoin"]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	added := body["data"].(map[string]any)["added"].([]any)
	assert.Len(t, added, 1)
	assert.Equal(t, 7, env.portfolio.Len())

	rec, _ = env.do(t, http.MethodDelete, "/api/v1/watchlist/cardano", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 6, env.portfolio.Len())

	rec, _ = env.do(t, http.MethodPost, "/api/v1/watchlist", `{"nope":true}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAddTokensUpstreamFailure(t *testing.T) {
	env := newTestEnv(t)
	env.market.fail = true

	rec, body := env.do(t, http.MethodPost, "/api/v1/watchlist", `{"ids":["cardano"]}`)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, body["error"], "unavailable")
	assert.Equal(t, 6, env.portfolio.Len())
}

func TestUpdateHoldings(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name         string
		path         string
		body         string
		wantStatus   int
		wantHoldings float64
		wantCoerced  bool
	}{
		{name: "valid amount", path: "/api/v1/watchlist/bitcoin/holdings", body: `{"holdings":"1,000.5"}`, wantStatus: http.StatusOK, wantHoldings: 1000.5},
		{name: "garbage becomes zero", path: "/api/v1/watchlist/bitcoin/holdings", body: `{"holdings":"abc"}`, wantStatus: http.StatusOK, wantHoldings: 0},
		{name: "negative becomes zero", path: "/api/v1/watchlist/bitcoin/holdings", body: `{"holdings":"-3"}`, wantStatus: http.StatusOK, wantHoldings: 0},
		{name: "out of range becomes zero", path: "/api/v1/watchlist/bitcoin/holdings", body: `{"holdings":"1e400"}`, wantStatus: http.StatusOK, wantHoldings: 0, wantCoerced: true},
		{name: "overflowing value becomes zero", path: "/api/v1/watchlist/bitcoin/holdings", body: `{"holdings":"1e307"}`, wantStatus: http.StatusOK, wantHoldings: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, body := env.do(t, http.MethodPut, tt.path, tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code)
			snap := env.portfolio.Snapshot()
			assert.Equal(t, tt.wantHoldings, snap.Watchlist[1].Holdings)
			assert.False(t, math.IsInf(snap.PortfolioTotal, 0))
			if tt.wantCoerced {
				assert.Contains(t, body["status_message"], "set to 0")
			}
		})
	}

	rec, _ := env.do(t, http.MethodPut, "/api/v1/watchlist/ghost/holdings", `{"holdings":"1"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRefreshEndpoint(t *testing.T) {
	env := newTestEnv(t)

	rec, body := env.do(t, http.MethodPost, "/api/v1/refresh", "")
	require.Equal(t, http.StatusOK, rec.Code)
	data := body["data"].(map[string]any)
	first := data["watchlist"].([]any)[0].(map[string]any)
	assert.EqualValues(t, 10, first["current_price"])

	env.market.fail = true
	rec, body = env.do(t, http.MethodPost, "/api/v1/refresh", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, service.RefreshFailedMessage, body["data"].(map[string]any)["error"])
}

func TestTokenEndpoints(t *testing.T) {
	env := newTestEnv(t)

	rec, body := env.do(t, http.MethodGet, "/api/v1/tokens/trending", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["data"], 2)

	rec, body = env.do(t, http.MethodGet, "/api/v1/tokens/search?q=doge", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["data"], 1)

	rec, body = env.do(t, http.MethodGet, "/api/v1/tokens/bitcoin/history?days=1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["data"], 1)
}

func TestWalletEndpoints(t *testing.T) {
	env := newTestEnv(t)

	rec, body := env.do(t, http.MethodPost, "/api/v1/wallet", `{"address":"0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "0x5aAe...eAed", body["data"].(map[string]any)["short_address"])

	rec, body = env.do(t, http.MethodGet, "/api/v1/status", "")
	require.Equal(t, http.StatusOK, rec.Code)
	data := body["data"].(map[string]any)
	assert.Equal(t, true, data["wallet"].(map[string]any)["connected"])
	assert.Equal(t, "idle", data["refresh_state"])

	rec, _ = env.do(t, http.MethodPost, "/api/v1/wallet", `{"address":"not-an-address"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, body = env.do(t, http.MethodDelete, "/api/v1/wallet", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, body["data"].(map[string]any)["connected"])
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

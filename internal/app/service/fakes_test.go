package service

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"token_portfolio/internal/domain/entity"
	"token_portfolio/internal/infrastructure/storage"
	"token_portfolio/internal/pkg/logger"
)

// fakeMarket is a scriptable port.MarketDataClient.
type fakeMarket struct {
	mu sync.Mutex

	marketData func(ids []string) ([]entity.Token, error)
	trending   func() ([]entity.TrendingToken, error)
	search     func(query string) ([]entity.SearchResult, error)
	history    func(id string, days int) ([]entity.PricePoint, error)

	marketCalls  [][]string
	searchCalls  []string
	historyCalls []int
}

func (f *fakeMarket) GetMarketData(_ context.Context, ids []string, _ bool) ([]entity.Token, error) {
	f.mu.Lock()
	f.marketCalls = append(f.marketCalls, append([]string(nil), ids...))
	fn := f.marketData
	f.mu.Unlock()
	if fn == nil {
		return pricedTokens(ids, 1), nil
	}
	return fn(ids)
}

func (f *fakeMarket) GetTrending(context.Context) ([]entity.TrendingToken, error) {
	if f.trending == nil {
		return nil, nil
	}
	return f.trending()
}

func (f *fakeMarket) Search(_ context.Context, query string) ([]entity.SearchResult, error) {
	f.mu.Lock()
	f.searchCalls = append(f.searchCalls, query)
	f.mu.Unlock()
	if f.search == nil {
		return nil, nil
	}
	return f.search(query)
}

func (f *fakeMarket) GetPriceHistory(_ context.Context, id string, days int) ([]entity.PricePoint, error) {
	f.mu.Lock()
	f.historyCalls = append(f.historyCalls, days)
	f.mu.Unlock()
	if f.history == nil {
		return []entity.PricePoint{}, nil
	}
	return f.history(id, days)
}

func (f *fakeMarket) GetCurrentPrices(context.Context, []string) (map[string]entity.CurrentPrice, error) {
	return map[string]entity.CurrentPrice{}, nil
}

func (f *fakeMarket) marketCallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.marketCalls)
}

func pricedTokens(ids []string, price float64) []entity.Token {
	tokens := make([]entity.Token, 0, len(ids))
	for _, id := range ids {
		tokens = append(tokens, entity.Token{
			ID:           id,
			Symbol:       id,
			Name:         id,
			CurrentPrice: price,
			Sparkline7d:  []float64{price},
		})
	}
	return tokens
}

var errUpstream = &entity.FetchError{Op: "markets", URL: "http://coingecko.test", StatusCode: 429, Err: errors.New("rate limited")}

type brokenBackend struct{}

func (brokenBackend) Get(context.Context, string) (string, error) {
	return "", errors.New("storage disabled")
}
func (brokenBackend) Set(context.Context, string, string) error {
	return errors.New("storage disabled")
}
func (brokenBackend) Delete(context.Context, string) error { return errors.New("storage disabled") }
func (brokenBackend) Close() error                         { return nil }

func memoryStorage() *storage.Adapter {
	return storage.NewAdapter(storage.NewMemoryBackend(), "", logger.Nop{})
}

func brokenStorage() *storage.Adapter {
	return storage.NewAdapter(brokenBackend{}, "", logger.Nop{})
}

// emptyPortfolio returns a service whose watchlist starts empty.
func emptyPortfolio(t *testing.T, store *storage.Adapter) *PortfolioServiceImpl {
	t.Helper()
	store.SaveWatchlist([]entity.WatchlistEntry{})
	return NewPortfolioService(store, logger.Nop{}, nil).(*PortfolioServiceImpl)
}

func assertConsistent(t *testing.T, state entity.PortfolioState) {
	t.Helper()
	sum := 0.0
	for _, e := range state.Watchlist {
		assert.InDelta(t, e.Holdings*e.CurrentPrice, e.Value, 1e-9, "value of %s", e.ID)
		assert.GreaterOrEqual(t, e.Holdings, 0.0)
		assert.False(t, math.IsNaN(e.Value))
		sum += e.Value
	}
	assert.InDelta(t, sum, state.PortfolioTotal, 1e-6)
}

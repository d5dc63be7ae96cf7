package port

import (
	"context"

	"token_portfolio/internal/domain/entity"
)

// MarketDataClient defines the read-only operations of the market data API.
// Every method fails with *entity.FetchError on network, status or decoding errors.
type MarketDataClient interface {
	// GetMarketData returns market snapshots for the given token IDs. Unknown IDs are simply absent.
	GetMarketData(ctx context.Context, ids []string, includeSparkline bool) ([]entity.Token, error)
	// GetTrending returns the trending list ordered by score.
	GetTrending(ctx context.Context) ([]entity.TrendingToken, error)
	// Search runs a free-text token search.
	Search(ctx context.Context, query string) ([]entity.SearchResult, error)
	// GetPriceHistory returns the price series for the last `days` days.
	GetPriceHistory(ctx context.Context, id string, days int) ([]entity.PricePoint, error)
	// GetCurrentPrices returns lightweight quotes keyed by token ID.
	GetCurrentPrices(ctx context.Context, ids []string) (map[string]entity.CurrentPrice, error)
}

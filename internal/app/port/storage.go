package port

import (
	"context"
	"time"

	"token_portfolio/internal/domain/entity"
)

// KVBackend is a durable string key/value store. Get returns entity.ErrKeyNotFound for absent keys.
type KVBackend interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// PortfolioStorage persists the portfolio slots. Implementations never return errors:
// failures are logged and resolve to "no data" on load and are dropped on save.
type PortfolioStorage interface {
	SaveWatchlist(watchlist []entity.WatchlistEntry)
	LoadWatchlist() ([]entity.WatchlistEntry, bool)
	SaveLastUpdated(t time.Time)
	LoadLastUpdated() (time.Time, bool)
	SavePortfolioTotal(total float64)
	LoadPortfolioTotal() (float64, bool)
	SaveHoldings(holdings map[string]float64)
	LoadHoldings() (map[string]float64, bool)
	SaveWallet(address string)
	LoadWallet() (string, bool)
	ClearWallet()
	Clear()
	IsAvailable() bool
}

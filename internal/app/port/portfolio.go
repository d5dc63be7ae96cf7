package port

import (
	"context"

	"token_portfolio/internal/domain/entity"
)

// PortfolioService owns the portfolio state. The four mutations are its entire write surface.
type PortfolioService interface {
	AddTokens(tokens []entity.Token)
	RemoveToken(id string)
	UpdateHoldings(id string, holdings float64)
	ApplyPriceUpdates(updates []entity.PriceUpdate)

	Snapshot() entity.PortfolioState
	WatchlistIDs() []string
	Len() int
	Allocation() []entity.AllocationSlice
	Page(page, perPage int) entity.WatchlistPage

	// SetLoading and SetError drive the transient refresh flags; they are not persisted.
	SetLoading(loading bool)
	SetError(message string)

	// Subscribe delivers the new watchlist size whenever it changes. Call cancel to unsubscribe.
	Subscribe() (sizes <-chan int, cancel func())

	// Reset clears storage and re-seeds the default watchlist.
	Reset()
}

// RefreshService orchestrates price refresh cycles.
type RefreshService interface {
	Refresh(ctx context.Context) error
	Run(ctx context.Context) error
	State() (state entity.RefreshState, message string)
}

// TokenSearchService discovers tokens to add to the watchlist.
type TokenSearchService interface {
	Trending(ctx context.Context) ([]entity.Token, error)
	Search(ctx context.Context, query string) ([]entity.Token, error)
	SearchDebounced(query string, onResult func([]entity.Token, error))
	History(ctx context.Context, id string, days int) ([]entity.PricePoint, error)
	AddByIDs(ctx context.Context, ids []string) ([]entity.Token, error)
}

// WalletService tracks the cosmetic wallet connection.
type WalletService interface {
	Connect(address string) (entity.WalletStatus, error)
	Disconnect() entity.WalletStatus
	Status() entity.WalletStatus
}

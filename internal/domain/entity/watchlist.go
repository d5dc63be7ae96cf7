package entity

import "time"

// WatchlistEntry is a tracked token together with the user's self-reported holdings.
// Value is derived (Holdings × CurrentPrice) and is only ever written by the portfolio service.
type WatchlistEntry struct {
	Token
	Holdings float64 `json:"holdings"`
	Value    float64 `json:"value"`
}

// PortfolioState is the complete read surface of the portfolio.
type PortfolioState struct {
	Watchlist      []WatchlistEntry `json:"watchlist"`
	PortfolioTotal float64          `json:"portfolio_total"`
	LastUpdated    time.Time        `json:"last_updated"`
	IsLoading      bool             `json:"is_loading"`
	Error          string           `json:"error,omitempty"`
}

// AllocationSlice is the share of the portfolio total held in one token.
type AllocationSlice struct {
	ID         string  `json:"id"`
	Symbol     string  `json:"symbol"`
	Name       string  `json:"name"`
	Value      float64 `json:"value"`
	Percentage float64 `json:"percentage"`
}

// WatchlistPage is one page of the watchlist.
type WatchlistPage struct {
	Items      []WatchlistEntry `json:"items"`
	Page       int              `json:"page"`
	PerPage    int              `json:"per_page"`
	TotalItems int              `json:"total_items"`
	TotalPages int              `json:"total_pages"`
	StartItem  int              `json:"start_item"`
	EndItem    int              `json:"end_item"`
}

// WalletStatus reports the cosmetic wallet connection and persistence health.
type WalletStatus struct {
	Connected          bool    `json:"connected"`
	Address            string  `json:"address,omitempty"`
	ShortAddress       string  `json:"short_address,omitempty"`
	PersistenceWorking bool    `json:"persistence_working"`
	WatchlistCount     int     `json:"watchlist_count"`
	PortfolioTotal     float64 `json:"portfolio_total"`
	Message            string  `json:"message"`
}

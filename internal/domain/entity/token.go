package entity

// Token is a market snapshot of a single token as tracked by the portfolio.
type Token struct {
	ID                       string    `json:"id"`
	Symbol                   string    `json:"symbol"`
	Name                     string    `json:"name"`
	Image                    string    `json:"image"`
	CurrentPrice             float64   `json:"current_price"`
	PriceChangePercentage24h float64   `json:"price_change_percentage_24h"`
	Sparkline7d              []float64 `json:"sparkline_in_7d"`
	MarketCapRank            int       `json:"market_cap_rank,omitempty"` // 0 when unknown
}

// PriceUpdate carries the price fields of a Token for a bulk refresh.
type PriceUpdate struct {
	ID                       string    `json:"id"`
	CurrentPrice             float64   `json:"current_price"`
	PriceChangePercentage24h float64   `json:"price_change_percentage_24h"`
	Sparkline7d              []float64 `json:"sparkline_in_7d"`
}

// SearchResult is a single match returned by a free-text token search.
type SearchResult struct {
	ID            string `json:"id"`
	Symbol        string `json:"symbol"`
	Name          string `json:"name"`
	Image         string `json:"image"`
	MarketCapRank int    `json:"market_cap_rank,omitempty"`
}

// TrendingToken is an entry of the trending list, ranked by Score (0 is the hottest).
type TrendingToken struct {
	ID            string `json:"id"`
	Symbol        string `json:"symbol"`
	Name          string `json:"name"`
	Image         string `json:"image"`
	MarketCapRank int    `json:"market_cap_rank,omitempty"`
	Score         int    `json:"score"`
}

// PricePoint is one (timestamp, price) sample of a historical price series.
type PricePoint struct {
	TimestampMs int64   `json:"timestamp"`
	Price       float64 `json:"price"`
}

// CurrentPrice is a lightweight quote for a single token.
type CurrentPrice struct {
	Price     float64 `json:"price"`
	Change24h float64 `json:"change_24h"`
}

// PriceUpdate extracts the refreshable fields of the token.
func (t Token) PriceUpdate() PriceUpdate {
	return PriceUpdate{
		ID:                       t.ID,
		CurrentPrice:             t.CurrentPrice,
		PriceChangePercentage24h: t.PriceChangePercentage24h,
		Sparkline7d:              t.Sparkline7d,
	}
}

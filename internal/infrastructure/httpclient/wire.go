package httpclient

import (
	"strings"

	"token_portfolio/internal/domain/entity"
)

// CoinGecko response shapes. Nullable numbers are pointers so that null and 0 can be told apart.

type cgMarket struct {
	ID                       string       `json:"id"`
	Symbol                   string       `json:"symbol"`
	Name                     string       `json:"name"`
	Image                    string       `json:"image"`
	CurrentPrice             *float64     `json:"current_price"`
	MarketCapRank            *int         `json:"market_cap_rank"`
	PriceChangePercentage24h *float64     `json:"price_change_percentage_24h"`
	SparklineIn7d            *cgSparkline `json:"sparkline_in_7d"`
}

type cgSparkline struct {
	Price []float64 `json:"price"`
}

type cgTrendingResponse struct {
	Coins []struct {
		Item cgTrendingCoin `json:"item"`
	} `json:"coins"`
}

type cgTrendingCoin struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Symbol        string `json:"symbol"`
	MarketCapRank *int   `json:"market_cap_rank"`
	Thumb         string `json:"thumb"`
	Small         string `json:"small"`
	Large         string `json:"large"`
	Score         int    `json:"score"`
}

type cgSearchResponse struct {
	Coins []cgSearchCoin `json:"coins"`
}

type cgSearchCoin struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Symbol        string `json:"symbol"`
	MarketCapRank *int   `json:"market_cap_rank"`
	Thumb         string `json:"thumb"`
	Large         string `json:"large"`
}

type cgMarketChart struct {
	Prices [][]float64 `json:"prices"`
}

// cgSimplePrice is keyed by coin id, then by "usd" / "usd_24h_change".
type cgSimplePrice map[string]map[string]*float64

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}

func toToken(m cgMarket) entity.Token {
	sparkline := []float64{}
	if m.SparklineIn7d != nil && m.SparklineIn7d.Price != nil {
		sparkline = m.SparklineIn7d.Price
	}
	return entity.Token{
		ID:                       m.ID,
		Symbol:                   strings.ToUpper(m.Symbol),
		Name:                     m.Name,
		Image:                    m.Image,
		CurrentPrice:             deref(m.CurrentPrice),
		PriceChangePercentage24h: deref(m.PriceChangePercentage24h),
		Sparkline7d:              sparkline,
		MarketCapRank:            deref(m.MarketCapRank),
	}
}

func toSearchResult(c cgSearchCoin) entity.SearchResult {
	image := c.Large
	if image == "" {
		image = c.Thumb
	}
	return entity.SearchResult{
		ID:            c.ID,
		Symbol:        strings.ToUpper(c.Symbol),
		Name:          c.Name,
		Image:         image,
		MarketCapRank: deref(c.MarketCapRank),
	}
}

func toTrendingToken(c cgTrendingCoin) entity.TrendingToken {
	image := c.Large
	if image == "" {
		image = c.Small
	}
	if image == "" {
		image = c.Thumb
	}
	return entity.TrendingToken{
		ID:            c.ID,
		Symbol:        strings.ToUpper(c.Symbol),
		Name:          c.Name,
		Image:         image,
		MarketCapRank: deref(c.MarketCapRank),
		Score:         c.Score,
	}
}

// toPricePoints drops malformed samples (fewer than two elements).
func toPricePoints(chart cgMarketChart) []entity.PricePoint {
	points := make([]entity.PricePoint, 0, len(chart.Prices))
	for _, p := range chart.Prices {
		if len(p) < 2 {
			continue
		}
		points = append(points, entity.PricePoint{TimestampMs: int64(p[0]), Price: p[1]})
	}
	return points
}

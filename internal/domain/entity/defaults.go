package entity

// DefaultWatchlist returns the seed watchlist used when no stored state exists.
// Values are left for the caller to recompute.
func DefaultWatchlist() []WatchlistEntry {
	return []WatchlistEntry{
		{Token: Token{ID: "ethereum", Symbol: "ETH", Name: "Ethereum", Image: "https://assets.coingecko.com/coins/images/279/large/ethereum.png",
			CurrentPrice: 3250.67, PriceChangePercentage24h: 2.30, MarketCapRank: 2,
			Sparkline7d: []float64{3200, 3180, 3220, 3250, 3240, 3260, 3250, 3280, 3270, 3250}}, Holdings: 0.05},
		{Token: Token{ID: "bitcoin", Symbol: "BTC", Name: "Bitcoin", Image: "https://assets.coingecko.com/coins/images/1/large/bitcoin.png",
			CurrentPrice: 2654.32, PriceChangePercentage24h: -1.20, MarketCapRank: 1,
			Sparkline7d: []float64{2700, 2680, 2650, 2640, 2660, 2670, 2654, 2620, 2640, 2654}}, Holdings: 2.5},
		{Token: Token{ID: "solana", Symbol: "SOL", Name: "Solana", Image: "https://assets.coingecko.com/coins/images/4128/large/solana.png",
			CurrentPrice: 98.45, PriceChangePercentage24h: 4.70, MarketCapRank: 5,
			Sparkline7d: []float64{94, 96, 97, 95, 98, 99, 98, 100, 99, 98}}, Holdings: 2.5},
		{Token: Token{ID: "dogecoin", Symbol: "DOGE", Name: "Dogecoin", Image: "https://assets.coingecko.com/coins/images/5/large/dogecoin.png",
			CurrentPrice: 0.08, PriceChangePercentage24h: 2.30, MarketCapRank: 8,
			Sparkline7d: []float64{0.075, 0.078, 0.079, 0.081, 0.080, 0.082, 0.08}}, Holdings: 1000},
		{Token: Token{ID: "usd-coin", Symbol: "USDC", Name: "USDC", Image: "https://assets.coingecko.com/coins/images/6319/large/USD_Coin_icon.png",
			CurrentPrice: 1.00, PriceChangePercentage24h: 0.01, MarketCapRank: 6,
			Sparkline7d: []float64{1.00, 0.999, 1.001, 1.00, 0.998, 1.001, 1.00}}, Holdings: 2500},
		{Token: Token{ID: "stellar", Symbol: "XLM", Name: "Stellar", Image: "https://assets.coingecko.com/coins/images/100/large/Stellar_symbol_black_RGB.png",
			CurrentPrice: 0.09, PriceChangePercentage24h: 4.70, MarketCapRank: 15,
			Sparkline7d: []float64{0.085, 0.087, 0.089, 0.091, 0.09, 0.092, 0.09}}, Holdings: 15000},
	}
}

package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "portfolio"

var (
	// PortfolioTotal is the current aggregate value of the watchlist.
	PortfolioTotal = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "total_value",
		Help:      "Sum of holdings x current price over the watchlist.",
	})

	// WatchlistSize is the number of tracked tokens.
	WatchlistSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "watchlist_size",
		Help:      "Number of tokens in the watchlist.",
	})

	// RefreshTotal counts refresh cycles by outcome (success, failure, skipped).
	RefreshTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "refresh_total",
		Help:      "Price refresh cycles by outcome.",
	}, []string{"outcome"})

	// RefreshDuration observes the wall time of refresh cycles that reached the API.
	RefreshDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "refresh_duration_seconds",
		Help:      "Duration of price refresh cycles.",
		Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
	})

	// MarketRequests counts market data API calls by endpoint and status class.
	MarketRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "coingecko",
		Name:      "requests_total",
		Help:      "Market data API requests by endpoint and status.",
	}, []string{"endpoint", "status"})

	// StorageErrors counts swallowed storage failures by operation.
	StorageErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "storage_errors_total",
		Help:      "Storage slot failures that were logged and dropped.",
	}, []string{"op"})
)

var registerOnce sync.Once

// MustRegisterMetrics registers all collectors with the given registerer (once per process).
func MustRegisterMetrics(reg prometheus.Registerer) {
	registerOnce.Do(func() {
		reg.MustRegister(
			PortfolioTotal,
			WatchlistSize,
			RefreshTotal,
			RefreshDuration,
			MarketRequests,
			StorageErrors,
		)
	})
}

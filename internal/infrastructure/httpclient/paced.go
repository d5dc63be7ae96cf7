package httpclient

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"token_portfolio/internal/app/port"
	"token_portfolio/internal/domain/entity"
)

// PacedClient spaces calls to the wrapped client at least interval apart.
// The limiter is shared by every method, so all paced calls form one queue.
type PacedClient struct {
	next    port.MarketDataClient
	limiter *rate.Limiter
}

// NewPacedClient wraps next with a limiter of one call per interval.
func NewPacedClient(next port.MarketDataClient, interval time.Duration) *PacedClient {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &PacedClient{next: next, limiter: rate.NewLimiter(limit, 1)}
}

func (p *PacedClient) wait(ctx context.Context, op string) error {
	if err := p.limiter.Wait(ctx); err != nil {
		return &entity.FetchError{Op: op, URL: "paced", Err: err}
	}
	return nil
}

func (p *PacedClient) GetMarketData(ctx context.Context, ids []string, includeSparkline bool) ([]entity.Token, error) {
	if err := p.wait(ctx, "markets"); err != nil {
		return nil, err
	}
	return p.next.GetMarketData(ctx, ids, includeSparkline)
}

func (p *PacedClient) GetTrending(ctx context.Context) ([]entity.TrendingToken, error) {
	if err := p.wait(ctx, "trending"); err != nil {
		return nil, err
	}
	return p.next.GetTrending(ctx)
}

func (p *PacedClient) Search(ctx context.Context, query string) ([]entity.SearchResult, error) {
	if err := p.wait(ctx, "search"); err != nil {
		return nil, err
	}
	return p.next.Search(ctx, query)
}

func (p *PacedClient) GetPriceHistory(ctx context.Context, id string, days int) ([]entity.PricePoint, error) {
	if err := p.wait(ctx, "market_chart"); err != nil {
		return nil, err
	}
	return p.next.GetPriceHistory(ctx, id, days)
}

func (p *PacedClient) GetCurrentPrices(ctx context.Context, ids []string) (map[string]entity.CurrentPrice, error) {
	if err := p.wait(ctx, "simple_price"); err != nil {
		return nil, err
	}
	return p.next.GetCurrentPrices(ctx, ids)
}

var _ port.MarketDataClient = (*PacedClient)(nil)

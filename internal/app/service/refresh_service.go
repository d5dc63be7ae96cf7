package service

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"token_portfolio/internal/app/port"
	"token_portfolio/internal/domain/entity"
	"token_portfolio/internal/pkg/metrics"
)

// RefreshFailedMessage is what the portfolio shows after a failed refresh.
const RefreshFailedMessage = "Failed to fetch updated prices from CoinGecko"

const refreshKey = "refresh"

// RefreshServiceImpl implements port.RefreshService.
type RefreshServiceImpl struct {
	portfolio port.PortfolioService
	market    port.MarketDataClient
	logger    port.Logger
	interval  time.Duration
	timeout   time.Duration

	group singleflight.Group

	mu      sync.Mutex
	state   entity.RefreshState
	message string
}

// NewRefreshService creates a refresh controller. market should be the paced client.
func NewRefreshService(
	portfolio port.PortfolioService,
	market port.MarketDataClient,
	l port.Logger,
	interval time.Duration,
	timeout time.Duration,
) port.RefreshService {
	if interval <= 0 {
		interval = time.Minute
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &RefreshServiceImpl{
		portfolio: portfolio,
		market:    market,
		logger:    l,
		interval:  interval,
		timeout:   timeout,
		state:     entity.RefreshIdle,
	}
}

// State returns the current state and, when failed, the failure message.
func (s *RefreshServiceImpl) State() (entity.RefreshState, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state, s.message
}

func (s *RefreshServiceImpl) setState(state entity.RefreshState, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
	s.message = message
}

// Refresh fetches prices for the whole watchlist and applies them.
// Overlapping calls share a single fetch. An empty watchlist is a no-op.
func (s *RefreshServiceImpl) Refresh(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.portfolio.Len() == 0 {
		metrics.RefreshTotal.WithLabelValues("skipped").Inc()
		s.logger.Debug("Refresh skipped: watchlist is empty")
		return nil
	}

	ch := s.group.DoChan(refreshKey, func() (any, error) {
		// The fetch outlives a cancelled caller; only the cycle timeout bounds it.
		cycleCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
		defer cancel()
		return nil, s.refreshOnce(cycleCtx)
	})

	select {
	case res := <-ch:
		if res.Shared {
			s.logger.Debug("Refresh joined an in-flight cycle")
		}
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *RefreshServiceImpl) refreshOnce(ctx context.Context) error {
	ids := s.portfolio.WatchlistIDs()
	if len(ids) == 0 {
		metrics.RefreshTotal.WithLabelValues("skipped").Inc()
		return nil
	}

	s.setState(entity.RefreshInProgress, "")
	s.portfolio.SetLoading(true)
	start := time.Now()

	tokens, err := s.market.GetMarketData(ctx, ids, true)
	metrics.RefreshDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		s.portfolio.SetError(RefreshFailedMessage)
		s.setState(entity.RefreshFailed, RefreshFailedMessage)
		metrics.RefreshTotal.WithLabelValues("failure").Inc()
		s.logger.Error("Price refresh failed", "tokens", len(ids), "error", err)
		return err
	}

	updates := make([]entity.PriceUpdate, 0, len(tokens))
	for _, t := range tokens {
		updates = append(updates, t.PriceUpdate())
	}
	s.portfolio.ApplyPriceUpdates(updates)
	s.setState(entity.RefreshIdle, "")
	metrics.RefreshTotal.WithLabelValues("success").Inc()
	s.logger.Info("Prices refreshed", "requested", len(ids), "received", len(updates),
		"duration", time.Since(start).String())
	return nil
}

func (s *RefreshServiceImpl) refreshAndLog(ctx context.Context) {
	if err := s.Refresh(ctx); err != nil && ctx.Err() == nil {
		s.logger.Warn("Scheduled refresh failed", "error", err)
	}
}

// Run refreshes immediately and then every interval until ctx is cancelled.
// The timer is re-armed after each cycle completes, and restarted with an immediate
// refresh whenever the watchlist size changes.
func (s *RefreshServiceImpl) Run(ctx context.Context) error {
	sizes, unsubscribe := s.portfolio.Subscribe()
	defer unsubscribe()

	s.logger.Info("Refresh loop started", "interval", s.interval.String())
	s.refreshAndLog(ctx)

	timer := time.NewTimer(s.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Refresh loop stopped")
			return nil
		case <-timer.C:
			s.refreshAndLog(ctx)
			timer.Reset(s.interval)
		case size, ok := <-sizes:
			if !ok {
				return nil
			}
			timer.Stop()
			s.logger.Debug("Watchlist size changed, restarting refresh timer", "size", size)
			if size > 0 {
				s.refreshAndLog(ctx)
			}
			timer.Reset(s.interval)
		}
	}
}

var _ port.RefreshService = (*RefreshServiceImpl)(nil)

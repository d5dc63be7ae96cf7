package service

import (
	"context"
	"errors"
	"strings"

	"github.com/patrickmn/go-cache"

	"token_portfolio/internal/app/port"
	"token_portfolio/internal/domain/entity"
	"token_portfolio/internal/infrastructure/configloader"
	"token_portfolio/internal/pkg/debounce"
	"token_portfolio/internal/pkg/utils"
)

const trendingCacheKey = "trending"

// tokenSearchServiceImpl implements port.TokenSearchService.
type tokenSearchServiceImpl struct {
	market    port.MarketDataClient
	portfolio port.PortfolioService
	logger    port.Logger
	cfg       configloader.SearchConfig
	cache     *cache.Cache
	debouncer *debounce.Debouncer
}

// NewTokenSearchService creates the token discovery service on top of the (paced) market client.
func NewTokenSearchService(
	market port.MarketDataClient,
	portfolio port.PortfolioService,
	l port.Logger,
	config *configloader.Config,
) port.TokenSearchService {
	ttl := config.SearchCacheTTL()
	return &tokenSearchServiceImpl{
		market:    market,
		portfolio: portfolio,
		logger:    l,
		cfg:       config.Search,
		cache:     cache.New(ttl, 2*ttl),
		debouncer: debounce.New(config.SearchDebounce()),
	}
}

func (s *tokenSearchServiceImpl) cached(key string) ([]entity.Token, bool) {
	v, ok := s.cache.Get(key)
	if !ok {
		return nil, false
	}
	return copyTokens(v.([]entity.Token)), true
}

// Trending returns market data for the hottest tokens, falling back to a fixed list when
// the trending endpoint is unavailable. Only real trending results are cached.
func (s *tokenSearchServiceImpl) Trending(ctx context.Context) ([]entity.Token, error) {
	if tokens, ok := s.cached(trendingCacheKey); ok {
		return tokens, nil
	}

	tokens, err := s.fetchTrending(ctx)
	if err == nil && len(tokens) > 0 {
		s.cache.SetDefault(trendingCacheKey, copyTokens(tokens))
		return tokens, nil
	}

	s.logger.Warn("Trending tokens unavailable, using fallback list", "error", err, "fallback", s.cfg.FallbackTrendingIDs)
	fallback, fbErr := s.market.GetMarketData(ctx, s.cfg.FallbackTrendingIDs, true)
	if fbErr != nil {
		s.logger.Error("Fallback token list also failed", "error", fbErr)
		if err != nil {
			return nil, err
		}
		return nil, fbErr
	}
	return fallback, nil
}

func (s *tokenSearchServiceImpl) fetchTrending(ctx context.Context) ([]entity.Token, error) {
	trending, err := s.market.GetTrending(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, s.cfg.TrendingLimit)
	for _, t := range trending {
		if len(ids) == s.cfg.TrendingLimit {
			break
		}
		ids = append(ids, t.ID)
	}
	if len(ids) == 0 {
		return []entity.Token{}, nil
	}
	return s.market.GetMarketData(ctx, ids, true)
}

// Search resolves a free-text query to market data for the best matches.
func (s *tokenSearchServiceImpl) Search(ctx context.Context, query string) ([]entity.Token, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []entity.Token{}, nil
	}
	key := "search:" + strings.ToLower(query)
	if tokens, ok := s.cached(key); ok {
		return tokens, nil
	}

	results, err := s.market.Search(ctx, query)
	if err != nil {
		s.logger.Error("Token search failed", "query", query, "error", err)
		return nil, err
	}
	ids := make([]string, 0, s.cfg.ResultLimit)
	for _, r := range results {
		if len(ids) == s.cfg.ResultLimit {
			break
		}
		ids = append(ids, r.ID)
	}

	tokens := []entity.Token{}
	if len(ids) > 0 {
		tokens, err = s.market.GetMarketData(ctx, ids, true)
		if err != nil {
			s.logger.Error("Market data for search results failed", "query", query, "error", err)
			return nil, err
		}
	}
	s.cache.SetDefault(key, copyTokens(tokens))
	s.logger.Debug("Token search completed", "query", query, "matches", len(results), "tokens", len(tokens))
	return tokens, nil
}

// SearchDebounced runs Search once the query has been stable for the debounce period.
// A blank query cancels any pending search and reports an empty result right away.
func (s *tokenSearchServiceImpl) SearchDebounced(query string, onResult func([]entity.Token, error)) {
	if strings.TrimSpace(query) == "" {
		s.debouncer.Cancel()
		onResult([]entity.Token{}, nil)
		return
	}
	s.debouncer.Trigger(func() {
		onResult(s.Search(context.Background(), query))
	})
}

// History returns the price series of a token; days <= 0 means the configured default.
func (s *tokenSearchServiceImpl) History(ctx context.Context, id string, days int) ([]entity.PricePoint, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, &entity.InputError{Field: "id", Input: id, Err: errors.New("token id is required")}
	}
	if days <= 0 {
		days = s.cfg.DefaultHistoryDays
	}
	return s.market.GetPriceHistory(ctx, id, days)
}

// AddByIDs looks up market data for ids not yet tracked and adds them to the watchlist.
// It returns the tokens that were added; unknown ids are ignored.
func (s *tokenSearchServiceImpl) AddByIDs(ctx context.Context, ids []string) ([]entity.Token, error) {
	tracked := make(map[string]struct{})
	for _, id := range s.portfolio.WatchlistIDs() {
		tracked[id] = struct{}{}
	}
	var missing []string
	for _, id := range utils.UniqueStrings(normalizeIDs(ids)) {
		if _, ok := tracked[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) == 0 {
		return []entity.Token{}, nil
	}

	tokens, err := s.market.GetMarketData(ctx, missing, true)
	if err != nil {
		s.logger.Error("Failed to fetch market data for new tokens", "ids", missing, "error", err)
		return nil, err
	}
	if len(tokens) < len(missing) {
		s.logger.Warn("Some token ids are unknown to the market data API", "requested", len(missing), "found", len(tokens))
	}
	s.portfolio.AddTokens(tokens)
	return tokens, nil
}

func normalizeIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, strings.ToLower(strings.TrimSpace(id)))
	}
	return out
}

func copyTokens(in []entity.Token) []entity.Token {
	out := make([]entity.Token, len(in))
	for i, t := range in {
		t.Sparkline7d = copyFloats(t.Sparkline7d)
		out[i] = t
	}
	return out
}

var _ port.TokenSearchService = (*tokenSearchServiceImpl)(nil)

package service

import (
	"math"
	"sync"
	"time"

	"token_portfolio/internal/app/port"
	"token_portfolio/internal/domain/entity"
	"token_portfolio/internal/pkg/metrics"
)

const (
	defaultPerPage = 6
	totalEpsilon   = 1e-6
)

// PortfolioServiceImpl implements port.PortfolioService.
// Every mutation runs to completion under mu and persists before releasing it.
type PortfolioServiceImpl struct {
	storage port.PortfolioStorage
	logger  port.Logger
	now     func() time.Time

	mu    sync.RWMutex
	state entity.PortfolioState

	subMu       sync.Mutex
	subscribers map[int]chan int
	nextSubID   int
}

// NewPortfolioService creates the portfolio state, hydrated from storage or seeded with the default watchlist.
// A nil clock means time.Now.
func NewPortfolioService(storage port.PortfolioStorage, l port.Logger, clock func() time.Time) port.PortfolioService {
	if clock == nil {
		clock = time.Now
	}
	s := &PortfolioServiceImpl{
		storage:     storage,
		logger:      l,
		now:         clock,
		subscribers: make(map[int]chan int),
	}
	s.state = s.hydrate()
	s.publishMetrics()
	l.Info("PortfolioService initialized", "tokens", len(s.state.Watchlist), "total", s.state.PortfolioTotal)
	return s
}

func (s *PortfolioServiceImpl) hydrate() entity.PortfolioState {
	var state entity.PortfolioState

	watchlist, ok := s.storage.LoadWatchlist()
	if ok {
		s.logger.Debug("Loaded watchlist from storage", "tokens", len(watchlist))
	} else {
		watchlist = entity.DefaultWatchlist()
		if holdings, found := s.storage.LoadHoldings(); found {
			for i := range watchlist {
				if h, exists := holdings[watchlist[i].ID]; exists {
					watchlist[i].Holdings = h
				}
			}
			s.logger.Info("No stored watchlist, seeded defaults with stored holdings", "holdings", len(holdings))
		} else {
			s.logger.Info("No stored watchlist, seeded default watchlist")
		}
	}

	watchlist = s.dropInvalidEntries(watchlist)

	recomputed := 0
	for i := range watchlist {
		e := &watchlist[i]
		e.Holdings = sanitize(e.Holdings)
		e.CurrentPrice = sanitize(e.CurrentPrice)
		if e.Sparkline7d == nil {
			e.Sparkline7d = []float64{}
		}
		value, ok := positionValue(e.Holdings, e.CurrentPrice)
		if !ok {
			s.logger.Warn("Stored holdings overflow position value, clamped to 0", "id", e.ID, "holdings", e.Holdings)
			e.Holdings = 0
		}
		if math.Abs(e.Value-value) > totalEpsilon {
			recomputed++
		}
		e.Value = value
	}
	if recomputed > 0 {
		s.logger.Warn("Recomputed stale position values", "entries", recomputed)
	}
	state.Watchlist = watchlist
	state.PortfolioTotal = s.boundedTotal(watchlist)

	if stored, found := s.storage.LoadPortfolioTotal(); found && math.Abs(stored-state.PortfolioTotal) > totalEpsilon {
		s.logger.Warn("Stored portfolio total disagrees with watchlist, using recomputed total",
			"stored", stored, "recomputed", state.PortfolioTotal)
	}
	if ts, found := s.storage.LoadLastUpdated(); found {
		state.LastUpdated = ts
	}
	return state
}

// dropInvalidEntries removes entries without an id and repeats of an id already seen.
func (s *PortfolioServiceImpl) dropInvalidEntries(watchlist []entity.WatchlistEntry) []entity.WatchlistEntry {
	seen := make(map[string]struct{}, len(watchlist))
	kept := watchlist[:0]
	for _, e := range watchlist {
		if e.ID == "" {
			continue
		}
		if _, dup := seen[e.ID]; dup {
			continue
		}
		seen[e.ID] = struct{}{}
		kept = append(kept, e)
	}
	if dropped := len(watchlist) - len(kept); dropped > 0 {
		s.logger.Warn("Dropped stored watchlist entries with empty or duplicate ids", "dropped", dropped, "kept", len(kept))
	}
	return kept
}

// positionValue returns holdings × price, or false when the product leaves float64 range.
func positionValue(holdings, price float64) (float64, bool) {
	v := holdings * price
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, false
	}
	return v, true
}

// boundedTotal sums entry values. While the sum overflows, the largest position
// loses its holdings.
func (s *PortfolioServiceImpl) boundedTotal(watchlist []entity.WatchlistEntry) float64 {
	total := sumValues(watchlist)
	for math.IsInf(total, 0) {
		largest := 0
		for i := range watchlist {
			if watchlist[i].Value > watchlist[largest].Value {
				largest = i
			}
		}
		s.logger.Warn("Portfolio total overflows, holdings clamped to 0",
			"id", watchlist[largest].ID, "value", watchlist[largest].Value)
		watchlist[largest].Holdings = 0
		watchlist[largest].Value = 0
		total = sumValues(watchlist)
	}
	return total
}

// sanitize clamps negative and non-finite quantities to 0.
func sanitize(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}

func sumValues(watchlist []entity.WatchlistEntry) float64 {
	total := 0.0
	for _, e := range watchlist {
		total += e.Value
	}
	return total
}

func (s *PortfolioServiceImpl) indexOf(id string) int {
	for i, e := range s.state.Watchlist {
		if e.ID == id {
			return i
		}
	}
	return -1
}

func (s *PortfolioServiceImpl) publishMetrics() {
	metrics.PortfolioTotal.Set(s.state.PortfolioTotal)
	metrics.WatchlistSize.Set(float64(len(s.state.Watchlist)))
}

// persist must be called with mu held.
func (s *PortfolioServiceImpl) persist() {
	holdings := make(map[string]float64, len(s.state.Watchlist))
	for _, e := range s.state.Watchlist {
		holdings[e.ID] = e.Holdings
	}
	s.storage.SaveWatchlist(s.state.Watchlist)
	s.storage.SaveHoldings(holdings)
	s.storage.SavePortfolioTotal(s.state.PortfolioTotal)
}

// AddTokens appends unseen tokens with zero holdings. Known IDs are skipped.
func (s *PortfolioServiceImpl) AddTokens(tokens []entity.Token) {
	s.mu.Lock()
	defer s.mu.Unlock()

	before := len(s.state.Watchlist)
	for _, t := range tokens {
		if t.ID == "" || s.indexOf(t.ID) >= 0 {
			continue
		}
		t.CurrentPrice = sanitize(t.CurrentPrice)
		t.Sparkline7d = copyFloats(t.Sparkline7d)
		s.state.Watchlist = append(s.state.Watchlist, entity.WatchlistEntry{Token: t})
	}
	added := len(s.state.Watchlist) - before
	// Nothing changed, so there is nothing to recompute or write.
	if added == 0 {
		s.logger.Debug("AddTokens: nothing new to add", "requested", len(tokens))
		return
	}

	s.state.PortfolioTotal = s.boundedTotal(s.state.Watchlist)
	s.persist()
	s.publishMetrics()
	s.notify(len(s.state.Watchlist))
	s.logger.Info("Added tokens to watchlist", "added", added, "size", len(s.state.Watchlist))
}

// RemoveToken drops the entry with the given id, if any.
func (s *PortfolioServiceImpl) RemoveToken(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		s.logger.Debug("RemoveToken: token not in watchlist", "id", id)
		return
	}
	s.state.Watchlist = append(s.state.Watchlist[:i:i], s.state.Watchlist[i+1:]...)
	s.state.PortfolioTotal = s.boundedTotal(s.state.Watchlist)
	s.persist()
	s.publishMetrics()
	s.notify(len(s.state.Watchlist))
	s.logger.Info("Removed token from watchlist", "id", id, "size", len(s.state.Watchlist))
}

// UpdateHoldings sets the holdings of an existing entry and recomputes its value.
func (s *PortfolioServiceImpl) UpdateHoldings(id string, holdings float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		s.logger.Debug("UpdateHoldings: token not in watchlist", "id", id)
		return
	}
	if clamped := sanitize(holdings); clamped != holdings {
		s.logger.Warn("UpdateHoldings: invalid holdings clamped to 0", "id", id, "holdings", holdings)
		holdings = clamped
	}
	e := &s.state.Watchlist[i]
	value, ok := positionValue(holdings, e.CurrentPrice)
	if !ok {
		s.logger.Warn("UpdateHoldings: holdings overflow position value, clamped to 0", "id", id, "holdings", holdings)
		holdings = 0
	}
	e.Holdings = holdings
	e.Value = value
	if math.IsInf(sumValues(s.state.Watchlist), 0) {
		s.logger.Warn("UpdateHoldings: holdings overflow portfolio total, clamped to 0", "id", id, "holdings", holdings)
		e.Holdings = 0
		e.Value = 0
	}
	s.state.PortfolioTotal = s.boundedTotal(s.state.Watchlist)
	s.persist()
	s.publishMetrics()
}

// ApplyPriceUpdates replaces price fields of matching entries, leaving the rest untouched.
func (s *PortfolioServiceImpl) ApplyPriceUpdates(updates []entity.PriceUpdate) {
	byID := make(map[string]entity.PriceUpdate, len(updates))
	for _, u := range updates {
		byID[u.ID] = u
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	matched := 0
	for i := range s.state.Watchlist {
		e := &s.state.Watchlist[i]
		u, ok := byID[e.ID]
		if !ok {
			continue
		}
		matched++
		price := sanitize(u.CurrentPrice)
		value, ok := positionValue(e.Holdings, price)
		if !ok {
			s.logger.Warn("Price update overflows position value, price clamped to 0", "id", e.ID, "price", price)
			price = 0
		}
		e.CurrentPrice = price
		e.PriceChangePercentage24h = u.PriceChangePercentage24h
		e.Sparkline7d = copyFloats(u.Sparkline7d)
		e.Value = value
	}
	if matched < len(s.state.Watchlist) {
		s.logger.Debug("Partial price update", "matched", matched, "watchlist", len(s.state.Watchlist))
	}

	s.state.PortfolioTotal = s.boundedTotal(s.state.Watchlist)
	s.state.LastUpdated = s.now()
	s.state.IsLoading = false
	s.persist()
	s.storage.SaveLastUpdated(s.state.LastUpdated)
	s.publishMetrics()
}

// SetLoading toggles the transient loading flag. Starting a load clears the previous error.
func (s *PortfolioServiceImpl) SetLoading(loading bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.IsLoading = loading
	if loading {
		s.state.Error = ""
	}
}

// SetError records a refresh failure and ends the loading state.
func (s *PortfolioServiceImpl) SetError(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Error = message
	s.state.IsLoading = false
}

// Snapshot returns a deep copy of the state.
func (s *PortfolioServiceImpl) Snapshot() entity.PortfolioState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := s.state
	snap.Watchlist = copyWatchlist(s.state.Watchlist)
	return snap
}

// WatchlistIDs returns the tracked ids in watchlist order.
func (s *PortfolioServiceImpl) WatchlistIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.state.Watchlist))
	for _, e := range s.state.Watchlist {
		ids = append(ids, e.ID)
	}
	return ids
}

// Len returns the watchlist size.
func (s *PortfolioServiceImpl) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.state.Watchlist)
}

// Allocation returns each entry's share of the total in percent (0 when the total is 0).
func (s *PortfolioServiceImpl) Allocation() []entity.AllocationSlice {
	s.mu.RLock()
	defer s.mu.RUnlock()

	slices := make([]entity.AllocationSlice, 0, len(s.state.Watchlist))
	for _, e := range s.state.Watchlist {
		pct := 0.0
		if s.state.PortfolioTotal > 0 {
			pct = e.Value / s.state.PortfolioTotal * 100
		}
		slices = append(slices, entity.AllocationSlice{
			ID:         e.ID,
			Symbol:     e.Symbol,
			Name:       e.Name,
			Value:      e.Value,
			Percentage: pct,
		})
	}
	return slices
}

// Page returns a window of the watchlist. Pages are 1-based; out-of-range pages are clamped.
func (s *PortfolioServiceImpl) Page(page, perPage int) entity.WatchlistPage {
	if perPage <= 0 {
		perPage = defaultPerPage
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	total := len(s.state.Watchlist)
	totalPages := (total + perPage - 1) / perPage
	if page > totalPages {
		page = totalPages
	}
	if page < 1 {
		page = 1
	}

	result := entity.WatchlistPage{
		Items:      []entity.WatchlistEntry{},
		Page:       page,
		PerPage:    perPage,
		TotalItems: total,
		TotalPages: totalPages,
	}
	if total == 0 {
		return result
	}
	start := (page - 1) * perPage
	end := min(start+perPage, total)
	result.Items = copyWatchlist(s.state.Watchlist[start:end])
	result.StartItem = start + 1
	result.EndItem = end
	return result
}

// Reset wipes storage and re-seeds the default watchlist.
func (s *PortfolioServiceImpl) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.storage.Clear()
	watchlist := entity.DefaultWatchlist()
	for i := range watchlist {
		watchlist[i].Value = watchlist[i].Holdings * watchlist[i].CurrentPrice
	}
	s.state = entity.PortfolioState{
		Watchlist:      watchlist,
		PortfolioTotal: sumValues(watchlist),
	}
	s.persist()
	s.publishMetrics()
	s.notify(len(s.state.Watchlist))
	s.logger.Info("Portfolio reset to default watchlist", "tokens", len(watchlist))
}

// Subscribe delivers the latest watchlist size after each change. Slow readers only see the newest size.
func (s *PortfolioServiceImpl) Subscribe() (<-chan int, func()) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	id := s.nextSubID
	s.nextSubID++
	ch := make(chan int, 1)
	s.subscribers[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.subMu.Lock()
			defer s.subMu.Unlock()
			delete(s.subscribers, id)
			close(ch)
		})
	}
	return ch, cancel
}

func (s *PortfolioServiceImpl) notify(size int) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range s.subscribers {
		select {
		case <-ch:
		default:
		}
		ch <- size
	}
}

func copyFloats(in []float64) []float64 {
	out := make([]float64, len(in))
	copy(out, in)
	return out
}

func copyWatchlist(in []entity.WatchlistEntry) []entity.WatchlistEntry {
	out := make([]entity.WatchlistEntry, len(in))
	for i, e := range in {
		e.Sparkline7d = copyFloats(e.Sparkline7d)
		out[i] = e
	}
	return out
}

var _ port.PortfolioService = (*PortfolioServiceImpl)(nil)

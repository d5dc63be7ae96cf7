package storage

import (
	"context"
	"errors"
	"time"

	jsoniter "github.com/json-iterator/go"

	"token_portfolio/internal/app/port"
	"token_portfolio/internal/domain/entity"
	"token_portfolio/internal/pkg/metrics"
	"token_portfolio/internal/pkg/utils"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	defaultNamespace = "token-portfolio"
	defaultOpTimeout = 5 * time.Second
	probeValue       = "__storage_test__"
)

// Keys are the slot names under one namespace.
type Keys struct {
	Watchlist   string
	Holdings    string
	LastUpdated string
	Total       string
	Wallet      string
	Probe       string
}

// KeysFor returns the slot keys for a namespace ("token-portfolio" -> "token-portfolio-watchlist", ...).
func KeysFor(namespace string) Keys {
	if namespace == "" {
		namespace = defaultNamespace
	}
	return Keys{
		Watchlist:   namespace + "-watchlist",
		Holdings:    namespace + "-holdings",
		LastUpdated: namespace + "-last-updated",
		Total:       namespace + "-total",
		Wallet:      namespace + "-wallet",
		Probe:       "__" + namespace + "_probe__",
	}
}

// Adapter implements port.PortfolioStorage over a KVBackend.
// Every slot is saved and loaded independently; failures are logged and swallowed.
type Adapter struct {
	backend   port.KVBackend
	logger    port.Logger
	keys      Keys
	opTimeout time.Duration
}

// NewAdapter creates a storage adapter for the given namespace.
func NewAdapter(backend port.KVBackend, namespace string, logger port.Logger) *Adapter {
	return &Adapter{
		backend:   backend,
		logger:    logger,
		keys:      KeysFor(namespace),
		opTimeout: defaultOpTimeout,
	}
}

// Keys exposes the slot keys, mostly for tests and diagnostics.
func (a *Adapter) Keys() Keys {
	return a.keys
}

func (a *Adapter) fail(op, key string, err error) {
	storageErr := &entity.StorageError{Op: op, Key: key, Err: err}
	metrics.StorageErrors.WithLabelValues(op).Inc()
	a.logger.Error("Storage operation failed", "op", op, "key", key, "error", storageErr)
}

func (a *Adapter) set(key, value string) {
	ctx, cancel := context.WithTimeout(context.Background(), a.opTimeout)
	defer cancel()
	if err := a.backend.Set(ctx, key, value); err != nil {
		a.fail("save", key, err)
	}
}

func (a *Adapter) get(key string) (string, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), a.opTimeout)
	defer cancel()
	value, err := a.backend.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, entity.ErrKeyNotFound) {
			a.fail("load", key, err)
		}
		return "", false
	}
	if value == "" {
		return "", false
	}
	return value, true
}

func (a *Adapter) saveJSON(key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		a.fail("save", key, err)
		return
	}
	a.set(key, string(data))
}

func (a *Adapter) loadJSON(key string, v any) bool {
	raw, ok := a.get(key)
	if !ok {
		return false
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		a.fail("load", key, err)
		return false
	}
	return true
}

// SaveWatchlist stores the watchlist as JSON.
func (a *Adapter) SaveWatchlist(watchlist []entity.WatchlistEntry) {
	if watchlist == nil {
		watchlist = []entity.WatchlistEntry{}
	}
	a.saveJSON(a.keys.Watchlist, watchlist)
}

// LoadWatchlist returns the stored watchlist, or false if absent or unreadable.
func (a *Adapter) LoadWatchlist() ([]entity.WatchlistEntry, bool) {
	var watchlist []entity.WatchlistEntry
	if !a.loadJSON(a.keys.Watchlist, &watchlist) {
		return nil, false
	}
	if watchlist == nil {
		watchlist = []entity.WatchlistEntry{}
	}
	return watchlist, true
}

// SaveHoldings stores the id -> holdings index as JSON.
func (a *Adapter) SaveHoldings(holdings map[string]float64) {
	if holdings == nil {
		holdings = map[string]float64{}
	}
	a.saveJSON(a.keys.Holdings, holdings)
}

// LoadHoldings returns the stored holdings index, or false if absent or unreadable.
func (a *Adapter) LoadHoldings() (map[string]float64, bool) {
	var holdings map[string]float64
	if !a.loadJSON(a.keys.Holdings, &holdings) || holdings == nil {
		return nil, false
	}
	return holdings, true
}

// SaveLastUpdated stores the refresh timestamp as RFC 3339.
func (a *Adapter) SaveLastUpdated(t time.Time) {
	a.set(a.keys.LastUpdated, t.UTC().Format(time.RFC3339Nano))
}

// LoadLastUpdated returns the stored refresh timestamp, or false if absent or unreadable.
func (a *Adapter) LoadLastUpdated() (time.Time, bool) {
	raw, ok := a.get(a.keys.LastUpdated)
	if !ok {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		a.fail("load", a.keys.LastUpdated, err)
		return time.Time{}, false
	}
	return t, true
}

// SavePortfolioTotal stores the total as a plain decimal string.
func (a *Adapter) SavePortfolioTotal(total float64) {
	raw, err := utils.FormatDecimal(total)
	if err != nil {
		a.fail("save", a.keys.Total, err)
		return
	}
	a.set(a.keys.Total, raw)
}

// LoadPortfolioTotal returns the stored total, or false if absent or unreadable.
func (a *Adapter) LoadPortfolioTotal() (float64, bool) {
	raw, ok := a.get(a.keys.Total)
	if !ok {
		return 0, false
	}
	total, err := utils.ParseDecimal(raw)
	if err != nil {
		a.fail("load", a.keys.Total, err)
		return 0, false
	}
	return total, true
}

// SaveWallet stores the connected wallet address.
func (a *Adapter) SaveWallet(address string) {
	a.set(a.keys.Wallet, address)
}

// LoadWallet returns the stored wallet address.
func (a *Adapter) LoadWallet() (string, bool) {
	return a.get(a.keys.Wallet)
}

// ClearWallet forgets the wallet address.
func (a *Adapter) ClearWallet() {
	a.delete(a.keys.Wallet)
}

func (a *Adapter) delete(key string) {
	ctx, cancel := context.WithTimeout(context.Background(), a.opTimeout)
	defer cancel()
	if err := a.backend.Delete(ctx, key); err != nil && !errors.Is(err, entity.ErrKeyNotFound) {
		a.fail("delete", key, err)
	}
}

// Clear removes every slot of the namespace.
func (a *Adapter) Clear() {
	for _, key := range []string{a.keys.Watchlist, a.keys.Holdings, a.keys.LastUpdated, a.keys.Total, a.keys.Wallet} {
		a.delete(key)
	}
}

// IsAvailable probes the backend with a throwaway write and delete.
func (a *Adapter) IsAvailable() bool {
	ctx, cancel := context.WithTimeout(context.Background(), a.opTimeout)
	defer cancel()
	if err := a.backend.Set(ctx, a.keys.Probe, probeValue); err != nil {
		a.logger.Warn("Storage is not available", "error", &entity.StorageError{Op: "probe", Key: a.keys.Probe, Err: err})
		return false
	}
	if err := a.backend.Delete(ctx, a.keys.Probe); err != nil {
		a.logger.Warn("Storage is not available", "error", &entity.StorageError{Op: "probe", Key: a.keys.Probe, Err: err})
		return false
	}
	return true
}

var _ port.PortfolioStorage = (*Adapter)(nil)

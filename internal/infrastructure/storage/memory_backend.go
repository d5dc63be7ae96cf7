package storage

import (
	"context"

	"github.com/patrickmn/go-cache"

	"token_portfolio/internal/app/port"
	"token_portfolio/internal/domain/entity"
)

// MemoryBackend keeps slots in process memory. Nothing survives a restart.
type MemoryBackend struct {
	items *cache.Cache
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{items: cache.New(cache.NoExpiration, 0)}
}

func (m *MemoryBackend) Get(_ context.Context, key string) (string, error) {
	v, ok := m.items.Get(key)
	if !ok {
		return "", entity.ErrKeyNotFound
	}
	return v.(string), nil
}

func (m *MemoryBackend) Set(_ context.Context, key, value string) error {
	m.items.Set(key, value, cache.NoExpiration)
	return nil
}

func (m *MemoryBackend) Delete(_ context.Context, key string) error {
	m.items.Delete(key)
	return nil
}

func (m *MemoryBackend) Close() error {
	m.items.Flush()
	return nil
}

var _ port.KVBackend = (*MemoryBackend)(nil)

package storage

import (
	"context"
	"fmt"

	"token_portfolio/internal/app/port"
	"token_portfolio/internal/infrastructure/configloader"
)

// Open creates the backend selected by the storage configuration.
func Open(ctx context.Context, cfg configloader.StorageConfig) (port.KVBackend, error) {
	switch cfg.Driver {
	case "sqlite":
		return OpenSQLite(ctx, cfg.DSN)
	case "postgres":
		return OpenPostgres(ctx, cfg.DSN)
	case "redis":
		return OpenRedis(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	case "memory":
		return NewMemoryBackend(), nil
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.Driver)
	}
}

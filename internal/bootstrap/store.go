package bootstrap

import (
	"context"
	"fmt"

	"github.com/kivabase/kivabase-backend/config"
	"github.com/kivabase/kivabase-backend/internal/storage"
)

// OpenStore connects the configured storage backend and verifies it is
// reachable before the server starts taking requests.
func OpenStore(ctx context.Context, cfg config.StorageConfig) (storage.Store, error) {
	switch cfg.Backend {
	case "redis":
		return storage.OpenRedis(ctx, storage.RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
	case "postgres":
		return storage.OpenPostgres(ctx, storage.PostgresOptions{
			DSN: cfg.PostgresDSN,
		})
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

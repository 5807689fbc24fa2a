package cmd

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"qualifier-bot/internal/config"
	"qualifier-bot/internal/storage"
)

// openStore открывает хранилище по конфигурации. Если хранилище недоступно,
// бот продолжает работать в памяти.
func openStore(ctx context.Context, cfg config.StorageConfig, logger *zap.Logger) storage.Store {
	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	store, err := newStore(ctx, cfg)
	if err != nil {
		logger.Error("storage unavailable, falling back to memory store",
			zap.String("driver", cfg.Driver), zap.Error(err))
		return storage.NewMemoryStore()
	}

	logger.Info("storage opened", zap.String("driver", cfg.Driver))
	return store
}

func newStore(ctx context.Context, cfg config.StorageConfig) (storage.Store, error) {
	switch cfg.Driver {
	case "memory":
		return storage.NewMemoryStore(), nil
	case "redis":
		return storage.NewRedisStore(ctx, storage.RedisOptions{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.Prefix,
		})
	case "postgres", "sqlite":
		return storage.NewSQLStore(ctx, cfg.Driver, cfg.DSN)
	}
	return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
}

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/fracto-health/fracto/libs/db"
	"github.com/fracto-health/fracto/services/booking-service/internal/config"
	"github.com/fracto-health/fracto/services/booking-service/internal/storage"
	"github.com/fracto-health/fracto/services/booking-service/internal/storage/postgres"
	"github.com/fracto-health/fracto/services/booking-service/internal/storage/sqlite"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type backend struct {
	store    storage.Store
	migrator *db.Migrator
}

func openBackend(ctx context.Context, cfg config.Config, logger *zap.Logger) (*backend, error) {
	switch cfg.StorageDriver {
	case config.DriverPostgres:
		pool, err := db.Open(ctx, cfg.DatabaseURL, db.PoolOptions{MaxConns: cfg.DBMaxConns, MinConns: cfg.DBMinConns})
		if err != nil {
			return nil, fmt.Errorf("db connection failed: %w", err)
		}
		m, err := postgres.NewMigrator(pool, logger)
		if err != nil {
			pool.Close()
			return nil, err
		}
		logger.Info("storage ready", zap.String("driver", cfg.StorageDriver))
		return &backend{store: postgres.New(pool), migrator: m}, nil

	case config.DriverSQLite:
		s, err := sqlite.Open(cfg.SQLitePath, logger)
		if err != nil {
			return nil, err
		}
		m, err := s.NewMigrator(logger)
		if err != nil {
			_ = s.Close()
			return nil, err
		}
		logger.Info("storage ready", zap.String("driver", cfg.StorageDriver), zap.String("path", cfg.SQLitePath))
		return &backend{store: s, migrator: m}, nil
	}
	return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
}

// openRedis returns nil when REDIS_ADDR is unset. An unreachable server is
// logged but kept: the cache and limiter degrade on their own.
func openRedis(ctx context.Context, cfg config.Config, logger *zap.Logger) *redis.Client {
	if cfg.RedisAddr == "" {
		return nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		logger.Warn("redis unreachable at startup", zap.String("addr", cfg.RedisAddr), zap.Error(err))
	}
	return rdb
}

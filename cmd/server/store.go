package main

import (
	"context"
	"fmt"

	"github.com/soaringjerry/epds/internal/api"
	"github.com/soaringjerry/epds/internal/config"
	"github.com/soaringjerry/epds/internal/db"
	"github.com/soaringjerry/epds/internal/platform/logger"
)

func openStore(ctx context.Context, cfg config.Config, log *logger.Logger) (api.Store, error) {
	switch cfg.SessionBackend {
	case config.BackendMemory:
		return api.NewMemoryStore(cfg.SessionTTL), nil
	case config.BackendSQLite:
		log.Info("using sqlite session store", "dsn", cfg.SQLitePath)
		s, err := db.OpenSQLite(cfg.SQLitePath, cfg.MigrationsDir, cfg.SessionTTL)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.BackendRedis:
		log.Info("using redis session store", "addr", cfg.RedisAddr)
		s, err := db.OpenRedis(ctx, db.RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Prefix:   cfg.RedisPrefix,
			TTL:      cfg.SessionTTL,
		})
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown session backend %q", cfg.SessionBackend)
	}
}

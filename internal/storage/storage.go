// Package storage selects the batch result store named by configuration.
package storage

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/skirmish/internal/config"
	"github.com/cory-johannsen/skirmish/internal/game/batch"
	"github.com/cory-johannsen/skirmish/internal/storage/postgres"
	"github.com/cory-johannsen/skirmish/internal/storage/sqlite"
)

// Open returns the ResultStore for cfg.Storage.Backend. The postgres backend
// migrates the schema before returning.
//
// Precondition: cfg has passed Validate.
// Postcondition: the caller owns the store and must Close it.
func Open(ctx context.Context, cfg config.Config, logger *zap.Logger) (batch.ResultStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	start := time.Now()
	switch cfg.Storage.Backend {
	case "memory", "":
		logger.Info("using in-memory batch store")
		return batch.NewMemoryStore(), nil
	case "sqlite":
		store, err := sqlite.Open(cfg.Storage.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite store: %w", err)
		}
		logger.Info("sqlite batch store opened",
			zap.String("path", cfg.Storage.SQLitePath),
			zap.Duration("elapsed", time.Since(start)),
		)
		return store, nil
	case "postgres":
		if err := postgres.MigrateUp(cfg.Database.DSN()); err != nil {
			return nil, err
		}
		pool, err := postgres.NewPool(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		total, idle := pool.Conns()
		logger.Info("database connected",
			zap.String("host", cfg.Database.Host),
			zap.Int("port", cfg.Database.Port),
			zap.String("database", cfg.Database.Name),
			zap.String("application_name", cfg.Database.ApplicationName),
			zap.Int32("conns", total),
			zap.Int32("idle_conns", idle),
			zap.Duration("elapsed", time.Since(start)),
		)
		return postgres.NewBatchStore(pool), nil
	}
	return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
}

package app

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/sapsync/internal/storage/postgres"
)

// initPostgres открывает хранилище результатов, если задан DSN.
// Если DSN задан, недоступная база возвращает ошибку.
func initPostgres(ctx context.Context, cfg Config, logger *log.Entry) (*postgres.Store, error) {
	if !cfg.PostgresEnabled() {
		return nil, nil
	}

	store, err := postgres.Open(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("init postgres: %w", err)
	}
	if cfg.PostgresAutoMigrate {
		if err := store.EnsureSchema(ctx); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("apply postgres migrations: %w", err)
		}
		logger.Info("postgres migrations applied")
	}

	logger.Info("postgres result store initialized")
	return store, nil
}

func closePostgres(store *postgres.Store, logger *log.Entry) {
	if store == nil {
		return
	}
	if err := store.Close(); err != nil {
		logger.WithError(err).Warn("failed to close postgres store")
	}
}

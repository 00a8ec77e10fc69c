package repository

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/foxseedlab/mensetsu/internal/config"
	"github.com/foxseedlab/mensetsu/internal/repository"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/do/v2"
)

const databaseInitTimeout = 15 * time.Second

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (repository.Repository, error) {
		cfg := do.MustInvoke[*config.Config](i)
		switch cfg.StorageBackend {
		case config.StorageBackendSQLite:
			r, err := NewSQLiteRepository(cfg.SQLitePath)
			if err != nil {
				return nil, fmt.Errorf("failed to open sqlite database: %w", err)
			}
			slog.Info("using sqlite storage", "path", cfg.SQLitePath)
			return r, nil
		default:
			return newPostgres(cfg.DatabaseURL)
		}
	})
}

func newPostgres(databaseURL string) (repository.Repository, error) {
	ctx, cancel := context.WithTimeout(context.Background(), databaseInitTimeout)
	defer cancel()

	p, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}
	if err := p.Ping(ctx); err != nil {
		p.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if err := RunMigration(ctx, p); err != nil {
		p.Close()
		return nil, fmt.Errorf("failed to run migration: %w", err)
	}
	slog.Info("using postgres storage")
	return NewPostgresRepository(p), nil
}

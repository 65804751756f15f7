package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	importservice "github.com/FACorreiaa/ledger-import/internal/domain/importing/service"
	"github.com/FACorreiaa/ledger-import/internal/domain/ledger"
	"github.com/FACorreiaa/ledger-import/pkg/config"
)

// Dependencies holds all application dependencies
type Dependencies struct {
	Config *config.Config
	Pool   *pgxpool.Pool
	Logger *slog.Logger

	Store         *ledger.PostgresStore
	ImportService *importservice.ImportService
}

// InitDependencies initializes all application dependencies
func InitDependencies(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	if err := deps.initDatabase(ctx); err != nil {
		return nil, fmt.Errorf("failed to init database: %w", err)
	}

	if err := deps.initServices(); err != nil {
		return nil, fmt.Errorf("failed to init services: %w", err)
	}

	logger.Info("all dependencies initialized successfully")

	return deps, nil
}

// initDatabase connects the pool and runs migrations
func (d *Dependencies) initDatabase(ctx context.Context) error {
	poolCfg, err := pgxpool.ParseConfig(d.Config.Database.DSN())
	if err != nil {
		return fmt.Errorf("failed to parse database config: %w", err)
	}
	poolCfg.MaxConns = 10
	poolCfg.MaxConnLifetime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}
	d.Pool = pool

	if err := ledger.Migrate(d.Config.Database.DSN()); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	d.Store = ledger.NewPostgresStore(pool)
	d.Logger.Info("database connected and migrations completed successfully")
	return nil
}

// initServices wires the import pipeline over the store
func (d *Dependencies) initServices() error {
	location, err := time.LoadLocation(d.Config.Import.Timezone)
	if err != nil {
		return fmt.Errorf("failed to load timezone %q: %w", d.Config.Import.Timezone, err)
	}

	d.ImportService = importservice.NewImportService(d.Store, d.Store, importservice.Options{
		Logger:         d.Logger,
		Location:       location,
		MatchThreshold: d.Config.Import.MatchThreshold,
	})

	d.Logger.Info("services initialized")
	return nil
}

// Cleanup closes all resources
func (d *Dependencies) Cleanup() {
	if d.Pool != nil {
		d.Pool.Close()
	}
	d.Logger.Info("cleanup completed")
}

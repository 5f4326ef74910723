package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SscSPs/ledgerflow/internal/adapters/database/memory"
	"github.com/SscSPs/ledgerflow/internal/adapters/database/pgsql"
	portsrepo "github.com/SscSPs/ledgerflow/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/ledgerflow/internal/core/ports/services"
	"github.com/SscSPs/ledgerflow/internal/core/services"
	"github.com/SscSPs/ledgerflow/internal/platform/config"
	"github.com/SscSPs/ledgerflow/internal/platform/logging"
	"github.com/SscSPs/ledgerflow/pkg/database"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("Failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Initialize structured logger
	logger := logging.New(cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize storage", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer closeStore()

	svc := services.NewServiceContainer(store, services.WithRemittanceKeyScheme(cfg.RemittanceKeyScheme))

	logger.Info("Ledgerflow started",
		slog.String("remittance_key_scheme", string(cfg.RemittanceKeyScheme)),
		slog.Duration("reconcile_interval", cfg.ReconcileInterval),
		slog.Bool("production", cfg.IsProduction))

	runReconciler(logging.WithLogger(ctx, logger), svc.Reconciliation, cfg.ReconcileInterval)
	logger.Info("Ledgerflow stopped")
}

// openStore connects to PostgreSQL, or falls back to the in-memory store
// outside production when no database URL is configured.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (portsrepo.Store, func(), error) {
	if cfg.DatabaseURL == "" {
		logger.Warn("PGSQL_URL not set, using the in-memory store. Nothing will be persisted.")
		store, err := memory.New()
		return store, func() {}, err
	}

	if cfg.RunMigrations {
		logger.Info("Running database migrations...")
		if err := pgsql.Migrate(cfg.DatabaseURL, logger); err != nil {
			return nil, nil, err
		}
	}

	dbPool, err := database.NewPgxPool(ctx, database.PoolConfig{
		DatabaseURL: cfg.DatabaseURL,
		MaxConns:    cfg.DBMaxConns,
		Ping:        cfg.EnableDBCheck,
	}, logger)
	if err != nil {
		return nil, nil, err
	}
	closePool := func() { database.ClosePgxPool(dbPool, logger) }

	store := pgsql.NewStore(dbPool)
	if err := store.VerifySchema(ctx); err != nil {
		closePool()
		return nil, nil, err
	}
	return store, closePool, nil
}

// runReconciler runs a pass right away and then on every tick until ctx is done.
func runReconciler(ctx context.Context, reconciler portssvc.ReconciliationSvc, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := reconciler.Reconcile(ctx); err != nil && ctx.Err() == nil {
			logging.FromContext(ctx).Error("Reconciliation pass failed", slog.String("error", err.Error()))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

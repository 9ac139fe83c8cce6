package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/congo-pay/xrp_wallet/internal/config"
	"github.com/congo-pay/xrp_wallet/internal/infra"
	"github.com/congo-pay/xrp_wallet/internal/logging"
	"github.com/congo-pay/xrp_wallet/internal/server"
	"github.com/congo-pay/xrp_wallet/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel, cfg.LogFormat)

	if err := run(context.Background(), cfg, logger, openInfra); err != nil {
		logger.Error("wallet service stopped", "error", err)
		os.Exit(1)
	}
	logger.Info("server exited cleanly")
}

type infraOpener func(context.Context, config.Config, *slog.Logger) (server.Infra, func(), error)

// run owns the infrastructure lifetime; every return path releases it.
func run(ctx context.Context, cfg config.Config, logger *slog.Logger, open infraOpener) error {
	deps, cleanup, err := open(ctx, cfg, logger)
	defer cleanup()
	if err != nil {
		return fmt.Errorf("open infrastructure: %w", err)
	}

	srv, err := server.New(cfg, deps, logger)
	if err != nil {
		return fmt.Errorf("build server: %w", err)
	}
	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("start wallet: %w", err)
	}

	srvErrCh := make(chan error, 1)
	go func() {
		srvErrCh <- srv.Listen()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-srvErrCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownPeriod)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// openInfra connects the account store backend plus Redis when configured.
// Redis also backs payment idempotency and rate limiting, so it is opened
// whenever REDIS_URL is set, whatever the store backend.
func openInfra(ctx context.Context, cfg config.Config, logger *slog.Logger) (server.Infra, func(), error) {
	var (
		deps    server.Infra
		closers []func()
	)
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if cfg.RedisURL != "" {
		cache, err := infra.NewRedisClient(ctx, cfg.RedisURL, cfg.AppName)
		if err != nil {
			return deps, cleanup, err
		}
		deps.Cache = cache
		closers = append(closers, func() {
			if err := cache.Close(); err != nil {
				logger.Warn("close redis", "error", err)
			}
		})
	}

	switch cfg.StoreBackend {
	case config.BackendMemory:
		logger.Warn("accounts are kept in memory and lost on restart")
		deps.Store = storage.NewMemory()
	case config.BackendRedis:
		deps.Store = storage.NewRedis(deps.Cache, "")
	case config.BackendSQLite:
		db, err := infra.OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return deps, cleanup, err
		}
		closers = append(closers, closeSQL(db, logger))
		if deps.Store, err = storage.NewSQLite(ctx, db); err != nil {
			return deps, cleanup, err
		}
	case config.BackendPostgres:
		pool, err := infra.NewPostgresPool(ctx, cfg.DatabaseURL, cfg.AppName)
		if err != nil {
			return deps, cleanup, err
		}
		deps.DB = pool
		closers = append(closers, pool.Close)
		if deps.Store, err = storage.NewPostgres(ctx, pool); err != nil {
			return deps, cleanup, err
		}
	default:
		return deps, cleanup, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}

	logger.Info("account store ready", "backend", cfg.StoreBackend)
	return deps, cleanup, nil
}

func closeSQL(db *sql.DB, logger *slog.Logger) func() {
	return func() {
		if err := db.Close(); err != nil {
			logger.Warn("close sqlite", "error", err)
		}
	}
}

// Package server provides the main server initialization and run logic.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nebari-dev/rolestore/internal/api"
	"github.com/nebari-dev/rolestore/internal/api/handlers"
	"github.com/nebari-dev/rolestore/internal/config"
	"github.com/nebari-dev/rolestore/internal/db"
	"github.com/nebari-dev/rolestore/internal/logger"
	"github.com/nebari-dev/rolestore/internal/rbac"
	"golang.org/x/sync/errgroup"
)

// Config holds the server configuration options.
type Config struct {
	Port    int    // Port to run the server on (0 = use config default)
	Version string // Version string to report
}

// Run starts the server with the given configuration and blocks until the context is canceled.
func Run(ctx context.Context, cfg Config) error {
	// Set version in handlers
	if cfg.Version != "" {
		handlers.Version = cfg.Version
	}

	// Load configuration
	appCfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Override port from CLI flag if provided
	if cfg.Port != 0 {
		appCfg.Server.Port = cfg.Port
	}

	// Initialize logger
	logger.Init(appCfg.Log.Format, appCfg.Log.Level)
	slog.Info("Starting rolestore server", "version", cfg.Version, "mode", appCfg.Server.Mode)

	pool := db.NewPool(appCfg.Database)
	defer func() {
		if err := pool.Close(); err != nil {
			slog.Error("Failed to close database", "error", err)
		}
	}()

	if err := Serve(ctx, appCfg, pool); err != nil {
		return err
	}

	slog.Info("rolestore exited")
	return nil
}

// Serve runs the HTTP API on appCfg.Server.Port until ctx is canceled or
// the listener fails. The pool is opened here but left for the caller to close.
func Serve(ctx context.Context, appCfg *config.Config, pool *db.Pool) error {
	database, err := pool.DB()
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	var enforcer *rbac.Enforcer
	if appCfg.RBAC.Enabled {
		enforcer, err = rbac.NewEnforcer(database, slog.Default())
		if err != nil {
			return fmt.Errorf("failed to initialize RBAC: %w", err)
		}
	}

	router := api.NewRouter(appCfg, database, enforcer)
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", appCfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("Server listening", "address", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		slog.Info("Server stopped")
		return nil
	})

	return g.Wait()
}

// RunWithSignalHandling starts the server and handles OS signals for graceful shutdown.
func RunWithSignalHandling(cfg Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return Run(ctx, cfg)
}

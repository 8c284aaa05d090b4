package main

import (
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/nebari-dev/rolestore/internal/config"
	"github.com/nebari-dev/rolestore/internal/db"
	"github.com/nebari-dev/rolestore/internal/logger"
	"gorm.io/gorm"
)

var (
	poolMu    sync.Mutex
	pool      *db.Pool
	appConfig *config.Config
)

// openDatabase returns the shared handle for data commands, creating the
// pool from config on first use.
func openDatabase() (*gorm.DB, error) {
	poolMu.Lock()
	defer poolMu.Unlock()

	if pool == nil {
		cfg, err := config.Load()
		if err != nil {
			return nil, fmt.Errorf("failed to load configuration: %w", err)
		}
		// Command output owns stdout: logs go to stderr and gorm's SQL
		// trace, which always writes to stdout, is limited to errors.
		slog.SetDefault(logger.New(os.Stderr, cfg.Log.Format, cfg.Log.Level))
		cfg.Database.LogLevel = "error"
		pool = db.NewPool(cfg.Database)
		appConfig = cfg
	}
	return pool.DB()
}

// rbacEnabled reports whether the loaded config mirrors role assignments
// into casbin. Only valid after openDatabase.
func rbacEnabled() bool {
	poolMu.Lock()
	defer poolMu.Unlock()
	return appConfig != nil && appConfig.RBAC.Enabled
}

// closeDatabase releases the pool if a command opened it.
func closeDatabase() error {
	poolMu.Lock()
	defer poolMu.Unlock()

	if pool == nil {
		return nil
	}
	err := pool.Close()
	pool = nil
	appConfig = nil
	return err
}

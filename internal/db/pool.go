package db

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/nebari-dev/rolestore/internal/config"
	"gorm.io/gorm"
)

// ErrPoolClosed is returned by Pool.DB after Close.
var ErrPoolClosed = errors.New("database pool closed")

// Pool is the process-wide database handle. The connection is opened and
// migrated on the first call to DB and released by Close.
type Pool struct {
	cfg config.DatabaseConfig

	mu     sync.Mutex
	db     *gorm.DB
	closed bool
}

// NewPool returns a pool that has not connected yet.
func NewPool(cfg config.DatabaseConfig) *Pool {
	return &Pool{cfg: cfg}
}

// DB returns the shared connection, opening it if needed. A failed open is
// not cached, so a later call retries.
func (p *Pool) DB() (*gorm.DB, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, ErrPoolClosed
	}
	if p.db != nil {
		return p.db, nil
	}

	database, err := New(p.cfg)
	if err != nil {
		return nil, err
	}
	if err := Migrate(database); err != nil {
		if sqlDB, dbErr := database.DB(); dbErr == nil {
			sqlDB.Close()
		}
		return nil, err
	}

	slog.Info("Database initialized", "driver", p.cfg.Driver)
	p.db = database
	return p.db, nil
}

// Close releases the underlying connections. Safe to call more than once,
// and on a pool that never connected.
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true

	if p.db == nil {
		return nil
	}
	sqlDB, err := p.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}
	p.db = nil
	slog.Info("Database connections closed")
	return sqlDB.Close()
}

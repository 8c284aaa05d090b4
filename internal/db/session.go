package db

import (
	"context"

	"gorm.io/gorm"
)

// WithSession runs fn against a fresh session bound to ctx. Reads only;
// nothing is committed.
func WithSession(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	return fn(db.WithContext(ctx).Session(&gorm.Session{}))
}

// WithTx runs fn inside a transaction bound to ctx. The transaction commits
// when fn returns nil and rolls back on error or panic.
func WithTx(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	return db.WithContext(ctx).Transaction(fn)
}

// Package dbgorm is the reference persistence driver: implements
// contracts.Database on top of GORM, generalized from the teacher's
// contrib/database/gorm.Driver. Where the teacher's driver exposes
// generic CRUD (Create/FindByID/...), this one exposes exactly the unit
// of work the messaging core needs: Transaction(ctx, isolation, fn),
// with the active *gorm.DB carried on ctx so repositories never need a
// tx parameter threaded through every call (spec.md §6 UnitOfWork
// contract).
package dbgorm

import (
	"context"
	"database/sql"
	"fmt"

	"gorm.io/gorm"
)

type ctxKey struct{}

// Driver implements contracts.Database using GORM.
type Driver struct {
	db *gorm.DB
}

// New creates a new GORM-backed driver.
func New(db *gorm.DB) *Driver {
	return &Driver{db: db}
}

// DB returns the *gorm.DB scoped to ctx: the open transaction if
// Transaction is in progress on this context, otherwise the base
// connection. Repository implementations call this instead of taking a
// *gorm.DB parameter.
func (d *Driver) DB(ctx context.Context) *gorm.DB {
	if tx, ok := ctx.Value(ctxKey{}).(*gorm.DB); ok {
		return tx
	}
	return d.db.WithContext(ctx)
}

// Transaction runs fn inside a transaction at the given isolation
// level. Commits on a nil return from fn, rolls back otherwise —
// including on panic, which is re-raised after rollback.
func (d *Driver) Transaction(ctx context.Context, isolation sql.IsolationLevel, fn func(ctx context.Context) error) error {
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txCtx := context.WithValue(ctx, ctxKey{}, tx)
		return fn(txCtx)
	}, &sql.TxOptions{Isolation: isolation})
}

func (d *Driver) Ping(ctx context.Context) error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return fmt.Errorf("dbgorm: ping: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

func (d *Driver) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return fmt.Errorf("dbgorm: close: %w", err)
	}
	return sqlDB.Close()
}

// AutoMigrate runs GORM's schema migration for the given models. Used
// at startup for the reference SQLite/Postgres deployment; callers
// backing a different store manage their own schema.
func (d *Driver) AutoMigrate(models ...any) error {
	return d.db.AutoMigrate(models...)
}

package contracts

import (
	"context"
	"database/sql"
)

// Database is the unit-of-work contract that drivers/dbgorm.Driver
// satisfies. The Outbox Publisher (C7), the Consumer Dispatch Engine
// (C8) and the idempotency stores take *dbgorm.Driver itself rather
// than this interface, since their repositories read the open
// transaction back out through Driver.DB. Generalized from the
// teacher's core/pkg/transaction helpers: instead of a bare *sql.Tx, the
// transaction is carried on the context so repositories can pick it up
// without a parameter threaded through every call.
type Database interface {
	// Transaction runs fn inside a new transaction at the given
	// isolation level. fn's context carries the transaction; repository
	// implementations must read it back out (see drivers/dbgorm).
	// Commits on a nil return, rolls back otherwise.
	Transaction(ctx context.Context, isolation sql.IsolationLevel, fn func(ctx context.Context) error) error

	Ping(ctx context.Context) error
	Close() error
}

package contracts

import (
	"context"
	"time"
)

// Cache is the generic cache interface consumed by the distributed lock
// (C4) and by cache invalidation in the Consumer Dispatch Engine (C8).
// Implementations: Redis (drivers/cacheredis), in-memory fake for tests.
type Cache interface {
	// Delete removes a key. Used by cache invalidation after a handler
	// commits (spec.md §4.8 step 6).
	Delete(ctx context.Context, key string) error

	// SetIfNotExists sets key to value only if key does not already
	// exist, returning true if the set happened. This is the primitive
	// the Distributed Lock (C4) is built on.
	SetIfNotExists(ctx context.Context, key, value string, ttl time.Duration) (bool, error)

	// Ping checks connectivity.
	Ping(ctx context.Context) error

	// Close releases underlying resources.
	Close() error
}

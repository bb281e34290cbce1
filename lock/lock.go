// Package lock is the Distributed Lock (C4): a cluster-wide mutex built
// on a cache SET-IF-NOT-EXISTS primitive, used only by the Outbox
// Publisher (C7) to serialize per-event publish across instances
// (spec.md §4.4). Not a general critical-section primitive — callers
// must tolerate a lost lock on TTL expiry mid-work (spec.md §9 Open
// Questions).
package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/madcok-co/messagingcore/contracts"
)

// KeyForEvent builds the lock key spec.md §3 specifies: "LockEventId-{eventId}".
func KeyForEvent(eventID string) string {
	return fmt.Sprintf("LockEventId-%s", eventID)
}

// Locker is the two-operation contract spec.md §4.4 defines.
type Locker interface {
	// Acquire succeeds only if key did not already exist, returning
	// false (not an error) when another holder already owns it.
	Acquire(ctx context.Context, key, value string) (bool, error)

	// Release is idempotent: releasing a key nobody holds is not an
	// error.
	Release(ctx context.Context, key string) error
}

// CacheLocker implements Locker on top of any contracts.Cache backend
// (Redis in production — drivers/cacheredis — via SET NX, mirroring the
// teacher's contrib/cache/redis.Driver.Lock).
type CacheLocker struct {
	cache contracts.Cache
	ttl   time.Duration
}

// DefaultTTL bounds how long a lock survives a crashed holder. Chosen
// generously relative to one outbox pass; a shorter TTL trades
// publish-duplication risk for faster recovery from a dead instance.
const DefaultTTL = 2 * time.Minute

// New creates a CacheLocker with the default TTL.
func New(cache contracts.Cache) *CacheLocker {
	return NewWithTTL(cache, DefaultTTL)
}

// NewWithTTL creates a CacheLocker with a custom TTL.
func NewWithTTL(cache contracts.Cache, ttl time.Duration) *CacheLocker {
	return &CacheLocker{cache: cache, ttl: ttl}
}

func (l *CacheLocker) Acquire(ctx context.Context, key, value string) (bool, error) {
	ok, err := l.cache.SetIfNotExists(ctx, key, value, l.ttl)
	if err != nil {
		return false, fmt.Errorf("lock: acquire %q: %w", key, err)
	}
	return ok, nil
}

func (l *CacheLocker) Release(ctx context.Context, key string) error {
	if err := l.cache.Delete(ctx, key); err != nil {
		return fmt.Errorf("lock: release %q: %w", key, err)
	}
	return nil
}

var _ Locker = (*CacheLocker)(nil)

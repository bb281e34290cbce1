// Package cacheredis implements contracts.Cache on top of Redis,
// generalized from the teacher's contrib/cache/redis.Driver. Narrowed
// to the primitive the Distributed Lock (C4) and cache-invalidation
// step of the Consumer Dispatch Engine (C8) actually need:
// SET-IF-NOT-EXISTS and Delete.
package cacheredis

import (
	"context"
	"time"

	"github.com/madcok-co/messagingcore/contracts"
	"github.com/redis/go-redis/v9"
)

// Driver implements contracts.Cache using Redis.
type Driver struct {
	client *redis.Client
	prefix string
}

// Option configures the Driver.
type Option func(*Driver)

// WithPrefix namespaces all keys under prefix, so one Redis instance
// can back multiple services without key collisions.
func WithPrefix(prefix string) Option {
	return func(d *Driver) { d.prefix = prefix }
}

// New creates a Redis-backed Driver.
func New(client *redis.Client, opts ...Option) *Driver {
	d := &Driver{client: client}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Client returns the underlying Redis client.
func (d *Driver) Client() *redis.Client {
	return d.client
}

func (d *Driver) key(k string) string {
	if d.prefix == "" {
		return k
	}
	return d.prefix + ":" + k
}

// SetIfNotExists is Redis SET NX — the primitive the Distributed Lock
// (C4) builds Acquire on.
func (d *Driver) SetIfNotExists(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	return d.client.SetNX(ctx, d.key(key), value, ttl).Result()
}

func (d *Driver) Delete(ctx context.Context, key string) error {
	return d.client.Del(ctx, d.key(key)).Err()
}

func (d *Driver) Ping(ctx context.Context) error {
	return d.client.Ping(ctx).Err()
}

func (d *Driver) Close() error {
	return d.client.Close()
}

var _ contracts.Cache = (*Driver)(nil)

// Package testutil holds in-memory fakes for contracts.Cache/Logger,
// mirroring the teacher's core/pkg/adapters/broker/memory in-memory
// broker: enough behavior to drive the messaging core's test suite
// without live infrastructure.
package testutil

import (
	"context"
	"sync"
	"time"
)

// Cache is an in-memory contracts.Cache fake.
type Cache struct {
	mu      sync.Mutex
	entries map[string]string
	deleted []string
}

func NewCache() *Cache {
	return &Cache{entries: make(map[string]string)}
}

func (c *Cache) SetIfNotExists(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.entries[key]; exists {
		return false, nil
	}
	c.entries[key] = value
	return true, nil
}

func (c *Cache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	c.deleted = append(c.deleted, key)
	return nil
}

func (c *Cache) Ping(ctx context.Context) error { return nil }
func (c *Cache) Close() error                   { return nil }

// Deleted returns every key ever passed to Delete, in order.
func (c *Cache) Deleted() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.deleted))
	copy(out, c.deleted)
	return out
}

// Has reports whether key is currently set.
func (c *Cache) Has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[key]
	return ok
}

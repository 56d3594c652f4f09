package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Cache is a typed, thread-safe TTL cache. A non-positive TTL disables it:
// every Get misses and Set is a no-op.
type Cache[V any] struct {
	store *gocache.Cache
	ttl   time.Duration
}

// New creates a cache whose entries expire after ttl and are swept every cleanupInterval
func New[V any](ttl, cleanupInterval time.Duration) *Cache[V] {
	if cleanupInterval <= 0 {
		cleanupInterval = time.Minute
	}
	return &Cache[V]{
		store: gocache.New(ttl, cleanupInterval),
		ttl:   ttl,
	}
}

// Enabled reports whether entries are retained at all
func (c *Cache[V]) Enabled() bool {
	return c.ttl > 0
}

// TTL returns the configured entry lifetime
func (c *Cache[V]) TTL() time.Duration {
	return c.ttl
}

// Get retrieves a value from the cache if it exists and hasn't expired
func (c *Cache[V]) Get(key string) (V, bool) {
	var zero V
	if !c.Enabled() {
		return zero, false
	}
	raw, found := c.store.Get(key)
	if !found {
		return zero, false
	}
	value, ok := raw.(V)
	if !ok {
		return zero, false
	}
	return value, true
}

// Set stores a value with the default TTL
func (c *Cache[V]) Set(key string, value V) {
	if !c.Enabled() {
		return
	}
	c.store.Set(key, value, gocache.DefaultExpiration)
}

// Delete removes a key from the cache
func (c *Cache[V]) Delete(key string) {
	c.store.Delete(key)
}

// Clear removes all entries from the cache
func (c *Cache[V]) Clear() {
	c.store.Flush()
}

// Size returns the number of entries in the cache, including expired
// entries not yet swept
func (c *Cache[V]) Size() int {
	return c.store.ItemCount()
}

// internal/cache/ttl.go
//
// Tiny TTL memo cache used by the directory service to serve repeated
// admission-cycle listings without hitting Postgres.  No external deps;
// good for a handful of keys.
package cache

import (
	"sync"
	"time"
)

type item struct {
	val     any
	expires time.Time
}

// TTL is a thread-safe map whose entries expire after a fixed duration.
// Expired entries are dropped lazily on read; writers overwrite freely.
type TTL struct {
	ttl  time.Duration
	mu   sync.Mutex
	dict map[string]item
}

// New returns a TTL cache.  Panics on ttl <= 0.
func New(ttl time.Duration) *TTL {
	if ttl <= 0 {
		panic("cache: ttl must be positive")
	}
	return &TTL{
		ttl:  ttl,
		dict: make(map[string]item, 4),
	}
}

// Get retrieves a live value, or (nil, false) when absent or expired.
func (c *TTL) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	it, ok := c.dict[key]
	if !ok {
		return nil, false
	}
	if time.Now().After(it.expires) {
		delete(c.dict, key)
		return nil, false
	}
	return it.val, true
}

// Set inserts or refreshes a value with a full TTL.
func (c *TTL) Set(key string, val any) {
	c.mu.Lock()
	c.dict[key] = item{val: val, expires: time.Now().Add(c.ttl)}
	c.mu.Unlock()
}

// Invalidate drops one key, typically after a write made it stale.
func (c *TTL) Invalidate(key string) {
	c.mu.Lock()
	delete(c.dict, key)
	c.mu.Unlock()
}

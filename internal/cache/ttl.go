// Package cache provides a small TTL cache for response payloads.
package cache

import (
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// TTLCache is an LRU-backed cache whose entries expire after a per-entry TTL.
// Expired entries are dropped lazily on Get.
type TTLCache[V any] struct {
	lru   *lru.Cache[string, entry[V]]
	clock func() time.Time
}

// NewTTLCache creates a cache holding at most size entries.
func NewTTLCache[V any](size int) (*TTLCache[V], error) {
	c, err := lru.New[string, entry[V]](size)
	if err != nil {
		return nil, err
	}
	return &TTLCache[V]{
		lru:   c,
		clock: func() time.Time { return time.Now().UTC() },
	}, nil
}

// WithClock sets a custom clock. Used by tests.
func (c *TTLCache[V]) WithClock(clock func() time.Time) *TTLCache[V] {
	c.clock = clock
	return c
}

// Get returns the cached value for key if present and unexpired.
func (c *TTLCache[V]) Get(key string) (V, bool) {
	var zero V
	e, ok := c.lru.Get(key)
	if !ok {
		return zero, false
	}
	if !c.clock().Before(e.expiresAt) {
		c.lru.Remove(key)
		return zero, false
	}
	return e.value, true
}

// Set stores value under key with the given TTL.
func (c *TTLCache[V]) Set(key string, value V, ttl time.Duration) {
	c.lru.Add(key, entry[V]{value: value, expiresAt: c.clock().Add(ttl)})
}

// Package common provides small shared service utilities.
package common

import (
	"sync"
	"time"
)

// TTLCache is an in-memory cache with per-entry expiry and an injected
// clock. It replaces ambient module-level caches: each owner holds its
// own instance and controls invalidation explicitly.
type TTLCache[V any] struct {
	mu         sync.RWMutex
	data       map[string]ttlEntry[V]
	defaultTTL time.Duration
	now        func() time.Time
}

type ttlEntry[V any] struct {
	value     V
	expiresAt time.Time
}

// NewTTLCache creates a cache with the given default TTL. A nil clock
// defaults to time.Now.
func NewTTLCache[V any](defaultTTL time.Duration, clock func() time.Time) *TTLCache[V] {
	if clock == nil {
		clock = time.Now
	}
	return &TTLCache[V]{
		data:       make(map[string]ttlEntry[V]),
		defaultTTL: defaultTTL,
		now:        clock,
	}
}

// Get returns the cached value for key, if present and unexpired.
func (c *TTLCache[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	entry, ok := c.data[key]
	c.mu.RUnlock()

	if !ok || c.now().After(entry.expiresAt) {
		var zero V
		return zero, false
	}
	return entry.value, true
}

// Put stores value under key with the default TTL.
func (c *TTLCache[V]) Put(key string, value V) {
	c.PutTTL(key, value, c.defaultTTL)
}

// PutTTL stores value under key with an explicit TTL.
func (c *TTLCache[V]) PutTTL(key string, value V, ttl time.Duration) {
	c.mu.Lock()
	c.data[key] = ttlEntry[V]{value: value, expiresAt: c.now().Add(ttl)}
	c.mu.Unlock()
}

// Invalidate removes key from the cache.
func (c *TTLCache[V]) Invalidate(key string) {
	c.mu.Lock()
	delete(c.data, key)
	c.mu.Unlock()
}

// InvalidateAll empties the cache.
func (c *TTLCache[V]) InvalidateAll() {
	c.mu.Lock()
	c.data = make(map[string]ttlEntry[V])
	c.mu.Unlock()
}

// Package cache provides thread-safe caching with TTL support
package cache

import (
	"sync"
	"time"
)

// entry holds a cached value with expiration
type entry[V any] struct {
	value      V
	expiration time.Time
}

// TTLCache is an in-memory map whose entries expire a fixed TTL after they
// are written. Expired entries are dropped lazily on access or by Prune
type TTLCache[V any] struct {
	entries map[string]entry[V]
	mu      sync.RWMutex
	ttl     time.Duration
	now     func() time.Time
}

// Option customizes a TTLCache
type Option func(*config)

type config struct {
	now func() time.Time
}

// WithClock replaces the wall clock used for expiry
func WithClock(now func() time.Time) Option {
	return func(c *config) {
		c.now = now
	}
}

// New creates a new cache with the specified TTL
func New[V any](ttl time.Duration, opts ...Option) *TTLCache[V] {
	cfg := config{now: time.Now}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &TTLCache[V]{
		entries: make(map[string]entry[V]),
		ttl:     ttl,
		now:     cfg.now,
	}
}

// TTL returns how long entries live
func (c *TTLCache[V]) TTL() time.Duration {
	return c.ttl
}

// Get retrieves a value from cache if not expired
func (c *TTLCache[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	e, exists := c.entries[key]
	c.mu.RUnlock()

	var zero V
	if !exists {
		return zero, false
	}
	if !c.now().Before(e.expiration) {
		c.mu.Lock()
		// Double-check after lock upgrade; a fresh Set may have landed
		if cur, ok := c.entries[key]; ok && !c.now().Before(cur.expiration) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return zero, false
	}
	return e.value, true
}

// Set stores a value in cache with TTL, replacing any previous entry whole
func (c *TTLCache[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = entry[V]{
		value:      value,
		expiration: c.now().Add(c.ttl),
	}
}

// Delete removes a key
func (c *TTLCache[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Clear removes every entry
func (c *TTLCache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]entry[V])
}

// Prune removes expired entries and returns how many were dropped
func (c *TTLCache[V]) Prune() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for key, e := range c.entries {
		if !now.Before(e.expiration) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of stored entries, including expired ones not yet
// pruned
func (c *TTLCache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

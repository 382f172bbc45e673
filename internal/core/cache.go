package core

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Clock returns the current time. Tests substitute a manual clock.
type Clock func() time.Time

// CacheEntry represents a cached item with its validity window
type CacheEntry[V any] struct {
	Value     V
	StoredAt  time.Time
	ExpiresAt time.Time
}

// ValidAt reports whether the entry may still be served at now.
func (e *CacheEntry[V]) ValidAt(now time.Time) bool {
	return now.Before(e.ExpiresAt)
}

// CacheStats is a point-in-time view of cache counters
type CacheStats struct {
	Hits      uint64
	Misses    uint64
	Evictions uint64
	Size      int
}

type cacheOptions struct {
	clock Clock
}

// CacheOption configures a MemoryCache
type CacheOption func(*cacheOptions)

// WithCacheClock replaces time.Now as the cache's time source.
func WithCacheClock(clock Clock) CacheOption {
	return func(o *cacheOptions) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// MemoryCache is a TTL cache with lazy expiry and a capacity bound.
// Expired entries are dropped when read; StartJanitor sweeps the rest.
type MemoryCache[K comparable, V any] struct {
	data       map[K]*CacheEntry[V]
	mutex      sync.Mutex
	defaultTTL time.Duration
	maxSize    int
	clock      Clock

	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64
}

// NewMemoryCache creates a cache. maxSize <= 0 falls back to 1000 entries.
func NewMemoryCache[K comparable, V any](defaultTTL time.Duration, maxSize int, opts ...CacheOption) *MemoryCache[K, V] {
	if maxSize <= 0 {
		maxSize = 1000
	}
	o := cacheOptions{clock: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	return &MemoryCache[K, V]{
		data:       make(map[K]*CacheEntry[V]),
		defaultTTL: defaultTTL,
		maxSize:    maxSize,
		clock:      o.clock,
	}
}

// Get retrieves a value if present and not expired.
func (c *MemoryCache[K, V]) Get(key K) (V, bool) {
	entry, ok := c.Entry(key)
	return entry.Value, ok
}

// Entry retrieves the stored entry including its timestamps.
func (c *MemoryCache[K, V]) Entry(key K) (CacheEntry[V], bool) {
	now := c.clock()

	c.mutex.Lock()
	entry, exists := c.data[key]
	if exists && !entry.ValidAt(now) {
		delete(c.data, key)
		c.evictions.Add(1)
		exists = false
	}
	c.mutex.Unlock()

	if !exists {
		c.misses.Add(1)
		return CacheEntry[V]{}, false
	}
	c.hits.Add(1)
	return *entry, true
}

// Set stores a value with the default TTL.
func (c *MemoryCache[K, V]) Set(key K, value V) bool {
	return c.SetWithTTL(key, value, c.defaultTTL)
}

// SetWithTTL stores a value that expires after ttl. A still-valid entry that
// expires later than the new one is kept, and false is returned.
func (c *MemoryCache[K, V]) SetWithTTL(key K, value V, ttl time.Duration) bool {
	if ttl <= 0 {
		return false
	}
	now := c.clock()
	return c.set(key, CacheEntry[V]{Value: value, StoredAt: now, ExpiresAt: now.Add(ttl)}, now)
}

// SetEntry stores an entry with the timestamps it already carries, for
// entries reloaded from persistent storage. Expired entries are rejected and
// the same keep-the-longer-lived rule as SetWithTTL applies.
func (c *MemoryCache[K, V]) SetEntry(key K, entry CacheEntry[V]) bool {
	now := c.clock()
	if !entry.ValidAt(now) {
		return false
	}
	return c.set(key, entry, now)
}

func (c *MemoryCache[K, V]) set(key K, entry CacheEntry[V], now time.Time) bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if existing, ok := c.data[key]; ok {
		if existing.ValidAt(now) && existing.ExpiresAt.After(entry.ExpiresAt) {
			return false
		}
	} else if len(c.data) >= c.maxSize {
		c.evictLocked(now)
	}

	c.data[key] = &entry
	return true
}

// Delete removes a key from cache
func (c *MemoryCache[K, V]) Delete(key K) {
	c.mutex.Lock()
	delete(c.data, key)
	c.mutex.Unlock()
}

// Clear removes all entries
func (c *MemoryCache[K, V]) Clear() {
	c.mutex.Lock()
	c.data = make(map[K]*CacheEntry[V])
	c.mutex.Unlock()
}

// Len returns the number of stored entries, expired ones included.
func (c *MemoryCache[K, V]) Len() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return len(c.data)
}

// Stats returns cache statistics
func (c *MemoryCache[K, V]) Stats() CacheStats {
	return CacheStats{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
		Size:      c.Len(),
	}
}

// Cleanup removes expired entries and returns how many were dropped.
func (c *MemoryCache[K, V]) Cleanup() int {
	now := c.clock()

	c.mutex.Lock()
	defer c.mutex.Unlock()

	removed := 0
	for key, entry := range c.data {
		if !entry.ValidAt(now) {
			delete(c.data, key)
			removed++
		}
	}
	c.evictions.Add(uint64(removed))
	return removed
}

// StartJanitor sweeps expired entries every interval until ctx is done.
func (c *MemoryCache[K, V]) StartJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.Cleanup()
			}
		}
	}()
}

// evictLocked makes room for one entry: expired entries go first, then the
// entry closest to expiry.
func (c *MemoryCache[K, V]) evictLocked(now time.Time) {
	for key, entry := range c.data {
		if !entry.ValidAt(now) {
			delete(c.data, key)
			c.evictions.Add(1)
		}
	}
	if len(c.data) < c.maxSize {
		return
	}

	var (
		oldestKey K
		oldest    time.Time
		found     bool
	)
	for key, entry := range c.data {
		if !found || entry.ExpiresAt.Before(oldest) {
			oldestKey, oldest, found = key, entry.ExpiresAt, true
		}
	}
	if found {
		delete(c.data, oldestKey)
		c.evictions.Add(1)
	}
}

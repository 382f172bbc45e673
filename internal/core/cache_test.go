package core_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vampirenirmal/codeorc/internal/core"
)

type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func newManualClock() *manualClock {
	return &manualClock{now: time.Unix(0, 0)}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestMemoryCacheExpiry(t *testing.T) {
	clock := newManualClock()
	cache := core.NewMemoryCache[string, string](time.Minute, 10, core.WithCacheClock(clock.Now))

	require.True(t, cache.SetWithTTL("fp", "result", 1000*time.Millisecond))

	clock.Advance(500 * time.Millisecond)
	got, ok := cache.Get("fp")
	require.True(t, ok)
	assert.Equal(t, "result", got)

	clock.Advance(1000 * time.Millisecond)
	_, ok = cache.Get("fp")
	assert.False(t, ok)
	assert.Equal(t, 0, cache.Len(), "expired entry is purged on read")

	stats := cache.Stats()
	assert.Equal(t, uint64(1), stats.Hits)
	assert.Equal(t, uint64(1), stats.Misses)
	assert.Equal(t, uint64(1), stats.Evictions)
}

func TestMemoryCacheExpiresExactlyAtDeadline(t *testing.T) {
	clock := newManualClock()
	cache := core.NewMemoryCache[string, int](time.Second, 10, core.WithCacheClock(clock.Now))
	cache.Set("k", 1)

	clock.Advance(time.Second)
	_, ok := cache.Get("k")
	assert.False(t, ok)
}

func TestMemoryCacheEntryTimestamps(t *testing.T) {
	clock := newManualClock()
	cache := core.NewMemoryCache[string, int](time.Second, 10, core.WithCacheClock(clock.Now))
	cache.Set("k", 7)

	entry, ok := cache.Entry("k")
	require.True(t, ok)
	assert.Equal(t, time.Unix(0, 0), entry.StoredAt)
	assert.Equal(t, time.Unix(1, 0), entry.ExpiresAt)
	assert.True(t, entry.ExpiresAt.After(entry.StoredAt))
}

func TestMemoryCacheNeverDegradesValidEntry(t *testing.T) {
	clock := newManualClock()
	cache := core.NewMemoryCache[string, string](time.Minute, 10, core.WithCacheClock(clock.Now))

	require.True(t, cache.SetWithTTL("fp", "fresh", 10*time.Second))
	assert.False(t, cache.SetWithTTL("fp", "stale", time.Second), "shorter-lived write must not replace a longer-lived entry")

	got, _ := cache.Get("fp")
	assert.Equal(t, "fresh", got)

	assert.True(t, cache.SetWithTTL("fp", "refreshed", 20*time.Second))
	got, _ = cache.Get("fp")
	assert.Equal(t, "refreshed", got)

	clock.Advance(30 * time.Second)
	assert.True(t, cache.SetWithTTL("fp", "after-expiry", time.Second))
}

func TestMemoryCacheSetEntryKeepsTimestamps(t *testing.T) {
	clock := newManualClock()
	clock.Advance(5 * time.Second)
	cache := core.NewMemoryCache[string, string](time.Minute, 10, core.WithCacheClock(clock.Now))

	persisted := core.CacheEntry[string]{Value: "saved", StoredAt: time.Unix(2, 0), ExpiresAt: time.Unix(20, 0)}
	require.True(t, cache.SetEntry("fp", persisted))

	entry, ok := cache.Entry("fp")
	require.True(t, ok)
	assert.Equal(t, persisted, entry)

	assert.False(t, cache.SetEntry("fp", core.CacheEntry[string]{Value: "older", StoredAt: time.Unix(1, 0), ExpiresAt: time.Unix(10, 0)}))
	assert.False(t, cache.SetEntry("gone", core.CacheEntry[string]{Value: "x", ExpiresAt: time.Unix(5, 0)}), "expired entries are rejected")
	assert.Equal(t, 1, cache.Len())
}

func TestMemoryCacheRejectsNonPositiveTTL(t *testing.T) {
	cache := core.NewMemoryCache[string, int](0, 10)
	assert.False(t, cache.Set("k", 1))
	assert.False(t, cache.SetWithTTL("k", 1, -time.Second))
	assert.Equal(t, 0, cache.Len())
}

func TestMemoryCacheCapacityEvictsSoonestExpiry(t *testing.T) {
	clock := newManualClock()
	cache := core.NewMemoryCache[string, int](time.Minute, 2, core.WithCacheClock(clock.Now))

	cache.SetWithTTL("short", 1, time.Second)
	cache.SetWithTTL("long", 2, time.Hour)
	cache.SetWithTTL("new", 3, time.Minute)

	_, ok := cache.Get("short")
	assert.False(t, ok)
	_, ok = cache.Get("long")
	assert.True(t, ok)
	_, ok = cache.Get("new")
	assert.True(t, ok)
	assert.Equal(t, 2, cache.Len())
}

func TestMemoryCacheCleanup(t *testing.T) {
	clock := newManualClock()
	cache := core.NewMemoryCache[string, int](time.Minute, 10, core.WithCacheClock(clock.Now))

	for i := 0; i < 3; i++ {
		cache.SetWithTTL(fmt.Sprintf("short-%d", i), i, time.Second)
	}
	cache.SetWithTTL("long", 9, time.Hour)

	clock.Advance(2 * time.Second)
	assert.Equal(t, 3, cache.Cleanup())
	assert.Equal(t, 1, cache.Len())
}

func TestMemoryCacheJanitor(t *testing.T) {
	clock := newManualClock()
	cache := core.NewMemoryCache[string, int](time.Minute, 10, core.WithCacheClock(clock.Now))
	cache.SetWithTTL("k", 1, time.Second)
	clock.Advance(2 * time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	cache.StartJanitor(ctx, 5*time.Millisecond)

	assert.Eventually(t, func() bool { return cache.Len() == 0 }, time.Second, 5*time.Millisecond)
}

func TestMemoryCacheConcurrentAccess(t *testing.T) {
	cache := core.NewMemoryCache[int, int](time.Minute, 50)

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				cache.Set(i%64, w)
				cache.Get(i % 64)
			}
		}(w)
	}
	wg.Wait()

	assert.LessOrEqual(t, cache.Len(), 50)
}

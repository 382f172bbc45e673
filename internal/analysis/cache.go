package analysis

import (
	"context"
	"time"

	"github.com/vampirenirmal/codeorc/internal/core"
	domain "github.com/vampirenirmal/codeorc/internal/domain/analysis"
)

// Cache maps source fingerprints to analysis results. Results are copied on
// the way in and out so cached values cannot be mutated by callers.
type Cache struct {
	entries *core.MemoryCache[string, domain.AnalysisResult]
}

// NewCache creates a cache holding at most maxEntries results. A nil clock
// means time.Now.
func NewCache(maxEntries int, clock core.Clock) *Cache {
	if clock == nil {
		clock = time.Now
	}
	return &Cache{
		entries: core.NewMemoryCache[string, domain.AnalysisResult](0, maxEntries, core.WithCacheClock(clock)),
	}
}

// Get returns the result for fp unless it is missing or expired.
func (c *Cache) Get(fp string) (domain.AnalysisResult, bool) {
	r, ok := c.entries.Get(fp)
	if !ok {
		return domain.AnalysisResult{}, false
	}
	return r.Clone(), true
}

// Entry returns the result with its validity window.
func (c *Cache) Entry(fp string) (domain.CachedAnalysis, bool) {
	e, ok := c.entries.Entry(fp)
	if !ok {
		return domain.CachedAnalysis{}, false
	}
	return domain.CachedAnalysis{
		Result:    e.Value.Clone(),
		Timestamp: e.StoredAt,
		ExpiresAt: e.ExpiresAt,
	}, true
}

// Put stores result for ttl. It returns false when ttl is not positive or a
// still-valid entry for fp already outlives the new one.
func (c *Cache) Put(fp string, result domain.AnalysisResult, ttl time.Duration) bool {
	return c.entries.SetWithTTL(fp, result.Clone(), ttl)
}

// Restore loads a persisted entry, keeping its original timestamp and
// expiry. Expired entries are ignored.
func (c *Cache) Restore(fp string, entry domain.CachedAnalysis) bool {
	return c.entries.SetEntry(fp, core.CacheEntry[domain.AnalysisResult]{
		Value:     entry.Result.Clone(),
		StoredAt:  entry.Timestamp,
		ExpiresAt: entry.ExpiresAt,
	})
}

func (c *Cache) Invalidate(fp string) {
	c.entries.Delete(fp)
}

func (c *Cache) StartJanitor(ctx context.Context, interval time.Duration) {
	c.entries.StartJanitor(ctx, interval)
}

func (c *Cache) Stats() core.CacheStats {
	return c.entries.Stats()
}

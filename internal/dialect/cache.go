package dialect

import (
	"fmt"
	"sync"

	"github.com/maypok86/otter"
	"golang.org/x/sync/singleflight"
)

// DefaultCacheCapacity bounds the rewritten statements kept per dialect.
const DefaultCacheCapacity = 10_000

// RewriteCache memoizes Dialect.Rewrite per dialect and raw SQL. Concurrent
// misses on the same key share one computation; a key is stored at most once.
type RewriteCache struct {
	capacity int

	mu     sync.RWMutex
	caches map[string]otter.Cache[string, string]

	group singleflight.Group
}

// NewRewriteCache creates a cache holding up to capacity statements per
// dialect. A non-positive capacity uses DefaultCacheCapacity.
func NewRewriteCache(capacity int) *RewriteCache {
	if capacity <= 0 {
		capacity = DefaultCacheCapacity
	}
	return &RewriteCache{capacity: capacity, caches: map[string]otter.Cache[string, string]{}}
}

// forDialect returns the cache of one dialect, creating it on first use.
func (c *RewriteCache) forDialect(name string) (otter.Cache[string, string], error) {
	c.mu.RLock()
	cache, ok := c.caches[name]
	c.mu.RUnlock()
	if ok {
		return cache, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if cache, ok := c.caches[name]; ok {
		return cache, nil
	}
	cache, err := otter.MustBuilder[string, string](c.capacity).Build()
	if err != nil {
		return cache, fmt.Errorf("failed to create rewrite cache for %s: %w", name, err)
	}
	c.caches[name] = cache
	return cache, nil
}

// Rewrite returns d.Rewrite(sql), computing it at most once per cached key.
func (c *RewriteCache) Rewrite(d Dialect, sql string) (string, error) {
	cache, err := c.forDialect(d.Name())
	if err != nil {
		return "", err
	}
	if rewritten, ok := cache.Get(sql); ok {
		return rewritten, nil
	}

	value, err, _ := c.group.Do(d.Name()+"\x00"+sql, func() (any, error) {
		if rewritten, ok := cache.Get(sql); ok {
			return rewritten, nil
		}
		rewritten := d.Rewrite(sql)
		cache.SetIfAbsent(sql, rewritten)
		return rewritten, nil
	})
	if err != nil {
		return "", err
	}
	return value.(string), nil
}

// Len returns the number of statements cached for a dialect.
func (c *RewriteCache) Len(dialect string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if cache, ok := c.caches[dialect]; ok {
		return cache.Size()
	}
	return 0
}

// Close releases every per-dialect cache.
func (c *RewriteCache) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for name, cache := range c.caches {
		cache.Close()
		delete(c.caches, name)
	}
}

// Package cache holds cached GET responses for the reference data routes.
// It uses patrickmn/go-cache for TTL-based expiry.
package cache

import (
	"strings"
	"sync"
	"sync/atomic"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Keys of the cached reference listings.
const (
	KeyCanonicalValues = "reference:canonical"
	KeyDimensions      = "reference:dimensions"
	// PrefixReference covers every reference listing.
	PrefixReference = "reference:"
)

// Cache wraps go-cache and counts hits and misses.
//
// Every invalidation bumps a generation. A reader that loads data after a
// miss stores it with Fill, passing the generation it saw before loading,
// so a listing read before a write cannot outlive that write's
// invalidation.
type Cache struct {
	store  *gocache.Cache
	hits   atomic.Int64
	misses atomic.Int64

	mu         sync.Mutex
	generation uint64
}

// New creates a cache whose entries expire after defaultTTL. Expired
// entries are purged every cleanupInterval.
func New(defaultTTL, cleanupInterval time.Duration) *Cache {
	return &Cache{
		store: gocache.New(defaultTTL, cleanupInterval),
	}
}

// Get retrieves a value from the cache.
func (c *Cache) Get(key string) (any, bool) {
	v, ok := c.store.Get(key)
	if ok {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	return v, ok
}

// Set stores a value with the default TTL.
func (c *Cache) Set(key string, value any) {
	c.store.Set(key, value, gocache.DefaultExpiration)
}

// Generation returns the current invalidation generation.
func (c *Cache) Generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation
}

// Fill stores value under key unless the cache was invalidated since
// generation was read. It reports whether the value was stored.
func (c *Cache) Fill(key string, value any, generation uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if generation != c.generation {
		return false
	}
	c.store.Set(key, value, gocache.DefaultExpiration)
	return true
}

// SetWithTTL stores a value with a custom TTL.
func (c *Cache) SetWithTTL(key string, value any, ttl time.Duration) {
	c.store.Set(key, value, ttl)
}

// Delete removes a value from the cache.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	c.store.Delete(key)
}

// DeletePrefix removes every key starting with prefix and reports how many
// were removed.
func (c *Cache) DeletePrefix(prefix string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	n := 0
	for key := range c.store.Items() {
		if strings.HasPrefix(key, prefix) {
			c.store.Delete(key)
			n++
		}
	}
	return n
}

// Clear removes all items from the cache.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	c.store.Flush()
}

// ItemCount returns the number of items in the cache, including expired
// items not yet purged.
func (c *Cache) ItemCount() int {
	return c.store.ItemCount()
}

// Stats is a snapshot of cache usage.
type Stats struct {
	ItemCount int   `json:"item_count"`
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
}

// GetStats returns current cache statistics.
func (c *Cache) GetStats() Stats {
	return Stats{
		ItemCount: c.store.ItemCount(),
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
	}
}

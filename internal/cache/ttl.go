// Package cache implements the engine's two cache styles: a simple TTL cache
// for computed results and a tagged, bounded cache with LRU/priority eviction
// for the query layer.
//
// Time complexity: O(1) for Get, Set, Delete on both caches. Eviction ordering
// uses a hash map combined with a doubly linked list so the victim is found
// in O(1) rather than by scanning all entries.
package cache

import (
	"sync"
	"time"

	"github.com/p-blackswan/project-pulse/internal/models"
)

// DefaultTTL is applied when Set is called with a non-positive TTL.
const DefaultTTL = 5 * time.Minute

type ttlEntry[V any] struct {
	val       V
	expiresAt time.Time
}

// TTLCache is a thread-safe expiring key-value store. Expired entries are
// treated as misses and lazily evicted on read; callers run Sweep periodically
// to remove them independent of reads.
type TTLCache[V any] struct {
	mu     sync.Mutex
	items  map[string]ttlEntry[V]
	hits   uint64
	misses uint64

	now func() time.Time // injectable clock for tests
}

// NewTTL creates an empty TTL cache.
func NewTTL[V any]() *TTLCache[V] {
	return &TTLCache[V]{
		items: make(map[string]ttlEntry[V]),
		now:   time.Now,
	}
}

// Get retrieves a value by key. An expired entry counts as a miss and is
// removed. O(1).
func (c *TTLCache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.items[key]
	if !ok {
		c.misses++
		var zero V
		return zero, false
	}
	if c.now().After(e.expiresAt) {
		delete(c.items, key)
		c.misses++
		var zero V
		return zero, false
	}
	c.hits++
	return e.val, true
}

// Set stores a value under key for ttl. A non-positive ttl uses DefaultTTL.
// Re-setting an existing key refreshes its expiry. O(1).
func (c *TTLCache[V]) Set(key string, val V, ttl time.Duration) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = ttlEntry[V]{val: val, expiresAt: c.now().Add(ttl)}
}

// Delete removes a key. Returns true if the key existed. O(1).
func (c *TTLCache[V]) Delete(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.items[key]
	delete(c.items, key)
	return ok
}

// Len returns the current number of entries, expired ones included. O(1).
func (c *TTLCache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Clear removes all entries.
func (c *TTLCache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]ttlEntry[V])
}

// Sweep removes all expired entries and returns how many were removed.
func (c *TTLCache[V]) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for k, e := range c.items {
		if now.After(e.expiresAt) {
			delete(c.items, k)
			removed++
		}
	}
	return removed
}

// Stats returns a point-in-time view of the cache counters.
func (c *TTLCache[V]) Stats() models.CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := models.CacheStats{
		Size:   len(c.items),
		Hits:   c.hits,
		Misses: c.misses,
	}
	if total := c.hits + c.misses; total > 0 {
		s.HitRate = float64(c.hits) / float64(total)
	}
	return s
}

package cache

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/p-blackswan/project-pulse/internal/models"
)

// taggedNode is a doubly linked list node holding one cache entry.
// The list runs most-recently-accessed (front) to least (back).
type taggedNode[V any] struct {
	key          string
	val          V
	createdAt    time.Time
	expiresAt    time.Time
	lastAccessed time.Time
	accessCount  int
	priority     int
	tags         []string

	prev *taggedNode[V]
	next *taggedNode[V]
}

// TaggedCache is a bounded, thread-safe cache with TTL expiry, tag-based
// invalidation and access tracking. When full it evicts the least recently
// accessed entry, or the lowest-priority entry when the incoming entry is
// tag-driven. The entry count never exceeds maxSize.
type TaggedCache[V any] struct {
	mu       sync.Mutex
	maxSize  int
	items    map[string]*taggedNode[V]
	head     *taggedNode[V] // most recently accessed (sentinel)
	tail     *taggedNode[V] // least recently accessed (sentinel)
	byTag    map[string]map[string]struct{}
	logger   zerolog.Logger

	hits      uint64
	misses    uint64
	evictions uint64

	now func() time.Time
}

// NewTagged creates a tagged cache with the given capacity.
// Panics if maxSize < 1.
func NewTagged[V any](maxSize int, logger zerolog.Logger) *TaggedCache[V] {
	if maxSize < 1 {
		panic("cache: maxSize must be >= 1")
	}

	head := &taggedNode[V]{}
	tail := &taggedNode[V]{}
	head.next = tail
	tail.prev = head

	return &TaggedCache[V]{
		maxSize: maxSize,
		items:   make(map[string]*taggedNode[V], maxSize),
		head:    head,
		tail:    tail,
		byTag:   make(map[string]map[string]struct{}),
		logger:  logger.With().Str("component", "cache.tagged").Logger(),
		now:     time.Now,
	}
}

// Get retrieves a value and refreshes its access ordering. Expired entries
// count as misses and are removed. O(1).
func (c *TaggedCache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	n, ok := c.items[key]
	if !ok {
		c.misses++
		var zero V
		return zero, false
	}
	if c.now().After(n.expiresAt) {
		c.removeLocked(n)
		c.misses++
		var zero V
		return zero, false
	}

	n.lastAccessed = c.now()
	n.accessCount++
	c.moveToFront(n)
	c.hits++
	return n.val, true
}

// SetOptions carries the optional attributes of a tagged entry.
type SetOptions struct {
	TTL      time.Duration
	Priority int
	Tags     []string
}

// Set inserts or refreshes an entry. If the cache is full a victim is
// evicted first: the lowest-priority entry when opts.Tags is non-empty,
// otherwise the least recently accessed one.
func (c *TaggedCache[V]) Set(key string, val V, opts SetOptions) {
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()

	if n, ok := c.items[key]; ok {
		c.dropTagIndex(n)
		n.val = val
		n.expiresAt = now.Add(ttl)
		n.lastAccessed = now
		n.priority = opts.Priority
		n.tags = opts.Tags
		c.addTagIndex(n)
		c.moveToFront(n)
		return
	}

	if len(c.items) >= c.maxSize {
		c.evictLocked(len(opts.Tags) > 0)
	}

	n := &taggedNode[V]{
		key:          key,
		val:          val,
		createdAt:    now,
		expiresAt:    now.Add(ttl),
		lastAccessed: now,
		priority:     opts.Priority,
		tags:         opts.Tags,
	}
	c.items[key] = n
	c.addTagIndex(n)
	c.pushFront(n)
}

// Delete removes a key. Returns true if it existed. O(1).
func (c *TaggedCache[V]) Delete(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	n, ok := c.items[key]
	if !ok {
		return false
	}
	c.removeLocked(n)
	return true
}

// InvalidateByTag removes every entry carrying any of the given tags.
// Returns the number of entries removed.
func (c *TaggedCache[V]) InvalidateByTag(tags ...string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for _, tag := range tags {
		for key := range c.byTag[tag] {
			if n, ok := c.items[key]; ok {
				c.removeLocked(n)
				removed++
			}
		}
	}
	if removed > 0 {
		c.logger.Debug().Strs("tags", tags).Int("removed", removed).Msg("tag invalidation")
	}
	return removed
}

// Len returns the current number of entries. O(1).
func (c *TaggedCache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Sweep removes all expired entries and returns how many were removed.
func (c *TaggedCache[V]) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for cur := c.tail.prev; cur != c.head; {
		prev := cur.prev
		if now.After(cur.expiresAt) {
			c.removeLocked(cur)
			removed++
		}
		cur = prev
	}
	return removed
}

// StartSweep runs a periodic sweep until ctx is cancelled. It takes the same
// mutex as foreground reads and writes, so a sweep never races an eviction.
func (c *TaggedCache[V]) StartSweep(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	c.logger.Info().Dur("interval", interval).Msg("cache sweep started")
	for {
		select {
		case <-ctx.Done():
			c.logger.Info().Msg("cache sweep stopped")
			return
		case <-ticker.C:
			if n := c.Sweep(); n > 0 {
				c.logger.Debug().Int("expired", n).Msg("cache sweep removed entries")
			}
		}
	}
}

// Stats returns a point-in-time view of the cache counters.
func (c *TaggedCache[V]) Stats() models.CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := models.CacheStats{
		Size:      len(c.items),
		MaxSize:   c.maxSize,
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
	}
	if total := c.hits + c.misses; total > 0 {
		s.HitRate = float64(c.hits) / float64(total)
	}
	return s
}

// --- internal operations (caller must hold lock) ---

// evictLocked removes one victim to make room. When byPriority is set the
// lowest-priority entry goes (walking from the LRU end so ties favor the
// least recently accessed); otherwise the LRU entry goes.
func (c *TaggedCache[V]) evictLocked(byPriority bool) {
	victim := c.tail.prev
	if victim == c.head {
		return
	}

	if byPriority {
		for cur := c.tail.prev; cur != c.head; cur = cur.prev {
			if cur.priority < victim.priority {
				victim = cur
			}
		}
	}

	c.removeLocked(victim)
	c.evictions++
}

// removeLocked detaches a node from the list, the key map and the tag index.
func (c *TaggedCache[V]) removeLocked(n *taggedNode[V]) {
	c.dropTagIndex(n)
	delete(c.items, n.key)
	n.prev.next = n.next
	n.next.prev = n.prev
	n.prev = nil
	n.next = nil
}

func (c *TaggedCache[V]) addTagIndex(n *taggedNode[V]) {
	for _, tag := range n.tags {
		set, ok := c.byTag[tag]
		if !ok {
			set = make(map[string]struct{})
			c.byTag[tag] = set
		}
		set[n.key] = struct{}{}
	}
}

func (c *TaggedCache[V]) dropTagIndex(n *taggedNode[V]) {
	for _, tag := range n.tags {
		if set, ok := c.byTag[tag]; ok {
			delete(set, n.key)
			if len(set) == 0 {
				delete(c.byTag, tag)
			}
		}
	}
}

// pushFront inserts a node right after the head sentinel.
func (c *TaggedCache[V]) pushFront(n *taggedNode[V]) {
	n.next = c.head.next
	n.prev = c.head
	c.head.next.prev = n
	c.head.next = n
}

// moveToFront detaches and reinserts a node at the front.
func (c *TaggedCache[V]) moveToFront(n *taggedNode[V]) {
	n.prev.next = n.next
	n.next.prev = n.prev
	c.pushFront(n)
}

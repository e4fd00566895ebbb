// Package cache provides an LRU+TTL cache for formatted query results.
//
// Re-running the same read query against OSDR metadata usually returns the
// same result within a session, so the dashboard caches the formatted output
// keyed by query text and parameters.
//
// Features:
// - LRU eviction for bounded memory
// - TTL expiration for stale results
// - Thread-safe operations
// - Cache hit/miss statistics
package cache

import (
	"container/list"
	"fmt"
	"hash/fnv"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spacebiology/osdrgraph/pkg/results"
)

const (
	// DefaultMaxSize bounds the cache when no size is given.
	DefaultMaxSize = 128
	// DefaultTTL expires entries when no TTL is given.
	DefaultTTL = 5 * time.Minute
)

// ResultCache is a thread-safe LRU cache mapping (query, params) to
// formatted results.
//
// The cache uses a hash map for O(1) lookups, a doubly-linked list for LRU
// ordering, and a TTL for expiration.
type ResultCache struct {
	mu sync.RWMutex

	maxSize int
	ttl     time.Duration
	enabled bool

	list  *list.List
	items map[uint64]*list.Element

	hits   uint64
	misses uint64
}

type cacheEntry struct {
	key       uint64
	value     *results.Formatted
	expiresAt time.Time
}

// NewResultCache creates a result cache holding up to maxSize entries, each
// expiring after ttl. Non-positive arguments fall back to the defaults;
// ttl 0 keeps them forever (LRU eviction only).
func NewResultCache(maxSize int, ttl time.Duration) *ResultCache {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	if ttl < 0 {
		ttl = DefaultTTL
	}
	return &ResultCache{
		maxSize: maxSize,
		ttl:     ttl,
		enabled: true,
		list:    list.New(),
		items:   make(map[uint64]*list.Element, maxSize),
	}
}

// Key generates a cache key from query text and parameters.
//
// Parameter values are part of the key: the same query with different
// parameter values returns different results. Keys are sorted so map
// iteration order cannot split identical calls across entries.
func (c *ResultCache) Key(query string, params map[string]any) uint64 {
	h := fnv.New64a()
	h.Write([]byte(query))

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		h.Write([]byte{0})
		h.Write([]byte(k))
		h.Write([]byte{'='})
		fmt.Fprintf(h, "%v", params[k])
	}

	return h.Sum64()
}

// Get retrieves a cached result if present and not expired.
//
// Returns (value, true) on cache hit and moves the entry to the front of
// the LRU list.
func (c *ResultCache) Get(key uint64) (*results.Formatted, bool) {
	if !c.enabled {
		atomic.AddUint64(&c.misses, 1)
		return nil, false
	}

	// Copy the entry fields under the read lock: Put updates existing
	// entries in place, so reading them after unlock would race.
	c.mu.RLock()
	elem, ok := c.items[key]
	var value *results.Formatted
	var expiresAt time.Time
	if ok {
		entry := elem.Value.(*cacheEntry)
		value = entry.value
		expiresAt = entry.expiresAt
	}
	c.mu.RUnlock()

	if !ok {
		atomic.AddUint64(&c.misses, 1)
		return nil, false
	}

	if c.ttl > 0 && time.Now().After(expiresAt) {
		c.mu.Lock()
		c.removeElement(elem)
		c.mu.Unlock()
		atomic.AddUint64(&c.misses, 1)
		return nil, false
	}

	c.mu.Lock()
	c.list.MoveToFront(elem)
	c.mu.Unlock()

	atomic.AddUint64(&c.hits, 1)
	return value, true
}

// Put adds a result to the cache, evicting the least recently used entry
// when at capacity. An existing key is updated in place.
func (c *ResultCache) Put(key uint64, value *results.Formatted) {
	if !c.enabled || value == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		entry := elem.Value.(*cacheEntry)
		entry.value = value
		if c.ttl > 0 {
			entry.expiresAt = time.Now().Add(c.ttl)
		}
		c.list.MoveToFront(elem)
		return
	}

	for c.list.Len() >= c.maxSize {
		c.evictOldest()
	}

	entry := &cacheEntry{key: key, value: value}
	if c.ttl > 0 {
		entry.expiresAt = time.Now().Add(c.ttl)
	}

	elem := c.list.PushFront(entry)
	c.items[key] = elem
}

// Remove removes an entry from the cache.
func (c *ResultCache) Remove(key uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		c.removeElement(elem)
	}
}

// Clear removes all entries from the cache.
func (c *ResultCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.list.Init()
	c.items = make(map[uint64]*list.Element, c.maxSize)
}

// Len returns the number of cached entries.
func (c *ResultCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.list.Len()
}

// SetEnabled enables or disables the cache. Disabling drops all entries.
func (c *ResultCache) SetEnabled(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.enabled = enabled

	if !enabled {
		c.list.Init()
		c.items = make(map[uint64]*list.Element, c.maxSize)
	}
}

// Stats holds cache performance statistics.
type Stats struct {
	Size    int
	MaxSize int
	Hits    uint64
	Misses  uint64
	HitRate float64 // percentage, 0-100
}

// Stats returns cache statistics.
func (c *ResultCache) Stats() Stats {
	hits := atomic.LoadUint64(&c.hits)
	misses := atomic.LoadUint64(&c.misses)

	c.mu.RLock()
	size := c.list.Len()
	c.mu.RUnlock()

	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}

	return Stats{
		Size:    size,
		MaxSize: c.maxSize,
		Hits:    hits,
		Misses:  misses,
		HitRate: hitRate,
	}
}

// evictOldest removes the least recently used entry.
// Caller must hold the lock.
func (c *ResultCache) evictOldest() {
	if elem := c.list.Back(); elem != nil {
		c.removeElement(elem)
	}
}

// removeElement removes an element from the cache.
// Caller must hold the lock.
func (c *ResultCache) removeElement(elem *list.Element) {
	c.list.Remove(elem)
	entry := elem.Value.(*cacheEntry)
	delete(c.items, entry.key)
}

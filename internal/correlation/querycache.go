package correlation

import (
	"sync"
	"time"

	"github.com/agentlens/agentlens-core/internal/monitoring"
)

const (
	// DefaultCacheTTL is how long a cached store result stays fresh.
	DefaultCacheTTL = 60 * time.Second
	// DefaultCacheCapacity bounds the number of cached store results.
	DefaultCacheCapacity = 256
)

type cacheEntry struct {
	value     interface{}
	expiresAt time.Time
}

// QueryCache memoizes analytical-store query results, keyed by query shape
// plus time window plus filters. It is a fixed-capacity map with
// insertion-order eviction under a mutex: entries are immutable once
// inserted and carry an absolute expiry, so a read past expiry is a miss
// and drops the entry. Eviction is least-recently-inserted, not LRU by
// access; true LRU would be a possible improvement, not a correctness fix.
type QueryCache struct {
	mu       sync.Mutex
	entries  map[string]cacheEntry
	order    []string
	capacity int
	ttl      time.Duration
	now      func() time.Time
}

// NewQueryCache builds a cache with the given capacity and TTL; zero values
// fall back to the defaults.
func NewQueryCache(capacity int, ttl time.Duration) *QueryCache {
	if capacity <= 0 {
		capacity = DefaultCacheCapacity
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &QueryCache{
		entries:  make(map[string]cacheEntry),
		capacity: capacity,
		ttl:      ttl,
		now:      time.Now,
	}
}

// Get returns the cached value for key, or false on a miss. Expired entries
// count as misses and are removed.
func (c *QueryCache) Get(key string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		monitoring.RecordCacheOperation("get", "miss")
		return nil, false
	}
	if c.now().After(entry.expiresAt) {
		c.removeLocked(key)
		monitoring.RecordCacheOperation("get", "miss")
		return nil, false
	}
	monitoring.RecordCacheOperation("get", "hit")
	return entry.value, true
}

// Set inserts or overwrites a value wholesale. When the cache is full, the
// oldest-inserted entry is evicted first.
func (c *QueryCache) Set(key string, value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; exists {
		c.removeLocked(key)
	}
	for len(c.entries) >= c.capacity && len(c.order) > 0 {
		c.removeLocked(c.order[0])
		monitoring.RecordCacheOperation("set", "evict")
	}
	c.entries[key] = cacheEntry{value: value, expiresAt: c.now().Add(c.ttl)}
	c.order = append(c.order, key)
	monitoring.RecordCacheOperation("set", "success")
}

// Clear drops every entry. Callers that need freshness beyond the TTL use
// this; there is no finer-grained invalidation protocol.
func (c *QueryCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]cacheEntry)
	c.order = c.order[:0]
}

// Len reports the current number of live entries.
func (c *QueryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *QueryCache) removeLocked(key string) {
	delete(c.entries, key)
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

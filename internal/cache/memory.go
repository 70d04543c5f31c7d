package cache

import (
	"sync"
	"time"

	"attrix/internal/domain"
)

const defaultMemoryMaxEntries = 1000

// memoryEntry is one in-process cache slot.
type memoryEntry struct {
	value     domain.ExtractionResult
	createdAt time.Time
	expiresAt time.Time
	hitCount  int64
}

// MemoryCache is the in-process fallback tier. It is safe for concurrent use.
// On overflow it purges expired entries first, then evicts entries with the
// lowest hitCount/age score down to a cleanup threshold, leaving headroom
// rather than emptying the map.
type MemoryCache struct {
	mu         sync.Mutex
	entries    map[string]*memoryEntry
	maxEntries int
	now        func() time.Time
}

// NewMemoryCache creates a MemoryCache holding at most maxEntries entries.
func NewMemoryCache(maxEntries int) *MemoryCache {
	if maxEntries <= 0 {
		maxEntries = defaultMemoryMaxEntries
	}
	return &MemoryCache{
		entries:    make(map[string]*memoryEntry),
		maxEntries: maxEntries,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Get returns the cached result for key, or false on a miss. Expired entries
// are purged lazily and reported as misses.
func (c *MemoryCache) Get(key string) (*domain.ExtractionResult, bool) {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if !now.Before(e.expiresAt) {
		delete(c.entries, key)
		return nil, false
	}
	e.hitCount++
	value := e.value
	return &value, true
}

// Put stores result under key for ttl.
func (c *MemoryCache) Put(key string, result domain.ExtractionResult, ttl time.Duration) {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.entries) >= c.maxEntries {
		c.purgeExpiredLocked(now)
	}
	if len(c.entries) >= c.maxEntries {
		c.evictLocked(now)
	}

	c.entries[key] = &memoryEntry{
		value:     result,
		createdAt: now,
		expiresAt: now.Add(ttl),
	}
}

// Len returns the number of live entries.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *MemoryCache) purgeExpiredLocked(now time.Time) {
	for k, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, k)
		}
	}
}

// evictLocked removes the lowest-scoring entries until the map is below the
// cleanup threshold (three quarters of capacity). Score is hits per second
// of age, so cold old entries go first.
func (c *MemoryCache) evictLocked(now time.Time) {
	target := c.maxEntries * 3 / 4
	for len(c.entries) > target {
		var worstKey string
		worstScore := 0.0
		first := true
		for k, e := range c.entries {
			age := now.Sub(e.createdAt).Seconds()
			if age < 1 {
				age = 1
			}
			score := float64(e.hitCount) / age
			if first || score < worstScore {
				worstKey = k
				worstScore = score
				first = false
			}
		}
		if first {
			return
		}
		delete(c.entries, worstKey)
	}
}

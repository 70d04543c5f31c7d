// Package cache implements the two-tier, content-addressed result cache:
// a durable Redis tier checked first, with a bounded in-process tier as
// fallback. Durable-tier outages degrade silently and never fail a request.
package cache

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"attrix/internal/domain"
	"attrix/internal/port"
)

// ResultCache composes the durable and in-process tiers. The durable store
// is optional; with a nil store only the in-process tier is used.
type ResultCache struct {
	durable port.DurableStore
	memory  *MemoryCache
}

// New creates a ResultCache. durable may be nil.
func New(durable port.DurableStore, memory *MemoryCache) *ResultCache {
	return &ResultCache{durable: durable, memory: memory}
}

// Get looks up key in the durable tier first, falling back to the in-process
// tier on miss, unavailability, or error.
func (c *ResultCache) Get(ctx context.Context, key string) (*domain.ExtractionResult, bool) {
	if c.durable != nil && c.durable.Available() {
		raw, err := c.durable.Get(ctx, key)
		if err != nil {
			log.Printf("resultCache.Get: durable tier error, falling back: %v", err)
		} else if raw != nil {
			var result domain.ExtractionResult
			if err := json.Unmarshal(raw, &result); err != nil {
				log.Printf("resultCache.Get: corrupt durable entry for %s: %v", key, err)
			} else {
				return &result, true
			}
		}
	}
	return c.memory.Get(key)
}

// Put stores result in the durable tier when reachable, else in the
// in-process tier. Storage failures are logged, never surfaced.
func (c *ResultCache) Put(ctx context.Context, key string, result domain.ExtractionResult, ttl time.Duration) {
	if c.durable != nil && c.durable.Available() {
		raw, err := json.Marshal(result)
		if err != nil {
			log.Printf("resultCache.Put: marshaling result for %s: %v", key, err)
			return
		}
		if err := c.durable.Set(ctx, key, raw, ttl); err == nil {
			return
		}
		log.Printf("resultCache.Put: durable tier write failed for %s, using in-process tier", key)
	}
	c.memory.Put(key, result, ttl)
}

// DurableAvailable reports durable-tier health for readiness probes.
func (c *ResultCache) DurableAvailable() bool {
	return c.durable != nil && c.durable.Available()
}

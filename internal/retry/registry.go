package retry

import (
	"sync"
	"time"
)

const defaultContextMaxAge = time.Hour

// Registry holds retry contexts keyed by job, garbage-collecting entries
// older than maxAge opportunistically on access.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*Context
	maxAge  time.Duration
	now     func() time.Time
}

// NewRegistry creates a Registry. maxAge <= 0 uses the default of one hour.
func NewRegistry(maxAge time.Duration) *Registry {
	if maxAge <= 0 {
		maxAge = defaultContextMaxAge
	}
	return &Registry{
		entries: make(map[string]*Context),
		maxAge:  maxAge,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Get returns the context for key, creating it if absent.
func (r *Registry) Get(key string) *Context {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.purgeLocked()

	c, ok := r.entries[key]
	if !ok {
		c = NewContext()
		c.createdAt = r.now()
		r.entries[key] = c
	}
	return c
}

// Drop removes the context for key.
func (r *Registry) Drop(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, key)
}

// Len returns the number of live contexts.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

func (r *Registry) purgeLocked() {
	cutoff := r.now().Add(-r.maxAge)
	for k, c := range r.entries {
		if c.createdAt.Before(cutoff) {
			delete(r.entries, k)
		}
	}
}

package port

import (
	"context"
	"time"
)

// DurableStore is the optional durable cache tier: a key-value store with
// set-with-TTL and get. Unavailability must never be fatal to the pipeline;
// callers consult Available before use and fall back to the in-process tier.
type DurableStore interface {
	// Get returns the stored bytes, or (nil, nil) on a miss.
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Available() bool
	Close() error
}

package cache

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	probeInterval = 15 * time.Second
	probeTimeout  = 2 * time.Second
)

// RedisStore is the durable cache tier backed by Redis. It tracks its own
// health: after a failure it reports unavailable and re-probes with a ping at
// most once per probe interval, instead of letting callers mutate a shared
// handle on error.
type RedisStore struct {
	client *redis.Client

	mu        sync.Mutex
	available bool
	lastProbe time.Time
	now       func() time.Time
}

// NewRedisStore connects to the Redis URL. A failed initial ping is not
// fatal; the store starts unavailable and recovers via probing.
func NewRedisStore(url string) (*RedisStore, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	s := &RedisStore{
		client: redis.NewClient(opt),
		now:    func() time.Time { return time.Now().UTC() },
	}

	ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
	defer cancel()
	if err := s.client.Ping(ctx).Err(); err != nil {
		log.Printf("redisStore: initial ping failed, starting degraded: %v", err)
		s.markUnavailable()
	} else {
		s.available = true
	}
	return s, nil
}

// Get returns the stored bytes, or (nil, nil) on a miss.
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := s.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		s.markUnavailable()
		return nil, err
	}
	return val, nil
}

// Set stores value under key with ttl.
func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		s.markUnavailable()
		return err
	}
	return nil
}

// Available reports tier health, re-probing at most once per probe interval
// while degraded.
func (s *RedisStore) Available() bool {
	s.mu.Lock()
	if s.available {
		s.mu.Unlock()
		return true
	}
	if s.now().Sub(s.lastProbe) < probeInterval {
		s.mu.Unlock()
		return false
	}
	s.lastProbe = s.now()
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
	defer cancel()
	if err := s.client.Ping(ctx).Err(); err != nil {
		return false
	}

	s.mu.Lock()
	s.available = true
	s.mu.Unlock()
	log.Printf("redisStore: durable tier recovered")
	return true
}

// Close releases the underlying client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) markUnavailable() {
	s.mu.Lock()
	if s.available {
		log.Printf("redisStore: durable tier marked unavailable")
	}
	s.available = false
	s.lastProbe = s.now()
	s.mu.Unlock()
}

package ratelimit

import (
	"fmt"
	"sync"
	"time"
)

// Status reports the caller's remaining budget in the current window.
type Status struct {
	Remaining int       `json:"remaining"`
	ResetAt   time.Time `json:"reset_at"`
	Total     int       `json:"total"`
}

// ExceededError is returned when a client key is over its window budget or
// inside a block period.
type ExceededError struct {
	RetryAfter time.Duration
}

func (e *ExceededError) Error() string {
	return fmt.Sprintf("rate limit exceeded (retry after %s)", e.RetryAfter)
}

// Config holds limiter settings.
type Config struct {
	Window        time.Duration
	MaxRequests   int
	BlockDuration time.Duration
}

type window struct {
	start        time.Time
	count        int
	blockedUntil time.Time
}

// Limiter enforces a fixed-window request budget per client key. Once a key
// exceeds the budget it is blocked outright for BlockDuration; blocked
// requests do not increment the window counter. Stale entries are evicted
// opportunistically on access to bound memory.
type Limiter struct {
	cfg Config

	mu        sync.Mutex
	windows   map[string]*window
	lastSweep time.Time
	now       func() time.Time
}

// New creates a Limiter with sane fallbacks for zero config values.
func New(cfg Config) *Limiter {
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}
	if cfg.MaxRequests <= 0 {
		cfg.MaxRequests = 30
	}
	if cfg.BlockDuration <= 0 {
		cfg.BlockDuration = cfg.Window
	}
	return &Limiter{
		cfg:     cfg,
		windows: make(map[string]*window),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Check admits or rejects one request for key. On rejection the returned
// error is an *ExceededError carrying retry-after guidance.
func (l *Limiter) Check(key string) (*Status, error) {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	l.sweepLocked(now)

	w, ok := l.windows[key]
	if ok && now.Before(w.blockedUntil) {
		return nil, &ExceededError{RetryAfter: w.blockedUntil.Sub(now)}
	}

	if !ok || !now.Before(w.start.Add(l.cfg.Window)) {
		w = &window{start: now}
		l.windows[key] = w
	}

	w.count++
	if w.count > l.cfg.MaxRequests {
		w.blockedUntil = now.Add(l.cfg.BlockDuration)
		w.count-- // the rejected request does not consume budget
		return nil, &ExceededError{RetryAfter: l.cfg.BlockDuration}
	}

	return &Status{
		Remaining: l.cfg.MaxRequests - w.count,
		ResetAt:   w.start.Add(l.cfg.Window),
		Total:     l.cfg.MaxRequests,
	}, nil
}

// sweepLocked drops entries whose window ended more than one window ago and
// whose block has expired. Runs at most once per window length.
func (l *Limiter) sweepLocked(now time.Time) {
	if now.Sub(l.lastSweep) < l.cfg.Window {
		return
	}
	l.lastSweep = now
	for k, w := range l.windows {
		if now.Sub(w.start) > 2*l.cfg.Window && !now.Before(w.blockedUntil) {
			delete(l.windows, k)
		}
	}
}

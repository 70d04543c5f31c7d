package retry

import (
	"math"
	"math/rand"
	"time"
)

// Policy computes backoff delays for one class of retries. Transport retries
// and confidence retries are configured as two independent policies.
type Policy struct {
	MaxAttempts    int
	BaseDelay      time.Duration
	Multiplier     float64
	MaxDelay       time.Duration
	JitterFraction float64

	// randFloat returns a value in [0,1); overridable in tests.
	randFloat func() float64
}

// NewPolicy creates a Policy with sane fallbacks for zero values.
func NewPolicy(maxAttempts int, baseDelay time.Duration, multiplier float64, maxDelay time.Duration, jitterFraction float64) *Policy {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	if baseDelay <= 0 {
		baseDelay = time.Second
	}
	if multiplier < 1 {
		multiplier = 2
	}
	return &Policy{
		MaxAttempts:    maxAttempts,
		BaseDelay:      baseDelay,
		Multiplier:     multiplier,
		MaxDelay:       maxDelay,
		JitterFraction: jitterFraction,
		randFloat:      rand.Float64,
	}
}

// Delay returns the backoff before the next attempt, given the attempt that
// just finished (1-based): base * multiplier^(attempt-1) plus a random jitter
// of up to JitterFraction of the exponential delay, capped at MaxDelay.
func (p *Policy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	exp := float64(p.BaseDelay) * math.Pow(p.Multiplier, float64(attempt-1))
	if p.JitterFraction > 0 {
		rf := rand.Float64
		if p.randFloat != nil {
			rf = p.randFloat
		}
		exp += exp * p.JitterFraction * rf()
	}
	d := time.Duration(exp)
	if p.MaxDelay > 0 && d > p.MaxDelay {
		d = p.MaxDelay
	}
	if d <= 0 {
		d = time.Millisecond
	}
	return d
}

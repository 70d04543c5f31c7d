package retry

import (
	"time"

	"attrix/internal/domain"
)

// Attempt records one try against the upstream model.
type Attempt struct {
	Number     int
	Timestamp  time.Time
	ErrorClass domain.ErrorClass
	Delay      time.Duration
	Retryable  bool
}

// Context tracks the attempt history for a single retry policy on a single
// job. It is not safe for concurrent use; the orchestrator guarantees one
// writer per job.
type Context struct {
	Attempts    []Attempt
	TotalDelay  time.Duration
	Exhausted   bool
	NextRetryAt time.Time

	createdAt time.Time
}

// NewContext creates an empty retry context.
func NewContext() *Context {
	return &Context{createdAt: time.Now().UTC()}
}

// Record appends an attempt and accumulates its delay.
func (c *Context) Record(class domain.ErrorClass, delay time.Duration, retryable bool) {
	c.Attempts = append(c.Attempts, Attempt{
		Number:     len(c.Attempts) + 1,
		Timestamp:  time.Now().UTC(),
		ErrorClass: class,
		Delay:      delay,
		Retryable:  retryable,
	})
	c.TotalDelay += delay
	if delay > 0 {
		c.NextRetryAt = time.Now().UTC().Add(delay)
	}
}

// AttemptCount returns the number of recorded attempts.
func (c *Context) AttemptCount() int {
	return len(c.Attempts)
}

// Summary projects the context into its job-visible form.
func (c *Context) Summary() domain.RetrySummary {
	return domain.RetrySummary{
		Attempts:   len(c.Attempts),
		TotalDelay: c.TotalDelay.Milliseconds(),
		Exhausted:  c.Exhausted,
	}
}

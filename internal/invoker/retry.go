package invoker

import (
	"context"
	"time"

	"attrix/internal/port"
	"attrix/internal/retry"
)

// RetryingInvoker wraps a provider with the transport retry policy: up to
// MaxAttempts calls with base*2^(attempt-1) backoff. Fatal errors (auth,
// quota) propagate immediately. Each attempt is recorded into the
// caller-supplied retry context for observability.
type RetryingInvoker struct {
	inner       port.ModelInvoker
	maxAttempts int
	baseDelay   time.Duration
}

// NewRetryingInvoker wraps inner with the given transport budget.
func NewRetryingInvoker(inner port.ModelInvoker, maxAttempts int, baseDelay time.Duration) *RetryingInvoker {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	if baseDelay <= 0 {
		baseDelay = time.Second
	}
	return &RetryingInvoker{inner: inner, maxAttempts: maxAttempts, baseDelay: baseDelay}
}

// Name returns the wrapped provider's identifier.
func (r *RetryingInvoker) Name() string {
	return r.inner.Name()
}

// Invoke calls the provider without attempt tracking.
func (r *RetryingInvoker) Invoke(ctx context.Context, input port.InvokeInput) (*port.RawResponse, error) {
	return r.InvokeTracked(ctx, input, retry.NewContext())
}

// InvokeTracked calls the provider, retrying transient failures, recording
// every attempt into rc. The backoff wait respects ctx cancellation and does
// not hold any lock.
func (r *RetryingInvoker) InvokeTracked(ctx context.Context, input port.InvokeInput, rc *retry.Context) (*port.RawResponse, error) {
	var lastErr error

	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		resp, err := r.inner.Invoke(ctx, input)
		if err == nil {
			rc.Record("", 0, false)
			return resp, nil
		}
		lastErr = err

		if IsFatal(err) {
			rc.Record(Classify(err), 0, false)
			return nil, err
		}

		if attempt == r.maxAttempts {
			rc.Record(Classify(err), 0, true)
			break
		}

		delay := r.baseDelay * (1 << (attempt - 1))
		rc.Record(Classify(err), delay, true)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			rc.Exhausted = true
			return nil, &ModelError{Provider: r.inner.Name(), Attempts: attempt, Err: ctx.Err()}
		case <-timer.C:
		}
	}

	rc.Exhausted = true
	return nil, &ModelError{Provider: r.inner.Name(), Attempts: r.maxAttempts, Err: lastErr}
}

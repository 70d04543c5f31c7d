package invoker_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"attrix/internal/domain"
	"attrix/internal/invoker"
	"attrix/internal/port"
	"attrix/internal/retry"
	"attrix/mocks"
)

func TestRetryingInvoker_SucceedsFirstTry(t *testing.T) {
	inner := new(mocks.MockModelInvoker)
	inner.On("Invoke", mock.Anything, mock.Anything).
		Return(&port.RawResponse{Content: "{}", Model: "m"}, nil).Once()

	ri := invoker.NewRetryingInvoker(inner, 3, time.Millisecond)
	rc := retry.NewContext()

	resp, err := ri.InvokeTracked(context.Background(), port.InvokeInput{}, rc)
	require.NoError(t, err)
	assert.Equal(t, "{}", resp.Content)
	assert.Equal(t, 1, rc.AttemptCount())
	assert.False(t, rc.Exhausted)
	inner.AssertNumberOfCalls(t, "Invoke", 1)
}

func TestRetryingInvoker_RetriesTransientThenSucceeds(t *testing.T) {
	inner := new(mocks.MockModelInvoker)
	inner.On("Name").Return("test").Maybe()
	inner.On("Invoke", mock.Anything, mock.Anything).
		Return(nil, &invoker.TransientError{Provider: "test"}).Twice()
	inner.On("Invoke", mock.Anything, mock.Anything).
		Return(&port.RawResponse{Content: "{}"}, nil).Once()

	ri := invoker.NewRetryingInvoker(inner, 3, time.Millisecond)
	rc := retry.NewContext()

	_, err := ri.InvokeTracked(context.Background(), port.InvokeInput{}, rc)
	require.NoError(t, err)
	assert.Equal(t, 3, rc.AttemptCount())
	assert.Equal(t, domain.ErrorClassTransient, rc.Attempts[0].ErrorClass)
	assert.False(t, rc.Exhausted)
	inner.AssertNumberOfCalls(t, "Invoke", 3)
}

func TestRetryingInvoker_FatalErrorNotRetried(t *testing.T) {
	inner := new(mocks.MockModelInvoker)
	inner.On("Invoke", mock.Anything, mock.Anything).
		Return(nil, &invoker.AuthError{Provider: "test"}).Once()

	ri := invoker.NewRetryingInvoker(inner, 3, time.Millisecond)
	rc := retry.NewContext()

	_, err := ri.InvokeTracked(context.Background(), port.InvokeInput{}, rc)
	require.Error(t, err)

	var authErr *invoker.AuthError
	assert.ErrorAs(t, err, &authErr)
	assert.Equal(t, 1, rc.AttemptCount())
	inner.AssertNumberOfCalls(t, "Invoke", 1)
}

func TestRetryingInvoker_QuotaErrorNotRetried(t *testing.T) {
	inner := new(mocks.MockModelInvoker)
	inner.On("Invoke", mock.Anything, mock.Anything).
		Return(nil, &invoker.QuotaError{Provider: "test"}).Once()

	ri := invoker.NewRetryingInvoker(inner, 3, time.Millisecond)

	_, err := ri.InvokeTracked(context.Background(), port.InvokeInput{}, retry.NewContext())
	var quotaErr *invoker.QuotaError
	assert.ErrorAs(t, err, &quotaErr)
	inner.AssertNumberOfCalls(t, "Invoke", 1)
}

func TestRetryingInvoker_ExhaustionYieldsModelError(t *testing.T) {
	inner := new(mocks.MockModelInvoker)
	inner.On("Name").Return("test")
	inner.On("Invoke", mock.Anything, mock.Anything).
		Return(nil, &invoker.TransientError{Provider: "test"}).Times(3)

	ri := invoker.NewRetryingInvoker(inner, 3, time.Millisecond)
	rc := retry.NewContext()

	_, err := ri.InvokeTracked(context.Background(), port.InvokeInput{}, rc)
	require.Error(t, err)

	var modelErr *invoker.ModelError
	require.ErrorAs(t, err, &modelErr)
	assert.Equal(t, 3, modelErr.Attempts)
	assert.True(t, rc.Exhausted)
	assert.Equal(t, 3, rc.AttemptCount())
	inner.AssertNumberOfCalls(t, "Invoke", 3)
}

func TestRetryingInvoker_BackoffDoubles(t *testing.T) {
	inner := new(mocks.MockModelInvoker)
	inner.On("Name").Return("test")
	inner.On("Invoke", mock.Anything, mock.Anything).
		Return(nil, &invoker.TransientError{Provider: "test"}).Times(3)

	base := 2 * time.Millisecond
	ri := invoker.NewRetryingInvoker(inner, 3, base)
	rc := retry.NewContext()

	_, _ = ri.InvokeTracked(context.Background(), port.InvokeInput{}, rc)

	assert.Equal(t, base, rc.Attempts[0].Delay)
	assert.Equal(t, 2*base, rc.Attempts[1].Delay)
	// the final attempt has no delay after it
	assert.Equal(t, time.Duration(0), rc.Attempts[2].Delay)
}

func TestRetryingInvoker_ContextCancelStopsBackoff(t *testing.T) {
	inner := new(mocks.MockModelInvoker)
	inner.On("Name").Return("test")
	inner.On("Invoke", mock.Anything, mock.Anything).
		Return(nil, &invoker.TransientError{Provider: "test"})

	ri := invoker.NewRetryingInvoker(inner, 3, time.Hour)
	rc := retry.NewContext()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, err := ri.InvokeTracked(ctx, port.InvokeInput{}, rc)
	require.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
	assert.True(t, rc.Exhausted)
}

func TestClassifyStatus(t *testing.T) {
	var authErr *invoker.AuthError
	assert.ErrorAs(t, invoker.ClassifyStatus("p", 401, nil), &authErr)
	assert.ErrorAs(t, invoker.ClassifyStatus("p", 403, nil), &authErr)

	var quotaErr *invoker.QuotaError
	assert.ErrorAs(t, invoker.ClassifyStatus("p", 429, nil), &quotaErr)

	var transientErr *invoker.TransientError
	assert.ErrorAs(t, invoker.ClassifyStatus("p", 500, nil), &transientErr)
	assert.ErrorAs(t, invoker.ClassifyStatus("p", 502, nil), &transientErr)
}

func TestClassify(t *testing.T) {
	assert.Equal(t, domain.ErrorClassAuth, invoker.Classify(&invoker.AuthError{}))
	assert.Equal(t, domain.ErrorClassQuota, invoker.Classify(&invoker.QuotaError{}))
	assert.Equal(t, domain.ErrorClassTransient, invoker.Classify(&invoker.TransientError{}))
	assert.Equal(t, domain.ErrorClassTransient, invoker.Classify(context.DeadlineExceeded))
}

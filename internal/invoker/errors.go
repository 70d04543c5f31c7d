package invoker

import (
	"errors"
	"fmt"
	"net/http"

	"attrix/internal/domain"
)

// AuthError indicates the provider rejected our credentials. Fatal, never retried.
type AuthError struct {
	Provider string
	Err      error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s authentication failed: %v", e.Provider, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// QuotaError indicates the provider quota is exhausted. Fatal, never retried.
type QuotaError struct {
	Provider string
	Err      error
}

func (e *QuotaError) Error() string {
	return fmt.Sprintf("%s quota exhausted: %v", e.Provider, e.Err)
}

func (e *QuotaError) Unwrap() error { return e.Err }

// TransientError indicates a timeout, server error, or network failure.
// Retried per the transport policy.
type TransientError struct {
	Provider string
	Err      error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("%s transient failure: %v", e.Provider, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// ModelError is raised once transport retries are exhausted; it wraps the
// last underlying cause.
type ModelError struct {
	Provider string
	Attempts int
	Err      error
}

func (e *ModelError) Error() string {
	return fmt.Sprintf("%s model call failed after %d attempts: %v", e.Provider, e.Attempts, e.Err)
}

func (e *ModelError) Unwrap() error { return e.Err }

// ClassifyStatus maps a non-200 HTTP status to a typed error.
// 401/403 are authentication failures and 429 means the upstream quota is
// gone, both fatal. Everything else (5xx and friends) is transient.
func ClassifyStatus(provider string, status int, body []byte) error {
	base := fmt.Errorf("%s API error (status %d): %s", provider, status, string(body))
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return &AuthError{Provider: provider, Err: base}
	case status == http.StatusTooManyRequests:
		return &QuotaError{Provider: provider, Err: base}
	default:
		return &TransientError{Provider: provider, Err: base}
	}
}

// WrapTransportErr classifies a request-level failure (timeout, connection
// reset, DNS). Context timeouts count as transient per the retry policy.
func WrapTransportErr(provider string, err error) error {
	return &TransientError{Provider: provider, Err: err}
}

// IsFatal reports whether err must not be retried.
func IsFatal(err error) bool {
	var authErr *AuthError
	var quotaErr *QuotaError
	return errors.As(err, &authErr) || errors.As(err, &quotaErr)
}

// Classify maps an invocation error onto its domain error class.
func Classify(err error) domain.ErrorClass {
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return domain.ErrorClassAuth
	}
	var quotaErr *QuotaError
	if errors.As(err, &quotaErr) {
		return domain.ErrorClassQuota
	}
	return domain.ErrorClassTransient
}

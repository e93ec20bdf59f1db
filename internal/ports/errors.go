package ports

import (
	"errors"
	"fmt"
	"time"
)

// Common infrastructure errors that can occur during external service
// interactions.
var (
	// ErrRateLimited indicates that the provider has rate limited the
	// request.
	ErrRateLimited = errors.New("rate limited")

	// ErrServiceUnavailable indicates that the external provider is
	// unavailable.
	ErrServiceUnavailable = errors.New("service unavailable")

	// ErrTimeout indicates that an operation timed out.
	ErrTimeout = errors.New("operation timed out")

	// ErrInvalidResponse indicates that the provider returned a response
	// the client could not use.
	ErrInvalidResponse = errors.New("invalid response")

	// ErrCircuitOpen indicates the provider circuit breaker is open and
	// requests are being rejected without reaching the provider.
	ErrCircuitOpen = errors.New("circuit breaker open")
)

// ProviderError represents a failure of the embedding or language-model
// provider. It aborts the verification it occurred in; the caller decides
// whether to retry.
type ProviderError struct {
	// Provider identifies the provider kind, e.g. "embedding" or
	// "likelihood".
	Provider string

	// Model is the model identifier in use when the error occurred.
	Model string

	// Operation is the provider operation that failed.
	Operation string

	// Err is the underlying error.
	Err error

	// RetryAfter indicates how long to wait before retrying, if the
	// provider said so.
	RetryAfter *time.Duration
}

// Error implements the error interface for ProviderError.
func (e *ProviderError) Error() string {
	msg := fmt.Sprintf("provider error: provider=%s, model=%s, operation=%s, err=%v",
		e.Provider, e.Model, e.Operation, e.Err)
	if e.RetryAfter != nil {
		msg += fmt.Sprintf(", retry_after=%v", *e.RetryAfter)
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *ProviderError) Unwrap() error { return e.Err }

// IsRetryable returns true if the failure is transient and the caller may
// retry the whole verification.
func (e *ProviderError) IsRetryable() bool {
	return errors.Is(e.Err, ErrRateLimited) ||
		errors.Is(e.Err, ErrServiceUnavailable) ||
		errors.Is(e.Err, ErrTimeout)
}

// NewProviderError creates a new ProviderError with the given details.
func NewProviderError(provider, model, operation string, err error) *ProviderError {
	return &ProviderError{
		Provider:  provider,
		Model:     model,
		Operation: operation,
		Err:       err,
	}
}

// CacheError represents an error from cache operations.
type CacheError struct {
	// Key is the cache key involved in the failed operation.
	Key string

	// Operation is the cache operation that failed.
	Operation string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface for CacheError.
func (e *CacheError) Error() string {
	return fmt.Sprintf("cache error: operation=%s, key=%s, err=%v", e.Operation, e.Key, e.Err)
}

// Unwrap returns the underlying error.
func (e *CacheError) Unwrap() error { return e.Err }

// NewCacheError creates a new CacheError with the given details.
func NewCacheError(key, operation string, err error) *CacheError {
	return &CacheError{Key: key, Operation: operation, Err: err}
}

// PublishError represents a failure to deliver a result to downstream
// consumers. Publishing is best-effort, so this error is logged rather
// than surfaced to the verification caller.
type PublishError struct {
	// Subject is the destination the result was published to.
	Subject string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface for PublishError.
func (e *PublishError) Error() string {
	return fmt.Sprintf("publish error: subject=%s, err=%v", e.Subject, e.Err)
}

// Unwrap returns the underlying error.
func (e *PublishError) Unwrap() error { return e.Err }

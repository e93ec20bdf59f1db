// Package providers implements the embedding and likelihood model ports
// against external model APIs, plus the resilience middleware (retry,
// timeout, rate limiting, circuit breaking, metrics) that wraps them.
package providers

import (
	"context"
	"errors"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/engagekit/verity/internal/ports"
)

// classifyOpenAIError maps go-openai errors onto the port error taxonomy
// so callers can make retry decisions without knowing the SDK.
func classifyOpenAIError(provider, model, operation string, err error) error {
	if err == nil {
		return nil
	}

	var retryAfter *time.Duration

	cause := err
	var apiErr *openai.APIError
	var reqErr *openai.RequestError

	switch {
	case errors.As(err, &apiErr):
		cause = sentinelForStatus(apiErr.HTTPStatusCode, err)
	case errors.As(err, &reqErr):
		cause = sentinelForStatus(reqErr.HTTPStatusCode, err)
	case errors.Is(err, context.DeadlineExceeded):
		cause = errors.Join(ports.ErrTimeout, err)
	}

	return &ports.ProviderError{
		Provider:   provider,
		Model:      model,
		Operation:  operation,
		Err:        cause,
		RetryAfter: retryAfter,
	}
}

func sentinelForStatus(status int, err error) error {
	switch {
	case status == http.StatusTooManyRequests:
		return errors.Join(ports.ErrRateLimited, err)
	case status == http.StatusRequestTimeout:
		return errors.Join(ports.ErrTimeout, err)
	case status >= http.StatusInternalServerError:
		return errors.Join(ports.ErrServiceUnavailable, err)
	default:
		return err
	}
}

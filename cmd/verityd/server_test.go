package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/engagekit/verity/internal/domain"
	"github.com/engagekit/verity/internal/ports"
)

type stubVerifier struct {
	result *domain.VerificationResult
	err    error
}

func (s *stubVerifier) Verify(_ context.Context, req domain.VerificationRequest) (*domain.VerificationResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return s.result, nil
}

func newTestRouter(v verifier) http.Handler {
	return newRouter(v, slog.New(slog.NewTextHandler(&strings.Builder{}, nil)))
}

func TestHandleVerify(t *testing.T) {
	passing := &domain.VerificationResult{
		Status:        domain.StatusPassed,
		Passed:        true,
		CombinedScore: 0.74,
		RequestID:     "req-1",
	}

	t.Run("successful verification", func(t *testing.T) {
		router := newTestRouter(&stubVerifier{result: passing})

		body := `{"response_text":"a genuine response","reference_content":"the content","prompt":"the prompt"}`
		req := httptest.NewRequest(http.MethodPost, "/v1/verify", strings.NewReader(body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)

		var result domain.VerificationResult
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
		assert.True(t, result.Passed)
		assert.InDelta(t, 0.74, result.CombinedScore, 1e-9)
	})

	t.Run("malformed body is a bad request", func(t *testing.T) {
		router := newTestRouter(&stubVerifier{result: passing})

		req := httptest.NewRequest(http.MethodPost, "/v1/verify", strings.NewReader("{not json"))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("empty response text is a bad request", func(t *testing.T) {
		router := newTestRouter(&stubVerifier{result: passing})

		req := httptest.NewRequest(http.MethodPost, "/v1/verify", strings.NewReader(`{"response_text":"  "}`))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("provider failure is service unavailable", func(t *testing.T) {
		provErr := ports.NewProviderError("openai", "m", "embed", ports.ErrServiceUnavailable)
		router := newTestRouter(&stubVerifier{err: provErr})

		body := `{"response_text":"a genuine response"}`
		req := httptest.NewRequest(http.MethodPost, "/v1/verify", strings.NewReader(body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})

	t.Run("unexpected failure is internal error", func(t *testing.T) {
		router := newTestRouter(&stubVerifier{err: errors.New("boom")})

		body := `{"response_text":"a genuine response"}`
		req := httptest.NewRequest(http.MethodPost, "/v1/verify", strings.NewReader(body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})

	t.Run("wrong method is not found", func(t *testing.T) {
		router := newTestRouter(&stubVerifier{result: passing})

		req := httptest.NewRequest(http.MethodGet, "/v1/verify", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	})
}

func TestHandleHealth(t *testing.T) {
	router := newTestRouter(&stubVerifier{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

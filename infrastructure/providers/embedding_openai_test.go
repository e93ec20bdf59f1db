package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/engagekit/verity/internal/ports"
)

type embeddingResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

func newEmbeddingServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/embeddings", handler)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestOpenAIEmbedder(t *testing.T, srv *httptest.Server) *OpenAIEmbedder {
	t.Helper()
	emb, err := NewOpenAIEmbedder(OpenAIConfig{
		APIKey:  "test-key",
		BaseURL: srv.URL + "/v1",
		Timeout: 5 * time.Second,
	})
	require.NoError(t, err)
	return emb
}

func TestNewOpenAIEmbedder(t *testing.T) {
	_, err := NewOpenAIEmbedder(OpenAIConfig{})
	assert.ErrorIs(t, err, ErrEmptyAPIKey)

	emb, err := NewOpenAIEmbedder(OpenAIConfig{APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, OpenAIEmbeddingDefaultModel, emb.Model())
}

func TestOpenAIEmbedder_Encode(t *testing.T) {
	t.Run("returns vectors in input order", func(t *testing.T) {
		srv := newEmbeddingServer(t, func(w http.ResponseWriter, r *http.Request) {
			// Respond out of order to exercise index-based placement.
			resp := embeddingResponse{}
			resp.Data = append(resp.Data,
				struct {
					Index     int       `json:"index"`
					Embedding []float32 `json:"embedding"`
				}{Index: 1, Embedding: []float32{0, 1}},
				struct {
					Index     int       `json:"index"`
					Embedding []float32 `json:"embedding"`
				}{Index: 0, Embedding: []float32{1, 0}},
			)
			require.NoError(t, json.NewEncoder(w).Encode(resp))
		})
		emb := newTestOpenAIEmbedder(t, srv)

		vectors, err := emb.Encode(context.Background(), []string{"first", "second"})
		require.NoError(t, err)
		require.Len(t, vectors, 2)
		assert.Equal(t, []float32{1, 0}, vectors[0])
		assert.Equal(t, []float32{0, 1}, vectors[1])
	})

	t.Run("empty input short-circuits", func(t *testing.T) {
		srv := newEmbeddingServer(t, func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("no request expected")
		})
		emb := newTestOpenAIEmbedder(t, srv)

		vectors, err := emb.Encode(context.Background(), nil)
		require.NoError(t, err)
		assert.Nil(t, vectors)
	})

	t.Run("count mismatch is an invalid response", func(t *testing.T) {
		srv := newEmbeddingServer(t, func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, json.NewEncoder(w).Encode(embeddingResponse{}))
		})
		emb := newTestOpenAIEmbedder(t, srv)

		_, err := emb.Encode(context.Background(), []string{"text"})
		require.Error(t, err)
		assert.ErrorIs(t, err, ports.ErrInvalidResponse)
	})

	t.Run("rate limit status maps to retryable", func(t *testing.T) {
		srv := newEmbeddingServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":{"message":"slow down","type":"rate_limit_exceeded"}}`))
		})
		emb := newTestOpenAIEmbedder(t, srv)

		_, err := emb.Encode(context.Background(), []string{"text"})
		require.Error(t, err)

		var provErr *ports.ProviderError
		require.ErrorAs(t, err, &provErr)
		assert.True(t, provErr.IsRetryable())
		assert.ErrorIs(t, err, ports.ErrRateLimited)
	})

	t.Run("server error maps to unavailable", func(t *testing.T) {
		srv := newEmbeddingServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error":{"message":"boom"}}`))
		})
		emb := newTestOpenAIEmbedder(t, srv)

		_, err := emb.Encode(context.Background(), []string{"text"})
		require.Error(t, err)
		assert.ErrorIs(t, err, ports.ErrServiceUnavailable)
	})
}

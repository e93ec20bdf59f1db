// Package ports defines the core interfaces that form the contract between
// the domain/engine layers and the infrastructure layer.
// These interfaces enable dependency inversion and make the system testable.
package ports

import (
	"context"
	"time"

	"github.com/engagekit/verity/internal/domain"
)

// Embedder turns text into fixed-size semantic vectors.
// Implementations wrap an external embedding model and must be safe for
// concurrent use; the engine loads one embedder per process and shares it
// across requests.
type Embedder interface {
	// Encode returns one embedding vector per input text, in input order.
	// All returned vectors have the same dimensionality. Implementations
	// should batch the texts into a single upstream request where the
	// provider supports it.
	Encode(ctx context.Context, texts []string) ([][]float32, error)

	// Model returns the embedding model identifier, used in result
	// metadata for reproducibility.
	Model() string
}

// LikelihoodModel computes average per-token negative log-likelihood of
// text under a causal language model. Perplexity is exp(loss).
// Implementations must be safe for concurrent use.
type LikelihoodModel interface {
	// SequenceLoss returns the mean per-token NLL of text on its own,
	// along with the number of tokens analyzed. Empty or untokenizable
	// text returns an infinite loss with zero tokens, not an error.
	SequenceLoss(ctx context.Context, text string) (loss float64, tokens int, err error)

	// ConditionalLoss returns the mean per-token NLL of text when the
	// model has already seen contextText. Loss is computed over the text
	// tokens only; context tokens are masked out.
	ConditionalLoss(ctx context.Context, contextText, text string) (loss float64, tokens int, err error)

	// Model returns the language model identifier.
	Model() string
}

// CacheStore caches verification results keyed by an input fingerprint.
// Entries are immutable once written: Set must not replace an existing
// unexpired entry, so concurrent writers race benignly and readers always
// observe a complete result.
type CacheStore interface {
	// Get retrieves a cached result by fingerprint.
	// Returns the result and true if found, or nil and false otherwise.
	Get(ctx context.Context, key string) (*domain.VerificationResult, bool, error)

	// Set stores a result under the fingerprint with a time-to-live.
	// A zero TTL means the entry does not expire. Writing to a key that
	// already holds an unexpired entry is a no-op.
	Set(ctx context.Context, key string, result *domain.VerificationResult, ttl time.Duration) error

	// Delete removes an entry. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// MetricsCollector records operational metrics for the engine.
// Implementations integrate with observability platforms like Prometheus.
type MetricsCollector interface {
	// RecordLatency records the execution time of an operation.
	RecordLatency(operation string, duration time.Duration, labels map[string]string)

	// RecordCounter increments a counter metric, e.g. cache hits or
	// verification outcomes.
	RecordCounter(metric string, value float64, labels map[string]string)

	// RecordHistogram records a value in a distribution, e.g. combined
	// scores.
	RecordHistogram(metric string, value float64, labels map[string]string)
}

// ResultPublisher delivers completed verification results to downstream
// consumers (persistence, payouts, notifications). Publishing is
// best-effort from the engine's point of view: a publish failure never
// fails the verification itself.
type ResultPublisher interface {
	Publish(ctx context.Context, result *domain.VerificationResult) error
}

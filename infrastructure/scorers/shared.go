// Package scorers provides the verification scoring components. Each
// scorer is a pure function of its inputs plus the shared embedding and
// likelihood providers, is stateless, and is safe for concurrent use.
package scorers

import (
	"errors"
	"math"

	"github.com/go-playground/validator/v10"
)

// Common errors returned by scorer constructors.
var (
	// ErrEmptyScorerName is returned when attempting to create a scorer
	// with an empty name.
	ErrEmptyScorerName = errors.New("scorer name cannot be empty")

	// ErrNilEmbedder is returned when a scorer requiring embeddings is
	// created without an embedder.
	ErrNilEmbedder = errors.New("embedder cannot be nil")

	// ErrNilLikelihoodModel is returned when the perplexity scorer is
	// created without a likelihood model.
	ErrNilLikelihoodModel = errors.New("likelihood model cannot be nil")

	// ErrNilLexicon is returned when a scorer requiring phrase lists is
	// created without a lexicon.
	ErrNilLexicon = errors.New("lexicon cannot be nil")
)

// Package-level validator instance for configuration validation.
var validate = validator.New()

// cosineSimilarity computes the cosine similarity between two embedding
// vectors. Similarity is undefined for mismatched lengths or zero-norm
// vectors; both cases return 0 rather than an error, since degenerate
// embeddings are a neutral signal, not a failure.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		av := float64(a[i])
		bv := float64(b[i])
		dot += av * bv
		normA += av * av
		normB += bv * bv
	}

	normA = math.Sqrt(normA)
	normB = math.Sqrt(normB)
	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (normA * normB)
}

// clamp01 clamps v to [0,1].
func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

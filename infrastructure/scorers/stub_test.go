package scorers

import (
	"context"
	"errors"
	"math"
)

// stubEmbedder returns canned vectors per text. Unknown texts fall back
// to a deterministic vector derived from the text bytes so similarity
// stays stable across runs.
type stubEmbedder struct {
	vectors map[string][]float32
	err     error
}

func (s *stubEmbedder) Encode(_ context.Context, texts []string) ([][]float32, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if v, ok := s.vectors[t]; ok {
			out[i] = v
			continue
		}
		out[i] = deriveVector(t)
	}
	return out, nil
}

func (s *stubEmbedder) Model() string { return "stub-embedder" }

// deriveVector builds a unit-ish 4-dim vector from byte sums so equal
// texts always embed identically.
func deriveVector(text string) []float32 {
	var a, b, c, d float64
	for i, r := range text {
		switch i % 4 {
		case 0:
			a += float64(r)
		case 1:
			b += float64(r)
		case 2:
			c += float64(r)
		default:
			d += float64(r)
		}
	}
	norm := math.Sqrt(a*a + b*b + c*c + d*d)
	if norm == 0 {
		norm = 1
	}
	return []float32{float32(a / norm), float32(b / norm), float32(c / norm), float32(d / norm)}
}

// stubLikelihood returns fixed losses for unconditional and conditional
// calls.
type stubLikelihood struct {
	uncondLoss   float64
	uncondTokens int
	condLoss     float64
	condTokens   int
	err          error
}

func (s *stubLikelihood) SequenceLoss(_ context.Context, text string) (float64, int, error) {
	if s.err != nil {
		return 0, 0, s.err
	}
	if text == "" {
		return math.Inf(1), 0, nil
	}
	return s.uncondLoss, s.uncondTokens, nil
}

func (s *stubLikelihood) ConditionalLoss(_ context.Context, _, text string) (float64, int, error) {
	if s.err != nil {
		return 0, 0, s.err
	}
	if text == "" {
		return math.Inf(1), 0, nil
	}
	return s.condLoss, s.condTokens, nil
}

func (s *stubLikelihood) Model() string { return "stub-likelihood" }

var errStubProvider = errors.New("stub provider failure")

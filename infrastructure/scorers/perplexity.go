package scorers

import (
	"context"
	"fmt"
	"math"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/engagekit/verity/internal/domain"
	"github.com/engagekit/verity/internal/ports"
)

// Irreducibility mapping constants. The reduction ratio is clamped to
// [ratioFloor, ratioCeil] and linearly rescaled to [0,1].
const (
	ratioFloor         = 0.3
	ratioCeil          = 1.5
	neutralIrreducible = 0.5
	degenerateRatio    = 1.0

	// perplexityCap bounds the raw perplexities reported in the result.
	// Infinite values cannot survive JSON encoding downstream.
	perplexityCap = 1e6
)

// aiLikelihoodBands maps unconditional perplexity to a score where
// higher means the text reads more human. Low perplexity means the model
// finds the text unsurprising, which generated text tends to be.
var aiLikelihoodBands = []struct {
	maxPerplexity float64
	likelihood    float64
}{
	{20, 0.15},
	{30, 0.35},
	{45, 0.55},
	{65, 0.75},
}

const aiLikelihoodCeil = 0.90

// PerplexityScorer measures how much of a response's information content
// survives conditioning on the reference material. A response the model
// can largely reconstruct from the content carries little of its own.
type PerplexityScorer struct {
	name       string
	likelihood ports.LikelihoodModel
	tracer     trace.Tracer
}

// NewPerplexityScorer creates a new PerplexityScorer with the given
// likelihood model.
func NewPerplexityScorer(name string, likelihood ports.LikelihoodModel) (*PerplexityScorer, error) {
	if name == "" {
		return nil, ErrEmptyScorerName
	}
	if likelihood == nil {
		return nil, ErrNilLikelihoodModel
	}
	return &PerplexityScorer{
		name:       name,
		likelihood: likelihood,
		tracer:     otel.Tracer("perplexity-scorer"),
	}, nil
}

// Name returns the unique identifier for this scorer instance.
func (ps *PerplexityScorer) Name() string { return ps.name }

// Score computes the perplexity bundle for a response given the
// reference content. Degenerate measurements (no tokens, infinite or
// zero perplexity) fall back to a neutral irreducibility rather than
// failing the verification.
func (ps *PerplexityScorer) Score(ctx context.Context, response, content string) (domain.PerplexityScores, error) {
	ctx, span := ps.tracer.Start(ctx, "PerplexityScorer.Score",
		trace.WithAttributes(
			attribute.String("scorer.id", ps.name),
			attribute.String("model", ps.likelihood.Model()),
		),
	)
	defer span.End()

	uncondLoss, tokens, err := ps.likelihood.SequenceLoss(ctx, response)
	if err != nil {
		span.RecordError(err)
		return domain.PerplexityScores{}, fmt.Errorf("scorer %s: unconditional loss failed: %w", ps.name, err)
	}
	uncondPPL := math.Exp(uncondLoss)

	result := domain.PerplexityScores{
		Unconditional:  capPerplexity(uncondPPL),
		TokensAnalyzed: tokens,
		ModelUsed:      ps.likelihood.Model(),
	}

	if tokens == 0 || math.IsInf(uncondPPL, 1) || uncondPPL == 0 {
		result.Conditional = result.Unconditional
		result.ReductionRatio = degenerateRatio
		result.IrreducibilityScore = neutralIrreducible
		result.AILikelihoodScore = aiLikelihoodCeil
		span.SetAttributes(attribute.Bool("perplexity.degenerate", true))
		return result, nil
	}

	condLoss, _, err := ps.likelihood.ConditionalLoss(ctx, content, response)
	if err != nil {
		span.RecordError(err)
		return domain.PerplexityScores{}, fmt.Errorf("scorer %s: conditional loss failed: %w", ps.name, err)
	}
	condPPL := math.Exp(condLoss)
	result.Conditional = capPerplexity(condPPL)

	ratio := condPPL / uncondPPL
	if math.IsNaN(ratio) || math.IsInf(ratio, 0) {
		ratio = degenerateRatio
	}
	result.ReductionRatio = ratio

	clamped := math.Min(math.Max(ratio, ratioFloor), ratioCeil)
	result.IrreducibilityScore = (clamped - ratioFloor) / (ratioCeil - ratioFloor)

	result.AILikelihoodScore = bandAILikelihood(uncondPPL)

	span.SetAttributes(
		attribute.Float64("perplexity.unconditional", uncondPPL),
		attribute.Float64("perplexity.reduction_ratio", ratio),
		attribute.Float64("eval.score", result.IrreducibilityScore),
	)

	return result, nil
}

func capPerplexity(v float64) float64 {
	if math.IsNaN(v) {
		return perplexityCap
	}
	return math.Min(v, perplexityCap)
}

func bandAILikelihood(perplexity float64) float64 {
	for _, band := range aiLikelihoodBands {
		if perplexity < band.maxPerplexity {
			return band.likelihood
		}
	}
	return aiLikelihoodCeil
}

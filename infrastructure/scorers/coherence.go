package scorers

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/engagekit/verity/internal/domain"
	"github.com/engagekit/verity/internal/ports"
	"github.com/engagekit/verity/internal/textutil"
)

// Coherence blend weights and banding constants.
const (
	coherenceStructureWeight    = 0.20
	coherenceFlowWeight         = 0.20
	coherenceCompletenessWeight = 0.20
	coherenceSemanticWeight     = 0.25
	coherenceLengthWeight       = 0.15
	coherenceSentenceMinChars   = 5
	expectedWordsPerConnector   = 40.0
	neutralSemanticCoherence    = 0.7
)

// CoherenceScorer measures whether a response reads as structured,
// complete prose: sentence rhythm, connector flow, a proper ending,
// semantic continuity between adjacent sentences, and overall length.
type CoherenceScorer struct {
	name     string
	embedder ports.Embedder
	lexicon  *textutil.Lexicon
	// incompleteEndings is precomputed from the lexicon at construction.
	incompleteEndings map[string]struct{}
	tracer            trace.Tracer
}

// NewCoherenceScorer creates a new CoherenceScorer with the given
// embedder and lexicon.
func NewCoherenceScorer(name string, embedder ports.Embedder, lexicon *textutil.Lexicon) (*CoherenceScorer, error) {
	if name == "" {
		return nil, ErrEmptyScorerName
	}
	if embedder == nil {
		return nil, ErrNilEmbedder
	}
	if lexicon == nil {
		return nil, ErrNilLexicon
	}

	return &CoherenceScorer{
		name:              name,
		embedder:          embedder,
		lexicon:           lexicon,
		incompleteEndings: lexicon.IncompleteEndingSet(),
		tracer:            otel.Tracer("coherence-scorer"),
	}, nil
}

// Name returns the unique identifier for this scorer instance.
func (cs *CoherenceScorer) Name() string { return cs.name }

// Score computes the coherence bundle for a response.
func (cs *CoherenceScorer) Score(ctx context.Context, response string) (domain.CoherenceScores, error) {
	ctx, span := cs.tracer.Start(ctx, "CoherenceScorer.Score",
		trace.WithAttributes(
			attribute.String("scorer.id", cs.name),
			attribute.Int("response.chars", len(response)),
		),
	)
	defer span.End()

	sentences := textutil.Sentences(response, coherenceSentenceMinChars)

	structure := cs.structureScore(sentences)
	flow := cs.flowScore(response)
	completeness := cs.completenessScore(response)

	semantic, err := cs.semanticCoherence(ctx, sentences)
	if err != nil {
		span.RecordError(err)
		return domain.CoherenceScores{}, err
	}

	lengthScore := cs.lengthScore(response)

	combined := clamp01(coherenceStructureWeight*structure +
		coherenceFlowWeight*flow +
		coherenceCompletenessWeight*completeness +
		coherenceSemanticWeight*semantic +
		coherenceLengthWeight*lengthScore)

	span.SetAttributes(attribute.Float64("eval.score", combined))

	return domain.CoherenceScores{
		Structure:         structure,
		Flow:              flow,
		Completeness:      completeness,
		SemanticCoherence: semantic,
		LengthScore:       lengthScore,
		Combined:          combined,
	}, nil
}

// structureScore rewards multi-sentence responses with healthy sentence
// length and some variation in rhythm.
func (cs *CoherenceScorer) structureScore(sentences []string) float64 {
	if len(sentences) < 2 {
		return 0.5
	}

	lengths := make([]float64, len(sentences))
	for i, s := range sentences {
		lengths[i] = float64(textutil.WordCount(s))
	}
	mean, std := textutil.MeanStd(lengths)

	var lengthScore float64
	switch {
	case mean < 5:
		lengthScore = 0.4
	case mean <= 20:
		lengthScore = 0.9
	default:
		lengthScore = 0.7
	}

	cv := std / (mean + 1)
	varianceScore := min(cv/0.4, 1.0)

	return 0.5*lengthScore + 0.5*varianceScore
}

// flowScore checks whether logical connectors appear at roughly the rate
// long-form prose uses them. Both a total absence and saturation read as
// unnatural.
func (cs *CoherenceScorer) flowScore(response string) float64 {
	connectors := textutil.CountPresent(response, cs.lexicon.LogicalConnectors)
	expected := float64(textutil.WordCount(response)) / expectedWordsPerConnector
	ratio := float64(connectors) / max(expected, 1.0)

	switch {
	case ratio < 0.3:
		return 0.4
	case ratio < 0.7:
		return 0.65
	case ratio <= 1.5:
		return 0.9
	default:
		return 0.7
	}
}

// completenessScore checks that the response ends like a finished
// thought rather than trailing off.
func (cs *CoherenceScorer) completenessScore(response string) float64 {
	trimmed := strings.TrimSpace(response)
	if trimmed == "" {
		return 0.0
	}

	var score float64
	switch trimmed[len(trimmed)-1] {
	case '.', '!', '?':
		score = 1.0
	case ',', ';', ':':
		score = 0.4
	default:
		score = 0.6
	}

	words := textutil.Words(trimmed)
	if len(words) > 0 {
		last := strings.ToLower(strings.Trim(words[len(words)-1], ".,!?"))
		if _, ok := cs.incompleteEndings[last]; ok {
			score *= 0.5
		}
	}
	return score
}

// semanticCoherence embeds each sentence and averages adjacent-pair
// similarity. Fewer than two sentences gives nothing to compare.
func (cs *CoherenceScorer) semanticCoherence(ctx context.Context, sentences []string) (float64, error) {
	if len(sentences) < 2 {
		return neutralSemanticCoherence, nil
	}

	vectors, err := cs.embedder.Encode(ctx, sentences)
	if err != nil {
		return 0, fmt.Errorf("scorer %s: sentence encoding failed: %w", cs.name, err)
	}
	if len(vectors) != len(sentences) {
		return 0, fmt.Errorf("scorer %s: expected %d embeddings, got %d", cs.name, len(sentences), len(vectors))
	}

	sum := 0.0
	for i := 0; i < len(vectors)-1; i++ {
		sum += cosineSimilarity(vectors[i], vectors[i+1])
	}
	return clamp01(sum / float64(len(vectors)-1)), nil
}

// lengthScore bands total word count. The sweet spot is a few solid
// paragraphs.
func (cs *CoherenceScorer) lengthScore(response string) float64 {
	words := textutil.WordCount(response)
	switch {
	case words < 15:
		return 0.2
	case words < 30:
		return 0.5
	case words <= 400:
		return 1.0
	case words <= 600:
		return 0.8
	default:
		return 0.5
	}
}

package scorers

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/engagekit/verity/internal/domain"
	"github.com/engagekit/verity/internal/textutil"
)

// Heuristic detection weights. Higher scores mean the text reads as
// human-written.
const (
	aiPhraseWeight      = 0.40
	aiBurstinessWeight  = 0.35
	aiPersonalityWeight = 0.25
	burstinessMinSents  = 3
)

// AIDetectScorer runs surface heuristics for machine-generated text:
// assistant boilerplate phrasing, flat sentence rhythm, and an absence
// of informal personality markers. It complements the model-based
// perplexity signal and needs no provider calls.
type AIDetectScorer struct {
	name    string
	lexicon *textutil.Lexicon
	tracer  trace.Tracer
}

// NewAIDetectScorer creates a new AIDetectScorer with the given lexicon.
func NewAIDetectScorer(name string, lexicon *textutil.Lexicon) (*AIDetectScorer, error) {
	if name == "" {
		return nil, ErrEmptyScorerName
	}
	if lexicon == nil {
		return nil, ErrNilLexicon
	}
	return &AIDetectScorer{
		name:    name,
		lexicon: lexicon,
		tracer:  otel.Tracer("aidetect-scorer"),
	}, nil
}

// Name returns the unique identifier for this scorer instance.
func (as *AIDetectScorer) Name() string { return as.name }

// Score computes the heuristic detection bundle for a response.
func (as *AIDetectScorer) Score(ctx context.Context, response string) (domain.AIDetectionScores, error) {
	_, span := as.tracer.Start(ctx, "AIDetectScorer.Score",
		trace.WithAttributes(
			attribute.String("scorer.id", as.name),
			attribute.Int("response.chars", len(response)),
		),
	)
	defer span.End()

	phrase := as.phraseScore(response)
	burstiness := as.burstinessScore(response)
	personality := as.personalityScore(response)

	combined := clamp01(aiPhraseWeight*phrase +
		aiBurstinessWeight*burstiness +
		aiPersonalityWeight*personality)

	span.SetAttributes(attribute.Float64("eval.score", combined))

	return domain.AIDetectionScores{
		PhraseScore:      phrase,
		BurstinessScore:  burstiness,
		PersonalityScore: personality,
		Combined:         combined,
	}, nil
}

// phraseScore weighs assistant boilerplate against informal human
// markers, both as densities per hundred words.
func (as *AIDetectScorer) phraseScore(response string) float64 {
	words := textutil.WordCount(response)
	if words == 0 {
		return 0.5
	}

	aiDensity := float64(textutil.CountPresent(response, as.lexicon.AIPhrases)) / float64(words) * 100
	humanDensity := float64(textutil.CountPresent(response, as.lexicon.HumanMarkers)) / float64(words) * 100

	var aiScore float64
	switch {
	case aiDensity > 4:
		aiScore = 0.25
	case aiDensity > 2:
		aiScore = 0.5
	default:
		aiScore = 0.85
	}

	var humanScore float64
	switch {
	case humanDensity > 2:
		humanScore = 0.9
	case humanDensity > 0.5:
		humanScore = 0.7
	default:
		humanScore = 0.5
	}

	return 0.5*aiScore + 0.5*humanScore
}

// burstinessScore measures sentence length variation. Human prose mixes
// short and long sentences; generated text tends toward uniformity.
func (as *AIDetectScorer) burstinessScore(response string) float64 {
	sentences := textutil.Sentences(response, coherenceSentenceMinChars)
	if len(sentences) < burstinessMinSents {
		return 0.6
	}

	lengths := make([]float64, len(sentences))
	for i, s := range sentences {
		lengths[i] = float64(textutil.WordCount(s))
	}
	mean, std := textutil.MeanStd(lengths)
	cv := std / (mean + 1e-8)

	switch {
	case cv > 0.5:
		return 0.9
	case cv > 0.35:
		return 0.7
	case cv > 0.2:
		return 0.5
	default:
		return 0.3
	}
}

// personalityScore counts informal punctuation habits that polished
// generated text rarely carries.
func (as *AIDetectScorer) personalityScore(response string) float64 {
	words := textutil.WordCount(response)
	if words == 0 {
		return 0.4
	}

	markers := float64(strings.Count(response, "!")) +
		float64(strings.Count(response, "..."))*2 +
		float64(strings.Count(response, "(")) +
		float64(strings.Count(response, "?"))*0.5
	density := markers / float64(words) * 100

	switch {
	case density > 2.5:
		return 0.9
	case density > 1:
		return 0.7
	case density > 0.3:
		return 0.55
	default:
		return 0.4
	}
}

package scorers

import (
	"context"
	"fmt"

	"github.com/agnivade/levenshtein"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/engagekit/verity/internal/domain"
	"github.com/engagekit/verity/internal/ports"
	"github.com/engagekit/verity/internal/textutil"
)

// Novelty blend weights and banding constants.
const (
	noveltyDistanceWeight        = 0.30
	noveltyCorpusWeight          = 0.30
	noveltyPersonalWeight        = 0.25
	noveltyTemplateWeight        = 0.15
	trigramPenaltyFactor         = 0.5
	emptyCorpusNovelty           = 0.9
	personalizationMinWords      = 10
	lowEffortPersonalization     = 0.3
	personalizationBonus         = 0.2
	nearDuplicateEditSimilarity  = 0.95
)

// NoveltyScorer measures how much a response adds beyond restating the
// reference content and how distinct it is from responses already
// submitted for the same content.
type NoveltyScorer struct {
	name     string
	config   NoveltyConfig
	embedder ports.Embedder
	lexicon  *textutil.Lexicon
	tracer   trace.Tracer
}

// NoveltyConfig defines the configuration parameters for the
// NoveltyScorer.
type NoveltyConfig struct {
	// MaxCorpusCompare caps how many existing responses are embedded
	// for pairwise comparison.
	MaxCorpusCompare int `yaml:"max_corpus_compare" json:"max_corpus_compare" validate:"min=1,max=1000"`
}

// DefaultNoveltyConfig returns a NoveltyConfig with sensible defaults.
func DefaultNoveltyConfig() NoveltyConfig {
	return NoveltyConfig{MaxCorpusCompare: 100}
}

// NewNoveltyScorer creates a new NoveltyScorer with the given embedder
// and lexicon.
func NewNoveltyScorer(name string, embedder ports.Embedder, lexicon *textutil.Lexicon, config NoveltyConfig) (*NoveltyScorer, error) {
	if name == "" {
		return nil, ErrEmptyScorerName
	}
	if embedder == nil {
		return nil, ErrNilEmbedder
	}
	if lexicon == nil {
		return nil, ErrNilLexicon
	}
	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &NoveltyScorer{
		name:     name,
		config:   config,
		embedder: embedder,
		lexicon:  lexicon,
		tracer:   otel.Tracer("novelty-scorer"),
	}, nil
}

// Name returns the unique identifier for this scorer instance.
func (ns *NoveltyScorer) Name() string { return ns.name }

// Score computes the novelty bundle for a response against the reference
// content and the corpus of existing responses.
func (ns *NoveltyScorer) Score(ctx context.Context, response, content string, existing []string) (domain.NoveltyScores, error) {
	ctx, span := ns.tracer.Start(ctx, "NoveltyScorer.Score",
		trace.WithAttributes(
			attribute.String("scorer.id", ns.name),
			attribute.Int("corpus.size", len(existing)),
		),
	)
	defer span.End()

	contentDistance, trigramOverlap, err := ns.contentDistance(ctx, response, content)
	if err != nil {
		span.RecordError(err)
		return domain.NoveltyScores{}, err
	}

	corpusNovelty, maxSim, err := ns.corpusNovelty(ctx, response, existing)
	if err != nil {
		span.RecordError(err)
		return domain.NoveltyScores{}, err
	}

	personalization := ns.personalization(response)
	templateScore := ns.templateScore(response)

	combined := clamp01(noveltyDistanceWeight*contentDistance +
		noveltyCorpusWeight*corpusNovelty +
		noveltyPersonalWeight*personalization +
		noveltyTemplateWeight*templateScore)

	span.SetAttributes(attribute.Float64("eval.score", combined))

	return domain.NoveltyScores{
		ContentDistance:     contentDistance,
		CorpusNovelty:       corpusNovelty,
		MaxCorpusSimilarity: maxSim,
		TrigramOverlap:      trigramOverlap,
		Personalization:     personalization,
		TemplateScore:       templateScore,
		Combined:            combined,
	}, nil
}

// contentDistance rewards responses that move away from the reference
// content in embedding space without becoming unrelated. A high trigram
// overlap indicates verbatim lifting and discounts the score.
func (ns *NoveltyScorer) contentDistance(ctx context.Context, response, content string) (score, trigramOverlap float64, err error) {
	vectors, err := ns.embedder.Encode(ctx, []string{response, content})
	if err != nil {
		return 0, 0, fmt.Errorf("scorer %s: encoding failed: %w", ns.name, err)
	}
	if len(vectors) != 2 {
		return 0, 0, fmt.Errorf("scorer %s: expected 2 embeddings, got %d", ns.name, len(vectors))
	}

	sim := cosineSimilarity(vectors[0], vectors[1])
	switch {
	case sim > 0.85:
		score = 0.2
	case sim > 0.7:
		score = 0.5
	case sim > 0.4:
		score = 0.85
	default:
		// Too far from the content reads as off-topic, not novel.
		score = 0.6
	}

	trigramOverlap = textutil.TrigramOverlap(response, content)
	score *= 1 - trigramPenaltyFactor*trigramOverlap

	return clamp01(score), trigramOverlap, nil
}

// corpusNovelty compares the response against previously submitted
// responses. An edit-distance check catches near-duplicates without
// paying for embeddings.
func (ns *NoveltyScorer) corpusNovelty(ctx context.Context, response string, existing []string) (score, maxSim float64, err error) {
	if len(existing) == 0 {
		return emptyCorpusNovelty, 0.0, nil
	}
	if len(existing) > ns.config.MaxCorpusCompare {
		existing = existing[:ns.config.MaxCorpusCompare]
	}

	for _, prior := range existing {
		if editSimilarity(response, prior) >= nearDuplicateEditSimilarity {
			return bandCorpusScore(1.0), 1.0, nil
		}
	}

	texts := append([]string{response}, existing...)
	vectors, err := ns.embedder.Encode(ctx, texts)
	if err != nil {
		return 0, 0, fmt.Errorf("scorer %s: corpus encoding failed: %w", ns.name, err)
	}
	if len(vectors) != len(texts) {
		return 0, 0, fmt.Errorf("scorer %s: expected %d embeddings, got %d", ns.name, len(texts), len(vectors))
	}

	responseVec := vectors[0]
	for _, v := range vectors[1:] {
		if sim := cosineSimilarity(v, responseVec); sim > maxSim {
			maxSim = sim
		}
	}

	return bandCorpusScore(maxSim), maxSim, nil
}

func bandCorpusScore(maxSim float64) float64 {
	switch {
	case maxSim > 0.9:
		return 0.15
	case maxSim > 0.8:
		return 0.4
	case maxSim > 0.65:
		return 0.65
	default:
		return 0.9
	}
}

// editSimilarity is normalized Levenshtein similarity in [0,1].
func editSimilarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	longest := max(len([]rune(a)), len([]rune(b)))
	if longest == 0 {
		return 1.0
	}
	dist := levenshtein.ComputeDistance(a, b)
	return 1 - float64(dist)/float64(longest)
}

// personalization rewards first-person engagement and concrete
// specificity. Very short responses cannot carry either.
func (ns *NoveltyScorer) personalization(response string) float64 {
	if textutil.WordCount(response) < personalizationMinWords {
		return lowEffortPersonalization
	}

	personal := textutil.CountPresent(response, ns.lexicon.PersonalMarkers)
	specific := textutil.CountPresent(response, ns.lexicon.SpecificityMarkers)

	personalScore := min(float64(personal)/3.0, 1.0)
	specificScore := min(float64(specific)/2.0, 1.0)

	score := 0.5*personalScore + 0.5*specificScore
	if personal >= 2 && specific >= 1 {
		score += personalizationBonus
	}
	return clamp01(score)
}

// templateScore penalizes stock filler phrasing.
func (ns *NoveltyScorer) templateScore(response string) float64 {
	hits := textutil.CountPresent(response, ns.lexicon.TemplatePhrases)
	switch {
	case hits == 0:
		return 1.0
	case hits == 1:
		return 0.85
	case hits == 2:
		return 0.7
	default:
		return 0.5
	}
}

// Validate checks if the scorer is properly configured.
func (ns *NoveltyScorer) Validate() error {
	if ns.embedder == nil {
		return fmt.Errorf("scorer %s: %w", ns.name, ErrNilEmbedder)
	}
	if err := validate.Struct(ns.config); err != nil {
		return fmt.Errorf("scorer %s: configuration validation failed: %w", ns.name, err)
	}
	return nil
}

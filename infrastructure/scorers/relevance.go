package scorers

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/engagekit/verity/internal/domain"
	"github.com/engagekit/verity/internal/ports"
	"github.com/engagekit/verity/internal/textutil"
)

// Relevance blend weights and defaults.
const (
	relevanceContentWeight  = 0.35
	relevancePromptWeight   = 0.30
	relevanceKeywordWeight  = 0.20
	relevanceTopicWeight    = 0.15
	neutralKeywordOverlap   = 0.5
	neutralTopicCoherence   = 0.7
	topicSentenceMinChars   = 15
	topicMeanWeight         = 0.6
	topicMinWeight          = 0.4
)

// RelevanceScorer measures how directly a response engages with the
// reference content and prompt: embedding similarity to both, keyword
// coverage of the content, and per-sentence topic coherence.
type RelevanceScorer struct {
	name     string
	config   RelevanceConfig
	embedder ports.Embedder
	// stopwords is precomputed from the lexicon at construction.
	stopwords map[string]struct{}
	tracer    trace.Tracer
}

// RelevanceConfig defines the configuration parameters for the
// RelevanceScorer.
type RelevanceConfig struct {
	// KeywordMinLength is the minimum character length for a token to
	// count as a keyword.
	KeywordMinLength int `yaml:"keyword_min_length" json:"keyword_min_length" validate:"min=2,max=10"`
}

// DefaultRelevanceConfig returns a RelevanceConfig with sensible defaults.
func DefaultRelevanceConfig() RelevanceConfig {
	return RelevanceConfig{KeywordMinLength: 4}
}

// NewRelevanceScorer creates a new RelevanceScorer with the given
// embedder and lexicon. Returns an error if configuration validation
// fails or dependencies are missing.
func NewRelevanceScorer(name string, embedder ports.Embedder, lexicon *textutil.Lexicon, config RelevanceConfig) (*RelevanceScorer, error) {
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

	return &RelevanceScorer{
		name:      name,
		config:    config,
		embedder:  embedder,
		stopwords: lexicon.StopwordSet(),
		tracer:    otel.Tracer("relevance-scorer"),
	}, nil
}

// Name returns the unique identifier for this scorer instance.
func (rs *RelevanceScorer) Name() string { return rs.name }

// Score computes the relevance bundle for a response against the given
// content and prompt. Embedding failures propagate as provider errors and
// abort the verification.
func (rs *RelevanceScorer) Score(ctx context.Context, response, content, prompt string) (domain.RelevanceScores, error) {
	ctx, span := rs.tracer.Start(ctx, "RelevanceScorer.Score",
		trace.WithAttributes(
			attribute.String("scorer.id", rs.name),
			attribute.Int("response.chars", len(response)),
		),
	)
	defer span.End()

	vectors, err := rs.embedder.Encode(ctx, []string{response, content, prompt})
	if err != nil {
		span.RecordError(err)
		return domain.RelevanceScores{}, fmt.Errorf("scorer %s: encoding failed: %w", rs.name, err)
	}
	if len(vectors) != 3 {
		err := fmt.Errorf("scorer %s: expected 3 embeddings, got %d", rs.name, len(vectors))
		span.RecordError(err)
		return domain.RelevanceScores{}, err
	}

	contentSim := clamp01(cosineSimilarity(vectors[0], vectors[1]))
	promptSim := clamp01(cosineSimilarity(vectors[0], vectors[2]))

	keywordOverlap := rs.keywordOverlap(response, content)

	topicCoherence, err := rs.topicCoherence(ctx, response, content)
	if err != nil {
		span.RecordError(err)
		return domain.RelevanceScores{}, err
	}

	combined := clamp01(relevanceContentWeight*contentSim +
		relevancePromptWeight*promptSim +
		relevanceKeywordWeight*keywordOverlap +
		relevanceTopicWeight*topicCoherence)

	span.SetAttributes(attribute.Float64("eval.score", combined))

	return domain.RelevanceScores{
		ContentSimilarity: contentSim,
		PromptSimilarity:  promptSim,
		KeywordOverlap:    keywordOverlap,
		TopicCoherence:    topicCoherence,
		Combined:          combined,
	}, nil
}

// keywordOverlap measures what share of the content's keywords the
// response covers. Content with no extractable keywords yields a neutral
// score since coverage is meaningless there.
func (rs *RelevanceScorer) keywordOverlap(response, content string) float64 {
	contentKW := textutil.Keywords(content, rs.config.KeywordMinLength, rs.stopwords)
	if len(contentKW) == 0 {
		return neutralKeywordOverlap
	}
	responseKW := textutil.Keywords(response, rs.config.KeywordMinLength, rs.stopwords)

	matched := 0
	for kw := range responseKW {
		if _, ok := contentKW[kw]; ok {
			matched++
		}
	}
	return clamp01(float64(matched) / float64(len(contentKW)))
}

// topicCoherence checks that every sentence of the response stays close
// to the content. The minimum similarity is weighted in so a single
// off-topic sentence costs more than averaging alone would.
func (rs *RelevanceScorer) topicCoherence(ctx context.Context, response, content string) (float64, error) {
	sentences := textutil.Sentences(response, topicSentenceMinChars)
	if len(sentences) < 2 {
		return neutralTopicCoherence, nil
	}

	texts := append([]string{content}, sentences...)
	vectors, err := rs.embedder.Encode(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("scorer %s: sentence encoding failed: %w", rs.name, err)
	}
	if len(vectors) != len(texts) {
		return 0, fmt.Errorf("scorer %s: expected %d embeddings, got %d", rs.name, len(texts), len(vectors))
	}

	contentVec := vectors[0]
	sum := 0.0
	min := 1.0
	for _, v := range vectors[1:] {
		sim := cosineSimilarity(v, contentVec)
		sum += sim
		if sim < min {
			min = sim
		}
	}
	mean := sum / float64(len(vectors)-1)

	return clamp01(topicMeanWeight*mean + topicMinWeight*min), nil
}

// Validate checks if the scorer is properly configured.
func (rs *RelevanceScorer) Validate() error {
	if rs.embedder == nil {
		return fmt.Errorf("scorer %s: %w", rs.name, ErrNilEmbedder)
	}
	if err := validate.Struct(rs.config); err != nil {
		return fmt.Errorf("scorer %s: configuration validation failed: %w", rs.name, err)
	}
	return nil
}

package domain

import "time"

// Status describes the lifecycle state of a verification run.
type Status string

// Verification lifecycle states.
const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusPassed     Status = "passed"
	StatusFailed     Status = "failed"
	StatusError      Status = "error"
)

// RelevanceScores reports how directly the response engages with the
// reference content and prompt. All fields are on the [0,1] scale.
type RelevanceScores struct {
	// ContentSimilarity is the embedding cosine similarity between the
	// response and the reference content.
	ContentSimilarity float64 `json:"content_similarity"`

	// PromptSimilarity is the embedding cosine similarity between the
	// response and the prompt.
	PromptSimilarity float64 `json:"prompt_similarity"`

	// KeywordOverlap is the share of content keywords the response covers.
	KeywordOverlap float64 `json:"keyword_overlap"`

	// TopicCoherence measures whether every sentence stays on topic.
	TopicCoherence float64 `json:"topic_coherence"`

	// Combined is the weighted relevance score.
	Combined float64 `json:"combined"`
}

// NoveltyScores reports how much the response adds beyond the reference
// content and the corpus of prior responses.
type NoveltyScores struct {
	// ContentDistance rewards moderate distance from the reference:
	// near-paraphrases and off-topic text both score low.
	ContentDistance float64 `json:"content_distance"`

	// CorpusNovelty measures distance from previously submitted responses.
	CorpusNovelty float64 `json:"corpus_novelty"`

	// MaxCorpusSimilarity is the raw similarity to the closest prior
	// response, reported for diagnostics. Unclamped.
	MaxCorpusSimilarity float64 `json:"max_corpus_similarity"`

	// TrigramOverlap is the fraction of response word trigrams that also
	// appear in the content. Raw diagnostic.
	TrigramOverlap float64 `json:"trigram_overlap"`

	// Personalization rewards personal and specific markers.
	Personalization float64 `json:"personalization"`

	// TemplateScore penalizes generic filler phrases (1 = none found).
	TemplateScore float64 `json:"template_score"`

	// Combined is the weighted novelty score.
	Combined float64 `json:"combined"`
}

// CoherenceScores reports structural and semantic text quality.
type CoherenceScores struct {
	Structure         float64 `json:"structure"`
	Flow              float64 `json:"flow"`
	Completeness      float64 `json:"completeness"`
	SemanticCoherence float64 `json:"semantic_coherence"`
	LengthScore       float64 `json:"length_score"`
	Combined          float64 `json:"combined"`
}

// EffortScores estimates the cognitive effort behind a response from
// timing, vocabulary complexity, and revision heuristics.
type EffortScores struct {
	TimeScore       float64 `json:"time_score"`
	ComplexityScore float64 `json:"complexity_score"`
	RevisionScore   float64 `json:"revision_score"`
	Combined        float64 `json:"combined"`

	// Flags records which heuristic branches fired, e.g. "no_time",
	// "very_fast", "excessive".
	Flags []string `json:"flags,omitempty"`
}

// AIDetectionScores reports the heuristic human-likelihood of a response.
// Combined is a human-likelihood score: 1 means human-like, 0 AI-like.
type AIDetectionScores struct {
	PhraseScore      float64 `json:"phrase_score"`
	BurstinessScore  float64 `json:"burstiness_score"`
	PersonalityScore float64 `json:"personality_score"`
	Combined         float64 `json:"combined"`
}

// PerplexityScores reports the language-model irreducibility analysis.
// Unconditional and Conditional are raw perplexities, capped to a finite
// ceiling for degenerate input; they are diagnostics, never fed onward
// unnormalized.
type PerplexityScores struct {
	Unconditional float64 `json:"unconditional"`
	Conditional   float64 `json:"conditional"`

	// ReductionRatio is conditional/unconditional perplexity. Below 1 the
	// content statistically explains the response.
	ReductionRatio float64 `json:"reduction_ratio"`

	// IrreducibilityScore maps the clamped ratio onto [0,1].
	IrreducibilityScore float64 `json:"irreducibility_score"`

	// AILikelihoodScore is a perplexity-band human-likelihood estimate,
	// reported for diagnostics.
	AILikelihoodScore float64 `json:"ai_likelihood_score"`

	TokensAnalyzed int    `json:"tokens_analyzed"`
	ModelUsed      string `json:"model_used"`
}

// VerificationResult is the complete outcome of one verification run.
// It is constructed once and treated as immutable afterwards; only the
// CacheHit flag is set when a result is served from cache.
type VerificationResult struct {
	Status        Status  `json:"status"`
	Passed        bool    `json:"passed"`
	CombinedScore float64 `json:"combined_score"`

	Relevance   RelevanceScores   `json:"relevance"`
	Perplexity  PerplexityScores  `json:"perplexity"`
	Novelty     NoveltyScores     `json:"novelty"`
	Coherence   CoherenceScores   `json:"coherence"`
	Effort      EffortScores      `json:"effort"`
	AIDetection AIDetectionScores `json:"ai_detection"`

	ThresholdsApplied map[string]float64 `json:"thresholds_applied"`

	FeedbackSummary        string   `json:"feedback_summary"`
	FeedbackDetails        []string `json:"feedback_details"`
	ImprovementSuggestions []string `json:"improvement_suggestions"`

	RequestID        string            `json:"request_id,omitempty"`
	ProcessingTimeMs int64             `json:"processing_time_ms"`
	ModelVersions    map[string]string `json:"model_versions"`
	CacheHit         bool              `json:"cache_hit"`
	Timestamp        time.Time         `json:"timestamp"`
}

// Clone returns a deep copy of the result. Cached results are cloned
// before being returned so the cached entry stays immutable.
func (r *VerificationResult) Clone() *VerificationResult {
	out := *r
	out.ThresholdsApplied = make(map[string]float64, len(r.ThresholdsApplied))
	for k, v := range r.ThresholdsApplied {
		out.ThresholdsApplied[k] = v
	}
	out.ModelVersions = make(map[string]string, len(r.ModelVersions))
	for k, v := range r.ModelVersions {
		out.ModelVersions[k] = v
	}
	out.FeedbackDetails = append([]string(nil), r.FeedbackDetails...)
	out.ImprovementSuggestions = append([]string(nil), r.ImprovementSuggestions...)
	out.Effort.Flags = append([]string(nil), r.Effort.Flags...)
	return &out
}

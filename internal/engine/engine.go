// Package engine orchestrates the scoring pipeline: it fans requests out
// to the individual scorers, combines their results into a single pass or
// fail decision, and handles caching, feedback, and result publication.
package engine

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/engagekit/verity/infrastructure/scorers"
	"github.com/engagekit/verity/internal/domain"
	"github.com/engagekit/verity/internal/ports"
	"github.com/engagekit/verity/internal/textutil"
)

// fingerprintLen is the number of hex characters kept from the SHA-256
// digest when keying the result cache.
const fingerprintLen = 16

// Advisory threshold below which the heuristic detection score adds a
// feedback detail. It never gates the decision on its own.
const aiDetectionAdvisory = 0.4

// Feedback strings surfaced to submitters. Kept stable so clients can
// match on them.
const (
	feedbackPassed         = "Response verified successfully!"
	feedbackRelevance      = "Engage more directly with the content"
	feedbackIrreducibility = "Add more personal perspective beyond summarizing"
	feedbackNovelty        = "Make your response more unique and specific"
	feedbackCoherence      = "Improve response structure and clarity"
	feedbackAIDetection    = "Response shows AI-like patterns"
	feedbackGeneric        = "Below threshold"
)

// Deps bundles the external dependencies the engine needs. Cache,
// Metrics, and Publisher are optional; nil disables that concern.
type Deps struct {
	Embedder   ports.Embedder
	Likelihood ports.LikelihoodModel
	Cache      ports.CacheStore
	Metrics    ports.MetricsCollector
	Publisher  ports.ResultPublisher
	Logger     *slog.Logger
}

// Engine runs the full verification pipeline for a single request. It is
// safe for concurrent use; all mutable state lives in the request scope.
type Engine struct {
	config  Config
	deps    Deps
	lexicon *textutil.Lexicon

	relevance  *scorers.RelevanceScorer
	novelty    *scorers.NoveltyScorer
	coherence  *scorers.CoherenceScorer
	effort     *scorers.EffortScorer
	aiDetect   *scorers.AIDetectScorer
	perplexity *scorers.PerplexityScorer

	tracer trace.Tracer
}

// New constructs an Engine, building all six scorers from the config and
// dependencies. The embedder and likelihood model are required.
func New(config Config, deps Deps) (*Engine, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if deps.Embedder == nil {
		return nil, fmt.Errorf("engine: %w", scorers.ErrNilEmbedder)
	}
	if deps.Likelihood == nil {
		return nil, fmt.Errorf("engine: %w", scorers.ErrNilLikelihoodModel)
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	lexicon := textutil.DefaultLexicon()
	if config.LexiconPath != "" {
		loaded, err := textutil.LoadLexicon(config.LexiconPath)
		if err != nil {
			return nil, fmt.Errorf("engine: loading lexicon: %w", err)
		}
		lexicon = loaded
	}

	relevance, err := scorers.NewRelevanceScorer("relevance", deps.Embedder, lexicon,
		scorers.RelevanceConfig{KeywordMinLength: config.KeywordMinLength})
	if err != nil {
		return nil, err
	}
	novelty, err := scorers.NewNoveltyScorer("novelty", deps.Embedder, lexicon,
		scorers.NoveltyConfig{MaxCorpusCompare: config.MaxCorpusSize})
	if err != nil {
		return nil, err
	}
	coherence, err := scorers.NewCoherenceScorer("coherence", deps.Embedder, lexicon)
	if err != nil {
		return nil, err
	}
	effort, err := scorers.NewEffortScorer("effort")
	if err != nil {
		return nil, err
	}
	aiDetect, err := scorers.NewAIDetectScorer("ai-detect", lexicon)
	if err != nil {
		return nil, err
	}
	perplexity, err := scorers.NewPerplexityScorer("perplexity", deps.Likelihood)
	if err != nil {
		return nil, err
	}

	return &Engine{
		config:     config,
		deps:       deps,
		lexicon:    lexicon,
		relevance:  relevance,
		novelty:    novelty,
		coherence:  coherence,
		effort:     effort,
		aiDetect:   aiDetect,
		perplexity: perplexity,
		tracer:     otel.Tracer("verification-engine"),
	}, nil
}

// Verify runs a request through validation, the cache, all six scorers,
// aggregation, and threshold gating. Scorer failures abort the request;
// cache and publish failures are logged and absorbed.
func (e *Engine) Verify(ctx context.Context, req domain.VerificationRequest) (*domain.VerificationResult, error) {
	start := time.Now()

	ctx, span := e.tracer.Start(ctx, "Engine.Verify",
		trace.WithAttributes(
			attribute.Int("response.chars", len(req.ResponseText)),
			attribute.Int("corpus.size", len(req.ExistingResponses)),
		),
	)
	defer span.End()

	if err := req.Validate(); err != nil {
		span.RecordError(err)
		return nil, err
	}
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}
	if len(req.ExistingResponses) > e.config.MaxCorpusSize {
		req.ExistingResponses = req.ExistingResponses[:e.config.MaxCorpusSize]
	}

	logger := e.deps.Logger.With("request_id", req.RequestID)

	key := Fingerprint(req.ResponseText, req.ReferenceContent)
	span.SetAttributes(attribute.String("cache.key", key))

	if cached := e.cacheGet(ctx, logger, key); cached != nil {
		e.recordMetrics(cached, time.Since(start), true)
		span.SetAttributes(attribute.Bool("cache.hit", true))
		return cached, nil
	}

	scores, err := e.runScorers(ctx, req)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	result := e.decide(req, scores)
	result.ProcessingTimeMs = time.Since(start).Milliseconds()

	e.cacheSet(ctx, logger, key, result)
	e.publish(ctx, logger, result)
	e.recordMetrics(result, time.Since(start), false)

	span.SetAttributes(
		attribute.Bool("verify.passed", result.Passed),
		attribute.Float64("verify.combined", result.CombinedScore),
	)
	logger.Info("verification complete",
		"passed", result.Passed,
		"combined", result.CombinedScore,
		"elapsed_ms", result.ProcessingTimeMs)

	return result, nil
}

// scorerResults carries the raw bundles out of the fan-out.
type scorerResults struct {
	relevance  domain.RelevanceScores
	novelty    domain.NoveltyScores
	coherence  domain.CoherenceScores
	effort     domain.EffortScores
	aiDetect   domain.AIDetectionScores
	perplexity domain.PerplexityScores
}

// runScorers executes all six scorers concurrently. The first error
// cancels the rest; there are no partial results.
func (e *Engine) runScorers(ctx context.Context, req domain.VerificationRequest) (*scorerResults, error) {
	var results scorerResults

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		results.relevance, err = e.relevance.Score(gctx, req.ResponseText, req.ReferenceContent, req.Prompt)
		return err
	})
	g.Go(func() error {
		var err error
		results.novelty, err = e.novelty.Score(gctx, req.ResponseText, req.ReferenceContent, req.ExistingResponses)
		return err
	})
	g.Go(func() error {
		var err error
		results.coherence, err = e.coherence.Score(gctx, req.ResponseText)
		return err
	})
	g.Go(func() error {
		var err error
		results.effort, err = e.effort.Score(gctx, req.ResponseText, req.ReferenceContent, req.Metadata)
		return err
	})
	g.Go(func() error {
		var err error
		results.aiDetect, err = e.aiDetect.Score(gctx, req.ResponseText)
		return err
	})
	g.Go(func() error {
		var err error
		results.perplexity, err = e.perplexity.Score(gctx, req.ResponseText, req.ReferenceContent)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &results, nil
}

// decide combines the scorer bundles into a final result: aggregate
// score, threshold gating, and feedback.
func (e *Engine) decide(req domain.VerificationRequest, s *scorerResults) *domain.VerificationResult {
	combined := domain.CombineGeometric(domain.ComponentScores{
		Relevance:      s.relevance.Combined,
		Irreducibility: s.perplexity.IrreducibilityScore,
		Novelty:        s.novelty.Combined,
		Coherence:      s.coherence.Combined,
		Effort:         s.effort.Combined,
		AIDetection:    s.aiDetect.Combined,
	}, e.config.Weights)

	thresholds := e.config.Thresholds.Merge(req.CustomThresholds)

	var details []string
	if s.relevance.Combined < thresholds.MinRelevance {
		details = append(details, feedbackRelevance)
	}
	if s.perplexity.IrreducibilityScore < thresholds.MinIrreducibility {
		details = append(details, feedbackIrreducibility)
	}
	if s.novelty.Combined < thresholds.MinNovelty {
		details = append(details, feedbackNovelty)
	}
	if s.coherence.Combined < thresholds.MinCoherence {
		details = append(details, feedbackCoherence)
	}
	if s.aiDetect.Combined < aiDetectionAdvisory {
		details = append(details, feedbackAIDetection)
	}

	passed := s.relevance.Combined >= thresholds.MinRelevance &&
		s.perplexity.IrreducibilityScore >= thresholds.MinIrreducibility &&
		s.novelty.Combined >= thresholds.MinNovelty &&
		s.coherence.Combined >= thresholds.MinCoherence &&
		combined >= thresholds.MinCombined

	var summary string
	status := domain.StatusPassed
	var suggestions []string
	switch {
	case passed:
		summary = feedbackPassed
	case len(details) > 0:
		summary = "Verification failed: " + details[0]
		status = domain.StatusFailed
		suggestions = append(suggestions, details...)
	default:
		summary = "Verification failed: " + feedbackGeneric
		status = domain.StatusFailed
	}

	return &domain.VerificationResult{
		Status:                 status,
		Passed:                 passed,
		CombinedScore:          combined,
		Relevance:              s.relevance,
		Perplexity:             s.perplexity,
		Novelty:                s.novelty,
		Coherence:              s.coherence,
		Effort:                 s.effort,
		AIDetection:            s.aiDetect,
		ThresholdsApplied:      thresholds.Map(),
		FeedbackSummary:        summary,
		FeedbackDetails:        details,
		ImprovementSuggestions: suggestions,
		RequestID:              req.RequestID,
		ModelVersions: map[string]string{
			"embedder":   e.deps.Embedder.Model(),
			"likelihood": e.deps.Likelihood.Model(),
		},
		Timestamp: time.Now().UTC(),
	}
}

func (e *Engine) cacheGet(ctx context.Context, logger *slog.Logger, key string) *domain.VerificationResult {
	if e.deps.Cache == nil {
		return nil
	}
	cached, ok, err := e.deps.Cache.Get(ctx, key)
	if err != nil {
		logger.Warn("cache read failed", "error", err)
		return nil
	}
	if !ok {
		return nil
	}
	result := cached.Clone()
	result.CacheHit = true
	return result
}

func (e *Engine) cacheSet(ctx context.Context, logger *slog.Logger, key string, result *domain.VerificationResult) {
	if e.deps.Cache == nil {
		return
	}
	if err := e.deps.Cache.Set(ctx, key, result, e.config.CacheTTL()); err != nil {
		logger.Warn("cache write failed", "error", err)
	}
}

func (e *Engine) publish(ctx context.Context, logger *slog.Logger, result *domain.VerificationResult) {
	if e.deps.Publisher == nil {
		return
	}
	if err := e.deps.Publisher.Publish(ctx, result); err != nil {
		logger.Warn("result publish failed", "error", err)
	}
}

func (e *Engine) recordMetrics(result *domain.VerificationResult, elapsed time.Duration, cacheHit bool) {
	if e.deps.Metrics == nil {
		return
	}
	outcome := "failed"
	if result.Passed {
		outcome = "passed"
	}
	labels := map[string]string{"outcome": outcome}
	e.deps.Metrics.RecordLatency("verify", elapsed, labels)
	e.deps.Metrics.RecordCounter("verifications_total", 1, labels)
	if cacheHit {
		e.deps.Metrics.RecordCounter("cache_hits_total", 1, nil)
	} else {
		e.deps.Metrics.RecordHistogram("combined_score", result.CombinedScore, nil)
	}
}

// Fingerprint derives the cache key for a response/content pair. The
// truncated SHA-256 digest keeps keys short while collisions stay
// negligible at realistic volumes.
func Fingerprint(response, content string) string {
	h := sha256.New()
	h.Write([]byte(response))
	h.Write([]byte{'|'})
	h.Write([]byte(content))
	return hex.EncodeToString(h.Sum(nil))[:fingerprintLen]
}

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

// Effort banding constants. Reading and typing rates are in words per
// minute and drive the expected-time model.
const (
	charsPerWord        = 5.0
	readingWPM          = 200.0
	typingWPM           = 35.0
	longWordChars       = 8
	revisionCharsPerRev = 400.0
	neutralTimeScore    = 0.5
)

// EffortScorer estimates how much genuine work went into a response from
// its metadata and surface statistics. It needs no model calls, so it
// never fails.
type EffortScorer struct {
	name   string
	tracer trace.Tracer
}

// NewEffortScorer creates a new EffortScorer.
func NewEffortScorer(name string) (*EffortScorer, error) {
	if name == "" {
		return nil, ErrEmptyScorerName
	}
	return &EffortScorer{
		name:   name,
		tracer: otel.Tracer("effort-scorer"),
	}, nil
}

// Name returns the unique identifier for this scorer instance.
func (es *EffortScorer) Name() string { return es.name }

// Score computes the effort bundle for a response. Missing metadata
// shifts weight onto the text-derived signals rather than penalizing.
func (es *EffortScorer) Score(ctx context.Context, response, content string, meta domain.Metadata) (domain.EffortScores, error) {
	_, span := es.tracer.Start(ctx, "EffortScorer.Score",
		trace.WithAttributes(
			attribute.String("scorer.id", es.name),
			attribute.Int("meta.time_spent_seconds", meta.TimeSpentSeconds),
			attribute.Int("meta.revision_count", meta.RevisionCount),
		),
	)
	defer span.End()

	var flags []string

	timeScore, timeFlag := es.timeScore(response, content, meta.TimeSpentSeconds)
	if timeFlag != "" {
		flags = append(flags, timeFlag)
	}

	complexity := es.complexityScore(response, content)

	revisionScore, revFlag := es.revisionScore(response, meta.RevisionCount)
	if revFlag != "" {
		flags = append(flags, revFlag)
	}

	hasTime := meta.TimeSpentSeconds > 0
	hasRevisions := meta.RevisionCount >= 0

	var combined float64
	switch {
	case hasTime && hasRevisions:
		combined = 0.40*timeScore + 0.35*complexity + 0.25*revisionScore
	case hasTime:
		combined = 0.55*timeScore + 0.45*complexity
	default:
		combined = complexity
	}
	combined = clamp01(combined)

	span.SetAttributes(attribute.Float64("eval.score", combined))

	return domain.EffortScores{
		TimeScore:       timeScore,
		ComplexityScore: complexity,
		RevisionScore:   revisionScore,
		Combined:        combined,
		Flags:           flags,
	}, nil
}

// timeScore compares reported composition time against an estimate of
// reading the content plus typing the response. Both extremes are
// suspicious: far too fast suggests pasting, far too slow suggests an
// idle tab.
func (es *EffortScorer) timeScore(response, content string, timeSpentSeconds int) (float64, string) {
	if timeSpentSeconds <= 0 {
		return neutralTimeScore, "no_time_data"
	}

	readSeconds := float64(len(content)) / charsPerWord / readingWPM * 60
	typeSeconds := float64(len(response)) / charsPerWord / typingWPM * 60
	expected := readSeconds + typeSeconds
	if expected <= 0 {
		return neutralTimeScore, ""
	}

	ratio := float64(timeSpentSeconds) / expected
	switch {
	case ratio < 0.25:
		return 0.2, "very_fast"
	case ratio < 0.5:
		return 0.45, "fast"
	case ratio < 1.5:
		return 0.9, ""
	case ratio < 3:
		return 0.75, "slow"
	default:
		return 0.5, "very_slow"
	}
}

// complexityScore rewards vocabulary the content did not supply, longer
// words, and clause structure.
func (es *EffortScorer) complexityScore(response, content string) float64 {
	respWords := textutil.Words(textutil.Fold(response))
	if len(respWords) == 0 {
		return 0.0
	}
	contentWords := textutil.SetOf(textutil.Words(textutil.Fold(content)))

	// Vocabulary is compared as distinct-word sets; repeating a novel
	// word does not add contribution.
	respVocab := textutil.SetOf(respWords)
	novel := 0
	for w := range respVocab {
		if _, ok := contentWords[w]; !ok {
			novel++
		}
	}
	long := 0
	for _, w := range respWords {
		if len(w) > longWordChars {
			long++
		}
	}
	vocabScore := min(float64(novel)/float64(len(respVocab))*2, 1.0)
	longScore := min(float64(long)/float64(len(respWords))*10, 1.0)

	sentences := textutil.SentenceCount(response)
	if sentences == 0 {
		sentences = 1
	}
	clauses := strings.Count(response, ",") + strings.Count(response, ";")
	clauseScore := min(float64(clauses)/float64(sentences)/2, 1.0)

	return 0.4*vocabScore + 0.3*longScore + 0.3*clauseScore
}

// revisionScore bands revision count against response length. Some
// editing signals care; none at all or churn both read worse.
func (es *EffortScorer) revisionScore(response string, revisions int) (float64, string) {
	if revisions < 0 {
		return 0.7, "no_revision_data"
	}

	expected := float64(len(response)) / revisionCharsPerRev

	switch {
	case revisions == 0:
		return 0.6, "no_revisions"
	case float64(revisions) <= 2*expected:
		return 0.9, ""
	case float64(revisions) <= 5*expected:
		return 0.7, "many_revisions"
	default:
		return 0.5, "excessive_revisions"
	}
}

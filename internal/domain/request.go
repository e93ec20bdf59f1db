// Package domain contains pure, dependency-free domain models and types
// for the verification engine.
package domain

import (
	"fmt"
	"strings"
)

// Metadata carries optional client-reported signals about how a response
// was produced. Zero values mean "not reported": a TimeSpentSeconds of 0
// means no timing data, and a RevisionCount below 0 means revisions were
// not tracked.
type Metadata struct {
	// TimeSpentSeconds is the wall-clock time the author spent on the
	// response, as reported by the submitting client.
	TimeSpentSeconds int `json:"time_spent_seconds,omitempty"`

	// RevisionCount is the number of edit events recorded while the
	// response was written. Negative means unknown.
	RevisionCount int `json:"revision_count,omitempty"`
}

// Thresholds holds the per-dimension minimum scores a response must meet.
// Each value is on the [0,1] scale. A zero value in a custom override
// means "use the configured default" rather than "require zero".
type Thresholds struct {
	MinRelevance      float64 `json:"min_relevance" yaml:"min_relevance"`
	MinIrreducibility float64 `json:"min_irreducibility" yaml:"min_irreducibility"`
	MinNovelty        float64 `json:"min_novelty" yaml:"min_novelty"`
	MinCoherence      float64 `json:"min_coherence" yaml:"min_coherence"`
	MinCombined       float64 `json:"min_combined" yaml:"min_combined"`
}

// Merge returns a copy of t with each positive field from override
// applied, keeping the larger of the two values. Overrides can tighten
// the configured floors but never relax them.
func (t Thresholds) Merge(override *Thresholds) Thresholds {
	if override == nil {
		return t
	}
	merged := t
	merged.MinRelevance = max(merged.MinRelevance, override.MinRelevance)
	merged.MinIrreducibility = max(merged.MinIrreducibility, override.MinIrreducibility)
	merged.MinNovelty = max(merged.MinNovelty, override.MinNovelty)
	merged.MinCoherence = max(merged.MinCoherence, override.MinCoherence)
	merged.MinCombined = max(merged.MinCombined, override.MinCombined)
	return merged
}

// Map returns the thresholds as a string-keyed map for result reporting.
func (t Thresholds) Map() map[string]float64 {
	return map[string]float64{
		"min_relevance":      t.MinRelevance,
		"min_irreducibility": t.MinIrreducibility,
		"min_novelty":        t.MinNovelty,
		"min_coherence":      t.MinCoherence,
		"min_combined":       t.MinCombined,
	}
}

// VerificationRequest is the immutable input to a verification run.
// ResponseText is the submitted text under evaluation, ReferenceContent is
// the material the response is supposed to engage with, and
// ExistingResponses is the corpus of prior submissions used for novelty
// comparison.
type VerificationRequest struct {
	// ResponseText is the text being verified. Required, non-empty.
	ResponseText string `json:"response_text"`

	// ReferenceContent is the content the response reacts to. Required
	// but may be empty for free-form prompts.
	ReferenceContent string `json:"reference_content"`

	// Prompt is the question or task the response answers.
	Prompt string `json:"prompt"`

	// ExistingResponses holds prior responses for the same task. The
	// engine truncates this list to its configured corpus cap.
	ExistingResponses []string `json:"existing_responses,omitempty"`

	// Metadata carries optional effort signals.
	Metadata Metadata `json:"metadata"`

	// CustomThresholds overrides the engine defaults for this request.
	// Only positive fields take effect.
	CustomThresholds *Thresholds `json:"custom_thresholds,omitempty"`

	// RequestID correlates the request across systems. Assigned by the
	// engine when empty.
	RequestID string `json:"request_id,omitempty"`
}

// InputError reports a malformed request that was rejected before any
// scoring work was performed.
type InputError struct {
	// Field names the offending request field.
	Field string

	// Reason describes why the field is invalid.
	Reason string
}

// Error implements the error interface for InputError.
func (e *InputError) Error() string {
	return fmt.Sprintf("invalid input: field=%s, reason=%s", e.Field, e.Reason)
}

// NewInputError creates a new InputError for the given field.
func NewInputError(field, reason string) *InputError {
	return &InputError{Field: field, Reason: reason}
}

// Validate checks the request's required fields. It returns an *InputError
// describing the first problem found, or nil if the request is scorable.
func (r *VerificationRequest) Validate() error {
	if strings.TrimSpace(r.ResponseText) == "" {
		return NewInputError("response_text", "must not be empty")
	}
	return nil
}

package scorers

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/engagekit/verity/internal/domain"
)

func newTestEffortScorer(t *testing.T) *EffortScorer {
	t.Helper()
	scorer, err := NewEffortScorer("effort")
	require.NoError(t, err)
	return scorer
}

func TestNewEffortScorer(t *testing.T) {
	_, err := NewEffortScorer("")
	assert.ErrorIs(t, err, ErrEmptyScorerName)
}

func TestEffortScorer_TimeScore(t *testing.T) {
	scorer := newTestEffortScorer(t)

	// 1000 content chars read in 60s, 500 response chars typed in ~171s.
	content := strings.Repeat("c", 1000)
	response := strings.Repeat("r", 500)

	tests := []struct {
		name     string
		seconds  int
		want     float64
		wantFlag string
	}{
		{"missing time", 0, 0.5, "no_time_data"},
		{"very fast", 20, 0.2, "very_fast"},
		{"fast", 80, 0.45, "fast"},
		{"normal", 230, 0.9, ""},
		{"slow", 500, 0.75, "slow"},
		{"very slow", 2000, 0.5, "very_slow"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score, flag := scorer.timeScore(response, content, tt.seconds)
			assert.InDelta(t, tt.want, score, 1e-9)
			assert.Equal(t, tt.wantFlag, flag)
		})
	}
}

func TestEffortScorer_ComplexityScore(t *testing.T) {
	scorer := newTestEffortScorer(t)

	t.Run("empty response", func(t *testing.T) {
		assert.Zero(t, scorer.complexityScore("", "some content"))
	})

	t.Run("verbatim copy has no new vocabulary", func(t *testing.T) {
		content := "the quick brown fox jumps over the lazy dog"
		copyScore := scorer.complexityScore(content, content)
		freshScore := scorer.complexityScore(
			"industrial decarbonization requires substantial infrastructure investment, especially transmission", content)
		assert.Greater(t, freshScore, copyScore)
	})

	t.Run("repeated novel word counts once", func(t *testing.T) {
		content := "the plan covers rollout"
		response := "the plan covers extra extra extra"

		// Vocabulary is 4 distinct words with 1 novel, so the vocab
		// term is 0.5 regardless of how often "extra" repeats.
		score := scorer.complexityScore(response, content)
		assert.InDelta(t, 0.4*0.5, score, 1e-9)
	})
}

func TestEffortScorer_RevisionScore(t *testing.T) {
	scorer := newTestEffortScorer(t)
	response := strings.Repeat("x", 400) // expected revisions: 1

	tests := []struct {
		name      string
		revisions int
		want      float64
		wantFlag  string
	}{
		{"no data", -1, 0.7, "no_revision_data"},
		{"none", 0, 0.6, "no_revisions"},
		{"normal", 2, 0.9, ""},
		{"many", 4, 0.7, "many_revisions"},
		{"excessive", 10, 0.5, "excessive_revisions"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score, flag := scorer.revisionScore(response, tt.revisions)
			assert.InDelta(t, tt.want, score, 1e-9)
			assert.Equal(t, tt.wantFlag, flag)
		})
	}

	t.Run("short response expects proportionally fewer revisions", func(t *testing.T) {
		short := strings.Repeat("x", 100) // expected revisions: 0.25
		score, flag := scorer.revisionScore(short, 3)
		assert.InDelta(t, 0.5, score, 1e-9)
		assert.Equal(t, "excessive_revisions", flag)
	})
}

func TestEffortScorer_Score(t *testing.T) {
	scorer := newTestEffortScorer(t)

	response := "I disagree with the staffing estimate, because onboarding senior engineers realistically takes a quarter. " +
		"My own team needed four months, and we had existing documentation."
	content := "The project plan estimates two weeks for onboarding new engineers."

	t.Run("full metadata uses all three signals", func(t *testing.T) {
		scores, err := scorer.Score(context.Background(), response, content,
			domain.Metadata{TimeSpentSeconds: 120, RevisionCount: 2})
		require.NoError(t, err)

		expected := 0.40*scores.TimeScore + 0.35*scores.ComplexityScore + 0.25*scores.RevisionScore
		assert.InDelta(t, expected, scores.Combined, 1e-9)
	})

	t.Run("time only reweights", func(t *testing.T) {
		scores, err := scorer.Score(context.Background(), response, content,
			domain.Metadata{TimeSpentSeconds: 120, RevisionCount: -1})
		require.NoError(t, err)

		expected := 0.55*scores.TimeScore + 0.45*scores.ComplexityScore
		assert.InDelta(t, expected, scores.Combined, 1e-9)
		assert.Contains(t, scores.Flags, "no_revision_data")
	})

	t.Run("no metadata falls back to complexity", func(t *testing.T) {
		scores, err := scorer.Score(context.Background(), response, content,
			domain.Metadata{TimeSpentSeconds: 0, RevisionCount: -1})
		require.NoError(t, err)

		assert.InDelta(t, scores.ComplexityScore, scores.Combined, 1e-9)
		assert.Contains(t, scores.Flags, "no_time_data")
	})
}

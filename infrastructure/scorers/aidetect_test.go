package scorers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/engagekit/verity/internal/textutil"
)

func newTestAIDetectScorer(t *testing.T) *AIDetectScorer {
	t.Helper()
	scorer, err := NewAIDetectScorer("ai-detect", textutil.DefaultLexicon())
	require.NoError(t, err)
	return scorer
}

func TestNewAIDetectScorer(t *testing.T) {
	_, err := NewAIDetectScorer("", textutil.DefaultLexicon())
	assert.ErrorIs(t, err, ErrEmptyScorerName)

	_, err = NewAIDetectScorer("ai-detect", nil)
	assert.ErrorIs(t, err, ErrNilLexicon)
}

func TestAIDetectScorer_PhraseScore(t *testing.T) {
	scorer := newTestAIDetectScorer(t)

	t.Run("assistant boilerplate scores low", func(t *testing.T) {
		text := "it's important to note that moreover we must leverage a comprehensive approach. " +
			"furthermore, to summarize, let me facilitate this."
		score := scorer.phraseScore(text)
		assert.LessOrEqual(t, score, 0.5)
	})

	t.Run("informal human text scores high", func(t *testing.T) {
		text := "honestly i think this is kinda overblown, it probably won't matter much tbh"
		score := scorer.phraseScore(text)
		assert.GreaterOrEqual(t, score, 0.8)
	})

	t.Run("empty text is neutral", func(t *testing.T) {
		assert.InDelta(t, 0.5, scorer.phraseScore(""), 1e-9)
	})
}

func TestAIDetectScorer_BurstinessScore(t *testing.T) {
	scorer := newTestAIDetectScorer(t)

	t.Run("too few sentences is neutral", func(t *testing.T) {
		assert.InDelta(t, 0.6, scorer.burstinessScore("one sentence. another one."), 1e-9)
	})

	t.Run("uniform rhythm scores low", func(t *testing.T) {
		text := "the cat sat on mats. the dog lay on rugs. the cow ate in barns. the hen hid in coops."
		assert.InDelta(t, 0.3, scorer.burstinessScore(text), 1e-9)
	})

	t.Run("varied rhythm scores high", func(t *testing.T) {
		text := "nope, that's wrong. the underlying assumption about steady adoption ignores seasonal churn across the whole customer base entirely. see the data."
		assert.GreaterOrEqual(t, scorer.burstinessScore(text), 0.7)
	})
}

func TestAIDetectScorer_PersonalityScore(t *testing.T) {
	scorer := newTestAIDetectScorer(t)

	t.Run("flat prose", func(t *testing.T) {
		text := "the report presents findings in an organized manner and draws measured conclusions throughout the document overall"
		assert.InDelta(t, 0.4, scorer.personalityScore(text), 1e-9)
	})

	t.Run("expressive punctuation", func(t *testing.T) {
		text := "wait, really?! that's wild... (and a bit worrying!) did anyone check the numbers?"
		assert.InDelta(t, 0.9, scorer.personalityScore(text), 1e-9)
	})
}

func TestAIDetectScorer_Score(t *testing.T) {
	scorer := newTestAIDetectScorer(t)

	scores, err := scorer.Score(context.Background(),
		"honestly, i think the rollout plan is too optimistic! my team tried something similar (smaller scale) and it slipped a month. maybe budget for that?")
	require.NoError(t, err)

	expected := aiPhraseWeight*scores.PhraseScore +
		aiBurstinessWeight*scores.BurstinessScore +
		aiPersonalityWeight*scores.PersonalityScore
	assert.InDelta(t, expected, scores.Combined, 1e-9)
	assert.Greater(t, scores.Combined, 0.6)
}

package scorers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/engagekit/verity/internal/ports"
	"github.com/engagekit/verity/internal/textutil"
)

func TestNewRelevanceScorer(t *testing.T) {
	lex := textutil.DefaultLexicon()
	emb := &stubEmbedder{}

	tests := []struct {
		name      string
		scorerID  string
		embedder  ports.Embedder
		lexicon   *textutil.Lexicon
		config    RelevanceConfig
		wantError bool
	}{
		{
			name:     "valid configuration",
			scorerID: "relevance",
			embedder: emb,
			lexicon:  lex,
			config:   DefaultRelevanceConfig(),
		},
		{
			name:      "empty name",
			scorerID:  "",
			embedder:  emb,
			lexicon:   lex,
			config:    DefaultRelevanceConfig(),
			wantError: true,
		},
		{
			name:      "nil embedder",
			scorerID:  "relevance",
			embedder:  nil,
			lexicon:   lex,
			config:    DefaultRelevanceConfig(),
			wantError: true,
		},
		{
			name:      "nil lexicon",
			scorerID:  "relevance",
			embedder:  emb,
			lexicon:   nil,
			config:    DefaultRelevanceConfig(),
			wantError: true,
		},
		{
			name:      "keyword length too small",
			scorerID:  "relevance",
			embedder:  emb,
			lexicon:   lex,
			config:    RelevanceConfig{KeywordMinLength: 1},
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scorer, err := NewRelevanceScorer(tt.scorerID, tt.embedder, tt.lexicon, tt.config)
			if tt.wantError {
				require.Error(t, err)
				assert.Nil(t, scorer)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, scorer)
			assert.Equal(t, tt.scorerID, scorer.Name())
			assert.NoError(t, scorer.Validate())
		})
	}
}

func TestRelevanceScorer_Score(t *testing.T) {
	lex := textutil.DefaultLexicon()

	t.Run("identical embeddings yield full similarity", func(t *testing.T) {
		emb := &stubEmbedder{vectors: map[string][]float32{
			"climate policy response": {1, 0, 0},
			"climate policy article":  {1, 0, 0},
			"what is climate policy":  {1, 0, 0},
		}}
		scorer, err := NewRelevanceScorer("relevance", emb, lex, DefaultRelevanceConfig())
		require.NoError(t, err)

		scores, err := scorer.Score(context.Background(),
			"climate policy response", "climate policy article", "what is climate policy")
		require.NoError(t, err)

		assert.InDelta(t, 1.0, scores.ContentSimilarity, 1e-9)
		assert.InDelta(t, 1.0, scores.PromptSimilarity, 1e-9)
		// Short texts yield fewer than two long sentences.
		assert.InDelta(t, 0.7, scores.TopicCoherence, 1e-9)
	})

	t.Run("orthogonal embeddings yield zero similarity", func(t *testing.T) {
		emb := &stubEmbedder{vectors: map[string][]float32{
			"alpha": {1, 0, 0},
			"beta":  {0, 1, 0},
			"gamma": {0, 0, 1},
		}}
		scorer, err := NewRelevanceScorer("relevance", emb, lex, DefaultRelevanceConfig())
		require.NoError(t, err)

		scores, err := scorer.Score(context.Background(), "alpha", "beta", "gamma")
		require.NoError(t, err)

		assert.Zero(t, scores.ContentSimilarity)
		assert.Zero(t, scores.PromptSimilarity)
	})

	t.Run("keyword overlap covers content keywords", func(t *testing.T) {
		emb := &stubEmbedder{vectors: map[string][]float32{}}
		scorer, err := NewRelevanceScorer("relevance", emb, lex, DefaultRelevanceConfig())
		require.NoError(t, err)

		response := "carbon taxes reduce emissions across industrial sectors"
		content := "carbon emissions industrial"
		scores, err := scorer.Score(context.Background(), response, content, "prompt")
		require.NoError(t, err)

		// All three content keywords appear in the response.
		assert.InDelta(t, 1.0, scores.KeywordOverlap, 1e-9)
	})

	t.Run("empty content gives neutral keyword overlap", func(t *testing.T) {
		emb := &stubEmbedder{vectors: map[string][]float32{}}
		scorer, err := NewRelevanceScorer("relevance", emb, lex, DefaultRelevanceConfig())
		require.NoError(t, err)

		scores, err := scorer.Score(context.Background(), "some response text", "", "prompt")
		require.NoError(t, err)

		assert.InDelta(t, 0.5, scores.KeywordOverlap, 1e-9)
	})

	t.Run("embedder failure propagates", func(t *testing.T) {
		emb := &stubEmbedder{err: errStubProvider}
		scorer, err := NewRelevanceScorer("relevance", emb, lex, DefaultRelevanceConfig())
		require.NoError(t, err)

		_, err = scorer.Score(context.Background(), "response", "content", "prompt")
		require.Error(t, err)
		assert.ErrorIs(t, err, errStubProvider)
	})

	t.Run("combined stays within unit interval", func(t *testing.T) {
		emb := &stubEmbedder{}
		scorer, err := NewRelevanceScorer("relevance", emb, lex, DefaultRelevanceConfig())
		require.NoError(t, err)

		scores, err := scorer.Score(context.Background(),
			"a thoughtful response engaging with the material presented. it raises concrete objections worth considering.",
			"the original material under discussion",
			"what do you think of this material")
		require.NoError(t, err)

		assert.GreaterOrEqual(t, scores.Combined, 0.0)
		assert.LessOrEqual(t, scores.Combined, 1.0)
	})
}

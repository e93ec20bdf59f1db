package providers

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/engagekit/verity/internal/ports"
)

// GoogleEmbeddingDefaultModel is used when no Gemini embedding model is
// configured.
const GoogleEmbeddingDefaultModel = "text-embedding-004"

// GoogleConfig configures the Gemini-backed embedder.
type GoogleConfig struct {
	// APIKey authenticates against the Gemini API. Required.
	APIKey string
	// Model overrides the default embedding model.
	Model string
}

// GoogleEmbedder implements ports.Embedder against the Gemini embedding
// API. It is the drop-in alternative to the OpenAI embedder for
// deployments standardized on Google.
type GoogleEmbedder struct {
	client *genai.Client
	model  string
}

// NewGoogleEmbedder creates an embedder from the given configuration.
func NewGoogleEmbedder(ctx context.Context, config GoogleConfig) (*GoogleEmbedder, error) {
	if config.APIKey == "" {
		return nil, ErrEmptyAPIKey
	}
	model := config.Model
	if model == "" {
		model = GoogleEmbeddingDefaultModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Google client: %w", err)
	}

	return &GoogleEmbedder{client: client, model: model}, nil
}

// Encode returns one vector per input text, in input order.
func (e *GoogleEmbedder) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	contents := make([]*genai.Content, len(texts))
	for i, text := range texts {
		contents[i] = genai.NewContentFromText(text, genai.RoleUser)
	}

	resp, err := e.client.Models.EmbedContent(ctx, e.model, contents, nil)
	if err != nil {
		return nil, &ports.ProviderError{
			Provider:  "google",
			Model:     e.model,
			Operation: "embed",
			Err:       err,
		}
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, &ports.ProviderError{
			Provider:  "google",
			Model:     e.model,
			Operation: "embed",
			Err:       fmt.Errorf("%w: expected %d embeddings, got %d", ports.ErrInvalidResponse, len(texts), len(resp.Embeddings)),
		}
	}

	vectors := make([][]float32, len(texts))
	for i, emb := range resp.Embeddings {
		vectors[i] = emb.Values
	}
	return vectors, nil
}

// Model returns the embedding model identifier.
func (e *GoogleEmbedder) Model() string { return e.model }

var _ ports.Embedder = (*GoogleEmbedder)(nil)

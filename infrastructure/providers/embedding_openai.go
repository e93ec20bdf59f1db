package providers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/engagekit/verity/internal/ports"
)

// OpenAIEmbeddingDefaultModel is used when no embedding model is
// configured.
const OpenAIEmbeddingDefaultModel = string(openai.SmallEmbedding3)

// OpenAIConfig configures the OpenAI-backed providers.
type OpenAIConfig struct {
	// APIKey authenticates against the OpenAI API. Required.
	APIKey string
	// Model overrides the default model for the provider.
	Model string
	// BaseURL points the client at a compatible alternative endpoint,
	// e.g. a proxy or a local server. Empty means the public API.
	BaseURL string
	// Timeout bounds each HTTP request. Zero uses the client default.
	Timeout time.Duration
}

// ErrEmptyAPIKey indicates a provider was constructed without
// credentials.
var ErrEmptyAPIKey = fmt.Errorf("API key must not be empty")

func newOpenAIClient(config OpenAIConfig) (*openai.Client, error) {
	if config.APIKey == "" {
		return nil, ErrEmptyAPIKey
	}
	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}
	if config.Timeout > 0 {
		clientConfig.HTTPClient = &http.Client{Timeout: config.Timeout}
	}
	return openai.NewClientWithConfig(clientConfig), nil
}

// OpenAIEmbedder implements ports.Embedder against the OpenAI embeddings
// API. It batches all texts into a single request.
type OpenAIEmbedder struct {
	client *openai.Client
	model  string
}

// NewOpenAIEmbedder creates an embedder from the given configuration.
func NewOpenAIEmbedder(config OpenAIConfig) (*OpenAIEmbedder, error) {
	client, err := newOpenAIClient(config)
	if err != nil {
		return nil, err
	}
	model := config.Model
	if model == "" {
		model = OpenAIEmbeddingDefaultModel
	}
	return &OpenAIEmbedder{client: client, model: model}, nil
}

// Encode returns one vector per input text, in input order.
func (e *OpenAIEmbedder) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequestStrings{
		Input: texts,
		Model: openai.EmbeddingModel(e.model),
	})
	if err != nil {
		return nil, classifyOpenAIError("openai", e.model, "embed", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, &ports.ProviderError{
			Provider:  "openai",
			Model:     e.model,
			Operation: "embed",
			Err:       fmt.Errorf("%w: expected %d embeddings, got %d", ports.ErrInvalidResponse, len(texts), len(resp.Data)),
		}
	}

	// The API reports an index per embedding; order by it rather than
	// trusting response order.
	vectors := make([][]float32, len(texts))
	for _, item := range resp.Data {
		if item.Index < 0 || item.Index >= len(vectors) {
			return nil, &ports.ProviderError{
				Provider:  "openai",
				Model:     e.model,
				Operation: "embed",
				Err:       fmt.Errorf("%w: embedding index %d out of range", ports.ErrInvalidResponse, item.Index),
			}
		}
		vectors[item.Index] = item.Embedding
	}
	return vectors, nil
}

// Model returns the embedding model identifier.
func (e *OpenAIEmbedder) Model() string { return e.model }

var _ ports.Embedder = (*OpenAIEmbedder)(nil)

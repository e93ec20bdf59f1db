package providers

import (
	"context"
	"fmt"
	"math"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/engagekit/verity/internal/ports"
)

// OpenAILikelihoodDefaultModel is the default completion model for
// logprob scoring. Only legacy completion models expose echoed prompt
// logprobs.
const OpenAILikelihoodDefaultModel = openai.GPT3Dot5TurboInstruct

// contextSeparator joins the conditioning context and the scored text so
// the model sees them as consecutive passages.
const contextSeparator = "\n\n"

// OpenAILikelihood implements ports.LikelihoodModel on the completions
// API with Echo and LogProbs set, which returns per-token logprobs for
// the prompt itself without generating anything.
type OpenAILikelihood struct {
	client *openai.Client
	model  string
}

// NewOpenAILikelihood creates a likelihood model from the given
// configuration.
func NewOpenAILikelihood(config OpenAIConfig) (*OpenAILikelihood, error) {
	client, err := newOpenAIClient(config)
	if err != nil {
		return nil, err
	}
	model := config.Model
	if model == "" {
		model = OpenAILikelihoodDefaultModel
	}
	return &OpenAILikelihood{client: client, model: model}, nil
}

// SequenceLoss returns the mean per-token negative log-likelihood of
// text on its own. Empty text yields an infinite loss with zero tokens.
func (l *OpenAILikelihood) SequenceLoss(ctx context.Context, text string) (float64, int, error) {
	if strings.TrimSpace(text) == "" {
		return math.Inf(1), 0, nil
	}

	logprobs, _, err := l.promptLogprobs(ctx, text)
	if err != nil {
		return 0, 0, err
	}
	return meanNLL(logprobs)
}

// ConditionalLoss returns the mean per-token negative log-likelihood of
// text when the model has already seen contextText. Only tokens
// belonging to text are scored; the context tokens are masked out using
// the text offsets the API reports.
func (l *OpenAILikelihood) ConditionalLoss(ctx context.Context, contextText, text string) (float64, int, error) {
	if strings.TrimSpace(text) == "" {
		return math.Inf(1), 0, nil
	}
	if strings.TrimSpace(contextText) == "" {
		return l.SequenceLoss(ctx, text)
	}

	prompt := contextText + contextSeparator + text
	logprobs, offsets, err := l.promptLogprobs(ctx, prompt)
	if err != nil {
		return 0, 0, err
	}

	boundary := len(contextText) + len(contextSeparator)
	first := len(logprobs)
	for i, off := range offsets {
		if off >= boundary {
			first = i
			break
		}
	}
	if first >= len(logprobs) {
		return math.Inf(1), 0, nil
	}
	return meanNLL(logprobs[first:])
}

// Model returns the completion model identifier.
func (l *OpenAILikelihood) Model() string { return l.model }

// promptLogprobs scores a prompt without generating: Echo returns the
// prompt tokens with their logprobs and MaxTokens zero suppresses any
// continuation.
func (l *OpenAILikelihood) promptLogprobs(ctx context.Context, prompt string) (logprobs []float32, offsets []int, err error) {
	// MaxTokens of zero would be dropped from the request and fall back
	// to the API default, so ask for one token and mask it out below.
	resp, err := l.client.CreateCompletion(ctx, openai.CompletionRequest{
		Model:       l.model,
		Prompt:      prompt,
		MaxTokens:   1,
		Echo:        true,
		LogProbs:    1,
		Temperature: 0,
	})
	if err != nil {
		return nil, nil, classifyOpenAIError("openai", l.model, "logprobs", err)
	}
	if len(resp.Choices) == 0 {
		return nil, nil, &ports.ProviderError{
			Provider:  "openai",
			Model:     l.model,
			Operation: "logprobs",
			Err:       fmt.Errorf("%w: no completion choices", ports.ErrInvalidResponse),
		}
	}

	lp := resp.Choices[0].LogProbs
	if len(lp.TokenLogprobs) != len(lp.TextOffset) {
		return nil, nil, &ports.ProviderError{
			Provider:  "openai",
			Model:     l.model,
			Operation: "logprobs",
			Err:       fmt.Errorf("%w: %d logprobs vs %d offsets", ports.ErrInvalidResponse, len(lp.TokenLogprobs), len(lp.TextOffset)),
		}
	}

	// Keep prompt tokens only; anything at or past the prompt length is
	// generated continuation.
	end := len(lp.TokenLogprobs)
	for i, off := range lp.TextOffset {
		if off >= len(prompt) {
			end = i
			break
		}
	}

	// The first prompt token has no conditioning history; the API
	// reports its logprob as null, which decodes to zero. Drop it.
	if end > 0 {
		return lp.TokenLogprobs[1:end], lp.TextOffset[1:end], nil
	}
	return nil, nil, nil
}

// meanNLL averages negative log-likelihood over the scored tokens.
func meanNLL(logprobs []float32) (float64, int, error) {
	if len(logprobs) == 0 {
		return math.Inf(1), 0, nil
	}
	sum := 0.0
	for _, lp := range logprobs {
		sum -= float64(lp)
	}
	return sum / float64(len(logprobs)), len(logprobs), nil
}

var _ ports.LikelihoodModel = (*OpenAILikelihood)(nil)

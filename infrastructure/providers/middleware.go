package providers

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/engagekit/verity/internal/ports"
)

// EmbedderMiddleware wraps an Embedder with additional behavior.
type EmbedderMiddleware func(ports.Embedder) ports.Embedder

// LikelihoodMiddleware wraps a LikelihoodModel with additional behavior.
type LikelihoodMiddleware func(ports.LikelihoodModel) ports.LikelihoodModel

// ChainEmbedder applies middlewares so the first listed is outermost.
func ChainEmbedder(base ports.Embedder, middlewares ...EmbedderMiddleware) ports.Embedder {
	for i := len(middlewares) - 1; i >= 0; i-- {
		base = middlewares[i](base)
	}
	return base
}

// ChainLikelihood applies middlewares so the first listed is outermost.
func ChainLikelihood(base ports.LikelihoodModel, middlewares ...LikelihoodMiddleware) ports.LikelihoodModel {
	for i := len(middlewares) - 1; i >= 0; i-- {
		base = middlewares[i](base)
	}
	return base
}

// RetryConfig controls the exponential backoff retry middleware.
type RetryConfig struct {
	// MaxRetries is the number of attempts after the initial one.
	MaxRetries int
	// BaseDelay is the delay before the first retry; subsequent delays
	// double, with jitter.
	BaseDelay time.Duration
	// MaxDelay caps the backoff growth.
	MaxDelay time.Duration
}

// DefaultRetryConfig returns the retry settings used in production.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{MaxRetries: 3, BaseDelay: 200 * time.Millisecond, MaxDelay: 5 * time.Second}
}

// backoffDelay computes the delay for the given attempt with ±25%
// jitter.
func (c RetryConfig) backoffDelay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if attempt > 30 {
		attempt = 30
	}
	delay := time.Duration(float64(c.BaseDelay) * float64(uint64(1)<<uint(attempt)))

	// #nosec G404 - weak RNG is fine for retry jitter.
	jitter := time.Duration(rand.Float64() * float64(delay) * 0.5)
	delay = delay + jitter - (delay / 4)

	if delay > c.MaxDelay {
		delay = c.MaxDelay
	}
	return delay
}

// retryCall runs fn with retries on retryable provider errors. It
// respects context cancellation between attempts and never retries past
// an open circuit.
func retryCall[T any](ctx context.Context, config RetryConfig, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		result, err := fn()
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !retryable(err) || errors.Is(err, ports.ErrCircuitOpen) || ctx.Err() != nil {
			return zero, err
		}
		if attempt == config.MaxRetries {
			break
		}

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(config.backoffDelay(attempt)):
		}
	}

	return zero, fmt.Errorf("request failed after %d attempts: %w", config.MaxRetries+1, lastErr)
}

func retryable(err error) bool {
	var provErr *ports.ProviderError
	if errors.As(err, &provErr) {
		return provErr.IsRetryable()
	}
	return false
}

// WithEmbedderRetry retries failed Encode calls with exponential
// backoff.
func WithEmbedderRetry(config RetryConfig) EmbedderMiddleware {
	return func(next ports.Embedder) ports.Embedder {
		return &retryEmbedder{next: next, config: config}
	}
}

type retryEmbedder struct {
	next   ports.Embedder
	config RetryConfig
}

func (r *retryEmbedder) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	return retryCall(ctx, r.config, func() ([][]float32, error) {
		return r.next.Encode(ctx, texts)
	})
}

func (r *retryEmbedder) Model() string { return r.next.Model() }

// WithLikelihoodRetry retries failed loss calls with exponential
// backoff.
func WithLikelihoodRetry(config RetryConfig) LikelihoodMiddleware {
	return func(next ports.LikelihoodModel) ports.LikelihoodModel {
		return &retryLikelihood{next: next, config: config}
	}
}

type retryLikelihood struct {
	next   ports.LikelihoodModel
	config RetryConfig
}

type lossResult struct {
	loss   float64
	tokens int
}

func (r *retryLikelihood) SequenceLoss(ctx context.Context, text string) (float64, int, error) {
	res, err := retryCall(ctx, r.config, func() (lossResult, error) {
		loss, tokens, err := r.next.SequenceLoss(ctx, text)
		return lossResult{loss, tokens}, err
	})
	return res.loss, res.tokens, err
}

func (r *retryLikelihood) ConditionalLoss(ctx context.Context, contextText, text string) (float64, int, error) {
	res, err := retryCall(ctx, r.config, func() (lossResult, error) {
		loss, tokens, err := r.next.ConditionalLoss(ctx, contextText, text)
		return lossResult{loss, tokens}, err
	})
	return res.loss, res.tokens, err
}

func (r *retryLikelihood) Model() string { return r.next.Model() }

// WithEmbedderTimeout bounds each Encode call.
func WithEmbedderTimeout(timeout time.Duration) EmbedderMiddleware {
	return func(next ports.Embedder) ports.Embedder {
		return &timeoutEmbedder{next: next, timeout: timeout}
	}
}

type timeoutEmbedder struct {
	next    ports.Embedder
	timeout time.Duration
}

func (t *timeoutEmbedder) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.next.Encode(ctx, texts)
}

func (t *timeoutEmbedder) Model() string { return t.next.Model() }

// WithLikelihoodTimeout bounds each loss call.
func WithLikelihoodTimeout(timeout time.Duration) LikelihoodMiddleware {
	return func(next ports.LikelihoodModel) ports.LikelihoodModel {
		return &timeoutLikelihood{next: next, timeout: timeout}
	}
}

type timeoutLikelihood struct {
	next    ports.LikelihoodModel
	timeout time.Duration
}

func (t *timeoutLikelihood) SequenceLoss(ctx context.Context, text string) (float64, int, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.next.SequenceLoss(ctx, text)
}

func (t *timeoutLikelihood) ConditionalLoss(ctx context.Context, contextText, text string) (float64, int, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.next.ConditionalLoss(ctx, contextText, text)
}

func (t *timeoutLikelihood) Model() string { return t.next.Model() }

// WithEmbedderRateLimit paces Encode calls with a token bucket.
func WithEmbedderRateLimit(limit rate.Limit, burst int) EmbedderMiddleware {
	limiter := rate.NewLimiter(limit, burst)
	return func(next ports.Embedder) ports.Embedder {
		return &rateLimitedEmbedder{next: next, limiter: limiter}
	}
}

type rateLimitedEmbedder struct {
	next    ports.Embedder
	limiter *rate.Limiter
}

func (r *rateLimitedEmbedder) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}
	return r.next.Encode(ctx, texts)
}

func (r *rateLimitedEmbedder) Model() string { return r.next.Model() }

// WithLikelihoodRateLimit paces loss calls with a token bucket.
func WithLikelihoodRateLimit(limit rate.Limit, burst int) LikelihoodMiddleware {
	limiter := rate.NewLimiter(limit, burst)
	return func(next ports.LikelihoodModel) ports.LikelihoodModel {
		return &rateLimitedLikelihood{next: next, limiter: limiter}
	}
}

type rateLimitedLikelihood struct {
	next    ports.LikelihoodModel
	limiter *rate.Limiter
}

func (r *rateLimitedLikelihood) SequenceLoss(ctx context.Context, text string) (float64, int, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return 0, 0, fmt.Errorf("rate limit: %w", err)
	}
	return r.next.SequenceLoss(ctx, text)
}

func (r *rateLimitedLikelihood) ConditionalLoss(ctx context.Context, contextText, text string) (float64, int, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return 0, 0, fmt.Errorf("rate limit: %w", err)
	}
	return r.next.ConditionalLoss(ctx, contextText, text)
}

func (r *rateLimitedLikelihood) Model() string { return r.next.Model() }

// BreakerConfig controls the circuit breaker middleware.
type BreakerConfig struct {
	// Name identifies the breaker in logs and state callbacks.
	Name string
	// MaxFailures is the consecutive failure count that opens the
	// circuit.
	MaxFailures uint32
	// Cooldown is how long the circuit stays open before probing.
	Cooldown time.Duration
}

// DefaultBreakerConfig returns the breaker settings used in production.
func DefaultBreakerConfig(name string) BreakerConfig {
	return BreakerConfig{Name: name, MaxFailures: 5, Cooldown: 30 * time.Second}
}

func newBreaker[T any](config BreakerConfig) *gobreaker.CircuitBreaker[T] {
	return gobreaker.NewCircuitBreaker[T](gobreaker.Settings{
		Name:    config.Name,
		Timeout: config.Cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= config.MaxFailures
		},
	})
}

// mapBreakerErr translates gobreaker rejections into the port sentinel.
func mapBreakerErr(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %w", ports.ErrCircuitOpen, err)
	}
	return err
}

// WithEmbedderBreaker opens the circuit after repeated Encode failures
// so a degraded provider fails fast instead of piling on latency.
func WithEmbedderBreaker(config BreakerConfig) EmbedderMiddleware {
	breaker := newBreaker[[][]float32](config)
	return func(next ports.Embedder) ports.Embedder {
		return &breakerEmbedder{next: next, breaker: breaker}
	}
}

type breakerEmbedder struct {
	next    ports.Embedder
	breaker *gobreaker.CircuitBreaker[[][]float32]
}

func (b *breakerEmbedder) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	vectors, err := b.breaker.Execute(func() ([][]float32, error) {
		return b.next.Encode(ctx, texts)
	})
	if err != nil {
		return nil, mapBreakerErr(err)
	}
	return vectors, nil
}

func (b *breakerEmbedder) Model() string { return b.next.Model() }

// WithLikelihoodBreaker opens the circuit after repeated loss failures.
func WithLikelihoodBreaker(config BreakerConfig) LikelihoodMiddleware {
	breaker := newBreaker[lossResult](config)
	return func(next ports.LikelihoodModel) ports.LikelihoodModel {
		return &breakerLikelihood{next: next, breaker: breaker}
	}
}

type breakerLikelihood struct {
	next    ports.LikelihoodModel
	breaker *gobreaker.CircuitBreaker[lossResult]
}

func (b *breakerLikelihood) SequenceLoss(ctx context.Context, text string) (float64, int, error) {
	res, err := b.breaker.Execute(func() (lossResult, error) {
		loss, tokens, err := b.next.SequenceLoss(ctx, text)
		return lossResult{loss, tokens}, err
	})
	if err != nil {
		return 0, 0, mapBreakerErr(err)
	}
	return res.loss, res.tokens, nil
}

func (b *breakerLikelihood) ConditionalLoss(ctx context.Context, contextText, text string) (float64, int, error) {
	res, err := b.breaker.Execute(func() (lossResult, error) {
		loss, tokens, err := b.next.ConditionalLoss(ctx, contextText, text)
		return lossResult{loss, tokens}, err
	})
	if err != nil {
		return 0, 0, mapBreakerErr(err)
	}
	return res.loss, res.tokens, nil
}

func (b *breakerLikelihood) Model() string { return b.next.Model() }

// WithEmbedderMetrics records call latency and outcomes.
func WithEmbedderMetrics(metrics ports.MetricsCollector) EmbedderMiddleware {
	return func(next ports.Embedder) ports.Embedder {
		return &metricsEmbedder{next: next, metrics: metrics}
	}
}

type metricsEmbedder struct {
	next    ports.Embedder
	metrics ports.MetricsCollector
}

func (m *metricsEmbedder) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	start := time.Now()
	vectors, err := m.next.Encode(ctx, texts)
	recordProviderCall(m.metrics, "embed", m.next.Model(), start, err)
	return vectors, err
}

func (m *metricsEmbedder) Model() string { return m.next.Model() }

// WithLikelihoodMetrics records call latency and outcomes.
func WithLikelihoodMetrics(metrics ports.MetricsCollector) LikelihoodMiddleware {
	return func(next ports.LikelihoodModel) ports.LikelihoodModel {
		return &metricsLikelihood{next: next, metrics: metrics}
	}
}

type metricsLikelihood struct {
	next    ports.LikelihoodModel
	metrics ports.MetricsCollector
}

func (m *metricsLikelihood) SequenceLoss(ctx context.Context, text string) (float64, int, error) {
	start := time.Now()
	loss, tokens, err := m.next.SequenceLoss(ctx, text)
	recordProviderCall(m.metrics, "sequence_loss", m.next.Model(), start, err)
	return loss, tokens, err
}

func (m *metricsLikelihood) ConditionalLoss(ctx context.Context, contextText, text string) (float64, int, error) {
	start := time.Now()
	loss, tokens, err := m.next.ConditionalLoss(ctx, contextText, text)
	recordProviderCall(m.metrics, "conditional_loss", m.next.Model(), start, err)
	return loss, tokens, err
}

func (m *metricsLikelihood) Model() string { return m.next.Model() }

func recordProviderCall(metrics ports.MetricsCollector, operation, model string, start time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	labels := map[string]string{"model": model, "status": status}
	metrics.RecordLatency("provider_"+operation, time.Since(start), labels)
	metrics.RecordCounter("provider_calls_total", 1, labels)
}

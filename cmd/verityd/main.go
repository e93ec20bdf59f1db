// Command verityd runs the verification engine as an HTTP service.
//
// Provider credentials and wiring come from the environment:
//
//	OPENAI_API_KEY        required; embeddings and logprob scoring
//	GOOGLE_API_KEY        optional; switches embeddings to Gemini
//	VERITY_CONFIG         optional path to a YAML config file
//	VERITY_LISTEN_ADDR    listen address, default :8080
//	VERITY_NATS_URL       optional; enables result publishing
//	VERITY_EMBEDDING_DB   optional path; enables the persistent
//	                      embedding cache
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/time/rate"

	"github.com/engagekit/verity/infrastructure/cache"
	"github.com/engagekit/verity/infrastructure/events"
	"github.com/engagekit/verity/infrastructure/metrics"
	"github.com/engagekit/verity/infrastructure/providers"
	"github.com/engagekit/verity/internal/engine"
	"github.com/engagekit/verity/internal/ports"
)

const (
	defaultListenAddr      = ":8080"
	providerTimeout        = 30 * time.Second
	providerRate           = rate.Limit(20)
	providerBurst          = 5
	embeddingCacheEntries  = 50000
	shutdownGrace          = 10 * time.Second
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := engine.LoadConfig(os.Getenv("VERITY_CONFIG"))
	if err != nil {
		return err
	}

	collector := metrics.NewPrometheusMetrics(nil)

	embedder, cleanupEmbed, err := buildEmbedder(ctx, logger, collector)
	if err != nil {
		return err
	}
	defer cleanupEmbed()

	likelihood, err := buildLikelihood(collector)
	if err != nil {
		return err
	}

	deps := engine.Deps{
		Embedder:   embedder,
		Likelihood: likelihood,
		Cache:      cache.NewMemoryStore(),
		Metrics:    collector,
		Logger:     logger,
	}

	if natsURL := os.Getenv("VERITY_NATS_URL"); natsURL != "" {
		publisher, err := events.NewPublisher(natsURL, os.Getenv("VERITY_NATS_SUBJECT"), events.Options{Logger: logger})
		if err != nil {
			return err
		}
		defer publisher.Close()
		deps.Publisher = publisher
	}

	eng, err := engine.New(cfg, deps)
	if err != nil {
		return err
	}

	addr := os.Getenv("VERITY_LISTEN_ADDR")
	if addr == "" {
		addr = defaultListenAddr
	}
	srv := &http.Server{
		Addr:         addr,
		Handler:      newRouter(eng, logger),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown incomplete", "error", err)
	}
	return nil
}

// buildEmbedder wires the configured embedding provider behind the
// resilience middleware and, when enabled, the persistent cache.
func buildEmbedder(ctx context.Context, logger *slog.Logger, collector ports.MetricsCollector) (ports.Embedder, func(), error) {
	cleanup := func() {}

	var base ports.Embedder
	if googleKey := os.Getenv("GOOGLE_API_KEY"); googleKey != "" {
		emb, err := providers.NewGoogleEmbedder(ctx, providers.GoogleConfig{
			APIKey: googleKey,
			Model:  os.Getenv("VERITY_EMBEDDING_MODEL"),
		})
		if err != nil {
			return nil, nil, err
		}
		base = emb
	} else {
		emb, err := providers.NewOpenAIEmbedder(providers.OpenAIConfig{
			APIKey:  os.Getenv("OPENAI_API_KEY"),
			Model:   os.Getenv("VERITY_EMBEDDING_MODEL"),
			Timeout: providerTimeout,
		})
		if err != nil {
			return nil, nil, err
		}
		base = emb
	}

	if dbPath := os.Getenv("VERITY_EMBEDDING_DB"); dbPath != "" {
		embCache, err := cache.NewEmbeddingCache(dbPath, embeddingCacheEntries)
		if err != nil {
			return nil, nil, err
		}
		cleanup = func() {
			if err := embCache.Close(); err != nil {
				logger.Warn("embedding cache close failed", "error", err)
			}
		}
		base = cache.NewCachingEmbedder(base, embCache)
	}

	wrapped := providers.ChainEmbedder(base,
		providers.WithEmbedderMetrics(collector),
		providers.WithEmbedderRetry(providers.DefaultRetryConfig()),
		providers.WithEmbedderBreaker(providers.DefaultBreakerConfig("embedder")),
		providers.WithEmbedderRateLimit(providerRate, providerBurst),
		providers.WithEmbedderTimeout(providerTimeout),
	)
	return wrapped, cleanup, nil
}

func buildLikelihood(collector ports.MetricsCollector) (ports.LikelihoodModel, error) {
	base, err := providers.NewOpenAILikelihood(providers.OpenAIConfig{
		APIKey:  os.Getenv("OPENAI_API_KEY"),
		Model:   os.Getenv("VERITY_LIKELIHOOD_MODEL"),
		Timeout: providerTimeout,
	})
	if err != nil {
		return nil, err
	}

	return providers.ChainLikelihood(base,
		providers.WithLikelihoodMetrics(collector),
		providers.WithLikelihoodRetry(providers.DefaultRetryConfig()),
		providers.WithLikelihoodBreaker(providers.DefaultBreakerConfig("likelihood")),
		providers.WithLikelihoodRateLimit(providerRate, providerBurst),
		providers.WithLikelihoodTimeout(providerTimeout),
	), nil
}

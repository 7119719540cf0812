package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/time/rate"

	"github.com/everlasthealth/assistant/internal/chat"
	"github.com/everlasthealth/assistant/internal/config"
	"github.com/everlasthealth/assistant/internal/database"
	"github.com/everlasthealth/assistant/internal/knowledge"
	"github.com/everlasthealth/assistant/internal/llm"
	"github.com/everlasthealth/assistant/internal/observability"
	"github.com/everlasthealth/assistant/internal/rag"
	"github.com/everlasthealth/assistant/internal/style"
)

// answerRateLimit caps model call attempts per second. Both clients share
// one limit value but hold independent buckets.
const (
	answerRateLimit = rate.Limit(5)
	answerRateBurst = 10
)

// Setup creates and initializes the application.
// Returns an App with embedded cleanup; call Close() to release.
func Setup(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *App, retErr error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	a := &App{Config: cfg, Logger: logger}

	// On error, release everything already initialized.
	defer func() {
		if retErr != nil {
			if err := a.Close(); err != nil {
				logger.Warn("cleanup during setup failure", "error", err)
			}
		}
	}()

	// Tracing must be registered before Genkit initialization so spans
	// from model calls reach the exporter.
	if cfg.OTLPEndpoint != "" {
		a.otelCleanup = provideTracing(ctx, cfg, logger)
	}

	pool, err := provideDBPool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.DBPool = pool

	g := genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))
	if g == nil {
		return nil, errors.New("initializing genkit with googleai provider")
	}
	a.Genkit = g
	logger.Info("initialized Genkit",
		"answer_model", cfg.FullModelName(),
		"classifier_model", cfg.FullClassifierModelName(),
	)

	a.Embedder = googlegenai.GoogleAIEmbedder(g, cfg.EmbedderModel)
	if a.Embedder == nil {
		return nil, fmt.Errorf("embedder %q not found", cfg.EmbedderModel)
	}

	a.Knowledge = knowledge.New(knowledge.NewPGQuerier(pool), a.Embedder, logger)

	a.Retriever, err = rag.New(a.Knowledge, cfg.SearchCandidates, cfg.SearchResults, logger)
	if err != nil {
		return nil, fmt.Errorf("creating retriever: %w", err)
	}

	answerClient, err := llm.New(g, cfg.FullModelName(), cfg.Temperature, logger,
		llm.WithRateLimiter(rate.NewLimiter(answerRateLimit, answerRateBurst)),
	)
	if err != nil {
		return nil, fmt.Errorf("creating answer client: %w", err)
	}

	classifierClient, err := llm.New(g, cfg.FullClassifierModelName(), cfg.ClassifierTemperature, logger,
		llm.WithRateLimiter(rate.NewLimiter(answerRateLimit, answerRateBurst)),
	)
	if err != nil {
		return nil, fmt.Errorf("creating classifier client: %w", err)
	}

	a.Detector, err = style.New(classifierClient, logger)
	if err != nil {
		return nil, fmt.Errorf("creating style detector: %w", err)
	}

	a.Orchestrator, err = chat.New(a.Detector, a.Retriever, answerClient, logger)
	if err != nil {
		return nil, fmt.Errorf("creating orchestrator: %w", err)
	}

	return a, nil
}

// provideTracing registers the OTLP exporter and returns a cleanup that
// flushes pending spans.
func provideTracing(ctx context.Context, cfg *config.Config, logger *slog.Logger) func() {
	shutdown, err := observability.SetupTracing(ctx, observability.Config{
		Endpoint:    cfg.OTLPEndpoint,
		Environment: cfg.OTLPEnviron,
		ServiceName: cfg.OTLPService,
	}, logger)
	if err != nil || shutdown == nil {
		return func() {}
	}

	//nolint:contextcheck // Independent context: shutdown runs during teardown when parent is canceled
	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			logger.Warn("shutting down tracer provider", "error", err)
		}
	}
}

// provideDBPool runs migrations and opens the connection pool.
func provideDBPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	if err := database.Migrate(cfg.DatabaseURL()); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	pool, err := database.Open(ctx, cfg.DatabaseURL())
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	return pool, nil
}

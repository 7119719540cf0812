// Package app provides application initialization and dependency wiring.
//
// App is the container that builds every component in dependency order:
// config, database pool, Genkit, embedder, knowledge store, retriever,
// style detector, and the turn orchestrator.
package app

import (
	"log/slog"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/everlasthealth/assistant/internal/chat"
	"github.com/everlasthealth/assistant/internal/config"
	"github.com/everlasthealth/assistant/internal/knowledge"
	"github.com/everlasthealth/assistant/internal/rag"
	"github.com/everlasthealth/assistant/internal/style"
)

// App is the core application container.
type App struct {
	Config *config.Config
	Logger *slog.Logger

	Genkit   *genkit.Genkit
	Embedder ai.Embedder
	DBPool   *pgxpool.Pool

	Knowledge    *knowledge.Store
	Retriever    *rag.Retriever
	Detector     *style.Detector
	Orchestrator *chat.Orchestrator

	otelCleanup func()
}

// Close gracefully shuts down all resources.
func (a *App) Close() error {
	a.Logger.Info("shutting down application")

	if a.DBPool != nil {
		a.DBPool.Close()
		a.Logger.Info("database pool closed")
	}
	if a.otelCleanup != nil {
		a.otelCleanup()
	}

	return nil
}

// NewIndexer builds a document indexer over the knowledge store, for the
// offline ingestion command.
func (a *App) NewIndexer() (*rag.Indexer, error) {
	return rag.NewIndexer(a.Knowledge, a.Config.ChunkSize, a.Config.ChunkOverlap, a.Logger)
}

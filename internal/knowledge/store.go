// Package knowledge manages the assistant's document knowledge base:
// embedding generation and vector similarity search over PostgreSQL with
// the pgvector extension.
package knowledge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/pgvector/pgvector-go"
	"google.golang.org/genai"
)

// Querier defines the database operations Store needs.
// The interface is defined by the consumer, not the provider (as with
// io.Reader and http.RoundTripper), so Store can be tested against a mock
// while production uses the pgx-backed implementation in pg.go.
type Querier interface {
	// UpsertDocument inserts or updates a document by ID.
	UpsertDocument(ctx context.Context, arg UpsertDocumentParams) error

	// SearchDocuments returns the topK nearest documents by cosine distance,
	// ordered by descending similarity. Ordering must be deterministic for
	// identical query vectors and index state.
	SearchDocuments(ctx context.Context, arg SearchDocumentsParams) ([]DocumentRow, error)

	// CountDocuments returns the total number of stored documents.
	CountDocuments(ctx context.Context) (int64, error)

	// DeleteDocument deletes a document by ID.
	DeleteDocument(ctx context.Context, id string) error

	// DeleteBySource deletes all documents ingested from the given source.
	DeleteBySource(ctx context.Context, source string) (int64, error)
}

// UpsertDocumentParams carries one document write.
type UpsertDocumentParams struct {
	ID        string
	Content   string
	Embedding pgvector.Vector
	Metadata  []byte // JSON-encoded map[string]string
	CreatedAt time.Time
}

// SearchDocumentsParams carries one similarity query.
type SearchDocumentsParams struct {
	QueryEmbedding pgvector.Vector
	ResultLimit    int32
}

// DocumentRow is one row returned by SearchDocuments.
type DocumentRow struct {
	ID         string
	Content    string
	Metadata   []byte
	CreatedAt  time.Time
	Similarity float64
}

// Store manages knowledge documents with vector search.
// It is safe for concurrent use by multiple goroutines.
type Store struct {
	queries  Querier
	embedder ai.Embedder
	logger   *slog.Logger
}

// New creates a Store. A nil logger falls back to slog.Default().
func New(querier Querier, embedder ai.Embedder, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		queries:  querier,
		embedder: embedder,
		logger:   logger,
	}
}

// Add embeds a document's content and upserts it into the store.
func (s *Store) Add(ctx context.Context, doc Document) error {
	embedding, err := s.embed(ctx, doc.Content)
	if err != nil {
		return fmt.Errorf("embedding document %q: %w", doc.ID, err)
	}

	metadataJSON, err := json.Marshal(doc.Metadata)
	if err != nil {
		return fmt.Errorf("marshaling metadata for %q: %w", doc.ID, err)
	}

	createdAt := doc.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	if err := s.queries.UpsertDocument(ctx, UpsertDocumentParams{
		ID:        doc.ID,
		Content:   doc.Content,
		Embedding: embedding,
		Metadata:  metadataJSON,
		CreatedAt: createdAt,
	}); err != nil {
		return fmt.Errorf("upserting document %q: %w", doc.ID, err)
	}

	s.logger.Debug("added document", "id", doc.ID, "content_length", len(doc.Content))
	return nil
}

// Search performs semantic search, returning the most similar documents to
// the query ordered by descending similarity. A per-call timeout bounds the
// embedding call and the vector query.
func (s *Store) Search(ctx context.Context, query string, opts ...SearchOption) ([]Result, error) {
	settings := ResolveSearchOptions(opts...)

	queryCtx, cancel := context.WithTimeout(ctx, settings.Timeout)
	defer cancel()

	queryEmbedding, err := s.embed(queryCtx, query)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("query embedding timeout: %w", err)
		}
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	rows, err := s.queries.SearchDocuments(queryCtx, SearchDocumentsParams{
		QueryEmbedding: queryEmbedding,
		ResultLimit:    int32(settings.TopK), // #nosec G115 -- topK validated positive and small
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("search query timeout: %w", err)
		}
		return nil, fmt.Errorf("search failed: %w", err)
	}

	return s.rowsToResults(rows), nil
}

// Count returns the total number of stored documents.
func (s *Store) Count(ctx context.Context) (int, error) {
	count, err := s.queries.CountDocuments(ctx)
	if err != nil {
		return 0, fmt.Errorf("count failed: %w", err)
	}
	return int(count), nil
}

// Delete removes a document by ID.
func (s *Store) Delete(ctx context.Context, docID string) error {
	if err := s.queries.DeleteDocument(ctx, docID); err != nil {
		return fmt.Errorf("deleting document %q: %w", docID, err)
	}
	s.logger.Debug("deleted document", "id", docID)
	return nil
}

// DeleteBySource removes all documents ingested from the given source.
// Used by the ingestion job to replace a file's chunks on re-ingestion.
func (s *Store) DeleteBySource(ctx context.Context, source string) (int, error) {
	n, err := s.queries.DeleteBySource(ctx, source)
	if err != nil {
		return 0, fmt.Errorf("deleting documents for source %q: %w", source, err)
	}
	return int(n), nil
}

// embed generates the embedding vector for one piece of text, truncated to
// the dimension the documents table schema declares.
func (s *Store) embed(ctx context.Context, text string) (pgvector.Vector, error) {
	dim := VectorDimension
	resp, err := s.embedder.Embed(ctx, &ai.EmbedRequest{
		Input:   []*ai.Document{ai.DocumentFromText(text, nil)},
		Options: &genai.EmbedContentConfig{OutputDimensionality: &dim},
	})
	if err != nil {
		return pgvector.Vector{}, err
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Embedding) == 0 {
		return pgvector.Vector{}, errors.New("embedder returned no embedding")
	}
	return pgvector.NewVector(resp.Embeddings[0].Embedding), nil
}

// rowsToResults converts database rows to business model results.
func (s *Store) rowsToResults(rows []DocumentRow) []Result {
	results := make([]Result, 0, len(rows))
	for _, row := range rows {
		var metadata map[string]string
		if err := json.Unmarshal(row.Metadata, &metadata); err != nil {
			s.logger.Warn("failed to parse metadata", "document_id", row.ID, "error", err)
			metadata = make(map[string]string)
		}

		results = append(results, Result{
			Document: Document{
				ID:        row.ID,
				Content:   row.Content,
				Metadata:  metadata,
				CreatedAt: row.CreatedAt,
			},
			Similarity: row.Similarity,
		})
	}
	return results
}

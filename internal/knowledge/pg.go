package knowledge

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PGQuerier implements Querier on a pgx connection pool.
// The pool must have pgvector types registered (database.Open does this).
type PGQuerier struct {
	pool *pgxpool.Pool
}

// NewPGQuerier creates a pgx-backed Querier.
func NewPGQuerier(pool *pgxpool.Pool) *PGQuerier {
	return &PGQuerier{pool: pool}
}

const upsertDocumentSQL = `
INSERT INTO documents (id, content, embedding, metadata, created_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (id) DO UPDATE
SET content = EXCLUDED.content,
    embedding = EXCLUDED.embedding,
    metadata = EXCLUDED.metadata`

// UpsertDocument inserts or updates a document by ID.
func (q *PGQuerier) UpsertDocument(ctx context.Context, arg UpsertDocumentParams) error {
	_, err := q.pool.Exec(ctx, upsertDocumentSQL,
		arg.ID, arg.Content, arg.Embedding, arg.Metadata, arg.CreatedAt)
	if err != nil {
		return fmt.Errorf("upsert document: %w", err)
	}
	return nil
}

// searchDocumentsSQL orders by cosine distance; the secondary id ordering
// makes ties deterministic for identical query vectors and index state.
const searchDocumentsSQL = `
SELECT id, content, metadata, created_at,
       1 - (embedding <=> $1) AS similarity
FROM documents
ORDER BY embedding <=> $1, id
LIMIT $2`

// SearchDocuments returns the nearest documents by cosine distance.
func (q *PGQuerier) SearchDocuments(ctx context.Context, arg SearchDocumentsParams) ([]DocumentRow, error) {
	rows, err := q.pool.Query(ctx, searchDocumentsSQL, arg.QueryEmbedding, arg.ResultLimit)
	if err != nil {
		return nil, fmt.Errorf("search documents: %w", err)
	}
	defer rows.Close()

	var out []DocumentRow
	for rows.Next() {
		var (
			row       DocumentRow
			createdAt time.Time
		)
		if err := rows.Scan(&row.ID, &row.Content, &row.Metadata, &createdAt, &row.Similarity); err != nil {
			return nil, fmt.Errorf("scan document row: %w", err)
		}
		row.CreatedAt = createdAt
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate document rows: %w", err)
	}
	return out, nil
}

// CountDocuments returns the total number of stored documents.
func (q *PGQuerier) CountDocuments(ctx context.Context) (int64, error) {
	var count int64
	if err := q.pool.QueryRow(ctx, `SELECT COUNT(*) FROM documents`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count documents: %w", err)
	}
	return count, nil
}

// DeleteDocument deletes a document by ID.
func (q *PGQuerier) DeleteDocument(ctx context.Context, id string) error {
	if _, err := q.pool.Exec(ctx, `DELETE FROM documents WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return nil
}

// DeleteBySource deletes all documents whose metadata source matches.
func (q *PGQuerier) DeleteBySource(ctx context.Context, source string) (int64, error) {
	tag, err := q.pool.Exec(ctx,
		`DELETE FROM documents WHERE metadata->>'source' = $1`, source)
	if err != nil {
		return 0, fmt.Errorf("delete by source: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Package rag provides retrieval-augmented generation support: querying
// the knowledge base for passages relevant to a user message (retriever.go)
// and the offline document ingestion job that populates it (indexer.go).
package rag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/everlasthealth/assistant/internal/config"
	"github.com/everlasthealth/assistant/internal/conversation"
	"github.com/everlasthealth/assistant/internal/knowledge"
)

// ErrUnavailable indicates the similarity backend could not be queried.
// The orchestrator fails the whole turn on this error; there is no
// answer-without-context fallback.
var ErrUnavailable = errors.New("knowledge retrieval unavailable")

// Searcher is the similarity backend the retriever queries.
// knowledge.Store satisfies it.
type Searcher interface {
	Search(ctx context.Context, query string, opts ...knowledge.SearchOption) ([]knowledge.Result, error)
}

// Context is the retrieval output for one turn.
type Context struct {
	// Results are the deduplicated passages, at most the configured final
	// count, ordered by descending similarity.
	Results []conversation.SearchResult

	// CombinedText is the results' contents joined with a blank line, in
	// the same order as Results. Empty when nothing was retrieved.
	CombinedText string
}

// Retriever queries the similarity backend, removes duplicate passages and
// truncates to the configured result count.
//
// It over-fetches candidates beyond the final count so that dropping
// duplicates still leaves a full result set; config validation guarantees
// candidates > results.
type Retriever struct {
	search     Searcher
	candidates int
	results    int
	logger     *slog.Logger
}

// New creates a Retriever. Counts of zero fall back to the package defaults
// in config; a candidate count not exceeding the result count is rejected.
func New(search Searcher, candidates, results int, logger *slog.Logger) (*Retriever, error) {
	if search == nil {
		return nil, errors.New("searcher is required")
	}
	if candidates == 0 {
		candidates = config.DefaultSearchCandidates
	}
	if results == 0 {
		results = config.DefaultSearchResults
	}
	if results < 1 {
		return nil, fmt.Errorf("result count %d must be at least 1", results)
	}
	if candidates <= results {
		return nil, fmt.Errorf("candidate count %d must exceed result count %d", candidates, results)
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Retriever{
		search:     search,
		candidates: candidates,
		results:    results,
		logger:     logger,
	}, nil
}

// Retrieve fetches the passages most relevant to query.
//
// Candidates arrive ranked by descending similarity; a single forward pass
// keeps the first occurrence of each (source, content) key, so the
// highest-scoring instance of a duplicated passage survives. The kept list
// is then truncated to the final count.
func (r *Retriever) Retrieve(ctx context.Context, query string) (Context, error) {
	if strings.TrimSpace(query) == "" {
		return Context{}, errors.New("query must not be empty")
	}

	hits, err := r.search.Search(ctx, query, knowledge.WithTopK(r.candidates))
	if err != nil {
		return Context{}, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	results := dedupe(hits, r.results)

	contents := make([]string, len(results))
	for i, res := range results {
		contents[i] = res.Content
	}

	r.logger.Debug("retrieved knowledge context",
		"candidates", len(hits),
		"kept", len(results),
		"query_length", len(query))

	return Context{
		Results:      results,
		CombinedText: strings.Join(contents, "\n\n"),
	}, nil
}

// dedupe keeps the first occurrence of each (source, content) key from the
// ranked hits and truncates to limit. The input order is preserved; no
// re-sorting, so backend tie ordering survives.
func dedupe(hits []knowledge.Result, limit int) []conversation.SearchResult {
	seen := make(map[string]struct{}, len(hits))
	results := make([]conversation.SearchResult, 0, limit)

	for _, hit := range hits {
		if len(results) == limit {
			break
		}
		key := hit.Document.Source() + "\x00" + hit.Document.Content
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		results = append(results, conversation.SearchResult{
			Content: hit.Document.Content,
			Score:   hit.Similarity,
			Source:  hit.Document.Source(),
		})
	}

	return results
}

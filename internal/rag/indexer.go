package rag

// indexer.go implements the offline document ingestion job.
//
// The job walks a documents directory, splits each supported file into
// overlapping text chunks, embeds every chunk and upserts it into the
// knowledge store with its source path as metadata. It is batch
// preprocessing with no runtime coupling to the chat turn pipeline.

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/everlasthealth/assistant/internal/config"
	"github.com/everlasthealth/assistant/internal/knowledge"
)

// IndexerStore is the storage interface the indexer needs.
// knowledge.Store satisfies it.
type IndexerStore interface {
	Add(ctx context.Context, doc knowledge.Document) error
	DeleteBySource(ctx context.Context, source string) (int, error)
}

// defaultExtensions are the file types ingested by default.
var defaultExtensions = map[string]bool{
	".txt": true,
	".md":  true,
}

// IndexResult summarizes one ingestion run.
type IndexResult struct {
	FilesIndexed int
	FilesSkipped int
	FilesFailed  int
	ChunksAdded  int
	Duration     time.Duration
}

// Indexer splits documents into chunks and loads them into the store.
type Indexer struct {
	store        IndexerStore
	chunkSize    int
	chunkOverlap int
	extensions   map[string]bool
	logger       *slog.Logger
}

// NewIndexer creates an Indexer. Chunk sizes of zero fall back to the
// package defaults in config; an overlap reaching the chunk size is
// rejected since the walk would never advance.
func NewIndexer(store IndexerStore, chunkSize, chunkOverlap int, logger *slog.Logger) (*Indexer, error) {
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if chunkSize == 0 {
		chunkSize = config.DefaultChunkSize
	}
	if chunkOverlap == 0 {
		chunkOverlap = config.DefaultChunkOverlap
	}
	if chunkSize < 1 {
		return nil, fmt.Errorf("chunk size %d must be positive", chunkSize)
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		return nil, fmt.Errorf("chunk overlap %d must be in [0, %d)", chunkOverlap, chunkSize)
	}
	if logger == nil {
		logger = slog.Default()
	}

	exts := make(map[string]bool, len(defaultExtensions))
	for k, v := range defaultExtensions {
		exts[k] = v
	}

	return &Indexer{
		store:        store,
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
		extensions:   exts,
		logger:       logger,
	}, nil
}

// IndexDirectory ingests every supported file under dir.
// Files that fail to read or embed are counted and logged but do not abort
// the run; an unreadable directory does.
func (ix *Indexer) IndexDirectory(ctx context.Context, dir string) (IndexResult, error) {
	start := time.Now()
	var result IndexResult

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if !ix.extensions[strings.ToLower(filepath.Ext(path))] {
			result.FilesSkipped++
			return nil
		}

		added, err := ix.IndexFile(ctx, path)
		if err != nil {
			if ctx.Err() != nil {
				return err // canceled, stop the walk
			}
			ix.logger.Warn("failed to index file", "path", path, "error", err)
			result.FilesFailed++
			return nil
		}

		result.FilesIndexed++
		result.ChunksAdded += added
		return nil
	})

	result.Duration = time.Since(start)
	if err != nil {
		return result, fmt.Errorf("walking %q: %w", dir, err)
	}

	ix.logger.Info("ingestion complete",
		"dir", dir,
		"files", result.FilesIndexed,
		"chunks", result.ChunksAdded,
		"skipped", result.FilesSkipped,
		"failed", result.FilesFailed,
		"duration", result.Duration)

	return result, nil
}

// IndexFile ingests a single file, replacing any chunks previously stored
// for the same source path. Returns the number of chunks added.
func (ix *Indexer) IndexFile(ctx context.Context, path string) (int, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path comes from the operator's ingest command
	if err != nil {
		return 0, fmt.Errorf("reading file: %w", err)
	}

	content := strings.TrimSpace(string(data))
	if content == "" {
		return 0, nil
	}

	// Drop stale chunks from earlier ingestion runs of the same file.
	if _, err := ix.store.DeleteBySource(ctx, path); err != nil {
		return 0, fmt.Errorf("removing stale chunks: %w", err)
	}

	chunks := splitChunks(content, ix.chunkSize, ix.chunkOverlap)
	prefix := documentIDPrefix(path)

	for i, chunk := range chunks {
		doc := knowledge.Document{
			ID:      prefix + "-" + strconv.Itoa(i),
			Content: chunk,
			Metadata: map[string]string{
				knowledge.MetadataSource: path,
				"chunk":                  strconv.Itoa(i),
			},
		}
		if err := ix.store.Add(ctx, doc); err != nil {
			return i, fmt.Errorf("adding chunk %d: %w", i, err)
		}
	}

	ix.logger.Debug("indexed file", "path", path, "chunks", len(chunks))
	return len(chunks), nil
}

// documentIDPrefix derives a stable ID prefix from the source path, so
// re-ingesting the same file overwrites its previous chunks.
func documentIDPrefix(path string) string {
	sum := sha256.Sum256([]byte(path))
	return hex.EncodeToString(sum[:8])
}

// splitChunks splits text into rune-safe chunks of at most size runes,
// consecutive chunks sharing overlap runes. The final partial chunk is kept.
func splitChunks(text string, size, overlap int) []string {
	runes := []rune(text)
	if len(runes) <= size {
		return []string{text}
	}

	step := size - overlap
	var chunks []string
	for start := 0; start < len(runes); start += step {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		chunk := strings.TrimSpace(string(runes[start:end]))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
		if end == len(runes) {
			break
		}
	}
	return chunks
}

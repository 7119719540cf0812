package knowledge

import "time"

// MetadataSource is the metadata key carrying a document's origin
// identifier (typically the source file path set by the ingestion job).
const MetadataSource = "source"

// VectorDimension is the embedding size the documents table stores.
// gemini-embedding-001 emits 3072 dimensions unless told otherwise; every
// embed call requests truncation to this size via OutputDimensionality so
// vectors fit the vector(768) column.
const VectorDimension int32 = 768

// Document is a stored knowledge base chunk.
type Document struct {
	ID        string            // unique identifier, stable across re-ingestion
	Content   string            // chunk text
	Metadata  map[string]string // at minimum the "source" key
	CreatedAt time.Time
}

// Source returns the document's origin identifier, or "" when unset.
func (d Document) Source() string {
	return d.Metadata[MetadataSource]
}

// Result is a single similarity search hit.
type Result struct {
	Document   Document
	Similarity float64 // cosine similarity, higher = more relevant
}

// SearchOption configures search behavior using the functional options
// pattern (as in context.WithTimeout, grpc.Dial).
type SearchOption func(*SearchSettings)

// SearchSettings is the resolved form of a SearchOption list. Exported so
// Searcher-shaped test doubles in other packages can observe what a caller
// actually requested.
type SearchSettings struct {
	TopK    int
	Timeout time.Duration
}

// Search defaults.
const (
	defaultTopK          = 5
	defaultSearchTimeout = 10 * time.Second
)

// WithTopK sets the maximum number of results to return. Default is 5.
func WithTopK(k int) SearchOption {
	return func(s *SearchSettings) {
		if k > 0 {
			s.TopK = k
		}
	}
}

// WithTimeout bounds the embedding and vector query time. Default is 10s.
func WithTimeout(d time.Duration) SearchOption {
	return func(s *SearchSettings) {
		if d > 0 {
			s.Timeout = d
		}
	}
}

// ResolveSearchOptions applies opts over the defaults.
func ResolveSearchOptions(opts ...SearchOption) SearchSettings {
	settings := SearchSettings{
		TopK:    defaultTopK,
		Timeout: defaultSearchTimeout,
	}
	for _, opt := range opts {
		opt(&settings)
	}
	return settings
}

// Package testutil provides shared testing utilities for the assistant,
// following the pattern of net/http/httptest: reusable infrastructure that
// production code never imports.
package testutil

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"math"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/core/api"
	"google.golang.org/genai"
)

// EmbeddingDimension matches the documents table schema.
const EmbeddingDimension = 768

// providerDefaultDimension is what gemini-embedding-001 emits when a
// request does not set OutputDimensionality.
const providerDefaultDimension = 3072

// MockEmbedder is a deterministic ai.Embedder for tests.
// It derives a unit-length vector from a SHA-256 hash of the text, so equal
// inputs always embed identically and distinct inputs almost never collide.
// No network access, safe for concurrent use.
type MockEmbedder struct {
	// Err, when set, is returned by every Embed call.
	Err error
}

// NewMockEmbedder creates a deterministic mock embedder.
func NewMockEmbedder() *MockEmbedder {
	return &MockEmbedder{}
}

// Name implements ai.Embedder.
func (m *MockEmbedder) Name() string {
	return "mock/test-embedder"
}

// Register implements ai.Embedder. It is a no-op: tests pass the mock
// directly instead of resolving it through a registry.
func (m *MockEmbedder) Register(api.Registry) {}

// Embed implements ai.Embedder. Like the Gemini embedder it imitates, it
// honors OutputDimensionality when the request carries one and otherwise
// emits the provider default of 3072, so a caller that forgets to request
// truncation gets vectors the 768-dim schema rejects.
func (m *MockEmbedder) Embed(_ context.Context, req *ai.EmbedRequest) (*ai.EmbedResponse, error) {
	if m.Err != nil {
		return nil, m.Err
	}

	dims := providerDefaultDimension
	if cfg, ok := req.Options.(*genai.EmbedContentConfig); ok && cfg.OutputDimensionality != nil {
		dims = int(*cfg.OutputDimensionality)
	}

	resp := &ai.EmbedResponse{}
	for _, doc := range req.Input {
		var text string
		if len(doc.Content) > 0 {
			text = doc.Content[0].Text
		}
		resp.Embeddings = append(resp.Embeddings, &ai.Embedding{
			Embedding: hashVector(text, dims),
		})
	}
	return resp, nil
}

// hashVector expands a SHA-256 digest into a normalized vector.
func hashVector(text string, dims int) []float32 {
	digest := sha256.Sum256([]byte(text))

	vec := make([]float32, dims)
	var norm float64
	for i := range vec {
		// Reuse digest bytes cyclically, mixed with the index so the
		// vector is not periodic.
		off := (i * 4) % (len(digest) - 4)
		bits := binary.LittleEndian.Uint32(digest[off:]) ^ uint32(i*2654435761)
		v := float32(int32(bits)) / float32(math.MaxInt32)
		vec[i] = v
		norm += float64(v) * float64(v)
	}

	// Normalize so cosine similarity behaves like the real embedder.
	scale := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= scale
	}
	return vec
}

package knowledge_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/everlasthealth/assistant/internal/knowledge"
	"github.com/everlasthealth/assistant/internal/log"
	"github.com/everlasthealth/assistant/internal/testutil"
)

// TestStoreRoundTrip exercises the real pgx querier against a pgvector
// container: upsert, similarity search ordering, and source deletion.
func TestStoreRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	db, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	store := knowledge.New(knowledge.NewPGQuerier(db.Pool), testutil.NewMockEmbedder(), log.NewNop())

	docs := []knowledge.Document{
		{
			ID:       "stress-1",
			Content:  "Deep breathing activates the parasympathetic nervous system.",
			Metadata: map[string]string{knowledge.MetadataSource: "docs/breathing.md"},
		},
		{
			ID:       "stress-2",
			Content:  "Magnesium glycinate may improve sleep quality.",
			Metadata: map[string]string{knowledge.MetadataSource: "docs/magnesium.md"},
		},
		{
			ID:       "stress-3",
			Content:  "Regular aerobic exercise reduces baseline cortisol.",
			Metadata: map[string]string{knowledge.MetadataSource: "docs/exercise.md"},
		},
	}
	for _, doc := range docs {
		require.NoError(t, store.Add(t.Context(), doc))
	}

	count, err := store.Count(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	t.Run("exact content ranks first", func(t *testing.T) {
		// The mock embedder is deterministic, so querying with a stored
		// document's exact text must rank that document first.
		results, err := store.Search(t.Context(), docs[1].Content, knowledge.WithTopK(3))
		require.NoError(t, err)
		require.Len(t, results, 3)
		assert.Equal(t, "stress-2", results[0].Document.ID)
		assert.Greater(t, results[0].Similarity, results[1].Similarity)
	})

	t.Run("upsert replaces content", func(t *testing.T) {
		updated := docs[0]
		updated.Content = "Box breathing: inhale four, hold four, exhale four."
		require.NoError(t, store.Add(t.Context(), updated))

		count, err := store.Count(t.Context())
		require.NoError(t, err)
		assert.Equal(t, 3, count)

		results, err := store.Search(t.Context(), updated.Content, knowledge.WithTopK(1))
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "stress-1", results[0].Document.ID)
		assert.Equal(t, updated.Content, results[0].Document.Content)
	})

	t.Run("delete by source", func(t *testing.T) {
		n, err := store.DeleteBySource(t.Context(), "docs/exercise.md")
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		count, err := store.Count(t.Context())
		require.NoError(t, err)
		assert.Equal(t, 2, count)
	})
}

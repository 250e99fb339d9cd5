package memory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ralphsbaesso/mba-ia-desafio-ingestao-busca/embeddings/fake"
	"github.com/ralphsbaesso/mba-ia-desafio-ingestao-busca/schema"
	"github.com/ralphsbaesso/mba-ia-desafio-ingestao-busca/vectorstores"
	"github.com/ralphsbaesso/mba-ia-desafio-ingestao-busca/vectorstores/memory"
)

func newStore(t *testing.T) *memory.Store {
	t.Helper()
	s, err := memory.New(fake.NewEmbedder(128), memory.WithCollectionName("docs"))
	require.NoError(t, err)
	return s
}

func seed(t *testing.T, s *memory.Store) {
	t.Helper()
	_, err := s.AddDocuments(context.Background(), []schema.Document{
		schema.NewDocument("The capital of Brazil is Brasília.", map[string]any{"page": 0}),
		schema.NewDocument("Paris is the capital of France.", map[string]any{"page": 1}),
		schema.NewDocument("Bananas are rich in potassium.", map[string]any{"page": 2}),
	})
	require.NoError(t, err)
}

func TestStore_SimilaritySearch(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	seed(t, s)

	docs, err := s.SimilaritySearch(ctx, "capital of Brazil", 2)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "The capital of Brazil is Brasília.", docs[0].PageContent)
	assert.Equal(t, "Paris is the capital of France.", docs[1].PageContent)
	assert.Equal(t, 0, docs[0].Metadata["page"])

	scored, err := s.SimilaritySearchWithScores(ctx, "capital of Brazil", 10)
	require.NoError(t, err)
	require.Len(t, scored, 3)
	for i := 1; i < len(scored); i++ {
		assert.GreaterOrEqual(t, scored[i-1].Score, scored[i].Score)
	}
}

func TestStore_SelfRetrieval(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	seed(t, s)

	for _, content := range []string{
		"The capital of Brazil is Brasília.",
		"Paris is the capital of France.",
		"Bananas are rich in potassium.",
	} {
		docs, err := s.SimilaritySearch(ctx, content, 1)
		require.NoError(t, err)
		require.Len(t, docs, 1)
		assert.Equal(t, content, docs[0].PageContent)
	}
}

func TestStore_Options(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	seed(t, s)

	t.Run("filters", func(t *testing.T) {
		docs, err := s.SimilaritySearch(ctx, "capital", 4, vectorstores.WithFilter("page", 1))
		require.NoError(t, err)
		require.Len(t, docs, 1)
		assert.Equal(t, "Paris is the capital of France.", docs[0].PageContent)
	})

	t.Run("score threshold", func(t *testing.T) {
		docs, err := s.SimilaritySearch(ctx, "capital of Brazil", 4, vectorstores.WithScoreThreshold(0.5))
		require.NoError(t, err)
		require.Len(t, docs, 1)
	})

	t.Run("namespace and progress", func(t *testing.T) {
		var done, total int
		_, err := s.AddDocuments(ctx, []schema.Document{schema.NewDocument("other", nil)},
			vectorstores.WithNameSpace("other"),
			vectorstores.WithProgress(func(d, tot int) { done, total = d, tot }),
		)
		require.NoError(t, err)
		assert.Equal(t, 1, done)
		assert.Equal(t, 1, total)
		assert.Equal(t, 1, s.Count("other"))
		assert.Equal(t, 3, s.Count("docs"))
	})
}

func TestStore_EmptyAndErrors(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	docs, err := s.SimilaritySearch(ctx, "anything", 4)
	require.NoError(t, err)
	assert.Empty(t, docs)

	_, err = s.SimilaritySearch(ctx, "anything", 0)
	require.ErrorIs(t, err, vectorstores.ErrInvalidNumDocuments)

	err = s.DeleteCollection(ctx, "docs")
	require.ErrorIs(t, err, vectorstores.ErrCollectionNotFound)

	seed(t, s)
	require.NoError(t, s.DeleteCollection(ctx, "docs"))
	assert.Zero(t, s.Count("docs"))
}

func TestStore_Reset(t *testing.T) {
	ctx := context.Background()
	embedder := fake.NewEmbedder(128)
	s, err := memory.New(embedder, memory.WithCollectionName("docs"))
	require.NoError(t, err)
	seed(t, s)

	embedder.SetError(fake.ErrUnavailable)
	_, err = s.AddDocuments(ctx, []schema.Document{schema.NewDocument("replacement", nil)}, vectorstores.WithReset())
	require.ErrorIs(t, err, fake.ErrUnavailable)
	assert.Equal(t, 3, s.Count("docs"), "failed reset keeps the collection")

	embedder.SetError(nil)
	_, err = s.AddDocuments(ctx, []schema.Document{schema.NewDocument("Lisbon is the capital of Portugal.", nil)}, vectorstores.WithReset())
	require.NoError(t, err)
	assert.Equal(t, 1, s.Count("docs"))

	docs, err := s.SimilaritySearch(ctx, "capital", 5)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Contains(t, docs[0].PageContent, "Lisbon")
}

func TestStore_DimensionMismatch(t *testing.T) {
	ctx := context.Background()

	mixed, err := memory.New(&resizingEmbedder{Embedder: fake.NewEmbedder(8)}, memory.WithCollectionName("docs"))
	require.NoError(t, err)
	_, err = mixed.AddDocuments(ctx, []schema.Document{schema.NewDocument("x", nil)})
	require.NoError(t, err)
	_, err = mixed.SimilaritySearch(ctx, "x", 1)
	require.ErrorIs(t, err, vectorstores.ErrDimensionMismatch)
}

// resizingEmbedder returns query vectors one element longer than document vectors.
type resizingEmbedder struct {
	*fake.Embedder
}

func (r *resizingEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	v, err := r.Embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, err
	}
	return append(v, 0), nil
}

func TestStore_MetadataIsolation(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	meta := map[string]any{"source": "a.pdf"}
	_, err := s.AddDocuments(ctx, []schema.Document{schema.NewDocument("alpha", meta)})
	require.NoError(t, err)

	meta["source"] = "changed"
	docs, err := s.SimilaritySearch(ctx, "alpha", 1)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "a.pdf", docs[0].Metadata["source"])
}

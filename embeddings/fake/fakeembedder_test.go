package fake_test

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ralphsbaesso/mba-ia-desafio-ingestao-busca/embeddings/fake"
)

func dot(a, b []float32) float64 {
	var s float64
	for i := range a {
		s += float64(a[i]) * float64(b[i])
	}
	return s
}

func TestEmbedder(t *testing.T) {
	ctx := context.Background()
	e := fake.NewEmbedder(64)

	vectors, err := e.EmbedDocuments(ctx, []string{
		"The capital of Brazil is Brasília.",
		"Paris is the capital of France.",
		"Bananas are yellow",
	})
	require.NoError(t, err)
	require.Len(t, vectors, 3)

	for _, v := range vectors {
		assert.Len(t, v, 64)
		assert.InDelta(t, 1.0, math.Sqrt(dot(v, v)), 1e-6)
	}

	q, err := e.EmbedQuery(ctx, "What is the capital of Brazil?")
	require.NoError(t, err)

	assert.Greater(t, dot(q, vectors[0]), dot(q, vectors[1]))
	assert.Zero(t, dot(q, vectors[2]))

	again, err := e.EmbedQuery(ctx, "the CAPITAL of brazil is brasília")
	require.NoError(t, err)
	assert.InDelta(t, 1.0, dot(again, vectors[0]), 1e-6, "embedding is case-insensitive and deterministic")

	dim, err := e.GetDimension(ctx)
	require.NoError(t, err)
	assert.Equal(t, 64, dim)
}

func TestEmbedder_VocabularyOverflow(t *testing.T) {
	e := fake.NewEmbedder(2)

	v, err := e.EmbedQuery(context.Background(), "one two three four")
	require.NoError(t, err)
	assert.Len(t, v, 2)
	assert.InDelta(t, 1.0, math.Sqrt(dot(v, v)), 1e-6)
}

func TestEmbedder_EmptyAndErrors(t *testing.T) {
	e := fake.NewEmbedder(0)

	v, err := e.EmbedQuery(context.Background(), "  ...  ")
	require.NoError(t, err)
	assert.Len(t, v, fake.DefaultDimension)
	assert.Zero(t, dot(v, v))

	e.SetError(fake.ErrUnavailable)
	_, err = e.EmbedDocuments(context.Background(), []string{"x"})
	require.ErrorIs(t, err, fake.ErrUnavailable)
	assert.Equal(t, 2, e.Calls())
}

func TestTokenize(t *testing.T) {
	assert.Equal(t, []string{"qual", "é", "a", "capital", "2024"}, fake.Tokenize("Qual É a capital, 2024?"))
}

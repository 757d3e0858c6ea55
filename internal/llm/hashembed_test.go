package llm

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashEmbedder_Deterministic(t *testing.T) {
	embedder := NewHashEmbedder(256)
	ctx := context.Background()

	first, err := embedder.Embed(ctx, []string{"we use Postgres in production"})
	require.NoError(t, err)
	second, err := embedder.Embed(ctx, []string{"we use Postgres in production"})
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestHashEmbedder_DimensionsAndNorm(t *testing.T) {
	embedder := NewHashEmbedder(128)

	vecs, err := embedder.Embed(context.Background(), []string{"alpha beta gamma", "delta"})
	require.NoError(t, err)
	require.Len(t, vecs, 2)

	for _, vec := range vecs {
		assert.Len(t, vec, 128)
		var norm float64
		for _, v := range vec {
			norm += float64(v) * float64(v)
		}
		assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-5)
	}
}

func TestHashEmbedder_EmptyBatch(t *testing.T) {
	embedder := NewHashEmbedder(64)

	_, err := embedder.Embed(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoTexts)
}

func TestHashEmbedder_EmptyTextIsZeroVector(t *testing.T) {
	embedder := NewHashEmbedder(64)

	vecs, err := embedder.Embed(context.Background(), []string{""})
	require.NoError(t, err)
	for _, v := range vecs[0] {
		assert.Zero(t, v)
	}
}

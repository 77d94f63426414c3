package embed

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingEmbedder records call counts for cache assertions.
type countingEmbedder struct {
	dims       int
	embedCalls atomic.Int64
	batchCalls atomic.Int64
	err        error
}

func (c *countingEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	c.embedCalls.Add(1)
	if c.err != nil {
		return nil, c.err
	}
	return c.vectorFor(text), nil
}

func (c *countingEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	c.batchCalls.Add(1)
	if c.err != nil {
		return nil, c.err
	}
	vecs := make([][]float32, len(texts))
	for i, text := range texts {
		vecs[i] = c.vectorFor(text)
	}
	return vecs, nil
}

func (c *countingEmbedder) vectorFor(text string) []float32 {
	vec := make([]float32, c.dims)
	for i, r := range text {
		vec[i%c.dims] += float32(r)
	}
	return vec
}

func (c *countingEmbedder) Dimensions() int                  { return c.dims }
func (c *countingEmbedder) ModelName() string                { return "counting" }
func (c *countingEmbedder) Available(_ context.Context) bool { return true }
func (c *countingEmbedder) Close() error                     { return nil }

func TestCachedEmbedderHitsCache(t *testing.T) {
	inner := &countingEmbedder{dims: 4}
	cached := NewCachedEmbedder(inner, 10)

	ctx := context.Background()
	first, err := cached.Embed(ctx, "cardiac rehab")
	require.NoError(t, err)

	second, err := cached.Embed(ctx, "cardiac rehab")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int64(1), inner.embedCalls.Load(), "second call must be served from cache")
}

func TestCachedEmbedderBatchPartialHits(t *testing.T) {
	inner := &countingEmbedder{dims: 4}
	cached := NewCachedEmbedder(inner, 10)
	ctx := context.Background()

	_, err := cached.Embed(ctx, "alpha")
	require.NoError(t, err)

	vecs, err := cached.EmbedBatch(ctx, []string{"alpha", "beta", "gamma"})
	require.NoError(t, err)
	require.Len(t, vecs, 3)
	for _, vec := range vecs {
		assert.Len(t, vec, 4)
	}
	// Only the two misses go upstream, in one batch call.
	assert.Equal(t, int64(1), inner.batchCalls.Load())
}

func TestCachedEmbedderEmptyBatch(t *testing.T) {
	cached := NewCachedEmbedder(&countingEmbedder{dims: 4}, 10)
	vecs, err := cached.EmbedBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, vecs)
}

func TestCachedEmbedderPassthrough(t *testing.T) {
	inner := &countingEmbedder{dims: 7}
	cached := NewCachedEmbedder(inner, 0) // zero size falls back to default

	assert.Equal(t, 7, cached.Dimensions())
	assert.Equal(t, "counting", cached.ModelName())
	assert.True(t, cached.Available(context.Background()))
	assert.Same(t, Embedder(inner), cached.Inner())
	assert.NoError(t, cached.Close())
}

func TestLooksLikePlaceholder(t *testing.T) {
	assert.True(t, LooksLikePlaceholder(make([]float32, 8)))
	assert.True(t, LooksLikePlaceholder(nil))
	assert.False(t, LooksLikePlaceholder(make([]float32, MinRealDimensions)))
}

package embed

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	clinqaerrors "github.com/clinqa/retriever/internal/errors"
)

// flakyEmbedder fails a fixed number of times before succeeding.
type flakyEmbedder struct {
	countingEmbedder
	failures  int
	attempted int
}

func (f *flakyEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	f.attempted++
	if f.attempted <= f.failures {
		return nil, clinqaerrors.EmbeddingUnavailable(fmt.Errorf("transient failure %d", f.attempted))
	}
	return f.countingEmbedder.EmbedBatch(ctx, texts)
}

func (f *flakyEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := f.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func fastRetryConfig(maxRetries int) RetryConfig {
	return RetryConfig{
		MaxRetries:   maxRetries,
		InitialDelay: time.Millisecond,
		MaxDelay:     2 * time.Millisecond,
		Multiplier:   2.0,
	}
}

func TestRetryingEmbedderRecoversFromTransientFailure(t *testing.T) {
	inner := &flakyEmbedder{countingEmbedder: countingEmbedder{dims: 4}, failures: 2}
	retrying := NewRetryingEmbedder(inner, fastRetryConfig(3))

	vecs, err := retrying.EmbedBatch(context.Background(), []string{"alpha"})
	require.NoError(t, err)
	assert.Len(t, vecs, 1)
	assert.Equal(t, 3, inner.attempted)
}

func TestRetryingEmbedderExhaustsRetries(t *testing.T) {
	inner := &flakyEmbedder{countingEmbedder: countingEmbedder{dims: 4}, failures: 10}
	retrying := NewRetryingEmbedder(inner, fastRetryConfig(2))

	_, err := retrying.EmbedBatch(context.Background(), []string{"alpha"})
	require.Error(t, err)
	assert.Equal(t, clinqaerrors.ErrCodeEmbedUnavailable, clinqaerrors.GetCode(err))
	assert.Equal(t, 3, inner.attempted, "initial attempt plus two retries")
}

func TestRetryingEmbedderNonRetryableFailsFast(t *testing.T) {
	inner := &countingEmbedder{
		dims: 4,
		err:  clinqaerrors.New(clinqaerrors.ErrCodeInvalidInput, "bad request", nil),
	}
	retrying := NewRetryingEmbedder(inner, fastRetryConfig(3))

	_, err := retrying.EmbedBatch(context.Background(), []string{"alpha"})
	require.Error(t, err)
	assert.Equal(t, int64(1), inner.batchCalls.Load(), "non-retryable errors skip backoff")
}

func TestRetryingEmbedderContextCancellation(t *testing.T) {
	inner := &flakyEmbedder{countingEmbedder: countingEmbedder{dims: 4}, failures: 100}
	retrying := NewRetryingEmbedder(inner, RetryConfig{
		MaxRetries:   5,
		InitialDelay: 50 * time.Millisecond,
		MaxDelay:     time.Second,
		Multiplier:   2.0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := retrying.EmbedBatch(ctx, []string{"alpha"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRetryingEmbedderSingleEmbed(t *testing.T) {
	inner := &flakyEmbedder{countingEmbedder: countingEmbedder{dims: 4}, failures: 1}
	retrying := NewRetryingEmbedder(inner, fastRetryConfig(2))

	vec, err := retrying.Embed(context.Background(), "alpha")
	require.NoError(t, err)
	assert.Len(t, vec, 4)
}

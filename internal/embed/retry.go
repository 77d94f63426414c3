package embed

import (
	"context"
	"time"

	clinqaerrors "github.com/clinqa/retriever/internal/errors"
)

// RetryConfig configures retry behavior for embedding calls.
type RetryConfig struct {
	MaxRetries   int           // retry attempts after the initial call
	InitialDelay time.Duration // delay before first retry
	MaxDelay     time.Duration // cap on the backoff delay
	Multiplier   float64       // exponential backoff multiplier
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:   3,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     8 * time.Second,
		Multiplier:   2.0,
	}
}

// RetryingEmbedder wraps an Embedder with exponential backoff on
// retryable failures. Non-retryable errors are returned immediately.
type RetryingEmbedder struct {
	inner Embedder
	cfg   RetryConfig
}

// NewRetryingEmbedder wraps the given embedder with retry logic.
func NewRetryingEmbedder(inner Embedder, cfg RetryConfig) *RetryingEmbedder {
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.InitialDelay <= 0 {
		cfg.InitialDelay = DefaultRetryConfig().InitialDelay
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = DefaultRetryConfig().MaxDelay
	}
	if cfg.Multiplier < 1.0 {
		cfg.Multiplier = DefaultRetryConfig().Multiplier
	}
	return &RetryingEmbedder{inner: inner, cfg: cfg}
}

// withRetry executes fn with exponential backoff. Context cancellation
// aborts the wait between attempts.
func (r *RetryingEmbedder) withRetry(ctx context.Context, fn func() error) error {
	delay := r.cfg.InitialDelay
	var lastErr error

	for attempt := 0; attempt <= r.cfg.MaxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if !clinqaerrors.IsRetryable(err) || attempt >= r.cfg.MaxRetries {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}

		delay = time.Duration(float64(delay) * r.cfg.Multiplier)
		if delay > r.cfg.MaxDelay {
			delay = r.cfg.MaxDelay
		}
	}

	return lastErr
}

// Embed generates an embedding with retries.
func (r *RetryingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	var vec []float32
	err := r.withRetry(ctx, func() error {
		var innerErr error
		vec, innerErr = r.inner.Embed(ctx, text)
		return innerErr
	})
	if err != nil {
		return nil, err
	}
	return vec, nil
}

// EmbedBatch generates embeddings with retries.
func (r *RetryingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	var vecs [][]float32
	err := r.withRetry(ctx, func() error {
		var innerErr error
		vecs, innerErr = r.inner.EmbedBatch(ctx, texts)
		return innerErr
	})
	if err != nil {
		return nil, err
	}
	return vecs, nil
}

// Dimensions returns the embedding dimension (passthrough to inner).
func (r *RetryingEmbedder) Dimensions() int {
	return r.inner.Dimensions()
}

// ModelName returns the model identifier (passthrough to inner).
func (r *RetryingEmbedder) ModelName() string {
	return r.inner.ModelName()
}

// Available checks if the embedder is ready (passthrough to inner).
func (r *RetryingEmbedder) Available(ctx context.Context) bool {
	return r.inner.Available(ctx)
}

// Close releases resources and closes the inner embedder.
func (r *RetryingEmbedder) Close() error {
	return r.inner.Close()
}

var _ Embedder = (*RetryingEmbedder)(nil)

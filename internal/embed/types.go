// Package embed provides the embedding collaborator boundary: an Embedder
// interface, an OpenAI-compatible HTTP client, and retry/cache wrappers.
// The engine must keep working when no embedder is configured; callers
// treat a nil Embedder as "lexical-only".
package embed

import (
	"context"
	"time"
)

// Embedding constants.
const (
	// DefaultBatchSize is the default batch size for embedding requests.
	DefaultBatchSize = 64

	// MaxBatchSize caps batch size to prevent oversized requests.
	MaxBatchSize = 256

	// DefaultTimeout is the per-request timeout for embedding calls.
	DefaultTimeout = 60 * time.Second

	// MinRealDimensions is the placeholder guard: embeddings below this
	// dimensionality are treated as "no real embedding available" and
	// discarded rather than indexed.
	MinRealDimensions = 64
)

// Embedder generates dense vectors for text.
type Embedder interface {
	// Embed generates the embedding for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts, in order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding dimension.
	Dimensions() int

	// ModelName returns the model identifier.
	ModelName() string

	// Available checks if the embedder is ready to serve requests.
	Available(ctx context.Context) bool

	// Close releases resources.
	Close() error
}

// LooksLikePlaceholder reports whether an embedding's dimensionality is
// too small to be a real model output.
func LooksLikePlaceholder(vec []float32) bool {
	return len(vec) < MinRealDimensions
}

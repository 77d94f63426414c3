package embed

import (
	"context"
	"strconv"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	clinqaerrors "github.com/clinqa/retriever/internal/errors"
)

// OpenAI embedder defaults. Any OpenAI-compatible endpoint works via
// Config.BaseURL (Azure, vLLM, Ollama's /v1 shim, etc.).
const (
	DefaultOpenAIModel = "text-embedding-3-small"

	// DefaultOpenAIDimensions matches text-embedding-3-small.
	DefaultOpenAIDimensions = 1536
)

// OpenAIConfig configures the OpenAI-compatible embedding client.
type OpenAIConfig struct {
	APIKey     string
	BaseURL    string // empty means the official endpoint
	Model      string
	Dimensions int
	BatchSize  int
	Timeout    time.Duration
}

// DefaultOpenAIConfig returns standard settings for the hosted API.
func DefaultOpenAIConfig() OpenAIConfig {
	return OpenAIConfig{
		Model:      DefaultOpenAIModel,
		Dimensions: DefaultOpenAIDimensions,
		BatchSize:  DefaultBatchSize,
		Timeout:    DefaultTimeout,
	}
}

// OpenAIEmbedder calls an OpenAI-compatible embeddings endpoint.
type OpenAIEmbedder struct {
	client    *openai.Client
	model     string
	dims      int
	batchSize int
	timeout   time.Duration
}

// NewOpenAIEmbedder creates an embedder for the configured endpoint. It
// does not probe the endpoint; use Available for a liveness check.
func NewOpenAIEmbedder(cfg OpenAIConfig) (*OpenAIEmbedder, error) {
	if cfg.APIKey == "" && cfg.BaseURL == "" {
		return nil, clinqaerrors.New(clinqaerrors.ErrCodeInvalidInput,
			"embedding API key or base URL required", nil)
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}

	model := cfg.Model
	if model == "" {
		model = DefaultOpenAIModel
	}
	dims := cfg.Dimensions
	if dims <= 0 {
		dims = DefaultOpenAIDimensions
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if batchSize > MaxBatchSize {
		batchSize = MaxBatchSize
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &OpenAIEmbedder{
		client:    openai.NewClientWithConfig(clientCfg),
		model:     model,
		dims:      dims,
		batchSize: batchSize,
		timeout:   timeout,
	}, nil
}

// Embed generates the embedding for a single text.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch generates embeddings for multiple texts, preserving order.
// Requests are chunked to the configured batch size.
func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	results := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += e.batchSize {
		end := start + e.batchSize
		if end > len(texts) {
			end = len(texts)
		}

		batch, err := e.embedChunk(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		results = append(results, batch...)
	}
	return results, nil
}

func (e *OpenAIEmbedder) embedChunk(ctx context.Context, texts []string) ([][]float32, error) {
	reqCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	resp, err := e.client.CreateEmbeddings(reqCtx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(e.model),
		Input: texts,
	})
	if err != nil {
		return nil, clinqaerrors.EmbeddingUnavailable(err)
	}
	if len(resp.Data) != len(texts) {
		return nil, clinqaerrors.New(clinqaerrors.ErrCodeEmbedUnavailable,
			"embedding response count mismatch", nil).
			WithDetail("requested", strconv.Itoa(len(texts))).
			WithDetail("received", strconv.Itoa(len(resp.Data)))
	}

	// Response order is not guaranteed; reassemble by index.
	vecs := make([][]float32, len(texts))
	for _, item := range resp.Data {
		if item.Index < 0 || item.Index >= len(vecs) {
			return nil, clinqaerrors.New(clinqaerrors.ErrCodeEmbedUnavailable,
				"embedding response index out of range", nil).
				WithDetail("index", strconv.Itoa(item.Index))
		}
		vecs[item.Index] = item.Embedding
	}
	return vecs, nil
}

// Dimensions returns the configured embedding dimension.
func (e *OpenAIEmbedder) Dimensions() int {
	return e.dims
}

// ModelName returns the model identifier.
func (e *OpenAIEmbedder) ModelName() string {
	return e.model
}

// Available probes the endpoint with a one-token request.
func (e *OpenAIEmbedder) Available(ctx context.Context) bool {
	probeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := e.client.CreateEmbeddings(probeCtx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(e.model),
		Input: []string{"ping"},
	})
	return err == nil
}

// Close releases resources. The HTTP client needs no teardown.
func (e *OpenAIEmbedder) Close() error {
	return nil
}

var _ Embedder = (*OpenAIEmbedder)(nil)

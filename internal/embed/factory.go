package embed

import (
	"log/slog"
	"os"
	"strings"
)

// ProviderType names an embedding provider.
type ProviderType string

const (
	// ProviderOpenAI uses an OpenAI-compatible embeddings endpoint.
	ProviderOpenAI ProviderType = "openai"

	// ProviderNone disables embeddings; retrieval runs lexical-only.
	ProviderNone ProviderType = "none"
)

// FactoryConfig carries the provider settings from the config file.
// Environment variables take precedence over these values.
type FactoryConfig struct {
	Provider   string
	APIKey     string
	BaseURL    string
	Model      string
	Dimensions int
	CacheSize  int
	Retry      RetryConfig
}

// NewEmbedder creates an embedder from configuration, or (nil, nil) when
// embeddings are disabled or unconfigured. Callers treat a nil embedder
// as "run lexical-only"; this is a supported mode, not an error.
//
// Environment overrides:
//   - CLINQA_EMBED_PROVIDER: "openai" or "none"
//   - CLINQA_EMBED_API_KEY, CLINQA_EMBED_BASE_URL, CLINQA_EMBED_MODEL
//   - CLINQA_EMBED_CACHE=false disables the LRU cache
func NewEmbedder(cfg FactoryConfig, logger *slog.Logger) (Embedder, error) {
	provider := ParseProvider(cfg.Provider)
	if env := os.Getenv("CLINQA_EMBED_PROVIDER"); env != "" {
		provider = ParseProvider(env)
	}
	if provider == ProviderNone {
		return nil, nil
	}

	openaiCfg := DefaultOpenAIConfig()
	openaiCfg.APIKey = cfg.APIKey
	openaiCfg.BaseURL = cfg.BaseURL
	if cfg.Model != "" {
		openaiCfg.Model = cfg.Model
	}
	if cfg.Dimensions > 0 {
		openaiCfg.Dimensions = cfg.Dimensions
	}

	if key := os.Getenv("CLINQA_EMBED_API_KEY"); key != "" {
		openaiCfg.APIKey = key
	}
	if url := os.Getenv("CLINQA_EMBED_BASE_URL"); url != "" {
		openaiCfg.BaseURL = url
	}
	if model := os.Getenv("CLINQA_EMBED_MODEL"); model != "" {
		openaiCfg.Model = model
	}

	// Unconfigured is not an error; the engine degrades to lexical-only.
	if openaiCfg.APIKey == "" && openaiCfg.BaseURL == "" {
		if logger != nil {
			logger.Info("embeddings_unconfigured", slog.String("mode", "lexical_only"))
		}
		return nil, nil
	}

	inner, err := NewOpenAIEmbedder(openaiCfg)
	if err != nil {
		return nil, err
	}

	retryCfg := cfg.Retry
	if retryCfg.MaxRetries == 0 && retryCfg.InitialDelay == 0 {
		retryCfg = DefaultRetryConfig()
	}

	var embedder Embedder = NewRetryingEmbedder(inner, retryCfg)
	if !isCacheDisabled() {
		embedder = NewCachedEmbedder(embedder, cfg.CacheSize)
	}

	if logger != nil {
		logger.Info("embedder_ready",
			slog.String("provider", string(provider)),
			slog.String("model", embedder.ModelName()),
			slog.Int("dimensions", embedder.Dimensions()))
	}
	return embedder, nil
}

// isCacheDisabled checks if the embedding cache is disabled via environment.
func isCacheDisabled() bool {
	v := strings.ToLower(os.Getenv("CLINQA_EMBED_CACHE"))
	return v == "false" || v == "0" || v == "off" || v == "disabled"
}

// ParseProvider converts a string to ProviderType.
func ParseProvider(s string) ProviderType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "openai", "azure", "compatible":
		return ProviderOpenAI
	case "", "none", "off", "disabled":
		return ProviderNone
	default:
		return ProviderNone
	}
}

// String returns the string representation of ProviderType.
func (p ProviderType) String() string {
	return string(p)
}

// Package config loads the engine configuration from YAML, applying
// defaults for anything the file omits and validating the result.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/clinqa/retriever/internal/embed"
	"github.com/clinqa/retriever/internal/index"
	"github.com/clinqa/retriever/internal/rank"
	"github.com/clinqa/retriever/internal/vector"
)

// Config is the top-level configuration.
type Config struct {
	LogLevel string `yaml:"log_level"`
	LogFile  string `yaml:"log_file"`

	Chunking   ChunkingConfig   `yaml:"chunking"`
	Search     SearchConfig     `yaml:"search"`
	Store      StoreConfig      `yaml:"store"`
	Vector     VectorConfig     `yaml:"vector"`
	Embeddings EmbeddingsConfig `yaml:"embeddings"`
}

// ChunkingConfig controls passage splitting.
type ChunkingConfig struct {
	TargetSize int `yaml:"target_size"`
	Overlap    int `yaml:"overlap"`
}

// SearchConfig controls hybrid ranking.
type SearchConfig struct {
	TopK           int     `yaml:"top_k"`
	SemanticWeight float64 `yaml:"semantic_weight"`
	LexicalWeight  float64 `yaml:"lexical_weight"`
	PerSourceCap   int     `yaml:"per_source_cap"`
	RRFConstant    float64 `yaml:"rrf_constant"`
	Bigrams        bool    `yaml:"bigrams"`
}

// StoreConfig controls the entity cache. Durations are Go duration
// strings such as "45m" or "1h30m".
type StoreConfig struct {
	TTL              string `yaml:"ttl"`
	MaxEntities      int    `yaml:"max_entities"`
	SweepInterval    string `yaml:"sweep_interval"`
	RecentEmbedLimit int    `yaml:"recent_embed_limit"`
}

// VectorConfig controls the similarity backend.
type VectorConfig struct {
	Backend       string `yaml:"backend"`
	HNSWThreshold int    `yaml:"hnsw_threshold"`
	M             int    `yaml:"m"`
	EfSearch      int    `yaml:"ef_search"`
}

// EmbeddingsConfig controls the embedding provider.
type EmbeddingsConfig struct {
	Provider   string `yaml:"provider"`
	APIKey     string `yaml:"api_key"`
	BaseURL    string `yaml:"base_url"`
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
	CacheSize  int    `yaml:"cache_size"`
}

// Default returns the standard configuration.
func Default() *Config {
	storeDefaults := index.DefaultStoreConfig()
	rankDefaults := rank.DefaultConfig()
	vecDefaults := vector.DefaultConfig()
	return &Config{
		LogLevel: "info",
		Chunking: ChunkingConfig{
			TargetSize: storeDefaults.Chunking.TargetSize,
			Overlap:    storeDefaults.Chunking.Overlap,
		},
		Search: SearchConfig{
			TopK:           10,
			SemanticWeight: rankDefaults.SemanticWeight,
			LexicalWeight:  rankDefaults.LexicalWeight,
			PerSourceCap:   rankDefaults.PerSourceCap,
			RRFConstant:    rankDefaults.RRFConstant,
			Bigrams:        true,
		},
		Store: StoreConfig{
			TTL:              storeDefaults.TTL.String(),
			MaxEntities:      storeDefaults.MaxEntities,
			SweepInterval:    storeDefaults.SweepInterval.String(),
			RecentEmbedLimit: storeDefaults.RecentEmbedLimit,
		},
		Vector: VectorConfig{
			Backend:       string(vecDefaults.Backend),
			HNSWThreshold: vecDefaults.HNSWThreshold,
			M:             vecDefaults.M,
			EfSearch:      vecDefaults.EfSearch,
		},
		Embeddings: EmbeddingsConfig{
			Provider: string(embed.ProviderNone),
		},
	}
}

// Load reads configuration from a YAML file, layered over the defaults.
// A missing path returns the defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks configuration invariants.
func (c *Config) Validate() error {
	if c.Chunking.TargetSize < 0 || c.Chunking.Overlap < 0 {
		return fmt.Errorf("chunking sizes must be non-negative")
	}
	if c.Chunking.Overlap > 0 && c.Chunking.TargetSize > 0 && c.Chunking.Overlap >= c.Chunking.TargetSize {
		return fmt.Errorf("chunking overlap %d must be smaller than target size %d",
			c.Chunking.Overlap, c.Chunking.TargetSize)
	}
	if c.Search.TopK < 0 {
		return fmt.Errorf("search top_k must be non-negative")
	}
	if c.Search.SemanticWeight < 0 || c.Search.LexicalWeight < 0 {
		return fmt.Errorf("search weights must be non-negative")
	}
	if c.Store.MaxEntities < 0 {
		return fmt.Errorf("store max_entities must be non-negative")
	}
	if c.Store.TTL != "" {
		if _, err := time.ParseDuration(c.Store.TTL); err != nil {
			return fmt.Errorf("store ttl: %w", err)
		}
	}
	if c.Store.SweepInterval != "" {
		if _, err := time.ParseDuration(c.Store.SweepInterval); err != nil {
			return fmt.Errorf("store sweep_interval: %w", err)
		}
	}
	switch vector.Backend(c.Vector.Backend) {
	case vector.BackendAuto, vector.BackendHNSW, vector.BackendBrute, vector.BackendNone, "":
	default:
		return fmt.Errorf("unknown vector backend %q", c.Vector.Backend)
	}
	return nil
}

// IndexConfig assembles the index store configuration.
func (c *Config) IndexConfig() index.Config {
	storeCfg := index.DefaultStoreConfig()
	if ttl, err := time.ParseDuration(c.Store.TTL); err == nil && ttl > 0 {
		storeCfg.TTL = ttl
	}
	if interval, err := time.ParseDuration(c.Store.SweepInterval); err == nil && interval > 0 {
		storeCfg.SweepInterval = interval
	}
	storeCfg.MaxEntities = c.Store.MaxEntities
	storeCfg.RecentEmbedLimit = c.Store.RecentEmbedLimit
	storeCfg.Chunking.TargetSize = c.Chunking.TargetSize
	storeCfg.Chunking.Overlap = c.Chunking.Overlap
	storeCfg.BM25.Bigrams = c.Search.Bigrams

	if c.Vector.Backend != "" {
		storeCfg.Vector.Backend = vector.Backend(c.Vector.Backend)
	}
	if c.Vector.HNSWThreshold > 0 {
		storeCfg.Vector.HNSWThreshold = c.Vector.HNSWThreshold
	}
	if c.Vector.M > 0 {
		storeCfg.Vector.M = c.Vector.M
	}
	if c.Vector.EfSearch > 0 {
		storeCfg.Vector.EfSearch = c.Vector.EfSearch
	}

	storeCfg.Rank.SemanticWeight = c.Search.SemanticWeight
	storeCfg.Rank.LexicalWeight = c.Search.LexicalWeight
	storeCfg.Rank.PerSourceCap = c.Search.PerSourceCap
	storeCfg.Rank.RRFConstant = c.Search.RRFConstant
	return storeCfg
}

// EmbedConfig assembles the embedding factory configuration.
func (c *Config) EmbedConfig() embed.FactoryConfig {
	return embed.FactoryConfig{
		Provider:   c.Embeddings.Provider,
		APIKey:     c.Embeddings.APIKey,
		BaseURL:    c.Embeddings.BaseURL,
		Model:      c.Embeddings.Model,
		Dimensions: c.Embeddings.Dimensions,
		CacheSize:  c.Embeddings.CacheSize,
	}
}

package index

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/clinqa/retriever/internal/chunk"
	"github.com/clinqa/retriever/internal/embed"
	"github.com/clinqa/retriever/internal/lexical"
	"github.com/clinqa/retriever/internal/rank"
	"github.com/clinqa/retriever/internal/source"
	"github.com/clinqa/retriever/internal/telemetry"
	"github.com/clinqa/retriever/internal/vector"
)

// Store defaults.
const (
	DefaultTTL              = 45 * time.Minute
	DefaultMaxEntities      = 64
	DefaultSweepInterval    = 5 * time.Minute
	DefaultRecentEmbedLimit = 100
)

// DefaultAlwaysEmbedCategories lists source categories whose chunks are
// embedded unconditionally by the selective embedding policy.
func DefaultAlwaysEmbedCategories() []source.Category {
	return []source.Category{
		source.CategoryDischargeSummary,
		source.CategoryConsult,
		source.CategoryImagingReport,
	}
}

// Config configures a Store. Zero values fall back to defaults.
type Config struct {
	// TTL evicts entities whose UpdatedAt is older than this.
	TTL time.Duration

	// MaxEntities caps the cache; least-recently-updated entities are
	// evicted beyond it.
	MaxEntities int

	// SweepInterval is the eviction sweep period.
	SweepInterval time.Duration

	Chunking     chunk.Options
	Policy       *chunk.Policy
	BM25         lexical.BM25Options
	FieldWeights lexical.FieldWeights
	Vector       vector.Config
	Rank         rank.Config

	// RecentEmbedLimit is the chunk budget for the recency portion of
	// the selective embedding policy.
	RecentEmbedLimit int

	// AlwaysEmbed categories bypass the recency budget.
	AlwaysEmbed []source.Category

	// Now is the clock used for timestamps and eviction. Injectable for
	// tests.
	Now func() time.Time
}

// DefaultStoreConfig returns the standard store configuration.
func DefaultStoreConfig() Config {
	policy := chunk.DefaultPolicy()
	return Config{
		TTL:              DefaultTTL,
		MaxEntities:      DefaultMaxEntities,
		SweepInterval:    DefaultSweepInterval,
		Chunking:         chunk.DefaultOptions(),
		Policy:           &policy,
		BM25:             lexical.BM25Options{Bigrams: true, StopWords: lexical.BuildStopWordMap(lexical.DefaultStopWords)},
		FieldWeights:     lexical.DefaultFieldWeights(),
		Vector:           vector.DefaultConfig(),
		Rank:             rank.DefaultConfig(),
		RecentEmbedLimit: DefaultRecentEmbedLimit,
		AlwaysEmbed:      DefaultAlwaysEmbedCategories(),
		Now:              time.Now,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultStoreConfig()
	if c.TTL <= 0 {
		c.TTL = d.TTL
	}
	if c.MaxEntities <= 0 {
		c.MaxEntities = d.MaxEntities
	}
	if c.SweepInterval <= 0 {
		c.SweepInterval = d.SweepInterval
	}
	if c.Policy == nil {
		c.Policy = d.Policy
	}
	if c.FieldWeights == nil {
		c.FieldWeights = d.FieldWeights
	}
	if c.RecentEmbedLimit <= 0 {
		c.RecentEmbedLimit = d.RecentEmbedLimit
	}
	if c.AlwaysEmbed == nil {
		c.AlwaysEmbed = d.AlwaysEmbed
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c
}

// Store is the entity-scoped index cache. It is owned by the composition
// root, not process-wide state; independent stores can coexist in tests.
type Store struct {
	cfg      Config
	logger   *slog.Logger
	embedder embed.Embedder
	metrics  *telemetry.QueryMetrics

	flight singleflight.Group

	mu       sync.RWMutex
	entities map[string]*entity

	stopSweep chan struct{}
	sweepDone chan struct{}
}

// NewStore creates a store and starts its eviction sweeper. embedder may
// be nil, in which case every entity stays lexical-only. Call Shutdown
// to stop the sweeper and release the embedder.
func NewStore(cfg Config, embedder embed.Embedder, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{
		cfg:       cfg.withDefaults(),
		logger:    logger,
		embedder:  embedder,
		metrics:   telemetry.NewQueryMetrics(),
		entities:  make(map[string]*entity),
		stopSweep: make(chan struct{}),
		sweepDone: make(chan struct{}),
	}
	go s.sweepLoop()
	return s
}

// Shutdown stops the eviction sweeper and closes the embedder.
func (s *Store) Shutdown() error {
	close(s.stopSweep)
	<-s.sweepDone
	if s.embedder != nil {
		return s.embedder.Close()
	}
	return nil
}

// Metrics returns the store's query metrics collector.
func (s *Store) Metrics() *telemetry.QueryMetrics {
	return s.metrics
}

// getEntity returns the entity if present.
func (s *Store) getEntity(entityID string) (*entity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entities[entityID]
	return e, ok
}

// getOrCreateEntity returns the entity, creating an empty one if absent.
func (s *Store) getOrCreateEntity(entityID string) *entity {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entities[entityID]; ok {
		return e
	}
	e := &entity{id: entityID}
	s.entities[entityID] = e
	return e
}

// Evict removes an entity outright. The registry goes with the snapshot,
// so a later rebuild starts clean rather than from stale source ids.
func (s *Store) Evict(entityID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entities[entityID]; !ok {
		return false
	}
	delete(s.entities, entityID)
	return true
}

// Len returns the number of cached entities.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entities)
}

// Stats summarizes the store's contents across all cached entities.
type Stats struct {
	Entities     int `json:"entities"`
	TotalChunks  int `json:"total_chunks"`
	TotalVectors int `json:"total_vectors"`
}

// Stats returns aggregate counts over the cached entities.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var st Stats
	for _, e := range s.entities {
		idx := e.snapshot()
		if idx == nil {
			continue
		}
		st.Entities++
		st.TotalChunks += len(idx.Chunks)
		if idx.Sim != nil {
			st.TotalVectors += idx.Sim.Len()
		}
	}
	return st
}

func (s *Store) sweepLoop() {
	defer close(s.sweepDone)
	ticker := time.NewTicker(s.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopSweep:
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}

// Sweep runs one eviction pass: entities past the TTL go first, then the
// least-recently-updated entities beyond the capacity limit. Exported so
// tests can trigger it without waiting for the ticker.
func (s *Store) Sweep() {
	now := s.cfg.Now()

	type aged struct {
		id      string
		updated time.Time
	}

	s.mu.Lock()
	var survivors []aged
	for id, e := range s.entities {
		idx := e.snapshot()
		if idx == nil {
			continue
		}
		if now.Sub(idx.UpdatedAt) > s.cfg.TTL {
			delete(s.entities, id)
			s.logger.Info("entity_evicted",
				slog.String("entity_id", id),
				slog.String("reason", "ttl"))
			continue
		}
		survivors = append(survivors, aged{id: id, updated: idx.UpdatedAt})
	}

	// Capacity counts built entities only. Entries whose first build has
	// not finished have no snapshot to age-rank and are about to be
	// populated by their builder; they neither take quota nor get evicted.
	if overflow := len(survivors) - s.cfg.MaxEntities; overflow > 0 {
		sort.Slice(survivors, func(i, j int) bool {
			return survivors[i].updated.Before(survivors[j].updated)
		})
		for i := 0; i < overflow && i < len(survivors); i++ {
			delete(s.entities, survivors[i].id)
			s.logger.Info("entity_evicted",
				slog.String("entity_id", survivors[i].id),
				slog.String("reason", "capacity"))
		}
	}
	s.mu.Unlock()
}

// Package index owns the entity-scoped retrieval cache: per-entity
// chunk lists, lexical and similarity indexes, selective embedding, and
// TTL/capacity eviction. All mutations on one entity are serialized;
// readers see immutable snapshots swapped in whole.
package index

import (
	"sync"
	"time"

	"github.com/clinqa/retriever/internal/chunk"
	"github.com/clinqa/retriever/internal/lexical"
	"github.com/clinqa/retriever/internal/source"
	"github.com/clinqa/retriever/internal/vector"
)

// sourceInfo is the registry entry for one ingested source.
type sourceInfo struct {
	Category source.Category
	Date     time.Time
}

// EntityIndex is one entity's complete retrieval state. Instances are
// immutable after construction; mutations build a fresh EntityIndex and
// swap it in atomically, so readers never observe torn postings or a
// vector set misaligned with the chunk list.
type EntityIndex struct {
	EntityID string

	Chunks  []*chunk.Passage
	Lexical *lexical.BM25Index
	Docs    *lexical.DocIndex

	// DocRecords keeps the document units so incremental appends can
	// rebuild Docs with correct corpus statistics.
	DocRecords []lexical.Document

	// Vectors is row-aligned with Chunks. All-zero rows mean "not yet
	// embedded". Empty means no vector set exists.
	Vectors [][]float32
	Dims    int
	Sim     vector.Index

	// Registry maps ingested source ids to their metadata. Incremental
	// appends skip sources already present here.
	Registry map[string]sourceInfo

	LexicalOnly bool
	Generation  int
	BuildID     string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// HasVectors reports whether any chunk has a real embedding.
func (ei *EntityIndex) HasVectors() bool {
	return ei != nil && ei.Sim != nil && ei.Sim.Len() > 0
}

// entity pairs an index snapshot with its locks. buildMu serializes
// mutating operations; mu guards the snapshot pointer and building flag
// for readers.
type entity struct {
	id      string
	buildMu sync.Mutex

	mu       sync.RWMutex
	building bool
	idx      *EntityIndex
}

// snapshot returns the current index under the read lock. May be nil for
// an entity whose first build has not completed.
func (e *entity) snapshot() *EntityIndex {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.idx
}

// swap publishes a fresh index snapshot.
func (e *entity) swap(idx *EntityIndex) {
	e.mu.Lock()
	e.idx = idx
	e.mu.Unlock()
}

// setBuilding flips the building flag, which concurrent callers poll to
// detect an in-flight rebuild.
func (e *entity) setBuilding(v bool) {
	e.mu.Lock()
	e.building = v
	e.mu.Unlock()
}

func (e *entity) isBuilding() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.building
}

// Manifest describes an entity's index state without exposing the
// underlying structures.
type Manifest struct {
	EntityID    string    `json:"entity_id"`
	Indexed     bool      `json:"indexed"`
	Building    bool      `json:"building"`
	Chunks      int       `json:"chunks"`
	Sources     int       `json:"sources"`
	HasVectors  bool      `json:"has_vectors"`
	LexicalOnly bool      `json:"lexical_only"`
	Generation  int       `json:"generation"`
	BuildID     string    `json:"build_id,omitempty"`
	CreatedAt   time.Time `json:"created_at,omitempty"`
	UpdatedAt   time.Time `json:"updated_at,omitempty"`
}

// manifestOf builds a Manifest from a snapshot. idx may be nil.
func manifestOf(entityID string, idx *EntityIndex, building bool) Manifest {
	m := Manifest{
		EntityID: entityID,
		Building: building,
	}
	if idx == nil {
		return m
	}
	m.Indexed = true
	m.Chunks = len(idx.Chunks)
	m.Sources = len(idx.Registry)
	m.HasVectors = idx.HasVectors()
	m.LexicalOnly = idx.LexicalOnly
	m.Generation = idx.Generation
	m.BuildID = idx.BuildID
	m.CreatedAt = idx.CreatedAt
	m.UpdatedAt = idx.UpdatedAt
	return m
}

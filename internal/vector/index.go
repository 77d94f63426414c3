// Package vector provides nearest-neighbor search over dense passage
// vectors with three interchangeable backends: an HNSW graph index, a
// brute-force scan, and a "none" backend for entities without vectors.
// Callers never branch on which tier is active.
package vector

import (
	"math"
)

// Result is one scored unit from a similarity search. Score is the inner
// product of L2-normalized vectors, i.e. cosine similarity.
type Result struct {
	Unit  int
	Score float32
}

// Index is the similarity backend contract. Implementations are immutable
// after construction and safe for concurrent reads.
type Index interface {
	// Search returns up to k nearest units by inner product, best first.
	// An empty index returns an empty result set, never an error.
	Search(query []float32, k int) []Result

	// Len returns the number of searchable (non-placeholder) vectors.
	Len() int
}

// Backend selects the index implementation.
type Backend string

const (
	// BackendAuto picks HNSW above a size threshold, brute force below.
	BackendAuto Backend = "auto"
	// BackendHNSW forces the graph index.
	BackendHNSW Backend = "hnsw"
	// BackendBrute forces the brute-force scan.
	BackendBrute Backend = "brute"
	// BackendNone disables similarity search.
	BackendNone Backend = "none"
)

// Config configures index construction.
type Config struct {
	Backend Backend

	// HNSWThreshold is the minimum vector count before auto mode uses the
	// graph index; brute force is faster below it.
	HNSWThreshold int

	// M and EfSearch are HNSW tuning parameters.
	M        int
	EfSearch int
}

// DefaultConfig returns auto selection with standard HNSW parameters.
func DefaultConfig() Config {
	return Config{
		Backend:       BackendAuto,
		HNSWThreshold: 256,
		M:             16,
		EfSearch:      32,
	}
}

// New builds an index over the given vectors. Rows are L2-normalized
// before indexing so inner product equals cosine similarity. All-zero rows
// mean "not yet embedded" and are skipped. A nil or all-placeholder vector
// set yields the none backend.
func New(vectors [][]float32, cfg Config) Index {
	if cfg.Backend == BackendNone {
		return noneIndex{}
	}
	if cfg.HNSWThreshold <= 0 {
		cfg.HNSWThreshold = DefaultConfig().HNSWThreshold
	}

	units, normalized := collectNonZero(vectors)
	if len(units) == 0 {
		return noneIndex{}
	}

	switch cfg.Backend {
	case BackendHNSW:
		return newHNSWIndex(units, normalized, cfg)
	case BackendBrute:
		return newBruteIndex(units, normalized)
	default:
		if len(units) >= cfg.HNSWThreshold {
			return newHNSWIndex(units, normalized, cfg)
		}
		return newBruteIndex(units, normalized)
	}
}

// collectNonZero returns the unit positions and normalized copies of all
// non-placeholder rows.
func collectNonZero(vectors [][]float32) (units []int, normalized [][]float32) {
	for unit, vec := range vectors {
		if len(vec) == 0 || isZero(vec) {
			continue
		}
		units = append(units, unit)
		normalized = append(normalized, normalize(vec))
	}
	return units, normalized
}

func isZero(vec []float32) bool {
	for _, v := range vec {
		if v != 0 {
			return false
		}
	}
	return true
}

// normalize returns an L2-normalized copy of the vector.
func normalize(vec []float32) []float32 {
	var sumSquares float64
	for _, v := range vec {
		sumSquares += float64(v) * float64(v)
	}
	out := make([]float32, len(vec))
	if sumSquares == 0 {
		return out
	}
	inv := float32(1.0 / math.Sqrt(sumSquares))
	for i, v := range vec {
		out[i] = v * inv
	}
	return out
}

// noneIndex is the backend for entities without vectors.
type noneIndex struct{}

func (noneIndex) Search(query []float32, k int) []Result { return []Result{} }
func (noneIndex) Len() int                               { return 0 }

package vector

import (
	"github.com/coder/hnsw"
)

// hnswIndex is the approximate/exact inner-product tier, backed by a pure
// Go HNSW graph. Vectors are normalized at construction, so cosine
// distance maps directly to inner product.
type hnswIndex struct {
	graph *hnsw.Graph[uint64]
	units map[uint64]int // graph key -> unit position
}

func newHNSWIndex(units []int, normalized [][]float32, cfg Config) *hnswIndex {
	graph := hnsw.NewGraph[uint64]()
	graph.Distance = hnsw.CosineDistance
	if cfg.M > 0 {
		graph.M = cfg.M
	}
	if cfg.EfSearch > 0 {
		graph.EfSearch = cfg.EfSearch
	}

	idx := &hnswIndex{
		graph: graph,
		units: make(map[uint64]int, len(units)),
	}
	for i, unit := range units {
		key := uint64(i)
		graph.Add(hnsw.MakeNode(key, normalized[i]))
		idx.units[key] = unit
	}
	return idx
}

func (idx *hnswIndex) Search(query []float32, k int) []Result {
	if k <= 0 || idx.graph.Len() == 0 || len(query) == 0 {
		return []Result{}
	}

	normalized := normalize(query)
	nodes := idx.graph.Search(normalized, k)

	results := make([]Result, 0, len(nodes))
	for _, node := range nodes {
		unit, ok := idx.units[node.Key]
		if !ok {
			continue
		}
		// Cosine distance is 1 - similarity for unit vectors.
		distance := idx.graph.Distance(normalized, node.Value)
		results = append(results, Result{
			Unit:  unit,
			Score: 1 - distance,
		})
	}
	return results
}

func (idx *hnswIndex) Len() int {
	return len(idx.units)
}

var _ Index = (*hnswIndex)(nil)

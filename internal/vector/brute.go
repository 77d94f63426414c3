package vector

import (
	"sort"
)

// bruteIndex is the universal fallback tier: a full inner-product scan.
// Exact, and faster than the graph index for small vector sets.
type bruteIndex struct {
	units   []int
	vectors [][]float32 // normalized
}

func newBruteIndex(units []int, normalized [][]float32) *bruteIndex {
	return &bruteIndex{units: units, vectors: normalized}
}

func (idx *bruteIndex) Search(query []float32, k int) []Result {
	if k <= 0 || len(idx.units) == 0 || len(query) == 0 {
		return []Result{}
	}

	normalized := normalize(query)

	results := make([]Result, 0, len(idx.units))
	for i, vec := range idx.vectors {
		if len(vec) != len(normalized) {
			continue
		}
		var dot float32
		for j, v := range vec {
			dot += v * normalized[j]
		}
		results = append(results, Result{Unit: idx.units[i], Score: dot})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Unit < results[j].Unit
	})

	if len(results) > k {
		results = results[:k]
	}
	return results
}

func (idx *bruteIndex) Len() int {
	return len(idx.units)
}

var _ Index = (*bruteIndex)(nil)

// Package lexical provides the keyword side of hybrid retrieval: a BM25
// index over passage text and a field-weighted index over whole documents,
// both with prefix expansion against a sorted vocabulary.
package lexical

import (
	"math"
	"sort"
	"strings"
)

// minPrefixLen is the minimum query-token length for prefix expansion.
const minPrefixLen = 3

// BM25Options configures a passage-level BM25 index.
type BM25Options struct {
	// Bigrams adds adjacent token pairs as additional terms, rewarding
	// local phrase adjacency.
	Bigrams bool

	// StopWords are excluded from indexing and query scoring.
	StopWords map[string]struct{}
}

// BM25Index scores text units with a BM25-style function. Postings, unit
// lengths, and corpus statistics are rebuilt together; the structure is
// never read half-updated.
type BM25Index struct {
	postings map[string]map[int]int // term -> unit -> term frequency
	lengths  []int                  // token count per unit
	avgLen   float64
	vocab    []string // sorted, for prefix range lookups
	opts     BM25Options
}

// Hit is one scored unit from a BM25 search.
type Hit struct {
	Unit  int
	Score float64
}

// NewBM25Index builds an index over the given unit texts. Stats (corpus
// size, average length) are derived from the same pass as the postings so
// they are always consistent.
func NewBM25Index(texts []string, opts BM25Options) *BM25Index {
	idx := &BM25Index{
		postings: make(map[string]map[int]int),
		lengths:  make([]int, len(texts)),
		opts:     opts,
	}

	totalLen := 0
	for unit, text := range texts {
		tokens := TokenizeFiltered(text, opts.StopWords)
		idx.lengths[unit] = len(tokens)
		totalLen += len(tokens)

		for _, term := range tokens {
			idx.add(term, unit)
		}
		if opts.Bigrams {
			for i := 0; i+1 < len(tokens); i++ {
				idx.add(tokens[i]+" "+tokens[i+1], unit)
			}
		}
	}

	if len(texts) > 0 {
		idx.avgLen = float64(totalLen) / float64(len(texts))
	}

	idx.vocab = make([]string, 0, len(idx.postings))
	for term := range idx.postings {
		idx.vocab = append(idx.vocab, term)
	}
	sort.Strings(idx.vocab)

	return idx
}

func (idx *BM25Index) add(term string, unit int) {
	units := idx.postings[term]
	if units == nil {
		units = make(map[int]int)
		idx.postings[term] = units
	}
	units[unit]++
}

// Len returns the number of indexed units.
func (idx *BM25Index) Len() int {
	return len(idx.lengths)
}

// Search scores units against the query and returns up to limit hits in
// descending score order. limit <= 0 returns all matching units.
//
// Query tokens of at least three characters additionally match every
// vocabulary term sharing that prefix, giving autocomplete-style matching
// without a trie.
func (idx *BM25Index) Search(query string, limit int) []Hit {
	if idx.Len() == 0 {
		return nil
	}

	tokens := TokenizeFiltered(query, idx.opts.StopWords)
	if len(tokens) == 0 {
		return nil
	}

	scores := make(map[int]float64)
	for _, token := range tokens {
		for _, term := range idx.expand(token) {
			idx.score(term, scores)
		}
	}
	if idx.opts.Bigrams {
		for i := 0; i+1 < len(tokens); i++ {
			idx.score(tokens[i]+" "+tokens[i+1], scores)
		}
	}

	hits := make([]Hit, 0, len(scores))
	for unit, score := range scores {
		hits = append(hits, Hit{Unit: unit, Score: score})
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Unit < hits[j].Unit
	})

	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return hits
}

// score adds one term's BM25 contribution to every unit it occurs in:
//
//	idf = max(0, ln((N - df + 0.5)/(df + 0.5) + 1))
//	score += idf * tf / (0.5 + 1.5 * (len/avgLen))
func (idx *BM25Index) score(term string, scores map[int]float64) {
	units := idx.postings[term]
	if len(units) == 0 {
		return
	}

	n := float64(idx.Len())
	df := float64(len(units))
	idf := math.Log((n-df+0.5)/(df+0.5) + 1)
	if idf < 0 {
		idf = 0
	}

	for unit, tf := range units {
		norm := 0.5 + 1.5*(float64(idx.lengths[unit])/idx.safeAvgLen())
		scores[unit] += idf * float64(tf) / norm
	}
}

func (idx *BM25Index) safeAvgLen() float64 {
	if idx.avgLen == 0 {
		return 1
	}
	return idx.avgLen
}

// expand returns the exact term plus, for tokens of at least minPrefixLen
// characters, every vocabulary term sharing that prefix. Found via a
// binary-search range over the sorted vocabulary.
func (idx *BM25Index) expand(token string) []string {
	if len(token) < minPrefixLen {
		return []string{token}
	}

	lo := sort.SearchStrings(idx.vocab, token)
	terms := []string{token}
	for i := lo; i < len(idx.vocab); i++ {
		term := idx.vocab[i]
		if len(term) < len(token) || term[:len(token)] != token {
			break
		}
		if term == token {
			continue
		}
		// Bigram terms are matched only as bigrams, not via prefix.
		if strings.IndexByte(term, ' ') >= 0 {
			continue
		}
		terms = append(terms, term)
	}
	return terms
}

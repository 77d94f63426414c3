package rank

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/clinqa/retriever/internal/chunk"
	"github.com/clinqa/retriever/internal/lexical"
	"github.com/clinqa/retriever/internal/vector"
)

// Rank ranks passages for one or more query variants. A single variant
// is ranked directly; multiple variants are ranked in parallel and fused
// with Reciprocal Rank Fusion, which rewards passages that rank well
// under several phrasings over a single lucky match.
func Rank(ctx context.Context, variants []Variant, chunks []*chunk.Passage, lex *lexical.BM25Index, sim vector.Index, topK int, cfg Config) ([]Result, error) {
	cfg = cfg.withDefaults()

	switch len(variants) {
	case 0:
		return []Result{}, nil
	case 1:
		return RankOne(variants[0], chunks, lex, sim, topK, cfg), nil
	}

	lists := make([][]Result, len(variants))
	g, gctx := errgroup.WithContext(ctx)
	for i, variant := range variants {
		i, variant := i, variant
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			lists[i] = RankOne(variant, chunks, lex, sim, topK, cfg)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return fuseRRF(lists, topK, cfg), nil
}

// fuseRRF combines ranked lists by summing 1/(k + rank) per passage
// across every list it appears in, then re-sorts. The per-source cap is
// applied again here: each variant list honors it individually, but two
// variants can surface disjoint passages from the same source, so the
// fused union has to be capped on its own.
func fuseRRF(lists [][]Result, topK int, cfg Config) []Result {
	k := cfg.RRFConstant
	scores := make(map[string]float64)
	byID := make(map[string]Result)

	for _, list := range lists {
		for rankPos, res := range list {
			id := res.Passage.ID
			scores[id] += 1.0 / (k + float64(rankPos+1))
			if _, ok := byID[id]; !ok {
				byID[id] = res
			}
		}
	}

	fused := make([]Result, 0, len(scores))
	for id, score := range scores {
		res := byID[id]
		res.Score = score
		fused = append(fused, res)
	}

	sort.Slice(fused, func(i, j int) bool {
		if fused[i].Score != fused[j].Score {
			return fused[i].Score > fused[j].Score
		}
		return fused[i].Passage.ID < fused[j].Passage.ID
	})

	return applyDiversityCap(fused, topK, cfg.PerSourceCap)
}

package rank

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinqa/retriever/internal/chunk"
	"github.com/clinqa/retriever/internal/lexical"
	"github.com/clinqa/retriever/internal/vector"
)

func fixedClock() time.Time {
	return time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Now = fixedClock
	return cfg
}

func makeChunks(texts ...string) []*chunk.Passage {
	chunks := make([]*chunk.Passage, len(texts))
	for i, text := range texts {
		chunks[i] = &chunk.Passage{
			ID:       fmt.Sprintf("src-%d#0000", i),
			SourceID: fmt.Sprintf("src-%d", i),
			Text:     text,
			Seq:      0,
		}
	}
	return chunks
}

func bm25Of(chunks []*chunk.Passage) *lexical.BM25Index {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	return lexical.NewBM25Index(texts, lexical.BM25Options{})
}

func TestRankOneEmptyInputs(t *testing.T) {
	assert.Empty(t, RankOne(Variant{Text: "q"}, nil, nil, nil, 10, testConfig()))

	chunks := makeChunks("alpha", "beta")
	assert.Empty(t, RankOne(Variant{Text: "q"}, chunks, bm25Of(chunks), nil, 0, testConfig()))
}

func TestRankOneNoCandidatesReturnsEmpty(t *testing.T) {
	chunks := makeChunks("alpha content", "beta content")
	results := RankOne(Variant{Text: "zzzzz"}, chunks, bm25Of(chunks), nil, 10, testConfig())
	assert.Empty(t, results)
}

func TestRankOneLexicalOnlyDegradation(t *testing.T) {
	chunks := makeChunks(
		"cardiac rehab progressing nicely with cardiac exercises",
		"cardiac history reviewed briefly",
		"renal function stable",
	)
	results := RankOne(Variant{Text: "cardiac rehab"}, chunks, bm25Of(chunks), nil, 10, testConfig())

	require.Len(t, results, 2)
	assert.Equal(t, "src-0#0000", results[0].Passage.ID)
	// Without vectors the lexical signal carries the full weight.
	assert.Zero(t, results[0].Semantic)
	assert.Greater(t, results[0].Score, results[1].Score)
}

func TestRankOneDeterminism(t *testing.T) {
	chunks := makeChunks(
		"cardiac follow-up visit",
		"cardiac consult note",
		"cardiac rehab session",
		"unrelated dermatology note",
	)
	lex := bm25Of(chunks)
	cfg := testConfig()

	first := RankOne(Variant{Text: "cardiac"}, chunks, lex, nil, 10, cfg)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, RankOne(Variant{Text: "cardiac"}, chunks, lex, nil, 10, cfg))
	}
}

func TestRankOneHybridPrefersSemanticNeighbor(t *testing.T) {
	chunks := makeChunks(
		"cardiac symptoms discussed at length today",
		"cardiac mention only",
		"unrelated note",
	)
	vectors := [][]float32{
		{1, 0, 0},
		{0, 1, 0},
		{0, 0, 1},
	}
	sim := vector.New(vectors, vector.Config{Backend: vector.BackendBrute})

	results := RankOne(Variant{Text: "cardiac", Vector: []float32{1, 0, 0}},
		chunks, bm25Of(chunks), sim, 10, testConfig())

	require.NotEmpty(t, results)
	assert.Equal(t, "src-0#0000", results[0].Passage.ID)
	assert.NotZero(t, results[0].Semantic)
}

func TestRankOneExcludesTabularFromSemanticPool(t *testing.T) {
	chunks := makeChunks(
		"medications list aspirin lisinopril",
		"narrative about medication adjustments",
	)
	chunks[0].Tabular = true

	vectors := [][]float32{{1, 0}, {0.5, 0.5}}
	sim := vector.New(vectors, vector.Config{Backend: vector.BackendBrute})

	results := RankOne(Variant{Text: "medications", Vector: []float32{1, 0}},
		chunks, bm25Of(chunks), sim, 10, testConfig())

	for _, res := range results {
		if res.Passage.Tabular {
			assert.Zero(t, res.Semantic, "tabular chunk must not receive semantic score")
		}
	}
	// Tabular chunk still reachable through the lexical side.
	ids := make([]string, 0, len(results))
	for _, res := range results {
		ids = append(ids, res.Passage.ID)
	}
	assert.Contains(t, ids, "src-0#0000")
}

func TestRankOneSectionBoostBreaksTie(t *testing.T) {
	chunks := makeChunks(
		"cardiac rehab status reviewed",
		"cardiac rehab status reviewed",
	)
	chunks[1].Section = chunk.SectionAssessmentPlan

	results := RankOne(Variant{Text: "cardiac rehab"}, chunks, bm25Of(chunks), nil, 10, testConfig())
	require.Len(t, results, 2)
	assert.Equal(t, "src-1#0000", results[0].Passage.ID)
}

func TestRankOneRecencyBoost(t *testing.T) {
	chunks := makeChunks(
		"cardiac rehab status reviewed",
		"cardiac rehab status reviewed",
	)
	chunks[0].Date = fixedClock().AddDate(-3, 0, 0)
	chunks[1].Date = fixedClock().AddDate(0, 0, -7)

	results := RankOne(Variant{Text: "cardiac rehab"}, chunks, bm25Of(chunks), nil, 10, testConfig())
	require.Len(t, results, 2)
	assert.Equal(t, "src-1#0000", results[0].Passage.ID, "recent chunk outranks old one")
}

func TestRankOnePerSourceDiversityCap(t *testing.T) {
	var chunks []*chunk.Passage
	for i := 0; i < 6; i++ {
		chunks = append(chunks, &chunk.Passage{
			ID:       fmt.Sprintf("big#%04d", i),
			SourceID: "big",
			Text:     "cardiac rehab progress documented",
			Seq:      i,
		})
	}
	chunks = append(chunks, &chunk.Passage{
		ID:       "other#0000",
		SourceID: "other",
		Text:     "cardiac rehab mentioned briefly",
	})

	results := RankOne(Variant{Text: "cardiac rehab"}, chunks, bm25Of(chunks), nil, 5, testConfig())

	counts := make(map[string]int)
	for _, res := range results {
		counts[res.Passage.SourceID]++
	}
	assert.LessOrEqual(t, counts["big"], DefaultPerSourceCap)
	assert.Equal(t, 1, counts["other"])
}

func TestZNormalize(t *testing.T) {
	scores := map[int]float64{0: 1, 1: 2, 2: 3}
	z := zNormalize(scores)
	assert.InDelta(t, 0, z[1], 1e-9)
	assert.InDelta(t, -z[0], z[2], 1e-9)
	assert.Greater(t, z[2], z[0])

	// Zero variance maps to zero, not a division blowup.
	flat := zNormalize(map[int]float64{0: 5, 1: 5})
	assert.Zero(t, flat[0])
	assert.Zero(t, flat[1])

	assert.Empty(t, zNormalize(nil))
}

func TestRankMultiVariantRRFPromotesConsensus(t *testing.T) {
	// "shared" matches every variant; each "solo-N" matches exactly one
	// variant strongly enough to take its top slot.
	chunks := []*chunk.Passage{
		{ID: "shared#0000", SourceID: "shared", Text: "fatigue dyspnea weakness reported"},
		{ID: "solo-a#0000", SourceID: "solo-a", Text: "fatigue fatigue fatigue only"},
		{ID: "solo-b#0000", SourceID: "solo-b", Text: "dyspnea dyspnea dyspnea only"},
		{ID: "solo-c#0000", SourceID: "solo-c", Text: "weakness weakness weakness only"},
	}
	lex := bm25Of(chunks)

	variants := []Variant{
		{Text: "fatigue"},
		{Text: "dyspnea"},
		{Text: "weakness"},
	}

	// Each single variant ranks its solo chunk first.
	for i, v := range variants {
		single := RankOne(v, chunks, lex, nil, 4, testConfig())
		require.NotEmpty(t, single)
		assert.Equal(t, chunks[i+1].ID, single[0].Passage.ID)
	}

	fused, err := Rank(context.Background(), variants, chunks, lex, nil, 4, testConfig())
	require.NoError(t, err)
	require.NotEmpty(t, fused)
	assert.Equal(t, "shared#0000", fused[0].Passage.ID,
		"chunk present in all variant lists outranks single-list top hits")
}

func TestRankMultiVariantDiversityCap(t *testing.T) {
	// Each variant surfaces a different pair of chunks from the "big"
	// source, so the fused union holds four of them. The cap has to hold
	// on the fused list, not just within each variant.
	chunks := []*chunk.Passage{
		{ID: "big#0000", SourceID: "big", Text: "alpha findings documented today"},
		{ID: "big#0001", SourceID: "big", Text: "alpha symptoms persisting overnight"},
		{ID: "big#0002", SourceID: "big", Text: "beta findings documented today"},
		{ID: "big#0003", SourceID: "big", Text: "beta symptoms persisting overnight"},
		{ID: "other#0000", SourceID: "other", Text: "alpha and beta both discussed"},
	}
	lex := bm25Of(chunks)

	variants := []Variant{
		{Text: "alpha"},
		{Text: "beta"},
	}

	fused, err := Rank(context.Background(), variants, chunks, lex, nil, 10, testConfig())
	require.NoError(t, err)
	require.NotEmpty(t, fused)

	counts := make(map[string]int)
	for _, res := range fused {
		counts[res.Passage.SourceID]++
	}
	assert.LessOrEqual(t, counts["big"], DefaultPerSourceCap)
	assert.Equal(t, 1, counts["other"])
}

func TestRankNoVariants(t *testing.T) {
	chunks := makeChunks("alpha")
	results, err := Rank(context.Background(), nil, chunks, bm25Of(chunks), nil, 5, testConfig())
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestFuseRRFScores(t *testing.T) {
	a := Result{Passage: &chunk.Passage{ID: "a", SourceID: "a"}}
	b := Result{Passage: &chunk.Passage{ID: "b", SourceID: "b"}}

	fused := fuseRRF([][]Result{{a, b}, {b, a}}, 10, testConfig())
	require.Len(t, fused, 2)

	// Both appear at ranks 1 and 2; identical RRF mass, tie-break on id.
	want := 1.0/61 + 1.0/62
	assert.InDelta(t, want, fused[0].Score, 1e-9)
	assert.Equal(t, "a", fused[0].Passage.ID)
}

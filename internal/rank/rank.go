// Package rank fuses lexical and semantic evidence into one ordered
// result list. Scores from the two retrievers live on different scales,
// so each is z-score normalized over the candidate union before the
// weighted combination; section and recency boosts are additive on top.
package rank

import (
	"math"
	"sort"
	"time"

	"github.com/clinqa/retriever/internal/chunk"
	"github.com/clinqa/retriever/internal/lexical"
	"github.com/clinqa/retriever/internal/vector"
)

// Fusion defaults.
const (
	DefaultSemanticWeight      = 0.65
	DefaultLexicalWeight       = 0.35
	DefaultCandidateMultiplier = 3
	DefaultPerSourceCap        = 2
	DefaultRRFConstant         = 60.0
	DefaultRecencyWeight       = 0.08
	DefaultRecencyScaleDays    = 365.0
)

// DefaultSectionBoosts orders clinically dense sections above narrative
// ones. Replaceable policy, not a scoring law.
func DefaultSectionBoosts() map[chunk.Section]float64 {
	return map[chunk.Section]float64{
		chunk.SectionAssessmentPlan: 0.15,
		chunk.SectionHPI:            0.10,
		chunk.SectionSubjective:     0.06,
		chunk.SectionObjective:      0.04,
		chunk.SectionHospitalCourse: 0.03,
	}
}

// Variant is one phrasing of the caller's question, with its embedding
// when available. A nil Vector means this variant ranks lexical-only.
type Variant struct {
	Text   string
	Vector []float32
}

// Result is one ranked passage with its score breakdown.
type Result struct {
	Passage  *chunk.Passage
	Score    float64
	Lexical  float64 // z-normalized lexical contribution
	Semantic float64 // z-normalized semantic contribution
}

// Config tunes fusion. Zero values fall back to defaults.
type Config struct {
	SemanticWeight      float64
	LexicalWeight       float64
	CandidateMultiplier int
	PerSourceCap        int
	RRFConstant         float64
	SectionBoosts       map[chunk.Section]float64
	RecencyWeight       float64
	RecencyScaleDays    float64

	// Now is the clock for recency scoring. Injectable for tests.
	Now func() time.Time
}

// DefaultConfig returns the standard fusion parameters.
func DefaultConfig() Config {
	return Config{
		SemanticWeight:      DefaultSemanticWeight,
		LexicalWeight:       DefaultLexicalWeight,
		CandidateMultiplier: DefaultCandidateMultiplier,
		PerSourceCap:        DefaultPerSourceCap,
		RRFConstant:         DefaultRRFConstant,
		SectionBoosts:       DefaultSectionBoosts(),
		RecencyWeight:       DefaultRecencyWeight,
		RecencyScaleDays:    DefaultRecencyScaleDays,
		Now:                 time.Now,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.SemanticWeight <= 0 {
		c.SemanticWeight = d.SemanticWeight
	}
	if c.LexicalWeight <= 0 {
		c.LexicalWeight = d.LexicalWeight
	}
	if c.CandidateMultiplier <= 0 {
		c.CandidateMultiplier = d.CandidateMultiplier
	}
	if c.PerSourceCap <= 0 {
		c.PerSourceCap = d.PerSourceCap
	}
	if c.RRFConstant <= 0 {
		c.RRFConstant = d.RRFConstant
	}
	if c.SectionBoosts == nil {
		c.SectionBoosts = d.SectionBoosts
	}
	if c.RecencyWeight <= 0 {
		c.RecencyWeight = d.RecencyWeight
	}
	if c.RecencyScaleDays <= 0 {
		c.RecencyScaleDays = d.RecencyScaleDays
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c
}

// RankOne ranks passages for a single query variant. Zero candidates
// yields an empty slice, never an error. When the variant has no vector
// or the similarity index is empty, the lexical weight is renormalized
// to carry the full score.
func RankOne(variant Variant, chunks []*chunk.Passage, lex *lexical.BM25Index, sim vector.Index, topK int, cfg Config) []Result {
	cfg = cfg.withDefaults()
	if topK <= 0 || len(chunks) == 0 || lex == nil {
		return []Result{}
	}

	limit := topK * cfg.CandidateMultiplier

	lexScores := make(map[int]float64)
	for _, hit := range lex.Search(variant.Text, limit) {
		lexScores[hit.Unit] = hit.Score
	}

	semScores := make(map[int]float64)
	if len(variant.Vector) > 0 && sim != nil && sim.Len() > 0 {
		for _, res := range sim.Search(variant.Vector, limit) {
			if res.Unit < 0 || res.Unit >= len(chunks) {
				continue
			}
			// Tabular passages stay eligible through lexical matching
			// but never through similarity.
			if chunks[res.Unit].Tabular {
				continue
			}
			semScores[res.Unit] = float64(res.Score)
		}
	}

	if len(lexScores) == 0 && len(semScores) == 0 {
		return []Result{}
	}

	candidates := make([]int, 0, len(lexScores)+len(semScores))
	seen := make(map[int]struct{}, len(lexScores)+len(semScores))
	for unit := range lexScores {
		candidates = append(candidates, unit)
		seen[unit] = struct{}{}
	}
	for unit := range semScores {
		if _, ok := seen[unit]; !ok {
			candidates = append(candidates, unit)
		}
	}

	lexZ := zNormalize(lexScores)
	semZ := zNormalize(semScores)

	semWeight := cfg.SemanticWeight
	lexWeight := cfg.LexicalWeight
	if len(semScores) == 0 {
		// Lexical-only degradation: the single remaining signal carries
		// the full weight.
		semWeight = 0
		lexWeight = 1.0
	}

	now := cfg.Now()
	results := make([]Result, 0, len(candidates))
	for _, unit := range candidates {
		if unit < 0 || unit >= len(chunks) {
			continue
		}
		passage := chunks[unit]

		score := semWeight*semZ[unit] + lexWeight*lexZ[unit]
		score += cfg.SectionBoosts[passage.Section]
		score += recencyBoost(passage.Date, now, cfg)

		results = append(results, Result{
			Passage:  passage,
			Score:    score,
			Lexical:  lexZ[unit],
			Semantic: semZ[unit],
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Passage.ID < results[j].Passage.ID
	})

	return applyDiversityCap(results, topK, cfg.PerSourceCap)
}

// zNormalize rescales scores to zero mean and unit variance. Units not
// present in the map read as zero afterward, which is the mean. Zero
// variance maps every score to zero rather than dividing by it.
func zNormalize(scores map[int]float64) map[int]float64 {
	out := make(map[int]float64, len(scores))
	if len(scores) == 0 {
		return out
	}

	var sum float64
	for _, s := range scores {
		sum += s
	}
	mean := sum / float64(len(scores))

	var varSum float64
	for _, s := range scores {
		d := s - mean
		varSum += d * d
	}
	std := math.Sqrt(varSum / float64(len(scores)))
	if std == 0 {
		for unit := range scores {
			out[unit] = 0
		}
		return out
	}

	for unit, s := range scores {
		out[unit] = (s - mean) / std
	}
	return out
}

// recencyBoost rewards recent passages with weight * exp(-ageDays/scale).
// Unknown dates get no boost.
func recencyBoost(date time.Time, now time.Time, cfg Config) float64 {
	if date.IsZero() {
		return 0
	}
	ageDays := now.Sub(date).Hours() / 24
	if ageDays < 0 {
		ageDays = 0
	}
	return cfg.RecencyWeight * math.Exp(-ageDays/cfg.RecencyScaleDays)
}

// applyDiversityCap walks the score-sorted list keeping at most cap
// passages per source, then truncates to topK. If the cap leaves fewer
// than topK results, the list is simply shorter.
func applyDiversityCap(results []Result, topK, cap int) []Result {
	perSource := make(map[string]int)
	out := make([]Result, 0, topK)
	for _, res := range results {
		if perSource[res.Passage.SourceID] >= cap {
			continue
		}
		perSource[res.Passage.SourceID]++
		out = append(out, res)
		if len(out) >= topK {
			break
		}
	}
	return out
}

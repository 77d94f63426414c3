package index

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/clinqa/retriever/internal/embed"
	"github.com/clinqa/retriever/internal/errors"
	"github.com/clinqa/retriever/internal/source"
	"github.com/clinqa/retriever/internal/vector"
)

// EmbedAll embeds every chunk and replaces the entity's vector set. With
// no embedder configured this is a no-op and the entity stays
// lexical-only; an embedding failure likewise downgrades rather than
// erroring, leaving the entity in a valid lexical-only state.
func (s *Store) EmbedAll(ctx context.Context, entityID string) (Manifest, error) {
	e, ok := s.getEntity(entityID)
	if !ok {
		return Manifest{}, errors.NotIndexed(entityID)
	}

	e.buildMu.Lock()
	defer e.buildMu.Unlock()

	cur := e.snapshot()
	if cur == nil {
		return Manifest{}, errors.NotIndexed(entityID)
	}

	units := make([]int, len(cur.Chunks))
	for i := range cur.Chunks {
		units[i] = i
	}
	return s.embedUnits(ctx, e, cur, units, true)
}

// EmbedSubset embeds only chunks belonging to the given sources. If no
// vector set exists yet, a zero matrix is initialized for all other
// chunks so row alignment with the chunk list is preserved. Rows outside
// the subset are never touched, so previously embedded chunks cannot be
// downgraded.
func (s *Store) EmbedSubset(ctx context.Context, entityID string, sourceIDs []string) (Manifest, error) {
	e, ok := s.getEntity(entityID)
	if !ok {
		return Manifest{}, errors.NotIndexed(entityID)
	}

	e.buildMu.Lock()
	defer e.buildMu.Unlock()

	cur := e.snapshot()
	if cur == nil {
		return Manifest{}, errors.NotIndexed(entityID)
	}

	wanted := make(map[string]struct{}, len(sourceIDs))
	for _, id := range sourceIDs {
		wanted[id] = struct{}{}
	}
	var units []int
	for i, c := range cur.Chunks {
		if _, ok := wanted[c.SourceID]; ok {
			units = append(units, i)
		}
	}
	return s.embedUnits(ctx, e, cur, units, false)
}

// EmbedByPolicy embeds chunks selected by the cost-control policy: every
// chunk from always-embed source categories, plus the most recent chunks
// from the remaining sources up to the configured budget. Embedding cost
// scales with likely relevance instead of corpus size.
func (s *Store) EmbedByPolicy(ctx context.Context, entityID string) (Manifest, error) {
	e, ok := s.getEntity(entityID)
	if !ok {
		return Manifest{}, errors.NotIndexed(entityID)
	}

	e.buildMu.Lock()
	defer e.buildMu.Unlock()

	cur := e.snapshot()
	if cur == nil {
		return Manifest{}, errors.NotIndexed(entityID)
	}

	always := make(map[source.Category]struct{}, len(s.cfg.AlwaysEmbed))
	for _, cat := range s.cfg.AlwaysEmbed {
		always[cat] = struct{}{}
	}

	selected := make(map[int]struct{})
	for i, c := range cur.Chunks {
		info, ok := cur.Registry[c.SourceID]
		if !ok {
			continue
		}
		if _, unconditional := always[info.Category]; unconditional {
			selected[i] = struct{}{}
		}
	}

	// Recency portion: walk sources newest first, taking whole-source
	// chunk runs until the budget is spent.
	type datedSource struct {
		id   string
		date time.Time
	}
	var recency []datedSource
	for id, info := range cur.Registry {
		if _, ok := always[info.Category]; ok {
			continue
		}
		recency = append(recency, datedSource{id: id, date: info.Date})
	}
	sort.Slice(recency, func(i, j int) bool {
		if !recency[i].date.Equal(recency[j].date) {
			return recency[i].date.After(recency[j].date)
		}
		return recency[i].id < recency[j].id
	})

	chunksBySource := make(map[string][]int)
	for i, c := range cur.Chunks {
		chunksBySource[c.SourceID] = append(chunksBySource[c.SourceID], i)
	}

	budget := s.cfg.RecentEmbedLimit
	for _, src := range recency {
		if budget <= 0 {
			break
		}
		for _, unit := range chunksBySource[src.id] {
			if budget <= 0 {
				break
			}
			if _, ok := selected[unit]; ok {
				continue
			}
			selected[unit] = struct{}{}
			budget--
		}
	}

	units := make([]int, 0, len(selected))
	for unit := range selected {
		units = append(units, unit)
	}
	sort.Ints(units)

	return s.embedUnits(ctx, e, cur, units, false)
}

// embedUnits embeds the given chunk positions and publishes a fresh
// snapshot. replace controls whether the whole vector set is rebuilt
// (EmbedAll) or merged over the existing rows. Caller holds buildMu.
func (s *Store) embedUnits(ctx context.Context, e *entity, cur *EntityIndex, units []int, replace bool) (Manifest, error) {
	if s.embedder == nil {
		s.logger.Info("embed_skipped",
			slog.String("entity_id", cur.EntityID),
			slog.String("reason", "no_embedder"))
		return manifestOf(cur.EntityID, cur, false), nil
	}
	if len(units) == 0 || len(cur.Chunks) == 0 {
		return manifestOf(cur.EntityID, cur, false), nil
	}

	e.setBuilding(true)
	defer e.setBuilding(false)

	texts := make([]string, len(units))
	for i, unit := range units {
		texts[i] = cur.Chunks[unit].Text
	}

	vecs, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		s.logger.Warn("embed_failed",
			slog.String("entity_id", cur.EntityID),
			slog.Int("chunks", len(units)),
			slog.String("error", err.Error()))
		return manifestOf(cur.EntityID, cur, false), nil
	}
	if len(vecs) != len(units) {
		return Manifest{}, errors.Internal("embedding count mismatched with chunk count", nil).
			WithDetail("entity_id", cur.EntityID)
	}
	if len(vecs) > 0 && embed.LooksLikePlaceholder(vecs[0]) {
		s.logger.Warn("embed_discarded",
			slog.String("entity_id", cur.EntityID),
			slog.Int("dimensions", len(vecs[0])),
			slog.String("reason", "placeholder_dimensionality"))
		return manifestOf(cur.EntityID, cur, false), nil
	}

	dims := len(vecs[0])
	vectors := make([][]float32, len(cur.Chunks))
	if !replace && len(cur.Vectors) == len(cur.Chunks) && cur.Dims == dims {
		copy(vectors, cur.Vectors)
	}
	for i := range vectors {
		if vectors[i] == nil {
			vectors[i] = make([]float32, dims)
		}
	}
	for i, unit := range units {
		vectors[unit] = vecs[i]
	}

	fresh := *cur
	fresh.Vectors = vectors
	fresh.Dims = dims
	fresh.Sim = vector.New(vectors, s.cfg.Vector)
	fresh.LexicalOnly = fresh.Sim.Len() == 0
	fresh.UpdatedAt = s.cfg.Now()
	e.swap(&fresh)

	s.logger.Info("embed_complete",
		slog.String("entity_id", cur.EntityID),
		slog.Int("embedded", len(units)),
		slog.Int("dimensions", dims),
		slog.Int("searchable", fresh.Sim.Len()))
	return manifestOf(cur.EntityID, &fresh, false), nil
}

package index

import (
	"context"
	"log/slog"
	"time"

	"github.com/clinqa/retriever/internal/lexical"
	"github.com/clinqa/retriever/internal/rank"
	"github.com/clinqa/retriever/internal/telemetry"
)

// Retrieve ranks the entity's passages against one or more query
// variants. Absent or empty entities return an empty list, never an
// error, so callers can always render "no results yet". When the entity
// has vectors and an embedder is available, variants are embedded for
// hybrid fusion; any embedding failure degrades the call to lexical-only
// instead of failing it.
func (s *Store) Retrieve(ctx context.Context, entityID string, queries []string, topK int) ([]rank.Result, error) {
	start := time.Now()

	e, ok := s.getEntity(entityID)
	if !ok {
		return []rank.Result{}, nil
	}
	idx := e.snapshot()
	if idx == nil || len(idx.Chunks) == 0 {
		return []rank.Result{}, nil
	}

	variants := make([]rank.Variant, 0, len(queries))
	for _, q := range queries {
		variants = append(variants, rank.Variant{Text: q})
	}

	mode := telemetry.ModeLexicalOnly
	if s.embedder != nil && idx.HasVectors() {
		vecs, err := s.embedder.EmbedBatch(ctx, queries)
		if err != nil {
			s.logger.Warn("query_embed_failed",
				slog.String("entity_id", entityID),
				slog.String("error", err.Error()))
		} else {
			for i := range variants {
				variants[i].Vector = vecs[i]
			}
			mode = telemetry.ModeHybrid
		}
	}

	results, err := rank.Rank(ctx, variants, idx.Chunks, idx.Lexical, idx.Sim, topK, s.cfg.Rank)
	if err != nil {
		return nil, err
	}

	query := ""
	if len(queries) > 0 {
		query = queries[0]
	}
	s.metrics.Record(telemetry.QueryEvent{
		EntityID:    entityID,
		Query:       query,
		Mode:        mode,
		ResultCount: len(results),
		Latency:     time.Since(start),
	})
	return results, nil
}

// SearchDocuments runs whole-document keyword search with snippets over
// the entity's source documents. Absent entities return an empty list.
func (s *Store) SearchDocuments(entityID string, query string, limit int) []lexical.DocHit {
	e, ok := s.getEntity(entityID)
	if !ok {
		return []lexical.DocHit{}
	}
	idx := e.snapshot()
	if idx == nil || idx.Docs == nil {
		return []lexical.DocHit{}
	}
	return idx.Docs.Search(query, limit)
}

// Status returns the entity's manifest without mutating state. Absent
// entities report Indexed: false.
func (s *Store) Status(entityID string) Manifest {
	e, ok := s.getEntity(entityID)
	if !ok {
		return Manifest{EntityID: entityID}
	}
	return manifestOf(entityID, e.snapshot(), e.isBuilding())
}

// Building reports whether a build is currently in flight for the
// entity. Callers may poll this instead of blocking on Ensure.
func (s *Store) Building(entityID string) bool {
	e, ok := s.getEntity(entityID)
	return ok && e.isBuilding()
}

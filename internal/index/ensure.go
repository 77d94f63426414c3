package index

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/clinqa/retriever/internal/chunk"
	"github.com/clinqa/retriever/internal/lexical"
	"github.com/clinqa/retriever/internal/source"
	"github.com/clinqa/retriever/internal/vector"
)

// Ensure builds or extends an entity's index. A full rebuild happens when
// the entity is absent or force is set; otherwise sources already in the
// registry are skipped and only new ones are chunked and appended.
// Concurrent Ensure calls for the same entity coalesce into one build.
// Forced rebuilds coalesce only with each other; a forced call must
// never piggyback on an in-flight incremental build and skip the
// rebuild it was asked for.
//
// Malformed sources are skipped with a warning; they never abort the
// rest of the build.
func (s *Store) Ensure(ctx context.Context, entityID string, records []source.Record, force bool) (Manifest, error) {
	key := "ensure:" + entityID
	if force {
		key = "rebuild:" + entityID
	}
	result, err, _ := s.flight.Do(key, func() (any, error) {
		return s.ensureLocked(ctx, entityID, records, force)
	})
	if err != nil {
		return Manifest{}, err
	}
	return result.(Manifest), nil
}

func (s *Store) ensureLocked(ctx context.Context, entityID string, records []source.Record, force bool) (Manifest, error) {
	e := s.getOrCreateEntity(entityID)
	e.buildMu.Lock()
	defer e.buildMu.Unlock()

	e.setBuilding(true)
	defer e.setBuilding(false)

	cur := e.snapshot()
	if cur == nil || force {
		fresh := s.buildFull(entityID, records, cur)
		e.swap(fresh)
		s.logger.Info("index_built",
			slog.String("entity_id", entityID),
			slog.Int("chunks", len(fresh.Chunks)),
			slog.Int("sources", len(fresh.Registry)),
			slog.Int("generation", fresh.Generation),
			slog.Bool("full_rebuild", true))
		return manifestOf(entityID, fresh, false), nil
	}

	fresh, changed := s.buildAppend(cur, records)
	if !changed {
		return manifestOf(entityID, cur, false), nil
	}
	e.swap(fresh)
	s.logger.Info("index_built",
		slog.String("entity_id", entityID),
		slog.Int("chunks", len(fresh.Chunks)),
		slog.Int("sources", len(fresh.Registry)),
		slog.Int("generation", fresh.Generation),
		slog.Bool("full_rebuild", false))
	return manifestOf(entityID, fresh, false), nil
}

// buildFull chunks every record and constructs a fresh index generation.
// Vectors are cleared; the entity restarts lexical-only.
func (s *Store) buildFull(entityID string, records []source.Record, prev *EntityIndex) *EntityIndex {
	now := s.cfg.Now()

	var (
		chunks   []*chunk.Passage
		docs     []lexical.Document
		registry = make(map[string]sourceInfo, len(records))
	)
	for _, rec := range records {
		if err := rec.Validate(); err != nil {
			s.logger.Warn("source_skipped",
				slog.String("entity_id", entityID),
				slog.String("source_id", rec.ID),
				slog.String("error", err.Error()))
			continue
		}
		if _, dup := registry[rec.ID]; dup {
			continue
		}
		chunks = append(chunks, chunk.Document(rec, s.cfg.Chunking, *s.cfg.Policy)...)
		docs = append(docs, docOf(rec))
		registry[rec.ID] = sourceInfo{Category: rec.Category, Date: rec.Date}
	}

	generation := 1
	if prev != nil {
		generation = prev.Generation + 1
	}

	return &EntityIndex{
		EntityID:    entityID,
		Chunks:      chunks,
		Lexical:     lexical.NewBM25Index(chunkTexts(chunks), s.cfg.BM25),
		Docs:        lexical.NewDocIndex(docs, s.cfg.FieldWeights, s.cfg.BM25.StopWords),
		DocRecords:  docs,
		Sim:         vector.New(nil, s.cfg.Vector),
		Registry:    registry,
		LexicalOnly: true,
		Generation:  generation,
		BuildID:     uuid.NewString(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// buildAppend extends an existing index with sources not yet in the
// registry. Prior chunk ids stay unchanged and prior vector rows are
// untouched; new chunks get zero placeholder rows when a vector set
// exists. Lexical structures are rebuilt from the full chunk set for
// correct corpus statistics.
func (s *Store) buildAppend(cur *EntityIndex, records []source.Record) (*EntityIndex, bool) {
	now := s.cfg.Now()

	var fresh []source.Record
	for _, rec := range records {
		if err := rec.Validate(); err != nil {
			s.logger.Warn("source_skipped",
				slog.String("entity_id", cur.EntityID),
				slog.String("source_id", rec.ID),
				slog.String("error", err.Error()))
			continue
		}
		if _, ok := cur.Registry[rec.ID]; ok {
			continue
		}
		fresh = append(fresh, rec)
	}
	if len(fresh) == 0 {
		return cur, false
	}

	chunks := make([]*chunk.Passage, len(cur.Chunks), len(cur.Chunks)+len(fresh))
	copy(chunks, cur.Chunks)
	docs := make([]lexical.Document, len(cur.DocRecords), len(cur.DocRecords)+len(fresh))
	copy(docs, cur.DocRecords)
	registry := make(map[string]sourceInfo, len(cur.Registry)+len(fresh))
	for id, info := range cur.Registry {
		registry[id] = info
	}

	for _, rec := range fresh {
		chunks = append(chunks, chunk.Document(rec, s.cfg.Chunking, *s.cfg.Policy)...)
		docs = append(docs, docOf(rec))
		registry[rec.ID] = sourceInfo{Category: rec.Category, Date: rec.Date}
	}

	var vectors [][]float32
	sim := cur.Sim
	if len(cur.Vectors) > 0 {
		vectors = make([][]float32, len(chunks))
		copy(vectors, cur.Vectors)
		for i := len(cur.Vectors); i < len(chunks); i++ {
			vectors[i] = make([]float32, cur.Dims)
		}
		sim = vector.New(vectors, s.cfg.Vector)
	}

	return &EntityIndex{
		EntityID:    cur.EntityID,
		Chunks:      chunks,
		Lexical:     lexical.NewBM25Index(chunkTexts(chunks), s.cfg.BM25),
		Docs:        lexical.NewDocIndex(docs, s.cfg.FieldWeights, s.cfg.BM25.StopWords),
		DocRecords:  docs,
		Vectors:     vectors,
		Dims:        cur.Dims,
		Sim:         sim,
		Registry:    registry,
		LexicalOnly: cur.LexicalOnly,
		Generation:  cur.Generation + 1,
		BuildID:     uuid.NewString(),
		CreatedAt:   cur.CreatedAt,
		UpdatedAt:   now,
	}, true
}

func docOf(rec source.Record) lexical.Document {
	return lexical.Document{
		ID:    rec.ID,
		Text:  rec.Text,
		Title: rec.Title,
		Type:  string(rec.Category),
	}
}

func chunkTexts(chunks []*chunk.Passage) []string {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	return texts
}

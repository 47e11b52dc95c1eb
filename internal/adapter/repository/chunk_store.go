package repository

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"construction-rag/internal/domain"
)

// The three tiers in this file search the same document_chunks table
// with the same filtering semantics, degrading from an indexed
// server-side function to a direct distance query to an in-process
// scan. All values reach SQL as bind parameters.

// NewTieredChunkStore wires the three tiers in fallback order.
// queryTimeout bounds each tier's round trip to the database.
func NewTieredChunkStore(pool *pgxpool.Pool, queryTimeout time.Duration, logger *slog.Logger) *domain.TieredSearch {
	return domain.NewTieredSearch(logger, queryTimeout,
		NewIndexedTier(pool),
		NewDistanceTier(pool),
		NewBruteForceTier(pool, logger),
	)
}

// IndexedTier invokes the match_document_chunks stored function, which
// runs a nearest-neighbor search over the embedding index server-side.
type IndexedTier struct {
	pool *pgxpool.Pool
}

func NewIndexedTier(pool *pgxpool.Pool) *IndexedTier {
	return &IndexedTier{pool: pool}
}

func (t *IndexedTier) Name() string { return "indexed" }

func (t *IndexedTier) Search(ctx context.Context, queryVector []float32, scope domain.SearchScope, limit int) ([]domain.SearchCandidate, error) {
	query := `
		SELECT chunk_id, document_id, content, metadata, similarity
		FROM match_document_chunks($1, $2::uuid, $3::uuid[], $4)
	`
	runID, docIDs := scopeParams(scope)
	rows, err := t.pool.Query(ctx, query, pgvector.NewVector(queryVector), runID, docIDs, limit)
	if err != nil {
		return nil, domain.ExternalServicef("indexed search failed: %v", err)
	}
	defer rows.Close()

	return scanCandidates(rows)
}

// DistanceTier computes the cosine distance operator directly against
// the embedding column, with no stored-function dependency. Similarity
// conversion (1 - distance) happens in the projection so the common
// candidate shape holds.
type DistanceTier struct {
	pool *pgxpool.Pool
}

func NewDistanceTier(pool *pgxpool.Pool) *DistanceTier {
	return &DistanceTier{pool: pool}
}

func (t *DistanceTier) Name() string { return "distance" }

func (t *DistanceTier) Search(ctx context.Context, queryVector []float32, scope domain.SearchScope, limit int) ([]domain.SearchCandidate, error) {
	query := `
		SELECT id, document_id, content, metadata, 1 - (embedding <=> $1) AS similarity
		FROM document_chunks
		WHERE embedding IS NOT NULL
		  AND ($2::uuid IS NULL OR indexing_run_id = $2)
		  AND ($3::uuid[] IS NULL OR document_id = ANY($3))
		ORDER BY embedding <=> $1 ASC
		LIMIT $4
	`
	runID, docIDs := scopeParams(scope)
	rows, err := t.pool.Query(ctx, query, pgvector.NewVector(queryVector), runID, docIDs, limit)
	if err != nil {
		return nil, domain.ExternalServicef("distance search failed: %v", err)
	}
	defer rows.Close()

	return scanCandidates(rows)
}

// BruteForceTier fetches every in-scope embedded chunk and scores it in
// process. It is the correctness safety net for small corpora when the
// vector machinery is unavailable, and the reference implementation the
// other tiers are validated against.
type BruteForceTier struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewBruteForceTier(pool *pgxpool.Pool, logger *slog.Logger) *BruteForceTier {
	return &BruteForceTier{pool: pool, logger: logger}
}

func (t *BruteForceTier) Name() string { return "brute-force" }

func (t *BruteForceTier) Search(ctx context.Context, queryVector []float32, scope domain.SearchScope, limit int) ([]domain.SearchCandidate, error) {
	query := `
		SELECT id, document_id, content, metadata, embedding::text
		FROM document_chunks
		WHERE embedding IS NOT NULL
		  AND ($1::uuid IS NULL OR indexing_run_id = $1)
		  AND ($2::uuid[] IS NULL OR document_id = ANY($2))
	`
	runID, docIDs := scopeParams(scope)
	rows, err := t.pool.Query(ctx, query, runID, docIDs)
	if err != nil {
		return nil, domain.ExternalServicef("brute-force fetch failed: %v", err)
	}
	defer rows.Close()

	var candidates []domain.SearchCandidate
	for rows.Next() {
		var chunk domain.Chunk
		var rawMeta []byte
		var rawEmbedding string
		if err := rows.Scan(&chunk.ID, &chunk.DocumentID, &chunk.Content, &rawMeta, &rawEmbedding); err != nil {
			return nil, domain.ExternalServicef("failed to scan chunk row: %v", err)
		}

		embedding, err := domain.ParseStoredEmbedding(rawEmbedding)
		if err != nil {
			// A malformed row must not abort the batch.
			t.logger.Warn("chunk_embedding_unparseable",
				slog.String("chunk_id", chunk.ID.String()),
				slog.String("error", err.Error()))
			continue
		}
		vec := pgvector.NewVector(embedding)
		chunk.Embedding = &vec
		chunk.Metadata = decodeMetadata(rawMeta, t.logger)

		candidate, ok := scoreChunk(chunk, queryVector, t.logger)
		if !ok {
			continue
		}
		candidates = append(candidates, candidate)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ExternalServicef("rows error: %v", err)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Similarity > candidates[j].Similarity
	})
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates, nil
}

// scoreChunk turns a hydrated chunk into a scored candidate. Chunks
// that are not retrievable or whose embedding does not match the query
// dimensionality are skipped, never fatal.
func scoreChunk(chunk domain.Chunk, queryVector []float32, logger *slog.Logger) (domain.SearchCandidate, bool) {
	if !chunk.Retrievable() {
		logger.Warn("chunk_not_retrievable", slog.String("chunk_id", chunk.ID.String()))
		return domain.SearchCandidate{}, false
	}

	sim, err := domain.CosineSimilarity(queryVector, chunk.Embedding.Slice())
	if err != nil {
		logger.Warn("chunk_embedding_dimension_mismatch",
			slog.String("chunk_id", chunk.ID.String()),
			slog.String("error", err.Error()))
		return domain.SearchCandidate{}, false
	}

	return domain.SearchCandidate{
		ChunkID:    chunk.ID,
		DocumentID: chunk.DocumentID,
		Content:    chunk.Content,
		Metadata:   chunk.Metadata,
		Similarity: sim,
	}, true
}

// scopeParams maps a SearchScope onto the two nullable filter
// parameters shared by all tier queries.
func scopeParams(scope domain.SearchScope) (any, any) {
	var runID any
	if scope.IndexingRunID != nil {
		runID = *scope.IndexingRunID
	}
	var docIDs any
	if len(scope.AllowedDocumentIDs) > 0 {
		docIDs = scope.AllowedDocumentIDs
	}
	return runID, docIDs
}

func scanCandidates(rows pgx.Rows) ([]domain.SearchCandidate, error) {
	var candidates []domain.SearchCandidate
	for rows.Next() {
		var c domain.SearchCandidate
		var rawMeta []byte
		if err := rows.Scan(&c.ChunkID, &c.DocumentID, &c.Content, &rawMeta, &c.Similarity); err != nil {
			return nil, domain.ExternalServicef("failed to scan candidate row: %v", err)
		}
		c.Metadata = decodeMetadata(rawMeta, nil)
		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ExternalServicef("rows error: %v", err)
	}
	return candidates, nil
}

// decodeMetadata unpacks the jsonb metadata column into the fixed-shape
// record, leaving unknown keys in Extra. Malformed metadata is logged
// and dropped; it never fails a search.
func decodeMetadata(raw []byte, logger *slog.Logger) domain.ChunkMetadata {
	var meta domain.ChunkMetadata
	if len(raw) == 0 {
		return meta
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		if logger != nil {
			logger.Warn("chunk_metadata_unparseable", slog.String("error", err.Error()))
		}
		return meta
	}

	if v, ok := fields["source_filename"]; ok {
		_ = json.Unmarshal(v, &meta.SourceFilename)
		delete(fields, "source_filename")
	}
	if v, ok := fields["page_number"]; ok {
		_ = json.Unmarshal(v, &meta.PageNumber)
		delete(fields, "page_number")
	}
	if v, ok := fields["bbox"]; ok {
		var bbox domain.BoundingBox
		if err := json.Unmarshal(v, &bbox); err == nil {
			meta.BBox = &bbox
		}
		delete(fields, "bbox")
	}

	if len(fields) > 0 {
		meta.Extra = make(map[string]any, len(fields))
		for k, v := range fields {
			var val any
			if err := json.Unmarshal(v, &val); err == nil {
				meta.Extra[k] = val
			}
		}
	}
	return meta
}

var (
	_ domain.SearchTier = (*IndexedTier)(nil)
	_ domain.SearchTier = (*DistanceTier)(nil)
	_ domain.SearchTier = (*BruteForceTier)(nil)
)

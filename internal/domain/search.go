package domain

import (
	"context"

	"github.com/google/uuid"
)

// SearchScope restricts which chunks a search may return.
type SearchScope struct {
	// IndexingRunID scopes the search to one corpus version when set.
	IndexingRunID *uuid.UUID
	// AllowedDocumentIDs is an explicit document allow-list when non-empty.
	AllowedDocumentIDs []uuid.UUID
}

// SearchCandidate is the tier-agnostic intermediate shape every search
// tier returns. Similarity is always in similarity space; tiers that
// operate on distances convert before returning.
type SearchCandidate struct {
	ChunkID    uuid.UUID
	DocumentID uuid.UUID
	Content    string
	Metadata   ChunkMetadata
	Similarity float64
}

// SearchResult is the retrieval engine's output unit. Built fresh per
// query, never persisted.
type SearchResult struct {
	ChunkID uuid.UUID
	// DocumentID identifies the source document; consumers cite it
	// alongside the page-level fields.
	DocumentID      uuid.UUID
	Content         string
	Metadata        ChunkMetadata
	SimilarityScore float64
	SourceFilename  string
	PageNumber      int
}

// QueryVariations holds the textual rewrites of a user query.
// Retrieval embeds exactly one of them.
type QueryVariations struct {
	Original string
	Semantic string
	HyDE     string
	Formal   string
}

// Select returns the variation to embed. Current policy is always the
// original; this is the extension point for future selection strategies.
func (v QueryVariations) Select() string {
	return v.Original
}

// EmbeddingClient converts text into vectors in the embedding space
// used at ingestion. The model must match the one that embedded the
// stored chunks, or cosine similarity is meaningless.
type EmbeddingClient interface {
	// EmbedOne embeds a single non-empty text.
	EmbedOne(ctx context.Context, text string) ([]float32, error)
	// EmbedMany embeds texts preserving input order, splitting requests
	// by token budget first and by batchSize second.
	EmbedMany(ctx context.Context, texts []string, batchSize int) ([][]float32, error)
	// Model reports the embedding model identifier.
	Model() string
}

// SearchTier is one strategy for finding nearest-neighbor chunks.
// Implementations return candidates sorted by descending similarity.
type SearchTier interface {
	Name() string
	Search(ctx context.Context, queryVector []float32, scope SearchScope, limit int) ([]SearchCandidate, error)
}

// ChunkSearcher finds nearest-neighbor chunks for a query vector.
type ChunkSearcher interface {
	Search(ctx context.Context, queryVector []float32, scope SearchScope, limit int) ([]SearchCandidate, error)
}

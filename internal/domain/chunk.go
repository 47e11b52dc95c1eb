package domain

import (
	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
)

// BoundingBox locates a chunk on its source page. Carried through
// retrieval untouched so the UI can highlight the cited region.
type BoundingBox struct {
	X0 float64 `json:"x0"`
	Y0 float64 `json:"y0"`
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
}

// ChunkMetadata is the fixed-shape record of auxiliary fields attached
// to a chunk at ingestion. Extra holds ingestion fields retrieval does
// not interpret.
type ChunkMetadata struct {
	SourceFilename string         `json:"source_filename"`
	PageNumber     int            `json:"page_number"`
	BBox           *BoundingBox   `json:"bbox,omitempty"`
	Extra          map[string]any `json:"extra,omitempty"`
}

// CitationOnly returns a copy stripped to the fields needed for
// citation rendering: source filename, page number, bounding box.
func (m ChunkMetadata) CitationOnly() ChunkMetadata {
	return ChunkMetadata{
		SourceFilename: m.SourceFilename,
		PageNumber:     m.PageNumber,
		BBox:           m.BBox,
	}
}

// Chunk is a persisted unit of document text. Chunks are immutable from
// retrieval's point of view; a chunk without an embedding is not
// eligible for search.
type Chunk struct {
	ID            uuid.UUID
	DocumentID    uuid.UUID
	IndexingRunID uuid.UUID
	Content       string
	Metadata      ChunkMetadata
	Embedding     *pgvector.Vector
}

// Retrievable reports whether the chunk is eligible for search: it
// must have non-empty content and a completed embedding.
func (c Chunk) Retrievable() bool {
	return c.Content != "" && c.Embedding != nil
}

package domain_test

import (
	"testing"

	"construction-rag/internal/domain"

	"github.com/pgvector/pgvector-go"
	"github.com/stretchr/testify/assert"
)

func TestChunkMetadata_CitationOnly(t *testing.T) {
	meta := domain.ChunkMetadata{
		SourceFilename: "structural-plans.pdf",
		PageNumber:     12,
		BBox:           &domain.BoundingBox{X0: 1, Y0: 2, X1: 3, Y1: 4},
		Extra: map[string]any{
			"element_category": "Table",
			"ingest_batch":     "b-77",
		},
	}

	got := meta.CitationOnly()

	assert.Equal(t, "structural-plans.pdf", got.SourceFilename)
	assert.Equal(t, 12, got.PageNumber)
	assert.Equal(t, meta.BBox, got.BBox)
	assert.Nil(t, got.Extra)
}

func TestChunk_Retrievable(t *testing.T) {
	v := pgvector.NewVector([]float32{0.1, 0.2})

	assert.False(t, domain.Chunk{Content: "text"}.Retrievable(), "no embedding yet")
	assert.False(t, domain.Chunk{Embedding: &v}.Retrievable(), "no content")
	assert.True(t, domain.Chunk{Content: "text", Embedding: &v}.Retrievable())
}

func TestQueryVariations_SelectReturnsOriginal(t *testing.T) {
	v := domain.QueryVariations{
		Original: "load bearing wall specifications",
		Semantic: "which walls carry structural load",
		HyDE:     "the load bearing walls are specified in section 3",
	}

	assert.Equal(t, "load bearing wall specifications", v.Select())
}

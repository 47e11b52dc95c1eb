package usecase

import (
	"context"
	"fmt"

	"construction-rag/internal/domain"

	"github.com/google/uuid"
)

// QueryContextInput defines one ad-hoc question against a specific
// corpus version.
type QueryContextInput struct {
	Question        string
	IndexingRunID   uuid.UUID
	LanguageProfile string
}

// QueryContextOutput carries the ranked chunks for answer synthesis.
// Full metadata is retained so the generation step can cite precisely.
type QueryContextOutput struct {
	Results []domain.SearchResult
}

// QueryContextUsecase is the question-answering consumer of retrieval:
// one search per user question, scoped to one indexing run.
type QueryContextUsecase interface {
	Execute(ctx context.Context, input QueryContextInput) (*QueryContextOutput, error)
}

type queryContextUsecase struct {
	search SearchUsecase
}

// NewQueryContextUsecase creates a QueryContextUsecase.
func NewQueryContextUsecase(search SearchUsecase) QueryContextUsecase {
	return &queryContextUsecase{search: search}
}

func (u *queryContextUsecase) Execute(ctx context.Context, input QueryContextInput) (*QueryContextOutput, error) {
	if input.Question == "" {
		return nil, domain.InvalidInputf("question is empty")
	}
	if input.IndexingRunID == uuid.Nil {
		return nil, domain.InvalidInputf("indexing run id is required")
	}

	runID := input.IndexingRunID
	results, err := u.search.Execute(ctx, SearchInput{
		Variations:      domain.QueryVariations{Original: input.Question},
		Scope:           domain.SearchScope{IndexingRunID: &runID},
		LanguageProfile: input.LanguageProfile,
		MetadataPolicy:  MetadataFull,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve question context: %w", err)
	}

	return &QueryContextOutput{Results: results}, nil
}

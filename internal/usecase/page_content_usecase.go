package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"construction-rag/internal/domain"

	"github.com/google/uuid"
)

// PageContentInput defines the retrieval work for one planned wiki
// page: a handful of queries whose results are pooled into the page's
// source material.
type PageContentInput struct {
	PageTitle       string
	Queries         []string
	Scope           domain.SearchScope
	LanguageProfile string
	// MaxChunks caps the pooled result count. Zero means twice the
	// configured TopK.
	MaxChunks int
}

// PageContentOutput carries the pooled, re-deduplicated chunks for one
// page, with citation-only metadata.
type PageContentOutput struct {
	PageTitle string
	Results   []domain.SearchResult
	// QueryHits records how many results each query contributed before
	// pooling, in input order.
	QueryHits []int
}

// PageContentUsecase is the wiki consumer of retrieval: one search per
// page query, pooled and re-deduplicated across queries.
type PageContentUsecase interface {
	Execute(ctx context.Context, input PageContentInput) (*PageContentOutput, error)
}

type pageContentUsecase struct {
	search SearchUsecase
	config RetrievalConfig
	logger *slog.Logger
}

// NewPageContentUsecase creates a PageContentUsecase.
func NewPageContentUsecase(search SearchUsecase, config RetrievalConfig, logger *slog.Logger) PageContentUsecase {
	return &pageContentUsecase{search: search, config: config, logger: logger}
}

func (u *pageContentUsecase) Execute(ctx context.Context, input PageContentInput) (*PageContentOutput, error) {
	if len(input.Queries) == 0 {
		return nil, domain.InvalidInputf("page %q has no queries", input.PageTitle)
	}

	maxChunks := input.MaxChunks
	if maxChunks <= 0 {
		maxChunks = 2 * u.config.TopK
	}

	// Queries run sequentially to bound outbound embedding load; the
	// provider's rate limits are shared across all pages in flight.
	queryHits := make([]int, len(input.Queries))
	best := make(map[uuid.UUID]domain.SearchResult)
	for i, query := range input.Queries {
		results, err := u.search.Execute(ctx, SearchInput{
			Variations:      domain.QueryVariations{Original: query},
			Scope:           input.Scope,
			LanguageProfile: input.LanguageProfile,
			MetadataPolicy:  MetadataCitationOnly,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to retrieve content for page %q query %d: %w", input.PageTitle, i, err)
		}
		queryHits[i] = len(results)

		for _, r := range results {
			if existing, ok := best[r.ChunkID]; !ok || r.SimilarityScore > existing.SimilarityScore {
				best[r.ChunkID] = r
			}
		}
	}

	pooled := make([]domain.SearchResult, 0, len(best))
	for _, r := range best {
		pooled = append(pooled, r)
	}
	sort.SliceStable(pooled, func(i, j int) bool {
		return pooled[i].SimilarityScore > pooled[j].SimilarityScore
	})
	if len(pooled) > maxChunks {
		pooled = pooled[:maxChunks]
	}

	u.logger.Info("page_content_retrieved",
		slog.String("page_title", input.PageTitle),
		slog.Int("query_count", len(input.Queries)),
		slog.Int("pooled_count", len(pooled)))

	return &PageContentOutput{
		PageTitle: input.PageTitle,
		Results:   pooled,
		QueryHits: queryHits,
	}, nil
}

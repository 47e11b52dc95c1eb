package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"construction-rag/internal/domain"
)

// MetadataPolicy controls how much chunk metadata a SearchResult
// carries back to the consumer.
type MetadataPolicy int

const (
	// MetadataFull passes chunk metadata through untouched.
	MetadataFull MetadataPolicy = iota
	// MetadataCitationOnly strips metadata to the citation fields
	// (source filename, page number, bounding box) to keep downstream
	// prompt payloads lean.
	MetadataCitationOnly
)

// dedupFingerprintLen is the content prefix length used as a
// near-duplicate key. Repeated boilerplate across pages shares a
// prefix long before it shares full content.
const dedupFingerprintLen = 200

// SearchInput defines a single retrieval call.
type SearchInput struct {
	Variations      domain.QueryVariations
	Scope           domain.SearchScope
	LanguageProfile string
	MetadataPolicy  MetadataPolicy
}

// SearchUsecase turns a natural-language query into a ranked,
// deduplicated, threshold-filtered chunk list. An empty result list is
// a valid outcome, distinct from a search error.
type SearchUsecase interface {
	Execute(ctx context.Context, input SearchInput) ([]domain.SearchResult, error)
}

type searchUsecase struct {
	searcher domain.ChunkSearcher
	embedder domain.EmbeddingClient
	config   RetrievalConfig
	logger   *slog.Logger
}

// NewSearchUsecase creates a SearchUsecase over the given searcher and
// embedding client.
func NewSearchUsecase(
	searcher domain.ChunkSearcher,
	embedder domain.EmbeddingClient,
	config RetrievalConfig,
	logger *slog.Logger,
) SearchUsecase {
	return &searchUsecase{
		searcher: searcher,
		embedder: embedder,
		config:   config,
		logger:   logger,
	}
}

func (u *searchUsecase) Execute(ctx context.Context, input SearchInput) ([]domain.SearchResult, error) {
	query := input.Variations.Select()
	if query == "" {
		return nil, domain.InvalidInputf("query is empty")
	}

	start := time.Now()

	queryVector, err := u.embedder.EmbedOne(ctx, query)
	if err != nil {
		// No tier can proceed without a query vector, so embedding
		// failures propagate instead of falling back.
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	candidates, err := u.searcher.Search(ctx, queryVector, input.Scope, u.config.CandidateLimit())
	if err != nil {
		return nil, fmt.Errorf("failed to search chunks: %w", err)
	}

	profile := u.config.Profile(input.LanguageProfile)

	deduped := dedupByFingerprint(candidates)

	kept := make([]domain.SearchCandidate, 0, len(deduped))
	for _, c := range deduped {
		if c.Similarity >= profile.Minimum {
			kept = append(kept, c)
		}
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].Similarity > kept[j].Similarity
	})

	if len(kept) > u.config.TopK {
		kept = kept[:u.config.TopK]
	}

	results := make([]domain.SearchResult, 0, len(kept))
	for _, c := range kept {
		results = append(results, toSearchResult(c, input.MetadataPolicy))
	}

	u.logger.Info("retrieval_completed",
		slog.Int("candidate_count", len(candidates)),
		slog.Int("deduped_count", len(deduped)),
		slog.Int("result_count", len(results)),
		slog.String("profile", input.LanguageProfile),
		slog.Int64("duration_ms", time.Since(start).Milliseconds()))

	return results, nil
}

// dedupByFingerprint keeps the first-seen candidate per content
// fingerprint. Tiers return candidates sorted by descending similarity,
// so first-seen is also best-scoring.
func dedupByFingerprint(candidates []domain.SearchCandidate) []domain.SearchCandidate {
	seen := make(map[string]bool, len(candidates))
	out := make([]domain.SearchCandidate, 0, len(candidates))
	for _, c := range candidates {
		fp := contentFingerprint(c.Content)
		if seen[fp] {
			continue
		}
		seen[fp] = true
		out = append(out, c)
	}
	return out
}

// contentFingerprint truncates by rune so multibyte content (Danish
// documents in particular) fingerprints consistently.
func contentFingerprint(content string) string {
	runes := []rune(content)
	if len(runes) <= dedupFingerprintLen {
		return content
	}
	return string(runes[:dedupFingerprintLen])
}

func toSearchResult(c domain.SearchCandidate, policy MetadataPolicy) domain.SearchResult {
	meta := c.Metadata
	if policy == MetadataCitationOnly {
		meta = meta.CitationOnly()
	}
	return domain.SearchResult{
		ChunkID:         c.ChunkID,
		DocumentID:      c.DocumentID,
		Content:         c.Content,
		Metadata:        meta,
		SimilarityScore: c.Similarity,
		SourceFilename:  c.Metadata.SourceFilename,
		PageNumber:      c.Metadata.PageNumber,
	}
}

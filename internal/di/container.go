package di

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"construction-rag/internal/adapter/embedder"
	"construction-rag/internal/adapter/repository"
	"construction-rag/internal/domain"
	"construction-rag/internal/infra/config"
	"construction-rag/internal/infra/httpclient"
	"construction-rag/internal/usecase"
)

// ApplicationComponents holds all wired dependencies for the service.
// Everything receives its collaborators explicitly; nothing reaches for
// ambient globals, which keeps tier fallback testable with fakes.
type ApplicationComponents struct {
	Embedder domain.EmbeddingClient
	Searcher domain.ChunkSearcher

	SearchUsecase usecase.SearchUsecase
	QueryUsecase  usecase.QueryContextUsecase
	PageUsecase   usecase.PageContentUsecase

	RetrievalConfig usecase.RetrievalConfig
}

// NewApplicationComponents wires all dependencies from config and the
// database pool.
func NewApplicationComponents(cfg *config.Config, pool *pgxpool.Pool, log *slog.Logger) (*ApplicationComponents, error) {
	retrievalConfig := usecase.DefaultRetrievalConfig()
	retrievalConfig.EmbeddingModel = cfg.Embedder.Model
	retrievalConfig.Dimensions = cfg.Retrieval.Dimensions
	retrievalConfig.TopK = cfg.Retrieval.TopK
	retrievalConfig.DefaultProfile = cfg.Retrieval.DefaultProfile
	if err := retrievalConfig.Validate(); err != nil {
		return nil, fmt.Errorf("retrieval config invalid: %w", err)
	}

	embedderHTTP := httpclient.NewPooledClient(time.Duration(cfg.Embedder.TimeoutSeconds) * time.Second)
	voyage, err := embedder.NewVoyageEmbedder(
		cfg.Embedder.URL,
		cfg.Embedder.APIKey,
		cfg.Embedder.Model,
		cfg.Embedder.RequestsPerSecond,
		embedderHTTP,
		log,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}

	searcher := repository.NewTieredChunkStore(pool, time.Duration(cfg.DB.QueryTimeoutSeconds)*time.Second, log)

	searchUsecase := usecase.NewSearchUsecase(searcher, voyage, retrievalConfig, log)
	queryUsecase := usecase.NewQueryContextUsecase(searchUsecase)
	pageUsecase := usecase.NewPageContentUsecase(searchUsecase, retrievalConfig, log)

	return &ApplicationComponents{
		Embedder:        voyage,
		Searcher:        searcher,
		SearchUsecase:   searchUsecase,
		QueryUsecase:    queryUsecase,
		PageUsecase:     pageUsecase,
		RetrievalConfig: retrievalConfig,
	}, nil
}

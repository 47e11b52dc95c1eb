package rag_http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"construction-rag/internal/domain"
	"construction-rag/internal/infra/logger"
	"construction-rag/internal/usecase"
)

type Handler struct {
	queryUsecase usecase.QueryContextUsecase
	pageUsecase  usecase.PageContentUsecase
	clog         *logger.ContextLogger
}

func NewHandler(queryUsecase usecase.QueryContextUsecase, pageUsecase usecase.PageContentUsecase, clog *logger.ContextLogger) *Handler {
	return &Handler{
		queryUsecase: queryUsecase,
		pageUsecase:  pageUsecase,
		clog:         clog,
	}
}

// RegisterRoutes attaches the retrieval endpoints to the echo instance.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/v1/health", h.Health)
	e.POST("/v1/search", h.Search)
	e.POST("/v1/pages/content", h.PageContent)
}

func (h *Handler) Health(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

type searchRequest struct {
	Query           string `json:"query"`
	IndexingRunID   string `json:"indexing_run_id"`
	LanguageProfile string `json:"language_profile"`
}

type searchResultJSON struct {
	ChunkID         string               `json:"chunk_id"`
	DocumentID      string               `json:"document_id"`
	Content         string               `json:"content"`
	SimilarityScore float64              `json:"similarity_score"`
	SourceFilename  string               `json:"source_filename"`
	PageNumber      int                  `json:"page_number"`
	Metadata        domain.ChunkMetadata `json:"metadata"`
}

type searchResponse struct {
	Results []searchResultJSON `json:"results"`
}

// Search answers an ad-hoc question scope. An empty result list is a
// successful outcome and renders as 200 with an empty array; only a
// search that could not run at all becomes an error status.
func (h *Handler) Search(ctx echo.Context) error {
	var req searchRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	runID, err := uuid.Parse(req.IndexingRunID)
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "indexing_run_id must be a valid uuid"})
	}

	reqCtx := logger.WithQueryID(ctx.Request().Context(), uuid.NewString())
	reqCtx = logger.WithIndexingRunID(reqCtx, runID.String())

	out, err := h.queryUsecase.Execute(reqCtx, usecase.QueryContextInput{
		Question:        req.Query,
		IndexingRunID:   runID,
		LanguageProfile: req.LanguageProfile,
	})
	if err != nil {
		h.clog.WithContext(reqCtx).Warn("search_request_failed", slog.String("error", err.Error()))
		return writeUsecaseError(ctx, err)
	}

	h.clog.WithContext(reqCtx).Info("search_request_completed", slog.Int("result_count", len(out.Results)))
	return ctx.JSON(http.StatusOK, searchResponse{Results: toJSONResults(out.Results)})
}

type pageContentRequest struct {
	PageTitle       string   `json:"page_title"`
	Queries         []string `json:"queries"`
	IndexingRunID   string   `json:"indexing_run_id"`
	LanguageProfile string   `json:"language_profile"`
	MaxChunks       int      `json:"max_chunks"`
}

type pageContentResponse struct {
	PageTitle string             `json:"page_title"`
	Results   []searchResultJSON `json:"results"`
	QueryHits []int              `json:"query_hits"`
}

// PageContent pools retrieval across all queries planned for one wiki
// page.
func (h *Handler) PageContent(ctx echo.Context) error {
	var req pageContentRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	scope := domain.SearchScope{}
	if req.IndexingRunID != "" {
		runID, err := uuid.Parse(req.IndexingRunID)
		if err != nil {
			return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "indexing_run_id must be a valid uuid"})
		}
		scope.IndexingRunID = &runID
	}

	reqCtx := logger.WithPageTitle(ctx.Request().Context(), req.PageTitle)
	if scope.IndexingRunID != nil {
		reqCtx = logger.WithIndexingRunID(reqCtx, scope.IndexingRunID.String())
	}

	out, err := h.pageUsecase.Execute(reqCtx, usecase.PageContentInput{
		PageTitle:       req.PageTitle,
		Queries:         req.Queries,
		Scope:           scope,
		LanguageProfile: req.LanguageProfile,
		MaxChunks:       req.MaxChunks,
	})
	if err != nil {
		h.clog.WithContext(reqCtx).Warn("page_content_request_failed", slog.String("error", err.Error()))
		return writeUsecaseError(ctx, err)
	}

	h.clog.WithContext(reqCtx).Info("page_content_request_completed", slog.Int("pooled_count", len(out.Results)))
	return ctx.JSON(http.StatusOK, pageContentResponse{
		PageTitle: out.PageTitle,
		Results:   toJSONResults(out.Results),
		QueryHits: out.QueryHits,
	})
}

func writeUsecaseError(ctx echo.Context, err error) error {
	if errors.Is(err, domain.ErrInvalidInput) {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	if errors.Is(err, domain.ErrExternalService) {
		return ctx.JSON(http.StatusBadGateway, map[string]string{"error": "retrieval backend unavailable"})
	}
	return ctx.JSON(http.StatusInternalServerError, map[string]string{"error": "internal error"})
}

func toJSONResults(results []domain.SearchResult) []searchResultJSON {
	out := make([]searchResultJSON, 0, len(results))
	for _, r := range results {
		out = append(out, searchResultJSON{
			ChunkID:         r.ChunkID.String(),
			DocumentID:      r.DocumentID.String(),
			Content:         r.Content,
			SimilarityScore: r.SimilarityScore,
			SourceFilename:  r.SourceFilename,
			PageNumber:      r.PageNumber,
			Metadata:        r.Metadata,
		})
	}
	return out
}

package embedder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"

	"construction-rag/internal/domain"
)

const (
	// maxRequestTokens is the provider's hard per-request ceiling.
	maxRequestTokens = 120000

	// tokensPerChar deliberately over-estimates token counts for
	// multilingual and technical text; under-estimating would trip the
	// provider's hard limit mid-batch.
	tokensPerChar = 1.5

	inputTypeQuery    = "query"
	inputTypeDocument = "document"

	queryCacheSize = 512

	maxErrorBodyLen = 256
)

// VoyageEmbedder calls the Voyage embeddings API. It never retries on
// its own; retry policy belongs to the caller. Query embeddings are
// cached per text, and outbound requests pass through a rate limiter
// shared by all callers of this instance.
type VoyageEmbedder struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
	limiter *rate.Limiter
	cache   *lru.Cache[string, []float32]
	logger  *slog.Logger
}

// NewVoyageEmbedder creates a VoyageEmbedder. requestsPerSecond bounds
// the outbound call rate; the caller supplies an http.Client with an
// explicit timeout.
func NewVoyageEmbedder(baseURL, apiKey, model string, requestsPerSecond float64, client *http.Client, logger *slog.Logger) (*VoyageEmbedder, error) {
	if requestsPerSecond <= 0 {
		return nil, fmt.Errorf("requestsPerSecond must be positive, got %f", requestsPerSecond)
	}
	cache, err := lru.New[string, []float32](queryCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding cache: %w", err)
	}
	return &VoyageEmbedder{
		baseURL: baseURL,
		apiKey:  apiKey,
		model:   model,
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
		cache:   cache,
		logger:  logger,
	}, nil
}

type embedRequest struct {
	Input     []string `json:"input"`
	Model     string   `json:"model"`
	InputType string   `json:"input_type"`
}

type embedResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
}

// EmbedOne embeds a single query text. Empty input is a caller error
// and fails fast rather than producing a meaningless zero vector.
func (e *VoyageEmbedder) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, domain.InvalidInputf("cannot embed empty text")
	}

	if cached, ok := e.cache.Get(text); ok {
		e.logger.Debug("voyage_embed_cache_hit", slog.Int("text_len", len(text)))
		return cached, nil
	}

	vectors, err := e.request(ctx, []string{text}, inputTypeQuery)
	if err != nil {
		return nil, err
	}
	e.cache.Add(text, vectors[0])
	return vectors[0], nil
}

// EmbedMany embeds texts preserving input order. Requests are split by
// the token budget first, then by batchSize. Texts must be pre-chunked
// upstream; a single text over the budget is a caller error.
func (e *VoyageEmbedder) EmbedMany(ctx context.Context, texts []string, batchSize int) ([][]float32, error) {
	if batchSize <= 0 {
		return nil, domain.InvalidInputf("batch size must be positive, got %d", batchSize)
	}
	if len(texts) == 0 {
		return nil, nil
	}
	for i, text := range texts {
		if text == "" {
			return nil, domain.InvalidInputf("text %d is empty", i)
		}
		if estimateTokens(text) > maxRequestTokens {
			return nil, domain.InvalidInputf("text %d exceeds the per-request token budget (%d estimated tokens)", i, estimateTokens(text))
		}
	}

	start := time.Now()
	batches := splitBatches(texts, batchSize)

	out := make([][]float32, 0, len(texts))
	for _, batch := range batches {
		vectors, err := e.request(ctx, batch, inputTypeDocument)
		if err != nil {
			return nil, err
		}
		out = append(out, vectors...)
	}

	e.logger.Info("voyage_embed_many_completed",
		slog.Int("text_count", len(texts)),
		slog.Int("request_count", len(batches)),
		slog.String("model", e.model),
		slog.Int64("duration_ms", time.Since(start).Milliseconds()))

	return out, nil
}

// Model reports the embedding model identifier.
func (e *VoyageEmbedder) Model() string {
	return e.model
}

func (e *VoyageEmbedder) request(ctx context.Context, texts []string, inputType string) ([][]float32, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	body, err := json.Marshal(embedRequest{Input: texts, Model: e.model, InputType: inputType})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal embed request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/embeddings", e.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create embed request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.apiKey)

	resp, err := e.client.Do(req)
	if err != nil {
		e.logger.Error("voyage_embed_failed", slog.String("error", err.Error()))
		return nil, domain.ExternalServicef("voyage request failed: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyLen))
		e.logger.Error("voyage_embed_bad_status",
			slog.Int("status", resp.StatusCode),
			slog.String("body", string(snippet)))
		return nil, domain.ExternalServicef("voyage returned status %d: %s", resp.StatusCode, snippet)
	}

	var decoded embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, domain.ExternalServicef("failed to decode voyage response: %v", err)
	}
	if len(decoded.Data) != len(texts) {
		return nil, domain.ExternalServicef("expected %d embeddings, got %d", len(texts), len(decoded.Data))
	}

	// The provider returns items with an index field; place by index
	// rather than trusting response order.
	vectors := make([][]float32, len(texts))
	for _, item := range decoded.Data {
		if item.Index < 0 || item.Index >= len(texts) {
			return nil, domain.ExternalServicef("embedding index %d out of range", item.Index)
		}
		vectors[item.Index] = item.Embedding
	}
	for i, v := range vectors {
		if v == nil {
			return nil, domain.ExternalServicef("missing embedding for input %d", i)
		}
	}
	return vectors, nil
}

// splitBatches buckets texts under the token budget first, then
// sub-splits each bucket by item count. Order is preserved.
func splitBatches(texts []string, batchSize int) [][]string {
	var tokenGroups [][]string
	var current []string
	currentTokens := 0
	for _, text := range texts {
		tokens := estimateTokens(text)
		if len(current) > 0 && currentTokens+tokens > maxRequestTokens {
			tokenGroups = append(tokenGroups, current)
			current = nil
			currentTokens = 0
		}
		current = append(current, text)
		currentTokens += tokens
	}
	if len(current) > 0 {
		tokenGroups = append(tokenGroups, current)
	}

	var batches [][]string
	for _, group := range tokenGroups {
		for start := 0; start < len(group); start += batchSize {
			end := start + batchSize
			if end > len(group) {
				end = len(group)
			}
			batches = append(batches, group[start:end])
		}
	}
	return batches
}

func estimateTokens(text string) int {
	return int(float64(len(text)) * tokensPerChar)
}

var _ domain.EmbeddingClient = (*VoyageEmbedder)(nil)

package embedder_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"construction-rag/internal/adapter/embedder"
	"construction-rag/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedRequest struct {
	Input     []string `json:"input"`
	Model     string   `json:"model"`
	InputType string   `json:"input_type"`
}

// newEmbedServer returns a server that answers each input with a
// vector derived from its text length, so order is verifiable.
func newEmbedServer(t *testing.T, requestCount *atomic.Int64, requests *[]recordedRequest) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestCount.Add(1)
		assert.Equal(t, "/v1/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req recordedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if requests != nil {
			*requests = append(*requests, req)
		}

		type item struct {
			Embedding []float32 `json:"embedding"`
			Index     int       `json:"index"`
		}
		items := make([]item, len(req.Input))
		for i, text := range req.Input {
			items[i] = item{Embedding: []float32{float32(len(text)), 0}, Index: i}
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(map[string]any{"data": items}))
	}))
}

func newTestEmbedder(t *testing.T, baseURL string) *embedder.VoyageEmbedder {
	t.Helper()
	e, err := embedder.NewVoyageEmbedder(
		baseURL,
		"test-key",
		"voyage-multilingual-2",
		1000, // effectively unlimited for tests
		&http.Client{Timeout: 5 * time.Second},
		slog.New(slog.NewJSONHandler(io.Discard, nil)),
	)
	require.NoError(t, err)
	return e
}

func TestVoyageEmbedder_EmbedOne(t *testing.T) {
	var count atomic.Int64
	server := newEmbedServer(t, &count, nil)
	defer server.Close()
	e := newTestEmbedder(t, server.URL)

	vec, err := e.EmbedOne(context.Background(), "fire exits")

	require.NoError(t, err)
	assert.Equal(t, []float32{10, 0}, vec)
	assert.Equal(t, int64(1), count.Load())
}

func TestVoyageEmbedder_EmbedOneUsesCache(t *testing.T) {
	var count atomic.Int64
	server := newEmbedServer(t, &count, nil)
	defer server.Close()
	e := newTestEmbedder(t, server.URL)

	first, err := e.EmbedOne(context.Background(), "fire exits")
	require.NoError(t, err)
	second, err := e.EmbedOne(context.Background(), "fire exits")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int64(1), count.Load(), "second call must hit the cache")
}

func TestVoyageEmbedder_EmbedOneEmptyText(t *testing.T) {
	e := newTestEmbedder(t, "http://unused")

	_, err := e.EmbedOne(context.Background(), "")

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
}

func TestVoyageEmbedder_EmbedOneBadStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"rate limit exceeded"}`, http.StatusTooManyRequests)
	}))
	defer server.Close()
	e := newTestEmbedder(t, server.URL)

	_, err := e.EmbedOne(context.Background(), "fire exits")

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrExternalService))
	assert.Contains(t, err.Error(), "429")
	assert.Contains(t, err.Error(), "rate limit exceeded")
}

func TestVoyageEmbedder_EmbedOneMalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer server.Close()
	e := newTestEmbedder(t, server.URL)

	_, err := e.EmbedOne(context.Background(), "fire exits")

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrExternalService))
}

func TestVoyageEmbedder_EmbedManyPreservesOrderAcrossBatches(t *testing.T) {
	var count atomic.Int64
	var requests []recordedRequest
	server := newEmbedServer(t, &count, &requests)
	defer server.Close()
	e := newTestEmbedder(t, server.URL)

	texts := []string{"a", "bb", "ccc", "dddd", "eeeee"}
	vectors, err := e.EmbedMany(context.Background(), texts, 2)

	require.NoError(t, err)
	require.Len(t, vectors, 5)
	for i, text := range texts {
		assert.Equal(t, float32(len(text)), vectors[i][0], "vector %d out of order", i)
	}
	// 5 texts with item-count batch size 2 -> 3 requests.
	assert.Equal(t, int64(3), count.Load())
	require.Len(t, requests, 3)
	assert.Equal(t, []string{"a", "bb"}, requests[0].Input)
	assert.Equal(t, "document", requests[0].InputType)
}

func TestVoyageEmbedder_EmbedManySplitsOnTokenBudget(t *testing.T) {
	var count atomic.Int64
	server := newEmbedServer(t, &count, nil)
	defer server.Close()
	e := newTestEmbedder(t, server.URL)

	// Each text estimates to ~75k tokens (50k chars x 1.5); two of them
	// exceed the 120k budget, so they must go out in separate requests
	// even though the item-count batch size would allow one.
	big := strings.Repeat("x", 50000)
	vectors, err := e.EmbedMany(context.Background(), []string{big, big}, 10)

	require.NoError(t, err)
	require.Len(t, vectors, 2)
	assert.Equal(t, int64(2), count.Load())
}

func TestVoyageEmbedder_EmbedManyRejectsOversizedText(t *testing.T) {
	e := newTestEmbedder(t, "http://unused")

	// 90k chars x 1.5 tokens/char is over the 120k ceiling; a single
	// text is never split.
	oversized := strings.Repeat("x", 90000)
	_, err := e.EmbedMany(context.Background(), []string{"fine", oversized}, 10)

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
}

func TestVoyageEmbedder_EmbedManyEmptyInput(t *testing.T) {
	e := newTestEmbedder(t, "http://unused")

	vectors, err := e.EmbedMany(context.Background(), nil, 10)

	require.NoError(t, err)
	assert.Nil(t, vectors)
}

func TestVoyageEmbedder_EmbedManyInvalidBatchSize(t *testing.T) {
	e := newTestEmbedder(t, "http://unused")

	_, err := e.EmbedMany(context.Background(), []string{"a"}, 0)

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
}

func TestVoyageEmbedder_RejectsNonPositiveRate(t *testing.T) {
	_, err := embedder.NewVoyageEmbedder("http://unused", "k", "m", 0, http.DefaultClient, slog.Default())

	assert.Error(t, err)
}

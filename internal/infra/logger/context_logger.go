package logger

import (
	"context"
	"log/slog"
	"os"
)

type ContextKey string

// Business context keys propagated through retrieval calls, following
// OpenTelemetry semantic conventions with a 'rag.' prefix.
const (
	QueryIDKey       ContextKey = "rag.query.id"
	IndexingRunIDKey ContextKey = "rag.indexing_run.id"
	PageTitleKey     ContextKey = "rag.page.title"
	SearchTierKey    ContextKey = "rag.search.tier"
)

// ContextLogger extracts business context from a context.Context and
// attaches it as structured fields.
type ContextLogger struct {
	logger      *slog.Logger
	serviceName string
}

// NewContextLogger creates a context-aware logger for serviceName.
func NewContextLogger(serviceName string) *ContextLogger {
	opts := &slog.HandlerOptions{
		Level: parseLevel(os.Getenv("LOG_LEVEL")),
	}
	handler := slog.NewJSONHandler(os.Stdout, opts)

	return &ContextLogger{
		logger:      slog.New(handler),
		serviceName: serviceName,
	}
}

// NewContextLoggerWith wraps an existing logger so request handlers can
// share the process-wide handler chain.
func NewContextLoggerWith(base *slog.Logger, serviceName string) *ContextLogger {
	return &ContextLogger{
		logger:      base,
		serviceName: serviceName,
	}
}

// WithContext returns a logger carrying whatever business context the
// ctx holds.
func (cl *ContextLogger) WithContext(ctx context.Context) *slog.Logger {
	logger := cl.logger.With("service", cl.serviceName)

	var fields []any
	for _, key := range []ContextKey{QueryIDKey, IndexingRunIDKey, PageTitleKey, SearchTierKey} {
		if value := ctx.Value(key); value != nil {
			fields = append(fields, string(key), value)
		}
	}

	if len(fields) > 0 {
		logger = logger.With(fields...)
	}
	return logger
}

// WithQueryID tags the context with the retrieval call's query id.
func WithQueryID(ctx context.Context, queryID string) context.Context {
	return context.WithValue(ctx, QueryIDKey, queryID)
}

// WithIndexingRunID tags the context with the corpus version searched.
func WithIndexingRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, IndexingRunIDKey, runID)
}

// WithPageTitle tags the context with the wiki page being assembled.
func WithPageTitle(ctx context.Context, title string) context.Context {
	return context.WithValue(ctx, PageTitleKey, title)
}

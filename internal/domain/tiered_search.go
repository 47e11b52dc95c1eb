package domain

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// TieredSearch runs an ordered list of search tiers, falling through to
// the next tier only when the current one errors. A successful empty
// result is authoritative: it means no eligible rows exist in scope,
// not that the tier is broken. Fallback is sequential within one query;
// the tiers are not equally costly, so they are never raced.
type TieredSearch struct {
	tiers       []SearchTier
	tierTimeout time.Duration
	logger      *slog.Logger
}

// NewTieredSearch builds a TieredSearch over tiers in fallback order,
// fastest first. tierTimeout bounds each individual tier call so a
// hung tier degrades into a fallback instead of stalling the caller;
// a non-positive value leaves tier calls bounded only by the caller's
// context.
func NewTieredSearch(logger *slog.Logger, tierTimeout time.Duration, tiers ...SearchTier) *TieredSearch {
	return &TieredSearch{tiers: tiers, tierTimeout: tierTimeout, logger: logger}
}

// Search tries each tier until one succeeds. If every tier fails, the
// last tier error is returned wrapped as an external service failure.
func (t *TieredSearch) Search(ctx context.Context, queryVector []float32, scope SearchScope, limit int) ([]SearchCandidate, error) {
	if len(t.tiers) == 0 {
		return nil, ExternalServicef("no search tiers configured")
	}

	var lastErr error
	for _, tier := range t.tiers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		tierCtx := ctx
		cancel := func() {}
		if t.tierTimeout > 0 {
			tierCtx, cancel = context.WithTimeout(ctx, t.tierTimeout)
		}
		candidates, err := tier.Search(tierCtx, queryVector, scope, limit)
		cancel()
		if err != nil {
			lastErr = err
			t.logger.Warn("tier_search_failed",
				slog.String("tier", tier.Name()),
				slog.String("error", err.Error()))
			continue
		}

		if len(candidates) == 0 {
			// A genuinely empty corpus is hard to tell apart from
			// misconfiguration, so the zero-result case gets its own
			// log event.
			t.logger.Info("tier_search_empty", slog.String("tier", tier.Name()))
		} else {
			t.logger.Debug("tier_search_succeeded",
				slog.String("tier", tier.Name()),
				slog.Int("candidate_count", len(candidates)))
		}
		return candidates, nil
	}

	return nil, fmt.Errorf("%w: all %d search tiers failed: %w", ErrExternalService, len(t.tiers), lastErr)
}

var _ ChunkSearcher = (*TieredSearch)(nil)

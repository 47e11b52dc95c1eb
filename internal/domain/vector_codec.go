package domain

import (
	"strconv"
	"strings"
)

// ParseStoredEmbedding decodes the storage layer's string form of an
// embedding ("[0.1, 0.2, ...]") into a float32 slice. Every element is
// coerced through strconv; the source type is never trusted. Callers
// decide whether a failed row aborts the batch or is skipped.
func ParseStoredEmbedding(s string) ([]float32, error) {
	trimmed := strings.TrimSpace(s)
	if len(trimmed) < 2 || trimmed[0] != '[' || trimmed[len(trimmed)-1] != ']' {
		return nil, Parsef("embedding literal missing brackets: %q", truncateForLog(trimmed, 40))
	}

	body := strings.TrimSpace(trimmed[1 : len(trimmed)-1])
	if body == "" {
		return nil, Parsef("embedding literal has no elements")
	}

	parts := strings.Split(body, ",")
	vec := make([]float32, len(parts))
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return nil, Parsef("embedding element %d: %v", i, err)
		}
		vec[i] = float32(f)
	}
	return vec, nil
}

func truncateForLog(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

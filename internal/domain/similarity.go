package domain

import "math"

// CosineSimilarity computes the cosine of the angle between a and b.
// Mismatched lengths are a caller error, never silently truncated. A
// zero-magnitude vector carries no directional information, so its
// similarity is 0 by convention. The result is clamped to [-1, 1] to
// absorb floating-point drift before threshold comparisons.
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, InvalidInputf("vector length mismatch: %d vs %d", len(a), len(b))
	}

	var dot, normA, normB float64
	for i := range a {
		x := float64(a[i])
		y := float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}

	if normA == 0 || normB == 0 {
		return 0, nil
	}

	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	if sim > 1 {
		return 1, nil
	}
	if sim < -1 {
		return -1, nil
	}
	return sim, nil
}

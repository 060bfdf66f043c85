package retrieval

import (
	"fmt"
	"math"
	"sort"
)

// ErrVectorLength is returned when two vectors of different dimensionality
// are compared. Unequal lengths always indicate a wiring bug (mixed embedding
// models or a truncated provider response), so this fails loudly rather than
// silently scoring zero.
var ErrVectorLength = fmt.Errorf("retrieval: vectors have different lengths")

// CosineSimilarity returns the cosine similarity of a and b in [-1, 1].
// When either vector has zero norm the similarity is defined as 0.0 — that
// is a valid score, not an error, and never produces NaN.
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d vs %d", ErrVectorLength, len(a), len(b))
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}

	denom := math.Sqrt(normA) * math.Sqrt(normB)
	if denom == 0 {
		return 0, nil
	}
	return dot / denom, nil
}

// scoredCandidate pairs a candidate with its similarity score during ranking.
// It never escapes SelectTopK.
type scoredCandidate struct {
	score     float64
	candidate VectorizedMessage
}

// SelectTopK returns the k candidates most similar to query, in descending
// similarity order. Ties preserve input order (stable sort), so the result is
// deterministic for a deterministic input. Fewer than k candidates returns
// them all; an empty candidate set returns an empty result, never an error.
// A dimensionality mismatch between query and any candidate is a contract
// violation and fails the whole call.
func SelectTopK(query []float32, candidates []VectorizedMessage, k int) ([]VectorizedMessage, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	scored := make([]scoredCandidate, len(candidates))
	for i, c := range candidates {
		score, err := CosineSimilarity(query, c.Vector)
		if err != nil {
			return nil, fmt.Errorf("retrieval: candidate %q: %w", c.Message.ID, err)
		}
		scored[i] = scoredCandidate{score: score, candidate: c}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].score > scored[j].score
	})

	limit := min(k, len(scored))
	if limit < 0 {
		limit = 0
	}
	result := make([]VectorizedMessage, limit)
	for i := 0; i < limit; i++ {
		result[i] = scored[i].candidate
	}
	return result, nil
}

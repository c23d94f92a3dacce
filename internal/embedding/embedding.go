// Package embedding turns free text into fixed-length vectors for
// nearest-neighbor similarity. The primary path asks a language model to act
// as a feature extractor; when it times out or misbehaves, a deterministic
// offline fallback keeps writes succeeding.
package embedding

import (
	"fmt"
	"math"
)

const (
	// Dimensions is the stored vector width. Constant across all rows: the
	// vector index and the similarity operator assume it.
	Dimensions = 1536

	// FeatureCount is how many leading positions carry meaningful features;
	// everything beyond is zero padding.
	FeatureCount = 20
)

// Pad copies features into a Dimensions-length vector, truncating extra
// positions and zero-filling the rest.
func Pad(features []float32) []float32 {
	vec := make([]float32, Dimensions)
	copy(vec, features)
	return vec
}

// Similarity computes cosine similarity between two vectors. It fails on
// unequal lengths rather than silently comparing mismatched spaces.
func Similarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("vector length mismatch: %d vs %d", len(a), len(b))
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0, nil
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}

// ComposeDecisionText builds the canonical text embedded for a decision. The
// exact format is load-bearing: the fallback hash depends on the character
// sequence, so changing it changes every fallback vector.
func ComposeDecisionText(decision, reasoning, decisionType string) string {
	return decisionType + ": " + decision + "\n" + reasoning
}

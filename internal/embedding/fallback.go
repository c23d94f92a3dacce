package embedding

import "strings"

// Fallback derives a deterministic offline embedding from the text alone.
// Two rolling accumulators over the raw bytes seed five explicit features
// (hash values, length, word count, line count) and fifteen positional
// pseudo-random features. Pure function: identical text always yields a
// bit-identical vector, so even the degraded path supports coarse similarity
// and exact test assertions.
func Fallback(text string) []float32 {
	var h1, h2 uint32
	for i := 0; i < len(text); i++ {
		c := uint32(text[i])
		h1 = h1*31 + c
		h2 = h2*37 + c
	}

	features := make([]float32, FeatureCount)
	features[0] = float32(h1%2000)/1000 - 1 // [-1, 1)
	features[1] = float32(h2%1000) / 1000   // [0, 1)
	features[2] = capUnit(float32(len(text)) / 1000)
	features[3] = capUnit(float32(len(strings.Fields(text))) / 100)
	features[4] = capUnit(float32(1+strings.Count(text, "\n")) / 50)

	for i := 5; i < FeatureCount; i++ {
		seed := h1 + h2*uint32(i)
		features[i] = float32(seed%2000)/1000 - 1
	}

	return Pad(features)
}

func capUnit(v float32) float32 {
	if v > 1 {
		return 1
	}
	return v
}

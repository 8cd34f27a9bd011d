package match

import "math"

// termFrequencies builds a weighted term-frequency vector from content
// tokens. Frequencies are log-damped (1 + ln(count)) so a term repeated many
// times does not drown out the rest of the document.
func termFrequencies(tokens []string) map[string]float64 {
	counts := make(map[string]int, len(tokens))
	for _, tok := range tokens {
		counts[tok]++
	}
	vec := make(map[string]float64, len(counts))
	for term, count := range counts {
		vec[term] = 1.0 + math.Log(float64(count))
	}
	return vec
}

// cosineSimilarity computes the cosine of two sparse vectors, clamped to
// [0, 1] to absorb floating-point noise.
func cosineSimilarity(a, b map[string]float64) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}

	// Iterate the smaller vector for the dot product.
	if len(b) < len(a) {
		a, b = b, a
	}

	dot := 0.0
	for term, weight := range a {
		if other, ok := b[term]; ok {
			dot += weight * other
		}
	}
	if dot == 0 {
		return 0.0
	}

	normA := 0.0
	for _, weight := range a {
		normA += weight * weight
	}
	normB := 0.0
	for _, weight := range b {
		normB += weight * weight
	}

	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	return clamp01(sim)
}

// semanticSimilarity vectorizes both normalized texts into a shared
// term-frequency space and returns their cosine similarity in [0, 1].
func semanticSimilarity(normalizedResume, normalizedJob string) float64 {
	resumeVec := termFrequencies(contentTokens(normalizedResume))
	jobVec := termFrequencies(contentTokens(normalizedJob))
	return cosineSimilarity(resumeVec, jobVec)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

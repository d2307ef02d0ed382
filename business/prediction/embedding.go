package prediction

import (
	"math"

	"adserve/domain"
)

// MeanEmbedding averages the user's recent page embeddings element-wise.
// Events with a dimension different from the first are skipped.
func MeanEmbedding(events []domain.TextEmbeddingEvent) []float32 {
	if len(events) == 0 {
		return nil
	}

	dim := len(events[0].Embedding)
	if dim == 0 {
		return nil
	}

	sum := make([]float64, dim)
	count := 0

	for _, ev := range events {
		if len(ev.Embedding) != dim {
			continue
		}
		for i, v := range ev.Embedding {
			sum[i] += float64(v)
		}
		count++
	}

	if count == 0 {
		return nil
	}

	mean := make([]float32, dim)
	for i := range sum {
		mean[i] = float32(sum[i] / float64(count))
	}
	return mean
}

// CosineSimilarity returns the cosine of the angle between two vectors, or 0
// when either vector is empty, mismatched or zero-length.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

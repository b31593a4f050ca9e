package vectorDB

import (
	"fmt"
	"math"
	"sort"
)

// CosineDistance returns 1 - cosine similarity, in [0, 2].
func CosineDistance(a, b []float32) (float32, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%d != %d: %w", len(a), len(b), ErrDimensionMismatch)
	}
	if len(a) == 0 {
		return 0, fmt.Errorf("empty vectors")
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 1, nil
	}

	distance := 1 - dot/(math.Sqrt(normA)*math.Sqrt(normB))
	if distance < 0 {
		distance = 0
	} else if distance > 2 {
		distance = 2
	}
	return float32(distance), nil
}

type Scored struct {
	Index    int
	Distance float32
}

// TopK ranks candidates by distance to query and keeps the k nearest.
// Ties keep candidate order.
func TopK(query []float32, candidates [][]float32, k int) ([]Scored, error) {
	scored := make([]Scored, 0, len(candidates))
	for i, c := range candidates {
		d, err := CosineDistance(query, c)
		if err != nil {
			return nil, fmt.Errorf("candidate %d: %w", i, err)
		}
		scored = append(scored, Scored{Index: i, Distance: d})
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Distance < scored[j].Distance
	})
	if k >= 0 && len(scored) > k {
		scored = scored[:k]
	}
	return scored, nil
}

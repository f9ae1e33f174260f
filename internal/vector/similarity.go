// Package vector provides the similarity maths used by the stores and
// the retriever: cosine similarity, brute-force nearest neighbours and
// maximal marginal relevance selection.
package vector

import (
	"math"
	"sort"
)

// CosineSimilarity returns the cosine of the angle between a and b,
// in [-1, 1]. Mismatched, empty or zero vectors score 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
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

// Scored is a candidate index with its similarity to a query.
type Scored struct {
	Index      int
	Similarity float64
}

// TopK ranks candidates by cosine similarity to query and returns at
// most k of them, best first. Ties keep candidate order.
func TopK(query []float32, candidates [][]float32, k int) []Scored {
	if k <= 0 || len(candidates) == 0 {
		return nil
	}

	scored := make([]Scored, len(candidates))
	for i, c := range candidates {
		scored[i] = Scored{Index: i, Similarity: CosineSimilarity(query, c)}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Similarity > scored[j].Similarity
	})

	if k < len(scored) {
		scored = scored[:k]
	}
	return scored
}

// MMR greedily selects k candidates balancing relevance to the query
// against redundancy with what is already selected:
//
//	score = (1-diversity)*sim(q, d) - diversity*max(sim(d, s))
//
// diversity 0 is pure relevance ranking. Returns candidate indices in
// selection order.
func MMR(query []float32, candidates [][]float32, k int, diversity float64) []int {
	if k <= 0 || len(candidates) == 0 {
		return nil
	}
	if k > len(candidates) {
		k = len(candidates)
	}

	relevance := make([]float64, len(candidates))
	for i, c := range candidates {
		relevance[i] = CosineSimilarity(query, c)
	}

	// maxSim[i] tracks the highest similarity of candidate i to any selected one.
	maxSim := make([]float64, len(candidates))
	for i := range maxSim {
		maxSim[i] = math.Inf(-1)
	}
	used := make([]bool, len(candidates))
	selected := make([]int, 0, k)

	for len(selected) < k {
		best := -1
		bestScore := math.Inf(-1)
		for i := range candidates {
			if used[i] {
				continue
			}
			redundancy := 0.0
			if len(selected) > 0 {
				redundancy = maxSim[i]
			}
			score := (1-diversity)*relevance[i] - diversity*redundancy
			if score > bestScore {
				best, bestScore = i, score
			}
		}

		used[best] = true
		selected = append(selected, best)

		for i, c := range candidates {
			if used[i] {
				continue
			}
			if s := CosineSimilarity(candidates[best], c); s > maxSim[i] {
				maxSim[i] = s
			}
		}
	}

	return selected
}

// Package rank scores stored vectors against a hybrid query.
//
// Dense similarity is the inner product of the two embeddings, sparse
// similarity is the dot product over shared term indices. Both raw scores
// are squashed into (0, 1) with 0.5 + atan(s)/π before they are weighted
// and summed, so neither ranking dominates by scale alone.
package rank

import (
	"math"
	"sort"

	"github.com/custodia-labs/tinyrag/internal/core/domain"
)

// Dense returns the inner product of a and b. Vectors of different
// length score 0.
func Dense(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot
}

// Cosine returns the cosine similarity of a and b.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	denom := math.Sqrt(normA) * math.Sqrt(normB)
	if denom == 0 {
		return 0
	}
	return dot / denom
}

// Sparse returns the dot product of two sparse vectors.
func Sparse(a, b map[uint32]float32) float64 {
	if len(a) > len(b) {
		a, b = b, a
	}
	var dot float64
	for k, v := range a {
		if w, ok := b[k]; ok {
			dot += float64(v) * float64(w)
		}
	}
	return dot
}

// Normalize maps a raw similarity into (0, 1).
func Normalize(s float64) float64 {
	return 0.5 + math.Atan(s)/math.Pi
}

// Score returns the weighted hybrid score of rec against q. A side of the
// query that is empty contributes nothing.
func Score(q domain.SearchQuery, rec *domain.VectorRecord, params domain.SearchParams) float64 {
	var score float64
	if len(q.Dense) > 0 && params.DenseWeight != 0 {
		score += params.DenseWeight * Normalize(Dense(q.Dense, rec.Embedding.Dense))
	}
	if len(q.Sparse) > 0 && params.SparseWeight != 0 {
		score += params.SparseWeight * Normalize(Sparse(q.Sparse, rec.Embedding.Sparse))
	}
	return score
}

// TopK scores every record and returns the best params.Limit hits,
// highest score first. Ties keep the input order.
func TopK(q domain.SearchQuery, records []domain.VectorRecord, params domain.SearchParams) []domain.VectorHit {
	hits := make([]domain.VectorHit, 0, len(records))
	for i := range records {
		hits = append(hits, domain.VectorHit{
			Record: records[i],
			Score:  Score(q, &records[i], params),
		})
	}
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})
	if params.Limit > 0 && len(hits) > params.Limit {
		hits = hits[:params.Limit]
	}
	return hits
}

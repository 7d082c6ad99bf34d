// Package similarity scores and ranks vectors for the brute-force stores.
//
// Every metric is oriented so that a higher score means more similar:
// euclidean distance is negated.
package similarity

import (
	"math"
	"sort"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// Scorer scores candidate vectors against a fixed query.
type Scorer struct {
	metric domain.Metric
	query  []float32
	qmag   float64
}

// NewScorer prepares a scorer. The query magnitude is computed once.
func NewScorer(metric domain.Metric, query []float32) *Scorer {
	return &Scorer{
		metric: metric,
		query:  query,
		qmag:   Magnitude(query),
	}
}

// Score returns the similarity of v to the query.
// Vectors must have the query's dimension.
func (s *Scorer) Score(v []float32) float64 {
	switch s.metric {
	case domain.MetricDot:
		return Dot(s.query, v)
	case domain.MetricEuclidean:
		return -Euclidean(s.query, v)
	default:
		mag := Magnitude(v)
		if s.qmag == 0 || mag == 0 {
			return 0
		}
		return Dot(s.query, v) / (s.qmag * mag)
	}
}

// Dot returns the inner product of a and b.
func Dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

// Magnitude returns the Euclidean norm of v.
func Magnitude(v []float32) float64 {
	return math.Sqrt(Dot(v, v))
}

// Euclidean returns the L2 distance between a and b.
func Euclidean(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}

// Rank orders matches by descending score and keeps the best topK.
// Ties are broken by record ID so results are deterministic.
// NaN scores are dropped.
func Rank(matches []domain.Match, topK int) []domain.Match {
	kept := matches[:0]
	for _, m := range matches {
		if !math.IsNaN(m.Score) {
			kept = append(kept, m)
		}
	}

	sort.SliceStable(kept, func(i, j int) bool {
		if kept[i].Score != kept[j].Score {
			return kept[i].Score > kept[j].Score
		}
		return kept[i].Record.ID < kept[j].Record.ID
	})

	if topK > 0 && topK < len(kept) {
		kept = kept[:topK]
	}
	return kept
}

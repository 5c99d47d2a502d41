// Package importance attributes risk contribution to the seven feature
// categories. Attribution uses first-layer weights only: it is a cheap
// relevance proxy, not a gradient or SHAP explanation.
package importance

import (
	"math"

	"token-risk-lab/internal/domain"
	"token-risk-lab/internal/features"
	"token-risk-lab/internal/model"
)

// Analyze accumulates per-feature contributions through the first layer and
// returns normalised category importances.
//
// Ternary layers add |x_i| for every non-zero weight; dense layers add
// |w_ij · x_i|.
func Analyze(first model.Layer, v features.Vector) map[domain.Category]float64 {
	var perFeature [features.Count]float64

	switch l := first.(type) {
	case *model.TernaryLayer:
		for j := 0; j < l.Cols(); j++ {
			for i := 0; i < l.Rows() && i < features.Count; i++ {
				if l.Weight(i, j) != 0 {
					perFeature[i] += math.Abs(float64(v[i]))
				}
			}
		}
	case *model.DenseLayer:
		for j := 0; j < l.Cols(); j++ {
			for i := 0; i < l.Rows() && i < features.Count; i++ {
				perFeature[i] += math.Abs(float64(l.Weight(i, j)) * float64(v[i]))
			}
		}
	}

	return FromFeatures(perFeature)
}

// FromFeatures sums per-feature totals into categories and normalises them.
func FromFeatures(perFeature [features.Count]float64) map[domain.Category]float64 {
	totals := make(map[domain.Category]float64, len(domain.Categories))
	for _, r := range features.CategoryRanges {
		for i := r.Start; i < r.End; i++ {
			totals[r.Category] += perFeature[i]
		}
	}
	return Normalize(totals)
}

// Normalize scales category totals to sum to 1. Negative totals count as 0.
// When nothing contributed, every category gets an equal share.
func Normalize(totals map[domain.Category]float64) map[domain.Category]float64 {
	sum := 0.0
	for _, c := range domain.Categories {
		sum += math.Max(0, totals[c])
	}
	if sum == 0 || math.IsNaN(sum) || math.IsInf(sum, 0) {
		return Uniform()
	}

	out := make(map[domain.Category]float64, len(domain.Categories))
	for _, c := range domain.Categories {
		out[c] = math.Max(0, totals[c]) / sum
	}
	return out
}

// Uniform returns equal importance for every category.
func Uniform() map[domain.Category]float64 {
	out := make(map[domain.Category]float64, len(domain.Categories))
	share := 1 / float64(len(domain.Categories))
	for _, c := range domain.Categories {
		out[c] = share
	}
	return out
}

// Accumulator collects per-category contributions incrementally.
// The rule-based scorer feeds it one penalty at a time.
type Accumulator struct {
	totals map[domain.Category]float64
}

// NewAccumulator creates an empty accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{totals: make(map[domain.Category]float64, len(domain.Categories))}
}

// Add records a contribution for a category.
func (a *Accumulator) Add(c domain.Category, amount float64) {
	a.totals[c] += amount
}

// Normalized returns the normalised category importances.
func (a *Accumulator) Normalized() map[domain.Category]float64 {
	return Normalize(a.totals)
}

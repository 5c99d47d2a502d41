package features

import "sort"

// Gini computes the Gini coefficient of a holder-percentage distribution.
//
// Values are sorted ascending and G = 2·Σ(i·x_i)/(n·Σx_i) − (n+1)/n with i
// 1-based, clamped to [0,1]. A list of zero or one element, or one whose mean
// is zero, yields 0.
func Gini(pcts []float64) float64 {
	n := len(pcts)
	if n <= 1 {
		return 0
	}

	sorted := make([]float64, n)
	copy(sorted, pcts)
	sort.Float64s(sorted)

	sum := 0.0
	weighted := 0.0
	for i, x := range sorted {
		sum += x
		weighted += float64(i+1) * x
	}
	if sum/float64(n) == 0 {
		return 0
	}

	nf := float64(n)
	g := (2*weighted)/(nf*sum) - (nf+1)/nf
	return clamp01(g)
}

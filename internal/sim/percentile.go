package sim

import (
	"math"
	"slices"
)

// Percentile returns the p-th percentile (0..100) of values using linear
// interpolation between order statistics: the rank is p/100*(n-1) and
// fractional ranks blend the two neighbouring sorted values. p is clamped
// to [0, 100]. Returns NaN for an empty slice. values is not modified.
func Percentile(values []float64, p float64) float64 {
	n := len(values)
	if n == 0 {
		return math.NaN()
	}

	sorted := slices.Clone(values)
	slices.Sort(sorted)

	p = math.Max(0, math.Min(100, p))
	rank := p / 100 * float64(n-1)
	lower := int(math.Floor(rank))
	upper := int(math.Ceil(rank))
	if upper >= n {
		upper = n - 1
	}
	if lower == upper {
		return sorted[lower]
	}

	frac := rank - float64(lower)
	return sorted[lower] + frac*(sorted[upper]-sorted[lower])
}

package analytics

import (
	"math"
	"sort"
)

// Round rounds x to the given number of decimal places, half away from zero.
func Round(x float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(x*p) / p
}

// Percentile returns the p-th percentile (0-100) of values using linear
// interpolation between closest ranks. It returns 0 for an empty input.
func Percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	return percentileSorted(sorted, p)
}

func percentileSorted(sorted []float64, p float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	rank := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	return sorted[lo] + (sorted[hi]-sorted[lo])*(rank-float64(lo))
}

// Median is the 50th percentile.
func Median(values []float64) float64 {
	return Percentile(values, 50)
}

// Mean returns the arithmetic mean, or 0 for an empty input.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// ClipUpper returns a copy of values with every element capped at limit.
func ClipUpper(values []float64, limit float64) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = math.Min(v, limit)
	}
	return out
}

// ClipAtPercentile caps values at their own p-th percentile.
func ClipAtPercentile(values []float64, p float64) []float64 {
	return ClipUpper(values, Percentile(values, p))
}

func pct(part, whole int, places int) float64 {
	if whole == 0 {
		return 0
	}
	return Round(float64(part)/float64(whole)*100, places)
}

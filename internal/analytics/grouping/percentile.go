package grouping

import (
	"math"
	"sort"
)

// Percentile returns the p-th percentile (0-100) of values using linear interpolation between
// closest ranks. NaN values are ignored; an empty input yields NaN.
func Percentile(values []float64, p float64) float64 {
	sorted := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			sorted = append(sorted, v)
		}
	}
	if len(sorted) == 0 {
		return math.NaN()
	}
	sort.Float64s(sorted)
	return percentileSorted(sorted, p)
}

// percentileSorted calculates the p-th percentile of already sorted, NaN-free data
func percentileSorted(sortedData []float64, p float64) float64 {
	if len(sortedData) == 1 {
		return sortedData[0]
	}

	index := (p / 100) * float64(len(sortedData)-1)
	lower := int(math.Floor(index))
	upper := lower + 1

	if upper >= len(sortedData) {
		return sortedData[len(sortedData)-1]
	}

	weight := index - float64(lower)
	return sortedData[lower]*(1-weight) + sortedData[upper]*weight
}

// Quartiles returns Q1, Q3 and IQR of values, NaN-aware
func Quartiles(values []float64) (q1, q3, iqr float64) {
	q1 = Percentile(values, 25)
	q3 = Percentile(values, 75)
	return q1, q3, q3 - q1
}

// Package stats computes the audit statistics of an ideal grouping: basic descriptive
// statistics, recovery/difference ratios against a reference concentration, method detection
// limits, and meteorological cross-check differences.
package stats

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/soltixdb/airaudit/internal/analytics"
)

// Basic holds descriptive statistics of a sequence
type Basic struct {
	Count  int     `json:"count"`
	Min    float64 `json:"minimum"`
	Median float64 `json:"median"`
	Max    float64 `json:"maximum"`
	Mean   float64 `json:"mean"`
	SD     float64 `json:"sd"`
}

// ComputeBasic returns min, median, max, mean and the sample standard deviation (n-1) of the
// non-missing values. A single value has SD 0.
func ComputeBasic(values []float64) (Basic, error) {
	clean := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			clean = append(clean, v)
		}
	}
	if len(clean) == 0 {
		return Basic{}, fmt.Errorf("basic statistics: %w", analytics.ErrEmptySeries)
	}

	sorted := make([]float64, len(clean))
	copy(sorted, clean)
	sort.Float64s(sorted)

	b := Basic{
		Count:  len(clean),
		Min:    floats.Min(clean),
		Max:    floats.Max(clean),
		Median: median(sorted),
		Mean:   stat.Mean(clean, nil),
	}
	if len(clean) > 1 {
		b.SD = stat.StdDev(clean, nil)
	}
	return b, nil
}

// ComputeSeries is ComputeBasic over a channel series
func ComputeSeries(series analytics.TimeSeriesData) (Basic, error) {
	return ComputeBasic(series.Values())
}

// median of sorted data, averaging the two middle values for even counts
func median(sorted []float64) float64 {
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

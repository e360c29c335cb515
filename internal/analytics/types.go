// Package analytics provides the shared time-series types and error kinds used by the
// audit computations (grouping, statistics, MDL).
package analytics

import (
	"math"
	"time"
)

// TimeSeriesPoint is a single sample of one channel. A missing measurement is stored as NaN.
type TimeSeriesPoint struct {
	Time  time.Time
	Value float64
}

// Missing reports whether the sample carries no measurement
func (p TimeSeriesPoint) Missing() bool {
	return math.IsNaN(p.Value)
}

// TimeSeriesData is an ordered-by-time sequence of samples for one channel
type TimeSeriesData []TimeSeriesPoint

// Values extracts the non-missing values, preserving order
func (ts TimeSeriesData) Values() []float64 {
	values := make([]float64, 0, len(ts))
	for _, p := range ts {
		if p.Missing() {
			continue
		}
		values = append(values, p.Value)
	}
	return values
}

// Times extracts just the times from the time series
func (ts TimeSeriesData) Times() []time.Time {
	times := make([]time.Time, len(ts))
	for i, p := range ts {
		times[i] = p.Time
	}
	return times
}

// Len returns the number of data points, missing ones included
func (ts TimeSeriesData) Len() int {
	return len(ts)
}

// DropMissing returns a copy of the series without missing samples
func (ts TimeSeriesData) DropMissing() TimeSeriesData {
	out := make(TimeSeriesData, 0, len(ts))
	for _, p := range ts {
		if !p.Missing() {
			out = append(out, p)
		}
	}
	return out
}

// Clone returns an independent copy of the series
func (ts TimeSeriesData) Clone() TimeSeriesData {
	out := make(TimeSeriesData, len(ts))
	copy(out, ts)
	return out
}

// Mean calculates the mean of the non-missing values. Returns NaN for an empty series.
func (ts TimeSeriesData) Mean() float64 {
	sum := 0.0
	n := 0
	for _, p := range ts {
		if p.Missing() {
			continue
		}
		sum += p.Value
		n++
	}
	if n == 0 {
		return math.NaN()
	}
	return sum / float64(n)
}

// IsSubsequenceOf reports whether every sample of ts appears in other in the same order
func (ts TimeSeriesData) IsSubsequenceOf(other TimeSeriesData) bool {
	j := 0
	for _, p := range ts {
		for j < len(other) && !(other[j].Time.Equal(p.Time) && sameValue(other[j].Value, p.Value)) {
			j++
		}
		if j == len(other) {
			return false
		}
		j++
	}
	return true
}

func sameValue(a, b float64) bool {
	return a == b || (math.IsNaN(a) && math.IsNaN(b))
}

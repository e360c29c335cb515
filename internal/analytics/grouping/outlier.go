package grouping

import (
	"github.com/soltixdb/airaudit/internal/analytics"
)

// DefaultIQRMultiplier is the conventional Tukey fence multiplier
const DefaultIQRMultiplier = 1.5

// RemoveOutliers keeps the samples inside [Q1 - k*IQR, Q3 + k*IQR], preserving order.
// Missing samples are excluded from the percentiles and from the output.
// When IQR is zero the fence collapses to a point and only values equal to it survive.
func RemoveOutliers(series analytics.TimeSeriesData, multiplier float64) analytics.TimeSeriesData {
	clean := series.DropMissing()
	if len(clean) == 0 {
		return clean
	}

	q1, q3, iqr := Quartiles(clean.Values())
	lowerBound := q1 - multiplier*iqr
	upperBound := q3 + multiplier*iqr

	kept := make(analytics.TimeSeriesData, 0, len(clean))
	for _, p := range clean {
		if p.Value >= lowerBound && p.Value <= upperBound {
			kept = append(kept, p)
		}
	}
	return kept
}

package stats

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/soltixdb/airaudit/internal/analytics"
)

// Audit holds recovery and difference ratios against a reference concentration.
// RangePercentDifference is NaN when max+min is zero.
type Audit struct {
	Reference              float64
	PercentRecovery        float64
	MaxPercentRecovery     float64
	MinPercentRecovery     float64
	PercentDifference      float64
	RangePercentDifference float64
}

// ComputeAudit derives the audit ratios from basic statistics
func ComputeAudit(b Basic, reference float64) (Audit, error) {
	if !(reference > 0) {
		return Audit{}, fmt.Errorf("reference %v: %w", reference, analytics.ErrInvalidReference)
	}

	a := Audit{
		Reference:              reference,
		PercentRecovery:        100 * (b.Mean / reference),
		MaxPercentRecovery:     100 * (b.Max / reference),
		MinPercentRecovery:     100 * (b.Min / reference),
		PercentDifference:      100 * (math.Abs(b.Mean-reference) / reference),
		RangePercentDifference: math.NaN(),
	}
	if avg := (b.Max + b.Min) / 2; avg != 0 {
		a.RangePercentDifference = 100 * (b.Max - b.Min) / avg
	}
	return a, nil
}

// RangeDifference returns RangePercentDifference, or ErrUndefinedRatio when it has no value
func (a Audit) RangeDifference() (float64, error) {
	if math.IsNaN(a.RangePercentDifference) {
		return 0, analytics.ErrUndefinedRatio
	}
	return a.RangePercentDifference, nil
}

// MarshalJSON renders an undefined range difference as null
func (a Audit) MarshalJSON() ([]byte, error) {
	var rangeDiff *float64
	if v, err := a.RangeDifference(); err == nil {
		rangeDiff = &v
	}
	return json.Marshal(struct {
		Reference              float64  `json:"reference"`
		PercentRecovery        float64  `json:"percent_recovery"`
		MaxPercentRecovery     float64  `json:"max_percent_recovery"`
		MinPercentRecovery     float64  `json:"min_percent_recovery"`
		PercentDifference      float64  `json:"percent_difference"`
		RangePercentDifference *float64 `json:"range_percent_difference"`
	}{
		Reference:              a.Reference,
		PercentRecovery:        a.PercentRecovery,
		MaxPercentRecovery:     a.MaxPercentRecovery,
		MinPercentRecovery:     a.MinPercentRecovery,
		PercentDifference:      a.PercentDifference,
		RangePercentDifference: rangeDiff,
	})
}

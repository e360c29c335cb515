package stats

import (
	"fmt"
	"math"
	"time"

	"github.com/soltixdb/airaudit/internal/analytics"
)

// MetPair couples an instrument channel with the reference channel it is checked against
type MetPair struct {
	Name       string
	Instrument analytics.TimeSeriesData
	Reference  analytics.TimeSeriesData
}

// MetRow is one aligned timestamp of a met comparison
type MetRow struct {
	Time              time.Time `json:"time"`
	Instrument        float64   `json:"instrument"`
	Reference         float64   `json:"reference"`
	PercentDifference float64   `json:"percent_difference"`
}

// MetComparison summarizes the percent difference of one met variable
type MetComparison struct {
	Name      string   `json:"name"`
	Matched   int      `json:"matched"`
	Undefined int      `json:"undefined"`
	Rows      []MetRow `json:"rows"`
	Stats     *Basic   `json:"stats"`
}

// CompareMet aligns each pair on identical timestamps and computes 100·|a−b|/a per row.
// Rows where the instrument reads zero have no defined ratio and are counted as Undefined.
func CompareMet(pairs []MetPair) ([]MetComparison, error) {
	out := make([]MetComparison, 0, len(pairs))
	for _, pair := range pairs {
		cmp, err := compareOne(pair)
		if err != nil {
			return nil, fmt.Errorf("met variable %q: %w", pair.Name, err)
		}
		out = append(out, cmp)
	}
	return out, nil
}

func compareOne(pair MetPair) (MetComparison, error) {
	reference := make(map[int64]float64, len(pair.Reference))
	for _, p := range pair.Reference {
		if !p.Missing() {
			reference[p.Time.UnixNano()] = p.Value
		}
	}

	cmp := MetComparison{Name: pair.Name, Rows: []MetRow{}}
	diffs := make([]float64, 0, len(pair.Instrument))
	for _, p := range pair.Instrument {
		if p.Missing() {
			continue
		}
		ref, ok := reference[p.Time.UnixNano()]
		if !ok {
			continue
		}
		cmp.Matched++
		if p.Value == 0 {
			cmp.Undefined++
			continue
		}
		diff := 100 * math.Abs(p.Value-ref) / p.Value
		cmp.Rows = append(cmp.Rows, MetRow{
			Time:              p.Time,
			Instrument:        p.Value,
			Reference:         ref,
			PercentDifference: diff,
		})
		diffs = append(diffs, diff)
	}

	if len(diffs) == 0 {
		return cmp, nil
	}
	b, err := ComputeBasic(diffs)
	if err != nil {
		return cmp, err
	}
	cmp.Stats = &b
	return cmp, nil
}

package stats

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soltixdb/airaudit/internal/analytics"
)

func TestComputeBasic(t *testing.T) {
	b, err := ComputeBasic([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	require.NoError(t, err)

	assert.Equal(t, 8, b.Count)
	assert.Equal(t, 2.0, b.Min)
	assert.Equal(t, 9.0, b.Max)
	assert.Equal(t, 4.5, b.Median)
	assert.InDelta(t, 5.0, b.Mean, 1e-12)
	assert.InDelta(t, math.Sqrt(32.0/7.0), b.SD, 1e-12)
}

func TestComputeBasic_Ordering(t *testing.T) {
	inputs := [][]float64{
		{1},
		{3, -1},
		{10.1, 10.3, 9.9, 10.2, 10.0, 9.8, 10.4},
		{-5, 100, 0.5, 0.25, 7},
	}
	for _, values := range inputs {
		b, err := ComputeBasic(values)
		require.NoError(t, err)
		assert.LessOrEqual(t, b.Min, b.Median)
		assert.LessOrEqual(t, b.Median, b.Max)
		assert.GreaterOrEqual(t, b.Mean, b.Min)
		assert.LessOrEqual(t, b.Mean, b.Max)
		assert.GreaterOrEqual(t, b.SD, 0.0)
	}
}

func TestComputeBasic_Constant(t *testing.T) {
	b, err := ComputeBasic([]float64{4.2, 4.2, 4.2, 4.2})
	require.NoError(t, err)

	assert.Equal(t, 4.2, b.Min)
	assert.Equal(t, 4.2, b.Median)
	assert.Equal(t, 4.2, b.Max)
	assert.InDelta(t, 4.2, b.Mean, 1e-12)
	assert.InDelta(t, 0.0, b.SD, 1e-12)
}

func TestComputeBasic_Empty(t *testing.T) {
	_, err := ComputeBasic(nil)
	assert.ErrorIs(t, err, analytics.ErrEmptySeries)

	_, err = ComputeBasic([]float64{math.NaN(), math.NaN()})
	assert.ErrorIs(t, err, analytics.ErrEmptySeries)
}

func TestComputeBasic_SingleValue(t *testing.T) {
	b, err := ComputeBasic([]float64{math.NaN(), 3.5})
	require.NoError(t, err)
	assert.Equal(t, 1, b.Count)
	assert.Equal(t, 0.0, b.SD)
}

func TestComputeAudit(t *testing.T) {
	b := Basic{Min: 9, Max: 11, Mean: 10, Median: 10}

	a, err := ComputeAudit(b, 10)
	require.NoError(t, err)

	assert.Equal(t, 100.0, a.PercentRecovery)
	assert.Equal(t, 0.0, a.PercentDifference)
	assert.InDelta(t, 110.0, a.MaxPercentRecovery, 1e-12)
	assert.InDelta(t, 90.0, a.MinPercentRecovery, 1e-12)
	assert.InDelta(t, 20.0, a.RangePercentDifference, 1e-12)

	rd, err := a.RangeDifference()
	require.NoError(t, err)
	assert.InDelta(t, 20.0, rd, 1e-12)
}

func TestComputeAudit_MeanEqualsReference(t *testing.T) {
	for _, c := range []float64{0.3, 1, 7.77, 125.5} {
		a, err := ComputeAudit(Basic{Min: c, Max: c, Mean: c}, c)
		require.NoError(t, err)
		assert.Equal(t, 100.0, a.PercentRecovery)
		assert.Equal(t, 0.0, a.PercentDifference)
	}
}

func TestComputeAudit_PercentDifference(t *testing.T) {
	a, err := ComputeAudit(Basic{Min: 8, Max: 9, Mean: 8.5}, 10)
	require.NoError(t, err)
	assert.InDelta(t, 85.0, a.PercentRecovery, 1e-12)
	assert.InDelta(t, 15.0, a.PercentDifference, 1e-12)
}

func TestComputeAudit_InvalidReference(t *testing.T) {
	for _, c := range []float64{0, -1, math.NaN()} {
		_, err := ComputeAudit(Basic{Min: 1, Max: 2, Mean: 1.5}, c)
		assert.ErrorIs(t, err, analytics.ErrInvalidReference)
	}
}

func TestComputeAudit_UndefinedRange(t *testing.T) {
	a, err := ComputeAudit(Basic{Min: -0.5, Max: 0.5, Mean: 0}, 2)
	require.NoError(t, err)

	assert.True(t, math.IsNaN(a.RangePercentDifference))
	_, err = a.RangeDifference()
	assert.ErrorIs(t, err, analytics.ErrUndefinedRatio)

	data, err := json.Marshal(a)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"range_percent_difference":null`)
	assert.Contains(t, string(data), `"percent_recovery":0`)
}

func TestStudentTCritical(t *testing.T) {
	// One-sided 99% values from the standard table
	table := map[int]float64{
		6:  3.143,
		7:  2.998,
		9:  2.821,
		15: 2.602,
		30: 2.457,
		99: 2.365,
	}
	for df, want := range table {
		assert.InDelta(t, want, StudentTCritical(df, 0.99), 0.0006, "df=%d", df)
	}
}

func TestMDLEstimator_StudentTBranch(t *testing.T) {
	spike := []float64{10.1, 10.3, 9.9, 10.2, 10.0, 9.8, 10.4}
	blank := []float64{0.1, 0.05, 0.0, 0.08, 0.02, 0.12, 0.03}

	res, err := NewMDLEstimator(0.99, 100).Estimate(spike, blank)
	require.NoError(t, err)

	assert.Equal(t, 7, res.SpikeCount)
	assert.InDelta(t, 3.143, res.SpikeT, 0.0005)
	assert.InDelta(t, 0.2160247, res.SpikeSD, 1e-6)
	assert.InDelta(t, res.SpikeT*res.SpikeSD, res.MDLs, 1e-12)
	assert.InDelta(t, 0.67889, res.MDLs, 1e-4)

	assert.Equal(t, BranchStudentT, res.BlankBranch)
	assert.Equal(t, 7, res.BlankCount)
	assert.InDelta(t, 0.0571429, res.BlankMean, 1e-6)
	assert.InDelta(t, 0.0442396, res.BlankSD, 1e-6)
	assert.InDelta(t, res.SpikeT, res.BlankT, 1e-12)
	assert.InDelta(t, res.BlankMean+res.BlankT*res.BlankSD, res.MDLb, 1e-12)
	assert.InDelta(t, 0.19617, res.MDLb, 1e-4)

	assert.Equal(t, math.Max(res.MDLs, res.MDLb), res.MDL)
	assert.Equal(t, res.MDLs, res.MDL)
}

func TestMDLEstimator_NegativeBlankMeanClamped(t *testing.T) {
	spike := []float64{1, 1.1, 0.9, 1.05}
	blank := []float64{-0.3, -0.1, -0.2, -0.25}

	res, err := NewMDLEstimator(0.99, 100).Estimate(spike, blank)
	require.NoError(t, err)

	assert.Equal(t, 0.0, res.BlankMean)
	assert.InDelta(t, res.BlankT*res.BlankSD, res.MDLb, 1e-12)
}

func TestMDLEstimator_PercentileRankBranch(t *testing.T) {
	blank := make([]float64, 150)
	for i := range blank {
		blank[i] = float64(150-i) * 0.01 // descending: 1.50 ... 0.01
	}
	spike := []float64{0.2, 0.21, 0.19, 0.2, 0.22}

	res, err := NewMDLEstimator(0.99, 100).Estimate(spike, blank)
	require.NoError(t, err)

	assert.Equal(t, BranchPercentileRank, res.BlankBranch)
	assert.Equal(t, 150, res.BlankCount)
	assert.Equal(t, 148, res.BlankRank)
	assert.InDelta(t, 1.48, res.MDLb, 1e-12)
	assert.Equal(t, 0.0, res.BlankT)
	assert.Equal(t, math.Max(res.MDLs, res.MDLb), res.MDL)
}

func TestMDLEstimator_BranchBoundary(t *testing.T) {
	spike := []float64{5, 5.1, 4.9}
	blank := make([]float64, 100)
	for i := range blank {
		blank[i] = float64(i%7) * 0.01
	}

	res, err := NewMDLEstimator(0.99, 100).Estimate(spike, blank)
	require.NoError(t, err)
	assert.Equal(t, BranchStudentT, res.BlankBranch)

	res, err = NewMDLEstimator(0.99, 100).Estimate(spike, append(blank, 0.02))
	require.NoError(t, err)
	assert.Equal(t, BranchPercentileRank, res.BlankBranch)
	assert.Equal(t, 100, res.BlankRank)
}

func TestMDLEstimator_CustomCriticalValue(t *testing.T) {
	est := NewMDLEstimator(0.99, 100)
	est.Critical = func(df int, _ float64) float64 { return float64(df) }

	res, err := est.Estimate([]float64{1, 3}, []float64{0, 2, 4})
	require.NoError(t, err)

	assert.Equal(t, 1.0, res.SpikeT)
	assert.Equal(t, 2.0, res.BlankT)
	assert.InDelta(t, math.Sqrt(2), res.MDLs, 1e-12)
	assert.InDelta(t, 2+2*2, res.MDLb, 1e-12)
	assert.InDelta(t, 6.0, res.MDL, 1e-12)
}

func TestMDLEstimator_Errors(t *testing.T) {
	est := NewMDLEstimator(0.99, 100)

	_, err := est.Estimate(nil, []float64{1, 2})
	assert.ErrorIs(t, err, analytics.ErrEmptySeries)

	_, err = est.Estimate([]float64{1, 2}, nil)
	assert.ErrorIs(t, err, analytics.ErrEmptySeries)

	_, err = est.Estimate([]float64{1}, []float64{1, 2})
	assert.ErrorIs(t, err, analytics.ErrInsufficientSamples)

	_, err = est.Estimate([]float64{1, 2}, []float64{1})
	assert.ErrorIs(t, err, analytics.ErrInsufficientSamples)
}

func TestNewMDLEstimator_Defaults(t *testing.T) {
	est := NewMDLEstimator(0, 0)
	assert.Equal(t, DefaultMDLConfidence, est.Confidence)
	assert.Equal(t, DefaultRankThreshold, est.RankThreshold)
}

func TestCompareMet(t *testing.T) {
	base := time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC)
	at := func(i int) time.Time { return base.Add(time.Duration(i) * time.Second) }

	instrument := analytics.TimeSeriesData{
		{Time: at(0), Value: 20},
		{Time: at(1), Value: 25},
		{Time: at(2), Value: 0},
		{Time: at(3), Value: 10},
		{Time: at(5), Value: math.NaN()},
	}
	reference := analytics.TimeSeriesData{
		{Time: at(0), Value: 21},
		{Time: at(1), Value: 24},
		{Time: at(2), Value: 1},
		{Time: at(4), Value: 11},
		{Time: at(5), Value: 3},
	}

	out, err := CompareMet([]MetPair{{Name: "Temperature", Instrument: instrument, Reference: reference}})
	require.NoError(t, err)
	require.Len(t, out, 1)

	cmp := out[0]
	assert.Equal(t, "Temperature", cmp.Name)
	assert.Equal(t, 3, cmp.Matched)
	assert.Equal(t, 1, cmp.Undefined)
	require.Len(t, cmp.Rows, 2)
	assert.InDelta(t, 5.0, cmp.Rows[0].PercentDifference, 1e-12)
	assert.InDelta(t, 4.0, cmp.Rows[1].PercentDifference, 1e-12)
	require.NotNil(t, cmp.Stats)
	assert.InDelta(t, 4.0, cmp.Stats.Min, 1e-12)
	assert.InDelta(t, 5.0, cmp.Stats.Max, 1e-12)
	assert.InDelta(t, 4.5, cmp.Stats.Mean, 1e-12)
}

func TestCompareMet_NoOverlap(t *testing.T) {
	base := time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC)
	out, err := CompareMet([]MetPair{{
		Name:       "Pressure",
		Instrument: analytics.TimeSeriesData{{Time: base, Value: 850}},
		Reference:  analytics.TimeSeriesData{{Time: base.Add(time.Minute), Value: 851}},
	}})
	require.NoError(t, err)
	assert.Equal(t, 0, out[0].Matched)
	assert.Nil(t, out[0].Stats)
	assert.Empty(t, out[0].Rows)
}

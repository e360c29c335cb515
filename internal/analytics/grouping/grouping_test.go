package grouping

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soltixdb/airaudit/internal/analytics"
)

func createTestSeries(values []float64) analytics.TimeSeriesData {
	series := make(analytics.TimeSeriesData, len(values))
	baseTime := time.Date(2024, 3, 12, 8, 0, 0, 0, time.UTC)
	for i, v := range values {
		series[i] = analytics.TimeSeriesPoint{
			Time:  baseTime.Add(time.Duration(i) * time.Second),
			Value: v,
		}
	}
	return series
}

// symmetricSeries returns -9.5, -8.5, ..., 9.5 in ascending time order
func symmetricSeries() analytics.TimeSeriesData {
	values := make([]float64, 20)
	for i := range values {
		values[i] = float64(i) - 9.5
	}
	return createTestSeries(values)
}

func TestPercentile(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		p      float64
		want   float64
	}{
		{"lower quartile", []float64{1, 2, 3, 4}, 25, 1.75},
		{"upper quartile", []float64{4, 3, 2, 1}, 75, 3.25},
		{"median odd", []float64{5, 1, 3}, 50, 3},
		{"tenth of ten", []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, 10, 1.9},
		{"ninetieth of ten", []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, 90, 9.1},
		{"single value", []float64{7}, 90, 7},
		{"ignores NaN", []float64{math.NaN(), 1, 3}, 50, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Percentile(tt.values, tt.p), 1e-9)
		})
	}

	assert.True(t, math.IsNaN(Percentile(nil, 50)))
}

func TestRemoveOutliers_DropsFarPoint(t *testing.T) {
	series := createTestSeries([]float64{1, 2, 3, 4, 100, 5, 6, 7, 8, 9})

	kept := RemoveOutliers(series, DefaultIQRMultiplier)

	require.Len(t, kept, 9)
	assert.Equal(t, []float64{1, 2, 3, 4, 5, 6, 7, 8, 9}, kept.Values())
	assert.True(t, kept.IsSubsequenceOf(series))
}

func TestRemoveOutliers_FenceInequality(t *testing.T) {
	series := createTestSeries([]float64{10.2, 10.1, 9.7, 14.8, 10.0, 9.9, 10.3, 3.1, 10.1, 9.8, 10.0, 10.4})

	kept := RemoveOutliers(series, DefaultIQRMultiplier)
	q1, q3, iqr := Quartiles(series.Values())

	for _, v := range kept.Values() {
		assert.GreaterOrEqual(t, v, q1-1.5*iqr)
		assert.LessOrEqual(t, v, q3+1.5*iqr)
	}
	assert.NotContains(t, kept.Values(), 14.8)
	assert.NotContains(t, kept.Values(), 3.1)
	assert.True(t, kept.IsSubsequenceOf(series))
}

func TestRemoveOutliers_Idempotent(t *testing.T) {
	series := createTestSeries([]float64{10.2, 10.1, 9.7, 14.8, 10.0, 9.9, 10.3, 3.1, 10.1, 9.8, 10.0, 10.4})

	once := RemoveOutliers(series, DefaultIQRMultiplier)
	twice := RemoveOutliers(once, DefaultIQRMultiplier)

	assert.Equal(t, once, twice)
}

func TestRemoveOutliers_MissingValues(t *testing.T) {
	series := createTestSeries([]float64{1, math.NaN(), 2, 3, math.NaN()})

	kept := RemoveOutliers(series, DefaultIQRMultiplier)

	assert.Equal(t, []float64{1, 2, 3}, kept.Values())
	assert.Len(t, kept, 3)
}

func TestRemoveOutliers_CollapsedFence(t *testing.T) {
	series := createTestSeries([]float64{5, 5, 5, 5, 5, 5, 5, 9})

	kept := RemoveOutliers(series, DefaultIQRMultiplier)

	assert.Equal(t, []float64{5, 5, 5, 5, 5, 5, 5}, kept.Values())

	single := RemoveOutliers(createTestSeries([]float64{4.2}), DefaultIQRMultiplier)
	assert.Equal(t, []float64{4.2}, single.Values())

	assert.Empty(t, RemoveOutliers(nil, DefaultIQRMultiplier))
}

func TestRemoveOutliers_DoesNotMutateSource(t *testing.T) {
	series := createTestSeries([]float64{1, 2, 3, 4, 100, 5, 6, 7, 8, 9})
	before := series.Clone()

	_ = RemoveOutliers(series, DefaultIQRMultiplier)

	assert.Equal(t, before, series)
}

func TestEngine_SmallSeriesUntouched(t *testing.T) {
	engine := NewEngine(DefaultConfig(), nil)
	series := createTestSeries([]float64{3, 1, 2, 5, 4})

	result := engine.FindIdealGrouping(series)

	assert.Equal(t, series, result.Series)
	assert.Empty(t, result.Trace.Iterations)
	assert.Equal(t, StopMinSize, result.Trace.StopReason)
}

func TestEngine_TrimsToMinSize(t *testing.T) {
	values := make([]float64, 0, 16)
	for i := 1; i <= 15; i++ {
		values = append(values, float64(i))
	}
	values = append(values, 17)
	series := createTestSeries(values)

	result := NewEngine(DefaultConfig(), nil).FindIdealGrouping(series)

	require.Len(t, result.Series, 15)
	assert.Equal(t, StopMinSize, result.Trace.StopReason)
	require.Len(t, result.Trace.Iterations, 1)

	it := result.Trace.Iterations[0]
	assert.Equal(t, 17.0, it.Point.Value)
	assert.Equal(t, SideAbove, it.Side)
	assert.InDelta(t, 2.0, it.Between, 1e-9)
	assert.InDelta(t, 0.0, it.Within, 1e-9)
	assert.InDelta(t, 1.0, it.Score, 1e-9)
	assert.True(t, it.Committed)
	assert.NotContains(t, result.Series.Values(), 17.0)
}

func TestEngine_TieBreakAndNegativeScoreStop(t *testing.T) {
	series := symmetricSeries()

	result := NewEngine(DefaultConfig(), nil).FindIdealGrouping(series)

	require.Len(t, result.Trace.Iterations, 3)
	assert.Equal(t, StopNegativeScore, result.Trace.StopReason)

	first := result.Trace.Iterations[0]
	assert.Equal(t, 2, first.Ties)
	assert.Equal(t, -9.5, first.Point.Value, "ties resolve to the earliest timestamp")
	assert.InDelta(t, 1.0, first.Score, 1e-9)
	assert.True(t, first.Committed)

	second := result.Trace.Iterations[1]
	assert.Equal(t, -8.5, second.Point.Value)
	assert.InDelta(t, 0.0, second.Score, 1e-9)
	assert.True(t, second.Committed, "a zero score keeps trimming")

	third := result.Trace.Iterations[2]
	assert.Equal(t, -7.5, third.Point.Value)
	assert.InDelta(t, 1.5, third.Within, 1e-9)
	assert.InDelta(t, 1.0, third.Between, 1e-9)
	assert.InDelta(t, -1.0/3.0, third.Score, 1e-9)
	assert.False(t, third.Committed)

	require.Len(t, result.Series, 18)
	assert.Equal(t, -7.5, result.Series[0].Value, "the series before the rejected removal is kept")
	assert.True(t, result.Series.IsSubsequenceOf(series))
}

func TestEngine_ConstantSeriesStops(t *testing.T) {
	values := make([]float64, 20)
	for i := range values {
		values[i] = 5
	}
	series := createTestSeries(values)

	result := NewEngine(DefaultConfig(), nil).FindIdealGrouping(series)

	assert.Equal(t, StopConstantSeries, result.Trace.StopReason)
	assert.Len(t, result.Series, 20)
	assert.Empty(t, result.Trace.Iterations)
}

func TestEngine_UndefinedScoreStops(t *testing.T) {
	values := make([]float64, 0, 20)
	for i := 0; i < 10; i++ {
		values = append(values, 0)
	}
	for i := 0; i < 10; i++ {
		values = append(values, 1)
	}
	series := createTestSeries(values)

	result := NewEngine(DefaultConfig(), nil).FindIdealGrouping(series)

	assert.Equal(t, StopUndefinedScore, result.Trace.StopReason)
	assert.Len(t, result.Series, 20)
	require.Len(t, result.Trace.Iterations, 1)
	assert.True(t, math.IsNaN(result.Trace.Iterations[0].Score))
	assert.False(t, result.Trace.Iterations[0].Committed)
}

func TestEngine_Deterministic(t *testing.T) {
	series := createTestSeries([]float64{
		0.8, 1.9, 1.1, 1.0, 0.9, 1.2, 1.05, 0.95, 1.0, 1.1,
		0.97, 1.03, 1.0, 0.99, 1.01, 1.6, 1.02, 0.98, 1.0, 0.4,
		1.0, 1.04, 0.96, 1.07, 0.93,
	})
	engine := NewEngine(DefaultConfig(), nil)

	first := engine.FindIdealGrouping(series)
	second := engine.FindIdealGrouping(series)

	assert.Equal(t, first.Series, second.Series)
	assert.Equal(t, first.Trace.StopReason, second.Trace.StopReason)
	assert.True(t, first.Series.IsSubsequenceOf(series))
	assert.LessOrEqual(t, len(first.Series), len(series))
	if first.Trace.StopReason == StopMinSize {
		assert.LessOrEqual(t, len(first.Series), DefaultConfig().MinGroupSize)
	} else {
		assert.Greater(t, len(first.Series), DefaultConfig().MinGroupSize)
	}
}

func TestEngine_IgnoresMissingValues(t *testing.T) {
	values := make([]float64, 0, 22)
	for i := 1; i <= 15; i++ {
		values = append(values, float64(i))
	}
	values = append(values, 17, math.NaN(), math.NaN())
	series := createTestSeries(values)

	result := NewEngine(DefaultConfig(), nil).FindIdealGrouping(series)

	assert.Equal(t, 18, result.Trace.InputSize)
	assert.Equal(t, 16, result.Trace.FilteredSize)
	assert.Len(t, result.Series, 15)
	for _, p := range result.Series {
		assert.False(t, p.Missing())
	}
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())

	cfg := DefaultConfig()
	cfg.MinGroupSize = 0
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.LowerTailPercentile = 95
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.IQRMultiplier = 0
	assert.Error(t, cfg.Validate())
}

func TestSilhouetteScore(t *testing.T) {
	assert.InDelta(t, 1.0, silhouetteScore(2, 0), 1e-12)
	assert.InDelta(t, -1.0, silhouetteScore(0, 3), 1e-12)
	assert.InDelta(t, 0.5, silhouetteScore(4, 2), 1e-12)
	assert.True(t, math.IsNaN(silhouetteScore(0, 0)))
	assert.True(t, math.IsNaN(silhouetteScore(math.NaN(), 1)))
}

func TestClassify(t *testing.T) {
	side, err := classify(3, 1)
	require.NoError(t, err)
	assert.Equal(t, SideAbove, side)

	side, err = classify(-3, 1)
	require.NoError(t, err)
	assert.Equal(t, SideBelow, side)

	_, err = classify(1, 1)
	assert.ErrorIs(t, err, analytics.ErrAmbiguousExtremum)
}

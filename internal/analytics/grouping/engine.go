// Package grouping finds the "ideal grouping" of an audit window: the subsequence of samples
// left after IQR fencing and greedy trimming of the most extreme point, where trimming stops
// once a removed point looks more like the bulk of the data than like the extreme tails.
package grouping

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/soltixdb/airaudit/internal/analytics"
	"github.com/soltixdb/airaudit/internal/logging"
)

// Side tells on which side of the mean a trimmed point lies
type Side string

const (
	SideAbove Side = "above"
	SideBelow Side = "below"
)

// StopReason explains why the trimming loop ended
type StopReason string

const (
	// StopMinSize means the series reached the minimum group size
	StopMinSize StopReason = "min_size"
	// StopNegativeScore means the candidate point was closer to the bulk than to the tail pool
	StopNegativeScore StopReason = "negative_score"
	// StopUndefinedScore means the score was 0/0 or the comparison pool was empty
	StopUndefinedScore StopReason = "undefined_score"
	// StopConstantSeries means the extremum sat exactly on the mean
	StopConstantSeries StopReason = "constant_series"
)

// Config holds the tuning knobs of the engine
type Config struct {
	// MinGroupSize stops trimming once the series has this many points or fewer
	MinGroupSize int

	// IQRMultiplier is the fence multiplier of the initial outlier filter
	IQRMultiplier float64

	// LowerTailPercentile and UpperTailPercentile delimit the extreme comparison pools
	LowerTailPercentile float64
	UpperTailPercentile float64
}

// DefaultConfig returns the engine defaults
func DefaultConfig() Config {
	return Config{
		MinGroupSize:        15,
		IQRMultiplier:       DefaultIQRMultiplier,
		LowerTailPercentile: 10,
		UpperTailPercentile: 90,
	}
}

// Validate checks the configuration
func (c Config) Validate() error {
	if c.MinGroupSize < 1 {
		return fmt.Errorf("min_group_size must be at least 1")
	}
	if c.IQRMultiplier <= 0 {
		return fmt.Errorf("iqr_multiplier must be positive")
	}
	if c.LowerTailPercentile < 0 || c.UpperTailPercentile > 100 || c.LowerTailPercentile >= c.UpperTailPercentile {
		return fmt.Errorf("tail percentiles must satisfy 0 <= lower < upper <= 100")
	}
	return nil
}

// Iteration records one pass of the trimming loop
type Iteration struct {
	Point     analytics.TimeSeriesPoint
	Side      Side
	Mean      float64
	Variance  float64
	Between   float64
	Within    float64
	Score     float64
	Ties      int
	Committed bool
}

// Trace describes how a grouping result was reached
type Trace struct {
	InputSize    int
	FilteredSize int
	Iterations   []Iteration
	StopReason   StopReason
}

// Result is the ideal grouping of a series
type Result struct {
	Series analytics.TimeSeriesData
	Trace  Trace
}

// Engine runs the ideal-grouping procedure. It is stateless between calls.
type Engine struct {
	cfg    Config
	logger *logging.Logger
}

// NewEngine creates an engine; a nil logger falls back to the global one
func NewEngine(cfg Config, logger *logging.Logger) *Engine {
	if logger == nil {
		logger = logging.Global()
	}
	return &Engine{cfg: cfg, logger: logger}
}

// Config returns the engine configuration
func (e *Engine) Config() Config {
	return e.cfg
}

// FindIdealGrouping filters outliers and then greedily strips the point farthest from the
// mean until the removal score turns negative (or undefined) or MinGroupSize is reached.
// The source series is never modified.
func (e *Engine) FindIdealGrouping(series analytics.TimeSeriesData) Result {
	current := RemoveOutliers(series, e.cfg.IQRMultiplier)
	trace := Trace{
		InputSize:    len(series),
		FilteredSize: len(current),
		StopReason:   StopMinSize,
	}

	var aboveRemoved, belowRemoved []float64

	for len(current) > e.cfg.MinGroupSize {
		values := current.Values()
		mean, variance := stat.MeanVariance(values, nil)

		idx, ties := argmaxSquaredDeviation(values, mean)
		point := current[idx]
		if ties > 1 {
			e.logger.Warn("Multiple points share the maximum deviation, removing the earliest",
				"ties", ties, "time", point.Time, "value", point.Value)
		}

		side, err := classify(point.Value, mean)
		if err != nil {
			e.logger.Debug("Extremum equals the mean, series is constant", "value", point.Value, "size", len(current))
			trace.StopReason = StopConstantSeries
			break
		}

		removed := removeAt(current, idx)

		sorted := make([]float64, len(values))
		copy(sorted, values)
		sort.Float64s(sorted)
		lowTail := percentileSorted(sorted, e.cfg.LowerTailPercentile)
		highTail := percentileSorted(sorted, e.cfg.UpperTailPercentile)

		var pool []float64
		var within float64
		switch side {
		case SideAbove:
			within = meanAbsDistance(point.Value, aboveRemoved)
			aboveRemoved = append(aboveRemoved, point.Value)
			for _, v := range removed.Values() {
				if v >= highTail {
					pool = append(pool, v)
				}
			}
		case SideBelow:
			within = meanAbsDistance(point.Value, belowRemoved)
			belowRemoved = append(belowRemoved, point.Value)
			for _, v := range removed.Values() {
				if v <= lowTail {
					pool = append(pool, v)
				}
			}
		}

		between := math.NaN()
		if len(pool) > 0 {
			between = meanAbsDistance(point.Value, pool)
		}
		score := silhouetteScore(between, within)

		it := Iteration{
			Point:    point,
			Side:     side,
			Mean:     mean,
			Variance: variance,
			Between:  between,
			Within:   within,
			Score:    score,
			Ties:     ties,
		}

		e.logger.Debug("Grouping iteration",
			"size", len(current), "value", point.Value, "side", string(side),
			"between", between, "within", within, "score", score)

		if math.IsNaN(score) {
			trace.Iterations = append(trace.Iterations, it)
			trace.StopReason = StopUndefinedScore
			break
		}
		if score < 0 {
			trace.Iterations = append(trace.Iterations, it)
			trace.StopReason = StopNegativeScore
			break
		}

		it.Committed = true
		trace.Iterations = append(trace.Iterations, it)
		current = removed
	}

	return Result{Series: current, Trace: trace}
}

// argmaxSquaredDeviation returns the first index holding the largest squared deviation from
// mean, along with how many indices share that maximum
func argmaxSquaredDeviation(values []float64, mean float64) (int, int) {
	best := 0
	bestSq := math.Inf(-1)
	ties := 0
	for i, v := range values {
		d := v - mean
		sq := d * d
		switch {
		case sq > bestSq:
			best, bestSq, ties = i, sq, 1
		case sq == bestSq:
			ties++
		}
	}
	return best, ties
}

// classify places a point relative to the mean. A point equal to the mean belongs to no pool.
func classify(value, mean float64) (Side, error) {
	switch {
	case value > mean:
		return SideAbove, nil
	case value < mean:
		return SideBelow, nil
	default:
		return "", fmt.Errorf("value %v: %w", value, analytics.ErrAmbiguousExtremum)
	}
}

// silhouetteScore is (b - w) / max(b, w); NaN when undefined
func silhouetteScore(between, within float64) float64 {
	if math.IsNaN(between) || math.IsNaN(within) {
		return math.NaN()
	}
	m := math.Max(between, within)
	if m == 0 {
		return math.NaN()
	}
	return (between - within) / m
}

// meanAbsDistance is the mean of |p - v| over others; 0 when others is empty
func meanAbsDistance(p float64, others []float64) float64 {
	if len(others) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range others {
		sum += math.Abs(p - v)
	}
	return sum / float64(len(others))
}

func removeAt(series analytics.TimeSeriesData, idx int) analytics.TimeSeriesData {
	out := make(analytics.TimeSeriesData, 0, len(series)-1)
	out = append(out, series[:idx]...)
	return append(out, series[idx+1:]...)
}

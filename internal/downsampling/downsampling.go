package downsampling

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/soltixdb/airaudit/internal/analytics"
)

// ErrInvalidMode is returned for an unknown averaging label
var ErrInvalidMode = errors.New("time averaging must be one of: none, 1m, 5m")

// Mode represents the time-averaging mode applied before grouping
type Mode string

const (
	// ModeNone means no averaging
	ModeNone Mode = "none"
	// ModeOneMinute averages samples into 1 minute buckets
	ModeOneMinute Mode = "1m"
	// ModeFiveMinutes averages samples into 5 minute buckets
	ModeFiveMinutes Mode = "5m"
)

// ValidModes returns all valid averaging modes
func ValidModes() []Mode {
	return []Mode{ModeNone, ModeOneMinute, ModeFiveMinutes}
}

// IsValid checks if a mode string is valid
func IsValid(mode string) bool {
	_, err := ParseMode(mode)
	return err == nil
}

// ParseMode accepts the short form ("1m") and the long labels ("1 minute", "5 minutes").
// An empty string means no averaging.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return ModeNone, nil
	case "1m", "1 minute", "1min":
		return ModeOneMinute, nil
	case "5m", "5 minutes", "5min":
		return ModeFiveMinutes, nil
	}
	return "", fmt.Errorf("%q: %w", s, ErrInvalidMode)
}

// Interval returns the bucket width, zero for ModeNone
func (m Mode) Interval() time.Duration {
	switch m {
	case ModeOneMinute:
		return time.Minute
	case ModeFiveMinutes:
		return 5 * time.Minute
	default:
		return 0
	}
}

// Apply averages the series with the mode's bucket width
func (m Mode) Apply(series analytics.TimeSeriesData) analytics.TimeSeriesData {
	return Average(series, m.Interval())
}

// Average groups samples into buckets aligned to multiples of interval in the sample's
// zone and replaces each bucket by the mean of its non-missing values, labelled with the
// bucket start. Buckets without a value are dropped. A non-positive interval returns
// a copy of the input.
func Average(series analytics.TimeSeriesData, interval time.Duration) analytics.TimeSeriesData {
	if interval <= 0 {
		return series.Clone()
	}

	out := make(analytics.TimeSeriesData, 0, len(series))
	var (
		bucket time.Time
		sum    float64
		count  int
		open   bool
	)

	flush := func() {
		if open && count > 0 {
			out = append(out, analytics.TimeSeriesPoint{Time: bucket, Value: sum / float64(count)})
		}
	}

	for _, p := range series {
		start := bucketStart(p.Time, interval)
		if !open || !start.Equal(bucket) {
			flush()
			bucket, sum, count, open = start, 0, 0, true
		}
		if p.Missing() {
			continue
		}
		sum += p.Value
		count++
	}
	flush()

	return out
}

// bucketStart floors t to the interval in t's own zone so that buckets line up with
// wall-clock minutes
func bucketStart(t time.Time, interval time.Duration) time.Time {
	_, offset := t.Zone()
	shift := time.Duration(offset) * time.Second
	return t.Add(shift).Truncate(interval).Add(-shift)
}

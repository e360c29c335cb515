package services

import (
	"math"
	"time"

	"github.com/soltixdb/airaudit/internal/analytics"
	"github.com/soltixdb/airaudit/internal/analytics/grouping"
	"github.com/soltixdb/airaudit/internal/analytics/stats"
	"github.com/soltixdb/airaudit/internal/dataset"
)

// SessionInfo describes an uploaded session
type SessionInfo struct {
	ID        string         `json:"id"`
	FileName  string         `json:"file_name"`
	AuditDate string         `json:"audit_date"`
	Compound  string         `json:"compound"`
	Rows      int            `json:"rows"`
	Channels  []string       `json:"channels"`
	Start     *time.Time     `json:"start,omitempty"`
	End       *time.Time     `json:"end,omitempty"`
	Cleaned   int            `json:"cleaned_values"`
	Flags     map[string]int `json:"flags"`
	CreatedAt time.Time      `json:"created_at"`
}

func newSessionInfo(s *dataset.Session, cleaned int) *SessionInfo {
	info := &SessionInfo{
		ID:        s.ID,
		FileName:  s.FileName,
		AuditDate: s.AuditDate,
		Compound:  s.Compound,
		Rows:      s.Frame.Len(),
		Channels:  s.Frame.Channels(),
		Cleaned:   cleaned,
		Flags:     make(map[string]int),
		CreatedAt: s.CreatedAt,
	}
	if times := s.Frame.Times(); len(times) > 0 {
		start, end := times[0], times[len(times)-1]
		info.Start, info.End = &start, &end
	}
	for flag, n := range s.Flags.Summary() {
		info.Flags[string(flag)] = n
	}
	return info
}

// Point is one kept sample of a grouping
type Point struct {
	Time  time.Time `json:"time"`
	Value float64   `json:"value"`
}

// IterationReport is one trimming step; undefined ratios are null
type IterationReport struct {
	Time      time.Time `json:"time"`
	Value     float64   `json:"value"`
	Side      string    `json:"side"`
	Between   *float64  `json:"between"`
	Within    *float64  `json:"within"`
	Score     *float64  `json:"score"`
	Ties      int       `json:"ties,omitempty"`
	Committed bool      `json:"committed"`
}

// GroupingReport summarizes an ideal grouping
type GroupingReport struct {
	Selected   int               `json:"selected"`
	Filtered   int               `json:"after_outlier_filter"`
	Kept       int               `json:"kept"`
	StopReason string            `json:"stop_reason"`
	Iterations []IterationReport `json:"iterations"`
	Points     []Point           `json:"points"`
}

func newGroupingReport(res grouping.Result) GroupingReport {
	r := GroupingReport{
		Selected:   res.Trace.InputSize,
		Filtered:   res.Trace.FilteredSize,
		Kept:       len(res.Series),
		StopReason: string(res.Trace.StopReason),
		Iterations: make([]IterationReport, 0, len(res.Trace.Iterations)),
		Points:     points(res.Series),
	}
	for _, it := range res.Trace.Iterations {
		r.Iterations = append(r.Iterations, IterationReport{
			Time:      it.Point.Time,
			Value:     it.Point.Value,
			Side:      string(it.Side),
			Between:   finite(it.Between),
			Within:    finite(it.Within),
			Score:     finite(it.Score),
			Ties:      it.Ties,
			Committed: it.Committed,
		})
	}
	return r
}

func points(series analytics.TimeSeriesData) []Point {
	out := make([]Point, 0, len(series))
	for _, p := range series {
		if !p.Missing() {
			out = append(out, Point{Time: p.Time, Value: p.Value})
		}
	}
	return out
}

func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// ZeroAirReport is the result of a zero-air baseline check
type ZeroAirReport struct {
	SessionID string         `json:"session_id"`
	Channel   string         `json:"channel"`
	Window    dataset.Window `json:"window"`
	Grouping  GroupingReport `json:"grouping"`
	Stats     stats.Basic    `json:"stats"`
	Flagged   int            `json:"flagged_rows"`
}

// CalibrationReport is the result of a calibration-gas recovery check
type CalibrationReport struct {
	SessionID     string         `json:"session_id"`
	Channel       string         `json:"channel"`
	Window        dataset.Window `json:"window"`
	Concentration float64        `json:"concentration"`
	Grouping      GroupingReport `json:"grouping"`
	Stats         stats.Basic    `json:"stats"`
	Audit         stats.Audit    `json:"audit"`
	Flagged       int            `json:"flagged_rows"`
}

// MDLReport is the result of a method-detection-limit check
type MDLReport struct {
	SessionID     string          `json:"session_id"`
	Channel       string          `json:"channel"`
	TimeAveraging string          `json:"time_averaging"`
	SpikeWindow   dataset.Window  `json:"spike_window"`
	BlankWindow   dataset.Window  `json:"blank_window"`
	Spike         GroupingReport  `json:"spike"`
	Blank         GroupingReport  `json:"blank"`
	SpikeStats    stats.Basic     `json:"spike_stats"`
	BlankStats    stats.Basic     `json:"blank_stats"`
	Result        stats.MDLResult `json:"result"`
	Flagged       int             `json:"flagged_rows"`
}

// MetVariableReport compares one meteorological variable
type MetVariableReport struct {
	Title      string              `json:"title"`
	Instrument string              `json:"instrument_column"`
	Reference  string              `json:"reference_column"`
	Comparison stats.MetComparison `json:"comparison"`
}

// MetReport is the result of an iMet versus reference-station cross-check
type MetReport struct {
	SessionID string              `json:"session_id"`
	Window    dataset.Window      `json:"window"`
	Variables []MetVariableReport `json:"variables"`
	Skipped   []string            `json:"skipped,omitempty"`
	Flagged   int                 `json:"flagged_rows"`
}

// Package dataset holds an uploaded audit log in memory: the cleaned numeric frame used by
// the analyses, the raw rows shown back to the user, and the per-row audit flags.
package dataset

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/soltixdb/airaudit/internal/analytics"
)

// Frame is a time-indexed table of numeric channels. Rows are sorted ascending by time and
// every column has one value per row; a missing measurement is NaN.
//
// A Frame is read-only once built and safe for concurrent readers.
type Frame struct {
	times   []time.Time
	order   []string
	columns map[string][]float64
}

// NewFrame builds a frame from parallel slices. Rows are stably sorted by time.
func NewFrame(times []time.Time, order []string, columns map[string][]float64) (*Frame, error) {
	for _, name := range order {
		col, ok := columns[name]
		if !ok {
			return nil, fmt.Errorf("column %q listed but not provided", name)
		}
		if len(col) != len(times) {
			return nil, fmt.Errorf("column %q has %d values, want %d", name, len(col), len(times))
		}
	}
	if len(columns) != len(order) {
		return nil, fmt.Errorf("%d columns provided but %d listed", len(columns), len(order))
	}

	f := &Frame{
		times:   append([]time.Time(nil), times...),
		order:   append([]string(nil), order...),
		columns: make(map[string][]float64, len(order)),
	}
	for _, name := range order {
		f.columns[name] = append([]float64(nil), columns[name]...)
	}

	if !sort.SliceIsSorted(f.times, func(i, j int) bool { return f.times[i].Before(f.times[j]) }) {
		perm := make([]int, len(f.times))
		for i := range perm {
			perm[i] = i
		}
		sort.SliceStable(perm, func(i, j int) bool { return times[perm[i]].Before(times[perm[j]]) })
		for i, p := range perm {
			f.times[i] = times[p]
		}
		for _, name := range order {
			src := columns[name]
			dst := f.columns[name]
			for i, p := range perm {
				dst[i] = src[p]
			}
		}
	}

	return f, nil
}

// Len returns the number of rows
func (f *Frame) Len() int {
	return len(f.times)
}

// Times returns the row timestamps
func (f *Frame) Times() []time.Time {
	return f.times
}

// Channels returns the column names in file order
func (f *Frame) Channels() []string {
	return append([]string(nil), f.order...)
}

// HasChannel reports whether the frame has a column with this exact name
func (f *Frame) HasChannel(name string) bool {
	_, ok := f.columns[name]
	return ok
}

// Column returns a copy of one column's values
func (f *Frame) Column(name string) ([]float64, error) {
	col, ok := f.columns[name]
	if !ok {
		return nil, fmt.Errorf("%q: %w", name, analytics.ErrChannelNotFound)
	}
	return append([]float64(nil), col...), nil
}

// Series returns the whole column as a time series
func (f *Frame) Series(channel string) (analytics.TimeSeriesData, error) {
	if f.Len() == 0 {
		if !f.HasChannel(channel) {
			return nil, fmt.Errorf("%q: %w", channel, analytics.ErrChannelNotFound)
		}
		return analytics.TimeSeriesData{}, nil
	}
	return f.Select(channel, Window{Start: f.times[0], End: f.times[len(f.times)-1]})
}

// Select returns every sample of channel with Start <= time <= End, in time order.
// An empty result is not an error; an unknown channel is.
func (f *Frame) Select(channel string, w Window) (analytics.TimeSeriesData, error) {
	col, ok := f.columns[channel]
	if !ok {
		return nil, fmt.Errorf("%q: %w", channel, analytics.ErrChannelNotFound)
	}

	startIdx, endIdx := f.bounds(w)
	out := make(analytics.TimeSeriesData, 0, endIdx-startIdx)
	for i := startIdx; i < endIdx; i++ {
		out = append(out, analytics.TimeSeriesPoint{Time: f.times[i], Value: col[i]})
	}
	return out, nil
}

// bounds returns the half-open row range covered by the inclusive window
func (f *Frame) bounds(w Window) (int, int) {
	startIdx := sort.Search(len(f.times), func(i int) bool {
		return !f.times[i].Before(w.Start)
	})
	endIdx := sort.Search(len(f.times), func(i int) bool {
		return f.times[i].After(w.End)
	})
	if endIdx < startIdx {
		endIdx = startIdx
	}
	return startIdx, endIdx
}

// Missing reports how many values of channel are NaN
func (f *Frame) Missing(channel string) int {
	n := 0
	for _, v := range f.columns[channel] {
		if math.IsNaN(v) {
			n++
		}
	}
	return n
}

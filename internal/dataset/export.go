package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"time"
)

const (
	// FlagColumn is the header of the exported flag column
	FlagColumn = "Audit Flag"
	// DateTimeColumn is the header of the exported timestamp column
	DateTimeColumn = "DateTime"
)

// ExportFileName returns the download name for an export made at now
func ExportFileName(now time.Time) string {
	return now.Format("2006-01-02") + "_audit_analysis.csv"
}

// WriteCSV writes the session's display rows with the audit flag column appended.
// Sessions without raw rows are written from the numeric frame.
func (s *Session) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)

	header, row := s.exportLayout()
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	times := s.Frame.Times()
	for i := range times {
		if err := cw.Write(row(i)); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

func (s *Session) exportLayout() ([]string, func(int) []string) {
	times := s.Frame.Times()

	if s.Raw != nil && len(s.Raw.Rows) == len(times) && len(times) > 0 {
		header := make([]string, 0, len(s.Raw.Header)+2)
		header = append(header, DateTimeColumn)
		header = append(header, s.Raw.Header...)
		header = append(header, FlagColumn)
		return header, func(i int) []string {
			rec := make([]string, 0, len(header))
			rec = append(rec, times[i].Format(time.RFC3339))
			raw := s.Raw.Rows[i]
			if len(raw) > len(s.Raw.Header) {
				raw = raw[:len(s.Raw.Header)]
			}
			rec = append(rec, raw...)
			for len(rec) < len(header)-1 {
				rec = append(rec, "")
			}
			return append(rec, s.Flags.Cell(i))
		}
	}

	channels := s.Frame.Channels()
	header := make([]string, 0, len(channels)+2)
	header = append(header, DateTimeColumn)
	header = append(header, channels...)
	header = append(header, FlagColumn)
	return header, func(i int) []string {
		rec := make([]string, 0, len(header))
		rec = append(rec, times[i].Format(time.RFC3339))
		for _, name := range channels {
			v := s.Frame.columns[name][i]
			if math.IsNaN(v) {
				rec = append(rec, "")
				continue
			}
			rec = append(rec, strconv.FormatFloat(v, 'f', -1, 64))
		}
		return append(rec, s.Flags.Cell(i))
	}
}

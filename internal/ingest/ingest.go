// Package ingest parses uploaded instrument logs into dataset sessions
package ingest

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/soltixdb/airaudit/internal/dataset"
	"github.com/soltixdb/airaudit/internal/logging"
)

// Column names with special meaning in instrument logs
const (
	ColumnUTCDate = "UTC Date"
	ColumnUTCTime = "UTC Time"
	ColumnTime    = "time"

	ColumnPumpOn    = "GSU_PUMP_ON monitor []"
	ColumnValvePR1  = "GSU_VALVE_PR1 monitor []"
	ColumnValvePR2  = "GSU_VALVE_PR2 monitor []"
	DefaultCompound = "Benzene C6H6+"
)

var (
	ErrNoData       = errors.New("file contains no data rows")
	ErrNoTimeColumn = errors.New("file has neither UTC Date/UTC Time nor time columns")
	ErrMixedHeaders = errors.New("files have different headers")
	ErrMixedDates   = errors.New("files are from different audit dates")
)

var fileDatePattern = regexp.MustCompile(`^\d{8}`)

// localLayouts are tried in order for the "time" column and Kestrel timestamps
var localLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04",
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
	"01/02/2006 15:04:05",
	"2006/01/02 15:04:05",
	"2006-01-02 3:04:05 PM",
	"1/2/2006 3:04:05 PM",
	"1/2/2006 3:04 PM",
}

// File is one uploaded log
type File struct {
	Name   string
	Reader io.Reader
}

// Options controls parsing
type Options struct {
	// Location is the reference zone; timestamps are localized to it
	Location *time.Location
	// Compound is the channel blanked while the gas sampling unit is sampling
	Compound string
}

// Parser turns instrument CSV logs into a session's frame and raw rows
type Parser struct {
	opts   Options
	logger *logging.Logger
}

// NewParser creates a parser. A nil location means UTC.
func NewParser(opts Options, logger *logging.Logger) *Parser {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Compound == "" {
		opts.Compound = DefaultCompound
	}
	if logger == nil {
		logger = logging.Global()
	}
	return &Parser{opts: opts, logger: logger}
}

// Result is the parsed content of one or more files
type Result struct {
	AuditDate string
	Frame     *dataset.Frame
	Raw       *dataset.RawTable
	Cleaned   int // compound samples blanked by the GSU state
}

type row struct {
	t      time.Time
	record []string
}

// Parse reads and merges files that share a header. Rows are sorted by time; the audit
// date comes from the first file name's YYYYMMDD prefix, or the first row otherwise.
func (p *Parser) Parse(files ...File) (*Result, error) {
	var (
		header    []string
		rows      []row
		auditDate string
	)

	for _, f := range files {
		h, records, err := readCSV(f.Reader)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f.Name, err)
		}
		if len(records) == 0 {
			p.logger.Warn("Skipping empty file", "file", f.Name)
			continue
		}
		if header == nil {
			header = h
		} else if !sameHeader(header, h) {
			return nil, fmt.Errorf("%s: %w", f.Name, ErrMixedHeaders)
		}

		stamp, err := p.timestamper(header)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f.Name, err)
		}
		for i, rec := range records {
			t, err := stamp(rec)
			if err != nil {
				return nil, fmt.Errorf("%s: row %d: %w", f.Name, i+2, err)
			}
			rows = append(rows, row{t: t, record: rec})
		}

		if d := fileDatePattern.FindString(f.Name); d != "" {
			if auditDate != "" && auditDate != d {
				return nil, fmt.Errorf("%s: %w", f.Name, ErrMixedDates)
			}
			auditDate = d
		}
	}

	if len(rows) == 0 {
		return nil, ErrNoData
	}

	sortRows(rows)
	if auditDate == "" {
		auditDate = rows[0].t.In(p.opts.Location).Format(dataset.AuditDateLayout)
	}

	res, err := p.build(header, rows)
	if err != nil {
		return nil, err
	}
	res.AuditDate = auditDate

	p.logger.Info("Parsed audit log",
		"files", len(files),
		"rows", len(rows),
		"channels", len(res.Frame.Channels()),
		"audit_date", auditDate,
		"cleaned", res.Cleaned)

	return res, nil
}

// build converts sorted rows into the numeric frame and the raw table
func (p *Parser) build(header []string, rows []row) (*Result, error) {
	skip := map[string]bool{ColumnUTCDate: true, ColumnUTCTime: true, ColumnTime: true}

	order := make([]string, 0, len(header))
	index := make(map[string]int, len(header))
	for i, name := range header {
		if skip[name] {
			continue
		}
		if _, dup := index[name]; dup {
			return nil, fmt.Errorf("duplicate column %q", name)
		}
		index[name] = i
		order = append(order, name)
	}

	times := make([]time.Time, len(rows))
	columns := make(map[string][]float64, len(order))
	for _, name := range order {
		columns[name] = make([]float64, len(rows))
	}
	raw := &dataset.RawTable{Header: header, Rows: make([][]string, len(rows))}

	for r, rw := range rows {
		times[r] = rw.t.In(p.opts.Location)
		raw.Rows[r] = rw.record
		for _, name := range order {
			columns[name][r] = parseNumber(cell(rw.record, index[name]))
		}
	}

	cleaned := cleanCompound(columns, p.opts.Compound)

	frame, err := dataset.NewFrame(times, order, columns)
	if err != nil {
		return nil, err
	}
	return &Result{Frame: frame, Raw: raw, Cleaned: cleaned}, nil
}

// cleanCompound blanks the compound while the GSU pump is off or a sampling valve is open
func cleanCompound(columns map[string][]float64, compound string) int {
	target, ok := columns[compound]
	if !ok {
		return 0
	}

	pump := columns[ColumnPumpOn]
	pr1 := columns[ColumnValvePR1]
	pr2 := columns[ColumnValvePR2]

	n := 0
	for i := range target {
		blank := (pump != nil && pump[i] == 0) ||
			(pr1 != nil && pr1[i] == 1) ||
			(pr2 != nil && pr2[i] == 1)
		if blank && !math.IsNaN(target[i]) {
			target[i] = math.NaN()
			n++
		}
	}
	return n
}

// timestamper picks the time layout from the header
func (p *Parser) timestamper(header []string) (func([]string) (time.Time, error), error) {
	dateIdx, timeIdx, localIdx := -1, -1, -1
	for i, h := range header {
		switch h {
		case ColumnUTCDate:
			dateIdx = i
		case ColumnUTCTime:
			timeIdx = i
		case ColumnTime:
			localIdx = i
		}
	}

	switch {
	case dateIdx >= 0 && timeIdx >= 0:
		return func(rec []string) (time.Time, error) {
			return parseUTCDateTime(cell(rec, dateIdx), cell(rec, timeIdx))
		}, nil
	case localIdx >= 0:
		return func(rec []string) (time.Time, error) {
			return ParseLocalTime(cell(rec, localIdx), p.opts.Location)
		}, nil
	}
	return nil, ErrNoTimeColumn
}

// parseUTCDateTime parses the instrument's numeric UTC Date (ddmmyyyy) and UTC Time
// (hhmmss, possibly fractional) columns
func parseUTCDateTime(date, clock string) (time.Time, error) {
	d, err := strconv.ParseFloat(strings.TrimSpace(date), 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid UTC Date %q", date)
	}
	c, err := strconv.ParseFloat(strings.TrimSpace(clock), 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid UTC Time %q", clock)
	}
	stamp := fmt.Sprintf("%08d%06d", int64(d), int64(math.RoundToEven(c)))
	t, err := time.ParseInLocation("02012006150405", stamp, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid UTC timestamp %q: %w", stamp, err)
	}
	return t, nil
}

// ParseLocalTime parses a wall-clock timestamp in loc. RFC 3339 values keep their offset.
func ParseLocalTime(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.In(loc), nil
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// readCSV reads a whole CSV document, decoding Windows-1252 input to UTF-8
func readCSV(r io.Reader) ([]string, [][]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, fmt.Errorf("read: %w", err)
	}
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if !utf8.Valid(data) {
		decoded, _, err := transform.Bytes(charmap.Windows1252.NewDecoder(), data)
		if err != nil {
			return nil, nil, fmt.Errorf("decode: %w", err)
		}
		data = decoded
	}

	cr := csv.NewReader(bufio.NewReader(bytes.NewReader(data)))
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("parse csv: %w", err)
	}
	if len(records) == 0 {
		return nil, nil, nil
	}

	header := make([]string, len(records[0]))
	for i, h := range records[0] {
		header[i] = strings.TrimSpace(h)
	}

	body := records[1:]
	out := body[:0]
	for _, rec := range body {
		if !blankRecord(rec) {
			out = append(out, rec)
		}
	}
	return header, out, nil
}

func blankRecord(rec []string) bool {
	for _, c := range rec {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func sameHeader(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func cell(rec []string, i int) string {
	if i < 0 || i >= len(rec) {
		return ""
	}
	return rec[i]
}

// parseNumber returns NaN for empty or non-numeric cells
func parseNumber(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

package ingest

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/soltixdb/airaudit/internal/dataset"
)

// Kestrel LiNK exports start with three device/title lines, then the header, then a
// units line, then data
const (
	kestrelHeaderLine = 3
	kestrelUnitsLine  = 4
)

// KestrelTimeColumn is the timestamp column of a Kestrel export
const KestrelTimeColumn = "FORMATTED DATE_TIME"

// ParseKestrel reads a Kestrel weather-meter export into a frame localized to the
// parser's reference zone. The timestamp column is KestrelTimeColumn when present,
// otherwise the first column.
func (p *Parser) ParseKestrel(r io.Reader) (*dataset.Frame, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read kestrel: %w", err)
	}

	lines := bytes.SplitAfter(data, []byte("\n"))
	if len(lines) <= kestrelHeaderLine {
		return nil, fmt.Errorf("kestrel: %w", ErrNoData)
	}
	kept := make([][]byte, 0, len(lines))
	for i, l := range lines {
		if i < kestrelHeaderLine || i == kestrelUnitsLine {
			continue
		}
		kept = append(kept, l)
	}

	header, records, err := readCSV(bytes.NewReader(bytes.Join(kept, nil)))
	if err != nil {
		return nil, fmt.Errorf("kestrel: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("kestrel: %w", ErrNoData)
	}

	timeIdx := 0
	for i, h := range header {
		if strings.EqualFold(h, KestrelTimeColumn) {
			timeIdx = i
			break
		}
	}

	order := make([]string, 0, len(header)-1)
	index := make(map[string]int, len(header))
	for i, h := range header {
		if i == timeIdx {
			continue
		}
		if _, dup := index[h]; dup {
			continue
		}
		index[h] = i
		order = append(order, h)
	}

	times := make([]time.Time, len(records))
	columns := make(map[string][]float64, len(order))
	for _, name := range order {
		columns[name] = make([]float64, len(records))
	}
	for r, rec := range records {
		t, err := ParseLocalTime(cell(rec, timeIdx), p.opts.Location)
		if err != nil {
			return nil, fmt.Errorf("kestrel row %d: %w", r+1, err)
		}
		times[r] = t
		for _, name := range order {
			columns[name][r] = parseNumber(cell(rec, index[name]))
		}
	}

	p.logger.Debug("Parsed kestrel export", "rows", len(records), "channels", len(order))
	return dataset.NewFrame(times, order, columns)
}

// sortRows orders rows by time, keeping file order for equal timestamps
func sortRows(rows []row) {
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].t.Before(rows[j].t)
	})
}

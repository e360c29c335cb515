package dataset

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"
)

// RawTable keeps the uploaded rows as text so they can be exported unchanged.
// Rows are aligned with the frame's (sorted) rows.
type RawTable struct {
	Header []string   `json:"header"`
	Rows   [][]string `json:"rows"`
}

// Session is the handle for one uploaded audit log. The host owns it and passes it to
// every analysis; analyses only read Frame and write Flags.
type Session struct {
	ID        string
	FileName  string
	Compound  string
	AuditDate string
	CreatedAt time.Time

	Frame *Frame
	Raw   *RawTable
	Flags *FlagTable
}

// NewSession assembles a session with an untagged flag table
func NewSession(id, fileName, auditDate, compound string, frame *Frame, raw *RawTable) (*Session, error) {
	if frame == nil {
		return nil, fmt.Errorf("session %s: frame is required", id)
	}
	if raw == nil {
		raw = &RawTable{}
	}
	if len(raw.Rows) != 0 && len(raw.Rows) != frame.Len() {
		return nil, fmt.Errorf("session %s: %d raw rows for %d frame rows", id, len(raw.Rows), frame.Len())
	}
	if _, err := time.Parse(AuditDateLayout, auditDate); err != nil {
		return nil, fmt.Errorf("session %s: %q: %w", id, auditDate, ErrInvalidAuditDate)
	}
	return &Session{
		ID:        id,
		FileName:  fileName,
		Compound:  compound,
		AuditDate: auditDate,
		CreatedAt: time.Now().UTC(),
		Frame:     frame,
		Raw:       raw,
		Flags:     NewFlagTable(frame.Times()),
	}, nil
}

// Snapshot is the serialized form of a Session
type Snapshot struct {
	ID        string                `json:"id"`
	FileName  string                `json:"file_name"`
	Compound  string                `json:"compound"`
	AuditDate string                `json:"audit_date"`
	CreatedAt time.Time             `json:"created_at"`
	Times     []time.Time           `json:"times"`
	Channels  []string              `json:"channels"`
	Columns   map[string]NullFloats `json:"columns"`
	Raw       *RawTable             `json:"raw,omitempty"`
	Flags     []int8                `json:"flags"`
}

// Snapshot captures the session's current state
func (s *Session) Snapshot() Snapshot {
	cols := make(map[string]NullFloats, len(s.Frame.order))
	for _, name := range s.Frame.order {
		cols[name] = s.Frame.columns[name]
	}
	return Snapshot{
		ID:        s.ID,
		FileName:  s.FileName,
		Compound:  s.Compound,
		AuditDate: s.AuditDate,
		CreatedAt: s.CreatedAt,
		Times:     s.Frame.times,
		Channels:  s.Frame.order,
		Columns:   cols,
		Raw:       s.Raw,
		Flags:     s.Flags.Codes(),
	}
}

// Restore rebuilds a session from a snapshot
func Restore(snap Snapshot) (*Session, error) {
	cols := make(map[string][]float64, len(snap.Columns))
	for name, v := range snap.Columns {
		cols[name] = v
	}
	frame, err := NewFrame(snap.Times, snap.Channels, cols)
	if err != nil {
		return nil, fmt.Errorf("restore session %s: %w", snap.ID, err)
	}
	s, err := NewSession(snap.ID, snap.FileName, snap.AuditDate, snap.Compound, frame, snap.Raw)
	if err != nil {
		return nil, err
	}
	s.CreatedAt = snap.CreatedAt
	if len(snap.Flags) > 0 {
		if err := s.Flags.restoreCodes(snap.Flags); err != nil {
			return nil, fmt.Errorf("restore session %s: %w", snap.ID, err)
		}
	}
	return s, nil
}

// NullFloats is a float slice that encodes NaN as JSON null
type NullFloats []float64

// MarshalJSON implements json.Marshaler
func (nf NullFloats) MarshalJSON() ([]byte, error) {
	if nf == nil {
		return []byte("null"), nil
	}
	var buf bytes.Buffer
	buf.Grow(len(nf) * 8)
	buf.WriteByte('[')
	for i, v := range nf {
		if i > 0 {
			buf.WriteByte(',')
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			buf.WriteString("null")
			continue
		}
		buf.Write(strconv.AppendFloat(nil, v, 'g', -1, 64))
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

// UnmarshalJSON implements json.Unmarshaler
func (nf *NullFloats) UnmarshalJSON(data []byte) error {
	var raw []*float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil {
		*nf = nil
		return nil
	}
	out := make(NullFloats, len(raw))
	for i, p := range raw {
		if p == nil {
			out[i] = math.NaN()
			continue
		}
		out[i] = *p
	}
	*nf = out
	return nil
}

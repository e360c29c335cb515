package dataset

import (
	"errors"
	"fmt"
	"regexp"
	"time"
)

var (
	ErrInvalidTime      = errors.New("time must be hh:mm")
	ErrInvalidAuditDate = errors.New("audit date must be YYYYMMDD")
	ErrInvalidWindow    = errors.New("window start is after end")
)

// ClockPattern is the accepted form of a user-entered time of day
var ClockPattern = regexp.MustCompile(`^[0-2][0-9]:[0-5][0-9]$`)

// AuditDateLayout is the layout of an audit date ("20240315")
const AuditDateLayout = "20060102"

// Window is an inclusive time range
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// NewWindow returns a window, or ErrInvalidWindow if start is after end
func NewWindow(start, end time.Time) (Window, error) {
	if start.After(end) {
		return Window{}, fmt.Errorf("%s > %s: %w", start.Format(time.RFC3339), end.Format(time.RFC3339), ErrInvalidWindow)
	}
	return Window{Start: start, End: end}, nil
}

// Contains reports whether t lies in the window, both ends included
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

// Hull returns the smallest window covering both w and other
func (w Window) Hull(other Window) Window {
	out := w
	if other.Start.Before(out.Start) {
		out.Start = other.Start
	}
	if other.End.After(out.End) {
		out.End = other.End
	}
	return out
}

// LocalizeClock turns an "hh:mm" time on the audit date into an instant in loc
func LocalizeClock(auditDate, clock string, loc *time.Location) (time.Time, error) {
	if !ClockPattern.MatchString(clock) {
		return time.Time{}, fmt.Errorf("%q: %w", clock, ErrInvalidTime)
	}
	day, err := time.ParseInLocation(AuditDateLayout, auditDate, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%q: %w", auditDate, ErrInvalidAuditDate)
	}
	tod, err := time.Parse("15:04", clock)
	if err != nil {
		return time.Time{}, fmt.Errorf("%q: %w", clock, ErrInvalidTime)
	}
	return time.Date(day.Year(), day.Month(), day.Day(), tod.Hour(), tod.Minute(), 0, 0, loc), nil
}

// LocalizeWindow builds the window between two "hh:mm" times on the audit date
func LocalizeWindow(auditDate, start, end string, loc *time.Location) (Window, error) {
	s, err := LocalizeClock(auditDate, start, loc)
	if err != nil {
		return Window{}, err
	}
	e, err := LocalizeClock(auditDate, end, loc)
	if err != nil {
		return Window{}, err
	}
	return NewWindow(s, e)
}

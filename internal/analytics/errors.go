package analytics

import "errors"

// Error kinds surfaced by the audit computations. Callers match them with errors.Is.
var (
	ErrChannelNotFound     = errors.New("channel not found")
	ErrEmptyWindow         = errors.New("no data in the selected time range")
	ErrEmptySeries         = errors.New("series is empty")
	ErrInvalidReference    = errors.New("reference concentration must be positive")
	ErrUndefinedRatio      = errors.New("ratio is undefined (zero denominator)")
	ErrAmbiguousExtremum   = errors.New("extremum cannot be assigned to a side of the mean")
	ErrInsufficientSamples = errors.New("at least 2 samples are required")
)

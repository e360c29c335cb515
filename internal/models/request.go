package models

// WindowRequest selects a channel between two "hh:mm" times of the audit date
type WindowRequest struct {
	StartTime string `json:"start_time" validate:"required"`
	EndTime   string `json:"end_time" validate:"required"`
	Channel   string `json:"channel" validate:"required"`
}

// CalibrationRequest adds the certified gas concentration. The concentration may be
// sent as a JSON number or a decimal string.
type CalibrationRequest struct {
	WindowRequest
	Concentration interface{} `json:"concentration" validate:"required"`
}

// MDLRequest selects the spike and blank windows of one channel
type MDLRequest struct {
	SpikeStart    string `json:"spike_start" validate:"required"`
	SpikeEnd      string `json:"spike_end" validate:"required"`
	BlankStart    string `json:"blank_start" validate:"required"`
	BlankEnd      string `json:"blank_end" validate:"required"`
	Channel       string `json:"channel" validate:"required"`
	TimeAveraging string `json:"time_averaging,omitempty"` // none (default), 1m, 5m
}

// MetRequest compares iMet channels with a reference station export. With a
// multipart body the export is the "reference" file part instead of ReferenceCSV.
type MetRequest struct {
	StartTime    string `json:"start_time" form:"start_time" validate:"required"`
	EndTime      string `json:"end_time" form:"end_time" validate:"required"`
	ReferenceCSV string `json:"reference_csv,omitempty" form:"-"`
}

package models

import "time"

// ModuleResult is what a single module invocation reports back to the host
type ModuleResult struct {
	Module            string    `json:"module"`
	Event             string    `json:"event"`
	RunID             string    `json:"run_id"`
	Timestamp         time.Time `json:"timestamp"`
	ProcessingTimeSec float64   `json:"processing_time_sec"`
	Message           string    `json:"message"`

	// Value carries the scalar a module measured, when it has one
	Value *float64 `json:"value,omitempty"`

	// ExtraDataFile names the extra-data file written by the run
	ExtraDataFile string `json:"extra_data_file,omitempty"`

	// Skipped is set when throttling prevented the module doing any work
	Skipped bool `json:"skipped"`
}

// ExtraValue is one entry of an extra-data file
type ExtraValue struct {
	Value   any `json:"value"`
	Expires int `json:"expires"`
}

// ExtraData maps overlay variable names to their values
type ExtraData map[string]ExtraValue

// ErrorResponse is printed instead of a result when a run fails in JSON mode
type ErrorResponse struct {
	Error    string `json:"error"`
	Message  string `json:"message,omitempty"`
	ExitCode int    `json:"exit_code"`
}

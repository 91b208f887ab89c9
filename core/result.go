package core

import "time"

// StepResult is the outcome of a single step execution attempt chain
// (including any retries). Success implies Error is empty; failure implies
// Error is non-nil.
type StepResult struct {
	StepID    string        `json:"step_id"`
	Success   bool          `json:"success"`
	Data      any           `json:"data,omitempty"`
	Error     error         `json:"-"`
	ErrorText string        `json:"error,omitempty"`
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Duration  time.Duration `json:"duration_ms"`
	Retries   int           `json:"retries"`
}

// NewFailure builds a StepResult with Success=false and Error/ErrorText set
// from err. It never panics on a nil err; callers should not pass nil.
func NewFailure(stepID string, err error, start time.Time, retries int) StepResult {
	now := time.Now()
	return StepResult{
		StepID:    stepID,
		Success:   false,
		Error:     err,
		ErrorText: err.Error(),
		StartTime: start,
		EndTime:   now,
		Duration:  now.Sub(start),
		Retries:   retries,
	}
}

// NewSuccess builds a StepResult with Success=true and the given data.
func NewSuccess(stepID string, data any, start time.Time, retries int) StepResult {
	now := time.Now()
	return StepResult{
		StepID:    stepID,
		Success:   true,
		Data:      data,
		StartTime: start,
		EndTime:   now,
		Duration:  now.Sub(start),
		Retries:   retries,
	}
}

// WorkflowResult is the outcome of a full Workflow Executor run.
type WorkflowResult struct {
	// Success reflects whether the engine loop terminated via routing->none
	// without raising a fatal error. See FinalStepSuccess for the other,
	// commonly-conflated notion (whether the last dispatched step itself
	// succeeded) — spec.md Design Notes (i).
	Success bool `json:"success"`

	// FinalStepSuccess is the Success field of the last StepResult recorded,
	// or false if no step ever ran.
	FinalStepSuccess bool `json:"final_step_success"`

	Context *WorkflowContext `json:"context"`
	Error   error            `json:"-"`
	ErrorText string         `json:"error,omitempty"`
	Trace   []TraceEntry     `json:"trace,omitempty"`
	Duration time.Duration   `json:"duration_ms"`
}

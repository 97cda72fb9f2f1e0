package model

import (
	"time"
)

const (
	// StatusPending indicates a step has not started yet.
	StatusPending = "pending"
	// StatusRunning indicates a step is actively executing.
	StatusRunning = "running"
	// StatusSuccess marks a successful step execution, including steps the
	// host already satisfied (idempotent convergence).
	StatusSuccess = "success"
	// StatusSkipped indicates a guarded step whose guard was unmet; the
	// action was never invoked.
	StatusSkipped = "skipped"
	// StatusFailed marks a fatal failure. The pipeline halts at this step.
	StatusFailed = "failed"
	// StatusFailedNonFatal marks a failure on a step declared non-fatal.
	// The pipeline records a warning and continues.
	StatusFailedNonFatal = "failed-nonfatal"
	// StatusWouldChange indicates a dry run determined the step would
	// mutate the host.
	StatusWouldChange = "would-change"
)

// StepResult captures the outcome of executing a single pipeline step.
type StepResult struct {
	StepID    string
	Status    string
	Message   string
	FollowUp  string
	Changed   bool
	Error     error
	Duration  time.Duration
	Timestamp time.Time
}

// Completed reports whether the result represents a finished step.
func (r StepResult) Completed() bool {
	switch r.Status {
	case StatusSuccess, StatusSkipped, StatusFailed, StatusFailedNonFatal, StatusWouldChange:
		return true
	}
	return false
}

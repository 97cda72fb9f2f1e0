package model

import (
	"time"
)

// RunReport accumulates the ordered outcomes of a single pipeline run. It
// lives only for the duration of the process; nothing is persisted between
// runs.
type RunReport struct {
	Results   []StepResult
	Halted    bool
	HaltedAt  string
	StartedAt time.Time
	Duration  time.Duration
}

// Record appends a step outcome in execution order.
func (r *RunReport) Record(res StepResult) {
	r.Results = append(r.Results, res)
}

// Counts tallies outcomes by status.
func (r *RunReport) Counts() map[string]int {
	counts := make(map[string]int, len(r.Results))
	for _, res := range r.Results {
		counts[res.Status]++
	}
	return counts
}

// FollowUps collects the manual actions deferred to the operator, in step
// order.
func (r *RunReport) FollowUps() []string {
	var actions []string
	for _, res := range r.Results {
		if res.FollowUp != "" && res.Status == StatusSuccess {
			actions = append(actions, res.FollowUp)
		}
	}
	return actions
}

// HasFailures reports whether any step failed, fatally or not.
func (r *RunReport) HasFailures() bool {
	for _, res := range r.Results {
		if res.Status == StatusFailed || res.Status == StatusFailedNonFatal {
			return true
		}
	}
	return false
}

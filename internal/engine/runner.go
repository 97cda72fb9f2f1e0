// Package engine executes a manifest's step table strictly in order, one
// step at a time. It owns the failure semantics: a fatal step halts the run,
// a non-fatal step degrades to a warning, and an unmet guard skips the step
// without ever invoking its action.
package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rigup-sh/rigup/internal/config"
	"github.com/rigup-sh/rigup/internal/facts"
	"github.com/rigup-sh/rigup/internal/model"
	"github.com/rigup-sh/rigup/internal/plugin"
	riguperrors "github.com/rigup-sh/rigup/pkg/errors"
)

// Runner walks the ordered step table of a manifest.
type Runner struct{}

// New creates a Runner.
func New() *Runner {
	return &Runner{}
}

// Run executes every step in manifest order and returns the accumulated
// report. The error is non-nil only when a fatal step failed (a StepError
// naming it) or the execution context is unusable; in both cases the report
// still holds everything recorded up to the halt. Steps after a halt are
// never attempted and never appear in the report.
func (r *Runner) Run(execCtx *ExecutionContext) (*model.RunReport, error) {
	if execCtx == nil {
		return nil, riguperrors.NewStepError("", fmt.Errorf("execution context is nil"))
	}
	if execCtx.Manifest == nil {
		return nil, riguperrors.NewStepError("", fmt.Errorf("execution context manifest is nil"))
	}

	ctx := execCtx.Context
	if ctx == nil {
		ctx = context.Background()
	}

	report := &model.RunReport{StartedAt: time.Now()}
	steps := execCtx.Manifest.Steps

	for i := range steps {
		step := &steps[i]

		if err := ctx.Err(); err != nil {
			report.Halted = true
			report.HaltedAt = step.ID
			report.Duration = time.Since(report.StartedAt)
			return report, riguperrors.NewStepError(step.ID, err)
		}

		if execCtx.Observer != nil {
			execCtx.Observer.StepStarted(*step, i, len(steps))
		}
		log := execCtx.Logger.WithStep(step.ID)
		log.Infof("step %d/%d: %s", i+1, len(steps), step.DisplayName())

		result, err := r.runStep(ctx, execCtx, step)

		if err != nil && !step.Fatal {
			result.Status = model.StatusFailedNonFatal
			log.Warnf("continuing after failure: %v", err)
			err = nil
		}

		report.Record(*result)
		if execCtx.Observer != nil {
			execCtx.Observer.StepFinished(*step, *result)
		}

		if err != nil {
			report.Halted = true
			report.HaltedAt = step.ID
			report.Duration = time.Since(report.StartedAt)
			log.Error(err, "fatal step failed, halting run")
			return report, riguperrors.NewStepError(step.ID, err)
		}
	}

	report.Duration = time.Since(report.StartedAt)
	return report, nil
}

// runStep executes one step: guard, evaluate, and (when needed) apply. A
// non-nil error always comes back paired with a completed result; the caller
// decides whether the error halts the run.
func (r *Runner) runStep(ctx context.Context, execCtx *ExecutionContext, step *config.Step) (*model.StepResult, error) {
	start := time.Now()

	if met, reason := guardMet(step, execCtx.Facts); !met {
		return &model.StepResult{
			StepID:    step.ID,
			Status:    model.StatusSkipped,
			Message:   reason,
			Duration:  time.Since(start),
			Timestamp: time.Now(),
		}, nil
	}

	impl, err := plugin.Get(step.Action)
	if err != nil {
		return failedResult(step.ID, start, err), err
	}

	evaluation, err := impl.Evaluate(ctx, step)
	if err != nil {
		result := failedResult(step.ID, start, err)
		result.Message = fmt.Sprintf("evaluation failed: %v", err)
		return result, err
	}

	if execCtx.DryRun {
		return dryRunResult(step, evaluation, start), nil
	}

	if evaluation.Satisfied {
		message := evaluation.Message
		if message == "" {
			message = "already satisfied"
		}
		return &model.StepResult{
			StepID:    step.ID,
			Status:    model.StatusSuccess,
			Message:   message,
			Duration:  time.Since(start),
			Timestamp: time.Now(),
		}, nil
	}

	result, applyErr := impl.Apply(ctx, evaluation, step)
	if result == nil {
		result = &model.StepResult{StepID: step.ID}
	}
	if result.StepID == "" {
		result.StepID = step.ID
	}
	result.Duration = time.Since(start)
	if result.Timestamp.IsZero() {
		result.Timestamp = time.Now()
	}

	if applyErr != nil {
		if result.Status == "" {
			result.Status = model.StatusFailed
		}
		if result.Error == nil {
			result.Error = applyErr
		}
		if result.Message == "" {
			result.Message = applyErr.Error()
		}
		return result, applyErr
	}

	if result.Status == "" {
		result.Status = model.StatusSuccess
	}
	if result.Changed && step.FollowUp != "" {
		result.FollowUp = step.FollowUp
	}
	return result, nil
}

// guardMet evaluates a step's `when:` fact reference against the snapshot.
// Unknown keys fail closed; the manifest validator rejects them long before
// a run gets here.
func guardMet(step *config.Step, hostFacts *facts.Facts) (bool, string) {
	if step.When == "" {
		return true, ""
	}
	if hostFacts == nil {
		return false, fmt.Sprintf("guard %s: host facts unavailable", step.When)
	}

	key, negated := strings.CutPrefix(step.When, "!")
	value, known := hostFacts.Bool(key)
	if !known {
		return false, fmt.Sprintf("guard references unknown fact %q", key)
	}
	if negated {
		value = !value
	}
	if value {
		return true, ""
	}
	return false, fmt.Sprintf("guard %s not met", step.When)
}

func dryRunResult(step *config.Step, evaluation *model.Evaluation, start time.Time) *model.StepResult {
	result := &model.StepResult{
		StepID:    step.ID,
		Duration:  time.Since(start),
		Timestamp: time.Now(),
	}

	if evaluation.Satisfied {
		result.Status = model.StatusSuccess
		result.Message = evaluation.Message
		if result.Message == "" {
			result.Message = "already satisfied"
		}
		return result
	}

	result.Status = model.StatusWouldChange
	result.Message = evaluation.Diff
	if result.Message == "" {
		result.Message = evaluation.Message
	}
	return result
}

func failedResult(stepID string, start time.Time, err error) *model.StepResult {
	return &model.StepResult{
		StepID:    stepID,
		Status:    model.StatusFailed,
		Message:   err.Error(),
		Error:     err,
		Duration:  time.Since(start),
		Timestamp: time.Now(),
	}
}

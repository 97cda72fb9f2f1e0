package aptplugin

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/rigup-sh/rigup/internal/config"
	"github.com/rigup-sh/rigup/internal/model"
	"github.com/rigup-sh/rigup/internal/plugin"
	"github.com/rigup-sh/rigup/internal/plugins/internalexec"
)

type aptPlugin struct{}

// New creates a new apt plugin instance.
func New() plugin.Plugin {
	return &aptPlugin{}
}

var _ plugin.Plugin = (*aptPlugin)(nil)

func (p *aptPlugin) Metadata() plugin.Metadata {
	return plugin.Metadata{
		Name:        "apt",
		Version:     "1.0.0",
		Description: "Manages system packages with the apt package manager.",
	}
}

func (p *aptPlugin) Schema() any {
	return config.AptStep{}
}

// Evaluation data for apt operations
type aptEvaluationData struct {
	Missing []string
}

func (p *aptPlugin) Evaluate(ctx context.Context, step *config.Step) (*model.Evaluation, error) {
	cfg := step.Apt
	if cfg == nil {
		return nil, plugin.NewValidationError(step.ID, fmt.Errorf("apt configuration missing"))
	}

	if err := ctx.Err(); err != nil {
		return nil, plugin.NewStateError(step.ID, fmt.Errorf("context cancelled: %w", err))
	}

	// Query installed state read-only; dpkg exits non-zero for unknown
	// packages.
	var missing []string
	for _, name := range cfg.Packages {
		if _, err := internalexec.Query(ctx, "dpkg-query", "-W", name); err != nil {
			var exitErr *exec.ExitError
			if errors.As(err, &exitErr) {
				missing = append(missing, name)
			} else {
				return nil, plugin.NewExecutionError(step.ID, fmt.Errorf("failed to query package %s: %w", name, err))
			}
		}
	}

	internalData := &aptEvaluationData{Missing: missing}

	// Index refreshes and upgrades always have work to do; apt itself
	// decides whether anything changes.
	if cfg.Update || cfg.Upgrade {
		return &model.Evaluation{
			StepID:       step.ID,
			Satisfied:    false,
			Message:      describePending(cfg, missing),
			InternalData: internalData,
		}, nil
	}

	if len(missing) == 0 {
		return &model.Evaluation{
			StepID:       step.ID,
			Satisfied:    true,
			Message:      fmt.Sprintf("all packages installed: %s", strings.Join(cfg.Packages, ", ")),
			InternalData: internalData,
		}, nil
	}

	return &model.Evaluation{
		StepID:       step.ID,
		Satisfied:    false,
		Message:      fmt.Sprintf("packages not installed: %s", strings.Join(missing, ", ")),
		Diff:         fmt.Sprintf("would install: %s", strings.Join(missing, ", ")),
		InternalData: internalData,
	}, nil
}

func (p *aptPlugin) Apply(ctx context.Context, evaluation *model.Evaluation, step *config.Step) (*model.StepResult, error) {
	cfg := step.Apt
	if cfg == nil {
		return nil, plugin.NewValidationError(step.ID, fmt.Errorf("apt configuration missing"))
	}

	var data *aptEvaluationData
	if evaluation != nil {
		if typed, ok := evaluation.InternalData.(*aptEvaluationData); ok {
			data = typed
		}
	}
	if data == nil {
		var err error
		evaluation, err = p.Evaluate(ctx, step)
		if err != nil {
			return nil, err
		}
		typed, ok := evaluation.InternalData.(*aptEvaluationData)
		if !ok || typed == nil {
			return nil, plugin.NewExecutionError(step.ID, fmt.Errorf("evaluation failed during apply"))
		}
		data = typed
	}

	if evaluation.Satisfied {
		return &model.StepResult{
			StepID:  step.ID,
			Status:  model.StatusSuccess,
			Message: "no changes needed",
		}, nil
	}

	var actions []string

	if cfg.Update {
		if res, err := runApt(ctx, "update"); err != nil {
			return failure(step.ID, "refreshing package index", res, err)
		}
		actions = append(actions, "package index refreshed")
	}

	if cfg.Upgrade {
		if res, err := runApt(ctx, "upgrade", "-y"); err != nil {
			return failure(step.ID, "upgrading packages", res, err)
		}
		actions = append(actions, "packages upgraded")
	}

	if len(data.Missing) > 0 {
		args := append([]string{"install", "-y"}, data.Missing...)
		if res, err := runApt(ctx, args...); err != nil {
			return failure(step.ID, "installing packages", res, err)
		}
		actions = append(actions, fmt.Sprintf("installed: %s", strings.Join(data.Missing, ", ")))
	}

	if len(actions) == 0 {
		return &model.StepResult{
			StepID:  step.ID,
			Status:  model.StatusSuccess,
			Message: "no changes needed",
		}, nil
	}

	return &model.StepResult{
		StepID:  step.ID,
		Status:  model.StatusSuccess,
		Message: strings.Join(actions, "; "),
		Changed: true,
	}, nil
}

func describePending(cfg *config.AptStep, missing []string) string {
	var parts []string
	if cfg.Update {
		parts = append(parts, "package index refresh pending")
	}
	if cfg.Upgrade {
		parts = append(parts, "package upgrade pending")
	}
	if len(missing) > 0 {
		parts = append(parts, fmt.Sprintf("packages not installed: %s", strings.Join(missing, ", ")))
	}
	return strings.Join(parts, "; ")
}

func runApt(ctx context.Context, args ...string) (internalexec.Result, error) {
	return internalexec.Run(ctx, []string{"DEBIAN_FRONTEND=noninteractive"}, "apt-get", args...)
}

func failure(stepID, action string, res internalexec.Result, err error) (*model.StepResult, error) {
	if combined := internalexec.PrimaryOutput(res); combined != "" {
		err = fmt.Errorf("%w: %s", err, combined)
	}
	wrapped := fmt.Errorf("%s: %w", action, err)
	result := &model.StepResult{
		StepID:  stepID,
		Status:  model.StatusFailed,
		Message: wrapped.Error(),
		Error:   wrapped,
	}
	return result, plugin.NewExecutionError(stepID, wrapped)
}

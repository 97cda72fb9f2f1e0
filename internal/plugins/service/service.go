package serviceplugin

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rigup-sh/rigup/internal/config"
	"github.com/rigup-sh/rigup/internal/model"
	"github.com/rigup-sh/rigup/internal/plugin"
	"github.com/rigup-sh/rigup/internal/plugins/internalexec"
)

type servicePlugin struct{}

// New creates a new service plugin instance.
func New() plugin.Plugin {
	return &servicePlugin{}
}

var _ plugin.Plugin = (*servicePlugin)(nil)

func (p *servicePlugin) Metadata() plugin.Metadata {
	return plugin.Metadata{
		Name:        "service",
		Version:     "1.0.0",
		Description: "Enables and starts systemd units.",
	}
}

func (p *servicePlugin) Schema() any {
	return config.ServiceStep{}
}

// Evaluation data for service operations
type serviceEvaluationData struct {
	NeedsEnable bool
	NeedsStart  bool
}

func (p *servicePlugin) Evaluate(ctx context.Context, step *config.Step) (*model.Evaluation, error) {
	cfg := step.Service
	if cfg == nil {
		return nil, plugin.NewValidationError(step.ID, fmt.Errorf("service configuration missing"))
	}

	if !internalexec.LookPath("systemctl") {
		return nil, plugin.NewStateError(step.ID, fmt.Errorf("systemctl not found on PATH"))
	}

	data := &serviceEvaluationData{
		NeedsEnable: cfg.Enable && !unitEnabled(ctx, cfg.Unit),
		NeedsStart:  cfg.Start && !unitActive(ctx, cfg.Unit),
	}

	if !data.NeedsEnable && !data.NeedsStart {
		return &model.Evaluation{
			StepID:       step.ID,
			Satisfied:    true,
			Message:      fmt.Sprintf("unit %s already in desired state", cfg.Unit),
			InternalData: data,
		}, nil
	}

	var pending []string
	if data.NeedsEnable {
		pending = append(pending, "enable")
	}
	if data.NeedsStart {
		pending = append(pending, "start")
	}

	return &model.Evaluation{
		StepID:       step.ID,
		Satisfied:    false,
		Message:      fmt.Sprintf("unit %s needs %s", cfg.Unit, strings.Join(pending, " and ")),
		Diff:         fmt.Sprintf("would run: systemctl %s %s", strings.Join(pending, ", "), cfg.Unit),
		InternalData: data,
	}, nil
}

func (p *servicePlugin) Apply(ctx context.Context, evaluation *model.Evaluation, step *config.Step) (*model.StepResult, error) {
	cfg := step.Service
	if cfg == nil {
		return nil, plugin.NewValidationError(step.ID, fmt.Errorf("service configuration missing"))
	}

	var data *serviceEvaluationData
	if evaluation != nil {
		if typed, ok := evaluation.InternalData.(*serviceEvaluationData); ok {
			data = typed
		}
	}
	if data == nil {
		var err error
		evaluation, err = p.Evaluate(ctx, step)
		if err != nil {
			return nil, err
		}
		typed, ok := evaluation.InternalData.(*serviceEvaluationData)
		if !ok || typed == nil {
			return nil, plugin.NewExecutionError(step.ID, fmt.Errorf("evaluation failed during apply"))
		}
		data = typed
	}

	if !data.NeedsEnable && !data.NeedsStart {
		return &model.StepResult{
			StepID:  step.ID,
			Status:  model.StatusSuccess,
			Message: "no changes needed",
		}, nil
	}

	var actions []string

	if data.NeedsEnable {
		if res, err := internalexec.Run(ctx, nil, "systemctl", "enable", cfg.Unit); err != nil {
			return failure(step.ID, fmt.Sprintf("enabling unit %s", cfg.Unit), res, err)
		}
		actions = append(actions, "enabled")
	}

	if data.NeedsStart {
		if res, err := internalexec.Run(ctx, nil, "systemctl", "start", cfg.Unit); err != nil {
			return failure(step.ID, fmt.Sprintf("starting unit %s", cfg.Unit), res, err)
		}
		actions = append(actions, "started")

		// Some daemons accept the start and then fall over; give the
		// unit a moment and confirm it stayed up.
		if cfg.SettleSeconds > 0 {
			select {
			case <-ctx.Done():
				return failure(step.ID, fmt.Sprintf("waiting for unit %s to settle", cfg.Unit), internalexec.Result{}, ctx.Err())
			case <-time.After(time.Duration(cfg.SettleSeconds) * time.Second):
			}

			if !unitActive(ctx, cfg.Unit) {
				err := fmt.Errorf("unit %s did not stay active after start", cfg.Unit)
				result := &model.StepResult{
					StepID:  step.ID,
					Status:  model.StatusFailed,
					Message: err.Error(),
					Error:   err,
				}
				return result, plugin.NewExecutionError(step.ID, err)
			}
		}
	}

	return &model.StepResult{
		StepID:  step.ID,
		Status:  model.StatusSuccess,
		Message: fmt.Sprintf("unit %s %s", cfg.Unit, strings.Join(actions, " and ")),
		Changed: true,
	}, nil
}

func unitEnabled(ctx context.Context, unit string) bool {
	out, err := internalexec.Query(ctx, "systemctl", "is-enabled", unit)
	return err == nil && strings.HasPrefix(out, "enabled")
}

func unitActive(ctx context.Context, unit string) bool {
	_, err := internalexec.Query(ctx, "systemctl", "is-active", unit)
	return err == nil
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

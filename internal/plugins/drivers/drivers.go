package driversplugin

import (
	"bufio"
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

type driversPlugin struct{}

// New creates a new drivers plugin instance.
func New() plugin.Plugin {
	return &driversPlugin{}
}

var _ plugin.Plugin = (*driversPlugin)(nil)

func (p *driversPlugin) Metadata() plugin.Metadata {
	return plugin.Metadata{
		Name:        "drivers",
		Version:     "1.0.0",
		Description: "Installs hardware drivers via ubuntu-drivers autoinstall.",
	}
}

func (p *driversPlugin) Schema() any {
	return config.DriversStep{}
}

// Evaluation data for driver operations
type driversEvaluationData struct {
	Candidates []string
	Missing    []string
}

func (p *driversPlugin) Evaluate(ctx context.Context, step *config.Step) (*model.Evaluation, error) {
	cfg := step.Drivers
	if cfg == nil {
		return nil, plugin.NewValidationError(step.ID, fmt.Errorf("drivers configuration missing"))
	}

	if !internalexec.LookPath("ubuntu-drivers") {
		return nil, plugin.NewStateError(step.ID, fmt.Errorf("ubuntu-drivers not found on PATH"))
	}

	out, err := internalexec.Query(ctx, "ubuntu-drivers", "list")
	if err != nil {
		return nil, plugin.NewStateError(step.ID, fmt.Errorf("cannot list driver candidates: %w", err))
	}

	candidates := parseDriverList(out)

	// The list names every package that applies to this hardware,
	// installed or not; dpkg tells the two apart.
	var missing []string
	for _, name := range candidates {
		if _, err := internalexec.Query(ctx, "dpkg-query", "-W", name); err != nil {
			var exitErr *exec.ExitError
			if errors.As(err, &exitErr) {
				missing = append(missing, name)
			} else {
				return nil, plugin.NewExecutionError(step.ID, fmt.Errorf("failed to query package %s: %w", name, err))
			}
		}
	}

	internalData := &driversEvaluationData{Candidates: candidates, Missing: missing}

	if len(candidates) == 0 {
		return &model.Evaluation{
			StepID:       step.ID,
			Satisfied:    true,
			Message:      "no driver packages apply to this hardware",
			InternalData: internalData,
		}, nil
	}

	if len(missing) == 0 {
		return &model.Evaluation{
			StepID:       step.ID,
			Satisfied:    true,
			Message:      fmt.Sprintf("driver packages already installed: %s", strings.Join(candidates, ", ")),
			InternalData: internalData,
		}, nil
	}

	return &model.Evaluation{
		StepID:       step.ID,
		Satisfied:    false,
		Message:      fmt.Sprintf("driver packages available: %s", strings.Join(missing, ", ")),
		Diff:         "would run: ubuntu-drivers autoinstall",
		InternalData: internalData,
	}, nil
}

func (p *driversPlugin) Apply(ctx context.Context, evaluation *model.Evaluation, step *config.Step) (*model.StepResult, error) {
	cfg := step.Drivers
	if cfg == nil {
		return nil, plugin.NewValidationError(step.ID, fmt.Errorf("drivers configuration missing"))
	}

	var data *driversEvaluationData
	if evaluation != nil {
		if typed, ok := evaluation.InternalData.(*driversEvaluationData); ok {
			data = typed
		}
	}
	if data == nil {
		var err error
		evaluation, err = p.Evaluate(ctx, step)
		if err != nil {
			return nil, err
		}
		typed, ok := evaluation.InternalData.(*driversEvaluationData)
		if !ok || typed == nil {
			return nil, plugin.NewExecutionError(step.ID, fmt.Errorf("evaluation failed during apply"))
		}
		data = typed
	}

	if len(data.Missing) == 0 {
		return &model.StepResult{
			StepID:  step.ID,
			Status:  model.StatusSuccess,
			Message: "no changes needed",
		}, nil
	}

	if !cfg.AutoInstall {
		return &model.StepResult{
			StepID:  step.ID,
			Status:  model.StatusSuccess,
			Message: fmt.Sprintf("driver packages available but autoinstall disabled: %s", strings.Join(data.Missing, ", ")),
		}, nil
	}

	res, err := internalexec.Run(ctx, []string{"DEBIAN_FRONTEND=noninteractive"}, "ubuntu-drivers", "autoinstall")
	if err != nil {
		if combined := internalexec.PrimaryOutput(res); combined != "" {
			err = fmt.Errorf("%w: %s", err, combined)
		}
		wrapped := fmt.Errorf("driver autoinstall: %w", err)
		result := &model.StepResult{
			StepID:  step.ID,
			Status:  model.StatusFailed,
			Message: wrapped.Error(),
			Error:   wrapped,
		}
		return result, plugin.NewExecutionError(step.ID, wrapped)
	}

	return &model.StepResult{
		StepID:  step.ID,
		Status:  model.StatusSuccess,
		Message: fmt.Sprintf("installed drivers: %s", strings.Join(data.Missing, ", ")),
		Changed: true,
	}, nil
}

// parseDriverList extracts package names from `ubuntu-drivers list` output.
// Lines look like "nvidia-driver-535, (kernel modules provided by ...)".
func parseDriverList(out string) []string {
	var packages []string

	scanner := bufio.NewScanner(strings.NewReader(out))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		name := strings.TrimSuffix(fields[0], ",")
		if name != "" {
			packages = append(packages, name)
		}
	}

	return packages
}

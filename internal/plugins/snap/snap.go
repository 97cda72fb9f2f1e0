package snapplugin

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"github.com/rigup-sh/rigup/internal/config"
	"github.com/rigup-sh/rigup/internal/model"
	"github.com/rigup-sh/rigup/internal/plugin"
	"github.com/rigup-sh/rigup/internal/plugins/internalexec"
)

type snapPlugin struct{}

// New creates a new snap plugin instance.
func New() plugin.Plugin {
	return &snapPlugin{}
}

var _ plugin.Plugin = (*snapPlugin)(nil)

func (p *snapPlugin) Metadata() plugin.Metadata {
	return plugin.Metadata{
		Name:        "snap",
		Version:     "1.0.0",
		Description: "Installs snap applications.",
	}
}

func (p *snapPlugin) Schema() any {
	return config.SnapStep{}
}

// Evaluation data for snap operations
type snapEvaluationData struct {
	Missing []config.SnapApp
}

func (p *snapPlugin) Evaluate(ctx context.Context, step *config.Step) (*model.Evaluation, error) {
	cfg := step.Snap
	if cfg == nil {
		return nil, plugin.NewValidationError(step.ID, fmt.Errorf("snap configuration missing"))
	}

	if !internalexec.LookPath("snap") {
		return nil, plugin.NewStateError(step.ID, fmt.Errorf("snap not found on PATH"))
	}

	out, err := internalexec.Query(ctx, "snap", "list")
	if err != nil {
		return nil, plugin.NewStateError(step.ID, fmt.Errorf("cannot list installed snaps: %w", err))
	}

	installed := parseSnapList(out)

	data := &snapEvaluationData{}
	for _, app := range cfg.Apps {
		if !installed[app.Name] {
			data.Missing = append(data.Missing, app)
		}
	}

	if len(data.Missing) == 0 {
		names := make([]string, 0, len(cfg.Apps))
		for _, app := range cfg.Apps {
			names = append(names, app.Name)
		}
		return &model.Evaluation{
			StepID:       step.ID,
			Satisfied:    true,
			Message:      fmt.Sprintf("all snaps installed: %s", strings.Join(names, ", ")),
			InternalData: data,
		}, nil
	}

	missing := make([]string, 0, len(data.Missing))
	for _, app := range data.Missing {
		missing = append(missing, app.Name)
	}

	return &model.Evaluation{
		StepID:       step.ID,
		Satisfied:    false,
		Message:      fmt.Sprintf("snaps not installed: %s", strings.Join(missing, ", ")),
		Diff:         fmt.Sprintf("would install: %s", strings.Join(missing, ", ")),
		InternalData: data,
	}, nil
}

func (p *snapPlugin) Apply(ctx context.Context, evaluation *model.Evaluation, step *config.Step) (*model.StepResult, error) {
	cfg := step.Snap
	if cfg == nil {
		return nil, plugin.NewValidationError(step.ID, fmt.Errorf("snap configuration missing"))
	}

	var data *snapEvaluationData
	if evaluation != nil {
		if typed, ok := evaluation.InternalData.(*snapEvaluationData); ok {
			data = typed
		}
	}
	if data == nil {
		var err error
		evaluation, err = p.Evaluate(ctx, step)
		if err != nil {
			return nil, err
		}
		typed, ok := evaluation.InternalData.(*snapEvaluationData)
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

	// Snaps install one at a time; --classic and --channel are per-snap
	// flags and snapd rejects mixing confined and classic in one
	// transaction.
	installed := make([]string, 0, len(data.Missing))
	for _, app := range data.Missing {
		args := []string{"install", app.Name}
		if app.Classic {
			args = append(args, "--classic")
		}
		if app.Channel != "" {
			args = append(args, "--channel="+app.Channel)
		}

		if res, err := internalexec.Run(ctx, nil, "snap", args...); err != nil {
			if combined := internalexec.PrimaryOutput(res); combined != "" {
				err = fmt.Errorf("%w: %s", err, combined)
			}
			wrapped := fmt.Errorf("installing snap %s: %w", app.Name, err)
			result := &model.StepResult{
				StepID:  step.ID,
				Status:  model.StatusFailed,
				Message: wrapped.Error(),
				Error:   wrapped,
			}
			return result, plugin.NewExecutionError(step.ID, wrapped)
		}
		installed = append(installed, app.Name)
	}

	return &model.StepResult{
		StepID:  step.ID,
		Status:  model.StatusSuccess,
		Message: fmt.Sprintf("installed snaps: %s", strings.Join(installed, ", ")),
		Changed: true,
	}, nil
}

// parseSnapList extracts installed snap names from `snap list` output,
// skipping the header row.
func parseSnapList(out string) map[string]bool {
	installed := make(map[string]bool)

	scanner := bufio.NewScanner(strings.NewReader(out))
	first := true
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if first {
			first = false
			if strings.HasPrefix(line, "Name") {
				continue
			}
		}
		fields := strings.Fields(line)
		if len(fields) > 0 {
			installed[fields[0]] = true
		}
	}

	return installed
}

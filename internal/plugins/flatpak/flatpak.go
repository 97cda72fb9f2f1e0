package flatpakplugin

import (
	"context"
	"fmt"
	"strings"

	"github.com/rigup-sh/rigup/internal/config"
	"github.com/rigup-sh/rigup/internal/model"
	"github.com/rigup-sh/rigup/internal/plugin"
	"github.com/rigup-sh/rigup/internal/plugins/internalexec"
)

type flatpakPlugin struct{}

// New creates a new flatpak plugin instance.
func New() plugin.Plugin {
	return &flatpakPlugin{}
}

var _ plugin.Plugin = (*flatpakPlugin)(nil)

func (p *flatpakPlugin) Metadata() plugin.Metadata {
	return plugin.Metadata{
		Name:        "flatpak",
		Version:     "1.0.0",
		Description: "Registers flatpak remotes and installs applications from them.",
	}
}

func (p *flatpakPlugin) Schema() any {
	return config.FlatpakStep{}
}

// Evaluation data for flatpak operations
type flatpakEvaluationData struct {
	NeedsRemote bool
	Missing     []string
}

func (p *flatpakPlugin) Evaluate(ctx context.Context, step *config.Step) (*model.Evaluation, error) {
	cfg := step.Flatpak
	if cfg == nil {
		return nil, plugin.NewValidationError(step.ID, fmt.Errorf("flatpak configuration missing"))
	}

	if !internalexec.LookPath("flatpak") {
		return nil, plugin.NewStateError(step.ID, fmt.Errorf("flatpak not found on PATH"))
	}

	data := &flatpakEvaluationData{}

	if cfg.Remote != "" {
		remotes, err := internalexec.Query(ctx, "flatpak", "remotes", "--columns=name")
		if err != nil {
			return nil, plugin.NewStateError(step.ID, fmt.Errorf("cannot list flatpak remotes: %w", err))
		}
		data.NeedsRemote = !containsLine(remotes, cfg.Remote)
	}

	if len(cfg.Apps) > 0 {
		installed, err := internalexec.Query(ctx, "flatpak", "list", "--app", "--columns=application")
		if err != nil {
			return nil, plugin.NewStateError(step.ID, fmt.Errorf("cannot list flatpak applications: %w", err))
		}
		for _, app := range cfg.Apps {
			if !containsLine(installed, app) {
				data.Missing = append(data.Missing, app)
			}
		}
	}

	if !data.NeedsRemote && len(data.Missing) == 0 {
		return &model.Evaluation{
			StepID:       step.ID,
			Satisfied:    true,
			Message:      "flatpak remote and applications already present",
			InternalData: data,
		}, nil
	}

	var pending []string
	if data.NeedsRemote {
		pending = append(pending, fmt.Sprintf("remote %s missing", cfg.Remote))
	}
	if len(data.Missing) > 0 {
		pending = append(pending, fmt.Sprintf("apps not installed: %s", strings.Join(data.Missing, ", ")))
	}

	return &model.Evaluation{
		StepID:       step.ID,
		Satisfied:    false,
		Message:      strings.Join(pending, "; "),
		InternalData: data,
	}, nil
}

func (p *flatpakPlugin) Apply(ctx context.Context, evaluation *model.Evaluation, step *config.Step) (*model.StepResult, error) {
	cfg := step.Flatpak
	if cfg == nil {
		return nil, plugin.NewValidationError(step.ID, fmt.Errorf("flatpak configuration missing"))
	}

	var data *flatpakEvaluationData
	if evaluation != nil {
		if typed, ok := evaluation.InternalData.(*flatpakEvaluationData); ok {
			data = typed
		}
	}
	if data == nil {
		var err error
		evaluation, err = p.Evaluate(ctx, step)
		if err != nil {
			return nil, err
		}
		typed, ok := evaluation.InternalData.(*flatpakEvaluationData)
		if !ok || typed == nil {
			return nil, plugin.NewExecutionError(step.ID, fmt.Errorf("evaluation failed during apply"))
		}
		data = typed
	}

	if !data.NeedsRemote && len(data.Missing) == 0 {
		return &model.StepResult{
			StepID:  step.ID,
			Status:  model.StatusSuccess,
			Message: "no changes needed",
		}, nil
	}

	var actions []string

	if data.NeedsRemote {
		if cfg.RemoteURL == "" {
			err := fmt.Errorf("remote %s is not configured and no remote_url given", cfg.Remote)
			result := &model.StepResult{
				StepID:  step.ID,
				Status:  model.StatusFailed,
				Message: err.Error(),
				Error:   err,
			}
			return result, plugin.NewValidationError(step.ID, err)
		}

		if res, err := internalexec.Run(ctx, nil, "flatpak", "remote-add", "--if-not-exists", cfg.Remote, cfg.RemoteURL); err != nil {
			return failure(step.ID, fmt.Sprintf("adding remote %s", cfg.Remote), res, err)
		}
		actions = append(actions, fmt.Sprintf("remote %s added", cfg.Remote))
	}

	if len(data.Missing) > 0 {
		args := []string{"install", "-y", "--noninteractive"}
		if cfg.Remote != "" {
			args = append(args, cfg.Remote)
		}
		args = append(args, data.Missing...)

		if res, err := internalexec.Run(ctx, nil, "flatpak", args...); err != nil {
			return failure(step.ID, "installing flatpak applications", res, err)
		}
		actions = append(actions, fmt.Sprintf("installed: %s", strings.Join(data.Missing, ", ")))
	}

	return &model.StepResult{
		StepID:  step.ID,
		Status:  model.StatusSuccess,
		Message: strings.Join(actions, "; "),
		Changed: true,
	}, nil
}

func containsLine(out, want string) bool {
	for _, line := range strings.Split(out, "\n") {
		if strings.TrimSpace(line) == want {
			return true
		}
	}
	return false
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

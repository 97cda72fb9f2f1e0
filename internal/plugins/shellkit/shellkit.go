package shellkitplugin

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	git "github.com/go-git/go-git/v5"

	"github.com/rigup-sh/rigup/internal/config"
	"github.com/rigup-sh/rigup/internal/model"
	"github.com/rigup-sh/rigup/internal/plugin"
	"github.com/rigup-sh/rigup/internal/plugins/internalexec"
)

type shellkitPlugin struct{}

// New creates a new shellkit plugin instance.
func New() plugin.Plugin {
	return &shellkitPlugin{}
}

var _ plugin.Plugin = (*shellkitPlugin)(nil)

func (p *shellkitPlugin) Metadata() plugin.Metadata {
	return plugin.Metadata{
		Name:        "shellkit",
		Version:     "1.0.0",
		Description: "Installs an alternate shell and clones its configuration framework.",
	}
}

func (p *shellkitPlugin) Schema() any {
	return config.ShellKitStep{}
}

// Evaluation data for shellkit operations
type shellkitEvaluationData struct {
	NeedsShell   bool
	DirExists    bool
	IsRepo       bool
	Destination  string
	CloneOptions *git.CloneOptions
}

func (p *shellkitPlugin) Evaluate(ctx context.Context, step *config.Step) (*model.Evaluation, error) {
	cfg := step.ShellKit
	if cfg == nil {
		return nil, plugin.NewValidationError(step.ID, fmt.Errorf("shellkit configuration missing"))
	}

	if cfg.FrameworkURL != "" && cfg.Destination == "" {
		return nil, plugin.NewValidationError(step.ID, fmt.Errorf("destination is required when framework_url is set"))
	}

	data := &shellkitEvaluationData{
		NeedsShell: !internalexec.LookPath(cfg.Shell),
	}

	if cfg.FrameworkURL != "" {
		destination, err := expandPath(cfg.Destination)
		if err != nil {
			return nil, plugin.NewStateError(step.ID, fmt.Errorf("cannot resolve destination: %w", err))
		}
		data.Destination = destination
		// Framework clones shallow; nobody develops inside ~/.oh-my-zsh.
		data.CloneOptions = &git.CloneOptions{URL: cfg.FrameworkURL, Depth: 1}

		if _, err := os.Stat(destination); err == nil {
			data.DirExists = true
			if _, err := git.PlainOpen(destination); err == nil {
				data.IsRepo = true
			}
		} else if !os.IsNotExist(err) {
			return nil, plugin.NewStateError(step.ID, fmt.Errorf("cannot access destination: %w", err))
		}
	}

	frameworkSatisfied := cfg.FrameworkURL == "" || data.IsRepo

	if !data.NeedsShell && frameworkSatisfied {
		return &model.Evaluation{
			StepID:       step.ID,
			Satisfied:    true,
			Message:      fmt.Sprintf("%s and framework already installed", cfg.Shell),
			InternalData: data,
		}, nil
	}

	var pending []string
	if data.NeedsShell {
		pending = append(pending, fmt.Sprintf("shell %s not installed", cfg.Shell))
	}
	if cfg.FrameworkURL != "" && !data.IsRepo {
		if data.DirExists {
			pending = append(pending, fmt.Sprintf("%s exists but is not a git repository", data.Destination))
		} else {
			pending = append(pending, fmt.Sprintf("framework not cloned at %s", data.Destination))
		}
	}

	return &model.Evaluation{
		StepID:       step.ID,
		Satisfied:    false,
		Message:      strings.Join(pending, "; "),
		InternalData: data,
	}, nil
}

func (p *shellkitPlugin) Apply(ctx context.Context, evaluation *model.Evaluation, step *config.Step) (*model.StepResult, error) {
	cfg := step.ShellKit
	if cfg == nil {
		return nil, plugin.NewValidationError(step.ID, fmt.Errorf("shellkit configuration missing"))
	}

	var data *shellkitEvaluationData
	if evaluation != nil {
		if typed, ok := evaluation.InternalData.(*shellkitEvaluationData); ok {
			data = typed
		}
	}
	if data == nil {
		var err error
		evaluation, err = p.Evaluate(ctx, step)
		if err != nil {
			return nil, err
		}
		typed, ok := evaluation.InternalData.(*shellkitEvaluationData)
		if !ok || typed == nil {
			return nil, plugin.NewExecutionError(step.ID, fmt.Errorf("evaluation failed during apply"))
		}
		data = typed
	}

	if evaluation != nil && evaluation.Satisfied {
		return &model.StepResult{
			StepID:  step.ID,
			Status:  model.StatusSuccess,
			Message: "no changes needed",
		}, nil
	}

	var actions []string

	if data.NeedsShell {
		res, err := internalexec.Run(ctx, []string{"DEBIAN_FRONTEND=noninteractive"}, "apt-get", "install", "-y", cfg.Shell)
		if err != nil {
			if combined := internalexec.PrimaryOutput(res); combined != "" {
				err = fmt.Errorf("%w: %s", err, combined)
			}
			wrapped := fmt.Errorf("installing %s: %w", cfg.Shell, err)
			result := &model.StepResult{
				StepID:  step.ID,
				Status:  model.StatusFailed,
				Message: wrapped.Error(),
				Error:   wrapped,
			}
			return result, plugin.NewExecutionError(step.ID, wrapped)
		}
		actions = append(actions, fmt.Sprintf("installed %s", cfg.Shell))
	}

	if cfg.FrameworkURL != "" && !data.IsRepo {
		if data.DirExists {
			if err := os.RemoveAll(data.Destination); err != nil {
				wrapped := fmt.Errorf("removing stale destination: %w", err)
				result := &model.StepResult{
					StepID:  step.ID,
					Status:  model.StatusFailed,
					Message: wrapped.Error(),
					Error:   wrapped,
				}
				return result, plugin.NewExecutionError(step.ID, wrapped)
			}
		}

		if err := os.MkdirAll(filepath.Dir(data.Destination), 0o755); err != nil {
			wrapped := fmt.Errorf("creating destination directory: %w", err)
			result := &model.StepResult{
				StepID:  step.ID,
				Status:  model.StatusFailed,
				Message: wrapped.Error(),
				Error:   wrapped,
			}
			return result, plugin.NewExecutionError(step.ID, wrapped)
		}

		if _, err := git.PlainCloneContext(ctx, data.Destination, false, data.CloneOptions); err != nil {
			wrapped := fmt.Errorf("cloning framework: %w", err)
			result := &model.StepResult{
				StepID:  step.ID,
				Status:  model.StatusFailed,
				Message: wrapped.Error(),
				Error:   wrapped,
			}
			return result, plugin.NewExecutionError(step.ID, wrapped)
		}
		actions = append(actions, fmt.Sprintf("cloned %s", cfg.FrameworkURL))
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

func expandPath(path string) (string, error) {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		if path == "~" {
			return home, nil
		}
		return filepath.Join(home, path[2:]), nil
	}
	return path, nil
}

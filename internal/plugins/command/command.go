package commandplugin

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/rigup-sh/rigup/internal/config"
	"github.com/rigup-sh/rigup/internal/model"
	"github.com/rigup-sh/rigup/internal/plugin"
	"github.com/rigup-sh/rigup/internal/plugins/internalexec"
)

type commandPlugin struct{}

// New creates a new command plugin instance.
func New() plugin.Plugin {
	return &commandPlugin{}
}

var _ plugin.Plugin = (*commandPlugin)(nil)

func (p *commandPlugin) Metadata() plugin.Metadata {
	return plugin.Metadata{
		Name:        "command",
		Version:     "1.0.0",
		Description: "Executes shell commands with environment and working directory control.",
	}
}

func (p *commandPlugin) Schema() any {
	return config.CommandStep{}
}

func (p *commandPlugin) Evaluate(ctx context.Context, step *config.Step) (*model.Evaluation, error) {
	cfg := step.Command
	if cfg == nil {
		return nil, plugin.NewValidationError(step.ID, fmt.Errorf("command configuration missing"))
	}

	// Without a check command there is no way to probe state; the step
	// always runs.
	if strings.TrimSpace(cfg.Check) == "" {
		return &model.Evaluation{
			StepID:    step.ID,
			Satisfied: false,
			Message:   "no check command; will run",
		}, nil
	}

	shell, shellArgs, err := determineShell(cfg.Shell)
	if err != nil {
		return nil, plugin.NewStateError(step.ID, err)
	}

	args := append(shellArgs, cfg.Check)
	cmd := exec.CommandContext(ctx, shell, args...)
	cmd.Env = buildEnv(cfg.Env)
	if cfg.WorkDir != "" {
		cmd.Dir = cfg.WorkDir
	}

	output, err := cmd.CombinedOutput()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return &model.Evaluation{
				StepID:    step.ID,
				Satisfied: false,
				Message:   fmt.Sprintf("check command failed (exit code %d)", exitErr.ExitCode()),
			}, nil
		}
		if len(output) > 0 {
			return nil, plugin.NewExecutionError(step.ID, fmt.Errorf("%w: %s", err, string(output)))
		}
		return nil, plugin.NewExecutionError(step.ID, err)
	}

	return &model.Evaluation{
		StepID:    step.ID,
		Satisfied: true,
		Message:   "check command succeeded",
	}, nil
}

func (p *commandPlugin) Apply(ctx context.Context, evaluation *model.Evaluation, step *config.Step) (*model.StepResult, error) {
	cfg := step.Command
	if cfg == nil {
		return nil, plugin.NewValidationError(step.ID, fmt.Errorf("command configuration missing"))
	}

	if evaluation != nil && evaluation.Satisfied {
		return &model.StepResult{
			StepID:  step.ID,
			Status:  model.StatusSuccess,
			Message: "no changes needed",
		}, nil
	}

	shell, shellArgs, err := determineShell(cfg.Shell)
	if err != nil {
		return nil, plugin.NewExecutionError(step.ID, err)
	}

	args := append(shellArgs, cfg.Command)
	cmd := exec.CommandContext(ctx, shell, args...)
	cmd.Env = buildEnv(cfg.Env)
	if cfg.WorkDir != "" {
		cmd.Dir = cfg.WorkDir
	}

	streamResult, err := internalexec.RunStreaming(cmd)
	if err != nil {
		if combined := internalexec.PrimaryOutput(streamResult); combined != "" {
			err = fmt.Errorf("%w: %s", err, combined)
		}

		result := &model.StepResult{StepID: step.ID, Status: model.StatusFailed, Message: err.Error(), Error: err}
		return result, plugin.NewExecutionError(step.ID, err)
	}

	return &model.StepResult{
		StepID:  step.ID,
		Status:  model.StatusSuccess,
		Message: "command executed",
		Changed: true,
	}, nil
}

func determineShell(explicit string) (string, []string, error) {
	if explicit != "" {
		return explicit, []string{"-c"}, nil
	}

	if path, err := exec.LookPath("bash"); err == nil {
		return path, []string{"-c"}, nil
	}

	if path, err := exec.LookPath("sh"); err == nil {
		return path, []string{"-c"}, nil
	}

	return "", nil, fmt.Errorf("no suitable shell found")
}

func buildEnv(custom map[string]string) []string {
	env := os.Environ()
	for k, v := range custom {
		env = append(env, fmt.Sprintf("%s=%s", k, v))
	}
	return env
}

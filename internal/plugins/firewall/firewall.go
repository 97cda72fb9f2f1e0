package firewallplugin

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

type firewallPlugin struct{}

// New creates a new firewall plugin instance.
func New() plugin.Plugin {
	return &firewallPlugin{}
}

var _ plugin.Plugin = (*firewallPlugin)(nil)

func (p *firewallPlugin) Metadata() plugin.Metadata {
	return plugin.Metadata{
		Name:        "firewall",
		Version:     "1.0.0",
		Description: "Configures the ufw firewall: default policies, allowances, enablement.",
	}
}

func (p *firewallPlugin) Schema() any {
	return config.FirewallStep{}
}

// ufwState is the parsed output of `ufw status verbose`.
type ufwState struct {
	Active          bool
	DefaultIncoming string
	DefaultOutgoing string
	Rules           []string
}

type firewallAction struct {
	Args []string
	Note string
}

// Evaluation data for firewall operations
type firewallEvaluationData struct {
	Actions []firewallAction
}

func (p *firewallPlugin) Evaluate(ctx context.Context, step *config.Step) (*model.Evaluation, error) {
	cfg := step.Firewall
	if cfg == nil {
		return nil, plugin.NewValidationError(step.ID, fmt.Errorf("firewall configuration missing"))
	}

	out, err := internalexec.Query(ctx, "ufw", "status", "verbose")
	if err != nil {
		return nil, plugin.NewStateError(step.ID, fmt.Errorf("cannot read firewall state: %w", err))
	}

	state := parseUfwStatus(out)
	actions := pendingActions(cfg, state)

	internalData := &firewallEvaluationData{Actions: actions}

	if len(actions) == 0 {
		return &model.Evaluation{
			StepID:       step.ID,
			Satisfied:    true,
			Message:      "firewall already configured",
			InternalData: internalData,
		}, nil
	}

	notes := make([]string, 0, len(actions))
	diff := make([]string, 0, len(actions))
	for _, action := range actions {
		notes = append(notes, action.Note)
		diff = append(diff, "would run: ufw "+strings.Join(action.Args, " "))
	}

	return &model.Evaluation{
		StepID:       step.ID,
		Satisfied:    false,
		Message:      fmt.Sprintf("firewall changes pending: %s", strings.Join(notes, ", ")),
		Diff:         strings.Join(diff, "\n"),
		InternalData: internalData,
	}, nil
}

func (p *firewallPlugin) Apply(ctx context.Context, evaluation *model.Evaluation, step *config.Step) (*model.StepResult, error) {
	cfg := step.Firewall
	if cfg == nil {
		return nil, plugin.NewValidationError(step.ID, fmt.Errorf("firewall configuration missing"))
	}

	var data *firewallEvaluationData
	if evaluation != nil {
		if typed, ok := evaluation.InternalData.(*firewallEvaluationData); ok {
			data = typed
		}
	}
	if data == nil {
		var err error
		evaluation, err = p.Evaluate(ctx, step)
		if err != nil {
			return nil, err
		}
		typed, ok := evaluation.InternalData.(*firewallEvaluationData)
		if !ok || typed == nil {
			return nil, plugin.NewExecutionError(step.ID, fmt.Errorf("evaluation failed during apply"))
		}
		data = typed
	}

	if len(data.Actions) == 0 {
		return &model.StepResult{
			StepID:  step.ID,
			Status:  model.StatusSuccess,
			Message: "no changes needed",
		}, nil
	}

	notes := make([]string, 0, len(data.Actions))
	for _, action := range data.Actions {
		res, err := internalexec.Run(ctx, nil, "ufw", action.Args...)
		if err != nil {
			if combined := internalexec.PrimaryOutput(res); combined != "" {
				err = fmt.Errorf("%w: %s", err, combined)
			}
			wrapped := fmt.Errorf("%s: %w", action.Note, err)
			result := &model.StepResult{
				StepID:  step.ID,
				Status:  model.StatusFailed,
				Message: wrapped.Error(),
				Error:   wrapped,
			}
			return result, plugin.NewExecutionError(step.ID, wrapped)
		}
		notes = append(notes, action.Note)
	}

	return &model.StepResult{
		StepID:  step.ID,
		Status:  model.StatusSuccess,
		Message: fmt.Sprintf("firewall configured: %s", strings.Join(notes, ", ")),
		Changed: true,
	}, nil
}

// pendingActions computes the ufw invocations needed to reach the desired
// state, in the order they must run. Policies and allowances go in before
// enablement so the firewall never comes up open.
func pendingActions(cfg *config.FirewallStep, state ufwState) []firewallAction {
	var actions []firewallAction

	if cfg.DefaultIncoming != "" && !strings.EqualFold(state.DefaultIncoming, cfg.DefaultIncoming) {
		actions = append(actions, firewallAction{
			Args: []string{"default", cfg.DefaultIncoming, "incoming"},
			Note: fmt.Sprintf("default incoming %s", cfg.DefaultIncoming),
		})
	}

	if cfg.DefaultOutgoing != "" && !strings.EqualFold(state.DefaultOutgoing, cfg.DefaultOutgoing) {
		actions = append(actions, firewallAction{
			Args: []string{"default", cfg.DefaultOutgoing, "outgoing"},
			Note: fmt.Sprintf("default outgoing %s", cfg.DefaultOutgoing),
		})
	}

	for _, allow := range cfg.Allow {
		if state.Active && hasAllowRule(state, allow) {
			continue
		}
		actions = append(actions, firewallAction{
			Args: []string{"allow", allow},
			Note: fmt.Sprintf("allow %s", allow),
		})
	}

	if cfg.Enable && !state.Active {
		// --force bypasses the interactive "may disrupt ssh" prompt.
		actions = append(actions, firewallAction{
			Args: []string{"--force", "enable"},
			Note: "enabled",
		})
	}

	return actions
}

func parseUfwStatus(out string) ufwState {
	var state ufwState

	scanner := bufio.NewScanner(strings.NewReader(out))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if rest, ok := strings.CutPrefix(line, "Status:"); ok {
			state.Active = strings.TrimSpace(rest) == "active"
			continue
		}

		if rest, ok := strings.CutPrefix(line, "Default:"); ok {
			for _, clause := range strings.Split(rest, ",") {
				fields := strings.Fields(strings.TrimSpace(clause))
				if len(fields) != 2 {
					continue
				}
				switch fields[1] {
				case "(incoming)":
					state.DefaultIncoming = fields[0]
				case "(outgoing)":
					state.DefaultOutgoing = fields[0]
				}
			}
			continue
		}

		if strings.Contains(line, "ALLOW") {
			state.Rules = append(state.Rules, line)
		}
	}

	return state
}

func hasAllowRule(state ufwState, name string) bool {
	for _, rule := range state.Rules {
		fields := strings.Fields(rule)
		if len(fields) > 0 && fields[0] == name {
			return true
		}
	}
	return false
}

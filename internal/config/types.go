package config

import (
	"gopkg.in/yaml.v3"
)

// Manifest represents the full rigup provisioning manifest: host
// requirements, the ordered step table, and optional post-run validations.
type Manifest struct {
	Version     string       `yaml:"version" validate:"required,semver"`
	Name        string       `yaml:"name" validate:"required,min=1,max=100"`
	Description string       `yaml:"description,omitempty"`
	Requires    Requirements `yaml:"requires,omitempty"`
	Steps       []Step       `yaml:"steps" validate:"required,min=1,dive"`
	Validations []Validation `yaml:"validations,omitempty" validate:"omitempty,dive"`
}

// Requirements gates the whole run during preflight.
type Requirements struct {
	Distros    []string `yaml:"os,omitempty" validate:"omitempty,min=1,dive,min=1"`
	MinVersion string   `yaml:"min_version,omitempty"`
}

// Step describes one unit of work. Steps execute strictly in manifest order;
// there is no dependency graph.
type Step struct {
	ID     string `yaml:"id" validate:"required,step_id"`
	Name   string `yaml:"name,omitempty"`
	Action string `yaml:"action" validate:"required"`
	// Fatal steps halt the pipeline on failure. Defaults to true.
	Fatal bool `yaml:"fatal"`
	// When guards the step on a boolean host fact, e.g. "has_nvidia_gpu"
	// or "!virtualized". Unmet guards record the step as skipped.
	When string `yaml:"when,omitempty" validate:"omitempty,fact_ref"`
	// FollowUp is surfaced in the final report when the step changed the
	// host, e.g. "reboot required".
	FollowUp string `yaml:"follow_up,omitempty"`

	Apt      *AptStep      `yaml:"-"`
	Firewall *FirewallStep `yaml:"-"`
	Service  *ServiceStep  `yaml:"-"`
	Flatpak  *FlatpakStep  `yaml:"-"`
	Snap     *SnapStep     `yaml:"-"`
	ShellKit *ShellKitStep `yaml:"-"`
	Drivers  *DriversStep  `yaml:"-"`
	Command  *CommandStep  `yaml:"-"`
}

// UnmarshalYAML customises step decoding to populate the action-specific
// structure without key conflicts, and defaults Fatal to true.
func (s *Step) UnmarshalYAML(value *yaml.Node) error {
	type baseStep struct {
		ID       string `yaml:"id"`
		Name     string `yaml:"name"`
		Action   string `yaml:"action"`
		Fatal    *bool  `yaml:"fatal"`
		When     string `yaml:"when"`
		FollowUp string `yaml:"follow_up"`
	}

	var base baseStep
	if err := value.Decode(&base); err != nil {
		return err
	}

	s.ID = base.ID
	s.Name = base.Name
	s.Action = base.Action
	s.When = base.When
	s.FollowUp = base.FollowUp
	if base.Fatal != nil {
		s.Fatal = *base.Fatal
	} else {
		s.Fatal = true
	}

	s.Apt = nil
	s.Firewall = nil
	s.Service = nil
	s.Flatpak = nil
	s.Snap = nil
	s.ShellKit = nil
	s.Drivers = nil
	s.Command = nil

	switch base.Action {
	case "apt":
		var apt AptStep
		if err := value.Decode(&apt); err != nil {
			return err
		}
		s.Apt = &apt
	case "firewall":
		var fw FirewallStep
		if err := value.Decode(&fw); err != nil {
			return err
		}
		s.Firewall = &fw
	case "service":
		var svc ServiceStep
		if err := value.Decode(&svc); err != nil {
			return err
		}
		s.Service = &svc
	case "flatpak":
		var fp FlatpakStep
		if err := value.Decode(&fp); err != nil {
			return err
		}
		s.Flatpak = &fp
	case "snap":
		var sn SnapStep
		if err := value.Decode(&sn); err != nil {
			return err
		}
		s.Snap = &sn
	case "shellkit":
		var sk ShellKitStep
		if err := value.Decode(&sk); err != nil {
			return err
		}
		s.ShellKit = &sk
	case "drivers":
		var dr DriversStep
		if err := value.Decode(&dr); err != nil {
			return err
		}
		s.Drivers = &dr
	case "command":
		var cmd CommandStep
		if err := value.Decode(&cmd); err != nil {
			return err
		}
		s.Command = &cmd
	}

	return nil
}

// DisplayName returns the human label for the step, falling back to its id.
func (s *Step) DisplayName() string {
	if s.Name != "" {
		return s.Name
	}
	return s.ID
}

// AptStep drives the system package manager: index refresh, upgrade, or
// installation of a package list.
type AptStep struct {
	Update   bool     `yaml:"update,omitempty"`
	Upgrade  bool     `yaml:"upgrade,omitempty"`
	Packages []string `yaml:"packages,omitempty" validate:"omitempty,min=1,dive,min=1,max=100"`
}

// FirewallStep configures ufw: default policies, service allowances, enable.
type FirewallStep struct {
	DefaultIncoming string   `yaml:"default_incoming,omitempty" validate:"omitempty,oneof=allow deny reject"`
	DefaultOutgoing string   `yaml:"default_outgoing,omitempty" validate:"omitempty,oneof=allow deny reject"`
	Allow           []string `yaml:"allow,omitempty" validate:"omitempty,dive,min=1"`
	Enable          bool     `yaml:"enable,omitempty"`
}

// ServiceStep enables and/or starts a systemd unit.
type ServiceStep struct {
	Unit   string `yaml:"unit" validate:"required,min=1"`
	Enable bool   `yaml:"enable,omitempty"`
	Start  bool   `yaml:"start,omitempty"`
	// SettleSeconds pauses after starting before the active state is
	// re-checked, for daemons that need a moment to come up.
	SettleSeconds int `yaml:"settle_seconds,omitempty" validate:"omitempty,min=0,max=60"`
}

// FlatpakStep registers a flatpak remote and installs applications from it.
type FlatpakStep struct {
	Remote    string   `yaml:"remote,omitempty"`
	RemoteURL string   `yaml:"remote_url,omitempty" validate:"omitempty,url"`
	Apps      []string `yaml:"apps,omitempty" validate:"omitempty,dive,min=1"`
}

// SnapStep installs snap applications.
type SnapStep struct {
	Apps []SnapApp `yaml:"apps" validate:"required,min=1,dive"`
}

// SnapApp names a single snap with its install flags.
type SnapApp struct {
	Name    string `yaml:"name" validate:"required,min=1"`
	Classic bool   `yaml:"classic,omitempty"`
	Channel string `yaml:"channel,omitempty"`
}

// ShellKitStep installs an alternate shell package and clones its framework
// repository. It never switches the login shell.
type ShellKitStep struct {
	Shell        string `yaml:"shell" validate:"required,min=1"`
	FrameworkURL string `yaml:"framework_url,omitempty" validate:"omitempty,url"`
	Destination  string `yaml:"destination,omitempty"`
}

// DriversStep runs the distribution's hardware driver autoinstaller.
type DriversStep struct {
	AutoInstall bool `yaml:"autoinstall,omitempty"`
}

// CommandStep executes an arbitrary shell command with an optional read-only
// check command that reports whether the work is already done.
type CommandStep struct {
	Command string            `yaml:"command" validate:"required,min=1"`
	Check   string            `yaml:"check,omitempty"`
	Shell   string            `yaml:"shell,omitempty"`
	WorkDir string            `yaml:"workdir,omitempty"`
	Env     map[string]string `yaml:"env,omitempty"`
}

// Validation represents a post-run validation.
type Validation struct {
	Type    string `yaml:"type" validate:"required,oneof=command_exists file_exists path_contains"`
	Command string `yaml:"command,omitempty"`
	Path    string `yaml:"path,omitempty"`
	File    string `yaml:"file,omitempty"`
	Text    string `yaml:"text,omitempty"`
}

// StepMap builds a lookup table for steps by ID.
func StepMap(steps []Step) map[string]Step {
	out := make(map[string]Step, len(steps))
	for _, step := range steps {
		out[step.ID] = step
	}
	return out
}

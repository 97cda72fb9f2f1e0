package plugin

import (
	"context"

	"github.com/rigup-sh/rigup/internal/config"
	"github.com/rigup-sh/rigup/internal/model"
)

// Metadata identifies a plugin to the registry and the CLI.
type Metadata struct {
	// Name is the action string steps use to select this plugin.
	Name string
	// Version is the plugin's own version, independent of the binary.
	Version string
	// Description is a one-line summary shown in plan output.
	Description string
}

// Plugin defines the contract every rigup action plugin must satisfy.
//
// Implementations should:
//   - Return identity via Metadata()
//   - Provide the step configuration schema via Schema()
//   - Implement read-only state assessment via Evaluate()
//   - Implement state mutation via Apply()
type Plugin interface {
	// Metadata returns the plugin's identity.
	Metadata() Metadata

	// Schema returns the struct that defines the YAML configuration for
	// this plugin's steps.
	Schema() any

	// Evaluate performs a STRICTLY READ-ONLY assessment of the host's
	// current state against the desired state in the step configuration.
	//
	// CRITICAL CONTRACT: this method MUST NOT mutate any host state. It
	// only reads current state and reports whether Apply() has work to do.
	// A plan run calls Evaluate() alone, and a plan run must leave no
	// trace on the host.
	Evaluate(ctx context.Context, step *config.Step) (*model.Evaluation, error)

	// Apply mutates the host to match the desired state in the step
	// configuration. The engine only calls Apply() when Evaluate()
	// reported the state unsatisfied.
	//
	// The evaluation parameter carries the result of the preceding
	// Evaluate() call, including any InternalData stashed there to avoid
	// recomputing state.
	//
	// Apply MUST be idempotent: re-running a step that already succeeded
	// must leave the host unchanged and report success.
	Apply(ctx context.Context, evaluation *model.Evaluation, step *config.Step) (*model.StepResult, error)
}

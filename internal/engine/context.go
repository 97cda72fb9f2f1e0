package engine

import (
	"context"

	"github.com/rigup-sh/rigup/internal/config"
	"github.com/rigup-sh/rigup/internal/facts"
	"github.com/rigup-sh/rigup/internal/logger"
	"github.com/rigup-sh/rigup/internal/model"
)

// ExecutionContext carries the runtime state shared by every step of a run.
type ExecutionContext struct {
	Manifest *config.Manifest
	Facts    *facts.Facts
	DryRun   bool
	Verbose  bool
	Logger   *logger.Logger
	Context  context.Context
	Observer Observer
}

// Observer receives step lifecycle notifications as the runner progresses.
// The runner calls it synchronously from its single loop, so implementations
// must return quickly.
type Observer interface {
	StepStarted(step config.Step, index, total int)
	StepFinished(step config.Step, result model.StepResult)
}

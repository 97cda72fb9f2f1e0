package tui

import (
	"fmt"
	"io"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/rigup-sh/rigup/internal/config"
	"github.com/rigup-sh/rigup/internal/model"
	"github.com/rigup-sh/rigup/internal/report"
)

// Sender is the part of *tea.Program the bridge needs.
type Sender interface {
	Send(tea.Msg)
}

// Bridge forwards runner lifecycle events into a running Bubbletea program.
// The runner calls it from its own goroutine; Program.Send is safe for that.
type Bridge struct {
	program Sender
}

// NewBridge wraps a program into a runner observer.
func NewBridge(program Sender) *Bridge {
	return &Bridge{program: program}
}

// StepStarted implements the runner observer.
func (b *Bridge) StepStarted(step config.Step, _, _ int) {
	if b == nil || b.program == nil {
		return
	}
	b.program.Send(StepStartMsg{ID: step.ID, Time: time.Now()})
}

// StepFinished implements the runner observer.
func (b *Bridge) StepFinished(_ config.Step, result model.StepResult) {
	if b == nil || b.program == nil {
		return
	}
	b.program.Send(StepCompleteMsg{Result: result})
}

// PlainObserver writes one line per step for runs without a terminal. The
// structured log stream stays on stderr; this is the stdout progress.
type PlainObserver struct {
	Out io.Writer
}

// StepStarted announces the step about to run.
func (o *PlainObserver) StepStarted(step config.Step, index, total int) {
	if o == nil || o.Out == nil {
		return
	}
	_, _ = fmt.Fprintf(o.Out, "[%d/%d] %s\n", index+1, total, step.DisplayName())
}

// StepFinished prints the outcome of the step that just ran.
func (o *PlainObserver) StepFinished(_ config.Step, result model.StepResult) {
	if o == nil || o.Out == nil {
		return
	}
	line := fmt.Sprintf("  %s %s", report.StatusIcon(result.Status), result.Status)
	if result.Message != "" {
		line = fmt.Sprintf("%s: %s", line, result.Message)
	}
	_, _ = fmt.Fprintln(o.Out, line)
}

// Package tui renders live pipeline progress while the runner works. It only
// shows what is happening right now; the end-of-run summary is the report
// package's job, printed after this program exits.
package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/rigup-sh/rigup/internal/config"
	"github.com/rigup-sh/rigup/internal/model"
)

// StepStartMsg indicates a step has started executing.
type StepStartMsg struct {
	ID   string
	Time time.Time
}

// StepCompleteMsg reports that a step has finished execution.
type StepCompleteMsg struct {
	Result model.StepResult
}

// DoneMsg tells the program the runner has returned, successfully or not.
type DoneMsg struct{}

// Model contains the Bubbletea state for the live run display.
type Model struct {
	title     string
	steps     map[string]model.StepResult
	order     []string
	spinner   spinner.Model
	total     int
	completed int
	finished  bool
	cancelled bool
	dryRun    bool

	// cancelRun stops the runner at the next step boundary; steps are never
	// interrupted mid-flight.
	cancelRun context.CancelFunc
}

// NewModel seeds the display with every step of the manifest, all pending.
func NewModel(manifest *config.Manifest, dryRun bool, cancelRun context.CancelFunc) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = spinnerStyle

	m := Model{
		title:     "Provisioning run",
		steps:     make(map[string]model.StepResult),
		order:     make([]string, 0),
		spinner:   s,
		dryRun:    dryRun,
		cancelRun: cancelRun,
	}
	if manifest != nil && manifest.Name != "" {
		m.title = manifest.Name
	}

	if manifest != nil {
		for _, step := range manifest.Steps {
			if _, exists := m.steps[step.ID]; exists {
				continue
			}
			m.steps[step.ID] = model.StepResult{StepID: step.ID, Status: model.StatusPending}
			m.order = append(m.order, step.ID)
			m.total++
		}
	}

	return m
}

// Init starts the spinner.
func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// TotalSteps returns the number of steps tracked by the model.
func (m Model) TotalSteps() int {
	return m.total
}

// CompletedSteps returns the number of steps that reached a terminal status.
func (m Model) CompletedSteps() int {
	return m.completed
}

// IsFinished reports whether the runner has returned.
func (m Model) IsFinished() bool {
	return m.finished
}

// IsCancelled reports whether the operator asked to stop.
func (m Model) IsCancelled() bool {
	return m.cancelled
}

func (m *Model) ensureStep(id string) {
	if id == "" {
		return
	}
	if _, exists := m.steps[id]; !exists {
		m.steps[id] = model.StepResult{StepID: id, Status: model.StatusPending}
		m.order = append(m.order, id)
		m.total++
	}
}

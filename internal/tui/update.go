package tui

import (
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/rigup-sh/rigup/internal/model"
)

// Update handles Bubbletea messages and advances the display state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		if m.finished {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case StepStartMsg:
		m.ensureStep(msg.ID)
		step := m.steps[msg.ID]
		step.Status = model.StatusRunning
		m.steps[msg.ID] = step
		return m, nil

	case StepCompleteMsg:
		id := msg.Result.StepID
		if id == "" {
			return m, nil
		}
		m.ensureStep(id)
		previouslyCompleted := m.steps[id].Completed()
		m.steps[id] = msg.Result
		if !previouslyCompleted && msg.Result.Completed() {
			m.completed++
		}
		return m, nil

	case DoneMsg:
		m.finished = true
		return m, tea.Quit

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			// First Ctrl+C asks the runner to stop at the next step
			// boundary; the current step always finishes.
			m.cancelled = true
			if m.cancelRun != nil {
				m.cancelRun()
			}
			return m, nil
		}
	}

	return m, nil
}

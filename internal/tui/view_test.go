package tui

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"github.com/rigup-sh/rigup/internal/model"
)

func TestViewRendersBasicLayout(t *testing.T) {
	t.Parallel()

	m := NewModel(threeStepManifest(), false, nil)
	m, _ = applyMsg(t, m, StepCompleteMsg{Result: model.StepResult{
		StepID:   "apt_update",
		Status:   model.StatusSuccess,
		Message:  "package index refreshed",
		Duration: 1200 * time.Millisecond,
	}})
	m, _ = applyMsg(t, m, StepStartMsg{ID: "firewall", Time: time.Now()})

	view := m.View()

	require.Contains(t, view, "Test baseline")
	require.Contains(t, view, "1/3")
	require.Contains(t, view, "apt_update")
	require.Contains(t, view, "package index refreshed")
	require.Contains(t, view, "1.2s")
	require.Contains(t, view, "firewall")
	require.Contains(t, view, "zsh_omz")
}

func TestViewMarksDryRun(t *testing.T) {
	t.Parallel()

	m := NewModel(threeStepManifest(), true, nil)

	require.Contains(t, m.View(), "(dry run)")
}

func TestViewShowsInterruptNotice(t *testing.T) {
	t.Parallel()

	m := NewModel(threeStepManifest(), false, func() {})
	m, _ = applyMsg(t, m, tea.KeyMsg{Type: tea.KeyCtrlC})

	require.Contains(t, m.View(), "Interrupt received")

	m, _ = applyMsg(t, m, DoneMsg{})
	require.NotContains(t, m.View(), "Interrupt received")
}

package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/rigup-sh/rigup/internal/model"
	"github.com/rigup-sh/rigup/internal/report"
	"github.com/rigup-sh/rigup/internal/tui/components"
)

// View renders the current state of the run.
func (m Model) View() string {
	var sections []string

	title := m.title
	if m.dryRun {
		title += " (dry run)"
	}
	sections = append(sections, titleStyle.Render(fmt.Sprintf("rigup • %s", title)))

	sections = append(sections, components.NewProgress(m.total).View(m.completed))

	if len(m.order) > 0 {
		sections = append(sections, m.renderSteps())
	}

	if m.cancelled && !m.finished {
		sections = append(sections, warnStyle.Render("Interrupt received — stopping at the next step boundary."))
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...) + "\n"
}

func (m Model) renderSteps() string {
	lines := make([]string, 0, len(m.order))
	for _, id := range m.order {
		res := m.steps[id]

		icon := report.StatusIcon(res.Status)
		if res.Status == model.StatusRunning {
			icon = strings.TrimRight(m.spinner.View(), " ")
		}

		line := fmt.Sprintf(" %s %s", icon, id)
		if res.Status == model.StatusPending {
			line = dimStyle.Render(line)
		}
		if strings.TrimSpace(res.Message) != "" {
			line = fmt.Sprintf("%s — %s", line, res.Message)
		}
		if res.Duration > 0 {
			line = fmt.Sprintf("%s (%s)", line, res.Duration.Truncate(10*time.Millisecond))
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

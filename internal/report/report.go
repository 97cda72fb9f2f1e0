// Package report renders the end-of-run summary. Rendering is a pure
// function of the run outcome; the caller decides where the text goes.
package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/rigup-sh/rigup/internal/model"
	"github.com/rigup-sh/rigup/internal/validation"
)

// Data bundles everything the summary shows.
type Data struct {
	ManifestName string
	Report       *model.RunReport
	Validations  []validation.Result
	DryRun       bool
}

// Render produces the summary for a run that reached the end of the step
// table. It returns an empty string for a halted report: after a fatal
// failure the step error is the final output, never a summary.
func Render(data Data) string {
	if data.Report == nil || data.Report.Halted {
		return ""
	}

	var sections []string

	title := data.ManifestName
	if title == "" {
		title = "Provisioning run"
	}
	if data.DryRun {
		title += " (dry run)"
	}
	sections = append(sections, titleStyle.Render(fmt.Sprintf("rigup • %s", title)))

	if len(data.Report.Results) > 0 {
		sections = append(sections, sectionStyle.Render("Steps"), renderSteps(data.Report.Results))
	}

	sections = append(sections, sectionStyle.Render("Summary"), countsLine(data.Report))

	if len(data.Validations) > 0 {
		sections = append(sections, sectionStyle.Render("Validations"), renderValidations(data.Validations))
	}

	if followUps := data.Report.FollowUps(); len(followUps) > 0 {
		sections = append(sections, sectionStyle.Render("Manual follow-ups"), renderFollowUps(followUps))
	}

	sections = append(sections, closingLine(data))

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func renderSteps(results []model.StepResult) string {
	lines := make([]string, 0, len(results))
	for _, res := range results {
		line := fmt.Sprintf(" %s %s", StatusIcon(res.Status), res.StepID)
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

func countsLine(report *model.RunReport) string {
	counts := report.Counts()

	parts := []string{fmt.Sprintf("%d succeeded", counts[model.StatusSuccess])}
	if n := counts[model.StatusWouldChange]; n > 0 {
		parts = append(parts, fmt.Sprintf("%d would change", n))
	}
	if n := counts[model.StatusFailedNonFatal]; n > 0 {
		parts = append(parts, fmt.Sprintf("%d failed (non-fatal)", n))
	}
	if n := counts[model.StatusSkipped]; n > 0 {
		parts = append(parts, fmt.Sprintf("%d skipped", n))
	}

	line := fmt.Sprintf("Steps: %s", strings.Join(parts, ", "))
	if report.Duration > 0 {
		line = fmt.Sprintf("%s in %s", line, report.Duration.Truncate(10*time.Millisecond))
	}
	return line
}

func renderValidations(results []validation.Result) string {
	lines := make([]string, 0, len(results))
	for _, res := range results {
		if res.Passed {
			lines = append(lines, fmt.Sprintf("  %s %s", successStyle.Render("✓"), res.Label()))
			continue
		}
		lines = append(lines, fmt.Sprintf("  %s %s — %s", failureStyle.Render("✗"), res.Label(), res.Message))
	}
	return strings.Join(lines, "\n")
}

func renderFollowUps(followUps []string) string {
	lines := make([]string, 0, len(followUps))
	for _, action := range followUps {
		lines = append(lines, fmt.Sprintf("  • %s", action))
	}
	return strings.Join(lines, "\n")
}

func closingLine(data Data) string {
	switch {
	case data.DryRun:
		return pendingStyle.Render("Dry run complete; no changes were made.")
	case data.Report.HasFailures():
		return warnStyle.Render("Run finished with warnings.")
	default:
		return successStyle.Render("Run finished successfully.")
	}
}

// StatusIcon returns the glyph representing a step status.
func StatusIcon(status string) string {
	switch status {
	case model.StatusSuccess:
		return successStyle.Render("✓")
	case model.StatusRunning:
		return pendingStyle.Render("⏳")
	case model.StatusFailed:
		return failureStyle.Render("✗")
	case model.StatusFailedNonFatal:
		return warnStyle.Render("!")
	case model.StatusSkipped:
		return skippedStyle.Render("⊘")
	case model.StatusWouldChange:
		return pendingStyle.Render("↻")
	default:
		return pendingStyle.Render("…")
	}
}

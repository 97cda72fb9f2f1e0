package engine

import (
	"fmt"
	"strings"

	"github.com/rigup-sh/rigup/internal/config"
)

// Preview renders the numbered list of steps a run would attempt, in
// execution order. The consent prompt shows it before asking for go-ahead.
func Preview(m *config.Manifest) []string {
	if m == nil {
		return nil
	}

	lines := make([]string, 0, len(m.Steps))
	for i, step := range m.Steps {
		line := fmt.Sprintf("%2d. %s", i+1, step.DisplayName())

		var notes []string
		if step.When != "" {
			notes = append(notes, "if "+step.When)
		}
		if !step.Fatal {
			notes = append(notes, "best effort")
		}
		if len(notes) > 0 {
			line += " (" + strings.Join(notes, ", ") + ")"
		}

		lines = append(lines, line)
	}
	return lines
}

package validation

import (
	"context"
	"fmt"
	"strings"

	"github.com/rigup-sh/rigup/internal/config"
	riguperrors "github.com/rigup-sh/rigup/pkg/errors"
)

// Result captures the outcome of executing a single validation rule.
type Result struct {
	Validation config.Validation
	Passed     bool
	Message    string
	Error      error
}

// Label names the check for the summary, e.g. "command_exists: zsh".
func (r Result) Label() string {
	switch r.Validation.Type {
	case "command_exists":
		return fmt.Sprintf("command_exists: %s", r.Validation.Command)
	case "file_exists":
		return fmt.Sprintf("file_exists: %s", r.Validation.Path)
	case "path_contains":
		return fmt.Sprintf("path_contains: %s", r.Validation.File)
	}
	return r.Validation.Type
}

// RunValidations executes the manifest's validations in order and returns
// every result. The error aggregates all failures; callers treat it as a
// non-zero exit, not a halt (there is nothing left to halt).
func RunValidations(ctx context.Context, validations []config.Validation) ([]Result, error) {
	results := make([]Result, 0, len(validations))
	var failed []string

	for _, val := range validations {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		result := Result{Validation: val}

		var err error
		switch val.Type {
		case "command_exists":
			err = CheckCommandExists(val.Command)
		case "file_exists":
			err = CheckFileExists(val.Path)
		case "path_contains":
			err = CheckPathContains(val.File, val.Text)
		default:
			err = riguperrors.NewValidationError("validation.type", fmt.Sprintf("unknown validation type %q", val.Type), nil)
		}

		if err != nil {
			result.Passed = false
			result.Message = err.Error()
			result.Error = err
			failed = append(failed, err.Error())
		} else {
			result.Passed = true
			result.Message = "passed"
		}

		results = append(results, result)
	}

	if len(failed) > 0 {
		return results, fmt.Errorf("validations failed: %s", strings.Join(failed, "; "))
	}
	return results, nil
}

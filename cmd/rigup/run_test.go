package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rigup-sh/rigup/internal/facts"
	riguperrors "github.com/rigup-sh/rigup/pkg/errors"
)

// markerManifest returns a manifest whose single step drops a marker file,
// plus the marker path so tests can tell whether the step actually ran.
func markerManifest(t *testing.T) (string, string) {
	t.Helper()

	marker := filepath.Join(t.TempDir(), "marker")
	manifest := fmt.Sprintf(`version: "1.0"
name: cmd test
steps:
  - id: touch_marker
    name: Touch marker
    action: command
    command: "touch %s"
    check: "test -f %s"
`, marker, marker)
	return writeManifest(t, manifest), marker
}

func TestProvisionDeclineMakesNoChanges(t *testing.T) {
	stubHostSeams(t)
	manifestPath, marker := markerManifest(t)

	output, err := executeCommand(t, "n\n", "--config", manifestPath)

	require.NoError(t, err)
	require.Contains(t, output, "Touch marker")
	require.Contains(t, output, "[y/N]")
	require.Contains(t, output, "No changes made.")
	require.NoFileExists(t, marker)
}

func TestProvisionAppliesOnConsent(t *testing.T) {
	stubHostSeams(t)
	manifestPath, marker := markerManifest(t)

	output, err := executeCommand(t, "yes\n", "--config", manifestPath)

	require.NoError(t, err)
	require.FileExists(t, marker)
	require.Contains(t, output, "1 succeeded")
	require.Contains(t, output, "Run finished successfully.")
}

func TestProvisionYesFlagSkipsPrompt(t *testing.T) {
	stubHostSeams(t)
	manifestPath, marker := markerManifest(t)

	output, err := executeCommand(t, "", "--config", manifestPath, "--yes")

	require.NoError(t, err)
	require.NotContains(t, output, "[y/N]")
	require.FileExists(t, marker)
}

func TestProvisionFatalFailureHaltsBeforeLaterSteps(t *testing.T) {
	stubHostSeams(t)
	marker := filepath.Join(t.TempDir(), "marker")
	manifestPath := writeManifest(t, fmt.Sprintf(`version: "1.0"
name: cmd test
steps:
  - id: broken
    action: command
    command: "exit 7"
  - id: touch_marker
    action: command
    command: "touch %s"
`, marker))

	output, err := executeCommand(t, "", "--config", manifestPath, "--yes")

	require.Error(t, err)

	var stepErr *riguperrors.StepError
	require.ErrorAs(t, err, &stepErr)
	require.Equal(t, "broken", stepErr.Step)

	require.NoFileExists(t, marker)
	require.NotContains(t, output, "Run finished")
}

func TestProvisionNonFatalFailureContinues(t *testing.T) {
	stubHostSeams(t)
	marker := filepath.Join(t.TempDir(), "marker")
	manifestPath := writeManifest(t, fmt.Sprintf(`version: "1.0"
name: cmd test
steps:
  - id: broken
    action: command
    command: "exit 7"
    fatal: false
  - id: touch_marker
    action: command
    command: "touch %s"
`, marker))

	output, err := executeCommand(t, "", "--config", manifestPath, "--yes")

	require.NoError(t, err)
	require.FileExists(t, marker)
	require.Contains(t, output, "failed (non-fatal)")
	require.Contains(t, output, "Run finished with warnings.")
}

func TestProvisionDryRunTouchesNothing(t *testing.T) {
	stubHostSeams(t)
	manifestPath, marker := markerManifest(t)

	output, err := executeCommand(t, "", "--config", manifestPath, "--dry-run")

	require.NoError(t, err)
	require.NoFileExists(t, marker)
	require.NotContains(t, output, "[y/N]")
	require.Contains(t, output, "(dry run)")
	require.Contains(t, output, "would change")
	require.Contains(t, output, "Dry run complete; no changes were made.")
}

func TestProvisionRunsPostRunValidations(t *testing.T) {
	stubHostSeams(t)
	marker := filepath.Join(t.TempDir(), "marker")
	manifestPath := writeManifest(t, fmt.Sprintf(`version: "1.0"
name: cmd test
steps:
  - id: touch_marker
    action: command
    command: "touch %s"
validations:
  - type: command_exists
    command: definitely-not-a-real-tool-xyz
`, marker))

	output, err := executeCommand(t, "", "--config", manifestPath, "--yes")

	require.Error(t, err)
	require.Contains(t, err.Error(), "validations failed")
	require.FileExists(t, marker)
	// The summary still renders; the failed validation is part of it.
	require.Contains(t, output, "Validations")
	require.Contains(t, output, "definitely-not-a-real-tool-xyz")
}

func TestProvisionRejectsUnsupportedHost(t *testing.T) {
	stubHostSeams(t)
	gatherFacts = func(context.Context) (*facts.Facts, error) {
		return &facts.Facts{
			OS:   facts.OS{ID: "fedora", VersionID: "42", PrettyName: "Fedora Linux 42"},
			Arch: "amd64",
		}, nil
	}

	manifestPath := writeManifest(t, `version: "1.0"
name: cmd test
requires:
  os:
    - ubuntu
steps:
  - id: noop
    action: command
    command: "true"
`)

	_, err := executeCommand(t, "", "--config", manifestPath, "--yes")

	require.Error(t, err)

	var preflightErr *riguperrors.PreflightError
	require.ErrorAs(t, err, &preflightErr)
	require.Equal(t, riguperrors.ReasonUnsupportedEnvironment, preflightErr.Reason)
	require.Contains(t, err.Error(), "Fedora Linux 42")
}

func TestProvisionReportsMissingManifest(t *testing.T) {
	stubHostSeams(t)
	missing := filepath.Join(t.TempDir(), "nope.yaml")

	_, err := executeCommand(t, "", "--config", missing)

	require.Error(t, err)
	require.Contains(t, err.Error(), "nope.yaml")
}

func TestProvisionSkipsGuardedStep(t *testing.T) {
	stubHostSeams(t)
	marker := filepath.Join(t.TempDir(), "marker")
	manifestPath := writeManifest(t, fmt.Sprintf(`version: "1.0"
name: cmd test
steps:
  - id: gpu_only
    action: command
    command: "touch %s"
    when: has_nvidia_gpu
`, marker))

	output, err := executeCommand(t, "", "--config", manifestPath, "--yes")

	require.NoError(t, err)
	require.NoFileExists(t, marker)
	require.Contains(t, output, "1 skipped")
}

func TestPlanNeverMutates(t *testing.T) {
	stubHostSeams(t)
	manifestPath, marker := markerManifest(t)

	output, err := executeCommand(t, "", "plan", "--config", manifestPath)

	require.NoError(t, err)
	require.NoFileExists(t, marker)
	require.NotContains(t, output, "[y/N]")
	require.Contains(t, output, "(dry run)")
	require.Contains(t, output, "Touch marker")
}

func TestPlanDoesNotAcquirePrivileges(t *testing.T) {
	stubHostSeams(t)
	ensurePrivileges = func(context.Context) error {
		return errors.New("plan must not escalate")
	}
	manifestPath, _ := markerManifest(t)

	_, err := executeCommand(t, "", "plan", "--config", manifestPath)

	require.NoError(t, err)
}

func TestProvisionAlreadySatisfiedStepMakesNoChanges(t *testing.T) {
	stubHostSeams(t)
	manifestPath, marker := markerManifest(t)

	// Pre-create the marker so the check command reports satisfied.
	require.NoError(t, os.WriteFile(marker, nil, 0o644))
	before, err := os.Stat(marker)
	require.NoError(t, err)

	output, runErr := executeCommand(t, "", "--config", manifestPath, "--yes")

	require.NoError(t, runErr)
	require.Contains(t, output, "1 succeeded")

	after, err := os.Stat(marker)
	require.NoError(t, err)
	require.Equal(t, before.ModTime(), after.ModTime())
}

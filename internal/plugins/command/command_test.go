package commandplugin

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rigup-sh/rigup/internal/config"
	"github.com/rigup-sh/rigup/internal/model"
	pluginpkg "github.com/rigup-sh/rigup/internal/plugin"
)

func TestCommandPlugin_EvaluateUsesCheckCommand(t *testing.T) {
	binDir := t.TempDir()
	marker := filepath.Join(binDir, "marker")
	writeScript(t, binDir, "check-script", `#!/bin/sh
[ -f "`+marker+`" ] && exit 0
exit 1
`)

	originalPath := os.Getenv("PATH")
	t.Cleanup(func() { _ = os.Setenv("PATH", originalPath) })
	require.NoError(t, os.Setenv("PATH", binDir+":"+originalPath))

	step := &config.Step{
		ID:      "run_command",
		Action:  "command",
		Command: &config.CommandStep{Command: "echo hello", Check: "check-script"},
	}

	p := New()
	require.Implements(t, (*pluginpkg.Plugin)(nil), p)

	evaluation, err := p.Evaluate(context.Background(), step)
	require.NoError(t, err)
	require.False(t, evaluation.Satisfied)
	require.Contains(t, evaluation.Message, "check command failed")

	require.NoError(t, os.WriteFile(marker, []byte("done"), 0o644))

	evaluation, err = p.Evaluate(context.Background(), step)
	require.NoError(t, err)
	require.True(t, evaluation.Satisfied)
	require.Contains(t, evaluation.Message, "check command succeeded")
}

func TestCommandPlugin_EvaluateWithoutCheckAlwaysRuns(t *testing.T) {
	step := &config.Step{
		ID:      "no_check",
		Action:  "command",
		Command: &config.CommandStep{Command: "echo hello"},
	}

	evaluation, err := New().Evaluate(context.Background(), step)
	require.NoError(t, err)
	require.False(t, evaluation.Satisfied)
	require.Contains(t, evaluation.Message, "no check command")
}

func TestCommandPlugin_ApplyRunsCommandWithEnvAndWorkdir(t *testing.T) {
	workDir := t.TempDir()
	outputFile := filepath.Join(workDir, "result.txt")

	step := &config.Step{
		ID:     "run_command",
		Action: "command",
		Command: &config.CommandStep{
			Command: "echo $CUSTOM_VALUE > result.txt",
			WorkDir: workDir,
			Env:     map[string]string{"CUSTOM_VALUE": "rigup"},
		},
	}

	evaluation := &model.Evaluation{StepID: step.ID, Satisfied: false}

	res, err := New().Apply(context.Background(), evaluation, step)
	require.NoError(t, err)
	require.Equal(t, model.StatusSuccess, res.Status)
	require.True(t, res.Changed)

	data, err := os.ReadFile(outputFile)
	require.NoError(t, err)
	require.Equal(t, "rigup\n", string(data))
}

func TestCommandPlugin_ApplySkipsWhenSatisfied(t *testing.T) {
	workDir := t.TempDir()

	step := &config.Step{
		ID:     "skip",
		Action: "command",
		Command: &config.CommandStep{
			Command: "touch should_not_exist",
			WorkDir: workDir,
		},
	}

	evaluation := &model.Evaluation{StepID: step.ID, Satisfied: true}

	result, err := New().Apply(context.Background(), evaluation, step)
	require.NoError(t, err)
	require.Equal(t, model.StatusSuccess, result.Status)
	require.False(t, result.Changed)

	_, err = os.Stat(filepath.Join(workDir, "should_not_exist"))
	require.True(t, os.IsNotExist(err))
}

func TestCommandPlugin_ApplySurfacesCommandFailure(t *testing.T) {
	step := &config.Step{
		ID:      "boom",
		Action:  "command",
		Command: &config.CommandStep{Command: "echo broken >&2; exit 9"},
	}

	evaluation := &model.Evaluation{StepID: step.ID, Satisfied: false}

	result, err := New().Apply(context.Background(), evaluation, step)
	require.Error(t, err)
	require.NotNil(t, result)
	require.Equal(t, model.StatusFailed, result.Status)
	require.Contains(t, result.Message, "broken")

	var execErr *pluginpkg.ExecutionError
	require.ErrorAs(t, err, &execErr)
	require.Equal(t, "boom", execErr.StepID())
}

func TestCommandPlugin_EvaluateMissingConfig(t *testing.T) {
	_, err := New().Evaluate(context.Background(), &config.Step{ID: "missing", Action: "command"})
	require.Error(t, err)

	var validationErr *pluginpkg.ValidationError
	require.ErrorAs(t, err, &validationErr)
}

func TestCommandPlugin_Metadata(t *testing.T) {
	t.Parallel()

	meta := New().Metadata()
	require.Equal(t, "command", meta.Name)
	require.NotEmpty(t, meta.Version)
}

func TestCommandPlugin_Schema(t *testing.T) {
	t.Parallel()

	schema := New().Schema()
	require.NotNil(t, schema)
	_, ok := schema.(config.CommandStep)
	require.True(t, ok, "schema should be of type CommandStep")
}

func TestDetermineShellExplicit(t *testing.T) {
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("/bin/sh not available")
	}

	shell, args, err := determineShell("/bin/sh")
	require.NoError(t, err)
	require.Equal(t, "/bin/sh", shell)
	require.Equal(t, []string{"-c"}, args)
}

func TestDetermineShellNoFallback(t *testing.T) {
	originalPath := os.Getenv("PATH")
	t.Cleanup(func() { _ = os.Setenv("PATH", originalPath) })
	require.NoError(t, os.Setenv("PATH", ""))

	_, _, err := determineShell("")
	require.Error(t, err)
}

func writeScript(t *testing.T, dir, name, content string) {
	t.Helper()
	scriptPath := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(scriptPath, []byte(content), 0o755))
}

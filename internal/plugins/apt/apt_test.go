package aptplugin

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

func TestAptPlugin_EvaluateReportsInstalledPackages(t *testing.T) {
	binDir := t.TempDir()
	writeScript(t, binDir, "dpkg-query", `#!/bin/sh
if echo "$@" | grep -q missing_pkg; then
  exit 1
fi
echo "install ok installed"
exit 0
`)
	prependPath(t, binDir)

	p := New()
	require.Implements(t, (*pluginpkg.Plugin)(nil), p)

	step := &config.Step{
		ID:     "core_tools",
		Action: "apt",
		Apt:    &config.AptStep{Packages: []string{"git", "curl"}},
	}

	evaluation, err := p.Evaluate(context.Background(), step)
	require.NoError(t, err)
	require.True(t, evaluation.Satisfied)
	require.Contains(t, evaluation.Message, "all packages installed")
}

func TestAptPlugin_EvaluateDetectsMissingPackage(t *testing.T) {
	binDir := t.TempDir()
	writeScript(t, binDir, "dpkg-query", `#!/bin/sh
if echo "$@" | grep -q missing_pkg; then
  exit 1
fi
echo "install ok installed"
exit 0
`)
	prependPath(t, binDir)

	p := New()

	step := &config.Step{
		ID:     "core_tools",
		Action: "apt",
		Apt:    &config.AptStep{Packages: []string{"git", "missing_pkg"}},
	}

	evaluation, err := p.Evaluate(context.Background(), step)
	require.NoError(t, err)
	require.False(t, evaluation.Satisfied)
	require.Contains(t, evaluation.Message, "missing_pkg")
	require.Contains(t, evaluation.Diff, "would install")
}

func TestAptPlugin_EvaluateUpdateAlwaysPending(t *testing.T) {
	binDir := t.TempDir()
	writeScript(t, binDir, "dpkg-query", `#!/bin/sh
exit 0
`)
	prependPath(t, binDir)

	p := New()

	step := &config.Step{
		ID:     "apt_update",
		Action: "apt",
		Apt:    &config.AptStep{Update: true},
	}

	evaluation, err := p.Evaluate(context.Background(), step)
	require.NoError(t, err)
	require.False(t, evaluation.Satisfied)
	require.Contains(t, evaluation.Message, "refresh pending")
}

func TestAptPlugin_ApplyRunsAptGet(t *testing.T) {
	binDir := t.TempDir()
	logPath := filepath.Join(binDir, "apt.log")
	writeScript(t, binDir, "dpkg-query", `#!/bin/sh
exit 1
`)
	writeScript(t, binDir, "apt-get", `#!/bin/sh
echo "$@" >> "`+logPath+`"
exit 0
`)
	prependPath(t, binDir)

	p := New()

	step := &config.Step{
		ID:     "core_tools",
		Action: "apt",
		Apt:    &config.AptStep{Packages: []string{"git", "curl"}},
	}

	evaluation, err := p.Evaluate(context.Background(), step)
	require.NoError(t, err)

	result, err := p.Apply(context.Background(), evaluation, step)
	require.NoError(t, err)
	require.Equal(t, step.ID, result.StepID)
	require.Equal(t, model.StatusSuccess, result.Status)
	require.True(t, result.Changed)

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	output := string(data)
	require.Contains(t, output, "install -y")
	require.Contains(t, output, "git")
	require.Contains(t, output, "curl")
}

func TestAptPlugin_ApplyOrdersUpdateBeforeUpgrade(t *testing.T) {
	binDir := t.TempDir()
	logPath := filepath.Join(binDir, "apt.log")
	writeScript(t, binDir, "apt-get", `#!/bin/sh
echo "$1" >> "`+logPath+`"
exit 0
`)
	prependPath(t, binDir)

	p := New()

	step := &config.Step{
		ID:     "apt_refresh",
		Action: "apt",
		Apt:    &config.AptStep{Update: true, Upgrade: true},
	}

	evaluation, err := p.Evaluate(context.Background(), step)
	require.NoError(t, err)

	result, err := p.Apply(context.Background(), evaluation, step)
	require.NoError(t, err)
	require.True(t, result.Changed)

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	require.Equal(t, "update\nupgrade\n", string(data))
}

func TestAptPlugin_ApplySurfacesAptFailure(t *testing.T) {
	binDir := t.TempDir()
	writeScript(t, binDir, "dpkg-query", `#!/bin/sh
exit 1
`)
	writeScript(t, binDir, "apt-get", `#!/bin/sh
echo "E: Unable to locate package ghost" >&2
exit 100
`)
	prependPath(t, binDir)

	p := New()

	step := &config.Step{
		ID:     "core_tools",
		Action: "apt",
		Apt:    &config.AptStep{Packages: []string{"ghost"}},
	}

	evaluation, err := p.Evaluate(context.Background(), step)
	require.NoError(t, err)

	result, err := p.Apply(context.Background(), evaluation, step)
	require.Error(t, err)
	require.NotNil(t, result)
	require.Equal(t, model.StatusFailed, result.Status)
	require.Contains(t, result.Message, "Unable to locate package")

	var execErr *pluginpkg.ExecutionError
	require.ErrorAs(t, err, &execErr)
	require.Equal(t, "core_tools", execErr.StepID())
}

func TestAptPlugin_ApplySkipsWhenSatisfied(t *testing.T) {
	p := New()

	step := &config.Step{
		ID:     "core_tools",
		Action: "apt",
		Apt:    &config.AptStep{Packages: []string{"git"}},
	}

	evaluation := &model.Evaluation{
		StepID:       step.ID,
		Satisfied:    true,
		InternalData: &aptEvaluationData{},
	}

	result, err := p.Apply(context.Background(), evaluation, step)
	require.NoError(t, err)
	require.Equal(t, model.StatusSuccess, result.Status)
	require.False(t, result.Changed)
	require.Contains(t, result.Message, "no changes needed")
}

func writeScript(t *testing.T, dir, name, contents string) {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o755))
}

func prependPath(t *testing.T, dir string) {
	t.Helper()
	originalPath := os.Getenv("PATH")
	t.Cleanup(func() { _ = os.Setenv("PATH", originalPath) })
	require.NoError(t, os.Setenv("PATH", dir+":"+originalPath))
}

package firewallplugin

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

const activeStatus = `Status: active
Logging: on (low)
Default: deny (incoming), allow (outgoing), disabled (routed)
New profiles: skip

To                         Action      From
--                         ------      ----
OpenSSH                    ALLOW IN    Anywhere
OpenSSH (v6)               ALLOW IN    Anywhere (v6)
`

func TestParseUfwStatus(t *testing.T) {
	t.Parallel()

	t.Run("active with defaults and rules", func(t *testing.T) {
		t.Parallel()

		state := parseUfwStatus(activeStatus)
		require.True(t, state.Active)
		require.Equal(t, "deny", state.DefaultIncoming)
		require.Equal(t, "allow", state.DefaultOutgoing)
		require.True(t, hasAllowRule(state, "OpenSSH"))
		require.False(t, hasAllowRule(state, "Apache"))
	})

	t.Run("inactive shows no rules", func(t *testing.T) {
		t.Parallel()

		state := parseUfwStatus("Status: inactive\n")
		require.False(t, state.Active)
		require.Empty(t, state.Rules)
	})
}

func TestPendingActions(t *testing.T) {
	t.Parallel()

	cfg := &config.FirewallStep{
		DefaultIncoming: "deny",
		DefaultOutgoing: "allow",
		Allow:           []string{"OpenSSH"},
		Enable:          true,
	}

	t.Run("fresh host needs everything in order", func(t *testing.T) {
		t.Parallel()

		actions := pendingActions(cfg, ufwState{})
		require.Len(t, actions, 4)
		require.Equal(t, []string{"default", "deny", "incoming"}, actions[0].Args)
		require.Equal(t, []string{"default", "allow", "outgoing"}, actions[1].Args)
		require.Equal(t, []string{"allow", "OpenSSH"}, actions[2].Args)
		require.Equal(t, []string{"--force", "enable"}, actions[3].Args)
	})

	t.Run("configured host needs nothing", func(t *testing.T) {
		t.Parallel()

		state := parseUfwStatus(activeStatus)
		require.Empty(t, pendingActions(cfg, state))
	})

	t.Run("active host missing one rule", func(t *testing.T) {
		t.Parallel()

		state := parseUfwStatus(activeStatus)
		wider := &config.FirewallStep{
			DefaultIncoming: "deny",
			Allow:           []string{"OpenSSH", "Apache"},
			Enable:          true,
		}

		actions := pendingActions(wider, state)
		require.Len(t, actions, 1)
		require.Equal(t, []string{"allow", "Apache"}, actions[0].Args)
	})
}

func TestFirewallPlugin_EvaluateSatisfied(t *testing.T) {
	binDir := t.TempDir()
	writeScript(t, binDir, "ufw", `#!/bin/sh
cat << 'STATUS'
`+activeStatus+`STATUS
exit 0
`)
	prependPath(t, binDir)

	p := New()
	require.Implements(t, (*pluginpkg.Plugin)(nil), p)

	step := &config.Step{
		ID:     "firewall",
		Action: "firewall",
		Firewall: &config.FirewallStep{
			DefaultIncoming: "deny",
			DefaultOutgoing: "allow",
			Allow:           []string{"OpenSSH"},
			Enable:          true,
		},
	}

	evaluation, err := p.Evaluate(context.Background(), step)
	require.NoError(t, err)
	require.True(t, evaluation.Satisfied)
}

func TestFirewallPlugin_EvaluateFailsWithoutUfw(t *testing.T) {
	originalPath := os.Getenv("PATH")
	t.Cleanup(func() { _ = os.Setenv("PATH", originalPath) })
	require.NoError(t, os.Setenv("PATH", t.TempDir()))

	p := New()

	step := &config.Step{
		ID:       "firewall",
		Action:   "firewall",
		Firewall: &config.FirewallStep{Enable: true},
	}

	_, err := p.Evaluate(context.Background(), step)
	require.Error(t, err)

	var stateErr *pluginpkg.StateError
	require.ErrorAs(t, err, &stateErr)
}

func TestFirewallPlugin_ApplyRunsPendingCommands(t *testing.T) {
	binDir := t.TempDir()
	logPath := filepath.Join(binDir, "ufw.log")
	writeScript(t, binDir, "ufw", `#!/bin/sh
if [ "$1" = "status" ]; then
  echo "Status: inactive"
  exit 0
fi
echo "$@" >> "`+logPath+`"
exit 0
`)
	prependPath(t, binDir)

	p := New()

	step := &config.Step{
		ID:     "firewall",
		Action: "firewall",
		Firewall: &config.FirewallStep{
			DefaultIncoming: "deny",
			Allow:           []string{"OpenSSH"},
			Enable:          true,
		},
	}

	evaluation, err := p.Evaluate(context.Background(), step)
	require.NoError(t, err)
	require.False(t, evaluation.Satisfied)

	result, err := p.Apply(context.Background(), evaluation, step)
	require.NoError(t, err)
	require.Equal(t, model.StatusSuccess, result.Status)
	require.True(t, result.Changed)

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	require.Equal(t, "default deny incoming\nallow OpenSSH\n--force enable\n", string(data))
}

func TestFirewallPlugin_ApplySurfacesFailure(t *testing.T) {
	binDir := t.TempDir()
	writeScript(t, binDir, "ufw", `#!/bin/sh
if [ "$1" = "status" ]; then
  echo "Status: inactive"
  exit 0
fi
echo "ERROR: problem running ufw" >&2
exit 1
`)
	prependPath(t, binDir)

	p := New()

	step := &config.Step{
		ID:       "firewall",
		Action:   "firewall",
		Firewall: &config.FirewallStep{Enable: true},
	}

	evaluation, err := p.Evaluate(context.Background(), step)
	require.NoError(t, err)

	result, err := p.Apply(context.Background(), evaluation, step)
	require.Error(t, err)
	require.NotNil(t, result)
	require.Equal(t, model.StatusFailed, result.Status)
	require.Contains(t, result.Message, "problem running ufw")
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

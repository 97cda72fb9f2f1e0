// Package preflight validates the host before any step is allowed to run.
// A preflight failure means the pipeline never started and no mutating
// command has executed.
package preflight

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/rigup-sh/rigup/internal/config"
	"github.com/rigup-sh/rigup/internal/facts"
	riguperrors "github.com/rigup-sh/rigup/pkg/errors"
)

var (
	geteuid = os.Geteuid

	// runSudo inherits the terminal so sudo can prompt for a password.
	runSudo = func(ctx context.Context, args ...string) error {
		cmd := exec.CommandContext(ctx, "sudo", args...)
		cmd.Stdin = os.Stdin
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
		return cmd.Run()
	}

	lookPath = exec.LookPath
)

// Check validates the host identity and version against the manifest
// requirements.
func Check(hostFacts *facts.Facts, req config.Requirements) error {
	if hostFacts == nil {
		return riguperrors.NewPreflightError(riguperrors.ReasonUnsupportedEnvironment, "host facts unavailable", nil)
	}

	if len(req.Distros) > 0 && !hostFacts.OS.MatchesDistro(req.Distros) {
		detected := hostFacts.OS.PrettyName
		if detected == "" {
			detected = hostFacts.OS.ID
		}
		msg := fmt.Sprintf("requires %s, detected %s", strings.Join(req.Distros, " or "), detected)
		return riguperrors.NewPreflightError(riguperrors.ReasonUnsupportedEnvironment, msg, nil)
	}

	if req.MinVersion != "" {
		ok, err := versionAtLeast(hostFacts.OS.VersionID, req.MinVersion)
		if err != nil {
			msg := fmt.Sprintf("cannot determine OS version: %v", err)
			return riguperrors.NewPreflightError(riguperrors.ReasonUnsupportedEnvironment, msg, err)
		}
		if !ok {
			msg := fmt.Sprintf("requires version %s or newer, detected %s", req.MinVersion, hostFacts.OS.VersionID)
			return riguperrors.NewPreflightError(riguperrors.ReasonUnsupportedEnvironment, msg, nil)
		}
	}

	return nil
}

// EnsurePrivileges confirms the process can perform privileged work: either
// it already runs as root, or sudo validates and caches a credential. The
// sudo prompt happens here, once, before any step needs it.
func EnsurePrivileges(ctx context.Context) error {
	if geteuid() == 0 {
		return nil
	}

	if _, err := lookPath("sudo"); err != nil {
		return riguperrors.NewPreflightError(riguperrors.ReasonPrivilegeUnavailable, "sudo not found on PATH", err)
	}

	if err := runSudo(ctx, "-v"); err != nil {
		return riguperrors.NewPreflightError(riguperrors.ReasonPrivilegeUnavailable, "could not acquire sudo credentials", err)
	}

	return nil
}

// ReleasePrivileges drops the cached sudo credential acquired by
// EnsurePrivileges. Failures are ignored; the credential expires on its
// own anyway.
func ReleasePrivileges() {
	if geteuid() == 0 {
		return
	}
	_ = runSudo(context.Background(), "-k")
}

// versionAtLeast compares dotted numeric versions on their major.minor
// components. Trailing components ("22.04.3") are ignored.
func versionAtLeast(have, want string) (bool, error) {
	haveMajor, haveMinor, err := parseVersion(have)
	if err != nil {
		return false, err
	}
	wantMajor, wantMinor, err := parseVersion(want)
	if err != nil {
		return false, err
	}

	if haveMajor != wantMajor {
		return haveMajor > wantMajor, nil
	}
	return haveMinor >= wantMinor, nil
}

func parseVersion(v string) (int, int, error) {
	if v == "" {
		return 0, 0, fmt.Errorf("version is empty")
	}

	parts := strings.SplitN(v, ".", 3)
	major, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid version %q: %w", v, err)
	}

	minor := 0
	if len(parts) > 1 {
		minor, err = strconv.Atoi(parts[1])
		if err != nil {
			return 0, 0, fmt.Errorf("invalid version %q: %w", v, err)
		}
	}

	return major, minor, nil
}

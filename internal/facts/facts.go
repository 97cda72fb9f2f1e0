package facts

import (
	"context"
	"os"
	"os/exec"
	"runtime"
	"strings"
)

// Fact keys referencable from a step guard (`when:`). Only booleans can
// gate a step.
const (
	FactHasNvidiaGPU = "has_nvidia_gpu"
	FactVirtualized  = "virtualized"
)

// OS identifies the running distribution, parsed from os-release.
type OS struct {
	ID         string
	IDLike     []string
	VersionID  string
	PrettyName string
}

// Facts is the immutable snapshot of host probes taken once per run, before
// preflight. Guarded steps and plugins read it; nothing writes it afterwards.
type Facts struct {
	OS             OS
	Arch           string
	Kernel         string
	Virtualization string
	HasNvidiaGPU   bool
}

// Bool resolves a guard fact by key.
func (f *Facts) Bool(key string) (value, ok bool) {
	switch key {
	case FactHasNvidiaGPU:
		return f.HasNvidiaGPU, true
	case FactVirtualized:
		return f.Virtualization != "" && f.Virtualization != "none", true
	}
	return false, false
}

// GuardKeys lists the fact keys a manifest guard may reference.
func GuardKeys() []string {
	return []string{FactHasNvidiaGPU, FactVirtualized}
}

// Gatherer probes the host. Paths are exported so tests can point the probes
// at fixture trees instead of the live system.
type Gatherer struct {
	OSReleasePath string
	KernelPath    string
	SysfsPCIPath  string
}

// NewGatherer returns a Gatherer wired to the real host paths.
func NewGatherer() *Gatherer {
	return &Gatherer{
		OSReleasePath: "/etc/os-release",
		KernelPath:    "/proc/sys/kernel/osrelease",
		SysfsPCIPath:  "/sys/bus/pci/devices",
	}
}

var detectVirt = func(ctx context.Context) string {
	// systemd-detect-virt exits 1 with output "none" on bare metal; only a
	// missing binary or empty output means unknown.
	out, _ := exec.CommandContext(ctx, "systemd-detect-virt").Output()
	return strings.TrimSpace(string(out))
}

// Gather probes the host once and returns the snapshot. Probes that cannot
// run (missing files, no systemd) degrade to empty values rather than fail;
// preflight decides what is mandatory.
func (g *Gatherer) Gather(ctx context.Context) (*Facts, error) {
	f := &Facts{Arch: runtime.GOARCH}

	osInfo, err := ParseOSRelease(g.OSReleasePath)
	if err != nil {
		return nil, err
	}
	f.OS = osInfo

	if kernel, err := os.ReadFile(g.KernelPath); err == nil {
		f.Kernel = strings.TrimSpace(string(kernel))
	}

	f.HasNvidiaGPU = hasNvidiaGPU(g.SysfsPCIPath)
	f.Virtualization = detectVirt(ctx)

	return f, nil
}

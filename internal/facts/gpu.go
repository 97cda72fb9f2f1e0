package facts

import (
	"os"
	"path/filepath"
	"strings"
)

const (
	nvidiaVendorID = "0x10de"
	// PCI base class 0x03 covers VGA, 3D and other display controllers.
	displayClassPrefix = "0x03"
)

// hasNvidiaGPU scans the sysfs PCI tree for an NVIDIA display controller.
// Reading sysfs avoids a dependency on lspci and needs no privileges.
func hasNvidiaGPU(sysfsPCIPath string) bool {
	entries, err := os.ReadDir(sysfsPCIPath)
	if err != nil {
		return false
	}

	for _, entry := range entries {
		device := filepath.Join(sysfsPCIPath, entry.Name())

		vendor, err := os.ReadFile(filepath.Join(device, "vendor"))
		if err != nil || strings.TrimSpace(string(vendor)) != nvidiaVendorID {
			continue
		}

		class, err := os.ReadFile(filepath.Join(device, "class"))
		if err != nil {
			continue
		}
		if strings.HasPrefix(strings.TrimSpace(string(class)), displayClassPrefix) {
			return true
		}
	}
	return false
}

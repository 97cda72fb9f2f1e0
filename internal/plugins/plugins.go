// Package plugins wires the built-in action plugins into the registry.
package plugins

import (
	"github.com/rigup-sh/rigup/internal/plugin"
	aptplugin "github.com/rigup-sh/rigup/internal/plugins/apt"
	commandplugin "github.com/rigup-sh/rigup/internal/plugins/command"
	driversplugin "github.com/rigup-sh/rigup/internal/plugins/drivers"
	firewallplugin "github.com/rigup-sh/rigup/internal/plugins/firewall"
	flatpakplugin "github.com/rigup-sh/rigup/internal/plugins/flatpak"
	serviceplugin "github.com/rigup-sh/rigup/internal/plugins/service"
	shellkitplugin "github.com/rigup-sh/rigup/internal/plugins/shellkit"
	snapplugin "github.com/rigup-sh/rigup/internal/plugins/snap"
)

// Defaults returns one instance of every built-in plugin.
func Defaults() []plugin.Plugin {
	return []plugin.Plugin{
		aptplugin.New(),
		firewallplugin.New(),
		serviceplugin.New(),
		flatpakplugin.New(),
		snapplugin.New(),
		shellkitplugin.New(),
		driversplugin.New(),
		commandplugin.New(),
	}
}

// RegisterDefaults registers every built-in action plugin with the global
// registry.
func RegisterDefaults() error {
	for _, p := range Defaults() {
		if err := plugin.Register(p); err != nil {
			return err
		}
	}
	return nil
}

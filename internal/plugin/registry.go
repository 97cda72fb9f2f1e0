package plugin

import (
	"fmt"
	"sort"
	"sync"

	riguperrors "github.com/rigup-sh/rigup/pkg/errors"
)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Plugin)
)

// Register adds a plugin implementation for its declared action name.
func Register(p Plugin) error {
	if p == nil {
		return riguperrors.NewPluginError("", fmt.Errorf("plugin is nil"))
	}

	name := p.Metadata().Name
	if name == "" {
		return riguperrors.NewPluginError("", fmt.Errorf("plugin metadata missing name"))
	}

	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := registry[name]; exists {
		return riguperrors.NewPluginError(name, fmt.Errorf("plugin already registered"))
	}

	registry[name] = p
	return nil
}

// Get retrieves a plugin by action name.
func Get(action string) (Plugin, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	p, ok := registry[action]
	if !ok {
		return nil, riguperrors.NewPluginError(action, fmt.Errorf("no plugin registered"))
	}

	return p, nil
}

// List returns the registered action names in sorted order.
func List() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Reset clears plugin registrations (for tests).
func Reset() {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry = make(map[string]Plugin)
}

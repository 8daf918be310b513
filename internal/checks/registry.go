package checks

import (
	"fmt"
	"sort"
	"sync"
)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Checker)
)

// Register adds a Checker to the global registry.
// It panics if a check with the same name is already registered.
func Register(c Checker) {
	registryMu.Lock()
	defer registryMu.Unlock()

	name := c.Name()
	if _, exists := registry[name]; exists {
		panic(fmt.Sprintf("check already registered: %s", name))
	}
	registry[name] = c
}

// Get retrieves a Checker by name from the global registry.
func Get(name string) (Checker, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	c, ok := registry[name]
	return c, ok
}

// List returns the names of all registered checks in sorted order.
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

// All returns every registered Checker sorted by name.
func All() []Checker {
	registryMu.RLock()
	defer registryMu.RUnlock()

	all := make([]Checker, 0, len(registry))
	for _, c := range registry {
		all = append(all, c)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].Name() < all[j].Name()
	})
	return all
}

// Reset removes every registered check. The run command calls it before
// registering the checks of a configuration file.
func Reset() {
	registryMu.Lock()
	defer registryMu.Unlock()

	registry = make(map[string]Checker)
}

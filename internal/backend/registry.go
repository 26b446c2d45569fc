package backend

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

var (
	registryMu sync.RWMutex
	registry   = map[string]Tool{
		"smartfix": SmartFixTool{},
	}
)

// Register adds or replaces a tool under its lower-cased name.
func Register(t Tool) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[strings.ToLower(t.Name())] = t
}

// Names lists registered tools in sorted order.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return namesLocked()
}

// Select returns the named tool. An empty name selects smartfix.
func Select(name string) (Tool, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		key = "smartfix"
	}
	registryMu.RLock()
	defer registryMu.RUnlock()
	if tool, ok := registry[key]; ok {
		return tool, nil
	}
	return nil, fmt.Errorf("unsupported tool %q (available: %s)", name, strings.Join(namesLocked(), ", "))
}

func namesLocked() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

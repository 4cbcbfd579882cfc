package exchange

import (
	"fmt"
	"sort"
	"sync"
)

// Entity is one exchangeable business entity: its export and import
// schemas plus the sample rows its import template is seeded with.
type Entity struct {
	Key     string
	Label   string
	Group   string
	Export  Schema
	Import  Schema
	Samples []Record
}

var (
	registry   = make(map[string]Entity)
	registryMu sync.RWMutex
)

// Register adds an entity to the registry.
// Panics if the key is taken, a schema is invalid, or the samples fail the
// import schema: all are programming errors caught at startup.
func Register(e Entity) {
	if err := e.Export.Validate(); err != nil {
		panic(fmt.Sprintf("entity %s: export %v", e.Key, err))
	}
	for _, format := range []Format{FormatCSV, FormatXLSX} {
		if err := ValidateSamples(e.Import, e.Samples, format); err != nil {
			panic(fmt.Sprintf("entity %s: %s samples: %v", e.Key, format, err))
		}
	}

	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := registry[e.Key]; exists {
		panic(fmt.Sprintf("entity already registered: %s", e.Key))
	}
	registry[e.Key] = e
}

// Lookup returns an entity by key.
func Lookup(key string) (Entity, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	e, ok := registry[key]
	return e, ok
}

// Entities returns all registered entities sorted by group then key.
func Entities() []Entity {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]Entity, 0, len(registry))
	for _, e := range registry {
		result = append(result, e)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Group != result[j].Group {
			return result[i].Group < result[j].Group
		}
		return result[i].Key < result[j].Key
	})
	return result
}

// Groups returns all unique group names, sorted.
func Groups() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	seen := make(map[string]bool)
	for _, e := range registry {
		seen[e.Group] = true
	}

	groups := make([]string, 0, len(seen))
	for g := range seen {
		groups = append(groups, g)
	}
	sort.Strings(groups)
	return groups
}

// Clear removes all registered entities.
// Primarily useful for testing.
func Clear() {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry = make(map[string]Entity)
}

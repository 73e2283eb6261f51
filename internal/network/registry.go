package network

import (
	"fmt"
	"sort"
	"strings"
)

var registry = map[string]Target{}

func Register(t Target) {
	registry[strings.ToLower(t.ID)] = t
}

func Get(id string) (Target, bool) {
	t, ok := registry[strings.ToLower(id)]
	return t, ok
}

// IDs returns the registered ids in sorted order.
func IDs() []string {
	ids := make([]string, 0, len(registry))
	for id := range registry {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Resolve looks up every id and fails on the first unknown one.
func Resolve(ids []string) ([]Target, error) {
	if len(ids) == 0 {
		return nil, fmt.Errorf("no networks selected")
	}
	targets := make([]Target, 0, len(ids))
	seen := make(map[string]bool)
	for _, id := range ids {
		t, ok := Get(id)
		if !ok {
			return nil, fmt.Errorf("unknown network: %s (known: %s)", id, strings.Join(IDs(), ", "))
		}
		if seen[t.ID] {
			continue
		}
		seen[t.ID] = true
		targets = append(targets, t)
	}
	return targets, nil
}

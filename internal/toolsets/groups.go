package toolsets

import (
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

// Manager holds named tool sets and resolves their extends-chains into
// flattened tool/tag membership, with cycle detection — grounded on
// tool_set.py's ToolSetManager base/agent/specialized tiers.
type Manager struct {
	mu   sync.RWMutex
	sets map[string]Set
}

// NewManager creates an empty manager.
func NewManager() *Manager {
	return &Manager{sets: make(map[string]Set)}
}

// LoadYAML loads a tool_sets.yaml document from path, replacing any sets
// with the same name.
func (m *Manager) LoadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("toolsets: read %s: %w", path, err)
	}
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("toolsets: parse %s: %w", path, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range doc.Sets {
		m.sets[s.Name] = s
	}
	return nil
}

// Add registers or replaces a set directly, without going through YAML.
func (m *Manager) Add(s Set) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sets[s.Name] = s
}

// Flattened resolves a named set's full tool/tag membership by walking its
// extends-chain depth-first, detecting cycles along the way.
func (m *Manager) Flattened(name string) (tools []string, tags []string, err error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	seenTool := make(map[string]bool)
	seenTag := make(map[string]bool)
	visiting := make(map[string]bool)

	var walk func(string) error
	walk = func(n string) error {
		if visiting[n] {
			return fmt.Errorf("toolsets: cycle detected in extends chain at %q", n)
		}
		set, ok := m.sets[n]
		if !ok {
			return fmt.Errorf("toolsets: undefined set %q", n)
		}
		visiting[n] = true
		defer delete(visiting, n)

		for _, parent := range set.Extends {
			if err := walk(parent); err != nil {
				return err
			}
		}
		for _, t := range set.Tools {
			seenTool[t] = true
		}
		for _, t := range set.Tags {
			seenTag[t] = true
		}
		return nil
	}

	if err := walk(name); err != nil {
		return nil, nil, err
	}
	for t := range seenTool {
		tools = append(tools, t)
	}
	for t := range seenTag {
		tags = append(tags, t)
	}
	return tools, tags, nil
}

package toolsets

import "fmt"

// Resolve combines a Manager (named sets) and a Policy (per-agent
// overrides) into a Resolved allow/deny decision, generalizing
// get_tools_for_agent's precedence: deny-by-name > allow-by-name >
// (set tools ∪ set tags), deny-by-tag removes last.
func Resolve(m *Manager, p Policy) (*Resolved, error) {
	r := &Resolved{
		allowNames: make(map[string]bool),
		allowTags:  make(map[string]bool),
		denyNames:  make(map[string]bool),
		denyTags:   make(map[string]bool),
	}

	if p.Set != "" {
		tools, tags, err := m.Flattened(p.Set)
		if err != nil {
			return nil, fmt.Errorf("toolsets: resolving set %q: %w", p.Set, err)
		}
		for _, t := range tools {
			r.allowNames[t] = true
		}
		for _, t := range tags {
			r.allowTags[t] = true
		}
	}
	for _, t := range p.AllowNames {
		r.allowNames[t] = true
	}
	for _, t := range p.DenyNames {
		r.denyNames[t] = true
	}
	for _, t := range p.DenyTags {
		r.denyTags[t] = true
	}
	return r, nil
}

// ResolveMulti generalizes Resolve to an agent definition's tool_sets (a
// list rather than Policy's single Set), unioning every named set with
// allowNames before applying denyNames/denyTags — the "(tool_sets ∪
// allow_tools) − deny_tools" visibility rule (spec §4.1 step 2).
func ResolveMulti(m *Manager, sets, allowNames, denyNames, denyTags []string) (*Resolved, error) {
	r := &Resolved{
		allowNames: make(map[string]bool),
		allowTags:  make(map[string]bool),
		denyNames:  make(map[string]bool),
		denyTags:   make(map[string]bool),
	}
	for _, setName := range sets {
		tools, tags, err := m.Flattened(setName)
		if err != nil {
			return nil, fmt.Errorf("toolsets: resolving set %q: %w", setName, err)
		}
		for _, t := range tools {
			r.allowNames[t] = true
		}
		for _, t := range tags {
			r.allowTags[t] = true
		}
	}
	for _, t := range allowNames {
		r.allowNames[t] = true
	}
	for _, t := range denyNames {
		r.denyNames[t] = true
	}
	for _, t := range denyTags {
		r.denyTags[t] = true
	}
	return r, nil
}

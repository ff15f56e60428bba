// Package agents implements the declarative agent registry: immutable
// agent definitions loaded from config, with name/alias resolution and
// per-agent tool binding (tool sets plus explicit allow/deny lists).
//
// Grounded on services/agents/registry.py.
package agents

import (
	"fmt"
	"sort"
	"strings"
)

// Definition is an immutable agent record (spec §3 "Agent definition").
type Definition struct {
	ID             string   `yaml:"id"`   // single-letter canonical id
	Name           string   `yaml:"name"` // display name
	Role           string   `yaml:"role"` // e.g. "planner"
	ContextTags    []string `yaml:"context_tags,omitempty"`
	PromptTemplate string   `yaml:"prompt_template,omitempty"`
	ToolSets       []string `yaml:"tool_sets,omitempty"`
	AllowTools     []string `yaml:"allow_tools,omitempty"`
	DenyTools      []string `yaml:"deny_tools,omitempty"`
	Model          string   `yaml:"model,omitempty"` // model-override, empty = use session default
}

// Registry holds loaded agent definitions plus their derived alias table.
type Registry struct {
	byID    map[string]Definition
	aliases map[string]string // normalized alias -> canonical id
}

// NewRegistry builds a Registry from a fixed set of definitions, building
// the alias table once at construction (definitions never mutate at
// runtime, per spec §3).
func NewRegistry(defs []Definition) (*Registry, error) {
	r := &Registry{
		byID:    make(map[string]Definition),
		aliases: make(map[string]string),
	}
	for _, d := range defs {
		if d.ID == "" {
			return nil, fmt.Errorf("agents: definition missing id: %+v", d)
		}
		if _, dup := r.byID[d.ID]; dup {
			return nil, fmt.Errorf("agents: duplicate agent id %q", d.ID)
		}
		r.byID[d.ID] = d
		r.registerAliases(d)
	}
	return r, nil
}

// registerAliases registers every alias spec.md §4.5 names: canonical id,
// full display name, first word of the display name, role, "agent <id>",
// "agent <first-word>" (SUPPLEMENTED FEATURE #2 widens this beyond the
// literal id/name pairs the spec sketch lists).
func (r *Registry) registerAliases(d Definition) {
	add := func(alias string) {
		n := normalize(alias)
		if n == "" {
			return
		}
		if _, exists := r.aliases[n]; !exists {
			r.aliases[n] = d.ID
		}
	}

	add(d.ID)
	add(d.Name)
	add(d.Role)
	add("agent " + d.ID)

	firstWord := firstWordOf(d.Name)
	if firstWord != "" {
		add(firstWord)
		add("agent " + firstWord)
	}
}

// Get returns the definition for a canonical id.
func (r *Registry) Get(id string) (Definition, bool) {
	d, ok := r.byID[id]
	return d, ok
}

// List returns every definition, ordered by id for determinism.
func (r *Registry) List() []Definition {
	out := make([]Definition, 0, len(r.byID))
	for _, d := range r.byID {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ResolveAlias resolves a free-form name to a canonical agent id.
// Lookup normalization: lowercase, trim, collapse " the " to " ", then
// try progressively shorter whitespace-delimited prefixes before failing
// (spec §4.5).
func (r *Registry) ResolveAlias(name string) (string, error) {
	n := normalize(name)
	if id, ok := r.aliases[n]; ok {
		return id, nil
	}

	words := strings.Fields(n)
	for len(words) > 1 {
		words = words[:len(words)-1]
		if id, ok := r.aliases[strings.Join(words, " ")]; ok {
			return id, nil
		}
	}

	return "", fmt.Errorf("agents: unknown agent %q; valid ids: %s", name, strings.Join(r.validIDs(), ", "))
}

func (r *Registry) validIDs() []string {
	ids := make([]string, 0, len(r.byID))
	for id := range r.byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, " the ", " ")
	return s
}

func firstWordOf(name string) string {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

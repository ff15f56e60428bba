// Package toolsets implements declarative tool-set configuration:
// named sets of tools (and tags) an agent may use, loaded from YAML with
// base/agent/specialized inheritance tiers, resolved to a concrete
// allow/deny decision per tool name.
package toolsets

import "fmt"

// Set is one named tool set: a list of directly-named tools, a list of
// tags that pull in every tool carrying that tag, and sets this one
// extends (inherits the union of their tools/tags).
type Set struct {
	Name    string   `yaml:"name"`
	Extends []string `yaml:"extends,omitempty"`
	Tools   []string `yaml:"tools,omitempty"`
	Tags    []string `yaml:"tags,omitempty"`
}

// Policy is the allow/deny decision attached to an agent: a base set to
// resolve, plus explicit by-name and by-tag overrides. Deny always beats
// allow, matching tool_set.py's ToolSetManager precedence.
type Policy struct {
	Set        string   `yaml:"set,omitempty"`
	AllowNames []string `yaml:"allow,omitempty"`
	DenyNames  []string `yaml:"deny,omitempty"`
	DenyTags   []string `yaml:"deny_tags,omitempty"`
}

// Document is the top-level shape of a tool_sets.yaml file.
type Document struct {
	Sets []Set `yaml:"sets"`
}

// Resolved is the outcome of resolving a Policy against a Manager: the
// flattened set of allowed tool names/tags, ready for fast per-tool
// Allows checks during dispatch.
type Resolved struct {
	allowNames map[string]bool
	allowTags  map[string]bool
	denyNames  map[string]bool
	denyTags   map[string]bool
}

// Allows reports whether a tool (by name, with its declared tags) is
// visible under this resolution. Precedence: deny-by-name beats
// allow-by-name beats (set tools ∪ set tags ∪ explicit allow-by-name),
// deny-by-tag removes by tag last — matching get_tools_for_agent.
func (r *Resolved) Allows(name string, tags []string) bool {
	if r == nil {
		return true
	}
	if r.denyNames[name] {
		return false
	}
	for _, t := range tags {
		if r.denyTags[t] {
			return false
		}
	}
	if r.allowNames[name] {
		return true
	}
	for _, t := range tags {
		if r.allowTags[t] {
			return true
		}
	}
	return false
}

func (s Set) String() string {
	return fmt.Sprintf("toolset(%s, tools=%d, tags=%d, extends=%v)", s.Name, len(s.Tools), len(s.Tags), s.Extends)
}

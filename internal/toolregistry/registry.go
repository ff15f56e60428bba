// Package toolregistry implements tool registration, tool-set resolution,
// and the dispatch-strategy executor that runs tool calls a model issues
// during a turn.
package toolregistry

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/haasonsaas/nexus/internal/toolsets"
)

// Spec is what a caller registers a tool under: a factory that lazily
// builds a single instance the first time the tool is requested, plus the
// declarative tags used for tool-set resolution (group membership, allow/
// deny precedence).
type Spec struct {
	Name    string
	Tags    []string
	Factory func() Tool
}

// Registry holds registered tool specs and lazily-instantiated tools.
// Each named tool has exactly one live instance, built on first access
// (register_spec/get), matching the reference implementation's lazy
// registration contract.
type Registry struct {
	mu      sync.RWMutex
	specs   map[string]Spec
	tools   map[string]Tool // instantiated, one per name
	essentials []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		specs: make(map[string]Spec),
		tools: make(map[string]Tool),
	}
}

// RegisterSpec registers (or replaces) a tool spec. Registration never
// instantiates the tool — instantiation happens lazily on first Get.
func (r *Registry) RegisterSpec(spec Spec) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.specs[spec.Name] = spec
	delete(r.tools, spec.Name) // force re-instantiation if re-registered
}

// Register is a convenience for registering an already-built tool, with
// no tags. Equivalent to RegisterSpec with a factory that returns tool.
func (r *Registry) Register(tool Tool) {
	r.RegisterSpec(Spec{Name: tool.Name(), Factory: func() Tool { return tool }})
}

// MarkEssential flags tool names to be built eagerly by PreloadEssentials,
// instead of waiting for first use — e.g. tools every agent needs (mailbox
// check, status) where lazy-build latency on the first turn is undesirable.
func (r *Registry) MarkEssential(names ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.essentials = append(r.essentials, names...)
}

// PreloadEssentials instantiates every tool marked essential, returning an
// error for the first essential name that has no registered spec.
func (r *Registry) PreloadEssentials() error {
	r.mu.RLock()
	names := append([]string(nil), r.essentials...)
	r.mu.RUnlock()
	for _, name := range names {
		if _, ok := r.Get(name); !ok {
			return fmt.Errorf("toolregistry: essential tool %q has no registered spec", name)
		}
	}
	return nil
}

// Get returns the tool registered under name, instantiating it on first
// access and caching the instance for subsequent calls.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	if tool, ok := r.tools[name]; ok {
		r.mu.RUnlock()
		return tool, true
	}
	spec, ok := r.specs[name]
	r.mu.RUnlock()
	if !ok {
		return nil, false
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if tool, ok := r.tools[name]; ok {
		return tool, true
	}
	tool := spec.Factory()
	r.tools[name] = tool
	return tool, true
}

// Unregister removes a tool's spec and cached instance.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.specs, name)
	delete(r.tools, name)
}

// Tool parameter limits to prevent resource exhaustion.
const (
	MaxToolNameLength = 256
	MaxToolParamsSize = 10 << 20 // 10MB
)

// Execute runs a tool by name with the given JSON parameters, validating
// the arguments against the tool's schema first (§6).
func (r *Registry) Execute(ctx context.Context, name string, params json.RawMessage) (*ToolResult, error) {
	if len(name) > MaxToolNameLength {
		return &ToolResult{Content: fmt.Sprintf("tool name exceeds maximum length of %d characters", MaxToolNameLength), IsError: true}, nil
	}
	if len(params) > MaxToolParamsSize {
		return &ToolResult{Content: fmt.Sprintf("tool parameters exceed maximum size of %d bytes", MaxToolParamsSize), IsError: true}, nil
	}

	tool, ok := r.Get(name)
	if !ok {
		return nil, ErrUnknownTool
	}

	if err := ValidateArgs(tool, params); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArgs, err)
	}

	return tool.Execute(ctx, params)
}

// AllNames returns every registered tool name, instantiated or not.
func (r *Registry) AllNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.specs))
	for name := range r.specs {
		names = append(names, name)
	}
	return names
}

// AsLLMTools returns every registered tool, instantiating each, for
// passing to a model-service request's Tools field.
func (r *Registry) AsLLMTools() []Tool {
	names := r.AllNames()
	out := make([]Tool, 0, len(names))
	for _, name := range names {
		if tool, ok := r.Get(name); ok {
			out = append(out, tool)
		}
	}
	return out
}

// Tags returns the declared tags for a tool name, or nil if unregistered.
func (r *Registry) Tags(name string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.specs[name].Tags
}

// ToolsForAgent resolves the tools visible to one agent given a tool-set
// policy, following the reference precedence: deny-by-name beats
// allow-by-name beats (sets ∪ tags), and deny-tags remove by tag last.
// Grounded on tools/tool_registry.py's get_tools_for_agent.
func (r *Registry) ToolsForAgent(resolved *toolsets.Resolved) []Tool {
	names := r.AllNames()
	out := make([]Tool, 0, len(names))
	for _, name := range names {
		if !resolved.Allows(name, r.Tags(name)) {
			continue
		}
		if tool, ok := r.Get(name); ok {
			out = append(out, tool)
		}
	}
	return out
}

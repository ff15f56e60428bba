package toolregistry

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/haasonsaas/nexus/internal/toolsets"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_LazyInstantiation(t *testing.T) {
	built := 0
	r := NewRegistry()
	r.RegisterSpec(Spec{Name: "lazy", Factory: func() Tool {
		built++
		return echoTool("lazy")
	}})

	assert.Equal(t, 0, built)
	_, ok := r.Get("lazy")
	require.True(t, ok)
	assert.Equal(t, 1, built)

	_, ok = r.Get("lazy")
	require.True(t, ok)
	assert.Equal(t, 1, built, "second Get must reuse the cached instance")
}

func TestRegistry_GetUnknown(t *testing.T) {
	r := NewRegistry()
	_, ok := r.Get("nope")
	assert.False(t, ok)
}

func TestRegistry_Unregister(t *testing.T) {
	r := NewRegistry()
	r.Register(echoTool("a"))
	r.Unregister("a")

	_, ok := r.Get("a")
	assert.False(t, ok)
}

func TestRegistry_Execute_NameTooLong(t *testing.T) {
	r := NewRegistry()
	name := strings.Repeat("x", MaxToolNameLength+1)
	result, err := r.Execute(context.Background(), name, json.RawMessage("{}"))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestRegistry_Execute_ParamsTooLarge(t *testing.T) {
	r := NewRegistry()
	r.Register(echoTool("a"))
	oversized := json.RawMessage(strings.Repeat("a", MaxToolParamsSize+1))
	result, err := r.Execute(context.Background(), "a", oversized)
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestRegistry_PreloadEssentials(t *testing.T) {
	r := NewRegistry()
	r.Register(echoTool("status"))
	r.MarkEssential("status")
	require.NoError(t, r.PreloadEssentials())
}

func TestRegistry_PreloadEssentials_MissingFails(t *testing.T) {
	r := NewRegistry()
	r.MarkEssential("missing")
	assert.Error(t, r.PreloadEssentials())
}

func TestRegistry_ToolsForAgent_RespectsResolution(t *testing.T) {
	r := NewRegistry()
	r.RegisterSpec(Spec{Name: "read", Tags: []string{"fs"}, Factory: func() Tool { return echoTool("read") }})
	r.RegisterSpec(Spec{Name: "exec", Tags: []string{"fs", "dangerous"}, Factory: func() Tool { return echoTool("exec") }})
	r.RegisterSpec(Spec{Name: "status", Factory: func() Tool { return echoTool("status") }})

	mgr := toolsets.NewManager()
	mgr.Add(toolsets.Set{Name: "coding", Tags: []string{"fs"}})
	resolved, err := toolsets.Resolve(mgr, toolsets.Policy{Set: "coding", DenyTags: []string{"dangerous"}})
	require.NoError(t, err)

	tools := r.ToolsForAgent(resolved)
	names := make([]string, 0, len(tools))
	for _, tool := range tools {
		names = append(names, tool.Name())
	}
	assert.ElementsMatch(t, []string{"read"}, names)
}

func TestRegistry_AsLLMTools(t *testing.T) {
	r := NewRegistry()
	r.Register(echoTool("a"))
	r.Register(echoTool("b"))

	tools := r.AsLLMTools()
	assert.Len(t, tools, 2)
}

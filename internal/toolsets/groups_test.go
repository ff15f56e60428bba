package toolsets

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_FlattenedSimple(t *testing.T) {
	m := NewManager()
	m.Add(Set{Name: "base", Tools: []string{"status"}, Tags: []string{"safe"}})

	tools, tags, err := m.Flattened("base")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"status"}, tools)
	assert.ElementsMatch(t, []string{"safe"}, tags)
}

func TestManager_FlattenedExtends(t *testing.T) {
	m := NewManager()
	m.Add(Set{Name: "base", Tools: []string{"status"}})
	m.Add(Set{Name: "coding", Extends: []string{"base"}, Tools: []string{"read", "write"}, Tags: []string{"fs"}})

	tools, tags, err := m.Flattened("coding")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"status", "read", "write"}, tools)
	assert.ElementsMatch(t, []string{"fs"}, tags)
}

func TestManager_FlattenedDiamond(t *testing.T) {
	m := NewManager()
	m.Add(Set{Name: "base", Tools: []string{"status"}})
	m.Add(Set{Name: "fs", Extends: []string{"base"}, Tools: []string{"read"}})
	m.Add(Set{Name: "web", Extends: []string{"base"}, Tools: []string{"fetch"}})
	m.Add(Set{Name: "full", Extends: []string{"fs", "web"}})

	tools, _, err := m.Flattened("full")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"status", "read", "fetch"}, tools)
}

func TestManager_FlattenedCycle(t *testing.T) {
	m := NewManager()
	m.Add(Set{Name: "a", Extends: []string{"b"}})
	m.Add(Set{Name: "b", Extends: []string{"a"}})

	_, _, err := m.Flattened("a")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cycle")
}

func TestManager_FlattenedUndefined(t *testing.T) {
	m := NewManager()
	_, _, err := m.Flattened("missing")
	require.Error(t, err)
}

func TestManager_LoadYAML(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/tool_sets.yaml"
	content := "sets:\n  - name: base\n    tools: [status]\n  - name: coding\n    extends: [base]\n    tools: [read, write]\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	m := NewManager()
	require.NoError(t, m.LoadYAML(path))

	tools, _, err := m.Flattened("coding")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"status", "read", "write"}, tools)
}

package toolsets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve_AllowViaSet(t *testing.T) {
	m := NewManager()
	m.Add(Set{Name: "coding", Tools: []string{"read", "write"}, Tags: []string{"fs"}})

	r, err := Resolve(m, Policy{Set: "coding"})
	require.NoError(t, err)

	assert.True(t, r.Allows("read", nil))
	assert.True(t, r.Allows("exec", []string{"fs"}))
	assert.False(t, r.Allows("delete", nil))
}

func TestResolve_DenyByNameBeatsSetAllow(t *testing.T) {
	m := NewManager()
	m.Add(Set{Name: "coding", Tools: []string{"read", "write", "exec"}})

	r, err := Resolve(m, Policy{Set: "coding", DenyNames: []string{"exec"}})
	require.NoError(t, err)

	assert.True(t, r.Allows("read", nil))
	assert.False(t, r.Allows("exec", nil))
}

func TestResolve_DenyTagBeatsAllowByName(t *testing.T) {
	m := NewManager()
	r, err := Resolve(m, Policy{AllowNames: []string{"sandbox"}, DenyTags: []string{"dangerous"}})
	require.NoError(t, err)

	assert.False(t, r.Allows("sandbox", []string{"dangerous"}))
}

func TestResolve_ExplicitAllowNoSet(t *testing.T) {
	m := NewManager()
	r, err := Resolve(m, Policy{AllowNames: []string{"status"}})
	require.NoError(t, err)

	assert.True(t, r.Allows("status", nil))
	assert.False(t, r.Allows("read", nil))
}

func TestResolve_UndefinedSetErrors(t *testing.T) {
	m := NewManager()
	_, err := Resolve(m, Policy{Set: "missing"})
	require.Error(t, err)
}

func TestResolved_NilAllowsAll(t *testing.T) {
	var r *Resolved
	assert.True(t, r.Allows("anything", nil))
}

func TestResolveMulti_UnionsMultipleSetsWithAllowMinusDeny(t *testing.T) {
	m := NewManager()
	m.Add(Set{Name: "coding", Tools: []string{"read", "write"}})
	m.Add(Set{Name: "research", Tools: []string{"web_search"}, Tags: []string{"net"}})

	r, err := ResolveMulti(m, []string{"coding", "research"}, []string{"status"}, []string{"write"}, nil)
	require.NoError(t, err)

	assert.True(t, r.Allows("read", nil))
	assert.True(t, r.Allows("status", nil))
	assert.True(t, r.Allows("anything", []string{"net"}))
	assert.False(t, r.Allows("write", nil))
}

func TestResolveMulti_UndefinedSetErrors(t *testing.T) {
	m := NewManager()
	_, err := ResolveMulti(m, []string{"missing"}, nil, nil, nil)
	assert.Error(t, err)
}

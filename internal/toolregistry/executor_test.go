package toolregistry

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/haasonsaas/nexus/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubTool struct {
	name    string
	handler func(ctx context.Context, params json.RawMessage) (*ToolResult, error)
}

func (s *stubTool) Name() string               { return s.name }
func (s *stubTool) Description() string        { return "stub" }
func (s *stubTool) Schema() json.RawMessage     { return nil }
func (s *stubTool) Execute(ctx context.Context, params json.RawMessage) (*ToolResult, error) {
	return s.handler(ctx, params)
}

func newTestRegistry(tools ...*stubTool) *Registry {
	r := NewRegistry()
	for _, tool := range tools {
		r.Register(tool)
	}
	return r
}

func TestExecutor_Execute_Success(t *testing.T) {
	reg := newTestRegistry(&stubTool{name: "echo", handler: func(ctx context.Context, params json.RawMessage) (*ToolResult, error) {
		return &ToolResult{Content: "ok"}, nil
	}})
	exec := NewExecutor(reg, nil)

	result := exec.Execute(context.Background(), models.ToolCall{ID: "1", Name: "echo"})
	require.NoError(t, result.Err)
	assert.Equal(t, "ok", result.Result.Content)
	assert.Equal(t, 1, result.Attempts)
}

func TestExecutor_Execute_UnknownTool(t *testing.T) {
	exec := NewExecutor(NewRegistry(), nil)
	result := exec.Execute(context.Background(), models.ToolCall{ID: "1", Name: "missing"})
	require.Error(t, result.Err)
	te, ok := AsError(result.Err)
	require.True(t, ok)
	assert.Equal(t, ErrTypeUnknown, te.Type)
}

func TestExecutor_Execute_RetriesThenSucceeds(t *testing.T) {
	attempts := 0
	reg := newTestRegistry(&stubTool{name: "flaky", handler: func(ctx context.Context, params json.RawMessage) (*ToolResult, error) {
		attempts++
		if attempts < 3 {
			return nil, context_DeadlineLike()
		}
		return &ToolResult{Content: "done"}, nil
	}})
	cfg := DefaultExecutorConfig()
	cfg.RetryBackoff = time.Millisecond
	cfg.DefaultRetries = 3
	exec := NewExecutor(reg, cfg)

	result := exec.Execute(context.Background(), models.ToolCall{ID: "1", Name: "flaky"})
	require.NoError(t, result.Err)
	assert.Equal(t, "done", result.Result.Content)
	assert.Equal(t, 3, result.Attempts)
}

func context_DeadlineLike() error {
	return assertableErr{"transient failure"}
}

type assertableErr struct{ msg string }

func (e assertableErr) Error() string { return e.msg }

func TestRegistry_Execute_MalformedParamsNeverReachesTool(t *testing.T) {
	calls := 0
	reg := newTestRegistry(&stubTool{name: "picky", handler: func(ctx context.Context, params json.RawMessage) (*ToolResult, error) {
		calls++
		return nil, nil
	}})

	_, err := reg.Execute(context.Background(), "picky", json.RawMessage("not json"))
	require.Error(t, err)
	assert.Equal(t, 0, calls)
}

func TestExecutor_ExecuteAll_PreservesOrder(t *testing.T) {
	reg := newTestRegistry(
		&stubTool{name: "a", handler: func(ctx context.Context, params json.RawMessage) (*ToolResult, error) {
			time.Sleep(5 * time.Millisecond)
			return &ToolResult{Content: "a"}, nil
		}},
		&stubTool{name: "b", handler: func(ctx context.Context, params json.RawMessage) (*ToolResult, error) {
			return &ToolResult{Content: "b"}, nil
		}},
	)
	exec := NewExecutor(reg, nil)

	results := exec.ExecuteAll(context.Background(), []models.ToolCall{
		{ID: "1", Name: "a"},
		{ID: "2", Name: "b"},
	})
	require.Len(t, results, 2)
	assert.Equal(t, "a", results[0].Result.Content)
	assert.Equal(t, "b", results[1].Result.Content)
}

func TestExecutor_ExecuteSequentially_ContinuesPastFailure(t *testing.T) {
	reg := newTestRegistry(
		&stubTool{name: "fails", handler: func(ctx context.Context, params json.RawMessage) (*ToolResult, error) {
			return nil, assertableErr{"boom"}
		}},
		&stubTool{name: "ok", handler: func(ctx context.Context, params json.RawMessage) (*ToolResult, error) {
			return &ToolResult{Content: "fine"}, nil
		}},
	)
	cfg := DefaultExecutorConfig()
	cfg.DefaultRetries = 0
	exec := NewExecutor(reg, cfg)

	results := exec.ExecuteSequentially(context.Background(), []models.ToolCall{
		{ID: "1", Name: "fails"},
		{ID: "2", Name: "ok"},
	})
	require.Len(t, results, 2)
	assert.Error(t, results[0].Err)
	assert.NoError(t, results[1].Err)
	assert.Equal(t, "fine", results[1].Result.Content)
}

func TestExecutor_PanicRecovered(t *testing.T) {
	reg := newTestRegistry(&stubTool{name: "panics", handler: func(ctx context.Context, params json.RawMessage) (*ToolResult, error) {
		panic("kaboom")
	}})
	cfg := DefaultExecutorConfig()
	cfg.DefaultRetries = 0
	exec := NewExecutor(reg, cfg)

	result := exec.Execute(context.Background(), models.ToolCall{ID: "1", Name: "panics"})
	require.Error(t, result.Err)
	te, ok := AsError(result.Err)
	require.True(t, ok)
	assert.Equal(t, ErrTypePanic, te.Type)
}

func TestExecutor_Metrics(t *testing.T) {
	reg := newTestRegistry(&stubTool{name: "echo", handler: func(ctx context.Context, params json.RawMessage) (*ToolResult, error) {
		return &ToolResult{Content: "ok"}, nil
	}})
	exec := NewExecutor(reg, nil)
	exec.Execute(context.Background(), models.ToolCall{ID: "1", Name: "echo"})

	snap := exec.Metrics()
	assert.Equal(t, int64(1), snap.Executions)
	assert.Equal(t, int64(0), snap.Failures)
}

func TestResultsToMessages(t *testing.T) {
	results := []*ExecutionResult{
		{ToolCallID: "1", Result: &ToolResult{Content: "ok"}},
		{ToolCallID: "2", Err: assertableErr{"bad"}},
	}
	msgs := ResultsToMessages(results)
	require.Len(t, msgs, 2)
	assert.False(t, msgs[0].IsError)
	assert.True(t, msgs[1].IsError)
	assert.True(t, AnyErrors(results))
}

package toolregistry

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/haasonsaas/nexus/pkg/models"
)

// ExecutorConfig configures the tool executor: concurrency cap, default
// per-call timeout, and default retry/backoff.
type ExecutorConfig struct {
	MaxConcurrency  int
	DefaultTimeout  time.Duration
	DefaultRetries  int
	RetryBackoff    time.Duration
	MaxRetryBackoff time.Duration
}

// DefaultExecutorConfig returns the baseline executor configuration.
func DefaultExecutorConfig() *ExecutorConfig {
	return &ExecutorConfig{
		MaxConcurrency:  5,
		DefaultTimeout:  30 * time.Second,
		DefaultRetries:  2,
		RetryBackoff:    100 * time.Millisecond,
		MaxRetryBackoff: 5 * time.Second,
	}
}

// ToolConfig holds per-tool overrides for timeout/retries/backoff/priority
// (SPEC_FULL supplemented feature #5).
type ToolConfig struct {
	Timeout      time.Duration
	Retries      int
	RetryBackoff time.Duration
	Priority     int
}

// Executor runs registered tools with retry, timeout, and concurrency
// backpressure, tracking aggregate metrics.
type Executor struct {
	registry   *Registry
	config     *ExecutorConfig
	toolConfig map[string]*ToolConfig
	mu         sync.RWMutex
	sem        chan struct{}
	metrics    *metrics
}

type metrics struct {
	mu         sync.Mutex
	executions int64
	retries    int64
	failures   int64
	timeouts   int64
	panics     int64
}

// NewExecutor creates an executor backed by registry. A nil config uses
// DefaultExecutorConfig.
func NewExecutor(registry *Registry, config *ExecutorConfig) *Executor {
	if config == nil {
		config = DefaultExecutorConfig()
	}
	return &Executor{
		registry:   registry,
		config:     config,
		toolConfig: make(map[string]*ToolConfig),
		sem:        make(chan struct{}, config.MaxConcurrency),
		metrics:    &metrics{},
	}
}

// ConfigureTool sets per-tool overrides for name.
func (e *Executor) ConfigureTool(name string, cfg *ToolConfig) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.toolConfig[name] = cfg
}

func (e *Executor) getToolConfig(name string) *ToolConfig {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.toolConfig[name]
}

// ExecutionResult is one tool call's outcome.
type ExecutionResult struct {
	ToolCallID string
	ToolName   string
	Result     *ToolResult
	Err        error
	Duration   time.Duration
	Attempts   int
}

// ExecuteAll runs every call concurrently, semaphore-bounded, returning
// results in call-declaration order regardless of completion order.
func (e *Executor) ExecuteAll(ctx context.Context, calls []models.ToolCall) []*ExecutionResult {
	if len(calls) == 0 {
		return nil
	}
	results := make([]*ExecutionResult, len(calls))
	var wg sync.WaitGroup
	for i, call := range calls {
		wg.Add(1)
		go func(idx int, tc models.ToolCall) {
			defer wg.Done()
			results[idx] = e.Execute(ctx, tc)
		}(i, call)
	}
	wg.Wait()
	return results
}

// ExecuteSequentially runs each call one at a time, in order, stopping
// neither early on a per-call failure (spec §4.1: "tool execution errors
// ... do not abort the turn").
func (e *Executor) ExecuteSequentially(ctx context.Context, calls []models.ToolCall) []*ExecutionResult {
	results := make([]*ExecutionResult, len(calls))
	for i, call := range calls {
		results[i] = e.Execute(ctx, call)
	}
	return results
}

// Execute runs a single tool call with retry, timeout, and semaphore
// backpressure.
func (e *Executor) Execute(ctx context.Context, call models.ToolCall) *ExecutionResult {
	start := time.Now()
	result := &ExecutionResult{ToolCallID: call.ID, ToolName: call.Name}

	select {
	case e.sem <- struct{}{}:
		defer func() { <-e.sem }()
	case <-ctx.Done():
		result.Err = NewError(call.Name, ctx.Err()).WithType(ErrTypeTimeout).WithToolCallID(call.ID)
		result.Duration = time.Since(start)
		return result
	}

	tc := e.getToolConfig(call.Name)
	timeout := e.config.DefaultTimeout
	maxRetries := e.config.DefaultRetries
	backoff := e.config.RetryBackoff
	if tc != nil {
		if tc.Timeout > 0 {
			timeout = tc.Timeout
		}
		if tc.Retries >= 0 {
			maxRetries = tc.Retries
		}
		if tc.RetryBackoff > 0 {
			backoff = tc.RetryBackoff
		}
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		result.Attempts = attempt + 1

		toolResult, execErr := e.executeWithTimeout(ctx, call, timeout)
		if execErr == nil {
			result.Result = toolResult
			result.Duration = time.Since(start)
			e.recordSuccess(attempt)
			return result
		}

		lastErr = execErr
		if !Retryable(execErr) || ctx.Err() != nil || attempt >= maxRetries {
			break
		}

		sleep := backoff * time.Duration(1<<uint(attempt))
		if sleep > e.config.MaxRetryBackoff {
			sleep = e.config.MaxRetryBackoff
		}
		select {
		case <-time.After(sleep):
		case <-ctx.Done():
			lastErr = NewError(call.Name, ctx.Err()).WithType(ErrTypeTimeout).WithToolCallID(call.ID)
		}
	}

	result.Err = lastErr
	result.Duration = time.Since(start)
	e.recordFailure(lastErr)
	return result
}

func (e *Executor) recordSuccess(attempt int) {
	e.metrics.mu.Lock()
	defer e.metrics.mu.Unlock()
	e.metrics.executions++
	if attempt > 0 {
		e.metrics.retries += int64(attempt)
	}
}

func (e *Executor) recordFailure(err error) {
	e.metrics.mu.Lock()
	defer e.metrics.mu.Unlock()
	e.metrics.executions++
	e.metrics.failures++
	if te, ok := AsError(err); ok {
		switch te.Type {
		case ErrTypeTimeout:
			e.metrics.timeouts++
		case ErrTypePanic:
			e.metrics.panics++
		}
	}
}

// executeWithTimeout runs the tool under a bounded context, recovering any
// panic into a classified Error rather than crashing the engine.
func (e *Executor) executeWithTimeout(ctx context.Context, call models.ToolCall, timeout time.Duration) (*ToolResult, error) {
	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		result *ToolResult
		err    error
	}
	ch := make(chan outcome, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- outcome{err: NewError(call.Name, fmt.Errorf("panic: %v\n%s", r, debug.Stack())).
					WithType(ErrTypePanic).WithToolCallID(call.ID)}
			}
		}()
		result, err := e.registry.Execute(execCtx, call.Name, call.Input)
		if err != nil {
			ch <- outcome{err: classifyDispatchErr(call, err)}
			return
		}
		ch <- outcome{result: result}
	}()

	select {
	case o := <-ch:
		return o.result, o.err
	case <-execCtx.Done():
		if ctx.Err() != nil {
			return nil, NewError(call.Name, ctx.Err()).WithType(ErrTypeTimeout).WithToolCallID(call.ID).WithMessage("context cancelled")
		}
		return nil, NewError(call.Name, ErrToolTimeout).WithType(ErrTypeTimeout).WithToolCallID(call.ID).
			WithMessage(fmt.Sprintf("execution timed out after %s", timeout))
	}
}

func classifyDispatchErr(call models.ToolCall, err error) *Error {
	switch {
	case errors.Is(err, ErrUnknownTool):
		return NewError(call.Name, err).WithType(ErrTypeUnknown).WithToolCallID(call.ID)
	case errors.Is(err, ErrInvalidArgs):
		return NewError(call.Name, err).WithType(ErrTypeInvalid).WithToolCallID(call.ID)
	default:
		return NewError(call.Name, err).WithToolCallID(call.ID)
	}
}

// MetricsSnapshot is a point-in-time copy of aggregate executor counters.
type MetricsSnapshot struct {
	Executions int64
	Retries    int64
	Failures   int64
	Timeouts   int64
	Panics     int64
}

// Metrics returns a snapshot of the executor's counters.
func (e *Executor) Metrics() MetricsSnapshot {
	e.metrics.mu.Lock()
	defer e.metrics.mu.Unlock()
	return MetricsSnapshot{
		Executions: e.metrics.executions,
		Retries:    e.metrics.retries,
		Failures:   e.metrics.failures,
		Timeouts:   e.metrics.timeouts,
		Panics:     e.metrics.panics,
	}
}

// ResultsToMessages converts execution results into transcript tool
// messages, call-declaration order preserved.
func ResultsToMessages(results []*ExecutionResult) []models.ToolResult {
	out := make([]models.ToolResult, len(results))
	for i, r := range results {
		switch {
		case r.Err != nil:
			out[i] = models.ToolResult{ToolCallID: r.ToolCallID, Content: r.Err.Error(), IsError: true}
		case r.Result != nil:
			out[i] = models.ToolResult{ToolCallID: r.ToolCallID, Content: r.Result.Content, IsError: r.Result.IsError}
		}
	}
	return out
}

// AnyErrors reports whether any result carries an error.
func AnyErrors(results []*ExecutionResult) bool {
	for _, r := range results {
		if r.Err != nil {
			return true
		}
	}
	return false
}

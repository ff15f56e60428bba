package toolregistry

import (
	"context"
	"fmt"

	"github.com/haasonsaas/nexus/internal/capability"
	"github.com/haasonsaas/nexus/pkg/models"
)

// Strategy is the dispatch approach selected for one turn's tool calls,
// per the capability-record-driven table in §4.1.
type Strategy string

const (
	StrategyNoop       Strategy = "no-op"
	StrategySingle     Strategy = "single"
	StrategyConcurrent Strategy = "concurrent"
	StrategySequential Strategy = "sequential"
	StrategyViolation  Strategy = "capability_violation"
)

// SelectStrategy picks a dispatch strategy from the call count and the
// calling model's capability record:
//
//	0 calls                                -> no-op
//	1 call                                 -> single dispatch
//	>1, multi_tool && parallel_tools       -> concurrent
//	>1, multi_tool && !parallel_tools      -> sequential
//	>1, !multi_tool                        -> capability_violation
func SelectStrategy(numCalls int, rec capability.Record) Strategy {
	switch {
	case numCalls == 0:
		return StrategyNoop
	case numCalls == 1:
		return StrategySingle
	case !rec.MultiTool:
		return StrategyViolation
	case rec.ParallelTools:
		return StrategyConcurrent
	default:
		return StrategySequential
	}
}

// Dispatch executes calls against e under the strategy selected for rec,
// returning per-call results in call-declaration order. A capability
// violation produces no per-call results and dispatchErr is set to a
// *Error of type capability_violation; the caller folds this into the
// turn's captured tool-error text without aborting the commit (§4.1's
// "do not abort the turn" failure semantics).
func Dispatch(ctx context.Context, e *Executor, calls []models.ToolCall, rec capability.Record) (results []*ExecutionResult, strategy Strategy, dispatchErr error) {
	strategy = SelectStrategy(len(calls), rec)
	switch strategy {
	case StrategyNoop:
		return nil, strategy, nil
	case StrategySingle:
		return []*ExecutionResult{e.Execute(ctx, calls[0])}, strategy, nil
	case StrategyConcurrent:
		return e.ExecuteAll(ctx, calls), strategy, nil
	case StrategySequential:
		return e.ExecuteSequentially(ctx, calls), strategy, nil
	case StrategyViolation:
		msg := fmt.Sprintf("model issued %d tool calls but its capability record does not support multi_tool (max is 1)", len(calls))
		return nil, strategy, NewError("", fmt.Errorf("%s", msg)).WithType(ErrTypeViolation).WithMessage(msg)
	default:
		return nil, strategy, fmt.Errorf("toolregistry: unreachable strategy %q", strategy)
	}
}

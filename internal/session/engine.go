// Package session implements the session execution engine: the per-turn
// loop that takes a user message, streams a model completion, dispatches
// any tool calls the model issues, commits the resulting transcript
// atomically, and routes the model's output into analysis/commentary/final
// channels for replay and notification.
//
// Grounded on agents/orchestrator.py's process_turn and tools/tool_registry.py's
// dispatch precedence, adapted to Go's explicit-error, channel-streaming idiom.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/haasonsaas/nexus/internal/agents"
	"github.com/haasonsaas/nexus/internal/capability"
	"github.com/haasonsaas/nexus/internal/channels"
	"github.com/haasonsaas/nexus/internal/observability"
	"github.com/haasonsaas/nexus/internal/promptopt"
	"github.com/haasonsaas/nexus/internal/toolregistry"
	"github.com/haasonsaas/nexus/internal/toolsets"
	"github.com/haasonsaas/nexus/pkg/models"
)

// NotificationSink receives channel messages that clear a session's
// visibility preferences, for forwarding to an external transport (chat
// client, websocket, webhook). Implementations must return quickly —
// Process does not run notification delivery concurrently with the turn.
type NotificationSink interface {
	Notify(ctx context.Context, msg channels.Message)
}

// Engine ties together the agent registry, tool resolution and dispatch,
// model-capability lookup, prompt optimization, channel routing, and
// transcript storage into the single process() turn loop (spec §4.1).
type Engine struct {
	store     Store
	locks     *sessionLocks
	agents    *agents.Registry
	toolsets  *toolsets.Manager
	tools     *toolregistry.Registry
	executor  *toolregistry.Executor
	caps      *capability.Table
	router    *channels.Router
	storage   *channels.Storage
	providers map[string]LLMProvider
	hints     promptopt.Hints
	sink      NotificationSink
	metrics   *observability.Metrics
	config    *Config
}

// NewEngine builds an Engine from its dependencies. metrics and sink may be
// nil; a nil config uses DefaultConfig.
func NewEngine(
	store Store,
	agentRegistry *agents.Registry,
	toolsetManager *toolsets.Manager,
	toolRegistry *toolregistry.Registry,
	executor *toolregistry.Executor,
	capTable *capability.Table,
	router *channels.Router,
	storage *channels.Storage,
	providers map[string]LLMProvider,
	hints promptopt.Hints,
	sink NotificationSink,
	metrics *observability.Metrics,
	config *Config,
) *Engine {
	if capTable == nil {
		capTable = capability.DefaultTable()
	}
	return &Engine{
		store:     store,
		locks:     newSessionLocks(),
		agents:    agentRegistry,
		toolsets:  toolsetManager,
		tools:     toolRegistry,
		executor:  executor,
		caps:      capTable,
		router:    router,
		storage:   storage,
		providers: providers,
		hints:     hints,
		sink:      sink,
		metrics:   metrics,
		config:    sanitizeConfig(config),
	}
}

// Outcome is the result of one successful (or captured-failure) turn.
type Outcome struct {
	Messages        []models.Message   // newly committed transcript entries, in commit order
	ChannelMessages []channels.Message // routed analysis/commentary/final messages
	Strategy        toolregistry.Strategy
	FinishReason    string
	InputTokens     int
	OutputTokens    int
	Retries         int
}

// Process runs one user turn for sess: resolve tool visibility, optimize
// the prompt, stream a completion, retry on empty responses, dispatch any
// tool calls, commit the transcript atomically, and route the output to
// channel storage and the notification sink. Turns for one session are
// strictly serialized; a second call for the same session blocks until the
// first completes.
func (e *Engine) Process(ctx context.Context, sess *models.Session, userText string, overrides *Overrides) (*Outcome, error) {
	if overrides == nil {
		overrides = &Overrides{}
	}
	release := e.locks.Acquire(sess.ID)
	defer release()

	if e.config.PerTurnTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.config.PerTurnTimeout)
		defer cancel()
	}

	start := time.Now()
	channel := metricsChannel(sess)
	e.recordTurnStart(channel)

	outcome, err := e.process(ctx, sess, userText, overrides)

	outcomeLabel := "ok"
	if err != nil {
		if te, ok := GetTurnError(err); ok && te.Kind == KindEmptyResponse {
			outcomeLabel = "empty_response"
		} else {
			outcomeLabel = "error"
		}
	}
	e.recordTurnEnd(channel, outcomeLabel, time.Since(start))
	return outcome, err
}

func (e *Engine) process(ctx context.Context, sess *models.Session, userText string, overrides *Overrides) (*Outcome, error) {
	logger := e.config.Logger

	// --- step 1: prepare working history ---
	history := e.store.History(sess.ID)
	userMsg := models.Message{
		ID:        uuid.New().String(),
		SessionID: sess.ID,
		Role:      models.RoleUser,
		Content:   userText,
		CreatedAt: time.Now(),
	}

	def, ok := e.agents.Get(sess.AgentID)
	if !ok {
		return nil, e.noCommitError(KindConfigMissing, "", fmt.Errorf("session: unknown agent %q", sess.AgentID))
	}

	// --- step 2: resolve tool visibility: (tool_sets ∪ allow_tools) − deny_tools ---
	resolved, err := toolsets.ResolveMulti(e.toolsets, def.ToolSets, def.AllowTools, def.DenyTools, nil)
	if err != nil {
		return nil, e.noCommitError(KindConfigMissing, "", err)
	}
	visibleTools := e.tools.ToolsForAgent(resolved)
	if len(overrides.Tools) > 0 {
		visibleTools = intersectByName(visibleTools, overrides.Tools)
	}

	// --- resolve model/provider and capability record ---
	modelSpec := firstNonEmpty(overrides.Model, def.Model, sess.Model)
	providerName, rawModel, err := e.resolveModelSpec(modelSpec)
	if err != nil {
		return nil, e.noCommitError(KindConfigMissing, "", err)
	}
	provider, ok := e.providers[providerName]
	if !ok {
		return nil, e.noCommitError(KindConfigMissing, "", fmt.Errorf("session: no provider registered for %q", providerName))
	}
	rec := e.caps.Lookup(providerName + "/" + rawModel)

	// --- step 3: prompt-optimize the user text (skipped internally for
	// continuation/short messages) ---
	optimized := promptopt.Optimize(userText, providerName+"/"+rawModel, sess.AgentID, rec, e.hints)

	system := overrides.System
	if system == "" {
		system = def.PromptTemplate
	}

	completionMessages := toCompletionMessages(history)
	completionMessages = append(completionMessages, CompletionMessage{Role: string(models.RoleUser), Content: optimized})

	req := &CompletionRequest{
		Model:     rawModel,
		System:    system,
		Messages:  completionMessages,
		Tools:     adaptTools(visibleTools),
		MaxTokens: e.config.MaxTokens,
	}

	// --- steps 4-6: stream, accumulate, retry empty responses ---
	var (
		text, reasoning string
		toolCalls       []models.ToolCall
		finishReason    string
		inputTokens     int
		outputTokens    int
		attempts        int
	)
	maxAttempts := e.config.EmptyResponseRetries + 1
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		attempts = attempt
		text, reasoning, toolCalls, finishReason, inputTokens, outputTokens, err = e.stream(ctx, provider, req)
		if err != nil {
			return nil, e.noCommitError(classifyProviderError(err), "", err)
		}
		if !isEmpty(text, reasoning, toolCalls) {
			break
		}
		if attempt == maxAttempts {
			e.recordRetryExhausted("empty_response")
			return nil, e.noCommitError(KindEmptyResponse, "", fmt.Errorf("empty response after %d attempts", attempt)).WithAttempts(attempt)
		}
		logger.Warn("empty model response, retrying", "session_id", sess.ID, "attempt", attempt)
		e.recordRetry("model_stream", "empty_response")
		select {
		case <-time.After(e.config.EmptyResponseBackoff * time.Duration(attempt)):
		case <-ctx.Done():
			return nil, e.noCommitError(KindConnection, "", ctx.Err())
		}
	}

	// --- step 7: dispatch tool calls per the capability-derived strategy,
	// folding results into a human-readable content-buffer append ---
	contentAppend, toolResults, strategy := e.dispatchTools(ctx, toolCalls, rec)

	// --- step 8: commit atomically ---
	assistantMsg := models.Message{
		ID:        uuid.New().String(),
		SessionID: sess.ID,
		Role:      models.RoleAssistant,
		Content:   text + contentAppend,
		ToolCalls: toolCalls,
		CreatedAt: time.Now(),
	}
	if reasoning != "" {
		assistantMsg.Metadata = map[string]any{"reasoning": reasoning}
	}

	committed := []models.Message{userMsg, assistantMsg}
	if strategy == toolregistry.StrategyViolation {
		logger.Warn("tool dispatch capability violation folded into assistant content", "session_id", sess.ID)
	} else {
		for _, tr := range toolResults {
			committed = append(committed, models.Message{
				ID:          uuid.New().String(),
				SessionID:   sess.ID,
				Role:        models.RoleTool,
				Content:     tr.Content,
				ToolResults: []models.ToolResult{tr},
				CreatedAt:   time.Now(),
			})
		}
	}
	e.store.Append(sess.ID, committed...)

	// --- step 9: route channels, store, and notify subject to visibility ---
	channelMsgs := e.router.Route(sess.ID, assistantMsg.Content, false)
	for _, cm := range channelMsgs {
		e.storage.Store(cm)
		if e.sink != nil && e.storage.Visible(sess.ID, cm.Channel) {
			e.sink.Notify(ctx, cm)
		}
	}

	return &Outcome{
		Messages:        committed,
		ChannelMessages: channelMsgs,
		Strategy:        strategy,
		FinishReason:    finishReason,
		InputTokens:     inputTokens,
		OutputTokens:    outputTokens,
		Retries:         attempts - 1,
	}, nil
}

// stream runs one model completion to exhaustion, accumulating text,
// reasoning, and tool calls from the chunk stream.
func (e *Engine) stream(ctx context.Context, provider LLMProvider, req *CompletionRequest) (text, reasoning string, toolCalls []models.ToolCall, finishReason string, inputTokens, outputTokens int, err error) {
	modelStart := time.Now()
	chunks, err := provider.Complete(ctx, req)
	if err != nil {
		e.recordModelRequest(provider.Name(), req.Model, "error", time.Since(modelStart))
		return "", "", nil, "", 0, 0, err
	}

	var textBuilder, reasoningBuilder strings.Builder
	for chunk := range chunks {
		if chunk.Error != nil {
			e.recordModelRequest(provider.Name(), req.Model, "error", time.Since(modelStart))
			return "", "", nil, "", 0, 0, chunk.Error
		}
		textBuilder.WriteString(chunk.Text)
		reasoningBuilder.WriteString(chunk.Reasoning)
		if chunk.ToolCall != nil {
			toolCalls = append(toolCalls, *chunk.ToolCall)
		}
		if chunk.FinishReason != "" {
			finishReason = chunk.FinishReason
		}
		inputTokens += chunk.InputTokens
		outputTokens += chunk.OutputTokens
		if chunk.Done {
			break
		}
	}
	e.recordModelRequest(provider.Name(), req.Model, "ok", time.Since(modelStart))
	return textBuilder.String(), reasoningBuilder.String(), toolCalls, finishReason, inputTokens, outputTokens, nil
}

// dispatchTools runs the capability-derived dispatch strategy, returning a
// human-readable content-buffer append (§4.1 step 7: "🔧 **tool** executed:
// ..." / "🔧 Tool Error: ...") alongside the transcript-ready tool results.
// A capability violation embeds its error into the content append alone and
// returns no tool results at all — the caller appends no `tool` messages in
// that case (scenario 3: "no tool messages appended").
func (e *Engine) dispatchTools(ctx context.Context, calls []models.ToolCall, rec capability.Record) (contentAppend string, toolResults []models.ToolResult, strategy toolregistry.Strategy) {
	results, strategy, dispatchErr := toolregistry.Dispatch(ctx, e.executor, calls, rec)
	if dispatchErr != nil {
		return formatToolError(dispatchErr), nil, strategy
	}

	var buf strings.Builder
	for _, r := range results {
		e.recordToolDispatch(r, strategy)
		if r.Err != nil {
			buf.WriteString(formatToolError(r.Err))
			continue
		}
		buf.WriteString(fmt.Sprintf("\n\n🔧 **%s** executed:\n%s", r.ToolName, r.Result.Content))
	}
	return buf.String(), toolregistry.ResultsToMessages(results), strategy
}

// formatToolError renders a dispatch/execution failure the way
// ai_loop/stateless_ai_loop.py's _execute_tool_calls formats one.
func formatToolError(err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("\n\n🔧 Tool Error: %s", err.Error())
}

func (e *Engine) noCommitError(kind Kind, toolName string, cause error) *TurnError {
	return NewTurnError(kind, toolName, cause)
}

// resolveModelSpec splits a "provider/model" spec into its parts. A spec
// with no "/" is resolved by scanning registered providers for one whose
// Models() advertises that exact id; an ambiguous or unmatched bare id is a
// config error, since dispatch has no other way to pick a provider.
func (e *Engine) resolveModelSpec(spec string) (provider, model string, err error) {
	if idx := strings.Index(spec, "/"); idx > 0 {
		return spec[:idx], spec[idx+1:], nil
	}
	if spec == "" {
		return "", "", fmt.Errorf("session: no model configured")
	}
	var matches []string
	for name, p := range e.providers {
		for _, m := range p.Models() {
			if m.ID == spec {
				matches = append(matches, name)
				break
			}
		}
	}
	switch len(matches) {
	case 1:
		return matches[0], spec, nil
	case 0:
		return "", "", fmt.Errorf("session: model %q matches no registered provider; use \"provider/model\"", spec)
	default:
		return "", "", fmt.Errorf("session: model %q is ambiguous across providers %v; use \"provider/model\"", spec, matches)
	}
}

func (e *Engine) recordTurnStart(channel string) {
	if e.metrics != nil {
		e.metrics.TurnStarted(channel)
	}
}

func (e *Engine) recordTurnEnd(channel, outcome string, d time.Duration) {
	if e.metrics != nil {
		e.metrics.TurnCompleted(channel, outcome, d.Seconds())
	}
}

func (e *Engine) recordRetry(component, reason string) {
	if e.metrics != nil {
		e.metrics.RecordRetry(component, reason)
	}
}

func (e *Engine) recordRetryExhausted(reason string) {
	e.recordRetry("session_engine", reason)
}

func (e *Engine) recordModelRequest(provider, model, status string, d time.Duration) {
	if e.metrics != nil {
		e.metrics.RecordModelRequest(provider, model, status, d.Seconds())
	}
}

func (e *Engine) recordToolDispatch(r *toolregistry.ExecutionResult, strategy toolregistry.Strategy) {
	if e.metrics == nil {
		return
	}
	status := "success"
	if r.Err != nil {
		status = "error"
	}
	e.metrics.RecordToolDispatch(r.ToolName, string(strategy), status, r.Duration.Seconds())
}

func metricsChannel(sess *models.Session) string {
	if sess.Metadata != nil {
		if ch, ok := sess.Metadata["channel"].(string); ok && ch != "" {
			return ch
		}
	}
	return "default"
}

// isEmpty reports whether a completion produced nothing worth committing.
// A reasoning-only response is not empty (spec §4.1 step 6).
func isEmpty(text, reasoning string, toolCalls []models.ToolCall) bool {
	return strings.TrimSpace(text) == "" && strings.TrimSpace(reasoning) == "" && len(toolCalls) == 0
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func intersectByName(tools []toolregistry.Tool, allow []string) []toolregistry.Tool {
	allowed := make(map[string]bool, len(allow))
	for _, name := range allow {
		allowed[name] = true
	}
	out := make([]toolregistry.Tool, 0, len(tools))
	for _, t := range tools {
		if allowed[t.Name()] {
			out = append(out, t)
		}
	}
	return out
}

func toCompletionMessages(history []models.Message) []CompletionMessage {
	out := make([]CompletionMessage, 0, len(history))
	for _, m := range history {
		out = append(out, CompletionMessage{
			Role:        string(m.Role),
			Content:     m.Content,
			ToolCalls:   m.ToolCalls,
			ToolResults: m.ToolResults,
		})
	}
	return out
}

// adaptTools wraps toolregistry tools as session.Tool so they can be
// attached to a CompletionRequest; the model-service provider only needs
// Name/Description/Schema to build the wire tool definition and never
// calls Execute directly — dispatch always goes through the executor.
func adaptTools(tools []toolregistry.Tool) []Tool {
	out := make([]Tool, len(tools))
	for i, t := range tools {
		out[i] = toolAdapter{t: t}
	}
	return out
}

type toolAdapter struct {
	t toolregistry.Tool
}

func (a toolAdapter) Name() string            { return a.t.Name() }
func (a toolAdapter) Description() string     { return a.t.Description() }
func (a toolAdapter) Schema() json.RawMessage { return a.t.Schema() }
func (a toolAdapter) Execute(ctx context.Context, params json.RawMessage) (*ToolResult, error) {
	r, err := a.t.Execute(ctx, params)
	if err != nil {
		return nil, err
	}
	return &ToolResult{Content: r.Content, IsError: r.IsError}, nil
}

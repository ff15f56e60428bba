package session

import (
	"context"
	"encoding/json"

	"github.com/haasonsaas/nexus/pkg/models"
)

// LLMProvider is the model-service client contract (spec §4.6). Concrete
// implementations speak to a specific vendor API while presenting this
// unified streaming interface to the engine.
//
// Implementations must be safe for concurrent use — multiple goroutines
// may call Complete for different sessions at once.
//
// See internal/modelclient for the Anthropic and OpenAI implementations.
type LLMProvider interface {
	// Complete sends a request and returns a channel of streaming chunks.
	// The channel closes after a chunk with Done=true or an Error chunk.
	Complete(ctx context.Context, req *CompletionRequest) (<-chan *CompletionChunk, error)

	// Name returns the provider name, used for capability-table lookup.
	Name() string

	// Models returns the models this provider exposes.
	Models() []Model

	// SupportsTools reports whether this provider can dispatch tool calls
	// at all (independent of the per-model multi_tool/parallel_tools
	// capability distinction).
	SupportsTools() bool
}

// CompletionRequest carries everything needed for one model call: history,
// system prompt, available tools, and generation parameters.
type CompletionRequest struct {
	Model                string               `json:"model"`
	System               string               `json:"system,omitempty"`
	Messages             []CompletionMessage  `json:"messages"`
	Tools                []Tool               `json:"tools,omitempty"`
	MaxTokens            int                  `json:"max_tokens,omitempty"`
	Temperature          float64              `json:"temperature,omitempty"`
	ResponseFormat       string               `json:"response_format,omitempty"`
	EnableThinking       bool                 `json:"enable_thinking,omitempty"`
	ThinkingBudgetTokens int                  `json:"thinking_budget_tokens,omitempty"`
}

// CompletionMessage is a single message in the request's conversation
// history, in the provider's neutral shape.
type CompletionMessage struct {
	Role        string              `json:"role"`
	Content     string              `json:"content,omitempty"`
	ToolCalls   []models.ToolCall   `json:"tool_calls,omitempty"`
	ToolResults []models.ToolResult `json:"tool_results,omitempty"`
}

// CompletionChunk is a single chunk of a streaming model response:
// delta_content / delta_reasoning / delta_tool_call_part / finish_reason,
// terminated by a Done sentinel (spec §4.6).
type CompletionChunk struct {
	Text          string          `json:"text,omitempty"`
	Reasoning     string          `json:"reasoning,omitempty"`
	ToolCall      *models.ToolCall `json:"tool_call,omitempty"`
	FinishReason  string          `json:"finish_reason,omitempty"`
	Done          bool            `json:"done,omitempty"`
	Error         error           `json:"-"`
	InputTokens   int             `json:"input_tokens,omitempty"`
	OutputTokens  int             `json:"output_tokens,omitempty"`
}

// Model describes an available model and the fields needed to key into
// the capability table.
type Model struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	ContextSize    int    `json:"context_size"`
	SupportsVision bool   `json:"supports_vision"`
}

// Tool is the interface a registered tool implements; see
// internal/toolregistry for registration and dispatch.
type Tool interface {
	Name() string
	Description() string
	Schema() json.RawMessage
	Execute(ctx context.Context, params json.RawMessage) (*ToolResult, error)
}

// ToolResult is a tool implementation's raw output, before it is folded
// into a models.ToolResult transcript entry.
type ToolResult struct {
	Content string `json:"content"`
	IsError bool   `json:"is_error,omitempty"`
}

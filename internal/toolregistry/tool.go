package toolregistry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Tool is the interface a registered tool implements.
type Tool interface {
	Name() string
	Description() string
	Schema() json.RawMessage
	Execute(ctx context.Context, params json.RawMessage) (*ToolResult, error)
}

// ToolResult is a tool's raw output, before it is folded into a
// models.ToolResult transcript entry.
type ToolResult struct {
	Content string
	IsError bool
}

// Sentinel errors.
var (
	ErrUnknownTool  = errors.New("toolregistry: tool not registered")
	ErrInvalidArgs  = errors.New("toolregistry: arguments failed schema validation")
	ErrToolTimeout  = errors.New("toolregistry: tool execution timed out")
	ErrToolPanicked = errors.New("toolregistry: tool panicked")
)

// ErrType classifies a dispatch-time failure for retry/backoff decisions
// and for session's Kind classification upstream.
type ErrType string

const (
	ErrTypeTimeout    ErrType = "timeout"
	ErrTypePanic      ErrType = "panic"
	ErrTypeExec       ErrType = "exec"
	ErrTypeInvalid    ErrType = "invalid_args"
	ErrTypeUnknown    ErrType = "unknown_tool"
	ErrTypeViolation  ErrType = "capability_violation"
)

// Error is a structured dispatch error carrying enough context for the
// session engine to classify it into a session.Kind without string
// sniffing.
type Error struct {
	Type       ErrType
	ToolName   string
	ToolCallID string
	Message    string
	Cause      error
}

func NewError(toolName string, cause error) *Error {
	e := &Error{Type: ErrTypeExec, ToolName: toolName, Cause: cause}
	if cause != nil {
		e.Message = cause.Error()
	}
	return e
}

func (e *Error) WithType(t ErrType) *Error {
	e.Type = t
	return e
}

func (e *Error) WithToolCallID(id string) *Error {
	e.ToolCallID = id
	return e
}

func (e *Error) WithMessage(msg string) *Error {
	e.Message = msg
	return e
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("tool %q: %s", e.ToolName, e.Message)
	}
	if e.Cause != nil {
		return fmt.Sprintf("tool %q: %v", e.ToolName, e.Cause)
	}
	return fmt.Sprintf("tool %q failed", e.ToolName)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// AsError extracts an *Error from err's chain.
func AsError(err error) (*Error, bool) {
	var te *Error
	if errors.As(err, &te) {
		return te, true
	}
	return nil, false
}

// Retryable reports whether a dispatch error may succeed on retry.
// Invalid args, unknown tool, and capability violations never are —
// retrying would reproduce the same failure.
func Retryable(err error) bool {
	te, ok := AsError(err)
	if !ok {
		return true
	}
	switch te.Type {
	case ErrTypeInvalid, ErrTypeUnknown, ErrTypeViolation:
		return false
	default:
		return true
	}
}

// ValidateArgs validates raw JSON params against a tool's declared schema.
// A tool whose Schema() is empty accepts any well-formed JSON.
func ValidateArgs(tool Tool, params json.RawMessage) error {
	if len(params) == 0 {
		params = json.RawMessage("{}")
	}
	if !json.Valid(params) {
		return fmt.Errorf("params is not valid JSON")
	}
	schema := tool.Schema()
	if len(schema) == 0 {
		return nil
	}
	return validateJSONSchema(schema, params)
}

package session

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors surfaced at construction or during a turn.
var (
	// ErrConfigMissing indicates required model/API settings are absent.
	ErrConfigMissing = errors.New("required model configuration missing")

	// ErrContextCancelled indicates the context was cancelled mid-turn.
	ErrContextCancelled = errors.New("context cancelled")

	// ErrNoProvider indicates no model-service client is configured.
	ErrNoProvider = errors.New("no model provider configured")

	// ErrToolUnknown indicates the model requested an unregistered tool.
	ErrToolUnknown = errors.New("tool not registered")

	// ErrToolTimeout indicates a tool execution timed out.
	ErrToolTimeout = errors.New("tool execution timed out")

	// ErrToolPanic indicates a tool panicked during execution.
	ErrToolPanic = errors.New("tool panicked")

	// ErrShutdown indicates a cooperative shutdown signal was observed mid-stream.
	ErrShutdown = errors.New("shutdown signal received")
)

// Kind is the error taxonomy kind from the turn's error classification.
// Each kind carries a fixed Disposition describing whether the transcript
// commits when that kind occurs.
type Kind string

const (
	KindConfigMissing       Kind = "config_missing"
	KindAuth                Kind = "auth"
	KindRateLimit           Kind = "rate_limit"
	KindConnection          Kind = "connection"
	KindAPI                 Kind = "api"
	KindEmptyResponse       Kind = "empty_response"
	KindToolUnknown         Kind = "tool_unknown"
	KindToolArgsInvalid     Kind = "tool_args_invalid"
	KindToolExec            Kind = "tool_exec"
	KindCapabilityViolation Kind = "capability_violation"
	KindShutdown            Kind = "shutdown"
)

// Disposition describes what happens to the transcript when a Kind occurs.
type Disposition string

const (
	// DispositionNoCommit means the turn surfaces the error and the
	// transcript is left exactly as it was before the turn started.
	DispositionNoCommit Disposition = "no_commit"

	// DispositionCaptured means the failure is recovered locally, folded
	// into the assistant's tool-result content, and the turn still commits.
	DispositionCaptured Disposition = "captured"
)

// Disposition reports the fixed commit behavior for this error kind.
func (k Kind) Disposition() Disposition {
	switch k {
	case KindToolUnknown, KindToolArgsInvalid, KindToolExec, KindCapabilityViolation:
		return DispositionCaptured
	default:
		return DispositionNoCommit
	}
}

// Retryable reports whether a turn-level retry of this kind may succeed.
// Only empty_response carries automatic retry (§4.2); the rest are
// surfaced to the caller, who decides whether to resubmit.
func (k Kind) Retryable() bool {
	return k == KindEmptyResponse
}

// TurnError is a structured, classified error produced during process().
type TurnError struct {
	Kind       Kind
	ToolName   string
	ToolCallID string
	Message    string
	Cause      error
	Attempts   int
}

func (e *TurnError) Error() string {
	var parts []string
	parts = append(parts, fmt.Sprintf("[%s]", e.Kind))
	if e.ToolName != "" {
		parts = append(parts, e.ToolName)
	}
	if e.Message != "" {
		parts = append(parts, e.Message)
	} else if e.Cause != nil {
		parts = append(parts, e.Cause.Error())
	}
	if e.Attempts > 1 {
		parts = append(parts, fmt.Sprintf("(attempts=%d)", e.Attempts))
	}
	return strings.Join(parts, " ")
}

func (e *TurnError) Unwrap() error {
	return e.Cause
}

// NewTurnError creates a new TurnError of the given kind; the kind is used
// as passed, and cause's text becomes the Message.
func NewTurnError(kind Kind, toolName string, cause error) *TurnError {
	err := &TurnError{Kind: kind, ToolName: toolName, Cause: cause, Attempts: 1}
	if cause != nil {
		err.Message = cause.Error()
	}
	return err
}

// WithToolCallID sets the tool call ID for correlating the error with a
// specific dispatched call.
func (e *TurnError) WithToolCallID(id string) *TurnError {
	e.ToolCallID = id
	return e
}

// WithMessage sets a custom human-readable message.
func (e *TurnError) WithMessage(msg string) *TurnError {
	e.Message = msg
	return e
}

// WithAttempts records the number of attempts made before this error was
// returned.
func (e *TurnError) WithAttempts(n int) *TurnError {
	e.Attempts = n
	return e
}

// classifyToolError infers a Kind for an error raised out of tool dispatch,
// used when the dispatcher itself didn't already attach one (e.g. a plain
// error bubbling out of a tool implementation).
func classifyToolError(err error) Kind {
	if err == nil {
		return KindToolExec
	}
	if errors.Is(err, ErrToolUnknown) {
		return KindToolUnknown
	}
	if errors.Is(err, ErrToolTimeout) {
		return KindToolExec
	}

	errStr := strings.ToLower(err.Error())
	switch {
	case strings.Contains(errStr, "invalid") || strings.Contains(errStr, "schema") ||
		strings.Contains(errStr, "validation") || strings.Contains(errStr, "required"):
		return KindToolArgsInvalid
	default:
		return KindToolExec
	}
}

// classifiableProviderError is implemented by model-service client errors
// that already know their own kind (auth/rate_limit/connection/api/config),
// letting the engine map them directly instead of re-classifying by
// message content. See modelclient.ProviderError.
type classifiableProviderError interface {
	error
	ProviderKind() string
}

// classifyProviderError maps a model-service client error into the turn's
// Kind taxonomy. Errors that self-classify via ProviderKind() are mapped
// directly; anything else falls back to KindAPI, since at this layer the
// only signal is "the provider call failed".
func classifyProviderError(err error) Kind {
	var pe classifiableProviderError
	if errors.As(err, &pe) {
		switch pe.ProviderKind() {
		case "auth":
			return KindAuth
		case "rate_limit":
			return KindRateLimit
		case "connection":
			return KindConnection
		case "config":
			return KindConfigMissing
		default:
			return KindAPI
		}
	}
	return KindAPI
}

// IsTurnError checks if an error is or wraps a TurnError.
func IsTurnError(err error) bool {
	var te *TurnError
	return errors.As(err, &te)
}

// GetTurnError extracts a TurnError from an error chain using errors.As.
func GetTurnError(err error) (*TurnError, bool) {
	var te *TurnError
	if errors.As(err, &te) {
		return te, true
	}
	return nil, false
}

// Phase represents a distinct state in the session engine's process()
// state machine (spec's IDLE/STREAMING/TOOLING/COMMITTING/ERROR).
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseStreaming  Phase = "streaming"
	PhaseTooling    Phase = "tooling"
	PhaseCommitting Phase = "committing"
	PhaseError      Phase = "error"
)

// PhaseError wraps an error with the phase it occurred in, for diagnostics.
type PhaseError struct {
	Phase   Phase
	Turn    int
	Message string
	Cause   error
}

func (e *PhaseError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("session error at %s (turn %d): %s", e.Phase, e.Turn, e.Message)
	}
	if e.Cause != nil {
		return fmt.Sprintf("session error at %s (turn %d): %v", e.Phase, e.Turn, e.Cause)
	}
	return fmt.Sprintf("session error at %s (turn %d)", e.Phase, e.Turn)
}

func (e *PhaseError) Unwrap() error {
	return e.Cause
}

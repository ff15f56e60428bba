package modelclient

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind categorizes a model-service error for retry/commit-disposition
// decisions (spec §4.6, §7).
type Kind string

const (
	KindAuth       Kind = "auth"        // credentials rejected
	KindRateLimit  Kind = "rate_limit"  // provider-signalled throttling
	KindConnection Kind = "connection"  // transport-level failure or timeout
	KindAPI        Kind = "api"         // malformed response, unexpected status, provider error body
	KindConfig     Kind = "config"      // missing required model id or key at construction
)

// Retryable reports whether an error of this kind is worth retrying with
// backoff. Only rate_limit and connection are transient by nature; auth,
// api, and config errors need operator intervention.
func (k Kind) Retryable() bool {
	switch k {
	case KindRateLimit, KindConnection:
		return true
	default:
		return false
	}
}

// ProviderError is a structured error from a model-service client,
// carrying enough context for retry logic and debugging.
type ProviderError struct {
	Kind      Kind
	Provider  string
	Model     string
	Status    int
	Code      string
	Message   string
	RequestID string
	Cause     error
}

func (e *ProviderError) Error() string {
	var parts []string
	parts = append(parts, fmt.Sprintf("[%s]", e.Kind))
	if e.Provider != "" {
		parts = append(parts, e.Provider)
	}
	if e.Model != "" {
		parts = append(parts, fmt.Sprintf("model=%s", e.Model))
	}
	if e.Status != 0 {
		parts = append(parts, fmt.Sprintf("status=%d", e.Status))
	}
	if e.Code != "" {
		parts = append(parts, fmt.Sprintf("code=%s", e.Code))
	}
	if e.Message != "" {
		parts = append(parts, e.Message)
	} else if e.Cause != nil {
		parts = append(parts, e.Cause.Error())
	}
	return strings.Join(parts, " ")
}

func (e *ProviderError) Unwrap() error { return e.Cause }

// ProviderKind exposes the error's Kind as a string so callers outside this
// package (the session engine) can classify it into their own taxonomy
// without importing modelclient's Kind type.
func (e *ProviderError) ProviderKind() string { return string(e.Kind) }

// NewProviderError builds a ProviderError from a cause, classifying it by
// message content.
func NewProviderError(provider, model string, cause error) *ProviderError {
	err := &ProviderError{Provider: provider, Model: model, Cause: cause, Kind: KindAPI}
	if cause != nil {
		err.Message = cause.Error()
		err.Kind = ClassifyError(cause)
	}
	return err
}

// WithStatus sets the HTTP status and reclassifies the error's kind from it.
func (e *ProviderError) WithStatus(status int) *ProviderError {
	e.Status = status
	e.Kind = classifyStatusCode(status)
	return e
}

// WithCode sets the provider-specific error code, reclassifying when the
// code maps to a known kind.
func (e *ProviderError) WithCode(code string) *ProviderError {
	e.Code = code
	if kind, ok := classifyErrorCode(code); ok {
		e.Kind = kind
	}
	return e
}

// WithRequestID attaches the provider's request id for debugging.
func (e *ProviderError) WithRequestID(id string) *ProviderError {
	e.RequestID = id
	return e
}

// WithMessage overrides the human-readable message.
func (e *ProviderError) WithMessage(msg string) *ProviderError {
	e.Message = msg
	return e
}

// ClassifyError inspects an error's message for status-code and keyword
// patterns and returns the matching Kind.
func ClassifyError(err error) Kind {
	if err == nil {
		return KindAPI
	}
	errStr := strings.ToLower(err.Error())

	switch {
	case strings.Contains(errStr, "timeout"),
		strings.Contains(errStr, "timed out"),
		strings.Contains(errStr, "deadline exceeded"),
		strings.Contains(errStr, "connection reset"),
		strings.Contains(errStr, "connection refused"),
		strings.Contains(errStr, "no such host"):
		return KindConnection

	case strings.Contains(errStr, "rate limit"),
		strings.Contains(errStr, "rate_limit"),
		strings.Contains(errStr, "too many requests"),
		strings.Contains(errStr, "429"):
		return KindRateLimit

	case strings.Contains(errStr, "unauthorized"),
		strings.Contains(errStr, "invalid api key"),
		strings.Contains(errStr, "invalid_api_key"),
		strings.Contains(errStr, "authentication"),
		strings.Contains(errStr, "401"),
		strings.Contains(errStr, "403"):
		return KindAuth

	case strings.Contains(errStr, "api key is required"),
		strings.Contains(errStr, "model id is required"),
		strings.Contains(errStr, "missing configuration"):
		return KindConfig

	default:
		return KindAPI
	}
}

func classifyStatusCode(status int) Kind {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return KindAuth
	case status == http.StatusTooManyRequests:
		return KindRateLimit
	case status >= 500:
		return KindConnection
	default:
		return KindAPI
	}
}

func classifyErrorCode(code string) (Kind, bool) {
	switch strings.ToLower(code) {
	case "rate_limit_error", "rate_limit_exceeded":
		return KindRateLimit, true
	case "authentication_error", "invalid_api_key":
		return KindAuth, true
	case "server_error", "internal_error":
		return KindConnection, true
	default:
		return KindAPI, false
	}
}

// IsProviderError reports whether err is (or wraps) a *ProviderError.
func IsProviderError(err error) bool {
	var providerErr *ProviderError
	return errors.As(err, &providerErr)
}

// GetProviderError extracts a *ProviderError from err's chain.
func GetProviderError(err error) (*ProviderError, bool) {
	var providerErr *ProviderError
	if errors.As(err, &providerErr) {
		return providerErr, true
	}
	return nil, false
}

// IsRetryable reports whether err should be retried with backoff.
func IsRetryable(err error) bool {
	if providerErr, ok := GetProviderError(err); ok {
		return providerErr.Kind.Retryable()
	}
	return ClassifyError(err).Retryable()
}

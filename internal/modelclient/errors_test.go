package modelclient

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyError_MapsKeywordsToKinds(t *testing.T) {
	cases := []struct {
		msg  string
		want Kind
	}{
		{"request timed out", KindConnection},
		{"context deadline exceeded", KindConnection},
		{"connection refused", KindConnection},
		{"rate limit exceeded", KindRateLimit},
		{"429 too many requests", KindRateLimit},
		{"401 unauthorized: invalid api key", KindAuth},
		{"api key is required", KindConfig},
		{"model id is required", KindConfig},
		{"unexpected response shape", KindAPI},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ClassifyError(errors.New(tc.msg)), tc.msg)
	}
}

func TestClassifyError_NilIsAPI(t *testing.T) {
	assert.Equal(t, KindAPI, ClassifyError(nil))
}

func TestKind_RetryableOnlyForTransientKinds(t *testing.T) {
	assert.True(t, KindRateLimit.Retryable())
	assert.True(t, KindConnection.Retryable())
	assert.False(t, KindAuth.Retryable())
	assert.False(t, KindAPI.Retryable())
	assert.False(t, KindConfig.Retryable())
}

func TestProviderError_WithStatusReclassifies(t *testing.T) {
	err := (&ProviderError{Provider: "anthropic"}).WithStatus(http.StatusTooManyRequests)
	assert.Equal(t, KindRateLimit, err.Kind)

	err = (&ProviderError{Provider: "anthropic"}).WithStatus(http.StatusUnauthorized)
	assert.Equal(t, KindAuth, err.Kind)

	err = (&ProviderError{Provider: "anthropic"}).WithStatus(http.StatusInternalServerError)
	assert.Equal(t, KindConnection, err.Kind)
}

func TestProviderError_WithCodeReclassifies(t *testing.T) {
	err := (&ProviderError{Provider: "anthropic"}).WithCode("rate_limit_error")
	assert.Equal(t, KindRateLimit, err.Kind)
}

func TestProviderError_ErrorStringIncludesContext(t *testing.T) {
	err := &ProviderError{Kind: KindAuth, Provider: "openai", Model: "gpt-4o", Status: 401, Message: "bad key"}
	msg := err.Error()
	assert.Contains(t, msg, "auth")
	assert.Contains(t, msg, "openai")
	assert.Contains(t, msg, "gpt-4o")
	assert.Contains(t, msg, "bad key")
}

func TestProviderError_UnwrapReturnsCause(t *testing.T) {
	cause := errors.New("boom")
	err := &ProviderError{Cause: cause}
	assert.Equal(t, cause, errors.Unwrap(err))
}

func TestIsProviderError_DistinguishesWrappedAndPlain(t *testing.T) {
	assert.True(t, IsProviderError(&ProviderError{Kind: KindAPI}))
	assert.False(t, IsProviderError(errors.New("plain")))
}

func TestGetProviderError_ExtractsFromChain(t *testing.T) {
	inner := &ProviderError{Kind: KindConfig, Message: "missing key"}
	_, ok := GetProviderError(inner)
	assert.True(t, ok)

	_, ok = GetProviderError(errors.New("plain"))
	assert.False(t, ok)
}

func TestIsRetryable_UsesProviderErrorKindWhenPresent(t *testing.T) {
	assert.True(t, IsRetryable(&ProviderError{Kind: KindRateLimit}))
	assert.False(t, IsRetryable(&ProviderError{Kind: KindAuth}))
}

func TestIsRetryable_ClassifiesPlainErrors(t *testing.T) {
	assert.True(t, IsRetryable(errors.New("connection reset by peer")))
	assert.False(t, IsRetryable(errors.New("invalid request")))
}

func TestNewProviderError_ClassifiesFromCause(t *testing.T) {
	err := NewProviderError("openai", "gpt-4o", errors.New("rate limit hit"))
	assert.Equal(t, KindRateLimit, err.Kind)
	assert.Equal(t, "openai", err.Provider)
	assert.Equal(t, "gpt-4o", err.Model)
}

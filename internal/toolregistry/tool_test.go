package toolregistry

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type schemaTool struct{ stubTool }

func (s *schemaTool) Schema() json.RawMessage {
	return json.RawMessage(`{"type":"object","required":["path"],"properties":{"path":{"type":"string"}}}`)
}

func TestValidateArgs_NoSchemaAcceptsAny(t *testing.T) {
	err := ValidateArgs(echoTool("a"), json.RawMessage(`{"anything":1}`))
	assert.NoError(t, err)
}

func TestValidateArgs_RejectsMalformedJSON(t *testing.T) {
	err := ValidateArgs(echoTool("a"), json.RawMessage(`{not json`))
	assert.Error(t, err)
}

func TestValidateArgs_EnforcesRequiredField(t *testing.T) {
	tool := &schemaTool{stubTool: *echoTool("write")}

	err := ValidateArgs(tool, json.RawMessage(`{}`))
	require.Error(t, err)

	err = ValidateArgs(tool, json.RawMessage(`{"path":"/tmp/x"}`))
	assert.NoError(t, err)
}

func TestRetryable_Classification(t *testing.T) {
	assert.True(t, Retryable(NewError("t", nil).WithType(ErrTypeTimeout)))
	assert.False(t, Retryable(NewError("t", nil).WithType(ErrTypeInvalid)))
	assert.False(t, Retryable(NewError("t", nil).WithType(ErrTypeUnknown)))
	assert.False(t, Retryable(NewError("t", nil).WithType(ErrTypeViolation)))
}

package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorKind(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "descriptor", err: &DescriptorValidationError{Tool: "t", Reason: "r"}, want: KindDescriptorValidation},
		{name: "missing", err: &MissingParameterError{Param: "n"}, want: KindMissingParameter},
		{name: "coercion", err: &TypeCoercionError{Param: "n", Expected: "integer"}, want: KindTypeCoercion},
		{name: "timeout", err: &TimeoutError{}, want: KindTimeout},
		{name: "deadline", err: context.DeadlineExceeded, want: KindTimeout},
		{name: "unknown tool", err: &UnknownToolError{Tool: "x"}, want: KindUnknownTool},
		{name: "batch input", err: fmt.Errorf("%w: nope", ErrInvalidBatchInput), want: KindBatchInput},
		{name: "wrapped coercion", err: fmt.Errorf("outer: %w", &TypeCoercionError{Param: "n"}), want: KindTypeCoercion},
		{name: "plain error", err: errors.New("boom"), want: KindHandlerRuntime},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ErrorKind(tt.err))
		})
	}
}

func TestNormalize_ReservedShape(t *testing.T) {
	payload := Normalize(&TypeCoercionError{Param: "n", Expected: "integer", Received: "abc (string)"})

	data, err := json.Marshal(payload)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, StatusException, decoded["status"])
	assert.Equal(t, KindTypeCoercion, decoded["exception_kind"])
	assert.NotEmpty(t, decoded["message"])
	_, hasIndex := decoded["index"]
	assert.False(t, hasIndex)
}

func TestNormalize_BatchItemCarriesIndex(t *testing.T) {
	payload := Normalize(&BatchItemError{Index: 1, Err: &TypeCoercionError{Param: "item", Expected: "string"}})

	require.NotNil(t, payload.Index)
	assert.Equal(t, 1, *payload.Index)
	assert.Equal(t, KindTypeCoercion, payload.Kind)

	data, err := json.Marshal(payload)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"index":1`)
}

func TestNormalize_IndexZeroIsPreserved(t *testing.T) {
	payload := Normalize(&BatchItemError{Index: 0, Err: errors.New("boom")})

	data, err := json.Marshal(payload)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"index":0`)
}

func TestNormalize_HandlerRuntimeKeepsStack(t *testing.T) {
	payload := Normalize(&HandlerRuntimeError{Err: errors.New("boom"), Stack: "goroutine 1 [running]"})

	assert.Equal(t, KindHandlerRuntime, payload.Kind)
	assert.Equal(t, "goroutine 1 [running]", payload.StackTrace)
}

func TestBatchItemError_Unwrap(t *testing.T) {
	inner := &MissingParameterError{Param: "n"}
	err := &BatchItemError{Index: 3, Err: inner}

	var missing *MissingParameterError
	assert.ErrorAs(t, err, &missing)
	assert.Contains(t, err.Error(), "batch item 3")
}

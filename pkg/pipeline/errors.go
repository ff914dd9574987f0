package pipeline

import (
	"context"
	"errors"
	"fmt"
)

// StatusException is the reserved status marking a structured error payload.
// A success value never carries this shape.
const StatusException = "exception"

// Exception kinds carried in the structured error payload.
const (
	KindDescriptorValidation = "DescriptorValidationError"
	KindMissingParameter     = "MissingParameterError"
	KindTypeCoercion         = "TypeCoercionError"
	KindHandlerRuntime       = "HandlerRuntimeError"
	KindTimeout              = "TimeoutError"
	KindUnknownTool          = "UnknownToolError"
	KindBatchInput           = "BatchInputError"
)

// ErrorPayload is the caller-visible structured error. It is the only
// failure signal crossing the external boundary; callers distinguish it
// from a success value by its reserved status field.
type ErrorPayload struct {
	Status     string `json:"status"`
	Index      *int   `json:"index,omitempty"`
	Message    string `json:"message"`
	Kind       string `json:"exception_kind"`
	StackTrace string `json:"stack_trace,omitempty"`
}

func (p *ErrorPayload) Error() string {
	return fmt.Sprintf("%s: %s", p.Kind, p.Message)
}

// DescriptorValidationError rejects one tool at registration time.
type DescriptorValidationError struct {
	Tool   string
	Reason string
}

func (e *DescriptorValidationError) Error() string {
	if e.Tool == "" {
		return fmt.Sprintf("invalid tool descriptor: %s", e.Reason)
	}
	return fmt.Sprintf("invalid descriptor for tool %q: %s", e.Tool, e.Reason)
}

// MissingParameterError reports a declared required parameter absent from
// the input.
type MissingParameterError struct {
	Param string
}

func (e *MissingParameterError) Error() string {
	return fmt.Sprintf("missing required parameter %q", e.Param)
}

// TypeCoercionError reports input that could not be coerced to a
// parameter's declared type.
type TypeCoercionError struct {
	Param    string
	Expected string
	Received string
}

func (e *TypeCoercionError) Error() string {
	return fmt.Sprintf("parameter %q: cannot coerce %s to %s", e.Param, e.Received, e.Expected)
}

// HandlerRuntimeError wraps any fault raised by the handler body itself.
type HandlerRuntimeError struct {
	Err   error
	Stack string
}

func (e *HandlerRuntimeError) Error() string {
	return fmt.Sprintf("handler failed: %v", e.Err)
}

func (e *HandlerRuntimeError) Unwrap() error {
	return e.Err
}

// TimeoutError marks an invocation cancelled by its deadline.
type TimeoutError struct {
	Err error
}

func (e *TimeoutError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invocation timed out: %v", e.Err)
	}
	return "invocation timed out"
}

func (e *TimeoutError) Unwrap() error {
	return e.Err
}

// UnknownToolError reports an invocation of a name that was never
// registered.
type UnknownToolError struct {
	Tool string
}

func (e *UnknownToolError) Error() string {
	return fmt.Sprintf("tool not found: %s", e.Tool)
}

// BatchItemError scopes a failure to one batch item.
type BatchItemError struct {
	Index int
	Err   error
}

func (e *BatchItemError) Error() string {
	return fmt.Sprintf("batch item %d: %v", e.Index, e.Err)
}

func (e *BatchItemError) Unwrap() error {
	return e.Err
}

// ErrInvalidBatchInput is the precondition failure for structurally invalid
// batch input. Unlike per-item failures it aborts the whole call.
var ErrInvalidBatchInput = errors.New("batch input must be an ordered sequence of argument maps")

// ErrFrozen rejects registration after the registry has been frozen.
var ErrFrozen = errors.New("registry is frozen")

// ErrClosed rejects use of a registry after teardown.
var ErrClosed = errors.New("registry is closed")

// ErrorKind maps a pipeline error to its exception kind.
func ErrorKind(err error) string {
	var (
		descErr    *DescriptorValidationError
		missingErr *MissingParameterError
		coerceErr  *TypeCoercionError
		timeoutErr *TimeoutError
		unknownErr *UnknownToolError
	)

	switch {
	case errors.As(err, &descErr):
		return KindDescriptorValidation
	case errors.As(err, &missingErr):
		return KindMissingParameter
	case errors.As(err, &coerceErr):
		return KindTypeCoercion
	case errors.As(err, &timeoutErr),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return KindTimeout
	case errors.As(err, &unknownErr):
		return KindUnknownTool
	case errors.Is(err, ErrInvalidBatchInput):
		return KindBatchInput
	default:
		return KindHandlerRuntime
	}
}

// Normalize renders an error into the structured payload. Rendering happens
// once, at the outermost boundary; inner stages pass typed errors through.
func Normalize(err error) *ErrorPayload {
	payload := &ErrorPayload{
		Status:  StatusException,
		Message: err.Error(),
		Kind:    ErrorKind(err),
	}

	var itemErr *BatchItemError
	if errors.As(err, &itemErr) {
		index := itemErr.Index
		payload.Index = &index
		payload.Kind = ErrorKind(itemErr.Err)
		payload.Message = itemErr.Err.Error()
	}

	var runtimeErr *HandlerRuntimeError
	if errors.As(err, &runtimeErr) {
		payload.StackTrace = runtimeErr.Stack
	}

	return payload
}

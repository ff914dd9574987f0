package pipeline

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"

	"github.com/xeipuuv/gojsonschema"
)

// Call carries one invocation's state through the stage chain.
type Call struct {
	desc *Descriptor
	raw  map[string]any // as delivered by the caller
	args map[string]any // typed, set by the coercion stage
}

// Invoker executes one (single or batch-item) invocation.
type Invoker func(ctx context.Context, call *Call) (any, error)

// StageFunc wraps the next invoker in the chain with one stage's behavior.
// Stages are explicit values assembled once at registration, not runtime
// function stacking.
type StageFunc func(next Invoker) Invoker

// chain composes stages around the handler, first stage outermost.
func chain(handler Invoker, stages ...StageFunc) Invoker {
	invoke := handler
	for i := len(stages) - 1; i >= 0; i-- {
		invoke = stages[i](invoke)
	}
	return invoke
}

// handlerInvoker is the innermost link: the tool's own body.
func handlerInvoker() Invoker {
	return func(ctx context.Context, call *Call) (any, error) {
		return call.desc.Handler(ctx, call.args)
	}
}

// coercionStage converts and validates raw input before anything else runs.
// Its failures short-circuit the chain: the handler never sees bad input.
func coercionStage(schema *gojsonschema.Schema) StageFunc {
	return func(next Invoker) Invoker {
		return func(ctx context.Context, call *Call) (any, error) {
			args, err := coerceArgs(call.desc, call.raw)
			if err != nil {
				return nil, err
			}
			if err := validateArgs(schema, args); err != nil {
				return nil, err
			}
			call.args = args
			return next(ctx, call)
		}
	}
}

// boundaryStage is the catch-all around everything downstream. Panics
// become HandlerRuntimeError with a stack trace; untyped handler errors are
// wrapped; context expiry maps to TimeoutError. It forwards after
// annotating — the structured payload is rendered once, at the outermost
// boundary.
func boundaryStage() StageFunc {
	return func(next Invoker) Invoker {
		return func(ctx context.Context, call *Call) (result any, err error) {
			defer func() {
				if r := recover(); r != nil {
					result = nil
					err = &HandlerRuntimeError{
						Err:   fmt.Errorf("panic: %v", r),
						Stack: string(debug.Stack()),
					}
				}
			}()

			result, err = next(ctx, call)
			if err != nil {
				err = annotateFault(err)
			}
			return result, err
		}
	}
}

// annotateFault classifies a fault crossing the boundary without discarding
// the original error.
func annotateFault(err error) error {
	var (
		coerceErr  *TypeCoercionError
		missingErr *MissingParameterError
		runtimeErr *HandlerRuntimeError
		timeoutErr *TimeoutError
	)
	if errors.As(err, &coerceErr) || errors.As(err, &missingErr) ||
		errors.As(err, &runtimeErr) || errors.As(err, &timeoutErr) {
		return err
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &TimeoutError{Err: err}
	}

	return &HandlerRuntimeError{Err: err, Stack: string(debug.Stack())}
}

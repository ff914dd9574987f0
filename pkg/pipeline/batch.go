package pipeline

import (
	"context"
	"fmt"
	"sync"

	"github.com/nandavh/toolpipe/internal/tracing"
)

// ItemResult is one slot of a batch call's output. Exactly one of Value or
// Error is set; Index always names the input position the slot belongs to.
type ItemResult struct {
	Index int           `json:"index"`
	Value any           `json:"value,omitempty"`
	Error *ErrorPayload `json:"error,omitempty"`
}

// DecodeBatchItems enforces the batch structural precondition: the input
// must be an ordered sequence whose elements are argument maps. Anything
// else fails the whole call before any item runs.
func DecodeBatchItems(raw any) ([]map[string]any, error) {
	switch v := raw.(type) {
	case []map[string]any:
		return v, nil
	case []any:
		items := make([]map[string]any, len(v))
		for i, elem := range v {
			m, ok := elem.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("%w: element %d is %T, not a map", ErrInvalidBatchInput, i, elem)
			}
			items[i] = m
		}
		return items, nil
	default:
		return nil, fmt.Errorf("%w: got %T", ErrInvalidBatchInput, raw)
	}
}

// RenderBatch flattens item results into the wire shape: the success value
// in successful slots, the structured error payload (carrying the item
// index) in failed ones.
func RenderBatch(results []ItemResult) []any {
	out := make([]any, len(results))
	for i, res := range results {
		if res.Error != nil {
			out[i] = res.Error
		} else {
			out[i] = res.Value
		}
	}
	return out
}

// batchRunner fans one batch out over the per-item chain. Items execute
// concurrently up to the worker bound; output order is determined by input
// position, never by completion order. The per-item chain re-enters
// coercion, the exception boundary and the handler, but never the fan-out
// itself.
type batchRunner struct {
	item    Invoker
	desc    *Descriptor
	workers int
}

func (b *batchRunner) run(ctx context.Context, parentID string, items []map[string]any) []ItemResult {
	results := make([]ItemResult, len(items))
	sem := make(chan struct{}, b.workers)
	var wg sync.WaitGroup

	for i, raw := range items {
		wg.Add(1)
		go func(index int, raw map[string]any) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				// Never leave a slot empty: unstarted items get a
				// timeout entry so the output length still matches.
				results[index] = timeoutResult(index, ctx.Err())
				return
			}

			if ctx.Err() != nil {
				results[index] = timeoutResult(index, ctx.Err())
				return
			}

			itemCtx := tracing.WithCorrelationID(ctx, tracing.ChildCorrelationID(parentID, index))
			itemCtx = tracing.WithBatchIndex(itemCtx, index)

			// Each item gets its own Call: no shared mutable state
			// crosses item boundaries.
			value, err := b.item(itemCtx, &Call{desc: b.desc, raw: raw})
			if err != nil {
				results[index] = ItemResult{
					Index: index,
					Error: Normalize(&BatchItemError{Index: index, Err: err}),
				}
				return
			}
			results[index] = ItemResult{Index: index, Value: value}
		}(i, raw)
	}

	wg.Wait()
	return results
}

func timeoutResult(index int, cause error) ItemResult {
	return ItemResult{
		Index: index,
		Error: Normalize(&BatchItemError{Index: index, Err: &TimeoutError{Err: cause}}),
	}
}

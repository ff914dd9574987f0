// Package pipeline turns registered tool descriptors into audited,
// fault-isolated callables.
//
// Each registered tool gets a chain of stages composed once at registration,
// in a fixed order: parameter coercion, exception boundary, audit logging,
// then the handler (with a bounded fan-out in front of the per-item chain
// for batchable tools).
//
// Invariants:
// - Tool names are unique; invalid descriptors never become callable.
// - Coercion failures short-circuit before the handler runs.
// - Every invocation that reaches the logging stage produces exactly one
//   finalized audit record (coercion rejections short-circuit earlier and
//   leave no record).
// - An audit-backend failure never changes a call's result.
// - Batch output order matches input order, and one item's failure never
//   aborts its siblings.
//
// Usage:
//
//	reg := pipeline.New(pipeline.WithRecorder(store))
//	_ = reg.Register(pipeline.Descriptor{
//		Name:        "double",
//		Description: "Double an integer",
//		Parameters: []pipeline.Parameter{
//			{Name: "n", Type: pipeline.TypeInteger, Description: "value", Required: true, Default: 0},
//		},
//		Handler: func(ctx context.Context, args map[string]any) (any, error) {
//			return args["n"].(int64) * 2, nil
//		},
//	})
//	reg.Freeze()
//	value, perr := reg.Invoke(ctx, "double", map[string]any{"n": "21"})
package pipeline

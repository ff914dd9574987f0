package tracing

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ContextKey is the type for context keys
type ContextKey string

const (
	// CorrelationIDKey is the context key for the correlation ID
	CorrelationIDKey ContextKey = "correlation_id"
	// ToolNameKey is the context key for the tool name
	ToolNameKey ContextKey = "tool_name"
	// BatchIndexKey is the context key for the batch item index
	BatchIndexKey ContextKey = "batch_index"
)

// NewCorrelationID generates a fresh correlation ID. IDs are time-ordered
// (UUIDv7) so persisted records sort by creation time.
func NewCorrelationID() string {
	id, err := uuid.NewV7()
	if err != nil {
		// NewV7 only fails when the entropy source does; fall back to the
		// random variant rather than failing the invocation.
		return uuid.New().String()
	}
	return id.String()
}

// ChildCorrelationID derives the correlation ID for one batch item. The
// parent ID is kept as a prefix so all items of a batch remain linkable.
func ChildCorrelationID(parent string, index int) string {
	return fmt.Sprintf("%s#%d", parent, index)
}

// WithCorrelationID adds a correlation ID to the context
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, CorrelationIDKey, id)
}

// WithToolName adds the invoked tool name to the context
func WithToolName(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, ToolNameKey, name)
}

// WithBatchIndex adds the batch item index to the context
func WithBatchIndex(ctx context.Context, index int) context.Context {
	return context.WithValue(ctx, BatchIndexKey, index)
}

// GetCorrelationID retrieves the correlation ID from the context
func GetCorrelationID(ctx context.Context) string {
	if id, ok := ctx.Value(CorrelationIDKey).(string); ok {
		return id
	}
	return ""
}

// GetToolName retrieves the tool name from the context
func GetToolName(ctx context.Context) string {
	if name, ok := ctx.Value(ToolNameKey).(string); ok {
		return name
	}
	return ""
}

// GetBatchIndex retrieves the batch item index from the context. The second
// return value reports whether the context belongs to a batch item at all.
func GetBatchIndex(ctx context.Context) (int, bool) {
	index, ok := ctx.Value(BatchIndexKey).(int)
	return index, ok
}

// EnsureCorrelation resolves the correlation ID for one invocation. A
// caller-supplied hint takes priority; otherwise a fresh ID is generated.
// The resolved ID is placed on the returned context and is read-only from
// then on.
func EnsureCorrelation(ctx context.Context, hint string) context.Context {
	if hint != "" {
		return WithCorrelationID(ctx, hint)
	}
	if GetCorrelationID(ctx) != "" {
		return ctx
	}
	return WithCorrelationID(ctx, NewCorrelationID())
}

// LoggerFromContext returns a logger annotated with whatever invocation
// information the context carries.
func LoggerFromContext(ctx context.Context, base zerolog.Logger) zerolog.Logger {
	lctx := base.With()
	if id := GetCorrelationID(ctx); id != "" {
		lctx = lctx.Str("correlation_id", id)
	}
	if name := GetToolName(ctx); name != "" {
		lctx = lctx.Str("tool", name)
	}
	if index, ok := GetBatchIndex(ctx); ok {
		lctx = lctx.Int("batch_index", index)
	}
	return lctx.Logger()
}

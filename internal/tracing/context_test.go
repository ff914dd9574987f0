package tracing

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureCorrelation_HintTakesPriority(t *testing.T) {
	ctx := EnsureCorrelation(context.Background(), "abc-123")
	assert.Equal(t, "abc-123", GetCorrelationID(ctx))
}

func TestEnsureCorrelation_GeneratesFreshID(t *testing.T) {
	ctx := EnsureCorrelation(context.Background(), "")
	assert.NotEmpty(t, GetCorrelationID(ctx))
}

func TestEnsureCorrelation_KeepsExistingID(t *testing.T) {
	ctx := WithCorrelationID(context.Background(), "existing")
	ctx = EnsureCorrelation(ctx, "")
	assert.Equal(t, "existing", GetCorrelationID(ctx))
}

func TestNewCorrelationID_UniqueAcrossManyCalls(t *testing.T) {
	seen := make(map[string]struct{}, 10000)
	for i := 0; i < 10000; i++ {
		id := NewCorrelationID()
		require.NotEmpty(t, id)
		_, dup := seen[id]
		require.False(t, dup, "duplicate correlation ID generated: %s", id)
		seen[id] = struct{}{}
	}
}

func TestChildCorrelationID(t *testing.T) {
	child := ChildCorrelationID("parent-id", 3)
	assert.Equal(t, "parent-id#3", child)
	assert.True(t, strings.HasPrefix(child, "parent-id"))
}

func TestContextAccessors(t *testing.T) {
	ctx := context.Background()

	_, ok := GetBatchIndex(ctx)
	assert.False(t, ok)
	assert.Empty(t, GetToolName(ctx))

	ctx = WithToolName(ctx, "text_upper")
	ctx = WithBatchIndex(ctx, 2)

	assert.Equal(t, "text_upper", GetToolName(ctx))
	index, ok := GetBatchIndex(ctx)
	assert.True(t, ok)
	assert.Equal(t, 2, index)
}

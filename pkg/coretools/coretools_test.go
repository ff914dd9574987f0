package coretools

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nandavh/toolpipe/pkg/pipeline"
)

func newRegistry(t *testing.T) *pipeline.Registry {
	t.Helper()
	reg := pipeline.New(pipeline.WithLogger(zerolog.Nop()))
	require.NoError(t, Register(reg))
	reg.Freeze()
	t.Cleanup(func() { reg.Close() })
	return reg
}

func TestRegister_AllToolsPresent(t *testing.T) {
	reg := newRegistry(t)
	assert.Equal(t, []string{"hash_sha256", "json_pick", "math_add", "text_join", "text_upper"}, reg.Names())
}

func TestTextUpper_Batch(t *testing.T) {
	reg := newRegistry(t)

	results, err := reg.InvokeBatch(context.Background(), "text_upper", []any{
		map[string]any{"item": "a"},
		map[string]any{"item": "b"},
	})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "A", results[0].Value)
	assert.Equal(t, "B", results[1].Value)
}

func TestHashSHA256(t *testing.T) {
	reg := newRegistry(t)

	results, err := reg.InvokeBatch(context.Background(), "hash_sha256", []any{
		map[string]any{"data": "abc"},
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", results[0].Value)
}

func TestMathAdd(t *testing.T) {
	reg := newRegistry(t)

	t.Run("typed input", func(t *testing.T) {
		value, perr := reg.Invoke(context.Background(), "math_add", map[string]any{"a": 1.5, "b": 2})
		require.Nil(t, perr)
		assert.Equal(t, 3.5, value)
	})

	t.Run("coerced from strings", func(t *testing.T) {
		value, perr := reg.Invoke(context.Background(), "math_add", map[string]any{"a": "1.5", "b": "2"})
		require.Nil(t, perr)
		assert.Equal(t, 3.5, value)
	})

	t.Run("rejects garbage", func(t *testing.T) {
		_, perr := reg.Invoke(context.Background(), "math_add", map[string]any{"a": "one", "b": 2})
		require.NotNil(t, perr)
		assert.Equal(t, pipeline.KindTypeCoercion, perr.Kind)
	})
}

func TestTextJoin(t *testing.T) {
	reg := newRegistry(t)

	t.Run("default separator", func(t *testing.T) {
		value, perr := reg.Invoke(context.Background(), "text_join", map[string]any{
			"parts": []any{"a", "b", "c"},
		})
		require.Nil(t, perr)
		assert.Equal(t, "a,b,c", value)
	})

	t.Run("list from json text", func(t *testing.T) {
		value, perr := reg.Invoke(context.Background(), "text_join", map[string]any{
			"parts":     `["x", 1, true]`,
			"separator": " | ",
		})
		require.Nil(t, perr)
		assert.Equal(t, "x | 1 | true", value)
	})
}

func TestJSONPick(t *testing.T) {
	reg := newRegistry(t)

	document := map[string]any{
		"user": map[string]any{"name": "ada", "id": float64(7)},
	}

	t.Run("nested path", func(t *testing.T) {
		value, perr := reg.Invoke(context.Background(), "json_pick", map[string]any{
			"document": document,
			"path":     "user.name",
		})
		require.Nil(t, perr)
		assert.Equal(t, "ada", value)
	})

	t.Run("missing key", func(t *testing.T) {
		_, perr := reg.Invoke(context.Background(), "json_pick", map[string]any{
			"document": document,
			"path":     "user.email",
		})
		require.NotNil(t, perr)
		assert.Equal(t, pipeline.KindHandlerRuntime, perr.Kind)
	})

	t.Run("document from json text", func(t *testing.T) {
		value, perr := reg.Invoke(context.Background(), "json_pick", map[string]any{
			"document": `{"k": {"v": 42}}`,
			"path":     "k.v",
		})
		require.Nil(t, perr)
		assert.Equal(t, float64(42), value)
	})
}

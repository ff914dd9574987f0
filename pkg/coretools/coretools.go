package coretools

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/nandavh/toolpipe/pkg/pipeline"
)

// Register installs the baseline text, math and JSON tools. The registry
// must still be in its population phase.
func Register(reg *pipeline.Registry) error {
	if reg == nil {
		return errors.New("registry is required")
	}

	tools := []pipeline.Descriptor{
		textUpperTool(),
		hashSHA256Tool(),
		mathAddTool(),
		textJoinTool(),
		jsonPickTool(),
	}

	for _, tool := range tools {
		if err := reg.Register(tool); err != nil {
			return fmt.Errorf("failed to register tool %s: %w", tool.Name, err)
		}
	}
	return nil
}

func textUpperTool() pipeline.Descriptor {
	return pipeline.Descriptor{
		Name:        "text_upper",
		Description: "Uppercase a string.",
		Parameters: []pipeline.Parameter{
			{Name: "item", Type: pipeline.TypeString, Description: "Text to uppercase", Required: true, Default: ""},
		},
		Batchable: true,
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			item, _ := args["item"].(string)
			return strings.ToUpper(item), nil
		},
	}
}

func hashSHA256Tool() pipeline.Descriptor {
	return pipeline.Descriptor{
		Name:        "hash_sha256",
		Description: "Compute the hex-encoded SHA-256 digest of a string.",
		Parameters: []pipeline.Parameter{
			{Name: "data", Type: pipeline.TypeString, Description: "Input to hash", Required: true, Default: ""},
		},
		Batchable: true,
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			data, _ := args["data"].(string)
			sum := sha256.Sum256([]byte(data))
			return hex.EncodeToString(sum[:]), nil
		},
	}
}

func mathAddTool() pipeline.Descriptor {
	return pipeline.Descriptor{
		Name:        "math_add",
		Description: "Add two numbers.",
		Parameters: []pipeline.Parameter{
			{Name: "a", Type: pipeline.TypeNumber, Description: "First addend", Required: true, Default: 0.0},
			{Name: "b", Type: pipeline.TypeNumber, Description: "Second addend", Required: true, Default: 0.0},
		},
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			a, err := toFloat(args["a"])
			if err != nil {
				return nil, err
			}
			b, err := toFloat(args["b"])
			if err != nil {
				return nil, err
			}
			return a + b, nil
		},
	}
}

func textJoinTool() pipeline.Descriptor {
	return pipeline.Descriptor{
		Name:        "text_join",
		Description: "Join a list of values into one string.",
		Parameters: []pipeline.Parameter{
			{Name: "parts", Type: pipeline.TypeArray, Description: "Values to join", Required: true, Default: []any{}},
			{Name: "separator", Type: pipeline.TypeString, Description: "Separator between values", Default: ","},
		},
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			parts, err := toAnySlice(args["parts"])
			if err != nil {
				return nil, err
			}
			separator, _ := args["separator"].(string)

			rendered := make([]string, len(parts))
			for i, part := range parts {
				rendered[i] = stringify(part)
			}
			return strings.Join(rendered, separator), nil
		},
	}
}

func jsonPickTool() pipeline.Descriptor {
	return pipeline.Descriptor{
		Name:        "json_pick",
		Description: "Extract a value from an object by dot-separated path.",
		Parameters: []pipeline.Parameter{
			{Name: "document", Type: pipeline.TypeObject, Description: "Object to read from", Required: true, Default: map[string]any{}},
			{Name: "path", Type: pipeline.TypeString, Description: "Dot-separated key path", Required: true, Default: ""},
		},
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			document, _ := args["document"].(map[string]any)
			path, _ := args["path"].(string)
			if strings.TrimSpace(path) == "" {
				return nil, errors.New("path is required")
			}

			var current any = document
			for _, key := range strings.Split(path, ".") {
				node, ok := current.(map[string]any)
				if !ok {
					return nil, fmt.Errorf("path %q does not resolve to a value", path)
				}
				current, ok = node[key]
				if !ok {
					return nil, fmt.Errorf("key %q not found", key)
				}
			}
			return current, nil
		},
	}
}

// toFloat accepts the numeric representations coercion may hand through:
// declared-type values pass untouched, so a number parameter can arrive as
// int, int64 or float64.
func toFloat(value any) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	default:
		return 0, fmt.Errorf("expected a number, got %T", value)
	}
}

func toAnySlice(value any) ([]any, error) {
	switch v := value.(type) {
	case []any:
		return v, nil
	case []string:
		out := make([]any, len(v))
		for i, s := range v {
			out[i] = s
		}
		return out, nil
	default:
		return nil, fmt.Errorf("expected a list, got %T", value)
	}
}

func stringify(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case float64:
		// JSON numbers decode as float64; render integral ones without
		// the trailing fraction.
		if v == float64(int64(v)) {
			return fmt.Sprintf("%d", int64(v))
		}
		return fmt.Sprintf("%v", v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

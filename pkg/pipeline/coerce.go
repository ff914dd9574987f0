package pipeline

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// coerceArgs converts raw, mostly string-valued input into typed arguments
// per the descriptor's schema. Undeclared keys are dropped silently so
// newer clients can send fields older descriptors do not know. Coercion is
// idempotent: a value already matching its declared type passes through
// unchanged.
func coerceArgs(d *Descriptor, raw map[string]any) (map[string]any, error) {
	args := make(map[string]any, len(d.Parameters))

	for _, param := range d.Parameters {
		value, present := raw[param.Name]
		if !present {
			if param.Required {
				return nil, &MissingParameterError{Param: param.Name}
			}
			args[param.Name] = param.Default
			continue
		}

		coerced, err := coerceValue(param, value)
		if err != nil {
			return nil, err
		}
		args[param.Name] = coerced
	}

	return args, nil
}

func coerceValue(param Parameter, value any) (any, error) {
	if value == nil {
		return nil, coercionError(param, value)
	}
	if matchesType(value, param.Type) {
		return value, nil
	}

	switch param.Type {
	case TypeBoolean:
		if s, ok := value.(string); ok {
			switch strings.ToLower(s) {
			case "true", "1":
				return true, nil
			case "false", "0":
				return false, nil
			}
		}

	case TypeInteger:
		switch v := value.(type) {
		case string:
			n, err := strconv.ParseInt(v, 10, 64)
			if err == nil {
				return n, nil
			}
		case float64:
			if v == math.Trunc(v) && !math.IsInf(v, 0) {
				return int64(v), nil
			}
		}

	case TypeNumber:
		if s, ok := value.(string); ok {
			f, err := strconv.ParseFloat(s, 64)
			if err == nil {
				return f, nil
			}
		}

	case TypeArray:
		if s, ok := value.(string); ok {
			var parsed []any
			if err := json.Unmarshal([]byte(s), &parsed); err == nil {
				return parsed, nil
			}
		}

	case TypeObject:
		if s, ok := value.(string); ok {
			var parsed map[string]any
			if err := json.Unmarshal([]byte(s), &parsed); err == nil {
				return parsed, nil
			}
		}
	}

	// TypeString deliberately has no conversions: numbers and booleans do
	// not silently stringify.
	return nil, coercionError(param, value)
}

func coercionError(param Parameter, value any) *TypeCoercionError {
	return &TypeCoercionError{
		Param:    param.Name,
		Expected: param.Type,
		Received: fmt.Sprintf("%v (%T)", value, value),
	}
}

// validateArgs checks coerced arguments against the registration-time
// schema. Coercion guarantees the types, so a failure here points at a
// descriptor/schema mismatch and is reported on the offending parameter.
func validateArgs(schema *gojsonschema.Schema, args map[string]any) error {
	if schema == nil {
		return nil
	}

	result, err := schema.Validate(gojsonschema.NewGoLoader(args))
	if err != nil {
		return &TypeCoercionError{Expected: "schema-valid arguments", Received: err.Error()}
	}
	if !result.Valid() {
		first := result.Errors()[0]
		return &TypeCoercionError{
			Param:    first.Field(),
			Expected: first.Description(),
			Received: fmt.Sprintf("%v", first.Value()),
		}
	}
	return nil
}

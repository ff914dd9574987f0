package pipeline

import (
	"context"
	"fmt"
	"reflect"

	"github.com/xeipuuv/gojsonschema"
)

// Parameter types accepted by descriptors.
const (
	TypeString  = "string"
	TypeBoolean = "boolean"
	TypeInteger = "integer"
	TypeNumber  = "number"
	TypeArray   = "array"
	TypeObject  = "object"
)

// Handler is the function signature for tool execution.
type Handler func(ctx context.Context, args map[string]any) (any, error)

// Parameter declares one named, typed tool parameter. Every parameter
// carries a concrete default so downstream stages never branch on an
// absent-optional sentinel.
type Parameter struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description"`
	Required    bool   `json:"required"`
	Default     any    `json:"default"`
}

// Descriptor declares a tool. Descriptors are immutable once registered.
type Descriptor struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Parameters  []Parameter `json:"parameters"`
	Handler     Handler     `json:"-"`
	Batchable   bool        `json:"batchable"`
}

// DescriptorValidator validates descriptors at registration time.
type DescriptorValidator struct{}

// NewDescriptorValidator creates a new validator
func NewDescriptorValidator() *DescriptorValidator {
	return &DescriptorValidator{}
}

// Validate checks a descriptor. A failure rejects this one tool and is
// never fatal to the host.
func (v *DescriptorValidator) Validate(d Descriptor) error {
	if d.Name == "" {
		return &DescriptorValidationError{Reason: "tool name cannot be empty"}
	}
	if d.Description == "" {
		return &DescriptorValidationError{Tool: d.Name, Reason: "tool description cannot be empty"}
	}
	if d.Handler == nil {
		return &DescriptorValidationError{Tool: d.Name, Reason: "tool handler cannot be nil"}
	}

	seen := make(map[string]struct{}, len(d.Parameters))
	for _, param := range d.Parameters {
		if param.Name == "" {
			return &DescriptorValidationError{Tool: d.Name, Reason: "parameter name cannot be empty"}
		}
		if _, dup := seen[param.Name]; dup {
			return &DescriptorValidationError{Tool: d.Name, Reason: fmt.Sprintf("duplicate parameter %q", param.Name)}
		}
		seen[param.Name] = struct{}{}

		if param.Description == "" {
			return &DescriptorValidationError{Tool: d.Name, Reason: fmt.Sprintf("parameter %q needs a description", param.Name)}
		}
		if !validParamType(param.Type) {
			return &DescriptorValidationError{Tool: d.Name, Reason: fmt.Sprintf("invalid type %q for parameter %q", param.Type, param.Name)}
		}
		if param.Default == nil {
			return &DescriptorValidationError{Tool: d.Name, Reason: fmt.Sprintf("parameter %q needs a concrete default (use the type's zero value)", param.Name)}
		}
		if !matchesType(param.Default, param.Type) {
			return &DescriptorValidationError{Tool: d.Name, Reason: fmt.Sprintf("default for parameter %q does not match type %s", param.Name, param.Type)}
		}
	}

	return nil
}

func validParamType(t string) bool {
	switch t {
	case TypeString, TypeBoolean, TypeInteger, TypeNumber, TypeArray, TypeObject:
		return true
	default:
		return false
	}
}

// matchesType reports whether a value already satisfies a declared type,
// so coercion can pass it through unchanged.
func matchesType(v any, t string) bool {
	switch t {
	case TypeString:
		_, ok := v.(string)
		return ok
	case TypeBoolean:
		_, ok := v.(bool)
		return ok
	case TypeInteger:
		switch v.(type) {
		case int, int32, int64:
			return true
		}
		return false
	case TypeNumber:
		switch v.(type) {
		case int, int32, int64, float32, float64:
			return true
		}
		return false
	case TypeArray:
		kind := reflect.ValueOf(v).Kind()
		return kind == reflect.Slice || kind == reflect.Array
	case TypeObject:
		return reflect.ValueOf(v).Kind() == reflect.Map
	default:
		return false
	}
}

// buildSchema generates a JSON Schema from the descriptor's parameters.
// Coerced arguments are validated against it before the handler runs.
func buildSchema(d Descriptor) (*gojsonschema.Schema, error) {
	properties := make(map[string]any, len(d.Parameters))
	required := make([]string, 0, len(d.Parameters))

	for _, param := range d.Parameters {
		properties[param.Name] = map[string]any{
			"type":        param.Type,
			"description": param.Description,
			"default":     param.Default,
		}
		required = append(required, param.Name)
	}

	schemaMap := map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties":           properties,
	}
	// Coercion substitutes defaults, so every declared parameter is
	// present by the time the schema runs.
	if len(required) > 0 {
		schemaMap["required"] = required
	}

	schema, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(schemaMap))
	if err != nil {
		return nil, &DescriptorValidationError{Tool: d.Name, Reason: fmt.Sprintf("schema generation failed: %v", err)}
	}
	return schema, nil
}

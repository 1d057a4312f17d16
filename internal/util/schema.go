package util

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/hupe1980/agentloop/core"
)

// ValidationError represents parameter validation errors with detailed information.
type ValidationError struct {
	Field   string `json:"field"`   // Field that failed validation
	Value   any    `json:"value"`   // Value that was provided
	Message string `json:"message"` // Human-readable error message
}

// Error implements the error interface for ValidationError.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// CreateSchema derives an object schema from the exported fields of a
// struct. Property names follow the json tag. The description and default
// tags are copied onto the property; pointer and omitempty fields are
// optional. Anything other than a struct yields an empty object schema.
func CreateSchema(structType any) map[string]any {
	properties := make(map[string]any)
	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}

	t := reflect.TypeOf(structType)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return schema
	}

	var required []string
	for _, field := range reflect.VisibleFields(t) {
		if field.Anonymous || !field.IsExported() {
			continue
		}
		name, optional, ok := propertyName(field)
		if !ok {
			continue
		}

		properties[name] = propertySchema(field)
		if !optional && field.Type.Kind() != reflect.Pointer {
			required = append(required, name)
		}
	}

	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

// propertyName resolves the JSON name of a field and whether it is tagged
// omitempty. ok is false for fields excluded with `json:"-"`.
func propertyName(field reflect.StructField) (name string, optional, ok bool) {
	tag := field.Tag.Get("json")
	if tag == "-" {
		return "", false, false
	}

	name, opts, _ := strings.Cut(tag, ",")
	if name == "" {
		name = field.Name
	}
	for _, opt := range strings.Split(opts, ",") {
		if strings.TrimSpace(opt) == "omitempty" {
			optional = true
		}
	}
	return name, optional, true
}

func propertySchema(field reflect.StructField) map[string]any {
	typ := jsonType(field.Type)
	prop := map[string]any{"type": typ}

	if description := field.Tag.Get("description"); description != "" {
		prop["description"] = description
	}
	if raw, ok := field.Tag.Lookup("default"); ok {
		prop["default"] = defaultValue(typ, raw)
	}
	if typ == "array" {
		prop["items"] = map[string]any{"type": jsonType(field.Type.Elem())}
	}
	return prop
}

// defaultValue converts a default tag to the property's JSON type, keeping
// the raw text when it does not parse.
func defaultValue(typ, raw string) any {
	switch typ {
	case "integer":
		if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return n
		}
	case "number":
		if f, err := strconv.ParseFloat(raw, 64); err == nil {
			return f
		}
	case "boolean":
		if b, err := strconv.ParseBool(raw); err == nil {
			return b
		}
	}
	return raw
}

// ValidateParameters validates decoded tool arguments against a JSON schema.
// Only required fields and primitive property types are checked; extra
// fields are allowed.
func ValidateParameters(params core.Object, schema map[string]any) error {
	for _, fieldName := range requiredFields(schema) {
		if _, exists := params[fieldName]; !exists {
			return &ValidationError{
				Field:   fieldName,
				Message: "required field is missing",
			}
		}
	}

	properties, _ := schema["properties"].(map[string]any)
	for fieldName, value := range params {
		propMap, ok := properties[fieldName].(map[string]any)
		if !ok {
			continue
		}

		expectedType, _ := propMap["type"].(string)
		if !isValidType(value, expectedType) {
			return &ValidationError{
				Field:   fieldName,
				Value:   value.Interface(),
				Message: fmt.Sprintf("expected type %s, got %s", expectedType, value.Kind()),
			}
		}
	}

	return nil
}

// requiredFields accepts both []string (Go literal schemas) and []any
// (JSON decoded schemas).
func requiredFields(schema map[string]any) []string {
	switch req := schema["required"].(type) {
	case []string:
		return req
	case []any:
		out := make([]string, 0, len(req))
		for _, r := range req {
			if s, ok := r.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

func jsonType(t reflect.Type) string {
	switch t.Kind() {
	case reflect.Pointer:
		return jsonType(t.Elem())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "integer"
	case reflect.Float32, reflect.Float64:
		return "number"
	case reflect.Bool:
		return "boolean"
	case reflect.Slice, reflect.Array:
		return "array"
	case reflect.Map, reflect.Struct:
		return "object"
	default:
		return "string"
	}
}

// isValidType checks if a value is valid according to the expected JSON schema type.
func isValidType(value core.Value, expectedType string) bool {
	if value.IsNull() {
		return true // null is valid for any type
	}

	switch expectedType {
	case "string":
		return value.Kind() == core.KindString
	case "integer":
		_, ok := value.AsInt()
		return ok
	case "number":
		return value.Kind() == core.KindNumber
	case "boolean":
		return value.Kind() == core.KindBool
	case "array":
		return value.Kind() == core.KindArray
	case "object":
		return value.Kind() == core.KindObject
	default:
		return true // Unknown types are assumed valid
	}
}

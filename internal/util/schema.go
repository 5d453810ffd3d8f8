package util

import (
	"fmt"
	"math"
	"reflect"
	"slices"
	"strings"
)

// ValidationError reports the first tool argument that does not satisfy the
// tool's parameter schema.
type ValidationError struct {
	Field   string `json:"field"`
	Value   any    `json:"value"`
	Message string `json:"message"`
}

// Error implements the error interface for ValidationError.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

var kindTypes = map[reflect.Kind]string{
	reflect.String:  "string",
	reflect.Bool:    "boolean",
	reflect.Float32: "number",
	reflect.Float64: "number",
	reflect.Slice:   "array",
	reflect.Array:   "array",
	reflect.Map:     "object",
	reflect.Struct:  "object",
}

// CreateSchema derives a tool parameter schema from a Go struct. Fields
// without omitempty that are not pointers become required. A "description"
// struct tag is copied into the property, an "enum" tag (comma separated)
// becomes a string enum.
func CreateSchema(structType any) map[string]any {
	properties := map[string]any{}
	schema := map[string]any{"type": "object", "properties": properties}

	t := reflect.TypeOf(structType)
	if t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return schema
	}

	var required []string
	for field := range structFields(t) {
		name, optional, ok := jsonField(field)
		if !ok {
			continue
		}

		prop := map[string]any{"type": jsonType(field.Type)}
		if d := field.Tag.Get("description"); d != "" {
			prop["description"] = d
		}
		if e := field.Tag.Get("enum"); e != "" {
			prop["enum"] = strings.Split(e, ",")
		}
		properties[name] = prop

		if !optional {
			required = append(required, name)
		}
	}

	if len(required) > 0 {
		schema["required"] = required
	}

	return schema
}

// structFields yields the exported fields of t in declaration order.
func structFields(t reflect.Type) func(yield func(reflect.StructField) bool) {
	return func(yield func(reflect.StructField) bool) {
		for i := range t.NumField() {
			if f := t.Field(i); f.IsExported() && !yield(f) {
				return
			}
		}
	}
}

// jsonField returns the wire name of f and whether it is optional (omitempty
// or pointer). ok is false for fields tagged `json:"-"`.
func jsonField(f reflect.StructField) (name string, optional, ok bool) {
	tag := f.Tag.Get("json")
	if tag == "-" {
		return "", false, false
	}

	parts := strings.Split(tag, ",")
	name = f.Name
	if parts[0] != "" {
		name = parts[0]
	}

	optional = f.Type.Kind() == reflect.Ptr
	for _, opt := range parts[1:] {
		if strings.TrimSpace(opt) == "omitempty" {
			optional = true
		}
	}

	return name, optional, true
}

func jsonType(t reflect.Type) string {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if s, ok := kindTypes[t.Kind()]; ok {
		return s
	}
	if t.Kind() >= reflect.Int && t.Kind() <= reflect.Uint64 {
		return "integer"
	}
	return "string"
}

// ValidateParameters checks tool arguments against a JSON schema subset:
// required fields, property types and string enums. Extra fields are allowed.
func ValidateParameters(params map[string]any, schema map[string]any) error {
	for _, name := range stringList(schema["required"]) {
		if v, ok := params[name]; !ok || v == nil {
			return &ValidationError{Field: name, Message: "required field is missing"}
		}
	}

	properties, _ := schema["properties"].(map[string]any)
	for name, value := range params {
		prop, ok := properties[name].(map[string]any)
		if !ok || value == nil {
			continue
		}

		want, _ := prop["type"].(string)
		if !hasType(value, want) {
			return &ValidationError{
				Field:   name,
				Value:   value,
				Message: fmt.Sprintf("expected type %s, got %T", want, value),
			}
		}

		enum := stringList(prop["enum"])
		if s, isString := value.(string); isString && len(enum) > 0 && !slices.Contains(enum, s) {
			return &ValidationError{
				Field:   name,
				Value:   value,
				Message: fmt.Sprintf("must be one of %s", strings.Join(enum, ", ")),
			}
		}
	}

	return nil
}

// stringList normalizes a string list that may come from CreateSchema
// ([]string) or from decoded JSON ([]any).
func stringList(v any) []string {
	switch t := v.(type) {
	case []string:
		return t
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// hasType reports whether value fits the JSON schema type want. Unknown or
// empty types accept anything.
func hasType(value any, want string) bool {
	switch want {
	case "string":
		_, ok := value.(string)
		return ok
	case "boolean":
		_, ok := value.(bool)
		return ok
	case "array":
		_, ok := value.([]any)
		return ok
	case "object":
		_, ok := value.(map[string]any)
		return ok
	case "integer":
		if f, ok := value.(float64); ok {
			return f == math.Trunc(f)
		}
		return isIntKind(value)
	case "number":
		switch value.(type) {
		case float32, float64:
			return true
		}
		return isIntKind(value)
	default:
		return true
	}
}

func isIntKind(value any) bool {
	k := reflect.TypeOf(value).Kind()
	return k >= reflect.Int && k <= reflect.Uint64
}

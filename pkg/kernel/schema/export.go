package schema

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// jsonType maps a FieldType to the JSON Schema primitive it represents.
func jsonType(t FieldType) string {
	switch t {
	case TypeString:
		return "string"
	case TypeNumber:
		return "number"
	case TypeBoolean:
		return "boolean"
	case TypeArray:
		return "array"
	case TypeObject:
		return "object"
	default:
		return "string"
	}
}

// fieldSchema builds a single property schema for one FieldSpec.
func fieldSchema(f FieldSpec) *jsonschema.Schema {
	s := &jsonschema.Schema{
		Type:        jsonType(f.Type),
		Description: f.Description,
	}
	if f.Validation != nil {
		if f.Validation.Pattern != "" {
			s.Pattern = f.Validation.Pattern
		}
		if f.Validation.Min != nil {
			s.Minimum = jsonNumber(*f.Validation.Min)
		}
		if f.Validation.Max != nil {
			s.Maximum = jsonNumber(*f.Validation.Max)
		}
		if f.Validation.MinItems != nil {
			n := uint64(*f.Validation.MinItems)
			s.MinItems = &n
		}
		if f.Validation.MaxItems != nil {
			n := uint64(*f.Validation.MaxItems)
			s.MaxItems = &n
		}
	}
	for _, opt := range f.Options {
		s.Enum = append(s.Enum, opt)
	}
	return s
}

func jsonNumber(f float64) json.Number {
	return json.Number(fmt.Sprintf("%g", f))
}

// ExportSchema builds a JSON Schema document for a field map, in the
// supplied field order (falling back to map iteration when order is nil).
// Used by the Output Validator to check an assembled output against the
// declared output_contract. The HTTP/MCP surfaces do not use it; they return
// the raw FieldSpec maps.
func ExportSchema(fields map[string]FieldSpec, order []string) *jsonschema.Schema {
	root := &jsonschema.Schema{
		Type:       "object",
		Properties: jsonschema.NewProperties(),
	}
	names := order
	if len(names) == 0 {
		for name := range fields {
			names = append(names, name)
		}
	}
	for _, name := range names {
		f, ok := fields[name]
		if !ok {
			continue
		}
		root.Properties.Set(name, fieldSchema(f))
		if f.Required {
			root.Required = append(root.Required, name)
		}
	}
	return root
}

package schema

import (
	"encoding/json"
	"testing"
)

func TestExportSchemaMarksRequiredFieldsAndPreservesOrder(t *testing.T) {
	fields := map[string]FieldSpec{
		"name": {Type: TypeString, Required: true},
		"age":  {Type: TypeNumber},
	}
	doc := ExportSchema(fields, []string{"name", "age"})

	if doc.Type != "object" {
		t.Fatalf("expected an object schema, got %q", doc.Type)
	}
	if len(doc.Required) != 1 || doc.Required[0] != "name" {
		t.Fatalf("expected only %q required, got %v", "name", doc.Required)
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	props, ok := decoded["properties"].(map[string]any)
	if !ok {
		t.Fatalf("expected a properties object in the exported document, got %v", decoded)
	}
	if _, ok := props["age"]; !ok {
		t.Fatalf("expected age to be present as a property, got %v", props)
	}
}

func TestExportSchemaFallsBackToMapIterationWithoutOrder(t *testing.T) {
	fields := map[string]FieldSpec{"x": {Type: TypeBoolean}}
	doc := ExportSchema(fields, nil)

	raw, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	props, ok := decoded["properties"].(map[string]any)
	if !ok {
		t.Fatalf("expected a properties object in the exported document, got %v", decoded)
	}
	if _, ok := props["x"]; !ok {
		t.Fatal("expected x to be present even without an explicit order")
	}
}

package validate

import (
	"testing"

	"github.com/skillrun/skillrun/pkg/kernel/schema"
)

func TestValidateOutputPassesForMatchingContract(t *testing.T) {
	contract := schema.OutputContract{
		Fields: map[string]schema.FieldSpec{"greeting": {Type: schema.TypeString, Required: true}},
		Order:  []string{"greeting"},
	}
	r := ValidateOutput(map[string]any{"greeting": "hi"}, contract)
	if r.Failed {
		t.Fatalf("expected a pass, got %+v", r)
	}
}

func TestValidateOutputFailsOnMissingRequiredField(t *testing.T) {
	contract := schema.OutputContract{
		Fields: map[string]schema.FieldSpec{"greeting": {Type: schema.TypeString, Required: true}},
		Order:  []string{"greeting"},
	}
	r := ValidateOutput(map[string]any{}, contract)
	if !r.Failed {
		t.Fatal("expected a failure for a missing required field")
	}
}

func TestValidateOutputFailsOnWrongType(t *testing.T) {
	contract := schema.OutputContract{
		Fields: map[string]schema.FieldSpec{"count": {Type: schema.TypeNumber, Required: true}},
		Order:  []string{"count"},
	}
	r := ValidateOutput(map[string]any{"count": "not a number"}, contract)
	if !r.Failed {
		t.Fatal("expected a failure for a type mismatch")
	}
}

func TestValidateOutputSkipsEmptyContract(t *testing.T) {
	r := ValidateOutput(map[string]any{"anything": 1}, schema.OutputContract{})
	if r.Failed {
		t.Fatalf("expected no checks against an empty contract, got %+v", r)
	}
}

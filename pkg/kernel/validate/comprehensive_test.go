package validate

import (
	"testing"

	"github.com/skillrun/skillrun/pkg/kernel/cond"
	"github.com/skillrun/skillrun/pkg/kernel/schema"
)

func baseSkill() *schema.Skill {
	return &schema.Skill{
		ID: "greet", Version: "1.0.0",
		InputSchema: map[string]schema.FieldSpec{"name": {Type: schema.TypeString, Required: true}},
		Steps: []schema.Step{
			{Name: "say-hello", Kind: schema.KindTemplate, VarName: "greeting",
				Template: &schema.TemplateStepConfig{Template: "Hello {{name}}!"}},
		},
		OutputContract: schema.OutputContract{
			Fields: map[string]schema.FieldSpec{"greeting": {Type: schema.TypeString, Required: true}},
			Order:  []string{"greeting"},
		},
	}
}

func TestValidateSkillPassesOnWellFormedSkill(t *testing.T) {
	report := ValidateSkill(baseSkill(), nil)
	if !report.Valid {
		t.Fatalf("expected a clean skill to validate, got %+v", report.Issues)
	}
}

func TestValidateSkillFlagsUnresolvedVariable(t *testing.T) {
	sk := baseSkill()
	sk.Steps[0].Template.Template = "Hello {{nickname}}!"

	report := ValidateSkill(sk, nil)
	if report.Valid {
		t.Fatal("expected an unresolved-variable error")
	}
	found := false
	for _, iss := range report.Issues {
		if iss.Category == CategoryDataFlow && iss.Level == LevelError {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a DATA_FLOW error, got %+v", report.Issues)
	}
}

func TestValidateSkillFlagsOutOfScopeWhenGuard(t *testing.T) {
	sk := baseSkill()
	expr, err := cond.Parse("ghost == true")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	sk.Steps[0].When = expr
	sk.Steps[0].WhenExpr = "ghost == true"

	report := ValidateSkill(sk, nil)
	found := false
	for _, iss := range report.Issues {
		if iss.Category == CategoryLogic && iss.Level == LevelError {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a LOGIC error for an out-of-scope when guard, got %+v", report.Issues)
	}
}

func TestValidateSkillFlagsUnknownTool(t *testing.T) {
	sk := baseSkill()
	sk.Steps = append(sk.Steps, schema.Step{
		Name: "call-it", Kind: schema.KindTool,
		Tool: &schema.ToolStepConfig{ToolName: "missing"},
	})

	report := ValidateSkill(sk, map[string]KnownTool{})
	found := false
	for _, iss := range report.Issues {
		if iss.Category == CategoryTool && iss.Level == LevelError {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a TOOL error for an unknown tool, got %+v", report.Issues)
	}
}

func TestValidateSkillFlagsUnproducibleOutput(t *testing.T) {
	sk := baseSkill()
	sk.OutputContract.Fields["extra"] = schema.FieldSpec{Type: schema.TypeString}
	sk.OutputContract.Order = append(sk.OutputContract.Order, "extra")

	report := ValidateSkill(sk, nil)
	found := false
	for _, iss := range report.Issues {
		if iss.Category == CategorySchema && iss.Level == LevelError {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a SCHEMA error for an unproducible output field, got %+v", report.Issues)
	}
}

func TestValidateSkillFlagsUnreachableStep(t *testing.T) {
	sk := baseSkill()
	sk.Steps[0].WhenExpr = "false"

	report := ValidateSkill(sk, nil)
	found := false
	for _, iss := range report.Issues {
		if iss.Category == CategoryLogic && iss.Level == LevelSuggestion {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected an unreachable-step suggestion, got %+v", report.Issues)
	}
}

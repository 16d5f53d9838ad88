package eval

import (
	"testing"

	"github.com/skillrun/skillrun/pkg/kernel/value"
)

func TestRenderSimplePath(t *testing.T) {
	out, err := Render("Hello {{name}}!", map[string]any{"name": "Ada"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "Hello Ada!" {
		t.Fatalf("got %q", out)
	}
}

func TestRenderMissingVariableIsEmpty(t *testing.T) {
	out, err := Render("Hello {{missing}}!", map[string]any{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "Hello !" {
		t.Fatalf("got %q", out)
	}
}

func TestRenderUnterminatedSiteErrors(t *testing.T) {
	_, err := Render("Hi {{who", map[string]any{})
	if err == nil {
		t.Fatal("expected a template error for unterminated site")
	}
}

func TestRenderUnbalancedForErrors(t *testing.T) {
	_, err := Render("{{#for xs}}x", map[string]any{"xs": []any{1}})
	if err == nil {
		t.Fatal("expected a template error for unbalanced #for")
	}
}

func TestRenderForLoop(t *testing.T) {
	out, err := Render("{{#for items}}[{{_}}]{{/for}}", map[string]any{
		"items": []any{"a", "b", "c"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "[a][b][c]" {
		t.Fatalf("got %q", out)
	}
}

func TestRenderForLoopOverObjects(t *testing.T) {
	out, err := Render("{{#for rows}}{{_.name}},{{/for}}", map[string]any{
		"rows": []any{
			map[string]any{"name": "x"},
			map[string]any{"name": "y"},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "x,y," {
		t.Fatalf("got %q", out)
	}
}

func TestRenderArithmetic(t *testing.T) {
	out, err := Render("{{a + b}}", map[string]any{"a": float64(2), "b": float64(3)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "5" {
		t.Fatalf("got %q", out)
	}
}

func TestRenderDivisionByZeroIsZero(t *testing.T) {
	out, err := Render("{{a / b}}", map[string]any{"a": float64(4), "b": float64(0)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "0" {
		t.Fatalf("got %q", out)
	}
}

func TestRenderStringConcatenation(t *testing.T) {
	out, err := Render(`{{"count: " + n}}`, map[string]any{"n": float64(7)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "count: 7" {
		t.Fatalf("got %q", out)
	}
}

func TestRenderValuePreservesType(t *testing.T) {
	v, err := RenderValue("{{result}}", map[string]any{"result": value.Wrapper{Raw: map[string]any{"ok": true}}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	m, ok := v.(map[string]any)
	if !ok {
		t.Fatalf("expected map[string]any, got %T", v)
	}
	if m["ok"] != true {
		t.Fatalf("got %v", m)
	}
}

func TestRenderValueDotValueAccessor(t *testing.T) {
	v, err := RenderValue("{{step.value}}", map[string]any{"step": value.Wrapper{Raw: float64(42)}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != float64(42) {
		t.Fatalf("got %v (%T)", v, v)
	}
}

func TestRenderIndexing(t *testing.T) {
	out, err := Render("{{items[1]}}", map[string]any{"items": []any{"a", "b", "c"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "b" {
		t.Fatalf("got %q", out)
	}
}

func TestRenderVariableIndexing(t *testing.T) {
	out, err := Render("{{items[#idx]}}", map[string]any{
		"items": []any{"a", "b", "c"},
		"idx":   float64(2),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "c" {
		t.Fatalf("got %q", out)
	}
}

func TestExtractVariablesExcludesLoopBinding(t *testing.T) {
	vars := ExtractVariables("{{#for items}}{{_.name}} owes {{amount}}{{/for}}")
	if !vars["items"] || !vars["amount"] {
		t.Fatalf("expected items and amount, got %v", vars)
	}
	if vars["_"] {
		t.Fatalf("did not expect _ to be reported: %v", vars)
	}
}

func TestRenderStructurePreservesNestedTypes(t *testing.T) {
	in := map[string]any{
		"greeting": "Hi {{name}}",
		"count":    "{{n}}",
		"nested":   []any{"{{n}}", "literal"},
	}
	out, err := RenderStructure(in, map[string]any{"name": "Ada", "n": float64(3)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	m := out.(map[string]any)
	if m["greeting"] != "Hi Ada" {
		t.Fatalf("got %v", m["greeting"])
	}
	if m["count"] != float64(3) {
		t.Fatalf("expected native number, got %v (%T)", m["count"], m["count"])
	}
	nested := m["nested"].([]any)
	if nested[0] != float64(3) || nested[1] != "literal" {
		t.Fatalf("got %v", nested)
	}
}

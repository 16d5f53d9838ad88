package schema

import "testing"

func sampleStep(name string) Step {
	return Step{Name: name, Kind: KindTemplate, Template: &TemplateStepConfig{Template: "x"}}
}

func TestNewTrimsIDAndDefaultsCollections(t *testing.T) {
	sk, err := New("  greet  ", "1.0.0", "desc", nil, nil, nil, []Step{sampleStep("s1")}, OutputContract{}, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sk.ID != "greet" {
		t.Fatalf("expected trimmed id, got %q", sk.ID)
	}
	if sk.InputSchema == nil || sk.References == nil || sk.Extensions == nil {
		t.Fatal("expected nil collections to be defaulted to empty maps")
	}
}

func TestNewRejectsEmptyID(t *testing.T) {
	_, err := New("   ", "1.0.0", "", nil, nil, nil, []Step{sampleStep("s1")}, OutputContract{}, nil, nil)
	if err == nil {
		t.Fatal("expected an error for an empty id")
	}
}

func TestNewRejectsNoSteps(t *testing.T) {
	_, err := New("greet", "1.0.0", "", nil, nil, nil, nil, OutputContract{}, nil, nil)
	if err == nil {
		t.Fatal("expected an error for a skill with no steps")
	}
}

func TestNewRejectsDuplicateStepNames(t *testing.T) {
	_, err := New("greet", "1.0.0", "", nil, nil, nil, []Step{sampleStep("s1"), sampleStep("s1")}, OutputContract{}, nil, nil)
	if err == nil {
		t.Fatal("expected an error for duplicate step names")
	}
}

func TestGetStepAndStepIndex(t *testing.T) {
	sk, err := New("greet", "1.0.0", "", nil, nil, nil, []Step{sampleStep("a"), sampleStep("b")}, OutputContract{}, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if idx := sk.StepIndex("b"); idx != 1 {
		t.Fatalf("expected index 1, got %d", idx)
	}
	if idx := sk.StepIndex("missing"); idx != -1 {
		t.Fatalf("expected -1 for a missing step, got %d", idx)
	}
	st, ok := sk.GetStep("a")
	if !ok || st.Name != "a" {
		t.Fatalf("expected to find step %q, got %+v ok=%v", "a", st, ok)
	}
	if _, ok := sk.GetStep("missing"); ok {
		t.Fatal("expected GetStep to report false for a missing step")
	}
}

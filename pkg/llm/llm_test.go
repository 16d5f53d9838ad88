package llm

import (
	"context"
	"testing"
)

func TestNoopAdapterAlwaysFails(t *testing.T) {
	var a NoopAdapter
	if _, err := a.Complete(context.Background(), "hi"); err == nil {
		t.Fatal("expected the noop adapter to always fail")
	}
}

func TestNewGenAIAdapterRequiresAKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	if _, err := NewGenAIAdapter(context.Background(), GenAIConfig{}); err == nil {
		t.Fatal("expected an error when neither APIKey nor GEMINI_API_KEY is set")
	}
}

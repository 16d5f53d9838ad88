// Package llm provides the PROMPT step's LLMAdapter implementations: a
// Gemini-backed adapter and a no-op fallback for runs with no model
// configured (the binaries' default when the genai adapter is not selected
// or cannot be constructed).
package llm

import (
	"context"
	"fmt"
	"os"

	"google.golang.org/genai"
)

// Adapter is the synchronous interface step.Executors.LLM expects.
type Adapter interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// GenAIAdapter completes PROMPT steps against a Gemini model via
// google.golang.org/genai.
type GenAIAdapter struct {
	client *genai.Client
	model  string
}

// GenAIConfig configures a GenAIAdapter. APIKey, left empty, falls back to
// the GEMINI_API_KEY environment variable; Model, left empty, defaults to
// "gemini-2.0-flash".
type GenAIConfig struct {
	APIKey string
	Model  string
}

// NewGenAIAdapter resolves credentials (constructor override -> env var ->
// unavailable) and constructs the client eagerly so misconfiguration
// surfaces at startup rather than on the first PROMPT step.
func NewGenAIAdapter(ctx context.Context, cfg GenAIConfig) (*GenAIAdapter, error) {
	key := cfg.APIKey
	if key == "" {
		key = os.Getenv("GEMINI_API_KEY")
	}
	if key == "" {
		return nil, fmt.Errorf("no Gemini API key: set GenAIConfig.APIKey or GEMINI_API_KEY")
	}
	model := cfg.Model
	if model == "" {
		model = "gemini-2.0-flash"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: key, Backend: genai.BackendGeminiAPI})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &GenAIAdapter{client: client, model: model}, nil
}

// Complete sends prompt as a single user turn and returns the model's text.
func (a *GenAIAdapter) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := a.client.Models.GenerateContent(ctx, a.model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("genai generate content: %w", err)
	}
	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("genai returned an empty completion")
	}
	return text, nil
}

// NoopAdapter always fails, used wherever LLMAdapter must be non-nil but no
// model is actually configured — Executors.executePrompt reports the
// failure through the step result rather than this type masking it.
type NoopAdapter struct{}

func (NoopAdapter) Complete(ctx context.Context, prompt string) (string, error) {
	return "", fmt.Errorf("no LLM adapter configured")
}

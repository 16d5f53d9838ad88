package mcp

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/skillrun/skillrun/pkg/kernel/engine"
	"github.com/skillrun/skillrun/pkg/kernel/step"
	"github.com/skillrun/skillrun/pkg/kernel/store"
	"github.com/skillrun/skillrun/pkg/repo"
)

const sampleSkill = `# skill: greet-user

## description
Greets a user by name.

## input
` + "```yaml" + `
name:
  type: string
  required: true
` + "```" + `

## steps

### step: say-hello
**type**: template
**varName**: greeting
` + "```template" + `
Hello {{name}}!
` + "```" + `

## output
` + "```yaml" + `
greeting:
  type: string
  required: true
` + "```" + `
`

func newTestHandlers(t *testing.T) *Handlers {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "greet-user.md"), []byte(sampleSkill), 0o644); err != nil {
		t.Fatal(err)
	}
	r, err := repo.New(dir, nil)
	if err != nil {
		t.Fatalf("repo.New: %v", err)
	}
	eng := engine.New(&step.Executors{}, store.NewMemoryStore(time.Hour))
	return &Handlers{Repo: r, Engine: eng}
}

func callRequest(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func TestHandleListReturnsLoadedSkills(t *testing.T) {
	h := newTestHandlers(t)
	res, err := h.HandleList(context.Background(), callRequest(nil))
	if err != nil || res.IsError {
		t.Fatalf("unexpected error result: %v %+v", err, res)
	}
	text := res.Content[0].(mcp.TextContent).Text
	var out []skillSummary
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		t.Fatal(err)
	}
	if len(out) != 1 || out[0].ID != "greet-user" {
		t.Fatalf("got %+v", out)
	}
}

func TestHandleExecuteCompletesSkill(t *testing.T) {
	h := newTestHandlers(t)
	res, err := h.HandleExecute(context.Background(), callRequest(map[string]any{
		"skillId": "greet-user",
		"inputs":  map[string]any{"name": "Ada"},
	}))
	if err != nil || res.IsError {
		t.Fatalf("unexpected error result: %v %+v", err, res)
	}
	var out executeResponse
	if err := json.Unmarshal([]byte(res.Content[0].(mcp.TextContent).Text), &out); err != nil {
		t.Fatal(err)
	}
	if out.Status != "COMPLETED" || !out.Success {
		t.Fatalf("got %+v", out)
	}
}

func TestHandleExecuteUnknownSkillErrors(t *testing.T) {
	h := newTestHandlers(t)
	res, err := h.HandleExecute(context.Background(), callRequest(map[string]any{"skillId": "nope"}))
	if err != nil {
		t.Fatal(err)
	}
	if !res.IsError {
		t.Fatal("expected an error result for an unknown skill id")
	}
}

func TestHandleValidateReportsIssues(t *testing.T) {
	h := newTestHandlers(t)
	res, err := h.HandleValidate(context.Background(), callRequest(map[string]any{"markdown": sampleSkill}))
	if err != nil || res.IsError {
		t.Fatalf("unexpected error result: %v %+v", err, res)
	}
	var out map[string]any
	if err := json.Unmarshal([]byte(res.Content[0].(mcp.TextContent).Text), &out); err != nil {
		t.Fatal(err)
	}
	if valid, _ := out["valid"].(bool); !valid {
		t.Fatalf("expected valid, got %+v", out)
	}
}

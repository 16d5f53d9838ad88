package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/skillrun/skillrun/pkg/kernel/engine"
	"github.com/skillrun/skillrun/pkg/kernel/step"
	"github.com/skillrun/skillrun/pkg/kernel/store"
	"github.com/skillrun/skillrun/pkg/repo"
)

const sampleSkill = `# skill: greet-user

## version
1.0.0

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
` + "```template" + `
Hello {{name}}!
` + "```" + `

### step: ask-confirmation
**varName**: confirmed
` + "```yaml" + `
message: "Did that sound right?"
input_schema:
  ok:
    type: boolean
    required: true
` + "```" + `

## output
` + "```yaml" + `
greeting:
  type: string
  required: true
` + "```" + `
`

func newTestServer(t *testing.T) *Server {
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
	return New(r, eng, nil, nil)
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestListSkills(t *testing.T) {
	s := newTestServer(t)
	rec := doJSON(t, s.Router(), http.MethodGet, "/skills", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("got status %d", rec.Code)
	}
	var out []skillSummary
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatal(err)
	}
	if len(out) != 1 || out[0].ID != "greet-user" {
		t.Fatalf("got %+v", out)
	}
}

func TestGetSkillNotFound(t *testing.T) {
	s := newTestServer(t)
	rec := doJSON(t, s.Router(), http.MethodGet, "/skills/missing", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("got status %d", rec.Code)
	}
}

func TestExecuteThenResumeFlow(t *testing.T) {
	s := newTestServer(t)

	execRec := doJSON(t, s.Router(), http.MethodPost, "/skills/execute", executeRequest{
		SkillID: "greet-user",
		Inputs:  map[string]any{"name": "Ada"},
	})
	if execRec.Code != http.StatusOK {
		t.Fatalf("execute: got status %d body %s", execRec.Code, execRec.Body.String())
	}
	var execResp executeResponse
	if err := json.Unmarshal(execRec.Body.Bytes(), &execResp); err != nil {
		t.Fatal(err)
	}
	if execResp.Status != "WAITING_FOR_INPUT" || execResp.ExecutionID == "" {
		t.Fatalf("expected a paused execution, got %+v", execResp)
	}
	if execResp.AwaitMessage != "Did that sound right?" {
		t.Fatalf("unexpected await message: %q", execResp.AwaitMessage)
	}

	resumeRec := doJSON(t, s.Router(), http.MethodPost, "/skills/resume", resumeRequest{
		ExecutionID: execResp.ExecutionID,
		SkillID:     "greet-user",
		Inputs:      map[string]any{"ok": true},
	})
	if resumeRec.Code != http.StatusOK {
		t.Fatalf("resume: got status %d body %s", resumeRec.Code, resumeRec.Body.String())
	}

	conflictRec := doJSON(t, s.Router(), http.MethodPost, "/skills/resume", resumeRequest{
		ExecutionID: execResp.ExecutionID,
		SkillID:     "greet-user",
		Inputs:      map[string]any{"ok": true},
	})
	if conflictRec.Code != http.StatusConflict {
		t.Fatalf("expected 409 on double resume, got %d", conflictRec.Code)
	}
}

func TestResumeUnknownExecutionID(t *testing.T) {
	s := newTestServer(t)
	rec := doJSON(t, s.Router(), http.MethodPost, "/skills/resume", resumeRequest{
		ExecutionID: "does-not-exist",
		SkillID:     "greet-user",
		Inputs:      map[string]any{"ok": true},
	})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("got status %d", rec.Code)
	}
}

func TestValidateMarkdown(t *testing.T) {
	s := newTestServer(t)
	rec := doJSON(t, s.Router(), http.MethodPost, "/skills/validate", validateRequest{Markdown: sampleSkill})
	if rec.Code != http.StatusOK {
		t.Fatalf("got status %d", rec.Code)
	}
	var out validateResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatal(err)
	}
	if !out.Valid {
		t.Fatalf("expected valid, got %+v", out)
	}

	badRec := doJSON(t, s.Router(), http.MethodPost, "/skills/validate", validateRequest{Markdown: "not a skill"})
	var bad validateResponse
	if err := json.Unmarshal(badRec.Body.Bytes(), &bad); err != nil {
		t.Fatal(err)
	}
	if bad.Valid {
		t.Fatal("expected invalid markdown to fail")
	}
}

func TestValidateAllSkills(t *testing.T) {
	s := newTestServer(t)
	rec := doJSON(t, s.Router(), http.MethodGet, "/validate/skills", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("got status %d", rec.Code)
	}
}

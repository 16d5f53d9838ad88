package repo

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const sample = `# skill: greet

## description
Says hello.

## input
` + "```yaml" + `
name: string
` + "```" + `

## steps

### step: say-hello
**type**: template
` + "```template" + `
Hi {{name}}
` + "```" + `
`

func writeSkill(t *testing.T, dir, name, id string) string {
	t.Helper()
	content := strings.ReplaceAll(sample, "greet", id)
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestNewIndexesExistingFiles(t *testing.T) {
	dir := t.TempDir()
	writeSkill(t, dir, "greet.md", "greet")

	r, err := New(dir, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := r.Get("greet"); !ok {
		t.Fatal("expected the pre-existing skill to be indexed")
	}
	if len(r.List()) != 1 {
		t.Fatalf("expected 1 skill, got %d", len(r.List()))
	}
}

func TestWatchPicksUpNewFile(t *testing.T) {
	dir := t.TempDir()
	r, err := New(dir, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := r.Watch(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer r.Close()

	writeSkill(t, dir, "added.md", "added")

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if _, ok := r.Get("added"); ok {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("expected the watcher to index the new file within the deadline")
}

func TestWatchRemovesDeletedFile(t *testing.T) {
	dir := t.TempDir()
	path := writeSkill(t, dir, "gone.md", "gone")

	r, err := New(dir, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := r.Watch(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer r.Close()

	os.Remove(path)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if _, ok := r.Get("gone"); !ok {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("expected the watcher to remove the deleted skill within the deadline")
}

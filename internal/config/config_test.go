package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaultsWithNoFileOrEnv(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.SkillsDir != "./skills" || cfg.HTTPAddr != ":8080" || cfg.StoreTTL != 24*time.Hour {
		t.Fatalf("expected compiled-in defaults, got %+v", cfg)
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("skills_dir: /srv/skills\nhttp_addr: \":9090\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.SkillsDir != "/srv/skills" || cfg.HTTPAddr != ":9090" {
		t.Fatalf("expected file values to override defaults, got %+v", cfg)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("skills_dir: /srv/skills\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("SKILLRUN_SKILLS_DIR", "/env/skills")
	t.Setenv("SKILLRUN_STORE_TTL", "2h")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.SkillsDir != "/env/skills" {
		t.Fatalf("expected env to win over file, got %q", cfg.SkillsDir)
	}
	if cfg.StoreTTL != 2*time.Hour {
		t.Fatalf("expected parsed duration override, got %v", cfg.StoreTTL)
	}
}

func TestMissingConfigFileIsNotAnError(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("expected a missing config file to fall back to defaults, got %v", err)
	}
	if cfg.SkillsDir != "./skills" {
		t.Fatalf("expected defaults, got %+v", cfg)
	}
}

func TestGeminiAPIKeyPromotesAdapter(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "test-key")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.LLMAdapter != "genai" {
		t.Fatalf("expected GEMINI_API_KEY presence to select the genai adapter, got %q", cfg.LLMAdapter)
	}
}

// Package config assembles the process-wide Config from, in ascending
// priority: compiled-in defaults, a YAML file, SKILLRUN_* environment
// variables, and finally CLI flags (applied by the caller after Load
// returns, by overriding the returned Config's fields) — the same override chain the rest of
// the stack uses for adapter credentials.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the single struct every long-running binary (server, MCP
// process, CLI) threads through instead of reading the environment ad hoc.
type Config struct {
	SkillsDir  string        `yaml:"skills_dir"`
	HTTPAddr   string        `yaml:"http_addr"`
	TracePath  string        `yaml:"trace_path"`
	StoreTTL   time.Duration `yaml:"store_ttl"`
	StorePath  string        `yaml:"store_path"`
	LLMAdapter string        `yaml:"llm_adapter"`
	LogLevel   string        `yaml:"log_level"`
}

// Defaults returns the compiled-in baseline.
func Defaults() Config {
	return Config{
		SkillsDir:  "./skills",
		HTTPAddr:   ":8080",
		TracePath:  "",
		StoreTTL:   24 * time.Hour,
		StorePath:  "",
		LLMAdapter: "noop",
		LogLevel:   "info",
	}
}

// Load assembles a Config: defaults, then configPath (if non-empty and
// present), then SKILLRUN_* / GEMINI_API_KEY environment variables. CLI
// flags are applied afterward by the caller, which holds the flag set.
func Load(configPath string) (Config, error) {
	cfg := Defaults()

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			if !os.IsNotExist(err) {
				return cfg, fmt.Errorf("read config file: %w", err)
			}
		} else if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config file %s: %w", configPath, err)
		}
	}

	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v, ok := os.LookupEnv("SKILLRUN_SKILLS_DIR"); ok {
		cfg.SkillsDir = v
	}
	if v, ok := os.LookupEnv("SKILLRUN_HTTP_ADDR"); ok {
		cfg.HTTPAddr = v
	}
	if v, ok := os.LookupEnv("SKILLRUN_TRACE_PATH"); ok {
		cfg.TracePath = v
	}
	if v, ok := os.LookupEnv("SKILLRUN_STORE_TTL"); ok {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.StoreTTL = d
		} else if n, err := strconv.Atoi(v); err == nil {
			cfg.StoreTTL = time.Duration(n) * time.Second
		}
	}
	if v, ok := os.LookupEnv("SKILLRUN_STORE_PATH"); ok {
		cfg.StorePath = v
	}
	if v, ok := os.LookupEnv("SKILLRUN_LOG_LEVEL"); ok {
		cfg.LogLevel = v
	}
	if _, ok := os.LookupEnv("GEMINI_API_KEY"); ok && cfg.LLMAdapter == "noop" {
		cfg.LLMAdapter = "genai"
	}
}

// Package main provides the skillrun-mcp binary: an MCP server exposing
// skill_list/skill_execute/skill_resume/skill_validate over stdio for an
// MCP-speaking agent host.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/server"

	"github.com/skillrun/skillrun/internal/config"
	"github.com/skillrun/skillrun/internal/logging"
	"github.com/skillrun/skillrun/pkg/ecosystem/mcp"
	"github.com/skillrun/skillrun/pkg/kernel/engine"
	"github.com/skillrun/skillrun/pkg/kernel/step"
	"github.com/skillrun/skillrun/pkg/kernel/store"
	"github.com/skillrun/skillrun/pkg/llm"
	"github.com/skillrun/skillrun/pkg/repo"
)

var version = "dev"

func main() {
	cfg, err := config.Load(os.Getenv("SKILLRUN_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	log := logging.New(cfg.LogLevel)

	r, err := repo.New(cfg.SkillsDir, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := r.Watch(); err != nil {
		log.Warn("skill directory watch failed", "err", err)
	}
	defer r.Close()

	st, err := buildStore(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	eng := engine.New(&step.Executors{
		Tools: step.MapRegistry{},
		LLM:   buildLLM(cfg, log),
	}, st)

	h := &mcp.Handlers{Repo: r, Engine: eng}
	s := mcp.NewServer(version, h)
	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func buildStore(cfg config.Config) (store.Store, error) {
	if cfg.StorePath == "" {
		return store.NewMemoryStore(cfg.StoreTTL), nil
	}
	return store.NewFileStore(cfg.StorePath, cfg.StoreTTL)
}

func buildLLM(cfg config.Config, log logging.Logger) step.LLMAdapter {
	if cfg.LLMAdapter != "genai" {
		return llm.NoopAdapter{}
	}
	adapter, err := llm.NewGenAIAdapter(context.Background(), llm.GenAIConfig{})
	if err != nil {
		log.Warn("genai adapter unavailable, falling back to noop", "err", err)
		return llm.NoopAdapter{}
	}
	return adapter
}

// Command skillrun-tui launches directly into one Skill's execution,
// rendering its description, a scrolling step log, and any AWAIT pause as
// an interactive form, via a Bubble Tea program.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/skillrun/skillrun/internal/config"
	"github.com/skillrun/skillrun/internal/logging"
	"github.com/skillrun/skillrun/pkg/kernel/engine"
	kmarkdown "github.com/skillrun/skillrun/pkg/kernel/markdown"
	"github.com/skillrun/skillrun/pkg/kernel/step"
	"github.com/skillrun/skillrun/pkg/kernel/store"
	"github.com/skillrun/skillrun/pkg/llm"
)

func main() {
	file := flag.String("file", "", "Skill Markdown file to execute")
	cfgPath := flag.String("config", "", "Path to a YAML config file")
	flag.Parse()

	if *file == "" {
		fmt.Fprintln(os.Stderr, "usage: skillrun-tui --file <skill.md>")
		os.Exit(1)
	}

	data, err := os.ReadFile(*file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	skill, err := kmarkdown.Parse(data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	log := logging.New(cfg.LogLevel)

	var adapter step.LLMAdapter = llm.NoopAdapter{}
	if cfg.LLMAdapter == "genai" {
		if a, err := llm.NewGenAIAdapter(context.Background(), llm.GenAIConfig{}); err == nil {
			adapter = a
		} else {
			log.Warn("genai adapter unavailable, falling back to noop", "err", err)
		}
	}

	eng := engine.New(&step.Executors{Tools: step.MapRegistry{}, LLM: adapter}, store.NewMemoryStore(cfg.StoreTTL))
	eng.Log = log

	m := newModel(skill, eng)
	if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// Package main provides the skillrun CLI entrypoint.
//
//	skillrun run <file.md> [--input k=v]...
//	skillrun resume <execution-id> --input k=v...
//	skillrun validate <file.md>
//	skillrun list --dir <skills-dir>
//	skillrun serve --addr :8080
//	skillrun repl <file.md>
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/skillrun/skillrun/internal/config"
	"github.com/skillrun/skillrun/internal/logging"
	"github.com/skillrun/skillrun/pkg/kernel/engine"
	kctx "github.com/skillrun/skillrun/pkg/kernel/context"
	kmarkdown "github.com/skillrun/skillrun/pkg/kernel/markdown"
	"github.com/skillrun/skillrun/pkg/kernel/schema"
	"github.com/skillrun/skillrun/pkg/kernel/step"
	"github.com/skillrun/skillrun/pkg/kernel/store"
	"github.com/skillrun/skillrun/pkg/kernel/validate"
	"github.com/skillrun/skillrun/pkg/llm"
	"github.com/skillrun/skillrun/pkg/repo"
	"github.com/skillrun/skillrun/pkg/server"
	"github.com/skillrun/skillrun/pkg/trace"
)

var version = "dev"

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "skillrun",
	Short: "Skill Execution Engine CLI",
}

var cfgPath string

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "Path to a YAML config file")
	rootCmd.AddCommand(runCmd, resumeCmd, validateCmd, listCmd, serveCmd, replCmd, versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version info",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("skillrun %s\n", version)
	},
}

func loadConfig() (config.Config, error) {
	return config.Load(cfgPath)
}

func buildEngine(cfg config.Config, log logging.Logger) (*engine.Engine, error) {
	var st store.Store
	if cfg.StorePath != "" {
		fs, err := store.NewFileStore(cfg.StorePath, cfg.StoreTTL)
		if err != nil {
			return nil, fmt.Errorf("store: %w", err)
		}
		st = fs
	} else {
		st = store.NewMemoryStore(cfg.StoreTTL)
	}

	var adapter step.LLMAdapter = llm.NoopAdapter{}
	if cfg.LLMAdapter == "genai" {
		a, err := llm.NewGenAIAdapter(context.Background(), llm.GenAIConfig{})
		if err != nil {
			log.Warn("genai adapter unavailable, falling back to noop", "err", err)
		} else {
			adapter = a
		}
	}

	return engine.New(&step.Executors{Tools: step.MapRegistry{}, LLM: adapter}, st), nil
}

func parseInputFlags(raw []string) (map[string]any, error) {
	out := make(map[string]any, len(raw))
	for _, kv := range raw {
		parts := strings.SplitN(kv, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid --input %q: expected key=value", kv)
		}
		out[parts[0]] = parts[1]
	}
	return out, nil
}

func parseSkillFile(path string) (*schema.Skill, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return kmarkdown.Parse(data)
}

// --- run ---

var runInputs []string

var runCmd = &cobra.Command{
	Use:   "run <file.md>",
	Short: "Execute a Skill Markdown document",
	Args:  cobra.ExactArgs(1),
	RunE:  runRun,
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := logging.New(cfg.LogLevel)

	sk, err := parseSkillFile(args[0])
	if err != nil {
		return err
	}
	inputs, err := parseInputFlags(runInputs)
	if err != nil {
		return err
	}
	resolved, err := engine.ResolveInput(sk, inputs)
	if err != nil {
		return err
	}

	eng, err := buildEngine(cfg, log)
	if err != nil {
		return err
	}

	result := eng.Execute(context.Background(), sk, resolved)
	return printResult(sk, result)
}

func printResult(sk *schema.Skill, result kctx.SkillResult) error {
	switch result.Kind {
	case kctx.ResultSuccess:
		fmt.Printf("✓ %s completed (%s)\n", sk.ID, result.Duration)
		if len(result.Output) > 0 {
			enc, _ := json.MarshalIndent(result.Output, "", "  ")
			fmt.Println(string(enc))
		}
		return nil
	case kctx.ResultAwaiting:
		fmt.Printf("… %s paused, execution %s\n", sk.ID, result.ExecutionID)
		if result.AwaitRequest != nil {
			fmt.Printf("  %s\n", result.AwaitRequest.Message)
			for name, spec := range result.AwaitRequest.InputSchema {
				req := ""
				if spec.Required {
					req = " (required)"
				}
				fmt.Printf("  - %s: %s%s\n", name, spec.Type, req)
			}
		}
		fmt.Printf("resume with: skillrun resume %s --input ...\n", result.ExecutionID)
		return nil
	default:
		fmt.Printf("✗ %s failed (%s)\n", sk.ID, result.Duration)
		return fmt.Errorf("%s", result.Error)
	}
}

// --- resume ---

var (
	resumeInputs  []string
	resumeSkillID string
	resumeFile    string
)

var resumeCmd = &cobra.Command{
	Use:   "resume <execution-id>",
	Short: "Resume a paused execution",
	Args:  cobra.ExactArgs(1),
	RunE:  runResume,
}

func runResume(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := logging.New(cfg.LogLevel)

	var sk *schema.Skill
	switch {
	case resumeFile != "":
		sk, err = parseSkillFile(resumeFile)
	case resumeSkillID != "":
		r, rerr := repo.New(cfg.SkillsDir, log)
		if rerr != nil {
			return rerr
		}
		defer r.Close()
		var ok bool
		sk, ok = r.Get(resumeSkillID)
		if !ok {
			return fmt.Errorf("skill not found: %s", resumeSkillID)
		}
	default:
		return fmt.Errorf("resume requires --file or --skill-id to know which skill is resuming")
	}
	if err != nil {
		return err
	}

	inputs, err := parseInputFlags(resumeInputs)
	if err != nil {
		return err
	}
	eng, err := buildEngine(cfg, log)
	if err != nil {
		return err
	}

	result, err := eng.Resume(context.Background(), sk, args[0], inputs)
	if err != nil {
		return err
	}
	return printResult(sk, result)
}

// --- validate ---

var validateCmd = &cobra.Command{
	Use:   "validate <file.md>",
	Short: "Validate a Skill Markdown document",
	Args:  cobra.ExactArgs(1),
	RunE:  runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	sk, err := parseSkillFile(args[0])
	if err != nil {
		return err
	}
	report := validate.ValidateSkill(sk, nil)
	for _, issue := range report.Issues {
		icon := "⚠"
		if issue.Level == validate.LevelError {
			icon = "✗"
		}
		if issue.Step != "" {
			fmt.Printf("  %s [%s] %s: %s\n", icon, issue.Category, issue.Step, issue.Message)
		} else {
			fmt.Printf("  %s [%s] %s\n", icon, issue.Category, issue.Message)
		}
	}
	if !report.Valid {
		return fmt.Errorf("validation failed: %s", report.Summary)
	}
	fmt.Printf("✓ %s is valid (%d steps)\n", sk.ID, len(sk.Steps))
	return nil
}

// --- list ---

var listDir string

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List skills loaded from a directory",
	RunE:  runList,
}

func runList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	dir := listDir
	if dir == "" {
		dir = cfg.SkillsDir
	}
	log := logging.New(cfg.LogLevel)
	r, err := repo.New(dir, log)
	if err != nil {
		return err
	}
	defer r.Close()

	for _, sk := range r.List() {
		fmt.Printf("%s@%s  %s\n", sk.ID, sk.Version, sk.Description)
	}
	return nil
}

// --- serve ---

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	addr := serveAddr
	if addr == "" {
		addr = cfg.HTTPAddr
	}
	log := logging.New(cfg.LogLevel)

	r, err := repo.New(cfg.SkillsDir, log)
	if err != nil {
		return err
	}
	if werr := r.Watch(); werr != nil {
		log.Warn("skill directory watch failed", "err", werr)
	}
	defer r.Close()

	eng, err := buildEngine(cfg, log)
	if err != nil {
		return err
	}

	srv := server.New(r, eng, log, nil)
	log.Info("serving", "addr", addr)
	return http.ListenAndServe(addr, srv.Router())
}

// --- repl ---

var replCmd = &cobra.Command{
	Use:   "repl <file.md>",
	Short: "Step through a Skill interactively, answering AWAIT prompts as they arise",
	Args:  cobra.ExactArgs(1),
	RunE:  runRepl,
}

func runRepl(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := logging.New(cfg.LogLevel)

	sk, err := parseSkillFile(args[0])
	if err != nil {
		return err
	}

	rl, err := readline.NewEx(&readline.Config{Prompt: sk.ID + "> "})
	if err != nil {
		return err
	}
	defer rl.Close()

	prompt := func(label string) (string, error) {
		rl.SetPrompt(label)
		return rl.Readline()
	}

	inputs := map[string]any{}
	fmt.Printf("%s\n%s\n\n", sk.ID, sk.Description)
	for name, spec := range sk.InputSchema {
		if spec.DefaultValue != nil {
			continue
		}
		line, perr := prompt(fmt.Sprintf("%s (%s): ", name, spec.Type))
		if perr != nil {
			return perr
		}
		inputs[name] = line
	}
	resolved, err := engine.ResolveInput(sk, inputs)
	if err != nil {
		return err
	}

	eng, err := buildEngine(cfg, log)
	if err != nil {
		return err
	}

	tw := trace.NewWriter(os.Stderr, "", sk.ID)
	result := eng.Execute(context.Background(), sk, resolved)
	for result.Kind == kctx.ResultAwaiting {
		tw.EmitAwaiting("", result.AwaitRequest.Message)
		answers := map[string]any{}
		for name, spec := range result.AwaitRequest.InputSchema {
			line, perr := prompt(fmt.Sprintf("%s (%s): ", name, spec.Type))
			if perr != nil {
				return perr
			}
			answers[name] = line
		}
		result, err = eng.Resume(context.Background(), sk, result.ExecutionID, answers)
		if err != nil {
			return err
		}
	}
	return printResult(sk, result)
}

func init() {
	runCmd.Flags().StringArrayVar(&runInputs, "input", nil, "Set an input value (key=value), repeatable")

	resumeCmd.Flags().StringArrayVar(&resumeInputs, "input", nil, "Set an awaited input value (key=value), repeatable")
	resumeCmd.Flags().StringVar(&resumeSkillID, "skill-id", "", "Id of the skill being resumed, looked up in the configured skills_dir")
	resumeCmd.Flags().StringVar(&resumeFile, "file", "", "Skill Markdown file being resumed, instead of --skill-id")

	listCmd.Flags().StringVar(&listDir, "dir", "", "Skills directory (defaults to the configured skills_dir)")

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "HTTP listen address (defaults to the configured http_addr)")
}

package tool

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"regexp"
	"strings"

	"github.com/skillrun/skillrun/pkg/kernel/eval"
)

// ProcessProvider invokes a Manifest by spawning Command with rendered JSON
// input on stdin, then mapping its stdout per the manifest's extract rules.
type ProcessProvider struct {
	manifest Manifest
}

// NewProcessProvider wraps a process-transport manifest as a step.Tool.
func NewProcessProvider(m Manifest) (*ProcessProvider, error) {
	if err := m.validate(); err != nil {
		return nil, err
	}
	return &ProcessProvider{manifest: m}, nil
}

func (p *ProcessProvider) ValidateInput(rendered map[string]any) error {
	for name, spec := range p.manifest.InputSchema {
		if !spec.Required {
			continue
		}
		if _, ok := rendered[name]; !ok {
			return fmt.Errorf("tool %q: missing required input %q", p.manifest.Name, name)
		}
	}
	return nil
}

func (p *ProcessProvider) Execute(ctx context.Context, rendered map[string]any, put func(string, any)) error {
	args := make([]string, len(p.manifest.Args))
	for i, a := range p.manifest.Args {
		resolved, err := eval.Render(a, rendered)
		if err != nil {
			return fmt.Errorf("tool %q: argv[%d]: %w", p.manifest.Name, i, err)
		}
		args[i] = resolved
	}

	stdin, err := json.Marshal(rendered)
	if err != nil {
		return fmt.Errorf("tool %q: marshal input: %w", p.manifest.Name, err)
	}

	cmd := exec.CommandContext(ctx, p.manifest.Command, args...) //#nosec G204 -- command comes from an operator-authored manifest
	cmd.Stdin = bytes.NewReader(stdin)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ee, ok := err.(*exec.ExitError); ok {
			return fmt.Errorf("tool %q exited %d: %s", p.manifest.Name, ee.ExitCode(), strings.TrimSpace(stderr.String()))
		}
		return fmt.Errorf("tool %q: exec: %w", p.manifest.Name, err)
	}

	outputs, err := extractOutputs(p.manifest.Extract, stdout.String(), stderr.String())
	if err != nil {
		return fmt.Errorf("tool %q: %w", p.manifest.Name, err)
	}
	for name, v := range outputs {
		put(name, v)
	}
	return nil
}

func extractOutputs(rules map[string]ExtractRule, stdout, stderr string) (map[string]any, error) {
	out := make(map[string]any, len(rules))
	for name, rule := range rules {
		source := stdout
		if rule.From == "stderr" {
			source = stderr
		}
		if rule.From == "json" {
			var parsed map[string]any
			if err := json.Unmarshal([]byte(stdout), &parsed); err != nil {
				return nil, fmt.Errorf("extract %q: parse stdout as json: %w", name, err)
			}
			out[name] = jsonPath(parsed, rule.Path)
			continue
		}
		if rule.Pattern != "" {
			re, err := regexp.Compile(rule.Pattern)
			if err != nil {
				return nil, fmt.Errorf("extract %q: invalid pattern: %w", name, err)
			}
			match := re.FindStringSubmatch(strings.TrimSpace(source))
			switch len(match) {
			case 0:
			case 1:
				out[name] = match[0]
			default:
				out[name] = match[1]
			}
			continue
		}
		out[name] = strings.TrimSpace(source)
	}
	return out, nil
}

func jsonPath(obj map[string]any, path string) any {
	if path == "" {
		return obj
	}
	var current any = obj
	for _, part := range strings.Split(path, ".") {
		m, ok := current.(map[string]any)
		if !ok {
			return nil
		}
		current = m[part]
	}
	return current
}

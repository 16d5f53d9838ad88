// Package step implements the four kind-specific step executors (4.F):
// TOOL, PROMPT, AWAIT, TEMPLATE. All four share the contract
// execute(step, context) -> StepResult and record their own duration.
package step

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	kctx "github.com/skillrun/skillrun/pkg/kernel/context"
	"github.com/skillrun/skillrun/pkg/kernel/eval"
	"github.com/skillrun/skillrun/pkg/kernel/schema"
)

// Tool is a single named capability a TOOL step can invoke. Implementations
// live in pkg/tool (process-transport and mcp-transport providers).
type Tool interface {
	ValidateInput(rendered map[string]any) error
	// Execute runs the tool; any outputs it produces are written directly
	// through put, matching the context's output capability.
	Execute(ctx context.Context, rendered map[string]any, put func(name string, value any)) error
}

// ToolRegistry resolves a TOOL step's tool_name to a Tool.
type ToolRegistry interface {
	Lookup(name string) (Tool, bool)
}

// LLMAdapter is the synchronous interface a PROMPT step invokes.
// Implementations live in pkg/llm.
type LLMAdapter interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// MapRegistry is a trivial in-memory ToolRegistry.
type MapRegistry map[string]Tool

func (r MapRegistry) Lookup(name string) (Tool, bool) {
	t, ok := r[name]
	return t, ok
}

// Executors bundles the capabilities the TOOL and PROMPT executors need.
// A nil LLM or Tools is valid: PROMPT/TOOL steps then always fail with an
// explanatory message rather than panicking.
type Executors struct {
	Tools ToolRegistry
	LLM   LLMAdapter
}

// Execute dispatches a step to its kind-specific executor.
func (e *Executors) Execute(ctx context.Context, st *schema.Step, ec *kctx.Context) kctx.StepResult {
	switch st.Kind {
	case schema.KindTool:
		return e.executeTool(ctx, st, ec)
	case schema.KindPrompt:
		return e.executePrompt(ctx, st, ec)
	case schema.KindTemplate:
		return e.executeTemplate(st, ec)
	case schema.KindAwait:
		return e.executeAwait(st)
	default:
		return failResult(st.Name, time.Now(), fmt.Sprintf("unsupported step kind %q", st.Kind))
	}
}

func failResult(name string, start time.Time, msg string) kctx.StepResult {
	return kctx.StepResult{
		StepName:   name,
		Status:     kctx.StatusFailed,
		Error:      msg,
		DurationMS: time.Since(start).Milliseconds(),
	}
}

func successResult(name string, start time.Time, output any) kctx.StepResult {
	return kctx.StepResult{
		StepName:   name,
		Status:     kctx.StatusSuccess,
		Output:     output,
		DurationMS: time.Since(start).Milliseconds(),
	}
}

// ---------------------------------------------------------------------------
// TOOL
// ---------------------------------------------------------------------------

func (e *Executors) executeTool(ctx context.Context, st *schema.Step, ec *kctx.Context) kctx.StepResult {
	start := time.Now()
	if e.Tools == nil {
		return failResult(st.Name, start, "no tool registry configured")
	}
	tool, ok := e.Tools.Lookup(st.Tool.ToolName)
	if !ok {
		return failResult(st.Name, start, fmt.Sprintf("tool %q not found", st.Tool.ToolName))
	}

	renderedAny, err := eval.RenderStructure(toAny(st.Tool.InputTemplate), ec.BuildVariableView())
	if err != nil {
		return failResult(st.Name, start, err.Error())
	}
	rendered, _ := renderedAny.(map[string]any)
	rendered = reparseJSONLeaves(rendered).(map[string]any)

	if err := tool.ValidateInput(rendered); err != nil {
		return failResult(st.Name, start, err.Error())
	}
	if err := tool.Execute(ctx, rendered, ec.Put); err != nil {
		return failResult(st.Name, start, err.Error())
	}
	// Output is left nil for TOOL steps; the tool's variables live in the
	// context map via ec.Put.
	return successResult(st.Name, start, nil)
}

func toAny(m map[string]any) any {
	if m == nil {
		return map[string]any{}
	}
	return m
}

// reparseJSONLeaves walks a rendered structure and, for every string leaf
// that looks like JSON, parses it back into a structured value.
func reparseJSONLeaves(v any) any {
	switch t := v.(type) {
	case string:
		trimmed := strings.TrimSpace(t)
		if len(trimmed) < 2 {
			return v
		}
		first, last := trimmed[0], trimmed[len(trimmed)-1]
		looksJSON := (first == '{' && last == '}') || (first == '[' && last == ']')
		if !looksJSON {
			return v
		}
		var parsed any
		if err := json.Unmarshal([]byte(trimmed), &parsed); err != nil {
			return v
		}
		return parsed
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, sub := range t {
			out[k] = reparseJSONLeaves(sub)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, sub := range t {
			out[i] = reparseJSONLeaves(sub)
		}
		return out
	default:
		return v
	}
}

// ---------------------------------------------------------------------------
// PROMPT
// ---------------------------------------------------------------------------

func (e *Executors) executePrompt(ctx context.Context, st *schema.Step, ec *kctx.Context) kctx.StepResult {
	start := time.Now()
	rendered, err := eval.Render(st.Prompt.Template, ec.BuildVariableView())
	if err != nil {
		return failResult(st.Name, start, err.Error())
	}
	if e.LLM == nil {
		return failResult(st.Name, start, "no LLM adapter configured")
	}
	resp, err := e.LLM.Complete(ctx, rendered)
	if err != nil {
		return failResult(st.Name, start, err.Error())
	}
	if strings.TrimSpace(resp) == "" {
		return failResult(st.Name, start, "empty response")
	}
	return successResult(st.Name, start, resp)
}

// ---------------------------------------------------------------------------
// TEMPLATE
// ---------------------------------------------------------------------------

func (e *Executors) executeTemplate(st *schema.Step, ec *kctx.Context) kctx.StepResult {
	start := time.Now()
	rendered, err := eval.Render(st.Template.Template, ec.BuildVariableView())
	if err != nil {
		return failResult(st.Name, start, err.Error())
	}
	return successResult(st.Name, start, rendered)
}

// ---------------------------------------------------------------------------
// AWAIT
// ---------------------------------------------------------------------------

func (e *Executors) executeAwait(st *schema.Step) kctx.StepResult {
	start := time.Now()
	req := &kctx.AwaitRequest{Message: st.Await.Message, InputSchema: st.Await.InputSchema}
	return kctx.StepResult{
		StepName:   st.Name,
		Status:     kctx.StatusAwaiting,
		Output:     req,
		DurationMS: time.Since(start).Milliseconds(),
	}
}

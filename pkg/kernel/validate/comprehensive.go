package validate

import (
	"fmt"
	"time"

	"github.com/skillrun/skillrun/pkg/kernel/cond"
	"github.com/skillrun/skillrun/pkg/kernel/eval"
	"github.com/skillrun/skillrun/pkg/kernel/schema"
)

// Category is the area of a Skill an Issue concerns.
type Category string

const (
	CategorySyntax   Category = "SYNTAX"
	CategorySchema   Category = "SCHEMA"
	CategoryLogic    Category = "LOGIC"
	CategoryTool     Category = "TOOL"
	CategoryDataFlow Category = "DATA_FLOW"
)

// Level is an Issue's severity.
type Level string

const (
	LevelError      Level = "ERROR"
	LevelWarning    Level = "WARNING"
	LevelSuggestion Level = "SUGGESTION"
)

// Issue is one finding from the comprehensive validator.
type Issue struct {
	Category Category
	Level    Level
	Step     string // empty when the issue isn't step-scoped
	Message  string
}

// SkillValidationReport is ValidateSkill's result.
type SkillValidationReport struct {
	Valid   bool
	Summary string
	Issues  []Issue
	Counts  map[Level]int
	Timing  time.Duration
}

// KnownTool is the subset of a tool manifest the TOOL checks need.
type KnownTool struct {
	InputSchema map[string]schema.FieldSpec
}

// ValidateSkill runs the static SYNTAX/SCHEMA/LOGIC/TOOL/DATA_FLOW checks
// (4.J) over a parsed Skill. knownTools may be nil, in which case every
// TOOL-step check that needs a manifest is skipped rather than failed.
func ValidateSkill(skill *schema.Skill, knownTools map[string]KnownTool) SkillValidationReport {
	start := time.Now()
	var issues []Issue

	issues = append(issues, checkVariableResolution(skill)...)
	issues = append(issues, checkWhenScope(skill)...)
	issues = append(issues, checkToolReferences(skill, knownTools)...)
	issues = append(issues, checkOutputProducible(skill)...)
	issues = append(issues, checkUnreachableSteps(skill)...)

	counts := map[Level]int{}
	for _, iss := range issues {
		counts[iss.Level]++
	}
	valid := counts[LevelError] == 0
	summary := fmt.Sprintf("%d error(s), %d warning(s), %d suggestion(s)", counts[LevelError], counts[LevelWarning], counts[LevelSuggestion])

	return SkillValidationReport{
		Valid:   valid,
		Summary: summary,
		Issues:  issues,
		Counts:  counts,
		Timing:  time.Since(start),
	}
}

// inScopeNames returns every name resolvable in the variable view by the
// time step index i runs: declared inputs, every earlier step's name (and
// alias, if any), and "context".
func inScopeNames(skill *schema.Skill, i int) map[string]bool {
	scope := map[string]bool{"context": true}
	for name := range skill.InputSchema {
		scope[name] = true
	}
	for j := 0; j < i; j++ {
		st := skill.Steps[j]
		scope[st.Name] = true
		if st.VarName != "" {
			scope[st.VarName] = true
		}
		if st.Kind == schema.KindAwait {
			for field := range st.Await.InputSchema {
				scope[field] = true
			}
		}
	}
	return scope
}

// checkVariableResolution is check 1: every {{name}} in a step's rendered
// templates/input must resolve in scope at that point in the sequence.
func checkVariableResolution(skill *schema.Skill) []Issue {
	var issues []Issue
	for i, st := range skill.Steps {
		scope := inScopeNames(skill, i)
		for _, tmpl := range stepTemplates(st) {
			for name := range eval.ExtractVariables(tmpl) {
				if name == "" || scope[name] {
					continue
				}
				issues = append(issues, Issue{
					Category: CategoryDataFlow, Level: LevelError, Step: st.Name,
					Message: fmt.Sprintf("references unresolved variable %q", name),
				})
			}
		}
	}
	return issues
}

func stepTemplates(st schema.Step) []string {
	switch st.Kind {
	case schema.KindPrompt:
		return []string{st.Prompt.Template}
	case schema.KindTemplate:
		return []string{st.Template.Template}
	case schema.KindTool:
		var out []string
		collectStringLeaves(st.Tool.InputTemplate, &out)
		return out
	default:
		return nil
	}
}

func collectStringLeaves(v any, out *[]string) {
	switch t := v.(type) {
	case string:
		*out = append(*out, t)
	case map[string]any:
		for _, sub := range t {
			collectStringLeaves(sub, out)
		}
	case []any:
		for _, sub := range t {
			collectStringLeaves(sub, out)
		}
	}
}

// checkWhenScope is check 2: a `when` guard may only reference in-scope
// names.
func checkWhenScope(skill *schema.Skill) []Issue {
	var issues []Issue
	for i, st := range skill.Steps {
		if st.When == nil {
			continue
		}
		expr, ok := st.When.(cond.Expr)
		if !ok {
			continue
		}
		scope := inScopeNames(skill, i)
		for name := range cond.Identifiers(expr) {
			if !scope[name] {
				issues = append(issues, Issue{
					Category: CategoryLogic, Level: LevelError, Step: st.Name,
					Message: fmt.Sprintf("when guard references out-of-scope variable %q", name),
				})
			}
		}
	}
	return issues
}

// checkToolReferences is check 3: a TOOL step's tool_name must be known,
// and its rendered input_template's top-level keys must be accepted by the
// tool's declared input schema.
func checkToolReferences(skill *schema.Skill, knownTools map[string]KnownTool) []Issue {
	if knownTools == nil {
		return nil
	}
	var issues []Issue
	for _, st := range skill.Steps {
		if st.Kind != schema.KindTool {
			continue
		}
		tool, ok := knownTools[st.Tool.ToolName]
		if !ok {
			issues = append(issues, Issue{
				Category: CategoryTool, Level: LevelError, Step: st.Name,
				Message: fmt.Sprintf("tool %q is not known", st.Tool.ToolName),
			})
			continue
		}
		if len(tool.InputSchema) == 0 {
			continue
		}
		for key := range st.Tool.InputTemplate {
			if _, ok := tool.InputSchema[key]; !ok {
				issues = append(issues, Issue{
					Category: CategoryTool, Level: LevelWarning, Step: st.Name,
					Message: fmt.Sprintf("input field %q is not accepted by tool %q", key, st.Tool.ToolName),
				})
			}
		}
	}
	return issues
}

// checkOutputProducible is check 4: every output_contract key must be
// producible by some step name/alias or a context.* path.
func checkOutputProducible(skill *schema.Skill) []Issue {
	if len(skill.OutputContract.Fields) == 0 {
		return nil
	}
	scope := inScopeNames(skill, len(skill.Steps))
	var issues []Issue
	for _, name := range skill.OutputContract.Order {
		root := name
		for i, c := range name {
			if c == '.' {
				root = name[:i]
				break
			}
		}
		if !scope[root] {
			issues = append(issues, Issue{
				Category: CategorySchema, Level: LevelError,
				Message: fmt.Sprintf("output field %q is not producible by any step", name),
			})
		}
	}
	return issues
}

// checkUnreachableSteps is check 5: a step whose `when` guard is the
// literal "false" can never execute.
func checkUnreachableSteps(skill *schema.Skill) []Issue {
	var issues []Issue
	for _, st := range skill.Steps {
		if st.WhenExpr == "false" {
			issues = append(issues, Issue{
				Category: CategoryLogic, Level: LevelSuggestion, Step: st.Name,
				Message: "this step's when guard is always false and can never execute",
			})
		}
	}
	return issues
}

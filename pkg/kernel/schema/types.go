// Package schema defines the immutable Skill descriptor and its step,
// field, and output-contract value types.
package schema

import (
	"fmt"
	"strings"
)

// FieldType is the coarse set of types a FieldSpec or an output contract
// entry can declare.
type FieldType string

const (
	TypeString  FieldType = "string"
	TypeNumber  FieldType = "number"
	TypeBoolean FieldType = "boolean"
	TypeArray   FieldType = "array"
	TypeObject  FieldType = "object"
)

// Validation enumerates the constraints a FieldSpec may carry, modeled as a
// plain struct (not a free-form map) so the comprehensive validator can
// reason about it statically.
type Validation struct {
	Pattern  string
	Min      *float64
	Max      *float64
	MinItems *int
	MaxItems *int
	Message  string
}

// FieldSpec describes one input or output-contract field.
type FieldSpec struct {
	Type         FieldType
	Required     bool
	Description  string
	Placeholder  string
	DefaultValue any
	Options      []string
	UIHint       string
	Validation   *Validation
}

// StepKind enumerates the four step kinds the engine knows how to execute.
type StepKind string

const (
	KindTool     StepKind = "TOOL"
	KindPrompt   StepKind = "PROMPT"
	KindAwait    StepKind = "AWAIT"
	KindTemplate StepKind = "TEMPLATE"
)

// ToolStepConfig is the kind-specific configuration of a TOOL step.
type ToolStepConfig struct {
	ToolName      string
	InputTemplate map[string]any
	OutputFields  []string // advisory
}

// PromptStepConfig is the kind-specific configuration of a PROMPT step.
type PromptStepConfig struct {
	Template string
}

// TemplateStepConfig is the kind-specific configuration of a TEMPLATE step.
type TemplateStepConfig struct {
	Template string
}

// AwaitStepConfig is the kind-specific configuration of an AWAIT step.
type AwaitStepConfig struct {
	Message     string
	InputSchema map[string]FieldSpec
}

// WhenCondition is an opaque handle around a parsed condition AST. The
// concrete AST type lives in pkg/kernel/cond; schema only needs to carry it
// through parsing to execution without a circular import, so it is typed
// here as an interface implemented by cond.Expr.
type WhenCondition interface {
	Source() string
	Eval(vars map[string]any) bool
}

// Step is one node in a Skill's ordered sequence. Exactly one of the
// kind-specific config fields is populated, matching Kind.
type Step struct {
	Name    string
	Kind    StepKind
	VarName string // optional alias; empty means none

	WhenExpr string // original source text, empty means no guard
	When     WhenCondition

	Tool     *ToolStepConfig
	Prompt   *PromptStepConfig
	Await    *AwaitStepConfig
	Template *TemplateStepConfig
}

// Reference is an external asset declared by a `<!-- reference: path -->`
// directive.
type Reference struct {
	Path         string
	InferredType string
}

// OutputContract declares the shape of a Skill's final result.
type OutputContract struct {
	Fields map[string]FieldSpec // keyed lookup
	Order  []string             // preserves declaration order for deterministic iteration
}

// Skill is the immutable, parsed descriptor of one workflow document.
type Skill struct {
	ID             string
	Version        string
	Description    string
	Intents        []string
	InputSchema    map[string]FieldSpec
	InputOrder     []string
	Steps          []Step
	OutputContract OutputContract
	References     map[string]Reference
	Extensions     map[string]string
}

// GetStep returns the step with the given name, if any.
func (s *Skill) GetStep(name string) (*Step, bool) {
	for i := range s.Steps {
		if s.Steps[i].Name == name {
			return &s.Steps[i], true
		}
	}
	return nil, false
}

// StepIndex returns the index of the step with the given name, or -1.
func (s *Skill) StepIndex(name string) int {
	for i := range s.Steps {
		if s.Steps[i].Name == name {
			return i
		}
	}
	return -1
}

// Validate checks the structural invariants New relies on: non-empty id,
// at least one step, unique step names.
func (s *Skill) Validate() error {
	if strings.TrimSpace(s.ID) == "" {
		return fmt.Errorf("skill: id must not be empty")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("skill %q: must declare at least one step", s.ID)
	}
	seen := make(map[string]bool, len(s.Steps))
	for _, st := range s.Steps {
		if strings.TrimSpace(st.Name) == "" {
			return fmt.Errorf("skill %q: step names must not be empty", s.ID)
		}
		if seen[st.Name] {
			return fmt.Errorf("skill %q: duplicate step name %q", s.ID, st.Name)
		}
		seen[st.Name] = true
	}
	return nil
}

// New normalises raw fields into a Skill: trims the id, defaults nil
// collections to empty, and validates structural invariants.
func New(id, version, description string, intents []string, inputSchema map[string]FieldSpec, inputOrder []string, steps []Step, output OutputContract, refs map[string]Reference, ext map[string]string) (*Skill, error) {
	if inputSchema == nil {
		inputSchema = map[string]FieldSpec{}
	}
	if refs == nil {
		refs = map[string]Reference{}
	}
	if ext == nil {
		ext = map[string]string{}
	}
	if output.Fields == nil {
		output.Fields = map[string]FieldSpec{}
	}
	sk := &Skill{
		ID:             strings.TrimSpace(id),
		Version:        strings.TrimSpace(version),
		Description:    description,
		Intents:        intents,
		InputSchema:    inputSchema,
		InputOrder:     inputOrder,
		Steps:          steps,
		OutputContract: output,
		References:     refs,
		Extensions:     ext,
	}
	if err := sk.Validate(); err != nil {
		return nil, err
	}
	return sk, nil
}

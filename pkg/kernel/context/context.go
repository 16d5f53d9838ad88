// Package context implements the per-execution mutable record (§3, §4.E):
// the ExecutionContext that accumulates step results as a Skill runs, the
// StepResult/SkillResult value types produced along the way, and the
// ExecutionSnapshot durable record used to pause and resume a run.
package context

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/skillrun/skillrun/pkg/kernel/schema"
	"github.com/skillrun/skillrun/pkg/kernel/value"
)

// StepStatus is a Step's lifecycle state within one execution.
type StepStatus string

const (
	StatusPending  StepStatus = "PENDING"
	StatusRunning  StepStatus = "RUNNING"
	StatusSuccess  StepStatus = "SUCCESS"
	StatusFailed   StepStatus = "FAILED"
	StatusSkipped  StepStatus = "SKIPPED"
	StatusAwaiting StepStatus = "AWAITING"
)

// StepResult is the immutable outcome of executing one step.
type StepResult struct {
	StepName   string
	Status     StepStatus
	Output     any
	Error      string
	DurationMS int64
}

// AwaitRequest is the payload an AWAIT step produces: a message to present
// to a human plus the schema of the input it expects back.
type AwaitRequest struct {
	Message     string
	InputSchema map[string]schema.FieldSpec
}

// ResultKind is SkillResult's three-valued discriminant.
type ResultKind string

const (
	ResultSuccess  ResultKind = "SUCCESS"
	ResultFailure  ResultKind = "FAILURE"
	ResultAwaiting ResultKind = "AWAITING"
)

// SkillResult is the immutable, three-valued result of an execute/resume call.
type SkillResult struct {
	Kind         ResultKind
	Output       map[string]any
	Error        string
	ExecutionID  string
	AwaitRequest *AwaitRequest
	Steps        []StepResult
	Duration     time.Duration
}

func Success(output map[string]any, steps []StepResult, d time.Duration) SkillResult {
	return SkillResult{Kind: ResultSuccess, Output: output, Steps: steps, Duration: d}
}

func Failure(errMsg string, steps []StepResult, d time.Duration) SkillResult {
	return SkillResult{Kind: ResultFailure, Error: errMsg, Steps: steps, Duration: d}
}

func Awaiting(executionID string, req *AwaitRequest, steps []StepResult, d time.Duration) SkillResult {
	return SkillResult{Kind: ResultAwaiting, ExecutionID: executionID, AwaitRequest: req, Steps: steps, Duration: d}
}

// SnapshotStatus is an ExecutionSnapshot's lifecycle state.
type SnapshotStatus string

const (
	SnapshotActive    SnapshotStatus = "ACTIVE"
	SnapshotResumed   SnapshotStatus = "RESUMED"
	SnapshotExpired   SnapshotStatus = "EXPIRED"
	SnapshotCancelled SnapshotStatus = "CANCELLED"
)

// Snapshot is the durable record written when an execution suspends at an
// AWAIT step, and read back on resume.
type Snapshot struct {
	ExecutionID      string
	SkillID          string
	SkillVersion     string
	CurrentStepIndex int
	Context          *Context
	AwaitRequest     *AwaitRequest
	Status           SnapshotStatus
	CreatedAt        time.Time
	ExpiresAt        time.Time
}

// Context is the per-execution mutable record threaded through a Skill run.
type Context struct {
	ExecutionID string
	Input       map[string]any
	StartTime   time.Time
	Metadata    map[string]any

	stepResults []StepResult
	stepByName  map[string]StepResult
	awaitInputs map[string]map[string]any
	awaitOrder  []string          // step names, in the order AddAwaitInput was called
	varAliases  map[string]string // step name -> alias
	toolVars    map[string]any
}

// contextJSON mirrors Context's full state, including its unexported
// fields, so a FileStore can round-trip a Snapshot's Context through disk.
type contextJSON struct {
	ExecutionID string
	Input       map[string]any
	StartTime   time.Time
	Metadata    map[string]any
	StepResults []StepResult
	AwaitInputs map[string]map[string]any
	AwaitOrder  []string
	VarAliases  map[string]string
	ToolVars    map[string]any
}

func (c *Context) MarshalJSON() ([]byte, error) {
	return json.Marshal(contextJSON{
		ExecutionID: c.ExecutionID,
		Input:       c.Input,
		StartTime:   c.StartTime,
		Metadata:    c.Metadata,
		StepResults: c.stepResults,
		AwaitInputs: c.awaitInputs,
		AwaitOrder:  c.awaitOrder,
		VarAliases:  c.varAliases,
		ToolVars:    c.toolVars,
	})
}

func (c *Context) UnmarshalJSON(data []byte) error {
	var cj contextJSON
	if err := json.Unmarshal(data, &cj); err != nil {
		return err
	}
	*c = Context{
		ExecutionID: cj.ExecutionID,
		Input:       cj.Input,
		StartTime:   cj.StartTime,
		Metadata:    cj.Metadata,
		stepByName:  map[string]StepResult{},
		awaitInputs: cj.AwaitInputs,
		awaitOrder:  cj.AwaitOrder,
		varAliases:  cj.VarAliases,
		toolVars:    cj.ToolVars,
	}
	if c.awaitInputs == nil {
		c.awaitInputs = map[string]map[string]any{}
	}
	if c.awaitOrder == nil {
		// Snapshots written before AwaitOrder existed carry no ordering
		// record; fall back to a deterministic (if not necessarily
		// original) order rather than Go's randomized map iteration.
		for step := range c.awaitInputs {
			c.awaitOrder = append(c.awaitOrder, step)
		}
		sort.Strings(c.awaitOrder)
	}
	if c.varAliases == nil {
		c.varAliases = map[string]string{}
	}
	if c.toolVars == nil {
		c.toolVars = map[string]any{}
	}
	for _, r := range cj.StepResults {
		c.AddStepResult(r)
	}
	return nil
}

// New creates a fresh ExecutionContext for a new execution.
func New(input map[string]any) *Context {
	if input == nil {
		input = map[string]any{}
	}
	return &Context{
		ExecutionID: uuid.NewString(),
		Input:       input,
		StartTime:   time.Now(),
		Metadata:    map[string]any{},
		stepByName:  map[string]StepResult{},
		awaitInputs: map[string]map[string]any{},
		varAliases:  map[string]string{},
		toolVars:    map[string]any{},
	}
}

// ForResume reconstitutes a Context equivalent to the state at suspension.
// The engine re-registers aliases for pre-suspension steps afterward,
// because alias registrations are not persisted directly.
func ForResume(executionID string, input map[string]any, existingResults []StepResult, existingAwaitInputs map[string]map[string]any, metadata map[string]any) *Context {
	c := New(input)
	c.ExecutionID = executionID
	if metadata != nil {
		c.Metadata = metadata
	}
	for _, r := range existingResults {
		c.AddStepResult(r)
	}
	// existingAwaitInputs arrives as a plain map, so true insertion order
	// isn't recoverable here; sort the keys for a deterministic (if not
	// necessarily original) flattening order instead of a random one.
	steps := make([]string, 0, len(existingAwaitInputs))
	for step := range existingAwaitInputs {
		steps = append(steps, step)
	}
	sort.Strings(steps)
	for _, step := range steps {
		c.awaitInputs[step] = existingAwaitInputs[step]
		c.awaitOrder = append(c.awaitOrder, step)
	}
	return c
}

// InputValue fetches a key from the original caller-supplied input.
func (c *Context) InputValue(key string, def any) any {
	if v, ok := c.Input[key]; ok {
		return v
	}
	return def
}

// AddStepResult appends a StepResult, preserving order.
func (c *Context) AddStepResult(r StepResult) {
	c.stepResults = append(c.stepResults, r)
	c.stepByName[r.StepName] = r
}

// StepResults returns the ordered history of recorded step results.
func (c *Context) StepResults() []StepResult {
	return c.stepResults
}

// StepOutput returns a step's output iff it completed SUCCESS, else nil.
func (c *Context) StepOutput(name string) (any, bool) {
	r, ok := c.stepByName[name]
	if !ok || r.Status != StatusSuccess {
		return nil, false
	}
	return r.Output, true
}

// RegisterVarAlias records that step `stepName`'s output should also be
// visible under `alias` in the variable view.
func (c *Context) RegisterVarAlias(stepName, alias string) {
	if alias == "" {
		return
	}
	c.varAliases[stepName] = alias
}

// Put sets a tool-written output variable directly, overriding any
// same-named step output in the variable view.
func (c *Context) Put(key string, v any) {
	c.toolVars[key] = v
}

// AddAwaitInput injects the user-supplied map for a resumed await step,
// recording stepName's position in awaitOrder the first time it is seen so
// BuildVariableView can flatten multiple awaits in the order they actually
// resumed rather than Go's randomized map order.
func (c *Context) AddAwaitInput(stepName string, m map[string]any) {
	if _, seen := c.awaitInputs[stepName]; !seen {
		c.awaitOrder = append(c.awaitOrder, stepName)
	}
	c.awaitInputs[stepName] = m
}

// BuildVariableView assembles the mapping the evaluator and condition
// language resolve paths against:
//  1. start with input,
//  2. flatten each await-input map over it (later awaits win),
//  3. for each SUCCESS step: bind alias -> raw output if an alias exists,
//     else step_name -> value.Wrapper(raw),
//  4. overlay tool_variables,
//  5. bind a `context` sub-mapping with start_time/elapsed/metadata.
func (c *Context) BuildVariableView() map[string]any {
	vars := make(map[string]any, len(c.Input)+len(c.stepResults)+4)
	for k, v := range c.Input {
		vars[k] = v
	}
	for _, step := range c.awaitOrder {
		for k, v := range c.awaitInputs[step] {
			vars[k] = v
		}
	}
	for _, r := range c.stepResults {
		if r.Status != StatusSuccess {
			continue
		}
		if alias, ok := c.varAliases[r.StepName]; ok {
			vars[alias] = r.Output
		} else {
			vars[r.StepName] = value.Wrapper{Raw: r.Output}
		}
	}
	for k, v := range c.toolVars {
		vars[k] = v
	}
	ctxMeta := map[string]any{
		"start_time": c.StartTime,
		"elapsed":    time.Since(c.StartTime).Seconds(),
	}
	for k, v := range c.Metadata {
		ctxMeta[k] = v
	}
	vars["context"] = ctxMeta
	return vars
}

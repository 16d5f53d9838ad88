// Package engine implements the sequential step-execution main loop: the
// forward pass over a Skill's steps, when-guard evaluation, snapshot
// creation on suspension, and output assembly — generalizing the teacher's
// sequential runbook engine from its seven runbook step types down to the
// four TOOL/PROMPT/AWAIT/TEMPLATE kinds.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/skillrun/skillrun/internal/logging"
	kctx "github.com/skillrun/skillrun/pkg/kernel/context"
	"github.com/skillrun/skillrun/pkg/kernel/schema"
	"github.com/skillrun/skillrun/pkg/kernel/step"
	"github.com/skillrun/skillrun/pkg/kernel/store"
	"github.com/skillrun/skillrun/pkg/kernel/validate"
	"github.com/skillrun/skillrun/pkg/kernel/value"
	"github.com/skillrun/skillrun/pkg/trace"
)

// ErrExecutionNotFound is returned by Resume when the store has no
// snapshot for the given execution id.
type ErrExecutionNotFound struct{ ExecutionID string }

func (e *ErrExecutionNotFound) Error() string {
	return fmt.Sprintf("execution %q not found", e.ExecutionID)
}

// ErrExecutionAlreadyCompleted is returned by Resume when the snapshot is
// no longer ACTIVE.
type ErrExecutionAlreadyCompleted struct {
	ExecutionID string
	Status      kctx.SnapshotStatus
}

func (e *ErrExecutionAlreadyCompleted) Error() string {
	return fmt.Sprintf("execution %q is %s, not resumable", e.ExecutionID, e.Status)
}

// ErrInputValidation is returned by Resume when user_input_map violates the
// awaiting step's input_schema.
type ErrInputValidation struct{ Message string }

func (e *ErrInputValidation) Error() string { return e.Message }

// Listener receives lifecycle notifications as an execution progresses.
// Any field left nil is simply skipped.
type Listener struct {
	OnSkillStart    func(skill *schema.Skill)
	OnSkillComplete func(result kctx.SkillResult)
	OnStepStart     func(st *schema.Step, i, n int)
	OnStepComplete  func(st *schema.Step, result kctx.StepResult, i, n int)
}

// Engine runs one Skill's steps against a Context, suspending at AWAIT
// steps and resuming from a Store-backed Snapshot.
type Engine struct {
	Executors *step.Executors
	Store     store.Store
	Trace     *trace.Writer
	Log       logging.Logger
	Listener  Listener
}

// New builds an Engine with a no-op logger; callers set Log/Trace/Listener
// directly afterward.
func New(executors *step.Executors, st store.Store) *Engine {
	return &Engine{Executors: executors, Store: st, Log: logging.Noop{}}
}

// Execute runs skill from the first step with a fresh Context seeded from
// input.
func (e *Engine) Execute(ctx context.Context, skill *schema.Skill, input map[string]any) kctx.SkillResult {
	ec := kctx.New(input)
	return e.run(ctx, skill, ec, 0)
}

// Resume loads the snapshot for executionID, validates resumability and
// user input, reconstitutes a Context, and continues the main loop past
// the suspended step. The three pre-flight failure modes are returned as
// their typed errors (not flattened into the SkillResult) so a transport
// layer can map them to distinct status codes: ErrExecutionNotFound,
// ErrExecutionAlreadyCompleted, ErrInputValidation.
func (e *Engine) Resume(ctx context.Context, skill *schema.Skill, executionID string, userInput map[string]any) (kctx.SkillResult, error) {
	snap, ok := e.Store.FindByID(executionID)
	if !ok {
		return kctx.SkillResult{}, &ErrExecutionNotFound{ExecutionID: executionID}
	}
	if snap.Status != kctx.SnapshotActive {
		return kctx.SkillResult{}, &ErrExecutionAlreadyCompleted{ExecutionID: executionID, Status: snap.Status}
	}
	if err := validateAwaitInput(snap.AwaitRequest, userInput); err != nil {
		return kctx.SkillResult{}, &ErrInputValidation{Message: err.Error()}
	}
	if !e.Store.UpdateStatus(executionID, kctx.SnapshotActive, kctx.SnapshotResumed) {
		return kctx.SkillResult{}, &ErrExecutionAlreadyCompleted{ExecutionID: executionID, Status: kctx.SnapshotResumed}
	}

	ec := snap.Context
	suspendedStep := skill.Steps[snap.CurrentStepIndex]
	ec.AddAwaitInput(suspendedStep.Name, userInput)
	ec.AddStepResult(kctx.StepResult{StepName: suspendedStep.Name, Status: kctx.StatusSuccess, Output: userInput})
	reRegisterAliases(ec, skill, snap.CurrentStepIndex)

	if e.Trace != nil {
		e.Trace.EmitResumed(suspendedStep.Name)
	}
	e.Log.Debug("skill resumed", "execution_id", executionID, "step", suspendedStep.Name)

	return e.run(ctx, skill, ec, snap.CurrentStepIndex+1), nil
}

// reRegisterAliases replays var_name aliasing for every step at or before
// idx, since alias registrations live only in Context.varAliases and are
// not part of the persisted Snapshot.
func reRegisterAliases(ec *kctx.Context, skill *schema.Skill, idx int) {
	for i := 0; i <= idx && i < len(skill.Steps); i++ {
		st := skill.Steps[i]
		if st.VarName != "" && st.Kind != schema.KindTool {
			ec.RegisterVarAlias(st.Name, st.VarName)
		}
	}
}

// validateAwaitInput runs the resumed step's user_input_map through the
// same coarse-type jsonschema/v6 check the output contract uses (see
// Engine.finish), so a wrong-typed value (e.g. a string where the await
// schema declares a boolean) is rejected the same way a wrong-typed output
// field would be.
func validateAwaitInput(req *kctx.AwaitRequest, input map[string]any) error {
	if req == nil || len(req.InputSchema) == 0 {
		return nil
	}
	if input == nil {
		input = map[string]any{}
	}
	vr := validate.ValidateOutput(input, schema.OutputContract{Fields: req.InputSchema})
	if vr.Failed {
		return fmt.Errorf("%s", vr.Message)
	}
	return nil
}

func (e *Engine) run(ctx context.Context, skill *schema.Skill, ec *kctx.Context, start int) kctx.SkillResult {
	n := len(skill.Steps)
	if start == 0 {
		if e.Listener.OnSkillStart != nil {
			e.Listener.OnSkillStart(skill)
		}
		if e.Trace != nil {
			e.Trace.EmitSkillStart(ec.Input, false)
		}
	}

	for i := start; i < n; i++ {
		st := &skill.Steps[i]

		if st.VarName != "" && st.Kind != schema.KindTool {
			ec.RegisterVarAlias(st.Name, st.VarName)
		}

		if e.Listener.OnStepStart != nil {
			e.Listener.OnStepStart(st, i, n)
		}
		if e.Trace != nil {
			e.Trace.EmitStepStart(st.Name, string(st.Kind), i, n)
		}
		e.Log.Debug("step start", "step", st.Name, "kind", st.Kind, "index", i)

		if st.When != nil && !st.When.Eval(ec.BuildVariableView()) {
			result := kctx.StepResult{StepName: st.Name, Status: kctx.StatusSkipped}
			ec.AddStepResult(result)
			e.notifyStepComplete(st, result, i, n)
			continue
		}

		result := e.Executors.Execute(ctx, st, ec)
		ec.AddStepResult(result)
		e.notifyStepComplete(st, result, i, n)

		switch result.Status {
		case kctx.StatusSuccess, kctx.StatusSkipped:
			continue
		case kctx.StatusAwaiting:
			return e.suspend(skill, ec, i, result)
		case kctx.StatusFailed:
			skipRemaining(ec, skill.Steps[i+1:])
			msg := fmt.Sprintf("step %q failed: %s", st.Name, result.Error)
			d := time.Since(ec.StartTime)
			if e.Trace != nil {
				e.Trace.EmitSkillComplete("FAILED", d, msg)
			}
			res := kctx.Failure(msg, ec.StepResults(), d)
			if e.Listener.OnSkillComplete != nil {
				e.Listener.OnSkillComplete(res)
			}
			return res
		default:
			return kctx.Failure(fmt.Sprintf("step %q: unsupported result status %q", st.Name, result.Status), ec.StepResults(), time.Since(ec.StartTime))
		}
	}

	return e.finish(skill, ec)
}

func (e *Engine) notifyStepComplete(st *schema.Step, result kctx.StepResult, i, n int) {
	if e.Listener.OnStepComplete != nil {
		e.Listener.OnStepComplete(st, result, i, n)
	}
	if e.Trace != nil {
		e.Trace.EmitStepComplete(st.Name, string(result.Status), result.DurationMS, result.Error)
	}
}

func skipRemaining(ec *kctx.Context, rest []schema.Step) {
	for _, st := range rest {
		ec.AddStepResult(kctx.StepResult{StepName: st.Name, Status: kctx.StatusSkipped})
	}
}

func (e *Engine) suspend(skill *schema.Skill, ec *kctx.Context, idx int, result kctx.StepResult) kctx.SkillResult {
	req, _ := result.Output.(*kctx.AwaitRequest)
	snap := kctx.Snapshot{
		ExecutionID:      ec.ExecutionID,
		SkillID:          skill.ID,
		SkillVersion:     skill.Version,
		CurrentStepIndex: idx,
		Context:          ec,
		AwaitRequest:     req,
		Status:           kctx.SnapshotActive,
		CreatedAt:        time.Now(),
		ExpiresAt:        time.Now().Add(e.Store.TTL()),
	}
	e.Store.Save(snap)

	d := time.Since(ec.StartTime)
	if e.Trace != nil {
		e.Trace.EmitAwaiting(skill.Steps[idx].Name, req.Message)
	}
	res := kctx.Awaiting(ec.ExecutionID, req, ec.StepResults(), d)
	if e.Listener.OnSkillComplete != nil {
		e.Listener.OnSkillComplete(res)
	}
	return res
}

func (e *Engine) finish(skill *schema.Skill, ec *kctx.Context) kctx.SkillResult {
	out := assembleOutput(ec, skill.OutputContract)
	d := time.Since(ec.StartTime)

	if len(skill.OutputContract.Fields) > 0 {
		vr := validate.ValidateOutput(out, skill.OutputContract)
		if vr.Failed {
			if e.Trace != nil {
				e.Trace.EmitSkillComplete("FAILED", d, vr.Message)
			}
			res := kctx.Failure(vr.Message, ec.StepResults(), d)
			if e.Listener.OnSkillComplete != nil {
				e.Listener.OnSkillComplete(res)
			}
			return res
		}
	}

	if e.Trace != nil {
		e.Trace.EmitSkillComplete("SUCCESS", d, "")
	}
	res := kctx.Success(out, ec.StepResults(), d)
	if e.Listener.OnSkillComplete != nil {
		e.Listener.OnSkillComplete(res)
	}
	return res
}

// assembleOutput resolves each output_contract field against the rendered
// variable view; missing fields become nil.
func assembleOutput(ec *kctx.Context, contract schema.OutputContract) map[string]any {
	if len(contract.Fields) == 0 {
		return map[string]any{}
	}
	vars := ec.BuildVariableView()
	out := make(map[string]any, len(contract.Fields))
	for _, name := range contract.Order {
		out[name] = resolveDotted(vars, name)
	}
	return out
}

func resolveDotted(vars map[string]any, path string) any {
	var cur any = vars
	for _, seg := range splitDotted(path) {
		v, ok := value.Lookup(cur, seg)
		if !ok {
			return nil
		}
		cur = value.Unwrap(v)
	}
	return cur
}

func splitDotted(path string) []string {
	var segs []string
	start := 0
	for i := 0; i < len(path); i++ {
		if path[i] == '.' {
			segs = append(segs, path[start:i])
			start = i + 1
		}
	}
	return append(segs, path[start:])
}

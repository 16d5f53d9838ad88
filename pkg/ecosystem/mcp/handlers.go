package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	kctx "github.com/skillrun/skillrun/pkg/kernel/context"
	"github.com/skillrun/skillrun/pkg/kernel/engine"
	kmarkdown "github.com/skillrun/skillrun/pkg/kernel/markdown"
	"github.com/skillrun/skillrun/pkg/kernel/schema"
	"github.com/skillrun/skillrun/pkg/kernel/validate"
)

// executeResponse is the same status/success/output/awaitMessage/
// awaitSchema/durationMs shape pkg/server returns, so an MCP-speaking
// agent host sees identical execute/resume results to an HTTP caller.
type executeResponse struct {
	Status       string                      `json:"status"`
	Success      bool                        `json:"success"`
	SkillID      string                      `json:"skillId"`
	Version      string                      `json:"version"`
	ExecutionID  string                      `json:"executionId,omitempty"`
	Output       map[string]any              `json:"output,omitempty"`
	Error        string                      `json:"error,omitempty"`
	AwaitMessage string                      `json:"awaitMessage,omitempty"`
	AwaitSchema  map[string]awaitFieldSchema `json:"awaitSchema,omitempty"`
	DurationMS   int64                       `json:"durationMs"`
}

type awaitFieldSchema struct {
	Type        schema.FieldType `json:"type"`
	Required    bool             `json:"required"`
	Description string           `json:"description,omitempty"`
}

func toResponse(sk *schema.Skill, result kctx.SkillResult) executeResponse {
	resp := executeResponse{
		SkillID:     sk.ID,
		Version:     sk.Version,
		ExecutionID: result.ExecutionID,
		DurationMS:  result.Duration.Milliseconds(),
	}
	switch result.Kind {
	case kctx.ResultSuccess:
		resp.Status = "COMPLETED"
		resp.Success = true
		resp.Output = result.Output
	case kctx.ResultFailure:
		resp.Status = "FAILED"
		resp.Success = false
		resp.Error = result.Error
	case kctx.ResultAwaiting:
		resp.Status = "WAITING_FOR_INPUT"
		resp.Success = true
		if result.AwaitRequest != nil {
			resp.AwaitMessage = result.AwaitRequest.Message
			resp.AwaitSchema = make(map[string]awaitFieldSchema, len(result.AwaitRequest.InputSchema))
			for name, spec := range result.AwaitRequest.InputSchema {
				resp.AwaitSchema[name] = awaitFieldSchema{Type: spec.Type, Required: spec.Required, Description: spec.Description}
			}
		}
	}
	return resp
}

type skillSummary struct {
	ID          string                      `json:"id"`
	Version     string                      `json:"version"`
	Description string                      `json:"description"`
	Intents     []string                    `json:"intents"`
	Input       map[string]schema.FieldSpec `json:"input_schema"`
	Output      map[string]schema.FieldSpec `json:"output_schema"`
}

// HandleList implements the skill_list tool.
func (h *Handlers) HandleList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	skills := h.Repo.List()
	out := make([]skillSummary, 0, len(skills))
	for _, sk := range skills {
		out = append(out, skillSummary{
			ID: sk.ID, Version: sk.Version, Description: sk.Description,
			Intents: sk.Intents, Input: sk.InputSchema, Output: sk.OutputContract.Fields,
		})
	}
	return jsonResult(out)
}

func (h *Handlers) resolveSkill(args map[string]any) (*schema.Skill, error) {
	if md, _ := args["skillMarkdown"].(string); md != "" {
		return kmarkdown.Parse([]byte(md))
	}
	id, _ := args["skillId"].(string)
	if id == "" {
		return nil, fmt.Errorf("skillId or skillMarkdown is required")
	}
	sk, ok := h.Repo.Get(id)
	if !ok {
		return nil, fmt.Errorf("skill not found: %s", id)
	}
	if v, _ := args["version"].(string); v != "" && v != sk.Version {
		return nil, fmt.Errorf("skill version not found: %s@%s", id, v)
	}
	return sk, nil
}

// HandleExecute implements the skill_execute tool.
func (h *Handlers) HandleExecute(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	sk, err := h.resolveSkill(args)
	if err != nil {
		return errorResult(err.Error()), nil
	}
	inputs, _ := args["inputs"].(map[string]any)
	resolved, err := engine.ResolveInput(sk, inputs)
	if err != nil {
		return errorResult(err.Error()), nil
	}
	result := h.Engine.Execute(ctx, sk, resolved)
	return jsonResult(toResponse(sk, result))
}

// HandleResume implements the skill_resume tool.
func (h *Handlers) HandleResume(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	executionID, _ := args["executionId"].(string)
	if executionID == "" {
		return errorResult("executionId is required"), nil
	}
	sk, err := h.resolveSkill(args)
	if err != nil {
		return errorResult(err.Error()), nil
	}
	inputs, _ := args["inputs"].(map[string]any)

	result, err := h.Engine.Resume(ctx, sk, executionID, inputs)
	if err != nil {
		return errorResult(err.Error()), nil
	}
	return jsonResult(toResponse(sk, result))
}

// HandleValidate implements the skill_validate tool.
func (h *Handlers) HandleValidate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	md, _ := args["markdown"].(string)
	if md == "" {
		return errorResult("markdown is required"), nil
	}
	sk, err := kmarkdown.Parse([]byte(md))
	if err != nil {
		return jsonResult(map[string]any{"valid": false, "error": err.Error()})
	}
	report := validate.ValidateSkill(sk, h.Tools)
	return jsonResult(map[string]any{"valid": report.Valid, "summary": report.Summary, "issues": report.Issues})
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errorResult(err.Error()), nil
	}
	return &mcp.CallToolResult{Content: []mcp.Content{mcp.NewTextContent(string(data))}}, nil
}

func errorResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.NewTextContent(msg)},
		IsError: true,
	}
}

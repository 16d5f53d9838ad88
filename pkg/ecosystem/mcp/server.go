// Package mcp exposes the Skill repository/engine over MCP tools, mirroring
// pkg/server's HTTP surface one-for-one for an MCP-speaking agent host.
package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/skillrun/skillrun/pkg/kernel/engine"
	"github.com/skillrun/skillrun/pkg/kernel/validate"
	"github.com/skillrun/skillrun/pkg/repo"
)

// Handlers bundles the dependencies the four tool handlers need.
type Handlers struct {
	Repo   *repo.Repository
	Engine *engine.Engine
	Tools  map[string]validate.KnownTool
}

// NewServer creates an MCP server with the skill_* tools registered.
func NewServer(version string, h *Handlers) *server.MCPServer {
	s := server.NewMCPServer(
		"skillrun",
		version,
		server.WithToolCapabilities(true),
	)

	s.AddTool(
		mcp.NewTool("skill_list",
			mcp.WithDescription("List available skills (id, version, description, intents, schemas)"),
		),
		h.HandleList,
	)

	s.AddTool(
		mcp.NewTool("skill_execute",
			mcp.WithDescription("Execute a skill by id or inline Markdown, returning success, failure, or a pause for input"),
			mcp.WithString("skillId", mcp.Description("Id of a skill already loaded from the skills directory")),
			mcp.WithString("skillMarkdown", mcp.Description("Inline Skill Markdown document, used instead of skillId")),
			mcp.WithString("version", mcp.Description("Exact version to execute, optional")),
			mcp.WithObject("inputs", mcp.Description("Input values keyed by field name")),
		),
		h.HandleExecute,
	)

	s.AddTool(
		mcp.NewTool("skill_resume",
			mcp.WithDescription("Resume a paused execution, supplying the awaited input"),
			mcp.WithString("executionId", mcp.Required(), mcp.Description("Id returned by a prior skill_execute/skill_resume pause")),
			mcp.WithString("skillId", mcp.Description("Id of the skill being resumed")),
			mcp.WithString("skillMarkdown", mcp.Description("Inline Skill Markdown document, used instead of skillId")),
			mcp.WithString("version", mcp.Description("Exact version, optional")),
			mcp.WithObject("inputs", mcp.Description("The awaited input values")),
		),
		h.HandleResume,
	)

	s.AddTool(
		mcp.NewTool("skill_validate",
			mcp.WithDescription("Comprehensive-validate an inline skill Markdown document without executing it"),
			mcp.WithString("markdown", mcp.Required(), mcp.Description("Skill Markdown document")),
		),
		h.HandleValidate,
	)

	return s
}

package tool

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
)

// MCPClient is the subset of an mcp-go client an MCPProvider calls through,
// narrowed so tests can fake it without standing up a real MCP server.
type MCPClient interface {
	CallTool(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error)
}

// MCPProvider forwards a TOOL step to a named tool on a configured MCP
// client.
type MCPProvider struct {
	manifest Manifest
	client   MCPClient
}

// NewMCPProvider wraps an mcp-transport manifest and an already-initialized
// client as a step.Tool. Client lifecycle (stdio spawn, SSE dial,
// initialize handshake) is the caller's responsibility, matching how a
// server registers one long-lived client per configured MCP endpoint.
func NewMCPProvider(m Manifest, c MCPClient) (*MCPProvider, error) {
	if err := m.validate(); err != nil {
		return nil, err
	}
	return &MCPProvider{manifest: m, client: c}, nil
}

func (p *MCPProvider) ValidateInput(rendered map[string]any) error {
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

func (p *MCPProvider) Execute(ctx context.Context, rendered map[string]any, put func(string, any)) error {
	req := mcp.CallToolRequest{}
	req.Params.Name = p.manifest.ToolName
	req.Params.Arguments = rendered

	res, err := p.client.CallTool(ctx, req)
	if err != nil {
		return fmt.Errorf("tool %q: mcp call: %w", p.manifest.Name, err)
	}
	if res.IsError {
		return fmt.Errorf("tool %q: remote tool reported an error", p.manifest.Name)
	}

	for _, content := range res.Content {
		if tc, ok := content.(mcp.TextContent); ok {
			put("text", tc.Text)
		}
	}
	return nil
}

// DialStdio starts Command as a subprocess MCP server and returns an
// initialized client, for Config-driven wiring of mcp-transport manifests.
func DialStdio(ctx context.Context, command string, args ...string) (*client.Client, error) {
	c, err := client.NewStdioMCPClient(command, nil, args...)
	if err != nil {
		return nil, fmt.Errorf("dial mcp stdio client: %w", err)
	}
	if _, err := c.Initialize(ctx, mcp.InitializeRequest{}); err != nil {
		return nil, fmt.Errorf("initialize mcp client: %w", err)
	}
	return c, nil
}

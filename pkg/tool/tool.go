// Package tool implements the step.Tool capability: the process-transport
// provider that spawns a manifest's command and the MCP-transport provider
// that forwards to a configured client's named tool.
package tool

import (
	"fmt"

	"github.com/skillrun/skillrun/pkg/kernel/schema"
)

// Transport is a ToolManifest's invocation mechanism.
type Transport string

const (
	TransportProcess Transport = "process"
	TransportMCP      Transport = "mcp"
)

// ExtractRule maps a slice of a tool's raw output onto one context variable.
type ExtractRule struct {
	From    string // "stdout", "stderr", or "json"
	Path    string // dot-path into parsed JSON, when From == "json"
	Pattern string // optional regexp; first capture group wins
}

// Manifest describes one invocable tool, resolved by name from a TOOL
// step's tool_name.
type Manifest struct {
	Name        string
	Transport   Transport
	Command     string              // process transport
	Args        []string            // process transport, may contain {{...}} sites
	Server      string              // mcp transport: configured client name
	ToolName    string              // mcp transport: remote tool name
	InputSchema map[string]schema.FieldSpec
	Extract     map[string]ExtractRule
}

func (m Manifest) validate() error {
	switch m.Transport {
	case TransportProcess:
		if m.Command == "" {
			return fmt.Errorf("tool %q: process transport requires a command", m.Name)
		}
	case TransportMCP:
		if m.Server == "" || m.ToolName == "" {
			return fmt.Errorf("tool %q: mcp transport requires server and tool_name", m.Name)
		}
	default:
		return fmt.Errorf("tool %q: unknown transport %q", m.Name, m.Transport)
	}
	return nil
}

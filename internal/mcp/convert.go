// Package mcp exposes a user's task list as Model Context Protocol tools.
package mcp

import (
	"sort"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

// ParamSpec describes one tool argument.
type ParamSpec struct {
	Type        string
	Description string
	Required    bool
	Enum        []string
	Default     any
}

// ToolSpec describes a tool before conversion to the MCP wire form.
type ToolSpec struct {
	Name        string
	Group       string
	Description string
	Parameters  map[string]ParamSpec
}

// toolSpecToMCPTool converts a ToolSpec to an mcp.Tool with a JSON Schema
// input.
func toolSpecToMCPTool(spec *ToolSpec) *mcpsdk.Tool {
	props := make(map[string]any, len(spec.Parameters))
	var required []string

	for name, p := range spec.Parameters {
		prop := map[string]any{
			"type":        p.Type,
			"description": p.Description,
		}
		if len(p.Enum) > 0 {
			prop["enum"] = p.Enum
		}
		if p.Default != nil {
			prop["default"] = p.Default
		}
		props[name] = prop
		if p.Required {
			required = append(required, name)
		}
	}
	sort.Strings(required)

	inputSchema := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		inputSchema["required"] = required
	}

	return &mcpsdk.Tool{
		Name:        spec.Name,
		Description: spec.Description,
		InputSchema: inputSchema,
	}
}

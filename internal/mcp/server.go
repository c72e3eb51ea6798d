package mcp

import (
	"context"
	"encoding/json"
	"log/slog"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/dohr-michael/todoia/internal/apperr"
	"github.com/dohr-michael/todoia/internal/enhance"
	"github.com/dohr-michael/todoia/internal/tasks"
)

// Deps are the services the tools call. Every tool acts as Owner.
// Enhancer may be nil, which leaves out the ai tools.
type Deps struct {
	Tasks    *tasks.Service
	Enhancer *enhance.Enhancer
	Owner    string
	Version  string
}

// NewMCPServer creates an MCP server exposing the task tools. If filter is
// non-empty, only tools whose name or group equals filter are exposed.
func NewMCPServer(deps Deps, filter string) *mcpsdk.Server {
	version := deps.Version
	if version == "" {
		version = "dev"
	}
	server := mcpsdk.NewServer(&mcpsdk.Implementation{
		Name:    "todoia",
		Version: version,
	}, nil)

	all := taskTools(deps.Tasks, deps.Owner)
	if deps.Enhancer != nil {
		all = append(all, aiTools(deps.Enhancer)...)
	}

	for _, t := range all {
		if !matchesFilter(t.spec, filter) {
			continue
		}
		run := t.run
		name := t.spec.Name
		server.AddTool(toolSpecToMCPTool(&t.spec), func(ctx context.Context, req *mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
			return callTool(ctx, name, run, req.Params.Arguments), nil
		})
		slog.Debug("mcp tool registered", "tool", name)
	}

	return server
}

// callTool runs a tool and renders its result as JSON text. Tool errors are
// reported in the result, not as protocol errors.
func callTool(ctx context.Context, name string, run runFunc, args json.RawMessage) *mcpsdk.CallToolResult {
	out, err := run(ctx, args)
	if err != nil {
		slog.Debug("mcp tool error", "tool", name, "error", err)
		return errorResult(apperr.MessageOf(err))
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return errorResult("encode result: " + err.Error())
	}
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: string(data)}},
	}
}

func errorResult(msg string) *mcpsdk.CallToolResult {
	return &mcpsdk.CallToolResult{
		IsError: true,
		Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: msg}},
	}
}

func matchesFilter(spec ToolSpec, filter string) bool {
	return filter == "" || spec.Name == filter || spec.Group == filter
}

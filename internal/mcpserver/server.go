// Package mcpserver exposes the context engine and intent resolver as MCP
// tools over stdio.
//
// Each tool follows the same shape: a struct holding its dependencies,
// Definition() returning the schema and Handle() serving a call. Tool
// failures are reported as error results, never as protocol errors.
package mcpserver

import (
	"github.com/mark3labs/mcp-go/server"

	"github.com/fakeyudi/gitmind/internal/engine"
	"github.com/fakeyudi/gitmind/internal/intent"
)

// New creates the MCP server with every gitmind tool registered.
func New(eng *engine.Engine, res *intent.Resolver, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"gitmind",
		version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(instructions),
	)

	resolveTool := NewResolveIntentTool(res)
	s.AddTool(resolveTool.Definition(), resolveTool.Handle)

	contextTool := NewGetContextTool(eng)
	s.AddTool(contextTool.Definition(), contextTool.Handle)

	queryTool := NewQueryContextTool(eng)
	s.AddTool(queryTool.Definition(), queryTool.Handle)

	commandsTool := NewListCommandsTool(res)
	s.AddTool(commandsTool.Definition(), commandsTool.Handle)

	activityTool := NewTrackActivityTool(eng)
	s.AddTool(activityTool.Definition(), activityTool.Handle)

	historyTool := NewContextHistoryTool(eng)
	s.AddTool(historyTool.Definition(), historyTool.Handle)

	return s
}

const instructions = `gitmind keeps a live picture of the current git repository and project.
Call resolve_intent with the user's words to find the git workflow command they mean,
then dispatch the returned tool with the returned params. Use get_context before
acting on a repository you have not inspected yet.`

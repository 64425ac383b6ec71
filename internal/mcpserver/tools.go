package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/fakeyudi/gitmind/internal/engine"
	"github.com/fakeyudi/gitmind/internal/intent"
	"github.com/fakeyudi/gitmind/internal/snapshot"
)

// ResolveIntentTool handles the resolve_intent MCP tool.
type ResolveIntentTool struct {
	resolver *intent.Resolver
}

// NewResolveIntentTool creates a ResolveIntentTool.
func NewResolveIntentTool(r *intent.Resolver) *ResolveIntentTool {
	return &ResolveIntentTool{resolver: r}
}

// Definition returns the MCP tool definition for resolve_intent.
func (t *ResolveIntentTool) Definition() mcp.Tool {
	return mcp.NewTool("resolve_intent",
		mcp.WithDescription(
			"Resolve a natural-language git request into a command, tool and parameters. "+
				"Low-confidence requests come back as type 'ambiguous' with suggestions.",
		),
		mcp.WithString("text",
			mcp.Required(),
			mcp.Description("The request, e.g. 'commit all changes' or 'push to remote'"),
		),
		mcp.WithBoolean("use_ai",
			mcp.Description("Allow the AI fallback strategy (default: true when configured)"),
		),
	)
}

// Handle processes the resolve_intent tool call.
func (t *ResolveIntentTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text := req.GetString("text", "")
	if text == "" {
		return mcp.NewToolResultError("'text' is required"), nil
	}
	var opts intent.Options
	if v, ok := req.GetArguments()["use_ai"].(bool); ok {
		opts.UseAI = &v
	}
	return jsonResult(t.resolver.Resolve(ctx, text, opts))
}

// GetContextTool handles the get_context MCP tool.
type GetContextTool struct {
	engine *engine.Engine
}

// NewGetContextTool creates a GetContextTool.
func NewGetContextTool(e *engine.Engine) *GetContextTool {
	return &GetContextTool{engine: e}
}

// Definition returns the MCP tool definition for get_context.
func (t *GetContextTool) Definition() mcp.Tool {
	return mcp.NewTool("get_context",
		mcp.WithDescription("Return the live context snapshot, one section of it, or the inferred workflow."),
		mcp.WithString("section",
			mcp.Description("Section to return; omit for everything"),
			mcp.Enum("git", "project", "user", "team", "metadata", "inferred"),
		),
		mcp.WithBoolean("refresh",
			mcp.Description("Collect fresh git and project state first"),
		),
	)
}

// Handle processes the get_context tool call.
func (t *GetContextTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if boolArg(req, "refresh", false) {
		t.engine.Refresh(ctx)
	}
	switch section := req.GetString("section", ""); section {
	case "":
		return jsonResult(map[string]any{
			"snapshot": t.engine.Snapshot(),
			"inferred": t.engine.InferredContext(),
		})
	case "inferred":
		return jsonResult(t.engine.InferredContext())
	case "git", "project", "user", "team", "metadata":
		return jsonResult(t.engine.Get(section, nil))
	default:
		return mcp.NewToolResultError(fmt.Sprintf("unknown section %q", section)), nil
	}
}

// QueryContextTool handles the query_context MCP tool.
type QueryContextTool struct {
	engine *engine.Engine
}

// NewQueryContextTool creates a QueryContextTool.
func NewQueryContextTool(e *engine.Engine) *QueryContextTool {
	return &QueryContextTool{engine: e}
}

// Definition returns the MCP tool definition for query_context.
func (t *QueryContextTool) Definition() mcp.Tool {
	return mcp.NewTool("query_context",
		mcp.WithDescription("Read one dotted path from the context snapshot, e.g. git.currentBranch."),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Dotted path such as git.currentBranch or project.scripts"),
		),
		mcp.WithBoolean("cached",
			mcp.Description("Serve from the query cache when possible"),
		),
	)
}

// Handle processes the query_context tool call.
func (t *QueryContextTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path := req.GetString("path", "")
	if path == "" {
		return mcp.NewToolResultError("'path' is required"), nil
	}
	v, ok := t.engine.Query(path, engine.QueryOptions{Cached: boolArg(req, "cached", false)})
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("nothing at %q", path)), nil
	}
	return jsonResult(v)
}

// ListCommandsTool handles the list_commands MCP tool.
type ListCommandsTool struct {
	resolver *intent.Resolver
}

// NewListCommandsTool creates a ListCommandsTool.
func NewListCommandsTool(r *intent.Resolver) *ListCommandsTool {
	return &ListCommandsTool{resolver: r}
}

// Definition returns the MCP tool definition for list_commands.
func (t *ListCommandsTool) Definition() mcp.Tool {
	return mcp.NewTool("list_commands",
		mcp.WithDescription("List every command the resolver can return, with its intent type and tool."),
	)
}

// Handle processes the list_commands tool call.
func (t *ListCommandsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(t.resolver.AvailableCommands())
}

// TrackActivityTool handles the track_activity MCP tool.
type TrackActivityTool struct {
	engine *engine.Engine
}

// NewTrackActivityTool creates a TrackActivityTool.
func NewTrackActivityTool(e *engine.Engine) *TrackActivityTool {
	return &TrackActivityTool{engine: e}
}

// Definition returns the MCP tool definition for track_activity.
func (t *TrackActivityTool) Definition() mcp.Tool {
	return mcp.NewTool("track_activity",
		mcp.WithDescription("Record something the user did so later resolutions and summaries can use it."),
		mcp.WithString("type",
			mcp.Required(),
			mcp.Description("Activity type, e.g. note, command, review"),
		),
		mcp.WithString("description",
			mcp.Required(),
			mcp.Description("What happened"),
		),
	)
}

// Handle processes the track_activity tool call.
func (t *TrackActivityTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	typ := req.GetString("type", "")
	desc := req.GetString("description", "")
	if typ == "" || desc == "" {
		return mcp.NewToolResultError("'type' and 'description' are required"), nil
	}
	t.engine.TrackUserActivity(snapshot.Activity{
		Type:        typ,
		Description: desc,
		Context:     map[string]any{"source": "mcp"},
	})
	return mcp.NewToolResultText(fmt.Sprintf("Recorded %s activity.", typ)), nil
}

// ContextHistoryTool handles the context_history MCP tool.
type ContextHistoryTool struct {
	engine *engine.Engine
}

// NewContextHistoryTool creates a ContextHistoryTool.
func NewContextHistoryTool(e *engine.Engine) *ContextHistoryTool {
	return &ContextHistoryTool{engine: e}
}

// Definition returns the MCP tool definition for context_history.
func (t *ContextHistoryTool) Definition() mcp.Tool {
	return mcp.NewTool("context_history",
		mcp.WithDescription("Read persisted snapshots, activities or git states, newest first."),
		mcp.WithString("kind",
			mcp.Description("Which history to read; omit for all"),
			mcp.Enum("snapshots", "activities", "git"),
		),
		mcp.WithString("filter",
			mcp.Description("Snapshot type, activity type or branch name"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum records per kind (default: 20)"),
		),
	)
}

// Handle processes the context_history tool call.
func (t *ContextHistoryTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	h, err := t.engine.History(ctx, req.GetString("kind", ""), req.GetString("filter", ""), intArg(req, "limit", 20))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to read history: %v", err)), nil
	}
	return jsonResult(h)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// intArg extracts an integer argument; JSON numbers arrive as float64.
func intArg(req mcp.CallToolRequest, key string, defaultVal int) int {
	v, ok := req.GetArguments()[key].(float64)
	if !ok {
		return defaultVal
	}
	return int(v)
}

func boolArg(req mcp.CallToolRequest, key string, defaultVal bool) bool {
	v, ok := req.GetArguments()[key].(bool)
	if !ok {
		return defaultVal
	}
	return v
}

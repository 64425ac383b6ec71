package mcpserver

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/fakeyudi/gitmind/internal/catalog"
	"github.com/fakeyudi/gitmind/internal/engine"
	"github.com/fakeyudi/gitmind/internal/intent"
	"github.com/fakeyudi/gitmind/internal/state"
)

func newDeps(t *testing.T) (*engine.Engine, *intent.Resolver) {
	t.Helper()
	eng := engine.New(engine.Options{WorkDir: t.TempDir(), Store: state.NewMemoryStore()})
	t.Cleanup(eng.Dispose)
	res := intent.New(intent.Config{Catalog: catalog.Default(), Context: eng, Recorder: eng})
	return eng, res
}

func makeReq(args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

func resultText(r *mcp.CallToolResult) string {
	if r == nil {
		return ""
	}
	for _, c := range r.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func mustSucceed(t *testing.T) func(r *mcp.CallToolResult, err error) string {
	return func(r *mcp.CallToolResult, err error) string {
		t.Helper()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if r == nil || r.IsError {
			t.Fatalf("tool returned error result: %s", resultText(r))
		}
		return resultText(r)
	}
}

func TestNewRegistersTools(t *testing.T) {
	eng, res := newDeps(t)
	if s := New(eng, res, "test"); s == nil {
		t.Fatal("nil server")
	}
}

func TestResolveIntentTool(t *testing.T) {
	eng, res := newDeps(t)
	tool := NewResolveIntentTool(res)

	def := tool.Definition()
	if def.Name != "resolve_intent" {
		t.Errorf("name = %q", def.Name)
	}
	if len(def.InputSchema.Required) != 1 || def.InputSchema.Required[0] != "text" {
		t.Errorf("required = %v", def.InputSchema.Required)
	}

	text := mustSucceed(t)(tool.Handle(context.Background(), makeReq(map[string]any{
		"text":   "commit all changes",
		"use_ai": false,
	})))
	var got intent.Intent
	if err := json.Unmarshal([]byte(text), &got); err != nil {
		t.Fatalf("decode: %v\n%s", err, text)
	}
	if got.Type != catalog.Commit || got.Tool != "git_commit" {
		t.Errorf("intent = %+v", got)
	}
	if n := len(eng.Snapshot().User.Activities); n != 1 {
		t.Errorf("resolution not recorded: %d activities", n)
	}

	r, err := tool.Handle(context.Background(), makeReq(map[string]any{}))
	if err != nil || !r.IsError {
		t.Error("expected error result for missing text")
	}
}

func TestContextTools(t *testing.T) {
	eng, _ := newDeps(t)
	eng.Update("git.currentBranch", "feature/x")

	text := mustSucceed(t)(NewGetContextTool(eng).Handle(context.Background(), makeReq(map[string]any{"section": "git"})))
	if !strings.Contains(text, `"current_branch": "feature/x"`) {
		t.Errorf("git section = %s", text)
	}

	text = mustSucceed(t)(NewGetContextTool(eng).Handle(context.Background(), makeReq(map[string]any{"section": "inferred"})))
	if !strings.Contains(text, "feature-development") {
		t.Errorf("inferred = %s", text)
	}

	r, _ := NewGetContextTool(eng).Handle(context.Background(), makeReq(map[string]any{"section": "weather"}))
	if !r.IsError {
		t.Error("expected error for unknown section")
	}

	text = mustSucceed(t)(NewQueryContextTool(eng).Handle(context.Background(), makeReq(map[string]any{"path": "git.currentBranch"})))
	if text != `"feature/x"` {
		t.Errorf("query = %s", text)
	}
	r, _ = NewQueryContextTool(eng).Handle(context.Background(), makeReq(map[string]any{"path": "no.such.path"}))
	if !r.IsError {
		t.Error("expected error for missing path")
	}
}

func TestActivityAndHistoryTools(t *testing.T) {
	eng, _ := newDeps(t)

	mustSucceed(t)(NewTrackActivityTool(eng).Handle(context.Background(), makeReq(map[string]any{
		"type":        "note",
		"description": "reviewed the auth flow",
	})))
	if last := eng.Snapshot().User.LastAction; last == nil || last.Description != "reviewed the auth flow" {
		t.Fatalf("LastAction = %+v", last)
	}

	tool := NewContextHistoryTool(eng)
	deadline := time.Now().Add(3 * time.Second)
	for {
		text := mustSucceed(t)(tool.Handle(context.Background(), makeReq(map[string]any{
			"kind":  "activities",
			"limit": float64(5),
		})))
		if strings.Contains(text, "reviewed the auth flow") {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("activity never persisted: %s", text)
		}
		time.Sleep(10 * time.Millisecond)
	}

	r, _ := tool.Handle(context.Background(), makeReq(map[string]any{"kind": "bogus"}))
	if !r.IsError {
		t.Error("expected error for unknown kind")
	}

	r, _ = NewTrackActivityTool(eng).Handle(context.Background(), makeReq(map[string]any{"type": "note"}))
	if !r.IsError {
		t.Error("expected error for missing description")
	}
}

func TestListCommandsTool(t *testing.T) {
	_, res := newDeps(t)
	text := mustSucceed(t)(NewListCommandsTool(res).Handle(context.Background(), makeReq(nil)))
	var cmds []catalog.CommandMapping
	if err := json.Unmarshal([]byte(text), &cmds); err != nil {
		t.Fatal(err)
	}
	if len(cmds) != catalog.Default().Len() {
		t.Errorf("listed %d commands", len(cmds))
	}
}

package intent

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"pgregory.net/rapid"

	"github.com/fakeyudi/gitmind/internal/ai"
	"github.com/fakeyudi/gitmind/internal/catalog"
	"github.com/fakeyudi/gitmind/internal/inference"
	"github.com/fakeyudi/gitmind/internal/snapshot"
)

type fakeContext struct {
	snap *snapshot.ContextSnapshot
	inf  inference.Result
}

func (f fakeContext) Snapshot() *snapshot.ContextSnapshot { return f.snap }
func (f fakeContext) InferredContext() inference.Result   { return f.inf }

func onBranch(branch string) *snapshot.ContextSnapshot {
	s := snapshot.New()
	s.Git.CurrentBranch = branch
	return s
}

type fakeCompleter struct {
	reply string
	err   error
	calls atomic.Int32
}

func (f *fakeCompleter) Complete(ctx context.Context, req ai.Request) (string, error) {
	f.calls.Add(1)
	return f.reply, f.err
}

type recorder struct {
	mu   sync.Mutex
	acts []snapshot.Activity
}

func (r *recorder) TrackUserActivity(a snapshot.Activity) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.acts = append(r.acts, a)
}

// countingStrategy wraps a strategy and counts attempts.
type countingStrategy struct {
	inner Strategy
	n     *atomic.Int32
}

func (c countingStrategy) Attempt(ctx context.Context, in *Input) (Candidate, bool) {
	c.n.Add(1)
	return c.inner.Attempt(ctx, in)
}

type panicStrategy struct{}

func (panicStrategy) Attempt(context.Context, *Input) (Candidate, bool) { panic("strategy exploded") }

func newResolver(cfg Config) *Resolver {
	if cfg.Catalog == nil {
		cfg.Catalog = catalog.Default()
	}
	return New(cfg)
}

func TestScenarios(t *testing.T) {
	r := newResolver(Config{})
	ctx := context.Background()

	got := r.Resolve(ctx, "commit all changes", Options{})
	if got.Type != catalog.Commit || got.Method != MethodPattern || got.Confidence != 0.8 {
		t.Errorf("commit all changes = %s/%s/%v", got.Type, got.Method, got.Confidence)
	}
	if got.Command != "commit changes" || got.Tool != "git_commit" {
		t.Errorf("command = %q tool = %q", got.Command, got.Tool)
	}

	got = r.Resolve(ctx, "push to remote", Options{})
	if got.Type != catalog.Push || (got.Method != MethodPattern && got.Method != MethodVerbKeyword) {
		t.Errorf("push to remote = %s/%s", got.Type, got.Method)
	}

	got = r.Resolve(ctx, "xyx qqzz flerp", Options{})
	if got.Type != TypeAmbiguous || got.Confidence != 0 || got.Method != MethodAmbiguity {
		t.Errorf("xyx qqzz flerp = %s/%s/%v", got.Type, got.Method, got.Confidence)
	}
	if n := len(got.Suggestions); n == 0 || n > maxSuggestions {
		t.Errorf("suggestions = %d", n)
	}
	names := map[string]bool{}
	for _, s := range got.Suggestions {
		names[s.Command] = true
	}
	for _, fb := range fallbackCommands {
		if !names[fb] {
			t.Errorf("fallback %q missing from %v", fb, got.Suggestions)
		}
	}
}

func TestResolveTable(t *testing.T) {
	tests := []struct {
		input   string
		typ     string
		method  string
		command string
		params  map[string]any
	}{
		{"create branch feature/login", catalog.Branch, MethodPattern, "create branch",
			map[string]any{"action": "create", "branch": "feature/login"}},
		{"Please can you push", catalog.Push, MethodPattern, "push changes", nil},
		{"deploy to production", catalog.Deploy, MethodPattern, "deploy",
			map[string]any{"target": "production"}},
		{`commit with message "fix typo"`, catalog.Commit, MethodPattern, "commit changes",
			map[string]any{"all": true, "message": "fix typo"}},
		{"merge feature/api into main", catalog.Merge, MethodPattern, "merge branch",
			map[string]any{"target": "main"}},
		{"run the tests", catalog.Test, MethodPattern, "run tests", nil},
		{"open a pull request", catalog.Collaborate, MethodPattern, "create pull request", nil},
		{"pull request for my branch", catalog.Collaborate, MethodPattern, "create pull request", nil},
		{"pull request please", catalog.Collaborate, MethodPattern, "create pull request", nil},
		{"pull latest changes", catalog.Pull, MethodPattern, "pull changes", nil},
		{"pull", catalog.Pull, MethodPattern, "pull changes", nil},
		{"what can you do?", catalog.Help, MethodPattern, "show help", nil},
		{"show me the changes", catalog.Status, MethodVerbKeyword, "show status", nil},
		{"publish", catalog.Push, MethodNLP, "push changes", nil},
		{"shwo stauts", catalog.Status, MethodFuzzy, "show status", nil},
		{"pusj chnages", catalog.Push, MethodFuzzy, "push changes", nil},
	}
	r := newResolver(Config{})
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := r.Resolve(context.Background(), tt.input, Options{})
			if got.Type != tt.typ || got.Method != tt.method || got.Command != tt.command {
				t.Fatalf("got %s/%s/%q (%.2f), want %s/%s/%q",
					got.Type, got.Method, got.Command, got.Confidence, tt.typ, tt.method, tt.command)
			}
			if diff := cmp.Diff(tt.params, got.Params, cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("params mismatch (-want +got):\n%s", diff)
			}
			if got.Raw != tt.input {
				t.Errorf("Raw = %q", got.Raw)
			}
		})
	}
}

func TestAIFallback(t *testing.T) {
	fc := &fakeCompleter{reply: "```json\n{\"intent\":\"commit\",\"command\":\"amend commit\",\"params\":{\"amend\":true},\"confidence\":0.9}\n```"}
	r := newResolver(Config{AI: fc})

	got := r.Resolve(context.Background(), "xyx qqzz flerp", Options{})
	if got.Type != catalog.Commit || got.Method != MethodAI || got.Command != "amend commit" {
		t.Fatalf("got %+v", got)
	}
	if math.Abs(got.Confidence-0.9) > 1e-9 {
		t.Errorf("confidence = %v", got.Confidence)
	}
	if fc.calls.Load() != 1 {
		t.Errorf("calls = %d", fc.calls.Load())
	}
}

func TestAISkippedWhenConfidentOrDisabled(t *testing.T) {
	fc := &fakeCompleter{reply: `{"intent":"deploy","command":"deploy","confidence":1}`}
	r := newResolver(Config{AI: fc})

	r.Resolve(context.Background(), "commit all changes", Options{})
	if fc.calls.Load() != 0 {
		t.Error("ai called although pattern matched")
	}

	off := false
	got := r.Resolve(context.Background(), "xyx qqzz flerp", Options{UseAI: &off})
	if fc.calls.Load() != 0 || got.Type != TypeAmbiguous {
		t.Errorf("ai used although disabled: %s, calls=%d", got.Type, fc.calls.Load())
	}
}

func TestAIFailuresAreIgnored(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		err   error
	}{
		{"service error", "", errors.New("connection refused")},
		{"not json", "I think you want to commit", nil},
		{"bad type", `{"intent":"launch","confidence":0.9}`, nil},
		{"bad confidence", `{"intent":"commit","confidence":7}`, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newResolver(Config{AI: &fakeCompleter{reply: tt.reply, err: tt.err}})
			got := r.Resolve(context.Background(), "xyx qqzz flerp", Options{})
			if got.Type != TypeAmbiguous {
				t.Errorf("type = %s, want ambiguous", got.Type)
			}
		})
	}
}

func TestRefinementBoostsAndAnnotates(t *testing.T) {
	src := fakeContext{
		snap: onBranch("feature/login"),
		inf: inference.Result{
			Workflow:              inference.WorkflowFeature,
			HasUncommittedChanges: true,
			Recommendations:       []string{"commit"},
		},
	}
	r := newResolver(Config{Context: src})

	got := r.Resolve(context.Background(), "commit all changes", Options{})
	if math.Abs(got.Confidence-0.96) > 1e-9 {
		t.Errorf("confidence = %v, want 0.96", got.Confidence)
	}
	want := &Annotation{
		Branch:                "feature/login",
		HasUncommittedChanges: true,
		Workflow:              inference.WorkflowFeature,
		Recommendations:       []string{"commit"},
	}
	if diff := cmp.Diff(want, got.Context); diff != "" {
		t.Errorf("annotation mismatch (-want +got):\n%s", diff)
	}

	got = r.Resolve(context.Background(), "start a new feature", Options{})
	if got.Type != catalog.Develop || math.Abs(got.Confidence-0.88) > 1e-9 {
		t.Errorf("develop = %s/%v, want 0.88", got.Type, got.Confidence)
	}
}

func TestBranchBackfill(t *testing.T) {
	r := newResolver(Config{Context: fakeContext{snap: onBranch("fix/npe")}})
	got := r.Resolve(context.Background(), "delete the branch", Options{})
	if got.Type != catalog.Branch || got.Params["branch"] != "fix/npe" {
		t.Errorf("got %s params=%v", got.Type, got.Params)
	}

	r = newResolver(Config{Context: fakeContext{snap: onBranch("main")}})
	got = r.Resolve(context.Background(), "delete the branch", Options{})
	if _, ok := got.Params["branch"]; ok {
		t.Errorf("backfilled from main: %v", got.Params)
	}

	r = newResolver(Config{Context: fakeContext{snap: onBranch("fix/npe")}})
	got = r.Resolve(context.Background(), "switch to develop", Options{})
	if got.Params["branch"] != "develop" {
		t.Errorf("explicit branch overwritten: %v", got.Params)
	}
}

func TestCacheHitSkipsStrategies(t *testing.T) {
	r := newResolver(Config{})
	var n atomic.Int32
	for i := range r.stages {
		r.stages[i].strategy = countingStrategy{inner: r.stages[i].strategy, n: &n}
	}

	first := r.Resolve(context.Background(), "push to remote", Options{})
	attempts := n.Load()
	if attempts == 0 {
		t.Fatal("no strategy ran")
	}
	second := r.Resolve(context.Background(), "push to remote", Options{})
	if n.Load() != attempts {
		t.Errorf("cache hit ran strategies: %d -> %d", attempts, n.Load())
	}
	if first.Cached || !second.Cached || second.CachedAt == nil {
		t.Errorf("cached flags: first=%v second=%v at=%v", first.Cached, second.Cached, second.CachedAt)
	}
	if diff := cmp.Diff(first, second, cmpopts.IgnoreFields(Intent{}, "Cached", "CachedAt")); diff != "" {
		t.Errorf("cached result differs (-first +second):\n%s", diff)
	}

	r.ClearCache()
	if third := r.Resolve(context.Background(), "push to remote", Options{}); third.Cached {
		t.Error("hit after ClearCache")
	}
}

func TestCachedIntentIsIsolated(t *testing.T) {
	r := newResolver(Config{})
	first := r.Resolve(context.Background(), "deploy to staging", Options{})
	first.Params["target"] = "mars"
	second := r.Resolve(context.Background(), "deploy to staging", Options{})
	if second.Params["target"] != "staging" {
		t.Errorf("cache mutated through returned intent: %v", second.Params)
	}
}

func TestCancelledResolutionIsNotCached(t *testing.T) {
	r := newResolver(Config{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	got := r.Resolve(ctx, "commit all changes", Options{})
	if got.Type != catalog.Commit || got.Method != MethodPattern {
		t.Errorf("cancelled call = %s/%s, want local strategies to still run", got.Type, got.Method)
	}

	live := r.Resolve(context.Background(), "commit all changes", Options{})
	if live.Cached {
		t.Error("result of a cancelled call was cached")
	}
	if live.Type != catalog.Commit || live.Method != MethodPattern || live.Confidence != 0.8 {
		t.Errorf("live call = %s/%s/%v", live.Type, live.Method, live.Confidence)
	}
}

func TestCacheEvictsOldestInserted(t *testing.T) {
	r := newResolver(Config{})
	ctx := context.Background()
	for i := 0; i < 100; i++ {
		r.Resolve(ctx, fmt.Sprintf("input %d", i), Options{})
	}
	// a hit on the oldest entry must not save it
	if !r.Resolve(ctx, "input 0", Options{}).Cached {
		t.Fatal("input 0 should still be cached")
	}
	r.Resolve(ctx, "input 100", Options{})

	if r.CacheLen() != 100 {
		t.Errorf("CacheLen = %d", r.CacheLen())
	}
	if _, ok := r.cache.Get("input 0"); ok {
		t.Error("oldest inserted entry survived")
	}
	if _, ok := r.cache.Get("input 1"); !ok {
		t.Error("second oldest entry evicted")
	}
}

func TestInternalErrorsBecomeErrorIntents(t *testing.T) {
	r := newResolver(Config{})
	r.stages = []stage{{strategy: panicStrategy{}, below: 1.01}}

	got := r.Resolve(context.Background(), "push", Options{})
	if got.Type != TypeError || got.Method != MethodError || got.Error == "" || got.Hint == "" {
		t.Fatalf("got %+v", got)
	}
	if got.Confidence != 0 {
		t.Errorf("confidence = %v", got.Confidence)
	}
	if again := r.Resolve(context.Background(), "push", Options{}); !again.Cached || again.Type != TypeError {
		t.Errorf("error intent not cached: %+v", again)
	}

	r = New(Config{})
	if got := r.Resolve(context.Background(), "push", Options{}); got.Type != TypeError {
		t.Errorf("nil catalog: type = %s", got.Type)
	}
	if r.AvailableCommands() != nil {
		t.Error("AvailableCommands without catalog should be nil")
	}
}

func TestResolutionsAreRecorded(t *testing.T) {
	rec := &recorder{}
	r := newResolver(Config{Recorder: rec})
	r.Resolve(context.Background(), "push to remote", Options{})
	r.Resolve(context.Background(), "push to remote", Options{})
	r.Resolve(context.Background(), "xyx qqzz flerp", Options{})

	if len(rec.acts) != 2 {
		t.Fatalf("recorded %d activities, want 2", len(rec.acts))
	}
	a := rec.acts[0]
	if a.Type != "intent" || a.Description != "push to remote" || a.Context["type"] != catalog.Push {
		t.Errorf("activity = %+v", a)
	}
}

func TestAvailableCommands(t *testing.T) {
	r := newResolver(Config{})
	cmds := r.AvailableCommands()
	if len(cmds) != catalog.Default().Len() {
		t.Fatalf("len = %d", len(cmds))
	}
	for _, c := range cmds {
		if c.Type == "" {
			t.Errorf("%s has no type", c.Name)
		}
	}
}

var sampleInputs = []string{
	"commit all changes", "commit", "save my work", "push to remote", "pull latest",
	"create branch x", "merge main", "deploy to staging", "run tests", "status",
	"help", "xyx qqzz flerp", "", "   ", "?", "please", "commit commit commit push pull",
}

// Feature: gitmind, Property 1: confidence is always within [0,1]
func TestPropertyConfidenceRange(t *testing.T) {
	r := newResolver(Config{Context: fakeContext{
		snap: onBranch("feature/x"),
		inf:  inference.Result{HasUncommittedChanges: true, NeedsPush: true, NeedsPull: true, Workflow: inference.WorkflowFeature},
	}})
	rapid.Check(t, func(t *rapid.T) {
		input := rapid.OneOf(rapid.SampledFrom(sampleInputs), rapid.String()).Draw(t, "input")
		got := r.Resolve(context.Background(), input, Options{})
		if got.Confidence < 0 || got.Confidence > 1 || math.IsNaN(got.Confidence) {
			t.Fatalf("confidence %v out of range for %q", got.Confidence, input)
		}
	})
}

// Feature: gitmind, Property 4: low confidence always yields an ambiguous intent
func TestPropertyAmbiguityFloor(t *testing.T) {
	r := newResolver(Config{})
	rapid.Check(t, func(t *rapid.T) {
		input := rapid.OneOf(rapid.SampledFrom(sampleInputs), rapid.String()).Draw(t, "input")
		got := r.Resolve(context.Background(), input, Options{})
		switch got.Type {
		case TypeAmbiguous:
			if got.Confidence != 0 || len(got.Suggestions) > maxSuggestions {
				t.Fatalf("ambiguous %q: confidence=%v suggestions=%d", input, got.Confidence, len(got.Suggestions))
			}
		case TypeError:
			t.Fatalf("unexpected error intent for %q: %s", input, got.Error)
		default:
			if got.Confidence < ambiguityFloor {
				t.Fatalf("%q resolved to %s with confidence %v", input, got.Type, got.Confidence)
			}
		}
	})
}

// Feature: gitmind, Property 2: uncommitted changes never lower a commit's confidence
func TestPropertyBoostMonotonic(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		input := rapid.SampledFrom([]string{
			"commit all changes", "commit", "save my work", "stage all changes", "record changes", "comit chnages",
		}).Draw(t, "input")
		inf := inference.Result{
			NeedsPush: rapid.Bool().Draw(t, "needsPush"),
			NeedsPull: rapid.Bool().Draw(t, "needsPull"),
			Workflow:  rapid.SampledFrom([]string{inference.WorkflowFeature, inference.WorkflowMaintenance, ""}).Draw(t, "workflow"),
		}
		snap := onBranch(rapid.SampledFrom([]string{"main", "feature/a", ""}).Draw(t, "branch"))

		without := newResolver(Config{Context: fakeContext{snap: snap, inf: inf}}).
			Resolve(context.Background(), input, Options{})
		inf.HasUncommittedChanges = true
		with := newResolver(Config{Context: fakeContext{snap: snap, inf: inf}}).
			Resolve(context.Background(), input, Options{})

		if without.Type != catalog.Commit {
			return
		}
		if with.Confidence < without.Confidence || with.Confidence > 1 {
			t.Fatalf("%q: %v without flag, %v with", input, without.Confidence, with.Confidence)
		}
	})
}

// Feature: gitmind, Property 3: the resolution cache never exceeds its capacity
func TestPropertyCacheBound(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		size := rapid.IntRange(1, 20).Draw(t, "size")
		r := newResolver(Config{CacheSize: size})
		inputs := rapid.SliceOf(rapid.StringMatching(`[a-z ]{0,12}`)).Draw(t, "inputs")
		for _, in := range inputs {
			r.Resolve(context.Background(), in, Options{})
			if r.CacheLen() > size {
				t.Fatalf("cache holds %d > %d", r.CacheLen(), size)
			}
		}
	})
}

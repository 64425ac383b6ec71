package inference

import (
	"slices"
	"testing"
	"time"

	"pgregory.net/rapid"

	"github.com/fakeyudi/gitmind/internal/snapshot"
)

func TestRuleInferrerWorkflows(t *testing.T) {
	tests := []struct {
		name     string
		branch   string
		changed  []string
		conflict []string
		want     string
	}{
		{"conflicts win", "feature/x", nil, []string{"a.go"}, WorkflowConflictResolution},
		{"feature branch", "feature/login", nil, nil, WorkflowFeature},
		{"feat shorthand", "feat/login", nil, nil, WorkflowFeature},
		{"fix branch", "fix/npe", nil, nil, WorkflowBugFix},
		{"bugfix branch", "bugfix/npe", nil, nil, WorkflowBugFix},
		{"hotfix branch", "hotfix/1.2.1", nil, nil, WorkflowHotfix},
		{"other topic branch", "spike-cache", nil, nil, WorkflowFeature},
		{"main with changes", "main", []string{"x.go"}, nil, WorkflowDirectMain},
		{"clean master", "master", nil, nil, WorkflowMaintenance},
		{"no branch", "", nil, nil, WorkflowUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := snapshot.New()
			s.Git.CurrentBranch = tt.branch
			s.Git.ChangedFiles = tt.changed
			s.Git.ConflictedFiles = tt.conflict
			if got := (RuleInferrer{}).Infer(s).Workflow; got != tt.want {
				t.Errorf("Workflow = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRuleInferrerDivergence(t *testing.T) {
	s := snapshot.New()
	s.Git.CurrentBranch = "feature/x"
	s.Git.Ahead = 2
	r := (RuleInferrer{}).Infer(s)
	if !r.NeedsPush || r.NeedsPull {
		t.Errorf("ahead only: NeedsPush=%v NeedsPull=%v", r.NeedsPush, r.NeedsPull)
	}
	if !slices.Contains(r.Recommendations, "push") {
		t.Errorf("expected push recommendation, got %v", r.Recommendations)
	}

	s.Git.Behind = 1
	r = (RuleInferrer{}).Infer(s)
	if !r.NeedsPull {
		t.Error("behind should need pull")
	}
	if slices.Contains(r.Recommendations, "push") {
		t.Errorf("push should wait for pull, got %v", r.Recommendations)
	}
}

func TestRuleInferrerRecommendsCommitAndBranch(t *testing.T) {
	s := snapshot.New()
	s.Git.CurrentBranch = "main"
	s.Git.UntrackedFiles = []string{"new.go"}
	s.Project.Scripts = map[string]string{"test": "go test ./..."}
	r := (RuleInferrer{}).Infer(s)
	for _, want := range []string{"commit", "create branch", "run tests"} {
		if !slices.Contains(r.Recommendations, want) {
			t.Errorf("missing %q in %v", want, r.Recommendations)
		}
	}
}

func TestInferNil(t *testing.T) {
	if got := (RuleInferrer{}).Infer(nil).Workflow; got != WorkflowUnknown {
		t.Errorf("Workflow = %q", got)
	}
}

// Feature: gitmind, Property 8: Inference confidence stays in [0.3, 1]
func TestInferenceConfidenceRange(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s := snapshot.New()
		s.Git.CurrentBranch = rapid.SampledFrom([]string{"", "main", "feature/a", "fix/b"}).Draw(t, "branch")
		s.Git.Ahead = rapid.IntRange(0, 5).Draw(t, "ahead")
		s.Git.Behind = rapid.IntRange(0, 5).Draw(t, "behind")
		if rapid.Bool().Draw(t, "gitRefreshed") {
			now := time.Now()
			s.Git.LastRefresh = &now
		}
		if rapid.Bool().Draw(t, "projectRefreshed") {
			now := time.Now()
			s.Project.LastRefresh = &now
		}
		r := (RuleInferrer{}).Infer(s)
		if r.Confidence < 0.3 || r.Confidence > 1 {
			t.Fatalf("confidence %v out of range", r.Confidence)
		}
	})
}

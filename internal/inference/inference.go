// Package inference derives workflow judgments from a context snapshot.
package inference

import (
	"strings"

	"github.com/fakeyudi/gitmind/internal/snapshot"
)

// Workflow classifications.
const (
	WorkflowConflictResolution = "conflict-resolution"
	WorkflowFeature            = "feature-development"
	WorkflowBugFix             = "bug-fixing"
	WorkflowHotfix             = "hotfix"
	WorkflowDirectMain         = "direct-main-development"
	WorkflowMaintenance        = "maintenance"
	WorkflowUnknown            = "unknown"
)

// Result is a higher-level reading of the snapshot.
type Result struct {
	Workflow              string   `json:"workflow"`
	HasUncommittedChanges bool     `json:"has_uncommitted_changes"`
	NeedsPush             bool     `json:"needs_push"`
	NeedsPull             bool     `json:"needs_pull"`
	HasConflicts          bool     `json:"has_conflicts"`
	Recommendations       []string `json:"recommendations"`
	Confidence            float64  `json:"confidence"`
}

// Inferrer turns a snapshot into a Result.
type Inferrer interface {
	Infer(s *snapshot.ContextSnapshot) Result
}

// RuleInferrer classifies with fixed branch-name and status rules.
type RuleInferrer struct{}

var branchWorkflows = []struct {
	prefix   string
	workflow string
}{
	{"feature/", WorkflowFeature},
	{"feat/", WorkflowFeature},
	{"fix/", WorkflowBugFix},
	{"bugfix/", WorkflowBugFix},
	{"hotfix/", WorkflowHotfix},
}

// Infer implements Inferrer.
func (RuleInferrer) Infer(s *snapshot.ContextSnapshot) Result {
	if s == nil {
		return Result{Workflow: WorkflowUnknown}
	}
	g := s.Git
	r := Result{
		HasUncommittedChanges: s.HasUncommittedChanges(),
		NeedsPush:             g.Ahead > 0,
		NeedsPull:             g.Behind > 0,
		HasConflicts:          len(g.ConflictedFiles) > 0,
	}

	switch {
	case r.HasConflicts:
		r.Workflow = WorkflowConflictResolution
	case g.CurrentBranch == "":
		r.Workflow = WorkflowUnknown
	case snapshot.IsMainBranch(g.CurrentBranch):
		if r.HasUncommittedChanges {
			r.Workflow = WorkflowDirectMain
		} else {
			r.Workflow = WorkflowMaintenance
		}
	default:
		r.Workflow = WorkflowFeature
		for _, bw := range branchWorkflows {
			if strings.HasPrefix(g.CurrentBranch, bw.prefix) {
				r.Workflow = bw.workflow
				break
			}
		}
	}

	r.Recommendations = recommend(s, r)
	r.Confidence = confidence(s)
	return r
}

// recommend phrases next steps as catalog command names.
func recommend(s *snapshot.ContextSnapshot, r Result) []string {
	var recs []string
	if r.HasConflicts {
		recs = append(recs, "resolve conflicts")
	}
	if r.NeedsPull {
		recs = append(recs, "pull")
	}
	if r.HasUncommittedChanges && !r.HasConflicts {
		recs = append(recs, "commit")
	}
	if r.NeedsPush && !r.NeedsPull {
		recs = append(recs, "push")
	}
	if r.Workflow == WorkflowDirectMain {
		recs = append(recs, "create branch")
	}
	if (r.Workflow == WorkflowFeature || r.Workflow == WorkflowBugFix || r.Workflow == WorkflowHotfix) &&
		!r.HasUncommittedChanges && !r.NeedsPush && s.Git.Upstream != "" {
		recs = append(recs, "create pull request")
	}
	if _, ok := s.Project.Scripts["test"]; ok && r.HasUncommittedChanges {
		recs = append(recs, "run tests")
	}
	return recs
}

// confidence is the fraction of signals available, scaled to [0.3, 1].
func confidence(s *snapshot.ContextSnapshot) float64 {
	signals := 0
	if s.Git.CurrentBranch != "" {
		signals++
	}
	if s.Git.LastRefresh != nil {
		signals++
	}
	if s.Project.LastRefresh != nil {
		signals++
	}
	return 0.3 + 0.7*float64(signals)/3
}

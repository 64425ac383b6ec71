package collector

import (
	"context"
	"errors"
	"os/exec"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/fakeyudi/gitmind/internal/snapshot"
)

// exitCode128Error returns a real *exec.ExitError with exit code 128
// by running a shell command that exits with that code.
func exitCode128Error() error {
	cmd := exec.Command("sh", "-c", "exit 128")
	return cmd.Run()
}

// TestGitCollectorNonGitRepo verifies that a runner failing with exit code
// 128 surfaces as ErrNotRepository.
func TestGitCollectorNonGitRepo(t *testing.T) {
	exitErr := exitCode128Error()
	if exitErr == nil {
		t.Fatal("expected exit code 128 error, got nil")
	}

	mockRunner := func(ctx context.Context, workDir string, args ...string) (string, error) {
		return "", exitErr
	}

	gc := &GitCollector{WorkDir: "/some/dir", Runner: mockRunner}
	_, err := gc.Collect(context.Background())
	if !errors.Is(err, ErrNotRepository) {
		t.Fatalf("expected ErrNotRepository, got %v", err)
	}
}

func fakeRepo(t *testing.T, responses map[string]string) GitRunner {
	var mu sync.Mutex
	return func(ctx context.Context, workDir string, args ...string) (string, error) {
		mu.Lock()
		defer mu.Unlock()
		key := strings.Join(args, " ")
		// log carries a format string; match by prefix
		if strings.HasPrefix(key, "log -n") {
			key = "log"
		}
		if out, ok := responses[key]; ok {
			return out, nil
		}
		t.Errorf("unexpected git command: %q", key)
		return "", nil
	}
}

// TestGitCollectorSuccess verifies that when all git commands succeed,
// Collect populates every GitContext field.
func TestGitCollectorSuccess(t *testing.T) {
	log := strings.Join([]string{
		"aaa111\x1fAda\x1fada@example.com\x1f2026-03-02T10:00:00Z\x1fadd parser",
		"bbb222\x1fLin\x1flin@example.com\x1f2026-03-01T09:00:00Z\x1ffix build",
		"ccc333\x1fAda\x1fADA@example.com\x1f2026-02-28T08:00:00Z\x1finitial commit",
	}, "\n")
	runner := fakeRepo(t, map[string]string{
		"rev-parse --is-inside-work-tree":  "true\n",
		"symbolic-ref --short HEAD":        "feature/parser\n",
		"branch --format=%(refname:short)": "main\nfeature/parser\n",
		"log":                              log,
		"remote -v":                        "origin\tgit@example.com:x/y.git (fetch)\norigin\tgit@example.com:x/y.git (push)\n",
		"status --porcelain=v1 --branch": "## feature/parser...origin/feature/parser [ahead 2, behind 1]\n" +
			" M internal/parser.go\n" +
			"R  old.go -> new.go\n" +
			"UU go.sum\n" +
			"?? notes.txt\n",
	})

	res, err := (&GitCollector{WorkDir: "/repo", Runner: runner}).Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect returned unexpected error: %v", err)
	}

	g := res.Git
	if g.CurrentBranch != "feature/parser" {
		t.Errorf("CurrentBranch = %q", g.CurrentBranch)
	}
	if g.Upstream != "origin/feature/parser" || g.Ahead != 2 || g.Behind != 1 {
		t.Errorf("tracking = %q ahead=%d behind=%d", g.Upstream, g.Ahead, g.Behind)
	}
	if diff := cmp.Diff([]string{"main", "feature/parser"}, g.Branches); diff != "" {
		t.Errorf("Branches (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"internal/parser.go", "new.go"}, g.ChangedFiles); diff != "" {
		t.Errorf("ChangedFiles (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"go.sum"}, g.ConflictedFiles); diff != "" {
		t.Errorf("ConflictedFiles (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"notes.txt"}, g.UntrackedFiles); diff != "" {
		t.Errorf("UntrackedFiles (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]snapshot.Remote{{Name: "origin", URL: "git@example.com:x/y.git"}}, g.Remotes); diff != "" {
		t.Errorf("Remotes (-want +got):\n%s", diff)
	}
	if len(g.Commits) != 3 || g.Commits[0].Hash != "aaa111" || g.Commits[0].Subject != "add parser" {
		t.Fatalf("Commits = %+v", g.Commits)
	}
	if want := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC); !g.Commits[0].Date.Equal(want) {
		t.Errorf("commit date = %v, want %v", g.Commits[0].Date, want)
	}
	if g.LastRefresh == nil {
		t.Error("LastRefresh not set")
	}

	if len(res.Team.Collaborators) != 2 {
		t.Fatalf("Collaborators = %+v", res.Team.Collaborators)
	}
	ada := res.Team.Collaborators[0]
	if ada.Name != "Ada" || ada.Commits != 2 {
		t.Errorf("top collaborator = %+v, want Ada with 2 commits", ada)
	}
	if len(res.Team.RecentActivity) != 3 {
		t.Errorf("RecentActivity len = %d", len(res.Team.RecentActivity))
	}
}

func TestGitCollectorUnbornHead(t *testing.T) {
	unborn := exitCode128Error()
	runner := func(ctx context.Context, workDir string, args ...string) (string, error) {
		switch args[0] {
		case "rev-parse":
			return "true\n", nil
		case "symbolic-ref":
			return "feature/x\n", nil
		case "log":
			return "", unborn
		case "status":
			return "## No commits yet on feature/x\n?? a.txt\n", nil
		}
		return "", nil
	}

	res, err := (&GitCollector{WorkDir: "/repo", Runner: runner}).Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect on unborn HEAD: %v", err)
	}
	g := res.Git
	if g.CurrentBranch != "feature/x" {
		t.Errorf("CurrentBranch = %q", g.CurrentBranch)
	}
	if diff := cmp.Diff([]string{"a.txt"}, g.UntrackedFiles); diff != "" {
		t.Errorf("UntrackedFiles (-want +got):\n%s", diff)
	}
	if len(g.Commits) != 0 || len(res.Team.Collaborators) != 0 {
		t.Errorf("commits = %+v, collaborators = %+v", g.Commits, res.Team.Collaborators)
	}
	if g.LastRefresh == nil {
		t.Error("LastRefresh not set")
	}
}

func TestGitCollectorDetachedHead(t *testing.T) {
	notSymbolic := exitCode128Error()
	runner := func(ctx context.Context, workDir string, args ...string) (string, error) {
		if args[0] == "symbolic-ref" {
			return "", notSymbolic
		}
		return "", nil
	}
	res, err := (&GitCollector{Runner: runner}).Collect(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.Git.CurrentBranch != "HEAD" {
		t.Errorf("CurrentBranch = %q, want HEAD", res.Git.CurrentBranch)
	}
}

func TestGitCollectorCommandFailure(t *testing.T) {
	boom := errors.New("boom")
	runner := func(ctx context.Context, workDir string, args ...string) (string, error) {
		if args[0] == "remote" {
			return "", boom
		}
		return "main\n", nil
	}
	_, err := (&GitCollector{Runner: runner}).Collect(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped runner error, got %v", err)
	}
}

func TestGitCollectorCommitLimit(t *testing.T) {
	var got string
	var mu sync.Mutex
	runner := func(ctx context.Context, workDir string, args ...string) (string, error) {
		if args[0] == "log" {
			mu.Lock()
			got = args[2]
			mu.Unlock()
		}
		return "", nil
	}
	if _, err := (&GitCollector{Runner: runner, CommitLimit: 7}).Collect(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got != "7" {
		t.Errorf("log -n = %q, want 7", got)
	}
}

func TestParseBranchHeader(t *testing.T) {
	tests := []struct {
		header        string
		upstream      string
		ahead, behind int
	}{
		{"main", "", 0, 0},
		{"main...origin/main", "origin/main", 0, 0},
		{"main...origin/main [behind 4]", "origin/main", 0, 4},
		{"dev...up/dev [ahead 1, behind 9]", "up/dev", 1, 9},
		{"No commits yet on main", "", 0, 0},
	}
	for _, tt := range tests {
		var g snapshot.GitContext
		parseBranchHeader(&g, tt.header)
		if g.Upstream != tt.upstream || g.Ahead != tt.ahead || g.Behind != tt.behind {
			t.Errorf("%q: got upstream=%q ahead=%d behind=%d", tt.header, g.Upstream, g.Ahead, g.Behind)
		}
	}
}

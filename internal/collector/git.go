package collector

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/fakeyudi/gitmind/internal/snapshot"
)

const (
	defaultCommitLimit = 50
	teamActivityWindow = 10
	fieldSep           = "\x1f"
	detachedHead       = "HEAD"
)

// GitResult is everything one git refresh gathers.
type GitResult struct {
	Git  snapshot.GitContext
	Team snapshot.TeamContext
}

// GitCollector collects git repository state.
type GitCollector struct {
	WorkDir     string
	Runner      GitRunner // if nil, uses the real git subprocess
	CommitLimit int       // recent commit window, defaults to 50
}

// conflict status codes from git status --porcelain
var conflictCodes = map[string]bool{
	"UU": true, "AA": true, "DD": true,
	"AU": true, "UA": true, "DU": true, "UD": true,
}

// Collect runs the git commands that describe the current repository state.
// The work-tree check runs first; the remaining commands run in parallel.
// Nothing is returned partially: any command failure fails the whole
// collection. A repository without commits yet (unborn HEAD) still reports
// its branch and status with an empty history.
func (g *GitCollector) Collect(ctx context.Context) (GitResult, error) {
	runner := g.Runner
	if runner == nil {
		runner = defaultGitRunner
	}
	limit := g.CommitLimit
	if limit <= 0 {
		limit = defaultCommitLimit
	}

	if _, err := runner(ctx, g.WorkDir, "rev-parse", "--is-inside-work-tree"); err != nil {
		if isExitCode128(err) {
			return GitResult{}, ErrNotRepository
		}
		return GitResult{}, fmt.Errorf("git rev-parse: %w", err)
	}

	branch, err := runner(ctx, g.WorkDir, "symbolic-ref", "--short", "HEAD")
	if err != nil {
		if !isExitCode128(err) {
			return GitResult{}, fmt.Errorf("git symbolic-ref: %w", err)
		}
		branch = detachedHead
	}

	var branchesOut, logOut, remotesOut, statusOut string
	eg, egCtx := errgroup.WithContext(ctx)
	run := func(dst *string, args ...string) {
		eg.Go(func() error {
			out, err := runner(egCtx, g.WorkDir, args...)
			if err != nil {
				return fmt.Errorf("git %s: %w", args[0], err)
			}
			*dst = out
			return nil
		})
	}
	run(&branchesOut, "branch", "--format=%(refname:short)")
	eg.Go(func() error {
		out, err := runner(egCtx, g.WorkDir, "log", "-n", strconv.Itoa(limit),
			"--pretty=format:%H"+fieldSep+"%an"+fieldSep+"%ae"+fieldSep+"%aI"+fieldSep+"%s")
		switch {
		case err == nil:
			logOut = out
		case isExitCode128(err):
			// unborn HEAD: no commits yet
		default:
			return fmt.Errorf("git log: %w", err)
		}
		return nil
	})
	run(&remotesOut, "remote", "-v")
	run(&statusOut, "status", "--porcelain=v1", "--branch")
	if err := eg.Wait(); err != nil {
		return GitResult{}, err
	}

	gc := snapshot.GitContext{
		CurrentBranch: strings.TrimSpace(branch),
		Branches:      parseLines(branchesOut),
		Commits:       parseCommits(logOut),
		Remotes:       parseRemotes(remotesOut),
	}
	applyStatus(&gc, statusOut)
	now := time.Now()
	gc.LastRefresh = &now

	return GitResult{
		Git: gc,
		Team: snapshot.TeamContext{
			Collaborators:  collaborators(gc.Commits),
			RecentActivity: gc.Commits[:min(teamActivityWindow, len(gc.Commits))],
		},
	}, nil
}

// parseLines splits command output into trimmed, non-empty lines.
func parseLines(output string) []string {
	lines := strings.Split(output, "\n")
	result := make([]string, 0, len(lines))
	for _, l := range lines {
		if l = strings.TrimSpace(l); l != "" {
			result = append(result, l)
		}
	}
	return result
}

func parseCommits(output string) []snapshot.Commit {
	var commits []snapshot.Commit
	for _, line := range parseLines(output) {
		f := strings.SplitN(line, fieldSep, 5)
		if len(f) != 5 {
			continue
		}
		date, _ := time.Parse(time.RFC3339, f[3])
		commits = append(commits, snapshot.Commit{
			Hash:    f[0],
			Author:  f[1],
			Email:   f[2],
			Date:    date,
			Subject: f[4],
		})
	}
	return commits
}

// parseRemotes reads `git remote -v`, keeping one entry per remote name and
// preferring the fetch URL.
func parseRemotes(output string) []snapshot.Remote {
	var remotes []snapshot.Remote
	index := map[string]int{}
	for _, line := range parseLines(output) {
		f := strings.Fields(line)
		if len(f) < 2 {
			continue
		}
		i, seen := index[f[0]]
		if !seen {
			index[f[0]] = len(remotes)
			remotes = append(remotes, snapshot.Remote{Name: f[0], URL: f[1]})
			continue
		}
		if len(f) > 2 && f[2] == "(fetch)" {
			remotes[i].URL = f[1]
		}
	}
	return remotes
}

// applyStatus parses `git status --porcelain=v1 --branch` into gc.
func applyStatus(gc *snapshot.GitContext, output string) {
	for _, line := range strings.Split(output, "\n") {
		if strings.HasPrefix(line, "## ") {
			parseBranchHeader(gc, strings.TrimPrefix(line, "## "))
			continue
		}
		if len(line) < 4 {
			continue
		}
		code, path := line[:2], unquote(line[3:])
		if i := strings.Index(path, " -> "); i >= 0 {
			path = path[i+4:]
		}
		switch {
		case code == "??":
			gc.UntrackedFiles = append(gc.UntrackedFiles, path)
		case conflictCodes[code]:
			gc.ConflictedFiles = append(gc.ConflictedFiles, path)
		case code == "!!":
		default:
			gc.ChangedFiles = append(gc.ChangedFiles, path)
		}
	}
}

// parseBranchHeader handles "main...origin/main [ahead 1, behind 2]".
func parseBranchHeader(gc *snapshot.GitContext, header string) {
	track := ""
	if i := strings.Index(header, " ["); i >= 0 {
		track = strings.TrimSuffix(header[i+2:], "]")
		header = header[:i]
	}
	if _, upstream, ok := strings.Cut(header, "..."); ok {
		gc.Upstream = upstream
	}
	for _, part := range strings.Split(track, ", ") {
		kind, n, ok := strings.Cut(part, " ")
		if !ok {
			continue
		}
		v, err := strconv.Atoi(n)
		if err != nil {
			continue
		}
		switch kind {
		case "ahead":
			gc.Ahead = v
		case "behind":
			gc.Behind = v
		}
	}
}

func unquote(path string) string {
	if s, err := strconv.Unquote(path); err == nil {
		return s
	}
	return path
}

// collaborators groups commits by author email, most active first.
func collaborators(commits []snapshot.Commit) []snapshot.Collaborator {
	byKey := map[string]*snapshot.Collaborator{}
	for _, c := range commits {
		key := strings.ToLower(c.Email)
		if key == "" {
			key = c.Author
		}
		cb, ok := byKey[key]
		if !ok {
			cb = &snapshot.Collaborator{Name: c.Author, Email: c.Email}
			byKey[key] = cb
		}
		cb.Commits++
		if c.Date.After(cb.LastCommit) {
			cb.LastCommit = c.Date
		}
	}
	out := make([]snapshot.Collaborator, 0, len(byKey))
	for _, cb := range byKey {
		out = append(out, *cb)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Commits != out[j].Commits {
			return out[i].Commits > out[j].Commits
		}
		return out[i].Name < out[j].Name
	})
	return out
}

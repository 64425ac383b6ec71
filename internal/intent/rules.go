package intent

import (
	"context"
	"regexp"

	"github.com/fakeyudi/gitmind/internal/catalog"
)

// rule is the hand-authored vocabulary for one intent type.
type rule struct {
	typ      string
	patterns []*regexp.Regexp
	verbs    []string
	keywords []string
}

// rules are listed in tie-break order: on equal scores the earlier type wins.
var rules = []rule{
	{
		typ: catalog.Commit,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`\bcommit\b`),
			regexp.MustCompile(`\bsave (my |the |all )?(work|changes)\b`),
			regexp.MustCompile(`\bstage (all |my |the )?(changes|files)\b`),
		},
		verbs:    []string{"commit", "save", "stage", "record"},
		keywords: []string{"changes", "change", "work", "files", "everything", "message", "staged"},
	},
	{
		typ: catalog.Push,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`\bpush\b`),
			regexp.MustCompile(`\bupload (my |the )?(changes|commits|branch|work)\b`),
		},
		verbs:    []string{"push", "upload", "publish", "send"},
		keywords: []string{"remote", "origin", "upstream", "commits", "server"},
	},
	{
		typ: catalog.Pull,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`^pull(\s+(latest|changes|from|down|origin|upstream)\b|$)`),
			regexp.MustCompile(`\bpull (latest|changes|from|down|the latest)\b`),
			regexp.MustCompile(`\bfetch\b`),
			regexp.MustCompile(`\bupdate from\b`),
		},
		verbs:    []string{"pull", "fetch", "sync", "update", "get"},
		keywords: []string{"latest", "upstream", "origin", "remote", "main", "master", "updates"},
	},
	{
		typ: catalog.Branch,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`\b(create|make|new|switch|change|delete|remove|rename|list)\b.*\bbranch(es)?\b`),
			regexp.MustCompile(`\bcheckout\b`),
			regexp.MustCompile(`\bswitch to\b`),
			regexp.MustCompile(`^branch\b`),
		},
		verbs:    []string{"create", "make", "switch", "checkout", "delete", "remove", "rename", "list"},
		keywords: []string{"branch", "branches"},
	},
	{
		typ: catalog.Merge,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`\bmerge\b`),
			regexp.MustCompile(`\brebase\b`),
		},
		verbs:    []string{"merge", "rebase", "combine", "integrate"},
		keywords: []string{"main", "master", "into", "onto"},
	},
	{
		typ: catalog.Develop,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`\b(start|begin|finish|work on|develop)\b.*\b(feature|fix|hotfix|bugfix)\b`),
			regexp.MustCompile(`\bnew feature\b`),
		},
		verbs:    []string{"start", "begin", "finish", "develop", "work", "implement", "build"},
		keywords: []string{"feature", "fix", "bugfix", "hotfix", "task", "ticket"},
	},
	{
		typ: catalog.Deploy,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`\bdeploy\b`),
			regexp.MustCompile(`\brelease\b`),
			regexp.MustCompile(`\bship\b`),
		},
		verbs:    []string{"deploy", "release", "ship", "launch", "roll"},
		keywords: []string{"production", "staging", "prod", "environment", "version"},
	},
	{
		typ: catalog.Test,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`\b(run|execute)\b.*\btests?\b`),
			regexp.MustCompile(`^tests?\b`),
			regexp.MustCompile(`\btest suite\b`),
		},
		verbs:    []string{"run", "execute", "test", "verify"},
		keywords: []string{"tests", "test", "suite", "specs", "coverage"},
	},
	{
		typ: catalog.Status,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`\bstatus\b`),
			regexp.MustCompile(`\bwhat changed\b`),
			regexp.MustCompile(`\bshow (me )?(the )?(log|diff|history)\b`),
			regexp.MustCompile(`^(log|diff)\b`),
		},
		verbs:    []string{"show", "see", "check", "view", "display"},
		keywords: []string{"status", "changes", "log", "diff", "history", "state", "modified"},
	},
	{
		typ: catalog.Context,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`\bcontext\b`),
			regexp.MustCompile(`\bwhere am i\b`),
			regexp.MustCompile(`\bwhat (branch|project)\b`),
		},
		verbs:    []string{"describe", "summarize", "explain"},
		keywords: []string{"context", "project", "repository", "repo", "workflow", "where"},
	},
	{
		typ: catalog.Collaborate,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`\bpull request\b`),
			regexp.MustCompile(`\b(open|create|review|make) (a )?pr\b`),
			regexp.MustCompile(`\breview\b`),
		},
		verbs:    []string{"open", "review", "request", "assign", "share", "approve"},
		keywords: []string{"pr", "reviewer", "reviewers", "team", "collaborator", "collaborators", "teammate"},
	},
	{
		typ: catalog.Help,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`^help\b`),
			regexp.MustCompile(`\bwhat can you do\b`),
			regexp.MustCompile(`\bhow do i\b`),
			regexp.MustCompile(`\bcommands\b`),
		},
		verbs:    []string{"help", "guide", "teach"},
		keywords: []string{"help", "commands", "usage", "options", "do"},
	},
}

// patternStrategy scores 0.8 on a regular expression match and 0.7 when the
// text holds both a verb and a keyword of the same type.
type patternStrategy struct{}

func (patternStrategy) Attempt(_ context.Context, in *Input) (Candidate, bool) {
	words := wordSet(in.Tokens)
	var best Candidate
	for _, r := range rules {
		score, method := 0.0, ""
		for _, p := range r.patterns {
			if p.MatchString(in.Normalized) {
				score, method = 0.8, MethodPattern
				break
			}
		}
		if score == 0 && countIn(words, r.verbs) > 0 && countIn(words, r.keywords) > 0 {
			score, method = 0.7, MethodVerbKeyword
		}
		if score > best.Confidence {
			best = Candidate{Type: r.typ, Confidence: score, Method: method}
		}
	}
	return best, best.Confidence > 0
}

func wordSet(tokens []string) map[string]bool {
	set := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		set[t] = true
	}
	return set
}

func countIn(set map[string]bool, words []string) int {
	n := 0
	for _, w := range words {
		if set[w] {
			n++
		}
	}
	return n
}

// Package snapshot defines the structured view of repository, project, user
// and team state that the context engine keeps current.
package snapshot

import (
	"maps"
	"time"
)

// SchemaVersion is stamped into every new snapshot's metadata.
const SchemaVersion = "1.0.0"

// ContextSnapshot is the engine's single source of truth at any instant.
// The Git and Project sections are always present; their fields stay zero
// until the first successful refresh.
type ContextSnapshot struct {
	Git      GitContext     `json:"git"`
	Project  ProjectContext `json:"project"`
	User     UserContext    `json:"user"`
	Team     TeamContext    `json:"team"`
	Metadata Metadata       `json:"metadata"`
	// Extra holds values written to paths outside the typed sections.
	Extra map[string]any `json:"extra,omitempty"`
}

// GitContext captures version-control state.
type GitContext struct {
	CurrentBranch   string     `json:"current_branch"`
	Upstream        string     `json:"upstream,omitempty"`
	Branches        []string   `json:"branches"`
	Commits         []Commit   `json:"commits"` // newest first, bounded window
	Remotes         []Remote   `json:"remotes"`
	ConflictedFiles []string   `json:"conflicted_files"`
	ChangedFiles    []string   `json:"changed_files"`
	UntrackedFiles  []string   `json:"untracked_files"`
	Ahead           int        `json:"ahead"`
	Behind          int        `json:"behind"`
	LastRefresh     *time.Time `json:"last_refresh,omitempty"`
}

// Commit is one entry of the recent commit log.
type Commit struct {
	Hash    string    `json:"hash"`
	Author  string    `json:"author"`
	Email   string    `json:"email"`
	Date    time.Time `json:"date"`
	Subject string    `json:"subject"`
}

// Remote is a named git remote.
type Remote struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// ProjectContext captures the working tree inventory and manifests.
type ProjectContext struct {
	Root            string            `json:"root"`
	Name            string            `json:"name,omitempty"`
	Kind            string            `json:"kind,omitempty"` // "go", "node", "mixed", ...
	Directories     []string          `json:"directories"`
	Files           []string          `json:"files"`
	Dependencies    map[string]string `json:"dependencies"`
	DevDependencies map[string]string `json:"dev_dependencies"`
	Scripts         map[string]string `json:"scripts"`
	ConfigFiles     []string          `json:"config_files"`
	LastRefresh     *time.Time        `json:"last_refresh,omitempty"`
}

// UserContext holds recent user activity.
type UserContext struct {
	Activities []Activity `json:"activities"` // oldest first
	LastAction *Activity  `json:"last_action,omitempty"`
}

// Activity is a single tracked user action.
type Activity struct {
	ID          string         `json:"id"`
	Type        string         `json:"type"`
	Description string         `json:"description"`
	Context     map[string]any `json:"context,omitempty"`
	Timestamp   time.Time      `json:"timestamp"`
}

// TeamContext is derived from commit authorship.
type TeamContext struct {
	Collaborators  []Collaborator `json:"collaborators"`
	RecentActivity []Commit       `json:"recent_activity"`
}

// Collaborator is a commit author seen in the recent log.
type Collaborator struct {
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Commits    int       `json:"commits"`
	LastCommit time.Time `json:"last_commit"`
}

// Metadata tracks the snapshot's own lifecycle.
type Metadata struct {
	Version     string    `json:"version"`
	LastUpdated time.Time `json:"last_updated"`
	UpdateCount uint64    `json:"update_count"`
}

// New returns an empty snapshot stamped with the current schema version.
func New() *ContextSnapshot {
	return &ContextSnapshot{
		Metadata: Metadata{Version: SchemaVersion},
		Extra:    map[string]any{},
	}
}

// Clone returns a deep copy that shares no slices or maps with s.
func (s *ContextSnapshot) Clone() *ContextSnapshot {
	c := *s

	c.Git.Branches = cloneSlice(s.Git.Branches)
	c.Git.Commits = cloneSlice(s.Git.Commits)
	c.Git.Remotes = cloneSlice(s.Git.Remotes)
	c.Git.ConflictedFiles = cloneSlice(s.Git.ConflictedFiles)
	c.Git.ChangedFiles = cloneSlice(s.Git.ChangedFiles)
	c.Git.UntrackedFiles = cloneSlice(s.Git.UntrackedFiles)
	c.Git.LastRefresh = cloneTime(s.Git.LastRefresh)

	c.Project.Directories = cloneSlice(s.Project.Directories)
	c.Project.Files = cloneSlice(s.Project.Files)
	c.Project.ConfigFiles = cloneSlice(s.Project.ConfigFiles)
	c.Project.Dependencies = maps.Clone(s.Project.Dependencies)
	c.Project.DevDependencies = maps.Clone(s.Project.DevDependencies)
	c.Project.Scripts = maps.Clone(s.Project.Scripts)
	c.Project.LastRefresh = cloneTime(s.Project.LastRefresh)

	c.User.Activities = make([]Activity, len(s.User.Activities))
	for i, a := range s.User.Activities {
		c.User.Activities[i] = a.clone()
	}
	if s.User.LastAction != nil {
		la := s.User.LastAction.clone()
		c.User.LastAction = &la
	}

	c.Team.Collaborators = cloneSlice(s.Team.Collaborators)
	c.Team.RecentActivity = cloneSlice(s.Team.RecentActivity)

	c.Extra = cloneTree(s.Extra)
	return &c
}

func (a Activity) clone() Activity {
	a.Context = cloneTree(a.Context)
	return a
}

// AppendActivity adds a to the activity ring, evicting the oldest entries
// once more than limit are held, and records it as the last action.
func (s *ContextSnapshot) AppendActivity(a Activity, limit int) {
	if limit <= 0 {
		limit = 100
	}
	a = a.clone()
	acts := append(s.User.Activities, a)
	if over := len(acts) - limit; over > 0 {
		acts = append([]Activity(nil), acts[over:]...)
	}
	s.User.Activities = acts
	last := a.clone()
	s.User.LastAction = &last
}

// HasUncommittedChanges reports pending work in the working tree.
func (s *ContextSnapshot) HasUncommittedChanges() bool {
	return len(s.Git.ChangedFiles)+len(s.Git.UntrackedFiles)+len(s.Git.ConflictedFiles) > 0
}

// IsMainBranch reports whether name is a trunk branch.
func IsMainBranch(name string) bool {
	switch name {
	case "main", "master", "trunk":
		return true
	}
	return false
}

func cloneSlice[T any](s []T) []T {
	if s == nil {
		return nil
	}
	out := make([]T, len(s))
	copy(out, s)
	return out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func cloneTree(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		if sub, ok := v.(map[string]any); ok {
			out[k] = cloneTree(sub)
			continue
		}
		out[k] = v
	}
	return out
}

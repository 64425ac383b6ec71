package snapshot

import (
	"strings"
	"time"
)

type setter func(s *ContextSnapshot, v any) bool
type getter func(s *ContextSnapshot) any

var setters = map[string]setter{
	"git.currentBranch":       stringField(func(s *ContextSnapshot) *string { return &s.Git.CurrentBranch }),
	"git.upstream":            stringField(func(s *ContextSnapshot) *string { return &s.Git.Upstream }),
	"git.branches":            stringsField(func(s *ContextSnapshot) *[]string { return &s.Git.Branches }),
	"git.conflictedFiles":     stringsField(func(s *ContextSnapshot) *[]string { return &s.Git.ConflictedFiles }),
	"git.changedFiles":        stringsField(func(s *ContextSnapshot) *[]string { return &s.Git.ChangedFiles }),
	"git.untrackedFiles":      stringsField(func(s *ContextSnapshot) *[]string { return &s.Git.UntrackedFiles }),
	"git.ahead":               intField(func(s *ContextSnapshot) *int { return &s.Git.Ahead }),
	"git.behind":              intField(func(s *ContextSnapshot) *int { return &s.Git.Behind }),
	"git.lastRefresh":         timeField(func(s *ContextSnapshot) **time.Time { return &s.Git.LastRefresh }),
	"project.root":            stringField(func(s *ContextSnapshot) *string { return &s.Project.Root }),
	"project.name":            stringField(func(s *ContextSnapshot) *string { return &s.Project.Name }),
	"project.kind":            stringField(func(s *ContextSnapshot) *string { return &s.Project.Kind }),
	"project.directories":     stringsField(func(s *ContextSnapshot) *[]string { return &s.Project.Directories }),
	"project.files":           stringsField(func(s *ContextSnapshot) *[]string { return &s.Project.Files }),
	"project.configFiles":     stringsField(func(s *ContextSnapshot) *[]string { return &s.Project.ConfigFiles }),
	"project.dependencies":    mapField(func(s *ContextSnapshot) *map[string]string { return &s.Project.Dependencies }),
	"project.devDependencies": mapField(func(s *ContextSnapshot) *map[string]string { return &s.Project.DevDependencies }),
	"project.scripts":         mapField(func(s *ContextSnapshot) *map[string]string { return &s.Project.Scripts }),
	"project.lastRefresh":     timeField(func(s *ContextSnapshot) **time.Time { return &s.Project.LastRefresh }),
	"metadata.version":        stringField(func(s *ContextSnapshot) *string { return &s.Metadata.Version }),

	"git.commits": func(s *ContextSnapshot, v any) bool {
		c, ok := v.([]Commit)
		if ok {
			s.Git.Commits = cloneSlice(c)
		}
		return ok
	},
	"git.remotes": func(s *ContextSnapshot, v any) bool {
		r, ok := v.([]Remote)
		if ok {
			s.Git.Remotes = cloneSlice(r)
		}
		return ok
	},
	"team.collaborators": func(s *ContextSnapshot, v any) bool {
		c, ok := v.([]Collaborator)
		if ok {
			s.Team.Collaborators = cloneSlice(c)
		}
		return ok
	},
	"team.recentActivity": func(s *ContextSnapshot, v any) bool {
		c, ok := v.([]Commit)
		if ok {
			s.Team.RecentActivity = cloneSlice(c)
		}
		return ok
	},
	"user.lastAction": func(s *ContextSnapshot, v any) bool {
		a, ok := v.(Activity)
		if ok {
			a = a.clone()
			s.User.LastAction = &a
		}
		return ok
	},
}

var getters = map[string]getter{
	"git":                     func(s *ContextSnapshot) any { return s.Clone().Git },
	"project":                 func(s *ContextSnapshot) any { return s.Clone().Project },
	"user":                    func(s *ContextSnapshot) any { return s.Clone().User },
	"team":                    func(s *ContextSnapshot) any { return s.Clone().Team },
	"metadata":                func(s *ContextSnapshot) any { return s.Metadata },
	"git.currentBranch":       func(s *ContextSnapshot) any { return s.Git.CurrentBranch },
	"git.upstream":            func(s *ContextSnapshot) any { return s.Git.Upstream },
	"git.branches":            func(s *ContextSnapshot) any { return cloneSlice(s.Git.Branches) },
	"git.commits":             func(s *ContextSnapshot) any { return cloneSlice(s.Git.Commits) },
	"git.remotes":             func(s *ContextSnapshot) any { return cloneSlice(s.Git.Remotes) },
	"git.conflictedFiles":     func(s *ContextSnapshot) any { return cloneSlice(s.Git.ConflictedFiles) },
	"git.changedFiles":        func(s *ContextSnapshot) any { return cloneSlice(s.Git.ChangedFiles) },
	"git.untrackedFiles":      func(s *ContextSnapshot) any { return cloneSlice(s.Git.UntrackedFiles) },
	"git.ahead":               func(s *ContextSnapshot) any { return s.Git.Ahead },
	"git.behind":              func(s *ContextSnapshot) any { return s.Git.Behind },
	"git.lastRefresh":         func(s *ContextSnapshot) any { return cloneTime(s.Git.LastRefresh) },
	"project.root":            func(s *ContextSnapshot) any { return s.Project.Root },
	"project.name":            func(s *ContextSnapshot) any { return s.Project.Name },
	"project.kind":            func(s *ContextSnapshot) any { return s.Project.Kind },
	"project.directories":     func(s *ContextSnapshot) any { return cloneSlice(s.Project.Directories) },
	"project.files":           func(s *ContextSnapshot) any { return cloneSlice(s.Project.Files) },
	"project.configFiles":     func(s *ContextSnapshot) any { return cloneSlice(s.Project.ConfigFiles) },
	"project.dependencies":    func(s *ContextSnapshot) any { return cloneMap(s.Project.Dependencies) },
	"project.devDependencies": func(s *ContextSnapshot) any { return cloneMap(s.Project.DevDependencies) },
	"project.scripts":         func(s *ContextSnapshot) any { return cloneMap(s.Project.Scripts) },
	"project.lastRefresh":     func(s *ContextSnapshot) any { return cloneTime(s.Project.LastRefresh) },
	"user.activities":         func(s *ContextSnapshot) any { return s.Clone().User.Activities },
	"user.lastAction":         func(s *ContextSnapshot) any { return s.Clone().User.LastAction },
	"team.collaborators":      func(s *ContextSnapshot) any { return cloneSlice(s.Team.Collaborators) },
	"team.recentActivity":     func(s *ContextSnapshot) any { return cloneSlice(s.Team.RecentActivity) },
	"metadata.version":        func(s *ContextSnapshot) any { return s.Metadata.Version },
	"metadata.lastUpdated":    func(s *ContextSnapshot) any { return s.Metadata.LastUpdated },
	"metadata.updateCount":    func(s *ContextSnapshot) any { return s.Metadata.UpdateCount },
}

// Set writes value at the dotted path. Typed paths only accept values of
// their field's type; any other path is stored in Extra, creating the
// intermediate maps it needs. It reports whether a value was stored.
func (s *ContextSnapshot) Set(path string, value any) bool {
	if fn, ok := setters[path]; ok {
		return fn(s, value)
	}
	if _, ok := getters[path]; ok {
		// read-only: sections and counters are owned by the engine
		return false
	}
	segs := splitPath(path)
	if len(segs) == 0 {
		return false
	}
	if s.Extra == nil {
		s.Extra = map[string]any{}
	}
	node := s.Extra
	for _, seg := range segs[:len(segs)-1] {
		next, ok := node[seg].(map[string]any)
		if !ok {
			next = map[string]any{}
			node[seg] = next
		}
		node = next
	}
	node[segs[len(segs)-1]] = value
	return true
}

// Lookup reads the value at the dotted path. The second result is false
// when any segment is missing.
func (s *ContextSnapshot) Lookup(path string) (any, bool) {
	if fn, ok := getters[path]; ok {
		return fn(s), true
	}
	segs := splitPath(path)
	if len(segs) == 0 {
		return nil, false
	}
	var cur any = s.Extra
	for _, seg := range segs {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		if cur, ok = m[seg]; !ok {
			return nil, false
		}
	}
	if m, ok := cur.(map[string]any); ok {
		return cloneTree(m), true
	}
	return cur, true
}

func splitPath(path string) []string {
	var segs []string
	for _, seg := range strings.Split(strings.TrimSpace(path), ".") {
		if seg != "" {
			segs = append(segs, seg)
		}
	}
	return segs
}

func stringField(f func(*ContextSnapshot) *string) setter {
	return func(s *ContextSnapshot, v any) bool {
		str, ok := v.(string)
		if ok {
			*f(s) = str
		}
		return ok
	}
}

func stringsField(f func(*ContextSnapshot) *[]string) setter {
	return func(s *ContextSnapshot, v any) bool {
		switch val := v.(type) {
		case []string:
			*f(s) = cloneSlice(val)
		case []any:
			out := make([]string, 0, len(val))
			for _, item := range val {
				str, ok := item.(string)
				if !ok {
					return false
				}
				out = append(out, str)
			}
			*f(s) = out
		default:
			return false
		}
		return true
	}
}

func intField(f func(*ContextSnapshot) *int) setter {
	return func(s *ContextSnapshot, v any) bool {
		switch n := v.(type) {
		case int:
			*f(s) = n
		case int64:
			*f(s) = int(n)
		case float64:
			// JSON numbers
			if n != float64(int(n)) {
				return false
			}
			*f(s) = int(n)
		default:
			return false
		}
		return true
	}
}

func timeField(f func(*ContextSnapshot) **time.Time) setter {
	return func(s *ContextSnapshot, v any) bool {
		switch t := v.(type) {
		case time.Time:
			*f(s) = &t
		case *time.Time:
			*f(s) = cloneTime(t)
		default:
			return false
		}
		return true
	}
}

func mapField(f func(*ContextSnapshot) *map[string]string) setter {
	return func(s *ContextSnapshot, v any) bool {
		m, ok := v.(map[string]string)
		if ok {
			*f(s) = cloneMap(m)
		}
		return ok
	}
}

func cloneMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

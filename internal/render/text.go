package render

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/fakeyudi/gitmind/internal/catalog"
	"github.com/fakeyudi/gitmind/internal/engine"
	"github.com/fakeyudi/gitmind/internal/inference"
	"github.com/fakeyudi/gitmind/internal/intent"
	"github.com/fakeyudi/gitmind/internal/snapshot"
)

var (
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	labelStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("33"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	timeStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("178"))
	bulletStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	highStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("82"))
	midStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214"))
	lowStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
)

const stamp = "2006-01-02 15:04:05"

// TextRenderer renders human-readable sections styled with lipgloss.
// Plain disables styling for pipes and tests.
type TextRenderer struct {
	Plain bool
}

func (r *TextRenderer) paint(s lipgloss.Style, text string) string {
	if r.Plain {
		return text
	}
	return s.Render(text)
}

func (r *TextRenderer) heading(sb *strings.Builder, title string) {
	sb.WriteString(r.paint(headingStyle, "## "+title) + "\n\n")
}

func (r *TextRenderer) row(sb *strings.Builder, label, value string) {
	sb.WriteString(r.paint(labelStyle, fmt.Sprintf("  %-14s", label)) + " " + value + "\n")
}

func (r *TextRenderer) bullet(sb *strings.Builder, text string) {
	sb.WriteString(r.paint(bulletStyle, "  •") + " " + text + "\n")
}

func (r *TextRenderer) none(sb *strings.Builder, what string) {
	sb.WriteString(r.paint(dimStyle, "  _No "+what+"._") + "\n")
}

func (r *TextRenderer) confidence(c float64) string {
	text := fmt.Sprintf("%.0f%%", c*100)
	switch {
	case c >= 0.7:
		return r.paint(highStyle, text)
	case c >= 0.3:
		return r.paint(midStyle, text)
	}
	return r.paint(lowStyle, text)
}

func (r *TextRenderer) RenderIntent(in *intent.Intent) ([]byte, error) {
	var sb strings.Builder

	switch in.Type {
	case intent.TypeError:
		r.heading(&sb, "Could not resolve")
		r.row(&sb, "Request:", in.Raw)
		r.row(&sb, "Error:", in.Error)
		if in.Hint != "" {
			r.row(&sb, "Hint:", in.Hint)
		}
		return []byte(sb.String()), nil

	case intent.TypeAmbiguous:
		r.heading(&sb, "Not sure what you meant")
		r.row(&sb, "Request:", in.Raw)
		sb.WriteString("\n")
		r.heading(&sb, "Did you mean")
		if len(in.Suggestions) == 0 {
			r.none(&sb, "suggestions")
		}
		for i, s := range in.Suggestions {
			line := fmt.Sprintf("%d. %s (%s)", i+1, s.Command, s.Type)
			if s.Description != "" {
				line += r.paint(dimStyle, "  "+s.Description)
			}
			sb.WriteString("  " + line + "\n")
		}
		return []byte(sb.String()), nil
	}

	r.heading(&sb, "Intent")
	r.row(&sb, "Type:", in.Type)
	r.row(&sb, "Confidence:", r.confidence(in.Confidence)+r.paint(dimStyle, " via "+in.Method))
	r.row(&sb, "Command:", in.Command)
	if in.Tool != "" {
		r.row(&sb, "Tool:", in.Tool)
	}
	if len(in.Params) > 0 {
		r.row(&sb, "Params:", formatParams(in.Params))
	}
	if in.Description != "" {
		r.row(&sb, "Description:", in.Description)
	}
	if in.Cached && in.CachedAt != nil {
		r.row(&sb, "Cached:", r.paint(timeStyle, in.CachedAt.Format(stamp)))
	}

	if c := in.Context; c != nil {
		sb.WriteString("\n")
		r.heading(&sb, "Context")
		if c.Branch != "" {
			r.row(&sb, "Branch:", c.Branch)
		}
		if c.Workflow != "" {
			r.row(&sb, "Workflow:", c.Workflow)
		}
		r.row(&sb, "Uncommitted:", yesNo(c.HasUncommittedChanges))
		for _, rec := range c.Recommendations {
			r.bullet(&sb, rec)
		}
	}
	return []byte(sb.String()), nil
}

func (r *TextRenderer) RenderSnapshot(s *snapshot.ContextSnapshot, inferred inference.Result, section string) ([]byte, error) {
	if !validSection(section) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSection, section)
	}
	if section != "" {
		return []byte(r.Section(s, inferred, section)), nil
	}
	parts := make([]string, 0, len(Sections))
	for _, name := range Sections {
		parts = append(parts, r.Section(s, inferred, name))
	}
	return []byte(strings.Join(parts, "\n")), nil
}

// Section renders one named section; unknown names render empty.
func (r *TextRenderer) Section(s *snapshot.ContextSnapshot, inferred inference.Result, name string) string {
	var sb strings.Builder
	switch name {
	case "git":
		r.git(&sb, s.Git)
	case "project":
		r.project(&sb, s.Project)
	case "user":
		r.user(&sb, s.User)
	case "team":
		r.team(&sb, s.Team)
	case "metadata":
		r.heading(&sb, "Metadata")
		r.row(&sb, "Version:", s.Metadata.Version)
		r.row(&sb, "Updated:", r.when(s.Metadata.LastUpdated))
		r.row(&sb, "Updates:", fmt.Sprintf("%d", s.Metadata.UpdateCount))
	case "inferred":
		r.inferred(&sb, inferred)
	}
	return sb.String()
}

func (r *TextRenderer) git(sb *strings.Builder, g snapshot.GitContext) {
	r.heading(sb, "Git")
	if g.CurrentBranch == "" && g.LastRefresh == nil {
		r.none(sb, "repository data")
		return
	}
	r.row(sb, "Branch:", g.CurrentBranch)
	if g.Upstream != "" {
		r.row(sb, "Upstream:", fmt.Sprintf("%s (ahead %d, behind %d)", g.Upstream, g.Ahead, g.Behind))
	}
	r.row(sb, "Branches:", fmt.Sprintf("%d", len(g.Branches)))
	r.row(sb, "Changed:", fmt.Sprintf("%d", len(g.ChangedFiles)))
	r.row(sb, "Untracked:", fmt.Sprintf("%d", len(g.UntrackedFiles)))
	if len(g.ConflictedFiles) > 0 {
		r.row(sb, "Conflicts:", strings.Join(g.ConflictedFiles, ", "))
	}
	for _, rm := range g.Remotes {
		r.row(sb, "Remote:", rm.Name+" "+r.paint(dimStyle, rm.URL))
	}
	if g.LastRefresh != nil {
		r.row(sb, "Refreshed:", r.when(*g.LastRefresh))
	}

	sb.WriteString("\n")
	r.heading(sb, "Recent Commits")
	if len(g.Commits) == 0 {
		r.none(sb, "recent commits")
	}
	for i, c := range g.Commits {
		if i == 10 {
			sb.WriteString(r.paint(dimStyle, fmt.Sprintf("  … %d more", len(g.Commits)-10)) + "\n")
			break
		}
		r.bullet(sb, fmt.Sprintf("%s %s %s", r.paint(timeStyle, shortHash(c.Hash)), c.Subject, r.paint(dimStyle, "("+c.Author+")")))
	}
}

func (r *TextRenderer) project(sb *strings.Builder, p snapshot.ProjectContext) {
	r.heading(sb, "Project")
	if p.LastRefresh == nil {
		r.none(sb, "project data")
		return
	}
	if p.Name != "" {
		r.row(sb, "Name:", p.Name)
	}
	if p.Kind != "" {
		r.row(sb, "Kind:", p.Kind)
	}
	r.row(sb, "Root:", p.Root)
	r.row(sb, "Files:", fmt.Sprintf("%d in %d directories", len(p.Files), len(p.Directories)))
	r.row(sb, "Dependencies:", fmt.Sprintf("%d (+%d dev)", len(p.Dependencies), len(p.DevDependencies)))
	if len(p.ConfigFiles) > 0 {
		r.row(sb, "Config:", strings.Join(p.ConfigFiles, ", "))
	}
	if len(p.Scripts) > 0 {
		sb.WriteString("\n")
		r.heading(sb, "Scripts")
		for _, name := range sortedKeys(p.Scripts) {
			r.bullet(sb, name+r.paint(dimStyle, "  "+p.Scripts[name]))
		}
	}
}

func (r *TextRenderer) user(sb *strings.Builder, u snapshot.UserContext) {
	r.heading(sb, fmt.Sprintf("Activity (%d)", len(u.Activities)))
	if len(u.Activities) == 0 {
		r.none(sb, "activity")
		return
	}
	for i := len(u.Activities) - 1; i >= 0; i-- {
		a := u.Activities[i]
		sb.WriteString(fmt.Sprintf("  %s  [%s] %s\n", r.paint(timeStyle, a.Timestamp.Format(stamp)), a.Type, a.Description))
	}
}

func (r *TextRenderer) team(sb *strings.Builder, t snapshot.TeamContext) {
	r.heading(sb, fmt.Sprintf("Team (%d)", len(t.Collaborators)))
	if len(t.Collaborators) == 0 {
		r.none(sb, "collaborators")
		return
	}
	for _, c := range t.Collaborators {
		r.bullet(sb, fmt.Sprintf("%s <%s>  %d commits, last %s", c.Name, c.Email, c.Commits, r.when(c.LastCommit)))
	}
}

func (r *TextRenderer) inferred(sb *strings.Builder, in inference.Result) {
	r.heading(sb, "Inferred")
	r.row(sb, "Workflow:", in.Workflow)
	r.row(sb, "Confidence:", r.confidence(in.Confidence))
	r.row(sb, "Uncommitted:", yesNo(in.HasUncommittedChanges))
	r.row(sb, "Needs push:", yesNo(in.NeedsPush))
	r.row(sb, "Needs pull:", yesNo(in.NeedsPull))
	if in.HasConflicts {
		r.row(sb, "Conflicts:", "yes")
	}
	if len(in.Recommendations) > 0 {
		sb.WriteString("\n")
		r.heading(sb, "Recommended")
		for _, rec := range in.Recommendations {
			r.bullet(sb, rec)
		}
	}
}

func (r *TextRenderer) RenderHistory(h engine.History) ([]byte, error) {
	var sb strings.Builder
	if h.Snapshots != nil {
		r.heading(&sb, fmt.Sprintf("Snapshots (%d)", len(h.Snapshots)))
		if len(h.Snapshots) == 0 {
			r.none(&sb, "snapshots")
		}
		for _, rec := range h.Snapshots {
			sb.WriteString(fmt.Sprintf("  %s  %-8s %s\n", r.paint(timeStyle, rec.Timestamp.Format(stamp)), rec.Type, r.paint(dimStyle, fmt.Sprintf("%d bytes", len(rec.Data)))))
		}
		sb.WriteString("\n")
	}
	if h.Activities != nil {
		r.heading(&sb, fmt.Sprintf("Activities (%d)", len(h.Activities)))
		if len(h.Activities) == 0 {
			r.none(&sb, "activities")
		}
		for _, rec := range h.Activities {
			sb.WriteString(fmt.Sprintf("  %s  [%s] %s\n", r.paint(timeStyle, rec.Timestamp.Format(stamp)), rec.Type, rec.Description))
		}
		sb.WriteString("\n")
	}
	if h.GitStates != nil {
		r.heading(&sb, fmt.Sprintf("Git States (%d)", len(h.GitStates)))
		if len(h.GitStates) == 0 {
			r.none(&sb, "git states")
		}
		for _, rec := range h.GitStates {
			sb.WriteString(fmt.Sprintf("  %s  %s %s %s\n", r.paint(timeStyle, rec.Timestamp.Format(stamp)), rec.Branch, shortHash(rec.CommitHash), rec.Status))
		}
		sb.WriteString("\n")
	}
	if sb.Len() == 0 {
		r.none(&sb, "history")
	}
	return []byte(sb.String()), nil
}

func (r *TextRenderer) RenderCommands(cmds []catalog.CommandMapping) ([]byte, error) {
	var sb strings.Builder
	r.heading(&sb, fmt.Sprintf("Commands (%d)", len(cmds)))
	if len(cmds) == 0 {
		r.none(&sb, "commands")
	}
	for _, c := range cmds {
		sb.WriteString(fmt.Sprintf("  %-22s %-12s %s\n", c.Name, c.Type, r.paint(dimStyle, c.Tool)))
	}
	return []byte(sb.String()), nil
}

func (r *TextRenderer) when(t time.Time) string {
	if t.IsZero() {
		return r.paint(dimStyle, "never")
	}
	return r.paint(timeStyle, t.Local().Format(stamp))
}

func formatParams(p map[string]any) string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%v", k, p[k])
	}
	return strings.Join(parts, ", ")
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func shortHash(h string) string {
	if len(h) > 7 {
		return h[:7]
	}
	return h
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

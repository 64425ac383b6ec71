// Package tui provides the live Bubble Tea dashboard behind `gitmind watch`.
package tui

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fakeyudi/gitmind/internal/engine"
	"github.com/fakeyudi/gitmind/internal/inference"
	"github.com/fakeyudi/gitmind/internal/render"
	"github.com/fakeyudi/gitmind/internal/snapshot"
)

// ── Styles ────────────

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("62")).
			Padding(0, 2)

	activeTabStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)

	inactiveTabStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("245")).
				Background(lipgloss.Color("235")).
				Padding(0, 1)

	tabSepStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("238")).
			Background(lipgloss.Color("235"))

	sectionHeader = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86"))

	dimStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	timeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("178"))

	kindGitStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true)
	kindProjectStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	kindUserStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true)
	kindOtherStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true)

	statusBarStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("245")).
			Padding(0, 1)
)

// ── Tab definitions ─────────────────

type tabID int

const (
	tabGit tabID = iota
	tabProject
	tabActivity
	tabTeam
	tabEvents
	tabCount
)

var tabNames = [tabCount]string{"Git", "Project", "Activity", "Team", "Events"}

// maxEvents bounds the Events tab log.
const maxEvents = 200

// Source is the read side of the context engine.
type Source interface {
	Snapshot() *snapshot.ContextSnapshot
	InferredContext() inference.Result
}

type eventMsg engine.Event

type closedMsg struct{}

// ── Model ────────────────────

// Model is the root Bubble Tea model for the dashboard.
type Model struct {
	src       Source
	events    <-chan engine.Event
	refresh   func()
	workDir   string
	text      render.TextRenderer
	snap      *snapshot.ContextSnapshot
	inferred  inference.Result
	log       []engine.Event
	activeTab tabID
	viewports [tabCount]viewport.Model
	width     int
	height    int
	ready     bool
	sortAsc   bool
	closed    bool
}

// New creates a dashboard over src. events feeds the Events tab and
// triggers redraws; refresh, when non-nil, is bound to the r key.
func New(src Source, events <-chan engine.Event, refresh func(), workDir string) Model {
	return Model{
		src:      src,
		events:   events,
		refresh:  refresh,
		workDir:  filepath.Base(workDir),
		snap:     src.Snapshot(),
		inferred: src.InferredContext(),
	}
}

// ── Bubble Tea interface ───────────────

func (m Model) Init() tea.Cmd { return waitForEvent(m.events) }

func waitForEvent(ch <-chan engine.Event) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return closedMsg{}
		}
		return eventMsg(ev)
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "tab", "l", "right":
			m.activeTab = (m.activeTab + 1) % tabCount
		case "shift+tab", "h", "left":
			m.activeTab = (m.activeTab - 1 + tabCount) % tabCount
		case "1", "2", "3", "4", "5":
			m.activeTab = tabID(msg.String()[0] - '1')
		case "s":
			if m.activeTab == tabEvents {
				m.sortAsc = !m.sortAsc
				m.rebuild(tabEvents)
				m.viewports[tabEvents].GotoTop()
			}
		case "r":
			if m.refresh != nil {
				refresh := m.refresh
				return m, func() tea.Msg { refresh(); return nil }
			}
		}
		if !m.ready {
			return m, nil
		}
		var cmd tea.Cmd
		m.viewports[m.activeTab], cmd = m.viewports[m.activeTab].Update(msg)
		return m, cmd

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.initViewports()
		return m, nil

	case eventMsg:
		m.log = append(m.log, engine.Event(msg))
		if len(m.log) > maxEvents {
			m.log = m.log[len(m.log)-maxEvents:]
		}
		m.snap = m.src.Snapshot()
		m.inferred = m.src.InferredContext()
		if m.ready {
			for t := tabID(0); t < tabCount; t++ {
				m.rebuild(t)
			}
		}
		return m, waitForEvent(m.events)

	case closedMsg:
		m.closed = true
		return m, nil
	}
	return m, nil
}

func (m Model) View() string {
	if !m.ready {
		return "Loading…"
	}

	title := titleStyle.Width(m.width).Render("  gitmind  " + m.workDir + "  " + m.inferred.Workflow)

	var tabParts []string
	for i := tabID(0); i < tabCount; i++ {
		label := fmt.Sprintf(" %d %s ", i+1, tabNames[i])
		if i == m.activeTab {
			tabParts = append(tabParts, activeTabStyle.Render(label))
		} else {
			tabParts = append(tabParts, inactiveTabStyle.Render(label))
		}
		if i < tabCount-1 {
			tabParts = append(tabParts, tabSepStyle.Render("│"))
		}
	}
	tabRow := lipgloss.NewStyle().
		Background(lipgloss.Color("235")).
		Width(m.width).
		Render(lipgloss.JoinHorizontal(lipgloss.Top, tabParts...))

	content := m.viewports[m.activeTab].View()

	hint := "  ←/→ tab  ↑/↓ scroll  1-5 jump  r refresh  q quit"
	if m.activeTab == tabEvents {
		dir := "newest first"
		if m.sortAsc {
			dir = "oldest first"
		}
		hint += "  s sort (" + dir + ")"
	}
	if m.closed {
		hint += "  (engine stopped)"
	}
	pct := fmt.Sprintf("%3.0f%%", m.viewports[m.activeTab].ScrollPercent()*100)
	pad := m.width - lipgloss.Width(hint) - len(pct) - 2
	if pad < 1 {
		pad = 1
	}
	statusBar := statusBarStyle.Width(m.width).Render(hint + strings.Repeat(" ", pad) + pct)

	return lipgloss.JoinVertical(lipgloss.Left, title, tabRow, content, statusBar)
}

// ── Viewport management ───────────────────────────────────────────────────────

func (m *Model) initViewports() {
	// title(1) + tabRow(1) + statusBar(1) = 3 fixed rows
	vpHeight := m.height - 3
	if vpHeight < 1 {
		vpHeight = 1
	}
	for i := tabID(0); i < tabCount; i++ {
		vp := viewport.New(m.width, vpHeight)
		vp.SetContent(m.renderTab(i))
		m.viewports[i] = vp
	}
}

// rebuild replaces a tab's content, keeping its scroll offset.
func (m *Model) rebuild(t tabID) {
	m.viewports[t].SetContent(m.renderTab(t))
}

// ── Tab renderers ─────────────────────────────────────────────────────────────

func (m *Model) renderTab(t tabID) string {
	switch t {
	case tabGit:
		return "\n" + m.text.Section(m.snap, m.inferred, "git") + "\n" + m.text.Section(m.snap, m.inferred, "inferred")
	case tabProject:
		return "\n" + m.text.Section(m.snap, m.inferred, "project")
	case tabActivity:
		return "\n" + m.text.Section(m.snap, m.inferred, "user")
	case tabTeam:
		return "\n" + m.text.Section(m.snap, m.inferred, "team")
	case tabEvents:
		return m.renderEvents()
	}
	return ""
}

func (m *Model) renderEvents() string {
	var sb strings.Builder

	dir := "newest first"
	if m.sortAsc {
		dir = "oldest first"
	}
	sb.WriteString("\n" + sectionHeader.Render(fmt.Sprintf("  Events (%s)", dir)) + "\n\n")

	if len(m.log) == 0 {
		sb.WriteString(dimStyle.Render("  (no events yet)") + "\n")
		return sb.String()
	}

	for i := range m.log {
		ev := m.log[i]
		if !m.sortAsc {
			ev = m.log[len(m.log)-1-i]
		}
		ts := timeStyle.Render(ev.Time.Format("15:04:05"))
		badge := kindStyle(ev.Kind).Render(fmt.Sprintf("  %-8s", strings.ToUpper(string(ev.Kind))))
		sb.WriteString(ts + badge + "  " + Describe(ev) + "\n")
	}
	return sb.String()
}

func kindStyle(k engine.EventKind) lipgloss.Style {
	switch k {
	case engine.KindGit:
		return kindGitStyle
	case engine.KindProject:
		return kindProjectStyle
	case engine.KindUser:
		return kindUserStyle
	}
	return kindOtherStyle
}

// Describe summarizes an event on one line.
func Describe(ev engine.Event) string {
	if a, ok := ev.Data.(snapshot.Activity); ok {
		return fmt.Sprintf("[%s] %s", a.Type, a.Description)
	}
	switch {
	case ev.Path != "":
		return fmt.Sprintf("%s = %v", ev.Path, truncate(fmt.Sprint(ev.Data), 60))
	case ev.Kind == engine.KindClear:
		return "snapshot cleared"
	}
	return string(ev.Kind) + " refreshed"
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// Run starts the dashboard and blocks until the user quits.
func Run(src Source, events <-chan engine.Event, refresh func(), workDir string) error {
	p := tea.NewProgram(New(src, events, refresh, workDir), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

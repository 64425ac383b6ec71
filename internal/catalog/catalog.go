// Package catalog holds the command catalog: the table of named commands the
// intent resolver can hand back to a caller, each bound to a tool and default
// parameters.
package catalog

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Intent types a command can belong to.
const (
	Commit      = "commit"
	Push        = "push"
	Pull        = "pull"
	Branch      = "branch"
	Merge       = "merge"
	Develop     = "develop"
	Deploy      = "deploy"
	Test        = "test"
	Status      = "status"
	Context     = "context"
	Collaborate = "collaborate"
	Help        = "help"
	Unknown     = "unknown"
)

// Types lists every resolvable intent type in a stable order.
var Types = []string{
	Commit, Push, Pull, Branch, Merge, Develop, Deploy,
	Test, Status, Context, Collaborate, Help,
}

// CommandMapping is one catalog entry.
type CommandMapping struct {
	Name        string         `yaml:"name" json:"name"`
	Tool        string         `yaml:"tool" json:"tool"`
	Description string         `yaml:"description" json:"description"`
	Params      map[string]any `yaml:"params,omitempty" json:"params,omitempty"`
	Aliases     []string       `yaml:"aliases,omitempty" json:"aliases,omitempty"`
	Type        string         `yaml:"type,omitempty" json:"type"`
}

// Phrase is a name or alias pointing at a catalog entry.
type Phrase struct {
	Text string
	Name string
}

// Catalog is read-only once built and safe for concurrent use.
type Catalog struct {
	entries map[string]CommandMapping
	aliases map[string]string
	order   []string
}

// New builds a catalog. Later mappings with the same name replace earlier
// ones; entries without a type get one from InferType.
func New(mappings []CommandMapping) *Catalog {
	c := &Catalog{
		entries: make(map[string]CommandMapping, len(mappings)),
		aliases: map[string]string{},
	}
	for _, m := range mappings {
		c.add(m)
	}
	return c
}

func (c *Catalog) add(m CommandMapping) {
	key := normalize(m.Name)
	if m.Type == "" {
		m.Type = InferType(m.Name, m.Tool)
	}
	if _, exists := c.entries[key]; !exists {
		c.order = append(c.order, key)
	}
	c.entries[key] = m
	for _, a := range m.Aliases {
		c.aliases[normalize(a)] = key
	}
}

// Lookup finds an entry by name or alias, ignoring case.
func (c *Catalog) Lookup(name string) (CommandMapping, bool) {
	key := normalize(name)
	m, ok := c.entries[key]
	if !ok {
		if target, aliased := c.aliases[key]; aliased {
			m, ok = c.entries[target]
		}
	}
	if !ok {
		return CommandMapping{}, false
	}
	return clone(m), true
}

// Names returns entry names in insertion order.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.order))
	for _, key := range c.order {
		names = append(names, c.entries[key].Name)
	}
	return names
}

// All returns every entry in insertion order.
func (c *Catalog) All() []CommandMapping {
	out := make([]CommandMapping, 0, len(c.order))
	for _, key := range c.order {
		out = append(out, clone(c.entries[key]))
	}
	return out
}

// ForType returns the entries of one intent type in insertion order.
func (c *Catalog) ForType(t string) []CommandMapping {
	var out []CommandMapping
	for _, key := range c.order {
		if m := c.entries[key]; m.Type == t {
			out = append(out, clone(m))
		}
	}
	return out
}

// Phrases returns every name and alias, sorted by text.
func (c *Catalog) Phrases() []Phrase {
	var out []Phrase
	for _, key := range c.order {
		m := c.entries[key]
		out = append(out, Phrase{Text: normalize(m.Name), Name: m.Name})
	}
	for alias, key := range c.aliases {
		if _, shadowed := c.entries[alias]; shadowed {
			continue
		}
		out = append(out, Phrase{Text: alias, Name: c.entries[key].Name})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Text < out[j].Text })
	return out
}

// Len is the number of entries.
func (c *Catalog) Len() int { return len(c.entries) }

// typeKeywords is checked in order; the first type with a keyword present in
// the name or tool wins.
var typeKeywords = []struct {
	typ      string
	keywords []string
}{
	{Collaborate, []string{"pull request", "pr_", " pr ", "review", "collaborat", "issue"}},
	{Commit, []string{"commit", "stash"}},
	{Push, []string{"push", "publish", "upload"}},
	{Pull, []string{"pull", "fetch", "sync"}},
	{Merge, []string{"merge", "rebase", "cherry"}},
	{Develop, []string{"feature", "develop", "workflow", "hotfix"}},
	{Branch, []string{"branch", "checkout", "switch"}},
	{Deploy, []string{"deploy", "release", "ship"}},
	{Test, []string{"test", "verify", "lint"}},
	{Context, []string{"context", "project"}},
	{Status, []string{"status", "log", "diff", "history"}},
	{Help, []string{"help", "usage"}},
}

// InferType classifies a command by keywords in its name and tool.
func InferType(name, tool string) string {
	text := " " + strings.ToLower(name+" "+tool) + " "
	for _, tk := range typeKeywords {
		for _, kw := range tk.keywords {
			if strings.Contains(text, kw) {
				return tk.typ
			}
		}
	}
	return Unknown
}

type catalogFile struct {
	Commands []CommandMapping `yaml:"commands"`
}

// LoadFile reads a YAML catalog and layers it over Default. Entries in the
// file replace built-ins of the same name.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", path, err)
	}
	for i, m := range f.Commands {
		if strings.TrimSpace(m.Name) == "" || strings.TrimSpace(m.Tool) == "" {
			return nil, fmt.Errorf("catalog %s: entry %d: %w", path, i, ErrIncomplete)
		}
	}
	return New(append(defaults(), f.Commands...)), nil
}

// ErrIncomplete is returned for catalog entries missing a name or tool.
var ErrIncomplete = errors.New("name and tool are required")

// Load returns LoadFile(path) when path is set, Default otherwise.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	return LoadFile(path)
}

func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

func clone(m CommandMapping) CommandMapping {
	m.Params = maps.Clone(m.Params)
	m.Aliases = append([]string(nil), m.Aliases...)
	return m
}

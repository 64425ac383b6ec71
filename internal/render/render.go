// Package render turns intents, snapshots and persisted history into
// terminal text or JSON.
package render

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/fakeyudi/gitmind/internal/catalog"
	"github.com/fakeyudi/gitmind/internal/engine"
	"github.com/fakeyudi/gitmind/internal/inference"
	"github.com/fakeyudi/gitmind/internal/intent"
	"github.com/fakeyudi/gitmind/internal/snapshot"
)

// Sections are the snapshot views a SnapshotRenderer accepts; the empty
// section means all of them.
var Sections = []string{"git", "project", "user", "team", "metadata", "inferred"}

// ErrUnknownSection is returned for a section outside Sections.
var ErrUnknownSection = errors.New("unknown context section")

// IntentRenderer serializes a resolved Intent.
type IntentRenderer interface {
	RenderIntent(in *intent.Intent) ([]byte, error)
}

// SnapshotRenderer serializes a snapshot, or one section of it, together
// with its inferred workflow.
type SnapshotRenderer interface {
	RenderSnapshot(s *snapshot.ContextSnapshot, inferred inference.Result, section string) ([]byte, error)
}

// Renderer is everything the CLI prints.
type Renderer interface {
	IntentRenderer
	SnapshotRenderer
	RenderHistory(h engine.History) ([]byte, error)
	RenderCommands(cmds []catalog.CommandMapping) ([]byte, error)
}

// For returns the renderer for an output format: "json", "plain", or
// "text" (the default).
func For(format string) (Renderer, error) {
	switch strings.ToLower(format) {
	case "", "text":
		return &TextRenderer{}, nil
	case "plain":
		return &TextRenderer{Plain: true}, nil
	case "json":
		return &JSONRenderer{}, nil
	}
	return nil, fmt.Errorf("unknown output format %q (want text, plain or json)", format)
}

func validSection(section string) bool {
	if section == "" {
		return true
	}
	for _, s := range Sections {
		if s == section {
			return true
		}
	}
	return false
}

// JSONRenderer renders as indented JSON.
type JSONRenderer struct{}

func (r *JSONRenderer) RenderIntent(in *intent.Intent) ([]byte, error) {
	return json.MarshalIndent(in, "", "  ")
}

func (r *JSONRenderer) RenderSnapshot(s *snapshot.ContextSnapshot, inferred inference.Result, section string) ([]byte, error) {
	if !validSection(section) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSection, section)
	}
	switch section {
	case "":
		return json.MarshalIndent(map[string]any{
			"snapshot": s,
			"inferred": inferred,
		}, "", "  ")
	case "inferred":
		return json.MarshalIndent(inferred, "", "  ")
	}
	v, _ := s.Lookup(section)
	return json.MarshalIndent(v, "", "  ")
}

func (r *JSONRenderer) RenderHistory(h engine.History) ([]byte, error) {
	return json.MarshalIndent(h, "", "  ")
}

func (r *JSONRenderer) RenderCommands(cmds []catalog.CommandMapping) ([]byte, error) {
	return json.MarshalIndent(cmds, "", "  ")
}

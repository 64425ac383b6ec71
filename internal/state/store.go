// Package state persists snapshots, user activity and git state history.
package state

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// ErrClosed is returned by every Store method called after Close.
var ErrClosed = errors.New("state: store is closed")

// Snapshot record types.
const (
	SnapshotGit     = "git"
	SnapshotProject = "project"
	SnapshotFull    = "full"
)

// SnapshotRecord is a persisted snapshot or snapshot section.
type SnapshotRecord struct {
	ID        string          `json:"id"`
	Timestamp time.Time       `json:"timestamp"`
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data"`
	Metadata  map[string]any  `json:"metadata,omitempty"`
}

// ActivityRecord is a persisted user activity.
type ActivityRecord struct {
	ID          string         `json:"id"`
	Type        string         `json:"type"`
	Description string         `json:"description"`
	Context     map[string]any `json:"context,omitempty"`
	Timestamp   time.Time      `json:"timestamp"`
}

// GitStateRecord is a condensed view of the repository after a git refresh.
type GitStateRecord struct {
	ID         string    `json:"id"`
	Branch     string    `json:"branch"`
	CommitHash string    `json:"commit_hash"`
	Status     string    `json:"status"` // "clean" | "dirty" | "conflicted"
	Timestamp  time.Time `json:"timestamp"`
}

// Store is append-only storage with most-recent-N reads and retention pruning.
// Recent* methods return newest first; an empty filter matches everything.
type Store interface {
	SaveSnapshot(ctx context.Context, rec SnapshotRecord) error
	SaveActivity(ctx context.Context, rec ActivityRecord) error
	SaveGitState(ctx context.Context, rec GitStateRecord) error
	RecentSnapshots(ctx context.Context, typ string, limit int) ([]SnapshotRecord, error)
	RecentActivities(ctx context.Context, typ string, limit int) ([]ActivityRecord, error)
	RecentGitStates(ctx context.Context, branch string, limit int) ([]GitStateRecord, error)
	// Prune deletes records older than olderThan and reports how many went.
	Prune(ctx context.Context, olderThan time.Duration) (int64, error)
	Close() error
}

const defaultLimit = 20

// DefaultPath returns the gitmind database location in the XDG data directory.
// Path: $XDG_DATA_HOME/gitmind/state.db or ~/.local/share/gitmind/state.db
func DefaultPath() (string, error) {
	base := os.Getenv("XDG_DATA_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(base, "gitmind", "state.db"), nil
}

func stamp(id *string, ts *time.Time) {
	if *id == "" {
		*id = uuid.NewString()
	}
	if ts.IsZero() {
		*ts = time.Now()
	}
	*ts = ts.UTC()
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultLimit
	}
	return limit
}

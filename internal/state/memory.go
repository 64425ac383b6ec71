package state

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore keeps records in process memory. It backs tests and runs
// where persistence is turned off.
type MemoryStore struct {
	mu         sync.Mutex
	closed     bool
	snapshots  []SnapshotRecord
	activities []ActivityRecord
	gitStates  []GitStateRecord
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) SaveSnapshot(_ context.Context, rec SnapshotRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	stamp(&rec.ID, &rec.Timestamp)
	m.snapshots = append(m.snapshots, rec)
	return nil
}

func (m *MemoryStore) SaveActivity(_ context.Context, rec ActivityRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	stamp(&rec.ID, &rec.Timestamp)
	m.activities = append(m.activities, rec)
	return nil
}

func (m *MemoryStore) SaveGitState(_ context.Context, rec GitStateRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	stamp(&rec.ID, &rec.Timestamp)
	m.gitStates = append(m.gitStates, rec)
	return nil
}

func (m *MemoryStore) RecentSnapshots(_ context.Context, typ string, limit int) ([]SnapshotRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrClosed
	}
	return recent(m.snapshots, limit,
		func(r SnapshotRecord) bool { return typ == "" || r.Type == typ },
		func(r SnapshotRecord) time.Time { return r.Timestamp }), nil
}

func (m *MemoryStore) RecentActivities(_ context.Context, typ string, limit int) ([]ActivityRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrClosed
	}
	return recent(m.activities, limit,
		func(r ActivityRecord) bool { return typ == "" || r.Type == typ },
		func(r ActivityRecord) time.Time { return r.Timestamp }), nil
}

func (m *MemoryStore) RecentGitStates(_ context.Context, branch string, limit int) ([]GitStateRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrClosed
	}
	return recent(m.gitStates, limit,
		func(r GitStateRecord) bool { return branch == "" || r.Branch == branch },
		func(r GitStateRecord) time.Time { return r.Timestamp }), nil
}

func (m *MemoryStore) Prune(_ context.Context, olderThan time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, ErrClosed
	}
	cutoff := time.Now().Add(-olderThan)
	var n int
	m.snapshots, n = keepSince(m.snapshots, cutoff, func(r SnapshotRecord) time.Time { return r.Timestamp })
	total := n
	m.activities, n = keepSince(m.activities, cutoff, func(r ActivityRecord) time.Time { return r.Timestamp })
	total += n
	m.gitStates, n = keepSince(m.gitStates, cutoff, func(r GitStateRecord) time.Time { return r.Timestamp })
	total += n
	return int64(total), nil
}

// Close is idempotent.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func recent[T any](recs []T, limit int, match func(T) bool, ts func(T) time.Time) []T {
	var out []T
	for _, r := range recs {
		if match(r) {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return ts(out[i]).After(ts(out[j])) })
	if limit = clampLimit(limit); len(out) > limit {
		out = out[:limit]
	}
	return out
}

func keepSince[T any](recs []T, cutoff time.Time, ts func(T) time.Time) ([]T, int) {
	kept := recs[:0]
	for _, r := range recs {
		if !ts(r).Before(cutoff) {
			kept = append(kept, r)
		}
	}
	removed := len(recs) - len(kept)
	return kept, removed
}

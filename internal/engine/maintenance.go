package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fakeyudi/gitmind/internal/state"
)

// StartMaintenance launches the periodic persistence and pruning loops.
// They stop when ctx is cancelled or the engine is disposed; failures are
// logged and retried on the next tick.
func (e *Engine) StartMaintenance(ctx context.Context) {
	e.mu.Lock()
	if e.disposed {
		e.mu.Unlock()
		return
	}
	e.wg.Add(2)
	e.mu.Unlock()

	go e.every(ctx, e.cfg.PersistEvery(), func(ctx context.Context) {
		if err := e.PersistNow(ctx); err != nil {
			e.log.WithError(err).Warn("periodic persistence failed")
		}
	})
	go e.every(ctx, e.cfg.PruneEvery(), func(ctx context.Context) {
		n, err := e.Prune(ctx)
		if err != nil {
			e.log.WithError(err).Warn("pruning failed")
			return
		}
		e.log.WithField("removed", n).Debug("pruned history")
	})
}

func (e *Engine) every(ctx context.Context, interval time.Duration, task func(context.Context)) {
	defer e.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-e.ctx.Done():
			return
		case <-ticker.C:
			e.runTask(ctx, task)
		}
	}
}

func (e *Engine) runTask(ctx context.Context, task func(context.Context)) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Errorf("maintenance task panicked: %v", r)
		}
	}()
	task(ctx)
}

// PersistNow writes the full snapshot with the current inference result.
func (e *Engine) PersistNow(ctx context.Context) error {
	snap := e.Snapshot()
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	inferred := e.inferrer.Infer(snap)
	return e.store.SaveSnapshot(ctx, state.SnapshotRecord{
		Type:      state.SnapshotFull,
		Timestamp: e.now(),
		Data:      data,
		Metadata: map[string]any{
			"inference":    inferred,
			"update_count": snap.Metadata.UpdateCount,
		},
	})
}

// Prune removes persisted records older than the retention window.
func (e *Engine) Prune(ctx context.Context) (int64, error) {
	return e.store.Prune(ctx, e.cfg.Retention())
}

// History is persisted state, newest first.
type History struct {
	Snapshots  []state.SnapshotRecord `json:"snapshots,omitempty"`
	Activities []state.ActivityRecord `json:"activities,omitempty"`
	GitStates  []state.GitStateRecord `json:"git_states,omitempty"`
}

// History reads persisted records. kind is "snapshots", "activities", "git"
// or empty for all three; filter narrows by snapshot type, activity type or
// branch respectively.
func (e *Engine) History(ctx context.Context, kind, filter string, limit int) (History, error) {
	var (
		h   History
		err error
	)
	if kind == "" || kind == "snapshots" {
		if h.Snapshots, err = e.store.RecentSnapshots(ctx, filter, limit); err != nil {
			return h, err
		}
	}
	if kind == "" || kind == "activities" {
		if h.Activities, err = e.store.RecentActivities(ctx, filter, limit); err != nil {
			return h, err
		}
	}
	if kind == "" || kind == "git" {
		if h.GitStates, err = e.store.RecentGitStates(ctx, filter, limit); err != nil {
			return h, err
		}
	}
	switch kind {
	case "", "snapshots", "activities", "git":
		return h, nil
	}
	return h, fmt.Errorf("unknown history kind %q", kind)
}

package engine

import (
	"context"

	"github.com/fakeyudi/gitmind/internal/collector"
)

// Watch refreshes the snapshot as the working tree and repository change.
// Bursts of filesystem events collapse into one refresh per category after
// the configured quiet period. It blocks until ctx is cancelled or the
// engine is disposed.
func (e *Engine) Watch(ctx context.Context) error {
	ctx, cancel := e.scope(ctx)
	defer cancel()

	onGit := func(string) {
		e.gitDebounce.Trigger(func() { e.RefreshGit(ctx) })
	}
	onProject := func(string) {
		e.projectDebounce.Trigger(func() { e.RefreshProject(ctx) })
	}
	err := collector.Watch(ctx, e.workDir, e.cfg.IgnorePatterns, onGit, onProject)
	e.gitDebounce.Cancel()
	e.projectDebounce.Cancel()
	return err
}

// RequestRefresh schedules a debounced refresh of one category.
func (e *Engine) RequestRefresh(kind EventKind) {
	switch kind {
	case KindGit:
		e.gitDebounce.Trigger(func() { e.RefreshGit(e.ctx) })
	case KindProject:
		e.projectDebounce.Trigger(func() { e.RefreshProject(e.ctx) })
	}
}

// scope derives a context that also ends when the engine is disposed.
func (e *Engine) scope(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(e.ctx, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

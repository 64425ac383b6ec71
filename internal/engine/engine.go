// Package engine keeps a live ContextSnapshot of the repository, project and
// user, publishes changes to subscribers and persists history in the
// background.
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/fakeyudi/gitmind/internal/collector"
	"github.com/fakeyudi/gitmind/internal/config"
	"github.com/fakeyudi/gitmind/internal/fifo"
	"github.com/fakeyudi/gitmind/internal/inference"
	"github.com/fakeyudi/gitmind/internal/logging"
	"github.com/fakeyudi/gitmind/internal/snapshot"
	"github.com/fakeyudi/gitmind/internal/state"
)

// Options configures an Engine. Zero values fall back to defaults.
type Options struct {
	WorkDir string
	Config  config.Config
	// Store receives background writes; nil keeps history in memory only.
	Store     state.Store
	Inferrer  inference.Inferrer
	GitRunner collector.GitRunner
	Now       func() time.Time
}

// QueryOptions controls Query.
type QueryOptions struct {
	Cached bool
}

// Engine owns the snapshot. All snapshot, cache and subscriber access goes
// through mu; collectors and persistence run outside it.
type Engine struct {
	workDir  string
	cfg      config.Config
	store    state.Store
	inferrer inference.Inferrer
	runner   collector.GitRunner
	now      func() time.Time
	log      *logrus.Entry

	mu       sync.Mutex
	snap     *snapshot.ContextSnapshot
	cache    *fifo.Cache[string, any]
	subs     map[int]*subscriber
	nextSub  int
	disposed bool

	// background work: persistence writes, subscriber pumps, maintenance
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc

	gitDebounce     *Debouncer
	projectDebounce *Debouncer
	disposeOnce     sync.Once
}

// New creates an engine with an empty snapshot. Nothing is collected until
// RefreshGit or RefreshProject runs.
func New(opts Options) *Engine {
	cfg := config.Merge(nil, &opts.Config)
	e := &Engine{
		workDir:  opts.WorkDir,
		cfg:      cfg,
		store:    opts.Store,
		inferrer: opts.Inferrer,
		runner:   opts.GitRunner,
		now:      opts.Now,
		log:      logging.For("engine"),
		snap:     snapshot.New(),
		cache:    fifo.New[string, any](cfg.CacheSize),
		subs:     map[int]*subscriber{},
	}
	if e.workDir == "" {
		e.workDir = "."
	}
	if e.store == nil {
		e.store = state.NewMemoryStore()
	}
	if e.inferrer == nil {
		e.inferrer = inference.RuleInferrer{}
	}
	if e.now == nil {
		e.now = time.Now
	}
	e.ctx, e.cancel = context.WithCancel(context.Background())
	e.gitDebounce = NewDebouncer(cfg.GitDebounce())
	e.projectDebounce = NewDebouncer(cfg.ProjectDebounce())
	return e
}

// Update writes value at the dotted path and bumps the update counter.
// Unknown paths land in the snapshot's extra tree; a value of the wrong
// type for a typed path is logged and dropped, but still counts as an
// update.
func (e *Engine) Update(path string, value any) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.snap.Set(path, value) {
		e.log.WithField("path", path).Warnf("update ignored: %T not accepted", value)
	}
	e.touchLocked()
	e.publishLocked(Event{Kind: kindOf(path), Path: path, Data: value, Time: e.now()})
}

// Get reads the dotted path, returning def when any segment is missing.
func (e *Engine) Get(path string, def any) any {
	e.mu.Lock()
	defer e.mu.Unlock()
	if v, ok := e.snap.Lookup(path); ok {
		return v
	}
	return def
}

// Snapshot returns a point-in-time deep copy.
func (e *Engine) Snapshot() *snapshot.ContextSnapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snap.Clone()
}

// Query is a point lookup. With Cached set, the first successful lookup of
// a path is remembered until Clear.
func (e *Engine) Query(path string, opts QueryOptions) (any, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if opts.Cached {
		if hit, ok := e.cache.Get(path); ok {
			return hit.Value, true
		}
	}
	v, ok := e.snap.Lookup(path)
	if ok && opts.Cached {
		e.cache.Put(path, v)
	}
	return v, ok
}

// InferredContext runs inference over the current snapshot.
func (e *Engine) InferredContext() inference.Result {
	return e.inferrer.Infer(e.Snapshot())
}

// RefreshGit collects repository state and replaces the git and team
// sections. On failure the previous values stay in place.
func (e *Engine) RefreshGit(ctx context.Context) {
	gc := &collector.GitCollector{
		WorkDir:     e.workDir,
		Runner:      e.runner,
		CommitLimit: e.cfg.RecentCommits,
	}
	res, err := gc.Collect(ctx)
	if err != nil {
		entry := e.log.WithError(err).WithField("kind", KindGit)
		if errors.Is(err, collector.ErrNotRepository) {
			entry.Debug("git refresh skipped")
		} else {
			entry.Warn("git refresh failed")
		}
		return
	}

	e.mu.Lock()
	e.snap.Git = res.Git
	e.snap.Team = res.Team
	e.touchLocked()
	e.publishLocked(Event{Kind: KindGit, Data: e.snap.Clone().Git, Time: e.now()})
	e.mu.Unlock()

	e.persist(func(ctx context.Context) error {
		return e.store.SaveGitState(ctx, condenseGit(res.Git))
	})
}

// RefreshProject collects the working tree inventory and manifests.
func (e *Engine) RefreshProject(ctx context.Context) {
	pc := &collector.ProjectCollector{
		WorkDir:        e.workDir,
		IgnorePatterns: e.cfg.IgnorePatterns,
	}
	proj, err := pc.Collect(ctx)
	if err != nil {
		e.log.WithError(err).WithField("kind", KindProject).Warn("project refresh failed")
		return
	}

	e.mu.Lock()
	e.snap.Project = proj
	e.touchLocked()
	e.publishLocked(Event{Kind: KindProject, Data: e.snap.Clone().Project, Time: e.now()})
	e.mu.Unlock()

	e.persist(func(ctx context.Context) error {
		data, err := json.Marshal(condenseProject(proj))
		if err != nil {
			return err
		}
		return e.store.SaveSnapshot(ctx, state.SnapshotRecord{
			Type:      state.SnapshotProject,
			Timestamp: e.now(),
			Data:      data,
		})
	})
}

// Refresh runs both refreshes concurrently and waits for them.
func (e *Engine) Refresh(ctx context.Context) {
	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); e.RefreshGit(ctx) }()
	go func() { defer wg.Done(); e.RefreshProject(ctx) }()
	wg.Wait()
}

// TrackUserActivity appends a to the activity ring and persists it.
// ID and Timestamp are filled in when empty.
func (e *Engine) TrackUserActivity(a snapshot.Activity) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.Timestamp.IsZero() {
		a.Timestamp = e.now()
	}

	e.mu.Lock()
	e.snap.AppendActivity(a, e.cfg.ActivityLimit)
	e.touchLocked()
	e.publishLocked(Event{Kind: KindUser, Path: "user.activities", Data: a, Time: a.Timestamp})
	e.mu.Unlock()

	e.persist(func(ctx context.Context) error {
		return e.store.SaveActivity(ctx, state.ActivityRecord{
			ID:          a.ID,
			Type:        a.Type,
			Description: a.Description,
			Context:     a.Context,
			Timestamp:   a.Timestamp,
		})
	})
}

// Subscribe registers fn for events of the given kinds, or all kinds when
// none are given. Delivery is asynchronous and in order per subscriber; a
// subscriber that falls behind loses events rather than blocking writers.
func (e *Engine) Subscribe(fn func(Event), kinds ...EventKind) (unsubscribe func()) {
	sub := &subscriber{fn: fn, ch: make(chan Event, subscriberQueue)}
	if len(kinds) > 0 {
		sub.kinds = make(map[EventKind]bool, len(kinds))
		for _, k := range kinds {
			sub.kinds[k] = true
		}
	}

	e.mu.Lock()
	if e.disposed {
		e.mu.Unlock()
		return func() {}
	}
	id := e.nextSub
	e.nextSub++
	e.subs[id] = sub
	e.wg.Add(1)
	e.mu.Unlock()

	go func() {
		defer e.wg.Done()
		sub.run(e.log)
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			e.mu.Lock()
			defer e.mu.Unlock()
			if s, ok := e.subs[id]; ok {
				delete(e.subs, id)
				close(s.ch)
			}
		})
	}
}

// Clear resets the snapshot, including the update counter, and empties the
// query cache.
func (e *Engine) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.snap = snapshot.New()
	e.cache.Clear()
	e.publishLocked(Event{Kind: KindClear, Time: e.now()})
}

// Dispose stops watchers and maintenance, completes every subscriber
// stream, waits for pending persistence and closes the store. It is safe to
// call more than once.
func (e *Engine) Dispose() {
	e.disposeOnce.Do(func() {
		e.cancel()
		e.gitDebounce.Cancel()
		e.projectDebounce.Cancel()

		e.mu.Lock()
		e.disposed = true
		for id, s := range e.subs {
			delete(e.subs, id)
			close(s.ch)
		}
		e.mu.Unlock()

		e.wg.Wait()
		if err := e.store.Close(); err != nil {
			e.log.WithError(err).Warn("closing state store")
		}
	})
}

func (e *Engine) touchLocked() {
	e.snap.Metadata.UpdateCount++
	e.snap.Metadata.LastUpdated = e.now()
}

// publishLocked never blocks: a full subscriber queue drops the event.
func (e *Engine) publishLocked(ev Event) {
	for _, s := range e.subs {
		if !s.wants(ev.Kind) {
			continue
		}
		select {
		case s.ch <- ev:
		default:
			e.log.WithField("kind", ev.Kind).Debug("subscriber queue full, event dropped")
		}
	}
}

// persist runs fn in a tracked goroutine. Failures are logged only.
func (e *Engine) persist(fn func(ctx context.Context) error) {
	e.mu.Lock()
	if e.disposed {
		e.mu.Unlock()
		return
	}
	e.wg.Add(1)
	e.mu.Unlock()

	go func() {
		defer e.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := fn(ctx); err != nil {
			e.log.WithError(err).Warn("persistence failed")
		}
	}()
}

func condenseGit(g snapshot.GitContext) state.GitStateRecord {
	rec := state.GitStateRecord{Branch: g.CurrentBranch, Status: "clean"}
	if len(g.Commits) > 0 {
		rec.CommitHash = g.Commits[0].Hash
	}
	switch {
	case len(g.ConflictedFiles) > 0:
		rec.Status = "conflicted"
	case len(g.ChangedFiles)+len(g.UntrackedFiles) > 0:
		rec.Status = "dirty"
	}
	if g.LastRefresh != nil {
		rec.Timestamp = *g.LastRefresh
	}
	return rec
}

type projectSummary struct {
	Root         string   `json:"root"`
	Name         string   `json:"name"`
	Kind         string   `json:"kind"`
	Files        int      `json:"files"`
	Directories  int      `json:"directories"`
	Dependencies int      `json:"dependencies"`
	Scripts      []string `json:"scripts"`
	ConfigFiles  []string `json:"config_files"`
}

func condenseProject(p snapshot.ProjectContext) projectSummary {
	s := projectSummary{
		Root:         p.Root,
		Name:         p.Name,
		Kind:         p.Kind,
		Files:        len(p.Files),
		Directories:  len(p.Directories),
		Dependencies: len(p.Dependencies) + len(p.DevDependencies),
		ConfigFiles:  p.ConfigFiles,
	}
	for name := range p.Scripts {
		s.Scripts = append(s.Scripts, name)
	}
	sort.Strings(s.Scripts)
	return s
}

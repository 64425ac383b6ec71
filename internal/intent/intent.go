// Package intent turns freeform instructions into catalog commands.
//
// Resolution runs a cascade of strategies from cheapest to costliest, each
// gated on the confidence reached so far, then extracts parameters from the
// text, refines the score against live repository context and falls back to
// ranked suggestions when nothing is confident enough.
package intent

import (
	"context"
	"fmt"
	"maps"
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/fakeyudi/gitmind/internal/ai"
	"github.com/fakeyudi/gitmind/internal/catalog"
	"github.com/fakeyudi/gitmind/internal/fifo"
	"github.com/fakeyudi/gitmind/internal/inference"
	"github.com/fakeyudi/gitmind/internal/logging"
	"github.com/fakeyudi/gitmind/internal/snapshot"
)

// Result types beyond the catalog's vocabulary.
const (
	TypeAmbiguous = "ambiguous"
	TypeError     = "error"
)

// Methods name the stage that produced an Intent.
const (
	MethodPattern     = "pattern"
	MethodVerbKeyword = "verb-keyword"
	MethodNLP         = "nlp"
	MethodFuzzy       = "fuzzy"
	MethodAI          = "ai"
	MethodAmbiguity   = "ambiguity-handler"
	MethodError       = "error"
)

const (
	ambiguityFloor = 0.3
	maxSuggestions = 5
	retryHint      = "Try rephrasing the request, or run `gitmind commands` to see what is available."
)

// Intent is the outcome of one resolution. It is never mutated after Resolve
// returns it.
type Intent struct {
	Type        string         `json:"type"`
	Confidence  float64        `json:"confidence"`
	Method      string         `json:"method"`
	Command     string         `json:"command,omitempty"`
	Tool        string         `json:"tool,omitempty"`
	Params      map[string]any `json:"params,omitempty"`
	Description string         `json:"description,omitempty"`
	Raw         string         `json:"raw"`
	Context     *Annotation    `json:"context,omitempty"`
	Suggestions []Suggestion   `json:"suggestions,omitempty"`
	Error       string         `json:"error,omitempty"`
	Hint        string         `json:"hint,omitempty"`
	Cached      bool           `json:"cached,omitempty"`
	CachedAt    *time.Time     `json:"cached_at,omitempty"`
}

// Annotation summarizes the repository context used during refinement.
type Annotation struct {
	Branch                string   `json:"branch,omitempty"`
	HasUncommittedChanges bool     `json:"has_uncommitted_changes"`
	Workflow              string   `json:"workflow,omitempty"`
	Recommendations       []string `json:"recommendations,omitempty"`
}

// Suggestion is an alternative offered for ambiguous input.
type Suggestion struct {
	Command     string `json:"command"`
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
}

func (in Intent) clone() Intent {
	in.Params = maps.Clone(in.Params)
	in.Suggestions = append([]Suggestion(nil), in.Suggestions...)
	if in.Context != nil {
		c := *in.Context
		c.Recommendations = append([]string(nil), c.Recommendations...)
		in.Context = &c
	}
	if in.CachedAt != nil {
		t := *in.CachedAt
		in.CachedAt = &t
	}
	return in
}

// ContextSource supplies live repository context for refinement.
type ContextSource interface {
	Snapshot() *snapshot.ContextSnapshot
	InferredContext() inference.Result
}

// ActivityRecorder receives one activity per fresh resolution.
type ActivityRecorder interface {
	TrackUserActivity(a snapshot.Activity)
}

// Config wires a Resolver. Only Catalog is required.
type Config struct {
	Catalog   *catalog.Catalog
	Context   ContextSource
	Recorder  ActivityRecorder
	AI        ai.Completer
	CacheSize int
}

// Options controls one Resolve call.
type Options struct {
	// UseAI disables the AI strategy when set to false. Nil means use it
	// whenever a completer is configured.
	UseAI *bool
}

// Resolver is safe for concurrent use.
type Resolver struct {
	catalog  *catalog.Catalog
	context  ContextSource
	recorder ActivityRecorder
	ai       ai.Completer
	cache    *fifo.Cache[string, Intent]
	stages   []stage
	log      *logrus.Entry
}

// New builds a Resolver with the default strategy cascade.
func New(cfg Config) *Resolver {
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = 100
	}
	r := &Resolver{
		catalog:  cfg.Catalog,
		context:  cfg.Context,
		recorder: cfg.Recorder,
		ai:       cfg.AI,
		cache:    fifo.New[string, Intent](cfg.CacheSize),
		log:      logging.For("intent"),
	}
	r.stages = defaultStages(cfg.Catalog, cfg.AI, r.log)
	return r
}

// Resolve maps raw text to an Intent. It never fails: unresolvable input
// yields an ambiguous Intent and internal failures an error Intent. Results
// are cached by raw text.
func (r *Resolver) Resolve(ctx context.Context, raw string, opts Options) (out Intent) {
	if hit, ok := r.cache.Get(raw); ok {
		out = hit.Value.clone()
		out.Cached = true
		at := hit.InsertedAt
		out.CachedAt = &at
		return out
	}

	defer func() {
		if p := recover(); p != nil {
			r.log.WithField("input", raw).Errorf("resolution panicked: %v", p)
			out = errorIntent(raw, fmt.Errorf("internal error: %v", p))
		}
		// A cancelled call may have skipped the AI stage; keep it out of the cache.
		if ctx.Err() == nil {
			r.cache.Put(raw, out.clone())
		}
		r.record(out)
	}()

	in, err := r.resolve(ctx, raw, opts)
	if err != nil {
		r.log.WithError(err).WithField("input", raw).Warn("resolution failed")
		return errorIntent(raw, err)
	}
	return in
}

func (r *Resolver) resolve(ctx context.Context, raw string, opts Options) (Intent, error) {
	if r.catalog == nil {
		return Intent{}, fmt.Errorf("no command catalog configured")
	}

	input := preprocess(raw)
	input.UseAI = r.ai != nil && (opts.UseAI == nil || *opts.UseAI)

	best := r.cascade(ctx, input)
	out := r.build(input, best)
	r.refine(&out)
	if out.Confidence < ambiguityFloor {
		out = r.ambiguous(out, best)
	}
	return out, nil
}

// cascade runs each stage whose gate is still open and keeps the highest
// scoring candidate. Only the AI stage observes ctx.
func (r *Resolver) cascade(ctx context.Context, in *Input) Candidate {
	for _, st := range r.stages {
		if in.Best.Confidence >= st.below {
			continue
		}
		c, ok := st.strategy.Attempt(ctx, in)
		if !ok {
			continue
		}
		c.Confidence = clamp(c.Confidence)
		if c.Confidence > in.Best.Confidence {
			in.Best = c
		}
	}
	return in.Best
}

// build turns the winning candidate into an Intent with catalog metadata and
// extracted parameters.
func (r *Resolver) build(in *Input, best Candidate) Intent {
	out := Intent{
		Type:       best.Type,
		Confidence: best.Confidence,
		Method:     best.Method,
		Raw:        in.Raw,
	}
	if out.Type == "" {
		out.Type = catalog.Unknown
	}

	var mapping catalog.CommandMapping
	found := false
	if best.Command != "" {
		mapping, found = r.catalog.Lookup(best.Command)
	}
	if !found {
		mapping, found = pickCommand(r.catalog.ForType(out.Type), in.Tokens)
	}
	params := map[string]any{}
	if found {
		out.Command = mapping.Name
		out.Tool = mapping.Tool
		out.Description = mapping.Description
		maps.Copy(params, mapping.Params)
	}
	maps.Copy(params, best.Params)
	maps.Copy(params, extractParams(in.Raw))
	if len(params) > 0 {
		out.Params = params
	}
	return out
}

// AvailableCommands lists the catalog with each entry's intent type.
func (r *Resolver) AvailableCommands() []catalog.CommandMapping {
	if r.catalog == nil {
		return nil
	}
	return r.catalog.All()
}

// ClearCache drops every cached resolution.
func (r *Resolver) ClearCache() {
	r.cache.Clear()
}

// CacheLen reports how many resolutions are cached.
func (r *Resolver) CacheLen() int {
	return r.cache.Len()
}

func (r *Resolver) record(in Intent) {
	if r.recorder == nil {
		return
	}
	defer func() {
		if p := recover(); p != nil {
			r.log.Errorf("recording resolution panicked: %v", p)
		}
	}()
	r.recorder.TrackUserActivity(snapshot.Activity{
		Type:        "intent",
		Description: in.Raw,
		Context: map[string]any{
			"type":       in.Type,
			"method":     in.Method,
			"command":    in.Command,
			"confidence": in.Confidence,
		},
	})
}

func errorIntent(raw string, err error) Intent {
	return Intent{
		Type:        TypeError,
		Method:      MethodError,
		Raw:         raw,
		Error:       err.Error(),
		Hint:        retryHint,
		Description: "The request could not be resolved.",
	}
}

func clamp(f float64) float64 {
	switch {
	case math.IsNaN(f), f < 0:
		return 0
	case f > 1:
		return 1
	}
	return f
}

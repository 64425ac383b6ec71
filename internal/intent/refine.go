package intent

import (
	"strings"

	"github.com/fakeyudi/gitmind/internal/catalog"
	"github.com/fakeyudi/gitmind/internal/inference"
	"github.com/fakeyudi/gitmind/internal/snapshot"
)

// boost is the confidence multiplier when context corroborates the type.
func boost(typ string, inf inference.Result) float64 {
	switch {
	case typ == catalog.Commit && inf.HasUncommittedChanges:
		return 1.2
	case typ == catalog.Push && inf.NeedsPush:
		return 1.2
	case typ == catalog.Pull && inf.NeedsPull:
		return 1.2
	case typ == catalog.Develop &&
		(inf.Workflow == inference.WorkflowFeature || inf.Workflow == inference.WorkflowBugFix):
		return 1.1
	}
	return 1
}

// refine boosts confidence from inferred context, back-fills a missing
// branch for branch intents and attaches the context annotation.
func (r *Resolver) refine(out *Intent) {
	if r.context == nil {
		return
	}
	snap := r.context.Snapshot()
	inf := r.context.InferredContext()

	out.Confidence = clamp(out.Confidence * boost(out.Type, inf))

	var branch string
	if snap != nil {
		branch = snap.Git.CurrentBranch
	}
	if out.Type == catalog.Branch && branch != "" && !snapshot.IsMainBranch(branch) {
		if _, ok := out.Params["branch"]; !ok {
			if out.Params == nil {
				out.Params = map[string]any{}
			}
			out.Params["branch"] = branch
		}
	}

	out.Context = &Annotation{
		Branch:                branch,
		HasUncommittedChanges: inf.HasUncommittedChanges,
		Workflow:              inf.Workflow,
		Recommendations:       inf.Recommendations,
	}
}

var fallbackCommands = []string{"show help", "show status", "show context"}

// ambiguous replaces a low-confidence result with ranked suggestions drawn
// from the best partial match's type, padded with safe fallbacks.
func (r *Resolver) ambiguous(out Intent, best Candidate) Intent {
	res := Intent{
		Type:        TypeAmbiguous,
		Method:      MethodAmbiguity,
		Raw:         out.Raw,
		Context:     out.Context,
		Description: "Not sure what you meant. Did you mean one of these?",
	}

	seen := map[string]bool{}
	add := func(m catalog.CommandMapping) {
		if len(res.Suggestions) >= maxSuggestions || seen[m.Name] {
			return
		}
		seen[m.Name] = true
		res.Suggestions = append(res.Suggestions, Suggestion{Command: m.Name, Type: m.Type, Description: m.Description})
	}

	if best.Command != "" {
		if m, ok := r.catalog.Lookup(best.Command); ok {
			add(m)
		}
	}
	if best.Type != "" && best.Type != catalog.Unknown {
		for _, m := range r.catalog.ForType(best.Type) {
			add(m)
		}
	}
	for _, name := range fallbackCommands {
		m, ok := r.catalog.Lookup(name)
		if !ok {
			m = catalog.CommandMapping{Name: name, Type: catalog.InferType(name, "")}
		}
		add(m)
	}
	return res
}

// pickCommand chooses the entry of a type whose name and aliases share the
// most words with the input; ties keep catalog order.
func pickCommand(entries []catalog.CommandMapping, tokens []string) (catalog.CommandMapping, bool) {
	if len(entries) == 0 {
		return catalog.CommandMapping{}, false
	}
	words := wordSet(tokens)
	best, bestScore := entries[0], -1
	for _, m := range entries {
		score := overlap(words, m.Name)
		for _, a := range m.Aliases {
			score = max(score, overlap(words, a))
		}
		if score > bestScore {
			best, bestScore = m, score
		}
	}
	return best, true
}

func overlap(words map[string]bool, phrase string) int {
	n := 0
	for _, w := range tokenize(strings.ToLower(phrase)) {
		if words[w] {
			n++
		}
	}
	return n
}

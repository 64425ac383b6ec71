package intent

import (
	"context"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"

	"github.com/fakeyudi/gitmind/internal/catalog"
)

// fuzzyStrategy compares the normalized text with every catalog name and
// alias; confidence is one minus the edit distance over the longer length.
type fuzzyStrategy struct {
	catalog *catalog.Catalog
}

func (s fuzzyStrategy) Attempt(_ context.Context, in *Input) (Candidate, bool) {
	if s.catalog == nil || in.Normalized == "" {
		return Candidate{}, false
	}
	var best Candidate
	for _, phrase := range s.catalog.Phrases() {
		score := similarity(in.Normalized, phrase.Text)
		if score <= best.Confidence {
			continue
		}
		m, ok := s.catalog.Lookup(phrase.Name)
		if !ok {
			continue
		}
		best = Candidate{Type: m.Type, Confidence: score, Method: MethodFuzzy, Command: m.Name}
	}
	return best, best.Confidence > 0
}

func similarity(a, b string) float64 {
	longest := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	if longest == 0 {
		return 0
	}
	return 1 - float64(levenshtein.ComputeDistance(a, b))/float64(longest)
}

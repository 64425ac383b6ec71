package intent

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/fakeyudi/gitmind/internal/ai"
	"github.com/fakeyudi/gitmind/internal/catalog"
)

// Input is the preprocessed text shared by every strategy in one cascade.
type Input struct {
	Raw        string
	Normalized string
	Tokens     []string
	Question   bool
	UseAI      bool
	// Best is the highest scoring candidate so far.
	Best Candidate
}

// Candidate is one strategy's proposal.
type Candidate struct {
	Type       string
	Confidence float64
	Method     string
	// Command optionally names the catalog entry directly.
	Command string
	Params  map[string]any
}

// Strategy proposes a candidate for the input, or reports no opinion.
type Strategy interface {
	Attempt(ctx context.Context, in *Input) (Candidate, bool)
}

// stage runs its strategy only while the best confidence is below the gate.
type stage struct {
	strategy Strategy
	below    float64
}

func defaultStages(cat *catalog.Catalog, completer ai.Completer, log *logrus.Entry) []stage {
	return []stage{
		{strategy: patternStrategy{}, below: 1.01},
		{strategy: nlpStrategy{}, below: 0.7},
		{strategy: fuzzyStrategy{catalog: cat}, below: 0.7},
		{strategy: &aiStrategy{catalog: cat, client: completer, log: log}, below: 0.5},
	}
}

package intent

import (
	"context"
	"math"
	"testing"

	"github.com/fakeyudi/gitmind/internal/catalog"
)

func TestNLPScoring(t *testing.T) {
	tests := []struct {
		input string
		typ   string
		score float64
	}{
		// one verb plus the imperative bonus
		{"publish", catalog.Push, 0.7},
		// a question loses the imperative bonus
		{"push?", catalog.Push, 0.4},
		// keywords alone, 0.3 each, no mood bonus without a verb
		{"origin remote server", catalog.Push, 0.9},
		{"origin", catalog.Push, 0.3},
		// verb, keyword and mood
		{"send commits", catalog.Push, 1.0},
		// raw 1.9 is clipped
		{"push commits to origin upstream remote", catalog.Push, 1.0},
		// equal scores go to the earlier type
		{"commit and push", catalog.Commit, 0.7},
		// help only gains from the question mood
		{"how does it go?", catalog.Help, 0.3},
		{"any usage options?", catalog.Help, 0.9},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := nlpStrategy{}.Attempt(context.Background(), preprocess(tt.input))
			if !ok {
				t.Fatal("no candidate")
			}
			if got.Type != tt.typ || got.Method != MethodNLP {
				t.Errorf("candidate = %s/%s, want %s/%s", got.Type, got.Method, tt.typ, MethodNLP)
			}
			if math.Abs(got.Confidence-tt.score) > 1e-9 {
				t.Errorf("score = %v, want %v", got.Confidence, tt.score)
			}
			if got.Confidence > 1 {
				t.Errorf("score %v above 1", got.Confidence)
			}
		})
	}
}

func TestNLPNoSignal(t *testing.T) {
	if c, ok := (nlpStrategy{}).Attempt(context.Background(), preprocess("xyx qqzz flerp")); ok {
		t.Errorf("unexpected candidate %+v", c)
	}
}

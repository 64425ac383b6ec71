package intent

import (
	"context"
	"strings"

	"github.com/fakeyudi/gitmind/internal/catalog"
)

// targetVocabulary are deployment targets recognized as entities.
var targetVocabulary = map[string]bool{
	"production": true, "staging": true, "development": true, "main": true, "master": true,
}

var allVerbs, allKeywords = func() (map[string]bool, map[string]bool) {
	verbs, keywords := map[string]bool{}, map[string]bool{}
	for _, r := range rules {
		for _, v := range r.verbs {
			verbs[v] = true
		}
		for _, k := range r.keywords {
			keywords[k] = true
		}
	}
	return verbs, keywords
}()

// parsed is a shallow reading of the sentence.
type parsed struct {
	verbs    map[string]bool
	nouns    map[string]bool
	entities []string
	question bool
}

func parse(in *Input) parsed {
	p := parsed{verbs: map[string]bool{}, nouns: map[string]bool{}, question: in.Question}
	for _, tok := range in.Tokens {
		switch {
		case allVerbs[tok]:
			p.verbs[tok] = true
			// "test", "review" and friends are both.
			if allKeywords[tok] {
				p.nouns[tok] = true
			}
		case allKeywords[tok]:
			p.nouns[tok] = true
		case strings.ContainsAny(tok, "/.") || targetVocabulary[tok]:
			p.entities = append(p.entities, tok)
		}
	}
	return p
}

// topics splits entities like "feature/login" into the words they start
// with, so a branch name can count as a keyword.
func (p parsed) topics() map[string]bool {
	set := make(map[string]bool, len(p.nouns)+len(p.entities))
	for n := range p.nouns {
		set[n] = true
	}
	for _, e := range p.entities {
		set[e] = true
		if head, _, ok := strings.Cut(e, "/"); ok {
			set[head] = true
		}
	}
	return set
}

// nlpStrategy scores every type as 0.4 per verb match plus 0.3 per keyword
// match among nouns and entities, plus 0.3 when the sentence mood fits the
// type: help expects a question, everything else an imperative with one of
// its verbs.
type nlpStrategy struct{}

func (nlpStrategy) Attempt(_ context.Context, in *Input) (Candidate, bool) {
	p := parse(in)
	topics := p.topics()

	var best Candidate
	for _, r := range rules {
		verbHits := countIn(p.verbs, r.verbs)
		score := 0.4*float64(verbHits) + 0.3*float64(countIn(topics, r.keywords))
		if r.typ == catalog.Help {
			if p.question {
				score += 0.3
			}
		} else if !p.question && verbHits > 0 {
			score += 0.3
		}
		if score > 1 {
			score = 1
		}
		if score > best.Confidence {
			best = Candidate{Type: r.typ, Confidence: score, Method: MethodNLP}
		}
	}
	return best, best.Confidence > 0
}

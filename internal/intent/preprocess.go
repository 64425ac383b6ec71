package intent

import (
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var fillerPrefixes = []string{
	"please", "kindly", "hey", "ok", "okay", "just",
	"can you", "could you", "would you", "will you",
	"i want to", "i need to", "i would like to", "i'd like to",
	"let's", "lets", "go ahead and", "try to",
}

// phraseNormalizations rewrite common phrasings onto catalog vocabulary.
// They are applied longest first so that overlapping entries do not stack.
var phraseNormalizations = map[string]string{
	"commit all changes":  "commit changes",
	"commit everything":   "commit changes",
	"commit all":          "commit changes",
	"commit my changes":   "commit changes",
	"save my work":        "commit changes",
	"check in":            "commit",
	"open a pull request": "create pull request",
	"open a pr":           "create pull request",
	"make a pr":           "create pull request",
	"raise a pr":          "create pull request",
	"get latest":          "pull latest",
	"sync up":             "pull",
	"ship it":             "deploy",
	"what's":              "what is",
	"where's":             "where is",
	"kick off the tests":  "run tests",
}

var normalizationOrder = func() []string {
	keys := make([]string, 0, len(phraseNormalizations))
	for k := range phraseNormalizations {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})
	return keys
}()

var questionWords = map[string]bool{
	"what": true, "how": true, "why": true, "when": true, "where": true,
	"which": true, "who": true, "can": true, "could": true, "should": true,
	"is": true, "are": true, "do": true, "does": true,
	"what's": true, "where's": true, "how's": true,
}

func preprocess(raw string) *Input {
	// Casers carry state, so each call gets its own.
	text := strings.Join(strings.Fields(cases.Lower(language.English).String(raw)), " ")
	in := &Input{Raw: raw}
	asked := strings.HasSuffix(text, "?")

	text = strings.TrimRight(text, "?!. ")
	stripped := stripFillers(text)
	// "can you push?" is a polite imperative, not a question.
	first, _, _ := strings.Cut(stripped, " ")
	in.Question = questionWords[first] || (asked && stripped == text)

	text = normalizePhrases(stripped)
	in.Normalized = text
	in.Tokens = tokenize(text)
	return in
}

// stripFillers removes leading politeness and hedging, repeatedly, so
// "please can you push" becomes "push".
func stripFillers(text string) string {
	for {
		stripped := false
		for _, f := range fillerPrefixes {
			if text == f {
				return ""
			}
			if strings.HasPrefix(text, f+" ") {
				text = strings.TrimSpace(text[len(f):])
				stripped = true
			}
		}
		if !stripped {
			return text
		}
	}
}

func normalizePhrases(text string) string {
	padded := " " + text + " "
	for _, from := range normalizationOrder {
		padded = strings.ReplaceAll(padded, " "+from+" ", " "+phraseNormalizations[from]+" ")
	}
	return strings.TrimSpace(padded)
}

// tokenize splits on whitespace and trims surrounding punctuation, keeping
// path-like characters inside a token.
func tokenize(text string) []string {
	fields := strings.Fields(text)
	out := fields[:0]
	for _, f := range fields {
		f = strings.TrimFunc(f, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}

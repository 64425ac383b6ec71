package intent

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/fakeyudi/gitmind/internal/ai"
	"github.com/fakeyudi/gitmind/internal/catalog"
)

const aiInstruction = `You map developer requests to git workflow commands.
Reply with a single JSON object and nothing else:
{"intent": "<type>", "command": "<command name>", "params": {}, "confidence": <0..1>}
Valid types: %s.
Available commands (name | type | description):
%s`

// aiStrategy asks a completion service. Any failure or unusable answer is
// logged and treated as no opinion.
type aiStrategy struct {
	catalog *catalog.Catalog
	client  ai.Completer
	log     *logrus.Entry
}

type aiAnswer struct {
	Intent     string         `json:"intent"`
	Command    string         `json:"command"`
	Params     map[string]any `json:"params"`
	Confidence float64        `json:"confidence"`
}

func (s *aiStrategy) Attempt(ctx context.Context, in *Input) (Candidate, bool) {
	if s.client == nil || !in.UseAI || s.catalog == nil {
		return Candidate{}, false
	}
	reply, err := s.client.Complete(ctx, ai.Request{
		SystemPrompt: s.systemPrompt(),
		UserPrompt:   fmt.Sprintf("Original: %s\nNormalized: %s", in.Raw, in.Normalized),
	})
	if err != nil {
		s.log.WithError(err).Warn("ai strategy unavailable")
		return Candidate{}, false
	}
	answer, err := parseAnswer(reply)
	if err != nil {
		s.log.WithError(err).WithField("reply", reply).Warn("ai strategy returned unusable data")
		return Candidate{}, false
	}

	c := Candidate{
		Type:       answer.Intent,
		Confidence: answer.Confidence,
		Method:     MethodAI,
		Params:     answer.Params,
	}
	if m, ok := s.catalog.Lookup(answer.Command); ok {
		c.Command = m.Name
		if c.Type == catalog.Unknown {
			c.Type = m.Type
		}
	}
	return c, true
}

func (s *aiStrategy) systemPrompt() string {
	var b strings.Builder
	for _, m := range s.catalog.All() {
		fmt.Fprintf(&b, "- %s | %s | %s\n", m.Name, m.Type, m.Description)
	}
	return fmt.Sprintf(aiInstruction, strings.Join(catalog.Types, ", "), b.String())
}

// parseAnswer accepts bare JSON or JSON inside a fenced block.
func parseAnswer(reply string) (aiAnswer, error) {
	text := strings.TrimSpace(reply)
	if start := strings.Index(text, "{"); start >= 0 {
		if end := strings.LastIndex(text, "}"); end > start {
			text = text[start : end+1]
		}
	}
	var a aiAnswer
	if err := json.Unmarshal([]byte(text), &a); err != nil {
		return a, fmt.Errorf("decode answer: %w", err)
	}
	a.Intent = strings.ToLower(strings.TrimSpace(a.Intent))
	if a.Intent == "" {
		a.Intent = catalog.Unknown
	}
	if a.Intent != catalog.Unknown && !slices.Contains(catalog.Types, a.Intent) {
		return a, fmt.Errorf("unknown intent %q", a.Intent)
	}
	if a.Confidence < 0 || a.Confidence > 1 {
		return a, fmt.Errorf("confidence %v out of range", a.Confidence)
	}
	return a, nil
}

package intent

import (
	"regexp"
	"strings"
)

var (
	branchParam  = regexp.MustCompile(`(?i)\b(?:branch|checkout|switch)\b(?:\s+(?:to|into|onto|branch|called|named|the|a|new))*\s+([A-Za-z0-9][\w./-]*)`)
	fileParam    = regexp.MustCompile("(?i)\\b(?:file|path)\\s+[\"'`]?([\\w./-]+)")
	targetParam  = regexp.MustCompile(`(?i)\b(?:to|into|on)\s+(production|staging|development|main|master)\b`)
	messageParam = regexp.MustCompile(`(?i)\b(?:message|description|with)\s*:?\s*(?:"([^"]+)"|'([^']+)')`)
)

var notBranchNames = map[string]bool{
	"and": true, "for": true, "from": true, "on": true, "with": true, "please": true,
}

// extractParams pulls branch, file, target and message values out of the
// raw text. Branch and file keep their original case.
func extractParams(raw string) map[string]any {
	params := map[string]any{}
	if m := branchParam.FindStringSubmatch(raw); m != nil && !notBranchNames[strings.ToLower(m[1])] {
		params["branch"] = strings.TrimRight(m[1], ".")
	}
	if m := fileParam.FindStringSubmatch(raw); m != nil {
		params["file"] = strings.TrimRight(m[1], ".")
	}
	if m := targetParam.FindStringSubmatch(raw); m != nil {
		params["target"] = strings.ToLower(m[1])
	}
	if m := messageParam.FindStringSubmatch(raw); m != nil {
		msg := m[1]
		if msg == "" {
			msg = m[2]
		}
		params["message"] = msg
	}
	return params
}

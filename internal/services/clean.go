package services

import (
	"regexp"
	"strings"
)

var (
	fenceRe    = regexp.MustCompile("```[a-zA-Z]*\n?")
	citationRe = regexp.MustCompile(`\[[^\]\n]*\]`)
)

// StripMarkdown flattens model output for plain-text replies: code fences,
// emphasis asterisks and bracketed citations are removed.
func StripMarkdown(s string) string {
	s = fenceRe.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "*", "")
	s = citationRe.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// ExtractJSON unwraps a fenced JSON block and trims any prose around the
// outermost object. The result is still not guaranteed to parse; callers keep
// their fallbacks.
func ExtractJSON(s string) string {
	s = strings.TrimSpace(s)
	if strings.Contains(s, "```") {
		s = strings.TrimSpace(fenceRe.ReplaceAllString(s, ""))
	}
	if i := strings.Index(s, "{"); i >= 0 {
		if j := strings.LastIndex(s, "}"); j > i {
			return s[i : j+1]
		}
	}
	return s
}

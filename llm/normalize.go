package llm

import (
	"regexp"
	"strings"
)

var (
	wrappingQuotes = regexp.MustCompile(`^["「『]|["」』]$`)
	whitespaceRun  = regexp.MustCompile(`\s+`)
)

// NormalizeReply trims the text, strips one wrapping quote character at each
// end and collapses newlines and whitespace runs to single spaces.
func NormalizeReply(s string) string {
	s = strings.TrimSpace(s)
	s = wrappingQuotes.ReplaceAllString(s, "")
	s = whitespaceRun.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

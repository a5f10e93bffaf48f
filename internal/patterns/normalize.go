package patterns

import (
	"regexp"
	"strings"
)

// replacement is one ordered normalization rule. Order matters: timestamps
// must be rewritten before the generic numeric-id rule so that a date like
// 2025-06-15T10:00:00Z does not get partially replaced, and URLs before
// bare paths so the path rule does not split a URL in two.
type replacement struct {
	re          *regexp.Regexp
	placeholder string
}

var normalizeRules = []replacement{
	{regexp.MustCompile(`[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}`), "<UUID>"},
	{regexp.MustCompile(`\d{4}-\d{2}-\d{2}[T ]\d{2}:\d{2}:\d{2}(?:\.\d+)?(?:Z|[+-]\d{2}:?\d{2})?`), "<TIMESTAMP>"},
	{regexp.MustCompile(`https?://[^\s"'<>]+`), "<URL>"},
	{regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`), "<EMAIL>"},
	{regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}\b`), "<IP>"},
	{regexp.MustCompile(`(?:/[A-Za-z0-9._\-]+){2,}/?`), "<PATH>"},
	{regexp.MustCompile(`\b\d{6,}\b`), "<ID>"},
	{regexp.MustCompile(`\b(?:0x)?[0-9a-fA-F]{16,}\b`), "<HEX>"},
}

var whitespaceRe = regexp.MustCompile(`\s+`)

// NormalizeErrorMessage strips volatile substrings (ids, timestamps, paths,
// URLs, addresses) from an error message so that semantically identical
// errors compare equal. Deterministic and idempotent.
func NormalizeErrorMessage(message string) string {
	out := message
	for _, rule := range normalizeRules {
		out = rule.re.ReplaceAllString(out, rule.placeholder)
	}
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(out, " "))
}

// NormalizeOptional applies NormalizeErrorMessage, propagating absence.
func NormalizeOptional(message *string) *string {
	if message == nil {
		return nil
	}
	out := NormalizeErrorMessage(*message)
	return &out
}

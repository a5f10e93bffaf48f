package patterns

import (
	"regexp"

	"github.com/agentlens/agentlens-core/internal/models"
)

// CategoryRule maps an error-message pattern to a category. Caller-supplied
// rules are evaluated before the built-in set, in the order given.
type CategoryRule struct {
	Pattern  *regexp.Regexp
	Category models.ErrorCategory
}

// builtinRules is the ordered built-in rule set. First match wins, so the
// more specific phrasings sit ahead of the catch-all ones (e.g. "504
// gateway timeout" should land in timeout, not server_error).
var builtinRules = []CategoryRule{
	{regexp.MustCompile(`(?i)(timed?\s?out|timeout|deadline exceeded|ETIMEDOUT)`), models.CategoryTimeout},
	{regexp.MustCompile(`(?i)(ECONNREFUSED|ECONNRESET|EPIPE|connection\s(refused|reset|closed|failed|aborted)|socket hang\s?up|network (error|failure)|host unreachable|no route to host)`), models.CategoryConnection},
	{regexp.MustCompile(`(?i)(rate.?limit|too many requests|quota exceeded|throttl|\b429\b)`), models.CategoryRateLimit},
	{regexp.MustCompile(`(?i)(unauthorized|unauthenticated|authentication|invalid (api.?key|token|credentials)|token (expired|invalid)|login failed|\b401\b)`), models.CategoryAuthentication},
	{regexp.MustCompile(`(?i)(forbidden|permission denied|access denied|not (allowed|permitted)|insufficient (permissions|privileges)|\b403\b)`), models.CategoryAuthorization},
	{regexp.MustCompile(`(?i)(not found|no such (file|key|model|resource)|does not exist|\b404\b)`), models.CategoryNotFound},
	{regexp.MustCompile(`(?i)(out of memory|\bOOM\b|resource exhausted|memory limit|disk full|no space left|context length exceeded|maximum context)`), models.CategoryResourceExhausted},
	{regexp.MustCompile(`(?i)(parse error|parsing failed|JSON parse|unexpected (token|end of)|invalid JSON|syntax error|malformed|unmarshal|decode failed)`), models.CategoryParseError},
	{regexp.MustCompile(`(?i)(validation|invalid (input|argument|parameter|request|value)|bad request|schema (mismatch|violation)|\b400\b)`), models.CategoryValidation},
	{regexp.MustCompile(`(?i)(internal server error|server error|bad gateway|service unavailable|upstream error|\b5\d{2}\b)`), models.CategoryServerError},
}

// CategorizeError maps a raw error message to a category. Overrides are
// tested first, in order; the built-in rules follow. Absent or empty input
// and unmatched input both yield CategoryUnknown; no rule assigns unknown
// explicitly.
func CategorizeError(message *string, overrides ...CategoryRule) models.ErrorCategory {
	if message == nil || *message == "" {
		return models.CategoryUnknown
	}
	for _, rule := range overrides {
		if rule.Pattern != nil && rule.Pattern.MatchString(*message) {
			return rule.Category
		}
	}
	for _, rule := range builtinRules {
		if rule.Pattern.MatchString(*message) {
			return rule.Category
		}
	}
	return models.CategoryUnknown
}

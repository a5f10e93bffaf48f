package patterns

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/agentlens/agentlens-core/internal/models"
)

func TestCategorizeError_AbsentAndEmpty(t *testing.T) {
	assert.Equal(t, models.CategoryUnknown, CategorizeError(nil))
	assert.Equal(t, models.CategoryUnknown, CategorizeError(models.StrPtr("")))
}

func TestCategorizeError_CanonicalPhrases(t *testing.T) {
	tests := []struct {
		message string
		want    models.ErrorCategory
	}{
		{"Request timed out after 30s", models.CategoryTimeout},
		{"context deadline exceeded", models.CategoryTimeout},
		{"connect ECONNREFUSED 127.0.0.1:8080", models.CategoryConnection},
		{"connection reset by peer", models.CategoryConnection},
		{"401 Unauthorized: invalid api key", models.CategoryAuthentication},
		{"permission denied for resource", models.CategoryAuthorization},
		{"invalid input: field name is required", models.CategoryValidation},
		{"rate limit exceeded, retry later", models.CategoryRateLimit},
		{"429 Too Many Requests", models.CategoryRateLimit},
		{"model not found", models.CategoryNotFound},
		{"404 page does not exist", models.CategoryNotFound},
		{"internal server error", models.CategoryServerError},
		{"upstream returned 502", models.CategoryServerError},
		{"JSON parse error at position 17", models.CategoryParseError},
		{"unexpected token < in response", models.CategoryParseError},
		{"context length exceeded for model", models.CategoryResourceExhausted},
		{"out of memory", models.CategoryResourceExhausted},
		{"something inexplicable happened", models.CategoryUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			assert.Equal(t, tt.want, CategorizeError(&tt.message))
		})
	}
}

func TestCategorizeError_OverridesWinOverBuiltins(t *testing.T) {
	msg := "request timed out talking to billing"

	// Built-in rules alone classify this as a timeout.
	assert.Equal(t, models.CategoryTimeout, CategorizeError(&msg))

	// An override matching the same text takes precedence.
	override := CategoryRule{
		Pattern:  regexp.MustCompile(`(?i)billing`),
		Category: models.CategoryServerError,
	}
	assert.Equal(t, models.CategoryServerError, CategorizeError(&msg, override))

	// First matching override wins when several match.
	second := CategoryRule{
		Pattern:  regexp.MustCompile(`(?i)timed out`),
		Category: models.CategoryConnection,
	}
	assert.Equal(t, models.CategoryServerError, CategorizeError(&msg, override, second))

	// Overrides that do not match fall through to the built-ins.
	miss := CategoryRule{
		Pattern:  regexp.MustCompile(`no such phrase`),
		Category: models.CategoryValidation,
	}
	assert.Equal(t, models.CategoryTimeout, CategorizeError(&msg, miss))
}

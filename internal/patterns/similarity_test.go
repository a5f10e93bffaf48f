package patterns

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentlens/agentlens-core/internal/models"
)

func feat(name, spanType string, category models.ErrorCategory, mutate ...func(*models.FailureFeatures)) models.FailureFeatures {
	f := models.FailureFeatures{
		SpanName: name,
		SpanType: spanType,
		Category: category,
	}
	for _, m := range mutate {
		m(&f)
	}
	return f
}

func TestTokenSimilarity_IdenticalIsOne(t *testing.T) {
	cases := []models.FailureFeatures{
		feat("fetch-user-profile", "tool", models.CategoryTimeout),
		feat("", "", models.CategoryUnknown),
		feat("llm call", "generation", models.CategoryRateLimit, func(f *models.FailureFeatures) {
			f.ToolName = models.StrPtr("search")
			f.Model = models.StrPtr("gpt-4o")
		}),
	}
	for _, f := range cases {
		assert.InDelta(t, 1.0, TokenSimilarity(f, f), 1e-9)
	}
}

func TestTokenSimilarity_Symmetric(t *testing.T) {
	a := feat("fetch user profile", "tool", models.CategoryTimeout, func(f *models.FailureFeatures) {
		f.ToolName = models.StrPtr("http_get")
	})
	b := feat("fetch order history", "generation", models.CategoryConnection, func(f *models.FailureFeatures) {
		f.Model = models.StrPtr("claude-sonnet")
	})
	assert.Equal(t, TokenSimilarity(a, b), TokenSimilarity(b, a))
}

func TestTokenSimilarity_SameCategoryScoresHigher(t *testing.T) {
	base := feat("call external api", "tool", models.CategoryTimeout)
	sameCat := feat("call internal api", "tool", models.CategoryTimeout)
	diffCat := feat("call internal api", "tool", models.CategoryValidation)

	assert.Greater(t, TokenSimilarity(base, sameCat), TokenSimilarity(base, diffCat))
}

func TestTokenSimilarity_ToolWeightOnlyWhenPresent(t *testing.T) {
	a := feat("run", "tool", models.CategoryTimeout)
	b := feat("run", "tool", models.CategoryTimeout)

	// No tool on either side: full score from the always-active weights.
	assert.InDelta(t, 1.0, TokenSimilarity(a, b), 1e-9)

	// Tool on one side only activates the weight and costs score.
	b.ToolName = models.StrPtr("search")
	assert.Less(t, TokenSimilarity(a, b), 1.0)

	// Matching tools restore the full score.
	a.ToolName = models.StrPtr("search")
	assert.InDelta(t, 1.0, TokenSimilarity(a, b), 1e-9)
}

func TestTokenSimilarity_Bounds(t *testing.T) {
	a := feat("alpha beta", "tool", models.CategoryTimeout)
	b := feat("gamma delta", "generation", models.CategoryValidation)
	s := TokenSimilarity(a, b)
	assert.GreaterOrEqual(t, s, 0.0)
	assert.LessOrEqual(t, s, 1.0)
	assert.Zero(t, s)
}

func TestCosineSimilarity(t *testing.T) {
	s, err := CosineSimilarity([]float64{1, 0, 0}, []float64{1, 0, 0})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, s, 1e-9)

	s, err = CosineSimilarity([]float64{1, 0}, []float64{0, 1})
	require.NoError(t, err)
	assert.Zero(t, s)

	// Opposite vectors clamp to zero rather than going negative.
	s, err = CosineSimilarity([]float64{1, 1}, []float64{-1, -1})
	require.NoError(t, err)
	assert.Zero(t, s)
}

func TestCosineSimilarity_DimensionMismatch(t *testing.T) {
	_, err := CosineSimilarity([]float64{1, 2, 3}, []float64{1, 2})
	require.Error(t, err)
	assert.Equal(t, models.ErrCodeInvalidInput, models.CodeOf(err))
}

func TestEmbeddingSimilarity_FallsBackWithoutIndexEntry(t *testing.T) {
	a := feat("fetch user", "tool", models.CategoryTimeout, func(f *models.FailureFeatures) {
		f.NormalizedMessage = models.StrPtr("request timed out")
	})
	b := feat("fetch user", "tool", models.CategoryTimeout, func(f *models.FailureFeatures) {
		f.NormalizedMessage = models.StrPtr("deadline exceeded")
	})

	s, err := EmbeddingSimilarity(nil, a, b)
	require.NoError(t, err)
	assert.Equal(t, TokenSimilarity(a, b), s)
}

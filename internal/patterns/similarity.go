package patterns

import (
	"regexp"
	"strings"

	"github.com/agentlens/agentlens-core/internal/models"
)

// SimilarityMethod selects how two feature records are compared.
type SimilarityMethod string

const (
	// SimilarityToken is the always-available weighted token comparison.
	SimilarityToken SimilarityMethod = "token"
	// SimilarityEmbedding compares cached embedding vectors and requires an
	// embedding function; only reachable through the context-taking entry
	// points.
	SimilarityEmbedding SimilarityMethod = "embedding"
)

// Token-strategy component weights.
const (
	weightNameTokens = 3.0
	weightCategory   = 2.0
	weightSpanType   = 2.0
	weightToolName   = 2.0
	weightModel      = 1.0
)

var tokenSplitRe = regexp.MustCompile(`[^a-z0-9]+`)

// TokenSimilarity scores two feature records in [0,1] with the weighted
// token strategy: span-name token overlap (Jaccard, weight 3), category and
// span-type equality (weight 2 each), tool-name equality when either side
// has a tool name (weight 2), model equality when either side has a model
// (weight 1). The sum is normalized by the total active weight, so
// identical records score exactly 1.0. Symmetric by construction.
func TokenSimilarity(a, b models.FailureFeatures) float64 {
	score := 0.0
	total := 0.0

	score += weightNameTokens * tokenJaccard(tokenize(a.SpanName), tokenize(b.SpanName))
	total += weightNameTokens

	if a.Category == b.Category {
		score += weightCategory
	}
	total += weightCategory

	if a.SpanType == b.SpanType {
		score += weightSpanType
	}
	total += weightSpanType

	if a.ToolName != nil || b.ToolName != nil {
		if a.ToolName != nil && b.ToolName != nil && *a.ToolName == *b.ToolName {
			score += weightToolName
		}
		total += weightToolName
	}

	if a.Model != nil || b.Model != nil {
		if a.Model != nil && b.Model != nil && *a.Model == *b.Model {
			score += weightModel
		}
		total += weightModel
	}

	return score / total
}

// tokenize lowercases a span name and splits it on non-alphanumeric runs.
func tokenize(name string) map[string]struct{} {
	tokens := make(map[string]struct{})
	for _, tok := range tokenSplitRe.Split(strings.ToLower(name), -1) {
		if tok != "" {
			tokens[tok] = struct{}{}
		}
	}
	return tokens
}

// tokenJaccard is |A∩B| / |A∪B|, with two empty sets counting as identical.
func tokenJaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}
	intersection := 0
	for tok := range a {
		if _, ok := b[tok]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	return float64(intersection) / float64(union)
}

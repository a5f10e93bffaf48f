package patterns

import (
	"context"
	"math"

	"github.com/agentlens/agentlens-core/internal/models"
)

// EmbedFunc is the injected text-to-vector capability. Implementations must
// return one vector per input text, in input order. The engine treats it as
// a black box and caches its outputs by input text.
type EmbedFunc func(ctx context.Context, texts []string) ([][]float64, error)

// EmbeddingIndex holds vectors for a set of distinct normalized messages.
// Built once per clustering call so every subsequent comparison is a
// synchronous in-memory lookup.
type EmbeddingIndex struct {
	vectors map[string][]float64
}

// BuildEmbeddingIndex embeds the distinct non-empty texts and indexes the
// vectors by text. Texts already present in the index are not re-embedded
// when extending an existing index with Extend.
func BuildEmbeddingIndex(ctx context.Context, embed EmbedFunc, texts []string) (*EmbeddingIndex, error) {
	if embed == nil {
		return nil, models.InvalidInput("embedding similarity requires an embedding function")
	}
	idx := &EmbeddingIndex{vectors: make(map[string][]float64)}
	if err := idx.Extend(ctx, embed, texts); err != nil {
		return nil, err
	}
	return idx, nil
}

// Extend embeds any texts not yet present and adds them to the index.
func (idx *EmbeddingIndex) Extend(ctx context.Context, embed EmbedFunc, texts []string) error {
	var missing []string
	seen := make(map[string]struct{})
	for _, t := range texts {
		if t == "" {
			continue
		}
		if _, ok := idx.vectors[t]; ok {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		missing = append(missing, t)
	}
	if len(missing) == 0 {
		return nil
	}

	vectors, err := embed(ctx, missing)
	if err != nil {
		return err
	}
	if len(vectors) != len(missing) {
		return models.NewEngineError(models.ErrCodeParseError, "embedding function returned wrong vector count", nil)
	}
	for i, t := range missing {
		idx.vectors[t] = vectors[i]
	}
	return nil
}

// Lookup returns the vector for text, if indexed.
func (idx *EmbeddingIndex) Lookup(text string) ([]float64, bool) {
	if idx == nil {
		return nil, false
	}
	v, ok := idx.vectors[text]
	return v, ok
}

// Len reports how many distinct texts are indexed.
func (idx *EmbeddingIndex) Len() int {
	if idx == nil {
		return 0
	}
	return len(idx.vectors)
}

// CosineSimilarity computes the cosine of the angle between two vectors,
// clamped to [0,1] (negative cosines carry no similarity signal here).
// Mismatched dimensionality is a programmer error and returns INVALID_INPUT.
func CosineSimilarity(a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, models.InvalidInput("cosine similarity: vector dimensions differ (%d vs %d)", len(a), len(b))
	}
	if len(a) == 0 {
		return 0, nil
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0, nil
	}
	cos := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	if cos < 0 {
		return 0, nil
	}
	if cos > 1 {
		cos = 1
	}
	return cos, nil
}

// Blend weights for the embedding strategy: text similarity dominates, the
// categorical signal keeps same-category clusters coherent.
const (
	embedTextWeight        = 0.7
	embedCategoricalWeight = 0.3
)

// EmbeddingSimilarity scores two feature records using cosine similarity
// over indexed vectors, blended with the token strategy's categorical
// signal. Any text missing from the index falls back to the full token
// strategy for that pair.
func EmbeddingSimilarity(idx *EmbeddingIndex, a, b models.FailureFeatures) (float64, error) {
	va, okA := idx.Lookup(models.StrVal(a.NormalizedMessage))
	vb, okB := idx.Lookup(models.StrVal(b.NormalizedMessage))
	if !okA || !okB {
		return TokenSimilarity(a, b), nil
	}
	cos, err := CosineSimilarity(va, vb)
	if err != nil {
		return 0, err
	}
	return embedTextWeight*cos + embedCategoricalWeight*categoricalSimilarity(a, b), nil
}

// categoricalSimilarity is the category/component portion of the token
// strategy, used as the non-text blend component.
func categoricalSimilarity(a, b models.FailureFeatures) float64 {
	score := 0.0
	if a.Category == b.Category {
		score += 0.5
	}
	if models.StrVal(a.ComponentType) == models.StrVal(b.ComponentType) {
		score += 0.5
	}
	return score
}

package patterns

import (
	"context"
	"fmt"
	"sort"
	"unicode/utf8"

	"github.com/agentlens/agentlens-core/internal/models"
)

// ClusterOptions configures failure clustering.
type ClusterOptions struct {
	// MinFrequency drops patterns with fewer members; their failures are
	// counted as unclustered. Minimum 1, default 2.
	MinFrequency int

	// MaxPatterns caps the result at the highest-frequency patterns.
	// 0 means unbounded.
	MaxPatterns int

	// MaxExamples bounds the example span ids recorded per pattern.
	// Default 5.
	MaxExamples int

	// SimilarityThreshold is the minimum score against a pattern's
	// representative for a failure to join it. Default 0.5.
	SimilarityThreshold float64

	// Method selects the similarity strategy. SimilarityEmbedding is only
	// valid through ClusterFailuresWithEmbeddings.
	Method SimilarityMethod

	// CategoryOverrides are caller-supplied categorization rules applied
	// ahead of the built-in set.
	CategoryOverrides []CategoryRule
}

// DefaultClusterOptions returns the documented defaults.
func DefaultClusterOptions() ClusterOptions {
	return ClusterOptions{
		MinFrequency:        2,
		MaxPatterns:         0,
		MaxExamples:         5,
		SimilarityThreshold: 0.5,
		Method:              SimilarityToken,
	}
}

func (o ClusterOptions) withDefaults() ClusterOptions {
	if o.MinFrequency < 1 {
		o.MinFrequency = 1
	}
	if o.MaxExamples <= 0 {
		o.MaxExamples = 5
	}
	if o.SimilarityThreshold <= 0 {
		o.SimilarityThreshold = 0.5
	}
	if o.Method == "" {
		o.Method = SimilarityToken
	}
	return o
}

// ClusterResult is the outcome of one clustering call. Members holds, for
// each surfaced pattern, the indexes of its failures in the input slice, so
// callers that need trace membership or timestamps can recover them without
// re-running similarity.
type ClusterResult struct {
	Patterns         []*models.FailurePattern
	Members          [][]int
	TotalFailures    int
	UnclusteredCount int
}

// accumulator collects one growing cluster during a pass. The first member's
// features act as the representative for similarity checks; insertion order
// is preserved so results are deterministic for a fixed input order.
type accumulator struct {
	representative models.FailureFeatures
	signature      string
	members        []int
	firstSeen      int // input index of the first member, for tie-breaking
}

// CollectTraceFailures walks a trace's span tree and returns a failure
// record for every error-status span, parents before children.
func CollectTraceFailures(trace *models.Trace) []models.FailureRecord {
	var failures []models.FailureRecord
	if trace == nil {
		return failures
	}
	var walk func(spans []*models.Span)
	walk = func(spans []*models.Span) {
		for _, s := range spans {
			if s == nil {
				continue
			}
			if s.Status == models.SpanStatusError {
				failures = append(failures, models.FailureRecordFromSpan(s))
			}
			walk(s.Children)
		}
	}
	walk(trace.Spans)
	return failures
}

// ClusterTrace clusters the error-status spans of a single trace.
func ClusterTrace(trace *models.Trace, opts ClusterOptions) (*ClusterResult, error) {
	return ClusterFailures(CollectTraceFailures(trace), opts)
}

// ClusterFailures groups failures into patterns using the token similarity
// strategy. Requesting SimilarityEmbedding here is rejected with
// INVALID_INPUT: embeddings cannot be computed without suspension, so the
// embedding path is only reachable through ClusterFailuresWithEmbeddings.
func ClusterFailures(records []models.FailureRecord, opts ClusterOptions) (*ClusterResult, error) {
	opts = opts.withDefaults()
	if opts.Method == SimilarityEmbedding {
		return nil, models.InvalidInput("embedding similarity requires the embedding-aware entry point ClusterFailuresWithEmbeddings")
	}
	return clusterWithIndex(records, nil, opts)
}

// ClusterFailuresWithEmbeddings groups failures using embedding similarity.
// The embedding index for all distinct normalized messages is built up
// front, so clustering itself runs synchronously; messages the index is
// missing (embed failure on rebuild, empty text) fall back to the token
// strategy pair-wise.
func ClusterFailuresWithEmbeddings(ctx context.Context, records []models.FailureRecord, embed EmbedFunc, opts ClusterOptions) (*ClusterResult, error) {
	opts = opts.withDefaults()
	opts.Method = SimilarityEmbedding

	texts := make([]string, 0, len(records))
	for _, r := range records {
		if n := NormalizeOptional(r.StatusMessage); n != nil {
			texts = append(texts, *n)
		}
	}
	idx, err := BuildEmbeddingIndex(ctx, embed, texts)
	if err != nil {
		return nil, err
	}
	return clusterWithIndex(records, idx, opts)
}

// clusterWithIndex is the shared greedy assignment pass. Each failure joins
// the first existing pattern whose representative scores above the
// threshold, matching by exact signature first; otherwise it starts a new
// pattern. Ties break by first-seen order, never map iteration order.
func clusterWithIndex(records []models.FailureRecord, idx *EmbeddingIndex, opts ClusterOptions) (*ClusterResult, error) {
	result := &ClusterResult{TotalFailures: len(records)}
	if len(records) == 0 {
		return result, nil
	}

	var accs []*accumulator
	bySignature := make(map[string]int)

	for i, record := range records {
		features := ExtractFeatures(record, opts.CategoryOverrides...)
		sig := ComputeSignature(features)

		if j, ok := bySignature[sig]; ok {
			accs[j].members = append(accs[j].members, i)
			continue
		}

		assigned := false
		for _, acc := range accs {
			score, err := similarityScore(idx, opts.Method, features, acc.representative)
			if err != nil {
				return nil, err
			}
			if score > opts.SimilarityThreshold {
				acc.members = append(acc.members, i)
				assigned = true
				break
			}
		}
		if !assigned {
			accs = append(accs, &accumulator{
				representative: features,
				signature:      sig,
				members:        []int{i},
				firstSeen:      i,
			})
			bySignature[sig] = len(accs) - 1
		}
	}

	// Drop accumulators below the frequency floor; their members are
	// counted but not surfaced.
	var kept []*accumulator
	for _, acc := range accs {
		if len(acc.members) >= opts.MinFrequency {
			kept = append(kept, acc)
		} else {
			result.UnclusteredCount += len(acc.members)
		}
	}

	// Cap at MaxPatterns, keeping the highest-frequency patterns. The sort
	// is stable over first-seen order so equal frequencies keep their
	// original ordering.
	if opts.MaxPatterns > 0 && len(kept) > opts.MaxPatterns {
		sort.SliceStable(kept, func(a, b int) bool {
			if len(kept[a].members) != len(kept[b].members) {
				return len(kept[a].members) > len(kept[b].members)
			}
			return kept[a].firstSeen < kept[b].firstSeen
		})
		for _, acc := range kept[opts.MaxPatterns:] {
			result.UnclusteredCount += len(acc.members)
		}
		kept = kept[:opts.MaxPatterns]
	}

	for _, acc := range kept {
		pattern := buildPattern(acc, records, opts.MaxExamples)
		result.Patterns = append(result.Patterns, pattern)
		result.Members = append(result.Members, acc.members)
	}
	return result, nil
}

func similarityScore(idx *EmbeddingIndex, method SimilarityMethod, a, b models.FailureFeatures) (float64, error) {
	if method == SimilarityEmbedding {
		return EmbeddingSimilarity(idx, a, b)
	}
	return TokenSimilarity(a, b), nil
}

// maxPatternNameLen bounds the human-readable pattern name.
const maxPatternNameLen = 80

// confidenceSaturation: confidence saturates at 1.0 once a pattern has this
// many members.
const confidenceSaturation = 10.0

func buildPattern(acc *accumulator, records []models.FailureRecord, maxExamples int) *models.FailurePattern {
	p := &models.FailurePattern{
		Signature:         acc.signature,
		NormalizedMessage: models.StrVal(acc.representative.NormalizedMessage),
		Category:          acc.representative.Category,
		Frequency:         len(acc.members),
	}

	componentSeen := make(map[string]struct{})
	toolSeen := make(map[string]struct{})
	spanTypeSeen := make(map[string]struct{})
	for _, i := range acc.members {
		r := records[i]
		if r.ComponentType != nil {
			if _, ok := componentSeen[*r.ComponentType]; !ok {
				componentSeen[*r.ComponentType] = struct{}{}
				p.ComponentTypes = append(p.ComponentTypes, *r.ComponentType)
			}
		}
		if r.ToolName != nil {
			if _, ok := toolSeen[*r.ToolName]; !ok {
				toolSeen[*r.ToolName] = struct{}{}
				p.ToolNames = append(p.ToolNames, *r.ToolName)
			}
		}
		if _, ok := spanTypeSeen[r.SpanType]; !ok {
			spanTypeSeen[r.SpanType] = struct{}{}
			p.SpanTypes = append(p.SpanTypes, r.SpanType)
		}

		if p.FirstSeen.IsZero() || r.Timestamp.Before(p.FirstSeen) {
			p.FirstSeen = r.Timestamp
		}
		if r.Timestamp.After(p.LastSeen) {
			p.LastSeen = r.Timestamp
		}
		if len(p.ExampleSpanIDs) < maxExamples {
			p.ExampleSpanIDs = append(p.ExampleSpanIDs, r.SpanID)
		}
	}

	p.Confidence = float64(p.Frequency) / confidenceSaturation
	if p.Confidence > 1 {
		p.Confidence = 1
	}
	p.Name = patternName(p)
	return p
}

func patternName(p *models.FailurePattern) string {
	msg := p.NormalizedMessage
	if msg == "" {
		msg = "no error message"
	}
	name := fmt.Sprintf("%s: %s", p.Category, msg)
	if len(name) > maxPatternNameLen {
		cut := maxPatternNameLen - 3
		// Back off to a rune boundary so the name stays valid UTF-8.
		for cut > 0 && !utf8.RuneStart(name[cut]) {
			cut--
		}
		name = name[:cut] + "..."
	}
	return name
}

package correlation

import (
	"math"
	"sort"
	"time"

	"github.com/agentlens/agentlens-core/internal/models"
)

// temporalCorrelationWindow is the average first-occurrence gap below which
// two co-occurring patterns are tagged temporal rather than coincidental.
const temporalCorrelationWindow = 5 * time.Minute

// PhiCoefficient computes the correlation of two binary variables from the
// 2x2 contingency table counts: n11 traces with both patterns, n10 with only
// the first, n01 with only the second, n00 with neither. The result lies in
// [-1,1]; a zero marginal yields 0.
func PhiCoefficient(n11, n10, n01, n00 int) float64 {
	a, b, c, d := float64(n11), float64(n10), float64(n01), float64(n00)
	denom := math.Sqrt((a + b) * (c + d) * (a + c) * (b + d))
	if denom == 0 {
		return 0
	}
	return (a*d - b*c) / denom
}

// patternTraces carries the per-trace earliest occurrence of one pattern,
// kept alongside the pattern during an analysis call for correlation math.
type patternTraces struct {
	set   map[string]struct{}
	first map[string]time.Time
}

// computeCorrelations builds pairwise pattern correlations from trace
// membership. Only pairs at or above minStrength survive; the result is
// sorted by strength descending with ties kept in pattern order so the
// output is deterministic.
func computeCorrelations(cps []*models.CorrelatedPattern, traces []patternTraces, totalTraces int, minStrength float64) []models.PatternCorrelation {
	var out []models.PatternCorrelation

	for i := 0; i < len(cps); i++ {
		for j := i + 1; j < len(cps); j++ {
			co := 0
			var deltaSum time.Duration
			for traceID, tA := range traces[i].first {
				tB, ok := traces[j].first[traceID]
				if !ok {
					continue
				}
				co++
				delta := tA.Sub(tB)
				if delta < 0 {
					delta = -delta
				}
				deltaSum += delta
			}

			countA := len(traces[i].set)
			countB := len(traces[j].set)
			n11 := co
			n10 := countA - co
			n01 := countB - co
			n00 := totalTraces - countA - countB + co
			if n00 < 0 {
				n00 = 0
			}

			strength := math.Abs(PhiCoefficient(n11, n10, n01, n00))
			if strength < minStrength {
				continue
			}

			corr := models.PatternCorrelation{
				PatternA:          cps[i].Signature,
				PatternB:          cps[j].Signature,
				Strength:          strength,
				CoOccurrenceCount: co,
				PatternACount:     countA,
				PatternBCount:     countB,
				Type:              models.CorrelationCoincidental,
			}
			if co > 0 {
				avg := deltaSum / time.Duration(co)
				corr.AvgTimeDelta = &avg
				if avg <= temporalCorrelationWindow {
					corr.Type = models.CorrelationTemporal
				}
			}
			out = append(out, corr)

			cps[i].Correlations[cps[j].Signature] = strength
			cps[j].Correlations[cps[i].Signature] = strength
		}
	}

	sort.SliceStable(out, func(a, b int) bool {
		return out[a].Strength > out[b].Strength
	})
	return out
}

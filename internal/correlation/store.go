package correlation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/agentlens/agentlens-core/internal/models"
	"github.com/agentlens/agentlens-core/internal/monitoring"
)

// Store is the analytical-store collaborator. The engine issues exactly
// these logical queries; the storage engine behind them is queried, never
// reimplemented here.
type Store interface {
	// QueryFailedSpans returns every failed span for a project within the
	// range, optionally filtered by component type.
	QueryFailedSpans(ctx context.Context, projectID string, tr models.TimeRange, componentFilter *string) ([]models.FailureRecord, error)

	// QueryTraceCounts returns total and error trace counts for the range.
	QueryTraceCounts(ctx context.Context, projectID string, tr models.TimeRange) (models.TraceCounts, error)

	// QueryComponentStats returns per-component totals and average
	// durations split by outcome.
	QueryComponentStats(ctx context.Context, projectID string, tr models.TimeRange) ([]models.ComponentStats, error)

	// QueryComponentErrorMessages returns per-component error message
	// counts for top-category derivation.
	QueryComponentErrorMessages(ctx context.Context, projectID string, tr models.TimeRange) ([]models.ComponentErrorCount, error)

	// QueryComponentStatsSplit returns the per-component aggregate computed
	// separately over the two halves of the range, for trend detection.
	QueryComponentStatsSplit(ctx context.Context, projectID string, tr models.TimeRange) ([]models.ComponentStatsSplit, error)
}

// classifyStoreError wraps a raw store failure into the typed taxonomy by
// inspecting the error for timeout and connection markers. Classification
// never retries; retries are the caller's responsibility.
func classifyStoreError(op string, err error) error {
	if err == nil {
		return nil
	}
	var ee *models.EngineError
	if errors.As(err, &ee) {
		return err // already classified by a lower layer
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return models.NewEngineError(models.ErrCodeQueryTimeout, op, err)
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "timeout") ||
		strings.Contains(msg, "timed out") ||
		strings.Contains(msg, "deadline exceeded") ||
		strings.Contains(msg, "max_execution_time"):
		return models.NewEngineError(models.ErrCodeQueryTimeout, op, err)
	case strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "broken pipe") ||
		strings.Contains(msg, "no such host") ||
		strings.Contains(msg, "unreachable") ||
		strings.Contains(msg, "dial tcp") ||
		strings.Contains(msg, "eof"):
		return models.NewEngineError(models.ErrCodeConnectionError, op, err)
	default:
		return models.NewEngineError(models.ErrCodeQueryFailed, op, err)
	}
}

// cachedStore wraps a Store with the bounded TTL query cache and metrics.
// Cache keys combine query shape, project, resolved window, and filters, so
// partially-overlapping queries never share entries.
type cachedStore struct {
	store Store
	cache *QueryCache
}

func newCachedStore(store Store, cache *QueryCache) *cachedStore {
	return &cachedStore{store: store, cache: cache}
}

func cacheKey(query, projectID string, tr models.TimeRange, filters ...string) string {
	var b strings.Builder
	b.WriteString(query)
	b.WriteByte('|')
	b.WriteString(projectID)
	b.WriteByte('|')
	b.WriteString(fmt.Sprintf("%d|%d", tr.Start.UnixMilli(), tr.End.UnixMilli()))
	for _, f := range filters {
		b.WriteByte('|')
		b.WriteString(f)
	}
	return b.String()
}

func (s *cachedStore) failedSpans(ctx context.Context, projectID string, tr models.TimeRange, componentFilter *string) ([]models.FailureRecord, error) {
	key := cacheKey("failed_spans", projectID, tr, models.StrVal(componentFilter))
	if s.cache != nil {
		if v, ok := s.cache.Get(key); ok {
			return v.([]models.FailureRecord), nil
		}
	}
	start := time.Now()
	rows, err := s.store.QueryFailedSpans(ctx, projectID, tr, componentFilter)
	monitoring.RecordStoreQuery("failed_spans", time.Since(start), err == nil)
	if err != nil {
		return nil, classifyStoreError("query failed spans", err)
	}
	if s.cache != nil {
		s.cache.Set(key, rows)
	}
	return rows, nil
}

func (s *cachedStore) traceCounts(ctx context.Context, projectID string, tr models.TimeRange) (models.TraceCounts, error) {
	key := cacheKey("trace_counts", projectID, tr)
	if s.cache != nil {
		if v, ok := s.cache.Get(key); ok {
			return v.(models.TraceCounts), nil
		}
	}
	start := time.Now()
	counts, err := s.store.QueryTraceCounts(ctx, projectID, tr)
	monitoring.RecordStoreQuery("trace_counts", time.Since(start), err == nil)
	if err != nil {
		return models.TraceCounts{}, classifyStoreError("query trace counts", err)
	}
	if s.cache != nil {
		s.cache.Set(key, counts)
	}
	return counts, nil
}

func (s *cachedStore) componentStats(ctx context.Context, projectID string, tr models.TimeRange) ([]models.ComponentStats, error) {
	key := cacheKey("component_stats", projectID, tr)
	if s.cache != nil {
		if v, ok := s.cache.Get(key); ok {
			return v.([]models.ComponentStats), nil
		}
	}
	start := time.Now()
	stats, err := s.store.QueryComponentStats(ctx, projectID, tr)
	monitoring.RecordStoreQuery("component_stats", time.Since(start), err == nil)
	if err != nil {
		return nil, classifyStoreError("query component stats", err)
	}
	if s.cache != nil {
		s.cache.Set(key, stats)
	}
	return stats, nil
}

func (s *cachedStore) componentErrorMessages(ctx context.Context, projectID string, tr models.TimeRange) ([]models.ComponentErrorCount, error) {
	key := cacheKey("component_errors", projectID, tr)
	if s.cache != nil {
		if v, ok := s.cache.Get(key); ok {
			return v.([]models.ComponentErrorCount), nil
		}
	}
	start := time.Now()
	rows, err := s.store.QueryComponentErrorMessages(ctx, projectID, tr)
	monitoring.RecordStoreQuery("component_errors", time.Since(start), err == nil)
	if err != nil {
		return nil, classifyStoreError("query component error messages", err)
	}
	if s.cache != nil {
		s.cache.Set(key, rows)
	}
	return rows, nil
}

func (s *cachedStore) componentStatsSplit(ctx context.Context, projectID string, tr models.TimeRange) ([]models.ComponentStatsSplit, error) {
	key := cacheKey("component_stats_split", projectID, tr)
	if s.cache != nil {
		if v, ok := s.cache.Get(key); ok {
			return v.([]models.ComponentStatsSplit), nil
		}
	}
	start := time.Now()
	rows, err := s.store.QueryComponentStatsSplit(ctx, projectID, tr)
	monitoring.RecordStoreQuery("component_stats_split", time.Since(start), err == nil)
	if err != nil {
		return nil, classifyStoreError("query component stats split", err)
	}
	if s.cache != nil {
		s.cache.Set(key, rows)
	}
	return rows, nil
}

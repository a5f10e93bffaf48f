package clickhouse

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github.com/agentlens/agentlens-core/internal/models"
	"github.com/agentlens/agentlens-core/internal/tracing"
	"github.com/agentlens/agentlens-core/pkg/logger"
)

const (
	defaultSpansTable   = "agent_spans"
	defaultQueryTimeout = 30 * time.Second
	maxErrorMessageRows = 1000
	statusError         = "error"
)

// StoreConfig tunes query behavior; connection parameters live in
// ConnectionConfig.
type StoreConfig struct {
	// Table is the span table name. Default "agent_spans".
	Table string
	// QueryTimeout bounds each query, enforced both client-side and via
	// the ClickHouse max_execution_time setting.
	QueryTimeout time.Duration
}

// Store reads span aggregates from ClickHouse. It implements
// correlation.Store over the agent span table.
type Store struct {
	conn   driver.Conn
	table  string
	qt     time.Duration
	logger logger.Logger
}

// NewStore wraps an established connection.
func NewStore(conn driver.Conn, cfg StoreConfig, log logger.Logger) *Store {
	if cfg.Table == "" {
		cfg.Table = defaultSpansTable
	}
	if cfg.QueryTimeout <= 0 {
		cfg.QueryTimeout = defaultQueryTimeout
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Store{conn: conn, table: cfg.Table, qt: cfg.QueryTimeout, logger: log}
}

// Close releases the underlying connection pool.
func (s *Store) Close() error { return s.conn.Close() }

// queryContext derives a context bounded by the query timeout and carries
// the matching max_execution_time so ClickHouse kills the query server-side
// too.
func (s *Store) queryContext(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx = clickhouse.Context(ctx, clickhouse.WithSettings(clickhouse.Settings{
		"max_execution_time": int(s.qt.Seconds()),
	}))
	return context.WithTimeout(ctx, s.qt)
}

// QueryFailedSpans returns every errored span in the range, oldest first.
func (s *Store) QueryFailedSpans(ctx context.Context, projectID string, tr models.TimeRange, componentFilter *string) ([]models.FailureRecord, error) {
	ctx, span := tracing.StartQuerySpan(ctx, "failed_spans", projectID)
	defer span.End()
	ctx, cancel := s.queryContext(ctx)
	defer cancel()

	query := fmt.Sprintf(`
		SELECT
			trace_id, span_id, span_name, span_type,
			component_type, tool_name, status_message,
			timestamp, duration_ms, model, attributes
		FROM %s
		WHERE project_id = ? AND status = ? AND timestamp >= ? AND timestamp < ?`, s.table)
	args := []interface{}{projectID, statusError, tr.Start, tr.End}
	if componentFilter != nil {
		query += " AND component_type = ?"
		args = append(args, *componentFilter)
	}
	query += " ORDER BY timestamp, trace_id, span_id"

	start := time.Now()
	rows, err := s.conn.Query(ctx, query, args...)
	if err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}
	defer rows.Close()

	var records []models.FailureRecord
	for rows.Next() {
		var (
			r          models.FailureRecord
			durationMs float64
		)
		if err := rows.Scan(
			&r.TraceID, &r.SpanID, &r.SpanName, &r.SpanType,
			&r.ComponentType, &r.ToolName, &r.StatusMessage,
			&r.Timestamp, &durationMs, &r.Model, &r.Attributes,
		); err != nil {
			tracing.RecordError(span, err)
			return nil, err
		}
		r.Duration = time.Duration(durationMs * float64(time.Millisecond))
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}

	tracing.RecordQueryMetrics(span, time.Since(start), int64(len(records)), true)
	s.logger.Debug("Queried failed spans",
		"project_id", projectID,
		"rows", len(records),
		"duration_ms", time.Since(start).Milliseconds())
	return records, nil
}

// QueryTraceCounts returns distinct total and errored trace counts.
func (s *Store) QueryTraceCounts(ctx context.Context, projectID string, tr models.TimeRange) (models.TraceCounts, error) {
	ctx, span := tracing.StartQuerySpan(ctx, "trace_counts", projectID)
	defer span.End()
	ctx, cancel := s.queryContext(ctx)
	defer cancel()

	query := fmt.Sprintf(`
		SELECT
			uniqExact(trace_id) AS total_traces,
			uniqExactIf(trace_id, status = ?) AS error_traces
		FROM %s
		WHERE project_id = ? AND timestamp >= ? AND timestamp < ?`, s.table)

	var total, errored uint64
	row := s.conn.QueryRow(ctx, query, statusError, projectID, tr.Start, tr.End)
	if err := row.Scan(&total, &errored); err != nil {
		tracing.RecordError(span, err)
		return models.TraceCounts{}, err
	}
	return models.TraceCounts{TotalTraces: int(total), ErrorTraces: int(errored)}, nil
}

// QueryComponentStats returns per-component span totals and average
// durations split by outcome. Spans without a component type are excluded.
func (s *Store) QueryComponentStats(ctx context.Context, projectID string, tr models.TimeRange) ([]models.ComponentStats, error) {
	ctx, span := tracing.StartQuerySpan(ctx, "component_stats", projectID)
	defer span.End()
	ctx, cancel := s.queryContext(ctx)
	defer cancel()

	query := fmt.Sprintf(`
		SELECT
			ifNull(component_type, '') AS component,
			count() AS total_spans,
			countIf(status = ?) AS error_count,
			avg(duration_ms) AS avg_duration_ms,
			avgIf(duration_ms, status = ?) AS avg_error_duration_ms
		FROM %s
		WHERE project_id = ? AND timestamp >= ? AND timestamp < ?
			AND component_type IS NOT NULL
		GROUP BY component
		ORDER BY component`, s.table)

	rows, err := s.conn.Query(ctx, query, statusError, statusError, projectID, tr.Start, tr.End)
	if err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}
	defer rows.Close()

	var stats []models.ComponentStats
	for rows.Next() {
		var (
			cs            models.ComponentStats
			total, errCnt uint64
		)
		if err := rows.Scan(&cs.ComponentType, &total, &errCnt, &cs.AvgDurationMs, &cs.AvgErrorDurationMs); err != nil {
			tracing.RecordError(span, err)
			return nil, err
		}
		cs.TotalSpans = int(total)
		cs.ErrorCount = int(errCnt)
		// avgIf over zero rows yields NaN.
		if math.IsNaN(cs.AvgErrorDurationMs) {
			cs.AvgErrorDurationMs = 0
		}
		stats = append(stats, cs)
	}
	if err := rows.Err(); err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}
	return stats, nil
}

// QueryComponentErrorMessages returns distinct (component, status message)
// counts for errored spans, most frequent first, bounded to keep the
// categorization pass cheap.
func (s *Store) QueryComponentErrorMessages(ctx context.Context, projectID string, tr models.TimeRange) ([]models.ComponentErrorCount, error) {
	ctx, span := tracing.StartQuerySpan(ctx, "component_errors", projectID)
	defer span.End()
	ctx, cancel := s.queryContext(ctx)
	defer cancel()

	query := fmt.Sprintf(`
		SELECT
			ifNull(component_type, '') AS component,
			ifNull(status_message, '') AS status_message,
			count() AS occurrences
		FROM %s
		WHERE project_id = ? AND status = ? AND timestamp >= ? AND timestamp < ?
			AND component_type IS NOT NULL AND status_message IS NOT NULL
		GROUP BY component, status_message
		ORDER BY occurrences DESC, component, status_message
		LIMIT ?`, s.table)

	rows, err := s.conn.Query(ctx, query, projectID, statusError, tr.Start, tr.End, maxErrorMessageRows)
	if err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}
	defer rows.Close()

	var out []models.ComponentErrorCount
	for rows.Next() {
		var (
			row models.ComponentErrorCount
			n   uint64
		)
		if err := rows.Scan(&row.ComponentType, &row.StatusMessage, &n); err != nil {
			tracing.RecordError(span, err)
			return nil, err
		}
		row.Count = int(n)
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}
	return out, nil
}

// QueryComponentStatsSplit computes the per-component aggregate over each
// half of the range in one pass, for trend detection.
func (s *Store) QueryComponentStatsSplit(ctx context.Context, projectID string, tr models.TimeRange) ([]models.ComponentStatsSplit, error) {
	ctx, span := tracing.StartQuerySpan(ctx, "component_stats_split", projectID)
	defer span.End()
	ctx, cancel := s.queryContext(ctx)
	defer cancel()

	mid := tr.Midpoint()
	query := fmt.Sprintf(`
		SELECT
			ifNull(component_type, '') AS component,
			countIf(timestamp < ?) AS first_total,
			countIf(status = ? AND timestamp < ?) AS first_errors,
			countIf(timestamp >= ?) AS second_total,
			countIf(status = ? AND timestamp >= ?) AS second_errors
		FROM %s
		WHERE project_id = ? AND timestamp >= ? AND timestamp < ?
			AND component_type IS NOT NULL
		GROUP BY component
		ORDER BY component`, s.table)

	rows, err := s.conn.Query(ctx, query,
		mid, statusError, mid, mid, statusError, mid,
		projectID, tr.Start, tr.End)
	if err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}
	defer rows.Close()

	var out []models.ComponentStatsSplit
	for rows.Next() {
		var (
			split          models.ComponentStatsSplit
			ft, fe, st, se uint64
		)
		if err := rows.Scan(&split.ComponentType, &ft, &fe, &st, &se); err != nil {
			tracing.RecordError(span, err)
			return nil, err
		}
		split.FirstHalf = models.HalfWindowStats{TotalSpans: int(ft), ErrorCount: int(fe)}
		split.SecondHalf = models.HalfWindowStats{TotalSpans: int(st), ErrorCount: int(se)}
		out = append(out, split)
	}
	if err := rows.Err(); err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}
	return out, nil
}

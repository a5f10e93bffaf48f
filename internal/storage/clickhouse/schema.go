package clickhouse

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

// spansTableDDL is the span table the engine reads from. Ingest is owned by
// the collector pipeline; the engine only needs the table to exist for
// local development and integration tests.
const spansTableDDL = `
	CREATE TABLE IF NOT EXISTS %s (
		project_id     String,
		trace_id       String,
		span_id        String,
		parent_span_id String DEFAULT '',
		span_name      String,
		span_type      LowCardinality(String),
		component_type Nullable(String),
		tool_name      Nullable(String),
		model          Nullable(String),
		status         LowCardinality(String),
		status_message Nullable(String),
		timestamp      DateTime64(3, 'UTC'),
		duration_ms    Float64,
		attributes     Map(String, String)
	)
	ENGINE = MergeTree()
	PARTITION BY toDate(timestamp)
	ORDER BY (project_id, timestamp, trace_id, span_id)
	TTL toDateTime(timestamp) + INTERVAL 30 DAY
`

// InitializeSchema creates the span table if it does not exist.
func InitializeSchema(ctx context.Context, conn driver.Conn, table string) error {
	if table == "" {
		table = defaultSpansTable
	}
	if err := conn.Exec(ctx, fmt.Sprintf(spansTableDDL, table)); err != nil {
		return fmt.Errorf("creating table %s: %w", table, err)
	}
	return nil
}

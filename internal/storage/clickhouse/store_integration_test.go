//go:build integration

package clickhouse

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentlens/agentlens-core/internal/models"
)

// Run with: go test -tags=integration ./internal/storage/clickhouse -v
// Requires a reachable ClickHouse; set AGENTLENS_CLICKHOUSE_ADDR to
// override localhost:9000.
func TestStoreIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	ctx := context.Background()
	config := DefaultConnectionConfig()
	if addr := os.Getenv("AGENTLENS_CLICKHOUSE_ADDR"); addr != "" {
		config.Addr = addr
	}

	conn, err := Connect(ctx, config)
	if err != nil {
		t.Skipf("ClickHouse not available: %v", err)
	}

	const table = "agent_spans_it"
	require.NoError(t, InitializeSchema(ctx, conn, table))
	t.Cleanup(func() {
		_ = conn.Exec(ctx, "DROP TABLE IF EXISTS "+table)
		_ = conn.Close()
	})

	store := NewStore(conn, StoreConfig{Table: table}, nil)
	base := time.Now().UTC().Truncate(time.Second).Add(-time.Hour)

	batch, err := conn.PrepareBatch(ctx, "INSERT INTO "+table)
	require.NoError(t, err)
	rows := []struct {
		traceID, spanID, status string
		component, message      *string
		at                      time.Time
	}{
		{"t1", "s1", "error", models.StrPtr("llm"), models.StrPtr("request timed out"), base},
		{"t1", "s2", "ok", models.StrPtr("tool"), nil, base.Add(time.Second)},
		{"t2", "s3", "error", models.StrPtr("llm"), models.StrPtr("request timed out"), base.Add(time.Minute)},
		{"t3", "s4", "ok", models.StrPtr("llm"), nil, base.Add(2 * time.Minute)},
	}
	for _, r := range rows {
		require.NoError(t, batch.Append(
			"proj-it", r.traceID, r.spanID, "",
			"span", "llm", r.component, nil, nil,
			r.status, r.message, r.at, 100.0,
			map[string]string{},
		))
	}
	require.NoError(t, batch.Send())

	tr := models.TimeRange{Start: base.Add(-time.Minute), End: base.Add(10 * time.Minute)}

	t.Run("QueryFailedSpans", func(t *testing.T) {
		failures, err := store.QueryFailedSpans(ctx, "proj-it", tr, nil)
		require.NoError(t, err)
		require.Len(t, failures, 2)
		assert.Equal(t, "t1", failures[0].TraceID)
		assert.Equal(t, "request timed out", models.StrVal(failures[0].StatusMessage))
	})

	t.Run("QueryTraceCounts", func(t *testing.T) {
		counts, err := store.QueryTraceCounts(ctx, "proj-it", tr)
		require.NoError(t, err)
		assert.Equal(t, 3, counts.TotalTraces)
		assert.Equal(t, 2, counts.ErrorTraces)
	})

	t.Run("QueryComponentStats", func(t *testing.T) {
		stats, err := store.QueryComponentStats(ctx, "proj-it", tr)
		require.NoError(t, err)
		require.Len(t, stats, 2)
		assert.Equal(t, "llm", stats[0].ComponentType)
		assert.Equal(t, 3, stats[0].TotalSpans)
		assert.Equal(t, 2, stats[0].ErrorCount)
	})

	t.Run("QueryComponentErrorMessages", func(t *testing.T) {
		msgs, err := store.QueryComponentErrorMessages(ctx, "proj-it", tr)
		require.NoError(t, err)
		require.Len(t, msgs, 1)
		assert.Equal(t, 2, msgs[0].Count)
	})

	t.Run("QueryComponentStatsSplit", func(t *testing.T) {
		split, err := store.QueryComponentStatsSplit(ctx, "proj-it", tr)
		require.NoError(t, err)
		require.NotEmpty(t, split)
	})
}

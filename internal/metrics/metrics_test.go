package metrics

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askerp/askerp-server/internal/store"
	"github.com/askerp/askerp-server/internal/store/model"
	"github.com/askerp/askerp-server/internal/store/sqlite"
)

var testNow = time.Date(2026, time.August, 29, 12, 0, 0, 0, time.UTC)

func TestTokens(t *testing.T) {
	tokens := Tokens("04-01", testNow)

	assert.Equal(t, "2026-08-29", tokens["{today}"])
	assert.Equal(t, "2026-08-01", tokens["{month_start}"])
	assert.Equal(t, "2026-08-31", tokens["{month_end}"])
	assert.Equal(t, "2026-04-01", tokens["{fy_start}"])
	assert.Equal(t, "2027-03-31", tokens["{fy_end}"])
	assert.Equal(t, "2026-07-01", tokens["{last_month_start}"])
	assert.Equal(t, "2026-07-31", tokens["{last_month_end}"])
}

func TestReplaceTokens(t *testing.T) {
	tokens := Tokens("04-01", testNow)
	out := replaceTokens(`{"posting_date":"{today}"}`, tokens)
	assert.Equal(t, `{"posting_date":"2026-08-29"}`, out)
}

func newTestEngine(t *testing.T) (*Engine, store.Repository) {
	t.Helper()
	repo, err := sqlite.NewStorage(fmt.Sprintf("file:%s/metrics.db?mode=rwc&_busy_timeout=5000", t.TempDir()))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	e := NewEngine(repo)
	e.now = func() time.Time { return testNow }

	ctx := context.Background()
	for i, total := range []float64{100000, 50000, 25000} {
		require.NoError(t, repo.Business().Upsert(ctx, "Sales Invoice",
			fmt.Sprintf("SINV-%04d", i+1), map[string]interface{}{
				"customer":     "Acme Traders",
				"posting_date": "2026-08-29",
				"grand_total":  total,
				"docstatus":    1,
			}))
	}
	return e, repo
}

func nullStr(s string) sql.NullString { return sql.NullString{String: s, Valid: true} }

func TestRefreshAggregationMetric(t *testing.T) {
	e, repo := newTestEngine(t)
	ctx := context.Background()

	require.NoError(t, repo.Metrics().Save(ctx, &model.CachedMetric{
		MetricName:  "Today's revenue",
		Category:    "sales",
		QueryType:   QueryTypeAggregation,
		Doctype:     nullStr("Sales Invoice"),
		FieldName:   nullStr("grand_total"),
		Aggregation: nullStr("SUM"),
		FiltersJSON: nullStr(`{"posting_date":"{today}","docstatus":1}`),
		Active:      true,
	}))

	computed, errored := e.RefreshAll(ctx)
	assert.Equal(t, 1, computed)
	assert.Zero(t, errored)

	list, err := repo.Metrics().ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.InDelta(t, 175000, list[0].Value.Float64, 0.001)
	assert.Equal(t, "₹1.75 L", list[0].FormattedValue.String)
	assert.True(t, list[0].LastComputed.Valid)
	assert.False(t, list[0].LastError.Valid && list[0].LastError.String != "")
}

func TestRefreshSQLMetric(t *testing.T) {
	e, repo := newTestEngine(t)
	ctx := context.Background()

	require.NoError(t, repo.Metrics().Save(ctx, &model.CachedMetric{
		MetricName: "Invoice count today",
		Category:   "sales",
		QueryType:  QueryTypeSQL,
		SQLQuery:   nullStr(`SELECT COUNT(*) AS n FROM sales_invoices WHERE posting_date = '{today}'`),
		Active:     true,
	}))

	computed, errored := e.RefreshAll(ctx)
	assert.Equal(t, 1, computed)
	assert.Zero(t, errored)

	list, err := repo.Metrics().ListActive(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 3, list[0].Value.Float64, 0.001)
}

func TestRefreshRecordsErrors(t *testing.T) {
	e, repo := newTestEngine(t)
	ctx := context.Background()

	require.NoError(t, repo.Metrics().Save(ctx, &model.CachedMetric{
		MetricName: "Broken metric",
		Category:   "sales",
		QueryType:  QueryTypeSQL,
		SQLQuery:   nullStr(`DELETE FROM sales_invoices`),
		Active:     true,
	}))
	require.NoError(t, repo.Metrics().Save(ctx, &model.CachedMetric{
		MetricName:  "Working metric",
		Category:    "sales",
		QueryType:   QueryTypeAggregation,
		Doctype:     nullStr("Sales Invoice"),
		FieldName:   nullStr("grand_total"),
		Aggregation: nullStr("MAX"),
		Active:      true,
	}))

	computed, errored := e.RefreshAll(ctx)
	assert.Equal(t, 1, computed)
	assert.Equal(t, 1, errored)

	list, err := repo.Metrics().ListActive(ctx)
	require.NoError(t, err)
	for _, m := range list {
		switch m.MetricName {
		case "Broken metric":
			assert.Contains(t, m.LastError.String, "SELECT")
		case "Working metric":
			assert.InDelta(t, 100000, m.Value.Float64, 0.001)
		}
	}
}

func TestPromptLines(t *testing.T) {
	e, repo := newTestEngine(t)
	ctx := context.Background()

	require.NoError(t, repo.Metrics().Save(ctx, &model.CachedMetric{
		MetricName:  "MTD revenue",
		Category:    "sales",
		QueryType:   QueryTypeAggregation,
		Doctype:     nullStr("Sales Invoice"),
		FieldName:   nullStr("grand_total"),
		Aggregation: nullStr("SUM"),
		Active:      true,
	}))

	// Before a refresh there is nothing to include.
	lines, err := e.PromptLines(ctx, "sales")
	require.NoError(t, err)
	assert.Empty(t, lines)

	e.RefreshAll(ctx)
	lines, err = e.PromptLines(ctx, "sales")
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, "MTD revenue: ₹1.75 L", lines[0])
}

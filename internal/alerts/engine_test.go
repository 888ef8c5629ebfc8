package alerts

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askerp/askerp-server/internal/notify"
	"github.com/askerp/askerp-server/internal/store"
	"github.com/askerp/askerp-server/internal/store/model"
	"github.com/askerp/askerp-server/internal/store/sqlite"
)

func TestCondition(t *testing.T) {
	tests := []struct {
		value     float64
		operator  string
		threshold float64
		want      bool
	}{
		{150, ">", 100, true},
		{100, ">", 100, false},
		{50, "<", 100, true},
		{100, ">=", 100, true},
		{100, "<=", 100, true},
		{100.005, "=", 100, true},
		{100.02, "=", 100, false},
		{100.02, "!=", 100, true},
		{100.005, "!=", 100, false},
		{100, "~", 100, false}, // unknown operator never triggers
	}
	for _, tt := range tests {
		name := fmt.Sprintf("%v %s %v", tt.value, tt.operator, tt.threshold)
		assert.Equal(t, tt.want, Condition(tt.value, tt.operator, tt.threshold), name)
	}
}

func TestParseFilters(t *testing.T) {
	f := parseFilters(`{"status":"Overdue","company":"Acme"}`)
	assert.Equal(t, "Overdue", f["status"])
	assert.Equal(t, "Acme", f["company"])

	assert.Empty(t, parseFilters(""))
	assert.Empty(t, parseFilters("not json"))
}

func newTestRepo(t *testing.T) store.Repository {
	t.Helper()
	repo, err := sqlite.NewStorage(fmt.Sprintf("file:%s/alerts.db?mode=rwc&_busy_timeout=5000", t.TempDir()))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func seedInvoices(t *testing.T, repo store.Repository, totals ...float64) {
	t.Helper()
	ctx := context.Background()
	for i, total := range totals {
		err := repo.Business().Upsert(ctx, "Sales Invoice", fmt.Sprintf("SINV-%04d", i+1), map[string]interface{}{
			"customer":     "Acme Traders",
			"posting_date": "2026-08-28",
			"grand_total":  total,
			"docstatus":    1,
		})
		require.NoError(t, err)
	}
}

func TestEvaluateTriggersAndRecords(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	seedInvoices(t, repo, 60000, 55000)

	rule := &model.AlertRule{
		UserID:            "owner@example.com",
		AlertName:         "High daily sales",
		QueryDoctype:      "Sales Invoice",
		QueryField:        "grand_total",
		QueryAggregation:  "SUM",
		ThresholdOperator: ">",
		ThresholdValue:    100000,
		Frequency:         "daily",
	}
	require.NoError(t, repo.Alerts().Save(ctx, rule))

	engine := NewEngine(repo, notify.New(repo.Notifications(), ""))
	fired, err := engine.Evaluate(ctx, rule)
	require.NoError(t, err)
	assert.True(t, fired, "115000 > 100000 should trigger")

	// Trigger bookkeeping lands on the rule.
	saved, err := repo.Alerts().Get(ctx, rule.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, saved.TriggerCount)
	assert.True(t, saved.LastChecked.Valid)
	assert.InDelta(t, 115000, saved.LastValue.Float64, 0.001)
	assert.True(t, saved.LastTriggered.Valid)

	// The owner gets a notification and a usage log row.
	notifications, err := repo.Notifications().ListForUser(ctx, "owner@example.com", 10)
	require.NoError(t, err)
	require.Len(t, notifications, 1)
	assert.Equal(t, "Alert", notifications[0].Type)
	assert.Contains(t, notifications[0].Subject, "High daily sales")
}

func TestEvaluateBelowThreshold(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	seedInvoices(t, repo, 10000)

	rule := &model.AlertRule{
		UserID:            "owner@example.com",
		AlertName:         "High daily sales",
		QueryDoctype:      "Sales Invoice",
		QueryField:        "grand_total",
		ThresholdOperator: ">",
		ThresholdValue:    100000,
		Frequency:         "daily",
	}
	require.NoError(t, repo.Alerts().Save(ctx, rule))

	engine := NewEngine(repo, notify.New(repo.Notifications(), ""))
	fired, err := engine.Evaluate(ctx, rule)
	require.NoError(t, err)
	assert.False(t, fired)

	saved, err := repo.Alerts().Get(ctx, rule.ID)
	require.NoError(t, err)
	assert.Zero(t, saved.TriggerCount)
	assert.True(t, saved.LastChecked.Valid, "last_checked is stamped even without a trigger")
}

func TestCheckAlertsSkipsBrokenRules(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	seedInvoices(t, repo, 250000)

	good := &model.AlertRule{
		UserID: "owner@example.com", AlertName: "Sales spike",
		QueryDoctype: "Sales Invoice", QueryField: "grand_total",
		ThresholdOperator: ">", ThresholdValue: 200000, Frequency: "hourly",
	}
	require.NoError(t, repo.Alerts().Save(ctx, good))

	// References a field outside the doctype whitelist: evaluation errors.
	broken := &model.AlertRule{
		UserID: "owner@example.com", AlertName: "Broken rule",
		QueryDoctype: "Sales Invoice", QueryField: "no_such_field",
		ThresholdOperator: ">", ThresholdValue: 1, Frequency: "hourly",
	}
	require.NoError(t, repo.Alerts().Save(ctx, broken))

	engine := NewEngine(repo, notify.New(repo.Notifications(), ""))
	evaluated, triggered := engine.CheckAlerts(ctx, "hourly")
	assert.Equal(t, 2, evaluated)
	assert.Equal(t, 1, triggered, "the good rule still fires")
}

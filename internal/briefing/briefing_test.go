package briefing

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askerp/askerp-server/internal/notify"
	"github.com/askerp/askerp-server/internal/store"
	"github.com/askerp/askerp-server/internal/store/model"
	"github.com/askerp/askerp-server/internal/store/sqlite"
)

var testNow = time.Date(2026, time.August, 29, 7, 30, 0, 0, time.UTC)

func newTestGenerator(t *testing.T) (*Generator, store.Repository) {
	t.Helper()
	repo, err := sqlite.NewStorage(fmt.Sprintf("file:%s/briefing.db?mode=rwc&_busy_timeout=5000", t.TempDir()))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	g := NewGenerator(repo, notify.New(repo.Notifications(), ""))
	g.now = func() time.Time { return testNow }
	return g, repo
}

func seedYesterday(t *testing.T, repo store.Repository) {
	t.Helper()
	ctx := context.Background()

	for i, total := range []float64{120000, 80000} {
		require.NoError(t, repo.Business().Upsert(ctx, "Sales Invoice",
			fmt.Sprintf("SINV-%04d", i+1), map[string]interface{}{
				"customer":           "Acme Traders",
				"posting_date":       "2026-08-28",
				"grand_total":        total,
				"outstanding_amount": total / 2,
				"docstatus":          1,
			}))
	}

	require.NoError(t, repo.Business().Upsert(ctx, "Payment Entry", "PE-0001", map[string]interface{}{
		"party":        "Acme Traders",
		"posting_date": "2026-08-28",
		"paid_amount":  50000,
		"payment_type": "Receive",
		"docstatus":    1,
	}))

	require.NoError(t, repo.Business().Upsert(ctx, "Sales Order", "SO-0001", map[string]interface{}{
		"customer":       "Acme Traders",
		"posting_date":   "2026-08-28",
		"grand_total":    30000,
		"workflow_state": "Pending for Approval",
		"docstatus":      0,
	}))
}

func TestBuildSections(t *testing.T) {
	g, repo := newTestGenerator(t)
	seedYesterday(t, repo)

	text, err := g.Build(context.Background())
	require.NoError(t, err)

	assert.Contains(t, text, "**Yesterday's Sales:** 2 invoices totaling ₹2.00 L")
	assert.Contains(t, text, "**Collections:** 1 payments, ₹50,000 received")
	assert.Contains(t, text, "**Total Outstanding Receivables:** ₹1.00 L")
	assert.Contains(t, text, "**Pending Approvals:** 1 (1 Sales Orders)")
}

func TestBuildIncludesOvernightAlerts(t *testing.T) {
	g, repo := newTestGenerator(t)
	seedYesterday(t, repo)

	require.NoError(t, repo.Usage().Log(context.Background(), &model.UsageLog{
		UserID:    "owner@example.com",
		Question:  "High receivables: current value is ₹5.00 L (> ₹3.00 L threshold)",
		Model:     "alert-engine",
		CreatedAt: testNow.Add(-6 * time.Hour),
	}))

	text, err := g.Build(context.Background())
	require.NoError(t, err)
	assert.Contains(t, text, "**Alerts Triggered:**")
	assert.Contains(t, text, "- High receivables")
}

func TestRunDeliversToManagementOnly(t *testing.T) {
	g, repo := newTestGenerator(t)
	seedYesterday(t, repo)
	ctx := context.Background()

	manager := &model.User{
		ID: "manager@example.com", FullName: "Ravi Kumar",
		Roles: `["Sales Manager"]`, AllowChat: true, Enabled: true,
	}
	fieldStaff := &model.User{
		ID: "staff@example.com", FullName: "Field Staff",
		Roles: `["Sales User"]`, AllowChat: true, Enabled: true,
	}
	noChat := &model.User{
		ID: "nochat@example.com", FullName: "No Chat",
		Roles: `["Accounts Manager"]`, AllowChat: false, Enabled: true,
	}
	for _, u := range []*model.User{manager, fieldStaff, noChat} {
		require.NoError(t, repo.Users().Create(ctx, u))
	}

	generated := g.Run(ctx)
	assert.Equal(t, 1, generated)

	ns, err := repo.Notifications().ListForUser(ctx, "manager@example.com", 10)
	require.NoError(t, err)
	require.Len(t, ns, 1)
	assert.Equal(t, "Briefing", ns[0].Type)
	assert.Contains(t, ns[0].Body, "Good morning, Ravi!")

	ns, err = repo.Notifications().ListForUser(ctx, "staff@example.com", 10)
	require.NoError(t, err)
	assert.Empty(t, ns)
}

func TestBuildEmptyWhenNoData(t *testing.T) {
	g, _ := newTestGenerator(t)
	text, err := g.Build(context.Background())
	require.NoError(t, err)
	// Count sections still render with zero totals.
	assert.Contains(t, text, "0 invoices")
	assert.NotContains(t, text, "Pending Approvals")
	assert.NotContains(t, text, "Alerts Triggered")
}

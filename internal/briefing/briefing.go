// Package briefing generates the daily morning digest for management
// users: yesterday's sales and collections, outstanding receivables,
// pending approvals and overnight alert triggers, all from direct SQL
// against the mirrored business tables.
package briefing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/askerp/askerp-server/internal/alerts"
	"github.com/askerp/askerp-server/internal/format"
	"github.com/askerp/askerp-server/internal/notify"
	"github.com/askerp/askerp-server/internal/platform/logger"
	"github.com/askerp/askerp-server/internal/prompt"
	"github.com/askerp/askerp-server/internal/store"
	"github.com/askerp/askerp-server/internal/store/model"
)

// UsageModelName tags briefing rows in the usage log so the chat UI can
// surface them.
const UsageModelName = "briefing"

type Generator struct {
	repo     store.Repository
	notifier *notify.Notifier
	now      func() time.Time
}

func NewGenerator(repo store.Repository, notifier *notify.Notifier) *Generator {
	return &Generator{repo: repo, notifier: notifier, now: time.Now}
}

// Run builds and delivers a briefing for every eligible user. A failure
// for one user is logged and the rest still get theirs. Returns how many
// briefings were delivered.
func (g *Generator) Run(ctx context.Context) int {
	users, err := g.recipients(ctx)
	if err != nil {
		logger.Error("briefing recipient lookup failed", zap.Error(err))
		return 0
	}
	if len(users) == 0 {
		return 0
	}

	generated := 0
	for i := range users {
		text, err := g.Build(ctx)
		if err != nil {
			logger.Error("briefing build failed", zap.String("user", users[i].ID), zap.Error(err))
			continue
		}
		if text == "" {
			continue
		}
		if err := g.deliver(ctx, &users[i], text); err != nil {
			logger.Error("briefing delivery failed", zap.String("user", users[i].ID), zap.Error(err))
			continue
		}
		generated++
	}

	logger.Info("morning briefing complete",
		zap.Int("generated", generated), zap.Int("recipients", len(users)))
	return generated
}

// recipients are enabled chat users holding a management or executive role.
func (g *Generator) recipients(ctx context.Context) ([]model.User, error) {
	users, err := g.repo.Users().List(ctx)
	if err != nil {
		return nil, err
	}
	settings, err := g.repo.Settings().Get(ctx)
	if err != nil {
		settings = nil
	}
	roleSets := prompt.RoleSetsFrom(settings)

	var out []model.User
	for _, u := range users {
		if !u.Enabled || !u.AllowChat {
			continue
		}
		if roleSets.TierFor(prompt.ParseRoles(u.Roles)) == prompt.TierField {
			continue
		}
		out = append(out, u)
	}
	return out, nil
}

// Build assembles the briefing sections. Each section is independent: a
// query failure drops that section, not the whole briefing. An empty
// string means there was nothing worth reporting.
func (g *Generator) Build(ctx context.Context) (string, error) {
	now := g.now()
	yesterday := format.ISODate(now.AddDate(0, 0, -1))
	business := g.repo.Business()

	var sections []string

	// Yesterday's sales.
	invoiceCount, err1 := business.Count(ctx, "Sales Invoice",
		map[string]interface{}{"posting_date": yesterday, "docstatus": 1})
	revenue, err2 := business.Aggregate(ctx, "Sales Invoice", "grand_total", "SUM",
		map[string]interface{}{"posting_date": yesterday, "docstatus": 1})
	if err1 == nil && err2 == nil {
		sections = append(sections, fmt.Sprintf("**Yesterday's Sales:** %d invoices totaling %s",
			invoiceCount, g.inr(ctx, revenue)))
	}

	// Collections yesterday.
	paymentCount, err1 := business.Count(ctx, "Payment Entry",
		map[string]interface{}{"posting_date": yesterday, "docstatus": 1, "payment_type": "Receive"})
	collected, err2 := business.Aggregate(ctx, "Payment Entry", "paid_amount", "SUM",
		map[string]interface{}{"posting_date": yesterday, "docstatus": 1, "payment_type": "Receive"})
	if err1 == nil && err2 == nil {
		sections = append(sections, fmt.Sprintf("**Collections:** %d payments, %s received",
			paymentCount, g.inr(ctx, collected)))
	}

	// Outstanding receivables across all open invoices.
	rows, err := business.Select(ctx,
		`SELECT COALESCE(SUM(outstanding_amount), 0) AS total
		 FROM sales_invoices WHERE outstanding_amount > 0 AND docstatus = 1`)
	if err == nil && len(rows) == 1 {
		if total, ok := toFloat(rows[0]["total"]); ok {
			sections = append(sections, "**Total Outstanding Receivables:** "+g.inr(ctx, total))
		}
	}

	// Pending approvals.
	if section := g.pendingApprovals(ctx); section != "" {
		sections = append(sections, section)
	}

	// Alerts triggered overnight.
	overnight, err := g.repo.Usage().RecentByModel(ctx, alerts.UsageModelName, now.AddDate(0, 0, -1), 5)
	if err == nil && len(overnight) > 0 {
		lines := make([]string, 0, len(overnight))
		for _, row := range overnight {
			lines = append(lines, "- "+row.Question)
		}
		sections = append(sections, "**Alerts Triggered:**\n"+strings.Join(lines, "\n"))
	}

	if len(sections) == 0 {
		return "", nil
	}
	return strings.Join(sections, "\n\n"), nil
}

func (g *Generator) pendingApprovals(ctx context.Context) string {
	type pending struct {
		doctype string
		label   string
	}
	checks := []pending{
		{"Sales Order", "Sales Orders"},
		{"Sales Invoice", "Sales Invoices"},
	}

	total := int64(0)
	var parts []string
	for _, c := range checks {
		n, err := g.repo.Business().Count(ctx, c.doctype, map[string]interface{}{
			"workflow_state": "Pending for Approval", "docstatus": 0,
		})
		if err != nil || n == 0 {
			continue
		}
		total += n
		parts = append(parts, fmt.Sprintf("%d %s", n, c.label))
	}
	if total == 0 {
		return ""
	}
	return fmt.Sprintf("**Pending Approvals:** %d (%s)", total, strings.Join(parts, ", "))
}

// deliver wraps the briefing with a greeting, logs it to the usage log
// and sends the notification.
func (g *Generator) deliver(ctx context.Context, user *model.User, body string) error {
	firstName := user.FullName
	if firstName == "" {
		firstName = user.ID
	}
	if idx := strings.IndexByte(firstName, ' '); idx > 0 {
		firstName = firstName[:idx]
	}

	now := g.now()
	text := fmt.Sprintf("Good morning, %s! Here's your business briefing for %s:\n\n%s\n\n*Ask me anything for deeper analysis on any of these metrics.*",
		firstName, now.Format("Monday, January 02"), body)

	usage := &model.UsageLog{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		SessionID: "briefing:" + format.ISODate(now),
		Question:  text,
		Model:     UsageModelName,
		CreatedAt: now,
	}
	if err := g.repo.Usage().Log(ctx, usage); err != nil {
		logger.Warn("briefing usage log failed", zap.String("user", user.ID), zap.Error(err))
	}

	return g.notifier.Send(ctx, notify.Message{
		ForUser: user.ID,
		Type:    "Briefing",
		Subject: "Your morning briefing for " + now.Format("January 02"),
		Body:    text,
	})
}

func (g *Generator) inr(ctx context.Context, value float64) string {
	profile, err := g.repo.Profile().Get(ctx)
	if err != nil || profile == nil {
		return format.Currency(value, format.CurrencySymbol("INR"), format.StyleIndian)
	}
	return format.Currency(value, format.CurrencySymbol(profile.Currency), format.StyleFromProfile(profile.NumberFormat))
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

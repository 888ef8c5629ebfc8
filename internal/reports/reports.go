// Package reports generates scheduled reports. A report document names a
// query and a frequency; the scheduler checks hourly and regenerates any
// report whose last run is older than its frequency window.
package reports

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/askerp/askerp-server/internal/notify"
	"github.com/askerp/askerp-server/internal/platform/logger"
	"github.com/askerp/askerp-server/internal/store"
	"github.com/askerp/askerp-server/internal/store/model"
	"github.com/askerp/askerp-server/internal/tools"
)

// Generator regenerates due reports and delivers them as notifications.
type Generator struct {
	repo     store.Repository
	runner   *tools.Runner
	notifier *notify.Notifier
	now      func() time.Time
}

func NewGenerator(repo store.Repository, runner *tools.Runner, notifier *notify.Notifier) *Generator {
	return &Generator{repo: repo, runner: runner, notifier: notifier, now: time.Now}
}

// RunDue checks every active report and generates the ones whose window
// has elapsed. One broken report never blocks the rest.
func (g *Generator) RunDue(ctx context.Context) int {
	reports, err := g.repo.Reports().ListActive(ctx)
	if err != nil {
		logger.Error("listing scheduled reports failed", zap.Error(err))
		return 0
	}

	generated := 0
	for i := range reports {
		report := &reports[i]
		if !g.due(report) {
			continue
		}
		if err := g.generate(ctx, report); err != nil {
			logger.Warn("report generation failed",
				zap.String("report", report.ReportName), zap.Error(err))
			continue
		}
		generated++
	}
	return generated
}

// due reports whether the frequency window has elapsed since the last
// generation. Never-generated reports are always due.
func (g *Generator) due(report *model.ScheduledReport) bool {
	if !report.LastGenerated.Valid {
		return true
	}
	return g.now().Sub(report.LastGenerated.Time) >= window(report.Frequency)
}

func window(frequency string) time.Duration {
	switch frequency {
	case "hourly":
		return time.Hour
	case "weekly":
		return 7 * 24 * time.Hour
	case "monthly":
		return 30 * 24 * time.Hour
	default: // daily
		return 24 * time.Hour
	}
}

func (g *Generator) generate(ctx context.Context, report *model.ScheduledReport) error {
	body, err := g.build(ctx, report)
	if err != nil {
		return err
	}

	msg := notify.Message{
		ForUser:      report.UserID,
		Type:         "Report",
		Subject:      report.ReportName,
		Body:         body,
		DocumentType: "scheduled_report",
		DocumentName: report.ID,
	}
	if err := g.notifier.Send(ctx, msg); err != nil {
		return err
	}
	return g.repo.Reports().RecordGenerated(ctx, report.ID)
}

// build renders the report body: the financial summary for the current
// period plus the report's own query line for context.
func (g *Generator) build(ctx context.Context, report *model.ScheduledReport) (string, error) {
	raw, err := g.runner.Execute(ctx, "get_financial_summary", tools.Input{}, report.UserID)
	if err != nil {
		return "", err
	}

	var summary struct {
		Error     string            `json:"error"`
		Formatted map[string]string `json:"formatted"`
		Period    struct {
			FromDate string `json:"from_date"`
			ToDate   string `json:"to_date"`
		} `json:"period"`
	}
	if err := json.Unmarshal(raw, &summary); err != nil {
		return "", err
	}
	if summary.Error != "" {
		return "", fmt.Errorf("summary query failed: %s", summary.Error)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "**%s**\n", report.ReportName)
	if report.ReportQuery != "" {
		fmt.Fprintf(&b, "_%s_\n", report.ReportQuery)
	}
	if summary.Period.FromDate != "" {
		fmt.Fprintf(&b, "Period: %s to %s\n\n", summary.Period.FromDate, summary.Period.ToDate)
	}

	labels := map[string]string{
		"total_revenue":    "Revenue",
		"total_receivable": "Outstanding Receivables",
		"total_purchases":  "Purchases",
		"total_payable":    "Outstanding Payables",
	}
	keys := make([]string, 0, len(summary.Formatted))
	for k := range summary.Formatted {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		label := labels[k]
		if label == "" {
			label = k
		}
		fmt.Fprintf(&b, "- %s: %s\n", label, summary.Formatted[k])
	}
	return b.String(), nil
}

package tools

import (
	"context"
	"time"

	"github.com/askerp/askerp-server/internal/format"
)

// metricFreshness is how old a pre-computed metric may be before the
// summary falls back to live queries.
const metricFreshness = 2 * time.Hour

// financialSummary builds the headline numbers for a period: revenue,
// receivables, purchases, payables, payment flows and a few derived
// ratios. Fresh pre-computed metrics short-circuit the live queries.
func (r *Runner) financialSummary(ctx context.Context, input Input) (map[string]any, error) {
	if summary := r.precomputedSummary(ctx); summary != nil {
		return summary, nil
	}

	now := r.now()
	fromDate := input.str("from_date")
	if fromDate == "" {
		start, _ := format.MonthBounds(now)
		fromDate = format.ISODate(start)
	}
	toDate := input.str("to_date")
	if toDate == "" {
		toDate = format.ISODate(now)
	}

	summary := map[string]any{
		"period": map[string]any{"from_date": fromDate, "to_date": toDate},
	}

	si, err := r.repo.Business().Select(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN posting_date BETWEEN ? AND ? THEN grand_total ELSE 0 END), 0) AS total_revenue,
			SUM(CASE WHEN posting_date BETWEEN ? AND ? THEN 1 ELSE 0 END) AS invoice_count,
			COALESCE(SUM(CASE WHEN outstanding_amount > 0 THEN outstanding_amount ELSE 0 END), 0) AS total_receivable
		FROM sales_invoices
		WHERE docstatus = 1`,
		fromDate, toDate, fromDate, toDate)
	if err != nil {
		return nil, err
	}
	var totalRevenue, totalReceivable float64
	if len(si) > 0 {
		totalRevenue = toFloat(si[0]["total_revenue"])
		totalReceivable = toFloat(si[0]["total_receivable"])
		summary["revenue"] = map[string]any{
			"total_revenue": totalRevenue,
			"invoice_count": toFloat(si[0]["invoice_count"]),
		}
		summary["receivables"] = map[string]any{"total_receivable": totalReceivable}
	}

	pi, err := r.repo.Business().Select(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN posting_date BETWEEN ? AND ? THEN grand_total ELSE 0 END), 0) AS total_purchases,
			SUM(CASE WHEN posting_date BETWEEN ? AND ? THEN 1 ELSE 0 END) AS purchase_count,
			COALESCE(SUM(CASE WHEN outstanding_amount > 0 THEN outstanding_amount ELSE 0 END), 0) AS total_payable
		FROM purchase_invoices
		WHERE docstatus = 1`,
		fromDate, toDate, fromDate, toDate)
	if err != nil {
		return nil, err
	}
	var totalPurchases, totalPayable float64
	if len(pi) > 0 {
		totalPurchases = toFloat(pi[0]["total_purchases"])
		totalPayable = toFloat(pi[0]["total_payable"])
		summary["purchases"] = map[string]any{
			"total_purchases": totalPurchases,
			"purchase_count":  toFloat(pi[0]["purchase_count"]),
		}
		summary["payables"] = map[string]any{"total_payable": totalPayable}
	}

	pe, err := r.repo.Business().Select(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN payment_type = 'Receive' THEN paid_amount ELSE 0 END), 0) AS total_collections,
			SUM(CASE WHEN payment_type = 'Receive' THEN 1 ELSE 0 END) AS collection_count,
			COALESCE(SUM(CASE WHEN payment_type = 'Pay' THEN paid_amount ELSE 0 END), 0) AS total_payments,
			SUM(CASE WHEN payment_type = 'Pay' THEN 1 ELSE 0 END) AS payment_count
		FROM payment_entries
		WHERE docstatus = 1 AND posting_date BETWEEN ? AND ?`,
		fromDate, toDate)
	if err != nil {
		return nil, err
	}
	var totalCollections float64
	if len(pe) > 0 {
		totalCollections = toFloat(pe[0]["total_collections"])
		summary["collections"] = map[string]any{
			"total_collections": totalCollections,
			"collection_count":  toFloat(pe[0]["collection_count"]),
		}
		summary["payments_made"] = map[string]any{
			"total_payments": toFloat(pe[0]["total_payments"]),
			"payment_count":  toFloat(pe[0]["payment_count"]),
		}
	}

	derived := map[string]any{
		"gross_profit":        totalRevenue - totalPurchases,
		"net_working_capital": totalReceivable - totalPayable,
	}
	if totalRevenue > 0 {
		derived["gross_margin_pct"] = round2((totalRevenue - totalPurchases) / totalRevenue * 100)
		derived["collection_efficiency_pct"] = round2(totalCollections / totalRevenue * 100)
	} else {
		derived["gross_margin_pct"] = float64(0)
		derived["collection_efficiency_pct"] = float64(0)
	}
	summary["derived"] = derived

	summary["formatted"] = map[string]any{
		"total_revenue":    r.currency(ctx, totalRevenue),
		"total_receivable": r.currency(ctx, totalReceivable),
		"total_purchases":  r.currency(ctx, totalPurchases),
		"total_payable":    r.currency(ctx, totalPayable),
	}
	return summary, nil
}

// precomputedSummary assembles a summary from cached metric documents
// when at least three of them are fresh. Any staleness or error falls
// back to nil so the live queries run.
func (r *Runner) precomputedSummary(ctx context.Context) map[string]any {
	metrics, err := r.repo.Metrics().ListActive(ctx)
	if err != nil {
		return nil
	}
	cutoff := r.now().Add(-metricFreshness)
	values := map[string]any{}
	for _, m := range metrics {
		if m.LastError.Valid && m.LastError.String != "" {
			continue
		}
		if !m.LastComputed.Valid || m.LastComputed.Time.Before(cutoff) {
			continue
		}
		values[m.MetricName] = map[string]any{
			"value":     m.Value.Float64,
			"formatted": m.FormattedValue.String,
			"category":  m.Category,
		}
	}
	if len(values) < 3 {
		return nil
	}
	return map[string]any{"from_precompute": true, "metrics": values}
}

func (r *Runner) currency(ctx context.Context, value float64) string {
	style, symbol := format.StyleIndian, "₹"
	if profile, err := r.repo.Profile().Get(ctx); err == nil && profile != nil {
		style = format.StyleFromProfile(profile.NumberFormat)
		symbol = format.CurrencySymbol(profile.Currency)
	}
	return format.Currency(value, symbol, style)
}

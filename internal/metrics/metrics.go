// Package metrics refreshes pre-computed business metrics on a schedule so
// prompt assembly and dashboards read stored values instead of running
// live SQL.
package metrics

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/askerp/askerp-server/internal/format"
	"github.com/askerp/askerp-server/internal/platform/logger"
	"github.com/askerp/askerp-server/internal/store"
	"github.com/askerp/askerp-server/internal/store/model"
)

// Metric query types.
const (
	QueryTypeSQL         = "SQL"
	QueryTypeAggregation = "Aggregation"
)

type Engine struct {
	repo store.Repository
	now  func() time.Time
}

func NewEngine(repo store.Repository) *Engine {
	return &Engine{repo: repo, now: time.Now}
}

// Tokens builds the dynamic date tokens metric definitions may embed in
// their SQL or filters: {today}, {month_start}, {month_end}, {fy_start},
// {fy_end}, {last_month_start}, {last_month_end}.
func Tokens(fyStart string, now time.Time) map[string]string {
	monthStart, monthEnd := format.MonthBounds(now)
	lastMonthStart, lastMonthEnd := format.LastMonthBounds(now)
	fy := format.FinancialYear(fyStart, now)

	return map[string]string{
		"{today}":            format.ISODate(now),
		"{month_start}":      format.ISODate(monthStart),
		"{month_end}":        format.ISODate(monthEnd),
		"{fy_start}":         format.ISODate(fy.Start),
		"{fy_end}":           format.ISODate(fy.End),
		"{last_month_start}": format.ISODate(lastMonthStart),
		"{last_month_end}":   format.ISODate(lastMonthEnd),
	}
}

func replaceTokens(text string, tokens map[string]string) string {
	for token, value := range tokens {
		text = strings.ReplaceAll(text, token, value)
	}
	return text
}

// RefreshAll recomputes every active metric. Each metric is independent:
// a failure is recorded on its row and the rest still refresh. Returns
// (computed, errored) counts.
func (e *Engine) RefreshAll(ctx context.Context) (int, int) {
	list, err := e.repo.Metrics().ListActive(ctx)
	if err != nil {
		logger.Error("metric listing failed", zap.Error(err))
		return 0, 0
	}
	if len(list) == 0 {
		return 0, 0
	}

	fyStart := ""
	if profile, err := e.repo.Profile().Get(ctx); err == nil && profile != nil {
		fyStart = profile.FinancialYearStart
	}
	tokens := Tokens(fyStart, e.now())

	computed, errored := 0, 0
	for i := range list {
		m := &list[i]
		start := e.now()
		value, err := e.compute(ctx, m, tokens)
		elapsed := time.Since(start).Milliseconds()

		if err != nil {
			errored++
			if rerr := e.repo.Metrics().RecordError(ctx, m.ID, err.Error()); rerr != nil {
				logger.Error("metric error recording failed", zap.String("metric", m.MetricName), zap.Error(rerr))
			}
			continue
		}

		formatted := e.formatValue(ctx, value)
		if err := e.repo.Metrics().RecordValue(ctx, m.ID, value, formatted, elapsed); err != nil {
			logger.Error("metric value recording failed", zap.String("metric", m.MetricName), zap.Error(err))
			errored++
			continue
		}
		computed++
	}

	logger.Info("metric refresh complete", zap.Int("computed", computed), zap.Int("errors", errored))
	return computed, errored
}

// compute evaluates one metric definition against the business tables.
func (e *Engine) compute(ctx context.Context, m *model.CachedMetric, tokens map[string]string) (float64, error) {
	switch m.QueryType {
	case QueryTypeSQL:
		return e.computeSQL(ctx, m, tokens)
	case QueryTypeAggregation:
		return e.computeAggregation(ctx, m, tokens)
	default:
		return 0, fmt.Errorf("unsupported query type %q", m.QueryType)
	}
}

func (e *Engine) computeSQL(ctx context.Context, m *model.CachedMetric, tokens map[string]string) (float64, error) {
	query := replaceTokens(strings.TrimSpace(m.SQLQuery.String), tokens)
	if query == "" || !strings.HasPrefix(strings.ToUpper(query), "SELECT") {
		return 0, fmt.Errorf("SQL metric must be a SELECT statement")
	}

	rows, err := e.repo.Business().Select(ctx, query)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}
	for _, v := range rows[0] {
		if f, ok := numeric(v); ok {
			return f, nil
		}
	}
	return 0, fmt.Errorf("query did not return a numeric value")
}

func (e *Engine) computeAggregation(ctx context.Context, m *model.CachedMetric, tokens map[string]string) (float64, error) {
	if !m.Doctype.Valid || !m.Aggregation.Valid {
		return 0, fmt.Errorf("aggregation metric requires doctype and aggregation function")
	}

	filters := map[string]interface{}{}
	if m.FiltersJSON.Valid && m.FiltersJSON.String != "" {
		raw := replaceTokens(m.FiltersJSON.String, tokens)
		if err := json.Unmarshal([]byte(raw), &filters); err != nil {
			return 0, fmt.Errorf("invalid filters JSON: %w", err)
		}
	}

	fn := strings.ToUpper(m.Aggregation.String)
	if fn == "COUNT" {
		n, err := e.repo.Business().Count(ctx, m.Doctype.String, filters)
		return float64(n), err
	}
	return e.repo.Business().Aggregate(ctx, m.Doctype.String, m.FieldName.String, fn, filters)
}

func (e *Engine) formatValue(ctx context.Context, value float64) string {
	profile, err := e.repo.Profile().Get(ctx)
	if err != nil || profile == nil {
		return format.Currency(value, format.CurrencySymbol("INR"), format.StyleIndian)
	}
	return format.Currency(value, format.CurrencySymbol(profile.Currency), format.StyleFromProfile(profile.NumberFormat))
}

// PromptLines renders the stored metrics of a category as "name: value"
// lines for inclusion in assembled context.
func (e *Engine) PromptLines(ctx context.Context, category string) ([]string, error) {
	var list []model.CachedMetric
	var err error
	if category == "" {
		list, err = e.repo.Metrics().ListActive(ctx)
	} else {
		list, err = e.repo.Metrics().ListByCategory(ctx, category)
	}
	if err != nil {
		return nil, err
	}

	var lines []string
	for _, m := range list {
		if !m.LastComputed.Valid || !m.Value.Valid {
			continue
		}
		formatted := m.FormattedValue.String
		if formatted == "" {
			formatted = fmt.Sprintf("%.2f", m.Value.Float64)
		}
		lines = append(lines, fmt.Sprintf("%s: %s", m.MetricName, formatted))
	}
	return lines, nil
}

func numeric(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

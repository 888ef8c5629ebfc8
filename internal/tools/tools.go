// Package tools implements the read-only analytical tools the assistant
// can call against the mirrored business tables. Every tool returns a
// JSON-serializable result map; query failures come back as {"error": ...}
// rather than hard errors so the model can recover in conversation.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/askerp/askerp-server/internal/alerts"
	"github.com/askerp/askerp-server/internal/cache"
	"github.com/askerp/askerp-server/internal/platform/logger"
	"github.com/askerp/askerp-server/internal/store"
	"github.com/askerp/askerp-server/internal/store/model"
)

// Input is one tool invocation's arguments as decoded JSON.
type Input map[string]any

// Runner dispatches tool calls, consulting the query cache for read-only
// tools before touching the database.
type Runner struct {
	repo    store.Repository
	queries *cache.QueryCache
	alerts  *alerts.Engine
	now     func() time.Time
}

func NewRunner(repo store.Repository, queries *cache.QueryCache, alertEngine *alerts.Engine) *Runner {
	return &Runner{repo: repo, queries: queries, alerts: alertEngine, now: time.Now}
}

// Names lists every tool the runner knows, for the execution endpoint's
// discovery response.
func Names() []string {
	names := []string{
		"query_records", "count_records", "get_document", "run_sql_query",
		"get_financial_summary", "compare_periods",
		"create_alert", "list_alerts", "delete_alert", "schedule_report",
	}
	sort.Strings(names)
	return names
}

// Execute runs one tool call for a user and returns the result as JSON.
// Cacheable tools are served from the query cache when possible.
func (r *Runner) Execute(ctx context.Context, tool string, input Input, userID string) (json.RawMessage, error) {
	if cached, ok := r.queries.Lookup(ctx, tool, input); ok {
		return cached, nil
	}

	result, err := r.dispatch(ctx, tool, input, userID)
	if err != nil {
		logger.Warn("tool execution failed", zap.String("tool", tool), zap.Error(err))
		result = map[string]any{"error": truncateErr(err)}
	}

	raw, mErr := json.Marshal(result)
	if mErr != nil {
		return nil, mErr
	}
	if err == nil && cache.Cacheable(tool) {
		r.queries.Store(ctx, tool, input, raw)
	}
	return raw, nil
}

func (r *Runner) dispatch(ctx context.Context, tool string, input Input, userID string) (map[string]any, error) {
	switch tool {
	case "query_records":
		return r.queryRecords(ctx, input)
	case "count_records":
		return r.countRecords(ctx, input)
	case "get_document":
		return r.getDocument(ctx, input)
	case "run_sql_query":
		return r.runSQL(ctx, input)
	case "get_financial_summary":
		return r.financialSummary(ctx, input)
	case "compare_periods":
		return r.comparePeriods(ctx, input)
	case "create_alert":
		return r.createAlert(ctx, input, userID)
	case "list_alerts":
		return r.listAlerts(ctx, userID)
	case "delete_alert":
		return r.deleteAlert(ctx, input, userID)
	case "schedule_report":
		return r.scheduleReport(ctx, input, userID)
	default:
		return nil, fmt.Errorf("unknown tool %q", tool)
	}
}

func (r *Runner) queryRecords(ctx context.Context, input Input) (map[string]any, error) {
	doctype := input.str("doctype")
	dt, ok := model.LookupDoctype(doctype)
	if !ok {
		return nil, fmt.Errorf("unknown doctype %q", doctype)
	}

	fields := input.strs("fields")
	if len(fields) == 0 {
		fields = []string{"name"}
	}
	for _, f := range fields {
		if f != "name" && !dt.Fields[f] {
			return nil, fmt.Errorf("field %q is not queryable on %s", f, doctype)
		}
	}

	where, args, err := whereClause(dt, input.filters("filters"))
	if err != nil {
		return nil, err
	}

	orderBy := input.str("order_by")
	if orderBy == "" {
		orderBy = "name"
	}
	desc := false
	if rest, found := strings.CutSuffix(strings.ToLower(orderBy), " desc"); found {
		orderBy, desc = strings.TrimSpace(rest), true
	}
	if orderBy != "name" && !dt.Fields[orderBy] {
		return nil, fmt.Errorf("cannot order by %q", orderBy)
	}
	if desc {
		orderBy += " DESC"
	}

	limit := input.integer("limit", 20)
	if limit > 200 {
		limit = 200
	}
	if limit < 1 {
		limit = 1
	}

	query := fmt.Sprintf(`SELECT %s FROM %s%s ORDER BY %s LIMIT %d`,
		strings.Join(fields, ", "), dt.Table, where, orderBy, limit)
	rows, err := r.repo.Business().Select(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return map[string]any{"data": rows, "count": len(rows), "doctype": doctype}, nil
}

func (r *Runner) countRecords(ctx context.Context, input Input) (map[string]any, error) {
	doctype := input.str("doctype")
	if _, ok := model.LookupDoctype(doctype); !ok {
		return nil, fmt.Errorf("unknown doctype %q", doctype)
	}
	count, err := r.repo.Business().Count(ctx, doctype, input.filters("filters"))
	if err != nil {
		return nil, err
	}
	return map[string]any{"count": count, "doctype": doctype}, nil
}

func (r *Runner) getDocument(ctx context.Context, input Input) (map[string]any, error) {
	doctype := input.str("doctype")
	name := input.str("name")
	dt, ok := model.LookupDoctype(doctype)
	if !ok {
		return nil, fmt.Errorf("unknown doctype %q", doctype)
	}
	if name == "" {
		return nil, fmt.Errorf("document name is required")
	}

	cols := []string{"name"}
	for f := range dt.Fields {
		cols = append(cols, f)
	}
	sort.Strings(cols)

	query := fmt.Sprintf(`SELECT %s FROM %s WHERE name = ? LIMIT 1`,
		strings.Join(cols, ", "), dt.Table)
	rows, err := r.repo.Business().Select(ctx, query, name)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s %q not found", doctype, name)
	}
	return map[string]any{"document": rows[0], "doctype": doctype, "name": name}, nil
}

func (r *Runner) runSQL(ctx context.Context, input Input) (map[string]any, error) {
	query, err := Guard(input.str("query"))
	if err != nil {
		return nil, err
	}
	rows, err := r.repo.Business().Select(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("sql error: %s", truncateErr(err))
	}
	truncated := len(rows) > maxSQLRows
	if truncated {
		rows = rows[:maxSQLRows]
	}
	return map[string]any{"data": rows, "count": len(rows), "truncated": truncated}, nil
}

func (r *Runner) comparePeriods(ctx context.Context, input Input) (map[string]any, error) {
	doctype := input.str("doctype")
	field := input.str("field")
	agg := strings.ToUpper(input.str("aggregation"))

	dt, ok := model.LookupDoctype(doctype)
	if !ok {
		return nil, fmt.Errorf("unknown doctype %q", doctype)
	}
	if !validIdentifier(field) || !dt.Fields[field] {
		return nil, fmt.Errorf("invalid field %q for %s", field, doctype)
	}
	if agg != "SUM" && agg != "COUNT" && agg != "AVG" {
		return nil, fmt.Errorf("invalid aggregation %q, must be SUM, COUNT or AVG", agg)
	}

	p1From, p1To := input.str("period1_from"), input.str("period1_to")
	p2From, p2To := input.str("period2_from"), input.str("period2_to")
	if p1From == "" || p1To == "" || p2From == "" || p2To == "" {
		return nil, fmt.Errorf("both period date ranges are required")
	}

	extraWhere, extraArgs, err := whereClause(dt, input.filters("extra_filters"))
	if err != nil {
		return nil, err
	}
	// whereClause opens with " WHERE"; here it extends an existing one.
	extraAnd := strings.Replace(extraWhere, " WHERE ", " AND ", 1)

	value := func(from, to string) (float64, error) {
		query := fmt.Sprintf(
			`SELECT COALESCE(%s(%s), 0) AS value FROM %s WHERE docstatus = 1 AND posting_date BETWEEN ? AND ?%s`,
			agg, field, dt.Table, extraAnd)
		args := append([]interface{}{from, to}, extraArgs...)
		rows, err := r.repo.Business().Select(ctx, query, args...)
		if err != nil || len(rows) == 0 {
			return 0, err
		}
		return toFloat(rows[0]["value"]), nil
	}

	v1, err := value(p1From, p1To)
	if err != nil {
		return nil, err
	}
	v2, err := value(p2From, p2To)
	if err != nil {
		return nil, err
	}

	change := v1 - v2
	var pct float64
	switch {
	case v2 != 0:
		pct = round2(change / v2 * 100)
	case v1 > 0:
		pct = 100
	}
	direction := "flat"
	if change > 0 {
		direction = "up"
	} else if change < 0 {
		direction = "down"
	}

	return map[string]any{
		"period1":    map[string]any{"from": p1From, "to": p1To, "value": v1},
		"period2":    map[string]any{"from": p2From, "to": p2To, "value": v2},
		"change":     change,
		"change_pct": pct,
		"direction":  direction,
	}, nil
}

func (r *Runner) createAlert(ctx context.Context, input Input, userID string) (map[string]any, error) {
	doctype := input.str("doctype")
	if _, ok := model.LookupDoctype(doctype); !ok {
		return nil, fmt.Errorf("unknown doctype %q", doctype)
	}

	filters, _ := json.Marshal(input.filters("filters"))
	rule := &model.AlertRule{
		UserID:            userID,
		AlertName:         input.str("alert_name"),
		Description:       input.str("description"),
		QueryDoctype:      doctype,
		QueryField:        input.str("field"),
		QueryAggregation:  strings.ToUpper(input.str("aggregation")),
		QueryFilters:      string(filters),
		ThresholdOperator: input.str("operator"),
		ThresholdValue:    input.number("threshold"),
		Frequency:         input.str("frequency"),
		Active:            true,
	}
	if rule.AlertName == "" {
		return nil, fmt.Errorf("alert_name is required")
	}
	if err := r.repo.Alerts().Save(ctx, rule); err != nil {
		return nil, err
	}

	result := map[string]any{
		"success":  true,
		"alert_id": rule.ID,
		"message":  fmt.Sprintf("Alert %q created successfully.", rule.AlertName),
	}
	// Show the current value immediately so the user knows the rule works.
	if r.alerts != nil {
		if value, would, err := r.alerts.Test(ctx, rule); err == nil {
			result["current_value"] = value
			result["would_trigger_now"] = would
		}
	}
	return result, nil
}

func (r *Runner) listAlerts(ctx context.Context, userID string) (map[string]any, error) {
	rules, err := r.repo.Alerts().ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]map[string]any, 0, len(rules))
	for _, rule := range rules {
		entry := map[string]any{
			"id":            rule.ID,
			"alert_name":    rule.AlertName,
			"description":   rule.Description,
			"frequency":     rule.Frequency,
			"operator":      rule.ThresholdOperator,
			"threshold":     rule.ThresholdValue,
			"trigger_count": rule.TriggerCount,
			"active":        rule.Active,
		}
		if rule.LastValue.Valid {
			entry["last_value"] = rule.LastValue.Float64
		}
		out = append(out, entry)
	}
	return map[string]any{"alerts": out, "count": len(out)}, nil
}

func (r *Runner) deleteAlert(ctx context.Context, input Input, userID string) (map[string]any, error) {
	target := input.str("alert_name")
	if target == "" {
		return nil, fmt.Errorf("alert_name is required")
	}
	rules, err := r.repo.Alerts().ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, rule := range rules {
		if rule.ID == target || strings.EqualFold(rule.AlertName, target) {
			if err := r.repo.Alerts().Delete(ctx, rule.ID); err != nil {
				return nil, err
			}
			return map[string]any{
				"success": true,
				"message": fmt.Sprintf("Alert %q deleted.", rule.AlertName),
			}, nil
		}
	}
	return nil, fmt.Errorf("no alert named %q found", target)
}

func (r *Runner) scheduleReport(ctx context.Context, input Input, userID string) (map[string]any, error) {
	frequency := input.str("frequency")
	switch frequency {
	case "hourly", "daily", "weekly", "monthly":
	default:
		return nil, fmt.Errorf("invalid frequency %q", frequency)
	}
	report := &model.ScheduledReport{
		UserID:      userID,
		ReportName:  input.str("report_name"),
		ReportQuery: input.str("report_query"),
		Frequency:   frequency,
		Recipients:  input.str("email_recipients"),
		Active:      true,
	}
	if report.ReportName == "" || report.ReportQuery == "" {
		return nil, fmt.Errorf("report_name and report_query are required")
	}
	if err := r.repo.Reports().Save(ctx, report); err != nil {
		return nil, err
	}
	return map[string]any{
		"success":   true,
		"report_id": report.ID,
		"message":   fmt.Sprintf("Report %q scheduled %s.", report.ReportName, frequency),
	}, nil
}

// whereClause builds a WHERE clause from equality filters, rejecting keys
// that are not whitelisted columns of the doctype.
func whereClause(dt model.Doctype, filters map[string]interface{}) (string, []interface{}, error) {
	if len(filters) == 0 {
		return "", nil, nil
	}
	keys := make([]string, 0, len(filters))
	for k := range filters {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var parts []string
	var args []interface{}
	for _, k := range keys {
		if k != "name" && !dt.Fields[k] {
			return "", nil, fmt.Errorf("filter field %q is not a column of %s", k, dt.Name)
		}
		parts = append(parts, k+" = ?")
		args = append(args, filters[k])
	}
	return " WHERE " + strings.Join(parts, " AND "), args, nil
}

func (in Input) str(key string) string {
	s, _ := in[key].(string)
	return strings.TrimSpace(s)
}

func (in Input) strs(key string) []string {
	raw, ok := in[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}

func (in Input) filters(key string) map[string]interface{} {
	m, _ := in[key].(map[string]any)
	return m
}

func (in Input) number(key string) float64 {
	switch v := in[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case json.Number:
		f, _ := v.Float64()
		return f
	case string:
		var f float64
		fmt.Sscanf(v, "%f", &f)
		return f
	}
	return 0
}

func (in Input) integer(key string, fallback int) int {
	if _, ok := in[key]; !ok {
		return fallback
	}
	return int(in.number(key))
}

func toFloat(v interface{}) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int64:
		return float64(n)
	case []byte:
		var f float64
		fmt.Sscanf(string(n), "%f", &f)
		return f
	case string:
		var f float64
		fmt.Sscanf(n, "%f", &f)
		return f
	}
	return 0
}

func round2(v float64) float64 {
	return float64(int64(v*100+sign(v)*0.5)) / 100
}

func sign(v float64) float64 {
	if v < 0 {
		return -1
	}
	return 1
}

func truncateErr(err error) string {
	msg := err.Error()
	if len(msg) > 200 {
		msg = msg[:200]
	}
	return msg
}

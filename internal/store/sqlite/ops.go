package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/askerp/askerp-server/internal/store"
	"github.com/askerp/askerp-server/internal/store/model"
)

var validFrequencies = map[string]bool{"hourly": true, "daily": true, "weekly": true}

type alertRepo struct {
	db DB
}

func (r *alertRepo) Get(ctx context.Context, id string) (*model.AlertRule, error) {
	var a model.AlertRule
	if err := r.db.GetContext(ctx, &a, `SELECT * FROM alert_rules WHERE id = ?`, id); err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *alertRepo) ListDue(ctx context.Context, frequency string) ([]model.AlertRule, error) {
	var rules []model.AlertRule
	err := r.db.SelectContext(ctx, &rules,
		`SELECT * FROM alert_rules WHERE active = 1 AND frequency = ?`, frequency)
	return rules, err
}

func (r *alertRepo) ListByUser(ctx context.Context, userID string) ([]model.AlertRule, error) {
	var rules []model.AlertRule
	err := r.db.SelectContext(ctx, &rules,
		`SELECT * FROM alert_rules WHERE user_id = ? ORDER BY created_at DESC`, userID)
	return rules, err
}

func (r *alertRepo) Save(ctx context.Context, a *model.AlertRule) error {
	if a.AlertName == "" {
		return fmt.Errorf("alert name is required")
	}
	if a.QueryDoctype == "" {
		return fmt.Errorf("a doctype to monitor is required")
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	// Invalid frequency is coerced, not rejected
	if !validFrequencies[a.Frequency] {
		a.Frequency = "daily"
	}
	if a.QueryAggregation == "" {
		a.QueryAggregation = "SUM"
	}
	if a.QueryFilters == "" {
		a.QueryFilters = "{}"
	}
	a.UpdatedAt = time.Now()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = a.UpdatedAt
		a.Active = true
		a.TriggerCount = 0
	}

	query := `
	INSERT INTO alert_rules (
		id, user_id, alert_name, description, query_doctype, query_field,
		query_aggregation, query_filters, threshold_operator, threshold_value,
		frequency, active, trigger_count, created_at, updated_at
	) VALUES (
		:id, :user_id, :alert_name, :description, :query_doctype, :query_field,
		:query_aggregation, :query_filters, :threshold_operator, :threshold_value,
		:frequency, :active, :trigger_count, :created_at, :updated_at
	)
	ON CONFLICT(id) DO UPDATE SET
		alert_name = excluded.alert_name,
		description = excluded.description,
		query_doctype = excluded.query_doctype,
		query_field = excluded.query_field,
		query_aggregation = excluded.query_aggregation,
		query_filters = excluded.query_filters,
		threshold_operator = excluded.threshold_operator,
		threshold_value = excluded.threshold_value,
		frequency = excluded.frequency,
		active = excluded.active,
		updated_at = excluded.updated_at`
	_, err := r.db.NamedExecContext(ctx, query, a)
	return err
}

func (r *alertRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM alert_rules WHERE id = ?`, id)
	return err
}

func (r *alertRepo) RecordCheck(ctx context.Context, id string, value float64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE alert_rules SET last_checked = ?, last_value = ? WHERE id = ?`,
		time.Now(), value, id)
	return err
}

func (r *alertRepo) RecordTrigger(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE alert_rules SET last_triggered = ?, trigger_count = trigger_count + 1 WHERE id = ?`,
		time.Now(), id)
	return err
}

type usageRepo struct {
	db DB
}

func (r *usageRepo) Log(ctx context.Context, l *model.UsageLog) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now()
	}
	l.TotalTokens = l.InputTokens + l.OutputTokens
	query := `
	INSERT INTO usage_logs (
		id, user_id, session_id, question, model,
		input_tokens, output_tokens, total_tokens, tool_calls,
		cache_read_tokens, cache_creation_tokens, complexity,
		cost_input, cost_output, cost_total, created_at
	) VALUES (
		:id, :user_id, :session_id, :question, :model,
		:input_tokens, :output_tokens, :total_tokens, :tool_calls,
		:cache_read_tokens, :cache_creation_tokens, :complexity,
		:cost_input, :cost_output, :cost_total, :created_at
	)`
	_, err := r.db.NamedExecContext(ctx, query, l)
	return err
}

func (r *usageRepo) CountSince(ctx context.Context, userID string, since time.Time) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM usage_logs WHERE user_id = ? AND created_at >= ?`, userID, since)
	return count, err
}

func (r *usageRepo) Aggregate(ctx context.Context, userID string, since time.Time) ([]store.UserAggregate, error) {
	query := `
		SELECT
			user_id,
			COALESCE(SUM(input_tokens), 0) as input_tokens,
			COALESCE(SUM(output_tokens), 0) as output_tokens,
			COALESCE(SUM(total_tokens), 0) as total_tokens,
			COALESCE(SUM(cache_read_tokens), 0) as cache_read_tokens,
			COALESCE(SUM(cost_input), 0) as cost_input,
			COALESCE(SUM(cost_output), 0) as cost_output,
			COALESCE(SUM(cost_total), 0) as cost_total,
			COUNT(*) as query_count
		FROM usage_logs
		WHERE created_at >= ?`
	args := []interface{}{since}
	if userID != "" {
		query += ` AND user_id = ?`
		args = append(args, userID)
	}
	query += ` GROUP BY user_id ORDER BY total_tokens DESC`

	var aggs []store.UserAggregate
	err := r.db.SelectContext(ctx, &aggs, query, args...)
	return aggs, err
}

func (r *usageRepo) RecentByModel(ctx context.Context, modelName string, since time.Time, limit int) ([]model.UsageLog, error) {
	var logs []model.UsageLog
	query := `SELECT * FROM usage_logs WHERE model = ? AND created_at >= ? ORDER BY created_at DESC LIMIT ?`
	err := r.db.SelectContext(ctx, &logs, query, modelName, since, limit)
	return logs, err
}

func (r *usageRepo) GetDailyStats(ctx context.Context, days int) ([]model.DailyStats, error) {
	var stats []model.DailyStats
	query := `
		SELECT
			DATE(created_at) as date,
			COUNT(*) as total_queries,
			COALESCE(SUM(total_tokens), 0) as total_tokens,
			COALESCE(SUM(cost_total), 0) as total_cost,
			COALESCE(AVG(tool_calls), 0) as avg_tool_calls
		FROM usage_logs
		WHERE created_at >= DATE('now', ?)
		GROUP BY date
		ORDER BY date DESC
	`
	// sqlite date offset format is '-7 days'
	err := r.db.SelectContext(ctx, &stats, query, fmt.Sprintf("-%d days", days))
	return stats, err
}

type metricRepo struct {
	db DB
}

func (r *metricRepo) ListActive(ctx context.Context) ([]model.CachedMetric, error) {
	var ms []model.CachedMetric
	err := r.db.SelectContext(ctx, &ms, `SELECT * FROM cached_metrics WHERE active = 1`)
	return ms, err
}

func (r *metricRepo) ListByCategory(ctx context.Context, category string) ([]model.CachedMetric, error) {
	var ms []model.CachedMetric
	err := r.db.SelectContext(ctx, &ms,
		`SELECT * FROM cached_metrics WHERE active = 1 AND category = ?`, category)
	return ms, err
}

func (r *metricRepo) Save(ctx context.Context, m *model.CachedMetric) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	query := `
	INSERT INTO cached_metrics (
		id, metric_name, category, query_type, sql_query, doctype,
		field_name, aggregation, filters_json, active
	) VALUES (
		:id, :metric_name, :category, :query_type, :sql_query, :doctype,
		:field_name, :aggregation, :filters_json, :active
	)
	ON CONFLICT(id) DO UPDATE SET
		metric_name = excluded.metric_name,
		category = excluded.category,
		query_type = excluded.query_type,
		sql_query = excluded.sql_query,
		doctype = excluded.doctype,
		field_name = excluded.field_name,
		aggregation = excluded.aggregation,
		filters_json = excluded.filters_json,
		active = excluded.active`
	_, err := r.db.NamedExecContext(ctx, query, m)
	return err
}

func (r *metricRepo) RecordValue(ctx context.Context, id string, value float64, formatted string, computeMS int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE cached_metrics SET value = ?, formatted_value = ?, last_computed = ?, compute_time_ms = ?, last_error = NULL WHERE id = ?`,
		value, formatted, time.Now(), computeMS, id)
	return err
}

func (r *metricRepo) RecordError(ctx context.Context, id string, msg string) error {
	if len(msg) > 500 {
		msg = msg[:500]
	}
	_, err := r.db.ExecContext(ctx,
		`UPDATE cached_metrics SET last_error = ?, last_computed = ? WHERE id = ?`,
		msg, time.Now(), id)
	return err
}

type reportRepo struct {
	db DB
}

func (r *reportRepo) Get(ctx context.Context, id string) (*model.ScheduledReport, error) {
	var rep model.ScheduledReport
	err := r.db.GetContext(ctx, &rep, `SELECT * FROM scheduled_reports WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	return &rep, nil
}

func (r *reportRepo) ListActive(ctx context.Context) ([]model.ScheduledReport, error) {
	var rs []model.ScheduledReport
	err := r.db.SelectContext(ctx, &rs, `SELECT * FROM scheduled_reports WHERE active = 1`)
	return rs, err
}

func (r *reportRepo) ListByUser(ctx context.Context, userID string) ([]model.ScheduledReport, error) {
	var rs []model.ScheduledReport
	err := r.db.SelectContext(ctx, &rs,
		`SELECT * FROM scheduled_reports WHERE user_id = ? ORDER BY created_at DESC`, userID)
	return rs, err
}

func (r *reportRepo) Save(ctx context.Context, rep *model.ScheduledReport) error {
	if rep.ID == "" {
		rep.ID = uuid.NewString()
	}
	if rep.CreatedAt.IsZero() {
		rep.CreatedAt = time.Now()
	}
	query := `
	INSERT INTO scheduled_reports (
		id, user_id, report_name, report_query, frequency,
		recipients, description, active, created_at
	) VALUES (
		:id, :user_id, :report_name, :report_query, :frequency,
		:recipients, :description, :active, :created_at
	)
	ON CONFLICT(id) DO UPDATE SET
		report_name = excluded.report_name,
		report_query = excluded.report_query,
		frequency = excluded.frequency,
		recipients = excluded.recipients,
		description = excluded.description,
		active = excluded.active`
	_, err := r.db.NamedExecContext(ctx, query, rep)
	return err
}

func (r *reportRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM scheduled_reports WHERE id = ?`, id)
	return err
}

func (r *reportRepo) RecordGenerated(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE scheduled_reports SET last_generated = ? WHERE id = ?`, time.Now(), id)
	return err
}

type notificationRepo struct {
	db DB
}

func (r *notificationRepo) Create(ctx context.Context, n *model.Notification) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	query := `
	INSERT INTO notifications (id, for_user, type, subject, body, document_type, document_name, read, created_at)
	VALUES (:id, :for_user, :type, :subject, :body, :document_type, :document_name, :read, :created_at)`
	_, err := r.db.NamedExecContext(ctx, query, n)
	return err
}

func (r *notificationRepo) ListForUser(ctx context.Context, userID string, limit int) ([]model.Notification, error) {
	var ns []model.Notification
	query := `SELECT * FROM notifications WHERE for_user = ? ORDER BY created_at DESC LIMIT ?`
	err := r.db.SelectContext(ctx, &ns, query, userID, limit)
	return ns, err
}

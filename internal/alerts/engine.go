// Package alerts evaluates user-defined alert rules against the mirrored
// business tables and notifies rule owners when thresholds are crossed.
package alerts

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/askerp/askerp-server/internal/format"
	"github.com/askerp/askerp-server/internal/notify"
	"github.com/askerp/askerp-server/internal/platform/logger"
	"github.com/askerp/askerp-server/internal/store"
	"github.com/askerp/askerp-server/internal/store/model"
)

// Equality comparisons on currency values tolerate a paisa of drift.
const epsilon = 0.01

// UsageModelName tags the usage log rows the engine writes, so the chat UI
// and the morning briefing can find overnight triggers.
const UsageModelName = "alert-engine"

type Engine struct {
	repo     store.Repository
	notifier *notify.Notifier
	now      func() time.Time
}

func NewEngine(repo store.Repository, notifier *notify.Notifier) *Engine {
	return &Engine{repo: repo, notifier: notifier, now: time.Now}
}

// CheckAlerts evaluates every active rule in a frequency bucket. One broken
// rule never stops the rest; failures are logged and skipped. Returns
// (evaluated, triggered) counts.
func (e *Engine) CheckAlerts(ctx context.Context, frequency string) (int, int) {
	rules, err := e.repo.Alerts().ListDue(ctx, frequency)
	if err != nil {
		logger.Error("alert rule listing failed", zap.String("frequency", frequency), zap.Error(err))
		return 0, 0
	}

	triggered := 0
	for i := range rules {
		fired, err := e.Evaluate(ctx, &rules[i])
		if err != nil {
			logger.Error("alert evaluation failed",
				zap.String("alert", rules[i].AlertName), zap.Error(err))
			continue
		}
		if fired {
			triggered++
		}
	}

	logger.Info("alert check complete",
		zap.String("frequency", frequency),
		zap.Int("evaluated", len(rules)),
		zap.Int("triggered", triggered))
	return len(rules), triggered
}

// Evaluate runs one rule: compute the aggregate, stamp last_checked, and
// fire notifications when the condition holds.
func (e *Engine) Evaluate(ctx context.Context, rule *model.AlertRule) (bool, error) {
	filters := parseFilters(rule.QueryFilters)
	// Only submitted documents count unless the rule says otherwise.
	if _, ok := filters["docstatus"]; !ok {
		filters["docstatus"] = 1
	}

	aggregation := rule.QueryAggregation
	if aggregation == "" {
		aggregation = "SUM"
	}

	value, err := e.repo.Business().Aggregate(ctx, rule.QueryDoctype, rule.QueryField, aggregation, filters)
	if err != nil {
		return false, fmt.Errorf("aggregate %s.%s: %w", rule.QueryDoctype, rule.QueryField, err)
	}

	if err := e.repo.Alerts().RecordCheck(ctx, rule.ID, value); err != nil {
		return false, err
	}

	if !Condition(value, rule.ThresholdOperator, rule.ThresholdValue) {
		return false, nil
	}

	if err := e.repo.Alerts().RecordTrigger(ctx, rule.ID); err != nil {
		return false, err
	}
	e.logTrigger(ctx, rule, value)
	return true, nil
}

// Test evaluates a rule without side effects: no last_checked stamp, no
// notifications. The alert editor's "test" button uses it.
func (e *Engine) Test(ctx context.Context, rule *model.AlertRule) (float64, bool, error) {
	filters := parseFilters(rule.QueryFilters)
	if _, ok := filters["docstatus"]; !ok {
		filters["docstatus"] = 1
	}
	aggregation := rule.QueryAggregation
	if aggregation == "" {
		aggregation = "SUM"
	}
	value, err := e.repo.Business().Aggregate(ctx, rule.QueryDoctype, rule.QueryField, aggregation, filters)
	if err != nil {
		return 0, false, err
	}
	return value, Condition(value, rule.ThresholdOperator, rule.ThresholdValue), nil
}

// Condition compares a computed value to a rule threshold. Unknown
// operators never trigger.
func Condition(value float64, operator string, threshold float64) bool {
	switch operator {
	case ">":
		return value > threshold
	case "<":
		return value < threshold
	case ">=":
		return value >= threshold
	case "<=":
		return value <= threshold
	case "=":
		return math.Abs(value-threshold) < epsilon
	case "!=":
		return math.Abs(value-threshold) >= epsilon
	default:
		return false
	}
}

// logTrigger records the trigger in the usage log and sends the owner a
// notification. Both are best effort.
func (e *Engine) logTrigger(ctx context.Context, rule *model.AlertRule, value float64) {
	style, symbol := e.currencyStyle(ctx)
	formattedValue := format.Currency(value, symbol, style)
	formattedThreshold := format.Currency(rule.ThresholdValue, symbol, style)

	msg := fmt.Sprintf("%s: current value is %s (%s %s threshold)",
		rule.AlertName, formattedValue, rule.ThresholdOperator, formattedThreshold)

	usage := &model.UsageLog{
		ID:        uuid.NewString(),
		UserID:    rule.UserID,
		SessionID: "alert:" + rule.ID,
		Question:  msg,
		Model:     UsageModelName,
		CreatedAt: e.now(),
	}
	if err := e.repo.Usage().Log(ctx, usage); err != nil {
		logger.Warn("alert usage log failed", zap.String("alert", rule.AlertName), zap.Error(err))
	}

	body := fmt.Sprintf("%s\n\nCurrent value: %s\nThreshold: %s %s",
		rule.AlertName, formattedValue, rule.ThresholdOperator, formattedThreshold)
	err := e.notifier.Send(ctx, notify.Message{
		ForUser:      rule.UserID,
		Type:         "Alert",
		Subject:      "Alert: " + rule.AlertName,
		Body:         body,
		DocumentType: "alert_rule",
		DocumentName: rule.ID,
	})
	if err != nil {
		logger.Warn("alert notification failed", zap.String("alert", rule.AlertName), zap.Error(err))
	}
}

func (e *Engine) currencyStyle(ctx context.Context) (format.Style, string) {
	profile, err := e.repo.Profile().Get(ctx)
	if err != nil || profile == nil {
		return format.StyleIndian, format.CurrencySymbol("INR")
	}
	return format.StyleFromProfile(profile.NumberFormat), format.CurrencySymbol(profile.Currency)
}

// parseFilters decodes the rule's JSON filter object. Malformed JSON
// yields no filters rather than a dead rule.
func parseFilters(raw string) map[string]interface{} {
	filters := map[string]interface{}{}
	if raw == "" {
		return filters
	}
	if err := json.Unmarshal([]byte(raw), &filters); err != nil {
		return map[string]interface{}{}
	}
	return filters
}

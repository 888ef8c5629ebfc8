package store

import (
	"context"
	"time"

	"github.com/askerp/askerp-server/internal/store/model"
)

type contextKey string

const (
	ContextKeyAPIKey contextKey = "api_key"
	ContextKeyUser   contextKey = "user"
)

// Repository is the main contract for the data layer.
type Repository interface {
	Users() UserRepository
	APIKeys() APIKeyRepository
	Models() ModelRepository
	Templates() TemplateRepository
	Profile() ProfileRepository
	Settings() SettingsRepository
	Alerts() AlertRepository
	Usage() UsageRepository
	Metrics() MetricRepository
	Reports() ReportRepository
	Notifications() NotificationRepository
	Business() BusinessRepository

	// transaction support
	WithTx(ctx context.Context, fn func(repo Repository) error) error

	Close() error
}

type UserRepository interface {
	Get(ctx context.Context, id string) (*model.User, error)
	Create(ctx context.Context, user *model.User) error
	// List returns all enabled users, for the setup wizard enablement step.
	List(ctx context.Context) ([]model.User, error)
	// SetAllowChat bulk-toggles chat access.
	SetAllowChat(ctx context.Context, userIDs []string, allowed bool) (int, error)
}

type APIKeyRepository interface {
	// GetByHash retrieves a key by its hashed value (for auth).
	GetByHash(ctx context.Context, hash string) (*model.APIKey, error)
	Create(ctx context.Context, key *model.APIKey) error
	// UpdateUsage stamps last_used_at.
	UpdateUsage(ctx context.Context, id string) error
}

type ModelRepository interface {
	Get(ctx context.Context, id string) (*model.Model, error)
	// GetForTier returns the enabled model configured for a tier.
	GetForTier(ctx context.Context, tier string) (*model.Model, error)
	List(ctx context.Context) ([]model.Model, error)
	ListByProvider(ctx context.Context, provider string) ([]model.Model, error)
	// Save validates and upserts a registry entry with its rate limits.
	Save(ctx context.Context, m *model.Model) error
	// SetAPIKey applies a key to every model of a provider and enables them.
	SetAPIKey(ctx context.Context, provider, apiKey string) (int, error)
	// RecordTest stores the outcome of a connectivity test.
	RecordTest(ctx context.Context, id, status, message string) error
}

type TemplateRepository interface {
	Get(ctx context.Context, id string) (*model.PromptTemplate, error)
	// GetActive returns the active template for a tier, or nil when none exists.
	GetActive(ctx context.Context, tier string) (*model.PromptTemplate, error)
	List(ctx context.Context) ([]model.PromptTemplate, error)
	Save(ctx context.Context, t *model.PromptTemplate) error
	// Activate marks one template active and deactivates the rest of its tier.
	Activate(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}

type ProfileRepository interface {
	// Get returns the singleton profile, creating a default row if absent.
	Get(ctx context.Context) (*model.Profile, error)
	// Save persists the profile; the caller sets profile_completeness first.
	Save(ctx context.Context, p *model.Profile) error
}

type SettingsRepository interface {
	Get(ctx context.Context) (*model.Settings, error)
	Save(ctx context.Context, s *model.Settings) error
}

type AlertRepository interface {
	Get(ctx context.Context, id string) (*model.AlertRule, error)
	// ListDue returns active rules for a frequency bucket.
	ListDue(ctx context.Context, frequency string) ([]model.AlertRule, error)
	ListByUser(ctx context.Context, userID string) ([]model.AlertRule, error)
	Save(ctx context.Context, a *model.AlertRule) error
	Delete(ctx context.Context, id string) error
	// RecordCheck stamps last_checked/last_value after an evaluation.
	RecordCheck(ctx context.Context, id string, value float64) error
	// RecordTrigger stamps last_triggered and bumps trigger_count.
	RecordTrigger(ctx context.Context, id string) error
}

type UsageRepository interface {
	// Log stores a completed query. Rows are immutable after creation.
	Log(ctx context.Context, l *model.UsageLog) error
	// CountSince returns a user's query count since a cutoff (daily limits).
	CountSince(ctx context.Context, userID string, since time.Time) (int, error)
	// Aggregate groups token/cost counters per user since a cutoff.
	// An empty userID aggregates across all users.
	Aggregate(ctx context.Context, userID string, since time.Time) ([]UserAggregate, error)
	// RecentByModel returns recent rows for a pseudo-model (alert-engine, briefing).
	RecentByModel(ctx context.Context, modelName string, since time.Time, limit int) ([]model.UsageLog, error)
	GetDailyStats(ctx context.Context, days int) ([]model.DailyStats, error)
}

// UserAggregate is one user's usage rollup.
type UserAggregate struct {
	UserID          string  `db:"user_id"`
	InputTokens     int64   `db:"input_tokens"`
	OutputTokens    int64   `db:"output_tokens"`
	TotalTokens     int64   `db:"total_tokens"`
	CacheReadTokens int64   `db:"cache_read_tokens"`
	CostInput       float64 `db:"cost_input"`
	CostOutput      float64 `db:"cost_output"`
	CostTotal       float64 `db:"cost_total"`
	QueryCount      int64   `db:"query_count"`
}

type MetricRepository interface {
	ListActive(ctx context.Context) ([]model.CachedMetric, error)
	ListByCategory(ctx context.Context, category string) ([]model.CachedMetric, error)
	Save(ctx context.Context, m *model.CachedMetric) error
	// RecordValue stores a computed value with timing, clearing last_error.
	RecordValue(ctx context.Context, id string, value float64, formatted string, computeMS int64) error
	RecordError(ctx context.Context, id string, msg string) error
}

type ReportRepository interface {
	Get(ctx context.Context, id string) (*model.ScheduledReport, error)
	ListActive(ctx context.Context) ([]model.ScheduledReport, error)
	ListByUser(ctx context.Context, userID string) ([]model.ScheduledReport, error)
	Save(ctx context.Context, r *model.ScheduledReport) error
	Delete(ctx context.Context, id string) error
	RecordGenerated(ctx context.Context, id string) error
}

type NotificationRepository interface {
	Create(ctx context.Context, n *model.Notification) error
	ListForUser(ctx context.Context, userID string, limit int) ([]model.Notification, error)
}

// BusinessRepository runs read-only queries against the mirrored ERP tables.
// It backs the analytical tools, the alert engine, the briefing generator
// and the metric pre-computation.
type BusinessRepository interface {
	// Aggregate computes FN(field) over a doctype with equality filters.
	Aggregate(ctx context.Context, doctype, field, fn string, filters map[string]interface{}) (float64, error)
	// Count counts rows of a doctype matching equality filters.
	Count(ctx context.Context, doctype string, filters map[string]interface{}) (int64, error)
	// Select runs a validated read-only SELECT and returns generic rows.
	Select(ctx context.Context, query string, args ...interface{}) ([]map[string]interface{}, error)
	// Upsert mirrors one document row from the ERP sync. Unknown doctypes
	// and non-whitelisted fields are rejected.
	Upsert(ctx context.Context, doctype, name string, fields map[string]interface{}) error
	// Remove deletes a mirrored row (document cancelled or deleted upstream).
	Remove(ctx context.Context, doctype, name string) error
}

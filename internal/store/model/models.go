package model

import (
	"database/sql"
	"time"
)

// User is an ERP user mirrored into the assistant's store.
// Roles is a JSON array string; tier resolution works off it.
type User struct {
	ID        string    `db:"id" json:"id"`
	Email     string    `db:"email" json:"email"`
	FullName  string    `db:"full_name" json:"full_name"`
	Roles     string    `db:"roles" json:"roles"` // JSON array
	AllowChat bool      `db:"allow_chat" json:"allow_chat"`
	Enabled   bool      `db:"enabled" json:"enabled"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// APIKey is the credential used to access the API.
type APIKey struct {
	ID         string       `db:"id" json:"id"`
	UserID     string       `db:"user_id" json:"user_id"`
	Name       string       `db:"name" json:"name"`
	KeyHash    string       `db:"key_hash" json:"-"`            // Never return hash
	KeyPrefix  string       `db:"key_prefix" json:"key_prefix"` // Display only
	LastUsedAt sql.NullTime `db:"last_used_at" json:"last_used_at,omitempty"`
	IsActive   bool         `db:"is_active" json:"is_active"`
	CreatedAt  time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time    `db:"updated_at" json:"updated_at"`
}

// Model is a registry entry for an AI model: provider, pricing, budgets,
// per-role rate limits and the result of the last connectivity test.
type Model struct {
	ID                   string         `db:"id" json:"id"`
	ModelName            string         `db:"model_name" json:"model_name"`
	ModelID              string         `db:"model_id" json:"model_id"` // API model string
	Provider             string         `db:"provider" json:"provider"` // Anthropic, Google, OpenAI, Custom
	Tier                 string         `db:"tier" json:"tier"`
	APIBaseURL           string         `db:"api_base_url" json:"api_base_url"`
	APIVersion           string         `db:"api_version" json:"api_version"`
	APIKey               string         `db:"api_key" json:"-"`
	Enabled              bool           `db:"enabled" json:"enabled"`
	MaxOutputTokens      int            `db:"max_output_tokens" json:"max_output_tokens"`
	SupportsStreaming    bool           `db:"supports_streaming" json:"supports_streaming"`
	SupportsThinking     bool           `db:"supports_thinking" json:"supports_thinking"`
	InputCostPerMillion  float64        `db:"input_cost_per_million" json:"input_cost_per_million"`
	OutputCostPerMillion float64        `db:"output_cost_per_million" json:"output_cost_per_million"`
	CacheReadCostPerM    float64        `db:"cache_read_cost_per_million" json:"cache_read_cost_per_million"`
	CacheWriteCostPerM   float64        `db:"cache_write_cost_per_million" json:"cache_write_cost_per_million"`
	DailyTokenBudget     int64          `db:"daily_token_budget" json:"daily_token_budget"`
	LastTested           sql.NullTime   `db:"last_tested" json:"last_tested,omitempty"`
	TestStatus           string         `db:"test_status" json:"test_status"` // Not Tested, Pass, Fail
	TestMessage          sql.NullString `db:"test_message" json:"test_message,omitempty"`
	CreatedAt            time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time      `db:"updated_at" json:"updated_at"`

	RateLimits []ModelRateLimit `db:"-" json:"rate_limits,omitempty"`
}

// ModelRateLimit caps daily queries for one role on one model.
// A role may appear at most once per model.
type ModelRateLimit struct {
	ModelID    string `db:"model_id" json:"model_id"`
	Role       string `db:"role" json:"role"`
	DailyLimit int    `db:"daily_limit" json:"daily_limit"`
}

// Profile is the singleton business profile the AI reads for context.
type Profile struct {
	ID                   int       `db:"id" json:"-"` // always 1
	CompanyName          string    `db:"company_name" json:"company_name"`
	TradingName          string    `db:"trading_name" json:"trading_name"`
	Industry             string    `db:"industry" json:"industry"`
	IndustryDetail       string    `db:"industry_detail" json:"industry_detail"`
	Location             string    `db:"location" json:"location"`
	CompanySize          string    `db:"company_size" json:"company_size"`
	Currency             string    `db:"currency" json:"currency"`
	FinancialYearStart   string    `db:"financial_year_start" json:"financial_year_start"` // "MM-DD"
	WhatYouSell          string    `db:"what_you_sell" json:"what_you_sell"`
	WhatYouBuy           string    `db:"what_you_buy" json:"what_you_buy"`
	UnitOfMeasure        string    `db:"unit_of_measure" json:"unit_of_measure"`
	SalesChannels        string    `db:"sales_channels" json:"sales_channels"`
	CustomerTypes        string    `db:"customer_types" json:"customer_types"`
	KeyMetricsSales      string    `db:"key_metrics_sales" json:"key_metrics_sales"`
	HasManufacturing     string    `db:"has_manufacturing" json:"has_manufacturing"`
	AccountingFocus      string    `db:"accounting_focus" json:"accounting_focus"`
	PaymentTerms         string    `db:"payment_terms" json:"payment_terms"`
	CustomTerminology    string    `db:"custom_terminology" json:"custom_terminology"`
	CommunicationStyle   string    `db:"communication_style" json:"communication_style"`
	ResponseLength       string    `db:"response_length" json:"response_length"`
	NumberFormat         string    `db:"number_format" json:"number_format"`
	ExecutiveFocus       string    `db:"executive_focus" json:"executive_focus"`
	AIPersonality        string    `db:"ai_personality" json:"ai_personality"`
	ProfileCompleteness  int       `db:"profile_completeness" json:"profile_completeness"`
	UpdatedAt            time.Time `db:"updated_at" json:"updated_at"`
}

// PromptTemplate is tier-scoped prompt text with {{placeholder}} tokens.
type PromptTemplate struct {
	ID            string    `db:"id" json:"id"`
	TemplateName  string    `db:"template_name" json:"template_name"`
	Tier          string    `db:"tier" json:"tier"` // Executive, Management, Field, Utility, Custom
	PromptContent string    `db:"prompt_content" json:"prompt_content"`
	IsActive      bool      `db:"is_active" json:"is_active"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// AlertRule is a user-created business alert evaluated on a schedule.
type AlertRule struct {
	ID                string          `db:"id" json:"id"`
	UserID            string          `db:"user_id" json:"user_id"`
	AlertName         string          `db:"alert_name" json:"alert_name"`
	Description       string          `db:"description" json:"description"`
	QueryDoctype      string          `db:"query_doctype" json:"query_doctype"`
	QueryField        string          `db:"query_field" json:"query_field"`
	QueryAggregation  string          `db:"query_aggregation" json:"query_aggregation"`
	QueryFilters      string          `db:"query_filters" json:"query_filters"` // JSON object
	ThresholdOperator string          `db:"threshold_operator" json:"threshold_operator"`
	ThresholdValue    float64         `db:"threshold_value" json:"threshold_value"`
	Frequency         string          `db:"frequency" json:"frequency"` // hourly, daily, weekly
	Active            bool            `db:"active" json:"active"`
	TriggerCount      int             `db:"trigger_count" json:"trigger_count"`
	LastChecked       sql.NullTime    `db:"last_checked" json:"last_checked,omitempty"`
	LastValue         sql.NullFloat64 `db:"last_value" json:"last_value,omitempty"`
	LastTriggered     sql.NullTime    `db:"last_triggered" json:"last_triggered,omitempty"`
	CreatedAt         time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time       `db:"updated_at" json:"updated_at"`
}

// UsageLog records one AI query. Rows are append-only; analytics reads them.
type UsageLog struct {
	ID                  string    `db:"id" json:"id"`
	UserID              string    `db:"user_id" json:"user_id"`
	SessionID           string    `db:"session_id" json:"session_id"`
	Question            string    `db:"question" json:"question"`
	Model               string    `db:"model" json:"model"`
	InputTokens         int       `db:"input_tokens" json:"input_tokens"`
	OutputTokens        int       `db:"output_tokens" json:"output_tokens"`
	TotalTokens         int       `db:"total_tokens" json:"total_tokens"`
	ToolCalls           int       `db:"tool_calls" json:"tool_calls"`
	CacheReadTokens     int       `db:"cache_read_tokens" json:"cache_read_tokens"`
	CacheCreationTokens int       `db:"cache_creation_tokens" json:"cache_creation_tokens"`
	Complexity          string    `db:"complexity" json:"complexity"` // flash, simple, complex
	CostInput           float64   `db:"cost_input" json:"cost_input"`
	CostOutput          float64   `db:"cost_output" json:"cost_output"`
	CostTotal           float64   `db:"cost_total" json:"cost_total"`
	CreatedAt           time.Time `db:"created_at" json:"created_at"`
}

// Settings is the singleton runtime configuration document.
type Settings struct {
	ID                     int    `db:"id" json:"-"` // always 1
	SetupComplete          bool   `db:"setup_complete" json:"setup_complete"`
	SetupCurrentStep       int    `db:"setup_current_step" json:"setup_current_step"`
	EnableQueryCache       bool   `db:"enable_query_cache" json:"enable_query_cache"`
	CacheTTLMinutes        int    `db:"cache_ttl_minutes" json:"cache_ttl_minutes"`
	CacheMaxEntries        int    `db:"cache_max_entries" json:"cache_max_entries"`
	DefaultDailyLimit      int    `db:"default_daily_limit" json:"default_daily_limit"`
	FieldStaffDailyLimit   int    `db:"field_staff_daily_limit" json:"field_staff_daily_limit"`
	ExecutivePriorityRoles string `db:"executive_priority_roles" json:"executive_priority_roles"`
	ManagerPriorityRoles   string `db:"manager_priority_roles" json:"manager_priority_roles"`
}

// CachedMetric is a pre-computed business metric refreshed hourly.
type CachedMetric struct {
	ID             string          `db:"id" json:"id"`
	MetricName     string          `db:"metric_name" json:"metric_name"`
	Category       string          `db:"category" json:"category"`
	QueryType      string          `db:"query_type" json:"query_type"` // SQL, Aggregation
	SQLQuery       sql.NullString  `db:"sql_query" json:"sql_query,omitempty"`
	Doctype        sql.NullString  `db:"doctype" json:"doctype,omitempty"`
	FieldName      sql.NullString  `db:"field_name" json:"field_name,omitempty"`
	Aggregation    sql.NullString  `db:"aggregation" json:"aggregation,omitempty"`
	FiltersJSON    sql.NullString  `db:"filters_json" json:"filters_json,omitempty"`
	Value          sql.NullFloat64 `db:"value" json:"value,omitempty"`
	FormattedValue sql.NullString  `db:"formatted_value" json:"formatted_value,omitempty"`
	LastComputed   sql.NullTime    `db:"last_computed" json:"last_computed,omitempty"`
	ComputeTimeMS  int64           `db:"compute_time_ms" json:"compute_time_ms"`
	LastError      sql.NullString  `db:"last_error" json:"last_error,omitempty"`
	Active         bool            `db:"active" json:"active"`
}

// ScheduledReport is a recurring report generated and delivered by the scheduler.
type ScheduledReport struct {
	ID            string       `db:"id" json:"id"`
	UserID        string       `db:"user_id" json:"user_id"`
	ReportName    string       `db:"report_name" json:"report_name"`
	ReportQuery   string       `db:"report_query" json:"report_query"`
	Frequency     string       `db:"frequency" json:"frequency"` // hourly, daily, weekly, monthly
	Recipients    string       `db:"recipients" json:"recipients"`
	Description   string       `db:"description" json:"description"`
	Active        bool         `db:"active" json:"active"`
	LastGenerated sql.NullTime `db:"last_generated" json:"last_generated,omitempty"`
	CreatedAt     time.Time    `db:"created_at" json:"created_at"`
}

// Notification is an in-app notification row (the bell icon analogue).
type Notification struct {
	ID           string    `db:"id" json:"id"`
	ForUser      string    `db:"for_user" json:"for_user"`
	Type         string    `db:"type" json:"type"` // Alert, Briefing, Report
	Subject      string    `db:"subject" json:"subject"`
	Body         string    `db:"body" json:"body"`
	DocumentType string    `db:"document_type" json:"document_type"`
	DocumentName string    `db:"document_name" json:"document_name"`
	Read         bool      `db:"read" json:"read"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// DailyStats is one row of the daily usage aggregation.
type DailyStats struct {
	Date          string  `db:"date" json:"date"`
	TotalQueries  int64   `db:"total_queries" json:"total_queries"`
	TotalTokens   int64   `db:"total_tokens" json:"total_tokens"`
	TotalCost     float64 `db:"total_cost" json:"total_cost"`
	AvgToolCalls  float64 `db:"avg_tool_calls" json:"avg_tool_calls"`
}

package api

// TestKeyRequest asks the server to validate a provider API key.
type TestKeyRequest struct {
	Provider string `json:"provider" binding:"required,oneof=Anthropic Google OpenAI"`
	APIKey   string `json:"api_key" binding:"required"`
}

// SaveKeyRequest stores a validated key on every model of the provider.
type SaveKeyRequest struct {
	Provider string `json:"provider" binding:"required,oneof=Anthropic Google OpenAI"`
	APIKey   string `json:"api_key" binding:"required"`
}

// QuickProfileRequest carries the three essential profile fields from
// the setup wizard. The admin fills in the rest later.
type QuickProfileRequest struct {
	CompanyName string `json:"company_name" binding:"required"`
	Industry    string `json:"industry"`
	Description string `json:"description"`
}

// BulkEnableRequest toggles chat access for a set of users.
type BulkEnableRequest struct {
	Users   []string `json:"users" binding:"required,min=1"`
	Enabled bool     `json:"enabled"`
}

// AlertRuleRequest creates or updates an alert rule.
type AlertRuleRequest struct {
	AlertName         string  `json:"alert_name" binding:"required"`
	Description       string  `json:"description"`
	QueryDoctype      string  `json:"query_doctype" binding:"required"`
	QueryField        string  `json:"query_field" binding:"required"`
	QueryAggregation  string  `json:"query_aggregation"`
	QueryFilters      string  `json:"query_filters"`
	ThresholdOperator string  `json:"threshold_operator" binding:"required,oneof=> < >= <= = !="`
	ThresholdValue    float64 `json:"threshold_value"`
	Frequency         string  `json:"frequency"`
}

// TemplateRequest creates or updates a prompt template.
type TemplateRequest struct {
	TemplateName  string `json:"template_name" binding:"required"`
	Tier          string `json:"tier" binding:"required,oneof=Executive Management Field Utility Custom"`
	PromptContent string `json:"prompt_content" binding:"required"`
	IsActive      bool   `json:"is_active"`
}

// ToolRequest invokes a named read-only analytical tool.
type ToolRequest struct {
	Input map[string]interface{} `json:"input"`
}

// ScheduledReportRequest creates a recurring report.
type ScheduledReportRequest struct {
	ReportName  string `json:"report_name" binding:"required"`
	ReportQuery string `json:"report_query" binding:"required"`
	Frequency   string `json:"frequency"`
	Recipients  string `json:"recipients"`
	Description string `json:"description"`
}

package api

// KeyTestResult is returned by the key validation endpoints.
// Failure buckets: auth-invalid, rate-limited (still valid), timeout,
// connection error, generic error — each with a tailored message.
type KeyTestResult struct {
	Success  bool   `json:"success"`
	Message  string `json:"message"`
	Provider string `json:"provider,omitempty"`
}

// SetupStatus reports wizard progress for the admin UI.
type SetupStatus struct {
	SetupComplete bool `json:"setup_complete"`
	CurrentStep   int  `json:"current_step"`
	ShowWizard    bool `json:"show_wizard"`
}

// ConnectionTestResult is the outcome of a per-model connectivity test.
type ConnectionTestResult struct {
	Success   bool    `json:"success"`
	Message   string  `json:"message"`
	LatencyMS float64 `json:"latency_ms"`
}

// SectionStatus reports per-section profile completeness for the UI.
type SectionStatus struct {
	Filled int `json:"filled"`
	Total  int `json:"total"`
	Pct    int `json:"pct"`
}

// UsageTotals aggregates token and cost counters across users.
type UsageTotals struct {
	InputTokens     int64   `json:"input_tokens"`
	OutputTokens    int64   `json:"output_tokens"`
	TotalTokens     int64   `json:"total_tokens"`
	CacheReadTokens int64   `json:"cache_read_tokens"`
	TotalQueries    int64   `json:"total_queries"`
	CostUSD         float64 `json:"cost_usd"`
}

// UserUsage is the per-user row of the usage report.
type UserUsage struct {
	User            string  `json:"user" db:"user"`
	InputTokens     int64   `json:"input_tokens" db:"input_tokens"`
	OutputTokens    int64   `json:"output_tokens" db:"output_tokens"`
	TotalTokens     int64   `json:"total_tokens" db:"total_tokens"`
	CacheReadTokens int64   `json:"cache_read_tokens" db:"cache_read_tokens"`
	CostInput       float64 `json:"cost_input" db:"cost_input"`
	CostOutput      float64 `json:"cost_output" db:"cost_output"`
	CostTotal       float64 `json:"cost_total" db:"cost_total"`
	QueryCount      int64   `json:"query_count" db:"query_count"`
}

// UsageReport is returned by GET /usage.
type UsageReport struct {
	Period string      `json:"period"`
	Users  []UserUsage `json:"users"`
	Totals UsageTotals `json:"totals"`
}

package sqlite

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/askerp/askerp-server/internal/store/model"
)

// Registry entry validation errors surface to the admin verbatim.
var (
	ErrModelNameRequired = fmt.Errorf("model name is required")
	ErrModelIDRequired   = fmt.Errorf("model ID is required (the API model string)")
	ErrProviderRequired  = fmt.Errorf("provider is required")
	ErrTierRequired      = fmt.Errorf("tier is required")
)

var providerBaseURLs = map[string]string{
	"Anthropic": "https://api.anthropic.com/v1/messages",
	"Google":    "https://generativelanguage.googleapis.com/v1beta/models",
	"OpenAI":    "https://api.openai.com/v1/chat/completions",
}

type modelRepo struct {
	db DB
}

func (r *modelRepo) Get(ctx context.Context, id string) (*model.Model, error) {
	var m model.Model
	if err := r.db.GetContext(ctx, &m, `SELECT * FROM models WHERE id = ?`, id); err != nil {
		return nil, err
	}
	if err := r.loadRateLimits(ctx, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *modelRepo) GetForTier(ctx context.Context, tier string) (*model.Model, error) {
	var m model.Model
	query := `SELECT * FROM models WHERE tier = ? AND enabled = 1 ORDER BY updated_at DESC LIMIT 1`
	if err := r.db.GetContext(ctx, &m, query, tier); err != nil {
		return nil, err
	}
	if err := r.loadRateLimits(ctx, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *modelRepo) List(ctx context.Context) ([]model.Model, error) {
	var models []model.Model
	err := r.db.SelectContext(ctx, &models, `SELECT * FROM models ORDER BY provider, model_name`)
	return models, err
}

func (r *modelRepo) ListByProvider(ctx context.Context, provider string) ([]model.Model, error) {
	var models []model.Model
	err := r.db.SelectContext(ctx, &models, `SELECT * FROM models WHERE provider = ?`, provider)
	return models, err
}

// Save validates the entry and upserts it together with its rate limits.
func (r *modelRepo) Save(ctx context.Context, m *model.Model) error {
	if err := validateModel(m); err != nil {
		return err
	}
	if m.ID == "" {
		m.ID = uuid.NewString()
	}

	// Auto-fill base URL and Anthropic API version when not set
	if m.APIBaseURL == "" {
		m.APIBaseURL = providerBaseURLs[m.Provider]
	}
	if m.Provider == "Anthropic" && m.APIVersion == "" {
		m.APIVersion = "2023-06-01"
	}
	if m.TestStatus == "" {
		m.TestStatus = "Not Tested"
	}
	m.UpdatedAt = time.Now()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = m.UpdatedAt
	}

	query := `
	INSERT INTO models (
		id, model_name, model_id, provider, tier, api_base_url, api_version, api_key,
		enabled, max_output_tokens, supports_streaming, supports_thinking,
		input_cost_per_million, output_cost_per_million,
		cache_read_cost_per_million, cache_write_cost_per_million,
		daily_token_budget, test_status, created_at, updated_at
	) VALUES (
		:id, :model_name, :model_id, :provider, :tier, :api_base_url, :api_version, :api_key,
		:enabled, :max_output_tokens, :supports_streaming, :supports_thinking,
		:input_cost_per_million, :output_cost_per_million,
		:cache_read_cost_per_million, :cache_write_cost_per_million,
		:daily_token_budget, :test_status, :created_at, :updated_at
	)
	ON CONFLICT(id) DO UPDATE SET
		model_name = excluded.model_name,
		model_id = excluded.model_id,
		provider = excluded.provider,
		tier = excluded.tier,
		api_base_url = excluded.api_base_url,
		api_version = excluded.api_version,
		api_key = excluded.api_key,
		enabled = excluded.enabled,
		max_output_tokens = excluded.max_output_tokens,
		supports_streaming = excluded.supports_streaming,
		supports_thinking = excluded.supports_thinking,
		input_cost_per_million = excluded.input_cost_per_million,
		output_cost_per_million = excluded.output_cost_per_million,
		cache_read_cost_per_million = excluded.cache_read_cost_per_million,
		cache_write_cost_per_million = excluded.cache_write_cost_per_million,
		daily_token_budget = excluded.daily_token_budget,
		updated_at = excluded.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, m); err != nil {
		return err
	}

	// Replace rate limits wholesale
	if _, err := r.db.ExecContext(ctx, `DELETE FROM model_rate_limits WHERE model_id = ?`, m.ID); err != nil {
		return err
	}
	for i := range m.RateLimits {
		rl := m.RateLimits[i]
		rl.ModelID = m.ID
		_, err := r.db.ExecContext(ctx,
			`INSERT INTO model_rate_limits (model_id, role, daily_limit) VALUES (?, ?, ?)`,
			rl.ModelID, rl.Role, rl.DailyLimit)
		if err != nil {
			return err
		}
	}

	return nil
}

func (r *modelRepo) SetAPIKey(ctx context.Context, provider, apiKey string) (int, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE models SET api_key = ?, enabled = 1, updated_at = ? WHERE provider = ?`,
		apiKey, time.Now(), provider)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func (r *modelRepo) RecordTest(ctx context.Context, id, status, message string) error {
	if len(message) > 500 {
		message = message[:500]
	}
	_, err := r.db.ExecContext(ctx,
		`UPDATE models SET last_tested = ?, test_status = ?, test_message = ? WHERE id = ?`,
		time.Now(), status, message, id)
	return err
}

func (r *modelRepo) loadRateLimits(ctx context.Context, m *model.Model) error {
	return r.db.SelectContext(ctx, &m.RateLimits,
		`SELECT * FROM model_rate_limits WHERE model_id = ?`, m.ID)
}

func validateModel(m *model.Model) error {
	if strings.TrimSpace(m.ModelName) == "" {
		return ErrModelNameRequired
	}
	if strings.TrimSpace(m.ModelID) == "" {
		return ErrModelIDRequired
	}
	if strings.TrimSpace(m.Provider) == "" {
		return ErrProviderRequired
	}
	if strings.TrimSpace(m.Tier) == "" {
		return ErrTierRequired
	}

	seen := make(map[string]bool)
	for _, rl := range m.RateLimits {
		if seen[rl.Role] {
			return fmt.Errorf("duplicate role %q in rate limits: each role should appear only once", rl.Role)
		}
		seen[rl.Role] = true
	}
	return nil
}

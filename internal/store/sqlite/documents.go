package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/askerp/askerp-server/internal/store/model"
)

type profileRepo struct {
	db DB
}

func (r *profileRepo) Get(ctx context.Context) (*model.Profile, error) {
	var p model.Profile
	err := r.db.GetContext(ctx, &p, `SELECT * FROM business_profile WHERE id = 1`)
	if errors.Is(err, sql.ErrNoRows) {
		// migrations seed the singleton row; recreate it if it was wiped
		if _, err := r.db.ExecContext(ctx, `INSERT INTO business_profile (id) VALUES (1)`); err != nil {
			return nil, err
		}
		err = r.db.GetContext(ctx, &p, `SELECT * FROM business_profile WHERE id = 1`)
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *profileRepo) Save(ctx context.Context, p *model.Profile) error {
	p.ID = 1
	p.UpdatedAt = time.Now()
	query := `
	UPDATE business_profile SET
		company_name = :company_name,
		trading_name = :trading_name,
		industry = :industry,
		industry_detail = :industry_detail,
		location = :location,
		company_size = :company_size,
		currency = :currency,
		financial_year_start = :financial_year_start,
		what_you_sell = :what_you_sell,
		what_you_buy = :what_you_buy,
		unit_of_measure = :unit_of_measure,
		sales_channels = :sales_channels,
		customer_types = :customer_types,
		key_metrics_sales = :key_metrics_sales,
		has_manufacturing = :has_manufacturing,
		accounting_focus = :accounting_focus,
		payment_terms = :payment_terms,
		custom_terminology = :custom_terminology,
		communication_style = :communication_style,
		response_length = :response_length,
		number_format = :number_format,
		executive_focus = :executive_focus,
		ai_personality = :ai_personality,
		profile_completeness = :profile_completeness,
		updated_at = :updated_at
	WHERE id = :id`
	_, err := r.db.NamedExecContext(ctx, query, p)
	return err
}

type settingsRepo struct {
	db DB
}

func (r *settingsRepo) Get(ctx context.Context) (*model.Settings, error) {
	var s model.Settings
	if err := r.db.GetContext(ctx, &s, `SELECT * FROM settings WHERE id = 1`); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *settingsRepo) Save(ctx context.Context, s *model.Settings) error {
	s.ID = 1
	query := `
	UPDATE settings SET
		setup_complete = :setup_complete,
		setup_current_step = :setup_current_step,
		enable_query_cache = :enable_query_cache,
		cache_ttl_minutes = :cache_ttl_minutes,
		cache_max_entries = :cache_max_entries,
		default_daily_limit = :default_daily_limit,
		field_staff_daily_limit = :field_staff_daily_limit,
		executive_priority_roles = :executive_priority_roles,
		manager_priority_roles = :manager_priority_roles
	WHERE id = :id`
	_, err := r.db.NamedExecContext(ctx, query, s)
	return err
}

type templateRepo struct {
	db DB
}

func (r *templateRepo) Get(ctx context.Context, id string) (*model.PromptTemplate, error) {
	var t model.PromptTemplate
	if err := r.db.GetContext(ctx, &t, `SELECT * FROM prompt_templates WHERE id = ?`, id); err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *templateRepo) GetActive(ctx context.Context, tier string) (*model.PromptTemplate, error) {
	var t model.PromptTemplate
	query := `SELECT * FROM prompt_templates WHERE tier = ? AND is_active = 1 ORDER BY updated_at DESC LIMIT 1`
	err := r.db.GetContext(ctx, &t, query, tier)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil // no active template is not an error
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *templateRepo) List(ctx context.Context) ([]model.PromptTemplate, error) {
	var ts []model.PromptTemplate
	err := r.db.SelectContext(ctx, &ts, `SELECT * FROM prompt_templates ORDER BY tier, template_name`)
	return ts, err
}

func (r *templateRepo) Save(ctx context.Context, t *model.PromptTemplate) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	t.UpdatedAt = time.Now()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = t.UpdatedAt
	}
	query := `
	INSERT INTO prompt_templates (id, template_name, tier, prompt_content, is_active, created_at, updated_at)
	VALUES (:id, :template_name, :tier, :prompt_content, :is_active, :created_at, :updated_at)
	ON CONFLICT(id) DO UPDATE SET
		template_name = excluded.template_name,
		tier = excluded.tier,
		prompt_content = excluded.prompt_content,
		is_active = excluded.is_active,
		updated_at = excluded.updated_at`
	_, err := r.db.NamedExecContext(ctx, query, t)
	return err
}

// Activate marks one template active and deactivates the rest of its tier,
// so GetActive always sees at most one candidate per tier.
func (r *templateRepo) Activate(ctx context.Context, id string) error {
	var tier string
	if err := r.db.GetContext(ctx, &tier, `SELECT tier FROM prompt_templates WHERE id = ?`, id); err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx,
		`UPDATE prompt_templates SET is_active = 0, updated_at = ? WHERE tier = ?`, time.Now(), tier); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx,
		`UPDATE prompt_templates SET is_active = 1, updated_at = ? WHERE id = ?`, time.Now(), id)
	return err
}

func (r *templateRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM prompt_templates WHERE id = ?`, id)
	return err
}

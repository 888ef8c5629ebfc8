package prompt

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askerp/askerp-server/internal/store/model"
)

func TestRender(t *testing.T) {
	vars := map[string]string{"company_name": "Acme Pipes", "today": "2026-08-29"}

	out := Render("Report for {{company_name}} on {{today}}.", vars)
	assert.Equal(t, "Report for Acme Pipes on 2026-08-29.", out)

	// Unknown placeholders disappear rather than leaking into the prompt.
	out = Render("Hello {{unknown_var}}!", vars)
	assert.Equal(t, "Hello !", out)

	// Malformed braces are left alone.
	out = Render("{{not closed and {single}", vars)
	assert.Equal(t, "{{not closed and {single}", out)

	assert.Equal(t, "", Render("", vars))
}

func TestPlaceholders(t *testing.T) {
	names := Placeholders("{{a}} and {{b}} then {{a}} again")
	assert.Equal(t, []string{"a", "b"}, names)
}

func TestTierForRoles(t *testing.T) {
	assert.Equal(t, TierExecutive, TierForRoles([]string{"Sales User", "System Manager"}))
	assert.Equal(t, TierExecutive, TierForRoles([]string{"Administrator"}))
	assert.Equal(t, TierManagement, TierForRoles([]string{"Sales Manager"}))
	// Accounts Manager is executive in the default priority lists.
	assert.Equal(t, TierExecutive, TierForRoles([]string{"Sales User", "Accounts Manager"}))
	assert.Equal(t, TierField, TierForRoles([]string{"Sales User", "Stock User"}))
	assert.Equal(t, TierField, TierForRoles(nil))
	// Executive wins even when management roles are also present.
	assert.Equal(t, TierExecutive, TierForRoles([]string{"Sales Manager", "System Manager"}))
}

func TestRoleSetsFromSettings(t *testing.T) {
	settings := &model.Settings{
		ExecutivePriorityRoles: "CEO, CFO",
		ManagerPriorityRoles:   "Branch Manager",
	}
	sets := RoleSetsFrom(settings)

	assert.Equal(t, TierExecutive, sets.TierFor([]string{"CFO"}))
	assert.Equal(t, TierManagement, sets.TierFor([]string{"Branch Manager"}))
	// A role promoted out of the defaults no longer resolves.
	assert.Equal(t, TierField, sets.TierFor([]string{"Sales Manager"}))
	// System Manager and Administrator stay executive regardless of config.
	assert.Equal(t, TierExecutive, sets.TierFor([]string{"System Manager"}))
	assert.Equal(t, TierExecutive, sets.TierFor([]string{"Administrator"}))

	// Blank lists fall back to the defaults.
	sets = RoleSetsFrom(&model.Settings{})
	assert.Equal(t, TierExecutive, sets.TierFor([]string{"Accounts Manager"}))
	assert.Equal(t, TierManagement, sets.TierFor([]string{"Stock Manager"}))
}

func TestParseRoles(t *testing.T) {
	assert.Equal(t, []string{"Sales User", "Sales Manager"}, ParseRoles(`["Sales User","Sales Manager"]`))
	assert.Nil(t, ParseRoles(""))
	assert.Nil(t, ParseRoles("not json"))
}

func testProfile() *model.Profile {
	return &model.Profile{
		CompanyName:        "Sharma Steel Works",
		TradingName:        "Sharma Steels",
		Industry:           "Manufacturing",
		Location:           "Pune, India",
		Currency:           "INR",
		FinancialYearStart: "04-01",
		NumberFormat:       "Indian (Lakhs, Crores)",
		WhatYouSell:        "Steel pipes and fittings",
		PaymentTerms:       "30 days",
	}
}

func testUser() *model.User {
	return &model.User{
		ID:       "priya@sharmasteel.in",
		FullName: "Priya Sharma",
		Roles:    `["System Manager","Accounts Manager"]`,
	}
}

func TestVariablesTimeContext(t *testing.T) {
	now := time.Date(2026, time.August, 29, 10, 30, 0, 0, time.UTC)
	vars := Variables(testUser(), testProfile(), TierExecutive, now)

	assert.Equal(t, "2026-08-29", vars["today"])
	assert.Equal(t, "August 2026", vars["current_month"])
	assert.Equal(t, "2026-08-01", vars["month_start"])
	assert.Equal(t, "2026-07-01", vars["last_month_start"])
	assert.Equal(t, "2026-07-31", vars["last_month_end"])

	// April-start FY: August is Q2 of FY 2026-27.
	assert.Equal(t, "FY 2026-27", vars["fy_label"])
	assert.Equal(t, "2026-04-01", vars["fy_start"])
	assert.Equal(t, "2027-03-31", vars["fy_end"])
	assert.Equal(t, "2", vars["fy_q"])
	assert.Equal(t, "2026-07-01", vars["q_from"])
	assert.Equal(t, "2026-09-30", vars["q_to"])
	assert.Equal(t, "FY 2025-26", vars["prev_fy_label"])

	assert.Equal(t, "2025-08-01", vars["smly_start"])
	assert.Equal(t, "2025-08-31", vars["smly_end"])
}

func TestVariablesUserAndCompany(t *testing.T) {
	now := time.Date(2026, time.January, 15, 9, 0, 0, 0, time.UTC)
	vars := Variables(testUser(), testProfile(), TierExecutive, now)

	assert.Equal(t, "Priya Sharma", vars["user_name"])
	assert.Equal(t, "priya@sharmasteel.in", vars["user_id"])
	assert.Equal(t, "System Manager, Accounts Manager", vars["user_roles"])
	assert.Equal(t, "executive", vars["prompt_tier"])
	assert.Equal(t, "Sharma Steels", vars["trading_name"])

	// January sits in the previous April-start FY.
	assert.Equal(t, "FY 2025-26", vars["fy_label"])
	assert.Equal(t, "4", vars["fy_q"])
}

func TestVariablesFallbacks(t *testing.T) {
	u := &model.User{ID: "ops@example.com"}
	p := &model.Profile{CompanyName: "Acme"}
	vars := Variables(u, p, TierField, time.Now())

	assert.Equal(t, "ops@example.com", vars["user_name"], "full name falls back to user id")
	assert.Equal(t, "Acme", vars["trading_name"], "trading name falls back to company name")
	assert.Equal(t, "field", vars["prompt_tier"])
}

func TestDefaultTemplates(t *testing.T) {
	for _, tier := range []string{TierExecutive, TierManagement, TierField} {
		tpl := DefaultTemplate(tier)
		require.NotEmpty(t, tpl)
		assert.Greater(t, len(tpl), minRenderedLength)
		assert.Contains(t, tpl, "{{today}}")
		assert.Contains(t, tpl, "{{number_format}}")
	}
	assert.Equal(t, DefaultTemplate(TierManagement), DefaultTemplate("Custom"))
}

type fakeTemplates struct {
	active map[string]*model.PromptTemplate
}

func (f *fakeTemplates) Get(context.Context, string) (*model.PromptTemplate, error) { return nil, nil }
func (f *fakeTemplates) GetActive(_ context.Context, tier string) (*model.PromptTemplate, error) {
	return f.active[tier], nil
}
func (f *fakeTemplates) List(context.Context) ([]model.PromptTemplate, error) { return nil, nil }
func (f *fakeTemplates) Save(context.Context, *model.PromptTemplate) error    { return nil }
func (f *fakeTemplates) Delete(context.Context, string) error                 { return nil }
func (f *fakeTemplates) Activate(context.Context, string) error               { return nil }

type fakeProfiles struct{ p *model.Profile }

func (f *fakeProfiles) Get(context.Context) (*model.Profile, error) { return f.p, nil }
func (f *fakeProfiles) Save(context.Context, *model.Profile) error  { return nil }

type fakeSettings struct{ s *model.Settings }

func (f *fakeSettings) Get(context.Context) (*model.Settings, error) { return f.s, nil }
func (f *fakeSettings) Save(context.Context, *model.Settings) error  { return nil }

type fakeMetrics struct{ lines []string }

func (f *fakeMetrics) PromptLines(context.Context, string) ([]string, error) { return f.lines, nil }

func newTestService(active map[string]*model.PromptTemplate) *Service {
	return &Service{
		templates: &fakeTemplates{active: active},
		profiles:  &fakeProfiles{p: testProfile()},
		settings:  &fakeSettings{s: &model.Settings{}},
		objects:   nil, // nil object cache degrades to always-miss
		now: func() time.Time {
			return time.Date(2026, time.August, 29, 10, 0, 0, 0, time.UTC)
		},
	}
}

func TestSystemPromptUsesActiveTemplate(t *testing.T) {
	active := map[string]*model.PromptTemplate{
		TierExecutive: {
			Tier:          TierExecutive,
			IsActive:      true,
			PromptContent: "Custom prompt for {{company_name}} on {{today}}. " + DefaultTemplate(TierField),
		},
	}
	svc := newTestService(active)

	out, err := svc.SystemPrompt(context.Background(), testUser())
	require.NoError(t, err)
	assert.Contains(t, out, "Custom prompt for Sharma Steel Works on 2026-08-29.")
}

func TestSystemPromptFallsBackWhenNoActiveTemplate(t *testing.T) {
	svc := newTestService(nil)

	out, err := svc.SystemPrompt(context.Background(), testUser())
	require.NoError(t, err)
	assert.Contains(t, out, "Sharma Steels", "default executive template rendered with profile data")
	assert.NotContains(t, out, "{{", "no unrendered placeholders")
}

func TestSystemPromptFallsBackWhenRenderedTooShort(t *testing.T) {
	active := map[string]*model.PromptTemplate{
		TierExecutive: {Tier: TierExecutive, IsActive: true, PromptContent: "{{today}}"},
	}
	svc := newTestService(active)

	out, err := svc.SystemPrompt(context.Background(), testUser())
	require.NoError(t, err)
	assert.Greater(t, len(out), minRenderedLength)
	assert.Contains(t, out, "executive intelligence engine")
}

func TestSystemPromptInjectsCachedMetrics(t *testing.T) {
	svc := newTestService(nil)
	svc.metrics = &fakeMetrics{lines: []string{
		"Monthly Revenue: ₹12.50 L",
		"Outstanding Receivables: ₹3.20 L",
	}}

	out, err := svc.SystemPrompt(context.Background(), testUser())
	require.NoError(t, err)
	assert.Contains(t, out, "Monthly Revenue: ₹12.50 L")
	assert.Contains(t, out, "Outstanding Receivables: ₹3.20 L")
}

func TestSystemPromptTierFollowsSettings(t *testing.T) {
	svc := newTestService(nil)
	svc.settings = &fakeSettings{s: &model.Settings{ManagerPriorityRoles: "Team Lead"}}

	u := &model.User{ID: "lead@example.com", Roles: `["Team Lead"]`}
	out, err := svc.SystemPrompt(context.Background(), u)
	require.NoError(t, err)
	assert.Contains(t, out, "operations assistant", "configured role resolves to the management template")
}

package sqlite_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askerp/askerp-server/internal/store"
	"github.com/askerp/askerp-server/internal/store/model"
	"github.com/askerp/askerp-server/internal/store/sqlite"
)

func newTestRepo(t *testing.T) store.Repository {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "store.db") + "?_journal_mode=WAL"
	repo, err := sqlite.NewStorage(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestProfileSingletonDefaults(t *testing.T) {
	repo := newTestRepo(t)
	ctx := t.Context()

	p, err := repo.Profile().Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, p.ID)
	assert.Equal(t, "INR", p.Currency)
	assert.Equal(t, "Indian (Lakhs, Crores)", p.NumberFormat)
	assert.Equal(t, "04-01", p.FinancialYearStart)

	p.CompanyName = "Sharma Traders"
	require.NoError(t, repo.Profile().Save(ctx, p))

	again, err := repo.Profile().Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Sharma Traders", again.CompanyName)
	assert.Equal(t, "INR", again.Currency)
}

func TestSettingsSingleton(t *testing.T) {
	repo := newTestRepo(t)
	ctx := t.Context()

	s, err := repo.Settings().Get(ctx)
	require.NoError(t, err)
	assert.False(t, s.SetupComplete)
	assert.Equal(t, 0, s.SetupCurrentStep)

	s.SetupComplete = true
	s.SetupCurrentStep = 5
	require.NoError(t, repo.Settings().Save(ctx, s))

	again, err := repo.Settings().Get(ctx)
	require.NoError(t, err)
	assert.True(t, again.SetupComplete)
	assert.Equal(t, 5, again.SetupCurrentStep)
}

func TestAlertSaveCoercesInvalidInput(t *testing.T) {
	repo := newTestRepo(t)
	ctx := t.Context()

	rule := &model.AlertRule{
		UserID:            "staff@example.com",
		AlertName:         "Receivables spike",
		QueryDoctype:      "Sales Invoice",
		QueryField:        "outstanding_amount",
		ThresholdOperator: ">",
		ThresholdValue:    500000,
		Frequency:         "every-minute", // invalid, coerced to daily
	}
	require.NoError(t, repo.Alerts().Save(ctx, rule))
	require.NotEmpty(t, rule.ID)

	saved, err := repo.Alerts().Get(ctx, rule.ID)
	require.NoError(t, err)
	assert.Equal(t, "daily", saved.Frequency)
	assert.Equal(t, "SUM", saved.QueryAggregation)
	assert.Equal(t, "{}", saved.QueryFilters)
	assert.True(t, saved.Active)
}

func TestAlertSaveRejectsMissingFields(t *testing.T) {
	repo := newTestRepo(t)
	ctx := t.Context()

	err := repo.Alerts().Save(ctx, &model.AlertRule{QueryDoctype: "Sales Invoice"})
	assert.ErrorContains(t, err, "name is required")

	err = repo.Alerts().Save(ctx, &model.AlertRule{AlertName: "No doctype"})
	assert.ErrorContains(t, err, "doctype")
}

func TestAlertListDueFiltersByFrequencyAndActive(t *testing.T) {
	repo := newTestRepo(t)
	ctx := t.Context()

	daily := &model.AlertRule{UserID: "u1", AlertName: "Daily", QueryDoctype: "Sales Invoice",
		QueryField: "grand_total", ThresholdOperator: ">", Frequency: "daily"}
	hourly := &model.AlertRule{UserID: "u1", AlertName: "Hourly", QueryDoctype: "Sales Invoice",
		QueryField: "grand_total", ThresholdOperator: ">", Frequency: "hourly"}
	require.NoError(t, repo.Alerts().Save(ctx, daily))
	require.NoError(t, repo.Alerts().Save(ctx, hourly))

	hourly.Active = false
	require.NoError(t, repo.Alerts().Save(ctx, hourly))

	due, err := repo.Alerts().ListDue(ctx, "daily")
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "Daily", due[0].AlertName)

	due, err = repo.Alerts().ListDue(ctx, "hourly")
	require.NoError(t, err)
	assert.Empty(t, due)
}

func TestModelSaveValidation(t *testing.T) {
	repo := newTestRepo(t)
	ctx := t.Context()

	err := repo.Models().Save(ctx, &model.Model{ModelID: "m", Provider: "Anthropic", Tier: "Field"})
	assert.ErrorIs(t, err, sqlite.ErrModelNameRequired)

	err = repo.Models().Save(ctx, &model.Model{ModelName: "M", ModelID: "m", Provider: "Anthropic"})
	assert.ErrorIs(t, err, sqlite.ErrTierRequired)

	err = repo.Models().Save(ctx, &model.Model{
		ModelName: "M", ModelID: "m", Provider: "Anthropic", Tier: "Field",
		RateLimits: []model.ModelRateLimit{
			{Role: "System Manager", DailyLimit: 10},
			{Role: "System Manager", DailyLimit: 20},
		},
	})
	assert.ErrorContains(t, err, "duplicate role")
}

func TestModelSaveFillsDefaultsAndRateLimits(t *testing.T) {
	repo := newTestRepo(t)
	ctx := t.Context()

	m := &model.Model{
		ModelName: "Claude Haiku 4.5",
		ModelID:   "claude-haiku-4-5-20251001",
		Provider:  "Anthropic",
		Tier:      "Field",
		RateLimits: []model.ModelRateLimit{
			{Role: "System Manager", DailyLimit: 200},
			{Role: "Sales Manager", DailyLimit: 80},
		},
	}
	require.NoError(t, repo.Models().Save(ctx, m))

	saved, err := repo.Models().Get(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, "2023-06-01", saved.APIVersion)
	assert.Equal(t, "Not Tested", saved.TestStatus)
	assert.Len(t, saved.RateLimits, 2)

	// Re-saving replaces rate limits wholesale.
	m.RateLimits = []model.ModelRateLimit{{Role: "System Manager", DailyLimit: 500}}
	require.NoError(t, repo.Models().Save(ctx, m))
	saved, err = repo.Models().Get(ctx, m.ID)
	require.NoError(t, err)
	require.Len(t, saved.RateLimits, 1)
	assert.Equal(t, 500, saved.RateLimits[0].DailyLimit)
}

func TestSetAPIKeyEnablesProviderModels(t *testing.T) {
	repo := newTestRepo(t)
	ctx := t.Context()

	require.NoError(t, repo.Models().Save(ctx, &model.Model{
		ModelName: "Haiku", ModelID: "haiku", Provider: "Anthropic", Tier: "Field"}))
	require.NoError(t, repo.Models().Save(ctx, &model.Model{
		ModelName: "Flash", ModelID: "flash", Provider: "Google", Tier: "Field"}))

	n, err := repo.Models().SetAPIKey(ctx, "Anthropic", "sk-ant-abc")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	anthropic, err := repo.Models().ListByProvider(ctx, "Anthropic")
	require.NoError(t, err)
	require.Len(t, anthropic, 1)
	assert.True(t, anthropic[0].Enabled)

	google, err := repo.Models().ListByProvider(ctx, "Google")
	require.NoError(t, err)
	require.Len(t, google, 1)
	assert.False(t, google[0].Enabled)
}

func TestTemplateActivateIsExclusivePerTier(t *testing.T) {
	repo := newTestRepo(t)
	ctx := t.Context()

	first := &model.PromptTemplate{TemplateName: "A", Tier: "Field", PromptContent: "one", IsActive: true}
	second := &model.PromptTemplate{TemplateName: "B", Tier: "Field", PromptContent: "two"}
	other := &model.PromptTemplate{TemplateName: "C", Tier: "Executive", PromptContent: "three", IsActive: true}
	require.NoError(t, repo.Templates().Save(ctx, first))
	require.NoError(t, repo.Templates().Save(ctx, second))
	require.NoError(t, repo.Templates().Save(ctx, other))

	require.NoError(t, repo.Templates().Activate(ctx, second.ID))

	active, err := repo.Templates().GetActive(ctx, "Field")
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, second.ID, active.ID)

	// Other tiers keep their own active template.
	exec, err := repo.Templates().GetActive(ctx, "Executive")
	require.NoError(t, err)
	require.NotNil(t, exec)
	assert.Equal(t, other.ID, exec.ID)
}

func TestBusinessMirror(t *testing.T) {
	repo := newTestRepo(t)
	ctx := t.Context()

	err := repo.Business().Upsert(ctx, "Sales Invoice", "SINV-0001", map[string]interface{}{
		"customer": "Acme Traders", "grand_total": 100000.0,
		"outstanding_amount": 40000.0, "docstatus": 1,
	})
	require.NoError(t, err)

	// Upsert on the same name updates in place.
	err = repo.Business().Upsert(ctx, "Sales Invoice", "SINV-0001", map[string]interface{}{
		"outstanding_amount": 0.0,
	})
	require.NoError(t, err)

	count, err := repo.Business().Count(ctx, "Sales Invoice", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	total, err := repo.Business().Aggregate(ctx, "Sales Invoice", "outstanding_amount", "SUM", nil)
	require.NoError(t, err)
	assert.Equal(t, 0.0, total)

	// Unknown doctypes and columns are rejected.
	err = repo.Business().Upsert(ctx, "Journal Entry", "JE-0001", nil)
	assert.ErrorContains(t, err, "unknown doctype")

	err = repo.Business().Upsert(ctx, "Sales Invoice", "SINV-0002", map[string]interface{}{
		"nonsense_column": 1,
	})
	assert.ErrorContains(t, err, "not a column")

	require.NoError(t, repo.Business().Remove(ctx, "Sales Invoice", "SINV-0001"))
	count, err = repo.Business().Count(ctx, "Sales Invoice", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func TestBusinessCountWithFilters(t *testing.T) {
	repo := newTestRepo(t)
	ctx := t.Context()

	for _, doc := range []struct {
		name     string
		customer string
	}{
		{"SINV-0001", "Acme Traders"},
		{"SINV-0002", "Acme Traders"},
		{"SINV-0003", "Bharat Supplies"},
	} {
		require.NoError(t, repo.Business().Upsert(ctx, "Sales Invoice", doc.name,
			map[string]interface{}{"customer": doc.customer, "docstatus": 1}))
	}

	count, err := repo.Business().Count(ctx, "Sales Invoice",
		map[string]interface{}{"customer": "Acme Traders"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	_, err = repo.Business().Count(ctx, "Sales Invoice",
		map[string]interface{}{"bad_field": 1})
	assert.ErrorContains(t, err, "not queryable")
}

func TestUsageAggregate(t *testing.T) {
	repo := newTestRepo(t)
	ctx := t.Context()

	logs := []model.UsageLog{
		{UserID: "u1", Question: "q1", Model: "haiku", InputTokens: 100, OutputTokens: 50, CostTotal: 0.01},
		{UserID: "u1", Question: "q2", Model: "haiku", InputTokens: 200, OutputTokens: 100, CostTotal: 0.02},
		{UserID: "u2", Question: "q3", Model: "sonnet", InputTokens: 1000, OutputTokens: 500, CostTotal: 0.10},
	}
	for i := range logs {
		require.NoError(t, repo.Usage().Log(ctx, &logs[i]))
	}

	// Log derives total tokens.
	assert.Equal(t, 150, logs[0].TotalTokens)

	all, err := repo.Usage().Aggregate(ctx, "", time.Time{})
	require.NoError(t, err)
	require.Len(t, all, 2)

	one, err := repo.Usage().Aggregate(ctx, "u1", time.Time{})
	require.NoError(t, err)
	require.Len(t, one, 1)
	assert.Equal(t, int64(450), one[0].TotalTokens)
	assert.Equal(t, int64(2), one[0].QueryCount)

	n, err := repo.Usage().CountSince(ctx, "u2", time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

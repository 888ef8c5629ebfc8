package v1_test

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/askerp/askerp-server/internal/alerts"
	"github.com/askerp/askerp-server/internal/cache"
	"github.com/askerp/askerp-server/internal/config"
	"github.com/askerp/askerp-server/internal/metrics"
	"github.com/askerp/askerp-server/internal/notify"
	"github.com/askerp/askerp-server/internal/prompt"
	"github.com/askerp/askerp-server/internal/providers"
	"github.com/askerp/askerp-server/internal/server"
	v1 "github.com/askerp/askerp-server/internal/server/v1"
	"github.com/askerp/askerp-server/internal/store"
	"github.com/askerp/askerp-server/internal/store/model"
	"github.com/askerp/askerp-server/internal/store/sqlite"
	"github.com/askerp/askerp-server/internal/tools"
)

const (
	adminKey = "sk-test-admin-key"
	staffKey = "sk-test-staff-key"
)

type testAPI struct {
	handler http.Handler
	repo    store.Repository
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := "file:" + filepath.Join(t.TempDir(), "api.db") + "?_journal_mode=WAL"
	repo, err := sqlite.NewStorage(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	seedUser(t, repo, "admin@example.com", `["System Manager"]`, adminKey)
	seedUser(t, repo, "staff@example.com", `["Sales User"]`, staffKey)

	queries := cache.NewQueryCache(nil, repo.Settings())
	objects := cache.NewObjectCache(nil)
	invalidator := cache.NewInvalidator(queries, objects)
	notifier := notify.New(repo.Notifications(), "")
	alertEngine := alerts.NewEngine(repo, notifier)
	runner := tools.NewRunner(repo, queries, alertEngine)
	handler := v1.NewHandler(repo, providers.NewClient(),
		prompt.NewService(repo, objects, metrics.NewEngine(repo)),
		runner, alertEngine, queries, invalidator)

	cfg := &config.Config{}
	cfg.Server.Env = "test"
	cfg.RateLimit.RequestsPerSecond = 100
	cfg.RateLimit.Burst = 100

	srv := server.New(cfg, zap.NewNop(), repo, handler)
	return &testAPI{handler: srv.Handler(), repo: repo}
}

func seedUser(t *testing.T, repo store.Repository, id, roles, rawKey string) {
	t.Helper()
	ctx := t.Context()
	require.NoError(t, repo.Users().Create(ctx, &model.User{
		ID: id, Email: id, FullName: id, Roles: roles, AllowChat: true, Enabled: true,
	}))
	hash := sha256.Sum256([]byte(rawKey))
	require.NoError(t, repo.APIKeys().Create(ctx, &model.APIKey{
		ID: id + "-key", UserID: id, Name: "test",
		KeyHash: hex.EncodeToString(hash[:]), KeyPrefix: rawKey[:8], IsActive: true,
	}))
}

func (a *testAPI) do(method, path, key string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	if key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	a.handler.ServeHTTP(w, req)
	return w
}

func TestHealthIsPublic(t *testing.T) {
	api := newTestAPI(t)
	w := api.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestAuthRequired(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(http.MethodGet, "/api/v1/setup/status", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = api.do(http.MethodGet, "/api/v1/setup/status", "sk-wrong", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdminGating(t *testing.T) {
	api := newTestAPI(t)

	adminOnly := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/api/v1/setup/complete"},
		{http.MethodGet, "/api/v1/setup/users"},
		{http.MethodGet, "/api/v1/models"},
		{http.MethodGet, "/api/v1/profile"},
		{http.MethodGet, "/api/v1/templates"},
		{http.MethodGet, "/api/v1/usage/daily"},
		{http.MethodGet, "/api/v1/cache/stats"},
	}
	for _, route := range adminOnly {
		w := api.do(route.method, route.path, staffKey, nil)
		assert.Equal(t, http.StatusForbidden, w.Code, "%s %s should be admin-only", route.method, route.path)
	}

	// The same routes work for the admin.
	w := api.do(http.MethodGet, "/api/v1/models", adminKey, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSetupStatusHidesWizardFromStaff(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(http.MethodGet, "/api/v1/setup/status", staffKey, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var status struct {
		SetupComplete bool `json:"setup_complete"`
		ShowWizard    bool `json:"show_wizard"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.True(t, status.SetupComplete)
	assert.False(t, status.ShowWizard)

	// Admin sees the real state: a fresh install shows the wizard.
	w = api.do(http.MethodGet, "/api/v1/setup/status", adminKey, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.False(t, status.SetupComplete)
	assert.True(t, status.ShowWizard)
}

func TestSetupWizardFlow(t *testing.T) {
	api := newTestAPI(t)
	ctx := t.Context()

	w := api.do(http.MethodPost, "/api/v1/setup/quick-profile", adminKey, gin.H{
		"company_name": "Sharma Traders",
		"industry":     "Distribution",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	settings, err := api.repo.Settings().Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, settings.SetupCurrentStep)

	w = api.do(http.MethodPost, "/api/v1/setup/bulk-enable", adminKey, gin.H{
		"users":   []string{"staff@example.com"},
		"enabled": true,
	})
	require.Equal(t, http.StatusOK, w.Code)

	// Steps never move backwards: bulk-enable set step 4, a repeat
	// quick-profile save must not rewind it.
	w = api.do(http.MethodPost, "/api/v1/setup/quick-profile", adminKey, gin.H{
		"company_name": "Sharma Traders",
	})
	require.Equal(t, http.StatusOK, w.Code)
	settings, err = api.repo.Settings().Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, settings.SetupCurrentStep)

	w = api.do(http.MethodPost, "/api/v1/setup/complete", adminKey, nil)
	require.Equal(t, http.StatusOK, w.Code)

	settings, err = api.repo.Settings().Get(ctx)
	require.NoError(t, err)
	assert.True(t, settings.SetupComplete)
	assert.Equal(t, 5, settings.SetupCurrentStep)

	w = api.do(http.MethodPost, "/api/v1/setup/reset", adminKey, nil)
	require.Equal(t, http.StatusOK, w.Code)
	settings, err = api.repo.Settings().Get(ctx)
	require.NoError(t, err)
	assert.False(t, settings.SetupComplete)
	assert.Equal(t, 0, settings.SetupCurrentStep)
}

func TestSaveKeyWithoutModels(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(http.MethodPost, "/api/v1/setup/save-key", adminKey, gin.H{
		"provider": "Anthropic",
		"api_key":  "sk-ant-something",
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestProfileSaveRecomputesCompleteness(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(http.MethodPut, "/api/v1/profile", adminKey, gin.H{
		"company_name":         "Sharma Traders",
		"industry":             "Distribution",
		"currency":             "INR",
		"profile_completeness": 100, // client value must be ignored
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Completeness int `json:"completeness"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Greater(t, resp.Completeness, 0)
	assert.Less(t, resp.Completeness, 100)
}

func TestAlertOwnership(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(http.MethodPost, "/api/v1/alerts", staffKey, gin.H{
		"alert_name":         "Low collections",
		"query_doctype":      "Payment Entry",
		"query_field":        "paid_amount",
		"query_aggregation":  "sum",
		"threshold_operator": "<",
		"threshold_value":    10000,
		"frequency":          "daily",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var created struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	require.NotEmpty(t, created.ID)

	rule, err := api.repo.Alerts().Get(t.Context(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, "staff@example.com", rule.UserID)
	assert.True(t, rule.Active)

	// Each user lists only their own rules.
	w = api.do(http.MethodGet, "/api/v1/alerts", adminKey, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var listed struct {
		Data []model.AlertRule `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listed))
	assert.Empty(t, listed.Data)

	// Admins may delete anyone's rule.
	w = api.do(http.MethodDelete, "/api/v1/alerts/"+created.ID, adminKey, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAlertUpdateRequiresOwnership(t *testing.T) {
	api := newTestAPI(t)
	otherKey := "sk-test-other-key"
	seedUser(t, api.repo, "other@example.com", `["Purchase User"]`, otherKey)

	payload := gin.H{
		"alert_name":         "Low collections",
		"query_doctype":      "Payment Entry",
		"query_field":        "paid_amount",
		"query_aggregation":  "sum",
		"threshold_operator": "<",
		"threshold_value":    10000,
		"frequency":          "daily",
	}
	w := api.do(http.MethodPost, "/api/v1/alerts", staffKey, payload)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var created struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	// Another non-admin user cannot rewrite the rule through PUT.
	hijack := gin.H{
		"alert_name":         "Hijacked",
		"query_doctype":      "Sales Invoice",
		"query_field":        "grand_total",
		"threshold_operator": ">",
		"frequency":          "hourly",
	}
	w = api.do(http.MethodPut, "/api/v1/alerts/"+created.ID, otherKey, hijack)
	assert.Equal(t, http.StatusForbidden, w.Code, w.Body.String())

	rule, err := api.repo.Alerts().Get(t.Context(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, "staff@example.com", rule.UserID)
	assert.Equal(t, "Low collections", rule.AlertName)
	assert.Equal(t, "Payment Entry", rule.QueryDoctype)

	// Unknown ids are a 404, not a silent insert.
	w = api.do(http.MethodPut, "/api/v1/alerts/no-such-rule", otherKey, hijack)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// The owner and admins may update.
	payload["alert_name"] = "Low collections v2"
	w = api.do(http.MethodPut, "/api/v1/alerts/"+created.ID, staffKey, payload)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = api.do(http.MethodPut, "/api/v1/alerts/"+created.ID, adminKey, payload)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestReportOwnership(t *testing.T) {
	api := newTestAPI(t)
	otherKey := "sk-test-other-key"
	seedUser(t, api.repo, "other@example.com", `["Purchase User"]`, otherKey)

	payload := gin.H{
		"report_name":  "Weekly sales",
		"report_query": "Total sales by customer for last week",
		"frequency":    "weekly",
	}
	w := api.do(http.MethodPost, "/api/v1/reports", staffKey, payload)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var created struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	require.NotEmpty(t, created.ID)

	// Another non-admin user may neither rewrite nor delete it.
	w = api.do(http.MethodPut, "/api/v1/reports/"+created.ID, otherKey, gin.H{
		"report_name":  "Hijacked",
		"report_query": "Everything",
	})
	assert.Equal(t, http.StatusForbidden, w.Code, w.Body.String())
	w = api.do(http.MethodDelete, "/api/v1/reports/"+created.ID, otherKey, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	report, err := api.repo.Reports().Get(t.Context(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, "staff@example.com", report.UserID)
	assert.Equal(t, "Weekly sales", report.ReportName)

	w = api.do(http.MethodPut, "/api/v1/reports/no-such-report", otherKey, payload)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// The owner updates, an admin deletes.
	w = api.do(http.MethodPut, "/api/v1/reports/"+created.ID, staffKey, payload)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = api.do(http.MethodDelete, "/api/v1/reports/"+created.ID, adminKey, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestToolExecutionOverHTTP(t *testing.T) {
	api := newTestAPI(t)
	ctx := t.Context()

	require.NoError(t, api.repo.Business().Upsert(ctx, "Sales Invoice", "SINV-0001", map[string]interface{}{
		"customer": "Acme Traders", "grand_total": 150000.0, "docstatus": 1,
	}))

	w := api.do(http.MethodPost, "/api/v1/tools/count_records", staffKey, gin.H{
		"input": gin.H{"doctype": "Sales Invoice"},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var out struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.Equal(t, 1, out.Count)

	// Unknown tools surface as errors inside the result payload.
	w = api.do(http.MethodPost, "/api/v1/tools/explode_database", staffKey, gin.H{
		"input": gin.H{},
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "error")
}

func TestToolsRequireChatAccess(t *testing.T) {
	api := newTestAPI(t)
	ctx := t.Context()

	_, err := api.repo.Users().SetAllowChat(ctx, []string{"staff@example.com"}, false)
	require.NoError(t, err)

	w := api.do(http.MethodPost, "/api/v1/tools/count_records", staffKey, gin.H{
		"input": gin.H{"doctype": "Sales Invoice"},
	})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestDailyQueryLimitEnforced(t *testing.T) {
	api := newTestAPI(t)
	ctx := t.Context()

	settings, err := api.repo.Settings().Get(ctx)
	require.NoError(t, err)
	settings.FieldStaffDailyLimit = 2
	require.NoError(t, api.repo.Settings().Save(ctx, settings))

	body := gin.H{"input": gin.H{"doctype": "Sales Invoice"}}
	for i := 0; i < 2; i++ {
		w := api.do(http.MethodPost, "/api/v1/tools/count_records", staffKey, body)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}

	// Each execution writes a usage row, so the third one is over the cap.
	used, err := api.repo.Usage().CountSince(ctx, "staff@example.com", time.Time{})
	require.NoError(t, err)
	require.Equal(t, 2, used)

	w := api.do(http.MethodPost, "/api/v1/tools/count_records", staffKey, body)
	assert.Equal(t, http.StatusTooManyRequests, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "Daily query limit")

	// The non-field admin still resolves the default limit.
	w = api.do(http.MethodPost, "/api/v1/tools/count_records", adminKey, body)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestDocEventMirrorsAndRemoves(t *testing.T) {
	api := newTestAPI(t)
	ctx := t.Context()

	w := api.do(http.MethodPost, "/api/v1/doc-events", adminKey, gin.H{
		"doctype": "Sales Invoice",
		"name":    "SINV-0100",
		"action":  "submit",
		"fields":  gin.H{"customer": "Acme Traders", "grand_total": 90000.0, "docstatus": 1},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	count, err := api.repo.Business().Count(ctx, "Sales Invoice", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	w = api.do(http.MethodPost, "/api/v1/doc-events", adminKey, gin.H{
		"doctype": "Sales Invoice",
		"name":    "SINV-0100",
		"action":  "cancel",
	})
	require.Equal(t, http.StatusOK, w.Code)

	count, err = api.repo.Business().Count(ctx, "Sales Invoice", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

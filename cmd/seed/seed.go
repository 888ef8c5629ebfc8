// Seed populates a fresh database with the default model registry,
// built-in prompt templates, settings, and an admin user with an API
// key. Safe to re-run: existing rows are left alone.
package main

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"flag"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/askerp/askerp-server/internal/prompt"
	"github.com/askerp/askerp-server/internal/store"
	"github.com/askerp/askerp-server/internal/store/model"
	"github.com/askerp/askerp-server/internal/store/sqlite"
)

func main() {
	dsn := flag.String("dsn", "file:askerp.db?cache=shared&mode=rwc&_journal_mode=WAL&_busy_timeout=5000", "sqlite DSN")
	adminEmail := flag.String("admin", "admin@example.com", "admin user email")
	demo := flag.Bool("demo", false, "also seed demo business documents")
	flag.Parse()

	repo, err := sqlite.NewStorage(*dsn)
	if err != nil {
		log.Fatal(err)
	}
	defer repo.Close()

	ctx := context.Background()

	seedModels(ctx, repo)
	seedTemplates(ctx, repo)
	seedMetrics(ctx, repo)
	seedAdmin(ctx, repo, *adminEmail)
	if *demo {
		seedDemoDocuments(ctx, repo)
	}

	fmt.Println("Seed complete.")
}

func seedModels(ctx context.Context, repo store.Repository) {
	models := []model.Model{
		{
			ModelName:            "Claude Haiku 4.5",
			ModelID:              "claude-haiku-4-5-20251001",
			Provider:             "Anthropic",
			Tier:                 "Field",
			Enabled:              true,
			APIBaseURL:           "https://api.anthropic.com/v1/messages",
			APIVersion:           "2023-06-01",
			MaxOutputTokens:      4096,
			SupportsStreaming:    true,
			InputCostPerMillion:  0.80,
			OutputCostPerMillion: 4.00,
			CacheReadCostPerM:    0.08,
			CacheWriteCostPerM:   1.00,
			RateLimits: []model.ModelRateLimit{
				{Role: "System Manager", DailyLimit: 200},
				{Role: "Accounts Manager", DailyLimit: 100},
				{Role: "Sales Manager", DailyLimit: 80},
			},
		},
		{
			ModelName:            "Claude Sonnet 4.5",
			ModelID:              "claude-sonnet-4-5-20250929",
			Provider:             "Anthropic",
			Tier:                 "Management",
			Enabled:              true,
			APIBaseURL:           "https://api.anthropic.com/v1/messages",
			APIVersion:           "2023-06-01",
			MaxOutputTokens:      8192,
			SupportsStreaming:    true,
			SupportsThinking:     true,
			InputCostPerMillion:  3.00,
			OutputCostPerMillion: 15.00,
			CacheReadCostPerM:    0.30,
			CacheWriteCostPerM:   3.75,
			RateLimits: []model.ModelRateLimit{
				{Role: "System Manager", DailyLimit: 150},
				{Role: "Accounts Manager", DailyLimit: 50},
				{Role: "Sales Manager", DailyLimit: 30},
			},
		},
		{
			ModelName:            "Claude Opus 4.5",
			ModelID:              "claude-opus-4-5-20251101",
			Provider:             "Anthropic",
			Tier:                 "Executive",
			Enabled:              true,
			APIBaseURL:           "https://api.anthropic.com/v1/messages",
			APIVersion:           "2023-06-01",
			MaxOutputTokens:      8192,
			SupportsStreaming:    true,
			SupportsThinking:     true,
			InputCostPerMillion:  15.00,
			OutputCostPerMillion: 75.00,
			CacheReadCostPerM:    1.50,
			CacheWriteCostPerM:   18.75,
			RateLimits: []model.ModelRateLimit{
				{Role: "System Manager", DailyLimit: 50},
			},
		},
		{
			ModelName:            "Gemini 2.0 Flash",
			ModelID:              "gemini-2.0-flash",
			Provider:             "Google",
			Tier:                 "Field",
			APIBaseURL:           "https://generativelanguage.googleapis.com/v1beta/models",
			MaxOutputTokens:      4096,
			InputCostPerMillion:  0.10,
			OutputCostPerMillion: 0.40,
			RateLimits: []model.ModelRateLimit{
				{Role: "System Manager", DailyLimit: 300},
			},
		},
	}

	existing, err := repo.Models().List(ctx)
	if err != nil {
		log.Fatal(err)
	}
	have := make(map[string]bool, len(existing))
	for _, m := range existing {
		have[m.ModelID] = true
	}

	for i := range models {
		if have[models[i].ModelID] {
			continue
		}
		if err := repo.Models().Save(ctx, &models[i]); err != nil {
			log.Fatalf("seeding model %s: %v", models[i].ModelID, err)
		}
		fmt.Printf("Created model: %s\n", models[i].ModelName)
	}
}

func seedTemplates(ctx context.Context, repo store.Repository) {
	existing, err := repo.Templates().List(ctx)
	if err != nil {
		log.Fatal(err)
	}
	have := make(map[string]bool)
	for _, t := range existing {
		have[t.Tier] = true
	}

	for _, tier := range []string{"Executive", "Management", "Field"} {
		if have[tier] {
			continue
		}
		t := &model.PromptTemplate{
			TemplateName:  "Default " + tier,
			Tier:          tier,
			PromptContent: prompt.DefaultTemplate(tier),
			IsActive:      false, // built-in fallback applies until admin activates one
		}
		if err := repo.Templates().Save(ctx, t); err != nil {
			log.Fatalf("seeding template for %s: %v", tier, err)
		}
		fmt.Printf("Created template: %s\n", t.TemplateName)
	}
}

// seedMetrics installs the default precomputed metric definitions. The
// scheduler refreshes their values; the prompt assembler injects them as
// the business snapshot.
func seedMetrics(ctx context.Context, repo store.Repository) {
	existing, err := repo.Metrics().ListActive(ctx)
	if err != nil {
		log.Fatal(err)
	}
	have := make(map[string]bool)
	for _, m := range existing {
		have[m.MetricName] = true
	}

	sqlStr := func(s string) sql.NullString { return sql.NullString{String: s, Valid: true} }
	metrics := []model.CachedMetric{
		{
			MetricName: "Monthly Revenue",
			Category:   "Revenue",
			QueryType:  "SQL",
			SQLQuery: sqlStr(`SELECT COALESCE(SUM(grand_total), 0) FROM sales_invoices
				WHERE docstatus = 1 AND posting_date >= '{month_start}' AND posting_date <= '{today}'`),
		},
		{
			MetricName: "FY Revenue",
			Category:   "Revenue",
			QueryType:  "SQL",
			SQLQuery: sqlStr(`SELECT COALESCE(SUM(grand_total), 0) FROM sales_invoices
				WHERE docstatus = 1 AND posting_date >= '{fy_start}' AND posting_date <= '{today}'`),
		},
		{
			MetricName: "Outstanding Receivables",
			Category:   "Receivables",
			QueryType:  "SQL",
			SQLQuery: sqlStr(`SELECT COALESCE(SUM(outstanding_amount), 0) FROM sales_invoices
				WHERE docstatus = 1 AND outstanding_amount > 0`),
		},
		{
			MetricName: "Monthly Collections",
			Category:   "Collections",
			QueryType:  "SQL",
			SQLQuery: sqlStr(`SELECT COALESCE(SUM(paid_amount), 0) FROM payment_entries
				WHERE docstatus = 1 AND posting_date >= '{month_start}' AND posting_date <= '{today}'`),
		},
		{
			MetricName: "Monthly Purchases",
			Category:   "Purchases",
			QueryType:  "SQL",
			SQLQuery: sqlStr(`SELECT COALESCE(SUM(grand_total), 0) FROM purchase_invoices
				WHERE docstatus = 1 AND posting_date >= '{month_start}' AND posting_date <= '{today}'`),
		},
	}

	created := 0
	for i := range metrics {
		if have[metrics[i].MetricName] {
			continue
		}
		metrics[i].Active = true
		if err := repo.Metrics().Save(ctx, &metrics[i]); err != nil {
			log.Fatalf("seeding metric %s: %v", metrics[i].MetricName, err)
		}
		created++
	}
	if created > 0 {
		fmt.Printf("Created %d metric definitions\n", created)
	}
}

func seedAdmin(ctx context.Context, repo store.Repository, email string) {
	if _, err := repo.Users().Get(ctx, email); err == nil {
		return
	}

	user := &model.User{
		ID:        email,
		Email:     email,
		FullName:  "Administrator",
		Roles:     `["System Manager"]`,
		AllowChat: true,
		Enabled:   true,
	}
	if err := repo.Users().Create(ctx, user); err != nil {
		log.Fatal(err)
	}

	rawKey := "sk-askerp-" + uuid.NewString()
	hash := sha256.Sum256([]byte(rawKey))
	key := &model.APIKey{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		Name:      "Admin Key",
		KeyHash:   hex.EncodeToString(hash[:]),
		KeyPrefix: rawKey[:16],
		IsActive:  true,
	}
	if err := repo.APIKeys().Create(ctx, key); err != nil {
		log.Fatal(err)
	}

	fmt.Printf("Created admin user: %s\n", email)
	fmt.Printf("API key (store it now, it is not recoverable): %s\n", rawKey)
}

func seedDemoDocuments(ctx context.Context, repo store.Repository) {
	docs := []struct {
		doctype string
		name    string
		fields  map[string]interface{}
	}{
		{"Sales Invoice", "SINV-DEMO-0001", map[string]interface{}{
			"customer": "Acme Traders", "posting_date": "2026-08-20",
			"grand_total": 150000.0, "outstanding_amount": 50000.0, "docstatus": 1,
		}},
		{"Sales Invoice", "SINV-DEMO-0002", map[string]interface{}{
			"customer": "Bharat Supplies", "posting_date": "2026-08-25",
			"grand_total": 85000.0, "outstanding_amount": 0.0, "docstatus": 1,
		}},
		{"Purchase Invoice", "PINV-DEMO-0001", map[string]interface{}{
			"supplier": "Steel Mart", "posting_date": "2026-08-18",
			"grand_total": 60000.0, "outstanding_amount": 20000.0, "docstatus": 1,
		}},
		{"Payment Entry", "PE-DEMO-0001", map[string]interface{}{
			"party": "Acme Traders", "posting_date": "2026-08-26",
			"paid_amount": 100000.0, "payment_type": "Receive", "docstatus": 1,
		}},
	}

	for _, doc := range docs {
		if err := repo.Business().Upsert(ctx, doc.doctype, doc.name, doc.fields); err != nil {
			log.Fatalf("seeding %s %s: %v", doc.doctype, doc.name, err)
		}
	}
	fmt.Printf("Seeded %d demo documents\n", len(docs))
}

package cache

import (
	"context"

	"go.uber.org/zap"

	"github.com/askerp/askerp-server/internal/platform/logger"
)

// Doc event actions reported by the ERP sync hook.
const (
	ActionSubmit = "submit"
	ActionCancel = "cancel"
	ActionSave   = "save"
	ActionDelete = "delete"
)

// Business doctypes whose submit/cancel invalidates query results. Keys are
// hashed, so per-document invalidation is impossible; any change to core
// business data clears every data-query tool's entries.
var coreDoctypes = map[string]bool{
	"Sales Invoice":      true,
	"Sales Order":        true,
	"Purchase Invoice":   true,
	"Purchase Order":     true,
	"Payment Entry":      true,
	"Stock Entry":        true,
	"Delivery Note":      true,
	"Customer":           true,
	"Supplier":           true,
	"Item":               true,
	"Stock Ledger Entry": true,
	"GL Entry":           true,
}

var dataQueryTools = []string{
	"query_records", "count_records", "run_sql_query",
	"get_financial_summary", "compare_periods",
}

// ObjectCache invalidation targets for configuration saves. The prompt
// service caches the assembled profile and per-tier templates under these
// keys; saving the underlying document must drop them.
const (
	ProfileKey = "askerp:profile"
	ProfileTTL = 300 // seconds

	templateKeyPrefix = "askerp:template:"
	TemplateTTL       = 60 // seconds
)

func TemplateKey(tier string) string { return templateKeyPrefix + tier }

// Invalidator routes document change events to the right cache clears.
type Invalidator struct {
	queries *QueryCache
	objects *ObjectCache
}

func NewInvalidator(queries *QueryCache, objects *ObjectCache) *Invalidator {
	return &Invalidator{queries: queries, objects: objects}
}

// HandleDocEvent applies the invalidation rules for one document change:
//
//   - core business doctype submitted or cancelled: clear all data-query
//     tool results
//   - business profile saved: drop the cached profile
//   - prompt template saved or deleted: drop the cached template for every
//     tier (the event does not say which tier changed)
//
// Unknown doctypes are ignored.
func (iv *Invalidator) HandleDocEvent(ctx context.Context, doctype, action string) {
	switch doctype {
	case "AskERP Business Profile":
		if action == ActionSave {
			iv.objects.Delete(ctx, ProfileKey)
		}
	case "AskERP Prompt Template":
		if action == ActionSave || action == ActionDelete {
			for _, tier := range []string{"Executive", "Management", "Field", "Utility", "Custom"} {
				iv.objects.Delete(ctx, TemplateKey(tier))
			}
		}
	default:
		if coreDoctypes[doctype] && (action == ActionSubmit || action == ActionCancel) {
			cleared, err := iv.queries.ClearTools(ctx, dataQueryTools...)
			if err != nil {
				logger.Warn("query cache invalidation failed",
					zap.String("doctype", doctype), zap.Error(err))
				return
			}
			if cleared > 0 {
				logger.Debug("query cache invalidated",
					zap.String("doctype", doctype), zap.Int("cleared", cleared))
			}
		}
	}
}

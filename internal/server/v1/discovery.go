package v1

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/askerp/askerp-server/internal/cache"
	"github.com/askerp/askerp-server/internal/platform/logger"
)

// discoverBusinessContext inspects the mirrored ERP data and fills in
// business profile fields the admin left blank during setup. Fields with
// content are never overwritten. Runs in the background after the wizard
// completes and is safe to re-run.
func (h *Handler) discoverBusinessContext(ctx context.Context) error {
	profile, err := h.repo.Profile().Get(ctx)
	if err != nil {
		return fmt.Errorf("load profile: %w", err)
	}
	business := h.repo.Business()

	filled := 0
	setIfEmpty := func(field *string, value string) {
		if strings.TrimSpace(*field) == "" && value != "" {
			*field = value
			filled++
		}
	}

	users, err := h.repo.Users().List(ctx)
	if err == nil && len(users) > 0 {
		setIfEmpty(&profile.CompanySize, companySizeBucket(len(users)))
	}

	stockEntries, err := business.Count(ctx, "Stock Entry", nil)
	if err == nil {
		if stockEntries > 0 {
			setIfEmpty(&profile.HasManufacturing, "Yes, stock movements recorded in the system")
		} else {
			setIfEmpty(&profile.HasManufacturing, "None")
		}
	}

	invoices, err := business.Count(ctx, "Sales Invoice", nil)
	if err == nil && invoices > 0 {
		setIfEmpty(&profile.KeyMetricsSales, "Revenue, collections, outstanding receivables")

		rows, err := business.Select(ctx,
			"SELECT COUNT(DISTINCT customer) AS n FROM sales_invoices WHERE customer != ''")
		if err == nil && len(rows) > 0 {
			if n := toInt(rows[0]["n"]); n > 0 {
				setIfEmpty(&profile.CustomerTypes, fmt.Sprintf("Around %d active customers", n))
			}
		}
	}

	outstanding, err := business.Aggregate(ctx, "Sales Invoice", "outstanding_amount", "sum", nil)
	if err == nil && outstanding > 0 {
		setIfEmpty(&profile.AccountingFocus, "Receivables and collections tracking")
	}

	if filled == 0 {
		logger.Info("context discovery found nothing to fill")
		return nil
	}

	profile.ProfileCompleteness = Completeness(profile)
	if err := h.repo.Profile().Save(ctx, profile); err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	h.invalidator.HandleDocEvent(ctx, "AskERP Business Profile", cache.ActionSave)

	logger.Info("context discovery filled profile fields",
		zap.Int("fields", filled),
		zap.Int("completeness", profile.ProfileCompleteness))
	return nil
}

func companySizeBucket(users int) string {
	switch {
	case users <= 10:
		return "1-10 employees"
	case users <= 50:
		return "11-50 employees"
	case users <= 200:
		return "51-200 employees"
	default:
		return "200+ employees"
	}
}

func toInt(v interface{}) int {
	switch n := v.(type) {
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}

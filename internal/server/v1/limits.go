package v1

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/askerp/askerp-server/internal/platform/logger"
	"github.com/askerp/askerp-server/internal/prompt"
	"github.com/askerp/askerp-server/internal/store/model"
)

// Administrators are effectively unlimited.
const adminDailyLimit = 999

// Fallbacks when the settings row carries zeros.
const (
	fallbackDefaultLimit    = 50
	fallbackFieldStaffLimit = 30
)

var fieldStaffRoles = map[string]bool{
	"Sales User":         true,
	"Stock User":         true,
	"Manufacturing User": true,
	"Purchase User":      true,
}

var limitManagerRoles = map[string]bool{
	"System Manager":   true,
	"Accounts Manager": true,
	"Sales Manager":    true,
	"Purchase Manager": true,
	"Stock Manager":    true,
}

// dailyLimit resolves how many queries a user may run per day. Per-role
// caps on the active model win; otherwise the settings defaults apply,
// with a lower tier for field staff who hold no manager role.
func (h *Handler) dailyLimit(ctx context.Context, user *model.User) int {
	roles := prompt.ParseRoles(user.Roles)
	for _, r := range roles {
		if r == "Administrator" {
			return adminDailyLimit
		}
	}

	if m := h.referenceModel(ctx); m != nil {
		roleSet := make(map[string]bool, len(roles))
		for _, r := range roles {
			roleSet[r] = true
		}
		best := 0
		for _, rl := range m.RateLimits {
			if roleSet[rl.Role] && rl.DailyLimit > best {
				best = rl.DailyLimit
			}
		}
		if best > 0 {
			return best
		}
	}

	settings, err := h.repo.Settings().Get(ctx)
	if err != nil {
		logger.Warn("settings lookup failed resolving daily limit", zap.Error(err))
		return fallbackDefaultLimit
	}
	if isFieldStaff(roles) {
		if settings.FieldStaffDailyLimit > 0 {
			return settings.FieldStaffDailyLimit
		}
		return fallbackFieldStaffLimit
	}
	if settings.DefaultDailyLimit > 0 {
		return settings.DefaultDailyLimit
	}
	return fallbackDefaultLimit
}

// referenceModel is the enabled model for the highest configured tier,
// whose per-role caps define the daily limits.
func (h *Handler) referenceModel(ctx context.Context) *model.Model {
	for _, tier := range []string{prompt.TierExecutive, prompt.TierManagement, prompt.TierField} {
		if m, err := h.repo.Models().GetForTier(ctx, tier); err == nil && m != nil {
			return m
		}
	}
	return nil
}

// isFieldStaff reports whether the role set marks a field worker: at
// least one field role and no manager role.
func isFieldStaff(roles []string) bool {
	field := false
	for _, r := range roles {
		if limitManagerRoles[r] {
			return false
		}
		if fieldStaffRoles[r] {
			field = true
		}
	}
	return field
}

// startOfDay is the cutoff for daily usage counting.
func startOfDay(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
}

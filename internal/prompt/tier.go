package prompt

import (
	"encoding/json"
	"strings"

	"github.com/askerp/askerp-server/internal/store/model"
)

// Template tiers. Utility and Custom exist for admin-authored templates but
// never resolve from roles.
const (
	TierExecutive  = "Executive"
	TierManagement = "Management"
	TierField      = "Field"
)

// Fallbacks mirror the settings column defaults.
const (
	defaultExecutiveRoles  = "System Manager,Accounts Manager"
	defaultManagementRoles = "Sales Manager,Purchase Manager,Stock Manager,Manufacturing Manager"
)

// RoleSets holds the role-to-tier mapping resolved from the admin
// settings. System Manager and Administrator are always executive no
// matter what the configured lists say.
type RoleSets struct {
	executive  map[string]bool
	management map[string]bool
}

// RoleSetsFrom builds the role sets from the configured priority role
// lists. Nil settings or blank lists fall back to the defaults.
func RoleSetsFrom(settings *model.Settings) RoleSets {
	execList, mgmtList := defaultExecutiveRoles, defaultManagementRoles
	if settings != nil {
		if strings.TrimSpace(settings.ExecutivePriorityRoles) != "" {
			execList = settings.ExecutivePriorityRoles
		}
		if strings.TrimSpace(settings.ManagerPriorityRoles) != "" {
			mgmtList = settings.ManagerPriorityRoles
		}
	}
	sets := RoleSets{
		executive:  splitRoleList(execList),
		management: splitRoleList(mgmtList),
	}
	sets.executive["System Manager"] = true
	sets.executive["Administrator"] = true
	return sets
}

func splitRoleList(raw string) map[string]bool {
	set := make(map[string]bool)
	for _, r := range strings.Split(raw, ",") {
		if r = strings.TrimSpace(r); r != "" {
			set[r] = true
		}
	}
	return set
}

// TierFor maps a user's roles to a prompt tier. Executive roles win over
// management roles; everyone else is field staff.
func (rs RoleSets) TierFor(roles []string) string {
	for _, r := range roles {
		if rs.executive[r] {
			return TierExecutive
		}
	}
	for _, r := range roles {
		if rs.management[r] {
			return TierManagement
		}
	}
	return TierField
}

var defaultRoleSets = RoleSetsFrom(nil)

// TierForRoles resolves a tier with the default role sets. Callers that
// have the settings document at hand should go through RoleSetsFrom so
// admin-configured lists are honored.
func TierForRoles(roles []string) string {
	return defaultRoleSets.TierFor(roles)
}

// ParseRoles decodes the JSON role array stored on the user row. Bad JSON
// yields no roles, which resolves to the field tier.
func ParseRoles(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	var roles []string
	if err := json.Unmarshal([]byte(raw), &roles); err != nil {
		return nil
	}
	return roles
}

package v1

import (
	"math"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/askerp/askerp-server/internal/cache"
	"github.com/askerp/askerp-server/internal/store/model"
	"github.com/askerp/askerp-server/pkg/api"
)

// minMeaningfulLength is the shortest trimmed value that counts toward
// profile completeness.
const minMeaningfulLength = 3

// profileSections groups the completeness fields for the UI indicator.
// Field order matters only for display.
var profileSections = []struct {
	Name   string
	Fields []func(*model.Profile) string
}{
	{"Company Identity", []func(*model.Profile) string{
		func(p *model.Profile) string { return p.CompanyName },
		func(p *model.Profile) string { return p.Industry },
		func(p *model.Profile) string { return p.IndustryDetail },
		func(p *model.Profile) string { return p.Location },
		func(p *model.Profile) string { return p.CompanySize },
		func(p *model.Profile) string { return p.Currency },
		func(p *model.Profile) string { return p.FinancialYearStart },
	}},
	{"Products & Services", []func(*model.Profile) string{
		func(p *model.Profile) string { return p.WhatYouSell },
		func(p *model.Profile) string { return p.WhatYouBuy },
		func(p *model.Profile) string { return p.UnitOfMeasure },
	}},
	{"Sales & Customers", []func(*model.Profile) string{
		func(p *model.Profile) string { return p.SalesChannels },
		func(p *model.Profile) string { return p.CustomerTypes },
		func(p *model.Profile) string { return p.KeyMetricsSales },
	}},
	{"Operations", []func(*model.Profile) string{
		func(p *model.Profile) string { return p.HasManufacturing },
	}},
	{"Finance", []func(*model.Profile) string{
		func(p *model.Profile) string { return p.AccountingFocus },
		func(p *model.Profile) string { return p.PaymentTerms },
	}},
	{"Terminology", []func(*model.Profile) string{
		func(p *model.Profile) string { return p.CustomTerminology },
		func(p *model.Profile) string { return p.CommunicationStyle },
	}},
	{"AI Behavior", []func(*model.Profile) string{
		func(p *model.Profile) string { return p.ResponseLength },
		func(p *model.Profile) string { return p.NumberFormat },
		func(p *model.Profile) string { return p.ExecutiveFocus },
	}},
}

func filled(value string) bool {
	return len(strings.TrimSpace(value)) >= minMeaningfulLength
}

// Completeness scores the profile 0-100. Every field counts equally.
func Completeness(p *model.Profile) int {
	total, count := 0, 0
	for _, section := range profileSections {
		for _, get := range section.Fields {
			total++
			if filled(get(p)) {
				count++
			}
		}
	}
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(count) / float64(total) * 100))
}

// SectionStatus computes per-section fill counts for the UI.
func SectionStatus(p *model.Profile) map[string]api.SectionStatus {
	out := make(map[string]api.SectionStatus, len(profileSections))
	for _, section := range profileSections {
		status := api.SectionStatus{Total: len(section.Fields)}
		for _, get := range section.Fields {
			if filled(get(p)) {
				status.Filled++
			}
		}
		if status.Total > 0 {
			status.Pct = int(math.Round(float64(status.Filled) / float64(status.Total) * 100))
		}
		out[section.Name] = status
	}
	return out
}

// HandleGetProfile returns the profile with its per-section status.
func (h *Handler) HandleGetProfile(c *gin.Context) {
	profile, err := h.repo.Profile().Get(c.Request.Context())
	if err != nil {
		fail(c, api.InternalError("Failed to load business profile", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"profile":  profile,
		"sections": SectionStatus(profile),
	})
}

// HandleSaveProfile persists the full profile. Completeness is always
// recomputed server-side; the client cannot set it.
func (h *Handler) HandleSaveProfile(c *gin.Context) {
	var incoming model.Profile
	if err := c.ShouldBindJSON(&incoming); err != nil {
		fail(c, api.BadRequestError("Invalid profile payload"))
		return
	}

	ctx := c.Request.Context()
	incoming.ID = 1
	incoming.ProfileCompleteness = Completeness(&incoming)

	if err := h.repo.Profile().Save(ctx, &incoming); err != nil {
		fail(c, api.InternalError("Failed to save business profile", err))
		return
	}
	h.invalidator.HandleDocEvent(ctx, "AskERP Business Profile", cache.ActionSave)

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"completeness": incoming.ProfileCompleteness,
		"sections":     SectionStatus(&incoming),
	})
}

package prompt

import (
	"fmt"
	"strings"
	"time"

	"github.com/askerp/askerp-server/internal/format"
	"github.com/askerp/askerp-server/internal/store/model"
)

// Variables computes every placeholder value a template can reference for
// one user at one point in time. The tier is passed in because its role
// sets come from settings; pass the clock in so previews and tests can
// pin a date.
func Variables(user *model.User, profile *model.Profile, tier string, now time.Time) map[string]string {
	roles := ParseRoles(user.Roles)

	fy := format.FinancialYear(profile.FinancialYearStart, now)
	monthStart, _ := format.MonthBounds(now)
	lastMonthStart, lastMonthEnd := format.LastMonthBounds(now)

	// Quarter bounds within the FY.
	qStart := fy.Start.AddDate(0, (fy.Quarter-1)*3, 0)
	qEnd := qStart.AddDate(0, 3, -1)

	// Same month last year.
	smlyStart := time.Date(now.Year()-1, now.Month(), 1, 0, 0, 0, 0, now.Location())
	smlyEnd := smlyStart.AddDate(0, 1, -1)

	fullName := user.FullName
	if fullName == "" {
		fullName = user.ID
	}

	tradingName := profile.TradingName
	if tradingName == "" {
		tradingName = profile.CompanyName
	}

	return map[string]string{
		// Company identity
		"company_name":    profile.CompanyName,
		"trading_name":    tradingName,
		"industry":        profile.Industry,
		"industry_detail": profile.IndustryDetail,
		"location":        profile.Location,
		"company_size":    profile.CompanySize,
		"currency":        profile.Currency,

		// Time context
		"today":             format.ISODate(now),
		"now_full_date":     now.Format("Monday, 02 January 2006"),
		"current_month":     now.Format("January 2006"),
		"current_month_num": now.Format("01"),
		"current_year":      fmt.Sprintf("%d", now.Year()),
		"month_start":       format.ISODate(monthStart),
		"month_end":         format.ISODate(now),
		"last_month_label":  lastMonthStart.Format("January 2006"),
		"last_month_start":  format.ISODate(lastMonthStart),
		"last_month_end":    format.ISODate(lastMonthEnd),
		"fy_label":          fy.Label,
		"fy_start":          format.ISODate(fy.Start),
		"fy_end":            format.ISODate(fy.End),
		"prev_fy_label":     fy.PrevLabel,
		"prev_fy_start":     format.ISODate(fy.PrevStart),
		"prev_fy_end":       format.ISODate(fy.PrevEnd),
		"fy_q":              fmt.Sprintf("%d", fy.Quarter),
		"q_from":            format.ISODate(qStart),
		"q_to":              format.ISODate(qEnd),
		"smly_start":        format.ISODate(smlyStart),
		"smly_end":          format.ISODate(smlyEnd),

		// User context
		"user_name":   fullName,
		"user_id":     user.ID,
		"user_roles":  strings.Join(roles, ", "),
		"prompt_tier": strings.ToLower(tier),

		// Products and operations
		"what_you_sell":     profile.WhatYouSell,
		"what_you_buy":      profile.WhatYouBuy,
		"unit_of_measure":   profile.UnitOfMeasure,
		"sales_channels":    profile.SalesChannels,
		"customer_types":    profile.CustomerTypes,
		"has_manufacturing": profile.HasManufacturing,
		"key_metrics_sales": profile.KeyMetricsSales,

		// Finance
		"number_format":        profile.NumberFormat,
		"accounting_focus":     profile.AccountingFocus,
		"payment_terms":        profile.PaymentTerms,
		"financial_year_start": profile.FinancialYearStart,

		// AI behavior
		"ai_personality":      profile.AIPersonality,
		"communication_style": profile.CommunicationStyle,
		"response_length":     profile.ResponseLength,
		"executive_focus":     profile.ExecutiveFocus,

		// Custom data
		"custom_terminology": profile.CustomTerminology,
	}
}

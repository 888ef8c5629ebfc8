package v1

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/askerp/askerp-server/internal/store"
	"github.com/askerp/askerp-server/pkg/api"
)

// periodCutoff maps the period query parameter to a cutoff timestamp.
// Unknown periods fall back to today.
func periodCutoff(period string, now time.Time) (string, time.Time) {
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	switch period {
	case "week":
		return "week", midnight.AddDate(0, 0, -7)
	case "month":
		return "month", midnight.AddDate(0, 0, -30)
	default:
		return "today", midnight
	}
}

// HandleUsage aggregates usage logs per user. Admins see every user;
// everyone else only themselves.
func (h *Handler) HandleUsage(c *gin.Context) {
	period, cutoff := periodCutoff(c.Query("period"), time.Now())

	userID := h.user(c).ID
	if h.isAdmin(c) {
		userID = "" // all users
	}

	rows, err := h.repo.Usage().Aggregate(c.Request.Context(), userID, cutoff)
	if err != nil {
		fail(c, api.InternalError("Failed to aggregate usage", err))
		return
	}
	c.JSON(http.StatusOK, buildUsageReport(period, rows))
}

// HandleDailyStats returns the day-by-day series for the admin dashboard.
func (h *Handler) HandleDailyStats(c *gin.Context) {
	days := 30
	stats, err := h.repo.Usage().GetDailyStats(c.Request.Context(), days)
	if err != nil {
		fail(c, api.InternalError("Failed to load daily stats", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": stats, "days": days})
}

func buildUsageReport(period string, rows []store.UserAggregate) api.UsageReport {
	report := api.UsageReport{Period: period, Users: make([]api.UserUsage, 0, len(rows))}
	for _, row := range rows {
		report.Users = append(report.Users, api.UserUsage{
			User:            row.UserID,
			InputTokens:     row.InputTokens,
			OutputTokens:    row.OutputTokens,
			TotalTokens:     row.TotalTokens,
			CacheReadTokens: row.CacheReadTokens,
			CostInput:       row.CostInput,
			CostOutput:      row.CostOutput,
			CostTotal:       row.CostTotal,
			QueryCount:      row.QueryCount,
		})

		report.Totals.InputTokens += row.InputTokens
		report.Totals.OutputTokens += row.OutputTokens
		report.Totals.TotalTokens += row.TotalTokens
		report.Totals.CacheReadTokens += row.CacheReadTokens
		report.Totals.TotalQueries += row.QueryCount
		report.Totals.CostUSD += row.CostTotal
	}
	return report
}

package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/askerp/askerp-server/internal/server/validator"
	"github.com/askerp/askerp-server/internal/store/model"
	"github.com/askerp/askerp-server/pkg/api"
)

// HandleListReports returns the caller's scheduled reports.
func (h *Handler) HandleListReports(c *gin.Context) {
	reports, err := h.repo.Reports().ListByUser(c.Request.Context(), h.user(c).ID)
	if err != nil {
		fail(c, api.InternalError("Failed to list reports", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": reports, "count": len(reports)})
}

// HandleSaveReport creates or updates a scheduled report. Updates
// require the caller to own the report unless they are an admin.
func (h *Handler) HandleSaveReport(c *gin.Context) {
	var req api.ScheduledReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, api.ValidationError(validator.Parse(err)))
		return
	}

	if id := c.Param("id"); id != "" {
		existing, err := h.repo.Reports().Get(c.Request.Context(), id)
		if err != nil {
			fail(c, api.NotFoundError("Report not found"))
			return
		}
		if existing.UserID != h.user(c).ID && !h.isAdmin(c) {
			fail(c, api.ForbiddenError("Cannot modify another user's report"))
			return
		}
	}

	report := &model.ScheduledReport{
		ID:          c.Param("id"), // empty on create
		UserID:      h.user(c).ID,
		ReportName:  req.ReportName,
		ReportQuery: req.ReportQuery,
		Frequency:   req.Frequency,
		Recipients:  req.Recipients,
		Description: req.Description,
		Active:      true,
	}
	if err := h.repo.Reports().Save(c.Request.Context(), report); err != nil {
		fail(c, api.InternalError("Failed to save report", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "id": report.ID})
}

// HandleDeleteReport removes one of the caller's scheduled reports.
// Admins may delete anyone's.
func (h *Handler) HandleDeleteReport(c *gin.Context) {
	ctx := c.Request.Context()
	report, err := h.repo.Reports().Get(ctx, c.Param("id"))
	if err != nil {
		fail(c, api.NotFoundError("Report not found"))
		return
	}
	if report.UserID != h.user(c).ID && !h.isAdmin(c) {
		fail(c, api.ForbiddenError("Cannot delete another user's report"))
		return
	}
	if err := h.repo.Reports().Delete(ctx, report.ID); err != nil {
		fail(c, api.InternalError("Failed to delete report", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// HandleListNotifications returns the caller's recent notifications.
func (h *Handler) HandleListNotifications(c *gin.Context) {
	notifications, err := h.repo.Notifications().ListForUser(c.Request.Context(), h.user(c).ID, 50)
	if err != nil {
		fail(c, api.InternalError("Failed to list notifications", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": notifications, "count": len(notifications)})
}

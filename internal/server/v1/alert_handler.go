package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/askerp/askerp-server/internal/server/validator"
	"github.com/askerp/askerp-server/internal/store/model"
	"github.com/askerp/askerp-server/pkg/api"
)

// HandleListAlerts returns the caller's alert rules.
func (h *Handler) HandleListAlerts(c *gin.Context) {
	rules, err := h.repo.Alerts().ListByUser(c.Request.Context(), h.user(c).ID)
	if err != nil {
		fail(c, api.InternalError("Failed to list alerts", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": rules, "count": len(rules)})
}

// HandleSaveAlert creates or updates an alert rule for the caller.
// Updates require the caller to own the rule unless they are an admin.
func (h *Handler) HandleSaveAlert(c *gin.Context) {
	var req api.AlertRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, api.ValidationError(validator.Parse(err)))
		return
	}

	if id := c.Param("id"); id != "" {
		existing, err := h.repo.Alerts().Get(c.Request.Context(), id)
		if err != nil {
			fail(c, api.NotFoundError("Alert not found"))
			return
		}
		if existing.UserID != h.user(c).ID && !h.isAdmin(c) {
			fail(c, api.ForbiddenError("Cannot modify another user's alert"))
			return
		}
	}

	rule := &model.AlertRule{
		ID:                c.Param("id"), // empty on create
		UserID:            h.user(c).ID,
		AlertName:         req.AlertName,
		Description:       req.Description,
		QueryDoctype:      req.QueryDoctype,
		QueryField:        req.QueryField,
		QueryAggregation:  req.QueryAggregation,
		QueryFilters:      req.QueryFilters,
		ThresholdOperator: req.ThresholdOperator,
		ThresholdValue:    req.ThresholdValue,
		Frequency:         req.Frequency,
		Active:            true,
	}
	if err := h.repo.Alerts().Save(c.Request.Context(), rule); err != nil {
		fail(c, api.InternalError("Failed to save alert", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "id": rule.ID})
}

// HandleDeleteAlert removes one of the caller's alert rules. Admins may
// delete anyone's.
func (h *Handler) HandleDeleteAlert(c *gin.Context) {
	ctx := c.Request.Context()
	rule, err := h.repo.Alerts().Get(ctx, c.Param("id"))
	if err != nil {
		fail(c, api.NotFoundError("Alert not found"))
		return
	}
	if rule.UserID != h.user(c).ID && !h.isAdmin(c) {
		fail(c, api.ForbiddenError("Cannot delete another user's alert"))
		return
	}
	if err := h.repo.Alerts().Delete(ctx, rule.ID); err != nil {
		fail(c, api.InternalError("Failed to delete alert", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// HandleTestAlert evaluates a rule immediately without recording a
// trigger, returning the current value and whether it would fire.
func (h *Handler) HandleTestAlert(c *gin.Context) {
	ctx := c.Request.Context()
	rule, err := h.repo.Alerts().Get(ctx, c.Param("id"))
	if err != nil {
		fail(c, api.NotFoundError("Alert not found"))
		return
	}
	if rule.UserID != h.user(c).ID && !h.isAdmin(c) {
		fail(c, api.ForbiddenError("Cannot test another user's alert"))
		return
	}

	value, would, err := h.alerts.Test(ctx, rule)
	if err != nil {
		fail(c, api.BadRequestError("Alert query failed: "+err.Error()))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":           true,
		"current_value":     value,
		"would_trigger_now": would,
	})
}

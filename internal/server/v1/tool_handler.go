package v1

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/askerp/askerp-server/internal/platform/logger"
	"github.com/askerp/askerp-server/internal/store/model"
	"github.com/askerp/askerp-server/internal/tools"
	"github.com/askerp/askerp-server/pkg/api"
)

// HandleListTools names the available analytical tools.
func (h *Handler) HandleListTools(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"tools": tools.Names()})
}

// HandleExecuteTool runs one analytical tool for the caller. Query
// failures come back inside the result payload, not as HTTP errors, so
// the client can surface them in conversation.
func (h *Handler) HandleExecuteTool(c *gin.Context) {
	var req api.ToolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, api.BadRequestError("Invalid tool payload"))
		return
	}

	user := h.user(c)
	if !user.AllowChat {
		fail(c, api.ForbiddenError("Chat access is not enabled for this user"))
		return
	}

	ctx := c.Request.Context()
	limit := h.dailyLimit(ctx, user)
	used, err := h.repo.Usage().CountSince(ctx, user.ID, startOfDay(time.Now()))
	if err != nil {
		fail(c, api.InternalError("Failed to check usage", err))
		return
	}
	if used >= limit {
		fail(c, api.RateLimitError(fmt.Sprintf("Daily query limit of %d reached", limit)))
		return
	}

	name := c.Param("name")
	result, err := h.runner.Execute(ctx, name, req.Input, user.ID)
	if err != nil {
		fail(c, api.InternalError("Tool execution failed", err))
		return
	}

	if err := h.repo.Usage().Log(ctx, &model.UsageLog{
		UserID:    user.ID,
		Question:  "tool: " + name,
		ToolCalls: 1,
	}); err != nil {
		logger.Warn("usage log write failed", zap.String("user", user.ID), zap.Error(err))
	}

	c.Data(http.StatusOK, "application/json", result)
}

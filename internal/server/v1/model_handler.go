package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/askerp/askerp-server/internal/store/model"
	"github.com/askerp/askerp-server/pkg/api"
)

// HandleListModels returns the model registry, optionally filtered by
// provider.
func (h *Handler) HandleListModels(c *gin.Context) {
	ctx := c.Request.Context()

	var (
		models []model.Model
		err    error
	)
	if provider := c.Query("provider"); provider != "" {
		models, err = h.repo.Models().ListByProvider(ctx, provider)
	} else {
		models, err = h.repo.Models().List(ctx)
	}
	if err != nil {
		fail(c, api.InternalError("Failed to list models", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": models, "count": len(models)})
}

// HandleGetModel returns one registry entry with its rate limits.
func (h *Handler) HandleGetModel(c *gin.Context) {
	m, err := h.repo.Models().Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, api.NotFoundError("Model not found"))
		return
	}
	c.JSON(http.StatusOK, m)
}

// HandleSaveModel validates and upserts a registry entry.
func (h *Handler) HandleSaveModel(c *gin.Context) {
	var m model.Model
	if err := c.ShouldBindJSON(&m); err != nil {
		fail(c, api.BadRequestError("Invalid model payload"))
		return
	}

	if err := h.repo.Models().Save(c.Request.Context(), &m); err != nil {
		fail(c, api.BadRequestError(err.Error()))
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "id": m.ID})
}

// HandleTestModelConnection probes the model's provider endpoint and
// records the outcome on the registry entry.
func (h *Handler) HandleTestModelConnection(c *gin.Context) {
	ctx := c.Request.Context()
	m, err := h.repo.Models().Get(ctx, c.Param("id"))
	if err != nil {
		fail(c, api.NotFoundError("Model not found"))
		return
	}

	result := h.providers.TestConnection(ctx, m)
	status := "Fail"
	if result.Success {
		status = "Pass"
	}
	if err := h.repo.Models().RecordTest(ctx, m.ID, status, result.Message); err != nil {
		fail(c, api.InternalError("Failed to record test result", err))
		return
	}
	c.JSON(http.StatusOK, result)
}

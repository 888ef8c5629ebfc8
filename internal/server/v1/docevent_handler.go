package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/askerp/askerp-server/internal/cache"
	"github.com/askerp/askerp-server/internal/server/validator"
	"github.com/askerp/askerp-server/pkg/api"
)

// DocEventRequest is one document lifecycle event pushed by the ERP sync.
type DocEventRequest struct {
	Doctype string                 `json:"doctype" binding:"required"`
	Name    string                 `json:"name" binding:"required"`
	Action  string                 `json:"action" binding:"required,oneof=submit cancel save delete"`
	Fields  map[string]interface{} `json:"fields"`
}

// HandleDocEvent ingests an ERP document event: the mirrored row is
// upserted or removed, then the cache invalidation rules run. Doctypes
// without a mirror table still invalidate.
func (h *Handler) HandleDocEvent(c *gin.Context) {
	var req DocEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, api.ValidationError(validator.Parse(err)))
		return
	}

	ctx := c.Request.Context()
	mirrored := false
	switch req.Action {
	case cache.ActionSubmit, cache.ActionSave:
		if len(req.Fields) > 0 {
			if err := h.repo.Business().Upsert(ctx, req.Doctype, req.Name, req.Fields); err == nil {
				mirrored = true
			}
		}
	case cache.ActionCancel, cache.ActionDelete:
		if err := h.repo.Business().Remove(ctx, req.Doctype, req.Name); err == nil {
			mirrored = true
		}
	}

	h.invalidator.HandleDocEvent(ctx, req.Doctype, req.Action)
	c.JSON(http.StatusOK, gin.H{"success": true, "mirrored": mirrored})
}

// HandleCacheStats reports query cache state for the admin dashboard.
func (h *Handler) HandleCacheStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.queries.Stats(c.Request.Context()))
}

// HandleCacheClear flushes the entire query cache.
func (h *Handler) HandleCacheClear(c *gin.Context) {
	cleared, err := h.queries.ClearAll(c.Request.Context())
	if err != nil {
		fail(c, api.InternalError("Failed to clear cache", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "cleared": cleared})
}

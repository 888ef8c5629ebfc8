package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/askerp/askerp-server/internal/cache"
	"github.com/askerp/askerp-server/internal/prompt"
	"github.com/askerp/askerp-server/internal/server/validator"
	"github.com/askerp/askerp-server/internal/store/model"
	"github.com/askerp/askerp-server/pkg/api"
)

// HandleListTemplates returns all prompt templates.
func (h *Handler) HandleListTemplates(c *gin.Context) {
	templates, err := h.repo.Templates().List(c.Request.Context())
	if err != nil {
		fail(c, api.InternalError("Failed to list templates", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": templates, "count": len(templates)})
}

// HandleSaveTemplate creates or updates a template. Saving drops the
// cached rendered templates for every tier.
func (h *Handler) HandleSaveTemplate(c *gin.Context) {
	var req api.TemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, api.ValidationError(validator.Parse(err)))
		return
	}

	ctx := c.Request.Context()
	t := &model.PromptTemplate{
		ID:            c.Param("id"), // empty on create
		TemplateName:  req.TemplateName,
		Tier:          req.Tier,
		PromptContent: req.PromptContent,
		IsActive:      req.IsActive,
	}
	if err := h.repo.Templates().Save(ctx, t); err != nil {
		fail(c, api.InternalError("Failed to save template", err))
		return
	}
	h.invalidator.HandleDocEvent(ctx, "AskERP Prompt Template", cache.ActionSave)
	c.JSON(http.StatusOK, gin.H{"success": true, "id": t.ID})
}

// HandleActivateTemplate marks one template active for its tier,
// deactivating the rest.
func (h *Handler) HandleActivateTemplate(c *gin.Context) {
	ctx := c.Request.Context()
	if err := h.repo.Templates().Activate(ctx, c.Param("id")); err != nil {
		fail(c, api.NotFoundError("Template not found"))
		return
	}
	h.invalidator.HandleDocEvent(ctx, "AskERP Prompt Template", cache.ActionSave)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// HandleDeleteTemplate removes a template.
func (h *Handler) HandleDeleteTemplate(c *gin.Context) {
	ctx := c.Request.Context()
	if err := h.repo.Templates().Delete(ctx, c.Param("id")); err != nil {
		fail(c, api.NotFoundError("Template not found"))
		return
	}
	h.invalidator.HandleDocEvent(ctx, "AskERP Prompt Template", cache.ActionDelete)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// HandlePreviewTemplate renders arbitrary template content with the
// caller's variables, without persisting anything.
func (h *Handler) HandlePreviewTemplate(c *gin.Context) {
	var req struct {
		PromptContent string `json:"prompt_content" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, api.ValidationError(validator.Parse(err)))
		return
	}

	rendered, err := h.prompts.Preview(c.Request.Context(), h.user(c), req.PromptContent)
	if err != nil {
		fail(c, api.InternalError("Failed to render preview", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"rendered":     rendered,
		"length":       len(rendered),
		"placeholders": prompt.Placeholders(req.PromptContent),
	})
}

// HandleSystemPrompt returns the assembled system prompt for the caller,
// mainly for admin debugging of tier resolution and fallbacks.
func (h *Handler) HandleSystemPrompt(c *gin.Context) {
	ctx := c.Request.Context()
	user := h.user(c)
	rendered, err := h.prompts.SystemPrompt(ctx, user)
	if err != nil {
		fail(c, api.InternalError("Failed to assemble system prompt", err))
		return
	}
	settings, err := h.repo.Settings().Get(ctx)
	if err != nil {
		settings = nil
	}
	c.JSON(http.StatusOK, gin.H{
		"tier":   prompt.RoleSetsFrom(settings).TierFor(prompt.ParseRoles(user.Roles)),
		"prompt": rendered,
		"length": len(rendered),
	})
}

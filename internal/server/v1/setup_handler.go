package v1

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/askerp/askerp-server/internal/cache"
	"github.com/askerp/askerp-server/internal/platform/logger"
	"github.com/askerp/askerp-server/internal/server/validator"
	"github.com/askerp/askerp-server/pkg/api"
)

// HandleSetupStatus reports wizard progress. Non-admins are told the
// wizard is complete so the UI never shows it to them.
func (h *Handler) HandleSetupStatus(c *gin.Context) {
	if !h.isAdmin(c) {
		c.JSON(http.StatusOK, api.SetupStatus{SetupComplete: true, ShowWizard: false})
		return
	}

	settings, err := h.repo.Settings().Get(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusOK, api.SetupStatus{SetupComplete: false, CurrentStep: 0, ShowWizard: true})
		return
	}
	c.JSON(http.StatusOK, api.SetupStatus{
		SetupComplete: settings.SetupComplete,
		CurrentStep:   settings.SetupCurrentStep,
		ShowWizard:    !settings.SetupComplete,
	})
}

// HandleTestKey validates a provider API key with a minimal upstream call.
func (h *Handler) HandleTestKey(c *gin.Context) {
	var req api.TestKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, api.ValidationError(validator.Parse(err)))
		return
	}

	result := h.providers.ValidateKey(c.Request.Context(), req.Provider, strings.TrimSpace(req.APIKey))
	c.JSON(http.StatusOK, result)
}

// HandleSaveKey stores a key on every model of the provider and enables
// them.
func (h *Handler) HandleSaveKey(c *gin.Context) {
	var req api.SaveKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, api.ValidationError(validator.Parse(err)))
		return
	}

	updated, err := h.repo.Models().SetAPIKey(c.Request.Context(), req.Provider, strings.TrimSpace(req.APIKey))
	if err != nil {
		fail(c, api.InternalError("Failed to save API key", err))
		return
	}
	if updated == 0 {
		fail(c, api.NotFoundError("No models found for provider "+req.Provider+". Seed the registry first."))
		return
	}

	h.advanceStep(c, 2)
	c.JSON(http.StatusOK, gin.H{"success": true, "models_updated": updated})
}

// HandleQuickProfile saves the three essential profile fields from the
// wizard; completeness is recomputed like any other profile save.
func (h *Handler) HandleQuickProfile(c *gin.Context) {
	var req api.QuickProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, api.ValidationError(validator.Parse(err)))
		return
	}

	ctx := c.Request.Context()
	profile, err := h.repo.Profile().Get(ctx)
	if err != nil {
		fail(c, api.InternalError("Failed to load business profile", err))
		return
	}

	profile.CompanyName = strings.TrimSpace(req.CompanyName)
	if industry := strings.TrimSpace(req.Industry); industry != "" {
		profile.Industry = industry
	}
	if detail := strings.TrimSpace(req.Description); detail != "" {
		profile.IndustryDetail = detail
	}
	profile.ProfileCompleteness = Completeness(profile)

	if err := h.repo.Profile().Save(ctx, profile); err != nil {
		fail(c, api.InternalError("Failed to save business profile", err))
		return
	}
	h.invalidator.HandleDocEvent(ctx, "AskERP Business Profile", cache.ActionSave)

	h.advanceStep(c, 3)
	c.JSON(http.StatusOK, gin.H{"success": true, "completeness": profile.ProfileCompleteness})
}

// HandleUsersForEnablement lists enabled users with their chat-access flag
// for the wizard's enablement checkboxes.
func (h *Handler) HandleUsersForEnablement(c *gin.Context) {
	users, err := h.repo.Users().List(c.Request.Context())
	if err != nil {
		fail(c, api.InternalError("Failed to list users", err))
		return
	}

	out := make([]gin.H, 0, len(users))
	for _, u := range users {
		out = append(out, gin.H{
			"user":       u.ID,
			"full_name":  u.FullName,
			"allow_chat": u.AllowChat,
		})
	}
	c.JSON(http.StatusOK, gin.H{"users": out, "count": len(out)})
}

// HandleBulkEnable toggles chat access for a set of users.
func (h *Handler) HandleBulkEnable(c *gin.Context) {
	var req api.BulkEnableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, api.ValidationError(validator.Parse(err)))
		return
	}

	changed, err := h.repo.Users().SetAllowChat(c.Request.Context(), req.Users, req.Enabled)
	if err != nil {
		fail(c, api.InternalError("Failed to update chat access", err))
		return
	}

	h.advanceStep(c, 4)
	c.JSON(http.StatusOK, gin.H{"success": true, "updated": changed})
}

// HandleCompleteSetup marks the wizard finished and grants the completing
// admin chat access.
func (h *Handler) HandleCompleteSetup(c *gin.Context) {
	ctx := c.Request.Context()
	settings, err := h.repo.Settings().Get(ctx)
	if err != nil {
		fail(c, api.InternalError("Failed to load settings", err))
		return
	}

	settings.SetupComplete = true
	settings.SetupCurrentStep = 5
	if err := h.repo.Settings().Save(ctx, settings); err != nil {
		fail(c, api.InternalError("Failed to save settings", err))
		return
	}

	if admin := h.user(c); admin != nil {
		_, _ = h.repo.Users().SetAllowChat(ctx, []string{admin.ID}, true)
	}

	// Discovery runs detached from the request; a failure never affects
	// the wizard outcome.
	go func() {
		dctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		if err := h.discoverBusinessContext(dctx); err != nil {
			logger.Warn("post-setup context discovery failed", zap.Error(err))
		}
	}()

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// HandleResetSetup rewinds the wizard so it can be re-run.
func (h *Handler) HandleResetSetup(c *gin.Context) {
	ctx := c.Request.Context()
	settings, err := h.repo.Settings().Get(ctx)
	if err != nil {
		fail(c, api.InternalError("Failed to load settings", err))
		return
	}

	settings.SetupComplete = false
	settings.SetupCurrentStep = 0
	if err := h.repo.Settings().Save(ctx, settings); err != nil {
		fail(c, api.InternalError("Failed to save settings", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Setup wizard reset."})
}

// advanceStep bumps the wizard step, never moving backwards.
func (h *Handler) advanceStep(c *gin.Context, step int) {
	ctx := c.Request.Context()
	settings, err := h.repo.Settings().Get(ctx)
	if err != nil || settings.SetupCurrentStep >= step {
		return
	}
	settings.SetupCurrentStep = step
	_ = h.repo.Settings().Save(ctx, settings)
}

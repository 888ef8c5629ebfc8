package server

import (
	"github.com/askerp/askerp-server/internal/server/middleware"
	v1 "github.com/askerp/askerp-server/internal/server/v1"
)

func (s *Server) SetupRoutes() {
	s.router.Use(middleware.ErrorHandler())

	healthHandler := v1.NewHealthHandler()
	s.router.GET("/health", healthHandler.Health)

	limiter := middleware.NewRateLimiter(
		s.config.RateLimit.RequestsPerSecond, s.config.RateLimit.Burst)

	api := s.router.Group("/api/v1")
	api.Use(middleware.Auth(s.repo))
	api.Use(limiter.Middleware())
	{
		h := s.handler

		// Setup wizard. Everything except status is admin-only; status
		// itself hides the wizard from non-admins.
		setup := api.Group("/setup")
		setup.GET("/status", h.HandleSetupStatus)
		admin := setup.Group("")
		admin.Use(middleware.RequireAdmin())
		{
			admin.POST("/test-key", h.HandleTestKey)
			admin.POST("/save-key", h.HandleSaveKey)
			admin.POST("/quick-profile", h.HandleQuickProfile)
			admin.GET("/users", h.HandleUsersForEnablement)
			admin.POST("/bulk-enable", h.HandleBulkEnable)
			admin.POST("/complete", h.HandleCompleteSetup)
			admin.POST("/reset", h.HandleResetSetup)
		}

		// Model registry (admin).
		models := api.Group("/models")
		models.Use(middleware.RequireAdmin())
		{
			models.GET("", h.HandleListModels)
			models.GET("/:id", h.HandleGetModel)
			models.POST("", h.HandleSaveModel)
			models.PUT("/:id", h.HandleSaveModel)
			models.POST("/:id/test", h.HandleTestModelConnection)
		}

		// Business profile (admin).
		profile := api.Group("/profile")
		profile.Use(middleware.RequireAdmin())
		{
			profile.GET("", h.HandleGetProfile)
			profile.PUT("", h.HandleSaveProfile)
		}

		// Prompt templates (admin), plus the caller-facing system prompt.
		templates := api.Group("/templates")
		templates.Use(middleware.RequireAdmin())
		{
			templates.GET("", h.HandleListTemplates)
			templates.POST("", h.HandleSaveTemplate)
			templates.PUT("/:id", h.HandleSaveTemplate)
			templates.POST("/:id/activate", h.HandleActivateTemplate)
			templates.DELETE("/:id", h.HandleDeleteTemplate)
			templates.POST("/preview", h.HandlePreviewTemplate)
		}
		api.GET("/system-prompt", h.HandleSystemPrompt)

		// Alert rules.
		alerts := api.Group("/alerts")
		{
			alerts.GET("", h.HandleListAlerts)
			alerts.POST("", h.HandleSaveAlert)
			alerts.PUT("/:id", h.HandleSaveAlert)
			alerts.DELETE("/:id", h.HandleDeleteAlert)
			alerts.POST("/:id/test", h.HandleTestAlert)
		}

		// Usage analytics.
		api.GET("/usage", h.HandleUsage)
		api.GET("/usage/daily", middleware.RequireAdmin(), h.HandleDailyStats)

		// Analytical tools.
		api.GET("/tools", h.HandleListTools)
		api.POST("/tools/:name", h.HandleExecuteTool)

		// Scheduled reports and notifications.
		reports := api.Group("/reports")
		{
			reports.GET("", h.HandleListReports)
			reports.POST("", h.HandleSaveReport)
			reports.PUT("/:id", h.HandleSaveReport)
			reports.DELETE("/:id", h.HandleDeleteReport)
		}
		api.GET("/notifications", h.HandleListNotifications)

		// ERP sync and cache administration.
		api.POST("/doc-events", middleware.RequireAdmin(), h.HandleDocEvent)
		api.GET("/cache/stats", middleware.RequireAdmin(), h.HandleCacheStats)
		api.POST("/cache/clear", middleware.RequireAdmin(), h.HandleCacheClear)
	}
}

// Package v1 holds the HTTP handlers for the versioned API surface.
package v1

import (
	"github.com/gin-gonic/gin"

	"github.com/askerp/askerp-server/internal/alerts"
	"github.com/askerp/askerp-server/internal/cache"
	"github.com/askerp/askerp-server/internal/prompt"
	"github.com/askerp/askerp-server/internal/providers"
	"github.com/askerp/askerp-server/internal/server/middleware"
	"github.com/askerp/askerp-server/internal/store"
	"github.com/askerp/askerp-server/internal/store/model"
	"github.com/askerp/askerp-server/internal/tools"
	"github.com/askerp/askerp-server/pkg/api"
)

// Handler carries the services every endpoint group needs.
type Handler struct {
	repo        store.Repository
	providers   *providers.Client
	prompts     *prompt.Service
	runner      *tools.Runner
	alerts      *alerts.Engine
	queries     *cache.QueryCache
	invalidator *cache.Invalidator
}

func NewHandler(repo store.Repository, providerClient *providers.Client, prompts *prompt.Service,
	runner *tools.Runner, alertEngine *alerts.Engine, queries *cache.QueryCache,
	invalidator *cache.Invalidator) *Handler {
	return &Handler{
		repo:        repo,
		providers:   providerClient,
		prompts:     prompts,
		runner:      runner,
		alerts:      alertEngine,
		queries:     queries,
		invalidator: invalidator,
	}
}

// user returns the authenticated caller. Auth middleware guarantees it
// is present on protected routes.
func (h *Handler) user(c *gin.Context) *model.User {
	return middleware.CurrentUser(c)
}

func (h *Handler) isAdmin(c *gin.Context) bool {
	user := h.user(c)
	return user != nil && middleware.IsAdmin(user)
}

// fail records a problem on the context for the error middleware.
func fail(c *gin.Context, p *api.Problem) {
	_ = c.Error(p)
}

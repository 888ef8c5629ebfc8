package middleware

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/askerp/askerp-server/internal/prompt"
	"github.com/askerp/askerp-server/internal/store"
	"github.com/askerp/askerp-server/internal/store/model"
	"github.com/askerp/askerp-server/pkg/api"
)

// Auth validates the Bearer token against hashed API keys in the store
// and loads the owning user into the request context.
func Auth(repo store.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortProblem(c, api.UnauthorizedError("Missing Authorization header"))
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			abortProblem(c, api.UnauthorizedError("Invalid Authorization header format"))
			return
		}

		hash := sha256.Sum256([]byte(parts[1]))
		key, err := repo.APIKeys().GetByHash(c.Request.Context(), hex.EncodeToString(hash[:]))
		if err != nil || !key.IsActive {
			abortProblem(c, api.UnauthorizedError("Invalid API key"))
			return
		}

		user, err := repo.Users().Get(c.Request.Context(), key.UserID)
		if err != nil {
			abortProblem(c, api.UnauthorizedError("API key has no active user"))
			return
		}
		if !user.Enabled {
			abortProblem(c, api.ForbiddenError("User account is disabled"))
			return
		}

		ctx := context.WithValue(c.Request.Context(), store.ContextKeyAPIKey, key)
		ctx = context.WithValue(ctx, store.ContextKeyUser, user)
		c.Request = c.Request.WithContext(ctx)

		// Stamp last_used_at without blocking the request.
		go func() {
			_ = repo.APIKeys().UpdateUsage(context.Background(), key.ID)
		}()

		c.Next()
	}
}

// RequireAdmin gates the setup and administration endpoints. Non-admin
// callers always receive a permission failure, never data.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil || !IsAdmin(user) {
			abortProblem(c, api.ForbiddenError("Only administrators can access this resource"))
			return
		}
		c.Next()
	}
}

// CurrentUser returns the authenticated user, or nil on unauthenticated
// routes.
func CurrentUser(c *gin.Context) *model.User {
	user, _ := c.Request.Context().Value(store.ContextKeyUser).(*model.User)
	return user
}

// IsAdmin reports whether the user carries an administrator role.
func IsAdmin(user *model.User) bool {
	for _, role := range prompt.ParseRoles(user.Roles) {
		if role == "System Manager" || role == "Administrator" {
			return true
		}
	}
	return false
}

func abortProblem(c *gin.Context, p *api.Problem) {
	c.AbortWithStatusJSON(p.Status, p)
}

package middleware

import (
	"sync"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/askerp/askerp-server/internal/platform/logger"
	"github.com/askerp/askerp-server/pkg/api"
)

// RateLimiter keeps a token bucket per caller. Authenticated requests
// are keyed by user, anonymous ones by client IP.
type RateLimiter struct {
	clients map[string]*rate.Limiter
	mu      sync.RWMutex
	rps     rate.Limit
	burst   int
}

func NewRateLimiter(rps float64, burst int) *RateLimiter {
	return &RateLimiter{
		clients: make(map[string]*rate.Limiter),
		rps:     rate.Limit(rps),
		burst:   burst,
	}
}

func (rl *RateLimiter) getLimiter(key string) *rate.Limiter {
	rl.mu.RLock()
	limiter, exists := rl.clients[key]
	rl.mu.RUnlock()
	if exists {
		return limiter
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()
	if limiter, exists = rl.clients[key]; exists {
		return limiter
	}
	limiter = rate.NewLimiter(rl.rps, rl.burst)
	rl.clients[key] = limiter
	return limiter
}

// Middleware returns the gin handler enforcing the limit.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP()
		if user := CurrentUser(c); user != nil {
			key = user.ID
		}

		if !rl.getLimiter(key).Allow() {
			logger.Warn("rate limit exceeded",
				zap.String("caller", key),
				zap.String("path", c.Request.URL.Path))
			abortProblem(c, api.RateLimitError("Too many requests, slow down"))
			return
		}
		c.Next()
	}
}

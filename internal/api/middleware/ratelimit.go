package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/supp-dex/instance-api/internal/api/apierrors"
	"github.com/supp-dex/instance-api/internal/logger"
	"github.com/supp-dex/instance-api/internal/ratelimit"
)

// RateLimit returns a gin middleware enforcing the fixed-window quota keyed by
// (session, origin). A session cannot be laundered across origins to bypass
// the cap, and a shared origin cannot starve unrelated sessions.
func RateLimit(limiter ratelimit.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := SessionID(c) + ":" + requestOrigin(c)

		allowed, retryAfter := limiter.Allow(key)
		if !allowed {
			logger.Debug("Request rate limited",
				zap.String("path", c.Request.URL.Path),
				zap.Duration("retry_after", retryAfter),
			)
			c.AbortWithStatusJSON(http.StatusTooManyRequests,
				apierrors.NewRateLimitedError(retryAfter.Milliseconds()))
			return
		}

		c.Next()
	}
}

// requestOrigin extracts the caller-supplied network origin, preferring proxy
// headers the way the fronting proxy sets them
func requestOrigin(c *gin.Context) string {
	if xff := c.GetHeader("X-Forwarded-For"); xff != "" {
		return xff
	}
	if cf := c.GetHeader("CF-Connecting-IP"); cf != "" {
		return cf
	}
	if ip := c.ClientIP(); ip != "" {
		return ip
	}
	return "unknown"
}

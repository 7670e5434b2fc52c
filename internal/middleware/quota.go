package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"imgvault/api/internal/ratelimit"
)

// UploadQuota enforces the per-address minute/hour/day upload quotas.
// It runs before any authentication so an unauthenticated flood burns
// its quota the same as an authenticated one.
func UploadQuota(quota *ratelimit.UploadQuota, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		allowed, err := quota.Allow(c.Request.Context(), c.ClientIP())
		if err != nil {
			log.Error().Err(err).Msg("upload quota store unavailable")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error": "internal",
			})
			return
		}
		if !allowed {
			log.Warn().Str("client_ip", c.ClientIP()).Msg("upload quota exceeded")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":   "rate_limited",
				"message": "rate limit exceeded",
			})
			return
		}
		c.Next()
	}
}

package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"imgvault/api/internal/config"
	"imgvault/api/internal/ratelimit"
	"imgvault/api/internal/security"
)

// DeleteGuard gates the delete route. The feature flag is checked
// before the Authorization header is even read: with no secret
// configured, or the delete guard off, the endpoint is disabled for
// everyone regardless of what token they present.
func DeleteGuard(cfg *config.AppConfig, limiter *ratelimit.FailedAuthLimiter, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cfg.Security.APIKey == "" || !cfg.Security.RequireKeyForDelete {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error":   "unauthorized",
				"message": "delete endpoint is disabled",
			})
			return
		}
		checkAuth(c, cfg.Security.APIKey, limiter, log)
	}
}

// UploadGuard gates the upload route only when a secret is configured
// and uploads are flagged to require it; otherwise it is a no-op.
func UploadGuard(cfg *config.AppConfig, limiter *ratelimit.FailedAuthLimiter, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cfg.Security.APIKey == "" || !cfg.Security.RequireKeyForUpload {
			c.Next()
			return
		}
		checkAuth(c, cfg.Security.APIKey, limiter, log)
	}
}

// checkAuth runs the token state machine. A missing header or wrong
// scheme is not an attempt and never hits the failed-attempt limiter;
// a presented-but-wrong token does, and an exhausted window turns the
// rejection into a rate limit. A success does not forgive prior
// failures: the window expires on schedule.
func checkAuth(c *gin.Context, secret string, limiter *ratelimit.FailedAuthLimiter, log zerolog.Logger) {
	err := security.CheckBearer(c.GetHeader("Authorization"), secret)
	switch {
	case err == nil:
		c.Next()
	case errors.Is(err, security.ErrNoCredentials):
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"error":   "unauthorized",
			"message": "authorization required",
		})
	default:
		withinLimit, lerr := limiter.Hit(c.Request.Context(), c.ClientIP())
		if lerr != nil {
			log.Error().Err(lerr).Msg("failed-auth limiter unavailable")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error": "internal",
			})
			return
		}
		if !withinLimit {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":   "rate_limited",
				"message": "too many failed attempts",
			})
			return
		}
		log.Warn().Str("client_ip", c.ClientIP()).Msg("invalid api key presented")
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"error":   "unauthorized",
			"message": "invalid api key",
		})
	}
}

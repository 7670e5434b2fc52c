package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"imgvault/api/internal/apperr"
)

// statusFor maps domain error codes to HTTP status codes in one place.
// Traversal is deliberately reported as a plain validation failure so
// a probing client learns nothing about the filesystem.
func statusFor(code string) int {
	switch code {
	case apperr.CodeInvalid, apperr.CodePolicy, apperr.CodeTraversal:
		return http.StatusBadRequest
	case apperr.CodeUnauthorized:
		return http.StatusForbidden
	case apperr.CodeNotFound:
		return http.StatusNotFound
	case apperr.CodeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, log zerolog.Logger, err error) {
	code := apperr.Code(err)
	if code == apperr.CodeInternal {
		log.Error().
			Err(err).
			Str("path", c.Request.URL.Path).
			Str("method", c.Request.Method).
			Msg("internal error")
	}
	c.JSON(statusFor(code), gin.H{
		"error":   code,
		"message": apperr.Message(err),
	})
}

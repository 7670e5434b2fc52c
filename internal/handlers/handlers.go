package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"imgvault/api/internal/config"
	"imgvault/api/internal/middleware"
	"imgvault/api/internal/ratelimit"
	"imgvault/api/internal/service"
)

type HandlerSet struct {
	log         zerolog.Logger
	cfg         *config.AppConfig
	ingest      *service.IngestService
	variants    *service.VariantService
	authLimiter *ratelimit.FailedAuthLimiter
	quota       *ratelimit.UploadQuota
}

func NewHandlerSet(log zerolog.Logger, cfg *config.AppConfig, ingest *service.IngestService, variants *service.VariantService, authLimiter *ratelimit.FailedAuthLimiter, quota *ratelimit.UploadQuota) HandlerSet {
	return HandlerSet{
		log:         log,
		cfg:         cfg,
		ingest:      ingest,
		variants:    variants,
		authLimiter: authLimiter,
		quota:       quota,
	}
}

// Register wires the public surface. The quota middleware runs before
// the upload guard so quota exhaustion is reported regardless of
// authentication outcome.
func (h HandlerSet) Register(router *gin.Engine) {
	router.GET("/liveness", h.Liveness)
	router.GET("/", h.UploadForm)

	router.POST("/",
		middleware.UploadQuota(h.quota, h.log),
		middleware.UploadGuard(h.cfg, h.authLimiter, h.log),
		h.Upload,
	)

	router.GET("/:filename", h.Fetch)
	router.DELETE("/:filename",
		middleware.DeleteGuard(h.cfg, h.authLimiter, h.log),
		h.Delete,
	)
}

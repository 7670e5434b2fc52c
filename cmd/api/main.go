package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"imgvault/api/internal/cache"
	"imgvault/api/internal/config"
	"imgvault/api/internal/handlers"
	"imgvault/api/internal/jobs"
	"imgvault/api/internal/log"
	"imgvault/api/internal/media/nsfw"
	"imgvault/api/internal/media/resize"
	"imgvault/api/internal/media/video"
	"imgvault/api/internal/ratelimit"
	"imgvault/api/internal/server"
	"imgvault/api/internal/service"
	"imgvault/api/internal/storage"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := log.New(cfg.Environment)

	ctx := context.Background()

	store, err := storage.New(cfg.Storage.ImagesDir, cfg.Storage.CacheDir)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init asset store")
	}

	limiterStore, memStore := newLimiterStore(ctx, cfg, logger)
	authLimiter := ratelimit.NewFailedAuthLimiter(limiterStore, cfg.Security.MaxKeyAttemptsPerMin)
	quota := ratelimit.NewUploadQuota(limiterStore, cfg.Quota.UploadsPerMinute, cfg.Quota.UploadsPerHour, cfg.Quota.UploadsPerDay)

	var classifier nsfw.Classifier
	if cfg.ModerationEnabled() {
		classifier = nsfw.NewHTTPClassifier(cfg.Moderation.ClassifierURL, cfg.Moderation.ClassifierTimeout)
	}
	imageMod := nsfw.NewModerator(classifier, cfg.Moderation.Threshold)
	videoMod := video.NewModerator(
		video.NewFFProbe(cfg.Video.FFprobePath),
		video.NewFFmpegExtractor(cfg.Video.FFmpegPath, cfg.Storage.TmpDir),
		imageMod,
		cfg.Moderation.VideoInterval,
		cfg.Moderation.MaxFrames,
		logger,
	)

	renderer := resize.NewImageRenderer(cfg.ResizeTimeout)

	ingest := service.NewIngestService(cfg, store, imageMod, videoMod, renderer, logger)
	variants := service.NewVariantService(store, renderer, cfg.ValidSizes, logger)

	handlerSet := handlers.NewHandlerSet(logger, cfg, ingest, variants, authLimiter, quota)
	httpServer := server.NewHTTPServer(cfg, logger, handlerSet)

	sweeper := jobs.NewSweeper(cfg.Storage.TmpDir, cfg.Storage.TmpMaxAge, memStore, logger)
	if err := sweeper.Start(); err != nil {
		logger.Error().Err(err).Msg("sweeper start failed")
	}

	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	waitForShutdown(logger, httpServer, sweeper)
}

// newLimiterStore picks the counter backend. The memory store is also
// returned separately so the sweeper can prune it; it is nil when the
// shared redis backend is selected.
func newLimiterStore(ctx context.Context, cfg *config.AppConfig, logger zerolog.Logger) (ratelimit.Store, *ratelimit.MemoryStore) {
	if cfg.Limiter.Backend == "redis" {
		client, err := cache.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect redis for rate limiting")
		}
		return ratelimit.NewRedisStore(client), nil
	}
	mem := ratelimit.NewMemoryStore()
	return mem, mem
}

func waitForShutdown(logger zerolog.Logger, srv *server.HTTPServer, sweeper *jobs.Sweeper) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	sweeper.Stop()

	logger.Info().Msg("server exited cleanly")
}

package config

import (
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

type HTTPConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type StorageConfig struct {
	ImagesDir    string
	CacheDir     string
	TmpDir       string
	OutputFormat string // force-transcode raster uploads to this extension; empty keeps the detected one
	MaxUploadMB  int64
	TmpMaxAge    time.Duration
}

type VideoConfig struct {
	Allow       bool
	MaxDuration float64 // seconds
	FFprobePath string
	FFmpegPath  string
}

type ModerationConfig struct {
	Threshold         float64 // unsafe score in (0,1]; zero disables moderation entirely
	VideoInterval     float64 // base frame-sampling interval in seconds
	MaxFrames         int     // cap on sampled frames per video; zero means unlimited
	ClassifierURL     string
	ClassifierTimeout time.Duration
}

type SecurityConfig struct {
	APIKey               string
	RequireKeyForUpload  bool
	RequireKeyForDelete  bool
	MaxKeyAttemptsPerMin int
}

type QuotaConfig struct {
	UploadsPerMinute int
	UploadsPerHour   int
	UploadsPerDay    int
}

type LimiterConfig struct {
	Backend string // "memory" or "redis"
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type AppConfig struct {
	Environment      string
	HTTP             HTTPConfig
	Storage          StorageConfig
	Video            VideoConfig
	Moderation       ModerationConfig
	Security         SecurityConfig
	Quota            QuotaConfig
	Limiter          LimiterConfig
	Redis            RedisConfig
	ValidSizes       []int
	ResizeTimeout    time.Duration
	HideUploadForm   bool
	AllowCORSOrigins []string
}

// ModerationEnabled reports whether a nudity threshold is configured.
// A zero threshold skips the classifier entirely.
func (c *AppConfig) ModerationEnabled() bool {
	return c.Moderation.Threshold > 0
}

func Load() (*AppConfig, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("../config")

	v.SetEnvPrefix("IMGVAULT")
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 5000)
	v.SetDefault("http.readtimeout", "30s")
	v.SetDefault("http.writetimeout", "60s")
	v.SetDefault("http.idletimeout", "60s")

	v.SetDefault("storage.imagesdir", "/images")
	v.SetDefault("storage.cachedir", "/cache")
	v.SetDefault("storage.tmpdir", "/tmp/imgvault")
	v.SetDefault("storage.maxuploadmb", 16)
	v.SetDefault("storage.tmpmaxage", "5m")

	v.SetDefault("video.allow", false)
	v.SetDefault("video.maxduration", 60.0)
	v.SetDefault("video.ffprobepath", "ffprobe")
	v.SetDefault("video.ffmpegpath", "ffmpeg")

	v.SetDefault("moderation.videointerval", 1.0)
	v.SetDefault("moderation.maxframes", 10)
	v.SetDefault("moderation.classifiertimeout", "30s")

	v.SetDefault("security.requirekeyforupload", false)
	v.SetDefault("security.requirekeyfordelete", true)
	v.SetDefault("security.maxkeyattemptspermin", 5)

	v.SetDefault("quota.uploadsperminute", 20)
	v.SetDefault("quota.uploadsperhour", 100)
	v.SetDefault("quota.uploadsperday", 1000)

	v.SetDefault("limiter.backend", "memory")

	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.db", 0)

	v.SetDefault("resizetimeout", "5s")
	v.SetDefault("hideuploadform", false)
}

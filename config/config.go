package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
)

type Config struct {
	Env      string `env:"ENV" envDefault:"local" validate:"required,oneof=local staging production"`
	Port     string `env:"PORT" envDefault:"7777" validate:"required"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info" validate:"oneof=debug info warn error"`

	DatabaseURL    string `env:"DATABASE_URL,required" validate:"required"`
	MigrateOnStart bool   `env:"MIGRATE_ON_START" envDefault:"true"`

	MetricsPort string `env:"METRICS_PORT" envDefault:"9090"`

	SessionSecret string        `env:"SESSION_SECRET,required" validate:"required,min=32"`
	SessionTTL    time.Duration `env:"SESSION_TTL" envDefault:"720h" validate:"min=1m"`
	AppBaseURL    string        `env:"APP_BASE_URL" envDefault:"http://localhost:7777" validate:"required,url"`

	ResendAPIKey string `env:"RESEND_API_KEY" validate:"required_if=Env production,required_if=Env staging"`
	ResendFrom   string `env:"RESEND_FROM"    validate:"required_if=Env production,required_if=Env staging"`

	UploadStorage string `env:"UPLOAD_STORAGE" envDefault:"local" validate:"oneof=local s3"`
	UploadDir     string `env:"UPLOAD_DIR" envDefault:"./public/uploads"`
	PhotoWidth    int    `env:"PHOTO_WIDTH" envDefault:"800" validate:"min=16,max=4096"`
	// PhotoBaseURL prefixes photo names in pages. Defaults to /uploads locally and to
	// the bucket URL for s3.
	PhotoBaseURL string `env:"PHOTO_BASE_URL"`

	S3Bucket   string `env:"S3_BUCKET" validate:"required_if=UploadStorage s3"`
	S3Region   string `env:"S3_REGION" envDefault:"us-east-1"`
	S3Endpoint string `env:"S3_ENDPOINT" validate:"omitempty,url"`

	// Static keys are optional; the default AWS credential chain is used when unset.
	S3AccessKeyID     string `env:"S3_ACCESS_KEY_ID"`
	S3SecretAccessKey string `env:"S3_SECRET_ACCESS_KEY" validate:"required_with=S3AccessKeyID"`

	// Empty means views are rendered as JSON.
	TemplatesGlob string `env:"TEMPLATES_GLOB"`
	PublicDir     string `env:"PUBLIC_DIR" envDefault:"./public"`

	TokenPurgeSchedule string  `env:"TOKEN_PURGE_SCHEDULE" envDefault:"@every 15m" validate:"required"`
	AuthRatePerSec     float64 `env:"AUTH_RATE_PER_SEC" envDefault:"1" validate:"gt=0"`
	AuthRateBurst      int     `env:"AUTH_RATE_BURST" envDefault:"5" validate:"min=1"`
}

func Load() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	cfg.AppBaseURL = strings.TrimRight(cfg.AppBaseURL, "/")
	if cfg.PhotoBaseURL == "" {
		cfg.PhotoBaseURL = cfg.defaultPhotoBaseURL()
	}
	cfg.PhotoBaseURL = strings.TrimRight(cfg.PhotoBaseURL, "/")

	return cfg, nil
}

func (c *Config) defaultPhotoBaseURL() string {
	if c.UploadStorage != "s3" {
		return "/uploads"
	}
	if c.S3Endpoint != "" {
		// Path-style addressing, matching the client used for endpoint overrides.
		return strings.TrimRight(c.S3Endpoint, "/") + "/" + c.S3Bucket
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", c.S3Bucket, c.S3Region)
}

// SlogLevel maps LOG_LEVEL onto slog levels. Unknown values fall back to info.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

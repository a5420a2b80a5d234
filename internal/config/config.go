package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog/log"
)

// Environment represents different deployment environments
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvTesting     Environment = "testing"
	EnvProduction  Environment = "production"
)

// Config holds the server configuration.
// Environment variables are parsed with the HEARTBOOK_ prefix.
type Config struct {
	Environment Environment `envconfig:"ENVIRONMENT" default:"development"`
	LogLevel    string      `envconfig:"LOG_LEVEL" default:"info"`

	// HTTP Configuration
	HTTPPort int `envconfig:"HTTP_PORT" default:"3001"`

	// Storage layout
	DataDir              string `envconfig:"DATA_DIR" default:"public/data"`
	PhotosDir            string `envconfig:"PHOTOS_DIR" default:""`
	PublicPhotosPath     string `envconfig:"PUBLIC_PHOTOS_PATH" default:"/photos"`
	StaticDir            string `envconfig:"STATIC_DIR" default:""`
	SeedEmptyCollections bool   `envconfig:"SEED_EMPTY_COLLECTIONS" default:"true"`

	// Uploads
	MaxUploadMB       int           `envconfig:"MAX_UPLOAD_MB" default:"10"`
	MaxImageDimension int           `envconfig:"MAX_IMAGE_DIMENSION" default:"800"`
	JPEGQuality       int           `envconfig:"JPEG_QUALITY" default:"80"`
	TranscodeTimeout  time.Duration `envconfig:"TRANSCODE_TIMEOUT" default:"10s"`

	// Config document watcher
	WatchConfig bool `envconfig:"WATCH_CONFIG" default:"true"`

	// Health probe interval
	HealthIntervalSeconds int `envconfig:"HEALTH_INTERVAL_SECONDS" default:"30"`
}

// ResolveDefaults derives dependent settings and rejects impossible values.
func (c *Config) ResolveDefaults() error {
	switch c.Environment {
	case EnvDevelopment, EnvTesting, EnvProduction:
	default:
		return fmt.Errorf("unsupported ENVIRONMENT: %s", c.Environment)
	}
	if strings.TrimSpace(c.DataDir) == "" {
		return fmt.Errorf("DATA_DIR must not be empty")
	}
	if c.PhotosDir == "" {
		c.PhotosDir = filepath.Join(filepath.Dir(filepath.Clean(c.DataDir)), "photos")
	}
	if c.PublicPhotosPath == "" {
		c.PublicPhotosPath = "/photos"
	}
	c.PublicPhotosPath = "/" + strings.Trim(c.PublicPhotosPath, "/")
	if c.PublicPhotosPath == "/" || strings.HasPrefix(c.PublicPhotosPath, "/api") {
		return fmt.Errorf("unsupported PUBLIC_PHOTOS_PATH: %s", c.PublicPhotosPath)
	}
	if c.MaxUploadMB <= 0 {
		return fmt.Errorf("MAX_UPLOAD_MB must be positive, got %d", c.MaxUploadMB)
	}
	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		return fmt.Errorf("unsupported HTTP_PORT: %d", c.HTTPPort)
	}
	if c.HealthIntervalSeconds <= 0 {
		c.HealthIntervalSeconds = 30
	}
	return nil
}

// New creates a new Config by parsing environment variables
// Example: HEARTBOOK_HTTP_PORT, HEARTBOOK_DATA_DIR
func New() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("HEARTBOOK", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}

	if err := cfg.ResolveDefaults(); err != nil {
		return nil, err
	}

	log.Info().
		Str("environment", string(cfg.Environment)).
		Int("port", cfg.HTTPPort).
		Str("data_dir", cfg.DataDir).
		Str("photos_dir", cfg.PhotosDir).
		Str("public_photos_path", cfg.PublicPhotosPath).
		Int("max_upload_mb", cfg.MaxUploadMB).
		Dur("transcode_timeout", cfg.TranscodeTimeout).
		Bool("watch_config", cfg.WatchConfig).
		Msg("Configuration loaded")

	return &cfg, nil
}

// NewForTesting returns a config rooted at dir with the watcher disabled.
func NewForTesting(dir string) *Config {
	cfg := &Config{
		Environment:           EnvTesting,
		LogLevel:              "debug",
		HTTPPort:              3001,
		DataDir:               filepath.Join(dir, "data"),
		PhotosDir:             filepath.Join(dir, "photos"),
		PublicPhotosPath:      "/photos",
		SeedEmptyCollections:  true,
		MaxUploadMB:           10,
		MaxImageDimension:     800,
		JPEGQuality:           80,
		TranscodeTimeout:      10 * time.Second,
		WatchConfig:           false,
		HealthIntervalSeconds: 30,
	}
	return cfg
}

// IsTesting returns true if the environment is set to testing
func (c *Config) IsTesting() bool {
	return c.Environment == EnvTesting
}

// IsProduction returns true if the environment is set to production
func (c *Config) IsProduction() bool {
	return c.Environment == EnvProduction
}

// GetHTTPAddr returns the HTTP server address
func (c *Config) GetHTTPAddr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}

// MaxUploadBytes is the request size limit for uploads.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) << 20
}

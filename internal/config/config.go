// Package config loads and validates application configuration.
//
// Configuration comes from environment variables (optionally via a .env
// file) with the DICTATEMED_ prefix, is unmarshalled into typed structs with
// koanf, and validated with go-playground/validator so the process fails
// fast on missing or malformed values.
package config

import (
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	// Loads .env into the process environment before anything reads it.
	_ "github.com/joho/godotenv/autoload"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
	"github.com/rs/zerolog"
)

// Config is the root configuration object.
//
// Observability is a pointer because it is optional; defaults are injected
// when it is absent.
type Config struct {
	Primary       Primary              `koanf:"primary" validate:"required"`
	Server        ServerConfig         `koanf:"server" validate:"required"`
	Database      DatabaseConfig       `koanf:"database" validate:"required"`
	Redis         RedisConfig          `koanf:"redis" validate:"required"`
	Auth          AuthConfig           `koanf:"auth" validate:"required"`
	Storage       StorageConfig        `koanf:"storage" validate:"required"`
	LLM           LLMConfig            `koanf:"llm" validate:"required"`
	Ingest        IngestConfig         `koanf:"ingest"`
	Integration   IntegrationConfig    `koanf:"integration"`
	Observability *ObservabilityConfig `koanf:"observability"`
}

// Primary holds top-level runtime environment information.
type Primary struct {
	Env string `koanf:"env" validate:"required"`
}

// ServerConfig groups HTTP server settings. Timeouts are in seconds.
type ServerConfig struct {
	Port               string   `koanf:"port" validate:"required"`
	ReadTimeout        int      `koanf:"read_timeout" validate:"required"`
	WriteTimeout       int      `koanf:"write_timeout" validate:"required"`
	IdleTimeout        int      `koanf:"idle_timeout" validate:"required"`
	CORSAllowedOrigins []string `koanf:"cors_allowed_origins" validate:"required"`

	// RateLimitPerSecond caps per-client request rates; zero disables the
	// in-process limiter.
	RateLimitPerSecond int `koanf:"rate_limit_per_second"`
}

// DatabaseConfig contains PostgreSQL connection parameters and pool tuning.
type DatabaseConfig struct {
	Host            string `koanf:"host" validate:"required"`
	Port            int    `koanf:"port" validate:"required"`
	User            string `koanf:"user" validate:"required"`
	Password        string `koanf:"password" validate:"required"`
	Name            string `koanf:"name" validate:"required"`
	SSLMode         string `koanf:"ssl_mode" validate:"required"`
	MaxOpenConns    int    `koanf:"max_open_conns" validate:"required"`
	MaxIdleConns    int    `koanf:"max_idle_conns" validate:"required"`
	ConnMaxLifetime int    `koanf:"conn_max_lifetime" validate:"required"`
	ConnMaxIdleTime int    `koanf:"conn_max_idle_time" validate:"required"`
}

// RedisConfig contains Redis connection details ("host:port").
type RedisConfig struct {
	Address string `koanf:"address" validate:"required"`
}

// AuthConfig stores the Clerk secret key.
type AuthConfig struct {
	SecretKey string `koanf:"secret_key" validate:"required"`
}

// StorageConfig points at the S3-compatible object store that holds
// recordings and referral documents.
type StorageConfig struct {
	Endpoint  string `koanf:"endpoint" validate:"required"`
	AccessKey string `koanf:"access_key" validate:"required"`
	SecretKey string `koanf:"secret_key" validate:"required"`
	Bucket    string `koanf:"bucket" validate:"required"`
	UseSSL    bool   `koanf:"use_ssl"`

	// PresignExpiryMinutes bounds how long presigned upload/download URLs
	// stay valid. Zero falls back to 15 minutes.
	PresignExpiryMinutes int `koanf:"presign_expiry_minutes"`
}

// LLMConfig configures the text-generation provider used for letter
// drafting, referral extraction, and hallucination auditing.
type LLMConfig struct {
	APIKey string `koanf:"api_key" validate:"required"`
	Model  string `koanf:"model" validate:"required"`
}

// IngestConfig tunes the referral ingestion pipeline. Zero values fall back
// to the defaults in the ingest package.
type IngestConfig struct {
	// Window caps how many documents are processed concurrently.
	Window int `koanf:"window"`

	// MaxAttempts bounds retries of transient failures per step.
	MaxAttempts int `koanf:"max_attempts"`

	// MaxFileSizeMB rejects oversized uploads at registration time.
	MaxFileSizeMB int `koanf:"max_file_size_mb"`
}

// IntegrationConfig holds third-party API keys outside the core stack.
type IntegrationConfig struct {
	ResendAPIKey string `koanf:"resend_api_key"`
}

// loadConfig reads env vars with the DICTATEMED_ prefix, unmarshals them
// into Config, validates required fields, and injects observability
// defaults.
//
// Nested keys use double underscores: DICTATEMED_SERVER__PORT maps to
// server.port.
func loadConfig() (*Config, error) {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	k := koanf.New(".")

	err := k.Load(env.Provider("DICTATEMED_", ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, "DICTATEMED_"))
		return strings.ReplaceAll(key, "__", ".")
	}), nil)
	if err != nil {
		logger.Fatal().Err(err).Msg("could not load environment variables")
	}

	mainConfig := &Config{}

	if err := k.Unmarshal("", mainConfig); err != nil {
		logger.Fatal().Err(err).Msg("could not unmarshal config")
	}

	validate := validator.New()
	if err := validate.Struct(mainConfig); err != nil {
		logger.Fatal().Err(err).Msg("config validation failed")
	}

	if mainConfig.Observability == nil {
		mainConfig.Observability = DefaultObservabilityConfig()
	}

	// Service name and environment are not configurable: telemetry must see
	// consistent naming.
	mainConfig.Observability.ServiceName = "dictatemed"
	mainConfig.Observability.Environment = mainConfig.Primary.Env

	if err := mainConfig.Observability.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid observability config")
	}

	return mainConfig, nil
}

// Load returns the application configuration. Exposed for cmd/api.
func Load() (*Config, error) {
	return loadConfig()
}

package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ErrMissingSatelliteID is returned when no backend satellite identifier is configured
// and optional mode has not been requested.
var ErrMissingSatelliteID = errors.New("satellite id must be provided")

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName                string
	AppEnv                 string
	AppPort                string
	CORSAllowOrigins       string
	SatelliteID            string
	SatelliteOptional      bool
	DatabaseDriver         string
	DatabaseURL            string
	RedisURL               string
	NATSURL                string
	EventSubjectPrefix     string
	JWTSecret              string
	SessionTTL             time.Duration
	CloudinaryCloudName    string
	CloudinaryAPIKey       string
	CloudinaryAPISecret    string
	CloudinaryUploadFolder string
	UploadMaxSizeMB        int
	CacheTTL               time.Duration
	BootstrapEnabled       bool
	HealthChecksEnabled    bool
	HealthCheckInterval    time.Duration
	InitMaxRetries         int
	InitRetryDelay         time.Duration
	OIDCIssuerURL          string
	OIDCClientID           string
	OIDCClientSecret       string
	OIDCRedirectURL        string
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// CloudinaryEnabled reports whether file storage credentials are present.
func (c Config) CloudinaryEnabled() bool {
	return c.CloudinaryCloudName != "" && c.CloudinaryAPIKey != "" && c.CloudinaryAPISecret != ""
}

// OIDCEnabled reports whether federated sign-in is configured.
func (c Config) OIDCEnabled() bool {
	return c.OIDCIssuerURL != "" && c.OIDCClientID != ""
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("WAQF")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "Waqf API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("cors.allow_origins", "*")
	v.SetDefault("satellite.optional", false)
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("events.subject_prefix", "waqf")
	v.SetDefault("session.ttl", "12h")
	v.SetDefault("cloudinary.folder", "waqf")
	v.SetDefault("upload.max_mb", 5)
	v.SetDefault("cache.ttl", "5m")
	v.SetDefault("bootstrap.enabled", true)
	v.SetDefault("health.enabled", true)
	v.SetDefault("health.interval", "30s")
	v.SetDefault("init.max_retries", 3)
	v.SetDefault("init.retry_delay", "2s")

	sessionTTL, err := parseDuration(v, "session.ttl", 12*time.Hour)
	if err != nil {
		return Config{}, err
	}
	cacheTTL, err := parseDuration(v, "cache.ttl", 5*time.Minute)
	if err != nil {
		return Config{}, err
	}
	healthInterval, err := parseDuration(v, "health.interval", 30*time.Second)
	if err != nil {
		return Config{}, err
	}
	retryDelay, err := parseDuration(v, "init.retry_delay", 2*time.Second)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		AppName:                v.GetString("app.name"),
		AppEnv:                 v.GetString("app.env"),
		AppPort:                v.GetString("app.port"),
		CORSAllowOrigins:       strings.TrimSpace(v.GetString("cors.allow_origins")),
		SatelliteID:            strings.TrimSpace(v.GetString("satellite.id")),
		SatelliteOptional:      v.GetBool("satellite.optional"),
		DatabaseDriver:         strings.ToLower(strings.TrimSpace(v.GetString("database.driver"))),
		DatabaseURL:            v.GetString("database.url"),
		RedisURL:               v.GetString("redis.url"),
		NATSURL:                v.GetString("nats.url"),
		EventSubjectPrefix:     v.GetString("events.subject_prefix"),
		JWTSecret:              v.GetString("jwt.secret"),
		SessionTTL:             sessionTTL,
		CloudinaryCloudName:    v.GetString("cloudinary.cloud_name"),
		CloudinaryAPIKey:       v.GetString("cloudinary.api_key"),
		CloudinaryAPISecret:    v.GetString("cloudinary.api_secret"),
		CloudinaryUploadFolder: v.GetString("cloudinary.folder"),
		UploadMaxSizeMB:        v.GetInt("upload.max_mb"),
		CacheTTL:               cacheTTL,
		BootstrapEnabled:       v.GetBool("bootstrap.enabled"),
		HealthChecksEnabled:    v.GetBool("health.enabled"),
		HealthCheckInterval:    healthInterval,
		InitMaxRetries:         v.GetInt("init.max_retries"),
		InitRetryDelay:         retryDelay,
		OIDCIssuerURL:          v.GetString("oidc.issuer_url"),
		OIDCClientID:           v.GetString("oidc.client_id"),
		OIDCClientSecret:       v.GetString("oidc.client_secret"),
		OIDCRedirectURL:        v.GetString("oidc.redirect_url"),
	}

	if cfg.SatelliteID == "" && !cfg.SatelliteOptional {
		return Config{}, ErrMissingSatelliteID
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	if cfg.InitMaxRetries <= 0 {
		cfg.InitMaxRetries = 3
	}

	if cfg.UploadMaxSizeMB <= 0 {
		cfg.UploadMaxSizeMB = 5
	}

	return cfg, nil
}

func parseDuration(v *viper.Viper, key string, fallback time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(v.GetString(key))
	if raw == "" {
		return fallback, nil
	}

	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if parsed <= 0 {
		return fallback, nil
	}
	return parsed, nil
}

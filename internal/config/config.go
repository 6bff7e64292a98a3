package config

import (
	"fmt"
	"time"

	pkgconfig "github.com/playtube/user-service/pkg/config"
)

const defaultSecret = "change-this-to-a-secure-secret"

// Config holds all configuration for the user service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort int `env:"HTTP_PORT" envDefault:"8000"`

	// PostgreSQL
	PostgresHost string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser string `env:"POSTGRES_USER" envDefault:"playtube"`
	PostgresPass string `env:"POSTGRES_PASSWORD" envDefault:"playtube_secret"`
	PostgresDB   string `env:"POSTGRES_DB" envDefault:"user_db"`
	PostgresSSL  string `env:"POSTGRES_SSL_MODE" envDefault:"disable"`

	DBMaxConns int32 `env:"DB_MAX_CONNS" envDefault:"25"`
	DBMinConns int32 `env:"DB_MIN_CONNS" envDefault:"5"`

	// Kafka
	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`

	// Tokens. Access and refresh tokens are signed with independent secrets.
	AccessTokenSecret  string `env:"ACCESS_TOKEN_SECRET" envDefault:"change-this-to-a-secure-secret"`
	RefreshTokenSecret string `env:"REFRESH_TOKEN_SECRET" envDefault:"change-this-to-a-secure-secret"`
	AccessTokenExpiry  string `env:"ACCESS_TOKEN_EXPIRY" envDefault:"15m"`
	RefreshTokenExpiry string `env:"REFRESH_TOKEN_EXPIRY" envDefault:"240h"`

	// CORS
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`

	// Cookies. SecureCookies should only be disabled for local development
	// over plain HTTP.
	SecureCookies bool `env:"SECURE_COOKIES" envDefault:"true"`

	// OpenTelemetry
	OTELEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint   string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	OTELSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load user config: %w", err)
	}
	if cfg.HTTPPort < 1 || cfg.HTTPPort > 65535 {
		return nil, fmt.Errorf("invalid HTTP port: %d", cfg.HTTPPort)
	}

	if _, err := time.ParseDuration(cfg.AccessTokenExpiry); err != nil {
		return nil, fmt.Errorf("invalid access token expiry %q: %w", cfg.AccessTokenExpiry, err)
	}
	if _, err := time.ParseDuration(cfg.RefreshTokenExpiry); err != nil {
		return nil, fmt.Errorf("invalid refresh token expiry %q: %w", cfg.RefreshTokenExpiry, err)
	}

	// Outside development, both secrets must be explicitly set, strong, and
	// distinct from each other.
	if cfg.Environment != "development" {
		for name, secret := range map[string]string{
			"ACCESS_TOKEN_SECRET":  cfg.AccessTokenSecret,
			"REFRESH_TOKEN_SECRET": cfg.RefreshTokenSecret,
		} {
			if secret == defaultSecret {
				return nil, fmt.Errorf("%s must be explicitly set via environment variable in %q mode", name, cfg.Environment)
			}
			if len(secret) < 32 {
				return nil, fmt.Errorf("%s must be at least 32 characters long, got %d", name, len(secret))
			}
		}
		if cfg.AccessTokenSecret == cfg.RefreshTokenSecret {
			return nil, fmt.Errorf("ACCESS_TOKEN_SECRET and REFRESH_TOKEN_SECRET must differ")
		}
	}

	return cfg, nil
}

// AccessTokenTTL returns the parsed access token lifetime.
func (c *Config) AccessTokenTTL() time.Duration {
	d, _ := time.ParseDuration(c.AccessTokenExpiry)
	return d
}

// RefreshTokenTTL returns the parsed refresh token lifetime.
func (c *Config) RefreshTokenTTL() time.Duration {
	d, _ := time.ParseDuration(c.RefreshTokenExpiry)
	return d
}

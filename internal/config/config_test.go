package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, 8000, cfg.HTTPPort)
	assert.Equal(t, 15*time.Minute, cfg.AccessTokenTTL())
	assert.Equal(t, 240*time.Hour, cfg.RefreshTokenTTL())
	assert.True(t, cfg.SecureCookies)
}

func TestLoadInvalidPort(t *testing.T) {
	t.Setenv("HTTP_PORT", "99999")

	_, err := Load()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid HTTP port")
}

func TestLoadInvalidExpiry(t *testing.T) {
	t.Setenv("ACCESS_TOKEN_EXPIRY", "soon")

	_, err := Load()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid access token expiry")
}

func TestLoadProductionRejectsDefaultSecrets(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")

	_, err := Load()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be explicitly set")
}

func TestLoadProductionRejectsShortSecrets(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("ACCESS_TOKEN_SECRET", "short")
	t.Setenv("REFRESH_TOKEN_SECRET", strings.Repeat("r", 32))

	_, err := Load()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least 32 characters")
}

func TestLoadProductionRejectsIdenticalSecrets(t *testing.T) {
	shared := strings.Repeat("s", 32)
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("ACCESS_TOKEN_SECRET", shared)
	t.Setenv("REFRESH_TOKEN_SECRET", shared)

	_, err := Load()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "must differ")
}

func TestLoadProductionAcceptsStrongSecrets(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("ACCESS_TOKEN_SECRET", strings.Repeat("a", 32))
	t.Setenv("REFRESH_TOKEN_SECRET", strings.Repeat("r", 32))

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "production", cfg.Environment)
}

func TestLoadKafkaBrokerList(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "broker-1:9092,broker-2:9092")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, []string{"broker-1:9092", "broker-2:9092"}, cfg.KafkaBrokers)
}

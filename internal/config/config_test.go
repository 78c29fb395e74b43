package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("AUTH_JWT_SECRET", "")
	t.Setenv("REDIS_ADDR", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "guest-services", cfg.App.Name)
	assert.Equal(t, "dev-secret", cfg.Auth.JWTSecret)
	assert.Empty(t, cfg.Redis.Addr)
	assert.Equal(t, 250*time.Millisecond, cfg.Redis.OpTimeout())
	assert.Equal(t, 32, cfg.Realtime.Shards)
	assert.Equal(t, 25*time.Second, cfg.Realtime.Heartbeat())
	assert.Equal(t, 15*time.Minute, cfg.Realtime.WatermarkTTL())
	assert.Equal(t, time.Minute, cfg.Notification.SettingsCacheTTL())
	assert.True(t, cfg.Notification.Async)
}

func TestLoadRequiresSecretInProduction(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("AUTH_JWT_SECRET", "")

	_, err := Load()
	assert.Error(t, err)

	t.Setenv("AUTH_JWT_SECRET", "s3cret")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "s3cret", cfg.Auth.JWTSecret)
}

func TestLoadReadsOverrides(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "x")
	t.Setenv("REALTIME_BUFFER_SIZE", "8")
	t.Setenv("NOTIFY_ASYNC", "false")
	t.Setenv("NOTIFY_WORKERS", "not-a-number")
	t.Setenv("HTTP_REQUEST_TIMEOUT_SECONDS", "0")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Realtime.BufferSize)
	assert.False(t, cfg.Notification.Async)
	assert.Equal(t, 2, cfg.Notification.Workers)
	assert.Zero(t, cfg.App.RequestTimeout())
}

func TestLoadRejectsBadRedisDB(t *testing.T) {
	t.Setenv("REDIS_DB", "one")
	_, err := Load()
	assert.Error(t, err)
}

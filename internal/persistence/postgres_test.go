package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/guest-services/internal/config"
)

func TestPoolConfigAppliesLimitsAndRuntimeParams(t *testing.T) {
	poolCfg, err := poolConfig(config.PostgresConfig{
		DSN:                    "postgres://app:pw@localhost:5432/guest?sslmode=disable",
		MaxConns:               7,
		ConnMaxIdleSec:         12,
		StatementTimeoutMillis: 1500,
		ApplicationName:        "guest-services",
	})
	require.NoError(t, err)
	assert.EqualValues(t, 7, poolCfg.MaxConns)
	assert.Equal(t, 12*time.Second, poolCfg.MaxConnIdleTime)
	assert.Equal(t, "1500", poolCfg.ConnConfig.RuntimeParams["statement_timeout"])
	assert.Equal(t, "guest-services", poolCfg.ConnConfig.RuntimeParams["application_name"])
}

func TestPoolConfigRejectsMalformedDSN(t *testing.T) {
	_, err := poolConfig(config.PostgresConfig{DSN: "postgres://%zz"})
	assert.Error(t, err)
}

func TestNewPostgresWithoutDSNRunsPoolless(t *testing.T) {
	pg, err := NewPostgres(context.Background(), config.PostgresConfig{}, zap.NewNop())
	require.NoError(t, err)
	assert.Nil(t, pg.PoolHandle())
	assert.Error(t, pg.Ping(context.Background()))
	pg.Close()
}

func TestRedisDisabledWithoutAddr(t *testing.T) {
	r := NewRedis(config.RedisConfig{}, zap.NewNop())
	assert.False(t, r.Enabled())
	assert.Error(t, r.Ping(context.Background()))
	r.Close()
}

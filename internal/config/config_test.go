package config_test

import (
	"testing"

	"github.com/akarpovich/cardlink/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLoad_Defaults проверяет значения по умолчанию при минимальном окружении
func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.App.Port)
	assert.Equal(t, float64(10), cfg.RateLimit.RequestsPerSecond)
	assert.Equal(t, 20, cfg.RateLimit.BurstSize)
	assert.Equal(t, 2, cfg.Cards.MaxPerOwner)
	assert.Equal(t, 100, cfg.Redis.PoolSize)
	assert.Equal(t, 10, cfg.Redis.MinIdleConns)
}

// TestLoad_Overrides проверяет, что окружение переопределяет значения по умолчанию
func TestLoad_Overrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("APP_PORT", "9090")
	t.Setenv("REDIS_POOL_SIZE", "25")
	t.Setenv("REDIS_MIN_IDLE_CONNS", "5")
	t.Setenv("RATE_LIMIT_RPS", "50")
	t.Setenv("MAX_CARDS_PER_OWNER", "7")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.App.Port)
	assert.Equal(t, 25, cfg.Redis.PoolSize)
	assert.Equal(t, 5, cfg.Redis.MinIdleConns)
	assert.Equal(t, float64(50), cfg.RateLimit.RequestsPerSecond)
	assert.Equal(t, 7, cfg.Cards.MaxPerOwner)
}

// TestLoad_MissingJWTSecret проверяет, что без секрета конфигурация не собирается
func TestLoad_MissingJWTSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	cfg, err := config.Load()
	require.ErrorIs(t, err, config.ErrMissingJWTSecret)
	assert.Nil(t, cfg)
}

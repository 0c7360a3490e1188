package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8000, cfg.Port)
	assert.Equal(t, 10, cfg.DefaultLowStockThreshold)
	assert.Equal(t, time.Minute, cfg.CacheTTL())
	assert.False(t, cfg.IsProduction())
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("DEFAULT_LOW_STOCK_THRESHOLD", "25")
	t.Setenv("CACHE_TTL_SECONDS", "0")
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, 25, cfg.DefaultLowStockThreshold)
	assert.Equal(t, time.Duration(0), cfg.CacheTTL())
}

func TestLoad_ProductionRequiresSecret(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_SECRET", "")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("JWT_SECRET", "a-real-secret")
	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.IsProduction())
}

func TestValidate_NegativeThreshold(t *testing.T) {
	cfg := &Config{Env: "development", DefaultLowStockThreshold: -1}
	assert.Error(t, cfg.Validate())
}

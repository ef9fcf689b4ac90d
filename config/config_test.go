package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, 30*time.Second, cfg.CacheTTL)
	assert.Equal(t, 10*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 500.0, cfg.WindowHalfWidth)
	assert.Equal(t, "28-Apr-2026", cfg.DefaultExpiry)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("NSE_SYMBOL", "BANKNIFTY")
	t.Setenv("CACHE_TTL", "45")
	t.Setenv("REQUEST_TIMEOUT", "5s")
	t.Setenv("REFRESH_INTERVAL", "600s")
	t.Setenv("AUTO_REFRESH", "false")
	t.Setenv("WINDOW_HALF_WIDTH", "1000")
	t.Setenv("NSE_RATE_BURST", "3")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, "BANKNIFTY", cfg.Symbol)
	assert.Equal(t, 45*time.Second, cfg.CacheTTL)
	assert.Equal(t, 5*time.Second, cfg.RequestTimeout)
	assert.Equal(t, MaxRefreshInterval, cfg.RefreshInterval)
	assert.False(t, cfg.AutoRefresh)
	assert.Equal(t, 1000.0, cfg.WindowHalfWidth)
	assert.Equal(t, 3, cfg.RateBurst)
}

func TestLoad_EnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("DEFAULT_EXPIRY=26-May-2026\nREDIS_URL=redis://localhost:6379/0\n"), 0o600))
	t.Cleanup(func() {
		os.Unsetenv("DEFAULT_EXPIRY")
		os.Unsetenv("REDIS_URL")
	})

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "26-May-2026", cfg.DefaultExpiry)
	assert.Equal(t, "redis://localhost:6379/0", cfg.RedisURL)
}

func TestLoad_Invalid(t *testing.T) {
	for key, val := range map[string]string{
		"CACHE_TTL":         "soon",
		"WINDOW_HALF_WIDTH": "wide",
		"AUTO_REFRESH":      "sometimes",
		"NSE_RATE_BURST":    "x",
	} {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, val)
			_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
			require.Error(t, err)
			assert.Contains(t, err.Error(), key)
		})
	}
}

func TestClampInterval(t *testing.T) {
	assert.Equal(t, MinRefreshInterval, ClampInterval(time.Second))
	assert.Equal(t, 30*time.Second, ClampInterval(30*time.Second))
	assert.Equal(t, MaxRefreshInterval, ClampInterval(time.Hour))
}

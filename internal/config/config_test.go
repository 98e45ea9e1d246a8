package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"APP_ENV", "STORE_BACKEND", "CACHE_TTL", "WARNING_THRESHOLD", "GOOD_THRESHOLD", "RATE_LIMIT_PER_MIN"} {
		t.Setenv(k, "")
	}
	cfg := Load()

	assert.Equal(t, "dev", cfg.Env)
	assert.False(t, cfg.Production())
	assert.Equal(t, "postgres", cfg.StoreBackend)
	assert.Equal(t, 10*time.Minute, cfg.CacheTTL)
	assert.Equal(t, 60.0, cfg.WarningThreshold)
	assert.Equal(t, 75.0, cfg.GoodThreshold)
	assert.Equal(t, 120, cfg.RateLimitPerMin)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "prod")
	t.Setenv("STORE_BACKEND", "MEMORY")
	t.Setenv("CACHE_TTL", "30s")
	t.Setenv("WARNING_THRESHOLD", "50.5")
	t.Setenv("RATE_LIMIT_PER_MIN", "7")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("CORS_ORIGINS", "https://a.example, ,https://b.example")
	cfg := Load()

	assert.True(t, cfg.Production())
	assert.Equal(t, "memory", cfg.StoreBackend)
	assert.Equal(t, 30*time.Second, cfg.CacheTTL)
	assert.Equal(t, 50.5, cfg.WarningThreshold)
	assert.Equal(t, 7, cfg.RateLimitPerMin)
	assert.Equal(t, slog.LevelDebug, cfg.Level())
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
}

func TestInvalidValuesFallBack(t *testing.T) {
	t.Setenv("ACCESS_TTL", "soon")
	t.Setenv("BCRYPT_COST", "high")
	t.Setenv("GOOD_THRESHOLD", "most")
	cfg := Load()

	assert.Equal(t, 15*time.Minute, cfg.AccessTTL)
	assert.Equal(t, 10, cfg.BcryptCost)
	assert.Equal(t, 75.0, cfg.GoodThreshold)
}

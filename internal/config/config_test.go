package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadRateLimitConfigDefaults(t *testing.T) {
	cfg := LoadRateLimitConfig()
	assert.True(t, cfg.Enabled)
	assert.Equal(t, 60, cfg.Capacity)
	assert.Equal(t, time.Second, cfg.RefillInterval)
	assert.Equal(t, "ip_user_route", cfg.KeyStrategy)
}

func TestRateLimitConfigNormalized(t *testing.T) {
	cfg := RateLimitConfig{Capacity: 0, RefillTokens: -3, RefillInterval: 0, TTL: time.Second}.normalized()
	assert.Equal(t, 1, cfg.Capacity)
	assert.Equal(t, 1, cfg.RefillTokens)
	assert.Equal(t, time.Second, cfg.RefillInterval)
	assert.Equal(t, 5*time.Second, cfg.TTL)
}

func TestEnvHelpers(t *testing.T) {
	t.Setenv("X_BOOL", "off")
	t.Setenv("X_INT", "nope")
	t.Setenv("X_DUR", "250ms")
	assert.False(t, envBool("X_BOOL", true))
	assert.Equal(t, 7, envInt("X_INT", 7))
	assert.Equal(t, 250*time.Millisecond, envDur("X_DUR", time.Second))
	assert.Equal(t, "fallback", getenv("X_UNSET_FOR_TEST", "fallback"))
}

func TestLoadCacheConfigMethods(t *testing.T) {
	t.Setenv("CACHE_METHODS", "get, head")
	cfg := LoadCacheConfig()
	assert.True(t, cfg.Methods["GET"])
	assert.True(t, cfg.Methods["HEAD"])
	assert.False(t, cfg.Methods["POST"])
}

func TestLoadRequiresDatabaseAndSecret(t *testing.T) {
	t.Setenv("DB_USER", "app")
	t.Setenv("DB_HOST", "localhost")
	t.Setenv("DB_NAME", "testdrive")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("ADMIN_EMAIL", "  Admin@Example.com ")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://localhost:5173, https://app.example.com")

	cfg := Load()
	assert.Equal(t, "3306", cfg.DBPort)
	assert.Equal(t, "admin@example.com", cfg.AdminEmail)
	assert.Equal(t, []string{"http://localhost:5173", "https://app.example.com"}, cfg.AllowedOrigins)
	assert.Equal(t, "testdrive.requests", cfg.Events.Queue)
}

func TestLoadDefaultsToProduction(t *testing.T) {
	t.Setenv("DB_USER", "app")
	t.Setenv("DB_HOST", "localhost")
	t.Setenv("DB_NAME", "testdrive")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("APP_ENV", "")

	cfg := Load()
	assert.Equal(t, "prod", cfg.Env)
	assert.False(t, cfg.IsDev())

	t.Setenv("APP_ENV", "dev")
	assert.True(t, Load().IsDev())
}

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("APP_ENV", "dev")
	t.Setenv("APP_PORT", "8080")
	t.Setenv("DB_USER", "app")
	t.Setenv("DB_HOST", "localhost")
	t.Setenv("DB_PORT", "3306")
	t.Setenv("DB_NAME", "fintrack")
	t.Setenv("JWT_SECRET", "secret")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg := Load()
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 30*24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, 8*time.Hour, cfg.AdminTTL)
	assert.Equal(t, 10, cfg.BcryptCost)
	assert.True(t, cfg.IsDev())
	assert.False(t, cfg.Cookies.Secure, "dev cookies are not secure by default")
	assert.Equal(t, "admin-token", cfg.Cookies.AdminName)
	assert.Empty(t, cfg.TrustedProxies)
}

func TestLoad_Overrides(t *testing.T) {
	setRequired(t)
	t.Setenv("APP_ENV", "prod")
	t.Setenv("APP_BASE_URL", "https://app.example.com/")
	t.Setenv("CORS_ORIGINS", "https://a.example.com, https://b.example.com,")
	t.Setenv("BCRYPT_COST", "12")
	t.Setenv("TRUSTED_PROXIES", "10.0.0.0/8, 203.0.113.7")

	cfg := Load()
	assert.True(t, cfg.Cookies.Secure)
	assert.Equal(t, "https://app.example.com", cfg.BaseURL)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.CORSOrigins)
	assert.Equal(t, 12, cfg.BcryptCost)
	assert.Equal(t, []string{"10.0.0.0/8", "203.0.113.7"}, cfg.TrustedProxies)
}

func TestLoadRateLimitConfig(t *testing.T) {
	cfg := LoadRateLimitConfig()
	require.Equal(t, 5, cfg.AdminLogin.Max)
	require.Equal(t, 15*time.Minute, cfg.AdminLogin.Window)
	require.Equal(t, "memory", cfg.Backend)

	t.Setenv("ADMIN_LOGIN_MAX_ATTEMPTS", "0")
	t.Setenv("ADMIN_LOGIN_WINDOW", "garbage")
	cfg = LoadRateLimitConfig()
	assert.Equal(t, 1, cfg.AdminLogin.Max, "max is clamped to at least one attempt")
	assert.Equal(t, 15*time.Minute, cfg.AdminLogin.Window, "invalid duration falls back to default")
}

func TestEnvBool(t *testing.T) {
	t.Setenv("X_FLAG", "YES")
	assert.True(t, envBool("X_FLAG", false))
	t.Setenv("X_FLAG", "off")
	assert.False(t, envBool("X_FLAG", true))
	t.Setenv("X_FLAG", "maybe")
	assert.True(t, envBool("X_FLAG", true))
}

func TestOAuthEnabled(t *testing.T) {
	assert.False(t, LoadOAuthConfig().Enabled())
	t.Setenv("GOOGLE_CLIENT_ID", "id")
	t.Setenv("GOOGLE_CLIENT_SECRET", "secret")
	assert.True(t, LoadOAuthConfig().Enabled())
}

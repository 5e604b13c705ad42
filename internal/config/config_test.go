package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	assert.Equal(t, "5001", cfg.HTTPPort)
	assert.Equal(t, "rollcall", cfg.JWTIssuer)
	assert.Equal(t, 30*time.Minute, cfg.SessionCodeTTL)
	assert.Equal(t, 2*time.Minute, cfg.DisplayCodeTTL)
	assert.Equal(t, "redis", cfg.QueueBackend)
	assert.Equal(t, 120, cfg.RateLimitPerMin)
	assert.Equal(t, 0, cfg.RateLimitBurst)
	assert.Equal(t, 2*time.Second, cfg.RedisDialTimeout)
	assert.Equal(t, 10, cfg.RedisPoolSize)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("HTTP_PORT", "8080")
	t.Setenv("SESSION_CODE_TTL", "45m")
	t.Setenv("RATE_LIMIT_PER_MIN", "10")
	t.Setenv("REGISTRAR_URL", "http://registrar:9000")

	cfg := Load()
	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, 45*time.Minute, cfg.SessionCodeTTL)
	assert.Equal(t, 10, cfg.RateLimitPerMin)
	assert.Equal(t, "http://registrar:9000", cfg.RegistrarURL)
}

func TestLoadBadValuesFallBack(t *testing.T) {
	t.Setenv("SESSION_CODE_TTL", "soon")
	t.Setenv("RATE_LIMIT_PER_MIN", "many")

	cfg := Load()
	assert.Equal(t, 30*time.Minute, cfg.SessionCodeTTL)
	assert.Equal(t, 120, cfg.RateLimitPerMin)
}

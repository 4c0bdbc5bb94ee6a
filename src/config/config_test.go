package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfigDefaults(t *testing.T) {
	LoadConfig()

	assert.Equal(t, "8080", Cfg.Port)
	assert.Equal(t, "a", Cfg.NBPTable)
	assert.InDelta(t, 4.0, Cfg.DefaultUSDPLNRate, 1e-9)
	assert.Equal(t, 10*time.Second, Cfg.NBPRequestTimeout)
	assert.Equal(t, 30, Cfg.RateLimitBurst)
	assert.NotEmpty(t, Cfg.AllowedOrigins)
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("DEFAULT_USD_PLN_RATE", "4.25")
	t.Setenv("NBP_REQUEST_TIMEOUT", "3s")
	t.Setenv("ALLOWED_ORIGINS", "http://a.local, http://b.local")

	LoadConfig()

	assert.Equal(t, "9090", Cfg.Port)
	assert.InDelta(t, 4.25, Cfg.DefaultUSDPLNRate, 1e-9)
	assert.Equal(t, 3*time.Second, Cfg.NBPRequestTimeout)
	assert.Equal(t, []string{"http://a.local", "http://b.local"}, Cfg.AllowedOrigins)
}

func TestInvalidEnvValuesFallBack(t *testing.T) {
	t.Setenv("DEFAULT_USD_PLN_RATE", "not-a-number")
	t.Setenv("RATE_LIMIT_BURST", "many")
	t.Setenv("NBP_REQUEST_TIMEOUT", "soon")

	LoadConfig()

	assert.InDelta(t, 4.0, Cfg.DefaultUSDPLNRate, 1e-9)
	assert.Equal(t, 30, Cfg.RateLimitBurst)
	assert.Equal(t, 10*time.Second, Cfg.NBPRequestTimeout)
}

package config

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigHidesSecrets(t *testing.T) {
	cfg := Config{
		Auth:  Auth{SecretKey: "secret", Issuer: "auth-service", Audience: "audience-user"},
		Cache: Cache{Host: "localhost", Password: "hunter2", Port: 6379},
	}

	actual, err := json.Marshal(cfg)
	require.NoError(t, err)

	assert.NotContains(t, string(actual), "secret\"")
	assert.NotContains(t, string(actual), "hunter2")
	assert.Contains(t, string(actual), "auth-service")
	assert.Equal(t, "hunter2", cfg.Cache.Password)
}

func TestConfigDefaults(t *testing.T) {
	t.Setenv("CART_MAX_RETRIES", "3")

	v := viper.New()
	v.SetEnvKeyReplacer(envReplacer)
	v.AutomaticEnv()
	setDefaults(v)

	cfg := Config{}
	require.NoError(t, v.Unmarshal(&cfg))

	assert.Equal(t, 7*24*time.Hour, cfg.Cart.TTL)
	assert.Equal(t, 3, cfg.Cart.MaxRetries)
	assert.Equal(t, "usd", cfg.Cart.Currency)
	assert.Equal(t, CACHE_DRIVER_REDIS, cfg.Cache.Driver)
	assert.Equal(t, uint16(6379), cfg.Cache.Port)
	assert.False(t, cfg.Otel.Enabled)
}

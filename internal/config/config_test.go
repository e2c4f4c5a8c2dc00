package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("MYWORLD_TELEGRAM_TOKEN", "123:abc")

	cfg, err := fromViper(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "local", cfg.Env)
	assert.Equal(t, "http://localhost:8080", cfg.APIBaseURL)
	assert.Equal(t, "myworld_bot.db", cfg.DatabaseURL)
	assert.Equal(t, 5*time.Hour, cfg.DigestInterval)
	assert.Equal(t, 10*time.Minute, cfg.RefreshInterval)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 60*time.Second, cfg.AIRequestTimeout)
	assert.Equal(t, 2*time.Minute, cfg.CacheTTL)
	assert.Equal(t, ":9090", cfg.MetricsAddr)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("MYWORLD_TELEGRAM_TOKEN", "123:abc")
	t.Setenv("MYWORLD_ENV", "UAT")
	t.Setenv("MYWORLD_DIGEST_INTERVAL_HOURS", "0")
	t.Setenv("MYWORLD_LOG_LEVEL", "debug")
	t.Setenv("MYWORLD_CACHE_TTL", "30s")

	cfg, err := fromViper(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "uat", cfg.Env)
	assert.Equal(t, "https://uat.api.myworld.ai", cfg.APIBaseURL)
	assert.Zero(t, cfg.DigestInterval)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 30*time.Second, cfg.CacheTTL)
}

func TestExplicitBaseURLOverridesEnvironment(t *testing.T) {
	t.Setenv("MYWORLD_TELEGRAM_TOKEN", "123:abc")
	t.Setenv("MYWORLD_ENV", "prod")
	t.Setenv("MYWORLD_API_BASE_URL", "http://127.0.0.1:9999")

	cfg, err := fromViper(viper.New())
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:9999", cfg.APIBaseURL)
}

func TestTelegramTokenRequired(t *testing.T) {
	t.Setenv("MYWORLD_TELEGRAM_TOKEN", "")

	_, err := fromViper(viper.New())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TELEGRAM_TOKEN")
}

func TestBaseURLFor(t *testing.T) {
	tests := map[string]string{
		"local":   "http://localhost:8080",
		"dev":     "https://dev.api.myworld.ai",
		"uat":     "https://uat.api.myworld.ai",
		"perf":    "https://perf.api.myworld.ai",
		"prod":    "https://api.myworld.ai",
		" Prod ":  "https://api.myworld.ai",
		"staging": "http://localhost:8080",
		"":        "http://localhost:8080",
	}
	for env, want := range tests {
		assert.Equal(t, want, BaseURLFor(env), "env %q", env)
	}
}

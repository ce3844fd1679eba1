package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/pushkarkumarvats/DIG-7/internal/errors"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(New())
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, ":8080", cfg.Addr())
	assert.Equal(t, "./data", cfg.DataDir)
	assert.Equal(t, 5*time.Second, cfg.Prediction.PredictTimeout)
	assert.Equal(t, 30*time.Second, cfg.Prediction.BatchTimeout)
	assert.Equal(t, 3*time.Second, cfg.Prediction.HealthTimeout)
	assert.Equal(t, 0.75, cfg.Prediction.FallbackConfidence)
	assert.Equal(t, 60, cfg.RateLimit.IPLimitPerMin)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.AllowedOrigins)
	assert.Equal(t, 30*time.Second, cfg.CacheTTL)
	assert.Equal(t, 45*time.Second, cfg.Security.RequestTimeout)
	assert.Less(t, cfg.Prediction.BatchTimeout, cfg.Security.RequestTimeout)
	assert.False(t, cfg.DemoMode)
	assert.Empty(t, cfg.Redis.Addr)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ML_API_URL", "http://oracle:5000")
	t.Setenv("PREDICT_TIMEOUT", "2s")
	t.Setenv("DEMO_MODE", "true")
	t.Setenv("LIVE_SCORING", "1")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example,")

	cfg, err := Load(New())
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "http://oracle:5000", cfg.Prediction.BaseURL)
	assert.Equal(t, 2*time.Second, cfg.Prediction.PredictTimeout)
	assert.True(t, cfg.DemoMode)
	assert.True(t, cfg.LiveScoring)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
	assert.Equal(t, 2, cfg.Redis.DB)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{name: "zero port", key: "PORT", val: "0"},
		{name: "port out of range", key: "PORT", val: "70000"},
		{name: "negative predict timeout", key: "PREDICT_TIMEOUT", val: "-1s"},
		{name: "zero batch timeout", key: "BATCH_TIMEOUT", val: "0s"},
		{name: "zero health timeout", key: "HEALTH_TIMEOUT", val: "0s"},
		{name: "zero request timeout", key: "REQUEST_TIMEOUT", val: "0s"},
		{name: "zero rate limit", key: "RATE_LIMIT_PER_MIN", val: "0"},
		{name: "negative cache ttl", key: "RECOMMEND_CACHE_TTL", val: "-5s"},
		{name: "batch timeout not under request timeout", key: "BATCH_TIMEOUT", val: "45s"},
		{name: "predict timeout over request timeout", key: "PREDICT_TIMEOUT", val: "60s"},
		{name: "request timeout under batch timeout", key: "REQUEST_TIMEOUT", val: "20s"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)
			_, err := Load(New())
			require.Error(t, err)

			var appErr *apperrors.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, apperrors.CategoryConfiguration, appErr.Category)
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("HEALTH_TIMEOUT=7s\n"), 0o600))

	t.Setenv("HEALTH_TIMEOUT", "")
	require.NoError(t, os.Unsetenv("HEALTH_TIMEOUT"))

	LoadDotEnv(path)

	cfg, err := Load(New())
	require.NoError(t, err)
	assert.Equal(t, 7*time.Second, cfg.Prediction.HealthTimeout)
}

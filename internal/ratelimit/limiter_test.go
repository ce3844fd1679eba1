package ratelimit

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pushkarkumarvats/DIG-7/internal/monitoring"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newFallbackLimiter(t *testing.T, perMin int) (*RateLimiter, *monitoring.Metrics) {
	t.Helper()
	metrics := monitoring.NewMetrics()
	limiter := NewRateLimiter(&RedisClient{}, Config{IPLimitPerMin: perMin, BurstMultiplier: 1}, metrics)
	t.Cleanup(limiter.Close)
	return limiter, metrics
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 60, cfg.IPLimitPerMin)
	assert.Equal(t, 1, cfg.BurstMultiplier)
	assert.Equal(t, time.Hour, cfg.IdleTTL)
}

func TestRateLimiterFallbackMode(t *testing.T) {
	limiter, metrics := newFallbackLimiter(t, 5)
	frozen := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return frozen }

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		result, err := limiter.AllowIP(ctx, "10.0.0.1")
		require.NoError(t, err)
		assert.True(t, result.Allowed, "request %d should be allowed", i+1)
		assert.Equal(t, 5, result.Limit)
		assert.Equal(t, 4-i, result.Remaining)
	}

	result, err := limiter.AllowIP(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, result.Allowed, "6th request should be blocked")
	assert.Equal(t, 0, result.Remaining)
	// 5 per minute refills one token every 12s.
	assert.Equal(t, 12*time.Second, result.RetryAfter)
	assert.Equal(t, frozen.Add(time.Minute), result.ResetAt)

	assert.Equal(t, 6.0, testutil.ToFloat64(metrics.RateLimitFallbackCounter()))
}

func TestRateLimiterRefill(t *testing.T) {
	limiter, _ := newFallbackLimiter(t, 60)
	clock := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return clock }

	ctx := context.Background()
	for i := 0; i < 60; i++ {
		_, err := limiter.AllowIP(ctx, "10.0.0.1")
		require.NoError(t, err)
	}
	result, err := limiter.AllowIP(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, result.Allowed)

	clock = clock.Add(time.Second)
	result, err = limiter.AllowIP(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, result.Allowed)
}

func TestRateLimiterKeysAreIndependent(t *testing.T) {
	limiter, _ := newFallbackLimiter(t, 1)
	ctx := context.Background()

	first, err := limiter.AllowIP(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, first.Allowed)

	blocked, err := limiter.AllowIP(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, blocked.Allowed)

	other, err := limiter.AllowIP(ctx, "10.0.0.2")
	require.NoError(t, err)
	assert.True(t, other.Allowed)
}

func TestRateLimiterRejectsNonPositiveLimit(t *testing.T) {
	limiter, _ := newFallbackLimiter(t, 0)
	_, err := limiter.AllowIP(context.Background(), "10.0.0.1")
	assert.Error(t, err)
}

func TestRateLimiterRedisErrorFallsBack(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		MaxRetries:  -1,
		DialTimeout: 50 * time.Millisecond,
	})
	defer client.Close()

	metrics := monitoring.NewMetrics()
	limiter := NewRateLimiter(&RedisClient{client: client, enabled: true, addr: "127.0.0.1:1"},
		Config{IPLimitPerMin: 2, BurstMultiplier: 1}, metrics)
	defer limiter.Close()

	result, err := limiter.AllowIP(context.Background(), "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, result.Allowed)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.RateLimitRedisErrorCounter()))
}

func TestEvictIdle(t *testing.T) {
	metrics := monitoring.NewMetrics()
	limiter := NewRateLimiter(nil, Config{IPLimitPerMin: 5, IdleTTL: time.Minute}, metrics)
	defer limiter.Close()

	clock := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return clock }

	ctx := context.Background()
	_, err := limiter.AllowIP(ctx, "10.0.0.1")
	require.NoError(t, err)
	clock = clock.Add(50 * time.Second)
	_, err = limiter.AllowIP(ctx, "10.0.0.2")
	require.NoError(t, err)

	clock = clock.Add(20 * time.Second)
	assert.Equal(t, 1, limiter.evictIdle())

	n, err := limiter.KeyCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestInvalidation(t *testing.T) {
	limiter, _ := newFallbackLimiter(t, 1)
	ctx := context.Background()

	_, err := limiter.AllowIP(ctx, "10.0.0.1")
	require.NoError(t, err)
	_, err = limiter.AllowIP(ctx, "10.0.0.2")
	require.NoError(t, err)

	require.NoError(t, limiter.InvalidateIP(ctx, "10.0.0.1"))
	result, err := limiter.AllowIP(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, result.Allowed, "budget should be fresh after reset")

	cleared, err := limiter.InvalidateAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, cleared)

	n, err := limiter.KeyCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestIPRateLimitMiddleware(t *testing.T) {
	limiter, metrics := newFallbackLimiter(t, 2)

	router := gin.New()
	router.Use(limiter.IPRateLimitMiddleware())
	router.GET("/api/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	do := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/x", nil)
		req.RemoteAddr = "192.0.2.10:1234"
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	w := do()
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "1", w.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, w.Header().Get("X-RateLimit-Reset"))

	do()
	w = do()
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, "30", w.Header().Get("Retry-After"))

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "Rate limit exceeded", body["error"])
	assert.Equal(t, "rate_limit", body["category"])

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.RateLimitBlockCounter()))
}

func TestRetryAfterSeconds(t *testing.T) {
	assert.Equal(t, "1", retryAfterSeconds(&Result{}))
	assert.Equal(t, "2", retryAfterSeconds(&Result{RetryAfter: 1500 * time.Millisecond}))
	assert.Equal(t, "12", retryAfterSeconds(&Result{RetryAfter: 12 * time.Second}))
}

func TestHandlers(t *testing.T) {
	limiter, _ := newFallbackLimiter(t, 3)

	router := gin.New()
	router.GET("/status", limiter.HandleRateLimitStatus())
	router.GET("/admin", limiter.HandleAdminRateLimits())
	router.DELETE("/admin/:ip", limiter.HandleResetIP())

	_, err := limiter.AllowIP(context.Background(), "10.0.0.9")
	require.NoError(t, err)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/status", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var status map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Equal(t, "memory", status["backend"])

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var stats map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, 1.0, stats["active_keys"])
	assert.Equal(t, false, stats["redis_enabled"])

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/admin/10.0.0.9", nil))
	require.Equal(t, http.StatusOK, w.Code)

	n, err := limiter.KeyCount(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

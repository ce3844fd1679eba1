package ratelimit

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "github.com/pushkarkumarvats/DIG-7/internal/errors"
)

// HandleRateLimitStatus reports the caller's address and the configured
// budget without consuming from it.
func (rl *RateLimiter) HandleRateLimitStatus() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"ip": c.ClientIP(),
			"limits": gin.H{
				"ip_per_minute": gin.H{
					"limit":  rl.config.IPLimitPerMin,
					"burst":  rl.config.IPLimitPerMin * rl.config.BurstMultiplier,
					"period": "1 minute",
				},
			},
			"backend":   rl.backend(),
			"timestamp": time.Now().Format(time.RFC3339),
		})
	}
}

func (rl *RateLimiter) backend() string {
	if rl.redisClient.IsEnabled() {
		return "redis"
	}
	return "memory"
}

// HandleAdminRateLimits returns limiter statistics.
func (rl *RateLimiter) HandleAdminRateLimits() gin.HandlerFunc {
	return func(c *gin.Context) {
		keys, err := rl.KeyCount(c.Request.Context())
		if err != nil {
			apperrors.Abort(c, apperrors.NewStorageError("count rate limit keys", err))
			return
		}

		stats := rl.GetStats()
		stats["active_keys"] = keys
		c.JSON(http.StatusOK, stats)
	}
}

// HandleResetIP clears the budget for the :ip path parameter.
func (rl *RateLimiter) HandleResetIP() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.Param("ip")
		if ip == "" {
			apperrors.Abort(c, apperrors.NewValidationError("ip is required"))
			return
		}

		if err := rl.InvalidateIP(c.Request.Context(), ip); err != nil {
			apperrors.Abort(c, apperrors.NewStorageError("reset rate limit", err))
			return
		}

		c.JSON(http.StatusOK, gin.H{"success": true, "ip": ip})
	}
}

// HandleResetAll clears every budget.
func (rl *RateLimiter) HandleResetAll() gin.HandlerFunc {
	return func(c *gin.Context) {
		n, err := rl.InvalidateAll(c.Request.Context())
		if err != nil {
			apperrors.Abort(c, apperrors.NewStorageError("reset rate limits", err))
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "cleared": n})
	}
}

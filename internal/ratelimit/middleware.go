package ratelimit

import (
	"log/slog"
	"strconv"

	"github.com/gin-gonic/gin"

	apperrors "github.com/pushkarkumarvats/DIG-7/internal/errors"
)

// IPRateLimitMiddleware enforces the per-IP budget and reports it in the
// X-RateLimit-* headers. A limiter failure lets the request through.
func (rl *RateLimiter) IPRateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()

		result, err := rl.AllowIP(c.Request.Context(), ip)
		if err != nil {
			slog.Error("Rate limit check failed", "ip", ip, "error", err)
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(result.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))

		if !result.Allowed {
			if rl.metrics != nil {
				rl.metrics.IncrementRateLimitIPBlock()
			}

			retryAfter := retryAfterSeconds(result)
			c.Header("Retry-After", retryAfter)
			apperrors.Abort(c, apperrors.NewRateLimitError(retryAfter))
			return
		}

		c.Next()
	}
}

// retryAfterSeconds rounds up so clients never retry early.
func retryAfterSeconds(r *Result) string {
	secs := int(r.RetryAfter.Seconds())
	if float64(secs) < r.RetryAfter.Seconds() {
		secs++
	}
	if secs < 1 {
		secs = 1
	}
	return strconv.Itoa(secs)
}

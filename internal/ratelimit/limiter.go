package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/go-redis/redis_rate/v10"
	"golang.org/x/time/rate"

	"github.com/pushkarkumarvats/DIG-7/internal/monitoring"
)

const keyPrefix = "ratelimit:"

type Config struct {
	IPLimitPerMin   int           `mapstructure:"ip_limit_per_min"`
	BurstMultiplier int           `mapstructure:"burst_multiplier"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
	// IdleTTL is how long an in-memory bucket survives without traffic.
	IdleTTL time.Duration `mapstructure:"idle_ttl"`
}

func DefaultConfig() Config {
	return Config{
		IPLimitPerMin:   60,
		BurstMultiplier: 1,
		CleanupInterval: 10 * time.Minute,
		IdleTTL:         time.Hour,
	}
}

type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter time.Duration
}

type fallbackEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter counts requests in Redis when it is reachable and in a local
// token bucket per key otherwise.
type RateLimiter struct {
	redisLimiter *redis_rate.Limiter
	redisClient  *RedisClient
	config       Config
	metrics      *monitoring.Metrics

	fallbackLimiters map[string]*fallbackEntry
	fallbackMutex    sync.Mutex

	now       func() time.Time
	done      chan struct{}
	closeOnce sync.Once
}

func NewRateLimiter(redisClient *RedisClient, config Config, metrics *monitoring.Metrics) *RateLimiter {
	if redisClient == nil {
		redisClient = &RedisClient{}
	}
	if config.BurstMultiplier < 1 {
		config.BurstMultiplier = 1
	}

	rl := &RateLimiter{
		redisClient:      redisClient,
		config:           config,
		metrics:          metrics,
		fallbackLimiters: make(map[string]*fallbackEntry),
		now:              time.Now,
		done:             make(chan struct{}),
	}

	if redisClient.IsEnabled() {
		rl.redisLimiter = redis_rate.NewLimiter(redisClient.GetClient())
		slog.Info("Redis rate limiter initialized")
	} else {
		slog.Warn("Redis unavailable, using in-memory rate limiting only")
	}

	if config.CleanupInterval > 0 {
		go rl.cleanupLoop()
	}

	return rl
}

func ipKey(ip string) string {
	return fmt.Sprintf("%sip:%s", keyPrefix, ip)
}

// AllowIP checks the per-minute budget for one client address.
func (rl *RateLimiter) AllowIP(ctx context.Context, ip string) (*Result, error) {
	return rl.allow(ctx, ipKey(ip), rl.config.IPLimitPerMin, time.Minute)
}

func (rl *RateLimiter) allow(ctx context.Context, key string, limit int, period time.Duration) (*Result, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("rate limit for %s must be positive, got %d", key, limit)
	}

	if rl.redisClient.IsEnabled() && rl.redisLimiter != nil {
		result, err := rl.allowRedis(ctx, key, limit, period)
		if err == nil {
			return result, nil
		}
		slog.Warn("Redis rate limit check failed, using fallback", "key", key, "error", err)
		if rl.metrics != nil {
			rl.metrics.IncrementRateLimitRedisError()
		}
	} else if rl.metrics != nil {
		rl.metrics.IncrementRateLimitFallback()
	}

	return rl.allowFallback(key, limit, period), nil
}

func (rl *RateLimiter) allowRedis(ctx context.Context, key string, limit int, period time.Duration) (*Result, error) {
	res, err := rl.redisLimiter.Allow(ctx, key, redis_rate.Limit{
		Rate:   limit,
		Burst:  limit * rl.config.BurstMultiplier,
		Period: period,
	})
	if err != nil {
		return nil, fmt.Errorf("redis rate limit check failed: %w", err)
	}

	return &Result{
		Allowed:    res.Allowed > 0,
		Limit:      res.Limit.Rate,
		Remaining:  res.Remaining,
		ResetAt:    rl.now().Add(res.ResetAfter),
		RetryAfter: max(res.RetryAfter, 0),
	}, nil
}

func (rl *RateLimiter) allowFallback(key string, limit int, period time.Duration) *Result {
	now := rl.now()

	rl.fallbackMutex.Lock()
	entry, exists := rl.fallbackLimiters[key]
	if !exists {
		entry = &fallbackEntry{
			limiter: rate.NewLimiter(rate.Limit(float64(limit)/period.Seconds()), limit*rl.config.BurstMultiplier),
		}
		rl.fallbackLimiters[key] = entry
	}
	entry.lastSeen = now
	allowed := entry.limiter.AllowN(now, 1)
	tokens := entry.limiter.TokensAt(now)
	burst := entry.limiter.Burst()
	rl.fallbackMutex.Unlock()

	result := &Result{
		Allowed:   allowed,
		Limit:     limit,
		Remaining: max(int(math.Floor(tokens)), 0),
	}

	// Time until the bucket refills completely.
	result.ResetAt = now.Add(refillTime(float64(burst)-tokens, limit, period))
	if !allowed {
		result.RetryAfter = refillTime(1-tokens, limit, period)
	}
	return result
}

// refillTime is how long a bucket refilling limit tokens per period needs
// to regain n tokens.
func refillTime(n float64, limit int, period time.Duration) time.Duration {
	if n <= 0 {
		return 0
	}
	return time.Duration(math.Ceil(n * float64(period) / float64(limit)))
}

func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.evictIdle()
		case <-rl.done:
			return
		}
	}
}

// evictIdle drops in-memory buckets that have seen no traffic for IdleTTL.
func (rl *RateLimiter) evictIdle() int {
	if rl.config.IdleTTL <= 0 {
		return 0
	}
	cutoff := rl.now().Add(-rl.config.IdleTTL)

	rl.fallbackMutex.Lock()
	defer rl.fallbackMutex.Unlock()

	evicted := 0
	for key, entry := range rl.fallbackLimiters {
		if entry.lastSeen.Before(cutoff) {
			delete(rl.fallbackLimiters, key)
			evicted++
		}
	}
	if evicted > 0 {
		slog.Debug("Evicted idle fallback rate limiters", "count", evicted)
	}
	return evicted
}

func (rl *RateLimiter) Config() Config {
	return rl.config
}

func (rl *RateLimiter) GetStats() map[string]interface{} {
	rl.fallbackMutex.Lock()
	fallbackCount := len(rl.fallbackLimiters)
	rl.fallbackMutex.Unlock()

	stats := map[string]interface{}{
		"redis_enabled":     rl.redisClient.IsEnabled(),
		"fallback_limiters": fallbackCount,
		"ip_limit_per_min":  rl.config.IPLimitPerMin,
	}
	if rl.redisClient.IsEnabled() {
		stats["redis_pool"] = rl.redisClient.GetPoolStats()
	}
	return stats
}

// Close stops the cleanup goroutine. It does not close the Redis client.
func (rl *RateLimiter) Close() {
	rl.closeOnce.Do(func() { close(rl.done) })
}

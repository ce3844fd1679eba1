package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// InvalidateIP resets the budget of one client address.
func (rl *RateLimiter) InvalidateIP(ctx context.Context, ip string) error {
	key := ipKey(ip)

	rl.fallbackMutex.Lock()
	delete(rl.fallbackLimiters, key)
	rl.fallbackMutex.Unlock()

	if !rl.redisClient.IsEnabled() {
		slog.Info("Invalidated IP rate limit (in-memory)", "ip", ip)
		return nil
	}

	// redis_rate stores its state under its own prefix.
	if _, err := rl.deleteByPattern(ctx, "rate:"+key); err != nil {
		return err
	}
	slog.Info("Invalidated IP rate limit", "ip", ip)
	return nil
}

// InvalidateAll clears every bucket and returns how many were removed.
func (rl *RateLimiter) InvalidateAll(ctx context.Context) (int, error) {
	rl.fallbackMutex.Lock()
	count := len(rl.fallbackLimiters)
	clear(rl.fallbackLimiters)
	rl.fallbackMutex.Unlock()

	if !rl.redisClient.IsEnabled() {
		slog.Warn("Invalidated all rate limits (in-memory)", "count", count)
		return count, nil
	}

	deleted, err := rl.deleteByPattern(ctx, "rate:"+keyPrefix+"*")
	if err != nil {
		return count, err
	}
	slog.Warn("Invalidated all rate limits", "count", deleted)
	return deleted, nil
}

// KeyCount reports the number of live buckets.
func (rl *RateLimiter) KeyCount(ctx context.Context) (int, error) {
	if !rl.redisClient.IsEnabled() {
		rl.fallbackMutex.Lock()
		defer rl.fallbackMutex.Unlock()
		return len(rl.fallbackLimiters), nil
	}

	client := rl.redisClient.GetClient()
	var cursor uint64
	total := 0
	for {
		keys, next, err := client.Scan(ctx, cursor, "rate:"+keyPrefix+"*", 100).Result()
		if err != nil {
			return 0, fmt.Errorf("failed to scan keys: %w", err)
		}
		total += len(keys)
		cursor = next
		if cursor == 0 {
			return total, nil
		}
	}
}

func (rl *RateLimiter) deleteByPattern(ctx context.Context, pattern string) (int, error) {
	client := rl.redisClient.GetClient()

	// A pattern without wildcards names a single key.
	if !strings.ContainsAny(pattern, "*?[") {
		n, err := client.Del(ctx, pattern).Result()
		if err != nil {
			return 0, fmt.Errorf("failed to delete key: %w", err)
		}
		return int(n), nil
	}

	var cursor uint64
	deleted := 0
	for {
		keys, next, err := client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return deleted, fmt.Errorf("failed to scan keys: %w", err)
		}
		if len(keys) > 0 {
			n, err := client.Del(ctx, keys...).Result()
			if err != nil {
				return deleted, fmt.Errorf("failed to delete keys: %w", err)
			}
			deleted += int(n)
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}

	slog.Info("Deleted rate limit keys by pattern", "pattern", pattern, "count", deleted)
	return deleted, nil
}

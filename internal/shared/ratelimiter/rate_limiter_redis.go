package ratelimiter

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisRateLimiter shares fixed windows between instances through Redis INCR + EXPIRE.
type RedisRateLimiter struct {
	client   redis.Cmdable
	prefix   string
	limit    int
	interval time.Duration
}

var _ Limiter = (*RedisRateLimiter)(nil)

// NewRedisRateLimiter creates a Redis-backed limiter. Keys are stored as prefix:key.
func NewRedisRateLimiter(client redis.Cmdable, prefix string, limit int, interval time.Duration) *RedisRateLimiter {
	return &RedisRateLimiter{client: client, prefix: prefix, limit: limit, interval: interval}
}

// Allow implements Limiter.
func (rl *RedisRateLimiter) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	k := rl.prefix + ":" + key

	var incr *redis.IntCmd
	var ttl *redis.DurationCmd
	_, err := rl.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, k)
		// NX keeps the window anchored at the first attempt
		pipe.ExpireNX(ctx, k, rl.interval)
		ttl = pipe.PTTL(ctx, k)
		return nil
	})
	if err != nil {
		return false, 0, fmt.Errorf("rate limit %s: %w", k, err)
	}

	if incr.Val() > int64(rl.limit) {
		retry := ttl.Val()
		if retry <= 0 {
			retry = rl.interval
		}
		return false, retry, nil
	}
	return true, 0, nil
}

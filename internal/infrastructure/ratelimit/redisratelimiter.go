package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "autotrader:ratelimit:"

// RedisRateLimiter keeps one sorted set of request timestamps per key and
// window. Denied requests are not recorded.
type RedisRateLimiter struct {
	client *redis.Client
	now    func() time.Time
}

// NewRedisRateLimiter creates a new RedisRateLimiter
func NewRedisRateLimiter(client *redis.Client) *RedisRateLimiter {
	return &RedisRateLimiter{client: client, now: time.Now}
}

type window struct {
	duration time.Duration
	limit    int
}

// Allow checks every configured window and records the request only when all pass.
func (l *RedisRateLimiter) Allow(ctx context.Context, key string, limits Limits) (Decision, error) {
	now := l.now()
	windows := []window{
		{time.Minute, limits.PerMinute},
		{time.Hour, limits.PerHour},
	}

	decision := Decision{Allowed: true, Remaining: -1}
	for _, w := range windows {
		if w.limit <= 0 {
			continue
		}

		count, oldest, err := l.count(ctx, key, w.duration, now)
		if err != nil {
			return Decision{}, err
		}

		remaining := w.limit - int(count) - 1
		if count >= int64(w.limit) {
			retry := w.duration - now.Sub(oldest)
			if retry < time.Second {
				retry = time.Second
			}
			return Decision{Allowed: false, Limit: w.limit, Remaining: 0, RetryAfter: retry}, nil
		}
		if decision.Remaining < 0 || remaining < decision.Remaining {
			decision.Limit = w.limit
			decision.Remaining = remaining
		}
	}

	if err := l.record(ctx, key, windows, now); err != nil {
		return Decision{}, err
	}
	if decision.Remaining < 0 {
		decision.Remaining = 0
	}
	return decision, nil
}

func (l *RedisRateLimiter) count(ctx context.Context, key string, d time.Duration, now time.Time) (int64, time.Time, error) {
	redisKey := windowKey(key, d)
	windowStart := now.Add(-d).UnixNano()

	pipe := l.client.Pipeline()
	pipe.ZRemRangeByScore(ctx, redisKey, "0", strconv.FormatInt(windowStart, 10))
	card := pipe.ZCard(ctx, redisKey)
	first := pipe.ZRangeWithScores(ctx, redisKey, 0, 0)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, time.Time{}, fmt.Errorf("failed to read rate limit window: %w", err)
	}

	oldest := now
	if zs := first.Val(); len(zs) > 0 {
		oldest = time.Unix(0, int64(zs[0].Score))
	}
	return card.Val(), oldest, nil
}

func (l *RedisRateLimiter) record(ctx context.Context, key string, windows []window, now time.Time) error {
	member := strconv.FormatInt(now.UnixNano(), 10) + ":" + uuid.NewString()

	pipe := l.client.TxPipeline()
	for _, w := range windows {
		if w.limit <= 0 {
			continue
		}
		redisKey := windowKey(key, w.duration)
		pipe.ZAdd(ctx, redisKey, redis.Z{Score: float64(now.UnixNano()), Member: member})
		pipe.Expire(ctx, redisKey, w.duration+time.Minute)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to record request: %w", err)
	}
	return nil
}

// Reset clears every window of key.
func (l *RedisRateLimiter) Reset(ctx context.Context, key string) error {
	iter := l.client.Scan(ctx, 0, keyPrefix+key+":*", 0).Iterator()
	for iter.Next(ctx) {
		if err := l.client.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("failed to delete key %s: %w", iter.Val(), err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan keys: %w", err)
	}
	return nil
}

func windowKey(key string, d time.Duration) string {
	return keyPrefix + key + ":" + d.String()
}

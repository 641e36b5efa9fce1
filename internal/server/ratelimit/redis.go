package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/dmitrijs2005/homesite/internal/common"
	"github.com/redis/go-redis/v9"
)

const defaultKeyPrefix = "homesite:ratelimit:"

// RedisLimiter allows at most limit requests per key in any window-long
// interval. Each request is a member of a sorted set scored by its
// timestamp; rejected requests are not recorded.
type RedisLimiter struct {
	client    redis.Cmdable
	limit     int
	window    time.Duration
	keyPrefix string
	now       func() time.Time
}

func NewRedisLimiter(client redis.Cmdable, limit int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{
		client:    client,
		limit:     limit,
		window:    window,
		keyPrefix: defaultKeyPrefix,
		now:       time.Now,
	}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (Result, error) {
	now := l.now()
	windowStart := now.Add(-l.window)
	key = l.keyPrefix + key

	member, err := common.MakeRandHexString(8)
	if err != nil {
		return l.failOpen(), err
	}
	member = strconv.FormatInt(now.UnixNano(), 10) + "-" + member

	pipe := l.client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, key, "-inf", "("+strconv.FormatInt(windowStart.UnixNano(), 10))
	zcard := pipe.ZCard(ctx, key)
	pipe.ZAdd(ctx, key, redis.Z{Score: float64(now.UnixNano()), Member: member})
	pipe.PExpire(ctx, key, l.window)

	if _, err := pipe.Exec(ctx); err != nil {
		return l.failOpen(), fmt.Errorf("redis rate limit: %w", err)
	}

	count := int(zcard.Val())
	if count < l.limit {
		return Result{
			Allowed:   true,
			Limit:     l.limit,
			Remaining: l.limit - count - 1,
		}, nil
	}

	// over budget: forget this attempt and report when the oldest one expires
	if err := l.client.ZRem(ctx, key, member).Err(); err != nil {
		return l.failOpen(), fmt.Errorf("redis rate limit: %w", err)
	}

	retryAfter := l.window
	oldest, err := l.client.ZRangeWithScores(ctx, key, 0, 0).Result()
	if err == nil && len(oldest) > 0 {
		retryAfter = time.Unix(0, int64(oldest[0].Score)).Add(l.window).Sub(now)
	}
	if retryAfter <= 0 {
		retryAfter = time.Millisecond
	}

	return Result{Allowed: false, Limit: l.limit, RetryAfter: retryAfter}, nil
}

func (l *RedisLimiter) failOpen() Result {
	return Result{Allowed: true, Limit: l.limit, Remaining: l.limit}
}

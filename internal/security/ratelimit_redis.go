package security

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisLimiter is a sliding-window limiter backed by a Redis sorted set
// per key, so the budget is shared across instances. When Redis is
// unreachable the limiter fails open: availability wins over throttling
// accuracy.
type RedisLimiter struct {
	client *redis.Client
	prefix string
	window time.Duration
	max    int
	logger *zap.Logger
}

func NewRedisLimiter(client *redis.Client, prefix string, max int, window time.Duration, logger *zap.Logger) *RedisLimiter {
	return &RedisLimiter{
		client: client,
		prefix: prefix,
		window: window,
		max:    max,
		logger: logger,
	}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) bool {
	now := time.Now()
	redisKey := l.prefix + ":" + key
	cutoff := now.Add(-l.window).UnixNano()

	pipe := l.client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, redisKey, "0", strconv.FormatInt(cutoff, 10))
	pipe.ZAdd(ctx, redisKey, redis.Z{Score: float64(now.UnixNano()), Member: uuid.NewString()})
	card := pipe.ZCard(ctx, redisKey)
	pipe.Expire(ctx, redisKey, l.window)

	if _, err := pipe.Exec(ctx); err != nil {
		l.logger.Warn("rate limiter backend unavailable, allowing request",
			zap.String("key", key),
			zap.Error(err),
		)
		return true
	}

	return card.Val() <= int64(l.max)
}

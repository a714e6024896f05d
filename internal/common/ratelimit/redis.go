package ratelimit

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"crm-insights/internal/common/logger"
)

// RedisLimiter shares windows across instances using one sorted set per
// action and tenant, scored by request time in milliseconds.
type RedisLimiter struct {
	client *redis.Client
	rules  Rules
	logger logger.Logger
	now    func() time.Time
}

func NewRedisLimiter(client *redis.Client, rules Rules, log logger.Logger) *RedisLimiter {
	return &RedisLimiter{
		client: client,
		rules:  rules,
		logger: log,
		now:    time.Now,
	}
}

// CheckLimit fails open when redis is unreachable.
func (r *RedisLimiter) CheckLimit(ctx context.Context, action, tenantKey string) bool {
	rule, ok := r.rules[action]
	if !ok {
		return true
	}

	k := key(action, tenantKey)
	now := r.now()
	cutoff := now.Add(-rule.Window).UnixMilli()

	pipe := r.client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, k, "-inf", strconv.FormatInt(cutoff, 10))
	count := pipe.ZCard(ctx, k)
	if _, err := pipe.Exec(ctx); err != nil {
		r.logger.Warn("Rate limiter unavailable, allowing request", map[string]interface{}{
			"action": action,
			"tenant": tenantKey,
			"error":  err.Error(),
		})
		return true
	}

	if count.Val() >= int64(rule.Limit) {
		return false
	}

	pipe = r.client.TxPipeline()
	pipe.ZAdd(ctx, k, redis.Z{Score: float64(now.UnixMilli()), Member: uuid.NewString()})
	pipe.PExpire(ctx, k, rule.Window)
	if _, err := pipe.Exec(ctx); err != nil {
		r.logger.Warn("Rate limiter failed to record request", map[string]interface{}{
			"action": action,
			"tenant": tenantKey,
			"error":  err.Error(),
		})
	}
	return true
}

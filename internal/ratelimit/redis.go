package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "execguard:rl:"

// RedisLimiter shares one sliding-window budget across processes. Each
// agent gets a sorted set of execution timestamps (score = unix nanos) and
// a cooldown key with a TTL. Semantics match MemoryLimiter; the race
// between read and append is narrower but, as with the in-memory limiter,
// not transactional.
//
// Redis errors fail open: the limiter is a throttle, not the security
// boundary, and an unreachable Redis must not block every agent.
type RedisLimiter struct {
	client *redis.Client
	cfg    Config
	clock  Clock
	logger *slog.Logger
}

// NewRedisLimiter creates a limiter backed by the given Redis client.
func NewRedisLimiter(client *redis.Client, cfg Config, clock Clock, logger *slog.Logger) *RedisLimiter {
	if clock == nil {
		clock = SystemClock{}
	}
	return &RedisLimiter{
		client: client,
		cfg:    cfg.withDefaults(),
		clock:  clock,
		logger: logger,
	}
}

// Check applies the shared budget for one proposed execution.
func (l *RedisLimiter) Check(ctx context.Context, agentID string) Decision {
	now := l.clock.Now()
	key := redisKeyPrefix + agentID
	cooldownKey := key + ":cooldown"

	ttl, err := l.client.TTL(ctx, cooldownKey).Result()
	if err != nil {
		return l.failOpen(err)
	}
	if ttl > 0 {
		return Decision{
			Allowed:    false,
			Reason:     fmt.Sprintf("rate limit cooldown active, retry in %ds", int(ttl.Seconds())+1),
			RetryAfter: ttl,
		}
	}

	hourCutoff := strconv.FormatInt(now.Add(-time.Hour).UnixNano(), 10)
	if err := l.client.ZRemRangeByScore(ctx, key, "-inf", hourCutoff).Err(); err != nil {
		return l.failOpen(err)
	}

	minuteCutoff := strconv.FormatInt(now.Add(-time.Minute).UnixNano(), 10)
	inMinute, err := l.client.ZCount(ctx, key, minuteCutoff, "+inf").Result()
	if err != nil {
		return l.failOpen(err)
	}
	inHour, err := l.client.ZCard(ctx, key).Result()
	if err != nil {
		return l.failOpen(err)
	}

	if inMinute >= int64(l.cfg.PerMinute) {
		return l.startCooldown(ctx, cooldownKey, l.cfg.CooldownBase,
			fmt.Sprintf("per-minute execution limit reached (%d/min)", l.cfg.PerMinute))
	}
	if inHour >= int64(l.cfg.PerHour) {
		return l.startCooldown(ctx, cooldownKey, 5*l.cfg.CooldownBase,
			fmt.Sprintf("per-hour execution limit reached (%d/hour)", l.cfg.PerHour))
	}

	// The member carries a nonce: two checks at the same clock reading must
	// occupy two budget slots, and ZAdd replaces rather than adds when
	// members collide.
	member := strconv.FormatInt(now.UnixNano(), 10) + "-" + uuid.NewString()
	pipe := l.client.TxPipeline()
	pipe.ZAdd(ctx, key, redis.Z{Score: float64(now.UnixNano()), Member: member})
	pipe.Expire(ctx, key, time.Hour)
	if _, err := pipe.Exec(ctx); err != nil {
		return l.failOpen(err)
	}

	return Decision{Allowed: true}
}

func (l *RedisLimiter) startCooldown(ctx context.Context, key string, d time.Duration, reason string) Decision {
	if err := l.client.Set(ctx, key, "1", d).Err(); err != nil {
		l.logger.Error("rate limit cooldown not persisted", "error", err)
	}
	return Decision{Allowed: false, Reason: reason, RetryAfter: d}
}

func (l *RedisLimiter) failOpen(err error) Decision {
	l.logger.Error("rate limit backend unavailable, allowing", "error", err)
	return Decision{Allowed: true}
}

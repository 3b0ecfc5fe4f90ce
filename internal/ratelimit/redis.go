package ratelimit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	redisclient "github.com/eduinstitute/liveclass-server/internal/redis"
)

// slidingWindowScript returns {allowed, remaining, resetAt}.
var slidingWindowScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])

local windowStart = now - window

redis.call('ZREMRANGEBYSCORE', key, '-inf', windowStart)

local count = redis.call('ZCARD', key)

if count >= limit then
    local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
    local resetAt = 0
    if #oldest >= 2 then
        resetAt = tonumber(oldest[2]) + window
    else
        resetAt = now + window
    end
    return {0, 0, resetAt}
end

redis.call('ZADD', key, now, now .. '-' .. math.random())
redis.call('EXPIRE', key, window + 10)

local remaining = limit - count - 1
local resetAt = now + window

return {1, remaining, resetAt}
`)

// RedisLimiter shares counters across instances. A Redis failure lets the
// request through.
type RedisLimiter struct {
	client *redisclient.Client
}

var _ Limiter = (*RedisLimiter)(nil)

func NewRedisLimiter(client *redisclient.Client) *RedisLimiter {
	return &RedisLimiter{client: client}
}

func (rl *RedisLimiter) CheckLimit(ctx context.Context, key string, limit int, window time.Duration) Result {
	now := time.Now().Unix()
	windowSecs := int64(window.Seconds())
	fallback := Result{Allowed: true, Remaining: limit - 1, ResetAt: time.Unix(now+windowSecs, 0)}

	result, err := slidingWindowScript.Run(
		ctx,
		rl.client,
		[]string{redisclient.RateLimitKey("sliding", key)},
		now,
		windowSecs,
		limit,
	).Int64Slice()
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("redis rate limit check failed, allowing request")
		return fallback
	}

	if len(result) != 3 {
		log.Warn().Str("key", key).Msg("unexpected redis rate limit result")
		return fallback
	}

	return Result{
		Allowed:   result[0] == 1,
		Remaining: int(result[1]),
		ResetAt:   time.Unix(result[2], 0),
	}
}

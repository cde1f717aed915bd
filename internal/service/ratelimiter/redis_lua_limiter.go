// Package ratelimiter implements a Redis-backed token bucket used to budget
// completion calls per session.
package ratelimiter

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter reports whether a unit of work keyed by key may proceed.
type Limiter interface {
	Allow(ctx context.Context, key string, cost int64) (allowed bool, retryAfter time.Duration, err error)
}

// BucketConfig describes a token bucket.
type BucketConfig struct {
	Capacity   int64
	RefillRate float64 // tokens per second
}

// NewBucketConfigFromPerMinute returns a bucket that allows perMinute units
// per minute with a burst of the same size. Zero or negative disables it.
func NewBucketConfigFromPerMinute(perMinute int) BucketConfig {
	if perMinute <= 0 {
		return BucketConfig{}
	}
	return BucketConfig{Capacity: int64(perMinute), RefillRate: float64(perMinute) / 60.0}
}

// Enabled reports whether the bucket limits anything.
func (c BucketConfig) Enabled() bool { return c.Capacity > 0 && c.RefillRate > 0 }

// RedisLuaLimiter applies one bucket shape to every key, with state kept in
// Redis hashes under prefix+key.
type RedisLuaLimiter struct {
	redis  *redis.Client
	bucket BucketConfig
	prefix string
	ttl    time.Duration
	script *redis.Script
	now    func() time.Time
}

// NewRedisLuaLimiter returns nil when rdb is nil or the bucket is disabled;
// a nil limiter allows everything.
func NewRedisLuaLimiter(rdb *redis.Client, prefix string, bucket BucketConfig) *RedisLuaLimiter {
	if rdb == nil || !bucket.Enabled() {
		return nil
	}
	// Idle buckets expire once they would be full again.
	ttl := time.Duration(float64(bucket.Capacity)/bucket.RefillRate*float64(time.Second)) + time.Minute
	return &RedisLuaLimiter{
		redis:  rdb,
		bucket: bucket,
		prefix: prefix,
		ttl:    ttl,
		script: redis.NewScript(luaTokenBucketScript),
		now:    time.Now,
	}
}

// Floats are returned as strings because Redis truncates Lua numbers to
// integers in replies.
const luaTokenBucketScript = `
local key = KEYS[1]
local capacity = tonumber(ARGV[1])
local refill_rate = tonumber(ARGV[2])
local now = tonumber(ARGV[3])
local cost = tonumber(ARGV[4])
local ttl_ms = tonumber(ARGV[5])

local tokens = capacity
local last_refill = now
local data = redis.call("HMGET", key, "tokens", "last_refill")
if data[1] then tokens = tonumber(data[1]) end
if data[2] then last_refill = tonumber(data[2]) end

local delta = math.max(0, now - last_refill)
tokens = math.min(capacity, tokens + delta * refill_rate)

local allowed = 0
local retry_after = 0
if tokens >= cost then
  tokens = tokens - cost
  allowed = 1
else
  retry_after = (cost - tokens) / refill_rate
end

redis.call("HSET", key, "tokens", tostring(tokens), "last_refill", tostring(now))
redis.call("PEXPIRE", key, ttl_ms)
return { allowed, tostring(tokens), tostring(retry_after) }
`

// Allow consumes cost tokens from key's bucket. Redis failures fail open and
// are returned alongside allowed=true.
func (l *RedisLuaLimiter) Allow(ctx context.Context, key string, cost int64) (bool, time.Duration, error) {
	if l == nil {
		return true, 0, nil
	}
	if cost <= 0 {
		cost = 1
	}
	nowSec := float64(l.now().UnixNano()) / 1e9
	res, err := l.script.Run(ctx, l.redis, []string{l.prefix + key},
		l.bucket.Capacity, l.bucket.RefillRate, nowSec, cost, l.ttl.Milliseconds()).Slice()
	if err != nil {
		slog.Error("redis rate limiter script error", slog.String("key", key), slog.Any("error", err))
		return true, 0, fmt.Errorf("op=ratelimiter.Allow: %w", err)
	}
	if len(res) < 3 {
		return true, 0, fmt.Errorf("op=ratelimiter.Allow: unexpected script result %v", res)
	}
	allowed, _ := res[0].(int64)
	retryStr, _ := res[2].(string)
	retrySec, _ := strconv.ParseFloat(retryStr, 64)
	return allowed == 1, time.Duration(retrySec * float64(time.Second)), nil
}

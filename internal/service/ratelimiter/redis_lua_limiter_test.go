package ratelimiter

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLimiter(t *testing.T, perMinute int) (*RedisLuaLimiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisLuaLimiter(rdb, "turns:", NewBucketConfigFromPerMinute(perMinute)), mr
}

func TestNilLimiter_FailsOpen(t *testing.T) {
	var l *RedisLuaLimiter
	allowed, retry, err := l.Allow(context.Background(), "any", 1)
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Zero(t, retry)

	assert.Nil(t, NewRedisLuaLimiter(nil, "x:", NewBucketConfigFromPerMinute(5)))
	assert.Nil(t, NewRedisLuaLimiter(redis.NewClient(&redis.Options{}), "x:", NewBucketConfigFromPerMinute(0)))
}

func TestAllow_ExhaustsBucketPerKey(t *testing.T) {
	l, mr := newTestLimiter(t, 2)
	now := time.Unix(1_700_000_000, 0)
	l.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		allowed, _, err := l.Allow(ctx, "s-1", 1)
		require.NoError(t, err)
		assert.True(t, allowed)
	}
	allowed, retry, err := l.Allow(ctx, "s-1", 1)
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.InDelta(t, 30*time.Second, retry, float64(time.Second))

	allowed, _, err = l.Allow(ctx, "s-2", 1)
	require.NoError(t, err)
	assert.True(t, allowed, "buckets are per key")

	assert.True(t, mr.Exists("turns:s-1"))
	assert.Greater(t, mr.TTL("turns:s-1"), time.Duration(0))
}

func TestAllow_Refills(t *testing.T) {
	l, _ := newTestLimiter(t, 60)
	now := time.Unix(1_700_000_000, 0)
	l.now = func() time.Time { return now }
	ctx := context.Background()

	allowed, _, err := l.Allow(ctx, "k", 60)
	require.NoError(t, err)
	require.True(t, allowed)
	allowed, _, _ = l.Allow(ctx, "k", 1)
	require.False(t, allowed)

	now = now.Add(2 * time.Second)
	allowed, _, err = l.Allow(ctx, "k", 1)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestAllow_RedisDownFailsOpen(t *testing.T) {
	l, mr := newTestLimiter(t, 5)
	mr.Close()

	allowed, _, err := l.Allow(context.Background(), "k", 1)
	assert.Error(t, err)
	assert.True(t, allowed)
}

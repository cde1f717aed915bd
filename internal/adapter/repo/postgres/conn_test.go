package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPool_InvalidDSN(t *testing.T) {
	_, err := NewPool(context.Background(), "://bad", PoolOptions{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "op=postgres.NewPool")
}

func TestNewPool_AppliesOptions(t *testing.T) {
	// pgxpool connects lazily, so an unreachable host is fine here.
	pool, err := NewPool(context.Background(), "postgres://u:p@127.0.0.1:1/app?sslmode=disable",
		PoolOptions{MaxConns: 3, MaxConnIdleTime: time.Minute})
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	assert.Equal(t, int32(3), pool.Config().MaxConns)
	assert.Equal(t, time.Minute, pool.Config().MaxConnIdleTime)
}

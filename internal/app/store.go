package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/fairyhunter13/career-consultant/internal/adapter/repo/filestore"
	"github.com/fairyhunter13/career-consultant/internal/adapter/repo/postgres"
	"github.com/fairyhunter13/career-consultant/internal/adapter/repo/redisstore"
	"github.com/fairyhunter13/career-consultant/internal/config"
	"github.com/fairyhunter13/career-consultant/internal/domain"
)

// Store is an opened session store with its health probe and closer.
type Store struct {
	Sessions domain.SessionRepository
	Health   Pinger
	// Redis is the shared client when SESSION_STORE=redis, else nil.
	Redis *redis.Client
	Close func()
}

// OpenStore opens the backend selected by cfg.SessionStore.
func OpenStore(ctx context.Context, cfg config.Config) (Store, error) {
	switch cfg.SessionStore {
	case config.StoreRedis:
		rdb, err := NewRedisClient(cfg.RedisURL)
		if err != nil {
			return Store{}, fmt.Errorf("op=app.OpenStore: %w", err)
		}
		st := redisstore.New(rdb, cfg.SessionTTL)
		return Store{Sessions: st, Health: st, Redis: rdb, Close: func() { _ = rdb.Close() }}, nil
	case config.StorePostgres:
		pool, err := postgres.NewPool(ctx, cfg.DBURL, postgres.PoolOptions{MaxConns: cfg.DBMaxConns, MaxConnIdleTime: cfg.DBMaxConnIdleTime})
		if err != nil {
			return Store{}, fmt.Errorf("op=app.OpenStore: %w", err)
		}
		repo := postgres.NewSessionRepo(pool)
		if err := repo.EnsureSchema(ctx); err != nil {
			pool.Close()
			return Store{}, fmt.Errorf("op=app.OpenStore: %w", err)
		}
		return Store{Sessions: repo, Health: pool, Close: pool.Close}, nil
	default:
		fs, err := filestore.New(cfg.DataDir)
		if err != nil {
			return Store{}, fmt.Errorf("op=app.OpenStore: %w", err)
		}
		return Store{Sessions: fs, Health: fs, Close: func() {}}, nil
	}
}

// NewRedisClient parses a redis:// URL into a client.
func NewRedisClient(url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("op=app.NewRedisClient: %w", err)
	}
	return redis.NewClient(opt), nil
}

// TurnLimiterClient returns the Redis client backing the turn limiter, or nil
// when the limiter is disabled. It reuses the store's client when there is one.
func TurnLimiterClient(cfg config.Config, st Store) *redis.Client {
	if cfg.TurnRatePerMin <= 0 {
		return nil
	}
	if st.Redis != nil {
		return st.Redis
	}
	rdb, err := NewRedisClient(cfg.RedisURL)
	if err != nil {
		slog.Warn("turn limiter disabled", slog.Any("error", err))
		return nil
	}
	return rdb
}

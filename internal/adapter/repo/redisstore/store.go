// Package redisstore keeps session snapshots as JSON strings in Redis.
package redisstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"

	"github.com/fairyhunter13/career-consultant/internal/domain"
)

const keyPrefix = "session:"

// Store implements domain.SessionRepository. A zero TTL keeps snapshots
// forever; otherwise every Save refreshes the expiry.
type Store struct {
	rdb *redis.Client
	ttl time.Duration
}

// New wraps an existing client.
func New(rdb *redis.Client, ttl time.Duration) *Store {
	return &Store{rdb: rdb, ttl: ttl}
}

func key(id string) string { return keyPrefix + id }

// Get loads a snapshot by id.
func (s *Store) Get(ctx domain.Context, id string) (domain.Session, error) {
	ctx, span := otel.Tracer("repo.redis").Start(ctx, "sessions.Get")
	defer span.End()
	raw, err := s.rdb.Get(ctx, key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.Session{}, fmt.Errorf("op=redisstore.Get: %w", domain.ErrNotFound)
		}
		return domain.Session{}, fmt.Errorf("op=redisstore.Get: %w", err)
	}
	var sess domain.Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return domain.Session{}, fmt.Errorf("op=redisstore.Get: decode: %w", err)
	}
	return sess, nil
}

// Save writes the snapshot wholesale.
func (s *Store) Save(ctx domain.Context, sess domain.Session) error {
	ctx, span := otel.Tracer("repo.redis").Start(ctx, "sessions.Save")
	defer span.End()
	if sess.ID == "" {
		return fmt.Errorf("op=redisstore.Save: %w: empty id", domain.ErrInvalidArgument)
	}
	raw, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("op=redisstore.Save: encode: %w", err)
	}
	if err := s.rdb.Set(ctx, key(sess.ID), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("op=redisstore.Save: %w", err)
	}
	return nil
}

// Delete removes a snapshot; unknown ids report ErrNotFound.
func (s *Store) Delete(ctx domain.Context, id string) error {
	ctx, span := otel.Tracer("repo.redis").Start(ctx, "sessions.Delete")
	defer span.End()
	n, err := s.rdb.Del(ctx, key(id)).Result()
	if err != nil {
		return fmt.Errorf("op=redisstore.Delete: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("op=redisstore.Delete: %w", domain.ErrNotFound)
	}
	return nil
}

// Ping checks connectivity for readiness probes.
func (s *Store) Ping(ctx domain.Context) error {
	return s.rdb.Ping(ctx).Err()
}

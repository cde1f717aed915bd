package app

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	httpserver "github.com/fairyhunter13/career-consultant/internal/adapter/httpserver"
)

// Pinger is anything that can report its own health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// BuildReadinessChecks probes the session store, and Redis when the turn
// limiter uses it.
func BuildReadinessChecks(store Pinger, rdb *redis.Client) []httpserver.ReadyCheck {
	checks := []httpserver.ReadyCheck{{
		Name: "store",
		Check: func(ctx context.Context) error {
			if store == nil {
				return fmt.Errorf("session store not configured")
			}
			return store.Ping(ctx)
		},
	}}
	if rdb != nil {
		checks = append(checks, httpserver.ReadyCheck{
			Name:  "redis",
			Check: func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		})
	}
	return checks
}

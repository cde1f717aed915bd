// Command server starts the career consultant HTTP API.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fairyhunter13/career-consultant/internal/adapter/ai/openai"
	"github.com/fairyhunter13/career-consultant/internal/adapter/ai/tokencount"
	httpserver "github.com/fairyhunter13/career-consultant/internal/adapter/httpserver"
	"github.com/fairyhunter13/career-consultant/internal/adapter/movies/tmdb"
	"github.com/fairyhunter13/career-consultant/internal/adapter/observability"
	"github.com/fairyhunter13/career-consultant/internal/app"
	"github.com/fairyhunter13/career-consultant/internal/config"
	"github.com/fairyhunter13/career-consultant/internal/service/ratelimiter"
	"github.com/fairyhunter13/career-consultant/internal/usecase"
	"github.com/fairyhunter13/career-consultant/internal/usecase/prompts"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	slog.SetDefault(observability.SetupLogger(cfg))
	observability.InitMetrics()

	if err := run(cfg); err != nil {
		slog.Error("server exited", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(cfg config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := observability.SetupTracing(ctx, cfg)
	if err != nil {
		slog.Error("failed to setup tracing", slog.Any("error", err))
	}
	if shutdownTracer != nil {
		defer func() { _ = shutdownTracer(context.Background()) }()
	}
	if cfg.TokenizerOffline {
		tokencount.UseOfflineLoader()
	}

	store, err := app.OpenStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open %s session store: %w", cfg.SessionStore, err)
	}
	defer store.Close()
	slog.Info("session store ready", slog.String("store", cfg.SessionStore))

	conv, limiterRedis, err := buildConversations(cfg, store)
	if err != nil {
		return err
	}
	quiz := usecase.NewQuizService(tmdb.New(cfg), cfg.TMDBAPIKey, cfg.QuizLanguage, cfg.QuizMinVotes, cfg.QuizResultLimit)
	if cfg.TMDBAPIKey == "" {
		slog.Warn("TMDB_API_KEY not set; quiz clients must send " + httpserver.HeaderTMDBKey)
	}

	srv := httpserver.NewServer(cfg, conv, quiz, app.BuildReadinessChecks(store.Health, limiterRedis)...)
	httpSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           app.BuildRouter(cfg, srv),
		ReadTimeout:       cfg.HTTPReadTimeout,
		WriteTimeout:      cfg.HTTPWriteTimeout,
		IdleTimeout:       cfg.HTTPIdleTimeout,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server starting", slog.Int("port", cfg.Port), slog.String("version", cfg.ServiceVersion))
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ServerShutdownTimeout)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}

// buildConversations wires the completion client, prompt catalog and the
// optional per-session turn limiter.
func buildConversations(cfg config.Config, store app.Store) (*usecase.ConversationService, *redis.Client, error) {
	catalog, err := prompts.Load(cfg.PromptsFile)
	if err != nil {
		return nil, nil, fmt.Errorf("load prompt catalog: %w", err)
	}
	conv := usecase.NewConversationService(store.Sessions, openai.New(cfg), catalog, usecase.StagePolicyFromConfig(cfg))
	conv.DefaultAPIKey = cfg.CompletionAPIKey
	if cfg.CompletionAPIKey == "" {
		slog.Warn("COMPLETION_API_KEY not set; clients must send " + httpserver.HeaderCompletionKey)
	}

	rdb := app.TurnLimiterClient(cfg, store)
	if lim := ratelimiter.NewRedisLuaLimiter(rdb, "turns:", ratelimiter.NewBucketConfigFromPerMinute(cfg.TurnRatePerMin)); lim != nil {
		conv.Limiter = lim
		slog.Info("turn limiter enabled", slog.Int("per_min", cfg.TurnRatePerMin))
	}
	return conv, rdb, nil
}

// Command consult is a terminal client for the career consultant. It shares
// the server's configuration and session store, so a session started here can
// be continued over HTTP and vice versa.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/fairyhunter13/career-consultant/internal/adapter/ai/openai"
	"github.com/fairyhunter13/career-consultant/internal/adapter/ai/tokencount"
	"github.com/fairyhunter13/career-consultant/internal/adapter/movies/tmdb"
	"github.com/fairyhunter13/career-consultant/internal/adapter/observability"
	"github.com/fairyhunter13/career-consultant/internal/app"
	"github.com/fairyhunter13/career-consultant/internal/cli"
	"github.com/fairyhunter13/career-consultant/internal/config"
	"github.com/fairyhunter13/career-consultant/internal/usecase"
	"github.com/fairyhunter13/career-consultant/internal/usecase/prompts"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "warn"
	}
	slog.SetDefault(observability.SetupLoggerTo(cfg, os.Stderr))
	observability.InitMetrics()
	if cfg.TokenizerOffline {
		tokencount.UseOfflineLoader()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := app.OpenStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	catalog, err := prompts.Load(cfg.PromptsFile)
	if err != nil {
		return err
	}
	conv := usecase.NewConversationService(store.Sessions, openai.New(cfg), catalog, usecase.StagePolicyFromConfig(cfg))
	conv.DefaultAPIKey = cfg.CompletionAPIKey

	a := &cli.App{
		Conversations: conv,
		Quiz:          usecase.NewQuizService(tmdb.New(cfg), cfg.TMDBAPIKey, cfg.QuizLanguage, cfg.QuizMinVotes, cfg.QuizResultLimit),
	}
	return cli.NewRootCmd(a).ExecuteContext(ctx)
}

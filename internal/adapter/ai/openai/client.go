// Package openai implements domain.CompletionClient against an
// OpenAI-compatible chat completions endpoint.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/fairyhunter13/career-consultant/internal/adapter/ai/tokencount"
	"github.com/fairyhunter13/career-consultant/internal/adapter/observability"
	"github.com/fairyhunter13/career-consultant/internal/config"
	"github.com/fairyhunter13/career-consultant/internal/domain"
	obsctx "github.com/fairyhunter13/career-consultant/internal/observability"
)

const (
	provider     = "openai"
	snippetLimit = 512
)

// Client calls {base}/chat/completions with JSON-object response format.
type Client struct {
	cfg        config.Config
	hc         *http.Client
	counter    *tokencount.Counter
	newBackOff func() backoff.BackOff
}

// New constructs a client whose transport is traced with otelhttp.
func New(cfg config.Config) *Client {
	c := &Client{
		cfg: cfg,
		hc: &http.Client{
			Timeout:   cfg.CompletionTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		counter: tokencount.DefaultCounter,
	}
	c.newBackOff = c.defaultBackoff
	return c
}

// defaultBackoff bounds retries by AI_MAX_RETRIES; zero means one attempt.
func (c *Client) defaultBackoff() backoff.BackOff {
	expo := backoff.NewExponentialBackOff()
	expo.MaxElapsedTime, expo.InitialInterval, expo.MaxInterval, expo.Multiplier = c.cfg.GetAIBackoffConfig()
	retries := c.cfg.AIMaxRetries
	if retries < 0 {
		retries = 0
	}
	return backoff.WithMaxRetries(expo, uint64(retries))
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string            `json:"model"`
	Temperature    float64           `json:"temperature"`
	Messages       []chatMessage     `json:"messages"`
	ResponseFormat map[string]string `json:"response_format"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete sends the system prompt followed by the history and returns the
// first choice's content.
func (c *Client) Complete(ctx domain.Context, req domain.CompletionRequest) (string, error) {
	lg := obsctx.LoggerFromContext(ctx)
	key := strings.TrimSpace(req.APIKey)
	if key == "" {
		key = c.cfg.CompletionAPIKey
	}
	if key == "" {
		return "", fmt.Errorf("op=openai.Complete: %w: completion key not provided", domain.ErrMissingCredential)
	}

	msgs := make([]chatMessage, 0, len(req.Messages)+1)
	msgs = append(msgs, chatMessage{Role: "system", Content: req.System})
	for _, m := range req.Messages {
		msgs = append(msgs, chatMessage{Role: string(m.Role), Content: m.Content})
	}
	b, err := json.Marshal(chatRequest{
		Model:          c.cfg.CompletionModel,
		Temperature:    c.cfg.CompletionTemperature,
		Messages:       msgs,
		ResponseFormat: map[string]string{"type": "json_object"},
	})
	if err != nil {
		return "", fmt.Errorf("op=openai.Complete: %w", err)
	}
	observability.AIPromptTokens.WithLabelValues(c.cfg.CompletionModel).
		Observe(float64(c.counter.EstimateChat(req.System, req.Messages, c.cfg.CompletionModel)))

	endpoint := strings.TrimRight(c.cfg.CompletionBaseURL, "/") + "/chat/completions"
	var out chatResponse
	op := func() error {
		start := time.Now()
		// Recreate request each attempt to avoid reusing consumed bodies
		r, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(b))
		if err != nil {
			return backoff.Permanent(err)
		}
		r.Header.Set("Authorization", "Bearer "+key)
		r.Header.Set("Content-Type", "application/json")
		resp, err := c.hc.Do(r)
		observability.AIRequestDuration.WithLabelValues(provider).Observe(time.Since(start).Seconds())
		if err != nil {
			observability.AIRequestsTotal.WithLabelValues(provider, "transport_error").Inc()
			return err
		}
		defer func() { _ = resp.Body.Close() }()
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		observability.AIRequestsTotal.WithLabelValues(provider, http.StatusText(resp.StatusCode)).Inc()

		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			lg.Warn("completion provider rate limited", slog.String("provider", provider), slog.String("x_request_id", resp.Header.Get("X-Request-Id")))
			return fmt.Errorf("%w: status 429", domain.ErrUpstreamRateLimit)
		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			return backoff.Permanent(fmt.Errorf("%w: completion key rejected (status %d)", domain.ErrMissingCredential, resp.StatusCode))
		case resp.StatusCode >= 400 && resp.StatusCode < 500:
			lg.Warn("completion provider 4xx", slog.String("provider", provider), slog.Int("status", resp.StatusCode), slog.String("model", c.cfg.CompletionModel), slog.String("body", snippet(body)))
			return backoff.Permanent(fmt.Errorf("chat status %d", resp.StatusCode))
		case resp.StatusCode < 200 || resp.StatusCode >= 300:
			lg.Error("completion provider non-2xx", slog.String("provider", provider), slog.Int("status", resp.StatusCode), slog.String("body", snippet(body)))
			return fmt.Errorf("chat status %d", resp.StatusCode)
		}
		if err := json.Unmarshal(body, &out); err != nil {
			return backoff.Permanent(fmt.Errorf("decode chat response: %w", err))
		}
		return nil
	}

	if err := backoff.Retry(op, backoff.WithContext(c.newBackOff(), ctx)); err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) || isTimeout(err) {
			return "", fmt.Errorf("op=openai.Complete: %w: %v", domain.ErrUpstreamTimeout, err)
		}
		return "", fmt.Errorf("op=openai.Complete: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("op=openai.Complete: empty choices")
	}
	if out.Model != "" && !strings.HasPrefix(out.Model, c.cfg.CompletionModel) {
		lg.Debug("completion model substituted", slog.String("requested_model", c.cfg.CompletionModel), slog.String("actual_model", out.Model))
	}
	return out.Choices[0].Message.Content, nil
}

func snippet(b []byte) string {
	if len(b) > snippetLimit {
		b = b[:snippetLimit]
	}
	return string(b)
}

func isTimeout(err error) bool {
	var te interface{ Timeout() bool }
	return errors.As(err, &te) && te.Timeout()
}

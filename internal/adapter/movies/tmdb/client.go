// Package tmdb implements domain.MovieCatalog on The Movie Database v3 API.
package tmdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/fairyhunter13/career-consultant/internal/config"
	"github.com/fairyhunter13/career-consultant/internal/domain"
	obsctx "github.com/fairyhunter13/career-consultant/internal/observability"
)

// Client queries GET /discover/movie.
type Client struct {
	baseURL    string
	hc         *http.Client
	retries    int
	cb         *breaker
	newBackOff func() backoff.BackOff
}

// New builds a catalog client from config.
func New(cfg config.Config) *Client {
	timeout := cfg.TMDBTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	c := &Client{
		baseURL: strings.TrimRight(cfg.TMDBBaseURL, "/"),
		hc:      &http.Client{Timeout: timeout, Transport: otelhttp.NewTransport(http.DefaultTransport)},
		retries: cfg.TMDBMaxRetries,
		cb:      newBreaker(5, 30*time.Second),
	}
	c.newBackOff = func() backoff.BackOff {
		expo := backoff.NewExponentialBackOff()
		expo.InitialInterval = 200 * time.Millisecond
		expo.MaxInterval = 2 * time.Second
		expo.MaxElapsedTime = timeout
		return backoff.WithMaxRetries(expo, uint64(max(c.retries, 0)))
	}
	return c
}

type discoverResponse struct {
	Page    int            `json:"page"`
	Results []domain.Movie `json:"results"`
}

// Discover returns one page of movies for q.GenreID ordered by popularity.
// v4 read-access tokens are sent as a bearer header, v3 keys as api_key.
func (c *Client) Discover(ctx domain.Context, q domain.MovieQuery) ([]domain.Movie, error) {
	key := strings.TrimSpace(q.APIKey)
	if key == "" {
		return nil, fmt.Errorf("op=tmdb.Discover: %w: TMDB key not provided", domain.ErrMissingCredential)
	}
	if !c.cb.allow() {
		return nil, fmt.Errorf("op=tmdb.Discover: %w: catalog circuit open", domain.ErrUpstreamTimeout)
	}

	params := url.Values{}
	params.Set("with_genres", strconv.Itoa(q.GenreID))
	params.Set("sort_by", "popularity.desc")
	params.Set("include_adult", "false")
	if q.MinVoteCount > 0 {
		params.Set("vote_count.gte", strconv.Itoa(q.MinVoteCount))
	}
	if q.Language != "" {
		params.Set("language", q.Language)
	}
	page := q.Page
	if page <= 0 {
		page = 1
	}
	params.Set("page", strconv.Itoa(page))
	bearer := isBearerToken(key)
	if !bearer {
		params.Set("api_key", key)
	}
	endpoint := c.baseURL + "/discover/movie?" + params.Encode()

	lg := obsctx.LoggerFromContext(ctx)
	var out discoverResponse
	op := func() error {
		r, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		r.Header.Set("Accept", "application/json")
		if bearer {
			r.Header.Set("Authorization", "Bearer "+key)
		}
		resp, err := c.hc.Do(r)
		if err != nil {
			return err
		}
		defer func() { _ = resp.Body.Close() }()
		body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err != nil {
			return err
		}
		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			lg.Warn("catalog rate limited", slog.Int("status", resp.StatusCode))
			return fmt.Errorf("%w: status 429", domain.ErrUpstreamRateLimit)
		case resp.StatusCode == http.StatusUnauthorized:
			return backoff.Permanent(fmt.Errorf("%w: TMDB key rejected", domain.ErrMissingCredential))
		case resp.StatusCode >= 400 && resp.StatusCode < 500:
			return backoff.Permanent(fmt.Errorf("discover status %d", resp.StatusCode))
		case resp.StatusCode < 200 || resp.StatusCode >= 300:
			return fmt.Errorf("discover status %d", resp.StatusCode)
		}
		if err := json.Unmarshal(body, &out); err != nil {
			return backoff.Permanent(fmt.Errorf("decode discover response: %w", err))
		}
		return nil
	}

	if err := backoff.Retry(op, backoff.WithContext(c.newBackOff(), ctx)); err != nil {
		if !errors.Is(err, domain.ErrMissingCredential) {
			c.cb.failure()
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("op=tmdb.Discover: %w: %v", domain.ErrUpstreamTimeout, err)
		}
		return nil, fmt.Errorf("op=tmdb.Discover: %w", err)
	}
	c.cb.success()
	lg.Debug("catalog discover ok", slog.Int("genre", q.GenreID), slog.Int("results", len(out.Results)))
	if out.Results == nil {
		return []domain.Movie{}, nil
	}
	return out.Results, nil
}

// isBearerToken reports whether key is a v4 read-access token (a JWT).
func isBearerToken(key string) bool {
	return strings.HasPrefix(key, "eyJ") && strings.Count(key, ".") == 2
}

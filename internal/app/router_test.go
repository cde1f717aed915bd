package app_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpserver "github.com/fairyhunter13/career-consultant/internal/adapter/httpserver"
	"github.com/fairyhunter13/career-consultant/internal/app"
	"github.com/fairyhunter13/career-consultant/internal/config"
	domainmocks "github.com/fairyhunter13/career-consultant/internal/domain/mocks"
	"github.com/fairyhunter13/career-consultant/internal/usecase"
	"github.com/fairyhunter13/career-consultant/internal/usecase/prompts"
)

func newRouter(t *testing.T, cfg config.Config, checks ...httpserver.ReadyCheck) http.Handler {
	t.Helper()
	cfg.DataDir = t.TempDir()
	st, err := app.OpenStore(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(st.Close)
	pc, err := prompts.Default()
	require.NoError(t, err)
	conv := usecase.NewConversationService(st.Sessions, domainmocks.NewCompletionClient(t), pc, usecase.DefaultStagePolicy())
	quiz := usecase.NewQuizService(domainmocks.NewMovieCatalog(t), "", "ko-KR", 0, 5)
	if len(checks) == 0 {
		checks = app.BuildReadinessChecks(st.Health, nil)
	}
	return app.BuildRouter(cfg, httpserver.NewServer(cfg, conv, quiz, checks...))
}

func TestBuildRouter_HealthAndReady(t *testing.T) {
	h := newRouter(t, config.Config{SessionStore: config.StoreFile})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"store"`)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestBuildRouter_SessionRoutes(t *testing.T) {
	h := newRouter(t, config.Config{SessionStore: config.StoreFile})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/sessions", nil))
	require.Equal(t, http.StatusCreated, rec.Code)
	loc := rec.Header().Get("Location")
	require.True(t, strings.HasPrefix(loc, "/v1/sessions/"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))

	for _, p := range []string{loc, loc + "/activities", loc + "/roadmap", "/v1/quiz"} {
		rec = httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, p, nil))
		assert.Equal(t, http.StatusOK, rec.Code, p)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/sessions/unknown", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBuildRouter_RateLimitsMutations(t *testing.T) {
	h := newRouter(t, config.Config{SessionStore: config.StoreFile, RateLimitPerMin: 1})

	codes := make([]int, 0, 2)
	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/sessions", nil))
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{http.StatusCreated, http.StatusTooManyRequests}, codes)
}

func TestReadinessChecks_Redis(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	checks := app.BuildReadinessChecks(nil, rdb)
	require.Len(t, checks, 2)
	assert.Error(t, checks[0].Check(context.Background()))
	assert.NoError(t, checks[1].Check(context.Background()))

	mr.Close()
	assert.Error(t, checks[1].Check(context.Background()))
}

func TestOpenStore_Redis(t *testing.T) {
	mr := miniredis.RunT(t)
	st, err := app.OpenStore(context.Background(), config.Config{SessionStore: config.StoreRedis, RedisURL: "redis://" + mr.Addr() + "/0"})
	require.NoError(t, err)
	t.Cleanup(st.Close)
	require.NotNil(t, st.Redis)
	assert.NoError(t, st.Health.Ping(context.Background()))

	assert.Same(t, st.Redis, app.TurnLimiterClient(config.Config{TurnRatePerMin: 5}, st))
	assert.Nil(t, app.TurnLimiterClient(config.Config{}, st))
}

func TestOpenStore_BadRedisURL(t *testing.T) {
	_, err := app.OpenStore(context.Background(), config.Config{SessionStore: config.StoreRedis, RedisURL: "::bad"})
	assert.Error(t, err)
}

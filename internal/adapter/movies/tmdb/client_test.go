package tmdb

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/career-consultant/internal/config"
	"github.com/fairyhunter13/career-consultant/internal/domain"
)

const discoverBody = `{"page":1,"results":[
	{"id":1,"title":"Heat","overview":"o","release_date":"1995-12-15","vote_average":7.9,"vote_count":6000,"poster_path":"/p.jpg"},
	{"id":2,"title":"Ronin","vote_average":7.1,"vote_count":2000}
]}`

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)
	c := New(config.Config{TMDBBaseURL: ts.URL + "/", TMDBTimeout: 2 * time.Second, TMDBMaxRetries: 2})
	c.newBackOff = func() backoff.BackOff {
		return backoff.WithMaxRetries(backoff.NewConstantBackOff(time.Millisecond), uint64(c.retries))
	}
	return c
}

func TestDiscover_QueryAndDecode(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/discover/movie", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "28", q.Get("with_genres"))
		assert.Equal(t, "200", q.Get("vote_count.gte"))
		assert.Equal(t, "ko-KR", q.Get("language"))
		assert.Equal(t, "1", q.Get("page"))
		assert.Equal(t, "popularity.desc", q.Get("sort_by"))
		assert.Equal(t, "v3key", q.Get("api_key"))
		assert.Empty(t, r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(discoverBody))
	})

	movies, err := c.Discover(context.Background(), domain.MovieQuery{APIKey: "v3key", GenreID: 28, MinVoteCount: 200, Language: "ko-KR"})
	require.NoError(t, err)
	require.Len(t, movies, 2)
	assert.Equal(t, domain.Movie{ID: 1, Title: "Heat", Overview: "o", ReleaseDate: "1995-12-15", VoteAverage: 7.9, VoteCount: 6000, PosterPath: "/p.jpg"}, movies[0])
}

func TestDiscover_BearerToken(t *testing.T) {
	token := "eyJhbGciOiJIUzI1NiJ9.eyJzdWIiOiJ4In0.sig"
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer "+token, r.Header.Get("Authorization"))
		assert.Empty(t, r.URL.Query().Get("api_key"))
		_, _ = w.Write([]byte(`{"page":1}`))
	})

	movies, err := c.Discover(context.Background(), domain.MovieQuery{APIKey: token, GenreID: 35})
	require.NoError(t, err)
	assert.NotNil(t, movies)
	assert.Empty(t, movies)
}

func TestDiscover_MissingKey(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) { atomic.AddInt32(&calls, 1) })

	_, err := c.Discover(context.Background(), domain.MovieQuery{GenreID: 28})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrMissingCredential))
	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestDiscover_RetriesServerErrors(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(discoverBody))
	})

	movies, err := c.Discover(context.Background(), domain.MovieQuery{APIKey: "k", GenreID: 18})
	require.NoError(t, err)
	assert.Len(t, movies, 2)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestDiscover_StatusMapping(t *testing.T) {
	tests := []struct {
		status  int
		wantErr error
		calls   int32
	}{
		{status: http.StatusUnauthorized, wantErr: domain.ErrMissingCredential, calls: 1},
		{status: http.StatusTooManyRequests, wantErr: domain.ErrUpstreamRateLimit, calls: 3},
		{status: http.StatusNotFound, calls: 1},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			var calls int32
			c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				atomic.AddInt32(&calls, 1)
				w.WriteHeader(tt.status)
			})
			_, err := c.Discover(context.Background(), domain.MovieQuery{APIKey: "k", GenreID: 1})
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
			}
			assert.Equal(t, tt.calls, atomic.LoadInt32(&calls))
		})
	}
}

func TestDiscover_BreakerOpensAfterFailures(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	})

	for i := 0; i < 5; i++ {
		_, err := c.Discover(context.Background(), domain.MovieQuery{APIKey: "k", GenreID: 1})
		require.Error(t, err)
	}
	assert.Equal(t, stateOpen, c.cb.current())

	_, err := c.Discover(context.Background(), domain.MovieQuery{APIKey: "k", GenreID: 1})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUpstreamTimeout))
	assert.Equal(t, int32(5), atomic.LoadInt32(&calls), "open breaker makes no call")
}

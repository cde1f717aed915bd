package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/career-consultant/internal/adapter/ai/tokencount"
	"github.com/fairyhunter13/career-consultant/internal/config"
	"github.com/fairyhunter13/career-consultant/internal/domain"
)

func init() { tokencount.UseOfflineLoader() }

func testConfig(baseURL string) config.Config {
	return config.Config{
		AppEnv:                "test",
		CompletionBaseURL:     baseURL,
		CompletionModel:       "gpt-4o-mini",
		CompletionTemperature: 0.4,
		CompletionTimeout:     5 * time.Second,
	}
}

func chatReply(w http.ResponseWriter, content string) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"model":   "gpt-4o-mini-2024-07-18",
		"choices": []map[string]any{{"message": map[string]any{"content": content}}},
	})
}

func TestComplete_SendsSystemThenHistory(t *testing.T) {
	var got chatRequest
	var auth string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		auth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		chatReply(w, `{"assistant_message":"hi"}`)
	}))
	defer ts.Close()

	c := New(testConfig(ts.URL + "/"))
	out, err := c.Complete(context.Background(), domain.CompletionRequest{
		APIKey: "sk-user",
		System: "SYSTEM",
		Messages: []domain.Message{
			{Role: domain.RoleUser, Content: "u1"},
			{Role: domain.RoleAssistant, Content: "a1"},
			{Role: domain.RoleUser, Content: "u2"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, `{"assistant_message":"hi"}`, out)
	assert.Equal(t, "Bearer sk-user", auth)
	assert.Equal(t, "gpt-4o-mini", got.Model)
	assert.Equal(t, "json_object", got.ResponseFormat["type"])
	require.Len(t, got.Messages, 4)
	assert.Equal(t, chatMessage{Role: "system", Content: "SYSTEM"}, got.Messages[0])
	assert.Equal(t, chatMessage{Role: "user", Content: "u2"}, got.Messages[3])
}

func TestComplete_FallsBackToConfiguredKey(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer sk-env", r.Header.Get("Authorization"))
		chatReply(w, "{}")
	}))
	defer ts.Close()

	cfg := testConfig(ts.URL)
	cfg.CompletionAPIKey = "sk-env"
	_, err := New(cfg).Complete(context.Background(), domain.CompletionRequest{System: "s"})
	require.NoError(t, err)
}

func TestComplete_MissingKeyMakesNoCall(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		chatReply(w, "{}")
	}))
	defer ts.Close()

	_, err := New(testConfig(ts.URL)).Complete(context.Background(), domain.CompletionRequest{APIKey: "  "})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrMissingCredential))
	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestComplete_StatusMapping(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr error
	}{
		{name: "rate limited", status: http.StatusTooManyRequests, wantErr: domain.ErrUpstreamRateLimit},
		{name: "bad key", status: http.StatusUnauthorized, wantErr: domain.ErrMissingCredential},
		{name: "bad request", status: http.StatusBadRequest},
		{name: "server error", status: http.StatusBadGateway},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			var calls int32
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				atomic.AddInt32(&calls, 1)
				w.WriteHeader(tt.status)
			}))
			defer ts.Close()

			_, err := New(testConfig(ts.URL)).Complete(context.Background(), domain.CompletionRequest{APIKey: "k"})
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
			}
			assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "no retries by default")
		})
	}
}

func TestComplete_RetriesWhenConfigured(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		chatReply(w, `{"ok":true}`)
	}))
	defer ts.Close()

	cfg := testConfig(ts.URL)
	cfg.AIMaxRetries = 2
	out, err := New(cfg).Complete(context.Background(), domain.CompletionRequest{APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, out)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestComplete_PermanentOn4xxEvenWithRetries(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer ts.Close()

	cfg := testConfig(ts.URL)
	cfg.AIMaxRetries = 3
	_, err := New(cfg).Complete(context.Background(), domain.CompletionRequest{APIKey: "k"})
	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestComplete_Timeout(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
		chatReply(w, "{}")
	}))
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := New(testConfig(ts.URL)).Complete(ctx, domain.CompletionRequest{APIKey: "k"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUpstreamTimeout), "got %v", err)
}

func TestComplete_EmptyChoices(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer ts.Close()

	_, err := New(testConfig(ts.URL)).Complete(context.Background(), domain.CompletionRequest{APIKey: "k"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty choices")
}

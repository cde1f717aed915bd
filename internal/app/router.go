// Package app assembles the HTTP router, readiness probes and session store
// from configuration.
package app

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpserver "github.com/fairyhunter13/career-consultant/internal/adapter/httpserver"
	"github.com/fairyhunter13/career-consultant/internal/adapter/observability"
	"github.com/fairyhunter13/career-consultant/internal/config"
)

// ParseOrigins splits a comma-separated origin list, trimming spaces. Empty
// input means ["*"].
func ParseOrigins(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" || s == "*" {
		return []string{"*"}
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}

// BuildRouter constructs the HTTP handler with all middlewares and routes.
func BuildRouter(cfg config.Config, srv *httpserver.Server) http.Handler {
	r := chi.NewRouter()
	r.Use(httpserver.Recoverer())
	r.Use(httpserver.RequestID())
	r.Use(httpserver.TraceMiddleware)
	r.Use(httpserver.AccessLog())
	r.Use(observability.HTTPMetricsMiddleware)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   ParseOrigins(cfg.CORSAllowOrigins),
		AllowedMethods:   []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"X-Request-Id", "ETag", "Location"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 200 * time.Second
	}

	r.Route("/v1", func(v1 chi.Router) {
		v1.Use(httpserver.TimeoutMiddleware(timeout))
		// Mutating endpoints
		v1.Group(func(wr chi.Router) {
			if cfg.RateLimitPerMin > 0 {
				wr.Use(httprate.LimitByIP(cfg.RateLimitPerMin, time.Minute))
			}
			wr.Post("/sessions", srv.CreateSessionHandler())
			wr.Post("/sessions/{id}/messages", srv.SendMessageHandler())
			wr.Post("/sessions/{id}/reset", srv.ResetSessionHandler())
			wr.Patch("/sessions/{id}/activities/{activityID}", srv.UpdateActivityHandler())
			wr.Post("/quiz/recommendations", srv.QuizRecommendHandler())
		})
		v1.Get("/sessions/{id}", srv.GetSessionHandler())
		v1.Get("/sessions/{id}/activities", srv.ActivitiesHandler())
		v1.Get("/sessions/{id}/roadmap", srv.RoadmapHandler())
		v1.Get("/quiz", srv.QuizQuestionsHandler())
	})

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Get("/readyz", srv.ReadyzHandler())
	r.Handle("/metrics", promhttp.Handler())

	return httpserver.SecurityHeaders(r)
}

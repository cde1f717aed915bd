package observability

import (
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "method", "status"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"route", "method"},
	)

	AIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_requests_total",
			Help: "Total number of completion requests by provider and outcome",
		},
		[]string{"provider", "outcome"},
	)
	AIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ai_request_duration_seconds",
			Help:    "Completion request duration in seconds",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40, 90},
		},
		[]string{"provider"},
	)
	AIPromptTokens = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ai_prompt_tokens",
			Help:    "Estimated prompt tokens per completion request",
			Buckets: prometheus.ExponentialBuckets(256, 2, 8),
		},
		[]string{"model"},
	)

	ConversationTurnsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "conversation_turns_total",
			Help: "Accepted conversation turns by stage",
		},
		[]string{"stage"},
	)
	StageTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "conversation_stage_transitions_total",
			Help: "Stage transitions by source, target and trigger",
		},
		[]string{"from", "to", "trigger"},
	)
	ReplyParseErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "conversation_reply_parse_errors_total",
			Help: "Completion replies that held no JSON object, by stage",
		},
		[]string{"stage"},
	)
	FinalFollowupFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "conversation_final_followup_failures_total",
			Help: "Failed FINAL calls made right after a DESIGN to FINAL transition",
		},
	)

	QuizRecommendationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quiz_recommendations_total",
			Help: "Movie quiz recommendation requests by category and outcome",
		},
		[]string{"category", "outcome"},
	)
)

var registerOnce sync.Once

// InitMetrics registers all collectors with the default registry. Safe to
// call more than once.
func InitMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			HTTPRequestsTotal,
			HTTPRequestDuration,
			AIRequestsTotal,
			AIRequestDuration,
			AIPromptTokens,
			ConversationTurnsTotal,
			StageTransitionsTotal,
			ReplyParseErrorsTotal,
			FinalFollowupFailuresTotal,
			QuizRecommendationsTotal,
		)
	})
}

// HTTPMetricsMiddleware records Prometheus metrics for each request.
func HTTPMetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		dur := time.Since(start).Seconds()
		// Route pattern may be unavailable outside chi router; guard nil
		var route string
		if rc := chi.RouteContext(r.Context()); rc != nil {
			route = rc.RoutePattern()
		}
		if route == "" {
			route = r.URL.Path
		}
		HTTPRequestsTotal.WithLabelValues(route, r.Method, http.StatusText(ww.Status())).Inc()
		HTTPRequestDuration.WithLabelValues(route, r.Method).Observe(dur)
	})
}

// RecordTurn counts an accepted turn in stage.
func RecordTurn(stage string) {
	ConversationTurnsTotal.WithLabelValues(stage).Inc()
}

// RecordTransition counts a stage change labelled with what triggered it.
func RecordTransition(from, to, trigger string) {
	StageTransitionsTotal.WithLabelValues(from, to, trigger).Inc()
}

// RecordParseError counts an unparseable completion reply.
func RecordParseError(stage string) {
	ReplyParseErrorsTotal.WithLabelValues(stage).Inc()
}

// RecordFinalFollowupFailure counts a failed immediate FINAL call.
func RecordFinalFollowupFailure() {
	FinalFollowupFailuresTotal.Inc()
}

// RecordQuiz counts a quiz recommendation request.
func RecordQuiz(category, outcome string) {
	QuizRecommendationsTotal.WithLabelValues(category, outcome).Inc()
}

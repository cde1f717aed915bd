package observability

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestHTTPMetricsMiddleware_UsesRoutePattern(t *testing.T) {
	InitMetrics()
	r := chi.NewRouter()
	r.With(HTTPMetricsMiddleware).Get("/v1/sessions/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	before := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("/v1/sessions/{id}", http.MethodGet, http.StatusText(http.StatusNoContent)))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/sessions/abc", nil))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	after := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("/v1/sessions/{id}", http.MethodGet, http.StatusText(http.StatusNoContent)))
	assert.Equal(t, before+1, after)
}

func TestHTTPMetricsMiddleware_OutsideRouter(t *testing.T) {
	rec := httptest.NewRecorder()
	mw := HTTPMetricsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusAccepted) }))
	mw.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, http.StatusAccepted, rec.Code)
}

func TestConversationRecorders(t *testing.T) {
	InitMetrics()
	InitMetrics()

	before := testutil.ToFloat64(ConversationTurnsTotal.WithLabelValues("DISCOVERY"))
	RecordTurn("DISCOVERY")
	assert.Equal(t, before+1, testutil.ToFloat64(ConversationTurnsTotal.WithLabelValues("DISCOVERY")))

	before = testutil.ToFloat64(StageTransitionsTotal.WithLabelValues("DESIGN", "FINAL", "ready_signal"))
	RecordTransition("DESIGN", "FINAL", "ready_signal")
	assert.Equal(t, before+1, testutil.ToFloat64(StageTransitionsTotal.WithLabelValues("DESIGN", "FINAL", "ready_signal")))

	before = testutil.ToFloat64(FinalFollowupFailuresTotal)
	RecordFinalFollowupFailure()
	assert.Equal(t, before+1, testutil.ToFloat64(FinalFollowupFailuresTotal))

	RecordParseError("DESIGN")
	RecordQuiz("thrill", "ok")
	assert.GreaterOrEqual(t, testutil.ToFloat64(QuizRecommendationsTotal.WithLabelValues("thrill", "ok")), 1.0)
}

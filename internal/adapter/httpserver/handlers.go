package httpserver

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/fairyhunter13/career-consultant/internal/config"
	"github.com/fairyhunter13/career-consultant/internal/domain"
	"github.com/fairyhunter13/career-consultant/internal/usecase"
)

// Credential headers let a client supply its own keys per request.
const (
	HeaderCompletionKey = "X-Completion-Key"
	HeaderTMDBKey       = "X-TMDB-Key"
)

// ReadyCheck is a named readiness probe.
type ReadyCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// Server aggregates handler dependencies.
type Server struct {
	Cfg           config.Config
	Conversations *usecase.ConversationService
	Quiz          usecase.QuizService
	Checks        []ReadyCheck
}

// NewServer constructs a Server.
func NewServer(cfg config.Config, conv *usecase.ConversationService, quiz usecase.QuizService, checks ...ReadyCheck) *Server {
	return &Server{Cfg: cfg, Conversations: conv, Quiz: quiz, Checks: checks}
}

func notAcceptable(w http.ResponseWriter, r *http.Request) bool {
	if acceptsJSON(r) {
		return false
	}
	writeJSON(w, http.StatusNotAcceptable, errorEnvelope{Error: apiError{
		Code: "INVALID_ARGUMENT", Message: "not acceptable", Details: map[string]string{"accept": r.Header.Get("Accept")},
	}})
	return true
}

// sessionID reads and validates the {id} path parameter.
func sessionID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "id")
	if err := ValidateID("session id", id); err != nil {
		writeError(w, r, err, map[string]string{"field": "id"})
		return "", false
	}
	return id, true
}

// CreateSessionHandler starts a new DISCOVERY session.
func (s *Server) CreateSessionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if notAcceptable(w, r) {
			return
		}
		sess, err := s.Conversations.Create(r.Context())
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		w.Header().Set("Location", "/v1/sessions/"+sess.ID)
		writeJSON(w, http.StatusCreated, sess)
	}
}

// GetSessionHandler returns the snapshot with a strong ETag.
func (s *Server) GetSessionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if notAcceptable(w, r) {
			return
		}
		id, ok := sessionID(w, r)
		if !ok {
			return
		}
		sess, err := s.Conversations.Get(r.Context(), id)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeWithETag(w, r, usecase.SessionETag(sess), sess)
	}
}

// writeWithETag writes v under the ETag of the session it was rendered from,
// so every session view hands out a validator PATCH accepts as If-Match.
func writeWithETag(w http.ResponseWriter, r *http.Request, etag string, v any) {
	w.Header().Set("ETag", etag)
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

type sendMessageRequest struct {
	Content string `json:"content" validate:"required,max=4000"`
}

// SendMessageHandler runs one conversation turn.
func (s *Server) SendMessageHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if notAcceptable(w, r) {
			return
		}
		id, ok := sessionID(w, r)
		if !ok {
			return
		}
		var req sendMessageRequest
		if details, err := decodeBody(w, r, &req); err != nil {
			writeError(w, r, err, details)
			return
		}
		res, err := s.Conversations.Send(r.Context(), id, req.Content, r.Header.Get(HeaderCompletionKey))
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

// ResetSessionHandler clears a session back to DISCOVERY.
func (s *Server) ResetSessionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := sessionID(w, r)
		if !ok {
			return
		}
		sess, err := s.Conversations.Reset(r.Context(), id)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, sess)
	}
}

// ActivitiesHandler renders the activities table.
func (s *Server) ActivitiesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := sessionID(w, r)
		if !ok {
			return
		}
		sess, err := s.Conversations.Get(r.Context(), id)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeWithETag(w, r, usecase.SessionETag(sess), map[string]any{
			"stage":      sess.Stage,
			"final":      len(sess.Activities) > 0,
			"activities": usecase.ActivityRows(sess),
		})
	}
}

type activityStatusRequest struct {
	Done *bool  `json:"done" validate:"required"`
	Memo string `json:"memo" validate:"max=2000"`
}

// UpdateActivityHandler stores the done flag and memo of one activity.
func (s *Server) UpdateActivityHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := sessionID(w, r)
		if !ok {
			return
		}
		actID := chi.URLParam(r, "activityID")
		if actID == "" {
			writeError(w, r, fmt.Errorf("%w: activity id missing", domain.ErrInvalidArgument), map[string]string{"field": "activityID"})
			return
		}
		var req activityStatusRequest
		if details, err := decodeBody(w, r, &req); err != nil {
			writeError(w, r, err, details)
			return
		}
		sess, err := s.Conversations.UpdateActivityStatusIfMatch(r.Context(), id, actID, *req.Done, req.Memo, r.Header.Get("If-Match"))
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		w.Header().Set("ETag", usecase.SessionETag(sess))
		writeJSON(w, http.StatusOK, map[string]any{"activity_id": actID, "status": sess.ActivityStatus[actID]})
	}
}

// RoadmapHandler renders the year/half-year roadmap.
func (s *Server) RoadmapHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := sessionID(w, r)
		if !ok {
			return
		}
		sess, err := s.Conversations.Get(r.Context(), id)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeWithETag(w, r, usecase.SessionETag(sess), map[string]any{"roadmap": usecase.RoadmapView(sess)})
	}
}

// QuizQuestionsHandler lists the quiz questions.
func (s *Server) QuizQuestionsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"questions": s.Quiz.Questions()})
	}
}

type quizRequest struct {
	Answers []int `json:"answers" validate:"required,min=1,dive,min=0"`
}

// QuizRecommendHandler scores answers and returns matching movies.
func (s *Server) QuizRecommendHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if notAcceptable(w, r) {
			return
		}
		var req quizRequest
		if details, err := decodeBody(w, r, &req); err != nil {
			writeError(w, r, err, details)
			return
		}
		res, err := s.Quiz.Recommend(r.Context(), req.Answers, r.Header.Get(HeaderTMDBKey))
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

// ReadyzHandler runs every readiness probe with a short deadline.
func (s *Server) ReadyzHandler() http.HandlerFunc {
	type check struct {
		Name    string `json:"name"`
		OK      bool   `json:"ok"`
		Details string `json:"details,omitempty"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		checks := make([]check, 0, len(s.Checks))
		status := http.StatusOK
		for _, c := range s.Checks {
			if c.Check == nil {
				continue
			}
			if err := c.Check(ctx); err != nil {
				checks = append(checks, check{Name: c.Name, Details: err.Error()})
				status = http.StatusServiceUnavailable
				continue
			}
			checks = append(checks, check{Name: c.Name, OK: true})
		}
		writeJSON(w, status, map[string]any{"checks": checks})
	}
}

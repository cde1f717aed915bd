package usecase

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fairyhunter13/career-consultant/internal/adapter/ai"
	"github.com/fairyhunter13/career-consultant/internal/adapter/observability"
	"github.com/fairyhunter13/career-consultant/internal/domain"
	obsctx "github.com/fairyhunter13/career-consultant/internal/observability"
	"github.com/fairyhunter13/career-consultant/internal/service/ratelimiter"
	"github.com/fairyhunter13/career-consultant/internal/usecase/prompts"
)

// ApologyMessage is shown when a reply holds no usable JSON.
const ApologyMessage = "죄송해요, 답변을 제대로 이해하지 못했어요. 한 번만 다시 말씀해 주시겠어요?"

// TurnResult is the outcome of one user message.
type TurnResult struct {
	Session domain.Session `json:"session"`
	// Replies holds the assistant messages produced this turn: one normally,
	// two when the FINAL follow-up ran.
	Replies    []string     `json:"replies"`
	Apology    bool         `json:"apology"`
	FromStage  domain.Stage `json:"from_stage"`
	Transition string       `json:"transition,omitempty"`
	FollowUp   bool         `json:"follow_up"`
}

// ConversationService drives the DISCOVERY→DESIGN→FINAL conversation and
// persists the snapshot once per turn.
type ConversationService struct {
	Sessions      domain.SessionRepository
	Completion    domain.CompletionClient
	Prompts       prompts.Catalog
	Policy        StagePolicy
	Confirm       ConfirmationMatcher
	Limiter       ratelimiter.Limiter
	DefaultAPIKey string

	now   func() time.Time
	newID func() string
	locks *keyedMutex
}

// NewConversationService wires a service with the default clock and ids.
func NewConversationService(repo domain.SessionRepository, cc domain.CompletionClient, catalog prompts.Catalog, policy StagePolicy) *ConversationService {
	return &ConversationService{
		Sessions:   repo,
		Completion: cc,
		Prompts:    catalog,
		Policy:     policy,
		Confirm:    NewConfirmationMatcher(catalog.Phrases()),
		now:        func() time.Time { return time.Now().UTC() },
		newID:      func() string { return uuid.New().String() },
		locks:      newKeyedMutex(),
	}
}

// Create stores and returns a fresh DISCOVERY session.
func (s *ConversationService) Create(ctx domain.Context) (domain.Session, error) {
	sess := domain.NewSession(s.newID(), s.now())
	if err := s.Sessions.Save(ctx, sess); err != nil {
		return domain.Session{}, fmt.Errorf("op=conversation.Create: %w", err)
	}
	obsctx.LoggerFromContext(ctx).Info("session created", slog.String("session_id", sess.ID))
	return sess, nil
}

// Open returns the session with id, creating it when it does not exist.
func (s *ConversationService) Open(ctx domain.Context, id string) (domain.Session, error) {
	if strings.TrimSpace(id) == "" {
		return domain.Session{}, fmt.Errorf("op=conversation.Open: %w: empty id", domain.ErrInvalidArgument)
	}
	unlock := s.locks.Lock(id)
	defer unlock()
	sess, err := s.Sessions.Get(ctx, id)
	if err == nil {
		return sess, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return domain.Session{}, fmt.Errorf("op=conversation.Open: %w", err)
	}
	sess = domain.NewSession(id, s.now())
	if err := s.Sessions.Save(ctx, sess); err != nil {
		return domain.Session{}, fmt.Errorf("op=conversation.Open: %w", err)
	}
	return sess, nil
}

// Get loads a session snapshot.
func (s *ConversationService) Get(ctx domain.Context, id string) (domain.Session, error) {
	sess, err := s.Sessions.Get(ctx, id)
	if err != nil {
		return domain.Session{}, fmt.Errorf("op=conversation.Get: %w", err)
	}
	return sess, nil
}

// Reset clears the session back to an empty DISCOVERY state.
func (s *ConversationService) Reset(ctx domain.Context, id string) (domain.Session, error) {
	unlock := s.locks.Lock(id)
	defer unlock()
	sess, err := s.Sessions.Get(ctx, id)
	if err != nil {
		return domain.Session{}, fmt.Errorf("op=conversation.Reset: %w", err)
	}
	sess.Reset(s.now())
	if err := s.Sessions.Save(ctx, sess); err != nil {
		return domain.Session{}, fmt.Errorf("op=conversation.Reset: %w", err)
	}
	obsctx.LoggerFromContext(ctx).Info("session reset", slog.String("session_id", id))
	return sess, nil
}

// Send runs one user turn. A reply without JSON is not an error: the user
// message is kept and TurnResult.Apology is set. Completion transport errors
// are returned and leave the stored snapshot untouched.
func (s *ConversationService) Send(ctx domain.Context, id, text, apiKey string) (TurnResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return TurnResult{}, fmt.Errorf("op=conversation.Send: %w: empty message", domain.ErrInvalidArgument)
	}
	key := strings.TrimSpace(apiKey)
	if key == "" {
		key = s.DefaultAPIKey
	}
	if key == "" {
		return TurnResult{}, fmt.Errorf("op=conversation.Send: %w: completion key not provided", domain.ErrMissingCredential)
	}

	ctx = obsctx.WithSession(ctx, id)
	lg := obsctx.LoggerFromContext(ctx)
	unlock := s.locks.Lock(id)
	defer unlock()

	sess, err := s.Sessions.Get(ctx, id)
	if err != nil {
		return TurnResult{}, fmt.Errorf("op=conversation.Send: %w", err)
	}
	if s.Limiter != nil {
		allowed, retryAfter, lerr := s.Limiter.Allow(ctx, id, 1)
		if lerr != nil {
			lg.Warn("turn limiter unavailable", slog.Any("error", lerr))
		}
		if !allowed {
			return TurnResult{}, fmt.Errorf("op=conversation.Send: %w: retry after %s", domain.ErrRateLimited, retryAfter.Round(time.Second))
		}
	}

	stage := domain.ParseStage(string(sess.Stage))
	sess.Stage = stage
	sess.Messages = append(sess.Messages, domain.Message{Role: domain.RoleUser, Content: text})
	res := TurnResult{FromStage: stage}

	raw, err := s.complete(ctx, stage, sess.Messages, key)
	if err != nil {
		return TurnResult{}, fmt.Errorf("op=conversation.Send: %w", err)
	}
	reply, err := ai.ParseReply(raw)
	if err != nil {
		observability.RecordParseError(string(stage))
		lg.Warn("completion reply had no json", slog.String("stage", string(stage)), slog.Any("error", err))
		sess.UpdatedAt = s.now()
		if err := s.Sessions.Save(ctx, sess); err != nil {
			return TurnResult{}, fmt.Errorf("op=conversation.Send: %w", err)
		}
		res.Session, res.Apology, res.Replies = sess, true, []string{ApologyMessage}
		return res, nil
	}

	applyReply(&sess, stage, reply)
	observability.RecordTurn(string(stage))
	res.Replies = appendReply(&sess, res.Replies, reply)

	var advance bool
	switch stage {
	case domain.StageDiscovery:
		advance, res.Transition = s.Policy.AdvanceFromDiscovery(sess, reply)
	case domain.StageDesign:
		advance, res.Transition = s.Policy.AdvanceFromDesign(sess, reply, text, s.Confirm)
	}
	if advance {
		next := stage.Next()
		observability.RecordTransition(string(stage), string(next), res.Transition)
		lg.Info("stage advanced", slog.String("from", string(stage)), slog.String("to", string(next)), slog.String("trigger", res.Transition))
		sess.Stage = next
		if next == domain.StageFinal {
			res.Replies, res.FollowUp = s.finalFollowUp(ctx, &sess, res.Replies, key)
		}
	}

	sess.UpdatedAt = s.now()
	if err := s.Sessions.Save(ctx, sess); err != nil {
		return TurnResult{}, fmt.Errorf("op=conversation.Send: %w", err)
	}
	res.Session = sess
	return res, nil
}

// finalFollowUp issues the single FINAL request made on entering FINAL.
// Any failure keeps the DESIGN results and is only logged.
func (s *ConversationService) finalFollowUp(ctx domain.Context, sess *domain.Session, replies []string, key string) ([]string, bool) {
	lg := obsctx.LoggerFromContext(ctx)
	raw, err := s.complete(ctx, domain.StageFinal, sess.Messages, key)
	if err == nil {
		var reply ai.Reply
		if reply, err = ai.ParseReply(raw); err == nil {
			applyReply(sess, domain.StageFinal, reply)
			observability.RecordTurn(string(domain.StageFinal))
			return appendReply(sess, replies, reply), true
		}
	}
	observability.RecordFinalFollowupFailure()
	lg.Warn("final follow-up skipped, keeping design results", slog.Any("error", err))
	return replies, false
}

func (s *ConversationService) complete(ctx domain.Context, stage domain.Stage, history []domain.Message, key string) (string, error) {
	return s.Completion.Complete(ctx, domain.CompletionRequest{
		APIKey:   key,
		System:   s.Prompts.Template(stage),
		Messages: history,
	})
}

// applyReply folds a normalized reply into the stage's fields. Blocks the
// model left out keep their previous value.
func applyReply(sess *domain.Session, stage domain.Stage, r ai.Reply) {
	switch stage {
	case domain.StageDiscovery:
		if r.HasDiscoverySummary {
			sess.DiscoverySummary = r.DiscoverySummary
		}
		sess.DiscoveryTurns++
	case domain.StageDesign:
		if r.HasCareerOptions {
			sess.CareerOptions = r.CareerOptions
		}
		if r.RecommendedDirection != "" {
			sess.RecommendedDirection = r.RecommendedDirection
		}
		if r.HasDraftActivities {
			sess.DraftActivities = r.DraftActivities
		}
		sess.DesignTurns++
	case domain.StageFinal:
		// A block missing from the reply keeps its last good value.
		if r.HasProfile {
			sess.Profile = r.Profile
		}
		if r.HasCareerPlan {
			sess.CareerPlan = r.CareerPlan
		}
		if r.HasActivities {
			sess.Activities = r.Activities
		}
		if r.HasRoadmap {
			sess.Roadmap = r.Roadmap
		}
	}
}

func appendReply(sess *domain.Session, replies []string, r ai.Reply) []string {
	msg := strings.TrimSpace(r.AssistantMessage)
	if msg == "" {
		return replies
	}
	sess.Messages = append(sess.Messages, domain.Message{Role: domain.RoleAssistant, Content: msg})
	return append(replies, msg)
}

// keyedMutex serializes work per session id.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex { return &keyedMutex{locks: map[string]*refMutex{}} }

// Lock acquires the mutex for key and returns its release func.
func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &refMutex{}
		k.locks[key] = m
	}
	m.refs++
	k.mu.Unlock()

	m.Lock()
	return func() {
		m.Unlock()
		k.mu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}

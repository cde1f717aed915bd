package domain

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Error taxonomy (sentinels)
var (
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrRateLimited       = errors.New("rate limited")
	ErrUpstreamTimeout   = errors.New("upstream timeout")
	ErrUpstreamRateLimit = errors.New("upstream rate limit")
	ErrInternal          = errors.New("internal error")
	// ErrParse reports a completion reply that holds no extractable JSON object.
	ErrParse = errors.New("no json object in reply")
	// ErrMissingCredential reports that no completion/catalog credential was supplied.
	ErrMissingCredential = errors.New("missing credential")
)

// Stage is one of the three phases of a guided conversation.
type Stage string

const (
	StageDiscovery Stage = "DISCOVERY"
	StageDesign    Stage = "DESIGN"
	StageFinal     Stage = "FINAL"
)

// ParseStage returns the stage named by s; unknown names are DISCOVERY.
func ParseStage(s string) Stage {
	switch Stage(strings.ToUpper(strings.TrimSpace(s))) {
	case StageDesign:
		return StageDesign
	case StageFinal:
		return StageFinal
	default:
		return StageDiscovery
	}
}

// Next returns the forward successor. FINAL is terminal.
func (s Stage) Next() Stage {
	switch ParseStage(string(s)) {
	case StageDiscovery:
		return StageDesign
	default:
		return StageFinal
	}
}

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is an immutable entry in the conversation history.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// DiscoverySummary is replaced wholesale on every DISCOVERY reply.
type DiscoverySummary struct {
	Interests       []string `json:"interests"`
	Strengths       []string `json:"strengths"`
	Values          []string `json:"values"`
	Constraints     []string `json:"constraints"`
	UncertainPoints []string `json:"uncertain_points"`
}

// CareerOption is a candidate direction drafted during DESIGN.
type CareerOption struct {
	Title     string `json:"title"`
	FitReason string `json:"fit_reason"`
	Risk      string `json:"risk"`
	Outlook   string `json:"outlook"`
}

// Profile is the consolidated picture of the user produced in FINAL.
type Profile struct {
	Interests        []string `json:"interests"`
	Strengths        []string `json:"strengths"`
	Values           []string `json:"values"`
	PreferredWork    []string `json:"preferred_work"`
	Constraints      []string `json:"constraints"`
	TargetRoles      []string `json:"target_roles"`
	TargetIndustries []string `json:"target_industries"`
	Notes            string   `json:"notes"`
}

// CareerPlan is the FINAL-stage plan.
type CareerPlan struct {
	Direction      string   `json:"direction"`
	Strategy       []string `json:"strategy"`
	ShortTermGoals []string `json:"short_term_goals"`
	MidTermGoals   []string `json:"mid_term_goals"`
	Assumptions    []string `json:"assumptions"`
}

// Activity is a single recommended action/competency item.
// Priority holds the model's raw value; use ParsePriority for display.
type Activity struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Priority    string   `json:"priority"`
	Links       []string `json:"links"`
}

// RoadmapEntry allocates activity references into two half-year buckets.
// Year is nil when the model supplied a non-numeric year; RawYear keeps it.
type RoadmapEntry struct {
	Year    *int     `json:"year"`
	RawYear string   `json:"raw_year,omitempty"`
	H1      []string `json:"h1"`
	H2      []string `json:"h2"`
}

// ActivityStatus is UI-local state keyed by activity id.
type ActivityStatus struct {
	Done bool   `json:"done"`
	Memo string `json:"memo"`
}

// Session is the persisted snapshot of one conversation.
type Session struct {
	ID                   string                    `json:"id"`
	Stage                Stage                     `json:"stage"`
	Messages             []Message                 `json:"messages"`
	DiscoverySummary     DiscoverySummary          `json:"discovery_summary"`
	CareerOptions        []CareerOption            `json:"career_options"`
	RecommendedDirection string                    `json:"recommended_direction"`
	DraftActivities      []Activity                `json:"draft_activities"`
	Profile              Profile                   `json:"profile"`
	CareerPlan           CareerPlan                `json:"career_plan"`
	Activities           []Activity                `json:"activities"`
	Roadmap              []RoadmapEntry            `json:"roadmap"`
	ActivityStatus       map[string]ActivityStatus `json:"activity_status"`
	DiscoveryTurns       int                       `json:"discovery_turns"`
	DesignTurns          int                       `json:"design_turns"`
	CreatedAt            time.Time                 `json:"created_at"`
	UpdatedAt            time.Time                 `json:"updated_at"`
}

// NewSession returns an empty DISCOVERY snapshot.
func NewSession(id string, now time.Time) Session {
	s := Session{ID: id, CreatedAt: now}
	s.Reset(now)
	return s
}

// Reset clears all conversation state; ID and CreatedAt survive.
func (s *Session) Reset(now time.Time) {
	*s = Session{
		ID:              s.ID,
		Stage:           StageDiscovery,
		Messages:        []Message{},
		CareerOptions:   []CareerOption{},
		DraftActivities: []Activity{},
		Activities:      []Activity{},
		Roadmap:         []RoadmapEntry{},
		ActivityStatus:  map[string]ActivityStatus{},
		CreatedAt:       s.CreatedAt,
		UpdatedAt:       now,
	}
}

// VisibleActivities returns the FINAL activities, or the DESIGN drafts while
// no final plan exists.
func (s Session) VisibleActivities() []Activity {
	if len(s.Activities) > 0 {
		return s.Activities
	}
	return s.DraftActivities
}

// Repositories (ports)

//go:generate mockery --name=SessionRepository --filename=session_repository_mock.go
type SessionRepository interface {
	Get(ctx Context, id string) (Session, error)
	Save(ctx Context, s Session) error
	Delete(ctx Context, id string) error
}

// CompletionRequest is one call to the completion service.
type CompletionRequest struct {
	APIKey   string
	System   string
	Messages []Message
}

// CompletionClient (port)
//
//go:generate mockery --name=CompletionClient --filename=completion_client_mock.go
type CompletionClient interface {
	// Complete returns the textual payload of the model's reply.
	Complete(ctx Context, req CompletionRequest) (string, error)
}

// Context is an alias to allow decoupling from std context in domain.
type Context = context.Context

package ai

import (
	"strings"

	"github.com/fairyhunter13/career-consultant/internal/domain"
)

// Reply is a normalized completion reply. The Has* flags record which blocks
// the model actually sent, so callers can leave absent blocks untouched.
type Reply struct {
	AssistantMessage string
	NextAction       string

	DiscoverySummary    domain.DiscoverySummary
	HasDiscoverySummary bool

	CareerOptions        []domain.CareerOption
	HasCareerOptions     bool
	RecommendedDirection string
	DraftActivities      []domain.Activity
	HasDraftActivities   bool

	Profile       domain.Profile
	HasProfile    bool
	CareerPlan    domain.CareerPlan
	HasCareerPlan bool
	Activities    []domain.Activity
	HasActivities bool
	Roadmap       []domain.RoadmapEntry
	HasRoadmap    bool
}

// ParseReply extracts and normalizes a completion reply. The only error is
// one wrapping domain.ErrParse; malformed blocks are repaired silently.
func ParseReply(text string) (Reply, error) {
	obj, err := ExtractJSON(text)
	if err != nil {
		return Reply{}, err
	}
	var r Reply
	r.AssistantMessage, _ = obj["assistant_message"].(string)
	r.NextAction, _ = obj["next_action"].(string)
	r.NextAction = strings.TrimSpace(r.NextAction)

	if v, ok := obj["discovery_summary"]; ok {
		r.DiscoverySummary, r.HasDiscoverySummary = DecodeDiscoverySummary(v), true
	}
	if v, ok := obj["career_options"]; ok {
		r.CareerOptions, r.HasCareerOptions = DecodeCareerOptions(v), true
	}
	r.RecommendedDirection, _ = obj["recommended_direction"].(string)
	r.RecommendedDirection = strings.TrimSpace(r.RecommendedDirection)
	if v, ok := obj["draft_activities"]; ok {
		r.DraftActivities, r.HasDraftActivities = NormalizeActivities(v), true
	}
	if v, ok := obj["profile"]; ok {
		r.Profile, r.HasProfile = DecodeProfile(v), true
	}
	if v, ok := obj["career_plan"]; ok {
		r.CareerPlan, r.HasCareerPlan = DecodeCareerPlan(v), true
	}
	if v, ok := obj["activities"]; ok {
		r.Activities, r.HasActivities = NormalizeActivities(v), true
	}
	if v, ok := obj["roadmap"]; ok {
		r.Roadmap, r.HasRoadmap = NormalizeRoadmap(v), true
	}
	return r, nil
}

// ReadySignal reports whether next_action asks to move to the next stage
// (READY, READY_FOR_DESIGN, READY_FOR_FINAL, ...).
func (r Reply) ReadySignal() bool {
	return strings.HasPrefix(strings.ToUpper(r.NextAction), "READY")
}

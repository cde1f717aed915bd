package ai

import (
	"math"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/fairyhunter13/career-consultant/internal/domain"
)

// newActivityID generates ids for activities that arrive without one.
var newActivityID = uuid.NewString

// NormalizeActivities coerces a decoded activity list. Non-object elements
// are dropped; missing or duplicate ids are regenerated; missing fields are
// defaulted. Normalizing an already-normalized list is a no-op.
func NormalizeActivities(raw any) []domain.Activity {
	items, _ := raw.([]any)
	out := make([]domain.Activity, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		id, _ := scalarString(obj["id"])
		id = strings.TrimSpace(id)
		if _, dup := seen[id]; id == "" || dup {
			id = newActivityID()
		}
		seen[id] = struct{}{}

		priority, ok := obj["priority"].(string)
		if !ok || strings.TrimSpace(priority) == "" {
			priority = string(domain.PriorityRecommended)
		}
		title, _ := obj["title"].(string)
		desc, _ := obj["description"].(string)
		out = append(out, domain.Activity{
			ID:          id,
			Title:       title,
			Description: desc,
			Priority:    priority,
			Links:       stringElems(obj["links"], false),
		})
	}
	return out
}

// NormalizeRoadmap coerces a decoded roadmap list. Non-object elements are
// dropped. Years given as integral numbers or numeric text become ints;
// anything else leaves Year nil and keeps the text in RawYear.
func NormalizeRoadmap(raw any) []domain.RoadmapEntry {
	items, _ := raw.([]any)
	out := make([]domain.RoadmapEntry, 0, len(items))
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		entry := domain.RoadmapEntry{
			H1: stringElems(obj["h1"], true),
			H2: stringElems(obj["h2"], true),
		}
		if year, ok := coerceYear(obj["year"]); ok {
			entry.Year = &year
		} else {
			entry.RawYear, _ = scalarString(obj["year"])
			if entry.RawYear == "" {
				entry.RawYear, _ = obj["raw_year"].(string)
			}
		}
		out = append(out, entry)
	}
	return out
}

func coerceYear(v any) (int, bool) {
	switch t := v.(type) {
	case float64:
		if t == math.Trunc(t) && !math.IsInf(t, 0) {
			return int(t), true
		}
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(t)); err == nil {
			return n, true
		}
	}
	return 0, false
}

// scalarString renders strings and numbers; other kinds report false.
func scalarString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	default:
		return "", false
	}
}

// stringElems returns the string elements of a decoded list, or an empty
// list when v is not a list. Numbers are kept when allowNumbers is set.
func stringElems(v any, allowNumbers bool) []string {
	items, ok := v.([]any)
	if !ok {
		return []string{}
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
			continue
		}
		if allowNumbers {
			if s, ok := scalarString(item); ok {
				out = append(out, s)
			}
		}
	}
	return out
}

// DecodeStringList returns the string elements of v, or an empty list when v
// is not a list.
func DecodeStringList(v any) []string {
	return stringElems(v, false)
}

// DecodeDiscoverySummary reads the DISCOVERY summary block.
func DecodeDiscoverySummary(v any) domain.DiscoverySummary {
	obj, _ := v.(map[string]any)
	return domain.DiscoverySummary{
		Interests:       DecodeStringList(obj["interests"]),
		Strengths:       DecodeStringList(obj["strengths"]),
		Values:          DecodeStringList(obj["values"]),
		Constraints:     DecodeStringList(obj["constraints"]),
		UncertainPoints: DecodeStringList(obj["uncertain_points"]),
	}
}

// DecodeCareerOptions reads the DESIGN options list, dropping non-objects.
func DecodeCareerOptions(v any) []domain.CareerOption {
	items, _ := v.([]any)
	out := make([]domain.CareerOption, 0, len(items))
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		opt := domain.CareerOption{}
		opt.Title, _ = obj["title"].(string)
		opt.FitReason, _ = obj["fit_reason"].(string)
		opt.Risk, _ = obj["risk"].(string)
		opt.Outlook, _ = obj["outlook"].(string)
		out = append(out, opt)
	}
	return out
}

// DecodeProfile reads the FINAL profile block.
func DecodeProfile(v any) domain.Profile {
	obj, _ := v.(map[string]any)
	p := domain.Profile{
		Interests:        DecodeStringList(obj["interests"]),
		Strengths:        DecodeStringList(obj["strengths"]),
		Values:           DecodeStringList(obj["values"]),
		PreferredWork:    DecodeStringList(obj["preferred_work"]),
		Constraints:      DecodeStringList(obj["constraints"]),
		TargetRoles:      DecodeStringList(obj["target_roles"]),
		TargetIndustries: DecodeStringList(obj["target_industries"]),
	}
	p.Notes, _ = obj["notes"].(string)
	return p
}

// DecodeCareerPlan reads the FINAL career plan block.
func DecodeCareerPlan(v any) domain.CareerPlan {
	obj, _ := v.(map[string]any)
	p := domain.CareerPlan{
		Strategy:       DecodeStringList(obj["strategy"]),
		ShortTermGoals: DecodeStringList(obj["short_term_goals"]),
		MidTermGoals:   DecodeStringList(obj["mid_term_goals"]),
		Assumptions:    DecodeStringList(obj["assumptions"]),
	}
	p.Direction, _ = obj["direction"].(string)
	return p
}

package domain

import "strings"

// Priority is the display tier of an activity.
type Priority string

const (
	PriorityCore        Priority = "core"
	PriorityRecommended Priority = "recommended"
	PriorityOptional    Priority = "optional"
)

var prioritySynonyms = map[string]Priority{
	"core":        PriorityCore,
	"핵심":          PriorityCore,
	"recommended": PriorityRecommended,
	"권장":          PriorityRecommended,
	"추천":          PriorityRecommended,
	"optional":    PriorityOptional,
	"선택":          PriorityOptional,
	"플러스":         PriorityOptional,
}

// ParsePriority maps raw model output to a display tier. Unrecognized values
// display as recommended; the stored value is not changed.
func ParsePriority(raw string) Priority {
	if p, ok := prioritySynonyms[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return p
	}
	return PriorityRecommended
}

// Label returns the Korean badge text shown next to an activity.
func (p Priority) Label() string {
	switch p {
	case PriorityCore:
		return "핵심"
	case PriorityOptional:
		return "플러스"
	default:
		return "추천"
	}
}

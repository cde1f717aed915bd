package usecase

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/fairyhunter13/career-consultant/internal/domain"
)

// maxRowLinks caps the links shown per activity row.
const maxRowLinks = 3

// ActivityRow is one line of the activities table.
type ActivityRow struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Priority    domain.Priority `json:"priority"`
	Label       string          `json:"label"`
	Links       []string        `json:"links"`
	Done        bool            `json:"done"`
	Memo        string          `json:"memo"`
}

// ActivityRows joins the visible activities with their UI status.
func ActivityRows(s domain.Session) []ActivityRow {
	acts := s.VisibleActivities()
	rows := make([]ActivityRow, 0, len(acts))
	for _, a := range acts {
		st := s.ActivityStatus[a.ID]
		p := domain.ParsePriority(a.Priority)
		links := a.Links
		if len(links) > maxRowLinks {
			links = links[:maxRowLinks]
		}
		if links == nil {
			links = []string{}
		}
		rows = append(rows, ActivityRow{
			ID: a.ID, Title: a.Title, Description: a.Description,
			Priority: p, Label: p.Label(), Links: links,
			Done: st.Done, Memo: st.Memo,
		})
	}
	return rows
}

// RoadmapYear is one rendered roadmap entry.
type RoadmapYear struct {
	Year int               `json:"year"`
	H1   []domain.Activity `json:"h1"`
	H2   []domain.Activity `json:"h2"`
}

// RoadmapView renders entries with a numeric year in ascending order.
// References resolve by id, then by title; unresolved ones are skipped.
func RoadmapView(s domain.Session) []RoadmapYear {
	acts := s.VisibleActivities()
	byID := make(map[string]domain.Activity, len(acts))
	byTitle := make(map[string]domain.Activity, len(acts))
	for _, a := range acts {
		byID[a.ID] = a
		if t := strings.TrimSpace(a.Title); t != "" {
			if _, dup := byTitle[t]; !dup {
				byTitle[t] = a
			}
		}
	}
	resolve := func(refs []string) []domain.Activity {
		out := make([]domain.Activity, 0, len(refs))
		for _, ref := range refs {
			if a, ok := ResolveActivity(ref, byID, byTitle); ok {
				out = append(out, a)
			}
		}
		return out
	}

	view := make([]RoadmapYear, 0, len(s.Roadmap))
	for _, e := range s.Roadmap {
		if e.Year == nil {
			continue
		}
		view = append(view, RoadmapYear{Year: *e.Year, H1: resolve(e.H1), H2: resolve(e.H2)})
	}
	sort.SliceStable(view, func(i, j int) bool { return view[i].Year < view[j].Year })
	return view
}

// ResolveActivity looks ref up by id first and by title second.
func ResolveActivity(ref string, byID, byTitle map[string]domain.Activity) (domain.Activity, bool) {
	if a, ok := byID[ref]; ok {
		return a, true
	}
	a, ok := byTitle[strings.TrimSpace(ref)]
	return a, ok
}

// UpdateActivityStatus records the done flag and memo for one visible
// activity. Activity records themselves are never touched.
func (s *ConversationService) UpdateActivityStatus(ctx domain.Context, sessionID, activityID string, done bool, memo string) (domain.Session, error) {
	return s.UpdateActivityStatusIfMatch(ctx, sessionID, activityID, done, memo, "")
}

// UpdateActivityStatusIfMatch is UpdateActivityStatus guarded by the
// session's SessionETag. A non-empty ifMatch that no longer matches the
// stored snapshot fails with ErrConflict.
func (s *ConversationService) UpdateActivityStatusIfMatch(ctx domain.Context, sessionID, activityID string, done bool, memo, ifMatch string) (domain.Session, error) {
	unlock := s.locks.Lock(sessionID)
	defer unlock()
	sess, err := s.Sessions.Get(ctx, sessionID)
	if err != nil {
		return domain.Session{}, fmt.Errorf("op=conversation.UpdateActivityStatus: %w", err)
	}
	if ifMatch != "" && ifMatch != "*" && ifMatch != SessionETag(sess) {
		return domain.Session{}, fmt.Errorf("op=conversation.UpdateActivityStatus: %w: session changed", domain.ErrConflict)
	}
	found := false
	for _, a := range sess.VisibleActivities() {
		if a.ID == activityID {
			found = true
			break
		}
	}
	if !found {
		return domain.Session{}, fmt.Errorf("op=conversation.UpdateActivityStatus: %w: activity %q", domain.ErrNotFound, activityID)
	}
	if sess.ActivityStatus == nil {
		sess.ActivityStatus = map[string]domain.ActivityStatus{}
	}
	sess.ActivityStatus[activityID] = domain.ActivityStatus{Done: done, Memo: memo}
	sess.UpdatedAt = s.now()
	if err := s.Sessions.Save(ctx, sess); err != nil {
		return domain.Session{}, fmt.Errorf("op=conversation.UpdateActivityStatus: %w", err)
	}
	return sess, nil
}

// SessionETag is a strong validator over the snapshot's JSON form.
func SessionETag(v any) string {
	b, _ := json.Marshal(v)
	sum := sha256.Sum256(b)
	return `"` + hex.EncodeToString(sum[:]) + `"`
}

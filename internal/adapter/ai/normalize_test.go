package ai

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/career-consultant/internal/domain"
)

func decodeAny(t *testing.T, s string) any {
	t.Helper()
	var v any
	require.NoError(t, json.Unmarshal([]byte(s), &v))
	return v
}

func TestNormalizeActivities_FillsDefaults(t *testing.T) {
	ids := 0
	orig := newActivityID
	newActivityID = func() string { ids++; return fmt.Sprintf("gen-%d", ids) }
	t.Cleanup(func() { newActivityID = orig })

	raw := decodeAny(t, `[
		{"id": "a1", "title": "SQL 기초", "priority": "핵심", "links": ["https://a", 3, "https://b"]},
		{"title": "포트폴리오", "links": "not-a-list"},
		{"id": "a1", "title": "dup", "priority": "   "},
		{"id": 42, "description": "numeric id"},
		"stray string",
		7
	]`)

	got := NormalizeActivities(raw)
	require.Len(t, got, 4)

	assert.Equal(t, domain.Activity{ID: "a1", Title: "SQL 기초", Priority: "핵심", Links: []string{"https://a", "https://b"}}, got[0])
	assert.Equal(t, domain.Activity{ID: "gen-1", Title: "포트폴리오", Priority: "recommended", Links: []string{}}, got[1])
	assert.Equal(t, "gen-2", got[2].ID, "duplicate id is regenerated")
	assert.Equal(t, "recommended", got[2].Priority)
	assert.Equal(t, "42", got[3].ID)
	assert.Equal(t, "", got[3].Title)
	assert.Equal(t, "numeric id", got[3].Description)
}

func TestNormalizeActivities_NotAList(t *testing.T) {
	for _, raw := range []any{nil, "x", 1.0, map[string]any{"id": "a"}} {
		got := NormalizeActivities(raw)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	}
}

func TestNormalizeActivities_Idempotent(t *testing.T) {
	inputs := []string{
		`[]`,
		`[{"id":"x","title":"t","description":"d","priority":"선택","links":["l1","l2","l3","l4"]}]`,
		`[{"title":"no id"},{"id":"","title":"empty id"},{"id":"same"},{"id":"same"}]`,
		`[1, "a", {"id": 3.5, "links": [null, "ok"]}]`,
	}
	for _, in := range inputs {
		in := in
		t.Run(in, func(t *testing.T) {
			first := NormalizeActivities(decodeAny(t, in))

			b, err := json.Marshal(first)
			require.NoError(t, err)
			second := NormalizeActivities(decodeAny(t, string(b)))

			assert.Equal(t, first, second)
		})
	}
}

func TestNormalizeRoadmap_YearCoercion(t *testing.T) {
	raw := decodeAny(t, `[
		{"year": 2025, "h1": ["a1"], "h2": ["a2", 7]},
		{"year": "2026", "h1": "nope"},
		{"year": 2027.5},
		{"year": "내년", "h1": ["x"]},
		{"h2": ["y"]},
		"junk"
	]`)

	got := NormalizeRoadmap(raw)
	require.Len(t, got, 5)

	require.NotNil(t, got[0].Year)
	assert.Equal(t, 2025, *got[0].Year)
	assert.Equal(t, []string{"a1"}, got[0].H1)
	assert.Equal(t, []string{"a2", "7"}, got[0].H2)

	require.NotNil(t, got[1].Year)
	assert.Equal(t, 2026, *got[1].Year)
	assert.Equal(t, []string{}, got[1].H1)

	assert.Nil(t, got[2].Year)
	assert.Equal(t, "2027.5", got[2].RawYear)

	assert.Nil(t, got[3].Year)
	assert.Equal(t, "내년", got[3].RawYear)

	assert.Nil(t, got[4].Year)
	assert.Equal(t, "", got[4].RawYear)
}

func TestNormalizeRoadmap_Idempotent(t *testing.T) {
	in := `[{"year":"2025","h1":["a"],"h2":[]},{"year":"someday","h1":[],"h2":["b"]}]`
	first := NormalizeRoadmap(decodeAny(t, in))

	b, err := json.Marshal(first)
	require.NoError(t, err)
	second := NormalizeRoadmap(decodeAny(t, string(b)))

	assert.Equal(t, first, second)
}

func TestDecodeBlocks(t *testing.T) {
	summary := DecodeDiscoverySummary(decodeAny(t, `{"interests":["data", 1],"strengths":"x","uncertain_points":["pay"]}`))
	assert.Equal(t, []string{"data"}, summary.Interests)
	assert.Equal(t, []string{}, summary.Strengths)
	assert.Equal(t, []string{"pay"}, summary.UncertainPoints)

	opts := DecodeCareerOptions(decodeAny(t, `[{"title":"Data analyst","fit_reason":"likes numbers","risk":"saturated","outlook":"stable"}, 3]`))
	require.Len(t, opts, 1)
	assert.Equal(t, domain.CareerOption{Title: "Data analyst", FitReason: "likes numbers", Risk: "saturated", Outlook: "stable"}, opts[0])

	profile := DecodeProfile(decodeAny(t, `{"target_roles":["PM"],"notes":"n"}`))
	assert.Equal(t, []string{"PM"}, profile.TargetRoles)
	assert.Equal(t, "n", profile.Notes)
	assert.Equal(t, []string{}, profile.Values)

	plan := DecodeCareerPlan(decodeAny(t, `{"direction":"analytics","short_term_goals":["SQL"]}`))
	assert.Equal(t, "analytics", plan.Direction)
	assert.Equal(t, []string{"SQL"}, plan.ShortTermGoals)

	assert.Equal(t, domain.DiscoverySummary{
		Interests: []string{}, Strengths: []string{}, Values: []string{}, Constraints: []string{}, UncertainPoints: []string{},
	}, DecodeDiscoverySummary("not an object"))
}

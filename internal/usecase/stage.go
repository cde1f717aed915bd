package usecase

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/fairyhunter13/career-consultant/internal/adapter/ai"
	"github.com/fairyhunter13/career-consultant/internal/config"
	"github.com/fairyhunter13/career-consultant/internal/domain"
)

// Transition triggers, also used as metric labels.
const (
	TriggerReadySignal   = "ready_signal"
	TriggerTurnCeiling   = "turn_ceiling"
	TriggerConfirmation  = "confirmation"
	TriggerDraftComplete = "draft_complete"
)

// StagePolicy holds the thresholds that bound each stage. A non-positive
// value disables the rule it drives.
type StagePolicy struct {
	DiscoveryTurnCeiling int
	DesignTurnCeiling    int
	DraftActivityMinimum int
}

// DefaultStagePolicy returns 4 discovery turns, 3 design turns and 6 drafts.
func DefaultStagePolicy() StagePolicy {
	return StagePolicy{DiscoveryTurnCeiling: 4, DesignTurnCeiling: 3, DraftActivityMinimum: 6}
}

// StagePolicyFromConfig reads the thresholds from cfg as given. Defaults come
// from the env tags, so an explicit 0 turns a rule off.
func StagePolicyFromConfig(cfg config.Config) StagePolicy {
	return StagePolicy{
		DiscoveryTurnCeiling: cfg.DiscoveryTurnCeiling,
		DesignTurnCeiling:    cfg.DesignTurnCeiling,
		DraftActivityMinimum: cfg.DraftActivityMinimum,
	}
}

// IsReadySignal reports whether next_action asks for the next stage.
func IsReadySignal(nextAction string) bool {
	return ai.Reply{NextAction: nextAction}.ReadySignal()
}

// AdvanceFromDiscovery decides DISCOVERY→DESIGN for s, which already has
// reply r applied and its turn counted.
func (p StagePolicy) AdvanceFromDiscovery(s domain.Session, r ai.Reply) (bool, string) {
	if r.ReadySignal() {
		return true, TriggerReadySignal
	}
	if p.DiscoveryTurnCeiling > 0 && s.DiscoveryTurns >= p.DiscoveryTurnCeiling {
		return true, TriggerTurnCeiling
	}
	return false, ""
}

// AdvanceFromDesign decides DESIGN→FINAL for s, which already has reply r
// applied and its turn counted. userText is the message that drove the turn.
func (p StagePolicy) AdvanceFromDesign(s domain.Session, r ai.Reply, userText string, m ConfirmationMatcher) (bool, string) {
	switch {
	case r.ReadySignal():
		return true, TriggerReadySignal
	case m.Matches(userText):
		return true, TriggerConfirmation
	case p.DraftActivityMinimum > 0 && strings.TrimSpace(s.RecommendedDirection) != "" && len(s.DraftActivities) >= p.DraftActivityMinimum:
		return true, TriggerDraftComplete
	case p.DesignTurnCeiling > 0 && s.DesignTurns >= p.DesignTurnCeiling:
		return true, TriggerTurnCeiling
	}
	return false, ""
}

// ConfirmationMatcher detects affirmative phrases in user text. A phrase
// matches only as a whole word run, so "네" does not fire inside "네트워크".
// Negated text never matches, nor does a phrase asked back as a question
// ("네?").
type ConfirmationMatcher struct {
	re *regexp.Regexp
}

// NewConfirmationMatcher compiles phrases into one case-insensitive pattern.
// An empty list yields a matcher that never fires.
func NewConfirmationMatcher(phrases []string) ConfirmationMatcher {
	alts := make([]string, 0, len(phrases))
	for _, p := range phrases {
		words := strings.Fields(strings.ToLower(p))
		if len(words) == 0 {
			continue
		}
		for i, w := range words {
			words[i] = regexp.QuoteMeta(w)
		}
		alts = append(alts, strings.Join(words, `\s+`))
	}
	if len(alts) == 0 {
		return ConfirmationMatcher{}
	}
	pattern := `(?i)(?:^|[\s\p{P}\p{S}])(?:` + strings.Join(alts, "|") + `)(?:$|[\s\p{P}\p{S}])`
	return ConfirmationMatcher{re: regexp.MustCompile(pattern)}
}

// Matches reports whether text contains one of the phrases, is not negated,
// and has at least one match that is not immediately questioned.
func (m ConfirmationMatcher) Matches(text string) bool {
	if m.re == nil {
		return false
	}
	text = strings.TrimSpace(text)
	if text == "" || isNegated(text) {
		return false
	}
	for _, loc := range m.re.FindAllStringIndex(text, -1) {
		if !questionedAt(text, loc[1]) {
			return true
		}
	}
	return false
}

// questionedAt reports whether a match ending at end is followed by "?",
// allowing for the delimiter the pattern itself consumed.
func questionedAt(text string, end int) bool {
	head := text[:end]
	if strings.HasSuffix(head, "?") || strings.HasSuffix(head, "？") {
		return true
	}
	rest := strings.TrimLeft(text[end:], " \t")
	return strings.HasPrefix(rest, "?") || strings.HasPrefix(rest, "？")
}

var (
	negatorWords = map[string]bool{
		"no": true, "not": true, "nope": true, "never": true, "nah": true,
		"cant": true, "dont": true, "wont": true, "isnt": true,
		"안": true, "못": true,
	}
	negatorPrefixes = []string{"아니", "아직", "안돼"}
)

// isNegated looks for a negator anywhere in text: English negation words or
// an n't contraction, Korean 안/못 as words, 아니/아직 word prefixes, or
// the 않- stem.
func isNegated(text string) bool {
	lower := strings.ToLower(text)
	if strings.Contains(lower, "않") {
		return true
	}
	tokens := strings.FieldsFunc(lower, func(r rune) bool {
		return !unicode.IsLetter(r) && r != '\'' && r != '’'
	})
	for _, tok := range tokens {
		tok = strings.Trim(tok, "'’")
		if negatorWords[tok] || strings.HasSuffix(tok, "n't") || strings.HasSuffix(tok, "n’t") {
			return true
		}
		for _, p := range negatorPrefixes {
			if strings.HasPrefix(tok, p) {
				return true
			}
		}
	}
	return false
}

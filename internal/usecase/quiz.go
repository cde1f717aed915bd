package usecase

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/fairyhunter13/career-consultant/internal/adapter/observability"
	"github.com/fairyhunter13/career-consultant/internal/domain"
	obsctx "github.com/fairyhunter13/career-consultant/internal/observability"
)

// QuizChoice is one answer and the taste it votes for.
type QuizChoice struct {
	Text     string               `json:"text"`
	Category domain.TasteCategory `json:"category"`
}

// QuizQuestion is one multiple-choice question.
type QuizQuestion struct {
	Prompt  string       `json:"prompt"`
	Choices []QuizChoice `json:"choices"`
}

// categoryOrder breaks ties between equal tallies.
var categoryOrder = []domain.TasteCategory{
	domain.TasteThrill, domain.TasteHeart, domain.TasteLaugh, domain.TasteWonder, domain.TasteMind,
}

// categoryGenre maps a taste to a TMDB genre id.
var categoryGenre = map[domain.TasteCategory]int{
	domain.TasteThrill: 53,    // Thriller
	domain.TasteHeart:  10749, // Romance
	domain.TasteLaugh:  35,    // Comedy
	domain.TasteWonder: 14,    // Fantasy
	domain.TasteMind:   9648,  // Mystery
}

var quizQuestions = []QuizQuestion{
	{Prompt: "주말 저녁, 가장 끌리는 계획은?", Choices: []QuizChoice{
		{"심야 방탈출 도전", domain.TasteThrill},
		{"좋아하는 사람과 산책", domain.TasteHeart},
		{"친구들과 수다 떨기", domain.TasteLaugh},
		{"처음 가보는 동네 탐험", domain.TasteWonder},
		{"혼자 다큐멘터리 정주행", domain.TasteMind},
	}},
	{Prompt: "영화를 다 보고 나서 남았으면 하는 것은?", Choices: []QuizChoice{
		{"심장이 뛰는 여운", domain.TasteThrill},
		{"뭉클한 감정", domain.TasteHeart},
		{"하루 종일 가는 웃음", domain.TasteLaugh},
		{"다른 세계에 다녀온 느낌", domain.TasteWonder},
		{"곱씹을 질문 하나", domain.TasteMind},
	}},
	{Prompt: "가장 좋아하는 장면은?", Choices: []QuizChoice{
		{"숨 막히는 추격전", domain.TasteThrill},
		{"빗속의 고백", domain.TasteHeart},
		{"예상 못 한 말장난", domain.TasteLaugh},
		{"거대한 세계가 펼쳐지는 순간", domain.TasteWonder},
		{"모든 단서가 맞아떨어지는 반전", domain.TasteMind},
	}},
	{Prompt: "친구들이 말하는 나는?", Choices: []QuizChoice{
		{"모험을 즐기는 사람", domain.TasteThrill},
		{"공감을 잘하는 사람", domain.TasteHeart},
		{"분위기 메이커", domain.TasteLaugh},
		{"상상력이 풍부한 사람", domain.TasteWonder},
		{"생각이 깊은 사람", domain.TasteMind},
	}},
	{Prompt: "오늘 기분에 가장 가까운 날씨는?", Choices: []QuizChoice{
		{"천둥 번개", domain.TasteThrill},
		{"노을 지는 저녁", domain.TasteHeart},
		{"맑고 화창한 오후", domain.TasteLaugh},
		{"오로라가 뜬 밤", domain.TasteWonder},
		{"안개 낀 새벽", domain.TasteMind},
	}},
}

// QuizResult is the resolved taste and its movies.
type QuizResult struct {
	Category domain.TasteCategory `json:"category"`
	GenreID  int                  `json:"genre_id"`
	Movies   []domain.Movie       `json:"movies"`
}

// QuizService scores answers and fetches matching movies.
type QuizService struct {
	Catalog  domain.MovieCatalog
	APIKey   string
	Language string
	MinVotes int
	Limit    int
}

// NewQuizService constructs a QuizService.
func NewQuizService(c domain.MovieCatalog, apiKey, language string, minVotes, limit int) QuizService {
	return QuizService{Catalog: c, APIKey: apiKey, Language: language, MinVotes: minVotes, Limit: limit}
}

// Questions returns the fixed question set.
func (QuizService) Questions() []QuizQuestion { return quizQuestions }

// Score tallies answers, one choice index per question.
func Score(answers []int) (domain.TasteCategory, error) {
	if len(answers) != len(quizQuestions) {
		return "", fmt.Errorf("%w: want %d answers, got %d", domain.ErrInvalidArgument, len(quizQuestions), len(answers))
	}
	tally := map[domain.TasteCategory]int{}
	for i, a := range answers {
		choices := quizQuestions[i].Choices
		if a < 0 || a >= len(choices) {
			return "", fmt.Errorf("%w: answer %d out of range", domain.ErrInvalidArgument, i+1)
		}
		tally[choices[a].Category]++
	}
	best := categoryOrder[0]
	for _, c := range categoryOrder[1:] {
		if tally[c] > tally[best] {
			best = c
		}
	}
	return best, nil
}

// Recommend scores answers and returns up to Limit movies for the winning
// taste, highest rated first. apiKey overrides the configured key.
func (q QuizService) Recommend(ctx domain.Context, answers []int, apiKey string) (QuizResult, error) {
	cat, err := Score(answers)
	if err != nil {
		return QuizResult{}, fmt.Errorf("op=quiz.Recommend: %w", err)
	}
	key := strings.TrimSpace(apiKey)
	if key == "" {
		key = q.APIKey
	}
	if key == "" {
		observability.RecordQuiz(string(cat), "missing_credential")
		return QuizResult{}, fmt.Errorf("op=quiz.Recommend: %w: TMDB key not provided", domain.ErrMissingCredential)
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 5
	}
	genre := categoryGenre[cat]
	movies, err := q.Catalog.Discover(ctx, domain.MovieQuery{
		APIKey: key, GenreID: genre, MinVoteCount: q.MinVotes, Language: q.Language, Page: 1, Limit: limit,
	})
	if err != nil {
		observability.RecordQuiz(string(cat), "error")
		return QuizResult{}, fmt.Errorf("op=quiz.Recommend: %w", err)
	}
	if len(movies) > limit {
		movies = movies[:limit]
	}
	sort.SliceStable(movies, func(i, j int) bool { return movies[i].VoteAverage > movies[j].VoteAverage })
	observability.RecordQuiz(string(cat), "ok")
	obsctx.LoggerFromContext(ctx).Info("quiz recommended", slog.String("category", string(cat)), slog.Int("movies", len(movies)))
	return QuizResult{Category: cat, GenreID: genre, Movies: movies}, nil
}

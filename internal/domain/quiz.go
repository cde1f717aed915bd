package domain

// TasteCategory is the outcome of the movie quiz.
type TasteCategory string

const (
	TasteThrill TasteCategory = "thrill"
	TasteHeart  TasteCategory = "heart"
	TasteLaugh  TasteCategory = "laugh"
	TasteWonder TasteCategory = "wonder"
	TasteMind   TasteCategory = "mind"
)

// MovieQuery parameterizes a catalog discovery call.
type MovieQuery struct {
	APIKey       string
	GenreID      int
	MinVoteCount int
	Language     string
	Page         int
	Limit        int
}

// Movie is a single catalog result.
type Movie struct {
	ID          int     `json:"id"`
	Title       string  `json:"title"`
	Overview    string  `json:"overview"`
	ReleaseDate string  `json:"release_date"`
	VoteAverage float64 `json:"vote_average"`
	VoteCount   int     `json:"vote_count"`
	PosterPath  string  `json:"poster_path"`
}

// MovieCatalog (port)
//
//go:generate mockery --name=MovieCatalog --filename=movie_catalog_mock.go
type MovieCatalog interface {
	Discover(ctx Context, q MovieQuery) ([]Movie, error)
}

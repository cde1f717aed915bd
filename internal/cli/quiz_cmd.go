package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newQuizCmd(app *App) *cobra.Command {
	var tmdbKey string
	cmd := &cobra.Command{
		Use:   "quiz [answer...]",
		Short: "Movie taste quiz; without answers prints the questions",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if len(args) == 0 {
				for i, q := range app.Quiz.Questions() {
					fmt.Fprintf(out, "%s %s\n", styleHeader.Render(fmt.Sprintf("Q%d.", i+1)), q.Prompt)
					for j, c := range q.Choices {
						fmt.Fprintf(out, "  %d) %s\n", j, c.Text)
					}
				}
				return nil
			}
			answers := make([]int, 0, len(args))
			for _, a := range args {
				n, err := strconv.Atoi(a)
				if err != nil {
					return fmt.Errorf("invalid answer %q: %w", a, err)
				}
				answers = append(answers, n)
			}
			res, err := app.Quiz.Recommend(cmd.Context(), answers, tmdbKey)
			if err != nil {
				return fmt.Errorf("recommend: %w", err)
			}
			fmt.Fprintf(out, "%s %s\n", styleHeader.Render("taste"), res.Category)
			for _, m := range res.Movies {
				fmt.Fprintf(out, "  %.1f  %s %s\n", m.VoteAverage, m.Title, styleDim.Render(m.ReleaseDate))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&tmdbKey, "tmdb-key", "", "TMDB API key (defaults to TMDB_API_KEY)")
	return cmd
}

// Package cli implements the consult terminal client: an interactive chat
// loop plus read-only views of the plan a session has produced.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/fairyhunter13/career-consultant/internal/usecase"
)

// App holds the services every subcommand needs.
type App struct {
	Conversations *usecase.ConversationService
	Quiz          usecase.QuizService

	// SessionID is bound to the persistent --session flag.
	SessionID string
	// APIKey overrides the completion key configured on Conversations.
	APIKey string
}

// NewRootCmd builds the consult command tree.
func NewRootCmd(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:           "consult",
		Short:         "Career consultant in the terminal",
		Long:          "consult walks through discovery, design and a final career plan, one session at a time.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&app.SessionID, "session", "s", "local", "session id to open or create")
	root.PersistentFlags().StringVar(&app.APIKey, "api-key", "", "completion API key (defaults to COMPLETION_API_KEY)")

	root.AddCommand(
		newChatCmd(app),
		newActivitiesCmd(app),
		newDoneCmd(app),
		newRoadmapCmd(app),
		newResetCmd(app),
		newQuizCmd(app),
	)
	return root
}

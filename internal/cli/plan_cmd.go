package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fairyhunter13/career-consultant/internal/domain"
	"github.com/fairyhunter13/career-consultant/internal/usecase"
)

func newActivitiesCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "activities",
		Short: "List the session's activities with priority and status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sess, err := app.Conversations.Get(cmd.Context(), app.SessionID)
			if err != nil {
				return fmt.Errorf("load session: %w", err)
			}
			renderActivities(cmd.OutOrStdout(), usecase.ActivityRows(sess))
			return nil
		},
	}
}

func newDoneCmd(app *App) *cobra.Command {
	var memo string
	var undo bool
	cmd := &cobra.Command{
		Use:   "done <activity-id>",
		Short: "Mark an activity done (or --undo) with an optional memo",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var note string
			if cmd.Flags().Changed("memo") {
				note = memo
			} else if sess, err := app.Conversations.Get(cmd.Context(), app.SessionID); err == nil {
				note = sess.ActivityStatus[args[0]].Memo
			}
			if _, err := app.Conversations.UpdateActivityStatus(cmd.Context(), app.SessionID, args[0], !undo, note); err != nil {
				return fmt.Errorf("update activity: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", checkbox(!undo), args[0])
			return nil
		},
	}
	cmd.Flags().StringVarP(&memo, "memo", "m", "", "memo to store with the activity")
	cmd.Flags().BoolVar(&undo, "undo", false, "mark the activity not done")
	return cmd
}

func newRoadmapCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "roadmap",
		Short: "Show the roadmap by year and half",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sess, err := app.Conversations.Get(cmd.Context(), app.SessionID)
			if err != nil {
				return fmt.Errorf("load session: %w", err)
			}
			renderRoadmap(cmd.OutOrStdout(), usecase.RoadmapView(sess))
			return nil
		},
	}
}

func newResetCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Discard the session and start over",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := app.Conversations.Reset(cmd.Context(), app.SessionID); err != nil {
				return fmt.Errorf("reset session: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "session %s reset\n", app.SessionID)
			return nil
		},
	}
}

func renderActivities(w io.Writer, rows []usecase.ActivityRow) {
	if len(rows) == 0 {
		fmt.Fprintln(w, styleDim.Render("아직 정리된 활동이 없습니다."))
		return
	}
	for _, r := range rows {
		fmt.Fprintf(w, "%s %s %s %s\n", checkbox(r.Done), priorityBadge(r.Priority), r.Title, styleDim.Render("("+r.ID+")"))
		if d := strings.TrimSpace(r.Description); d != "" {
			fmt.Fprintf(w, "    %s\n", d)
		}
		for _, l := range r.Links {
			fmt.Fprintf(w, "    %s\n", styleDim.Render(l))
		}
		if r.Memo != "" {
			fmt.Fprintf(w, "    memo: %s\n", r.Memo)
		}
	}
}

func renderRoadmap(w io.Writer, years []usecase.RoadmapYear) {
	if len(years) == 0 {
		fmt.Fprintln(w, styleDim.Render("로드맵이 아직 없습니다."))
		return
	}
	for _, y := range years {
		fmt.Fprintln(w, styleHeader.Render(fmt.Sprintf("%d년", y.Year)))
		renderHalf(w, "상반기", y.H1)
		renderHalf(w, "하반기", y.H2)
	}
}

func renderHalf(w io.Writer, label string, acts []domain.Activity) {
	fmt.Fprintf(w, "  %s\n", label)
	if len(acts) == 0 {
		fmt.Fprintf(w, "    %s\n", styleDim.Render("-"))
		return
	}
	for _, a := range acts {
		fmt.Fprintf(w, "    %s %s\n", priorityBadge(domain.ParsePriority(a.Priority)), a.Title)
	}
}

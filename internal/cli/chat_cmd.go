package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/fairyhunter13/career-consultant/internal/domain"
	"github.com/fairyhunter13/career-consultant/internal/usecase"
)

var stageNames = map[domain.Stage]string{
	domain.StageDiscovery: "탐색",
	domain.StageDesign:    "설계",
	domain.StageFinal:     "최종 계획",
}

func newChatCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Talk with the consultant (/reset, /quit)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runChat(cmd, app)
		},
	}
}

func runChat(cmd *cobra.Command, app *App) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	in := cmd.InOrStdin()

	sess, err := app.Conversations.Open(ctx, app.SessionID)
	if err != nil {
		return fmt.Errorf("open session: %w", err)
	}
	fmt.Fprintf(out, "%s %s (%s)\n", styleHeader.Render("session"), sess.ID, stageNames[sess.Stage])
	for _, m := range tail(sess.Messages, 4) {
		printMessage(out, m)
	}

	interactive := isTerminal(in)
	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for {
		if interactive {
			fmt.Fprint(out, "> ")
		}
		if !sc.Scan() {
			break
		}
		line := strings.TrimSpace(sc.Text())
		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		case "/reset":
			if _, err := app.Conversations.Reset(ctx, app.SessionID); err != nil {
				return fmt.Errorf("reset session: %w", err)
			}
			fmt.Fprintln(out, styleDim.Render("대화를 처음부터 다시 시작합니다."))
			continue
		}

		res, err := app.Conversations.Send(ctx, app.SessionID, line, app.APIKey)
		if err != nil {
			if errors.Is(err, domain.ErrMissingCredential) {
				return errors.New("no completion key: set COMPLETION_API_KEY or pass --api-key")
			}
			fmt.Fprintln(cmd.ErrOrStderr(), styleDim.Render("error: "+err.Error()))
			continue
		}
		printTurn(out, res)
	}
	return sc.Err()
}

func printTurn(w io.Writer, res usecase.TurnResult) {
	if res.Apology {
		fmt.Fprintln(w, usecase.ApologyMessage)
		return
	}
	for i, r := range res.Replies {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintln(w, r)
	}
	if res.Transition != "" {
		fmt.Fprintln(w, styleDim.Render(fmt.Sprintf("-- %s -> %s (%s)",
			stageNames[res.FromStage], stageNames[res.Session.Stage], res.Transition)))
	}
	if res.Session.Stage == domain.StageFinal && res.FromStage != domain.StageFinal && !res.FollowUp {
		fmt.Fprintln(w, styleDim.Render("최종 계획은 다음 메시지에서 이어서 만들어집니다."))
	}
}

func printMessage(w io.Writer, m domain.Message) {
	who := "you"
	if m.Role == domain.RoleAssistant {
		who = "consultant"
	}
	fmt.Fprintf(w, "%s %s\n", styleDim.Render(who+":"), m.Content)
}

func tail(ms []domain.Message, n int) []domain.Message {
	if len(ms) <= n {
		return ms
	}
	return ms[len(ms)-n:]
}

func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

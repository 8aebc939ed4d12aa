package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/phishshift/internal/apperr"
	"github.com/abhisek/phishshift/internal/outcome"
	"github.com/abhisek/phishshift/internal/progress"
	"github.com/abhisek/phishshift/internal/shift"
	"github.com/abhisek/phishshift/internal/ui/components"
	"github.com/abhisek/phishshift/internal/ui/theme"
)

const cardWidth = 72

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Work through a training shift in the terminal",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		user, _ := cmd.Flags().GetString("user")
		resume, _ := cmd.Flags().GetString("session")
		if user == "" && resume == "" {
			return errors.New("--user is required")
		}

		rt, err := openRuntime(cmd)
		if err != nil {
			return err
		}
		defer rt.Close()

		ctx := cmd.Context()
		eng, err := rt.engine(ctx)
		if err != nil {
			return err
		}

		sessionID := resume
		if sessionID == "" {
			start, err := eng.StartShift(ctx, user)
			if err != nil {
				if errors.Is(err, apperr.ErrInsufficientPool) {
					return fmt.Errorf("%w (run `phishshift seed` first)", err)
				}
				return err
			}
			sessionID = start.Session.ID
			if start.Batch.Shortfall > 0 {
				fmt.Fprintln(cmd.OutOrStdout(), theme.Hint.Render(
					fmt.Sprintf("Only %d of %d scenarios were available.", len(start.Scenarios), start.Batch.Requested)))
			}
		}
		return playShift(ctx, eng, sessionID, cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

func init() {
	playCmd.Flags().StringP("user", "u", "", "learner id")
	playCmd.Flags().String("session", "", "resume an unfinished shift by session id")
}

// playShift prompts for a decision on each pending scenario until the
// shift runs out or input ends, then completes the shift.
func playShift(ctx context.Context, eng *shift.Engine, sessionID string, in io.Reader, out io.Writer) error {
	sc := bufio.NewScanner(in)
	sess, err := eng.Session(ctx, sessionID)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s %s\n\n", theme.Title.Render("Shift"), theme.Label.Render(sess.ID))

	eof := false
	for !eof {
		next, err := eng.NextScenario(ctx, sessionID)
		if err != nil {
			return err
		}
		if next == nil {
			break
		}
		sess, err = eng.Session(ctx, sessionID)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, components.MessageCard(*next, sess.DecisionCount+1, len(sess.ScenarioIDs), cardWidth))

		for {
			fmt.Fprintf(out, "%s ", theme.Label.Render(fmt.Sprintf(
				"[r]eport [d]elete [v]erify (%d left) [p]roceed:", sess.VerificationsLeft())))
			line, ok := readLine(sc)
			if !ok {
				eof = true
				break
			}
			action, err := parseChoice(line)
			if err != nil {
				fmt.Fprintln(out, theme.Bad.Render(err.Error()))
				continue
			}

			confidence := 50
			fmt.Fprintf(out, "%s ", theme.Label.Render("confidence 0-100 [50]:"))
			if line, ok := readLine(sc); ok && line != "" {
				if n, err := strconv.Atoi(line); err == nil {
					confidence = n
				}
			}

			res, err := eng.SubmitDecision(ctx, shift.Submission{
				SessionID:  sessionID,
				ScenarioID: next.ID,
				Action:     string(action),
				Confidence: confidence,
			})
			switch {
			case errors.Is(err, apperr.ErrBudgetExhausted), errors.Is(err, apperr.ErrInvalidAction), errors.Is(err, apperr.ErrInvalidInput):
				fmt.Fprintln(out, theme.Bad.Render(err.Error()))
				continue
			case err != nil:
				return err
			}

			fmt.Fprintln(out, components.Verdict(res.Result.Outcome, res.Result.Points, res.Decision.Correct))
			fmt.Fprintln(out, components.Debrief(*next, cardWidth))
			printBadges(out, res.NewBadges)
			if res.ChainAppended != nil {
				fmt.Fprintln(out, theme.Hint.Render("A follow-up message has arrived."))
			}
			fmt.Fprintln(out)
			break
		}
	}

	done, err := eng.CompleteShift(ctx, sessionID)
	if err != nil {
		return err
	}
	printCompletion(out, done)
	return nil
}

func readLine(sc *bufio.Scanner) (string, bool) {
	if !sc.Scan() {
		return "", false
	}
	return strings.TrimSpace(sc.Text()), true
}

// parseChoice accepts an action name or its first letter.
func parseChoice(s string) (outcome.Action, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) == 1 {
		for _, a := range outcome.AllActions() {
			if strings.HasPrefix(string(a), s) {
				return a, nil
			}
		}
	}
	return outcome.ParseAction(s)
}

func printBadges(out io.Writer, badges []progress.Badge) {
	for _, b := range badges {
		fmt.Fprintf(out, "%s %s %s\n", b.Icon(), theme.Badge.Render(b.Name), theme.Hint.Render(b.Description))
	}
}

func printCompletion(out io.Writer, done *shift.CompletionResult) {
	s := done.Summary
	fmt.Fprintln(out, theme.Title.Render("Shift complete"))
	fmt.Fprintf(out, "%s %d   %s %d/%d   %s %d   %s %d   %s %d\n",
		theme.Label.Render("score"), done.Session.Score,
		theme.Label.Render("correct"), s.CorrectCount, s.ScenarioCount,
		theme.Label.Render("compromised"), s.Compromises,
		theme.Label.Render("false alarms"), s.FalsePositives,
		theme.Label.Render("unanswered"), s.Unanswered)

	acc := done.Progress.Accuracy()
	fmt.Fprintln(out, components.ProgressBar{Label: "Lifetime accuracy", Percent: acc, ShowPercent: true, Width: 30}.View())
	if missed := done.Progress.TopMissedCues(3); len(missed) > 0 {
		fmt.Fprintln(out, theme.Hint.Render("Watch for: "+strings.Join(missed, ", ")))
	}
	printBadges(out, done.NewBadges)
}

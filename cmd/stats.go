package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/abhisek/phishshift/internal/analytics"
	"github.com/abhisek/phishshift/internal/apperr"
	"github.com/abhisek/phishshift/internal/progress"
	"github.com/abhisek/phishshift/internal/shift"
	"github.com/abhisek/phishshift/internal/store"
	"github.com/abhisek/phishshift/internal/ui/components"
	"github.com/abhisek/phishshift/internal/ui/theme"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show learner progress or cohort statistics",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		user, _ := cmd.Flags().GetString("user")
		asJSON, _ := cmd.Flags().GetBool("json")
		snapshot, _ := cmd.Flags().GetBool("snapshot")
		keep, _ := cmd.Flags().GetInt("keep")
		workers, _ := cmd.Flags().GetInt("workers")

		rt, err := openRuntime(cmd)
		if err != nil {
			return err
		}
		defer rt.Close()

		ctx := cmd.Context()
		out := cmd.OutOrStdout()

		if user != "" {
			p, err := rt.store.Progress().Get(ctx, user)
			if errors.Is(err, apperr.ErrNotFound) {
				fmt.Fprintf(out, "No progress recorded for %s.\n", user)
				return nil
			}
			if err != nil {
				return fmt.Errorf("load progress: %w", err)
			}
			if asJSON {
				return writeJSON(out, p)
			}
			shifts, err := rt.store.Sessions().ListByUser(ctx, user)
			if err != nil {
				return fmt.Errorf("list shifts: %w", err)
			}
			printLearner(out, *p, shifts)
			return nil
		}

		sum, err := analytics.Summarize(ctx, rt.store.Decisions(), rt.store.Progress(), analytics.Options{Workers: workers})
		if err != nil {
			return err
		}

		if snapshot {
			data, err := json.Marshal(sum)
			if err != nil {
				return fmt.Errorf("encode snapshot: %w", err)
			}
			snaps := rt.store.Snapshots()
			err = snaps.Save(ctx, &store.Snapshot{Sequence: int64(sum.Decisions), Timestamp: sum.GeneratedAt, Data: data})
			if err != nil {
				return fmt.Errorf("save snapshot: %w", err)
			}
			if err := snaps.Prune(ctx, keep); err != nil {
				return fmt.Errorf("prune snapshots: %w", err)
			}
			rt.log.Info("cohort snapshot saved", "decisions", sum.Decisions, "keep", keep)
		}

		if asJSON {
			return writeJSON(out, sum)
		}
		printCohort(out, sum)
		return nil
	},
}

func init() {
	statsCmd.Flags().StringP("user", "u", "", "show one learner instead of the cohort")
	statsCmd.Flags().Bool("json", false, "print JSON")
	statsCmd.Flags().Bool("snapshot", false, "store the cohort summary as a snapshot")
	statsCmd.Flags().Int("keep", 10, "snapshots to retain when --snapshot is set")
	statsCmd.Flags().Int("workers", 4, "concurrent per-learner workers")
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printLearner(out io.Writer, p progress.Progress, shifts []shift.Session) {
	fmt.Fprintln(out, theme.Title.Render(p.UserID))
	fmt.Fprintln(out, components.ProgressBar{Label: "Accuracy", Percent: p.Accuracy(), ShowPercent: true, Width: 40}.View())
	fmt.Fprintf(out, "%s %d  %s %d  %s %d/%d  %s %d\n",
		theme.Label.Render("score"), p.TotalScore,
		theme.Label.Render("shifts"), p.ShiftsCompleted,
		theme.Label.Render("streak"), p.CurrentStreak, p.LongestStreak,
		theme.Label.Render("compromised"), p.Compromises)
	fmt.Fprintf(out, "%s %.0f%%\n", theme.Label.Render("false alarm rate"), p.FalsePositiveRate()*100)

	if missed := p.TopMissedCues(5); len(missed) > 0 {
		fmt.Fprintln(out, theme.Hint.Render("Most missed cues: "+strings.Join(missed, ", ")))
	}

	var badges []progress.Badge
	for _, id := range p.EarnedBadges {
		if b, ok := progress.LookupBadge(id); ok {
			badges = append(badges, b)
		}
	}
	if len(badges) > 0 {
		fmt.Fprintln(out)
		printBadges(out, badges)
	}

	if len(shifts) > 0 {
		rows := make([][]string, 0, len(shifts))
		for _, s := range shifts {
			state := "open"
			if s.Completed {
				state = "done"
			}
			rows = append(rows, []string{
				s.ID,
				s.CreatedAt.Local().Format(time.DateTime),
				fmt.Sprintf("%d/%d", s.DecisionCount, len(s.ScenarioIDs)),
				strconv.Itoa(s.Score),
				state,
			})
		}
		fmt.Fprintln(out)
		fmt.Fprintln(out, components.Table([]string{"Shift", "Started", "Answered", "Score", "State"}, rows))
	}
}

func printCohort(out io.Writer, sum *analytics.Summary) {
	if sum.Decisions == 0 {
		fmt.Fprintln(out, "No decisions recorded yet.")
		return
	}
	fmt.Fprintf(out, "%s %d decisions from %d learners\n",
		theme.Title.Render("Cohort"), sum.Decisions, len(sum.Learners))

	outcomes := make([]string, 0, len(sum.Outcomes))
	for o, n := range sum.Outcomes {
		outcomes = append(outcomes, fmt.Sprintf("%s %d", theme.Outcome(o).Render(string(o)), n))
	}
	sort.Strings(outcomes)
	fmt.Fprintln(out, strings.Join(outcomes, "  "))

	rows := make([][]string, 0, len(sum.Learners))
	for _, l := range sum.Learners {
		rows = append(rows, []string{
			l.UserID,
			strconv.Itoa(l.Decisions),
			fmt.Sprintf("%.0f%%", l.Accuracy*100),
			fmt.Sprintf("%.0f%%", l.FalsePositiveRate*100),
			strconv.Itoa(l.Compromises),
			strconv.Itoa(l.Score),
			strconv.Itoa(l.Ceiling),
			strings.Join(l.TopMissedCues, ", "),
		})
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, components.Table(
		[]string{"Learner", "Decisions", "Accuracy", "FP rate", "Compromised", "Score", "Ceiling", "Missed cues"}, rows))

	if len(sum.Hardest) > 0 {
		rows = rows[:0]
		for _, h := range sum.Hardest {
			rows = append(rows, []string{
				h.ScenarioID,
				strconv.Itoa(h.Attempts),
				fmt.Sprintf("%.0f%%", h.MissRate*100),
				strconv.Itoa(h.Compromises),
			})
		}
		fmt.Fprintln(out)
		fmt.Fprintln(out, theme.Title.Render("Hardest scenarios"))
		fmt.Fprintln(out, components.Table([]string{"Scenario", "Attempts", "Miss rate", "Compromised"}, rows))
	}
}

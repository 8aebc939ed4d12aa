package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/phishshift/internal/chain"
	"github.com/abhisek/phishshift/internal/difficulty"
	"github.com/abhisek/phishshift/internal/ui/components"
	"github.com/abhisek/phishshift/internal/ui/theme"
)

var scenarioCmd = &cobra.Command{
	Use:     "scenario",
	Aliases: []string{"scenarios"},
	Short:   "Inspect the scenario catalog",
}

var scenarioListCmd = &cobra.Command{
	Use:   "list",
	Short: "List catalog scenarios by difficulty",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := openRuntime(cmd)
		if err != nil {
			return err
		}
		defer rt.Close()

		list, err := rt.store.Scenarios().List(cmd.Context())
		if err != nil {
			return fmt.Errorf("list scenarios: %w", err)
		}
		if len(list) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "Catalog is empty. Run `phishshift seed` first.")
			return nil
		}

		rows := make([][]string, 0, len(list))
		for _, s := range list {
			step := ""
			if s.InChain() {
				step = fmt.Sprintf("%s #%d", s.ChainID, s.ChainOrder)
			}
			rows = append(rows, []string{
				s.ID,
				string(s.Channel),
				string(s.Legitimacy),
				strconv.Itoa(s.DifficultyScore),
				step,
			})
		}
		fmt.Fprintln(cmd.OutOrStdout(), components.Table(
			[]string{"ID", "Channel", "Legitimacy", "Difficulty", "Chain"}, rows))
		return nil
	},
}

var scenarioScoreCmd = &cobra.Command{
	Use:   "score <cue>...",
	Short: "Show how a set of cues scores on the difficulty scale",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		premises, _ := cmd.Flags().GetStringSlice("premise")
		r := difficulty.Breakdown(args, premises)

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, theme.Title.Render(fmt.Sprintf("Difficulty %d", r.Score)))
		fmt.Fprintf(out, "%s %d (%d obvious, %d subtle, weight %d)\n",
			theme.Label.Render("Cues:"), r.CueCount, r.ObviousCount, r.SubtleCount, r.TotalWeight)
		fmt.Fprintf(out, "%s %s gives base %d\n", theme.Label.Render("Rule:"), r.Rule, r.Base)
		if r.PremiseBonus > 0 {
			fmt.Fprintf(out, "%s +%d\n", theme.Label.Render("Premise bonus:"), r.PremiseBonus)
		}
		if len(r.UnknownCues) > 0 {
			fmt.Fprintln(out, theme.Hint.Render("Not in catalog: "+strings.Join(r.UnknownCues, ", ")))
		}
		return nil
	},
}

var scenarioChainCmd = &cobra.Command{
	Use:   "chain [chain-id]",
	Short: "Show chain transitions, or list chains when no id is given",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := openRuntime(cmd)
		if err != nil {
			return err
		}
		defer rt.Close()

		ctx := cmd.Context()
		repo := rt.store.Scenarios()
		out := cmd.OutOrStdout()

		if len(args) == 0 {
			ids, err := repo.ChainIDs(ctx)
			if err != nil {
				return fmt.Errorf("list chains: %w", err)
			}
			if len(ids) == 0 {
				fmt.Fprintln(out, "No chains in the catalog.")
			}
			for _, id := range ids {
				fmt.Fprintln(out, id)
			}
			return nil
		}

		members, err := repo.ChainMembers(ctx, args[0])
		if err != nil {
			return fmt.Errorf("load chain: %w", err)
		}
		if len(members) == 0 {
			return fmt.Errorf("chain %q not found", args[0])
		}

		if name := members[0].ChainName; name != "" {
			fmt.Fprintln(out, theme.Title.Render(name))
		}
		transitions := chain.Describe(members)
		rows := make([][]string, 0, len(transitions))
		for _, t := range transitions {
			rows = append(rows, []string{strconv.Itoa(t.Order), t.From, string(t.Action), t.To})
		}
		for _, m := range members {
			if chain.Terminal(members, m) {
				rows = append(rows, []string{strconv.Itoa(m.ChainOrder), m.ID, "", "(end)"})
			}
		}
		fmt.Fprintln(out, components.Table([]string{"Step", "From", "Action", "Next"}, rows))
		return nil
	},
}

func init() {
	scenarioScoreCmd.Flags().StringSlice("premise", nil, "premise factor labels that raise difficulty")

	scenarioCmd.AddCommand(scenarioListCmd)
	scenarioCmd.AddCommand(scenarioScoreCmd)
	scenarioCmd.AddCommand(scenarioChainCmd)
}

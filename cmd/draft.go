package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/abhisek/phishshift/internal/authoring"
	"github.com/abhisek/phishshift/internal/llm"
	"github.com/abhisek/phishshift/internal/outcome"
	"github.com/abhisek/phishshift/internal/scenario"
	"github.com/abhisek/phishshift/internal/ui/theme"
)

var draftCmd = &cobra.Command{
	Use:   "draft",
	Short: "Draft a new scenario with an LLM",
	Long: "Asks the configured LLM provider for a scenario matching the brief, checks it against the cue catalog " +
		"and the scenario rules, and prints it as a YAML pack or saves it to the catalog.",
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		b, err := briefFromFlags(cmd)
		if err != nil {
			return err
		}
		save, _ := cmd.Flags().GetBool("save")
		outPath, _ := cmd.Flags().GetString("out")

		rt, err := openRuntime(cmd)
		if err != nil {
			return err
		}
		defer rt.Close()

		ctx := cmd.Context()
		existing, err := rt.store.Scenarios().List(ctx)
		if err != nil {
			return fmt.Errorf("list scenarios: %w", err)
		}
		for _, s := range existing {
			b.Avoid = append(b.Avoid, s.Title)
		}

		provider, err := llm.NewProvider(ctx, rt.cfg.LLM, rt.store.Events(), rt.log)
		if err != nil {
			return err
		}
		cfg := authoring.DefaultConfig()
		cfg.Logger = rt.log
		d, err := authoring.New(provider, cfg).Draft(ctx, b)
		if err != nil {
			if authoring.IsRejected(err) {
				return fmt.Errorf("model could not produce a valid scenario: %w", err)
			}
			return err
		}

		r := d.Breakdown
		fmt.Fprintf(cmd.ErrOrStderr(), "%s %s difficulty %d (%s) after %d round(s)\n",
			theme.Title.Render("Drafted"), d.Scenario.ID, r.Score, r.Rule, d.Rounds)

		if save {
			if _, err := rt.store.Scenarios().Import(ctx, []scenario.Scenario{d.Scenario}); err != nil {
				return fmt.Errorf("save scenario: %w", err)
			}
			fmt.Fprintln(cmd.ErrOrStderr(), theme.Good.Render("Saved to catalog."))
		}

		pack, err := scenario.MarshalPack([]scenario.Scenario{d.Scenario})
		if err != nil {
			return err
		}
		if outPath != "" {
			return os.WriteFile(outPath, pack, 0o644)
		}
		_, err = cmd.OutOrStdout().Write(pack)
		return err
	},
}

func briefFromFlags(cmd *cobra.Command) (authoring.Brief, error) {
	f := cmd.Flags()
	channel, _ := f.GetString("channel")
	legitimacy, _ := f.GetString("legitimacy")
	prev, _ := f.GetString("previous-action")

	var b authoring.Brief
	var err error
	if b.Channel, err = authoring.ParseChannel(channel); err != nil {
		return b, err
	}
	if b.Legitimacy, err = authoring.ParseLegitimacy(legitimacy); err != nil {
		return b, err
	}
	if prev != "" {
		if b.PreviousAction, err = outcome.ParseAction(prev); err != nil {
			return b, err
		}
	}
	b.ID, _ = f.GetString("id")
	b.AttackFamily, _ = f.GetString("family")
	b.Audience, _ = f.GetString("audience")
	b.TargetDifficulty, _ = f.GetInt("difficulty")
	b.ChainID, _ = f.GetString("chain-id")
	b.ChainName, _ = f.GetString("chain-name")
	b.ChainOrder, _ = f.GetInt("chain-order")
	b.Notes, _ = f.GetString("notes")
	return b, b.Validate()
}

func init() {
	f := draftCmd.Flags()
	f.String("channel", "email", "email, sms, call or chat")
	f.String("legitimacy", "malicious", "legitimate, suspicious_legitimate or malicious")
	f.String("family", "", "attack family, e.g. invoice fraud")
	f.String("audience", "", "who receives the message")
	f.Int("difficulty", 0, "target difficulty 1-5 (0 for any)")
	f.String("id", "", "scenario id (generated when empty)")
	f.String("chain-id", "", "chain this step belongs to")
	f.String("chain-name", "", "display name of the chain")
	f.Int("chain-order", 0, "step number within the chain")
	f.String("previous-action", "", "action on the previous step that leads here")
	f.String("notes", "", "extra guidance for the model")
	f.Bool("save", false, "import the draft into the catalog")
	f.StringP("out", "o", "", "write the YAML pack to a file instead of stdout")
}

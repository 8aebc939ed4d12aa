package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhisek/phishshift/internal/scenario"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load a scenario pack into the catalog",
	Long:  "Loads the built-in scenario pack, or a YAML pack given with --file, and upserts it by id.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		file, _ := cmd.Flags().GetString("file")

		var (
			list []scenario.Scenario
			err  error
		)
		if file != "" {
			list, err = scenario.LoadFile(file)
		} else {
			list, err = scenario.Seed()
		}
		if err != nil {
			return fmt.Errorf("load pack: %w", err)
		}

		rt, err := openRuntime(cmd)
		if err != nil {
			return err
		}
		defer rt.Close()

		n, err := rt.store.Scenarios().Import(cmd.Context(), list)
		if err != nil {
			return fmt.Errorf("import scenarios: %w", err)
		}
		rt.log.Info("scenarios imported", "count", n, "file", file)
		fmt.Fprintf(cmd.OutOrStdout(), "Imported %d scenarios into %s\n", n, rt.cfg.DB)
		return nil
	},
}

func init() {
	seedCmd.Flags().StringP("file", "f", "", "YAML scenario pack (default: built-in pack)")
}

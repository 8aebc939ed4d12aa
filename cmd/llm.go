package cmd

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/abhisek/phishshift/internal/llm"
	"github.com/abhisek/phishshift/internal/store"
	"github.com/abhisek/phishshift/internal/ui/components"
)

var llmCmd = &cobra.Command{
	Use:   "llm",
	Short: "Inspect recorded LLM requests",
}

var llmListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent LLM requests",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		purpose, _ := cmd.Flags().GetString("purpose")

		rt, err := openRuntime(cmd)
		if err != nil {
			return err
		}
		defer rt.Close()

		events, err := rt.store.Events().LLMRequests(cmd.Context(), store.QueryOpts{})
		if err != nil {
			return fmt.Errorf("query events: %w", err)
		}

		var shown []store.LLMRequestEventData
		for _, e := range events {
			if purpose == "" || e.Purpose == purpose {
				shown = append(shown, e)
			}
		}
		if len(shown) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No LLM requests recorded.")
			return nil
		}
		if limit > 0 && len(shown) > limit {
			shown = shown[len(shown)-limit:]
		}

		rows := make([][]string, 0, len(shown))
		for _, e := range shown {
			ok := "✓"
			if !e.Success {
				ok = "✗ " + truncate(e.ErrorMessage, 40)
			}
			rows = append(rows, []string{
				strconv.FormatInt(e.Sequence, 10),
				e.CreatedAt.Local().Format("2006-01-02 15:04:05"),
				e.Purpose,
				truncate(e.Model, 28),
				strconv.Itoa(e.InputTokens),
				strconv.Itoa(e.OutputTokens),
				strconv.FormatInt(e.LatencyMs, 10),
				formatCost(e.CostUSD),
				ok,
			})
		}
		fmt.Fprintln(cmd.OutOrStdout(), components.Table(
			[]string{"Seq", "Timestamp", "Purpose", "Model", "In", "Out", "Ms", "Cost", "OK"}, rows))
		return nil
	},
}

type modelUsage struct {
	Model        string
	Calls        int
	Failures     int
	InputTokens  int
	OutputTokens int
	CostUSD      float64
}

var llmStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show token usage and estimated cost by model",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := openRuntime(cmd)
		if err != nil {
			return err
		}
		defer rt.Close()

		events, err := rt.store.Events().LLMRequests(cmd.Context(), store.QueryOpts{})
		if err != nil {
			return fmt.Errorf("query events: %w", err)
		}
		if len(events) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No LLM usage recorded yet.")
			return nil
		}

		usage := aggregateUsage(events)
		var total float64
		rows := make([][]string, 0, len(usage)+1)
		for _, u := range usage {
			cost := formatCost(u.CostUSD)
			if llm.LookupCost(u.Model) == nil {
				cost = "?"
			}
			total += u.CostUSD
			rows = append(rows, []string{
				truncate(u.Model, 32),
				strconv.Itoa(u.Calls),
				strconv.Itoa(u.Failures),
				strconv.Itoa(u.InputTokens),
				strconv.Itoa(u.OutputTokens),
				cost,
			})
		}
		rows = append(rows, []string{"TOTAL", "", "", "", "", formatCost(total)})
		fmt.Fprintln(cmd.OutOrStdout(), components.Table(
			[]string{"Model", "Calls", "Failed", "Input", "Output", "Cost"}, rows))
		return nil
	},
}

// aggregateUsage groups events by model, most expensive first.
func aggregateUsage(events []store.LLMRequestEventData) []modelUsage {
	byModel := map[string]*modelUsage{}
	for _, e := range events {
		u, ok := byModel[e.Model]
		if !ok {
			u = &modelUsage{Model: e.Model}
			byModel[e.Model] = u
		}
		u.Calls++
		if !e.Success {
			u.Failures++
		}
		u.InputTokens += e.InputTokens
		u.OutputTokens += e.OutputTokens
		u.CostUSD += e.CostUSD
	}

	out := make([]modelUsage, 0, len(byModel))
	for _, u := range byModel {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CostUSD != out[j].CostUSD {
			return out[i].CostUSD > out[j].CostUSD
		}
		return out[i].Model < out[j].Model
	})
	return out
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func formatCost(usd float64) string {
	if usd < 0.01 {
		return fmt.Sprintf("$%.4f", usd)
	}
	return fmt.Sprintf("$%.2f", usd)
}

func init() {
	llmListCmd.Flags().IntP("limit", "n", 20, "number of requests to show")
	llmListCmd.Flags().StringP("purpose", "p", "", "filter by purpose (e.g. scenario-draft)")

	llmCmd.AddCommand(llmListCmd)
	llmCmd.AddCommand(llmStatsCmd)
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mitchelldurbincs/TacticalBattleSim/internal/storage"
)

var (
	flagHistoryLimit    int
	flagHistoryScenario string
	flagHistorySummary  bool
	flagHistoryClear    bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show stored battle outcomes",
	Long: `List recent battles from the history database, or a per-faction
win/loss summary with --summary.

Examples:
  battlesim history
  battlesim history --scenario skirmish --limit 5
  battlesim history --summary`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().IntVar(&flagHistoryLimit, "limit", 20, "Number of battles to show")
	historyCmd.Flags().StringVar(&flagHistoryScenario, "scenario", "", "Only show this scenario")
	historyCmd.Flags().BoolVar(&flagHistorySummary, "summary", false, "Show wins and losses per faction")
	historyCmd.Flags().BoolVar(&flagHistoryClear, "clear", false, "Delete all stored battles")
}

func runHistory(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	store, err := storage.Open(dbPath())
	if err != nil {
		return err
	}
	defer store.Close()

	out := cmd.OutOrStdout()

	if flagHistoryClear {
		if err := store.Clear(ctx); err != nil {
			return err
		}
		fmt.Fprintln(out, "History cleared.")
		return nil
	}

	if flagHistorySummary {
		summary, err := store.Summary(ctx)
		if err != nil {
			return err
		}
		if len(summary) == 0 {
			fmt.Fprintln(out, "No battles recorded yet.")
			return nil
		}
		fmt.Fprintf(out, "  %-12s  %-7s  %-5s  %-6s  %-5s  %s\n", "Faction", "Battles", "Wins", "Losses", "Draws", "Casualties")
		fmt.Fprintf(out, "  %-12s  %-7s  %-5s  %-6s  %-5s  %s\n", "-------", "-------", "----", "------", "-----", "----------")
		for _, s := range summary {
			fmt.Fprintf(out, "  %-12s  %-7d  %-5d  %-6d  %-5d  %d\n", s.Faction, s.Battles, s.Wins, s.Losses, s.Draws, s.Casualties)
		}
		return nil
	}

	records, err := store.Recent(ctx, flagHistoryScenario, flagHistoryLimit)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Fprintln(out, "No battles recorded yet.")
		fmt.Fprintln(out, "Run 'battlesim run <scenario> --save' to record one.")
		return nil
	}

	fmt.Fprintf(out, "  %-16s  %-12s  %-10s  %-6s  %-20s  %s\n", "Date", "Scenario", "Winner", "Ticks", "Reason", "Seed")
	fmt.Fprintf(out, "  %-16s  %-12s  %-10s  %-6s  %-20s  %s\n", "----", "--------", "------", "-----", "------", "----")
	for _, r := range records {
		winner := string(r.Winner)
		if winner == "" {
			winner = "-"
		}
		fmt.Fprintf(out, "  %-16s  %-12s  %-10s  %-6d  %-20s  %d\n",
			r.CreatedAt.Format("2006-01-02 15:04"), r.Scenario, winner, r.Ticks, r.Reason, r.Seed)
	}
	return nil
}

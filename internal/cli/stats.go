package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "Print the full summary as JSON")
	rootCmd.AddCommand(statsCmd)
}

var statsJSON bool

var statsCmd = &cobra.Command{
	Use:   "stats <user>",
	Short: "Show a staff member's stats, level and rank",
	Args:  cobra.ExactArgs(1),
	RunE:  runStats,
}

func runStats(cmd *cobra.Command, args []string) error {
	d, err := openDaemon()
	if err != nil {
		return err
	}
	defer d.Close()

	sum, err := d.Engine.GetSummary(context.Background(), args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if statsJSON {
		return printJSON(out, sum)
	}

	s := sum.Stats
	fmt.Fprintf(out, "%s: %d XP\n", args[0], s.TotalXP)
	fmt.Fprintf(out, "Level %d %s %s %d XP to next\n", sum.Level.Level, sum.Level.Info.Name, bar(sum.Level.Progress), sum.Level.XPToNext)
	fmt.Fprintf(out, "Rank  %s %s next %s\n", sum.Rank.Rank.Name, bar(sum.Rank.Progress), sum.Rank.NextRank)
	fmt.Fprintf(out, "Badges %d/%d\n\n", sum.BadgesUnlocked, sum.BadgesTotal)

	fmt.Fprintf(out, "Incidents resolved      %d\n", s.IncidentsResolved)
	fmt.Fprintf(out, "Maintenance completed   %d\n", s.MaintenanceCompleted)
	fmt.Fprintf(out, "Lost items returned     %d\n", s.LostItemsReturned)
	fmt.Fprintf(out, "Weekly goals completed  %d\n", s.WeeklyGoalsCompleted)
	fmt.Fprintf(out, "Procedures completed    %d\n", s.ProceduresCompleted)
	fmt.Fprintf(out, "Quality score           %.1f (%d submissions)\n", s.AvgQualityScore, s.QualitySubmissionCount)
	fmt.Fprintf(out, "Streak                  %d days (best %d)\n", s.CurrentStreak, s.LongestStreak)
	return nil
}

package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hotelops/staffxp/internal/app/engagement"
	"github.com/hotelops/staffxp/internal/domain"
)

func init() {
	actCmd.Flags().Float64Var(&actScore, "score", -1, "Quality score 0-100 (SUBMIT_QUALITY_SCORE only)")
	actCmd.Flags().StringVar(&actID, "id", "", "Idempotency key for the action")
	rootCmd.AddCommand(actCmd)
}

var (
	actScore float64
	actID    string
)

var actCmd = &cobra.Command{
	Use:   "act <user> <kind>",
	Short: "Record an action for a staff member",
	Long: `Record one action and print what it unlocked.

Kinds: RESOLVE_INCIDENT, COMPLETE_MAINTENANCE, RETURN_LOST_ITEM,
SUBMIT_QUALITY_SCORE, COMPLETE_WEEKLY_GOAL, COMPLETE_PROCEDURE.
Lower case and dashes are accepted (e.g. resolve-incident).`,
	Args: cobra.ExactArgs(2),
	RunE: runAct,
}

func runAct(cmd *cobra.Command, args []string) error {
	kind, err := engagement.ParseActionKind(args[1])
	if err != nil {
		return err
	}
	action := domain.Action{ID: actID, Kind: kind}
	if cmd.Flags().Changed("score") {
		score := actScore
		action.Score = &score
	}

	d, err := openDaemon()
	if err != nil {
		return err
	}
	defer d.Close()

	res, err := d.Engine.PerformAction(context.Background(), args[0], action)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if res.Duplicate {
		fmt.Fprintf(out, "Action %s already recorded for %s, nothing changed.\n", res.ActionID, res.UserID)
		return nil
	}

	fmt.Fprintf(out, "+%d XP for %s (total %d)\n", res.XPGained, res.UserID, res.Stats.TotalXP)
	fmt.Fprintf(out, "Level %d %s %s %d%%\n", res.Level.Level, res.Level.Info.Name, bar(res.Level.Progress), res.Level.Progress)
	if res.LeveledUp {
		fmt.Fprintln(out, "  Level up!")
	}
	fmt.Fprintf(out, "Rank  %s %s %d%%\n", res.Rank.Rank.Name, bar(res.Rank.Progress), res.Rank.Progress)
	if res.RankedUp {
		fmt.Fprintln(out, "  Rank up!")
	}
	for _, b := range res.NewBadges {
		fmt.Fprintf(out, "Badge unlocked: %s %s (%s)\n", b.Icon, b.Name, b.Tier)
	}
	for _, c := range res.CompletedChallenges {
		fmt.Fprintf(out, "Challenge complete: %s (+%d XP)\n", c.Title, c.XPReward)
	}
	return nil
}

package cli

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/hotelops/staffxp/internal/domain"
)

func init() {
	badgesCmd.Flags().StringVar(&badgesCategory, "category", "", "Only show one category (incidents, maintenance, lost_found, ...)")
	rootCmd.AddCommand(badgesCmd)
}

var badgesCategory string

var badgesCmd = &cobra.Command{
	Use:   "badges <user>",
	Short: "Show a staff member's badge gallery",
	Args:  cobra.ExactArgs(1),
	RunE:  runBadges,
}

func runBadges(cmd *cobra.Command, args []string) error {
	d, err := openDaemon()
	if err != nil {
		return err
	}
	defer d.Close()

	ctx := context.Background()
	var rows []domain.BadgeStatus
	if badgesCategory != "" {
		rows, err = d.Engine.GetBadgesByCategory(ctx, args[0], domain.BadgeCategory(badgesCategory))
	} else {
		rows, err = d.Engine.GetBadges(ctx, args[0])
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(rows) == 0 {
		fmt.Fprintln(out, "No badges in this category.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "BADGE\tCATEGORY\tTIER\tSTATUS")
	for _, b := range rows {
		status := "locked"
		if b.Unlocked {
			status = "unlocked"
			if b.UnlockedAt != nil {
				status += " " + b.UnlockedAt.Format("2006-01-02")
			}
		}
		fmt.Fprintf(w, "%s %s\t%s\t%s\t%s\n", b.Icon, b.Name, b.Category, b.Tier, status)
	}
	return w.Flush()
}

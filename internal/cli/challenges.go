package cli

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(challengesCmd)
}

var challengesCmd = &cobra.Command{
	Use:   "challenges <user>",
	Short: "Show active challenges and a staff member's progress",
	Args:  cobra.ExactArgs(1),
	RunE:  runChallenges,
}

func runChallenges(cmd *cobra.Command, args []string) error {
	d, err := openDaemon()
	if err != nil {
		return err
	}
	defer d.Close()

	view, err := d.Engine.GetChallenges(context.Background(), args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(view.Challenges) == 0 {
		fmt.Fprintln(out, "No active challenges.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CHALLENGE\tTARGET\tREWARD\tPROGRESS")
	for _, c := range view.Challenges {
		progress := fmt.Sprintf("%s %d%%", bar(c.Progress), c.Progress)
		if c.Completed {
			progress = "done"
		}
		fmt.Fprintf(w, "%s %s\t%d %s\t%d XP\t%s\n", c.Icon, c.Title, c.Target, c.Field, c.XPReward, progress)
	}
	return w.Flush()
}

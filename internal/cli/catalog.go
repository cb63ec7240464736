package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hotelops/staffxp/internal/app/engagement"
)

func init() {
	catalogCmd.Flags().StringVar(&catalogFile, "file", "", "Validate this catalog file instead of the configured one")
	rootCmd.AddCommand(catalogCmd)
}

var catalogFile string

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Validate and print the active rule catalog",
	Long: `Load the catalog (built-in defaults merged with engine.catalog_file, or
--file), validate it, and print the public view as JSON. Hidden badges are
counted but not listed.`,
	RunE: runCatalog,
}

func runCatalog(cmd *cobra.Command, args []string) error {
	if catalogFile != "" {
		cat, err := engagement.LoadCatalog(catalogFile)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "%s: %d badges, %d challenges, %d levels, %d ranks\n",
			catalogFile, len(cat.Badges), len(cat.Challenges), len(cat.Levels), len(cat.Ranks))
		return nil
	}

	d, err := openDaemon()
	if err != nil {
		return err
	}
	defer d.Close()

	return printJSON(cmd.OutOrStdout(), d.Engine.CatalogView())
}

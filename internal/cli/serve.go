package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/hotelops/staffxp/internal/api"
	"github.com/hotelops/staffxp/internal/daemon"
)

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "", "Host to listen on (overrides config)")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (overrides config)")
	rootCmd.AddCommand(serveCmd)
}

var (
	serveHost string
	servePort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the staffxp API server",
	Long:  `Start the HTTP API and live event feed at localhost:8484.`,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	api.Version = rootCmd.Version

	d, err := daemon.New()
	if err != nil {
		return err
	}

	// Override config from flags
	if serveHost != "" {
		d.Config.API.Host = serveHost
	}
	if servePort > 0 {
		d.Config.API.Port = servePort
	}

	return d.Serve(context.Background())
}

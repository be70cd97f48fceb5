package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/sos-button/internal/config"
	"github.com/oshokin/sos-button/internal/service/client"
	"github.com/oshokin/sos-button/internal/version"
)

var (
	// cfgPath stores the configuration file path.
	cfgPath string
	// reset leaves an active emergency instead of cancelling a countdown.
	reset bool

	// rootCmd represents the base command for cancelling the emergency.
	rootCmd = &cobra.Command{
		Use:   "sos-button-off [server-address]",
		Short: "Cancel the SOS countdown, or reset an active emergency.",
		Long: `Cancels a running emergency countdown before it activates.

Sends cancel requests to the server continuously until confirmation is received.
Once the emergency is active it can no longer be cancelled; use --reset to stand
it down, which also stops the evidence recording and the siren.
Server address can be provided as argument or loaded from configuration file.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			var serverAddress string
			if len(args) > 0 {
				serverAddress = args[0]
			}

			action := client.ActionCancel
			if reset {
				action = client.ActionReset
			}

			options := &client.Options{
				ConfigPath:    cfgPath,
				ServerAddress: serverAddress,
				Action:        action,
			}

			return client.Run(ctx, options)
		},
	}
)

// Execute runs the sos-button-off CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.Flags().StringVarP(&cfgPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.Flags().BoolVarP(&reset, "reset", "r", false, "reset an active emergency")
}

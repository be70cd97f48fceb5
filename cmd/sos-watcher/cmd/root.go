package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/sos-button/internal/config"
	"github.com/oshokin/sos-button/internal/service/watcher"
	"github.com/oshokin/sos-button/internal/version"
)

var (
	// configPath stores the path to the configuration YAML file.
	configPath string
	// quiet hides countdown ticks.
	quiet bool
	// withSiren sounds the siren on this device while the emergency is active.
	withSiren bool

	// rootCmd represents the base command for following the emergency state.
	rootCmd = &cobra.Command{
		Use:   "sos-watcher [server-address]",
		Short: "Follow the emergency state from another device.",
		Long: `Streams emergency updates from the server and logs them as they happen:
countdown start, every remaining second, activation, each emergency step and its
outcome, cancellation and reset.

A lost stream is reopened every 5 seconds. With --siren the siren also sounds on
this device while the emergency is active.
Server address can be provided as argument or loaded from configuration file.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			var serverAddress string
			if len(args) > 0 {
				serverAddress = args[0]
			}

			options := &watcher.Options{
				ConfigPath:    configPath,
				ServerAddress: serverAddress,
				Quiet:         quiet,
				Siren:         withSiren,
			}

			return watcher.Run(ctx, options)
		},
	}
)

// Execute runs the sos-watcher CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "log only warnings and errors")
	rootCmd.Flags().BoolVar(&withSiren, "siren", false, "sound the siren on this device while active")
}

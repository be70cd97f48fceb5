package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/sos-button/internal/config"
	"github.com/oshokin/sos-button/internal/service/server"
	"github.com/oshokin/sos-button/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string
	// stateFile path where the emergency state is persisted.
	stateFile string
	// httpAddress overrides the dashboard listen address.
	httpAddress string
	// logLevel overrides the configured log level.
	logLevel string
	// allowMultiple skips the single-instance check.
	allowMultiple bool

	// rootCmd represents the base command for running the emergency server.
	rootCmd = &cobra.Command{
		Use:   "sos-server [listen-address]",
		Short: "Run the emergency coordinator with its gRPC and HTTP APIs.",
		Long: `Starts the emergency server that owns the SOS countdown and handles client requests.

A start request opens a 10-second cancellation window. If nobody cancels it, the
emergency becomes active: the location is shared, an evidence recording session is
opened, emergency contacts are alerted and the siren is sounded.

The server listens on the specified address or uses settings from configuration file.
Only the port from ServerAddress config is used for listening (e.g., :8080).
Listen address can be provided as argument to override config (e.g., :9090, 0.0.0.0:8080).
The dashboard HTTP API is served when http_addr is configured or --http is given.
Emergency state is persisted to JSON file for recovery across restarts.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			var listenAddress string
			if len(args) > 0 {
				listenAddress = args[0]
			}

			options := &server.Options{
				ConfigPath:    configPath,
				ListenAddress: listenAddress,
				HTTPAddress:   httpAddress,
				StateFile:     stateFile,
				LogLevel:      logLevel,
				AllowMultiple: allowMultiple,
			}

			return server.Run(ctx, options)
		},
	}
)

// Execute runs the sos-server CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.Flags().StringVarP(&stateFile, "state-file", "s", "", "path to persist emergency state (default from config)")
	rootCmd.Flags().StringVar(&httpAddress, "http", "", "dashboard HTTP listen address (default from config)")
	rootCmd.Flags().StringVarP(&logLevel, "log-level", "l", "", "log level: debug, info, warn, error")
	rootCmd.Flags().BoolVar(&allowMultiple, "allow-multiple", false, "skip the single-instance check")

	err := rootCmd.Flags().MarkHidden("allow-multiple")
	if err != nil {
		panic(err)
	}
}

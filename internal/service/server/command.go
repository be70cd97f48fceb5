package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	api "github.com/oshokin/sos-button/internal/api/emergencyv1"
	grpcapi "github.com/oshokin/sos-button/internal/api/grpc/emergency"
	httpapi "github.com/oshokin/sos-button/internal/api/http"
	"github.com/oshokin/sos-button/internal/config"
	"github.com/oshokin/sos-button/internal/logger"
	repository "github.com/oshokin/sos-button/internal/repository/state"
	"github.com/oshokin/sos-button/internal/service/coordinator"
	"github.com/oshokin/sos-button/internal/service/instance"
)

// ExecutableName is the process name guarded against duplicates.
const ExecutableName = "sos-server"

// shutdownTimeout bounds the HTTP server shutdown.
const shutdownTimeout = 5 * time.Second

// Options controls the sos-server process and configuration.
type Options struct {
	// ConfigPath specifies the path to settings YAML file.
	ConfigPath string
	// ListenAddress provides an optional listen address override for the gRPC server.
	ListenAddress string
	// HTTPAddress overrides the dashboard HTTP listen address from config.
	HTTPAddress string
	// StateFile specifies the path to persist emergency state JSON.
	StateFile string
	// LogLevel overrides the log level from config.
	LogLevel string
	// AllowMultiple skips the single-instance check.
	AllowMultiple bool
}

// ErrNoServerAddress indicates missing server configuration.
var ErrNoServerAddress = errors.New("no server address configured")

// Run starts the gRPC server, and the HTTP API when configured, and blocks
// until ctx is canceled or a server fails.
//
//nolint:funlen // Linear startup sequence.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "sos-server")

	settings, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	logLevel := settings.LogLevel
	if opts.LogLevel != "" {
		logLevel = opts.LogLevel
	}

	if err = logger.ApplyLevel(logLevel); err != nil {
		return err
	}

	if !opts.AllowMultiple {
		if err = instance.NewGuard(ExecutableName).Check(ctx); err != nil {
			return err
		}
	}

	// Use StateFile from config unless overridden by command line option.
	stateFile := settings.StateFile
	if opts.StateFile != "" {
		stateFile = opts.StateFile
	}

	listenAddress, err := resolveListenAddress(settings.ServerAddress, opts.ListenAddress)
	if err != nil {
		return fmt.Errorf("resolve listen address: %w", err)
	}

	httpAddress := settings.HTTPAddress
	if opts.HTTPAddress != "" {
		httpAddress = opts.HTTPAddress
	}

	dispatcher, err := newHooks(settings)
	if err != nil {
		return err
	}

	svc, err := newService(ctx, repository.NewFileRepository(stateFile), dispatcher)
	if err != nil {
		return fmt.Errorf("initialise service: %w", err)
	}

	lc := net.ListenConfig{}

	lis, err := lc.Listen(ctx, "tcp", listenAddress)
	if err != nil {
		_ = svc.Close()

		return fmt.Errorf("listen on %s: %w", listenAddress, err)
	}

	grpcServer := grpc.NewServer()
	api.RegisterEmergencyServiceServer(grpcServer, grpcapi.NewServer(svc))

	var httpServer *httpapi.Server
	if httpAddress != "" {
		httpServer = httpapi.NewServer(ctx, httpAddress, svc)
	}

	logger.InfoKV(ctx, "Emergency server listening",
		"listen_address", listenAddress,
		"http_address", httpAddress,
		"state_file", stateFile,
		"hooks", dispatcher.Names())

	return serve(ctx, svc, grpcServer, lis, httpServer)
}

// serve runs the servers until ctx ends or one of them fails, then stops
// everything in order: the coordinator first, so watch streams end, then
// the transports.
func serve(
	ctx context.Context,
	svc *coordinator.Coordinator,
	grpcServer *grpc.Server,
	lis net.Listener,
	httpServer *httpapi.Server,
) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return fmt.Errorf("serve gRPC: %w", err)
		}

		return nil
	})

	if httpServer != nil {
		g.Go(func() error {
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("serve HTTP: %w", err)
			}

			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info(ctx, "Shutting down emergency server")

		if err := svc.Close(); err != nil {
			logger.ErrorKV(ctx, "Failed to close coordinator", "error", err)
		}

		grpcServer.GracefulStop()

		if httpServer == nil {
			return nil
		}

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown HTTP: %w", err)
		}

		return nil
	})

	err := g.Wait()

	logger.Info(ctx, "Emergency server stopped")

	return err
}

// resolveListenAddress determines the listen address for the gRPC server.
// If override is provided, uses it directly. Otherwise extracts port from configAddr.
// Returns appropriate listen address (e.g., ":8080" for port-only binding).
func resolveListenAddress(configAddr, override string) (string, error) {
	if override != "" {
		return override, nil
	}

	if configAddr == "" {
		return "", ErrNoServerAddress
	}

	_, port, err := net.SplitHostPort(configAddr)
	if err != nil {
		return "", fmt.Errorf("invalid server address format %q: %w", configAddr, err)
	}

	// Return port-only listen address to bind on all interfaces.
	return ":" + port, nil
}

package watcher

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap/zapcore"

	"github.com/oshokin/sos-button/internal/config"
	domain "github.com/oshokin/sos-button/internal/domain/emergency"
	"github.com/oshokin/sos-button/internal/logger"
	"github.com/oshokin/sos-button/internal/service/common"
	"github.com/oshokin/sos-button/internal/service/siren"
)

// Options controls the watcher behavior and configuration.
type Options struct {
	// ConfigPath specifies the path to the settings YAML file.
	ConfigPath string
	// ServerAddress provides an optional gRPC server address override.
	ServerAddress string
	// RetryInterval is the delay before reconnecting a lost stream.
	RetryInterval time.Duration
	// Quiet hides countdown ticks and other informational updates.
	Quiet bool
	// Siren plays the siren on this device while the emergency is active.
	Siren bool
}

// DefaultRetryInterval defines the delay between reconnection attempts.
const DefaultRetryInterval = 5 * time.Second

// receiver yields updates of one watch stream.
type receiver interface {
	Recv() (*domain.Update, error)
}

// alarm is a local alarm driven by the remote state.
type alarm interface {
	Run(ctx context.Context, incident *domain.Incident) error
	Stop(ctx context.Context) error
}

// watcher reacts to updates of one server.
type watcher struct {
	// alarm is optional.
	alarm alarm
	// sounding is the cycle the local alarm plays for, empty when silent.
	sounding string
}

// Run follows the server until ctx is cancelled, reconnecting lost streams.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "sos-watcher")

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	if opts.RetryInterval <= 0 {
		opts.RetryInterval = DefaultRetryInterval
	}

	serverAddress := cfg.ServerAddress
	if opts.ServerAddress != "" {
		serverAddress = opts.ServerAddress
	}

	client, err := common.Dial(ctx, serverAddress, common.WithCallTimeout(cfg.Timeout))
	if err != nil {
		return fmt.Errorf("dial server: %w", err)
	}

	defer func() {
		_ = client.Close()
	}()

	w := new(watcher)
	if opts.Siren {
		w.alarm = siren.NewPlayer(cfg.SirenFile, cfg.SirenCommand)
	}

	if opts.Quiet {
		ctx = logger.WithMinLevel(ctx, zapcore.WarnLevel)
	}

	logger.InfoKV(ctx, "Watching emergency state",
		"server_address", serverAddress,
		"retry_interval", opts.RetryInterval.String(),
		"siren", opts.Siren)

	return w.loop(ctx, opts.RetryInterval, func(ctx context.Context) (receiver, error) {
		return client.Watch(ctx)
	})
}

// loop follows streams opened by open until ctx is cancelled.
func (w *watcher) loop(
	ctx context.Context,
	retryInterval time.Duration,
	open func(context.Context) (receiver, error),
) error {
	defer w.silence(context.WithoutCancel(ctx))

	for {
		err := w.follow(ctx, open)
		if ctx.Err() != nil {
			logger.Info(ctx, "Context canceled, exiting")

			return nil
		}

		logger.WarnKV(ctx, "Watch stream lost, reconnecting",
			"error", err,
			"retry_in", retryInterval.String())

		if !sleep(ctx, retryInterval) {
			logger.Info(ctx, "Context canceled, exiting")

			return nil
		}
	}
}

// sleep waits for d and reports false if ctx ended first.
func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// follow handles updates of one stream until it fails.
func (w *watcher) follow(ctx context.Context, open func(context.Context) (receiver, error)) error {
	stream, err := open(ctx)
	if err != nil {
		return err
	}

	for {
		update, err := stream.Recv()
		if err != nil {
			return err
		}

		w.handle(ctx, update)
	}
}

// handle logs one update and drives the local alarm.
//
//nolint:cyclop // One case per update kind.
func (w *watcher) handle(ctx context.Context, update *domain.Update) {
	state := update.State

	switch update.Kind {
	case domain.UpdateSnapshot:
		logger.Infof(ctx, "Emergency state: %s, last change by %s", state.Phase, state.LastActor)
	case domain.UpdateArmed:
		logger.Warnf(ctx, "SOS countdown started by %s, %ds to cancel", state.LastActor, state.SecondsRemaining)
	case domain.UpdateTick:
		logger.Infof(ctx, "SOS activates in %ds", state.SecondsRemaining)
	case domain.UpdateActivated:
		logger.Errorf(ctx, "SOS ACTIVATED by %s (cycle %s)", state.LastActor, state.CycleID)
	case domain.UpdateHook:
		logHook(ctx, update.Hook)
	case domain.UpdateCancelled:
		logger.Infof(ctx, "SOS countdown cancelled by %s", state.LastActor)
	case domain.UpdateReset:
		logger.Infof(ctx, "SOS reset by %s", state.LastActor)
	case domain.UpdateNotice:
		logNotice(ctx, update.Notice)
	}

	if state.Phase == domain.PhaseActive {
		w.sound(ctx, state)
	} else {
		w.silence(ctx)
	}
}

// sound starts the local alarm for the active cycle.
func (w *watcher) sound(ctx context.Context, state *domain.State) {
	if w.alarm == nil || w.sounding == state.CycleID {
		return
	}

	incident := &domain.Incident{
		CycleID:     state.CycleID,
		Actor:       state.LastActor,
		ActivatedAt: state.UpdatedAt,
	}

	if err := w.alarm.Run(ctx, incident); err != nil {
		logger.ErrorKV(ctx, "Failed to sound local siren", "error", err)

		return
	}

	w.sounding = state.CycleID
}

// silence stops the local alarm.
func (w *watcher) silence(ctx context.Context) {
	if w.alarm == nil || w.sounding == "" {
		return
	}

	if err := w.alarm.Stop(ctx); err != nil {
		logger.ErrorKV(ctx, "Failed to stop local siren", "error", err)
	}

	w.sounding = ""
}

// logHook logs one hook result; updates from other builds may carry none.
func logHook(ctx context.Context, result *domain.HookResult) {
	switch {
	case result == nil:
		logger.Warn(ctx, "Emergency step update without a result")
	case result.OK():
		logger.InfoKV(ctx, "Emergency step done", "hook", result.Name, "duration", result.Duration.String())
	default:
		logger.WarnKV(ctx, "Emergency step failed", "hook", result.Name, "error", result.Err)
	}
}

// logNotice logs a notice at its own level.
func logNotice(ctx context.Context, notice *domain.Notice) {
	if notice == nil {
		return
	}

	switch notice.Level {
	case domain.NoticeWarning:
		logger.Warn(ctx, notice.Message)
	case domain.NoticeError:
		logger.Error(ctx, notice.Message)
	case domain.NoticeInfo, domain.NoticeSuccess:
		logger.Info(ctx, notice.Message)
	default:
		logger.Info(ctx, notice.Message)
	}
}

package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/oshokin/sos-button/internal/config"
	domain "github.com/oshokin/sos-button/internal/domain/emergency"
	"github.com/oshokin/sos-button/internal/logger"
	repo "github.com/oshokin/sos-button/internal/repository/state"
	"github.com/oshokin/sos-button/internal/service/alert"
	"github.com/oshokin/sos-button/internal/service/coordinator"
	"github.com/oshokin/sos-button/internal/service/hooks"
	"github.com/oshokin/sos-button/internal/service/location"
	"github.com/oshokin/sos-button/internal/service/recording"
	"github.com/oshokin/sos-button/internal/service/siren"
)

// auditListener logs who armed and disarmed the emergency.
type auditListener struct{}

// OnActivate implements coordinator.Listener.
func (auditListener) OnActivate(ctx context.Context, state *domain.State) {
	logger.WarnKV(ctx, "Emergency armed, waiting for cancellation",
		"actor", state.LastActor,
		"cycle_id", state.CycleID,
		"seconds_remaining", state.SecondsRemaining)
}

// OnDeactivate implements coordinator.Listener.
func (auditListener) OnDeactivate(ctx context.Context, state *domain.State) {
	logger.InfoKV(ctx, "Emergency disarmed",
		"actor", state.LastActor,
		"cycle_id", state.CycleID,
		"phase", state.Phase.String())
}

// newHooks builds the activation hooks in dispatch order: share location,
// start recording, send alerts, sound the alarm.
func newHooks(settings *config.Config) (*hooks.Dispatcher, error) {
	httpClient := &http.Client{Timeout: settings.HookTimeout}

	sender, err := alert.NewSender(settings, httpClient)
	if err != nil {
		return nil, fmt.Errorf("create alert sender: %w", err)
	}

	provider := location.NewStaticProvider(settings.Location)
	notifier := alert.NewNotifier(sender, settings.Contacts, provider)

	return hooks.NewDispatcher(settings.HookTimeout,
		location.NewShareHook(provider, notifier),
		recording.NewRecorder(settings.EvidenceDir),
		notifier,
		siren.NewPlayer(settings.SirenFile, settings.SirenCommand),
	), nil
}

// newService creates the coordinator backed by the provided repository.
func newService(ctx context.Context, repository repo.Repository, runner coordinator.HookRunner) (*coordinator.Coordinator, error) {
	opts := []coordinator.Option{
		coordinator.WithListener(auditListener{}),
	}

	if repository != nil {
		opts = append(opts, coordinator.WithRepository(repository))
	}

	if runner != nil {
		opts = append(opts, coordinator.WithHooks(runner))
	}

	svc, err := coordinator.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create coordinator: %w", err)
	}

	return svc, nil
}

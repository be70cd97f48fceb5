package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oshokin/sos-button/internal/config"
	domain "github.com/oshokin/sos-button/internal/domain/emergency"
	"github.com/oshokin/sos-button/internal/logger"
	"github.com/oshokin/sos-button/internal/service/common"
)

// Action is the transition a client requests.
type Action string

// Supported actions.
const (
	ActionStart  Action = "start"
	ActionCancel Action = "cancel"
	ActionReset  Action = "reset"
)

// Options configures client behavior for state change operations.
type Options struct {
	// ConfigPath to YAML settings file, defaults to standard filename if empty.
	ConfigPath string

	// ServerAddress overrides server address from config when specified.
	ServerAddress string

	// Action is the requested transition.
	Action Action

	// PushInterval overrides the retry delay.
	PushInterval time.Duration
}

// defaultPushInterval defines retry delay when pushing a request to the server.
const defaultPushInterval = 1 * time.Second

var (
	// ErrAlreadyActive is returned when a cancel arrives after activation.
	ErrAlreadyActive = errors.New("emergency is already active and cannot be cancelled, use --reset")
	// ErrCountdownRunning is returned when a reset arrives during the countdown.
	ErrCountdownRunning = errors.New("countdown is running, cancel it instead of resetting")
	// errUnknownAction is returned for an unsupported action.
	errUnknownAction = errors.New("unknown action")
)

// requester is the part of the client Run needs.
type requester interface {
	Start(ctx context.Context, actor *domain.Actor) (*domain.State, error)
	Cancel(ctx context.Context, actor *domain.Actor) (*domain.State, error)
	Reset(ctx context.Context, actor *domain.Actor) (*domain.State, error)
}

// Run requests the transition with retry logic until the server confirms it,
// the request turns out to be pointless, or ctx is cancelled.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "sos-button-"+string(opts.Action))

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return err
	}

	serverAddress := cfg.ServerAddress
	if opts.ServerAddress != "" {
		serverAddress = opts.ServerAddress
	}

	// Identify current user and hostname for audit logging.
	actor, err := common.DetectActor()
	if err != nil {
		return err
	}

	client, err := common.Dial(ctx, serverAddress, common.WithCallTimeout(cfg.Timeout))
	if err != nil {
		return err
	}

	defer func() {
		_ = client.Close()
	}()

	logger.InfoKV(ctx, "Pushing emergency request",
		"server_address", serverAddress,
		"action", string(opts.Action),
		"actor", actor)

	interval := opts.PushInterval
	if interval <= 0 {
		interval = defaultPushInterval
	}

	return push(ctx, client, actor, opts.Action, interval)
}

// push retries one action until it is confirmed.
func push(ctx context.Context, client requester, actor *domain.Actor, action Action, interval time.Duration) error {
	call, err := callFor(client, action)
	if err != nil {
		return err
	}

	// attempt tries once to apply the action, returns (completed, error).
	attempt := func() (bool, error) {
		state, err := call(ctx, actor)
		if err != nil {
			// Log error but continue retrying for transient failures.
			logger.ErrorKV(ctx, "Emergency request failed", "action", string(action), "error", err)

			return false, nil
		}

		done, err := confirmed(action, state)
		if done {
			logger.Infof(ctx, "Emergency updated: %s", FormatState(state))
		}

		return done, err
	}

	if done, err := attempt(); err != nil || done {
		return err
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			done, err := attempt()
			if err != nil || done {
				return err
			}
		}
	}
}

// callFor returns the client method for action.
func callFor(client requester, action Action) (func(context.Context, *domain.Actor) (*domain.State, error), error) {
	switch action {
	case ActionStart:
		return client.Start, nil
	case ActionCancel:
		return client.Cancel, nil
	case ActionReset:
		return client.Reset, nil
	default:
		return nil, fmt.Errorf("%w: %q", errUnknownAction, action)
	}
}

// confirmed reports whether state satisfies action. It returns an error when
// retrying cannot help.
func confirmed(action Action, state *domain.State) (bool, error) {
	switch action {
	case ActionStart:
		return state.Phase == domain.PhaseCountingDown || state.Phase == domain.PhaseActive, nil
	case ActionCancel:
		if state.Phase == domain.PhaseActive {
			return false, ErrAlreadyActive
		}

		return state.Phase.IsIdle(), nil
	case ActionReset:
		if state.Phase == domain.PhaseCountingDown {
			return false, ErrCountdownRunning
		}

		return state.Phase.IsIdle(), nil
	default:
		return false, fmt.Errorf("%w: %q", errUnknownAction, action)
	}
}

// FormatState converts an emergency state to a readable log message.
func FormatState(state *domain.State) string {
	if state == nil {
		return "<nil state>"
	}

	timestamp := "<unknown>"
	if !state.UpdatedAt.IsZero() {
		timestamp = state.UpdatedAt.Format(time.RFC3339)
	}

	status := state.Phase.String()
	if state.Phase == domain.PhaseCountingDown {
		status = fmt.Sprintf("%s (%ds left)", status, state.SecondsRemaining)
	}

	return fmt.Sprintf("%s by %s (%s)", status, state.LastActor, timestamp)
}

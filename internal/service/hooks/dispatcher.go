package hooks

import (
	"context"
	"errors"
	"fmt"
	"time"

	domain "github.com/oshokin/sos-button/internal/domain/emergency"
	"github.com/oshokin/sos-button/internal/logger"
)

// Hook names in dispatch order.
const (
	NameLocationShare  = "location-share"
	NameRecordingStart = "recording-start"
	NameAlertSend      = "alert-send"
	NameAlarmActivate  = "alarm-activate"
)

// Hook is one activation side effect.
type Hook interface {
	// Name identifies the hook in results and logs.
	Name() string
	// Run performs the side effect for the incident.
	Run(ctx context.Context, incident *domain.Incident) error
}

// Stopper is implemented by hooks whose effect outlives Run (a recording,
// a playing siren) and can be undone when the emergency is reset.
type Stopper interface {
	Stop(ctx context.Context) error
}

var (
	// ErrHookPanicked wraps a panic raised inside a hook.
	ErrHookPanicked = errors.New("hook panicked")
	// ErrHookSkipped marks hooks not run because the dispatch was aborted.
	ErrHookSkipped = errors.New("hook skipped")
)

// Dispatcher runs hooks in a fixed order with per-hook isolation.
type Dispatcher struct {
	// hooks are run in slice order.
	hooks []Hook
	// timeout bounds each hook; zero means no bound.
	timeout time.Duration
}

// NewDispatcher creates a dispatcher running hooks in the given order.
func NewDispatcher(timeout time.Duration, hooks ...Hook) *Dispatcher {
	return &Dispatcher{
		hooks:   hooks,
		timeout: timeout,
	}
}

// Names returns the hook names in dispatch order.
func (d *Dispatcher) Names() []string {
	names := make([]string, 0, len(d.hooks))
	for _, hook := range d.hooks {
		names = append(names, hook.Name())
	}

	return names
}

// Dispatch runs every hook once, in order, and returns one result per hook.
// Once ctx is done the remaining hooks are skipped, not run.
// report, when set, is called after each hook with its result.
func (d *Dispatcher) Dispatch(
	ctx context.Context,
	incident *domain.Incident,
	report func(domain.HookResult),
) []domain.HookResult {
	results := make([]domain.HookResult, 0, len(d.hooks))

	for _, hook := range d.hooks {
		result := d.run(ctx, hook, incident)
		results = append(results, result)

		if result.OK() {
			logger.InfoKV(ctx, "Activation hook finished",
				"hook", result.Name,
				"duration", result.Duration.String())
		} else {
			logger.ErrorKV(ctx, "Activation hook failed",
				"hook", result.Name,
				"duration", result.Duration.String(),
				"error", result.Err)
		}

		if report != nil {
			report(result)
		}
	}

	return results
}

// Stop undoes the lasting effects of hooks implementing Stopper, in reverse
// dispatch order. Every stopper is called even if an earlier one fails.
func (d *Dispatcher) Stop(ctx context.Context) error {
	var errs []error

	for i := len(d.hooks) - 1; i >= 0; i-- {
		stopper, ok := d.hooks[i].(Stopper)
		if !ok {
			continue
		}

		if err := stopper.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("stop %s: %w", d.hooks[i].Name(), err))
		}
	}

	return errors.Join(errs...)
}

// run executes a single hook and converts its outcome into a result.
func (d *Dispatcher) run(ctx context.Context, hook Hook, incident *domain.Incident) (result domain.HookResult) {
	result = domain.HookResult{
		Name:      hook.Name(),
		StartedAt: time.Now(),
	}

	if err := ctx.Err(); err != nil {
		result.Err = fmt.Errorf("%w: %w", ErrHookSkipped, err)

		return result
	}

	hookCtx, cancel := d.hookContext(ctx)
	defer cancel()

	defer func() {
		if recovered := recover(); recovered != nil {
			result.Err = fmt.Errorf("%w: %v", ErrHookPanicked, recovered)
		}

		result.Duration = time.Since(result.StartedAt)
	}()

	result.Err = hook.Run(hookCtx, incident)

	return result
}

// hookContext bounds a hook run by the dispatcher timeout when one is set.
func (d *Dispatcher) hookContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if d.timeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, d.timeout)
}

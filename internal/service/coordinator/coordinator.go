package coordinator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	domain "github.com/oshokin/sos-button/internal/domain/emergency"
	"github.com/oshokin/sos-button/internal/logger"
	repo "github.com/oshokin/sos-button/internal/repository/state"
)

// TickInterval is the countdown resolution.
const TickInterval = time.Second

// ErrClosed is returned by operations on a closed coordinator.
var ErrClosed = errors.New("coordinator is closed")

// Notice texts shown to the person holding the button.
var (
	noticeArmed = fmt.Sprintf(
		"Emergency protocol initiated! Cancel within %d seconds to prevent alert.",
		domain.CountdownSeconds)
	noticeCancelled = "Emergency protocol cancelled."
	noticeActivated = "Emergency protocol activated! Location shared with emergency contacts."
	noticeReset     = "Emergency protocol reset."
)

// Listener is notified when the emergency is armed or disarmed.
// Callbacks run outside the coordinator lock and may call back into it.
type Listener interface {
	OnActivate(ctx context.Context, state *domain.State)
	OnDeactivate(ctx context.Context, state *domain.State)
}

// HookRunner dispatches activation hooks and undoes their lasting effects.
type HookRunner interface {
	Dispatch(ctx context.Context, incident *domain.Incident, report func(domain.HookResult)) []domain.HookResult
	Stop(ctx context.Context) error
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithListener registers a listener for arm and disarm notifications.
func WithListener(listener Listener) Option {
	return func(c *Coordinator) {
		c.listeners = append(c.listeners, listener)
	}
}

// WithHooks sets the activation hooks.
func WithHooks(hooks HookRunner) Option {
	return func(c *Coordinator) {
		c.hooks = hooks
	}
}

// WithRepository persists the state on every phase change.
func WithRepository(repository repo.Repository) Option {
	return func(c *Coordinator) {
		c.repo = repository
	}
}

// WithIDGenerator replaces the cycle id generator.
func WithIDGenerator(newID func() string) Option {
	return func(c *Coordinator) {
		c.newID = newID
	}
}

// countdown is one armed cancellation window.
type countdown struct {
	ticker *time.Ticker
	// stop is closed when the countdown is released by someone other than
	// its own goroutine.
	stop chan struct{}
}

// hookRun is the hook dispatch of one activation.
type hookRun struct {
	// cancel aborts the dispatch; remaining hooks are skipped.
	cancel context.CancelFunc
	// done is closed once Dispatch has returned.
	done chan struct{}
}

// Coordinator owns the emergency state and its countdown.
type Coordinator struct {
	// ctx carries the coordinator logger and outlives request contexts.
	ctx context.Context
	// cancel aborts running hooks on Close.
	cancel context.CancelFunc

	repo      repo.Repository
	hooks     HookRunner
	listeners []Listener
	newID     func() string
	hub       *hub

	// state is the current state, replaced on every transition.
	state *domain.State
	// countdown is the armed countdown, nil outside PhaseCountingDown.
	countdown *countdown
	// run is the dispatch of the current activation, nil outside PhaseActive.
	run *hookRun
	// settled is closed when the last reset finished stopping hooks.
	settled chan struct{}
	closed  bool
	// mu serialises every transition.
	mu sync.Mutex

	// wg tracks countdown and hook goroutines.
	wg sync.WaitGroup
}

// New creates a coordinator, restoring the persisted state when a repository
// is configured. A persisted active emergency stays active; any other phase
// comes back idle, so an interrupted countdown never resumes on its own.
func New(ctx context.Context, opts ...Option) (*Coordinator, error) {
	ctx = logger.WithName(ctx, "coordinator")
	baseCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	c := &Coordinator{
		ctx:    baseCtx,
		cancel: cancel,
		newID:  uuid.NewString,
		hub:    newHub(),
		state:  domain.NewState(),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.repo == nil {
		return c, nil
	}

	state, err := c.repo.Load(ctx)

	switch {
	case err == nil:
		c.state = restore(ctx, state)
	case errors.Is(err, repo.ErrNotFound):
		// Keep the idle state.
	default:
		cancel()

		return nil, fmt.Errorf("load state: %w", err)
	}

	return c, nil
}

// restore converts a persisted state into the state to start from.
func restore(ctx context.Context, state *domain.State) *domain.State {
	if state == nil {
		return domain.NewState()
	}

	if state.Phase == domain.PhaseActive {
		logger.WarnKV(ctx, "Restored an active emergency", "cycle_id", state.CycleID)

		return state
	}

	if state.Phase == domain.PhaseCountingDown {
		logger.WarnKV(ctx, "Discarded an interrupted countdown", "cycle_id", state.CycleID)
	}

	restored := domain.NewState()
	restored.CycleID = state.CycleID
	restored.UpdatedAt = state.UpdatedAt
	restored.LastActor = state.LastActor

	return restored
}

// State returns a snapshot of the current state.
func (c *Coordinator) State() *domain.State {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.state.Clone()
}

// Subscribe registers for updates. Slow subscribers miss updates instead of
// blocking the coordinator. The returned function unsubscribes.
func (c *Coordinator) Subscribe(buffer int) (<-chan domain.Update, func()) {
	return c.hub.subscribe(buffer)
}

// Start arms the countdown. It is a no-op unless the emergency is idle.
func (c *Coordinator) Start(ctx context.Context, actor *domain.Actor) (*domain.State, error) {
	return c.request(ctx, domain.EventStart, actor)
}

// Cancel aborts the countdown. It is a no-op unless the countdown is running;
// in particular an active emergency cannot be cancelled.
func (c *Coordinator) Cancel(ctx context.Context, actor *domain.Actor) (*domain.State, error) {
	return c.request(ctx, domain.EventCancel, actor)
}

// Reset leaves an active emergency and stops lasting hook effects.
// It is a no-op unless the emergency is active.
func (c *Coordinator) Reset(ctx context.Context, actor *domain.Actor) (*domain.State, error) {
	return c.request(ctx, domain.EventReset, actor)
}

// Close releases the countdown, aborts running hooks, waits for background
// work and closes every subscription. Later calls return nil.
func (c *Coordinator) Close() error {
	c.mu.Lock()

	if c.closed {
		c.mu.Unlock()

		return nil
	}

	c.closed = true
	c.releaseCountdown()
	c.cancel()
	c.mu.Unlock()

	c.wg.Wait()
	c.hub.close()

	if c.hooks == nil {
		return nil
	}

	if err := c.hooks.Stop(context.WithoutCancel(c.ctx)); err != nil {
		return fmt.Errorf("stop hooks: %w", err)
	}

	return nil
}

// request applies a user event and notifies listeners afterwards.
func (c *Coordinator) request(ctx context.Context, ev domain.Event, actor *domain.Actor) (*domain.State, error) {
	c.mu.Lock()

	if c.closed {
		c.mu.Unlock()

		return nil, ErrClosed
	}

	effect := c.apply(ctx, ev, actor)
	snapshot := c.state.Clone()
	c.mu.Unlock()

	if effect == domain.EffectNone {
		logger.DebugKV(ctx, "Request ignored", "event", ev.String(), "phase", snapshot.Phase.String())
	}

	c.notify(ctx, effect, snapshot)

	return snapshot, nil
}

// tick applies one countdown tick. It reports whether the countdown is over.
func (c *Coordinator) tick(cd *countdown) bool {
	c.mu.Lock()

	if c.closed || c.countdown != cd {
		c.mu.Unlock()

		return true
	}

	effect := c.apply(c.ctx, domain.EventTick, nil)
	c.mu.Unlock()

	return effect != domain.EffectTick
}

// apply runs the state machine and carries out the effect. Must hold c.mu.
func (c *Coordinator) apply(ctx context.Context, ev domain.Event, actor *domain.Actor) domain.Effect {
	next, effect := domain.Next(*c.state, ev)
	if effect == domain.EffectNone {
		return effect
	}

	now := time.Now()
	next.UpdatedAt = now

	if actor != nil {
		next.LastActor = actor.Clone()
	}

	if effect == domain.EffectArm {
		next.CycleID = c.newID()
	}

	c.state = &next

	if effect.ReleasesTimer() {
		c.releaseCountdown()
	}

	switch effect {
	case domain.EffectArm:
		c.armCountdown()
		logger.InfoKV(ctx, "Emergency countdown armed", "cycle_id", next.CycleID, "actor", next.LastActor)
		c.publish(ctx, domain.UpdateArmed, now)
		c.publishNotice(ctx, domain.NoticeWarning, noticeArmed, now)
	case domain.EffectTick:
		logger.DebugKV(ctx, "Emergency countdown tick", "seconds_remaining", next.SecondsRemaining)
		c.publish(ctx, domain.UpdateTick, now)
	case domain.EffectActivate:
		logger.WarnKV(ctx, "Emergency activated", "cycle_id", next.CycleID, "actor", next.LastActor)
		c.publish(ctx, domain.UpdateActivated, now)
		c.publishNotice(ctx, domain.NoticeSuccess, noticeActivated, now)
		c.dispatchHooks(&domain.Incident{
			CycleID:     next.CycleID,
			Actor:       next.LastActor.Clone(),
			ActivatedAt: now,
		})
	case domain.EffectCancel:
		logger.InfoKV(ctx, "Emergency countdown cancelled", "cycle_id", next.CycleID, "actor", next.LastActor)
		c.publish(ctx, domain.UpdateCancelled, now)
		c.publishNotice(ctx, domain.NoticeInfo, noticeCancelled, now)
	case domain.EffectReset:
		logger.InfoKV(ctx, "Emergency reset", "cycle_id", next.CycleID, "actor", next.LastActor)
		c.publish(ctx, domain.UpdateReset, now)
		c.publishNotice(ctx, domain.NoticeInfo, noticeReset, now)
		c.stopHooks()
	}

	if effect != domain.EffectTick {
		c.persist(ctx)
	}

	return effect
}

// armCountdown starts the countdown goroutine. Must hold c.mu.
func (c *Coordinator) armCountdown() {
	cd := &countdown{
		ticker: time.NewTicker(TickInterval),
		stop:   make(chan struct{}),
	}
	c.countdown = cd

	c.wg.Add(1)

	go c.runCountdown(cd)
}

// releaseCountdown stops the armed countdown, if any. Must hold c.mu.
func (c *Coordinator) releaseCountdown() {
	if c.countdown == nil {
		return
	}

	close(c.countdown.stop)
	c.countdown = nil
}

// runCountdown delivers ticks until the countdown is released or expires.
// One delivered tick is one second; late ticks are not caught up.
func (c *Coordinator) runCountdown(cd *countdown) {
	defer c.wg.Done()
	defer cd.ticker.Stop()

	for {
		select {
		case <-cd.stop:
			return
		case <-cd.ticker.C:
			if c.tick(cd) {
				return
			}
		}
	}
}

// dispatchHooks runs the activation hooks in the background, after the
// previous reset has finished stopping them. Must hold c.mu.
func (c *Coordinator) dispatchHooks(incident *domain.Incident) {
	if c.hooks == nil {
		return
	}

	ctx, cancel := context.WithCancel(logger.WithKV(c.ctx, "cycle_id", incident.CycleID))
	run := &hookRun{cancel: cancel, done: make(chan struct{})}
	c.run = run
	settled := c.settled

	c.wg.Add(1)

	go func() {
		defer c.wg.Done()
		defer cancel()
		defer close(run.done)

		if settled != nil {
			select {
			case <-settled:
			case <-ctx.Done():
			}
		}

		c.hooks.Dispatch(ctx, incident, func(result domain.HookResult) {
			c.recordHook(ctx, incident.CycleID, result)
		})

		c.mu.Lock()
		defer c.mu.Unlock()

		if c.state.CycleID == incident.CycleID && c.state.Phase == domain.PhaseActive {
			c.persist(ctx)
		}
	}()
}

// recordHook stores and broadcasts one hook result of the given cycle.
func (c *Coordinator) recordHook(ctx context.Context, cycleID string, result domain.HookResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.CycleID != cycleID || c.state.Phase != domain.PhaseActive {
		return
	}

	c.state.Hooks = append(c.state.Hooks, result)

	now := time.Now()

	c.emit(ctx, domain.Update{
		Kind:  domain.UpdateHook,
		At:    now,
		State: c.state.Clone(),
		Hook:  &result,
	})

	if !result.OK() {
		c.publishNotice(ctx, domain.NoticeError,
			fmt.Sprintf("Emergency step %s failed: %v", result.Name, result.Err), now)
	}
}

// stopHooks aborts the running dispatch and, once it has returned, undoes
// lasting hook effects in the background. Must hold c.mu.
func (c *Coordinator) stopHooks() {
	if c.hooks == nil {
		return
	}

	run := c.run
	c.run = nil

	settled := make(chan struct{})
	c.settled = settled

	if run != nil {
		run.cancel()
	}

	c.wg.Add(1)

	go func() {
		defer c.wg.Done()
		defer close(settled)

		if run != nil {
			<-run.done
		}

		if err := c.hooks.Stop(context.WithoutCancel(c.ctx)); err != nil {
			logger.ErrorKV(c.ctx, "Failed to stop activation hooks", "error", err)
		}
	}()
}

// persist saves the current state. Failures are logged and never undo a
// transition. Must hold c.mu.
func (c *Coordinator) persist(ctx context.Context) {
	if c.repo == nil {
		return
	}

	if err := c.repo.Save(ctx, c.state.Clone()); err != nil {
		logger.ErrorKV(ctx, "Failed to persist emergency state", "phase", c.state.Phase.String(), "error", err)
	}
}

// publish broadcasts a state update. Must hold c.mu.
func (c *Coordinator) publish(ctx context.Context, kind domain.UpdateKind, at time.Time) {
	c.emit(ctx, domain.Update{
		Kind:  kind,
		At:    at,
		State: c.state.Clone(),
	})
}

// publishNotice broadcasts a notice. Must hold c.mu.
func (c *Coordinator) publishNotice(ctx context.Context, level domain.NoticeLevel, message string, at time.Time) {
	c.emit(ctx, domain.Update{
		Kind:   domain.UpdateNotice,
		At:     at,
		State:  c.state.Clone(),
		Notice: &domain.Notice{Level: level, Message: message},
	})
}

// emit hands an update to the hub. Must hold c.mu.
func (c *Coordinator) emit(ctx context.Context, u domain.Update) {
	if missed := c.hub.publish(u); missed > 0 {
		logger.DebugKV(ctx, "Subscribers missed an update", "kind", string(u.Kind), "missed", missed)
	}
}

// notify calls listeners for effects they care about. Must not hold c.mu.
func (c *Coordinator) notify(ctx context.Context, effect domain.Effect, state *domain.State) {
	for _, listener := range c.listeners {
		switch effect {
		case domain.EffectArm:
			listener.OnActivate(ctx, state)
		case domain.EffectCancel, domain.EffectReset:
			listener.OnDeactivate(ctx, state)
		}
	}
}

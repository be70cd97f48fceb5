package emergency

import (
	"slices"
	"time"
)

// CountdownSeconds is the length of the cancellation window.
const CountdownSeconds = 10

// Phase is the position of the emergency lifecycle.
type Phase int8

const (
	// PhaseIdle means no emergency is in progress.
	PhaseIdle Phase = iota
	// PhaseCountingDown means the cancellation window is open.
	PhaseCountingDown
	// PhaseActive means the emergency has been committed and hooks were dispatched.
	PhaseActive
	// PhaseCancelled means the last countdown was cancelled. It behaves like PhaseIdle.
	PhaseCancelled
)

// String returns the wire name of the phase.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseCountingDown:
		return "counting_down"
	case PhaseActive:
		return "active"
	case PhaseCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// ParsePhase converts a wire name back to a Phase.
func ParsePhase(s string) (Phase, bool) {
	switch s {
	case "idle":
		return PhaseIdle, true
	case "counting_down":
		return PhaseCountingDown, true
	case "active":
		return PhaseActive, true
	case "cancelled":
		return PhaseCancelled, true
	default:
		return PhaseIdle, false
	}
}

// IsIdle reports whether the phase accepts a new start.
func (p Phase) IsIdle() bool {
	return p == PhaseIdle || p == PhaseCancelled
}

// HookResult is the tagged outcome of one activation hook.
type HookResult struct {
	// Name identifies the hook, e.g. "alert-send".
	Name string
	// Err is nil when the hook succeeded.
	Err error
	// StartedAt is when the hook began.
	StartedAt time.Time
	// Duration is how long the hook ran.
	Duration time.Duration
}

// OK reports whether the hook succeeded.
func (r HookResult) OK() bool {
	return r.Err == nil
}

// State is the emergency status at a specific point in time.
type State struct {
	// Phase is the lifecycle position.
	Phase Phase
	// SecondsRemaining is the countdown display value.
	SecondsRemaining int
	// CycleID identifies the current or last countdown cycle.
	CycleID string
	// UpdatedAt is when the state last changed.
	UpdatedAt time.Time
	// LastActor is who requested the last transition.
	LastActor *Actor
	// Hooks holds the results of the last activation, in dispatch order.
	Hooks []HookResult
}

// NewState returns the initial idle state.
func NewState() *State {
	return &State{
		Phase:            PhaseIdle,
		SecondsRemaining: CountdownSeconds,
	}
}

// Clone returns a copy of the state to avoid leaking internal references.
func (s *State) Clone() *State {
	if s == nil {
		return nil
	}

	return &State{
		Phase:            s.Phase,
		SecondsRemaining: s.SecondsRemaining,
		CycleID:          s.CycleID,
		UpdatedAt:        s.UpdatedAt,
		LastActor:        s.LastActor.Clone(),
		Hooks:            slices.Clone(s.Hooks),
	}
}

// Incident describes a committed emergency handed to activation hooks.
type Incident struct {
	// CycleID is the countdown cycle that expired.
	CycleID string
	// Actor is who started the countdown.
	Actor *Actor
	// ActivatedAt is when the countdown reached zero.
	ActivatedAt time.Time
}

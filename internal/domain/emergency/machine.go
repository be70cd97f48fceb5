package emergency

// Event is an input of the state machine.
type Event int8

const (
	// EventStart is a user request to arm the countdown.
	EventStart Event = iota
	// EventTick is one elapsed second of an armed countdown.
	EventTick
	// EventCancel is a user request to abort the countdown.
	EventCancel
	// EventReset is an external request to leave the active phase.
	EventReset
)

// String returns the event name for logs.
func (e Event) String() string {
	switch e {
	case EventStart:
		return "start"
	case EventTick:
		return "tick"
	case EventCancel:
		return "cancel"
	case EventReset:
		return "reset"
	default:
		return "unknown"
	}
}

// Effect tells the owner of the state what to do after a transition.
type Effect int8

const (
	// EffectNone means the event was ignored and the state is unchanged.
	EffectNone Effect = iota
	// EffectArm means the timer must be acquired and OnActivate fired.
	EffectArm
	// EffectTick means the countdown moved by one second.
	EffectTick
	// EffectActivate means the timer must be released and hooks dispatched once.
	EffectActivate
	// EffectCancel means the timer must be released and OnDeactivate fired.
	EffectCancel
	// EffectReset means the active phase was left and OnDeactivate fired.
	EffectReset
)

// ReleasesTimer reports whether the effect leaves the counting down phase.
func (e Effect) ReleasesTimer() bool {
	return e == EffectActivate || e == EffectCancel
}

// Next applies ev to s and returns the resulting state with the effect the
// owner has to carry out. Identity fields (CycleID, LastActor, UpdatedAt) are
// left to the owner. Ignored events return s unchanged with EffectNone.
func Next(s State, ev Event) (State, Effect) {
	switch ev {
	case EventStart:
		if !s.Phase.IsIdle() {
			return s, EffectNone
		}

		s.Phase = PhaseCountingDown
		s.SecondsRemaining = CountdownSeconds
		s.Hooks = nil

		return s, EffectArm
	case EventTick:
		if s.Phase != PhaseCountingDown {
			return s, EffectNone
		}

		if s.SecondsRemaining <= 1 {
			s.Phase = PhaseActive
			s.SecondsRemaining = 0

			return s, EffectActivate
		}

		s.SecondsRemaining--

		return s, EffectTick
	case EventCancel:
		if s.Phase != PhaseCountingDown {
			return s, EffectNone
		}

		s.Phase = PhaseCancelled
		s.SecondsRemaining = CountdownSeconds

		return s, EffectCancel
	case EventReset:
		if s.Phase != PhaseActive {
			return s, EffectNone
		}

		s.Phase = PhaseIdle
		s.SecondsRemaining = CountdownSeconds

		return s, EffectReset
	default:
		return s, EffectNone
	}
}

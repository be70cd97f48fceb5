// Package emergency contains the core domain types of the SOS button.
//
// It defines the emergency State (phase and countdown), the Actor that
// requested a transition, the pure transition function Next that enforces the
// lifecycle idle -> counting down -> active (or cancelled), and the Update
// values broadcast to observers. Clone helpers avoid leaking internal
// references out of the coordinator that owns the state.
package emergency

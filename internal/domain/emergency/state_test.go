package emergency

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestActorClone verifies that Clone returns a deep copy and handles nil safely.
func TestActorClone(t *testing.T) {
	t.Parallel()
	require.Nil(t, (*Actor)(nil).Clone())
	require.Equal(t, "<unknown>", (*Actor)(nil).String())

	a := &Actor{
		Hostname: "kitchen-laptop",
		Username: "jane",
	}

	b := a.Clone()

	require.Equal(t, a, b)
	require.NotSame(t, a, b)
	require.Equal(t, "jane@kitchen-laptop", b.String())
}

// TestStateClone verifies that State.Clone deep-copies the actor and the hook results.
func TestStateClone(t *testing.T) {
	t.Parallel()

	require.Nil(t, (*State)(nil).Clone())

	ts := time.Now().UTC().Truncate(time.Second)
	s := State{
		Phase:            PhaseActive,
		SecondsRemaining: 0,
		CycleID:          "cycle-1",
		UpdatedAt:        ts,
		LastActor: &Actor{
			Hostname: "kitchen-laptop",
			Username: "jane",
		},
		Hooks: []HookResult{
			{Name: "alert-send", Err: errors.New("webhook down")},
		},
	}

	c := s.Clone()
	require.Equal(t, s.Phase, c.Phase)
	require.Equal(t, s.CycleID, c.CycleID)
	require.Equal(t, s.UpdatedAt, c.UpdatedAt)
	require.Equal(t, s.LastActor, c.LastActor)
	require.NotSame(t, s.LastActor, c.LastActor)

	// Mutating the copy must not touch the original.
	c.Hooks[0].Name = "changed"
	require.Equal(t, "alert-send", s.Hooks[0].Name)
}

// TestPhaseNames checks that every phase survives the wire name roundtrip.
func TestPhaseNames(t *testing.T) {
	t.Parallel()

	for _, p := range []Phase{PhaseIdle, PhaseCountingDown, PhaseActive, PhaseCancelled} {
		got, ok := ParsePhase(p.String())
		require.True(t, ok)
		require.Equal(t, p, got)
	}

	_, ok := ParsePhase("exploded")
	require.False(t, ok)
	require.Equal(t, "unknown", Phase(42).String())
	require.True(t, PhaseCancelled.IsIdle())
	require.False(t, PhaseActive.IsIdle())
}

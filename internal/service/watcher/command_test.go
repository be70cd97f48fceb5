package watcher

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	domain "github.com/oshokin/sos-button/internal/domain/emergency"
	"github.com/oshokin/sos-button/internal/logger"
)

// scriptedStream replays updates, then blocks until ctx ends or fails with end.
type scriptedStream struct {
	ctx     context.Context
	updates []*domain.Update
	end     error
}

func (s *scriptedStream) Recv() (*domain.Update, error) {
	if len(s.updates) > 0 {
		u := s.updates[0]
		s.updates = s.updates[1:]

		return u, nil
	}

	if s.end != nil {
		return nil, s.end
	}

	<-s.ctx.Done()

	return nil, s.ctx.Err()
}

// fakeAlarm counts siren runs and stops.
type fakeAlarm struct {
	mu     sync.Mutex
	cycles []string
	stops  int
}

func (a *fakeAlarm) Run(_ context.Context, incident *domain.Incident) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.cycles = append(a.cycles, incident.CycleID)

	return nil
}

func (a *fakeAlarm) Stop(context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.stops++

	return nil
}

func update(kind domain.UpdateKind, phase domain.Phase, cycleID string) *domain.Update {
	return &domain.Update{
		Kind:  kind,
		State: &domain.State{Phase: phase, CycleID: cycleID, SecondsRemaining: 10},
	}
}

// TestWatcher_SirenFollowsPhase drives the local alarm from updates.
func TestWatcher_SirenFollowsPhase(t *testing.T) {
	t.Parallel()

	a := new(fakeAlarm)
	w := &watcher{alarm: a}
	ctx := context.Background()

	w.handle(ctx, update(domain.UpdateSnapshot, domain.PhaseIdle, ""))
	w.handle(ctx, update(domain.UpdateArmed, domain.PhaseCountingDown, "c-1"))
	w.handle(ctx, update(domain.UpdateTick, domain.PhaseCountingDown, "c-1"))
	w.handle(ctx, update(domain.UpdateActivated, domain.PhaseActive, "c-1"))
	w.handle(ctx, &domain.Update{
		Kind:  domain.UpdateHook,
		State: &domain.State{Phase: domain.PhaseActive, CycleID: "c-1"},
		Hook:  &domain.HookResult{Name: "alert-send", Err: errors.New("webhook down")},
	})
	w.handle(ctx, &domain.Update{
		Kind:   domain.UpdateNotice,
		State:  &domain.State{Phase: domain.PhaseActive, CycleID: "c-1"},
		Notice: &domain.Notice{Level: domain.NoticeError, Message: "Emergency step alert-send failed"},
	})

	require.Equal(t, []string{"c-1"}, a.cycles)
	require.Zero(t, a.stops)

	w.handle(ctx, update(domain.UpdateReset, domain.PhaseIdle, "c-1"))
	require.Equal(t, 1, a.stops)

	// Silencing twice does nothing.
	w.handle(ctx, update(domain.UpdateSnapshot, domain.PhaseIdle, "c-1"))
	require.Equal(t, 1, a.stops)
}

// TestWatcher_Reconnects reopens lost streams after the retry interval.
func TestWatcher_Reconnects(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		a := new(fakeAlarm)
		w := &watcher{alarm: a}

		var (
			mu    sync.Mutex
			opens []time.Duration
		)

		start := time.Now()
		open := func(ctx context.Context) (receiver, error) {
			mu.Lock()
			defer mu.Unlock()

			opens = append(opens, time.Since(start))

			switch len(opens) {
			case 1:
				return nil, errors.New("connection refused")
			case 2:
				return &scriptedStream{
					updates: []*domain.Update{update(domain.UpdateSnapshot, domain.PhaseActive, "c-9")},
					end:     io.ErrUnexpectedEOF,
				}, nil
			default:
				return &scriptedStream{ctx: ctx}, nil
			}
		}

		done := make(chan error, 1)

		go func() {
			done <- w.loop(ctx, 5*time.Second, open)
		}()

		time.Sleep(11 * time.Second)
		synctest.Wait()

		mu.Lock()
		require.Equal(t, []time.Duration{0, 5 * time.Second, 10 * time.Second}, opens)
		mu.Unlock()

		require.Equal(t, []string{"c-9"}, a.cycles)

		cancel()
		require.NoError(t, <-done)

		// The siren is silenced on exit.
		require.Equal(t, 1, a.stops)
	})
}

// TestWatcher_NoAlarm ignores phases without a local alarm.
func TestWatcher_NoAlarm(t *testing.T) {
	t.Parallel()

	w := new(watcher)
	w.handle(context.Background(), update(domain.UpdateActivated, domain.PhaseActive, "c-1"))
	require.Empty(t, w.sounding)
}

// TestWatcher_HookUpdates logs hook results, including updates that carry none.
func TestWatcher_HookUpdates(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.DebugLevel)
	ctx := logger.ToContext(context.Background(), zap.New(core).Sugar())

	a := new(fakeAlarm)
	w := &watcher{alarm: a}

	bare := update(domain.UpdateHook, domain.PhaseActive, "c-1")
	require.NotPanics(t, func() { w.handle(ctx, bare) })

	failed := update(domain.UpdateHook, domain.PhaseActive, "c-1")
	failed.Hook = &domain.HookResult{Name: "alert-send", Err: errors.New("webhook down")}
	w.handle(ctx, failed)

	done := update(domain.UpdateHook, domain.PhaseActive, "c-1")
	done.Hook = &domain.HookResult{Name: "alarm-activate"}
	w.handle(ctx, done)

	entries := logs.FilterMessageSnippet("Emergency step").All()
	require.Len(t, entries, 3)
	require.Equal(t, zapcore.WarnLevel, entries[0].Level)
	require.Equal(t, "Emergency step update without a result", entries[0].Message)
	require.Equal(t, "Emergency step failed", entries[1].Message)
	require.Equal(t, "Emergency step done", entries[2].Message)
}

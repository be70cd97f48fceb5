package instance

import (
	"context"
	"errors"
	"testing"

	"github.com/mitchellh/go-ps"
	"github.com/stretchr/testify/require"
)

// fakeProcess implements ps.Process.
type fakeProcess struct {
	pid  int
	name string
}

func (p fakeProcess) Pid() int           { return p.pid }
func (p fakeProcess) PPid() int          { return 1 }
func (p fakeProcess) Executable() string { return p.name }

// newTestGuard returns a guard over a fixed process table.
func newTestGuard(self int, processes ...ps.Process) *Guard {
	return &Guard{
		executable: "sos-server",
		pid:        self,
		processes: func() ([]ps.Process, error) {
			return processes, nil
		},
	}
}

func TestGuard_Check(t *testing.T) {
	t.Parallel()

	alone := newTestGuard(10,
		fakeProcess{pid: 1, name: "init"},
		fakeProcess{pid: 10, name: "sos-server"},
		fakeProcess{pid: 11, name: "sos-watcher"})
	require.NoError(t, alone.Check(context.Background()))

	twice := newTestGuard(10,
		fakeProcess{pid: 10, name: "sos-server"},
		fakeProcess{pid: 42, name: "sos-server"})

	err := twice.Check(context.Background())
	require.ErrorIs(t, err, ErrAlreadyRunning)
	require.ErrorContains(t, err, "pid 42")
}

func TestGuard_ListError(t *testing.T) {
	t.Parallel()

	g := &Guard{
		executable: "sos-server",
		processes: func() ([]ps.Process, error) {
			return nil, errors.New("no procfs")
		},
	}

	require.ErrorContains(t, g.Check(context.Background()), "no procfs")
}

func TestNewGuard_RealProcessTable(t *testing.T) {
	t.Parallel()

	// No other process is named like this.
	require.NoError(t, NewGuard("sos-button-guard-test").Check(context.Background()))
}

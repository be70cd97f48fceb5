// Package instance keeps a single copy of a binary running per host.
package instance

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/mitchellh/go-ps"

	"github.com/oshokin/sos-button/internal/logger"
)

// ErrAlreadyRunning is returned when another process with the same
// executable name is alive.
var ErrAlreadyRunning = errors.New("another instance is already running")

// Guard checks the host process table for copies of an executable.
type Guard struct {
	// executable is the process name to look for.
	executable string
	// pid is the process to ignore, normally our own.
	pid int
	// processes lists the host processes.
	processes func() ([]ps.Process, error)
}

// NewGuard creates a guard for the named executable. On Windows ".exe" is
// appended when missing.
func NewGuard(executable string) *Guard {
	return &Guard{
		executable: ExecutableName(executable),
		pid:        os.Getpid(),
		processes:  ps.Processes,
	}
}

// ExecutableName returns the platform process name of a binary.
func ExecutableName(base string) string {
	if strings.Contains(strings.ToLower(runtime.GOOS), "windows") &&
		!strings.EqualFold(filepath.Ext(base), ".exe") {
		return base + ".exe"
	}

	return base
}

// Check returns ErrAlreadyRunning with the pid of the first other process
// running the same executable.
func (g *Guard) Check(ctx context.Context) error {
	processList, err := g.processes()
	if err != nil {
		return fmt.Errorf("list processes: %w", err)
	}

	for _, process := range processList {
		if process.Pid() == g.pid {
			continue
		}

		if process.Executable() != g.executable {
			continue
		}

		logger.WarnKV(ctx, "Found another instance", "executable", g.executable, "pid", process.Pid())

		return fmt.Errorf("%w: %s (pid %d)", ErrAlreadyRunning, g.executable, process.Pid())
	}

	logger.DebugKV(ctx, "No other instance found", "executable", g.executable)

	return nil
}

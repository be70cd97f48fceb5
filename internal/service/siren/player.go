package siren

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"sync"

	domain "github.com/oshokin/sos-button/internal/domain/emergency"
	"github.com/oshokin/sos-button/internal/logger"
	"github.com/oshokin/sos-button/internal/service/hooks"
)

// ErrUnsupportedOS indicates there is no known player for the current OS.
var ErrUnsupportedOS = errors.New("unsupported operating system")

// PlayerCommand returns the command line that plays a WAV file
// using built-in tools:
// - Linux:   `aplay -q <file>`
// - macOS:   `afplay <file>`
// - Windows: PowerShell with System.Media.SoundPlayer.
func PlayerCommand(goos, path string) ([]string, error) {
	osName := strings.ToLower(goos)

	switch {
	case strings.Contains(osName, "linux"):
		return []string{"aplay", "-q", path}, nil
	case strings.Contains(osName, "darwin"):
		return []string{"afplay", path}, nil
	case strings.Contains(osName, "windows"):
		script := fmt.Sprintf("(New-Object Media.SoundPlayer '%s').PlaySync()", strings.ReplaceAll(path, "'", "''"))

		return []string{"powershell.exe", "-NoProfile", "-NonInteractive", "-Command", script}, nil
	default:
		return nil, fmt.Errorf("no siren player for %s: %w", goos, ErrUnsupportedOS)
	}
}

// Player is the alarm-activate hook.
type Player struct {
	// path is the siren WAV file.
	path string
	// command overrides the OS player; "{file}" is replaced with path.
	command []string

	mu  sync.Mutex
	cmd *exec.Cmd
}

// NewPlayer creates a player for the siren file. command may be empty to use
// the OS default player.
func NewPlayer(path string, command []string) *Player {
	return &Player{
		path:    path,
		command: command,
	}
}

// Name implements hooks.Hook.
func (p *Player) Name() string {
	return hooks.NameAlarmActivate
}

// Run renders the siren if needed and starts playing it. Playback continues
// after Run returns, until it ends or Stop is called.
func (p *Player) Run(ctx context.Context, _ *domain.Incident) error {
	if err := RenderFile(p.path, DefaultDuration); err != nil {
		return err
	}

	args, err := p.commandLine()
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cmd != nil {
		logger.Debug(ctx, "Siren is already playing")

		return nil
	}

	//nolint:gosec // The player comes from trusted configuration.
	cmd := exec.Command(args[0], args[1:]...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err = cmd.Start(); err != nil {
		return fmt.Errorf("start siren player %s: %w", args[0], err)
	}

	p.cmd = cmd

	logger.InfoKV(ctx, "Siren started", "player", args[0], "pid", cmd.Process.Pid)

	go p.wait(ctx, cmd)

	return nil
}

// Stop silences the siren if it is playing.
func (p *Player) Stop(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cmd == nil {
		return nil
	}

	err := p.cmd.Process.Kill()
	p.cmd = nil

	if err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("kill siren player: %w", err)
	}

	logger.Info(ctx, "Siren stopped")

	return nil
}

// Playing reports whether the player process is running.
func (p *Player) Playing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.cmd != nil
}

// wait reaps the player process and forgets it once it exits.
func (p *Player) wait(ctx context.Context, cmd *exec.Cmd) {
	err := cmd.Wait()

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cmd != cmd {
		return
	}

	p.cmd = nil

	if err != nil {
		logger.WarnKV(ctx, "Siren player exited", "error", err)
	}
}

// commandLine resolves the player command for the siren file.
func (p *Player) commandLine() ([]string, error) {
	if len(p.command) == 0 {
		return PlayerCommand(runtime.GOOS, p.path)
	}

	args := make([]string, 0, len(p.command))
	replaced := false

	for _, arg := range p.command {
		if strings.Contains(arg, "{file}") {
			arg = strings.ReplaceAll(arg, "{file}", p.path)
			replaced = true
		}

		args = append(args, arg)
	}

	if !replaced {
		args = append(args, p.path)
	}

	return args, nil
}

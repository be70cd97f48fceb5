package server

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/sos-button/internal/config"
	domain "github.com/oshokin/sos-button/internal/domain/emergency"
	repo "github.com/oshokin/sos-button/internal/repository/state"
	"github.com/oshokin/sos-button/internal/service/hooks"
)

var errTestLoad = errors.New("test load error")

// memoryRepository is a minimal in-memory Repository implementation for tests.
type memoryRepository struct {
	mu sync.Mutex
	// state is the emergency state to return from Load operations.
	state *domain.State
	// loadErr is the error to return from Load operations.
	loadErr error
	// saved stores the last state passed to Save operations.
	saved *domain.State
}

// Load retrieves the current state from the memory repository.
func (m *memoryRepository) Load(context.Context) (*domain.State, error) {
	return m.state, m.loadErr
}

// Save stores the provided domain.State in memory.
func (m *memoryRepository) Save(_ context.Context, s *domain.State) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.saved = s

	return nil
}

func (m *memoryRepository) lastSaved() *domain.State {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.saved
}

// TestNewService_LoadsStateOrDefaults asserts newService behavior on existing, missing, and error states.
func TestNewService_LoadsStateOrDefaults(t *testing.T) {
	t.Parallel()

	// Existing active state survives a restart.
	old := &domain.State{
		Phase:     domain.PhaseActive,
		CycleID:   "c-1",
		UpdatedAt: time.Unix(100, 0),
		LastActor: &domain.Actor{
			Hostname: "Oleg Shokin",
			Username: "o.shokin",
		},
	}

	s, err := newService(context.Background(), &memoryRepository{state: old}, nil)
	require.NoError(t, err)
	require.Equal(t, domain.PhaseActive, s.State().Phase)
	require.Equal(t, old.LastActor, s.State().LastActor)
	require.NoError(t, s.Close())

	// Not found -> default.
	s, err = newService(context.Background(), &memoryRepository{loadErr: repo.ErrNotFound}, nil)
	require.NoError(t, err)
	require.Equal(t, domain.PhaseIdle, s.State().Phase)
	require.NoError(t, s.Close())

	// Other error.
	s, err = newService(context.Background(), &memoryRepository{loadErr: errTestLoad}, nil)
	require.ErrorIs(t, err, errTestLoad)
	require.Nil(t, s)
}

// TestService_StartAndCancel verifies requests are persisted and actors cloned.
func TestService_StartAndCancel(t *testing.T) {
	t.Parallel()

	memory := new(memoryRepository)

	s, err := newService(context.Background(), memory, nil)
	require.NoError(t, err)

	defer s.Close()

	actor := &domain.Actor{
		Hostname: "Oleg Shokin",
		Username: "o.shokin",
	}

	result, err := s.Start(context.Background(), actor)
	require.NoError(t, err)
	require.Equal(t, domain.PhaseCountingDown, result.Phase)
	require.NotSame(t, actor, result.LastActor)
	require.Equal(t, domain.PhaseCountingDown, memory.lastSaved().Phase)

	result, err = s.Cancel(context.Background(), actor)
	require.NoError(t, err)
	require.Equal(t, domain.PhaseCancelled, result.Phase)
	require.Equal(t, domain.PhaseCancelled, memory.lastSaved().Phase)
}

// TestNewHooks checks the activation hooks and their order.
func TestNewHooks(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	settings := &config.Config{
		ServerAddress: "127.0.0.1:8080",
		EvidenceDir:   filepath.Join(dir, "evidence"),
		SirenFile:     filepath.Join(dir, "siren.wav"),
	}
	require.NoError(t, config.Validate(settings))

	dispatcher, err := newHooks(settings)
	require.NoError(t, err)
	require.Equal(t, []string{
		hooks.NameLocationShare,
		hooks.NameRecordingStart,
		hooks.NameAlertSend,
		hooks.NameAlarmActivate,
	}, dispatcher.Names())
}

// TestResolveListenAddress covers override, config port and errors.
func TestResolveListenAddress(t *testing.T) {
	t.Parallel()

	addr, err := resolveListenAddress("sos.example.com:8080", "")
	require.NoError(t, err)
	require.Equal(t, ":8080", addr)

	addr, err = resolveListenAddress("sos.example.com:8080", "127.0.0.1:9090")
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:9090", addr)

	_, err = resolveListenAddress("", "")
	require.ErrorIs(t, err, ErrNoServerAddress)

	_, err = resolveListenAddress("no-port", "")
	require.Error(t, err)
}

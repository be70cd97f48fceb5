package state

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	domain "github.com/oshokin/sos-button/internal/domain/emergency"
)

// TestFileRepository_NotFound verifies Load returns ErrNotFound for missing file.
func TestFileRepository_NotFound(t *testing.T) {
	t.Parallel()
	repo := NewFileRepository(filepath.Join(t.TempDir(), "missing.json"))
	s, err := repo.Load(context.Background())
	require.ErrorIs(t, err, ErrNotFound)
	require.Nil(t, s)
}

// TestFileRepository_SaveLoad_Roundtrip ensures Save followed by Load returns equal state.
func TestFileRepository_SaveLoad_Roundtrip(t *testing.T) {
	t.Parallel()
	file := filepath.Join(t.TempDir(), "state.json")
	repo := NewFileRepository(file)
	require.Equal(t, file, repo.Path())

	ts := time.Now().UTC().Truncate(time.Second)
	want := &domain.State{
		Phase:     domain.PhaseActive,
		CycleID:   "b7e2",
		UpdatedAt: ts,
		LastActor: &domain.Actor{
			Hostname: "kitchen-laptop",
			Username: "jane",
		},
		Hooks: []domain.HookResult{
			{Name: "recording-start", StartedAt: ts},
			{Name: "alert-send", StartedAt: ts, Err: errors.New("slack: 404")},
		},
	}

	require.NoError(t, repo.Save(context.Background(), want))

	got, err := repo.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, want.Phase, got.Phase)
	require.Equal(t, want.CycleID, got.CycleID)
	require.Zero(t, got.SecondsRemaining)
	require.Equal(t, want.UpdatedAt.Unix(), got.UpdatedAt.Unix())
	require.Equal(t, want.LastActor, got.LastActor)
	require.Len(t, got.Hooks, 2)
	require.EqualError(t, got.Hooks[1].Err, "slack: 404")

	_, err = os.Stat(file)
	require.NoError(t, err)

	// No temporary file is left behind.
	_, err = os.Stat(file + ".tmp")
	require.ErrorIs(t, err, os.ErrNotExist)
}

// TestFileRepository_Corrupted verifies decode failures are reported.
func TestFileRepository_Corrupted(t *testing.T) {
	t.Parallel()

	file := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(file, []byte("{not json"), 0o600))

	_, err := NewFileRepository(file).Load(context.Background())
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrNotFound)

	require.NoError(t, os.WriteFile(file, []byte(`{"phase": "exploded"}`), 0o600))

	_, err = NewFileRepository(file).Load(context.Background())
	require.Error(t, err)
}

package recording

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/oshokin/sos-button/internal/config"
	domain "github.com/oshokin/sos-button/internal/domain/emergency"
	"github.com/oshokin/sos-button/internal/logger"
	"github.com/oshokin/sos-button/internal/service/hooks"
)

// ErrAlreadyRecording is returned when a session is already open.
var ErrAlreadyRecording = errors.New("recording session already open")

// Media kinds captured by a session.
const (
	MediaAudio = "audio"
	MediaVideo = "video"
)

// Session is an evidence recording session.
type Session struct {
	ID        string     `yaml:"id"`
	CycleID   string     `yaml:"cycle_id"`
	Actor     string     `yaml:"actor"`
	Media     []string   `yaml:"media"`
	StartedAt time.Time  `yaml:"started_at"`
	StoppedAt *time.Time `yaml:"stopped_at,omitempty"`
}

// Recorder is the recording-start activation hook.
type Recorder struct {
	// dir is where manifests are written.
	dir string
	// active is the open session, if any.
	active *Session
	// mu protects active.
	mu sync.Mutex

	now   func() time.Time
	newID func() string
}

// NewRecorder creates a recorder writing manifests into dir.
func NewRecorder(dir string) *Recorder {
	return &Recorder{
		dir:   filepath.Clean(dir),
		now:   time.Now,
		newID: uuid.NewString,
	}
}

// Name implements hooks.Hook.
func (r *Recorder) Name() string {
	return hooks.NameRecordingStart
}

// Run opens a new audio and video session for the incident.
func (r *Recorder) Run(ctx context.Context, incident *domain.Incident) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.active != nil {
		return fmt.Errorf("%w: %s", ErrAlreadyRecording, r.active.ID)
	}

	if err := os.MkdirAll(r.dir, config.DefaultDirPermissions); err != nil {
		return fmt.Errorf("create evidence directory: %w", err)
	}

	session := &Session{
		ID:        r.newID(),
		CycleID:   incident.CycleID,
		Actor:     incident.Actor.String(),
		Media:     []string{MediaAudio, MediaVideo},
		StartedAt: r.now().UTC(),
	}

	if err := r.write(session); err != nil {
		return err
	}

	r.active = session

	logger.InfoKV(ctx, "Evidence recording started", "session_id", session.ID, "manifest", r.manifestPath(session.ID))

	return nil
}

// Stop closes the open session, if any.
func (r *Recorder) Stop(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.active == nil {
		return nil
	}

	stoppedAt := r.now().UTC()
	r.active.StoppedAt = &stoppedAt

	if err := r.write(r.active); err != nil {
		return err
	}

	logger.InfoKV(ctx, "Evidence recording stopped",
		"session_id", r.active.ID,
		"duration", stoppedAt.Sub(r.active.StartedAt).String())

	r.active = nil

	return nil
}

// Active returns a copy of the open session, or nil.
func (r *Recorder) Active() *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.active == nil {
		return nil
	}

	cloned := *r.active

	return &cloned
}

// LoadSession reads a manifest written by a recorder.
func LoadSession(path string) (*Session, error) {
	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	var session Session
	if err = yaml.Unmarshal(contents, &session); err != nil {
		return nil, fmt.Errorf("unmarshal manifest: %w", err)
	}

	return &session, nil
}

// manifestPath returns where the manifest of a session is stored.
func (r *Recorder) manifestPath(id string) string {
	return filepath.Join(r.dir, id+".yaml")
}

// write stores the session manifest.
func (r *Recorder) write(session *Session) error {
	data, err := yaml.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}

	if err = os.WriteFile(r.manifestPath(session.ID), data, config.DefaultFilePermissions); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}

	return nil
}

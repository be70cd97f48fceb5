package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	api "github.com/oshokin/sos-button/internal/api/emergencyv1"
	domain "github.com/oshokin/sos-button/internal/domain/emergency"
	"github.com/oshokin/sos-button/internal/service/coordinator"
	"github.com/oshokin/sos-button/internal/version"
)

// fakeService records the actors of state-changing calls.
type fakeService struct {
	mu     sync.Mutex
	state  *domain.State
	actors []*domain.Actor
	err    error
}

func (f *fakeService) set(actor *domain.Actor, phase domain.Phase) (*domain.State, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}

	f.actors = append(f.actors, actor)
	f.state = &domain.State{Phase: phase, SecondsRemaining: domain.CountdownSeconds, LastActor: actor}

	return f.state.Clone(), nil
}

func (f *fakeService) Start(_ context.Context, actor *domain.Actor) (*domain.State, error) {
	return f.set(actor, domain.PhaseCountingDown)
}

func (f *fakeService) Cancel(_ context.Context, actor *domain.Actor) (*domain.State, error) {
	return f.set(actor, domain.PhaseCancelled)
}

func (f *fakeService) Reset(_ context.Context, actor *domain.Actor) (*domain.State, error) {
	return f.set(actor, domain.PhaseIdle)
}

func (f *fakeService) State() *domain.State {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state == nil {
		return domain.NewState()
	}

	return f.state.Clone()
}

// do sends a request through the server router.
func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()

	s.Handler.ServeHTTP(rec, req)

	return rec
}

// decodeState parses a state document.
func decodeState(t *testing.T, rec *httptest.ResponseRecorder) *domain.State {
	t.Helper()

	var doc structpb.Struct
	require.NoError(t, protojson.Unmarshal(rec.Body.Bytes(), &doc))

	state, err := api.StateFromStruct(&doc)
	require.NoError(t, err)

	return state
}

func TestHealth(t *testing.T) {
	t.Parallel()

	s := NewServer(context.Background(), ":0", new(fakeService))

	rec := do(t, s, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, version.UserAgent(), rec.Header().Get("Server"))

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "healthy", body["status"])
}

func TestEmergencyRoutes(t *testing.T) {
	t.Parallel()

	svc := new(fakeService)
	s := NewServer(context.Background(), ":0", svc)

	rec := do(t, s, http.MethodGet, "/api/emergency", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, domain.PhaseIdle, decodeState(t, rec).Phase)

	rec = do(t, s, http.MethodPost, "/api/emergency/start", `{"hostname":"phone","username":"jane"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	state := decodeState(t, rec)
	require.Equal(t, domain.PhaseCountingDown, state.Phase)
	require.Equal(t, &domain.Actor{Hostname: "phone", Username: "jane"}, state.LastActor)

	// An empty body names the remote address.
	rec = do(t, s, http.MethodPost, "/api/emergency/cancel", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, domain.PhaseCancelled, decodeState(t, rec).Phase)
	require.Equal(t, &domain.Actor{Hostname: "192.0.2.1", Username: webUsername}, svc.actors[1])

	rec = do(t, s, http.MethodPost, "/api/emergency/reset", "{}")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, domain.PhaseIdle, decodeState(t, rec).Phase)

	rec = do(t, s, http.MethodPost, "/api/emergency/start", "{not json")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, s, http.MethodGet, "/api/emergency/start", "")
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestEmergencyRoutes_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "closed", err: coordinator.ErrClosed, want: http.StatusServiceUnavailable},
		{name: "other", err: errors.New("boom"), want: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s := NewServer(context.Background(), ":0", &fakeService{err: tt.err})

			rec := do(t, s, http.MethodPost, "/api/emergency/start", "")
			require.Equal(t, tt.want, rec.Code)
			require.Contains(t, rec.Body.String(), "error")
		})
	}
}

func TestRemoteHost(t *testing.T) {
	t.Parallel()

	require.Equal(t, "10.0.0.5", remoteHost("10.0.0.5:5555"))
	require.Equal(t, "::1", remoteHost("[::1]:80"))
	require.Equal(t, "garbage", remoteHost("garbage"))
}

package integration

import (
	"context"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/sos-button/internal/config"
	"github.com/oshokin/sos-button/internal/service/server"
)

// testServer is a live sos-server started for one test.
type testServer struct {
	addr       string
	httpAddr   string
	configPath string
	statePath  string
	dir        string
}

// reservePort returns a free loopback address.
func reservePort(t *testing.T) string {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	addr := l.Addr().String()
	_ = l.Close()

	return addr
}

// startServer starts a server with temporary config, state and evidence
// locations. The siren player is replaced by a no-op command.
func startServer(t *testing.T) *testServer {
	t.Helper()

	dir := t.TempDir()
	srv := &testServer{
		addr:       reservePort(t),
		httpAddr:   reservePort(t),
		configPath: filepath.Join(dir, "settings.yaml"),
		statePath:  filepath.Join(dir, "state.json"),
		dir:        dir,
	}

	require.NoError(t, config.Save(srv.configPath, &config.Config{
		ServerAddress: srv.addr,
		HTTPAddress:   srv.httpAddr,
		StateFile:     srv.statePath,
		Timeout:       3 * time.Second,
		HookTimeout:   2 * time.Second,
		EvidenceDir:   filepath.Join(dir, "evidence"),
		SirenFile:     filepath.Join(dir, "siren.wav"),
		SirenCommand:  []string{"true"},
		Location:      config.Location{Latitude: 40.7128, Longitude: -74.006, Accuracy: 25},
		Contacts:      []config.Contact{{Name: "Mom", Relation: "Mother", Priority: "high"}},
	}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() {
		done <- server.Run(ctx, &server.Options{
			ConfigPath:    srv.configPath,
			ListenAddress: srv.addr,
			AllowMultiple: true,
		})
	}()

	// Wait briefly for server to start listening.
	time.Sleep(150 * time.Millisecond)

	t.Cleanup(func() {
		cancel()

		select {
		case err := <-done:
			require.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Error("server did not stop")
		}
	})

	return srv
}

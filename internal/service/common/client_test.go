//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/sos-button/internal/config"
)

// TestDial_ValidatesAddress verifies that Dial rejects empty addresses.
func TestDial_ValidatesAddress(t *testing.T) {
	t.Parallel()

	c, err := Dial(context.Background(), "")
	require.Error(t, err)
	require.Nil(t, c)
}

// TestClient_callContext checks timeout vs cancel-only behavior of callContext.
func TestClient_callContext(t *testing.T) {
	t.Parallel()

	c := &Client{
		callTimeout: 0,
	}

	ctx, cancel := c.callContext(context.Background())
	cancel()

	require.NotNil(t, ctx)

	c.callTimeout = 10 * time.Millisecond

	ctx, cancel = c.callContext(context.Background())
	defer cancel()

	deadline, ok := ctx.Deadline()
	require.True(t, ok)
	require.WithinDuration(t, time.Now().Add(10*time.Millisecond), deadline, 30*time.Millisecond)
}

// TestChange_NilActor asserts that a nil actor is rejected by the client.
func TestChange_NilActor(t *testing.T) {
	t.Parallel()

	c := new(Client)

	_, err := c.Start(context.Background(), nil)
	require.ErrorIs(t, err, errActorRequired)

	_, err = c.Cancel(context.Background(), nil)
	require.ErrorIs(t, err, errActorRequired)

	_, err = c.Reset(context.Background(), nil)
	require.ErrorIs(t, err, errActorRequired)
}

// TestDial_DefaultTimeout checks the default and overridden call timeout.
func TestDial_DefaultTimeout(t *testing.T) {
	t.Parallel()

	c, err := Dial(context.Background(), "127.0.0.1:1")
	require.NoError(t, err)
	require.Equal(t, config.DefaultTimeout, c.callTimeout)
	require.NoError(t, c.Close())

	c, err = Dial(context.Background(), "127.0.0.1:1", WithCallTimeout(time.Second), WithCallTimeout(-1))
	require.NoError(t, err)
	require.Equal(t, time.Second, c.callTimeout)
	require.NoError(t, c.Close())
}

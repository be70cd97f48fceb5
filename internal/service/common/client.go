//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	api "github.com/oshokin/sos-button/internal/api/emergencyv1"
	"github.com/oshokin/sos-button/internal/config"
	domain "github.com/oshokin/sos-button/internal/domain/emergency"
	"github.com/oshokin/sos-button/internal/version"
)

// Client wraps the gRPC EmergencyService client with convenience helpers.
type Client struct {
	// conn is the underlying gRPC connection to the emergency server.
	conn *grpc.ClientConn
	// api is the EmergencyService client interface.
	api api.EmergencyServiceClient

	// callTimeout is the default timeout for individual RPC calls.
	callTimeout time.Duration
}

// Option configures client behaviour.
type Option func(*Client)

// WithCallTimeout sets a default timeout for service calls.
func WithCallTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.callTimeout = timeout
		}
	}
}

var (
	// errAddressRequired is returned when a required address value is missing.
	errAddressRequired = errors.New("address must be provided")
	// errActorRequired is returned when an actor is not provided but is required for the operation.
	errActorRequired = errors.New("actor must be provided")
)

// Dial establishes a gRPC connection to the emergency server.
// Note: this uses insecure transport credentials; deploy on a trusted network
// or terminate TLS in a proxy until native TLS is added.
func Dial(_ context.Context, address string, opts ...Option) (*Client, error) {
	if address == "" {
		return nil, errAddressRequired
	}

	conn, err := grpc.NewClient(address,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUserAgent(version.UserAgent()))
	if err != nil {
		return nil, fmt.Errorf("dial emergency server: %w", err)
	}

	client := &Client{
		conn:        conn,
		api:         api.NewEmergencyServiceClient(conn),
		callTimeout: config.DefaultTimeout,
	}

	for _, opt := range opts {
		opt(client)
	}

	return client, nil
}

// Close releases the underlying gRPC connection.
func (c *Client) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}

	return c.conn.Close()
}

// GetState retrieves the current emergency state.
func (c *Client) GetState(ctx context.Context) (*domain.State, error) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	resp, err := c.api.GetState(callCtx, new(emptypb.Empty))
	if err != nil {
		return nil, fmt.Errorf("get emergency state: %w", err)
	}

	return api.StateFromStruct(resp)
}

// Start asks the server to arm the countdown.
func (c *Client) Start(ctx context.Context, actor *domain.Actor) (*domain.State, error) {
	return c.change(ctx, "start", actor, c.api.Start)
}

// Cancel asks the server to abort the countdown.
func (c *Client) Cancel(ctx context.Context, actor *domain.Actor) (*domain.State, error) {
	return c.change(ctx, "cancel", actor, c.api.Cancel)
}

// Reset asks the server to leave the active phase.
func (c *Client) Reset(ctx context.Context, actor *domain.Actor) (*domain.State, error) {
	return c.change(ctx, "reset", actor, c.api.Reset)
}

// Watch opens an update stream. The stream lives until ctx is done, so the
// call timeout does not apply.
func (c *Client) Watch(ctx context.Context) (*Stream, error) {
	stream, err := c.api.Watch(ctx, new(emptypb.Empty))
	if err != nil {
		return nil, fmt.Errorf("watch emergency: %w", err)
	}

	return &Stream{stream: stream}, nil
}

// Stream yields emergency updates.
type Stream struct {
	stream grpc.ServerStreamingClient[structpb.Struct]
}

// Recv blocks until the next update arrives.
func (s *Stream) Recv() (*domain.Update, error) {
	msg, err := s.stream.Recv()
	if err != nil {
		return nil, err
	}

	update, err := api.UpdateFromStruct(msg)
	if err != nil {
		return nil, fmt.Errorf("decode update: %w", err)
	}

	return update, nil
}

// change runs a state-changing call.
func (c *Client) change(
	ctx context.Context,
	operation string,
	actor *domain.Actor,
	call func(context.Context, *structpb.Struct, ...grpc.CallOption) (*structpb.Struct, error),
) (*domain.State, error) {
	if actor == nil {
		return nil, errActorRequired
	}

	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	response, err := call(callCtx, api.NewActorRequest(actor))
	if err != nil {
		return nil, fmt.Errorf("%s emergency: %w", operation, err)
	}

	return api.StateFromStruct(response)
}

// callContext returns a context with the client's call timeout if configured,
// otherwise a cancellable child context without a deadline.
func (c *Client) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.callTimeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, c.callTimeout)
}

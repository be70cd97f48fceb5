package emergency

import (
	"context"
	"errors"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	api "github.com/oshokin/sos-button/internal/api/emergencyv1"
	domain "github.com/oshokin/sos-button/internal/domain/emergency"
	"github.com/oshokin/sos-button/internal/logger"
	"github.com/oshokin/sos-button/internal/service/coordinator"
)

// watchBuffer is the number of updates a watcher may lag behind.
const watchBuffer = 32

// Service abstracts the business operations the transport layer depends on.
type Service interface {
	Start(ctx context.Context, actor *domain.Actor) (*domain.State, error)
	Cancel(ctx context.Context, actor *domain.Actor) (*domain.State, error)
	Reset(ctx context.Context, actor *domain.Actor) (*domain.State, error)
	State() *domain.State
	Subscribe(buffer int) (<-chan domain.Update, func())
}

// Server implements the EmergencyService gRPC API.
type Server struct {
	// service provides the business logic for emergency operations.
	service Service
}

var _ api.EmergencyServiceServer = (*Server)(nil)

// NewServer wires the provided service implementation into a gRPC handler.
func NewServer(service Service) *Server {
	return &Server{
		service: service,
	}
}

// Start arms the countdown.
func (s *Server) Start(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return s.call(ctx, req, "start", s.service.Start)
}

// Cancel aborts the countdown.
func (s *Server) Cancel(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return s.call(ctx, req, "cancel", s.service.Cancel)
}

// Reset leaves the active phase.
func (s *Server) Reset(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return s.call(ctx, req, "reset", s.service.Reset)
}

// GetState returns the current emergency state.
func (s *Server) GetState(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	state := s.service.State()

	logger.DebugKV(ctx, "Emergency state requested", "phase", state.Phase.String())

	return api.StateToStruct(state), nil
}

// Watch sends a snapshot followed by every update until the client leaves
// or the service shuts down.
func (s *Server) Watch(_ *emptypb.Empty, stream grpc.ServerStreamingServer[structpb.Struct]) error {
	ctx := stream.Context()

	updates, unsubscribe := s.service.Subscribe(watchBuffer)
	defer unsubscribe()

	snapshot := &domain.Update{
		Kind:  domain.UpdateSnapshot,
		State: s.service.State(),
	}
	snapshot.At = snapshot.State.UpdatedAt

	if err := stream.Send(api.UpdateToStruct(snapshot)); err != nil {
		return err
	}

	logger.Debug(ctx, "Watcher connected")

	for {
		select {
		case <-ctx.Done():
			logger.Debug(ctx, "Watcher disconnected")

			return nil
		case update, ok := <-updates:
			if !ok {
				return status.Error(codes.Unavailable, "service is shutting down")
			}

			if err := stream.Send(api.UpdateToStruct(&update)); err != nil {
				return err
			}
		}
	}
}

// call validates the actor and runs a state-changing operation.
func (s *Server) call(
	ctx context.Context,
	req *structpb.Struct,
	operation string,
	fn func(context.Context, *domain.Actor) (*domain.State, error),
) (*structpb.Struct, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	actor, err := api.ActorFromRequest(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	state, err := fn(ctx, actor)
	if err != nil {
		if errors.Is(err, coordinator.ErrClosed) {
			return nil, status.Error(codes.Unavailable, "service is shutting down")
		}

		logger.ErrorKV(ctx, "Emergency request failed", "operation", operation, "error", err)

		return nil, status.Errorf(codes.Internal, "unable to %s", operation)
	}

	logger.InfoKV(ctx, "Emergency request handled",
		"operation", operation,
		"actor", actor,
		"phase", state.Phase.String(),
		"seconds_remaining", state.SecondsRemaining)

	return api.StateToStruct(state), nil
}

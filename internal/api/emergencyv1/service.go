package emergencyv1

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully-qualified gRPC service name.
const ServiceName = "sosbutton.v1.EmergencyService"

// Full method names.
const (
	StartFullMethodName    = "/" + ServiceName + "/Start"
	CancelFullMethodName   = "/" + ServiceName + "/Cancel"
	ResetFullMethodName    = "/" + ServiceName + "/Reset"
	GetStateFullMethodName = "/" + ServiceName + "/GetState"
	WatchFullMethodName    = "/" + ServiceName + "/Watch"
)

// EmergencyServiceServer is the server API for the emergency service.
type EmergencyServiceServer interface {
	// Start arms the countdown. The request carries {"actor": {...}}.
	Start(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	// Cancel aborts an armed countdown.
	Cancel(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	// Reset leaves the active phase.
	Reset(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	// GetState returns the current state.
	GetState(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error)
	// Watch streams updates until the client goes away.
	Watch(req *emptypb.Empty, stream grpc.ServerStreamingServer[structpb.Struct]) error
}

// structMethod is a unary call taking and returning a Struct.
type structMethod func(srv EmergencyServiceServer, ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)

// structHandler adapts a structMethod to a grpc.MethodHandler.
func structHandler(fullMethod string, call structMethod) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}

		if interceptor == nil {
			return call(srv.(EmergencyServiceServer), ctx, in) //nolint:forcetypeassert // Registered type.
		}

		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: fullMethod,
		}

		handler := func(ctx context.Context, req any) (any, error) {
			//nolint:forcetypeassert // Registered types.
			return call(srv.(EmergencyServiceServer), ctx, req.(*structpb.Struct))
		}

		return interceptor(ctx, in, info, handler)
	}
}

// getStateHandler is the grpc.MethodHandler for GetState.
func getStateHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}

	if interceptor == nil {
		return srv.(EmergencyServiceServer).GetState(ctx, in) //nolint:forcetypeassert // Registered type.
	}

	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: GetStateFullMethodName,
	}

	handler := func(ctx context.Context, req any) (any, error) {
		//nolint:forcetypeassert // Registered types.
		return srv.(EmergencyServiceServer).GetState(ctx, req.(*emptypb.Empty))
	}

	return interceptor(ctx, in, info, handler)
}

// watchHandler is the grpc.StreamHandler for Watch.
func watchHandler(srv any, stream grpc.ServerStream) error {
	in := new(emptypb.Empty)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}

	//nolint:forcetypeassert // Registered type.
	return srv.(EmergencyServiceServer).Watch(in, &grpc.GenericServerStream[emptypb.Empty, structpb.Struct]{
		ServerStream: stream,
	})
}

// ServiceDesc is the grpc.ServiceDesc for the emergency service.
//
//nolint:gochecknoglobals // Descriptors are package-level by gRPC convention.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*EmergencyServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Start",
			Handler:    structHandler(StartFullMethodName, EmergencyServiceServer.Start),
		},
		{
			MethodName: "Cancel",
			Handler:    structHandler(CancelFullMethodName, EmergencyServiceServer.Cancel),
		},
		{
			MethodName: "Reset",
			Handler:    structHandler(ResetFullMethodName, EmergencyServiceServer.Reset),
		},
		{
			MethodName: "GetState",
			Handler:    getStateHandler,
		},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Watch",
			Handler:       watchHandler,
			ServerStreams: true,
		},
	},
	Metadata: "sosbutton/v1/emergency.proto",
}

// RegisterEmergencyServiceServer registers srv on the provided registrar.
func RegisterEmergencyServiceServer(s grpc.ServiceRegistrar, srv EmergencyServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// EmergencyServiceClient is the client API for the emergency service.
type EmergencyServiceClient interface {
	Start(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	Cancel(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	Reset(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	GetState(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error)
	Watch(
		ctx context.Context,
		in *emptypb.Empty,
		opts ...grpc.CallOption,
	) (grpc.ServerStreamingClient[structpb.Struct], error)
}

// emergencyServiceClient implements EmergencyServiceClient over a connection.
type emergencyServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewEmergencyServiceClient returns a client bound to cc.
//
//nolint:ireturn // Mirrors the shape of generated gRPC clients.
func NewEmergencyServiceClient(cc grpc.ClientConnInterface) EmergencyServiceClient {
	return &emergencyServiceClient{cc: cc}
}

func (c *emergencyServiceClient) invokeStruct(
	ctx context.Context,
	method string,
	in *structpb.Struct,
	opts ...grpc.CallOption,
) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}

	return out, nil
}

// Start calls EmergencyService.Start.
func (c *emergencyServiceClient) Start(
	ctx context.Context,
	in *structpb.Struct,
	opts ...grpc.CallOption,
) (*structpb.Struct, error) {
	return c.invokeStruct(ctx, StartFullMethodName, in, opts...)
}

// Cancel calls EmergencyService.Cancel.
func (c *emergencyServiceClient) Cancel(
	ctx context.Context,
	in *structpb.Struct,
	opts ...grpc.CallOption,
) (*structpb.Struct, error) {
	return c.invokeStruct(ctx, CancelFullMethodName, in, opts...)
}

// Reset calls EmergencyService.Reset.
func (c *emergencyServiceClient) Reset(
	ctx context.Context,
	in *structpb.Struct,
	opts ...grpc.CallOption,
) (*structpb.Struct, error) {
	return c.invokeStruct(ctx, ResetFullMethodName, in, opts...)
}

// GetState calls EmergencyService.GetState.
func (c *emergencyServiceClient) GetState(
	ctx context.Context,
	in *emptypb.Empty,
	opts ...grpc.CallOption,
) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, GetStateFullMethodName, in, out, opts...); err != nil {
		return nil, err
	}

	return out, nil
}

// Watch opens the EmergencyService.Watch stream.
func (c *emergencyServiceClient) Watch(
	ctx context.Context,
	in *emptypb.Empty,
	opts ...grpc.CallOption,
) (grpc.ServerStreamingClient[structpb.Struct], error) {
	stream, err := c.cc.NewStream(ctx, &ServiceDesc.Streams[0], WatchFullMethodName, opts...)
	if err != nil {
		return nil, err
	}

	x := &grpc.GenericClientStream[emptypb.Empty, structpb.Struct]{ClientStream: stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}

	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}

	return x, nil
}

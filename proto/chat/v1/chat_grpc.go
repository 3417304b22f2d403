package chatv1

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
)

const (
	RoomService_Register_FullMethodName     = "/chat.v1.RoomService/Register"
	RoomService_Login_FullMethodName        = "/chat.v1.RoomService/Login"
	RoomService_GetGate_FullMethodName      = "/chat.v1.RoomService/GetGate"
	RoomService_ConfirmLevel_FullMethodName = "/chat.v1.RoomService/ConfirmLevel"
	RoomService_SendMessage_FullMethodName  = "/chat.v1.RoomService/SendMessage"
	RoomService_JoinRoom_FullMethodName     = "/chat.v1.RoomService/JoinRoom"
)

// RoomServiceClient is the client API for RoomService.
type RoomServiceClient interface {
	Register(ctx context.Context, in *RegisterRequest, opts ...grpc.CallOption) (*RegisterResponse, error)
	Login(ctx context.Context, in *LoginRequest, opts ...grpc.CallOption) (*LoginResponse, error)
	GetGate(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*GateStatus, error)
	ConfirmLevel(ctx context.Context, in *ConfirmLevelRequest, opts ...grpc.CallOption) (*GateStatus, error)
	SendMessage(ctx context.Context, in *SendMessageRequest, opts ...grpc.CallOption) (*SendMessageResponse, error)
	// JoinRoom streams a snapshot of the caller's room on every change.
	JoinRoom(ctx context.Context, in *JoinRoomRequest, opts ...grpc.CallOption) (grpc.ServerStreamingClient[RoomSnapshot], error)
}

type roomServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewRoomServiceClient(cc grpc.ClientConnInterface) RoomServiceClient {
	return &roomServiceClient{cc}
}

func callOpts(opts []grpc.CallOption) []grpc.CallOption {
	return append([]grpc.CallOption{grpc.StaticMethod(), grpc.CallContentSubtype(Codec)}, opts...)
}

func (c *roomServiceClient) Register(ctx context.Context, in *RegisterRequest, opts ...grpc.CallOption) (*RegisterResponse, error) {
	out := new(RegisterResponse)
	if err := c.cc.Invoke(ctx, RoomService_Register_FullMethodName, in, out, callOpts(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *roomServiceClient) Login(ctx context.Context, in *LoginRequest, opts ...grpc.CallOption) (*LoginResponse, error) {
	out := new(LoginResponse)
	if err := c.cc.Invoke(ctx, RoomService_Login_FullMethodName, in, out, callOpts(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *roomServiceClient) GetGate(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*GateStatus, error) {
	out := new(GateStatus)
	if err := c.cc.Invoke(ctx, RoomService_GetGate_FullMethodName, in, out, callOpts(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *roomServiceClient) ConfirmLevel(ctx context.Context, in *ConfirmLevelRequest, opts ...grpc.CallOption) (*GateStatus, error) {
	out := new(GateStatus)
	if err := c.cc.Invoke(ctx, RoomService_ConfirmLevel_FullMethodName, in, out, callOpts(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *roomServiceClient) SendMessage(ctx context.Context, in *SendMessageRequest, opts ...grpc.CallOption) (*SendMessageResponse, error) {
	out := new(SendMessageResponse)
	if err := c.cc.Invoke(ctx, RoomService_SendMessage_FullMethodName, in, out, callOpts(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *roomServiceClient) JoinRoom(ctx context.Context, in *JoinRoomRequest, opts ...grpc.CallOption) (grpc.ServerStreamingClient[RoomSnapshot], error) {
	stream, err := c.cc.NewStream(ctx, &RoomService_ServiceDesc.Streams[0], RoomService_JoinRoom_FullMethodName, callOpts(opts)...)
	if err != nil {
		return nil, err
	}
	x := &grpc.GenericClientStream[JoinRoomRequest, RoomSnapshot]{ClientStream: stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}

// RoomService_JoinRoomClient is the stream returned by JoinRoom.
type RoomService_JoinRoomClient = grpc.ServerStreamingClient[RoomSnapshot]

// RoomServiceServer is the server API for RoomService. Implementations must
// embed UnimplementedRoomServiceServer.
type RoomServiceServer interface {
	Register(context.Context, *RegisterRequest) (*RegisterResponse, error)
	Login(context.Context, *LoginRequest) (*LoginResponse, error)
	GetGate(context.Context, *emptypb.Empty) (*GateStatus, error)
	ConfirmLevel(context.Context, *ConfirmLevelRequest) (*GateStatus, error)
	SendMessage(context.Context, *SendMessageRequest) (*SendMessageResponse, error)
	JoinRoom(*JoinRoomRequest, grpc.ServerStreamingServer[RoomSnapshot]) error
	mustEmbedUnimplementedRoomServiceServer()
}

// RoomService_JoinRoomServer is the stream handed to JoinRoom.
type RoomService_JoinRoomServer = grpc.ServerStreamingServer[RoomSnapshot]

// UnimplementedRoomServiceServer answers codes.Unimplemented for every method.
type UnimplementedRoomServiceServer struct{}

func (UnimplementedRoomServiceServer) Register(context.Context, *RegisterRequest) (*RegisterResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method Register not implemented")
}
func (UnimplementedRoomServiceServer) Login(context.Context, *LoginRequest) (*LoginResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method Login not implemented")
}
func (UnimplementedRoomServiceServer) GetGate(context.Context, *emptypb.Empty) (*GateStatus, error) {
	return nil, status.Errorf(codes.Unimplemented, "method GetGate not implemented")
}
func (UnimplementedRoomServiceServer) ConfirmLevel(context.Context, *ConfirmLevelRequest) (*GateStatus, error) {
	return nil, status.Errorf(codes.Unimplemented, "method ConfirmLevel not implemented")
}
func (UnimplementedRoomServiceServer) SendMessage(context.Context, *SendMessageRequest) (*SendMessageResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method SendMessage not implemented")
}
func (UnimplementedRoomServiceServer) JoinRoom(*JoinRoomRequest, grpc.ServerStreamingServer[RoomSnapshot]) error {
	return status.Errorf(codes.Unimplemented, "method JoinRoom not implemented")
}
func (UnimplementedRoomServiceServer) mustEmbedUnimplementedRoomServiceServer() {}

func RegisterRoomServiceServer(s grpc.ServiceRegistrar, srv RoomServiceServer) {
	s.RegisterService(&RoomService_ServiceDesc, srv)
}

func unaryHandler[Req any](method string, call func(RoomServiceServer, context.Context, *Req) (any, error)) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(RoomServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: method}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(RoomServiceServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

func _RoomService_JoinRoom_Handler(srv any, stream grpc.ServerStream) error {
	m := new(JoinRoomRequest)
	if err := stream.RecvMsg(m); err != nil {
		return err
	}
	return srv.(RoomServiceServer).JoinRoom(m, &grpc.GenericServerStream[JoinRoomRequest, RoomSnapshot]{ServerStream: stream})
}

// RoomService_ServiceDesc is the grpc.ServiceDesc for RoomService.
var RoomService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: "chat.v1.RoomService",
	HandlerType: (*RoomServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Register",
			Handler: unaryHandler(RoomService_Register_FullMethodName, func(s RoomServiceServer, ctx context.Context, in *RegisterRequest) (any, error) {
				return s.Register(ctx, in)
			}),
		},
		{
			MethodName: "Login",
			Handler: unaryHandler(RoomService_Login_FullMethodName, func(s RoomServiceServer, ctx context.Context, in *LoginRequest) (any, error) {
				return s.Login(ctx, in)
			}),
		},
		{
			MethodName: "GetGate",
			Handler: unaryHandler(RoomService_GetGate_FullMethodName, func(s RoomServiceServer, ctx context.Context, in *emptypb.Empty) (any, error) {
				return s.GetGate(ctx, in)
			}),
		},
		{
			MethodName: "ConfirmLevel",
			Handler: unaryHandler(RoomService_ConfirmLevel_FullMethodName, func(s RoomServiceServer, ctx context.Context, in *ConfirmLevelRequest) (any, error) {
				return s.ConfirmLevel(ctx, in)
			}),
		},
		{
			MethodName: "SendMessage",
			Handler: unaryHandler(RoomService_SendMessage_FullMethodName, func(s RoomServiceServer, ctx context.Context, in *SendMessageRequest) (any, error) {
				return s.SendMessage(ctx, in)
			}),
		},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "JoinRoom",
			Handler:       _RoomService_JoinRoom_Handler,
			ServerStreams: true,
		},
	},
	Metadata: "chat/v1/chat.proto",
}

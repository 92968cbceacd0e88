package grpc

import (
	"context"

	grpcgo "google.golang.org/grpc"

	"github.com/vovakirdan/chatrelay/internal/proto/chatpb"
)

const (
	ServiceName = "chat.ChatService"

	MethodChatStream  = "/chat.ChatService/ChatStream"
	MethodSendMessage = "/chat.ChatService/SendMessage"
	MethodGetUsers    = "/chat.ChatService/GetUsers"
	MethodSendTyping  = "/chat.ChatService/SendTyping"
)

// ChatServiceServer is the server API of chat.ChatService.
type ChatServiceServer interface {
	ChatStream(*chatpb.AuthRequest, ChatStreamServer) error
	SendMessage(context.Context, *chatpb.ClientMessage) (*chatpb.SendMessageResponse, error)
	GetUsers(context.Context, *chatpb.Empty) (*chatpb.UserList, error)
	SendTyping(context.Context, *chatpb.TypingEvent) (*chatpb.Empty, error)
}

// ChatStreamServer is the server side of a ChatStream call.
type ChatStreamServer interface {
	Send(*chatpb.ServerMessage) error
	grpcgo.ServerStream
}

type chatStreamServer struct {
	grpcgo.ServerStream
}

func (x *chatStreamServer) Send(m *chatpb.ServerMessage) error {
	return x.ServerStream.SendMsg(m)
}

// RegisterChatServiceServer registers srv on s.
func RegisterChatServiceServer(s grpcgo.ServiceRegistrar, srv ChatServiceServer) {
	s.RegisterService(&ChatServiceDesc, srv)
}

// ChatServiceDesc describes chat.ChatService for grpc-go.
var ChatServiceDesc = grpcgo.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ChatServiceServer)(nil),
	Methods: []grpcgo.MethodDesc{
		{MethodName: "SendMessage", Handler: sendMessageHandler},
		{MethodName: "GetUsers", Handler: getUsersHandler},
		{MethodName: "SendTyping", Handler: sendTypingHandler},
	},
	Streams: []grpcgo.StreamDesc{
		{
			StreamName:    "ChatStream",
			Handler:       chatStreamHandler,
			ServerStreams: true,
		},
	},
	Metadata: "chat.proto",
}

func chatStreamHandler(srv any, stream grpcgo.ServerStream) error {
	m := new(chatpb.AuthRequest)
	if err := stream.RecvMsg(m); err != nil {
		return err
	}
	return srv.(ChatServiceServer).ChatStream(m, &chatStreamServer{stream})
}

func sendMessageHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpcgo.UnaryServerInterceptor) (any, error) {
	in := new(chatpb.ClientMessage)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ChatServiceServer).SendMessage(ctx, in)
	}
	info := &grpcgo.UnaryServerInfo{Server: srv, FullMethod: MethodSendMessage}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ChatServiceServer).SendMessage(ctx, req.(*chatpb.ClientMessage))
	}
	return interceptor(ctx, in, info, handler)
}

func getUsersHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpcgo.UnaryServerInterceptor) (any, error) {
	in := new(chatpb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ChatServiceServer).GetUsers(ctx, in)
	}
	info := &grpcgo.UnaryServerInfo{Server: srv, FullMethod: MethodGetUsers}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ChatServiceServer).GetUsers(ctx, req.(*chatpb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func sendTypingHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpcgo.UnaryServerInterceptor) (any, error) {
	in := new(chatpb.TypingEvent)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ChatServiceServer).SendTyping(ctx, in)
	}
	info := &grpcgo.UnaryServerInfo{Server: srv, FullMethod: MethodSendTyping}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ChatServiceServer).SendTyping(ctx, req.(*chatpb.TypingEvent))
	}
	return interceptor(ctx, in, info, handler)
}

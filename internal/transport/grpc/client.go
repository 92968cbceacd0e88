package grpc

import (
	"context"

	grpcgo "google.golang.org/grpc"

	"github.com/vovakirdan/chatrelay/internal/proto/chatpb"
)

// Client is a chat.ChatService client using the chatpb codec.
type Client struct {
	cc grpcgo.ClientConnInterface
}

// NewClient wraps cc.
func NewClient(cc grpcgo.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// ChatStreamClient receives the events of a ChatStream call.
type ChatStreamClient interface {
	Recv() (*chatpb.ServerMessage, error)
	grpcgo.ClientStream
}

type chatStreamClient struct {
	grpcgo.ClientStream
}

func (x *chatStreamClient) Recv() (*chatpb.ServerMessage, error) {
	m := new(chatpb.ServerMessage)
	if err := x.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

func callOptions(opts []grpcgo.CallOption) []grpcgo.CallOption {
	return append([]grpcgo.CallOption{grpcgo.ForceCodec(chatpb.Codec{})}, opts...)
}

// ChatStream opens the event stream for in.ClientID.
func (c *Client) ChatStream(ctx context.Context, in *chatpb.AuthRequest, opts ...grpcgo.CallOption) (ChatStreamClient, error) {
	stream, err := c.cc.NewStream(ctx, &ChatServiceDesc.Streams[0], MethodChatStream, callOptions(opts)...)
	if err != nil {
		return nil, err
	}
	if err := stream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := stream.CloseSend(); err != nil {
		return nil, err
	}
	return &chatStreamClient{stream}, nil
}

func (c *Client) SendMessage(ctx context.Context, in *chatpb.ClientMessage, opts ...grpcgo.CallOption) (*chatpb.SendMessageResponse, error) {
	out := new(chatpb.SendMessageResponse)
	if err := c.cc.Invoke(ctx, MethodSendMessage, in, out, callOptions(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetUsers(ctx context.Context, opts ...grpcgo.CallOption) (*chatpb.UserList, error) {
	out := new(chatpb.UserList)
	if err := c.cc.Invoke(ctx, MethodGetUsers, &chatpb.Empty{}, out, callOptions(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) SendTyping(ctx context.Context, in *chatpb.TypingEvent, opts ...grpcgo.CallOption) error {
	return c.cc.Invoke(ctx, MethodSendTyping, in, &chatpb.Empty{}, callOptions(opts)...)
}

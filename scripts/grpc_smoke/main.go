package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"

	"github.com/vovakirdan/chatrelay/internal/proto/chatpb"
	transportgrpc "github.com/vovakirdan/chatrelay/internal/transport/grpc"
)

func main() {
	if err := run(); err != nil {
		log.Printf("grpc_smoke: %v", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", "localhost:50051", "gRPC address")
	id := flag.String("id", "tester", "client id")
	name := flag.String("name", "", "display name")
	token := flag.String("token", "", "JWT bearer token")
	to := flag.String("to", "", "recipient id; empty sends to everyone")
	text := flag.String("text", "hello from smoke test", "message text to send")
	timeout := flag.Duration("timeout", 5*time.Second, "total timeout for the run")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	md := metadata.Pairs(transportgrpc.MDClientID, *id)
	if *name != "" {
		md.Set(transportgrpc.MDClientName, *name)
	}
	if *token != "" {
		md.Set(transportgrpc.MDAuthorization, "Bearer "+*token)
	}
	ctx = metadata.NewOutgoingContext(ctx, md)

	conn, err := grpc.NewClient(*addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()
	client := transportgrpc.NewClient(conn)

	stream, err := client.ChatStream(ctx, &chatpb.AuthRequest{ClientID: *id})
	if err != nil {
		return fmt.Errorf("open stream: %w", err)
	}
	first, err := stream.Recv()
	if err != nil {
		return fmt.Errorf("recv user list: %w", err)
	}
	if list, ok := first.Payload.(*chatpb.UserList); ok {
		fmt.Printf("Online users: %d\n", len(list.Users))
	}

	res, err := client.SendMessage(ctx, &chatpb.ClientMessage{Text: *text, RecipientID: *to})
	if err != nil {
		return fmt.Errorf("send: %w", err)
	}
	fmt.Printf("Sent message %s\n", res.MessageID)

	for {
		msg, err := stream.Recv()
		if err != nil {
			return fmt.Errorf("recv: %w", err)
		}
		switch p := msg.Payload.(type) {
		case *chatpb.GlobalMessage:
			fmt.Printf("GlobalMessage: id=%s sender=%s text=%q ts=%d\n", p.ID, p.Sender.ID, p.Text, p.Timestamp)
			if p.ID == res.MessageID {
				return nil
			}
		case *chatpb.PrivateMessage:
			fmt.Printf("PrivateMessage: id=%s %s -> %s text=%q\n", p.ID, p.Sender.ID, p.Recipient.ID, p.Text)
			if p.ID == res.MessageID {
				return nil
			}
		case *chatpb.UserPresenceUpdate:
			fmt.Printf("Presence: user=%s online=%t\n", p.User.ID, p.IsOnline)
		default:
			// keep looping for our message
		}
	}
}

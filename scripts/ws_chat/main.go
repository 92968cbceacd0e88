package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/vovakirdan/chatrelay/internal/proto"
)

// frame is an outbound envelope with its data left raw.
type frame struct {
	Type  string          `json:"type"`
	Event string          `json:"event,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
	Error *proto.Error    `json:"error,omitempty"`
}

func main() {
	if err := run(); err != nil {
		log.Printf("ws_chat: %v", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", "ws://localhost:8080/ws", "WebSocket address")
	id := flag.String("id", "cli-user", "client id")
	name := flag.String("name", "", "display name")
	token := flag.String("token", "", "JWT bearer token")
	flag.Parse()

	baseCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(baseCtx)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, *addr, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	authPayload, err := json.Marshal(proto.AuthData{
		ClientID: *id,
		Name:     *name,
		Token:    *token,
		Protocol: proto.ProtocolVersion,
	})
	if err != nil {
		return fmt.Errorf("marshal auth: %w", err)
	}
	if err := wsjson.Write(ctx, conn, proto.Inbound{Type: proto.InboundTypeAuth, Data: authPayload}); err != nil {
		return fmt.Errorf("send auth: %w", err)
	}

	fmt.Printf("Connected to %s as %s\n", *addr, *id)
	fmt.Println("Type a message and press Enter. /to <id> <text> sends privately, /users lists who is online. Ctrl+C to exit.")

	go func() {
		defer cancel()
		readLoop(ctx, conn)
	}()

	writeLoop(ctx, conn)

	stop()
	cancel()
	_ = conn.Close(websocket.StatusNormalClosure, "bye")
	return nil
}

func readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		var f frame
		if err := wsjson.Read(ctx, conn, &f); err != nil {
			// Treat expected shutdowns quietly.
			if errors.Is(err, context.Canceled) {
				return
			}
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				return
			}
			log.Printf("read error: %v", err)
			return
		}

		switch f.Type {
		case proto.OutboundTypeError:
			if f.Error != nil {
				fmt.Printf("! %s: %s\n", f.Error.Code, f.Error.Msg)
			}
			continue
		case proto.OutboundTypeAck:
			continue
		}

		switch f.Event {
		case "global_message":
			var evt proto.EventGlobalMessage
			if err := json.Unmarshal(f.Data, &evt); err != nil {
				log.Printf("unmarshal global_message: %v", err)
				continue
			}
			fmt.Printf("%s [global] %s: %s\n", clock(evt.TS), evt.Sender.Name, evt.Text)
		case "private_message":
			var evt proto.EventPrivateMessage
			if err := json.Unmarshal(f.Data, &evt); err != nil {
				log.Printf("unmarshal private_message: %v", err)
				continue
			}
			fmt.Printf("%s [%s -> %s] %s\n", clock(evt.TS), evt.Sender.Name, evt.Recipient.Name, evt.Text)
		case "presence":
			var evt proto.EventPresence
			if err := json.Unmarshal(f.Data, &evt); err != nil {
				log.Printf("unmarshal presence: %v", err)
				continue
			}
			state := "offline"
			if evt.IsOnline {
				state = "online"
			}
			fmt.Printf("* %s is %s\n", evt.User.Name, state)
		case "typing":
			var evt proto.EventTyping
			if err := json.Unmarshal(f.Data, &evt); err == nil && evt.IsTyping {
				fmt.Printf("* %s is typing...\n", evt.User.Name)
			}
		case "user_list":
			var evt proto.EventUserList
			if err := json.Unmarshal(f.Data, &evt); err != nil {
				log.Printf("unmarshal user_list: %v", err)
				continue
			}
			names := make([]string, 0, len(evt.Users))
			for _, u := range evt.Users {
				names = append(names, u.ID)
			}
			fmt.Printf("* online: %s\n", strings.Join(names, ", "))
		default:
			fmt.Printf("event=%s data=%s\n", f.Event, f.Data)
		}
	}
}

func writeLoop(ctx context.Context, conn *websocket.Conn) {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			inbound, ok := parseLine(strings.TrimSpace(line))
			if !ok {
				continue
			}
			if err := wsjson.Write(ctx, conn, inbound); err != nil {
				log.Printf("send error: %v", err)
				return
			}
		}
	}
}

func parseLine(line string) (proto.Inbound, bool) {
	switch {
	case line == "":
		return proto.Inbound{}, false
	case line == "/users":
		return proto.Inbound{Type: proto.InboundTypeGetUsers, Data: json.RawMessage("{}")}, true
	case strings.HasPrefix(line, "/to "):
		parts := strings.SplitN(strings.TrimPrefix(line, "/to "), " ", 2)
		if len(parts) != 2 {
			fmt.Println("usage: /to <id> <text>")
			return proto.Inbound{}, false
		}
		payload, _ := json.Marshal(proto.MessageData{RecipientID: parts[0], Text: parts[1]})
		return proto.Inbound{Type: proto.InboundTypeMessage, Data: payload}, true
	default:
		payload, _ := json.Marshal(proto.MessageData{Text: line})
		return proto.Inbound{Type: proto.InboundTypeMessage, Data: payload}, true
	}
}

func clock(ms int64) string {
	return time.UnixMilli(ms).Format("15:04:05")
}

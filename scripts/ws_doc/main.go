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

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/vovakirdan/docrelay/internal/proto"
)

// frame mirrors proto.Outbound with undecoded data.
type frame struct {
	Type  string          `json:"type"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func main() {
	if err := run(); err != nil {
		log.Printf("ws_doc: %v", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", "ws://localhost:4000/ws", "WebSocket address")
	uid := flag.String("uid", "cli-user", "user id to join with")
	email := flag.String("email", "cli@example.com", "email to join with")
	doc := flag.String("doc", "welcome", "document to join")
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

	if err := send(ctx, conn, proto.InboundTypeJoinDoc, proto.JoinDocData{
		DocID: *doc,
		User:  &proto.User{UID: *uid, Email: *email},
	}); err != nil {
		return err
	}

	fmt.Printf("Connected to %s as %s in document %s\n", *addr, *uid, *doc)
	fmt.Println("Each line is sent as an insert delta. /typing signals typing, /leave leaves. Ctrl+C to exit.")

	go func() {
		defer cancel()
		readLoop(ctx, conn)
	}()

	writeLoop(ctx, conn, *doc, *uid, *email)

	stop()
	cancel()
	_ = conn.Close(websocket.StatusNormalClosure, "bye")
	return nil
}

func send(ctx context.Context, conn *websocket.Conn, typ string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", typ, err)
	}
	if err := wsjson.Write(ctx, conn, proto.Inbound{Type: typ, Data: payload}); err != nil {
		return fmt.Errorf("send %s: %w", typ, err)
	}
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

		switch f.Event {
		case proto.EventPresence:
			var users []proto.User
			if err := json.Unmarshal(f.Data, &users); err != nil {
				log.Printf("unmarshal presence: %v", err)
				continue
			}
			names := make([]string, 0, len(users))
			for _, u := range users {
				names = append(names, fmt.Sprintf("%s <%s>", u.UID, u.Email))
			}
			fmt.Printf("[presence] %s\n", strings.Join(names, ", "))
		case proto.EventUserTyping:
			var evt proto.UserTyping
			if err := json.Unmarshal(f.Data, &evt); err != nil {
				log.Printf("unmarshal user-typing: %v", err)
				continue
			}
			fmt.Printf("[typing] %s\n", evt.Email)
		case proto.EventReceiveDelta:
			var evt proto.ReceiveDelta
			if err := json.Unmarshal(f.Data, &evt); err != nil {
				log.Printf("unmarshal receive-delta: %v", err)
				continue
			}
			fmt.Printf("[delta] %s\n", evt.Delta)
		default:
			fmt.Printf("event=%s data=%s\n", f.Event, f.Data)
		}
	}
}

func writeLoop(ctx context.Context, conn *websocket.Conn, doc, uid, email string) {
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
			text := strings.TrimSpace(line)
			if text == "" {
				continue
			}

			var err error
			switch text {
			case "/typing":
				err = send(ctx, conn, proto.InboundTypeTyping, proto.TypingData{DocID: doc, User: proto.TypingUser{Email: email}})
			case "/leave":
				err = send(ctx, conn, proto.InboundTypeLeaveDoc, proto.LeaveDocData{DocID: doc, UID: uid})
			default:
				err = send(ctx, conn, proto.InboundTypeSendDelta, proto.SendDeltaData{DocID: doc, Delta: insertDelta(text)})
			}
			if err != nil {
				log.Print(err)
				return
			}
		}
	}
}

func insertDelta(text string) json.RawMessage {
	raw, _ := json.Marshal(map[string]any{
		"ops": []map[string]string{{"insert": text + "\n"}},
	})
	return raw
}

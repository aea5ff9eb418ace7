package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/vovakirdan/docrelay/internal/proto"
)

type frame struct {
	Type  string          `json:"type"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type peer struct {
	name string
	conn *websocket.Conn
}

func main() {
	if err := run(); err != nil {
		log.Printf("ws_smoke: %v", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", "ws://localhost:4000/ws", "WebSocket address")
	doc := flag.String("doc", "smoke", "document id")
	timeout := flag.Duration("timeout", 5*time.Second, "total timeout for the run")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	alice, err := dial(ctx, *addr, "alice")
	if err != nil {
		return err
	}
	defer alice.conn.Close(websocket.StatusNormalClosure, "bye")

	bob, err := dial(ctx, *addr, "bob")
	if err != nil {
		return err
	}
	defer bob.conn.Close(websocket.StatusNormalClosure, "bye")

	if err := alice.send(ctx, proto.InboundTypeJoinDoc, proto.JoinDocData{DocID: *doc, User: &proto.User{UID: "u-alice", Email: "alice@example.com"}}); err != nil {
		return err
	}
	if _, err := alice.expect(ctx, proto.EventPresence); err != nil {
		return err
	}

	if err := bob.send(ctx, proto.InboundTypeJoinDoc, proto.JoinDocData{DocID: *doc, User: &proto.User{UID: "u-bob", Email: "bob@example.com"}}); err != nil {
		return err
	}
	for _, p := range []*peer{alice, bob} {
		if _, err := p.expect(ctx, proto.EventPresence); err != nil {
			return err
		}
	}

	if err := alice.send(ctx, proto.InboundTypeTyping, proto.TypingData{DocID: *doc, User: proto.TypingUser{Email: "alice@example.com"}}); err != nil {
		return err
	}
	if _, err := bob.expect(ctx, proto.EventUserTyping); err != nil {
		return err
	}

	delta := json.RawMessage(`{"ops":[{"insert":"hello from smoke test\n"}]}`)
	if err := alice.send(ctx, proto.InboundTypeSendDelta, proto.SendDeltaData{DocID: *doc, Delta: delta}); err != nil {
		return err
	}
	if _, err := bob.expect(ctx, proto.EventReceiveDelta); err != nil {
		return err
	}

	if err := bob.send(ctx, proto.InboundTypeLeaveDoc, proto.LeaveDocData{DocID: *doc, UID: "u-bob"}); err != nil {
		return err
	}
	data, err := alice.expect(ctx, proto.EventPresence)
	if err != nil {
		return err
	}

	var users []proto.User
	if err := json.Unmarshal(data, &users); err != nil {
		return fmt.Errorf("unmarshal presence: %w", err)
	}
	if len(users) != 1 || users[0].UID != "u-alice" {
		return fmt.Errorf("unexpected roster after leave: %+v", users)
	}

	fmt.Println("smoke test passed")
	return nil
}

func dial(ctx context.Context, addr, name string) (*peer, error) {
	conn, _, err := websocket.Dial(ctx, addr, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", name, err)
	}
	return &peer{name: name, conn: conn}, nil
}

func (p *peer) send(ctx context.Context, typ string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", typ, err)
	}
	if err := wsjson.Write(ctx, p.conn, proto.Inbound{Type: typ, Data: payload}); err != nil {
		return fmt.Errorf("%s send %s: %w", p.name, typ, err)
	}
	return nil
}

// expect reads until an event of the given kind arrives and returns its data.
func (p *peer) expect(ctx context.Context, event string) (json.RawMessage, error) {
	for {
		var f frame
		if err := wsjson.Read(ctx, p.conn, &f); err != nil {
			return nil, fmt.Errorf("%s waiting for %s: %w", p.name, event, err)
		}
		fmt.Printf("%s received: event=%s data=%s\n", p.name, f.Event, f.Data)
		if f.Event == event {
			return f.Data, nil
		}
	}
}

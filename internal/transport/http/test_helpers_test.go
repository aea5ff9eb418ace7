package http

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/docrelay/internal/config"
	"github.com/vovakirdan/docrelay/internal/core"
	"github.com/vovakirdan/docrelay/internal/journal"
	"github.com/vovakirdan/docrelay/internal/proto"
)

// testOutbound mirrors proto.Outbound with the payload left raw.
type testOutbound struct {
	Type  string          `json:"type"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// startTestServer runs a hub and HTTP server for one test. jr may be nil.
func startTestServer(t *testing.T, jr journal.Journal, mutate func(*config.Config)) (*httptest.Server, *core.Hub) {
	t.Helper()

	logger := zerolog.Nop()
	cfg := config.Default()
	cfg.Addr = ":0"
	cfg.ReadHeaderTimeout = time.Second
	cfg.ShutdownTimeout = time.Second
	if mutate != nil {
		mutate(&cfg)
	}

	opts := []core.Option{core.WithLogger(&logger)}
	var reader journal.Reader
	if jr != nil {
		opts = append(opts, core.WithJournal(jr))
		reader = jr
	}
	hub := core.NewHub(opts...)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(done)
	}()

	server := NewServer(hub, reader, &cfg, &logger)
	ts := httptest.NewServer(server.Handler)
	t.Cleanup(func() {
		ts.Close()
		cancel()
		<-done
	})

	return ts, hub
}

func dial(t *testing.T, ctx context.Context, ts *httptest.Server) *websocket.Conn {
	t.Helper()

	wsURL := strings.Replace(ts.URL, "http", "ws", 1) + "/ws"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close(websocket.StatusNormalClosure, "done") })
	return conn
}

func send(t *testing.T, ctx context.Context, conn *websocket.Conn, typ string, data any) {
	t.Helper()

	payload, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("marshal %s: %v", typ, err)
	}
	if err := wsjson.Write(ctx, conn, proto.Inbound{Type: typ, Data: payload}); err != nil {
		t.Fatalf("send %s: %v", typ, err)
	}
}

func join(t *testing.T, ctx context.Context, conn *websocket.Conn, docID, uid, email string) {
	t.Helper()
	send(t, ctx, conn, proto.InboundTypeJoinDoc, proto.JoinDocData{DocID: docID, User: &proto.User{UID: uid, Email: email}})
}

// next reads exactly one outbound message.
func next(t *testing.T, ctx context.Context, conn *websocket.Conn) testOutbound {
	t.Helper()

	var out testOutbound
	if err := wsjson.Read(ctx, conn, &out); err != nil {
		t.Fatalf("read outbound: %v", err)
	}
	if out.Type != proto.OutboundTypeEvent {
		t.Fatalf("unexpected outbound type: %s", out.Type)
	}
	return out
}

// nextPresence reads one message, requires it to be a presence roster, and returns its uids.
func nextPresence(t *testing.T, ctx context.Context, conn *websocket.Conn) []string {
	t.Helper()

	out := next(t, ctx, conn)
	if out.Event != proto.EventPresence {
		t.Fatalf("expected presence, got %s: %s", out.Event, out.Data)
	}
	var users []proto.User
	if err := json.Unmarshal(out.Data, &users); err != nil {
		t.Fatalf("unmarshal presence: %v", err)
	}
	uids := make([]string, 0, len(users))
	for _, u := range users {
		uids = append(uids, u.UID)
	}
	return uids
}

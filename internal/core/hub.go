package core

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/docrelay/internal/journal"
)

// Hub dispatches client commands to the room registry and the relays.
//
// Every registered client is served by its own goroutine, so commands from one
// connection are handled strictly in order while connections never wait on
// each other. Shared state lives in the Registry.
type Hub struct {
	registry *Registry
	journal  journal.Recorder
	log      *zerolog.Logger

	mu      sync.Mutex
	clients map[string]*Client

	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// Option configures a Hub.
type Option func(*Hub)

// WithLogger sets the hub logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(h *Hub) {
		if logger != nil {
			h.log = logger
		}
	}
}

// WithJournal records membership transitions to rec.
func WithJournal(rec journal.Recorder) Option {
	return func(h *Hub) {
		if rec != nil {
			h.journal = rec
		}
	}
}

// Stats summarizes hub occupancy.
type Stats struct {
	Connections int
	Rooms       int
}

// NewHub creates a new hub instance.
func NewHub(opts ...Option) *Hub {
	nop := zerolog.Nop()
	h := &Hub{
		journal: journal.Nop{},
		log:     &nop,
		clients: make(map[string]*Client),
		stop:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.registry = NewRegistry(h.log)
	return h
}

// Registry exposes the room registry.
func (h *Hub) Registry() *Registry {
	return h.registry
}

// Run blocks until ctx is cancelled, then stops every client goroutine and
// waits for their cleanup to finish. Stopped clients are closed so their
// transports stop feeding commands.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()
	h.stopOnce.Do(func() { close(h.stop) })
	h.wg.Wait()
}

// RegisterClient starts serving c's command stream.
func (h *Hub) RegisterClient(c *Client) {
	h.mu.Lock()
	h.clients[c.ID] = c
	h.mu.Unlock()

	h.wg.Add(1)
	go h.serve(c)

	h.log.Debug().Str("client_id", c.ID).Msg("client registered")
}

// UnregisterClient reports that c's transport has closed. Pending commands are
// abandoned and the client leaves its room.
func (h *Hub) UnregisterClient(c *Client) {
	c.Close()
}

// Stats returns the number of connected clients and live rooms.
func (h *Hub) Stats() Stats {
	h.mu.Lock()
	n := len(h.clients)
	h.mu.Unlock()
	return Stats{Connections: n, Rooms: h.registry.Len()}
}

// Rooms returns a snapshot of every live room.
func (h *Hub) Rooms() []RoomSnapshot {
	return h.registry.Snapshot()
}

func (h *Hub) serve(c *Client) {
	defer h.wg.Done()
	defer c.Close()
	defer h.disconnect(c)

	for {
		select {
		case <-c.Done():
			return
		case <-h.stop:
			return
		case cmd := <-c.Commands:
			if cmd == nil {
				continue
			}
			if err := h.dispatch(c, cmd); err != nil {
				h.logDispatchError(c, cmd, err)
			}
		}
	}
}

func (h *Hub) dispatch(c *Client, cmd *Command) error {
	switch cmd.Kind {
	case CommandJoinDoc:
		return h.join(c, cmd.DocID, cmd.User)
	case CommandLeaveDoc:
		return h.leave(c, cmd.DocID)
	case CommandTyping:
		return h.typing(c, cmd)
	case CommandSendDelta:
		return h.sendDelta(c, cmd)
	default:
		return coreError(ErrCodeBadRequest, "unknown command", ErrBadRequest)
	}
}

func (h *Hub) join(c *Client, docID string, user User) error {
	if docID == "" {
		return coreError(ErrCodeBadRequest, "docId is required", ErrBadRequest)
	}
	if user.UID == "" {
		return coreError(ErrCodeBadRequest, "user.uid is required", ErrBadRequest)
	}

	// Joining another document while joined is an implicit leave.
	if current := c.DocID(); current != "" && current != docID {
		h.removeFromRoom(c, journal.KindLeave)
	}

	roster := h.registry.AddMember(docID, c, user)
	c.setJoined(docID, user)
	h.record(journal.KindJoin, docID, c.ID, user.UID)

	h.log.Debug().
		Str("client_id", c.ID).
		Str("doc_id", docID).
		Str("uid", user.UID).
		Int("present", len(roster)).
		Msg("joined document")
	return nil
}

func (h *Hub) leave(c *Client, docID string) error {
	current := c.DocID()
	if current == "" {
		return nil
	}
	if docID != "" && docID != current {
		return coreError(ErrCodeWrongRoom, "leave for a document the client has not joined", ErrWrongRoom)
	}
	h.removeFromRoom(c, journal.KindLeave)
	return nil
}

func (h *Hub) disconnect(c *Client) {
	h.mu.Lock()
	delete(h.clients, c.ID)
	h.mu.Unlock()

	h.removeFromRoom(c, journal.KindDisconnect)
	h.log.Debug().Str("client_id", c.ID).Msg("client disconnected")
}

// removeFromRoom takes c out of the room it was last known to belong to.
func (h *Hub) removeFromRoom(c *Client, kind journal.Kind) {
	docID := c.DocID()
	if docID == "" {
		return
	}
	uid := c.User().UID

	roster, removed := h.registry.RemoveMember(docID, c.ID)
	c.setUnjoined()
	if !removed {
		return
	}
	h.record(kind, docID, c.ID, uid)

	// A client that leaves on purpose still learns who remains.
	if kind == journal.KindLeave && !c.deliver(&Event{Kind: EventPresence, DocID: docID, Presence: roster}) {
		h.log.Debug().Str("client_id", c.ID).Str("doc_id", docID).Msg("presence dropped for leaving client")
	}

	h.log.Debug().
		Str("client_id", c.ID).
		Str("doc_id", docID).
		Str("uid", uid).
		Str("reason", string(kind)).
		Int("present", len(roster)).
		Msg("left document")
}

func (h *Hub) typing(c *Client, cmd *Command) error {
	docID, err := h.scope(c, cmd.DocID)
	if err != nil {
		return err
	}

	email := c.User().Email
	if email == "" {
		email = cmd.User.Email
	}
	h.registry.Relay(docID, c, &Event{Kind: EventUserTyping, DocID: docID, Email: email})
	return nil
}

func (h *Hub) sendDelta(c *Client, cmd *Command) error {
	docID, err := h.scope(c, cmd.DocID)
	if err != nil {
		return err
	}
	if len(cmd.Delta) == 0 {
		return coreError(ErrCodeBadRequest, "delta is required", ErrBadRequest)
	}

	h.registry.Relay(docID, c, &Event{Kind: EventReceiveDelta, DocID: docID, Delta: cmd.Delta})
	return nil
}

// scope resolves the room a relay command applies to: the client's current
// document. A command naming another document is rejected.
func (h *Hub) scope(c *Client, docID string) (string, error) {
	current := c.DocID()
	if current == "" {
		return "", coreError(ErrCodeNotInRoom, "client has not joined a document", ErrNotInRoom)
	}
	if docID != "" && docID != current {
		return "", coreError(ErrCodeWrongRoom, "command for a document the client has not joined", ErrWrongRoom)
	}
	return current, nil
}

func (h *Hub) record(kind journal.Kind, docID, connID, uid string) {
	h.journal.Record(journal.Entry{Kind: kind, DocID: docID, ConnID: connID, UID: uid, At: time.Now()})
}

func (h *Hub) logDispatchError(c *Client, cmd *Command, err error) {
	level := zerolog.DebugLevel
	if errors.Is(err, ErrBadRequest) {
		level = zerolog.WarnLevel
	}
	h.log.WithLevel(level).Err(err).
		Str("client_id", c.ID).
		Str("command", cmd.Kind.String()).
		Str("doc_id", cmd.DocID).
		Msg("command rejected")
}

package core

import "sync"

const defaultClientBuffer = 32

// Client is one connected editor session as seen by the core layer.
//
// The joined document and user are written only by the hub goroutine serving
// this client; the mutex exists so other goroutines can read a snapshot.
type Client struct {
	ID       string
	Commands chan *Command
	Events   chan *Event

	done      chan struct{}
	closeOnce sync.Once

	mu    sync.RWMutex
	docID string
	user  User
}

// NewClient constructs a client with initialized channels.
// buffer <= 0 selects a default queue size.
func NewClient(id string, buffer int) *Client {
	if buffer <= 0 {
		buffer = defaultClientBuffer
	}
	return &Client{
		ID:       id,
		Commands: make(chan *Command, buffer),
		Events:   make(chan *Event, buffer),
		done:     make(chan struct{}),
	}
}

// Close marks the underlying transport as gone. Safe to call more than once.
func (c *Client) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}

// Done is closed once the client has been closed.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// DocID returns the joined document, or "" when unjoined.
func (c *Client) DocID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.docID
}

// User returns the user asserted at join time.
func (c *Client) User() User {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.user
}

// Joined reports whether the client currently belongs to a room.
func (c *Client) Joined() bool {
	return c.DocID() != ""
}

func (c *Client) setJoined(docID string, user User) {
	c.mu.Lock()
	c.docID = docID
	c.user = user
	c.mu.Unlock()
}

func (c *Client) setUnjoined() {
	c.mu.Lock()
	c.docID = ""
	c.user = User{}
	c.mu.Unlock()
}

// deliver queues an event without blocking. Returns false if the event was dropped.
func (c *Client) deliver(ev *Event) bool {
	select {
	case c.Events <- ev:
		return true
	default:
		return false
	}
}

package core

// EventKind is a notification the core emits to clients.
type EventKind int

const (
	// EventPresence delivers the full roster of a room.
	EventPresence EventKind = iota
	// EventUserTyping tells room peers that someone is typing.
	EventUserTyping
	// EventReceiveDelta relays an edit operation from a room peer.
	EventReceiveDelta
)

func (k EventKind) String() string {
	switch k {
	case EventPresence:
		return "presence"
	case EventUserTyping:
		return "user-typing"
	case EventReceiveDelta:
		return "receive-delta"
	default:
		return "unknown"
	}
}

// Event is sent to clients to describe what happened in a room.
// A single Event value may be shared by every recipient and must not be mutated.
type Event struct {
	Kind     EventKind
	DocID    string
	Presence Roster // EventPresence
	Email    string // EventUserTyping
	Delta    []byte // EventReceiveDelta, relayed verbatim
}

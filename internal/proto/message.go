package proto

import "encoding/json"

// Inbound is the envelope for messages coming from the client.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

const (
	InboundTypeJoinDoc   = "join-doc"
	InboundTypeTyping    = "typing"
	InboundTypeSendDelta = "send-delta"
	InboundTypeLeaveDoc  = "leave-doc"

	OutboundTypeEvent = "event"

	EventPresence     = "presence"
	EventUserTyping   = "user-typing"
	EventReceiveDelta = "receive-delta"
)

// User is the identity a client asserts. It is not verified.
type User struct {
	UID   string `json:"uid"`
	Email string `json:"email"`
}

// JoinDocData associates the connection with a document room.
type JoinDocData struct {
	DocID string `json:"docId"`
	User  *User  `json:"user"`
}

// TypingUser identifies who is typing.
type TypingUser struct {
	Email string `json:"email"`
}

// TypingData signals that the user is typing.
type TypingData struct {
	DocID string     `json:"docId"`
	User  TypingUser `json:"user"`
}

// SendDeltaData carries an opaque edit operation.
type SendDeltaData struct {
	DocID string          `json:"docId"`
	Delta json.RawMessage `json:"delta"`
}

// LeaveDocData removes the connection from its room.
type LeaveDocData struct {
	DocID string `json:"docId"`
	UID   string `json:"uid"`
}

// Outbound is the envelope for messages sent to the client.
type Outbound struct {
	Type  string `json:"type"`
	Event string `json:"event,omitempty"`
	Data  any    `json:"data,omitempty"`
}

// UserTyping is relayed to room peers when someone types.
type UserTyping struct {
	Email string `json:"email"`
}

// ReceiveDelta relays an edit operation verbatim.
type ReceiveDelta struct {
	Delta json.RawMessage `json:"delta"`
}

package core

// CommandKind describes what the client wants to do.
type CommandKind int

const (
	// CommandJoinDoc associates the client with a document room.
	CommandJoinDoc CommandKind = iota
	// CommandLeaveDoc removes the client from its current room.
	CommandLeaveDoc
	// CommandTyping signals that the client's user is typing.
	CommandTyping
	// CommandSendDelta relays an opaque edit operation to room peers.
	CommandSendDelta
)

func (k CommandKind) String() string {
	switch k {
	case CommandJoinDoc:
		return "join-doc"
	case CommandLeaveDoc:
		return "leave-doc"
	case CommandTyping:
		return "typing"
	case CommandSendDelta:
		return "send-delta"
	default:
		return "unknown"
	}
}

// Command represents an action requested by a client.
type Command struct {
	Kind  CommandKind
	DocID string
	// User carries uid+email for join, email for typing, uid for leave.
	User  User
	Delta []byte
}

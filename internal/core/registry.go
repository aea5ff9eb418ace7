package core

import (
	"sort"
	"sync"

	"github.com/rs/zerolog"
)

// Registry maps document ids to rooms. Rooms are created on first join and
// removed as soon as their last member leaves.
//
// Lock order is registry then room. A room is deleted from the map while both
// locks are held, so nobody can add a member to a room that is gone.
type Registry struct {
	mu    sync.Mutex
	rooms map[string]*Room
	log   *zerolog.Logger
}

// RoomSnapshot is a point-in-time view of one room.
type RoomSnapshot struct {
	DocID       string
	Connections int
	Presence    Roster
}

// NewRegistry constructs an empty registry.
func NewRegistry(logger *zerolog.Logger) *Registry {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Registry{
		rooms: make(map[string]*Room),
		log:   logger,
	}
}

// EnsureRoom returns the room for docID, creating an empty one if needed.
func (g *Registry) EnsureRoom(docID string) *Room {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.ensureRoomLocked(docID)
}

func (g *Registry) ensureRoomLocked(docID string) *Room {
	room, ok := g.rooms[docID]
	if !ok {
		room = newRoom(docID)
		g.rooms[docID] = room
		g.log.Debug().Str("doc_id", docID).Msg("room created")
	}
	return room
}

// AddMember inserts or overwrites the entry for client in docID's room and
// broadcasts the resulting roster to the whole room, the joiner included.
func (g *Registry) AddMember(docID string, c *Client, user User) Roster {
	g.mu.Lock()
	room := g.ensureRoomLocked(docID)
	room.mu.Lock()
	g.mu.Unlock()
	defer room.mu.Unlock()

	room.put(c, user)
	roster, dropped := room.publishPresence()
	g.logDropped(docID, EventPresence, dropped)
	return roster
}

// RemoveMember deletes connID from docID's room. If that empties the room, the
// room is dropped from the registry. The remaining members receive the new
// roster. Removing an absent member is a no-op and returns false.
func (g *Registry) RemoveMember(docID, connID string) (Roster, bool) {
	g.mu.Lock()
	room, ok := g.rooms[docID]
	if !ok {
		g.mu.Unlock()
		return Roster{}, false
	}
	room.mu.Lock()
	defer room.mu.Unlock()

	removed := room.remove(connID)
	if len(room.members) == 0 {
		delete(g.rooms, docID)
		g.log.Debug().Str("doc_id", docID).Msg("room removed")
	}
	g.mu.Unlock()

	if !removed {
		return room.roster(), false
	}
	roster, dropped := room.publishPresence()
	g.logDropped(docID, EventPresence, dropped)
	return roster, true
}

// Members returns the current roster for docID (empty if the room is absent).
func (g *Registry) Members(docID string) Roster {
	room := g.lockRoomRead(docID)
	if room == nil {
		return Roster{}
	}
	defer room.mu.RUnlock()
	return room.roster()
}

// Relay sends ev to every member of docID's room except the sender.
// It returns false if the room is gone or the sender is not a member.
func (g *Registry) Relay(docID string, from *Client, ev *Event) (int, bool) {
	room := g.lockRoomRead(docID)
	if room == nil {
		return 0, false
	}
	defer room.mu.RUnlock()

	if !room.has(from.ID) {
		return 0, false
	}
	delivered, dropped := room.broadcast(ev, from.ID)
	g.logDropped(docID, ev.Kind, dropped)
	return delivered, true
}

// Len returns the number of live rooms.
func (g *Registry) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.rooms)
}

// Snapshot returns every live room sorted by document id.
func (g *Registry) Snapshot() []RoomSnapshot {
	g.mu.Lock()
	rooms := make([]*Room, 0, len(g.rooms))
	for _, room := range g.rooms {
		rooms = append(rooms, room)
	}
	g.mu.Unlock()

	out := make([]RoomSnapshot, 0, len(rooms))
	for _, room := range rooms {
		room.mu.RLock()
		if n := len(room.members); n > 0 {
			out = append(out, RoomSnapshot{DocID: room.DocID, Connections: n, Presence: room.roster()})
		}
		room.mu.RUnlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DocID < out[j].DocID })
	return out
}

// lockRoomRead returns docID's room read-locked, or nil.
func (g *Registry) lockRoomRead(docID string) *Room {
	g.mu.Lock()
	defer g.mu.Unlock()

	room, ok := g.rooms[docID]
	if !ok {
		return nil
	}
	room.mu.RLock()
	return room
}

func (g *Registry) logDropped(docID string, kind EventKind, dropped int) {
	if dropped == 0 {
		return
	}
	g.log.Debug().Str("doc_id", docID).Str("event", kind.String()).Int("dropped", dropped).Msg("slow consumers skipped")
}

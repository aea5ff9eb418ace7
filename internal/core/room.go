package core

import "sync"

type member struct {
	client *Client
	user   User
}

// Room groups the connections associated with one document.
// All fields except DocID are guarded by mu.
type Room struct {
	DocID string

	mu      sync.RWMutex
	members map[string]*member
	order   []string // connection ids in join order
}

func newRoom(docID string) *Room {
	return &Room{
		DocID:   docID,
		members: make(map[string]*member),
	}
}

// put inserts or overwrites a member. Returns true if newly added.
// Overwriting keeps the original join position.
func (r *Room) put(c *Client, user User) bool {
	if m, exists := r.members[c.ID]; exists {
		m.client = c
		m.user = user
		return false
	}
	r.members[c.ID] = &member{client: c, user: user}
	r.order = append(r.order, c.ID)
	return true
}

// remove deletes a member. Returns true if removed.
func (r *Room) remove(connID string) bool {
	if _, exists := r.members[connID]; !exists {
		return false
	}
	delete(r.members, connID)
	for i, id := range r.order {
		if id == connID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true
}

func (r *Room) has(connID string) bool {
	_, ok := r.members[connID]
	return ok
}

// roster derives the presence list from the current mapping: one entry per
// uid, ordered by the earliest current connection of that uid.
func (r *Room) roster() Roster {
	seen := make(map[string]struct{}, len(r.members))
	out := make(Roster, 0, len(r.members))
	for _, id := range r.order {
		m := r.members[id]
		if _, dup := seen[m.user.UID]; dup {
			continue
		}
		seen[m.user.UID] = struct{}{}
		out = append(out, m.user)
	}
	return out
}

// broadcast sends an event to all members except the connection with id except.
// Slow consumers drop the event. Returns delivered and dropped counts.
func (r *Room) broadcast(ev *Event, except string) (delivered, dropped int) {
	for _, id := range r.order {
		if id == except {
			continue
		}
		if r.members[id].client.deliver(ev) {
			delivered++
		} else {
			dropped++
		}
	}
	return delivered, dropped
}

// Len returns the number of connections in the room.
func (r *Room) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.members)
}

// Empty returns true if no connections are in the room.
func (r *Room) Empty() bool {
	return r.Len() == 0
}

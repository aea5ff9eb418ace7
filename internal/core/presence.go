package core

// User is the identity a client asserts when joining a document.
// It is trusted as given.
type User struct {
	UID   string
	Email string
}

// Roster is the de-duplicated list of users present in a room.
type Roster []User

// UIDs returns the user ids in roster order.
func (r Roster) UIDs() []string {
	ids := make([]string, 0, len(r))
	for _, u := range r {
		ids = append(ids, u.UID)
	}
	return ids
}

// Contains reports whether uid is present.
func (r Roster) Contains(uid string) bool {
	for _, u := range r {
		if u.UID == uid {
			return true
		}
	}
	return false
}

// publishPresence recomputes the roster and sends it to every connection in
// the room. Caller must hold r.mu.
func (r *Room) publishPresence() (Roster, int) {
	roster := r.roster()
	_, dropped := r.broadcast(&Event{Kind: EventPresence, DocID: r.DocID, Presence: roster}, "")
	return roster, dropped
}

/*
This file defines the Room struct. Rooms are created once at startup from the
configured room set; membership and history are owned by the hub run loop.
*/
package chat

// Room represents a named broadcast channel with its own membership and history.
type Room struct {
	// ID is the room's configured identifier.
	ID string

	// members maps session id to session for every current member.
	members map[string]*Session

	// history holds the room's bounded recent messages.
	history *historyBuffer
}

func newRoom(id string, historyCap int) *Room {
	return &Room{
		ID:      id,
		members: make(map[string]*Session),
		history: newHistoryBuffer(historyCap),
	}
}

// add registers the session as a member. Re-adding an existing member is a no-op.
func (r *Room) add(s *Session) {
	r.members[s.id] = s
}

// remove drops the session from the member set. Removing a non-member is a no-op.
func (r *Room) remove(s *Session) {
	delete(r.members, s.id)
}

// has reports whether the session is a member.
func (r *Room) has(s *Session) bool {
	_, ok := r.members[s.id]
	return ok
}

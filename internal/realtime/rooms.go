package realtime

import "sync"

// Rooms tracks which clients are currently joined to which session. It owns
// the ephemeral membership map exclusively and holds only connection handles,
// never session content; the underlying session persists even when its member
// set is empty. All methods are safe for concurrent use.
type Rooms struct {
	mu      sync.RWMutex
	members map[string]map[*Client]bool // session key → member set
	roomOf  map[*Client]string          // client → session key
}

// NewRooms creates an empty Rooms registry.
func NewRooms() *Rooms {
	return &Rooms{
		members: make(map[string]map[*Client]bool),
		roomOf:  make(map[*Client]string),
	}
}

// Join registers the client as a member of the session's room, creating the
// room entry on first join. A client belongs to at most one room; joining a
// second session moves it out of the first.
//
// Precondition: key must be non-empty; c must be non-nil.
func (r *Rooms) Join(key string, c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.roomOf[c]; ok {
		r.removeLocked(prev, c)
	}

	if r.members[key] == nil {
		r.members[key] = make(map[*Client]bool)
	}
	r.members[key][c] = true
	r.roomOf[c] = key
}

// Leave removes the client from whatever room it belongs to.
//
// Postcondition: Returns the session key the client was joined to and true,
// or ("", false) if the client had joined no room. Empty member sets are
// pruned; the session itself is untouched.
func (r *Rooms) Leave(c *Client) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key, ok := r.roomOf[c]
	if !ok {
		return "", false
	}
	r.removeLocked(key, c)
	return key, true
}

func (r *Rooms) removeLocked(key string, c *Client) {
	if set, ok := r.members[key]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(r.members, key)
		}
	}
	delete(r.roomOf, c)
}

// RoomOf returns the session key the client is joined to, if any.
func (r *Rooms) RoomOf(c *Client) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	key, ok := r.roomOf[c]
	return key, ok
}

// Members returns the clients currently joined to the session's room.
//
// Postcondition: Returns a slice (may be empty) that the caller may retain;
// it does not alias internal state.
func (r *Rooms) Members(key string) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set, ok := r.members[key]
	if !ok {
		return nil
	}
	out := make([]*Client, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	return out
}

// MemberCount returns the number of clients joined to the session's room.
func (r *Rooms) MemberCount(key string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.members[key])
}

// Broadcast fans the event out to every member of the session's room,
// including the sender if it is a member.
//
// Postcondition: Returns the number of clients the event was queued for.
// A member whose buffer is full is closed, which makes its transport tear
// the connection down; membership cleanup follows on disconnect.
func (r *Rooms) Broadcast(key string, ev Event) int {
	return r.fanOut(key, nil, ev)
}

// BroadcastExcept fans the event out to every member of the session's room
// except the given client.
//
// Postcondition: Returns the number of clients the event was queued for.
func (r *Rooms) BroadcastExcept(key string, except *Client, ev Event) int {
	return r.fanOut(key, except, ev)
}

func (r *Rooms) fanOut(key string, except *Client, ev Event) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	delivered := 0
	for c := range r.members[key] {
		if c == except {
			continue
		}
		if err := c.Send(ev); err != nil {
			// A full buffer means the client has stopped draining its
			// connection. Closing the handle makes its transport exit and
			// disconnect the client.
			if !c.IsClosed() {
				c.Close()
			}
			continue
		}
		delivered++
	}
	return delivered
}

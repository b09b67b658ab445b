package rooms

import (
	"log"
	"sync"
)

// Conn is the subset of *websocket.Conn the directory needs; tests plug in
// fakes.
type Conn interface {
	WriteJSON(v any) error
}

// Frame is what actually crosses the socket: an event name plus payload.
type Frame struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// Session wraps one live connection. Writes are serialized because
// gorilla/websocket allows at most one concurrent writer.
type Session struct {
	conn Conn
	mu   sync.Mutex
}

func NewSession(conn Conn) *Session { return &Session{conn: conn} }

func (s *Session) send(f Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteJSON(f)
}

// Emit writes directly to this session, bypassing room membership. Used
// for faults raised before the caller has joined any room.
func (s *Session) Emit(eventName string, payload any) error {
	return s.send(Frame{Event: eventName, Data: payload})
}

// Directory maps user IDs to the sessions currently bound to that user's
// room. Process-local only; every room is rebuilt from scratch after a
// restart, so clients re-join on reconnect.
type Directory struct {
	mu     sync.RWMutex
	rooms  map[string]map[*Session]struct{}
	joined map[*Session]map[string]struct{}
}

func NewDirectory() *Directory {
	return &Directory{
		rooms:  make(map[string]map[*Session]struct{}),
		joined: make(map[*Session]map[string]struct{}),
	}
}

// Join binds a session to the room named by userID. Repeat joins are no-ops.
// A session may be in many rooms at once.
func (d *Directory) Join(s *Session, userID string) {
	if s == nil || userID == "" {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	room, ok := d.rooms[userID]
	if !ok {
		room = make(map[*Session]struct{})
		d.rooms[userID] = room
	}
	room[s] = struct{}{}
	if d.joined[s] == nil {
		d.joined[s] = make(map[string]struct{})
	}
	d.joined[s][userID] = struct{}{}
}

// Leave removes a session from every room it joined. Called on disconnect.
func (d *Directory) Leave(s *Session) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for userID := range d.joined[s] {
		delete(d.rooms[userID], s)
		if len(d.rooms[userID]) == 0 {
			delete(d.rooms, userID)
		}
	}
	delete(d.joined, s)
}

// EmitTo delivers an event to every session in the user's room. Delivery is
// at-most-once, best-effort: an unreachable room is a silent no-op and one
// failed write does not stop the others. Returns how many sessions were
// written successfully.
func (d *Directory) EmitTo(userID, eventName string, payload any) int {
	d.mu.RLock()
	sessions := make([]*Session, 0, len(d.rooms[userID]))
	for s := range d.rooms[userID] {
		sessions = append(sessions, s)
	}
	d.mu.RUnlock()

	delivered := 0
	for _, s := range sessions {
		if err := s.send(Frame{Event: eventName, Data: payload}); err != nil {
			log.Printf("room emit error user=%s: %v", userID, err)
			continue
		}
		delivered++
	}
	return delivered
}

// RoomSize reports how many sessions are bound to a room.
func (d *Directory) RoomSize(userID string) int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.rooms[userID])
}

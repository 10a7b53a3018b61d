package server

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/npezzotti/campus-messaging/internal/stats"
)

// RoomName is the one place a user's fan-out address is derived. Join and
// emit both go through it.
func RoomName(userId string) string {
	return "user:" + userId
}

// Conn is the outbound side of a live connection as seen by the registry
// and broker. Send must not block.
type Conn interface {
	Handle() string
	Send(msg *ServerMessage) error
	Close()
}

type Session struct {
	Handle   string
	UserId   string
	JoinedAt time.Time
	conn     Conn
}

// Registry tracks which live connections belong to which user room.
type Registry struct {
	log     *log.Logger
	stats   stats.StatsProvider
	mu      sync.RWMutex
	rooms   map[string]map[string]*Session
	handles map[string]*Session
	empty   chan struct{}
}

func NewRegistry(logger *log.Logger, su stats.StatsProvider) *Registry {
	if su == nil {
		su = stats.NopStats{}
	}

	return &Registry{
		log:     logger,
		stats:   su,
		rooms:   make(map[string]map[string]*Session),
		handles: make(map[string]*Session),
	}
}

// Join registers conn in userId's room. Joining again with the same user is
// a no-op; joining with a different user moves the handle.
func (r *Registry) Join(userId string, conn Conn) *Session {
	handle := conn.Handle()

	r.mu.Lock()
	defer r.mu.Unlock()

	if cur, ok := r.handles[handle]; ok {
		if cur.UserId == userId {
			return cur
		}
		r.removeLocked(cur)
	}

	s := &Session{
		Handle:   handle,
		UserId:   userId,
		JoinedAt: time.Now(),
		conn:     conn,
	}

	room := RoomName(userId)
	members, ok := r.rooms[room]
	if !ok {
		members = make(map[string]*Session)
		r.rooms[room] = members
		r.stats.Incr(stats.ActiveRooms)
	}
	members[handle] = s
	r.handles[handle] = s
	r.stats.Incr(stats.ActiveSessions)

	r.log.Printf("session %q joined room %q", handle, room)
	return s
}

// Leave removes handle from whichever room holds it. Unknown handles are ignored.
func (r *Registry) Leave(handle string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.handles[handle]
	if !ok {
		return nil, false
	}

	r.removeLocked(s)
	r.log.Printf("session %q left room %q", handle, RoomName(s.UserId))
	return s, true
}

// drop removes s only if it is still the current binding of its handle,
// so a stale snapshot cannot evict a newer join.
func (r *Registry) drop(s *Session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cur, ok := r.handles[s.Handle]; !ok || cur != s {
		return false
	}

	r.removeLocked(s)
	return true
}

func (r *Registry) removeLocked(s *Session) {
	delete(r.handles, s.Handle)
	r.stats.Decr(stats.ActiveSessions)

	room := RoomName(s.UserId)
	if members, ok := r.rooms[room]; ok {
		delete(members, s.Handle)
		if len(members) == 0 {
			delete(r.rooms, room)
			r.stats.Decr(stats.ActiveRooms)
		}
	}

	if len(r.handles) == 0 && r.empty != nil {
		close(r.empty)
		r.empty = nil
	}
}

// LiveHandles returns a snapshot of the sessions in userId's room. An empty
// result means the user is offline.
func (r *Registry) LiveHandles(userId string) []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members := r.rooms[RoomName(userId)]
	out := make([]*Session, 0, len(members))
	for _, s := range members {
		out = append(out, s)
	}
	return out
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handles)
}

func (r *Registry) RoomCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}

// Shutdown closes every registered connection and waits for all of them
// to leave or for ctx to expire.
func (r *Registry) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	if len(r.handles) == 0 {
		r.mu.Unlock()
		return nil
	}
	if r.empty == nil {
		r.empty = make(chan struct{})
	}
	empty := r.empty
	conns := make([]Conn, 0, len(r.handles))
	for _, s := range r.handles {
		conns = append(conns, s.conn)
	}
	r.mu.Unlock()

	r.log.Printf("closing %d sessions", len(conns))
	for _, c := range conns {
		c.Close()
	}

	select {
	case <-empty:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

package room

import (
	"sort"
	"sync"
	"time"
)

// Connection is the registry entry of one live connection.
type Connection struct {
	Peer      Peer
	CreatedAt time.Time
	rooms     map[string]struct{}
}

// Registry tracks live connections and the rooms they joined. Subsequent messages of a connection carry no room
// id, the registry resolves it.
type Registry struct {
	conns map[string]*Connection

	sync.RWMutex
}

func NewRegistry() *Registry {
	return &Registry{
		conns: make(map[string]*Connection),
	}
}

// Add registers a new connection without any room.
func (r *Registry) Add(peer Peer, now time.Time) {
	r.Lock()
	defer r.Unlock()
	r.conns[peer.Id()] = &Connection{
		Peer:      peer,
		CreatedAt: now,
		rooms:     make(map[string]struct{}),
	}
}

// Remove forgets the connection and returns the rooms it was bound to.
func (r *Registry) Remove(connId string) []string {
	r.Lock()
	defer r.Unlock()
	c, ok := r.conns[connId]
	if !ok {
		return nil
	}
	delete(r.conns, connId)
	return roomIds(c.rooms)
}

// Bind makes roomId the only room of the connection and returns the rooms it was bound to before. The caller is
// responsible for leaving those. Binding an unknown connection is a no-op.
func (r *Registry) Bind(connId, roomId string) []string {
	r.Lock()
	defer r.Unlock()
	c, ok := r.conns[connId]
	if !ok {
		return nil
	}
	previous := roomIds(c.rooms)
	c.rooms = map[string]struct{}{roomId: {}}
	return previous
}

// CurrentRoom returns the room the connection is bound to.
func (r *Registry) CurrentRoom(connId string) (string, bool) {
	r.RLock()
	defer r.RUnlock()
	c, ok := r.conns[connId]
	if !ok {
		return "", false
	}
	for id := range c.rooms {
		return id, true
	}
	return "", false
}

// Peer returns the peer of a registered connection.
func (r *Registry) Peer(connId string) (Peer, bool) {
	r.RLock()
	defer r.RUnlock()
	c, ok := r.conns[connId]
	if !ok {
		return nil, false
	}
	return c.Peer, true
}

// Len returns the number of live connections.
func (r *Registry) Len() int {
	r.RLock()
	defer r.RUnlock()
	return len(r.conns)
}

func roomIds(rooms map[string]struct{}) []string {
	res := make([]string, 0, len(rooms))
	for id := range rooms {
		res = append(res, id)
	}
	sort.Strings(res)
	return res
}

// Peers returns the peers of all live connections.
func (r *Registry) Peers() []Peer {
	r.RLock()
	defer r.RUnlock()
	res := make([]Peer, 0, len(r.conns))
	for _, c := range r.conns {
		res = append(res, c.Peer)
	}
	return res
}

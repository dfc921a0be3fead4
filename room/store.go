package room

import (
	"sync"
	"time"
)

// Store maps dashboard ids to live rooms.
//
// Lock order is always room -> store: the store lock is never held while waiting for a room lock.
type Store struct {
	rooms map[string]*Room

	sync.RWMutex
}

func NewStore() *Store {
	return &Store{
		rooms: make(map[string]*Room),
	}
}

// Acquire returns the locked room for id, creating it with the default view state if it does not exist.
// The second result is true if this call created the room. The caller must Unlock the room.
func (s *Store) Acquire(id string, now time.Time) (*Room, bool) {
	for {
		s.Lock()
		r := s.rooms[id]
		isNew := r == nil
		if isNew {
			r = NewRoom(id, now)
			s.rooms[id] = r
		}
		s.Unlock()

		r.Lock()
		if !r.deleted {
			return r, isNew
		}
		// removed between lookup and lock, the next round re-creates it
		r.Unlock()
	}
}

// Lookup returns the locked room for id, if it exists. The caller must Unlock the room.
func (s *Store) Lookup(id string) (*Room, bool) {
	s.RLock()
	r, ok := s.rooms[id]
	s.RUnlock()
	if !ok {
		return nil, false
	}
	r.Lock()
	if r.deleted {
		r.Unlock()
		return nil, false
	}
	return r, true
}

// Remove deletes r from the store if it has no participants. The caller must hold the room lock.
func (s *Store) Remove(r *Room) bool {
	if !r.Empty() || r.deleted {
		return false
	}
	r.deleted = true
	s.Lock()
	if s.rooms[r.Id] == r {
		delete(s.rooms, r.Id)
	}
	s.Unlock()
	return true
}

// Snapshot returns the rooms currently in the store. The rooms are not locked.
func (s *Store) Snapshot() []*Room {
	s.RLock()
	defer s.RUnlock()
	res := make([]*Room, 0, len(s.rooms))
	for _, r := range s.rooms {
		res = append(res, r)
	}
	return res
}

// Sweep removes every room without participants whose last activity is older than threshold. Each room is only
// locked while it is inspected. It returns the ids of the removed rooms.
func (s *Store) Sweep(now time.Time, threshold time.Duration) []string {
	removed := make([]string, 0)
	for _, r := range s.Snapshot() {
		r.Lock()
		if !r.deleted && r.Empty() && now.Sub(r.lastActivity) > threshold {
			if s.Remove(r) {
				removed = append(removed, r.Id)
			}
		}
		r.Unlock()
	}
	return removed
}

// Len returns the number of live rooms.
func (s *Store) Len() int {
	s.RLock()
	defer s.RUnlock()
	return len(s.rooms)
}

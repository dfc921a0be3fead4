package room

import (
	"sync"
	"time"

	"github.com/tcriess/lightspeed-collab/types"
)

// Peer is the send side of a live connection.
//
// Send must not block: it either queues the message or drops it and returns false.
type Peer interface {
	Id() string
	Send(message []byte) bool
}

type member struct {
	participant *types.Participant
	peer        Peer
}

// Room is the collaborative session of one dashboard.
//
// All methods except Id expect the caller to hold the room lock (see Store.Acquire and Store.Lookup).
// Holding the lock while broadcasting is what serializes the messages of one room.
type Room struct {
	Id string

	members map[string]*member
	order   []string // connection ids in join order

	state        types.DashboardViewState
	createdAt    time.Time
	lastActivity time.Time
	deleted      bool

	sync.Mutex
}

// NewRoom creates an empty room with the default view state.
func NewRoom(id string, now time.Time) *Room {
	return &Room{
		Id:           id,
		members:      make(map[string]*member),
		order:        make([]string, 0),
		state:        types.DefaultDashboardViewState(),
		createdAt:    now,
		lastActivity: now,
	}
}

// AddParticipant inserts user for peer. An existing participant for the same connection is replaced and moved to
// the end of the join order.
func (r *Room) AddParticipant(peer Peer, user types.User, now time.Time) types.Participant {
	r.RemoveParticipant(peer.Id())
	p := &types.Participant{
		User:         user.Clone(),
		ConnectionId: peer.Id(),
		JoinedAt:     now,
	}
	p.Cursor = nil
	r.members[peer.Id()] = &member{participant: p, peer: peer}
	r.order = append(r.order, peer.Id())
	return *p
}

// RemoveParticipant removes the participant of the given connection.
func (r *Room) RemoveParticipant(connId string) (types.Participant, bool) {
	m, ok := r.members[connId]
	if !ok {
		return types.Participant{}, false
	}
	delete(r.members, connId)
	for i, id := range r.order {
		if id == connId {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return *m.participant, true
}

// Participant returns the participant of the given connection. The returned pointer must only be used while
// holding the lock.
func (r *Room) Participant(connId string) (*types.Participant, bool) {
	m, ok := r.members[connId]
	if !ok {
		return nil, false
	}
	return m.participant, true
}

// Participants returns copies of all participants in join order.
func (r *Room) Participants() []types.Participant {
	res := make([]types.Participant, 0, len(r.order))
	for _, id := range r.order {
		p := *r.members[id].participant
		p.User = p.User.Clone()
		res = append(res, p)
	}
	return res
}

// Peers returns the peers in join order, without the one identified by except (use "" to include all).
func (r *Room) Peers(except string) []Peer {
	res := make([]Peer, 0, len(r.order))
	for _, id := range r.order {
		if id == except {
			continue
		}
		res = append(res, r.members[id].peer)
	}
	return res
}

// PeerParticipants returns the peers along with their participants, in join order.
func (r *Room) PeerParticipants(except string) ([]Peer, []*types.Participant) {
	peers := make([]Peer, 0, len(r.order))
	participants := make([]*types.Participant, 0, len(r.order))
	for _, id := range r.order {
		if id == except {
			continue
		}
		m := r.members[id]
		peers = append(peers, m.peer)
		participants = append(participants, m.participant)
	}
	return peers, participants
}

// Len returns the number of participants.
func (r *Room) Len() int {
	return len(r.members)
}

// Empty reports whether the room has no participants.
func (r *Room) Empty() bool {
	return len(r.members) == 0
}

// State returns a copy of the current view state.
func (r *Room) State() types.DashboardViewState {
	return r.state.Clone()
}

// MergeState applies partial to the view state and returns the merged result.
func (r *Room) MergeState(partial map[string]interface{}) types.DashboardViewState {
	r.state.Merge(partial)
	return r.state.Clone()
}

// Touch records activity.
func (r *Room) Touch(now time.Time) {
	r.lastActivity = now
}

func (r *Room) LastActivity() time.Time {
	return r.lastActivity
}

func (r *Room) CreatedAt() time.Time {
	return r.createdAt
}

// Deleted reports whether the room was removed from its store. A deleted room must not be mutated.
func (r *Room) Deleted() bool {
	return r.deleted
}

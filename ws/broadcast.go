package ws

import (
	"fmt"
	"time"

	"github.com/antonmedv/expr/vm"
	"github.com/mitchellh/mapstructure"
	"github.com/tcriess/lightspeed-collab/filter"
	"github.com/tcriess/lightspeed-collab/room"
	"github.com/tcriess/lightspeed-collab/types"
)

const filterKey = "filter"

// All functions here expect the room lock to be held, so that the messages of one room reach every queue in the
// order they were handled.

// send queues message on every peer. Peers that cannot keep up have already dropped it and closed themselves.
func (h *Hub) send(peers []room.Peer, message []byte) {
	for _, peer := range peers {
		if !peer.Send(message) {
			sendsDropped.Inc()
			h.logger.Debug("message dropped", "conn", peer.Id())
		}
	}
}

func (h *Hub) sendTo(peer room.Peer, event string, data interface{}) error {
	message, err := types.WireMessage(event, data)
	if err != nil {
		return fmt.Errorf("could not marshal %s: %w", event, err)
	}
	h.send([]room.Peer{peer}, message)
	return nil
}

// broadcast sends to every member of r except the connection except ("" includes everyone).
func (h *Hub) broadcast(r *room.Room, except string, event string, data interface{}) error {
	message, err := types.WireMessage(event, data)
	if err != nil {
		return fmt.Errorf("could not marshal %s: %w", event, err)
	}
	h.send(r.Peers(except), message)
	return nil
}

// relayEvent passes a client supplied event on to the other members of r as it was sent. An optional filter
// expression selects the recipients and is not relayed.
func (h *Hub) relayEvent(r *room.Room, source *types.Participant, data map[string]interface{}, now time.Time) error {
	event := types.CollaborationEvent{}
	err := mapstructure.WeakDecode(data, &event)
	if err != nil {
		return fmt.Errorf("could not decode collaboration event: %w", err)
	}
	relay := data
	if _, ok := data[filterKey]; ok {
		relay = make(map[string]interface{}, len(data))
		for k, v := range data {
			if k != filterKey {
				relay[k] = v
			}
		}
	}
	message, err := types.WireMessage(types.WireMessageTypeCollaborationEvent, relay)
	if err != nil {
		return fmt.Errorf("could not marshal collaboration event: %w", err)
	}

	var prog *vm.Program
	if event.Filter != "" {
		prog, err = h.filters.Get(event.Filter)
		if err != nil {
			// an unusable filter matches nobody
			return err
		}
	}
	h.sendFiltered(r, source, event.Type, message, prog, now)

	user := source.User.Clone()
	user.Cursor = nil
	h.record(types.NewEvent(r.Id, event.Type, &user, event.Payload, now))
	return nil
}

// sendFiltered sends message to the members of r other than source for which prog holds.
func (h *Hub) sendFiltered(r *room.Room, source *types.Participant, eventType string, message []byte, prog *vm.Program, now time.Time) {
	if prog == nil {
		h.send(r.Peers(source.ConnectionId), message)
		return
	}
	peers, participants := r.PeerParticipants(source.ConnectionId)
	filterRoom := filter.Room{Id: r.Id, Participants: r.Len()}
	sourceUser := filterUser(source.User)
	recipients := make([]room.Peer, 0, len(peers))
	for i, peer := range peers {
		env := filter.NewEnv(filterRoom, sourceUser, filterUser(participants[i].User), eventType, now.Unix())
		ok, err := filter.Run(prog, env)
		if err != nil {
			h.logger.Debug("filter failed", "room", r.Id, "conn", peer.Id(), "error", err)
			continue
		}
		if ok {
			recipients = append(recipients, peer)
		}
	}
	h.send(recipients, message)
}

func filterUser(user types.User) filter.User {
	return filter.User{
		Id:       user.Id,
		Name:     user.Name,
		Metadata: user.Metadata,
	}
}

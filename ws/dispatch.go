package ws

import (
	"encoding/json"
	"fmt"

	"github.com/folkengine/goname"
	"github.com/mitchellh/mapstructure"
	"github.com/tcriess/lightspeed-collab/room"
	"github.com/tcriess/lightspeed-collab/types"
)

const guestSuffix = " (guest)"

// HandleMessage decodes one frame of the connection connId and dispatches it by type. An error means the frame was
// dropped, the connection stays usable.
func (h *Hub) HandleMessage(connId string, raw []byte) error {
	message := types.WebsocketMessage{}
	err := json.Unmarshal(raw, &message)
	if err != nil {
		return fmt.Errorf("could not unmarshal ws message: %w", err)
	}
	data := make(map[string]interface{})
	if len(message.Data) > 0 {
		err = json.Unmarshal(message.Data, &data)
		if err != nil {
			return fmt.Errorf("could not unmarshal %s payload: %w", message.Event, err)
		}
	}

	switch message.Event {
	case types.MessageTypeJoinDashboard:
		messagesReceived.WithLabelValues(message.Event).Inc()
		joinMsg := types.JoinDashboardMessage{}
		err = mapstructure.WeakDecode(data, &joinMsg)
		if err != nil {
			return fmt.Errorf("could not decode join message: %w", err)
		}
		return h.join(connId, joinMsg)

	case types.MessageTypeDashboardStateChange:
		messagesReceived.WithLabelValues(message.Event).Inc()
		stateMsg := types.StateChangeMessage{}
		err = mapstructure.WeakDecode(data, &stateMsg)
		if err != nil {
			return fmt.Errorf("could not decode state change message: %w", err)
		}
		return h.changeState(connId, stateMsg)

	case types.MessageTypeCollaborationEvent:
		messagesReceived.WithLabelValues(message.Event).Inc()
		return h.collaborationEvent(connId, data)

	case types.MessageTypeCursorMove:
		messagesReceived.WithLabelValues(message.Event).Inc()
		cursorMsg := types.CursorMoveMessage{}
		err = mapstructure.WeakDecode(data, &cursorMsg)
		if err != nil {
			return fmt.Errorf("could not decode cursor message: %w", err)
		}
		return h.moveCursor(connId, cursorMsg)

	default:
		messagesReceived.WithLabelValues("unknown").Inc()
		return fmt.Errorf("unknown message type %q", message.Event)
	}
}

// currentRoom resolves the room of connId and returns it locked.
func (h *Hub) currentRoom(connId string) (*room.Room, bool) {
	roomId, ok := h.registry.CurrentRoom(connId)
	if !ok {
		return nil, false
	}
	return h.rooms.Lookup(roomId)
}

func (h *Hub) join(connId string, msg types.JoinDashboardMessage) error {
	if msg.DashboardId == "" {
		return fmt.Errorf("join without dashboardId")
	}
	peer, ok := h.registry.Peer(connId)
	if !ok {
		h.logger.Debug("join from unknown connection", "conn", connId)
		return nil
	}
	user := msg.User
	if user.Id == "" {
		user.Id = connId
	}
	if user.Name == "" {
		user.Name = goname.New(goname.FantasyMap).FirstLast() + guestSuffix
	}

	for _, previous := range h.registry.Bind(connId, msg.DashboardId) {
		if previous != msg.DashboardId {
			h.leave(connId, previous)
		}
	}

	now := h.now()
	r, created := h.rooms.Acquire(msg.DashboardId, now)
	defer r.Unlock()
	if created {
		roomsGauge.Set(float64(h.rooms.Len()))
		h.logger.Info("created room", "room", r.Id)
	}
	participant := r.AddParticipant(peer, user, now)
	r.Touch(now)
	h.logger.Debug("joined room", "room", r.Id, "conn", connId, "user", participant.Id)

	err := h.sendTo(peer, types.WireMessageTypeStateUpdated, r.State())
	if err != nil {
		return err
	}
	err = h.broadcast(r, "", types.WireMessageTypeUsersUpdated, r.Participants())
	if err != nil {
		return err
	}
	joinedUser := participant.User.Clone()
	event := types.NewEvent(r.Id, types.EventTypeUserJoin, &joinedUser, joinedUser, now)
	err = h.broadcast(r, connId, types.WireMessageTypeCollaborationEvent, event)
	if err != nil {
		return err
	}
	h.record(event)
	return nil
}

// leave removes connId from roomId. The last participant to leave deletes the room.
func (h *Hub) leave(connId, roomId string) {
	r, ok := h.rooms.Lookup(roomId)
	if !ok {
		return
	}
	defer r.Unlock()
	participant, ok := r.RemoveParticipant(connId)
	if !ok {
		return
	}
	now := h.now()
	r.Touch(now)
	leftUser := participant.User.Clone()
	event := types.NewEvent(r.Id, types.EventTypeUserLeave, &leftUser, leftUser, now)
	h.record(event)
	h.logger.Debug("left room", "room", r.Id, "conn", connId, "user", leftUser.Id)

	if r.Empty() {
		if h.rooms.Remove(r) {
			roomsGauge.Set(float64(h.rooms.Len()))
			h.logger.Info("removed empty room", "room", r.Id)
		}
		return
	}
	err := h.broadcast(r, "", types.WireMessageTypeUsersUpdated, r.Participants())
	if err != nil {
		h.logger.Error("could not broadcast users", "room", r.Id, "error", err)
	}
	err = h.broadcast(r, "", types.WireMessageTypeCollaborationEvent, event)
	if err != nil {
		h.logger.Error("could not broadcast leave event", "room", r.Id, "error", err)
	}
}

func (h *Hub) changeState(connId string, msg types.StateChangeMessage) error {
	r, ok := h.currentRoom(connId)
	if !ok {
		h.logger.Debug("state change without room, ignored", "conn", connId)
		return nil
	}
	defer r.Unlock()
	participant, ok := r.Participant(connId)
	if !ok {
		return nil
	}
	now := h.now()
	merged := r.MergeState(msg.State)
	r.Touch(now)
	err := h.broadcast(r, connId, types.WireMessageTypeStateUpdated, merged)
	if err != nil {
		return err
	}
	if msg.Event == nil {
		return nil
	}
	return h.relayEvent(r, participant, msg.Event, now)
}

func (h *Hub) collaborationEvent(connId string, data map[string]interface{}) error {
	r, ok := h.currentRoom(connId)
	if !ok {
		h.logger.Debug("collaboration event without room, ignored", "conn", connId)
		return nil
	}
	defer r.Unlock()
	participant, ok := r.Participant(connId)
	if !ok {
		return nil
	}
	now := h.now()
	r.Touch(now)
	return h.relayEvent(r, participant, data, now)
}

package ws

import (
	"github.com/tcriess/lightspeed-collab/types"
)

// moveCursor stores the cursor of the participant of connId and tells the other members of its room. Cursor
// moves are not room activity and are never journaled.
func (h *Hub) moveCursor(connId string, msg types.CursorMoveMessage) error {
	r, ok := h.currentRoom(connId)
	if !ok {
		h.logger.Trace("cursor move without room, ignored", "conn", connId)
		return nil
	}
	defer r.Unlock()
	participant, ok := r.Participant(connId)
	if !ok {
		return nil
	}
	participant.Cursor = &types.Cursor{X: msg.X, Y: msg.Y}
	return h.broadcast(r, connId, types.WireMessageTypeCursorMoved, types.CursorMovedMessage{
		UserId: participant.Id,
		Cursor: *participant.Cursor,
	})
}

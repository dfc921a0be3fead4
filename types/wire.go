package types

import "encoding/json"

// Client to server message types.
const (
	MessageTypeJoinDashboard        = "join_dashboard"
	MessageTypeDashboardStateChange = "dashboard_state_change"
	MessageTypeCollaborationEvent   = "collaboration_event"
	MessageTypeCursorMove           = "cursor_move"
)

// Server to client message types.
const (
	WireMessageTypeStateUpdated       = "state_updated"
	WireMessageTypeUsersUpdated       = "users_updated"
	WireMessageTypeCollaborationEvent = "collaboration_event"
	WireMessageTypeCursorMoved        = "cursor_moved"
)

// JSON-serialized WebsocketMessage is what is actually sent via the Websocket connection
type WebsocketMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// JoinDashboardMessage is the payload of join_dashboard.
type JoinDashboardMessage struct {
	User        User   `mapstructure:"user"`
	DashboardId string `mapstructure:"dashboardId"`
}

// StateChangeMessage is the payload of dashboard_state_change. Event is optional and kept undecoded, it is relayed
// as sent.
type StateChangeMessage struct {
	State map[string]interface{} `mapstructure:"state"`
	Event map[string]interface{} `mapstructure:"event"`
}

// CursorMoveMessage is the payload of cursor_move.
type CursorMoveMessage struct {
	X float64 `mapstructure:"x"`
	Y float64 `mapstructure:"y"`
}

// CursorMovedMessage is pushed to the other room members when a cursor moves.
type CursorMovedMessage struct {
	UserId string `json:"userId"`
	Cursor Cursor `json:"cursor"`
}

// WireMessage wraps an outgoing payload into the {"event": ..., "data": ...} envelope.
func WireMessage(event string, data interface{}) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(WebsocketMessage{
		Event: event,
		Data:  raw,
	})
}

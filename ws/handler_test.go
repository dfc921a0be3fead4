package ws

import (
	"encoding/json"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tcriess/lightspeed-collab/config"
	"github.com/tcriess/lightspeed-collab/types"
)

func newTestServer(t *testing.T, cfg *config.Config) (*Hub, *httptest.Server) {
	hub, err := NewHub(cfg, nil)
	require.NoError(t, err)
	server := httptest.NewServer(NewRouter(hub))
	t.Cleanup(server.Close)
	return hub, server
}

func dial(t *testing.T, server *httptest.Server, header http.Header) *websocket.Conn {
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func writeFrame(t *testing.T, conn *websocket.Conn, event string, data interface{}) {
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, frame(t, event, data)))
}

func readFrame(t *testing.T, conn *websocket.Conn) types.WebsocketMessage {
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	m := types.WebsocketMessage{}
	require.NoError(t, json.Unmarshal(raw, &m))
	return m
}

func joinFrame(dashboardId, userId, name string) map[string]interface{} {
	return map[string]interface{}{
		"dashboardId": dashboardId,
		"user":        map[string]interface{}{"id": userId, "name": name},
	}
}

func TestWebsocketSession(t *testing.T) {
	hub, server := newTestServer(t, config.Default())

	c1 := dial(t, server, nil)
	writeFrame(t, c1, types.MessageTypeJoinDashboard, joinFrame("d1", "u1", "Alice"))
	assert.Equal(t, defaultState(), stateOf(t, readFrame(t, c1)))
	assert.Equal(t, []string{"Alice"}, userNames(t, readFrame(t, c1)))

	c2 := dial(t, server, nil)
	writeFrame(t, c2, types.MessageTypeJoinDashboard, joinFrame("d1", "u2", "Bob"))
	assert.Equal(t, types.WireMessageTypeStateUpdated, readFrame(t, c2).Event)
	assert.Equal(t, []string{"Alice", "Bob"}, userNames(t, readFrame(t, c2)))
	assert.Equal(t, []string{"Alice", "Bob"}, userNames(t, readFrame(t, c1)))
	assert.Equal(t, types.EventTypeUserJoin, eventOf(t, readFrame(t, c1))["type"])

	writeFrame(t, c1, types.MessageTypeDashboardStateChange, map[string]interface{}{
		"state": map[string]interface{}{"selectedDateRange": "7d"},
		"event": map[string]interface{}{"type": "filter_changed"},
	})
	assert.Equal(t, "7d", stateOf(t, readFrame(t, c2))["selectedDateRange"])
	assert.Equal(t, "filter_changed", eventOf(t, readFrame(t, c2))["type"])

	writeFrame(t, c2, types.MessageTypeCursorMove, map[string]interface{}{"x": 10, "y": 20})
	m := readFrame(t, c1)
	require.Equal(t, types.WireMessageTypeCursorMoved, m.Event)
	moved := types.CursorMovedMessage{}
	decode(t, m, &moved)
	assert.Equal(t, "u2", moved.UserId)

	// a malformed frame is dropped, the connection stays open
	require.NoError(t, c1.WriteMessage(websocket.TextMessage, []byte("{{")))
	writeFrame(t, c1, types.MessageTypeCollaborationEvent, map[string]interface{}{"type": "still-here"})
	assert.Equal(t, "still-here", eventOf(t, readFrame(t, c2))["type"])

	// the room API sees both participants
	resp, err := http.Get(server.URL + "/api/rooms/d1")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	detail := RoomDetail{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&detail))
	assert.Equal(t, 2, detail.Participants)
	assert.Equal(t, "7d", detail.State["selectedDateRange"])

	require.NoError(t, c1.Close())
	assert.Equal(t, []string{"Bob"}, userNames(t, readFrame(t, c2)))
	assert.Equal(t, types.EventTypeUserLeave, eventOf(t, readFrame(t, c2))["type"])

	require.NoError(t, c2.Close())
	assert.Eventually(t, func() bool {
		return hub.rooms.Len() == 0 && hub.registry.Len() == 0
	}, 5*time.Second, 10*time.Millisecond)
}

func TestWebsocketOrigin(t *testing.T) {
	cfg := config.Default()
	cfg.AllowedOrigin = "https://app.example.com"
	_, server := newTestServer(t, cfg)
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"

	_, resp, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": []string{"https://evil.example.com"}})
	assert.Error(t, err)
	if resp != nil {
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	}

	conn := dial(t, server, http.Header{"Origin": []string{"https://app.example.com"}})
	writeFrame(t, conn, types.MessageTypeJoinDashboard, joinFrame("d1", "u1", "Alice"))
	assert.Equal(t, types.WireMessageTypeStateUpdated, readFrame(t, conn).Event)

	// no origin at all is a non-browser client
	dial(t, server, nil)
}

func TestRoomAPI(t *testing.T) {
	hub, server := newTestServer(t, config.Default())
	connect(hub, "c1")
	join(t, hub, "c1", "d1", "u1", "Alice")

	resp, err := http.Get(server.URL + "/api/rooms")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	rooms := make([]RoomInfo, 0)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&rooms))
	require.Len(t, rooms, 1)
	assert.Equal(t, "d1", rooms[0].Id)
	assert.Equal(t, 1, rooms[0].Participants)

	resp2, err := http.Get(server.URL + "/api/rooms/nope")
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp2.StatusCode)

	resp3, err := http.Get(server.URL + "/api/rooms/d1/events")
	require.NoError(t, err)
	defer resp3.Body.Close()
	assert.Equal(t, http.StatusNotImplemented, resp3.StatusCode)

	resp4, err := http.Get(server.URL + "/api/rooms/d1/events?limit=x")
	require.NoError(t, err)
	defer resp4.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp4.StatusCode)

	resp5, err := http.Get(server.URL + "/healthz")
	require.NoError(t, err)
	defer resp5.Body.Close()
	body, err := ioutil.ReadAll(resp5.Body)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(body))

	resp6, err := http.Get(server.URL + "/metrics")
	require.NoError(t, err)
	defer resp6.Body.Close()
	body, err = ioutil.ReadAll(resp6.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "lightspeed_collab_rooms")
}

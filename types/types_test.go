package types

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultDashboardViewState(t *testing.T) {
	s := DefaultDashboardViewState()
	assert.Equal(t, "30d", s[StateKeySelectedDateRange])
	assert.Equal(t, []interface{}{"total-users", "sessions", "page-views", "avg-session"}, s[StateKeyEnabledKpiCards])
	assert.Equal(t, "reddit-ads", s[StateKeySelectedJourneySource])
	assert.Contains(t, s, StateKeyConnectedProperty)
	assert.Nil(t, s[StateKeyConnectedProperty])
	assert.Equal(t, []interface{}{}, s[StateKeyDrillDownPath])

	raw, err := json.Marshal(s)
	require.NoError(t, err)
	assert.JSONEq(t, `{"selectedDateRange":"30d","enabledKpiCards":["total-users","sessions","page-views","avg-session"],
		"selectedJourneySource":"reddit-ads","connectedProperty":null,"drillDownPath":[]}`, string(raw))

	// every call returns a fresh document
	s[StateKeyDrillDownPath] = []interface{}{"x"}
	assert.Equal(t, []interface{}{}, DefaultDashboardViewState()[StateKeyDrillDownPath])
}

func TestMerge(t *testing.T) {
	s := DefaultDashboardViewState()
	s.Merge(map[string]interface{}{})
	assert.Equal(t, DefaultDashboardViewState(), s)

	a := map[string]interface{}{StateKeySelectedDateRange: "7d", StateKeyDrillDownPath: []interface{}{"country"}}
	b := map[string]interface{}{StateKeyDrillDownPath: []interface{}{"country", "city"}, "custom": true}

	stepwise := DefaultDashboardViewState()
	stepwise.Merge(a)
	stepwise.Merge(b)

	combined := DefaultDashboardViewState()
	ab := map[string]interface{}{}
	for k, v := range a {
		ab[k] = v
	}
	for k, v := range b {
		ab[k] = v
	}
	combined.Merge(ab)
	assert.Equal(t, combined, stepwise)
	assert.Equal(t, "7d", stepwise[StateKeySelectedDateRange])
	assert.Equal(t, []interface{}{"country", "city"}, stepwise[StateKeyDrillDownPath])
	assert.Equal(t, "reddit-ads", stepwise[StateKeySelectedJourneySource])

	// merged values are not shared with the partial
	b[StateKeyDrillDownPath].([]interface{})[0] = "changed"
	assert.Equal(t, "country", stepwise[StateKeyDrillDownPath].([]interface{})[0])
}

func TestClone(t *testing.T) {
	s := DefaultDashboardViewState()
	s["nested"] = map[string]interface{}{"a": []string{"x"}}
	c := s.Clone()
	assert.Equal(t, s, c)
	c["nested"].(map[string]interface{})["a"].([]string)[0] = "y"
	c[StateKeyEnabledKpiCards].([]interface{})[0] = "none"
	assert.Equal(t, "x", s["nested"].(map[string]interface{})["a"].([]string)[0])
	assert.Equal(t, "total-users", s[StateKeyEnabledKpiCards].([]interface{})[0])

	u := User{Id: "u1", Metadata: map[string]interface{}{"role": "editor"}, Cursor: &Cursor{X: 1}}
	uc := u.Clone()
	uc.Metadata["role"] = "viewer"
	uc.Cursor.X = 2
	assert.Equal(t, "editor", u.Metadata["role"])
	assert.Equal(t, 1.0, u.Cursor.X)
}

func TestEventId(t *testing.T) {
	ts := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	user := &User{Id: "u1", Name: "Alice"}
	e1 := NewEvent("d1", "annotation", user, map[string]interface{}{"text": "hi"}, ts)
	e2 := NewEvent("d1", "annotation", user, map[string]interface{}{"text": "hi"}, ts)
	e3 := NewEvent("d1", "annotation", user, map[string]interface{}{"text": "hi"}, ts.Add(time.Millisecond))
	assert.Len(t, e1.Id, 16)
	assert.Equal(t, e1.Id, e2.Id)
	assert.NotEqual(t, e1.Id, e3.Id)

	// the filter does not change the identity of an event
	e2.Filter = `Target.Id == "u2"`
	require.NoError(t, e2.CreateId())
	assert.Equal(t, e1.Id, e2.Id)
}

func TestWireMessage(t *testing.T) {
	raw, err := WireMessage(WireMessageTypeCursorMoved, CursorMovedMessage{UserId: "u1", Cursor: Cursor{X: 1, Y: 2.5}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"event":"cursor_moved","data":{"userId":"u1","cursor":{"x":1,"y":2.5}}}`, string(raw))

	p := Participant{
		User:         User{Id: "u1", Name: "Alice"},
		ConnectionId: "c1",
		JoinedAt:     time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	raw, err = WireMessage(WireMessageTypeUsersUpdated, []Participant{p})
	require.NoError(t, err)
	assert.JSONEq(t, `{"event":"users_updated","data":[{"id":"u1","name":"Alice","joinedAt":"2026-01-01T00:00:00Z"}]}`, string(raw))

	event := NewEvent("d1", EventTypeUserJoin, &p.User, p.User, p.JoinedAt)
	event.Filter = "true"
	raw, err = WireMessage(WireMessageTypeCollaborationEvent, event)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "filter")
	assert.Contains(t, string(raw), `"type":"user_join"`)
}

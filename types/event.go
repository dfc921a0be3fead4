package types

import (
	"fmt"
	"time"

	"github.com/mitchellh/hashstructure/v2"
)

// Event types synthesized by the server. Every other type is defined by the clients and relayed opaquely.
const (
	EventTypeUserJoin  = "user_join"
	EventTypeUserLeave = "user_leave"
)

// CollaborationEvent describes a user action within a room. It is broadcast once and never replayed.
type CollaborationEvent struct {
	Id        string      `json:"id" mapstructure:"-" hash:"ignore"`
	RoomId    string      `json:"roomId,omitempty" mapstructure:"-"`
	Type      string      `json:"type" mapstructure:"type"`
	Payload   interface{} `json:"payload,omitempty" mapstructure:"payload"`
	User      *User       `json:"user,omitempty" mapstructure:"-"`
	Timestamp time.Time   `json:"timestamp" mapstructure:"-"`

	// Filter is an optional expr expression evaluated per recipient, incoming only.
	Filter string `json:"-" mapstructure:"filter" hash:"ignore"`
}

// NewEvent creates an event originating from user in the given room and assigns its id.
func NewEvent(roomId, eventType string, user *User, payload interface{}, ts time.Time) *CollaborationEvent {
	e := &CollaborationEvent{
		RoomId:    roomId,
		Type:      eventType,
		Payload:   payload,
		User:      user,
		Timestamp: ts,
	}
	if err := e.CreateId(); err != nil {
		e.Id = fmt.Sprintf("%s-%d", roomId, ts.UnixNano())
	}
	return e
}

// CreateId derives the event id from a hash over its contents.
func (e *CollaborationEvent) CreateId() error {
	// the timestamp is hashed explicitly, time.Time has no exported fields
	hash, err := hashstructure.Hash(struct {
		Event *CollaborationEvent
		Ts    int64
	}{Event: e, Ts: e.Timestamp.UnixNano()}, hashstructure.FormatV2, nil)
	if err != nil {
		return err
	}
	e.Id = fmt.Sprintf("%016x", hash)
	return nil
}

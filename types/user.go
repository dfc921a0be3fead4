package types

import "time"

// Cursor is the last known pointer position of a user on the dashboard canvas.
type Cursor struct {
	X float64 `json:"x" mapstructure:"x"`
	Y float64 `json:"y" mapstructure:"y"`
}

// User is supplied by the web application at join time. It is trusted as-is, nothing here is authenticated.
type User struct {
	Id       string                 `json:"id" mapstructure:"id"`
	Name     string                 `json:"name" mapstructure:"name"`
	Avatar   string                 `json:"avatar,omitempty" mapstructure:"avatar"`
	Metadata map[string]interface{} `json:"metadata,omitempty" mapstructure:"metadata"`
	Cursor   *Cursor                `json:"cursor,omitempty" mapstructure:"-"` // ephemeral, only set by cursor_move
}

// Participant is a user bound to one live connection inside a room.
type Participant struct {
	User
	ConnectionId string    `json:"-"`
	JoinedAt     time.Time `json:"joinedAt"`
}

// Clone returns a deep enough copy to hand out while the owning room is unlocked.
func (u User) Clone() User {
	c := u
	if u.Metadata != nil {
		c.Metadata = make(map[string]interface{}, len(u.Metadata))
		for k, v := range u.Metadata {
			c.Metadata[k] = v
		}
	}
	if u.Cursor != nil {
		cursor := *u.Cursor
		c.Cursor = &cursor
	}
	return c
}

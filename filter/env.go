package filter

/*
Here the Env used in the event filters is defined.
Filters are written by the dashboard frontend, so renaming properties here breaks deployed clients.
*/

type User struct {
	Id       string
	Name     string
	Metadata map[string]interface{}
}

type Room struct {
	Id           string
	Participants int
}

type Env struct {
	Room    Room
	Source  User // the user that triggered the event
	Target  User // the participant about to receive it
	Type    string
	Created int64

	AsInt         func(interface{}) int64
	AsFloat       func(interface{}) float64
	AsString      func(interface{}) string
	AsStringSlice func(interface{}) []string
}

// NewEnv returns an Env with the conversion helpers set.
func NewEnv(room Room, source, target User, eventType string, created int64) Env {
	return Env{
		Room:          room,
		Source:        source,
		Target:        target,
		Type:          eventType,
		Created:       created,
		AsInt:         AsInt,
		AsFloat:       AsFloat,
		AsString:      AsString,
		AsStringSlice: AsStringSlice,
	}
}

package persistence

import (
	"errors"
	"time"

	"github.com/tcriess/lightspeed-collab/types"
)

// ErrJournalLocked is returned when another process holds the journal file.
var ErrJournalLocked = errors.New("journal is locked by another process")

// Persister is the event journal. Events are appended for operators only, they are never replayed to clients.
type Persister interface {
	StoreEvents([]*types.CollaborationEvent) error
	// GetEventHistory returns the events of roomId (all rooms if empty) created in [fromTs, toTs], newest first.
	// Use fromIdx/maxCount for pagination, maxCount <= 0 means no limit.
	GetEventHistory(roomId string, fromTs, toTs time.Time, fromIdx, maxCount int) ([]*types.CollaborationEvent, error)
	Close() error
}

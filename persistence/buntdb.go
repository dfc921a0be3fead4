package persistence

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofrs/flock"
	"github.com/tcriess/lightspeed-collab/config"
	"github.com/tcriess/lightspeed-collab/globals"
	"github.com/tcriess/lightspeed-collab/types"
	"github.com/tidwall/buntdb"
)

const eventIndex = "eventsts"

type BuntDBPersist struct {
	db   *buntdb.DB
	lock *flock.Flock
}

// journalEntry is what is stored per event. The index is on ts in unix micros, nanos do not fit a float64.
type journalEntry struct {
	Ts    int64                     `json:"ts"`
	Event *types.CollaborationEvent `json:"event"`
}

func NewBuntPersister(cfg *config.Config) (Persister, error) {
	fileName := cfg.PersistenceConfig.DSN
	if fileName == "" {
		return nil, fmt.Errorf("buntdb journal requires a dsn (file name or :memory:)")
	}
	var lock *flock.Flock
	if fileName != ":memory:" {
		lockPath := cfg.PersistenceConfig.FlockPath
		if lockPath == "" {
			lockPath = fileName + ".lock"
		}
		lock = flock.New(lockPath)
		locked, err := lock.TryLock()
		if err != nil {
			return nil, fmt.Errorf("could not lock journal: %w", err)
		}
		if !locked {
			return nil, ErrJournalLocked
		}
	}
	db, err := setupBuntDB(fileName)
	if err != nil {
		if lock != nil {
			_ = lock.Unlock()
		}
		return nil, err
	}
	return &BuntDBPersist{db: db, lock: lock}, nil
}

func setupBuntDB(fileName string) (*buntdb.DB, error) {
	db, err := buntdb.Open(fileName)
	if err != nil {
		return nil, err
	}
	err = db.CreateIndex(eventIndex, "event:*", buntdb.IndexJSON("ts"))
	if err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func (p *BuntDBPersist) StoreEvents(events []*types.CollaborationEvent) error {
	return p.db.Update(func(tx *buntdb.Tx) error {
		for _, event := range events {
			msg, err := json.Marshal(journalEntry{Ts: unixMicro(event.Timestamp), Event: event})
			if err != nil {
				globals.AppLogger.Error("could not marshal event", "error", err)
				return err
			}
			_, _, err = tx.Set("event:"+event.RoomId+":"+event.Id, string(msg), nil)
			if err != nil {
				globals.AppLogger.Error("could not store event", "error", err)
				return err
			}
		}
		return nil
	})
}

func (p *BuntDBPersist) GetEventHistory(roomId string, fromTs, toTs time.Time, fromIdx, maxCount int) ([]*types.CollaborationEvent, error) {
	events := make([]*types.CollaborationEvent, 0)

	// DescendRange iterates [lessOrEqual, greaterThan)
	toCond := fmt.Sprintf(`{"ts":%d}`, unixMicro(toTs))
	fromCond := fmt.Sprintf(`{"ts":%d}`, unixMicro(fromTs)-1)

	err := p.db.View(func(tx *buntdb.Tx) error {
		currentNo := -1
		count := 0
		return tx.DescendRange(eventIndex, toCond, fromCond, func(key, val string) bool {
			entry := journalEntry{}
			if err := json.Unmarshal([]byte(val), &entry); err != nil || entry.Event == nil {
				return true
			}
			if roomId != "" && entry.Event.RoomId != roomId {
				return true
			}
			currentNo++
			if currentNo < fromIdx {
				return true
			}
			events = append(events, entry.Event)
			count++
			return maxCount <= 0 || count < maxCount
		})
	})
	return events, err
}

func (p *BuntDBPersist) Close() error {
	err := p.db.Close()
	if p.lock != nil {
		if unlockErr := p.lock.Unlock(); unlockErr != nil && err == nil {
			err = unlockErr
		}
	}
	return err
}

func unixMicro(t time.Time) int64 {
	return t.UnixNano() / int64(time.Microsecond)
}

package persistence

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/tcriess/lightspeed-collab/config"
	"github.com/tcriess/lightspeed-collab/types"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var _ driver.Valuer = &datatypes.JSON{}

// EventRecord is the table row of one journaled event.
type EventRecord struct {
	Id      string         `gorm:"primaryKey"`
	RoomId  string         `gorm:"index"`
	Type    string         `gorm:"index"`
	UserId  string
	User    datatypes.JSON // the full user descriptor
	Payload datatypes.JSON
	Created time.Time `gorm:"index"`
}

func (EventRecord) TableName() string {
	return "collaboration_events"
}

type GormPersist struct {
	db *gorm.DB
}

func NewGormPersister(cfg *config.Config) (Persister, error) {
	db, err := setupGormDB(cfg)
	if err != nil {
		return nil, err
	}
	p := GormPersist{db: db}
	return &p, nil
}

func setupGormDB(cfg *config.Config) (*gorm.DB, error) {
	if cfg.PersistenceConfig.DSN == "" {
		return nil, fmt.Errorf("%s journal requires a dsn", cfg.PersistenceConfig.Type)
	}
	var dial gorm.Dialector
	switch cfg.PersistenceConfig.Type {
	case "postgres":
		dial = postgres.Open(cfg.PersistenceConfig.DSN)

	case "sqlite":
		dial = sqlite.Open(cfg.PersistenceConfig.DSN)

	default:
		return nil, fmt.Errorf("invalid gorm configuration")
	}
	db, err := gorm.Open(dial, &gorm.Config{})
	if err != nil {
		return nil, err
	}
	err = db.AutoMigrate(&EventRecord{})
	if err != nil {
		return nil, fmt.Errorf("could not migrate journal: %w", err)
	}
	return db, nil
}

func eventToRecord(event *types.CollaborationEvent) (*EventRecord, error) {
	rec := &EventRecord{
		Id:      event.Id,
		RoomId:  event.RoomId,
		Type:    event.Type,
		Created: event.Timestamp.UTC(),
	}
	if event.User != nil {
		rec.UserId = event.User.Id
		raw, err := json.Marshal(event.User)
		if err != nil {
			return nil, err
		}
		rec.User = datatypes.JSON(raw)
	}
	if event.Payload != nil {
		raw, err := json.Marshal(event.Payload)
		if err != nil {
			return nil, err
		}
		rec.Payload = datatypes.JSON(raw)
	}
	return rec, nil
}

func recordToEvent(rec *EventRecord) *types.CollaborationEvent {
	event := &types.CollaborationEvent{
		Id:        rec.Id,
		RoomId:    rec.RoomId,
		Type:      rec.Type,
		Timestamp: rec.Created,
	}
	if len(rec.User) > 0 {
		user := &types.User{}
		if err := json.Unmarshal(rec.User, user); err == nil {
			event.User = user
		}
	}
	if len(rec.Payload) > 0 {
		var payload interface{}
		if err := json.Unmarshal(rec.Payload, &payload); err == nil {
			event.Payload = payload
		}
	}
	return event
}

func (p *GormPersist) StoreEvents(events []*types.CollaborationEvent) error {
	if len(events) == 0 {
		return nil
	}
	records := make([]*EventRecord, 0, len(events))
	for _, event := range events {
		rec, err := eventToRecord(event)
		if err != nil {
			return err
		}
		records = append(records, rec)
	}
	return p.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&records).Error
}

func (p *GormPersist) GetEventHistory(roomId string, fromTs, toTs time.Time, fromIdx, maxCount int) ([]*types.CollaborationEvent, error) {
	records := make([]*EventRecord, 0)
	q := p.db.Where("created BETWEEN ? AND ?", fromTs.UTC(), toTs.UTC())
	if roomId != "" {
		q = q.Where("room_id = ?", roomId)
	}
	if maxCount > 0 {
		q = q.Limit(maxCount)
	}
	if fromIdx > 0 {
		q = q.Offset(fromIdx)
	}
	err := q.Order("created DESC").Find(&records).Error
	if err != nil {
		return nil, err
	}
	events := make([]*types.CollaborationEvent, len(records))
	for i, rec := range records {
		events[i] = recordToEvent(rec)
	}
	return events, nil
}

func (p *GormPersist) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

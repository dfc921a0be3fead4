package ws

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/robfig/cron/v3"
	"github.com/tcriess/lightspeed-collab/config"
	"github.com/tcriess/lightspeed-collab/filter"
	"github.com/tcriess/lightspeed-collab/globals"
	"github.com/tcriess/lightspeed-collab/persistence"
	"github.com/tcriess/lightspeed-collab/room"
	"github.com/tcriess/lightspeed-collab/types"
)

const (
	pongWait           = 2 * time.Minute
	pingPeriod         = time.Minute
	writeWait          = 10 * time.Second
	journalChannelSize = 1000
	journalBatchSize   = 100
)

// ErrNoJournal is returned by EventHistory if no journal is configured.
var ErrNoJournal = errors.New("no event journal configured")

// Hub owns the rooms and the connection registry of the server. All client messages go through HandleMessage.
type Hub struct {
	Cfg *config.Config

	rooms    *room.Store
	registry *room.Registry
	filters  *filter.ProgramCache

	// persistence, may be nil
	persister persistence.Persister
	journal   chan *types.CollaborationEvent

	logger hclog.Logger
	now    func() time.Time
}

// RoomInfo is the summary of one live room.
type RoomInfo struct {
	Id           string    `json:"id"`
	Participants int       `json:"participants"`
	CreatedAt    time.Time `json:"createdAt"`
	LastActivity time.Time `json:"lastActivity"`
}

// RoomDetail adds the participants and the view state to RoomInfo.
type RoomDetail struct {
	RoomInfo
	Users []types.Participant      `json:"users"`
	State types.DashboardViewState `json:"state"`
}

func NewHub(cfg *config.Config, persister persistence.Persister) (*Hub, error) {
	filters, err := filter.NewProgramCache(cfg.FilterConfig.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("could not create filter cache: %w", err)
	}
	h := &Hub{
		Cfg:       cfg,
		rooms:     room.NewStore(),
		registry:  room.NewRegistry(),
		filters:   filters,
		persister: persister,
		logger:    globals.AppLogger.Named("hub"),
		now:       time.Now,
	}
	if persister != nil {
		h.journal = make(chan *types.CollaborationEvent, journalChannelSize)
	}
	return h, nil
}

// Register adds a freshly connected peer. It is not part of any room until it sends join_dashboard.
func (h *Hub) Register(peer room.Peer) {
	h.registry.Add(peer, h.now())
	connectionsGauge.Set(float64(h.registry.Len()))
	h.logger.Debug("registered connection", "conn", peer.Id())
}

// Unregister runs the leave sequence for every room of the connection and forgets it.
func (h *Hub) Unregister(connId string) {
	for _, roomId := range h.registry.Remove(connId) {
		h.leave(connId, roomId)
	}
	connectionsGauge.Set(float64(h.registry.Len()))
	h.logger.Debug("unregistered connection", "conn", connId)
}

// CloseAll closes every live connection. Their read loops then leave the rooms as usual.
func (h *Hub) CloseAll() {
	for _, peer := range h.registry.Peers() {
		if c, ok := peer.(interface{ Close() }); ok {
			c.Close()
		}
	}
}

// Run schedules the room sweep and writes the journal until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) error {
	cronLog := &cronLogger{logger: h.logger.Named("cron")}
	cronRunner := cron.New(cron.WithLocation(time.UTC), cron.WithLogger(cronLog), cron.WithChain(cron.SkipIfStillRunning(cronLog)))
	_, err := cronRunner.AddFunc(h.Cfg.RoomConfig.SweepSpec, func() {
		h.Sweep()
	})
	if err != nil {
		return fmt.Errorf("invalid sweep spec %q: %w", h.Cfg.RoomConfig.SweepSpec, err)
	}
	cronRunner.Start()
	defer func() {
		<-cronRunner.Stop().Done()
	}()

	for {
		select {
		case event := <-h.journal:
			h.storeEvents(h.collectEvents(event))

		case <-ctx.Done():
			h.logger.Info("hub stopped, flushing journal")
			for {
				select {
				case event := <-h.journal:
					h.storeEvents(h.collectEvents(event))
				default:
					return nil
				}
			}
		}
	}
}

// Sweep removes the stale empty rooms.
func (h *Hub) Sweep() []string {
	removed := h.rooms.Sweep(h.now(), h.Cfg.RoomConfig.InactivityThreshold)
	if len(removed) > 0 {
		roomsSwept.Add(float64(len(removed)))
		roomsGauge.Set(float64(h.rooms.Len()))
		h.logger.Info("swept stale rooms", "rooms", removed)
	}
	return removed
}

// Rooms returns a summary of all live rooms, ordered by id.
func (h *Hub) Rooms() []RoomInfo {
	res := make([]RoomInfo, 0)
	for _, r := range h.rooms.Snapshot() {
		r.Lock()
		if !r.Deleted() {
			res = append(res, roomInfo(r))
		}
		r.Unlock()
	}
	sort.Slice(res, func(i, j int) bool {
		return res[i].Id < res[j].Id
	})
	return res
}

// Room returns the details of the room id.
func (h *Hub) Room(id string) (RoomDetail, bool) {
	r, ok := h.rooms.Lookup(id)
	if !ok {
		return RoomDetail{}, false
	}
	defer r.Unlock()
	return RoomDetail{
		RoomInfo: roomInfo(r),
		Users:    r.Participants(),
		State:    r.State(),
	}, true
}

// EventHistory returns the latest limit journaled events of roomId, newest first.
func (h *Hub) EventHistory(roomId string, limit int) ([]*types.CollaborationEvent, error) {
	if h.persister == nil {
		return nil, ErrNoJournal
	}
	return h.persister.GetEventHistory(roomId, time.Unix(0, 0), h.now().Add(time.Minute), 0, limit)
}

func roomInfo(r *room.Room) RoomInfo {
	return RoomInfo{
		Id:           r.Id,
		Participants: r.Len(),
		CreatedAt:    r.CreatedAt(),
		LastActivity: r.LastActivity(),
	}
}

// record queues event for the journal. It never blocks, a full queue drops the event.
func (h *Hub) record(event *types.CollaborationEvent) {
	if h.journal == nil {
		return
	}
	select {
	case h.journal <- event:
	default:
		journalDropped.Inc()
		h.logger.Warn("journal queue full, event dropped", "room", event.RoomId, "type", event.Type)
	}
}

func (h *Hub) collectEvents(first *types.CollaborationEvent) []*types.CollaborationEvent {
	events := []*types.CollaborationEvent{first}
	for len(events) < journalBatchSize {
		select {
		case event := <-h.journal:
			events = append(events, event)
		default:
			return events
		}
	}
	return events
}

func (h *Hub) storeEvents(events []*types.CollaborationEvent) {
	if err := h.persister.StoreEvents(events); err != nil {
		h.logger.Error("could not journal events", "count", len(events), "error", err)
	}
}

// cronLogger routes the cron scheduler's logs to hclog.
type cronLogger struct {
	logger hclog.Logger
}

func (l *cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l *cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, append(keysAndValues, "error", err)...)
}

package ws

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	roomsGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "lightspeed_collab",
		Name:      "rooms",
		Help:      "Number of live rooms.",
	})
	connectionsGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "lightspeed_collab",
		Name:      "connections",
		Help:      "Number of live websocket connections.",
	})
	messagesReceived = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lightspeed_collab",
		Name:      "messages_received_total",
		Help:      "Client messages received, by message type.",
	}, []string{"type"})
	sendsDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "lightspeed_collab",
		Name:      "sends_dropped_total",
		Help:      "Outgoing messages dropped because the connection queue was full or closed.",
	})
	roomsSwept = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "lightspeed_collab",
		Name:      "rooms_swept_total",
		Help:      "Stale empty rooms removed by the periodic sweep.",
	})
	journalDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "lightspeed_collab",
		Name:      "journal_events_dropped_total",
		Help:      "Events not journaled because the journal queue was full.",
	})
)

func init() {
	prometheus.MustRegister(roomsGauge, connectionsGauge, messagesReceived, sendsDropped, roomsSwept, journalDropped)
}

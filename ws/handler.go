package ws

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
)

// NewRouter sets up the websocket endpoint, the room API, metrics and the health check. The allowed origins of the
// configuration apply to the API (CORS) as well as to the websocket upgrade.
func NewRouter(hub *Hub) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: hub.Cfg.AllowedOrigins(),
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	})
	upgrader := &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			// non-browser clients send no origin
			if r.Header.Get("Origin") == "" {
				return true
			}
			return c.OriginAllowed(r)
		},
	}

	router := mux.NewRouter()
	router.Handle("/ws", websocketHandler(hub, upgrader)).Methods(http.MethodGet)
	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/rooms", roomsHandler(hub)).Methods(http.MethodGet)
	api.HandleFunc("/rooms/{room}", roomHandler(hub)).Methods(http.MethodGet)
	api.HandleFunc("/rooms/{room}/events", eventsHandler(hub)).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)
	return c.Handler(router)
}

// websocketHandler upgrades the request and runs the client until the connection ends.
func websocketHandler(hub *Hub, upgrader *websocket.Upgrader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			hub.logger.Warn("websocket upgrade error", "error", err, "origin", r.Header.Get("Origin"))
			return
		}
		c := NewClient(hub, conn)
		hub.Register(c)
		go c.WriteLoop()
		c.ReadLoop()
	}
}

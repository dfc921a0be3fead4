package ws

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/tcriess/lightspeed-collab/globals"
)

const (
	defaultEventLimit = 50
	maxEventLimit     = 1000
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		globals.AppLogger.Debug("could not write response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func roomsHandler(hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, hub.Rooms())
	}
}

func roomHandler(hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roomId := mux.Vars(r)["room"]
		detail, ok := hub.Room(roomId)
		if !ok {
			writeError(w, http.StatusNotFound, "room not found")
			return
		}
		writeJSON(w, http.StatusOK, detail)
	}
}

// eventsHandler returns the journaled events of a room, newest first. The room does not need to be live.
func eventsHandler(hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roomId := mux.Vars(r)["room"]
		limit := defaultEventLimit
		if l := r.URL.Query().Get("limit"); l != "" {
			n, err := strconv.Atoi(l)
			if err != nil || n <= 0 {
				writeError(w, http.StatusBadRequest, "invalid limit")
				return
			}
			limit = n
		}
		if limit > maxEventLimit {
			limit = maxEventLimit
		}
		events, err := hub.EventHistory(roomId, limit)
		if errors.Is(err, ErrNoJournal) {
			writeError(w, http.StatusNotImplemented, err.Error())
			return
		}
		if err != nil {
			hub.logger.Error("could not read journal", "room", roomId, "error", err)
			writeError(w, http.StatusInternalServerError, "could not read journal")
			return
		}
		writeJSON(w, http.StatusOK, events)
	}
}

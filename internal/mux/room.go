package mux

import (
	"net/http"

	gmux "github.com/gorilla/mux"
)

func (m *Mux) getRoom() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rooms, err := m.pitBoss.Rooms(r.Context())
		if err != nil {
			writeAppError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, rooms)
	}
}

func (m *Mux) getRoomID() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roomID := gmux.Vars(r)["roomId"]

		dealer, err := m.pitBoss.Lookup(r.Context(), roomID)
		if err != nil {
			writeAppError(w, err)
			return
		}

		state, err := dealer.Snapshot(r.Context())
		if err != nil {
			writeAppError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, state)
	}
}

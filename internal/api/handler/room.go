package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/bullscows/internal/api/middleware"
	"github.com/mcoot/bullscows/internal/api/response"
	"github.com/mcoot/bullscows/internal/model"
	"github.com/mcoot/bullscows/internal/services/match"
	"github.com/mcoot/bullscows/internal/services/room"
)

// RoomHandler handles read-only room endpoints; all mutations go over the websocket
type RoomHandler struct {
	rooms   *room.Controller
	matches *match.Controller
}

// NewRoomHandler creates a new room handler
func NewRoomHandler(rooms *room.Controller, matches *match.Controller) *RoomHandler {
	return &RoomHandler{
		rooms:   rooms,
		matches: matches,
	}
}

// Get handles GET /api/v1/rooms/{code}
func (h *RoomHandler) Get(w http.ResponseWriter, r *http.Request) {
	view, err := h.rooms.GetRoomView(r.Context(), roomCode(r))
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, view)
}

// GetGame handles GET /api/v1/rooms/{code}/game
// Returns the caller's view of the match, or the lobby if none is running
func (h *RoomHandler) GetGame(w http.ResponseWriter, r *http.Request) {
	identity := middleware.MustGetIdentity(r.Context())

	snapshot, err := h.matches.GameInit(r.Context(), roomCode(r), identity.PlayerID)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, snapshot)
}

// roomCode reads the room code path variable; codes are case-insensitive
func roomCode(r *http.Request) model.RoomCode {
	return model.RoomCode(mux.Vars(r)["code"]).Normalize()
}

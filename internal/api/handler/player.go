package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/bullscows/internal/api/middleware"
	"github.com/mcoot/bullscows/internal/api/response"
	"github.com/mcoot/bullscows/internal/model"
	"github.com/mcoot/bullscows/internal/services/presence"
)

// PlayerHandler handles player-related endpoints
type PlayerHandler struct {
	presence *presence.Registry
}

// NewPlayerHandler creates a new player handler
func NewPlayerHandler(registry *presence.Registry) *PlayerHandler {
	return &PlayerHandler{
		presence: registry,
	}
}

// GetMe handles GET /api/v1/players/me
func (h *PlayerHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	identity := middleware.MustGetIdentity(r.Context())
	response.JSON(w, http.StatusOK, response.PlayerFromIdentity(identity))
}

// Presence handles GET /api/v1/players/{id}/presence
func (h *PlayerHandler) Presence(w http.ResponseWriter, r *http.Request) {
	playerID := model.PlayerID(mux.Vars(r)["id"])
	if playerID == "" {
		WriteError(w, NewInvalidRequestError("player id is required"))
		return
	}

	response.JSON(w, http.StatusOK, response.PresenceFor(playerID, h.presence.ConnectionCount(playerID)))
}

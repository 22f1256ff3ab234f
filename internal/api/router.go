package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/bullscows/internal/api/handler"
	"github.com/mcoot/bullscows/internal/api/middleware"
	"github.com/mcoot/bullscows/internal/api/response"
	sharedmw "github.com/mcoot/bullscows/internal/middleware"
	"github.com/mcoot/bullscows/internal/services/auth"
	"github.com/mcoot/bullscows/internal/services/match"
	"github.com/mcoot/bullscows/internal/services/presence"
	"github.com/mcoot/bullscows/internal/services/room"
	"github.com/mcoot/bullscows/internal/ws"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger          *slog.Logger
	AuthService     *auth.Service
	RoomController  *room.Controller
	MatchController *match.Controller
	Presence        *presence.Registry
	Dispatcher      *ws.Dispatcher
	// OriginPatterns lists the browser origins allowed to open a websocket
	OriginPatterns []string
}

// NewRouter creates a new API router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	// Create handlers
	playerHandler := handler.NewPlayerHandler(cfg.Presence)
	roomHandler := handler.NewRoomHandler(cfg.RoomController, cfg.MatchController)
	wsHandler := ws.NewHandler(cfg.AuthService, cfg.Presence, cfg.Dispatcher, cfg.OriginPatterns, cfg.Logger)

	// Create middleware
	authMiddleware := middleware.Auth(cfg.AuthService)
	loggingMiddleware := sharedmw.Logging(cfg.Logger)
	recoveryMiddleware := middleware.Recovery(cfg.Logger)

	// Websocket endpoint authenticates itself before the upgrade
	r.Handle("/ws", recoveryMiddleware(wsHandler)).Methods(http.MethodGet)

	// API subrouter with common middleware
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(recoveryMiddleware)
	api.Use(loggingMiddleware)

	// Health check endpoint (no auth)
	api.HandleFunc("/health", healthHandler(cfg.MatchController, cfg.Presence)).Methods(http.MethodGet)

	// Player routes
	players := api.PathPrefix("/players").Subrouter()
	players.Use(authMiddleware)
	players.HandleFunc("/me", playerHandler.GetMe).Methods(http.MethodGet)
	players.HandleFunc("/{id}/presence", playerHandler.Presence).Methods(http.MethodGet)

	// Room routes (read-only)
	rooms := api.PathPrefix("/rooms").Subrouter()
	rooms.Use(authMiddleware)
	rooms.HandleFunc("/{code}", roomHandler.Get).Methods(http.MethodGet)
	rooms.HandleFunc("/{code}/game", roomHandler.GetGame).Methods(http.MethodGet)

	return r
}

func healthHandler(matches *match.Controller, registry *presence.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response.JSON(w, http.StatusOK, response.Health{
			Status:         "ok",
			ActiveSessions: matches.ActiveSessions(),
			OnlinePlayers:  registry.OnlineUsers(),
		})
	}
}

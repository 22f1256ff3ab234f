package ws

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"

	"github.com/mcoot/bullscows/internal/api/apierr"
	"github.com/mcoot/bullscows/internal/api/middleware"
	"github.com/mcoot/bullscows/internal/model"
	"github.com/mcoot/bullscows/internal/services/auth"
	"github.com/mcoot/bullscows/internal/services/presence"
)

// Handler upgrades authenticated requests to websocket connections
type Handler struct {
	auth           *auth.Service
	presence       *presence.Registry
	dispatcher     *Dispatcher
	originPatterns []string
	logger         *slog.Logger
}

// NewHandler creates a new websocket Handler.
// originPatterns is passed to the upgrader; nil allows same-origin requests only.
func NewHandler(authService *auth.Service, registry *presence.Registry, dispatcher *Dispatcher, originPatterns []string, logger *slog.Logger) *Handler {
	return &Handler{
		auth:           authService,
		presence:       registry,
		dispatcher:     dispatcher,
		originPatterns: originPatterns,
		logger:         logger.With(slog.String("component", "ws")),
	}
}

// ServeHTTP authenticates, upgrades and then serves the connection until it closes
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	identity, err := h.auth.ValidateToken(r.Context(), middleware.ExtractToken(r))
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		Subprotocols:   []string{Subprotocol},
		OriginPatterns: h.originPatterns,
	})
	if err != nil {
		h.logger.Warn("websocket accept failed",
			slog.String("player_id", string(identity.PlayerID)),
			slog.String("error", err.Error()),
		)
		return
	}

	if c.Subprotocol() != Subprotocol {
		_ = c.Close(websocket.StatusPolicyViolation, "client must speak the "+Subprotocol+" subprotocol")
		return
	}

	h.serve(r.Context(), c, identity.PlayerID)
}

func (h *Handler) serve(ctx context.Context, c *websocket.Conn, playerID model.PlayerID) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	conn := newConn(c, playerID, h.logger)
	started := time.Now()
	conn.logger.Info("client connected")

	go conn.writePump(ctx)

	h.presence.Register(ctx, playerID, conn)
	defer func() {
		conn.close()
		// Deregistration outlives the request context so the offline flip is persisted
		h.presence.Deregister(context.WithoutCancel(ctx), playerID, conn)
		conn.logger.Info("client disconnected", slog.Duration("duration", time.Since(started)))
	}()

	for {
		msgType, data, err := c.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
				conn.logger.Debug("client closed connection", slog.Int("status", int(status)))
			} else if !errors.Is(err, context.Canceled) {
				conn.logger.Debug("read failed", slog.String("error", err.Error()))
			}
			return
		}

		resp := Response{Type: responseType, OK: false, Error: errorBody(model.ErrInvalidMessage)}
		if msgType == websocket.MessageText {
			resp = h.dispatcher.Dispatch(ctx, playerID, data)
		}
		if !conn.respond(ctx, resp) {
			return
		}
	}
}

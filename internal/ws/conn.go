package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/mcoot/bullscows/internal/model"
)

const (
	sendBufferSize = 32
	writeTimeout   = 5 * time.Second
)

// Conn is one authenticated websocket connection.
// It implements presence.Handle; sends never block the caller.
type Conn struct {
	id       string
	playerID model.PlayerID
	ws       *websocket.Conn
	logger   *slog.Logger

	out            chan []byte
	done           chan struct{}
	closeOnce      sync.Once
	respondTimeout time.Duration
}

func newConn(c *websocket.Conn, playerID model.PlayerID, logger *slog.Logger) *Conn {
	id := uuid.NewString()
	return &Conn{
		id:       id,
		playerID: playerID,
		ws:       c,
		logger: logger.With(
			slog.String("conn_id", id),
			slog.String("player_id", string(playerID)),
		),
		out:            make(chan []byte, sendBufferSize),
		done:           make(chan struct{}),
		respondTimeout: writeTimeout,
	}
}

// ID returns the connection's unique id
func (c *Conn) ID() string {
	return c.id
}

// PlayerID returns the authenticated user behind the connection
func (c *Conn) PlayerID() model.PlayerID {
	return c.playerID
}

// Send queues a pushed event, dropping it if the client is not keeping up
func (c *Conn) Send(event model.Event) bool {
	data, err := json.Marshal(event)
	if err != nil {
		c.logger.Error("failed to marshal event",
			slog.String("type", string(event.Type)),
			slog.String("error", err.Error()),
		)
		return false
	}
	if !c.enqueue(data) {
		c.logger.Warn("event dropped", slog.String("type", string(event.Type)))
		return false
	}
	return true
}

// respond queues a request's response. Unlike events it is never dropped: it
// waits for room in the queue, and a client that stays full past
// respondTimeout is disconnected. It reports whether the response was queued.
func (c *Conn) respond(ctx context.Context, resp Response) bool {
	data, err := json.Marshal(resp)
	if err != nil {
		c.logger.Error("failed to marshal response", slog.String("error", err.Error()))
		return false
	}

	timer := time.NewTimer(c.respondTimeout)
	defer timer.Stop()

	select {
	case c.out <- data:
		return true
	case <-c.done:
		return false
	case <-ctx.Done():
		return false
	case <-timer.C:
		c.logger.Warn("outbound queue full, closing connection", slog.String("id", resp.ID))
		c.close()
		_ = c.ws.Close(websocket.StatusTryAgainLater, "client is not reading")
		return false
	}
}

func (c *Conn) enqueue(data []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.out <- data:
		return true
	default:
		return false
	}
}

// close stops the write pump; queued frames are discarded
func (c *Conn) close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

// writePump drains the outbound queue onto the socket until the connection closes
func (c *Conn) writePump(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			return
		case data := <-c.out:
			writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := c.ws.Write(writeCtx, websocket.MessageText, data)
			cancel()
			if err != nil {
				c.logger.Debug("write failed", slog.String("error", err.Error()))
				c.close()
				_ = c.ws.Close(websocket.StatusInternalError, "write failed")
				return
			}
		}
	}
}

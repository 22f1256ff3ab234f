package room

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mcoot/bullscows/internal/dependencies/clock"
	"github.com/mcoot/bullscows/internal/dependencies/random"
	"github.com/mcoot/bullscows/internal/model"
	"github.com/mcoot/bullscows/internal/storage"
)

const (
	// CodeLength is the length of generated room codes
	CodeLength = 6
	// CodeAlphabet is the characters used in room codes (avoid confusing chars)
	CodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	// maxCodeAttempts bounds collision retries when generating a code
	maxCodeAttempts = 10
)

// LeaveOutcome describes what leaving did to the room
type LeaveOutcome struct {
	// Deleted is set when the host left and the room is gone
	Deleted bool
	// Room is the room after the leave, or as it was just before deletion
	Room *model.Room
}

// Controller manages persisted room records and tracks which room each
// player currently sits in.
type Controller struct {
	rooms    storage.RoomStore
	accounts storage.AccountStore
	clock    clock.Clock
	random   random.Random
	logger   *slog.Logger

	mu      sync.RWMutex
	members map[model.PlayerID]model.RoomCode
}

// NewController creates a new room Controller
func NewController(
	rooms storage.RoomStore,
	accounts storage.AccountStore,
	clock clock.Clock,
	random random.Random,
	logger *slog.Logger,
) *Controller {
	return &Controller{
		rooms:    rooms,
		accounts: accounts,
		clock:    clock,
		random:   random,
		logger:   logger.With(slog.String("component", "room")),
		members:  make(map[model.PlayerID]model.RoomCode),
	}
}

// CreateRoom persists a new waiting room hosted by hostID
func (c *Controller) CreateRoom(ctx context.Context, hostID model.PlayerID, settings model.RoomSettings) (*model.Room, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	now := c.clock.Now()
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		room := &model.Room{
			Code:      model.RoomCode(c.random.String(CodeLength, CodeAlphabet)),
			HostID:    hostID,
			Settings:  settings,
			Status:    model.RoomStatusWaiting,
			CreatedAt: now,
			UpdatedAt: now,
		}

		err := c.rooms.CreateRoom(ctx, room)
		if errors.Is(err, model.ErrRoomExists) {
			c.logger.Debug("room code collision", slog.String("code", string(room.Code)))
			continue
		}
		if err != nil {
			return nil, err
		}

		c.setMembership(hostID, room.Code)
		c.logger.Info("room created",
			slog.String("code", string(room.Code)),
			slog.String("host_id", string(hostID)),
			slog.Int("format", settings.Format),
			slog.Int("digit_count", settings.DigitCount),
			slog.String("difficulty", string(settings.Difficulty)),
		)
		return room, nil
	}
	return nil, fmt.Errorf("could not allocate a room code after %d attempts", maxCodeAttempts)
}

// JoinRoom seats playerID as the opponent. The room stays waiting until the
// host starts the match.
func (c *Controller) JoinRoom(ctx context.Context, code model.RoomCode, playerID model.PlayerID) (*model.RoomView, error) {
	room, err := c.rooms.UpdateRoom(ctx, code, func(r *model.Room) error {
		if r.Status != model.RoomStatusWaiting {
			return model.ErrRoomNotAvailable
		}
		if r.HostID == playerID {
			return model.ErrSelfJoin
		}
		if r.HasOpponent() {
			return model.ErrRoomFull
		}
		r.OpponentID = playerID
		r.UpdatedAt = c.clock.Now()
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.setMembership(playerID, code)
	c.logger.Info("player joined room",
		slog.String("code", string(code)),
		slog.String("player_id", string(playerID)),
	)
	return c.view(ctx, room), nil
}

// LeaveRoom removes playerID from the room. The host leaving deletes the room;
// the opponent leaving reopens the seat unless the room already holds an outcome.
func (c *Controller) LeaveRoom(ctx context.Context, code model.RoomCode, playerID model.PlayerID) (*LeaveOutcome, error) {
	room, err := c.rooms.GetRoom(ctx, code)
	if err != nil {
		if errors.Is(err, model.ErrRoomNotFound) {
			c.clearMembership(playerID, code)
		}
		return nil, err
	}
	if !room.IsMember(playerID) {
		return nil, model.ErrNotInRoom
	}

	if room.HostID == playerID {
		if err := c.rooms.DeleteRoom(ctx, code); err != nil {
			return nil, err
		}
		c.clearMembership(room.HostID, code)
		c.clearMembership(room.OpponentID, code)
		c.logger.Info("room closed by host", slog.String("code", string(code)))
		return &LeaveOutcome{Deleted: true, Room: room}, nil
	}

	updated, err := c.rooms.UpdateRoom(ctx, code, func(r *model.Room) error {
		if r.OpponentID != playerID {
			return model.ErrNotInRoom
		}
		r.OpponentID = ""
		// A finished room keeps its outcome
		if !r.Status.IsFinished() {
			r.Status = model.RoomStatusWaiting
		}
		r.UpdatedAt = c.clock.Now()
		return nil
	})
	if err != nil {
		return nil, err
	}
	c.clearMembership(playerID, code)
	c.logger.Info("player left room",
		slog.String("code", string(code)),
		slog.String("player_id", string(playerID)),
	)
	return &LeaveOutcome{Room: updated}, nil
}

// GetRoom retrieves a room by code
func (c *Controller) GetRoom(ctx context.Context, code model.RoomCode) (*model.Room, error) {
	return c.rooms.GetRoom(ctx, code)
}

// GetRoomView retrieves a room with display names attached
func (c *Controller) GetRoomView(ctx context.Context, code model.RoomCode) (*model.RoomView, error) {
	room, err := c.rooms.GetRoom(ctx, code)
	if err != nil {
		return nil, err
	}
	return c.view(ctx, room), nil
}

// MarkActive records that a live match has started between hostID and
// opponentID. It fails if the room is no longer waiting with both seats held
// by those players.
func (c *Controller) MarkActive(ctx context.Context, code model.RoomCode, hostID, opponentID model.PlayerID) error {
	_, err := c.rooms.UpdateRoom(ctx, code, func(r *model.Room) error {
		if r.HostID != hostID {
			return model.ErrNotHost
		}
		if r.Status != model.RoomStatusWaiting {
			return model.ErrRoomNotAvailable
		}
		if !r.HasOpponent() || r.OpponentID != opponentID {
			return model.ErrOpponentMissing
		}
		r.Status = model.RoomStatusActive
		r.UpdatedAt = c.clock.Now()
		return nil
	})
	return err
}

// MarkFinished records how the room's match ended
func (c *Controller) MarkFinished(ctx context.Context, code model.RoomCode, status model.RoomStatus) error {
	return c.setStatus(ctx, code, status)
}

// RoomFor returns the room the player currently sits in
func (c *Controller) RoomFor(playerID model.PlayerID) (model.RoomCode, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	code, ok := c.members[playerID]
	return code, ok
}

// DisplayName resolves a player's display name, falling back to the id
func (c *Controller) DisplayName(ctx context.Context, playerID model.PlayerID) string {
	if playerID == "" {
		return ""
	}
	account, err := c.accounts.GetAccount(ctx, playerID)
	if err != nil {
		return string(playerID)
	}
	return account.DisplayName
}

func (c *Controller) setStatus(ctx context.Context, code model.RoomCode, status model.RoomStatus) error {
	_, err := c.rooms.UpdateRoom(ctx, code, func(r *model.Room) error {
		r.Status = status
		r.UpdatedAt = c.clock.Now()
		return nil
	})
	return err
}

func (c *Controller) view(ctx context.Context, room *model.Room) *model.RoomView {
	return &model.RoomView{
		Room:         *room,
		HostName:     c.DisplayName(ctx, room.HostID),
		OpponentName: c.DisplayName(ctx, room.OpponentID),
	}
}

func (c *Controller) setMembership(playerID model.PlayerID, code model.RoomCode) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.members[playerID] = code
}

func (c *Controller) clearMembership(playerID model.PlayerID, code model.RoomCode) {
	if playerID == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.members[playerID] == code {
		delete(c.members, playerID)
	}
}

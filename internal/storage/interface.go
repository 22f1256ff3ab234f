package storage

import (
	"context"

	"github.com/mcoot/bullscows/internal/model"
)

// RoomStore persists room records. Rooms expire after a retention window
// regardless of outcome.
type RoomStore interface {
	// CreateRoom stores a new room, failing with model.ErrRoomExists if the code is taken
	CreateRoom(ctx context.Context, room *model.Room) error
	GetRoom(ctx context.Context, code model.RoomCode) (*model.Room, error)
	// UpdateRoom applies fn as a single read-modify-write. An error from fn aborts the write.
	UpdateRoom(ctx context.Context, code model.RoomCode, fn func(*model.Room) error) (*model.Room, error)
	DeleteRoom(ctx context.Context, code model.RoomCode) error
}

// AccountStore is the narrow view of the external account service
type AccountStore interface {
	GetAccount(ctx context.Context, id model.PlayerID) (*model.Account, error)
	SetOnline(ctx context.Context, id model.PlayerID, online bool) error
	// ResetPresence marks every account offline, used at process start
	ResetPresence(ctx context.Context) error
	AreFriends(ctx context.Context, a, b model.PlayerID) (bool, error)
}

// AccountProvisioner is implemented by account stores that can create accounts on demand
type AccountProvisioner interface {
	SaveAccount(ctx context.Context, account *model.Account) error
}

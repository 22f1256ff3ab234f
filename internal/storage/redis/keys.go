package redis

import (
	"fmt"

	"github.com/mcoot/bullscows/internal/model"
)

// Key prefix for all game-related data
const keyPrefix = "bnc"

// roomKey returns the Redis key for a Room
func roomKey(code model.RoomCode) string {
	return fmt.Sprintf("%s:room:%s", keyPrefix, code)
}

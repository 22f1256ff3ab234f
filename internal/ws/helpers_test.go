package ws_test

import (
	"time"

	"github.com/mcoot/bullscows/internal/model"
	"github.com/mcoot/bullscows/internal/services/auth"
)

// factoryToken signs a token with an arbitrary secret, dated to the test clock
func factoryToken(secret, playerID string) (string, error) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	return auth.IssueToken(secret, auth.DefaultConfig().Issuer, model.PlayerID(playerID), playerID, now, time.Hour)
}

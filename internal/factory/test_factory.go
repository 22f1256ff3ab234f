package factory

import (
	"context"
	"time"

	"github.com/mcoot/bullscows/internal/dependencies/mocks"
	"github.com/mcoot/bullscows/internal/model"
	"github.com/mcoot/bullscows/internal/services/auth"
	"github.com/mcoot/bullscows/internal/services/match"
	"github.com/mcoot/bullscows/internal/storage/memory"
	"github.com/mcoot/bullscows/internal/testutil"
)

// TestSecret signs tokens minted by TestApp
const TestSecret = "test-secret"

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Mocks for test control
	MockClock  *mocks.MockClock
	MockRandom *mocks.MockRandom
	Store      *memory.Storage
}

// NewTestApp creates an App configured for testing with mocked dependencies
func NewTestApp() *TestApp {
	return NewTestAppWithConfig(match.DefaultConfig())
}

// NewTestAppWithConfig creates a test App with custom match pacing
func NewTestAppWithConfig(matchCfg match.Config) *TestApp {
	mockClock := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	mockRandom := mocks.NewMockRandom()
	store := memory.New(mockClock, DefaultRoomTTL)

	authCfg := auth.DefaultConfig()
	authCfg.Secret = TestSecret

	app := newWithDependencies(store, store, mockClock, mockRandom, authCfg, matchCfg, testutil.NopLogger())

	return &TestApp{
		App:        app,
		MockClock:  mockClock,
		MockRandom: mockRandom,
		Store:      store,
	}
}

// AddPlayer seeds an account and returns a token for it
func (t *TestApp) AddPlayer(id, name string) (string, error) {
	err := t.Store.SaveAccount(context.Background(), &model.Account{
		ID:          model.PlayerID(id),
		DisplayName: name,
	})
	if err != nil {
		return "", err
	}
	return t.AuthService.IssueToken(model.PlayerID(id), name, time.Hour)
}

// Befriend records a friendship between two seeded players
func (t *TestApp) Befriend(a, b string) error {
	return t.Store.AddFriendship(context.Background(), model.PlayerID(a), model.PlayerID(b))
}

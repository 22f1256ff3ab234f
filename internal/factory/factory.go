package factory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/mcoot/bullscows/internal/api"
	"github.com/mcoot/bullscows/internal/dependencies/clock"
	"github.com/mcoot/bullscows/internal/dependencies/random"
	"github.com/mcoot/bullscows/internal/model"
	"github.com/mcoot/bullscows/internal/services/auth"
	"github.com/mcoot/bullscows/internal/services/match"
	"github.com/mcoot/bullscows/internal/services/presence"
	"github.com/mcoot/bullscows/internal/services/room"
	"github.com/mcoot/bullscows/internal/services/rounds"
	"github.com/mcoot/bullscows/internal/services/timer"
	"github.com/mcoot/bullscows/internal/storage"
	"github.com/mcoot/bullscows/internal/storage/memory"
	"github.com/mcoot/bullscows/internal/storage/postgres"
	redisstorage "github.com/mcoot/bullscows/internal/storage/redis"
	"github.com/mcoot/bullscows/internal/ws"
)

// Storage type constants
const (
	StorageTypeMemory = "memory"
	StorageTypeRedis  = "redis"
)

// Account store constants
const (
	AccountStoreMemory   = "memory"
	AccountStorePostgres = "postgres"
)

// DefaultRoomTTL is how long a room record is retained after its last write
const DefaultRoomTTL = time.Hour

// App contains all wired application components
type App struct {
	// Storage
	RoomStore    storage.RoomStore
	AccountStore storage.AccountStore

	// External dependencies
	Clock  clock.Clock
	Random random.Random

	// Services
	Presence        *presence.Registry
	Timers          *timer.Manager
	RoundTracker    *rounds.Tracker
	RoomController  *room.Controller
	MatchController *match.Controller
	AuthService     *auth.Service
	Dispatcher      *ws.Dispatcher

	logger  *slog.Logger
	closers []func() error
}

// Config holds configuration for the application factory
type Config struct {
	// AuthConfig holds configuration for the auth service
	// Secret is required; an empty Issuer defaults to auth.DefaultConfig().Issuer
	AuthConfig auth.Config
	// MatchConfig controls turn timers and the game-over grace period
	// If zero value, defaults to match.DefaultConfig()
	MatchConfig match.Config
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
	// StorageType selects the room store backend ("memory" or "redis")
	// If empty, defaults to "memory"
	StorageType string
	// RedisConfig holds Redis connection settings (required if StorageType is "redis")
	RedisConfig *redisstorage.Config
	// AccountStore selects the account store backend ("memory" or "postgres")
	// If empty, defaults to "memory"
	AccountStore string
	// DatabaseURL is the Postgres connection string (required if AccountStore is "postgres")
	DatabaseURL string
	// RoomTTL is the room retention window for the memory store
	// If zero, defaults to DefaultRoomTTL
	RoomTTL time.Duration
}

// New creates a new application with all dependencies wired.
// Unreachable Redis or Postgres backends are reported as errors.
func New(ctx context.Context, cfg Config) (*App, error) {
	if cfg.AuthConfig.Secret == "" {
		return nil, errors.New("AuthConfig.Secret is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	roomTTL := cfg.RoomTTL
	if roomTTL == 0 {
		roomTTL = DefaultRoomTTL
	}

	clk := clock.New()
	rnd := random.New()

	var closers []func() error
	closeAll := func() {
		for _, fn := range closers {
			_ = fn()
		}
	}

	var memStore *memory.Storage
	memoryStore := func() *memory.Storage {
		if memStore == nil {
			memStore = memory.New(clk, roomTTL)
		}
		return memStore
	}

	var rooms storage.RoomStore
	storageType := cfg.StorageType
	if storageType == "" {
		storageType = StorageTypeMemory
	}

	switch storageType {
	case StorageTypeMemory:
		rooms = memoryStore()
	case StorageTypeRedis:
		if cfg.RedisConfig == nil {
			return nil, errors.New("RedisConfig required when StorageType is redis")
		}
		redisStore, err := redisstorage.New(*cfg.RedisConfig)
		if err != nil {
			return nil, fmt.Errorf("redis unreachable: %w", err)
		}
		closers = append(closers, redisStore.Close)
		rooms = redisStore
	default:
		return nil, errors.New("invalid StorageType: must be 'memory' or 'redis'")
	}

	var accounts storage.AccountStore
	accountStore := cfg.AccountStore
	if accountStore == "" {
		accountStore = AccountStoreMemory
	}

	switch accountStore {
	case AccountStoreMemory:
		accounts = memoryStore()
	case AccountStorePostgres:
		if cfg.DatabaseURL == "" {
			closeAll()
			return nil, errors.New("DatabaseURL required when AccountStore is postgres")
		}
		pgStore, err := postgres.New(ctx, cfg.DatabaseURL)
		if err != nil {
			closeAll()
			return nil, fmt.Errorf("postgres unreachable: %w", err)
		}
		if err := pgStore.Migrate(ctx); err != nil {
			pgStore.Close()
			closeAll()
			return nil, err
		}
		closers = append(closers, func() error {
			pgStore.Close()
			return nil
		})
		accounts = pgStore
	default:
		closeAll()
		return nil, errors.New("invalid AccountStore: must be 'memory' or 'postgres'")
	}

	authCfg := cfg.AuthConfig
	if authCfg.Issuer == "" {
		authCfg.Issuer = auth.DefaultConfig().Issuer
	}
	matchCfg := cfg.MatchConfig
	if matchCfg.TurnSeconds == 0 {
		matchCfg = match.DefaultConfig()
	}

	app := newWithDependencies(rooms, accounts, clk, rnd, authCfg, matchCfg, logger)
	app.closers = closers
	return app, nil
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(
	rooms storage.RoomStore,
	accounts storage.AccountStore,
	clk clock.Clock,
	rnd random.Random,
	authCfg auth.Config,
	matchCfg match.Config,
	logger *slog.Logger,
) *App {
	registry := presence.NewRegistry(accounts, logger)
	timers := timer.NewManager(clk, logger)
	tracker := rounds.New(rnd)
	roomController := room.NewController(rooms, accounts, clk, rnd, logger)
	matchController := match.NewController(
		matchCfg,
		match.NewStore(),
		roomController,
		accounts,
		registry,
		timers,
		tracker,
		clk,
		logger,
	)
	authService := auth.New(accounts, clk, authCfg, logger)
	dispatcher := ws.NewDispatcher(roomController, matchController, clk, logger)

	// A user whose last connection closed forfeits or leaves whatever room they are in
	registry.OnOffline(func(userID model.PlayerID) {
		matchController.HandleDisconnect(context.Background(), userID)
	})

	return &App{
		RoomStore:       rooms,
		AccountStore:    accounts,
		Clock:           clk,
		Random:          rnd,
		Presence:        registry,
		Timers:          timers,
		RoundTracker:    tracker,
		RoomController:  roomController,
		MatchController: matchController,
		AuthService:     authService,
		Dispatcher:      dispatcher,
		logger:          logger,
	}
}

// Handler builds the HTTP handler serving the REST API and the websocket endpoint
func (a *App) Handler(originPatterns []string) http.Handler {
	return api.NewRouter(api.RouterConfig{
		Logger:          a.logger,
		AuthService:     a.AuthService,
		RoomController:  a.RoomController,
		MatchController: a.MatchController,
		Presence:        a.Presence,
		Dispatcher:      a.Dispatcher,
		OriginPatterns:  originPatterns,
	})
}

// ResetPresence marks every account offline; run once at boot since no
// connections survive a restart
func (a *App) ResetPresence(ctx context.Context) error {
	return a.AccountStore.ResetPresence(ctx)
}

// Close stops all live matches and releases backend connections
func (a *App) Close() {
	a.MatchController.Shutdown()
	for _, fn := range a.closers {
		if err := fn(); err != nil {
			a.logger.Warn("error closing backend", slog.String("error", err.Error()))
		}
	}
}

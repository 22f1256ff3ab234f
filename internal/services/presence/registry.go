package presence

import (
	"context"
	"log/slog"
	"sync"

	"github.com/mcoot/bullscows/internal/model"
	"github.com/mcoot/bullscows/internal/storage"
)

// Handle is one open client connection
type Handle interface {
	ID() string
	// Send queues an event without blocking; false means it was dropped
	Send(event model.Event) bool
}

// OfflineFunc is called after a user's last connection is deregistered
type OfflineFunc func(userID model.PlayerID)

// Registry tracks the open connections of every user.
// The registry lock only guards the user map; each user's connection set has
// its own lock so different users never contend.
type Registry struct {
	accounts storage.AccountStore
	logger   *slog.Logger

	mu        sync.Mutex
	users     map[model.PlayerID]*userEntry
	onOffline []OfflineFunc
}

type userEntry struct {
	mu      sync.Mutex
	handles []Handle
	// retired entries have been removed from the registry map and must not be reused
	retired bool
}

// NewRegistry creates a new presence Registry
func NewRegistry(accounts storage.AccountStore, logger *slog.Logger) *Registry {
	return &Registry{
		accounts: accounts,
		logger:   logger.With(slog.String("component", "presence")),
		users:    make(map[model.PlayerID]*userEntry),
	}
}

// OnOffline adds a hook run when a user's last connection goes away
func (r *Registry) OnOffline(fn OfflineFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onOffline = append(r.onOffline, fn)
}

// Register records a connection and reports whether it is the user's first
func (r *Registry) Register(ctx context.Context, userID model.PlayerID, h Handle) bool {
	for {
		e := r.entryFor(userID)

		e.mu.Lock()
		if e.retired {
			e.mu.Unlock()
			continue
		}
		for _, existing := range e.handles {
			if existing.ID() == h.ID() {
				e.mu.Unlock()
				return false
			}
		}
		first := len(e.handles) == 0
		e.handles = append(e.handles, h)
		if first {
			r.setOnline(ctx, userID, true)
		}
		count := len(e.handles)
		e.mu.Unlock()

		r.logger.Debug("connection registered",
			slog.String("player_id", string(userID)),
			slog.String("conn_id", h.ID()),
			slog.Int("connections", count),
		)
		return first
	}
}

// Deregister removes a connection and reports whether it was the user's last
func (r *Registry) Deregister(ctx context.Context, userID model.PlayerID, h Handle) bool {
	r.mu.Lock()
	e, ok := r.users[userID]
	r.mu.Unlock()
	if !ok {
		return false
	}

	e.mu.Lock()
	removed := false
	for i, existing := range e.handles {
		if existing.ID() == h.ID() {
			e.handles = append(e.handles[:i], e.handles[i+1:]...)
			removed = true
			break
		}
	}
	last := removed && len(e.handles) == 0
	if last {
		r.setOnline(ctx, userID, false)
		e.retired = true
		r.mu.Lock()
		if r.users[userID] == e {
			delete(r.users, userID)
		}
		r.mu.Unlock()
	}
	e.mu.Unlock()

	if !last {
		return false
	}

	r.mu.Lock()
	hooks := append([]OfflineFunc(nil), r.onOffline...)
	r.mu.Unlock()
	for _, fn := range hooks {
		fn(userID)
	}
	return true
}

// IsOnline reports whether the user has at least one connection
func (r *Registry) IsOnline(userID model.PlayerID) bool {
	return r.ConnectionCount(userID) > 0
}

// ConnectionCount returns how many connections the user has open
func (r *Registry) ConnectionCount(userID model.PlayerID) int {
	e := r.lookup(userID)
	if e == nil {
		return 0
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.handles)
}

// AnyConnectionFor returns the user's oldest open connection, or nil
func (r *Registry) AnyConnectionFor(userID model.PlayerID) Handle {
	e := r.lookup(userID)
	if e == nil {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.handles) == 0 {
		return nil
	}
	return e.handles[0]
}

// SendToUser delivers the event to all of the user's connections and returns
// how many accepted it
func (r *Registry) SendToUser(userID model.PlayerID, event model.Event) int {
	e := r.lookup(userID)
	if e == nil {
		return 0
	}
	e.mu.Lock()
	handles := append([]Handle(nil), e.handles...)
	e.mu.Unlock()

	sent := 0
	for _, h := range handles {
		if h.Send(event) {
			sent++
			continue
		}
		r.logger.Warn("event dropped - connection buffer full",
			slog.String("player_id", string(userID)),
			slog.String("conn_id", h.ID()),
			slog.String("event", string(event.Type)),
		)
	}
	return sent
}

// SendToUsers delivers the event to each listed user
func (r *Registry) SendToUsers(event model.Event, userIDs ...model.PlayerID) {
	for _, id := range userIDs {
		r.SendToUser(id, event)
	}
}

// OnlineUsers returns the number of users with at least one connection
func (r *Registry) OnlineUsers() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.users)
}

func (r *Registry) entryFor(userID model.PlayerID) *userEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.users[userID]
	if !ok {
		e = &userEntry{}
		r.users[userID] = e
	}
	return e
}

func (r *Registry) lookup(userID model.PlayerID) *userEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.users[userID]
}

func (r *Registry) setOnline(ctx context.Context, userID model.PlayerID, online bool) {
	if err := r.accounts.SetOnline(ctx, userID, online); err != nil {
		r.logger.Warn("failed to update presence flag",
			slog.String("player_id", string(userID)),
			slog.Bool("online", online),
			slog.String("error", err.Error()),
		)
		return
	}
	r.logger.Info("presence changed",
		slog.String("player_id", string(userID)),
		slog.Bool("online", online),
	)
}

package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mcoot/bullscows/internal/model"
	"github.com/mcoot/bullscows/internal/storage"
)

// Storage is a Postgres-backed account store
type Storage struct {
	pool *pgxpool.Pool
}

// New connects to Postgres and verifies the connection
func New(ctx context.Context, url string) (*Storage, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Storage{pool: pool}, nil
}

// Close releases the pool
func (s *Storage) Close() {
	s.pool.Close()
}

// Migrate creates the tables if missing
func (s *Storage) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, schema)
	return err
}

// Ensure Storage implements the interfaces
var (
	_ storage.AccountStore       = (*Storage)(nil)
	_ storage.AccountProvisioner = (*Storage)(nil)
)

func (s *Storage) SaveAccount(ctx context.Context, account *model.Account) error {
	q := `
		INSERT INTO accounts (id, display_name, is_online)
		VALUES ($1, $2, $3)
		ON CONFLICT (id)
		DO UPDATE SET display_name = EXCLUDED.display_name, updated_at = NOW()
	`
	_, err := s.pool.Exec(ctx, q, string(account.ID), account.DisplayName, account.Online)
	return err
}

func (s *Storage) GetAccount(ctx context.Context, id model.PlayerID) (*model.Account, error) {
	q := `SELECT id, display_name, is_online FROM accounts WHERE id = $1`

	var account model.Account
	var rawID string
	err := s.pool.QueryRow(ctx, q, string(id)).Scan(&rawID, &account.DisplayName, &account.Online)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrAccountNotFound
		}
		return nil, fmt.Errorf("get account %s: %w", id, err)
	}
	account.ID = model.PlayerID(rawID)
	return &account, nil
}

func (s *Storage) SetOnline(ctx context.Context, id model.PlayerID, online bool) error {
	q := `UPDATE accounts SET is_online = $2, updated_at = NOW() WHERE id = $1`
	ct, err := s.pool.Exec(ctx, q, string(id), online)
	if err != nil {
		return fmt.Errorf("set online %s: %w", id, err)
	}
	if ct.RowsAffected() == 0 {
		return model.ErrAccountNotFound
	}
	return nil
}

func (s *Storage) ResetPresence(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `UPDATE accounts SET is_online = FALSE WHERE is_online`)
	return err
}

// AddFriendship records an accepted friendship between a and b
func (s *Storage) AddFriendship(ctx context.Context, a, b model.PlayerID) error {
	if b < a {
		a, b = b, a
	}
	q := `
		INSERT INTO friendships (user_a, user_b, status)
		VALUES ($1, $2, 'accepted')
		ON CONFLICT (user_a, user_b)
		DO UPDATE SET status = 'accepted', updated_at = NOW()
	`
	return pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, q, string(a), string(b))
		return err
	})
}

func (s *Storage) AreFriends(ctx context.Context, a, b model.PlayerID) (bool, error) {
	if b < a {
		a, b = b, a
	}
	q := `
		SELECT EXISTS (
			SELECT 1 FROM friendships
			WHERE user_a = $1 AND user_b = $2 AND status = 'accepted'
		)
	`
	var ok bool
	if err := s.pool.QueryRow(ctx, q, string(a), string(b)).Scan(&ok); err != nil {
		return false, fmt.Errorf("check friendship: %w", err)
	}
	return ok, nil
}

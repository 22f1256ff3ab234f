package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mcoot/bullscows/internal/dependencies/clock"
	"github.com/mcoot/bullscows/internal/model"
	"github.com/mcoot/bullscows/internal/storage"
)

// Errors
var (
	ErrInvalidToken = errors.New("invalid or expired token")
	ErrMissingToken = errors.New("missing bearer token")
)

// Identity is the authenticated user behind a connection
type Identity struct {
	PlayerID    model.PlayerID
	DisplayName string
}

// Claims are the JWT claims issued to players. The subject is the player id.
type Claims struct {
	Name string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// Config holds configuration for the auth service
type Config struct {
	// Secret signs and verifies HS256 tokens
	Secret string
	// Issuer is stamped into issued tokens and required on validation when set
	Issuer string
	// AutoProvision creates unknown accounts from token claims when the account
	// store supports it
	AutoProvision bool
}

// DefaultConfig returns default auth configuration
func DefaultConfig() Config {
	return Config{
		Issuer: "bullscows",
	}
}

// Service validates bearer tokens against the account store
type Service struct {
	accounts storage.AccountStore
	clock    clock.Clock
	cfg      Config
	logger   *slog.Logger
}

// New creates a new auth Service
func New(accounts storage.AccountStore, clock clock.Clock, cfg Config, logger *slog.Logger) *Service {
	return &Service{
		accounts: accounts,
		clock:    clock,
		cfg:      cfg,
		logger:   logger.With(slog.String("component", "auth")),
	}
}

// ValidateToken verifies the token signature and expiry, then resolves the
// account it names
func (s *Service) ValidateToken(ctx context.Context, tokenString string) (*Identity, error) {
	if tokenString == "" {
		return nil, ErrMissingToken
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.clock.Now),
		jwt.WithExpirationRequired(),
	}
	if s.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.cfg.Issuer))
	}

	var claims Claims
	_, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(s.cfg.Secret), nil
	}, opts...)
	if err != nil {
		s.logger.Debug("token rejected", slog.String("error", err.Error()))
		return nil, ErrInvalidToken
	}
	if claims.Subject == "" {
		return nil, ErrInvalidToken
	}

	playerID := model.PlayerID(claims.Subject)
	account, err := s.accounts.GetAccount(ctx, playerID)
	if errors.Is(err, model.ErrAccountNotFound) {
		account, err = s.provision(ctx, playerID, claims.Name)
	}
	if err != nil {
		if errors.Is(err, model.ErrAccountNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}

	return &Identity{
		PlayerID:    account.ID,
		DisplayName: account.DisplayName,
	}, nil
}

// IssueToken mints a signed token for playerID valid for ttl
func (s *Service) IssueToken(playerID model.PlayerID, displayName string, ttl time.Duration) (string, error) {
	return IssueToken(s.cfg.Secret, s.cfg.Issuer, playerID, displayName, s.clock.Now(), ttl)
}

// IssueToken mints an HS256 token without a Service, for tooling
func IssueToken(secret, issuer string, playerID model.PlayerID, displayName string, now time.Time, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("signing secret is empty")
	}
	claims := Claims{
		Name: displayName,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   string(playerID),
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func (s *Service) provision(ctx context.Context, playerID model.PlayerID, name string) (*model.Account, error) {
	provisioner, ok := s.accounts.(storage.AccountProvisioner)
	if !s.cfg.AutoProvision || !ok {
		return nil, model.ErrAccountNotFound
	}
	if name == "" {
		name = string(playerID)
	}
	account := &model.Account{ID: playerID, DisplayName: name}
	if err := provisioner.SaveAccount(ctx, account); err != nil {
		return nil, err
	}
	s.logger.Info("account provisioned", slog.String("player_id", string(playerID)))
	return account, nil
}

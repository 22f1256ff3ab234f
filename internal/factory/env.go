package factory

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/mcoot/bullscows/internal/services/auth"
	"github.com/mcoot/bullscows/internal/services/match"
	redisstorage "github.com/mcoot/bullscows/internal/storage/redis"
)

// DefaultPort is the HTTP port used when PORT is unset
const DefaultPort = 8080

// EnvConfig is the process configuration read from the environment
type EnvConfig struct {
	Port     int
	LogLevel slog.Level
	App      Config
}

// LoadDotEnv loads variables from the given files (default ".env") into the
// process environment without overriding values already set.
// Missing files are ignored.
func LoadDotEnv(files ...string) error {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load env file: %w", err)
	}
	return nil
}

// ConfigFromEnv builds the configuration from environment lookups
func ConfigFromEnv(getenv func(string) string) (*EnvConfig, error) {
	cfg := &EnvConfig{
		Port:     DefaultPort,
		LogLevel: slog.LevelInfo,
	}

	if v := getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil || port <= 0 {
			return nil, fmt.Errorf("invalid PORT %q", v)
		}
		cfg.Port = port
	}

	if v := getenv("LOG_LEVEL"); v != "" {
		if err := cfg.LogLevel.UnmarshalText([]byte(v)); err != nil {
			return nil, fmt.Errorf("invalid LOG_LEVEL %q", v)
		}
	}

	secret := getenv("JWT_SECRET")
	if secret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}
	authCfg := auth.DefaultConfig()
	authCfg.Secret = secret
	if v := getenv("JWT_ISSUER"); v != "" {
		authCfg.Issuer = v
	}
	if v := getenv("AUTO_PROVISION"); v != "" {
		auto, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("invalid AUTO_PROVISION %q", v)
		}
		authCfg.AutoProvision = auto
	}

	matchCfg := match.DefaultConfig()
	if v := getenv("TURN_SECONDS"); v != "" {
		secs, err := strconv.Atoi(v)
		if err != nil || secs <= 0 {
			return nil, fmt.Errorf("invalid TURN_SECONDS %q", v)
		}
		matchCfg.TurnSeconds = secs
	}
	if v := getenv("GAME_OVER_GRACE"); v != "" {
		grace, err := time.ParseDuration(v)
		if err != nil || grace < 0 {
			return nil, fmt.Errorf("invalid GAME_OVER_GRACE %q", v)
		}
		matchCfg.GameOverGrace = grace
	}

	roomTTL := DefaultRoomTTL
	if v := getenv("ROOM_TTL"); v != "" {
		ttl, err := time.ParseDuration(v)
		if err != nil || ttl <= 0 {
			return nil, fmt.Errorf("invalid ROOM_TTL %q", v)
		}
		roomTTL = ttl
	}

	cfg.App = Config{
		AuthConfig:   authCfg,
		MatchConfig:  matchCfg,
		StorageType:  getenv("STORAGE_TYPE"),
		AccountStore: getenv("ACCOUNT_STORE"),
		DatabaseURL:  getenv("DATABASE_URL"),
		RoomTTL:      roomTTL,
	}

	if cfg.App.StorageType == StorageTypeRedis {
		redisURL := getenv("REDIS_URL")
		if redisURL == "" {
			return nil, errors.New("REDIS_URL required when STORAGE_TYPE=redis")
		}
		redisCfg := redisstorage.DefaultConfig()
		redisCfg.URL = redisURL
		redisCfg.RoomTTL = roomTTL
		cfg.App.RedisConfig = &redisCfg
	}

	if cfg.App.AccountStore == AccountStorePostgres && cfg.App.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL required when ACCOUNT_STORE=postgres")
	}

	return cfg, nil
}

package redis

import "time"

// Config holds Redis connection and behavior settings
type Config struct {
	// URL is the Redis connection URL (e.g., redis://localhost:6379)
	URL string

	// Pool settings
	PoolSize     int
	MinIdleConns int

	// RoomTTL is the retention window after which a room expires regardless of outcome
	RoomTTL time.Duration

	// UpdateRetries bounds optimistic-lock retries in UpdateRoom
	UpdateRetries int
}

// DefaultConfig returns sensible defaults for Redis configuration
func DefaultConfig() Config {
	return Config{
		URL:           "redis://localhost:6379",
		PoolSize:      10,
		MinIdleConns:  2,
		RoomTTL:       time.Hour,
		UpdateRetries: 5,
	}
}

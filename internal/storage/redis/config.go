package redis

import "time"

// Config holds Redis connection and behavior settings
type Config struct {
	// URL is the Redis connection URL (e.g., redis://localhost:6379)
	URL string

	// Pool settings
	PoolSize     int
	MinIdleConns int

	// PartyTTL bounds how long a directory entry outlives its last update
	PartyTTL time.Duration

	// KeyPrefix namespaces every key written by the directory
	KeyPrefix string
}

// DefaultConfig returns sensible defaults for Redis configuration
func DefaultConfig() Config {
	return Config{
		URL:          "redis://localhost:6379",
		PoolSize:     10,
		MinIdleConns: 2,
		PartyTTL:     24 * time.Hour,
		KeyPrefix:    "partycoord",
	}
}

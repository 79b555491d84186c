package config

import "time"

// ── Default values ───────────────────────────────────────────────────

const (
	// DefaultPort is the TCP game port.
	DefaultPort = 12345

	// DefaultReapInterval is the time between liveness sweeps.
	DefaultReapInterval = 5 * time.Second

	// DefaultWriteTimeout bounds a single message write.
	DefaultWriteTimeout = 10 * time.Second

	// DefaultOutboundQueue is the per-player send buffer.  A player
	// that falls this far behind is disconnected.
	DefaultOutboundQueue = 64

	// DefaultVerbosity shows normal informational output.
	DefaultVerbosity = 1

	// DefaultDialTimeout is the bot's per-attempt connect timeout.
	DefaultDialTimeout = 10 * time.Second

	// EnvPrefix prefixes every environment variable.
	EnvPrefix = "SEABATTLE_"

	// DefaultDotEnv is the .env file read when none is named.
	DefaultDotEnv = ".env"
)

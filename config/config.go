// Package config defines the runtime configuration for seabattle and
// loads it from a TOML file, a .env file and SEABATTLE_* environment
// variables.
package config

import (
	"fmt"
	"time"

	sberr "seabattle/internal/errors"
)

// Transport names accepted by Config.Transport.
const (
	TransportTCP = "tcp"
	TransportWS  = "ws"
	TransportSSH = "ssh"
)

// Config holds every tuneable for one seabattle process.  Listen
// selects server mode; otherwise the process runs a bot against
// Host:Port.
type Config struct {
	Listen bool `toml:"listen"`

	// ── Server ───────────────────────────────────────────────────────
	BindAddress   string        `toml:"bind_address"`
	Port          int           `toml:"port"`     // TCP; also the bot's target port
	WSPort        int           `toml:"ws_port"`  // 0 = disabled
	SSHPort       int           `toml:"ssh_port"` // 0 = disabled
	SSHHostKey    string        `toml:"ssh_host_key"`
	ReapInterval  time.Duration `toml:"reap_interval"`
	WriteTimeout  time.Duration `toml:"write_timeout"`
	OutboundQueue int           `toml:"outbound_queue"`
	Rematch       bool          `toml:"rematch"`
	FleetFile     string        `toml:"fleet_file"`

	// ── Bot ──────────────────────────────────────────────────────────
	Host       string `toml:"host"`
	Transport  string `toml:"transport"`
	LayoutFile string `toml:"layout_file"`
	Games      int    `toml:"games"`

	// ── Output ───────────────────────────────────────────────────────
	Verbose int `toml:"verbose"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	return &Config{
		Port:          DefaultPort,
		ReapInterval:  DefaultReapInterval,
		WriteTimeout:  DefaultWriteTimeout,
		OutboundQueue: DefaultOutboundQueue,
		Rematch:       true,
		Transport:     TransportTCP,
		Games:         1,
		Verbose:       DefaultVerbosity,
	}
}

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	if err := checkPort("port", c.Port, false); err != nil {
		return err
	}
	if c.ReapInterval < 100*time.Millisecond {
		return &sberr.ConfigError{Field: "reap-interval", Value: c.ReapInterval,
			Message: "must be at least 100ms"}
	}
	if c.WriteTimeout < 0 {
		return &sberr.ConfigError{Field: "write-timeout", Value: c.WriteTimeout, Message: "must not be negative"}
	}

	if c.Listen {
		if err := checkPort("ws-port", c.WSPort, true); err != nil {
			return err
		}
		if err := checkPort("ssh-port", c.SSHPort, true); err != nil {
			return err
		}
		seen := map[int]string{c.Port: "port"}
		for _, p := range []struct {
			name string
			port int
		}{{"ws-port", c.WSPort}, {"ssh-port", c.SSHPort}} {
			if p.port == 0 {
				continue
			}
			if other, dup := seen[p.port]; dup {
				return &sberr.ConfigError{Field: p.name, Value: p.port,
					Message: fmt.Sprintf("already used by --%s", other)}
			}
			seen[p.port] = p.name
		}
		if c.OutboundQueue < 1 {
			return &sberr.ConfigError{Field: "outbound-queue", Value: c.OutboundQueue, Message: "must be at least 1"}
		}
		return nil
	}

	if c.Host == "" {
		return &sberr.ConfigError{Field: "host", Message: "bot mode requires a host",
			Hint: "use -l to run a server, or pass <host> <port>"}
	}
	switch c.Transport {
	case TransportTCP, TransportWS, TransportSSH:
	default:
		return &sberr.ConfigError{Field: "transport", Value: c.Transport, Message: "must be tcp, ws or ssh"}
	}
	if c.Games < 1 {
		return &sberr.ConfigError{Field: "games", Value: c.Games, Message: "must be at least 1"}
	}
	return nil
}

func checkPort(field string, port int, optional bool) error {
	if optional && port == 0 {
		return nil
	}
	if port < 1 || port > 65535 {
		return &sberr.ConfigError{Field: field, Value: port, Message: "out of range 1-65535"}
	}
	return nil
}

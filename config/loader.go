package config

// loader.go - configuration loading from files and the environment.
//
// Precedence order (highest wins):
//   1. CLI flags             (handled by cmd/root.go)
//   2. Environment variables (LoadFromEnv, after LoadDotEnv)
//   3. TOML config file      (LoadFile)
//   4. Defaults              (Default)

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// LoadFile overlays the TOML file at path onto cfg.  Keys absent from
// the file keep their current value; unknown keys are an error.
//
//	listen = true
//	port = 12345
//	ws_port = 8080
//	reap_interval = "5s"
func LoadFile(cfg *Config, path string) error {
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		sort.Strings(keys)
		return fmt.Errorf("config %s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	return nil
}

// LoadDotEnv loads KEY=value pairs from path into the process
// environment without overriding variables that are already set.  A
// missing file is not an error when path is the default.
func LoadDotEnv(path string) error {
	explicit := path != ""
	if !explicit {
		path = DefaultDotEnv
	}
	if err := godotenv.Load(path); err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// ── Environment variable mapping ─────────────────────────────────────
//
// Every supported env var uses the SEABATTLE_ prefix.  Boolean values
// accept "1", "true", "yes" and "0", "false", "no" (case-insensitive).
// Durations accept Go syntax ("5s") or plain seconds.

// LoadFromEnv overlays environment variables onto cfg.  Only set,
// parseable variables override the existing value.
func LoadFromEnv(cfg *Config) {
	if v, ok := envBool("LISTEN"); ok {
		cfg.Listen = v
	}
	if v := env("BIND_ADDRESS"); v != "" {
		cfg.BindAddress = v
	}
	if v := envInt("PORT"); v > 0 {
		cfg.Port = v
	}
	if v := envInt("WS_PORT"); v > 0 {
		cfg.WSPort = v
	}
	if v := envInt("SSH_PORT"); v > 0 {
		cfg.SSHPort = v
	}
	if v := env("SSH_HOST_KEY"); v != "" {
		cfg.SSHHostKey = v
	}
	if v := envDuration("REAP_INTERVAL"); v > 0 {
		cfg.ReapInterval = v
	}
	if v := envDuration("WRITE_TIMEOUT"); v > 0 {
		cfg.WriteTimeout = v
	}
	if v := envInt("OUTBOUND_QUEUE"); v > 0 {
		cfg.OutboundQueue = v
	}
	if v, ok := envBool("REMATCH"); ok {
		cfg.Rematch = v
	}
	if v := env("FLEET_FILE"); v != "" {
		cfg.FleetFile = v
	}

	// Bot
	if v := env("HOST"); v != "" {
		cfg.Host = v
	}
	if v := env("TRANSPORT"); v != "" {
		cfg.Transport = strings.ToLower(v)
	}
	if v := env("LAYOUT_FILE"); v != "" {
		cfg.LayoutFile = v
	}
	if v := envInt("GAMES"); v > 0 {
		cfg.Games = v
	}

	// Output
	if v := envInt("VERBOSE"); v > 0 {
		cfg.Verbose = v
	}
}

// ── helpers ──────────────────────────────────────────────────────────

func env(key string) string { return os.Getenv(EnvPrefix + key) }

func envInt(key string) int {
	n, err := strconv.Atoi(env(key))
	if err != nil {
		return 0
	}
	return n
}

func envBool(key string) (value, ok bool) {
	switch strings.ToLower(env(key)) {
	case "1", "true", "yes":
		return true, true
	case "0", "false", "no":
		return false, true
	}
	return false, false
}

func envDuration(key string) time.Duration {
	v := env(key)
	if v == "" {
		return 0
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if sec, err := strconv.Atoi(v); err == nil {
		return time.Duration(sec) * time.Second
	}
	return 0
}

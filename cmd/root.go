// Package cmd wires up the CLI flags and dispatches to the core modes.
package cmd

import (
	"context"
	"fmt"
	"os"
	"strconv"

	flag "github.com/spf13/pflag"
	"golang.org/x/term"

	"seabattle/config"
	"seabattle/internal/core"
	"seabattle/internal/metrics"
	"seabattle/util"
)

// version is overridable at link time:
//
//	go build -ldflags "-X seabattle/cmd.version=2.0.0"
var version = "1.0.0" //nolint:gochecknoglobals

// Execute parses args and runs the appropriate seabattle mode.
//
// Configuration is layered: defaults, then the TOML file named by
// --config, then the .env file and SEABATTLE_* variables, then every
// flag given explicitly on the command line.
func Execute(ctx context.Context, args []string) error {
	fl := config.Default()
	fs := flag.NewFlagSet("seabattle", flag.ContinueOnError)

	// ── server ───────────────────────────────────────────────────
	fs.BoolVarP(&fl.Listen, "listen", "l", false, "Run the game server")
	fs.IntVarP(&fl.Port, "port", "p", fl.Port, "TCP game port (server) or target port (bot)")
	fs.StringVar(&fl.BindAddress, "bind", "", "Address to bind listeners to (default all interfaces)")
	fs.IntVar(&fl.WSPort, "ws-port", 0, "Also accept WebSocket players on this port")
	fs.IntVar(&fl.SSHPort, "ssh-port", 0, "Also accept SSH players on this port")
	fs.StringVar(&fl.SSHHostKey, "ssh-host-key", "", "SSH host key file (generated if unset)")
	fs.DurationVar(&fl.ReapInterval, "reap-interval", fl.ReapInterval, "Time between liveness sweeps")
	fs.DurationVar(&fl.WriteTimeout, "write-timeout", fl.WriteTimeout, "Per-message write deadline")
	fs.IntVar(&fl.OutboundQueue, "queue", fl.OutboundQueue, "Per-player outbound message queue")
	fs.BoolVar(&fl.Rematch, "rematch", fl.Rematch, "Requeue players when their game ends")
	fs.StringVar(&fl.FleetFile, "fleet", "", "Fleet composition file (YAML)")

	// ── bot ──────────────────────────────────────────────────────
	fs.StringVar(&fl.LayoutFile, "layout", "", "Ship layout file (YAML or XML; random if unset)")
	fs.IntVarP(&fl.Games, "games", "g", fl.Games, "Number of games to play")
	var useWS, useSSH bool
	fs.BoolVar(&useWS, "ws", false, "Connect over WebSocket")
	fs.BoolVar(&useSSH, "ssh", false, "Connect over SSH")

	// ── configuration ────────────────────────────────────────────
	var configFile, envFile string
	fs.StringVar(&configFile, "config", "", "TOML configuration file")
	fs.StringVar(&envFile, "env-file", "", "Environment file (default .env if present)")

	// ── output ───────────────────────────────────────────────────
	var verbose int
	var quiet bool
	fs.CountVarP(&verbose, "verbose", "v", "Increase verbosity (repeatable)")
	fs.BoolVarP(&quiet, "quiet", "q", false, "Only print errors")

	var showVersion, showHelp, dryRun bool
	fs.BoolVar(&showVersion, "version", false, "Print version and exit")
	fs.BoolVarP(&showHelp, "help", "h", false, "Show this help")
	fs.BoolVar(&dryRun, "dry-run", false, "Validate the configuration and exit")

	fs.Usage = func() { printUsage(fs) }

	// ── parse ────────────────────────────────────────────────────
	if err := fs.Parse(args); err != nil {
		return err
	}

	if showHelp || len(args) == 0 {
		printUsage(fs)
		return nil
	}
	if showVersion {
		fmt.Printf("seabattle %s\n", version)
		return nil
	}
	if useWS && useSSH {
		return fmt.Errorf("--ws and --ssh are mutually exclusive")
	}

	// ── layer configuration ──────────────────────────────────────
	cfg := config.Default()
	if configFile != "" {
		if err := config.LoadFile(cfg, configFile); err != nil {
			return err
		}
	}
	if err := config.LoadDotEnv(envFile); err != nil {
		return err
	}
	config.LoadFromEnv(cfg)
	applyFlags(cfg, fl, fs)
	switch {
	case useWS:
		cfg.Transport = config.TransportWS
	case useSSH:
		cfg.Transport = config.TransportSSH
	}
	cfg.Verbose += verbose
	if quiet {
		cfg.Verbose = 0
	}

	// ── positional arguments ─────────────────────────────────────
	if err := parsePositional(cfg, fs.Args()); err != nil {
		return err
	}

	// ── validate ─────────────────────────────────────────────────
	if err := cfg.Validate(); err != nil {
		return err
	}

	// ── build components ─────────────────────────────────────────
	logger := util.NewLogger(cfg.Verbose)
	logger.SetColor(term.IsTerminal(int(os.Stderr.Fd())))
	defer logger.Sync() //nolint:errcheck

	mode, err := core.Build(cfg, logger, metrics.New())
	if err != nil {
		return err
	}
	if dryRun {
		logger.Info("configuration OK (%T)", mode)
		return nil
	}
	return mode.Run(ctx)
}

// ── helpers ──────────────────────────────────────────────────────────

// applyFlags copies every flag set on the command line from fl to cfg.
func applyFlags(cfg, fl *config.Config, fs *flag.FlagSet) {
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "listen":
			cfg.Listen = fl.Listen
		case "port":
			cfg.Port = fl.Port
		case "bind":
			cfg.BindAddress = fl.BindAddress
		case "ws-port":
			cfg.WSPort = fl.WSPort
		case "ssh-port":
			cfg.SSHPort = fl.SSHPort
		case "ssh-host-key":
			cfg.SSHHostKey = fl.SSHHostKey
		case "reap-interval":
			cfg.ReapInterval = fl.ReapInterval
		case "write-timeout":
			cfg.WriteTimeout = fl.WriteTimeout
		case "queue":
			cfg.OutboundQueue = fl.OutboundQueue
		case "rematch":
			cfg.Rematch = fl.Rematch
		case "fleet":
			cfg.FleetFile = fl.FleetFile
		case "layout":
			cfg.LayoutFile = fl.LayoutFile
		case "games":
			cfg.Games = fl.Games
		}
	})
}

func parsePositional(cfg *config.Config, remaining []string) error {
	if cfg.Listen {
		if len(remaining) > 0 {
			return fmt.Errorf("unexpected arguments in server mode: %v", remaining)
		}
		return nil
	}

	// Bot mode: host [port]
	switch len(remaining) {
	case 0:
		// Host may come from the config file or environment.
	case 1, 2:
		cfg.Host = remaining[0]
		if len(remaining) == 2 {
			port, err := strconv.Atoi(remaining[1])
			if err != nil {
				return fmt.Errorf("port %q: not a number", remaining[1])
			}
			cfg.Port = port
		}
	default:
		return fmt.Errorf("too many arguments (use --help for usage)")
	}
	return nil
}

func printUsage(fs *flag.FlagSet) {
	fmt.Fprintf(os.Stderr, `Seabattle – Battleship Game Server v%s

Pairs players over TCP, WebSocket and SSH, and ships an automated player.

Usage:
  seabattle -l [options]                      Serve
  seabattle [options] <host> [port]           Play as a bot

Options:
`, version)
	fs.PrintDefaults()
	fmt.Fprintf(os.Stderr, `
Examples:
  seabattle -l                                Serve TCP on 12345
  seabattle -l --ws-port 8080 --ssh-port 2222 Serve all transports
  seabattle -l --config seabattle.toml -v     Serve from a config file
  seabattle localhost                         Play one game
  seabattle --ws -g 10 localhost 8080         Play ten games over WebSocket
  seabattle --layout fleet.xml localhost      Play with a fixed layout
`)
}
